package generation

import (
	"context"
	"sync"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/logger"
)

// CostKind names a billable call type.
type CostKind string

const (
	CostStructureGroup CostKind = "structure_group"
	CostRefinement     CostKind = "refinement"
	CostScriptSection  CostKind = "script_section"
	CostSectionRewrite CostKind = "section_rewrite"
	CostImagePrompts   CostKind = "image_prompts"
	CostImageBatch     CostKind = "image_batch"
	CostImage          CostKind = "image"
	CostPromptRefine   CostKind = "prompt_refine"
	CostScenes         CostKind = "scenes"
	CostImagePrompt    CostKind = "image_prompt"
	CostNicheAnalysis  CostKind = "niche_analysis"
	CostTitleAnalysis  CostKind = "title_analysis"
)

// Prices maps each call type to its fixed estimated price in dollars.
type Prices map[CostKind]float64

// DefaultPrices returns the built-in price table.
func DefaultPrices() Prices {
	return Prices{
		CostStructureGroup: 0.001,
		CostRefinement:     0.001,
		CostScriptSection:  0.02,
		CostSectionRewrite: 0.02,
		CostImagePrompts:   0.001,
		CostImageBatch:     0.001,
		CostImage:          0.04,
		CostPromptRefine:   0.001,
		CostScenes:         0.01,
		CostImagePrompt:    0.001,
		CostNicheAnalysis:  0.002,
		CostTitleAnalysis:  0.001,
	}
}

// CostSnapshot is a point-in-time copy of the meter.
type CostSnapshot struct {
	Total  float64              `json:"total"`
	ByKind map[CostKind]float64 `json:"byKind"`
	Calls  map[CostKind]int     `json:"calls"`
}

// CostMeter keeps the process-wide running total of estimated spend. It only grows;
// Reset exists for the session owner.
type CostMeter struct {
	mu     sync.Mutex
	prices Prices
	total  float64
	byKind map[CostKind]float64
	calls  map[CostKind]int
}

// NewCostMeter creates a meter. Kinds missing from prices fall back to the defaults.
func NewCostMeter(prices Prices) *CostMeter {
	merged := DefaultPrices()
	for k, v := range prices {
		if v >= 0 {
			merged[k] = v
		}
	}
	return &CostMeter{
		prices: merged,
		byKind: make(map[CostKind]float64),
		calls:  make(map[CostKind]int),
	}
}

// Charge adds units times the price of kind and returns the amount added.
func (m *CostMeter) Charge(ctx context.Context, kind CostKind, units int) float64 {
	if units <= 0 {
		return 0
	}
	m.mu.Lock()
	amount := m.prices[kind] * float64(units)
	m.total += amount
	m.byKind[kind] += amount
	m.calls[kind] += units
	total := m.total
	m.mu.Unlock()

	logger.With(logger.Fields{
		logger.FieldCost:  amount,
		logger.FieldCount: units,
		"cost_kind":       string(kind),
		"cost_total":      total,
	}).Debug(ctx, "Cost charged")
	return amount
}

// Price returns the unit price of kind.
func (m *CostMeter) Price(kind CostKind) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prices[kind]
}

// Total returns the running total.
func (m *CostMeter) Total() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.total
}

// Snapshot returns a copy of the running total and its breakdown.
func (m *CostMeter) Snapshot() CostSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := CostSnapshot{
		Total:  m.total,
		ByKind: make(map[CostKind]float64, len(m.byKind)),
		Calls:  make(map[CostKind]int, len(m.calls)),
	}
	for k, v := range m.byKind {
		s.ByKind[k] = v
	}
	for k, v := range m.calls {
		s.Calls[k] = v
	}
	return s
}

// Reset clears the total.
func (m *CostMeter) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.total = 0
	m.byKind = make(map[CostKind]float64)
	m.calls = make(map[CostKind]int)
}
