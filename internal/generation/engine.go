// Package generation drives multi-stage content generation: batch expansion,
// chunked structure generation shared across sibling variants, sequential script
// sections, targeted regeneration, refinement, throttled image batches and the
// visual and niche analysis helpers built on the same provider calls.
package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/logger"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/prompts"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/provider"
)

// ProjectStore is the shared project collection. Every read returns a copy and every
// write is a read-modify-write keyed by project id.
type ProjectStore interface {
	Get(id int64) (domain.Project, error)
	ListBatch(batchID string) []domain.Project
	Replace(id int64, update func(p *domain.Project)) (domain.Project, error)
	ReplaceAll(match func(p domain.Project) bool, update func(p *domain.Project)) int
}

// NicheSource resolves niche settings by id.
type NicheSource interface {
	Get(id string) (domain.Niche, error)
}

// Notifier receives human-readable reports of absorbed failures.
type Notifier interface {
	Notify(ctx context.Context, n domain.Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, n domain.Notice)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, n domain.Notice) {
	f(ctx, n)
}

// Config tunes prompt assembly.
type Config struct {
	Bounds        prompts.LengthBounds
	ChunkSize     int // used when the niche workflow names none
	ContextWindow int // previous sections carried into each structure chunk
	DefaultModel  string
}

// Deps are the collaborators shared by every component of the engine.
type Deps struct {
	Provider  provider.Provider
	Images    provider.ImageGenerator
	Store     ProjectStore
	Niches    NicheSource
	Cost      *CostMeter
	Retry     *RetryPolicy
	Notifier  Notifier
	Throttler *ImageThrottler
	Artifacts ArtifactStore
	Config    Config
}

// Engine bundles the generation components around one set of collaborators.
type Engine struct {
	Structure  *StructureCoordinator
	Script     *ScriptSequencer
	Regenerate *RegenerationTargeter
	Refine     *RefinementApplier
	Images     *ImageRunner
	Visuals    *VisualPlanner
	Analysis   *NicheAnalyzer
	Cost       *CostMeter
}

// NewEngine wires the components. Cost, Retry and Config fall back to defaults.
func NewEngine(deps Deps) *Engine {
	c := newCore(deps)
	e := &Engine{
		Structure:  &StructureCoordinator{core: c},
		Script:     &ScriptSequencer{core: c},
		Regenerate: &RegenerationTargeter{core: c},
		Refine:     &RefinementApplier{core: c},
		Visuals:    &VisualPlanner{core: c},
		Analysis:   &NicheAnalyzer{core: c},
		Cost:       c.cost,
	}
	if deps.Images != nil {
		e.Images = &ImageRunner{core: c, images: deps.Images, throttler: deps.Throttler, artifacts: deps.Artifacts}
	}
	return e
}

type core struct {
	provider provider.Provider
	store    ProjectStore
	niches   NicheSource
	cost     *CostMeter
	retry    *RetryPolicy
	notifier Notifier
	cfg      Config
}

func newCore(deps Deps) *core {
	c := &core{
		provider: deps.Provider,
		store:    deps.Store,
		niches:   deps.Niches,
		cost:     deps.Cost,
		retry:    deps.Retry,
		notifier: deps.Notifier,
		cfg:      deps.Config,
	}
	if c.cost == nil {
		c.cost = NewCostMeter(nil)
	}
	if c.retry == nil {
		c.retry = DefaultRetryPolicy()
	}
	if c.cfg.Bounds == (prompts.LengthBounds{}) {
		c.cfg.Bounds = prompts.DefaultLengthBounds()
	}
	if c.cfg.ChunkSize <= 0 {
		c.cfg.ChunkSize = prompts.DefaultChunkSize
	}
	if c.cfg.ContextWindow <= 0 {
		c.cfg.ContextWindow = 3
	}
	return c
}

// generate sends one request through the retry policy. schema describes the expected
// document and may be nil.
func (c *core) generate(ctx context.Context, system, prompt, model string, schema *provider.Schema) (json.RawMessage, error) {
	if model == "" {
		model = c.cfg.DefaultModel
	}
	var raw json.RawMessage
	err := c.retry.Do(ctx, func(ctx context.Context) error {
		out, err := c.provider.Generate(ctx, provider.Request{System: system, Prompt: prompt, Model: model, Schema: schema})
		if err != nil {
			return err
		}
		raw = out
		return nil
	})
	return raw, err
}

func (c *core) notify(ctx context.Context, level domain.NoticeLevel, projectID int64, format string, args ...interface{}) {
	n := domain.Notice{
		Level:     level,
		Message:   fmt.Sprintf(format, args...),
		ProjectID: projectID,
		Time:      time.Now(),
	}
	logger.With(logger.Fields{
		logger.FieldProjectID: projectID,
		logger.FieldStatus:    string(level),
	}).Warn(ctx, "%s", n.Message)
	if c.notifier != nil {
		c.notifier.Notify(ctx, n)
	}
}

type templateSet struct {
	structure string
	script    string
	workflow  string
}

// templates resolves the prompts for nicheID: custom niche prompts first, then the
// built-in templates.
func (c *core) templates(nicheID string) templateSet {
	b := prompts.Builtin(nicheID)
	t := templateSet{structure: b.Structure, script: b.Script, workflow: b.Workflow}
	if c.niches == nil || nicheID == "" {
		return t
	}
	n, err := c.niches.Get(nicheID)
	if err != nil {
		return t
	}
	if n.CustomStructurePrompt != "" {
		t.structure = n.CustomStructurePrompt
	}
	if n.CustomScriptPrompt != "" {
		t.script = n.CustomScriptPrompt
	}
	if n.WorkflowDescription != "" {
		t.workflow = n.WorkflowDescription
	}
	return t
}

func baseTitle(p domain.Project) string {
	if p.Variant.BaseTitle != "" {
		return p.Variant.BaseTitle
	}
	return domain.DecodeTitle(p.Title).BaseTitle
}
