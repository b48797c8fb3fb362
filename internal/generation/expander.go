package generation

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
)

// IDGenerator hands out project ids seeded from the wall clock in milliseconds.
// Ids are strictly increasing within the process, so two ids never collide even
// when many are taken in the same millisecond.
type IDGenerator struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewIDGenerator creates a generator on the system clock.
func NewIDGenerator() *IDGenerator {
	return &IDGenerator{now: time.Now}
}

// Next returns a fresh id.
func (g *IDGenerator) Next() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.now().UnixMilli()
	if id <= g.last {
		id = g.last + 1
	}
	g.last = id
	return id
}

// Expander turns one topic request into its cross product of variant projects.
type Expander struct {
	ids *IDGenerator
	now func() time.Time
}

// NewExpander creates an expander with its own id sequence.
func NewExpander(ids *IDGenerator) *Expander {
	if ids == nil {
		ids = NewIDGenerator()
	}
	return &Expander{ids: ids, now: time.Now}
}

// Expand validates req and returns StructureVariants*ScriptVariants draft projects
// sharing one batch id, ordered by structure variant then script variant.
// startGeneration marks every project as waiting for structure generation.
func (e *Expander) Expand(req domain.TopicRequest, startGeneration bool) ([]domain.Project, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := e.now()
	batchID := fmt.Sprintf("batch-%d", now.UnixMilli())
	base := strings.TrimSpace(req.Title)
	structTotal := int(req.StructureVariants)
	scriptTotal := int(req.ScriptVariants)

	projects := make([]domain.Project, 0, structTotal*scriptTotal)
	for s := 1; s <= structTotal; s++ {
		for k := 1; k <= scriptTotal; k++ {
			title := domain.EncodeTitle(base, s, k, structTotal, scriptTotal)
			variant := domain.VariantIdentity{BaseTitle: base, StructIdx: -1, ScriptIdx: -1}
			if title != base {
				variant.StructIdx, variant.ScriptIdx = s, k
			}

			p := domain.Project{
				ID:                    e.ids.Next(),
				BatchID:               batchID,
				Title:                 title,
				Filename:              domain.FilenameFromTitle(title),
				Variant:               variant,
				NicheID:               req.NicheID,
				DurationMinutes:       req.DurationMinutes,
				StructureVariants:     structTotal,
				ScriptVariants:        scriptTotal,
				Model:                 req.Model,
				Structure:             []domain.StructureSection{},
				ScriptParts:           []domain.ScriptSection{},
				StructureGenerating:   startGeneration,
				StructureInstructions: req.Instructions,
				CreatedAt:             now,
				UpdatedAt:             now,
			}
			if req.ReleaseDate != nil {
				d := *req.ReleaseDate
				p.ReleaseDate = &d
			}
			projects = append(projects, p)
		}
	}
	return projects, nil
}
