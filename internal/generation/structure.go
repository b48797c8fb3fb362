package generation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/logger"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/prompts"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/provider"
)

// StructureCoordinator generates one structure per structure group and fans it out
// to every sibling in the group.
type StructureCoordinator struct {
	*core
}

// GroupResult reports the outcome of one structure group.
type GroupResult struct {
	Key        string  `json:"key"`
	ProjectIDs []int64 `json:"projectIds"`
	Planned    int     `json:"planned"`
	Sections   int     `json:"sections"`
	Err        error   `json:"-"`
}

// Partial reports whether the group kept sections from before a failed chunk.
func (r GroupResult) Partial() bool {
	var partial *domain.PartialGenerationError
	return errors.As(r.Err, &partial)
}

type structureGroup struct {
	key     string
	members []domain.Project // sorted by id, members[0] is the representative
}

func (g structureGroup) ids() []int64 {
	ids := make([]int64, len(g.members))
	for i, p := range g.members {
		ids[i] = p.ID
	}
	return ids
}

// groupProjects groups by (batch, structure variant). Projects without a structure
// variant index form a group of their own.
func groupProjects(projects []domain.Project) []structureGroup {
	byKey := make(map[string]*structureGroup)
	var order []string
	for _, p := range projects {
		key := p.GroupKey()
		g, ok := byKey[key]
		if !ok {
			g = &structureGroup{key: key}
			byKey[key] = g
			order = append(order, key)
		}
		g.members = append(g.members, p)
	}

	groups := make([]structureGroup, 0, len(order))
	for _, key := range order {
		g := byKey[key]
		sort.Slice(g.members, func(i, j int) bool { return g.members[i].ID < g.members[j].ID })
		groups = append(groups, *g)
	}
	sort.SliceStable(groups, func(i, j int) bool { return groups[i].members[0].ID < groups[j].members[0].ID })
	return groups
}

// GenerateBatch generates the structures of every group in the batch. Groups run
// concurrently. The returned error joins the hard failures; partial results are
// reported in the results and as notices.
func (s *StructureCoordinator) GenerateBatch(ctx context.Context, batchID, instructions string) ([]GroupResult, error) {
	projects := s.store.ListBatch(batchID)
	if len(projects) == 0 {
		return nil, fmt.Errorf("batch %s: %w", batchID, domain.ErrNotFound)
	}
	ctx = logger.SetBatchID(ctx, batchID)
	return s.run(ctx, groupProjects(projects), instructions)
}

// GenerateGroup generates structures for the groups the given projects belong to.
// Only the listed projects are updated.
func (s *StructureCoordinator) GenerateGroup(ctx context.Context, projectIDs []int64, instructions string) ([]GroupResult, error) {
	projects := make([]domain.Project, 0, len(projectIDs))
	for _, id := range projectIDs {
		p, err := s.store.Get(id)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	if len(projects) == 0 {
		return nil, fmt.Errorf("no projects given: %w", domain.ErrValidationFailed)
	}
	return s.run(ctx, groupProjects(projects), instructions)
}

func (s *StructureCoordinator) run(ctx context.Context, groups []structureGroup, instructions string) ([]GroupResult, error) {
	results := make([]GroupResult, len(groups))
	var wg sync.WaitGroup
	for i, g := range groups {
		wg.Add(1)
		go func(i int, g structureGroup) {
			defer wg.Done()
			results[i] = s.generateGroup(ctx, g, instructions)
		}(i, g)
	}
	wg.Wait()

	var errs []error
	for _, r := range results {
		if r.Err != nil && !r.Partial() {
			errs = append(errs, r.Err)
		}
	}
	return results, errors.Join(errs...)
}

func (s *StructureCoordinator) generateGroup(ctx context.Context, g structureGroup, instructions string) GroupResult {
	rep := g.members[0]
	result := GroupResult{Key: g.key, ProjectIDs: g.ids()}
	ctx = logger.SetProjectID(ctx, rep.ID)
	ctx = logger.WithField(ctx, logger.FieldStructureGroup, g.key)
	start := time.Now()

	if instructions == "" {
		instructions = rep.StructureInstructions
	}
	inGroup := memberSet(result.ProjectIDs)
	s.store.ReplaceAll(inGroup, func(p *domain.Project) {
		p.StructureGenerating = true
		p.StructureInstructions = instructions
	})

	tpl := s.templates(rep.NicheID)
	target := prompts.SectionTarget(instructions, rep.DurationMinutes)
	chunkSize := prompts.ChunkSize(tpl.workflow, s.cfg.ChunkSize)
	base := prompts.Render(tpl.structure, prompts.StructureVars(baseTitle(rep), rep.DurationMinutes, target))
	result.Planned = target

	// Siblings share the calls, so the group is charged once.
	s.cost.Charge(ctx, CostStructureGroup, 1)

	sections := make([]domain.StructureSection, 0, target)
	for chunk, from := 0, 1; from <= target; chunk, from = chunk+1, from+chunkSize {
		to := from + chunkSize - 1
		if to > target {
			to = target
		}
		previous := ""
		if chunk > 0 {
			previous = prompts.PreviousContext(sections, s.cfg.ContextWindow)
		}
		prompt := prompts.StructureChunkPrompt(base, tpl.workflow, instructions, previous, from, to)

		got, err := s.generateChunk(ctx, prompt, rep.Model, to-from+1)
		if err != nil {
			genErr := &domain.GenerationError{Op: "structure", ProjectID: rep.ID, Section: -1, Chunk: chunk, Err: err}
			if len(sections) == 0 {
				s.store.ReplaceAll(inGroup, func(p *domain.Project) {
					p.StructureGenerating = false
				})
				s.notify(ctx, domain.NoticeError, rep.ID, "Structure generation failed for %q: %v", baseTitle(rep), err)
				result.Err = genErr
				return result
			}
			result.Err = &domain.PartialGenerationError{Completed: len(sections), Planned: target, Cause: genErr}
			s.notify(ctx, domain.NoticeWarning, rep.ID, "Structure for %q stopped at %d of %d sections: %v",
				baseTitle(rep), len(sections), target, err)
			break
		}
		sections = append(sections, got...)

		logger.With(logger.Fields{
			logger.FieldCount: len(sections),
			"chunk":           chunk + 1,
		}).Debug(ctx, "Structure chunk generated")
	}

	s.apply(inGroup, sections)
	result.Sections = len(sections)

	logger.With(logger.Fields{
		logger.FieldCount: len(sections),
		"members":         len(g.members),
	}).Since(start).Info(ctx, "Structure group generated")
	return result
}

func (s *StructureCoordinator) generateChunk(ctx context.Context, prompt, model string, want int) ([]domain.StructureSection, error) {
	raw, err := s.generate(ctx, prompts.StructureSystemPrompt, prompt, model, provider.StructureSchema)
	if err != nil {
		return nil, err
	}
	sections, err := provider.DecodeStructure(raw)
	if err != nil {
		return nil, err
	}
	if len(sections) != want {
		return nil, fmt.Errorf("%w: chunk returned %d sections, want %d", domain.ErrMalformedResponse, len(sections), want)
	}
	return sections, nil
}

// apply writes sections to every member at once. Each member gets its own copy and
// script sections beyond the new structure are dropped.
func (s *StructureCoordinator) apply(match func(domain.Project) bool, sections []domain.StructureSection) {
	now := time.Now()
	s.store.ReplaceAll(match, func(p *domain.Project) {
		p.Structure = append([]domain.StructureSection(nil), sections...)
		if len(p.ScriptParts) > len(sections) {
			p.ScriptParts = p.ScriptParts[:len(sections)]
		}
		p.StructureGenerating = false
		p.UpdatedAt = now
	})
}

func memberSet(ids []int64) func(domain.Project) bool {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return func(p domain.Project) bool {
		_, ok := set[p.ID]
		return ok
	}
}
