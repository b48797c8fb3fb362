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

// RefinementApplier replaces a structure with the provider's rewritten version.
type RefinementApplier struct {
	*core
}

// Refine sends the current structure with a change request and replaces the
// structure wholesale with the answer. The whole structure group of the project is
// flagged while the call runs and receives the new structure in one step. On
// failure every structure is left unchanged. The loading flag is cleared either way.
func (a *RefinementApplier) Refine(ctx context.Context, projectID int64, instructions string) ([]domain.StructureSection, error) {
	ctx = logger.SetProjectID(ctx, projectID)
	project, err := a.store.Get(projectID)
	if err != nil {
		return nil, err
	}
	if len(project.Structure) == 0 {
		return nil, &domain.ValidationError{Field: "structure", Reason: "is empty, nothing to refine"}
	}

	ids := GroupMembers(a.store.ListBatch(project.BatchID), project)
	inGroup := memberSet(ids)
	ctx = logger.WithField(ctx, logger.FieldStructureGroup, project.GroupKey())
	a.store.ReplaceAll(inGroup, func(p *domain.Project) {
		p.StructureGenerating = true
	})

	sections, genErr := a.refine(ctx, project, instructions)
	if genErr != nil {
		a.store.ReplaceAll(inGroup, func(p *domain.Project) {
			p.StructureGenerating = false
		})
		a.notify(ctx, domain.NoticeError, projectID, "Structure refinement of %q failed, structure unchanged: %v", project.Title, genErr)
		return nil, genErr
	}

	n := a.ApplyStructure(ids, sections)
	if n == 0 {
		return nil, fmt.Errorf("project %d: %w", projectID, domain.ErrNotFound)
	}
	logger.With(logger.Fields{
		logger.FieldCount: len(sections),
		"members":         n,
	}).Info(ctx, "Refined structure applied to group")
	return sections, nil
}

// ApplyStructure copies structure onto every project in ids in one step and clears
// their structure flag.
func (a *RefinementApplier) ApplyStructure(ids []int64, structure []domain.StructureSection) int {
	now := time.Now()
	return a.store.ReplaceAll(memberSet(ids), func(p *domain.Project) {
		p.Structure = append([]domain.StructureSection(nil), structure...)
		if len(p.ScriptParts) > len(structure) {
			p.ScriptParts = p.ScriptParts[:len(structure)]
		}
		p.StructureGenerating = false
		p.UpdatedAt = now
	})
}

// GroupMembers returns the ids of the projects in batch sharing the structure group
// of p, p included.
func GroupMembers(batch []domain.Project, p domain.Project) []int64 {
	key := p.GroupKey()
	ids := []int64{p.ID}
	for _, other := range batch {
		if other.ID != p.ID && other.GroupKey() == key {
			ids = append(ids, other.ID)
		}
	}
	return ids
}

func (a *RefinementApplier) refine(ctx context.Context, project domain.Project, instructions string) ([]domain.StructureSection, error) {
	current, err := json.Marshal(project.Structure)
	if err != nil {
		return nil, fmt.Errorf("marshal structure: %w", err)
	}

	a.cost.Charge(ctx, CostRefinement, 1)
	raw, err := a.generate(ctx, prompts.RefineSystemPrompt, prompts.RefinePrompt(string(current), instructions), project.Model, provider.StructureSchema)
	if err == nil {
		var sections []domain.StructureSection
		if sections, err = provider.DecodeStructure(raw); err == nil {
			if len(sections) == 0 {
				err = fmt.Errorf("%w: refined structure is empty", domain.ErrMalformedResponse)
			} else {
				return sections, nil
			}
		}
	}
	return nil, &domain.GenerationError{Op: "refine", ProjectID: project.ID, Section: -1, Chunk: -1, Err: err}
}

// RefinePrompt rewrites a niche prompt template according to request. On failure it
// returns current together with the error.
func (a *RefinementApplier) RefinePrompt(ctx context.Context, current, request, model string) (string, error) {
	a.cost.Charge(ctx, CostPromptRefine, 1)
	raw, err := a.generate(ctx, prompts.PromptEngineerSystemPrompt, prompts.PromptRefinementPrompt(current, request), model, provider.RefinedPromptSchema)
	if err != nil {
		return current, err
	}
	refined, err := provider.DecodeRefinedPrompt(raw)
	if err != nil {
		return current, err
	}
	return refined, nil
}
