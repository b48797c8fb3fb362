package generation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/logger"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/prompts"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/provider"
)

// ScriptSequencer writes script sections one at a time, in structure order.
type ScriptSequencer struct {
	*core
}

// ScriptResult summarizes one sequencer run.
type ScriptResult struct {
	ProjectID int64 `json:"projectId"`
	Sections  int   `json:"sections"`
	Failed    []int `json:"failed"`
}

// Generate produces every script section of the project. Placeholders for all
// sections are written first; each section is then generated and stored before the
// next call is issued. A failed section keeps empty content and does not stop the run.
func (q *ScriptSequencer) Generate(ctx context.Context, projectID int64, instructions string) (*ScriptResult, error) {
	ctx = logger.SetProjectID(ctx, projectID)
	project, err := q.store.Get(projectID)
	if err != nil {
		return nil, err
	}
	if len(project.Structure) == 0 {
		return nil, &domain.ValidationError{Field: "structure", Reason: "is empty, generate the structure first"}
	}
	if project.StructureGenerating {
		return nil, &domain.ValidationError{Field: "structure", Reason: "is still being generated"}
	}
	if instructions == "" {
		instructions = project.ScriptInstructions
	}

	project, err = q.store.Replace(projectID, func(p *domain.Project) {
		p.ScriptGenerating = true
		p.ScriptInstructions = instructions
		p.ScriptParts = placeholders(p)
	})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	tpl := q.templates(project.NicheID)
	result := &ScriptResult{ProjectID: projectID, Sections: len(project.Structure)}

	for i := range project.Structure {
		content, err := q.generateSection(ctx, project, tpl.script, instructions, i)
		if err != nil {
			result.Failed = append(result.Failed, i)
			q.notify(ctx, domain.NoticeError, projectID, "Script section %d of %q failed: %v", i+1, project.Title, err)
		}
		if _, rerr := q.store.Replace(projectID, func(p *domain.Project) {
			if i >= len(p.ScriptParts) {
				return
			}
			p.ScriptParts[i].ContentEn = content.English
			p.ScriptParts[i].ContentUa = content.Ukrainian
			p.ScriptParts[i].IsGenerating = false
			p.UpdatedAt = time.Now()
		}); rerr != nil {
			// Deleted mid-run.
			return result, rerr
		}
	}

	_, err = q.store.Replace(projectID, func(p *domain.Project) {
		p.ScriptGenerating = false
		for i := range p.ScriptParts {
			p.ScriptParts[i].IsGenerating = false
		}
	})

	logger.With(logger.Fields{
		logger.FieldCount: result.Sections,
		"failed":          len(result.Failed),
	}).Since(start).Info(ctx, "Script generated")
	return result, err
}

// GenerateMany runs Generate for several projects concurrently. Sections within each
// project stay sequential.
func (q *ScriptSequencer) GenerateMany(ctx context.Context, projectIDs []int64, instructions string) ([]*ScriptResult, error) {
	results := make([]*ScriptResult, len(projectIDs))
	errs := make([]error, len(projectIDs))
	var wg sync.WaitGroup
	for i, id := range projectIDs {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			results[i], errs[i] = q.Generate(ctx, id, instructions)
		}(i, id)
	}
	wg.Wait()
	return results, errors.Join(errs...)
}

func (q *ScriptSequencer) generateSection(ctx context.Context, project domain.Project, template, instructions string, index int) (provider.ScriptContent, error) {
	sctx := logger.WithField(ctx, logger.FieldSectionIndex, index)
	q.cost.Charge(sctx, CostScriptSection, 1)

	vars := prompts.ScriptVars(baseTitle(project), project.Structure, index, q.cfg.Bounds)
	prompt := prompts.ScriptPrompt(prompts.Render(template, vars), instructions, index)

	raw, err := q.generate(sctx, prompts.ScriptSystemPrompt, prompt, project.Model, provider.ScriptSchema)
	if err != nil {
		return provider.ScriptContent{}, &domain.GenerationError{Op: "script", ProjectID: project.ID, Section: index, Chunk: -1, Err: err}
	}
	content, err := provider.DecodeScript(raw)
	if err != nil {
		return provider.ScriptContent{}, &domain.GenerationError{Op: "script", ProjectID: project.ID, Section: index, Chunk: -1, Err: err}
	}
	return content, nil
}

// placeholders returns one generating section per structure section.
func placeholders(p *domain.Project) []domain.ScriptSection {
	parts := make([]domain.ScriptSection, len(p.Structure))
	for i, s := range p.Structure {
		parts[i] = domain.ScriptSection{
			ID:           domain.SectionID(p.ID, i),
			SectionTitle: s.Title,
			IsGenerating: true,
		}
	}
	return parts
}
