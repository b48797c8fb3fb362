package generation

import (
	"context"
	"time"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/logger"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/prompts"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/provider"
)

// RegenerationTargeter rewrites existing script sections of a single project.
type RegenerationTargeter struct {
	*core
}

// RegenerateSection rewrites the section at index with new instructions. Only that
// section is flagged while the call runs, and the flag is cleared on every path.
func (r *RegenerationTargeter) RegenerateSection(ctx context.Context, projectID int64, index int, instructions string) (domain.ScriptSection, error) {
	ctx = logger.SetProjectID(ctx, projectID)
	project, err := r.store.Get(projectID)
	if err != nil {
		return domain.ScriptSection{}, err
	}
	if index < 0 || index >= len(project.ScriptParts) {
		return domain.ScriptSection{}, &domain.ValidationError{Field: "index", Reason: "is outside the script"}
	}

	if _, err := r.store.Replace(projectID, func(p *domain.Project) {
		if index < len(p.ScriptParts) {
			p.ScriptParts[index].IsGenerating = true
		}
	}); err != nil {
		return domain.ScriptSection{}, err
	}

	content, genErr := r.rewrite(ctx, project, index, instructions)

	updated, err := r.store.Replace(projectID, func(p *domain.Project) {
		if index >= len(p.ScriptParts) {
			return
		}
		p.ScriptParts[index].IsGenerating = false
		if genErr == nil {
			p.ScriptParts[index].ContentEn = content.English
			p.ScriptParts[index].ContentUa = content.Ukrainian
			p.UpdatedAt = time.Now()
		}
	})
	if genErr != nil {
		return domain.ScriptSection{}, genErr
	}
	if err != nil {
		return domain.ScriptSection{}, err
	}
	return updated.ScriptParts[index], nil
}

// RegenerateAll rewrites every section in order. Failures are isolated: a failed
// section keeps its previous content and the run continues.
func (r *RegenerationTargeter) RegenerateAll(ctx context.Context, projectID int64, instructions string) (*ScriptResult, error) {
	ctx = logger.SetProjectID(ctx, projectID)
	project, err := r.store.Get(projectID)
	if err != nil {
		return nil, err
	}
	if len(project.ScriptParts) == 0 {
		return nil, &domain.ValidationError{Field: "script", Reason: "is empty, generate the script first"}
	}

	project, err = r.store.Replace(projectID, func(p *domain.Project) {
		p.ScriptGenerating = true
		p.ScriptInstructions = instructions
		for i := range p.ScriptParts {
			p.ScriptParts[i].IsGenerating = true
		}
	})
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result := &ScriptResult{ProjectID: projectID, Sections: len(project.ScriptParts)}
	for i := range project.ScriptParts {
		content, genErr := r.rewrite(ctx, project, i, instructions)
		if genErr != nil {
			result.Failed = append(result.Failed, i)
			r.notify(ctx, domain.NoticeError, projectID, "Rewrite of section %d of %q failed, previous text kept: %v", i+1, project.Title, genErr)
		}
		if _, err := r.store.Replace(projectID, func(p *domain.Project) {
			if i >= len(p.ScriptParts) {
				return
			}
			p.ScriptParts[i].IsGenerating = false
			if genErr == nil {
				p.ScriptParts[i].ContentEn = content.English
				p.ScriptParts[i].ContentUa = content.Ukrainian
				p.UpdatedAt = time.Now()
			}
		}); err != nil {
			return result, err
		}
	}

	_, err = r.store.Replace(projectID, func(p *domain.Project) {
		p.ScriptGenerating = false
		for i := range p.ScriptParts {
			p.ScriptParts[i].IsGenerating = false
		}
	})

	logger.With(logger.Fields{
		logger.FieldCount: result.Sections,
		"failed":          len(result.Failed),
	}).Since(start).Info(ctx, "Script rewritten")
	return result, err
}

func (r *RegenerationTargeter) rewrite(ctx context.Context, project domain.Project, index int, instructions string) (provider.ScriptContent, error) {
	ctx = logger.WithField(ctx, logger.FieldSectionIndex, index)
	r.cost.Charge(ctx, CostSectionRewrite, 1)

	prompt := prompts.RewritePrompt(project.Title, index, project.ScriptParts[index].ContentEn, instructions)
	raw, err := r.generate(ctx, prompts.RewriteSystemPrompt, prompt, project.Model, provider.ScriptSchema)
	if err == nil {
		var content provider.ScriptContent
		if content, err = provider.DecodeScript(raw); err == nil {
			return content, nil
		}
	}
	return provider.ScriptContent{}, &domain.GenerationError{Op: "rewrite", ProjectID: project.ID, Section: index, Chunk: -1, Err: err}
}
