package generation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/logger"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/prompts"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/provider"
)

// Image prompt sources.
const (
	SourceStructure = "structure"
	SourceScript    = "script"
)

// SceneRequest tunes how a script section is split into illustrated scenes.
type SceneRequest struct {
	MinChars     int    `json:"minChars"`
	MaxChars     int    `json:"maxChars"`
	Instructions string `json:"instructions"`
}

func (r *SceneRequest) normalize() error {
	if r.MinChars == 0 {
		r.MinChars = prompts.DefaultSceneMinChars
	}
	if r.MaxChars == 0 {
		r.MaxChars = prompts.DefaultSceneMaxChars
	}
	if r.MinChars < 1 || r.MaxChars < r.MinChars {
		return &domain.ValidationError{Field: "minChars", Reason: fmt.Sprintf("need 1 <= minChars <= maxChars, got %d-%d", r.MinChars, r.MaxChars)}
	}
	return nil
}

// VisualPlanner turns written script into image prompts: per-section scene
// breakdowns and single refined prompts for a whole project.
type VisualPlanner struct {
	*core
}

// Scenes splits the English text of the section at index into scenes and stores them
// on the section. The section is flagged while the call runs and the flag is cleared
// on every path.
func (v *VisualPlanner) Scenes(ctx context.Context, projectID int64, index int, req SceneRequest) ([]domain.Scene, error) {
	ctx = logger.WithField(logger.SetProjectID(ctx, projectID), logger.FieldSectionIndex, index)
	if err := req.normalize(); err != nil {
		return nil, err
	}
	project, err := v.store.Get(projectID)
	if err != nil {
		return nil, err
	}
	if index < 0 || index >= len(project.ScriptParts) {
		return nil, &domain.ValidationError{Field: "index", Reason: "is outside the script"}
	}
	text := project.ScriptParts[index].ContentEn
	if strings.TrimSpace(text) == "" {
		return nil, &domain.ValidationError{Field: "index", Reason: fmt.Sprintf("section %d has no text yet", index+1)}
	}

	if _, err := v.store.Replace(projectID, func(p *domain.Project) {
		if index < len(p.ScriptParts) {
			p.ScriptParts[index].IsGenerating = true
		}
	}); err != nil {
		return nil, err
	}

	start := time.Now()
	v.cost.Charge(ctx, CostScenes, 1)
	var scenes []domain.Scene
	raw, genErr := v.generate(ctx, prompts.VisualDirectorSystemPrompt,
		prompts.ScenesPrompt(text, req.MinChars, req.MaxChars, req.Instructions), project.Model, provider.ScenesSchema)
	if genErr == nil {
		scenes, genErr = provider.DecodeScenes(raw)
	}
	if genErr != nil {
		genErr = &domain.GenerationError{Op: "scenes", ProjectID: projectID, Section: index, Chunk: -1, Err: genErr}
	}

	_, err = v.store.Replace(projectID, func(p *domain.Project) {
		if index >= len(p.ScriptParts) {
			return
		}
		p.ScriptParts[index].IsGenerating = false
		if genErr == nil {
			p.ScriptParts[index].Scenes = scenes
			p.UpdatedAt = time.Now()
		}
	})
	if genErr != nil {
		v.notify(ctx, domain.NoticeError, projectID, "Scene breakdown of section %d of %q failed: %v", index+1, project.Title, genErr)
		return nil, genErr
	}
	if err != nil {
		return nil, err
	}

	logger.With(logger.Fields{logger.FieldCount: len(scenes)}).Since(start).Info(ctx, "Scenes generated")
	return scenes, nil
}

// RefineImagePrompt writes one image prompt for the project from its structure or
// its script. An empty source prefers the script and falls back to the structure.
func (v *VisualPlanner) RefineImagePrompt(ctx context.Context, projectID int64, source, instructions string) (string, error) {
	ctx = logger.SetProjectID(ctx, projectID)
	project, err := v.store.Get(projectID)
	if err != nil {
		return "", err
	}

	var text string
	switch source {
	case SourceStructure:
		text = structureText(project)
	case SourceScript:
		text = joinedScript(project)
	case "":
		text = scriptText(project)
	default:
		return "", &domain.ValidationError{Field: "source", Reason: fmt.Sprintf("must be %q or %q", SourceStructure, SourceScript)}
	}
	if strings.TrimSpace(text) == "" {
		return "", &domain.ValidationError{Field: "source", Reason: "project has no text to illustrate yet"}
	}

	v.cost.Charge(ctx, CostImagePrompt, 1)
	raw, err := v.generate(ctx, prompts.VisualDirectorSystemPrompt,
		prompts.RefinedImagePromptPrompt(baseTitle(project), v.nicheName(project.NicheID), text, instructions),
		project.Model, provider.ImagePromptSchema)
	if err == nil {
		var prompt string
		if prompt, err = provider.DecodeImagePrompt(raw); err == nil {
			return prompts.Sanitize(prompt), nil
		}
	}
	return "", &domain.GenerationError{Op: "image prompt", ProjectID: projectID, Section: -1, Chunk: -1, Err: err}
}

func (v *VisualPlanner) nicheName(id string) string {
	if v.niches != nil && id != "" {
		if n, err := v.niches.Get(id); err == nil && n.Name != "" {
			return n.Name
		}
	}
	return id
}

func structureText(p domain.Project) string {
	lines := make([]string, len(p.Structure))
	for i, s := range p.Structure {
		lines[i] = s.Title + ": " + s.Description
	}
	return strings.Join(lines, "\n")
}

func joinedScript(p domain.Project) string {
	texts := make([]string, len(p.ScriptParts))
	for i, part := range p.ScriptParts {
		texts[i] = part.ContentEn
	}
	return strings.Join(texts, "\n")
}
