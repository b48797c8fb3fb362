package generation

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/logger"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/prompts"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/provider"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/storage"
)

// ArtifactStore keeps generated files and serves their URLs.
type ArtifactStore interface {
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error
	GetURL(key string) string
}

// ImageRequest describes one image batch for a project.
type ImageRequest struct {
	SourceText   string `json:"sourceText"`
	Instructions string `json:"instructions"`
	Quantity     int    `json:"quantity"`
	AspectRatio  string `json:"aspectRatio"`
}

// ImageRunner generates illustration prompts for a project and renders them one at a
// time through the shared throttler.
type ImageRunner struct {
	*core
	images    provider.ImageGenerator
	throttler *ImageThrottler
	artifacts ArtifactStore
}

// Run generates req.Quantity images. Images that fail are skipped with a notice; the
// returned assets are the ones that were produced and stored.
func (r *ImageRunner) Run(ctx context.Context, projectID int64, req ImageRequest) ([]domain.ImageAsset, error) {
	ctx = logger.SetProjectID(ctx, projectID)
	if req.Quantity < 1 {
		return nil, &domain.ValidationError{Field: "quantity", Reason: "must be at least 1"}
	}
	if req.AspectRatio == "" {
		req.AspectRatio = "16:9"
	}
	project, err := r.store.Get(projectID)
	if err != nil {
		return nil, err
	}
	source := req.SourceText
	if source == "" {
		source = scriptText(project)
	}

	r.cost.Charge(ctx, CostImagePrompts, 1)
	raw, err := r.generate(ctx, prompts.VisualDirectorSystemPrompt,
		prompts.ImagePromptsPrompt(baseTitle(project), source, req.Instructions, req.Quantity), project.Model, provider.ImagePromptsSchema)
	if err != nil {
		return nil, &domain.GenerationError{Op: "image prompts", ProjectID: projectID, Section: -1, Chunk: -1, Err: err}
	}
	pairs, err := provider.DecodeImagePrompts(raw)
	if err != nil {
		return nil, &domain.GenerationError{Op: "image prompts", ProjectID: projectID, Section: -1, Chunk: -1, Err: err}
	}
	if len(pairs) > req.Quantity {
		pairs = pairs[:req.Quantity]
	}

	r.cost.Charge(ctx, CostImageBatch, 1)
	r.cost.Charge(ctx, CostImage, len(pairs))

	start := time.Now()
	assets := make([]domain.ImageAsset, 0, len(pairs))
	for i, pair := range pairs {
		if err := r.throttler.Wait(ctx); err != nil {
			return assets, err
		}
		asset, err := r.render(ctx, projectID, pair, req.AspectRatio)
		if err != nil {
			r.notify(ctx, domain.NoticeWarning, projectID, "Image %d of %d failed: %v", i+1, len(pairs), err)
			continue
		}
		assets = append(assets, asset)
		if _, err := r.store.Replace(projectID, func(p *domain.Project) {
			p.Images = append(p.Images, asset)
			p.UpdatedAt = time.Now()
		}); err != nil {
			return assets, err
		}
	}

	logger.With(logger.Fields{
		logger.FieldCount: len(assets),
		"requested":       req.Quantity,
	}).Since(start).Info(ctx, "Image batch finished")
	return assets, nil
}

func (r *ImageRunner) render(ctx context.Context, projectID int64, pair provider.ImagePromptPair, aspect string) (domain.ImageAsset, error) {
	var img *provider.Image
	err := r.retry.Do(ctx, func(ctx context.Context) error {
		out, err := r.images.GenerateImage(ctx, prompts.ImagePrompt(pair.En), aspect)
		if err != nil {
			return err
		}
		img = out
		return nil
	})
	if err != nil {
		return domain.ImageAsset{}, err
	}

	asset := domain.ImageAsset{PromptEn: pair.En, PromptUa: pair.Ua}
	if r.artifacts == nil {
		return asset, nil
	}
	key := storage.ImageKey(projectID, uuid.New().String()+extensionFor(img.MIMEType))
	if err := r.artifacts.Upload(ctx, key, bytes.NewReader(img.Data), int64(len(img.Data)), img.MIMEType); err != nil {
		return domain.ImageAsset{}, fmt.Errorf("upload image: %w", err)
	}
	asset.Key = key
	asset.URL = r.artifacts.GetURL(key)
	return asset, nil
}

func scriptText(p domain.Project) string {
	var b bytes.Buffer
	for _, part := range p.ScriptParts {
		if part.ContentEn == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(part.ContentEn)
	}
	if b.Len() == 0 {
		for _, s := range p.Structure {
			b.WriteString(s.Title + ": " + s.Description + "\n")
		}
	}
	return b.String()
}

func extensionFor(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}
