package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/logger"
)

// GeminiProvider generates JSON text and images with the Gemini API.
type GeminiProvider struct {
	client      *genai.Client
	textModel   string
	imageModel  string
	temperature float32
	timeout     time.Duration
}

// GeminiConfig holds configuration for the Gemini provider.
type GeminiConfig struct {
	APIKey      string
	TextModel   string
	ImageModel  string
	Temperature float32
	Timeout     time.Duration
}

// NewGeminiProvider connects a Gemini client.
func NewGeminiProvider(ctx context.Context, cfg *GeminiConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(cfg.APIKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	p := &GeminiProvider{
		client:      client,
		textModel:   cfg.TextModel,
		imageModel:  cfg.ImageModel,
		temperature: cfg.Temperature,
		timeout:     cfg.Timeout,
	}
	if p.textModel == "" {
		p.textModel = "gemini-2.5-flash"
	}
	if p.imageModel == "" {
		p.imageModel = "gemini-2.5-flash-image"
	}
	if p.temperature == 0 {
		p.temperature = 0.7
	}
	if p.timeout <= 0 {
		p.timeout = 60 * time.Second
	}
	return p, nil
}

// Close releases the underlying client.
func (p *GeminiProvider) Close() error {
	return p.client.Close()
}

// Generate runs one JSON-mode generation.
func (p *GeminiProvider) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	modelName := req.Model
	if !isGeminiModel(modelName) {
		modelName = p.textModel
	}

	model := p.client.GenerativeModel(modelName)
	model.ResponseMIMEType = "application/json"
	model.ResponseSchema = toGenaiSchema(req.Schema)
	model.SetTemperature(p.temperature)
	if req.System != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(req.System)}}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	start := time.Now()
	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return nil, classifyGeminiError("gemini generate", err)
	}

	text, err := firstText(resp)
	if err != nil {
		return nil, err
	}

	logger.With(logger.Fields{
		logger.FieldModel:      modelName,
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
		logger.FieldSize:       len(text),
	}).Debug(ctx, "Gemini completion received")

	return ExtractJSON(text)
}

// GenerateImage asks the image model for one picture and returns its inline data.
func (p *GeminiProvider) GenerateImage(ctx context.Context, prompt, aspectRatio string) (*Image, error) {
	model := p.client.GenerativeModel(p.imageModel)

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	text := prompt
	if aspectRatio != "" {
		text = fmt.Sprintf("%s Aspect ratio: %s.", prompt, aspectRatio)
	}

	resp, err := model.GenerateContent(ctx, genai.Text(text))
	if err != nil {
		return nil, classifyGeminiError("gemini image", err)
	}

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if blob, ok := part.(genai.Blob); ok && len(blob.Data) > 0 {
				mime := blob.MIMEType
				if mime == "" {
					mime = "image/png"
				}
				return &Image{Data: blob.Data, MIMEType: mime}, nil
			}
		}
	}
	return nil, fmt.Errorf("gemini image: %w: no inline image data", domain.ErrMalformedResponse)
}

func firstText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("gemini generate: %w: no candidates", domain.ErrMalformedResponse)
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	if b.Len() == 0 {
		return "", fmt.Errorf("gemini generate: %w: no text parts", domain.ErrMalformedResponse)
	}
	return b.String(), nil
}

func classifyGeminiError(op string, err error) error {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return classifyStatus(op, gerr.Code, gerr.Message)
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "RESOURCE_EXHAUSTED") || strings.Contains(msg, "429"):
		return fmt.Errorf("%s: %w: %s", op, domain.ErrRateLimited, msg)
	case strings.Contains(msg, "DEADLINE_EXCEEDED"):
		return fmt.Errorf("%s: %w: %s", op, domain.ErrTimeout, msg)
	}
	return classifyTransportError(op, err)
}
