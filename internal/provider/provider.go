// Package provider adapts external text and image generation services to the
// structured-output contract used by the generation core.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
)

// Request is one structured-output generation call. Schema is optional.
type Request struct {
	System string
	Prompt string
	Model  string
	Schema *Schema
}

// Provider turns a prompt into a parsed JSON document.
type Provider interface {
	Generate(ctx context.Context, req Request) (json.RawMessage, error)
}

// Image is a generated image as returned by the model.
type Image struct {
	Data     []byte
	MIMEType string
}

// ImageGenerator produces one image per call.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, prompt, aspectRatio string) (*Image, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, req Request) (json.RawMessage, error)

// Generate calls f.
func (f ProviderFunc) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	return f(ctx, req)
}

// classifyTransportError maps client-side failures onto the error taxonomy.
func classifyTransportError(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrTimeout, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return fmt.Errorf("%s: %w: %v", op, domain.ErrTimeout, err)
	}
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %v", op, domain.ErrGenerationFailed, err)
}

// classifyStatus maps an HTTP status code onto the error taxonomy.
func classifyStatus(op string, status int, message string) error {
	if message == "" {
		message = fmt.Sprintf("status %d", status)
	}
	switch {
	case status == 429:
		return fmt.Errorf("%s: %w: %s", op, domain.ErrRateLimited, message)
	case status == 408 || status == 504:
		return fmt.Errorf("%s: %w: %s", op, domain.ErrTimeout, message)
	default:
		return fmt.Errorf("%s: %w: %s", op, domain.ErrGenerationFailed, message)
	}
}

// isOpenAIModel reports whether model is served by the OpenAI-compatible adapter.
func isOpenAIModel(model string) bool {
	m := strings.ToLower(model)
	return strings.HasPrefix(m, "gpt-") || strings.HasPrefix(m, "o1") || strings.HasPrefix(m, "o3") ||
		strings.HasPrefix(m, "o4") || strings.HasPrefix(m, "chatgpt")
}

// isGeminiModel reports whether model is served by the Gemini adapter.
func isGeminiModel(model string) bool {
	return strings.HasPrefix(strings.ToLower(model), "gemini")
}
