package provider

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
)

// Router dispatches each request to the adapter that serves its model id.
type Router struct {
	openai       Provider
	gemini       Provider
	defaultModel string
}

// NewRouter creates a router; either adapter may be nil.
func NewRouter(openai, gemini Provider, defaultModel string) *Router {
	return &Router{openai: openai, gemini: gemini, defaultModel: defaultModel}
}

// Generate implements Provider.
func (r *Router) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	if req.Model == "" {
		req.Model = r.defaultModel
	}
	p := r.pick(req.Model)
	if p == nil {
		return nil, fmt.Errorf("%w: no provider configured for model %q", domain.ErrGenerationFailed, req.Model)
	}
	return p.Generate(ctx, req)
}

func (r *Router) pick(model string) Provider {
	switch {
	case isGeminiModel(model) && r.gemini != nil:
		return r.gemini
	case isOpenAIModel(model) && r.openai != nil:
		return r.openai
	case r.openai != nil:
		return r.openai
	default:
		return r.gemini
	}
}
