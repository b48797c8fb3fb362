package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/logger"
)

// OpenAIProvider calls an OpenAI-compatible chat completions endpoint in JSON mode.
type OpenAIProvider struct {
	client       *resty.Client
	endpoint     string
	defaultModel string
	temperature  float32
}

// OpenAIConfig holds configuration for the OpenAI provider.
type OpenAIConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Temperature  float32
	Timeout      time.Duration
}

// NewOpenAIProvider creates a new OpenAI-compatible provider.
func NewOpenAIProvider(cfg *OpenAIConfig) *OpenAIProvider {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	client := resty.New()
	client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	client.SetHeader("Content-Type", "application/json")
	client.SetTimeout(timeout)

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}

	model := cfg.DefaultModel
	if model == "" {
		model = "gpt-4o"
	}

	return &OpenAIProvider{
		client:       client,
		endpoint:     baseURL + "/chat/completions",
		defaultModel: model,
		temperature:  cfg.Temperature,
	}
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
	Temperature    float32        `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Generate sends one chat completion and returns the extracted JSON document.
func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (json.RawMessage, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	body := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.Prompt},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
		Temperature:    p.temperature,
	}

	start := time.Now()
	var resp chatResponse
	httpResp, err := p.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&resp).
		SetError(&resp).
		Post(p.endpoint)
	if err != nil {
		return nil, classifyTransportError("openai chat completion", err)
	}

	if httpResp.StatusCode() < 200 || httpResp.StatusCode() >= 300 {
		msg := ""
		if resp.Error != nil {
			msg = resp.Error.Message
		}
		return nil, classifyStatus("openai chat completion", httpResp.StatusCode(), msg)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return nil, fmt.Errorf("openai chat completion: %w: empty choices", domain.ErrMalformedResponse)
	}

	logger.With(logger.Fields{
		logger.FieldModel:      model,
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
		logger.FieldSize:       len(resp.Choices[0].Message.Content),
	}).Debug(ctx, "OpenAI completion received")

	return ExtractJSON(resp.Choices[0].Message.Content)
}
