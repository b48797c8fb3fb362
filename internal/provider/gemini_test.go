package provider

import (
	"context"
	"errors"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
)

func TestClassifyGeminiError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"googleapi 429", &googleapi.Error{Code: 429, Message: "quota"}, domain.ErrRateLimited},
		{"googleapi 500", &googleapi.Error{Code: 500, Message: "internal"}, domain.ErrGenerationFailed},
		{"grpc resource exhausted", errors.New("rpc error: code = ResourceExhausted desc = RESOURCE_EXHAUSTED"), domain.ErrRateLimited},
		{"grpc deadline", errors.New("rpc error: DEADLINE_EXCEEDED"), domain.ErrTimeout},
		{"context deadline", context.DeadlineExceeded, domain.ErrTimeout},
		{"other", errors.New("connection reset"), domain.ErrGenerationFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, classifyGeminiError("gemini generate", tc.err), tc.want)
		})
	}
}

func TestFirstText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"a":`), genai.Text(`1}`)}},
		}},
	}
	text, err := firstText(resp)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, text)

	_, err = firstText(&genai.GenerateContentResponse{})
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
}

func TestNewGeminiProvider_RequiresKey(t *testing.T) {
	_, err := NewGeminiProvider(context.Background(), &GeminiConfig{})
	assert.Error(t, err)
}
