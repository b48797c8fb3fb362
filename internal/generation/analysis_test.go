package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/prompts"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/provider"
)

func TestAnalysis_Titles(t *testing.T) {
	env := newTestEnv(t, func(_ int, req provider.Request) (json.RawMessage, error) {
		assert.Contains(t, req.Prompt, "Tank battles of 1943\nThe last convoy")
		assert.Same(t, provider.KeywordsSchema, req.Schema)
		return json.RawMessage(`{"items":["tanks","convoy","WWII"]}`), nil
	})

	words, err := env.engine.Analysis.AnalyzeTitles(context.Background(), []string{" Tank battles of 1943", "", "The last convoy"}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"tanks", "convoy", "WWII"}, words)
	assert.InDelta(t, 0.001, env.engine.Cost.Total(), 1e-9)

	_, err = env.engine.Analysis.AnalyzeTitles(context.Background(), []string{" "}, "")
	assert.ErrorIs(t, err, domain.ErrValidationFailed)
	assert.Len(t, env.provider.calls(), 1)
}

func TestAnalysis_ContentSingleCall(t *testing.T) {
	long := make([]rune, prompts.MaxTranscriptRunes+100)
	for i := range long {
		long[i] = 'x'
	}
	env := newTestEnv(t, func(_ int, req provider.Request) (json.RawMessage, error) {
		assert.Contains(t, req.Prompt, `niche "Cold War Stories"`)
		assert.Contains(t, req.Prompt, "first transcript\n---\n")
		assert.NotContains(t, req.Prompt, string(long))
		assert.Same(t, provider.NicheAnalysisSchema, req.Schema)
		return json.RawMessage(`{"structurePrompt":"Plan {{TITLE}} in {{TOTAL_PARTS}} parts","scriptPrompt":"Write part {{CURRENT_PART_NUM}}"}`), nil
	})

	out, err := env.engine.Analysis.AnalyzeContent(context.Background(), "Cold War Stories", []string{"first transcript", string(long)}, "")
	require.NoError(t, err)
	assert.Equal(t, "Plan {{TITLE}} in {{TOTAL_PARTS}} parts", out.StructurePrompt)
	assert.Equal(t, "Write part {{CURRENT_PART_NUM}}", out.ScriptPrompt)
	assert.Len(t, env.provider.calls(), 1)
	assert.InDelta(t, 0.002, env.engine.Cost.Total(), 1e-9)
}

func TestAnalysis_ContentErrors(t *testing.T) {
	attempts := 0
	env := newTestEnv(t, func(int, provider.Request) (json.RawMessage, error) {
		attempts++
		if attempts == 1 {
			return nil, fmt.Errorf("call: %w", domain.ErrRateLimited)
		}
		return json.RawMessage(`{"structurePrompt":"only one"}`), nil
	})

	_, err := env.engine.Analysis.AnalyzeContent(context.Background(), "", []string{"t"}, "")
	assert.ErrorIs(t, err, domain.ErrValidationFailed)
	_, err = env.engine.Analysis.AnalyzeContent(context.Background(), "War", nil, "")
	assert.ErrorIs(t, err, domain.ErrValidationFailed)

	_, err = env.engine.Analysis.AnalyzeContent(context.Background(), "War", []string{"t"}, "")
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)
	// the rate limited attempt was retried
	assert.Equal(t, 2, attempts)
}
