package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/prompts"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/provider"
)

func TestRefinePromptKeepsHistory(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	res, err := env.nicheSvc.RefinePrompt(ctx, "war", PromptScript, "more tension", "")
	require.NoError(t, err)
	require.True(t, res.Refined)
	assert.Equal(t, "Sharper prompt", res.Niche.CustomScriptPrompt)
	require.Len(t, res.Niche.PromptHistory, 1)
	assert.Equal(t, PromptScript, res.Niche.PromptHistory[0].Kind)
	assert.Equal(t, prompts.Builtin("war").Script, res.Niche.PromptHistory[0].Prompt)

	stored, err := env.nicheSvc.Get("war")
	require.NoError(t, err)
	assert.Equal(t, "Sharper prompt", CurrentPrompt(stored, PromptScript))
	assert.Equal(t, prompts.Builtin("war").Structure, CurrentPrompt(stored, PromptStructure))
}

func TestRefinePromptFailureKeepsCurrent(t *testing.T) {
	env := newServiceEnv(t)
	env.provider.fail = func(provider.Request) error {
		return fmt.Errorf("%w: quota", domain.ErrRateLimited)
	}

	res, err := env.nicheSvc.RefinePrompt(context.Background(), "caprio", PromptStructure, "shorter", "")
	require.NoError(t, err)
	assert.False(t, res.Refined)
	assert.Equal(t, "GenerationFailed", res.Error)
	assert.Empty(t, res.Niche.CustomStructurePrompt)
	assert.Empty(t, res.Niche.PromptHistory)
}

func TestRefinePromptRejectsInput(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()

	_, err := env.nicheSvc.RefinePrompt(ctx, "caprio", "thumbnail", "x", "")
	assert.ErrorIs(t, err, domain.ErrValidationFailed)
	_, err = env.nicheSvc.RefinePrompt(ctx, "cooking", PromptScript, "x", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNicheCRUD(t *testing.T) {
	env := newServiceEnv(t)

	n, err := env.nicheSvc.Put(domain.Niche{ID: "mystery", Name: "Mystery", DefaultDuration: 12, DefaultStructureVariants: 2, DefaultScriptVariants: 1})
	require.NoError(t, err)
	assert.Equal(t, "Mystery", n.Name)
	assert.Len(t, env.nicheSvc.List(), 4)

	_, err = env.nicheSvc.Put(domain.Niche{ID: "bad", Name: "Bad", DefaultDuration: 5, DefaultStructureVariants: 0.5, DefaultScriptVariants: 1})
	assert.ErrorIs(t, err, domain.ErrValidationFailed)

	require.NoError(t, env.nicheSvc.Delete("mystery"))
	assert.ErrorIs(t, env.nicheSvc.Delete("mystery"), domain.ErrNotFound)

	list, err := env.nicheSvc.SetAll([]domain.Niche{{ID: "only", Name: "Only", DefaultDuration: 1, DefaultStructureVariants: 1, DefaultScriptVariants: 1}})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "only", list[0].ID)
}

func TestAnalyzeCreatesNiche(t *testing.T) {
	env := newServiceEnv(t)
	before := len(env.nicheSvc.List())

	n, err := env.nicheSvc.Analyze(context.Background(), AnalyzeRequest{
		Name:        "Cold War Stories",
		Titles:      []string{"The last convoy", " "},
		Transcripts: []string{"transcript one", "transcript two"},
	})
	require.NoError(t, err)
	assert.Contains(t, n.ID, "analyzed-")
	assert.Equal(t, "Cold War Stories", n.Name)
	assert.Equal(t, 10.0, n.DefaultDuration)
	assert.Equal(t, 1.0, n.DefaultStructureVariants)
	assert.Equal(t, "Plan {{TITLE}}", n.CustomStructurePrompt)
	assert.Equal(t, "Write part {{CURRENT_PART_NUM}}", n.CustomScriptPrompt)
	assert.Equal(t, []string{"tanks", "convoy"}, n.AnalyzedKeywords)
	assert.Equal(t, []string{"The last convoy"}, n.AnalyzedTitles)
	assert.Empty(t, n.PromptHistory)
	assert.Len(t, env.nicheSvc.List(), before+1)
}

func TestAnalyzeUpdatesExistingNiche(t *testing.T) {
	env := newServiceEnv(t)

	n, err := env.nicheSvc.Analyze(context.Background(), AnalyzeRequest{
		NicheID:     "war",
		Transcripts: []string{"transcript"},
	})
	require.NoError(t, err)
	assert.Equal(t, "war", n.ID)
	assert.Equal(t, "Plan {{TITLE}}", n.CustomStructurePrompt)
	assert.Empty(t, n.AnalyzedKeywords)
	require.Len(t, n.PromptHistory, 2)
	assert.Equal(t, prompts.Builtin("war").Structure, n.PromptHistory[0].Prompt)
	assert.Equal(t, prompts.Builtin("war").Script, n.PromptHistory[1].Prompt)
}

func TestAnalyzeKeepsNicheWhenTitleAnalysisFails(t *testing.T) {
	env := newServiceEnv(t)
	env.provider.fail = func(req provider.Request) error {
		if req.Schema == provider.KeywordsSchema {
			return fmt.Errorf("%w: overloaded", domain.ErrGenerationFailed)
		}
		return nil
	}

	n, err := env.nicheSvc.Analyze(context.Background(), AnalyzeRequest{
		Name:        "Harbors",
		Titles:      []string{"Harbor at dawn"},
		Transcripts: []string{"transcript"},
	})
	require.NoError(t, err)
	assert.Empty(t, n.AnalyzedKeywords)
	assert.Equal(t, []string{"Harbor at dawn"}, n.AnalyzedTitles)
}

func TestAnalyzeRejectsInput(t *testing.T) {
	env := newServiceEnv(t)
	ctx := context.Background()
	before := len(env.nicheSvc.List())

	_, err := env.nicheSvc.Analyze(ctx, AnalyzeRequest{Name: "Empty"})
	assert.ErrorIs(t, err, domain.ErrValidationFailed)
	_, err = env.nicheSvc.Analyze(ctx, AnalyzeRequest{Transcripts: []string{"t"}})
	assert.ErrorIs(t, err, domain.ErrValidationFailed)
	_, err = env.nicheSvc.Analyze(ctx, AnalyzeRequest{NicheID: "cooking", Transcripts: []string{"t"}})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	env.provider.fail = func(provider.Request) error {
		return fmt.Errorf("%w: overloaded", domain.ErrGenerationFailed)
	}
	_, err = env.nicheSvc.Analyze(ctx, AnalyzeRequest{Name: "Harbors", Transcripts: []string{"t"}})
	assert.ErrorIs(t, err, domain.ErrGenerationFailed)
	assert.Len(t, env.nicheSvc.List(), before)

	words, err := NewNicheService(env.niches, nil, nil).AnalyzeTitles(ctx, []string{"a"}, "")
	assert.ErrorIs(t, err, domain.ErrGenerationFailed)
	assert.Nil(t, words)
}
