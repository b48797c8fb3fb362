package generation

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/provider"
)

func TestScript_GeneratesAllSections(t *testing.T) {
	env := newTestEnv(t, func(_ int, req provider.Request) (json.RawMessage, error) {
		n := partNumber(scriptTaskPattern, req.Prompt)
		return scriptJSON(fmt.Sprintf("Text %d", n), fmt.Sprintf("Текст %d", n)), nil
	}, structuredProject(1, 5, false))

	result, err := env.engine.Script.Generate(context.Background(), 1, "")
	require.NoError(t, err)
	assert.Equal(t, 5, result.Sections)
	assert.Empty(t, result.Failed)

	p, err := env.store.Get(1)
	require.NoError(t, err)
	require.Len(t, p.ScriptParts, 5)
	assert.False(t, p.ScriptGenerating)
	for i, part := range p.ScriptParts {
		assert.False(t, part.IsGenerating)
		assert.Equal(t, fmt.Sprintf("proj-1-part-%d", i), part.ID)
		assert.Equal(t, fmt.Sprintf("Part %d", i+1), part.SectionTitle)
		assert.Equal(t, fmt.Sprintf("Text %d", i+1), part.ContentEn)
		assert.Equal(t, fmt.Sprintf("Текст %d", i+1), part.ContentUa)
	}
	assert.InDelta(t, 0.1, env.engine.Cost.Total(), 1e-9)
	for _, req := range env.provider.calls() {
		assert.Same(t, provider.ScriptSchema, req.Schema)
	}
}

func TestScript_StrictlySequential(t *testing.T) {
	var env *testEnv
	var order []int
	env = newTestEnv(t, func(_ int, req provider.Request) (json.RawMessage, error) {
		n := partNumber(scriptTaskPattern, req.Prompt)
		order = append(order, n)

		p, err := env.store.Get(1)
		require.NoError(t, err)
		assert.True(t, p.ScriptGenerating)
		require.Len(t, p.ScriptParts, 4, "placeholders are written before the first call")
		for i := 0; i < n-1; i++ {
			assert.False(t, p.ScriptParts[i].IsGenerating, "section %d still generating when part %d starts", i+1, n)
			assert.NotEmpty(t, p.ScriptParts[i].ContentEn)
		}
		for i := n - 1; i < 4; i++ {
			assert.True(t, p.ScriptParts[i].IsGenerating)
		}
		return scriptJSON("done", ""), nil
	}, structuredProject(1, 4, false))

	_, err := env.engine.Script.Generate(context.Background(), 1, "")
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3, 4}, order)
	assert.Equal(t, 1, env.provider.maxPar)
}

func TestScript_FailureIsLocal(t *testing.T) {
	env := newTestEnv(t, func(_ int, req provider.Request) (json.RawMessage, error) {
		if partNumber(scriptTaskPattern, req.Prompt) == 3 {
			return json.RawMessage(`{"scriptUkrainian":"тільки"}`), nil
		}
		return scriptJSON("ok", "так"), nil
	}, structuredProject(1, 5, false))

	result, err := env.engine.Script.Generate(context.Background(), 1, "")
	require.NoError(t, err)
	assert.Equal(t, []int{2}, result.Failed)

	p, _ := env.store.Get(1)
	assert.False(t, p.ScriptGenerating)
	for i, part := range p.ScriptParts {
		assert.False(t, part.IsGenerating)
		if i == 2 {
			assert.Empty(t, part.ContentEn)
			continue
		}
		assert.Equal(t, "ok", part.ContentEn)
	}

	notices := env.notices.all()
	require.Len(t, notices, 1)
	assert.Equal(t, int64(1), notices[0].ProjectID)
	assert.Contains(t, notices[0].Message, "section 3")

	// every attempted section is charged, failed or not
	assert.InDelta(t, 0.1, env.engine.Cost.Total(), 1e-9)
}

func TestScript_InstructionsAndTemplate(t *testing.T) {
	env := newTestEnv(t, func(int, provider.Request) (json.RawMessage, error) {
		return scriptJSON("ok", ""), nil
	}, structuredProject(1, 2, false))
	_, err := env.niches.Replace("caprio", func(n *domain.Niche) {
		n.CustomScriptPrompt = "CUSTOM {{TITLE}} part {{CURRENT_PART_NUM}}/{{TOTAL_PARTS}} {{MIN_WORDS}}-{{MAX_WORDS}}\n{{STRUCTURE_TEXT}}"
	})
	require.NoError(t, err)

	_, err = env.engine.Script.Generate(context.Background(), 1, "no dialogue")
	require.NoError(t, err)

	calls := env.provider.calls()
	require.Len(t, calls, 2)
	assert.Contains(t, calls[1].Prompt, "CUSTOM The Long Road part 2/2 300-600")
	assert.Contains(t, calls[1].Prompt, "[Part 1] Part 1: Beat 1")
	assert.Contains(t, calls[1].Prompt, "USER INSTRUCTIONS: no dialogue")

	p, _ := env.store.Get(1)
	assert.Equal(t, "no dialogue", p.ScriptInstructions)
}

func TestScript_RequiresStructure(t *testing.T) {
	env := newTestEnv(t, func(int, provider.Request) (json.RawMessage, error) {
		return scriptJSON("ok", ""), nil
	}, structuredProject(1, 0, false))

	_, err := env.engine.Script.Generate(context.Background(), 1, "")
	assert.ErrorIs(t, err, domain.ErrValidationFailed)

	_, err = env.engine.Script.Generate(context.Background(), 2, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Empty(t, env.provider.calls())
}

func TestScript_GenerateMany(t *testing.T) {
	env := newTestEnv(t, func(int, provider.Request) (json.RawMessage, error) {
		return scriptJSON("ok", ""), nil
	}, structuredProject(1, 3, false), structuredProject(2, 2, false))

	results, err := env.engine.Script.GenerateMany(context.Background(), []int64{1, 2}, "")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, 3, results[0].Sections)
	assert.Equal(t, 2, results[1].Sections)
	assert.Len(t, env.provider.calls(), 5)
}
