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

func expandBatch(t *testing.T, title string, s, k int, duration float64, instructions string) []domain.Project {
	t.Helper()
	projects, err := NewExpander(nil).Expand(domain.TopicRequest{
		Title:             title,
		NicheID:           "caprio",
		DurationMinutes:   duration,
		StructureVariants: float64(s),
		ScriptVariants:    float64(k),
		Instructions:      instructions,
	}, true)
	require.NoError(t, err)
	return projects
}

func echoStructure(_ int, req provider.Request) (json.RawMessage, error) {
	from, to := chunkRange(req.Prompt)
	if from == 0 {
		return nil, fmt.Errorf("%w: unexpected prompt", domain.ErrGenerationFailed)
	}
	return structureJSON(from, to), nil
}

func TestStructure_FanOutToSiblings(t *testing.T) {
	projects := expandBatch(t, "The Long Road", 2, 2, 9, "")
	env := newTestEnv(t, echoStructure, projects...)

	results, err := env.engine.Structure.GenerateBatch(context.Background(), projects[0].BatchID, "")
	require.NoError(t, err)
	require.Len(t, results, 2)

	// one call and one charge per structure group, not per sibling
	assert.Len(t, env.provider.calls(), 2)
	assert.InDelta(t, 0.002, env.engine.Cost.Total(), 1e-9)

	byGroup := map[string][]domain.Project{}
	for _, p := range env.store.ListBatch(projects[0].BatchID) {
		byGroup[p.GroupKey()] = append(byGroup[p.GroupKey()], p)
		assert.False(t, p.StructureGenerating)
		assert.Len(t, p.Structure, 3)
	}
	require.Len(t, byGroup, 2)
	for key, members := range byGroup {
		require.Len(t, members, 2, key)
		assert.Equal(t, members[0].Structure, members[1].Structure, key)
	}
	for _, r := range results {
		assert.NoError(t, r.Err)
		assert.Equal(t, 3, r.Sections)
	}
	for _, req := range env.provider.calls() {
		assert.Same(t, provider.StructureSchema, req.Schema)
	}
}

func TestStructure_ChunksCarryPreviousContext(t *testing.T) {
	projects := expandBatch(t, "Case", 1, 1, 10, "8 parts, keep it tense")
	env := newTestEnv(t, echoStructure, projects...)

	_, err := env.engine.Structure.GenerateBatch(context.Background(), projects[0].BatchID, "")
	require.NoError(t, err)

	calls := env.provider.calls()
	require.Len(t, calls, 2)

	assert.Contains(t, calls[0].Prompt, "Generate PARTS 1-4. Count: 4.")
	assert.Contains(t, calls[0].Prompt, "USER INSTRUCTIONS: 8 parts, keep it tense")
	assert.NotContains(t, calls[0].Prompt, "PREVIOUS CONTEXT")

	assert.Contains(t, calls[1].Prompt, "Generate PARTS 5-8. Count: 4.")
	assert.Contains(t, calls[1].Prompt, "PREVIOUS CONTEXT:\n[Part 2]: Beat 2...\n[Part 3]: Beat 3...\n[Part 4]: Beat 4...")
	assert.NotContains(t, calls[1].Prompt, "[Part 1]: Beat 1")

	p, err := env.store.Get(projects[0].ID)
	require.NoError(t, err)
	require.Len(t, p.Structure, 8)
	for i, s := range p.Structure {
		assert.Equal(t, fmt.Sprintf("Part %d", i+1), s.Title)
	}
	assert.Equal(t, "8 parts, keep it tense", p.StructureInstructions)
	assert.InDelta(t, 0.001, env.engine.Cost.Total(), 1e-9)
}

func TestStructure_NicheChunkSize(t *testing.T) {
	projects := expandBatch(t, "Case", 1, 1, 10, "6 parts")
	env := newTestEnv(t, echoStructure, projects...)
	_, err := env.niches.Replace("caprio", func(n *domain.Niche) {
		n.WorkflowDescription = "Work in batches of 2 parts."
	})
	require.NoError(t, err)

	_, err = env.engine.Structure.GenerateBatch(context.Background(), projects[0].BatchID, "")
	require.NoError(t, err)
	assert.Len(t, env.provider.calls(), 3)
}

func TestStructure_PartialFailureKeepsEarlierChunks(t *testing.T) {
	projects := expandBatch(t, "Case", 1, 2, 10, "8 parts")
	env := newTestEnv(t, func(n int, req provider.Request) (json.RawMessage, error) {
		from, to := chunkRange(req.Prompt)
		if from == 1 {
			return structureJSON(from, to), nil
		}
		return nil, fmt.Errorf("%w: bad json", domain.ErrMalformedResponse)
	}, projects...)

	results, err := env.engine.Structure.GenerateBatch(context.Background(), projects[0].BatchID, "")
	require.NoError(t, err, "partial results are not hard failures")
	require.Len(t, results, 1)
	assert.True(t, results[0].Partial())
	assert.Equal(t, 4, results[0].Sections)
	assert.Equal(t, 8, results[0].Planned)

	var partial *domain.PartialGenerationError
	require.ErrorAs(t, results[0].Err, &partial)
	assert.Equal(t, 4, partial.Completed)
	assert.ErrorIs(t, partial, domain.ErrMalformedResponse)

	siblings := env.store.ListBatch(projects[0].BatchID)
	require.Len(t, siblings, 2)
	for _, p := range siblings {
		assert.Len(t, p.Structure, 4)
		assert.False(t, p.StructureGenerating)
	}
	assert.Equal(t, siblings[0].Structure, siblings[1].Structure)

	notices := env.notices.all()
	require.Len(t, notices, 1)
	assert.Equal(t, domain.NoticeWarning, notices[0].Level)
}

func TestStructure_FirstChunkFailureLeavesDraft(t *testing.T) {
	projects := expandBatch(t, "Case", 2, 1, 10, "")
	env := newTestEnv(t, func(n int, req provider.Request) (json.RawMessage, error) {
		if n == 0 {
			return nil, fmt.Errorf("%w: upstream 500", domain.ErrGenerationFailed)
		}
		return echoStructure(n, req)
	}, projects...)

	results, err := env.engine.Structure.GenerateBatch(context.Background(), projects[0].BatchID, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGenerationFailed)
	require.Len(t, results, 2)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			assert.False(t, r.Partial())
			for _, id := range r.ProjectIDs {
				p, _ := env.store.Get(id)
				assert.Empty(t, p.Structure)
				assert.False(t, p.StructureGenerating)
			}
		}
	}
	assert.Equal(t, 1, failed, "the other group is unaffected")
}

func TestStructure_CountMismatchIsMalformed(t *testing.T) {
	projects := expandBatch(t, "Case", 1, 1, 10, "4 parts")
	env := newTestEnv(t, func(int, provider.Request) (json.RawMessage, error) {
		return structureJSON(1, 3), nil
	}, projects...)

	_, err := env.engine.Structure.GenerateBatch(context.Background(), projects[0].BatchID, "")
	assert.ErrorIs(t, err, domain.ErrMalformedResponse)

	p, _ := env.store.Get(projects[0].ID)
	assert.Empty(t, p.Structure)
}

func TestStructure_RetriesRateLimit(t *testing.T) {
	projects := expandBatch(t, "Case", 1, 1, 9, "")
	env := newTestEnv(t, func(n int, req provider.Request) (json.RawMessage, error) {
		if n == 0 {
			return nil, domain.ErrRateLimited
		}
		return echoStructure(n, req)
	}, projects...)

	_, err := env.engine.Structure.GenerateBatch(context.Background(), projects[0].BatchID, "")
	require.NoError(t, err)
	assert.Len(t, env.provider.calls(), 2)
	assert.InDelta(t, 0.001, env.engine.Cost.Total(), 1e-9)
}

func TestStructure_GenerateGroupOnlyTouchesGivenProjects(t *testing.T) {
	projects := expandBatch(t, "Case", 2, 1, 9, "")
	env := newTestEnv(t, echoStructure, projects...)

	results, err := env.engine.Structure.GenerateGroup(context.Background(), []int64{projects[1].ID}, "")
	require.NoError(t, err)
	require.Len(t, results, 1)

	untouched, _ := env.store.Get(projects[0].ID)
	assert.Empty(t, untouched.Structure)
	done, _ := env.store.Get(projects[1].ID)
	assert.Len(t, done.Structure, 3)
}

func TestStructure_UnknownBatch(t *testing.T) {
	env := newTestEnv(t, echoStructure)
	_, err := env.engine.Structure.GenerateBatch(context.Background(), "batch-missing", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGroupProjects(t *testing.T) {
	projects := []domain.Project{
		{ID: 5, BatchID: "b", Variant: domain.VariantIdentity{StructIdx: 2, ScriptIdx: 1}},
		{ID: 3, BatchID: "b", Variant: domain.VariantIdentity{StructIdx: 1, ScriptIdx: 2}},
		{ID: 2, BatchID: "b", Variant: domain.VariantIdentity{StructIdx: 1, ScriptIdx: 1}},
		{ID: 9, BatchID: "b", Variant: domain.VariantIdentity{StructIdx: -1, ScriptIdx: -1}},
		{ID: 7, BatchID: "b", Variant: domain.VariantIdentity{StructIdx: -1, ScriptIdx: -1}},
	}
	groups := groupProjects(projects)
	require.Len(t, groups, 4)
	assert.Equal(t, []int64{2, 3}, groups[0].ids())
	assert.Equal(t, []int64{5}, groups[1].ids())
	assert.Equal(t, []int64{7}, groups[2].ids())
	assert.Equal(t, []int64{9}, groups[3].ids())
}
