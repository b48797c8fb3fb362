package persistence

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
)

type memCollections struct {
	mu      sync.Mutex
	data    map[string][]byte
	loadErr error
	saveErr error
	saves   int
}

func newMem() *memCollections {
	return &memCollections{data: map[string][]byte{}}
}

func (m *memCollections) Load(_ context.Context, name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	if d, ok := m.data[name]; ok {
		return d, nil
	}
	return []byte("[]"), nil
}

func (m *memCollections) Save(_ context.Context, name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	m.data[name] = append([]byte(nil), data...)
	return nil
}

func TestFallbackStore_RemoteRefreshesLocal(t *testing.T) {
	remote, local := newMem(), newMem()
	remote.data["projects"] = []byte(`[{"id":7}]`)
	f := NewFallbackStore(remote, local, nil)

	data, err := f.Load(context.Background(), "projects")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":7}]`, string(data))
	assert.JSONEq(t, `[{"id":7}]`, string(local.data["projects"]))
}

func TestFallbackStore_EmptyRemoteUsesLocal(t *testing.T) {
	remote, local := newMem(), newMem()
	local.data["niches"] = []byte(`[{"id":"war"}]`)
	f := NewFallbackStore(remote, local, nil)

	data, err := f.Load(context.Background(), "niches")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"war"}]`, string(data))
	assert.False(t, f.LocalOnly())
}

func TestFallbackStore_AuthRequiredSwitchesToLocal(t *testing.T) {
	remote, local := newMem(), newMem()
	remote.loadErr = domain.ErrAuthRequired
	remote.saveErr = domain.ErrAuthRequired
	local.data["projects"] = []byte(`[{"id":1}]`)

	var notices []domain.Notice
	f := NewFallbackStore(remote, local, func(_ context.Context, n domain.Notice) {
		notices = append(notices, n)
	})
	ctx := context.Background()

	data, err := f.Load(ctx, "projects")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1}]`, string(data))
	assert.True(t, f.LocalOnly())
	require.Len(t, notices, 1)
	assert.Equal(t, domain.NoticeWarning, notices[0].Level)

	// later saves stay local and do not repeat the notice
	require.NoError(t, f.Save(ctx, "projects", []byte(`[{"id":1},{"id":2}]`)))
	assert.JSONEq(t, `[{"id":1},{"id":2}]`, string(local.data["projects"]))
	assert.Equal(t, 0, remote.saves)
	assert.Len(t, notices, 1)
}

func TestFallbackStore_SaveAuthFailureKeepsData(t *testing.T) {
	remote, local := newMem(), newMem()
	remote.saveErr = domain.ErrAuthRequired
	notified := 0
	f := NewFallbackStore(remote, local, func(context.Context, domain.Notice) { notified++ })

	require.NoError(t, f.Save(context.Background(), "niches", []byte(`[{"id":"caprio"}]`)))
	assert.JSONEq(t, `[{"id":"caprio"}]`, string(local.data["niches"]))
	assert.True(t, f.LocalOnly())
	assert.Equal(t, 1, notified)
}

func TestFallbackStore_RemoteOutageIsNotAuth(t *testing.T) {
	remote, local := newMem(), newMem()
	remote.loadErr = errors.New("connection refused")
	remote.saveErr = errors.New("connection refused")
	local.data["projects"] = []byte(`[{"id":3}]`)
	f := NewFallbackStore(remote, local, nil)
	ctx := context.Background()

	data, err := f.Load(ctx, "projects")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":3}]`, string(data))
	require.NoError(t, f.Save(ctx, "projects", []byte(`[]`)))
	assert.False(t, f.LocalOnly())
}

func TestFallbackStore_LocalSaveErrorPropagates(t *testing.T) {
	remote, local := newMem(), newMem()
	local.saveErr = errors.New("disk full")
	f := NewFallbackStore(remote, local, nil)

	err := f.Save(context.Background(), "projects", []byte(`[]`))
	assert.EqualError(t, err, "disk full")
	assert.Equal(t, 0, remote.saves)
}

func TestFallbackStore_NoRemote(t *testing.T) {
	f := NewFallbackStore(nil, newMem(), nil)
	assert.True(t, f.LocalOnly())
	require.NoError(t, f.Save(context.Background(), "projects", []byte(`[]`)))
}

func TestTypedHelpers(t *testing.T) {
	c := newMem()
	ctx := context.Background()
	created := time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, SaveProjects(ctx, c, []domain.Project{{
		ID:        1,
		Title:     "Case [Ver 2-3]",
		CreatedAt: created,
		Structure: []domain.StructureSection{{Title: "A", Description: "B"}},
	}}))
	projects, err := LoadProjects(ctx, c)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, domain.VariantIdentity{BaseTitle: "Case", StructIdx: 2, ScriptIdx: 3}, projects[0].Variant)
	assert.True(t, created.Equal(projects[0].CreatedAt))

	require.NoError(t, SaveNiches(ctx, c, nil))
	assert.Equal(t, "[]", string(c.data["niches"]))
	niches, err := LoadNiches(ctx, c)
	require.NoError(t, err)
	assert.Empty(t, niches)

	c.data["projects"] = []byte(`{"not":"an array"}`)
	_, err = LoadProjects(ctx, c)
	assert.Error(t, err)
}
