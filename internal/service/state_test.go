package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/persistence"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/store"
)

func TestNoticeFeedRing(t *testing.T) {
	feed := NewNoticeFeed(3)
	ctx := context.Background()
	assert.Empty(t, feed.List(0))

	for i := 1; i <= 5; i++ {
		feed.Notify(ctx, domain.Notice{Level: domain.NoticeWarning, ProjectID: int64(i)})
	}
	assert.Equal(t, 3, feed.Len())

	got := feed.List(0)
	require.Len(t, got, 3)
	assert.Equal(t, []int64{5, 4, 3}, []int64{got[0].ProjectID, got[1].ProjectID, got[2].ProjectID})
	assert.False(t, got[0].Time.IsZero())

	assert.Len(t, feed.List(2), 2)
}

func TestSaverCoalescesSnapshots(t *testing.T) {
	coll := newMemCollections()
	saver := NewSaver(coll)
	ctx := context.Background()

	saver.QueueProjects(1, []domain.Project{{ID: 1, Title: "first"}})
	saver.QueueProjects(2, []domain.Project{{ID: 2, Title: "second"}})
	saver.QueueNiches(1, store.DefaultNiches())
	require.NoError(t, saver.Flush(ctx))
	assert.Equal(t, 2, coll.saves)

	projects, err := persistence.LoadProjects(ctx, coll)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, int64(2), projects[0].ID)

	require.NoError(t, saver.Flush(ctx))
	assert.Equal(t, 2, coll.saves, "nothing pending")
}

func TestSaverRunFlushesOnShutdown(t *testing.T) {
	coll := newMemCollections()
	saver := NewSaver(coll)
	ctx, cancel := context.WithCancel(context.Background())
	go saver.Run(ctx)

	saver.QueueProjects(1, []domain.Project{{ID: 7, Title: "kept"}})
	cancel()
	select {
	case <-saver.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("saver did not stop")
	}
	assert.Contains(t, string(coll.get(domain.CollectionProjects)), `"id":7`)
}

func TestSaverDropsOlderSnapshots(t *testing.T) {
	coll := newMemCollections()
	saver := NewSaver(coll)
	ctx := context.Background()

	saver.QueueProjects(5, []domain.Project{{ID: 1, Title: "newer"}})
	saver.QueueProjects(4, []domain.Project{{ID: 1, Title: "older"}})
	require.NoError(t, saver.Flush(ctx))

	projects, err := persistence.LoadProjects(ctx, coll)
	require.NoError(t, err)
	require.Len(t, projects, 1)
	assert.Equal(t, "newer", projects[0].Title)

	// an old snapshot arriving after the flush is still stale
	saver.QueueProjects(3, []domain.Project{{ID: 1, Title: "oldest"}})
	require.NoError(t, saver.Flush(ctx))
	assert.Equal(t, 1, coll.saves)
}

func TestRestoredStorePersistsLatestStateWithSlowHooks(t *testing.T) {
	coll := newMemCollections()
	ctx := context.Background()
	require.NoError(t, persistence.SaveProjects(ctx, coll, []domain.Project{{ID: 1}, {ID: 2}}))

	projects := store.NewProjectStore()
	saver := NewSaver(coll)
	entered := make(chan struct{})
	var once sync.Once
	projects.OnChange(func(version uint64, _ []domain.Project) {
		once.Do(func() {
			close(entered)
			time.Sleep(50 * time.Millisecond)
		})
	})
	require.NoError(t, Restore(ctx, coll, projects, store.NewNicheStore(), saver))

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, err := projects.Replace(1, func(p *domain.Project) { p.Title = "first" })
		assert.NoError(t, err)
	}()
	<-entered
	_, err := projects.Replace(2, func(p *domain.Project) { p.Completed = true })
	require.NoError(t, err)
	wg.Wait()

	require.NoError(t, saver.Flush(ctx))
	stored, err := persistence.LoadProjects(ctx, coll)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	for _, p := range stored {
		if p.ID == 2 {
			assert.True(t, p.Completed)
		}
		if p.ID == 1 {
			assert.Equal(t, "first", p.Title)
		}
	}
}

func TestRestore(t *testing.T) {
	coll := newMemCollections()
	ctx := context.Background()
	stale := []domain.Project{{
		ID:                  1,
		Title:               "Court Day [Ver 2-1]",
		StructureGenerating: true,
		ScriptGenerating:    true,
		Structure:           []domain.StructureSection{{Title: "a", Description: "b"}},
		ScriptParts:         []domain.ScriptSection{{ID: "proj-1-part-0", IsGenerating: true}},
	}}
	data, err := json.Marshal(stale)
	require.NoError(t, err)
	require.NoError(t, coll.Save(ctx, domain.CollectionProjects, data))
	coll.saves = 0

	projects := store.NewProjectStore()
	niches := store.NewNicheStore()
	saver := NewSaver(coll)
	require.NoError(t, Restore(ctx, coll, projects, niches, saver))

	p, err := projects.Get(1)
	require.NoError(t, err)
	assert.False(t, p.StructureGenerating)
	assert.False(t, p.ScriptGenerating)
	assert.False(t, p.ScriptParts[0].IsGenerating)
	assert.Equal(t, 2, p.Variant.StructIdx)
	assert.Len(t, niches.List(), 3, "built-in niches when none are stored")

	_, err = projects.Replace(1, func(p *domain.Project) { p.Completed = true })
	require.NoError(t, err)
	require.NoError(t, saver.Flush(ctx))
	assert.Equal(t, 1, coll.saves)
	assert.Contains(t, string(coll.get(domain.CollectionProjects)), `"completed":true`)
}

func TestPullKeepsInFlightProjects(t *testing.T) {
	coll := newMemCollections()
	ctx := context.Background()
	require.NoError(t, persistence.SaveProjects(ctx, coll, []domain.Project{
		{ID: 1, Title: "written elsewhere"},
		{ID: 2, Title: "new elsewhere"},
	}))

	projects := store.NewProjectStore(domain.Project{ID: 1, Title: "mine", ScriptGenerating: true})
	require.NoError(t, Pull(ctx, coll, projects, domain.Project.Busy))

	p, err := projects.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "mine", p.Title)
	_, err = projects.Get(2)
	assert.NoError(t, err)

	require.NoError(t, Pull(ctx, coll, projects, nil))
	p, err = projects.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "written elsewhere", p.Title)
}
