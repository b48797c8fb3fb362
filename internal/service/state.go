package service

import (
	"context"
	"fmt"
	"time"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/logger"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/persistence"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/store"
)

// Restore loads the stored collections into the in-memory stores and hooks the
// stores up to saver so that every later change is persisted. Generating flags
// left over from an interrupted run are cleared; missing niches fall back to the
// built-in ones.
func Restore(ctx context.Context, c persistence.Collections, projects *store.ProjectStore, niches *store.NicheStore, saver *Saver) error {
	ctx = logger.SetComponent(ctx, "restore")

	loadedProjects, err := persistence.LoadProjects(ctx, c)
	if err != nil {
		return fmt.Errorf("load projects: %w", err)
	}
	for i := range loadedProjects {
		clearFlags(&loadedProjects[i])
	}

	loadedNiches, err := persistence.LoadNiches(ctx, c)
	if err != nil {
		return fmt.Errorf("load niches: %w", err)
	}
	if len(loadedNiches) == 0 {
		loadedNiches = store.DefaultNiches()
	}
	for i := range loadedNiches {
		loadedNiches[i].Normalize()
	}

	projects.Reset(loadedProjects)
	niches.Reset(loadedNiches)

	if saver != nil {
		projects.OnChange(saver.QueueProjects)
		niches.OnChange(saver.QueueNiches)
	}

	logger.With(logger.Fields{"niches": len(loadedNiches)}).
		WithCount(len(loadedProjects)).
		Info(ctx, "Restored collections")
	return nil
}

func clearFlags(p *domain.Project) {
	p.StructureGenerating = false
	p.ScriptGenerating = false
	for i := range p.ScriptParts {
		p.ScriptParts[i].IsGenerating = false
	}
}

// Pull refreshes projects from the stored collection, which another process may
// have written. Projects for which keep reports true stay as they are locally.
func Pull(ctx context.Context, c persistence.Collections, projects *store.ProjectStore, keep func(p domain.Project) bool) error {
	loaded, err := persistence.LoadProjects(ctx, c)
	if err != nil {
		return fmt.Errorf("pull projects: %w", err)
	}
	projects.Sync(loaded, keep)
	return nil
}

// PullEvery runs Pull on every tick until ctx is done.
func PullEvery(ctx context.Context, interval time.Duration, c persistence.Collections, projects *store.ProjectStore, keep func(p domain.Project) bool) {
	if interval <= 0 {
		return
	}
	ctx = logger.SetComponent(ctx, "sync")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := Pull(ctx, c, projects, keep); err != nil {
				logger.CtxWarn(ctx, "Failed to pull projects: %v", err)
			}
		}
	}
}
