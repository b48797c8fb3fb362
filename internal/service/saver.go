package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/logger"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/persistence"
)

// Saver writes store snapshots to the persistence collaborator in the background.
// Snapshots queued while a write is in progress are coalesced: only the latest
// snapshot of each collection is written. A snapshot older than the newest one
// queued so far is dropped.
type Saver struct {
	collections persistence.Collections

	mu       sync.Mutex
	projects []domain.Project
	niches   []domain.Niche
	versionP uint64
	versionN uint64
	dirtyP   bool
	dirtyN   bool

	wake chan struct{}
	done chan struct{}
}

// NewSaver creates a saver. Run must be started for queued snapshots to be written.
func NewSaver(c persistence.Collections) *Saver {
	return &Saver{
		collections: c,
		wake:        make(chan struct{}, 1),
		done:        make(chan struct{}),
	}
}

// QueueProjects schedules a write of the projects collection at version.
func (s *Saver) QueueProjects(version uint64, snapshot []domain.Project) {
	s.mu.Lock()
	if version <= s.versionP {
		s.mu.Unlock()
		return
	}
	s.projects = snapshot
	s.versionP = version
	s.dirtyP = true
	s.mu.Unlock()
	s.signal()
}

// QueueNiches schedules a write of the niches collection at version.
func (s *Saver) QueueNiches(version uint64, snapshot []domain.Niche) {
	s.mu.Lock()
	if version <= s.versionN {
		s.mu.Unlock()
		return
	}
	s.niches = snapshot
	s.versionN = version
	s.dirtyN = true
	s.mu.Unlock()
	s.signal()
}

func (s *Saver) signal() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run writes queued snapshots until ctx is cancelled, then flushes once more.
func (s *Saver) Run(ctx context.Context) {
	defer close(s.done)
	ctx = logger.SetComponent(ctx, "saver")
	for {
		select {
		case <-s.wake:
			if err := s.Flush(ctx); err != nil {
				logger.CtxWarn(ctx, "Failed to persist collections: %v", err)
			}
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			if err := s.Flush(flushCtx); err != nil {
				logger.CtxWarn(flushCtx, "Final persistence flush failed: %v", err)
			}
			cancel()
			return
		}
	}
}

// Done is closed once Run has returned.
func (s *Saver) Done() <-chan struct{} {
	return s.done
}

// Flush writes pending snapshots synchronously.
func (s *Saver) Flush(ctx context.Context) error {
	s.mu.Lock()
	projects, niches := s.projects, s.niches
	dirtyP, dirtyN := s.dirtyP, s.dirtyN
	s.dirtyP, s.dirtyN = false, false
	s.mu.Unlock()

	var errs []error
	if dirtyP {
		if err := persistence.SaveProjects(ctx, s.collections, projects); err != nil {
			errs = append(errs, err)
		}
	}
	if dirtyN {
		if err := persistence.SaveNiches(ctx, s.collections, niches); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
