// Package store holds the in-memory project and niche collections. Readers always
// get copies; writers go through read-modify-write updates keyed by id.
package store

import (
	"fmt"
	"sync"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
)

// ChangeFunc receives a snapshot of the collection after every mutation. Versions
// grow with every mutation; hooks may run concurrently, so a listener must drop a
// snapshot older than one it has already seen.
type ChangeFunc[T any] func(version uint64, snapshot []T)

// ProjectStore is the shared project collection.
type ProjectStore struct {
	mu       sync.RWMutex
	projects []domain.Project
	version  uint64
	onChange []ChangeFunc[domain.Project]
}

// NewProjectStore creates a store holding projects.
func NewProjectStore(projects ...domain.Project) *ProjectStore {
	return &ProjectStore{projects: cloneProjects(projects)}
}

// OnChange registers fn to run after each mutation, outside the lock.
func (s *ProjectStore) OnChange(fn ChangeFunc[domain.Project]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// Get returns a copy of the project with id.
func (s *ProjectStore) Get(id int64) (domain.Project, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return domain.Project{}, fmt.Errorf("project %d: %w", id, domain.ErrNotFound)
	}
	return s.projects[i].Clone(), nil
}

// List returns copies of all projects, newest batches first.
func (s *ProjectStore) List() []domain.Project {
	return s.Snapshot()
}

// ListBatch returns copies of the projects of one batch.
func (s *ProjectStore) ListBatch(batchID string) []domain.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.Project
	for _, p := range s.projects {
		if p.BatchID == batchID {
			out = append(out, p.Clone())
		}
	}
	return out
}

// Snapshot returns a copy of the whole collection.
func (s *ProjectStore) Snapshot() []domain.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneProjects(s.projects)
}

// Add puts new projects in front of the collection, keeping their order.
func (s *ProjectStore) Add(projects ...domain.Project) error {
	s.mu.Lock()
	for _, p := range projects {
		if s.indexOf(p.ID) >= 0 {
			s.mu.Unlock()
			return &domain.ValidationError{Field: "id", Reason: fmt.Sprintf("project %d already exists", p.ID)}
		}
	}
	next := make([]domain.Project, 0, len(projects)+len(s.projects))
	next = append(next, cloneProjects(projects)...)
	next = append(next, s.projects...)
	s.projects = next
	c := s.bump()
	s.mu.Unlock()

	c.notify()
	return nil
}

// Replace applies update to a copy of the project and stores the copy. The stored
// value is returned.
func (s *ProjectStore) Replace(id int64, update func(p *domain.Project)) (domain.Project, error) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return domain.Project{}, fmt.Errorf("project %d: %w", id, domain.ErrNotFound)
	}
	p := s.projects[i].Clone()
	update(&p)
	p.ID = id
	s.projects[i] = p
	out := p.Clone()
	c := s.bump()
	s.mu.Unlock()

	c.notify()
	return out, nil
}

// ReplaceAll applies update to every project matching match in one step, so no
// reader sees some matches updated and others not. It returns the number updated.
func (s *ProjectStore) ReplaceAll(match func(p domain.Project) bool, update func(p *domain.Project)) int {
	s.mu.Lock()
	n := 0
	for i := range s.projects {
		if !match(s.projects[i]) {
			continue
		}
		p := s.projects[i].Clone()
		id := p.ID
		update(&p)
		p.ID = id
		s.projects[i] = p
		n++
	}
	var c change[domain.Project]
	if n > 0 {
		c = s.bump()
	}
	s.mu.Unlock()

	c.notify()
	return n
}

// Claim marks the projects in ids as busy in one step. Nothing changes when any of
// them is missing, already busy or rejected by check. check may be nil.
func (s *ProjectStore) Claim(ids []int64, check func(p domain.Project) error, mark func(p *domain.Project)) error {
	s.mu.Lock()
	idx := make([]int, 0, len(ids))
	for _, id := range ids {
		i := s.indexOf(id)
		if i < 0 {
			s.mu.Unlock()
			return fmt.Errorf("project %d: %w", id, domain.ErrNotFound)
		}
		p := s.projects[i]
		if p.Busy() {
			s.mu.Unlock()
			return &domain.ValidationError{Field: "projectId", Reason: fmt.Sprintf("project %d is busy with another generation", id)}
		}
		if check != nil {
			if err := check(p); err != nil {
				s.mu.Unlock()
				return err
			}
		}
		idx = append(idx, i)
	}
	for _, i := range idx {
		p := s.projects[i].Clone()
		mark(&p)
		p.ID = s.projects[i].ID
		s.projects[i] = p
	}
	var c change[domain.Project]
	if len(idx) > 0 {
		c = s.bump()
	}
	s.mu.Unlock()

	c.notify()
	return nil
}

// Delete removes the project with id.
func (s *ProjectStore) Delete(id int64) error {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		s.mu.Unlock()
		return fmt.Errorf("project %d: %w", id, domain.ErrNotFound)
	}
	s.projects = append(s.projects[:i:i], s.projects[i+1:]...)
	c := s.bump()
	s.mu.Unlock()

	c.notify()
	return nil
}

// Reset replaces the whole collection without notifying listeners. It is used when
// loading from persistence.
func (s *ProjectStore) Reset(projects []domain.Project) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.projects = cloneProjects(projects)
}

// Sync replaces the collection with persisted, a snapshot written by another process.
// Local projects for which keep reports true win over their persisted copy and are
// kept even when persisted no longer lists them. Listeners are not notified.
func (s *ProjectStore) Sync(persisted []domain.Project, keep func(p domain.Project) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := make(map[int64]domain.Project)
	if keep != nil {
		for _, p := range s.projects {
			if keep(p) {
				kept[p.ID] = p
			}
		}
	}

	next := make([]domain.Project, 0, len(persisted)+len(kept))
	for _, p := range persisted {
		if local, ok := kept[p.ID]; ok {
			next = append(next, local)
			delete(kept, p.ID)
			continue
		}
		next = append(next, p.Clone())
	}
	for _, p := range s.projects {
		if _, ok := kept[p.ID]; ok {
			next = append(next, p)
		}
	}
	s.projects = next
}

func (s *ProjectStore) indexOf(id int64) int {
	for i := range s.projects {
		if s.projects[i].ID == id {
			return i
		}
	}
	return -1
}

// bump advances the version and captures what the hooks get. The caller holds the
// write lock.
func (s *ProjectStore) bump() change[domain.Project] {
	s.version++
	if len(s.onChange) == 0 {
		return change[domain.Project]{}
	}
	return change[domain.Project]{
		version:  s.version,
		snapshot: cloneProjects(s.projects),
		hooks:    append([]ChangeFunc[domain.Project](nil), s.onChange...),
	}
}

// change is one mutation ready to be reported outside the lock.
type change[T any] struct {
	version  uint64
	snapshot []T
	hooks    []ChangeFunc[T]
}

func (c change[T]) notify() {
	for _, fn := range c.hooks {
		fn(c.version, c.snapshot)
	}
}

func cloneProjects(in []domain.Project) []domain.Project {
	out := make([]domain.Project, len(in))
	for i, p := range in {
		out[i] = p.Clone()
	}
	return out
}
