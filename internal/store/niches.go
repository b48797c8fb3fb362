package store

import (
	"fmt"
	"sync"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/prompts"
)

// DefaultNiches returns the built-in niches used when nothing is stored yet.
func DefaultNiches() []domain.Niche {
	names := map[string]string{
		"caprio":  "Judge Caprio Stories",
		"slavery": "Slavery Stories",
		"war":     "War Stories",
	}
	durations := map[string]float64{"caprio": 10, "slavery": 30, "war": 20}

	out := make([]domain.Niche, 0, len(names))
	for _, id := range prompts.BuiltinIDs() {
		out = append(out, domain.Niche{
			ID:                       id,
			Name:                     names[id],
			DefaultDuration:          durations[id],
			DefaultStructureVariants: 1,
			DefaultScriptVariants:    1,
			WorkflowDescription:      prompts.Builtin(id).Workflow,
			PromptHistory:            []domain.PromptRevision{},
		})
	}
	return out
}

// NicheStore holds niche configurations in display order.
type NicheStore struct {
	mu       sync.RWMutex
	niches   []domain.Niche
	version  uint64
	onChange []ChangeFunc[domain.Niche]
}

// NewNicheStore creates a store holding niches.
func NewNicheStore(niches ...domain.Niche) *NicheStore {
	return &NicheStore{niches: cloneNiches(niches)}
}

// OnChange registers fn to run after each mutation.
func (s *NicheStore) OnChange(fn ChangeFunc[domain.Niche]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = append(s.onChange, fn)
}

// Get returns a copy of the niche with id.
func (s *NicheStore) Get(id string) (domain.Niche, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.niches {
		if n.ID == id {
			return n.Clone(), nil
		}
	}
	return domain.Niche{}, fmt.Errorf("niche %q: %w", id, domain.ErrNotFound)
}

// List returns copies of all niches.
func (s *NicheStore) List() []domain.Niche {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneNiches(s.niches)
}

// Put validates n and inserts or replaces it.
func (s *NicheStore) Put(n domain.Niche) error {
	if err := n.Validate(); err != nil {
		return err
	}
	n.Normalize()

	s.mu.Lock()
	replaced := false
	for i := range s.niches {
		if s.niches[i].ID == n.ID {
			s.niches[i] = n.Clone()
			replaced = true
			break
		}
	}
	if !replaced {
		s.niches = append(s.niches, n.Clone())
	}
	c := s.bump()
	s.mu.Unlock()

	c.notify()
	return nil
}

// Replace applies update to a copy of the niche with id and stores it if it is
// still valid.
func (s *NicheStore) Replace(id string, update func(n *domain.Niche)) (domain.Niche, error) {
	s.mu.Lock()
	for i := range s.niches {
		if s.niches[i].ID != id {
			continue
		}
		n := s.niches[i].Clone()
		update(&n)
		n.ID = id
		if err := n.Validate(); err != nil {
			s.mu.Unlock()
			return domain.Niche{}, err
		}
		s.niches[i] = n
		c := s.bump()
		s.mu.Unlock()
		c.notify()
		return n.Clone(), nil
	}
	s.mu.Unlock()
	return domain.Niche{}, fmt.Errorf("niche %q: %w", id, domain.ErrNotFound)
}

// SetAll validates and replaces the whole collection.
func (s *NicheStore) SetAll(niches []domain.Niche) error {
	seen := make(map[string]struct{}, len(niches))
	for i := range niches {
		if err := niches[i].Validate(); err != nil {
			return err
		}
		if _, dup := seen[niches[i].ID]; dup {
			return &domain.ValidationError{Field: "id", Reason: fmt.Sprintf("duplicate niche %q", niches[i].ID)}
		}
		seen[niches[i].ID] = struct{}{}
	}
	next := cloneNiches(niches)
	for i := range next {
		next[i].Normalize()
	}

	s.mu.Lock()
	s.niches = next
	c := s.bump()
	s.mu.Unlock()

	c.notify()
	return nil
}

// Delete removes the niche with id.
func (s *NicheStore) Delete(id string) error {
	s.mu.Lock()
	for i := range s.niches {
		if s.niches[i].ID == id {
			s.niches = append(s.niches[:i:i], s.niches[i+1:]...)
			c := s.bump()
			s.mu.Unlock()
			c.notify()
			return nil
		}
	}
	s.mu.Unlock()
	return fmt.Errorf("niche %q: %w", id, domain.ErrNotFound)
}

// Reset replaces the collection without notifying listeners. Stored niches are
// normalized on the way in.
func (s *NicheStore) Reset(niches []domain.Niche) {
	next := cloneNiches(niches)
	for i := range next {
		next[i].Normalize()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.niches = next
}

// bump advances the version under the write lock held by the caller.
func (s *NicheStore) bump() change[domain.Niche] {
	s.version++
	if len(s.onChange) == 0 {
		return change[domain.Niche]{}
	}
	return change[domain.Niche]{
		version:  s.version,
		snapshot: cloneNiches(s.niches),
		hooks:    append([]ChangeFunc[domain.Niche](nil), s.onChange...),
	}
}

func cloneNiches(in []domain.Niche) []domain.Niche {
	out := make([]domain.Niche, len(in))
	for i, n := range in {
		out[i] = n.Clone()
	}
	return out
}
