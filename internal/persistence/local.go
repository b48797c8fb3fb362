package persistence

import (
	"context"
	"errors"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/repository"
)

// LocalCollections keeps collections in the local database.
type LocalCollections struct {
	repo *repository.CollectionRepository
}

// NewLocalCollections creates local collections over repo.
func NewLocalCollections(repo *repository.CollectionRepository) *LocalCollections {
	return &LocalCollections{repo: repo}
}

// Load returns the stored collection, or an empty array when none is stored.
func (l *LocalCollections) Load(ctx context.Context, name string) ([]byte, error) {
	c, err := l.repo.Get(ctx, name)
	if errors.Is(err, domain.ErrNotFound) {
		return []byte("[]"), nil
	}
	if err != nil {
		return nil, err
	}
	return []byte(c.Data), nil
}

// Save stores the collection.
func (l *LocalCollections) Save(ctx context.Context, name string, data []byte) error {
	return l.repo.Save(ctx, name, data)
}
