package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
)

// CollectionRepository stores named JSON collections, one row per collection.
type CollectionRepository struct {
	db *gorm.DB
}

// NewCollectionRepository creates a new CollectionRepository.
// Parameters:
//   - db: GORM database handle used for queries.
// Returns:
//   - *CollectionRepository: repository instance bound to db.
func NewCollectionRepository(db *gorm.DB) *CollectionRepository {
	return &CollectionRepository{db: db}
}

// Get retrieves a collection by name.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - name: collection name.
// Returns:
//   - *domain.Collection: stored collection.
//   - error: wraps domain.ErrNotFound when nothing is stored under name.
func (r *CollectionRepository) Get(ctx context.Context, name string) (*domain.Collection, error) {
	var c domain.Collection
	err := r.db.WithContext(ctx).First(&c, "name = ?", name).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("collection %q: %w", name, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Save creates or replaces the collection stored under name.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - name: collection name.
//   - data: JSON array with the whole collection.
// Returns:
//   - error: non-nil if data is not a JSON array or the upsert fails.
func (r *CollectionRepository) Save(ctx context.Context, name string, data []byte) error {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return &domain.ValidationError{Field: "items", Reason: "must be a JSON array"}
	}

	row := domain.Collection{
		Name:      name,
		Data:      domain.JSONArray(data),
		UpdatedAt: time.Now(),
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"data", "updated_at"}),
	}).Create(&row).Error
}

// Names lists stored collection names.
func (r *CollectionRepository) Names(ctx context.Context) ([]string, error) {
	var names []string
	err := r.db.WithContext(ctx).Model(&domain.Collection{}).Order("name").Pluck("name", &names).Error
	return names, err
}

// Delete removes a collection.
func (r *CollectionRepository) Delete(ctx context.Context, name string) error {
	return r.db.WithContext(ctx).Delete(&domain.Collection{}, "name = ?", name).Error
}
