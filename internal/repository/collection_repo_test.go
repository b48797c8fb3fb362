package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, Migrate(db))
	return db
}

func TestCollectionRepository_SaveAndGet(t *testing.T) {
	repo := NewCollectionRepository(newTestDB(t))
	ctx := context.Background()

	_, err := repo.Get(ctx, domain.CollectionProjects)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.Save(ctx, domain.CollectionProjects, []byte(`[{"id":1}]`)))
	c, err := repo.Get(ctx, domain.CollectionProjects)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1}]`, string(c.Data))

	require.NoError(t, repo.Save(ctx, domain.CollectionProjects, []byte(`[{"id":1},{"id":2}]`)))
	c, err = repo.Get(ctx, domain.CollectionProjects)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":1},{"id":2}]`, string(c.Data))
	assert.False(t, c.UpdatedAt.IsZero())
}

func TestCollectionRepository_RejectsNonArray(t *testing.T) {
	repo := NewCollectionRepository(newTestDB(t))
	err := repo.Save(context.Background(), domain.CollectionNiches, []byte(`{"id":"war"}`))
	assert.ErrorIs(t, err, domain.ErrValidationFailed)
}

func TestCollectionRepository_NamesAndDelete(t *testing.T) {
	repo := NewCollectionRepository(newTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, domain.CollectionProjects, []byte(`[]`)))
	require.NoError(t, repo.Save(ctx, domain.CollectionNiches, []byte(`[]`)))

	names, err := repo.Names(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"niches", "projects"}, names)

	require.NoError(t, repo.Delete(ctx, domain.CollectionNiches))
	_, err = repo.Get(ctx, domain.CollectionNiches)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
