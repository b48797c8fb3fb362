// Package persistence loads and saves whole project and niche collections, against
// a remote collections API when a session is available and a local database always.
package persistence

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
)

// Collections reads and writes whole named collections as JSON arrays.
type Collections interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, data []byte) error
}

// LoadProjects decodes the projects collection. A missing collection is empty.
func LoadProjects(ctx context.Context, c Collections) ([]domain.Project, error) {
	var projects []domain.Project
	if err := load(ctx, c, domain.CollectionProjects, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// SaveProjects writes the whole projects collection.
func SaveProjects(ctx context.Context, c Collections, projects []domain.Project) error {
	if projects == nil {
		projects = []domain.Project{}
	}
	return save(ctx, c, domain.CollectionProjects, projects)
}

// LoadNiches decodes the niches collection. A missing collection is empty.
func LoadNiches(ctx context.Context, c Collections) ([]domain.Niche, error) {
	var niches []domain.Niche
	if err := load(ctx, c, domain.CollectionNiches, &niches); err != nil {
		return nil, err
	}
	return niches, nil
}

// SaveNiches writes the whole niches collection.
func SaveNiches(ctx context.Context, c Collections, niches []domain.Niche) error {
	if niches == nil {
		niches = []domain.Niche{}
	}
	return save(ctx, c, domain.CollectionNiches, niches)
}

func load(ctx context.Context, c Collections, name string, dst interface{}) error {
	data, err := c.Load(ctx, name)
	if err != nil {
		return err
	}
	if isEmpty(data) {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}

func save(ctx context.Context, c Collections, name string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return c.Save(ctx, name, data)
}

// isEmpty reports whether data holds no records.
func isEmpty(data []byte) bool {
	t := bytes.TrimSpace(data)
	return len(t) == 0 || bytes.Equal(t, []byte("[]")) || bytes.Equal(t, []byte("null"))
}
