// Package storage keeps generated artifacts (images, script exports) in
// S3-compatible object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"path"
)

// ObjectStorage defines the interface for object storage operations
type ObjectStorage interface {
	// Upload uploads an object to storage
	Upload(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Download downloads an object from storage
	Download(ctx context.Context, key string) (io.ReadCloser, error)

	// GetURL returns the URL for accessing an object
	GetURL(key string) string

	// Delete deletes an object from storage
	Delete(ctx context.Context, key string) error

	// Exists checks if an object exists
	Exists(ctx context.Context, key string) (bool, error)
}

// ImageKey returns the object key of a generated image.
func ImageKey(projectID int64, name string) string {
	return path.Join("projects", fmt.Sprint(projectID), "images", name)
}

// ExportKey returns the object key of a plain-text script export.
func ExportKey(projectID int64, filename, lang string) string {
	if filename == "" {
		filename = fmt.Sprintf("project-%d", projectID)
	}
	return path.Join("projects", fmt.Sprint(projectID), "exports", fmt.Sprintf("%s.%s.txt", filename, lang))
}

// ProjectPrefix returns the key prefix holding every artifact of a project.
func ProjectPrefix(projectID int64) string {
	return path.Join("projects", fmt.Sprint(projectID)) + "/"
}
