// Package queue carries generation commands over NATS JetStream so that long
// running generation work can be executed by a separate worker process.
package queue

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
)

// Kind names the generation operation a command asks for.
type Kind string

const (
	KindStructure         Kind = "structure"
	KindScript            Kind = "script"
	KindRegenerate        Kind = "regenerate"
	KindRegenerateSection Kind = "regenerate_section"
	KindRefine            Kind = "refine"
	KindImages            Kind = "images"
)

// ImageSpec describes the image batch of an images command.
type ImageSpec struct {
	SourceText   string `json:"sourceText,omitempty"`
	Instructions string `json:"instructions,omitempty"`
	Quantity     int    `json:"quantity"`
	AspectRatio  string `json:"aspectRatio,omitempty"`
}

// Command is one unit of queued generation work.
type Command struct {
	ID           string     `json:"id"`
	Kind         Kind       `json:"kind"`
	BatchID      string     `json:"batchId,omitempty"`
	ProjectIDs   []int64    `json:"projectIds,omitempty"`
	ProjectID    int64      `json:"projectId,omitempty"`
	Index        int        `json:"index,omitempty"`
	Instructions string     `json:"instructions,omitempty"`
	Image        *ImageSpec `json:"image,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// NewCommand stamps a command with a fresh id and creation time.
func NewCommand(kind Kind) Command {
	return Command{
		ID:        uuid.NewString(),
		Kind:      kind,
		CreatedAt: time.Now(),
	}
}

// Validate checks that the command carries the targets its kind needs.
func (c *Command) Validate() error {
	switch c.Kind {
	case KindStructure:
		if c.BatchID == "" && len(c.ProjectIDs) == 0 {
			return &domain.ValidationError{Field: "batchId", Reason: "structure command needs a batch or project ids"}
		}
	case KindScript:
		if c.ProjectID == 0 && len(c.ProjectIDs) == 0 {
			return &domain.ValidationError{Field: "projectId", Reason: "must be set"}
		}
	case KindRegenerate, KindRefine:
		if c.ProjectID == 0 {
			return &domain.ValidationError{Field: "projectId", Reason: "must be set"}
		}
	case KindRegenerateSection:
		if c.ProjectID == 0 {
			return &domain.ValidationError{Field: "projectId", Reason: "must be set"}
		}
		if c.Index < 0 {
			return &domain.ValidationError{Field: "index", Reason: "must not be negative"}
		}
	case KindImages:
		if c.ProjectID == 0 {
			return &domain.ValidationError{Field: "projectId", Reason: "must be set"}
		}
		if c.Image == nil || c.Image.Quantity < 1 {
			return &domain.ValidationError{Field: "image.quantity", Reason: "must be at least 1"}
		}
	default:
		return &domain.ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown command kind %q", c.Kind)}
	}
	return nil
}

// Target returns a short description for logs.
func (c *Command) Target() string {
	switch {
	case c.BatchID != "":
		return "batch " + c.BatchID
	case len(c.ProjectIDs) > 0:
		return fmt.Sprintf("projects %v", c.ProjectIDs)
	default:
		return fmt.Sprintf("project %d", c.ProjectID)
	}
}
