package domain

import (
	"errors"
	"fmt"
	"time"
)

// Error taxonomy shared by the generation core, persistence and the API layer.
var (
	ErrRateLimited       = errors.New("rate limited")
	ErrMalformedResponse = errors.New("malformed response")
	ErrTimeout           = errors.New("generation timeout")
	ErrAuthRequired      = errors.New("authentication required")
	ErrValidationFailed  = errors.New("validation failed")
	ErrGenerationFailed  = errors.New("generation failed")
	ErrNotFound          = errors.New("not found")
)

// GenerationError attaches project and section context to a failed provider call.
type GenerationError struct {
	Op        string
	ProjectID int64
	Section   int // -1 when not section scoped
	Chunk     int // -1 when not chunk scoped
	Err       error
}

func (e *GenerationError) Error() string {
	switch {
	case e.Section >= 0:
		return fmt.Sprintf("%s: project %d section %d: %v", e.Op, e.ProjectID, e.Section+1, e.Err)
	case e.Chunk >= 0:
		return fmt.Sprintf("%s: project %d chunk %d: %v", e.Op, e.ProjectID, e.Chunk+1, e.Err)
	default:
		return fmt.Sprintf("%s: project %d: %v", e.Op, e.ProjectID, e.Err)
	}
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// PartialGenerationError reports a chunked structure run that stopped early but kept
// the sections produced before the failure.
type PartialGenerationError struct {
	Completed int
	Planned   int
	Cause     error
}

func (e *PartialGenerationError) Error() string {
	return fmt.Sprintf("structure generation stopped after %d of %d sections: %v", e.Completed, e.Planned, e.Cause)
}

func (e *PartialGenerationError) Unwrap() error {
	return e.Cause
}

// ValidationError describes a rejected caller input.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidationFailed
}

// NoticeLevel classifies a user-visible notice.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a human-readable report of an absorbed failure or a mode change.
type Notice struct {
	Level     NoticeLevel `json:"level"`
	Message   string      `json:"message"`
	ProjectID int64       `json:"projectId,omitempty"`
	Time      time.Time   `json:"time"`
}

// ErrorKind returns the taxonomy name for err, used in notices and API payloads.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidationFailed):
		return "ValidationFailed"
	case errors.Is(err, ErrAuthRequired):
		return "AuthRequired"
	case errors.Is(err, ErrNotFound):
		return "NotFound"
	case errors.Is(err, ErrGenerationFailed):
		return "GenerationFailed"
	case errors.Is(err, ErrRateLimited):
		return "RateLimited"
	case errors.Is(err, ErrMalformedResponse):
		return "MalformedResponse"
	case errors.Is(err, ErrTimeout):
		return "Timeout"
	default:
		return "GenerationFailed"
	}
}
