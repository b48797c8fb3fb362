package domain

import (
	"fmt"
	"math"
	"time"
)

// TopicRequest is one submitted content request. It is never mutated after submission.
type TopicRequest struct {
	Title             string     `json:"title"`
	NicheID           string     `json:"nicheId"`
	DurationMinutes   float64    `json:"durationMinutes"`
	StructureVariants float64    `json:"structureVariants"`
	ScriptVariants    float64    `json:"scriptVariants"`
	Instructions      string     `json:"instructions,omitempty"`
	Model             string     `json:"model,omitempty"`
	ReleaseDate       *time.Time `json:"releaseDate,omitempty"`
}

// Upper bounds on a single request. A request expands into
// MaxVariants*MaxVariants projects at most.
const (
	MaxVariants        = 20
	MaxDurationMinutes = 600
)

// Validate rejects non-positive, fractional or oversized counts, durations outside
// (0, MaxDurationMinutes] and titles that would make the variant tag ambiguous.
func (r *TopicRequest) Validate() error {
	if err := ValidateBaseTitle(r.Title); err != nil {
		return err
	}
	if err := validateDuration("durationMinutes", r.DurationMinutes); err != nil {
		return err
	}
	if err := validateCount("structureVariants", r.StructureVariants); err != nil {
		return err
	}
	return validateCount("scriptVariants", r.ScriptVariants)
}

func validateCount(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v != math.Trunc(v) {
		return &ValidationError{Field: field, Reason: "must be an integer"}
	}
	if v < 1 {
		return &ValidationError{Field: field, Reason: "must be at least 1"}
	}
	if v > MaxVariants {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be at most %d", MaxVariants)}
	}
	return nil
}

func validateDuration(field string, v float64) error {
	if !(v > 0) {
		return &ValidationError{Field: field, Reason: "must be positive"}
	}
	if v > MaxDurationMinutes {
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must be at most %d", MaxDurationMinutes)}
	}
	return nil
}
