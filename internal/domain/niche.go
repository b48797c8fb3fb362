package domain

import (
	"strings"
	"time"
)

// PromptRevision records a previous version of a niche prompt.
type PromptRevision struct {
	Kind      string    `json:"kind"` // structure or script
	Prompt    string    `json:"prompt"`
	ChangedAt time.Time `json:"changedAt"`
}

// Niche is a content niche with its default request settings and prompt templates.
type Niche struct {
	ID                       string           `json:"id"`
	Name                     string           `json:"name"`
	DefaultDuration          float64          `json:"defaultDuration"`
	DefaultStructureVariants float64          `json:"defaultStructureVariants"`
	DefaultScriptVariants    float64          `json:"defaultScriptVariants"`
	CustomStructurePrompt    string           `json:"customStructurePrompt,omitempty"`
	CustomScriptPrompt       string           `json:"customScriptPrompt,omitempty"`
	WorkflowDescription      string           `json:"workflowDescription,omitempty"`
	AnalyzedKeywords         []string         `json:"analyzedKeywords,omitempty"`
	AnalyzedTitles           []string         `json:"analyzedTitles,omitempty"`
	PromptHistory            []PromptRevision `json:"promptHistory"`
}

// Validate checks the niche defaults.
func (n *Niche) Validate() error {
	if strings.TrimSpace(n.ID) == "" {
		return &ValidationError{Field: "id", Reason: "must not be empty"}
	}
	if strings.TrimSpace(n.Name) == "" {
		return &ValidationError{Field: "name", Reason: "must not be empty"}
	}
	if err := validateDuration("defaultDuration", n.DefaultDuration); err != nil {
		return err
	}
	if err := validateCount("defaultStructureVariants", n.DefaultStructureVariants); err != nil {
		return err
	}
	return validateCount("defaultScriptVariants", n.DefaultScriptVariants)
}

// Normalize fills zero defaults the same way stored niches from older versions are read.
func (n *Niche) Normalize() {
	if n.DefaultDuration <= 0 {
		n.DefaultDuration = 10
	}
	if n.DefaultStructureVariants < 1 {
		n.DefaultStructureVariants = 1
	}
	if n.DefaultScriptVariants < 1 {
		n.DefaultScriptVariants = 1
	}
	if n.PromptHistory == nil {
		n.PromptHistory = []PromptRevision{}
	}
}

// Clone returns a deep copy.
func (n Niche) Clone() Niche {
	c := n
	if n.PromptHistory != nil {
		c.PromptHistory = append([]PromptRevision(nil), n.PromptHistory...)
	}
	if n.AnalyzedKeywords != nil {
		c.AnalyzedKeywords = append([]string(nil), n.AnalyzedKeywords...)
	}
	if n.AnalyzedTitles != nil {
		c.AnalyzedTitles = append([]string(nil), n.AnalyzedTitles...)
	}
	return c
}
