package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"
)

// StructureSection is one ordered unit of a project outline.
type StructureSection struct {
	Title             string `json:"title"`
	TitleUa           string `json:"titleUa"`
	Description       string `json:"description"`
	DescriptionUa     string `json:"descriptionUa"`
	EstimatedDuration string `json:"estimatedDuration"`
}

// ScriptSection is the narrative generated for the structure section at the same index.
type ScriptSection struct {
	ID           string  `json:"id"`
	SectionTitle string  `json:"sectionTitle"`
	ContentEn    string  `json:"contentEn"`
	ContentUa    string  `json:"contentUa"`
	IsGenerating bool    `json:"isGenerating"`
	Scenes       []Scene `json:"warScenes,omitempty"`
}

// Scene is one illustrated segment of a script section: a verbatim excerpt and the
// image prompt drawn for it.
type Scene struct {
	SegmentText   string `json:"segmentText"`
	SegmentTextUa string `json:"segmentTextUa"`
	ImagePrompt   string `json:"imagePrompt"`
	ImagePromptUa string `json:"imagePromptUa"`
}

// ImageAsset is a generated illustration stored in object storage.
type ImageAsset struct {
	PromptEn string `json:"promptEn"`
	PromptUa string `json:"promptUa"`
	Key      string `json:"key,omitempty"`
	URL      string `json:"url,omitempty"`
}

// Project is one schedulable unit of generation work.
type Project struct {
	ID       int64  `json:"id"`
	BatchID  string `json:"batchId"`
	Title    string `json:"title"`
	Filename string `json:"filename"`

	// Variant is derived from Title when decoding and never serialized.
	Variant VariantIdentity `json:"-"`

	NicheID           string     `json:"nicheId"`
	DurationMinutes   float64    `json:"durationMinutes"`
	StructureVariants int        `json:"structureVariants"`
	ScriptVariants    int        `json:"scriptVariants"`
	ReleaseDate       *time.Time `json:"releaseDate,omitempty"`
	Model             string     `json:"model,omitempty"`

	Structure   []StructureSection `json:"structure"`
	ScriptParts []ScriptSection    `json:"scriptParts"`
	Images      []ImageAsset       `json:"images,omitempty"`

	StructureGenerating bool `json:"structureGenerating"`
	ScriptGenerating    bool `json:"scriptGenerating"`
	Completed           bool `json:"completed"`

	StructureInstructions string `json:"structureInstructions,omitempty"`
	ScriptInstructions    string `json:"scriptInstructions,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UnmarshalJSON restores Variant from the display title.
func (p *Project) UnmarshalJSON(data []byte) error {
	type alias Project
	var raw alias
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = Project(raw)
	p.Variant = DecodeTitle(p.Title)
	return nil
}

// GroupKey identifies the structure group of the project. Projects without a
// structure variant index are their own group.
func (p *Project) GroupKey() string {
	if p.Variant.StructIdx > 0 {
		return fmt.Sprintf("%s/s%d", p.BatchID, p.Variant.StructIdx)
	}
	return fmt.Sprintf("id/%d", p.ID)
}

// Busy reports whether any generation flag of the project is set.
func (p Project) Busy() bool {
	if p.StructureGenerating || p.ScriptGenerating {
		return true
	}
	for _, part := range p.ScriptParts {
		if part.IsGenerating {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so store snapshots never share slices.
func (p Project) Clone() Project {
	c := p
	if p.ReleaseDate != nil {
		d := *p.ReleaseDate
		c.ReleaseDate = &d
	}
	if p.Structure != nil {
		c.Structure = append([]StructureSection(nil), p.Structure...)
	}
	if p.ScriptParts != nil {
		c.ScriptParts = append([]ScriptSection(nil), p.ScriptParts...)
		for i := range c.ScriptParts {
			if c.ScriptParts[i].Scenes != nil {
				c.ScriptParts[i].Scenes = append([]Scene(nil), c.ScriptParts[i].Scenes...)
			}
		}
	}
	if p.Images != nil {
		c.Images = append([]ImageAsset(nil), p.Images...)
	}
	return c
}

// SectionID returns the stable id of the script section at index.
func SectionID(projectID int64, index int) string {
	return fmt.Sprintf("proj-%d-part-%d", projectID, index)
}

// FilenameFromTitle keeps Latin and Ukrainian letters, digits and spaces, replaces
// everything else with '_' and caps the result at 50 runes.
func FilenameFromTitle(title string) string {
	var b strings.Builder
	for _, r := range title {
		if isFilenameRune(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	out := []rune(strings.TrimSpace(b.String()))
	if len(out) > 50 {
		out = out[:50]
	}
	return string(out)
}

func isFilenameRune(r rune) bool {
	switch {
	case r == ' ':
		return true
	case r < unicode.MaxASCII:
		return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
	}
	l := unicode.ToLower(r)
	return (l >= 'а' && l <= 'я') || l == 'і' || l == 'ї' || l == 'є' || l == 'ґ'
}
