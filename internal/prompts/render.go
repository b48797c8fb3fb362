package prompts

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
)

// Placeholder tokens understood by niche templates.
const (
	TokenTitle          = "{{TITLE}}"
	TokenDuration       = "{{DURATION}}"
	TokenTotalParts     = "{{TOTAL_PARTS}}"
	TokenCurrentPartNum = "{{CURRENT_PART_NUM}}"
	TokenStructureText  = "{{STRUCTURE_TEXT}}"
	TokenMinLength      = "{{MIN_LENGTH}}"
	TokenMaxLength      = "{{MAX_LENGTH}}"
	TokenMinWords       = "{{MIN_WORDS}}"
	TokenMaxWords       = "{{MAX_WORDS}}"
)

// LengthBounds are the script length limits substituted into script templates.
type LengthBounds struct {
	MinLength int
	MaxLength int
	MinWords  int
	MaxWords  int
}

// DefaultLengthBounds returns 1500-3000 characters and 300-600 words.
func DefaultLengthBounds() LengthBounds {
	return LengthBounds{MinLength: 1500, MaxLength: 3000, MinWords: 300, MaxWords: 600}
}

// Render substitutes every occurrence of the given tokens. Unknown tokens are left
// untouched so template wording is never assumed.
func Render(template string, vars map[string]string) string {
	if len(vars) == 0 {
		return template
	}
	pairs := make([]string, 0, len(vars)*2)
	for token, value := range vars {
		pairs = append(pairs, token, value)
	}
	return strings.NewReplacer(pairs...).Replace(template)
}

// StructureVars builds the substitution set for a structure template.
func StructureVars(title string, durationMinutes float64, totalParts int) map[string]string {
	return map[string]string{
		TokenTitle:      title,
		TokenDuration:   strconv.FormatFloat(durationMinutes, 'f', -1, 64),
		TokenTotalParts: strconv.Itoa(totalParts),
	}
}

// ScriptVars builds the substitution set for a script template at partIndex.
func ScriptVars(title string, structure []domain.StructureSection, partIndex int, bounds LengthBounds) map[string]string {
	return map[string]string{
		TokenTitle:          title,
		TokenStructureText:  StructureText(structure),
		TokenCurrentPartNum: strconv.Itoa(partIndex + 1),
		TokenTotalParts:     strconv.Itoa(len(structure)),
		TokenMinLength:      strconv.Itoa(bounds.MinLength),
		TokenMaxLength:      strconv.Itoa(bounds.MaxLength),
		TokenMinWords:       strconv.Itoa(bounds.MinWords),
		TokenMaxWords:       strconv.Itoa(bounds.MaxWords),
	}
}

// StructureText renders the outline as "[Part i] title: description" lines.
func StructureText(structure []domain.StructureSection) string {
	lines := make([]string, len(structure))
	for i, s := range structure {
		lines[i] = fmt.Sprintf("[Part %d] %s: %s", i+1, s.Title, s.Description)
	}
	return strings.Join(lines, "\n")
}

// PreviousContext summarizes the last n sections for the next structure chunk.
func PreviousContext(sections []domain.StructureSection, n int) string {
	if n > 0 && len(sections) > n {
		sections = sections[len(sections)-n:]
	}
	lines := make([]string, len(sections))
	for i, s := range sections {
		lines[i] = fmt.Sprintf("[%s]: %s...", s.Title, truncateRunes(s.Description, 100))
	}
	return strings.Join(lines, "\n")
}

// StructureChunkPrompt assembles the prompt for one chunk of a structure run.
// previous is empty for the first chunk.
func StructureChunkPrompt(base, workflow, instructions, previous string, start, end int) string {
	var b strings.Builder
	b.WriteString(base)
	if workflow != "" {
		b.WriteString("\n\n[GENERAL WORKFLOW]\n")
		b.WriteString(workflow)
		b.WriteString("\n")
	}
	if previous == "" {
		if instructions != "" {
			b.WriteString("\nUSER INSTRUCTIONS: ")
			b.WriteString(instructions)
		}
	} else {
		b.WriteString("\nPREVIOUS CONTEXT:\n")
		b.WriteString(previous)
	}
	fmt.Fprintf(&b, "\nTASK: Generate PARTS %d-%d. Count: %d.", start, end, end-start+1)
	return b.String()
}

// ScriptPrompt assembles the first-draft prompt for one script section.
func ScriptPrompt(rendered, instructions string, partIndex int) string {
	var b strings.Builder
	b.WriteString(rendered)
	b.WriteString("\n")
	if instructions != "" {
		b.WriteString("USER INSTRUCTIONS: ")
		b.WriteString(instructions)
	}
	fmt.Fprintf(&b, "\nTASK: Write the script for Part %d.", partIndex+1)
	return b.String()
}

// RewritePrompt asks for a rewrite of existing section content.
func RewritePrompt(projectTitle string, partIndex int, currentContent, instructions string) string {
	return fmt.Sprintf(`PROJECT: %s
PART: %d
CURRENT CONTENT:
"""
%s
"""
USER INSTRUCTIONS FOR REWRITE:
"%s"

TASK: Rewrite the script section based on instructions. Keep the same format.
OUTPUT JSON: { "scriptEnglish": "...", "scriptUkrainian": "..." }`, projectTitle, partIndex+1, currentContent, instructions)
}

// RefinePrompt asks for a complete replacement of structureJSON.
func RefinePrompt(structureJSON, instructions string) string {
	return fmt.Sprintf("Current Structure:\n%s\nChange Request: %q\nOutput JSON with 'items' array containing the complete new structure.", structureJSON, instructions)
}

// PromptRefinementPrompt asks for a rewritten niche prompt template.
func PromptRefinementPrompt(current, request string) string {
	return fmt.Sprintf("CURRENT:\n\"\"\"%s\"\"\"\nREQUEST: %q\nTASK: Rewrite the prompt. Output JSON { \"refinedPrompt\": \"...\" }", current, request)
}

// ImagePromptsPrompt asks for quantity illustration prompts for sourceText.
func ImagePromptsPrompt(title, sourceText, instructions string, quantity int) string {
	return fmt.Sprintf(`Title: %q. Context: %q. Instructions: %q.
TASK: Generate %d distinct, safe, cinematic image prompts.
OUTPUT JSON: { "items": [{ "en": "Prompt", "ua": "Description in Ukrainian" }] }`,
		title, Sanitize(truncateRunes(sourceText, MaxVisualSourceRunes)), instructions, quantity)
}

// ImagePrompt decorates a single image prompt for the image model.
func ImagePrompt(prompt string) string {
	return fmt.Sprintf("Generate a high quality image: %s. Style: Cinematic digital art.", Sanitize(prompt))
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
