package prompts

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	AnalystSystemPrompt = "You are a YouTube content analyst. JSON only."

	// ImageStyleTemplate is the shape every refined image prompt follows.
	ImageStyleTemplate = "Hyper-realistic, ultra-detailed [TYPE OF SHOT OR SCENE]..."

	// SceneImageStyle prefixes every scene prompt verbatim.
	SceneImageStyle = "Stylized cinematic post-apocalyptic digital illustration with dramatic orange-red palette, " +
		"retro Cold War propaganda-poster aesthetic, expressive painterly brushstrokes, high-contrast lighting, " +
		"atmospheric smoke and glowing haze. Slightly exaggerated proportions, graphic shapes, bold silhouettes, " +
		"textured shading, matte-painted background. Not photorealistic, illustrated, stylized, poster-like. " +
		"Strong emotional tension, dramatic composition, survival-theme mood. Perfect for YouTube thumbnails."
)

// Source text limits for the visual and analysis prompts.
const (
	MaxVisualSourceRunes = 15000
	MaxTranscriptRunes   = 5000
	DefaultSceneMinChars = 200
	DefaultSceneMaxChars = 400
)

var unsafeTerms = []struct {
	pattern     *regexp.Regexp
	replacement string
}{
	{regexp.MustCompile(`(?i)blood`), "crimson fluid"},
	{regexp.MustCompile(`(?i)kill`), "eliminate"},
	{regexp.MustCompile(`(?i)corpse`), "fallen figure"},
	{regexp.MustCompile(`(?i)dead`), "lifeless"},
	{regexp.MustCompile(`(?i)violent`), "intense"},
}

// Sanitize softens terms that image models tend to refuse. Matching is case
// insensitive and also hits the terms inside longer words.
func Sanitize(text string) string {
	for _, t := range unsafeTerms {
		text = t.pattern.ReplaceAllLiteralString(text, t.replacement)
	}
	return text
}

// ScenesPrompt asks for scriptText split into segments of minChars-maxChars with one
// styled image prompt per segment.
func ScenesPrompt(scriptText string, minChars, maxChars int, instructions string) string {
	return fmt.Sprintf(`SOURCE TEXT: %q.
STYLE (USE VERBATIM AS PREFIX): %q.
INSTRUCTIONS: %q.
TASK:
1. Break the text into consecutive chunks of %d-%d characters.
2. Create an image prompt for each chunk: append the specific scene details to the STYLE.
3. Provide Ukrainian translations.
OUTPUT JSON: { "items": [{ "segmentText": "...", "segmentTextUa": "...", "imagePrompt": "...", "imagePromptUa": "..." }] }`,
		truncateRunes(scriptText, MaxVisualSourceRunes), SceneImageStyle, instructions, minChars, maxChars)
}

// RefinedImagePromptPrompt asks for one image prompt built from sourceText and
// instructions on top of ImageStyleTemplate.
func RefinedImagePromptPrompt(title, niche, sourceText, instructions string) string {
	return fmt.Sprintf(`Title: %q. Niche: %q. Context: %q. Instructions: %q.
TASK: Create a safe, cinematic prompt for an AI image generator based on template: %s
OUTPUT JSON: { "imagePrompt": "..." }`,
		title, niche, Sanitize(truncateRunes(sourceText, MaxVisualSourceRunes)), Sanitize(instructions), ImageStyleTemplate)
}

// TitleAnalysisPrompt asks for the keywords shared by titles.
func TitleAnalysisPrompt(titles []string) string {
	return fmt.Sprintf(`Analyze these titles:
%s
TASK: Extract 3-5 keywords.
OUTPUT JSON: { "items": ["keyword", "..."] }`, strings.Join(titles, "\n"))
}

// NicheAnalysisPrompt asks for structure and script templates that reproduce the
// style of transcripts.
func NicheAnalysisPrompt(nicheName string, transcripts []string) string {
	cut := make([]string, len(transcripts))
	for i, t := range transcripts {
		cut[i] = truncateRunes(t, MaxTranscriptRunes)
	}
	return fmt.Sprintf(`Analyze these transcripts for the niche %q:
%s
TASK: Write two reusable prompt templates for this niche.
structurePrompt plans a video outline and may use the placeholders %s, %s and %s.
scriptPrompt writes one part and may use %s, %s, %s and %s.
OUTPUT JSON: { "structurePrompt": "...", "scriptPrompt": "..." }`,
		nicheName, strings.Join(cut, "\n---\n"),
		TokenTitle, TokenDuration, TokenTotalParts,
		TokenTitle, TokenCurrentPartNum, TokenTotalParts, TokenStructureText)
}
