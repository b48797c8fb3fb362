package prompts

import "strings"

// ============================================================================
// System prompts
// ============================================================================

const (
	StructureSystemPrompt      = "You are an expert story strategist. Output strictly JSON."
	ScriptSystemPrompt         = "You are a professional scriptwriter. Return JSON."
	RewriteSystemPrompt        = "You are a professional script editor. Return JSON."
	RefineSystemPrompt         = "You are a professional script editor. JSON only."
	PromptEngineerSystemPrompt = "You are an expert prompt engineer. JSON only."
	VisualDirectorSystemPrompt = "You are an elite visual director. JSON only."
)

// structureOutputFormat is appended to every structure template.
const structureOutputFormat = `
OUTPUT JSON FORMAT (STRICT):
{
  "items": [
    {
      "title": "Part title",
      "titleUa": "Part title in Ukrainian",
      "description": "What happens in this part, 3-5 sentences",
      "descriptionUa": "The same description in Ukrainian",
      "estimatedDuration": "1-2 min"
    }
  ]
}`

// scriptOutputFormat is appended to every script template.
const scriptOutputFormat = `
OUTPUT JSON FORMAT (STRICT):
{
  "scriptEnglish": "Full script text in English",
  "scriptUkrainian": "Full script text in Ukrainian"
}`

// ============================================================================
// Built-in niche templates
// ============================================================================

const caprioStructureTemplate = `TASK: Develop a detailed episode structure of {{TOTAL_PARTS}} parts for the story "{{TITLE}}" (niche: courtroom drama with Judge Frank Caprio).
Target length: {{DURATION}} minutes.
Each part needs a vivid description of 3-5 long sentences with visual details and emotions.
The story highlights compassion, justice and human connection.` + structureOutputFormat

const slaveryStructureTemplate = `You write audio stories for a historical documentary channel about slavery.
Topic: "{{TITLE}}". Target length: {{DURATION}} minutes, {{TOTAL_PARTS}} parts in total.
Tone: somber, respectful, immersive and historically accurate.
Arc: a hook in the middle of a scene, historical context, the inciting incident, rising struggle, the climax, the aftermath.` + structureOutputFormat

const warStructureTemplate = `STORY TITLE: {{TITLE}}
Build a cold, detailed and realistic structure of {{TOTAL_PARTS}} parts for a documentary style audio story about a modern large scale war.
The structure must be documentary, clear for a 50+ audience, focused on physically possible events and on the mass behaviour of ordinary people, with natural tension and no Hollywood devices.` + structureOutputFormat

const caprioScriptTemplate = `You are an elite scriptwriter for the "Judge Caprio Stories" niche.
Video title: "{{TITLE}}"
Structure context:
{{STRUCTURE_TEXT}}

CURRENT TASK: write PART {{CURRENT_PART_NUM}} of {{TOTAL_PARTS}}.
Target length: {{MIN_LENGTH}}-{{MAX_LENGTH}} characters ({{MIN_WORDS}}-{{MAX_WORDS}} words).
Rules: pure narrative, heartwarming and just, focus on dialogue and reactions.` + scriptOutputFormat

const slaveryScriptTemplate = `You are an elite scriptwriter for the "Slavery Stories" niche.
Video title: "{{TITLE}}"
Structure context:
{{STRUCTURE_TEXT}}

CURRENT TASK: write PART {{CURRENT_PART_NUM}} of {{TOTAL_PARTS}}.
Target length: {{MIN_LENGTH}}-{{MAX_LENGTH}} characters ({{MIN_WORDS}}-{{MAX_WORDS}} words).
Rules: first person or a close narrator, somber and historical, strong sensory detail.` + scriptOutputFormat

const warScriptTemplate = `Write the story in English in a hyperrealistic documentary genre using the structure below.
Do not use labels such as "Part 1", "Scene" or "Narrator". Transitions must be natural.

TARGET LENGTH: {{MIN_WORDS}} to {{MAX_WORDS}} words, {{MIN_LENGTH}} to {{MAX_LENGTH}} characters.
STYLE: no pathos, simple short sentences, cold documentary tone, no heroization, mass psychology, ready for voiceover.

STRUCTURE:
{{STRUCTURE_TEXT}}

TASK: write PART {{CURRENT_PART_NUM}} of {{TOTAL_PARTS}}.` + scriptOutputFormat

// BuiltinTemplates holds the structure and script templates of a built-in niche.
type BuiltinTemplates struct {
	Structure string
	Script    string
	Workflow  string
}

var builtins = map[string]BuiltinTemplates{
	"caprio": {
		Structure: caprioStructureTemplate,
		Script:    caprioScriptTemplate,
		Workflow:  "Emotional courtroom stories. Focus on dialogue and human emotions.",
	},
	"slavery": {
		Structure: slaveryStructureTemplate,
		Script:    slaveryScriptTemplate,
		Workflow:  "First person historical documentaries. Historical accuracy and a somber atmosphere matter most.",
	},
	"war": {
		Structure: warStructureTemplate,
		Script:    warScriptTemplate,
		Workflow:  "Hyperrealism. Combat, tactics and soldier psychology. Minimum pathos, maximum detail.",
	},
}

// Builtin returns the built-in templates matching nicheID. Unknown niches fall back
// to the courtroom templates.
func Builtin(nicheID string) BuiltinTemplates {
	id := strings.ToLower(nicheID)
	for _, key := range []string{"slavery", "war", "caprio"} {
		if strings.Contains(id, key) {
			return builtins[key]
		}
	}
	return builtins["caprio"]
}

// BuiltinIDs lists the ids of the built-in niches in display order.
func BuiltinIDs() []string {
	return []string{"caprio", "slavery", "war"}
}
