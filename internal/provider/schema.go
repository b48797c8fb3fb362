package provider

import "github.com/google/generative-ai-go/genai"

// SchemaType is the JSON type of a schema node.
type SchemaType string

const (
	TypeString SchemaType = "string"
	TypeObject SchemaType = "object"
	TypeArray  SchemaType = "array"
)

// Schema describes the JSON document a Request expects back. Adapters that support
// constrained decoding pass it to the model; the decoders validate the result either way.
type Schema struct {
	Type       SchemaType
	Properties map[string]*Schema
	Items      *Schema
	Required   []string
}

// StringSchema is a plain string node.
func StringSchema() *Schema {
	return &Schema{Type: TypeString}
}

// ObjectSchema builds an object whose listed properties are all strings. required
// names the ones the decoder insists on.
func ObjectSchema(props []string, required ...string) *Schema {
	s := &Schema{Type: TypeObject, Properties: make(map[string]*Schema, len(props)), Required: required}
	for _, p := range props {
		s.Properties[p] = StringSchema()
	}
	return s
}

// ItemsSchema wraps a list of item in {"items": [...]}.
func ItemsSchema(item *Schema) *Schema {
	return &Schema{
		Type:       TypeObject,
		Properties: map[string]*Schema{"items": {Type: TypeArray, Items: item}},
		Required:   []string{"items"},
	}
}

// Response schemas matching the decoders in this package.
var (
	StructureSchema = ItemsSchema(ObjectSchema(
		[]string{"title", "titleUa", "description", "descriptionUa", "estimatedDuration"},
		"title", "description"))

	ScenesSchema = ItemsSchema(ObjectSchema(
		[]string{"segmentText", "segmentTextUa", "imagePrompt", "imagePromptUa"},
		"segmentText", "segmentTextUa", "imagePrompt", "imagePromptUa"))

	ScriptSchema        = ObjectSchema([]string{"scriptEnglish", "scriptUkrainian"}, "scriptEnglish")
	ImagePromptsSchema  = ItemsSchema(ObjectSchema([]string{"en", "ua"}, "en"))
	RefinedPromptSchema = ObjectSchema([]string{"refinedPrompt"}, "refinedPrompt")
	ImagePromptSchema   = ObjectSchema([]string{"imagePrompt"}, "imagePrompt")
	NicheAnalysisSchema = ObjectSchema([]string{"structurePrompt", "scriptPrompt"}, "structurePrompt", "scriptPrompt")
	KeywordsSchema      = ItemsSchema(StringSchema())
)

// toGenaiSchema converts s for the Gemini response_schema option.
func toGenaiSchema(s *Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	out := &genai.Schema{Required: s.Required}
	switch s.Type {
	case TypeObject:
		out.Type = genai.TypeObject
	case TypeArray:
		out.Type = genai.TypeArray
	default:
		out.Type = genai.TypeString
	}
	if s.Items != nil {
		out.Items = toGenaiSchema(s.Items)
	}
	if len(s.Properties) > 0 {
		out.Properties = make(map[string]*genai.Schema, len(s.Properties))
		for name, p := range s.Properties {
			out.Properties[name] = toGenaiSchema(p)
		}
	}
	return out
}
