package provider

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
)

// DecodeStructure reads a list of structure sections. The list may be the document
// itself or any array valued field of a top-level object ("items" is preferred).
// Every section needs a title and a description.
func DecodeStructure(raw json.RawMessage) ([]domain.StructureSection, error) {
	list, err := findArray(raw, "items")
	if err != nil {
		return nil, err
	}

	var sections []domain.StructureSection
	if err := json.Unmarshal(list, &sections); err != nil {
		return nil, fmt.Errorf("%w: structure items: %v", domain.ErrMalformedResponse, err)
	}
	for i, s := range sections {
		if strings.TrimSpace(s.Title) == "" {
			return nil, fmt.Errorf("%w: structure item %d has no title", domain.ErrMalformedResponse, i+1)
		}
		if strings.TrimSpace(s.Description) == "" {
			return nil, fmt.Errorf("%w: structure item %d has no description", domain.ErrMalformedResponse, i+1)
		}
	}
	return sections, nil
}

// ScriptContent is the bilingual text of one script section.
type ScriptContent struct {
	English   string `json:"scriptEnglish"`
	Ukrainian string `json:"scriptUkrainian"`
}

// DecodeScript reads {scriptEnglish, scriptUkrainian}. English text is required.
func DecodeScript(raw json.RawMessage) (ScriptContent, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return ScriptContent{}, fmt.Errorf("%w: script must be an object: %v", domain.ErrMalformedResponse, err)
	}
	var out ScriptContent
	if err := decodeStringField(obj, "scriptEnglish", &out.English, true); err != nil {
		return ScriptContent{}, err
	}
	if err := decodeStringField(obj, "scriptUkrainian", &out.Ukrainian, false); err != nil {
		return ScriptContent{}, err
	}
	return out, nil
}

// ImagePromptPair is one illustration prompt with its Ukrainian description.
type ImagePromptPair struct {
	En string `json:"en"`
	Ua string `json:"ua"`
}

// DecodeImagePrompts reads a list of {en, ua} prompts; each needs an English prompt.
func DecodeImagePrompts(raw json.RawMessage) ([]ImagePromptPair, error) {
	list, err := findArray(raw, "items")
	if err != nil {
		return nil, err
	}
	var prompts []ImagePromptPair
	if err := json.Unmarshal(list, &prompts); err != nil {
		return nil, fmt.Errorf("%w: image prompts: %v", domain.ErrMalformedResponse, err)
	}
	for i, p := range prompts {
		if strings.TrimSpace(p.En) == "" {
			return nil, fmt.Errorf("%w: image prompt %d is empty", domain.ErrMalformedResponse, i+1)
		}
	}
	return prompts, nil
}

// DecodeRefinedPrompt reads {refinedPrompt}.
func DecodeRefinedPrompt(raw json.RawMessage) (string, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", fmt.Errorf("%w: refined prompt must be an object: %v", domain.ErrMalformedResponse, err)
	}
	var out string
	if err := decodeStringField(obj, "refinedPrompt", &out, true); err != nil {
		return "", err
	}
	return out, nil
}

// DecodeScenes reads a non-empty list of scenes. Every field of every scene is required.
func DecodeScenes(raw json.RawMessage) ([]domain.Scene, error) {
	list, err := findArray(raw, "items")
	if err != nil {
		return nil, err
	}
	var items []map[string]json.RawMessage
	if err := json.Unmarshal(list, &items); err != nil {
		return nil, fmt.Errorf("%w: scenes: %v", domain.ErrMalformedResponse, err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: no scenes returned", domain.ErrMalformedResponse)
	}
	scenes := make([]domain.Scene, len(items))
	for i, obj := range items {
		sc := &scenes[i]
		for _, f := range []struct {
			key string
			dst *string
		}{
			{"segmentText", &sc.SegmentText},
			{"segmentTextUa", &sc.SegmentTextUa},
			{"imagePrompt", &sc.ImagePrompt},
			{"imagePromptUa", &sc.ImagePromptUa},
		} {
			if err := decodeStringField(obj, f.key, f.dst, true); err != nil {
				return nil, fmt.Errorf("scene %d: %w", i+1, err)
			}
		}
	}
	return scenes, nil
}

// DecodeImagePrompt reads {imagePrompt}.
func DecodeImagePrompt(raw json.RawMessage) (string, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", fmt.Errorf("%w: image prompt must be an object: %v", domain.ErrMalformedResponse, err)
	}
	var out string
	if err := decodeStringField(obj, "imagePrompt", &out, true); err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// NicheTemplates are the prompt templates derived from sample transcripts.
type NicheTemplates struct {
	StructurePrompt string `json:"structurePrompt"`
	ScriptPrompt    string `json:"scriptPrompt"`
}

// DecodeNicheTemplates reads {structurePrompt, scriptPrompt}; both are required.
func DecodeNicheTemplates(raw json.RawMessage) (NicheTemplates, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return NicheTemplates{}, fmt.Errorf("%w: niche analysis must be an object: %v", domain.ErrMalformedResponse, err)
	}
	var out NicheTemplates
	if err := decodeStringField(obj, "structurePrompt", &out.StructurePrompt, true); err != nil {
		return NicheTemplates{}, err
	}
	if err := decodeStringField(obj, "scriptPrompt", &out.ScriptPrompt, true); err != nil {
		return NicheTemplates{}, err
	}
	return out, nil
}

// DecodeKeywords reads a non-empty list of strings. Blank entries are dropped.
func DecodeKeywords(raw json.RawMessage) ([]string, error) {
	list, err := findArray(raw, "items")
	if err != nil {
		return nil, err
	}
	var words []string
	if err := json.Unmarshal(list, &words); err != nil {
		return nil, fmt.Errorf("%w: keywords must be strings: %v", domain.ErrMalformedResponse, err)
	}
	out := words[:0]
	for _, w := range words {
		if w = strings.TrimSpace(w); w != "" {
			out = append(out, w)
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: no keywords returned", domain.ErrMalformedResponse)
	}
	return out, nil
}

func findArray(raw json.RawMessage, preferred string) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty response", domain.ErrMalformedResponse)
	}
	if trimmed[0] == '[' {
		return trimmed, nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return nil, fmt.Errorf("%w: expected object or array: %v", domain.ErrMalformedResponse, err)
	}
	if v, ok := obj[preferred]; ok && isArray(v) {
		return v, nil
	}
	for _, v := range obj {
		if isArray(v) {
			return v, nil
		}
	}
	return nil, fmt.Errorf("%w: no array found in response", domain.ErrMalformedResponse)
}

func isArray(v json.RawMessage) bool {
	t := bytes.TrimSpace(v)
	return len(t) > 0 && t[0] == '['
}

func decodeStringField(obj map[string]json.RawMessage, key string, dst *string, required bool) error {
	v, ok := obj[key]
	if !ok {
		if required {
			return fmt.Errorf("%w: missing %q", domain.ErrMalformedResponse, key)
		}
		return nil
	}
	if err := json.Unmarshal(v, dst); err != nil {
		return fmt.Errorf("%w: %q must be a string", domain.ErrMalformedResponse, key)
	}
	if required && strings.TrimSpace(*dst) == "" {
		return fmt.Errorf("%w: %q is empty", domain.ErrMalformedResponse, key)
	}
	return nil
}
