package provider

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
)

// ExtractJSON removes markdown code fences and surrounding chatter from model output
// and returns the span from the first '{' or '[' to the last '}' or ']'.
func ExtractJSON(content string) (json.RawMessage, error) {
	clean := strings.ReplaceAll(content, "```json", "")
	clean = strings.ReplaceAll(clean, "```", "")
	clean = strings.TrimSpace(clean)

	start := strings.IndexAny(clean, "{[")
	end := strings.LastIndexAny(clean, "}]")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("%w: no JSON found in response", domain.ErrMalformedResponse)
	}

	candidate := clean[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return nil, fmt.Errorf("%w: invalid JSON in response: %s", domain.ErrMalformedResponse, snippet(candidate))
	}
	return json.RawMessage(candidate), nil
}

func snippet(s string) string {
	r := []rune(s)
	if len(r) > 200 {
		return string(r[:200]) + "..."
	}
	return s
}
