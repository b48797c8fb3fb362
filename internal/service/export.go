package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/logger"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/storage"
)

// Export languages.
const (
	LangEnglish   = "en"
	LangUkrainian = "ua"
)

var (
	// Section headings the model sometimes writes into the narrative.
	headingLine = regexp.MustCompile(`(?im)^(Part\s+\d+|Section\s+\d+|#|\*\*Part).*`)
	unsafeName  = regexp.MustCompile(`(?i)[^a-z0-9а-яіїєґ_\- ]`)
)

// Export is a plain-text rendition of a project's script.
type Export struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
	URL      string `json:"url,omitempty"`
}

// ExportText joins the script sections of p in lang, dropping heading lines and
// empty sections.
func ExportText(p domain.Project, lang string) string {
	parts := make([]string, 0, len(p.ScriptParts))
	for _, part := range p.ScriptParts {
		text := part.ContentEn
		if lang == LangUkrainian {
			text = part.ContentUa
		}
		text = strings.TrimSpace(headingLine.ReplaceAllString(text, ""))
		if text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n\n")
}

// ExportFilename returns the download name for p, preferring name when given.
func ExportFilename(p domain.Project, name string) string {
	base := strings.TrimSpace(name)
	if base == "" {
		base = p.Filename
	}
	if base == "" {
		base = "script"
	}
	return unsafeName.ReplaceAllString(base, "_") + ".txt"
}

// Export renders the script of a project. With object storage configured the
// text is also uploaded and its URL returned.
// Parameters:
//   - ctx: request context.
//   - id: project id.
//   - lang: "en" (default) or "ua".
//   - name: optional download name without extension.
//
// Returns:
//   - *Export: filename, content and optional URL.
//   - error: NotFound for an unknown project, ValidationFailed for an unknown language.
func (s *ProjectService) Export(ctx context.Context, id int64, lang, name string) (*Export, error) {
	switch lang {
	case "":
		lang = LangEnglish
	case LangEnglish, LangUkrainian:
	default:
		return nil, &domain.ValidationError{Field: "lang", Reason: fmt.Sprintf("unsupported language %q", lang)}
	}

	p, err := s.projects.Get(id)
	if err != nil {
		return nil, err
	}

	out := &Export{
		Filename: ExportFilename(p, name),
		Content:  ExportText(p, lang),
	}
	if s.storage == nil {
		return out, nil
	}

	key := storage.ExportKey(p.ID, strings.TrimSuffix(out.Filename, ".txt"), lang)
	body := strings.NewReader(out.Content)
	if err := s.storage.Upload(ctx, key, body, int64(body.Len()), "text/plain; charset=utf-8"); err != nil {
		logger.CtxWarn(ctx, "Failed to upload export of project %d: %v", p.ID, err)
		return out, nil
	}
	out.URL = s.storage.GetURL(key)
	return out, nil
}
