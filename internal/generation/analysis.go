package generation

import (
	"context"
	"strings"
	"time"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/logger"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/prompts"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/provider"
)

// NicheAnalyzer derives niche settings from sample videos.
type NicheAnalyzer struct {
	*core
}

// AnalyzeTitles extracts the keywords shared by sample video titles.
func (a *NicheAnalyzer) AnalyzeTitles(ctx context.Context, titles []string, model string) ([]string, error) {
	titles = nonBlank(titles)
	if len(titles) == 0 {
		return nil, &domain.ValidationError{Field: "titles", Reason: "at least one title is required"}
	}

	start := time.Now()
	a.cost.Charge(ctx, CostTitleAnalysis, 1)
	raw, err := a.generate(ctx, prompts.AnalystSystemPrompt, prompts.TitleAnalysisPrompt(titles), model, provider.KeywordsSchema)
	if err == nil {
		var words []string
		if words, err = provider.DecodeKeywords(raw); err == nil {
			logger.With(logger.Fields{logger.FieldCount: len(words)}).Since(start).Info(ctx, "Titles analyzed")
			return words, nil
		}
	}
	return nil, &domain.GenerationError{Op: "title analysis", Section: -1, Chunk: -1, Err: err}
}

// AnalyzeContent writes structure and script templates that reproduce the style of
// the sample transcripts. Both templates come from one call.
func (a *NicheAnalyzer) AnalyzeContent(ctx context.Context, nicheName string, transcripts []string, model string) (provider.NicheTemplates, error) {
	nicheName = strings.TrimSpace(nicheName)
	if nicheName == "" {
		return provider.NicheTemplates{}, &domain.ValidationError{Field: "name", Reason: "must not be empty"}
	}
	transcripts = nonBlank(transcripts)
	if len(transcripts) == 0 {
		return provider.NicheTemplates{}, &domain.ValidationError{Field: "transcripts", Reason: "at least one transcript is required"}
	}

	start := time.Now()
	a.cost.Charge(ctx, CostNicheAnalysis, 1)
	raw, err := a.generate(ctx, prompts.AnalystSystemPrompt, prompts.NicheAnalysisPrompt(nicheName, transcripts), model, provider.NicheAnalysisSchema)
	if err == nil {
		var out provider.NicheTemplates
		if out, err = provider.DecodeNicheTemplates(raw); err == nil {
			logger.With(logger.Fields{logger.FieldCount: len(transcripts)}).Since(start).Info(ctx, "Niche content analyzed for %q", nicheName)
			return out, nil
		}
	}
	return provider.NicheTemplates{}, &domain.GenerationError{Op: "niche analysis", Section: -1, Chunk: -1, Err: err}
}

func nonBlank(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
