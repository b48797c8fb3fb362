package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/generation"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/logger"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/prompts"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/store"
)

// Prompt kinds a niche can customise.
const (
	PromptStructure = "structure"
	PromptScript    = "script"
)

// NicheService manages niche configurations and their prompt templates.
type NicheService struct {
	niches   *store.NicheStore
	refiner  *generation.RefinementApplier
	analyzer *generation.NicheAnalyzer
}

// NewNicheService creates a niche service. refiner and analyzer may be nil when no
// provider is configured; the calls that need them then fail with GenerationFailed.
func NewNicheService(niches *store.NicheStore, refiner *generation.RefinementApplier, analyzer *generation.NicheAnalyzer) *NicheService {
	return &NicheService{niches: niches, refiner: refiner, analyzer: analyzer}
}

// List returns every niche in display order.
func (s *NicheService) List() []domain.Niche {
	return s.niches.List()
}

// Get returns one niche.
func (s *NicheService) Get(id string) (domain.Niche, error) {
	return s.niches.Get(id)
}

// Put creates or updates a niche.
func (s *NicheService) Put(n domain.Niche) (domain.Niche, error) {
	if err := s.niches.Put(n); err != nil {
		return domain.Niche{}, err
	}
	return s.niches.Get(n.ID)
}

// SetAll replaces the whole niche list.
func (s *NicheService) SetAll(niches []domain.Niche) ([]domain.Niche, error) {
	if err := s.niches.SetAll(niches); err != nil {
		return nil, err
	}
	return s.niches.List(), nil
}

// Delete removes a niche.
func (s *NicheService) Delete(id string) error {
	return s.niches.Delete(id)
}

// PromptRefinement is the outcome of a prompt refinement request.
type PromptRefinement struct {
	Niche   domain.Niche `json:"niche"`
	Refined bool         `json:"refined"`
	Error   string       `json:"error,omitempty"`
}

// CurrentPrompt returns the template in effect for kind: the niche's custom
// prompt when set, the built-in template otherwise.
func CurrentPrompt(n domain.Niche, kind string) string {
	builtin := prompts.Builtin(n.ID)
	if kind == PromptScript {
		if n.CustomScriptPrompt != "" {
			return n.CustomScriptPrompt
		}
		return builtin.Script
	}
	if n.CustomStructurePrompt != "" {
		return n.CustomStructurePrompt
	}
	return builtin.Structure
}

// RefinePrompt asks the provider to rewrite one of the niche's prompt templates.
// The previous template is kept in the prompt history. When the provider fails
// the niche is returned unchanged with Refined unset.
// Parameters:
//   - ctx: request context.
//   - id: niche id.
//   - kind: "structure" or "script".
//   - request: free-text description of the desired change.
//   - model: optional model id.
//
// Returns:
//   - *PromptRefinement: the resulting niche and whether it changed.
//   - error: NotFound or ValidationFailed for bad input.
func (s *NicheService) RefinePrompt(ctx context.Context, id, kind, request, model string) (*PromptRefinement, error) {
	if kind != PromptStructure && kind != PromptScript {
		return nil, &domain.ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown prompt kind %q", kind)}
	}
	n, err := s.niches.Get(id)
	if err != nil {
		return nil, err
	}
	if s.refiner == nil {
		return nil, fmt.Errorf("%w: no provider configured", domain.ErrGenerationFailed)
	}

	current := CurrentPrompt(n, kind)
	refined, err := s.refiner.RefinePrompt(ctx, current, request, model)
	if err != nil {
		return &PromptRefinement{Niche: n, Error: domain.ErrorKind(err)}, nil
	}
	if refined == current {
		return &PromptRefinement{Niche: n}, nil
	}

	updated, err := s.niches.Replace(id, func(n *domain.Niche) {
		n.PromptHistory = append(n.PromptHistory, domain.PromptRevision{
			Kind:      kind,
			Prompt:    current,
			ChangedAt: time.Now(),
		})
		if kind == PromptScript {
			n.CustomScriptPrompt = refined
		} else {
			n.CustomStructurePrompt = refined
		}
	})
	if err != nil {
		return nil, err
	}
	return &PromptRefinement{Niche: updated, Refined: true}, nil
}

// AnalyzeRequest carries sample videos of a niche.
type AnalyzeRequest struct {
	// NicheID selects an existing niche to update. A new niche is created when empty.
	NicheID     string   `json:"nicheId"`
	Name        string   `json:"name"`
	Titles      []string `json:"titles"`
	Transcripts []string `json:"transcripts"`
	Model       string   `json:"model"`
}

// AnalyzeTitles extracts the keywords shared by sample video titles.
func (s *NicheService) AnalyzeTitles(ctx context.Context, titles []string, model string) ([]string, error) {
	if s.analyzer == nil {
		return nil, fmt.Errorf("%w: no provider configured", domain.ErrGenerationFailed)
	}
	return s.analyzer.AnalyzeTitles(ctx, titles, model)
}

// Analyze derives prompt templates from sample transcripts and stores them on a
// niche. Title keywords are best effort: when their analysis fails the niche is
// still saved without them. Replaced templates go to the prompt history.
// Parameters:
//   - ctx: request context.
//   - req: niche name, sample titles and transcripts.
//
// Returns:
//   - domain.Niche: the created or updated niche.
//   - error: ValidationFailed, NotFound for an unknown NicheID, or the
//     generation error of the template analysis.
func (s *NicheService) Analyze(ctx context.Context, req AnalyzeRequest) (domain.Niche, error) {
	if s.analyzer == nil {
		return domain.Niche{}, fmt.Errorf("%w: no provider configured", domain.ErrGenerationFailed)
	}
	var existing *domain.Niche
	if req.NicheID != "" {
		n, err := s.niches.Get(req.NicheID)
		if err != nil {
			return domain.Niche{}, err
		}
		existing = &n
		if strings.TrimSpace(req.Name) == "" {
			req.Name = n.Name
		}
	}

	templates, err := s.analyzer.AnalyzeContent(ctx, req.Name, req.Transcripts, req.Model)
	if err != nil {
		return domain.Niche{}, err
	}

	var keywords []string
	if len(req.Titles) > 0 {
		if keywords, err = s.analyzer.AnalyzeTitles(ctx, req.Titles, req.Model); err != nil {
			logger.CtxWarn(ctx, "Title analysis for niche %q failed, saving without keywords: %v", req.Name, err)
		}
	}
	titles := make([]string, 0, len(req.Titles))
	for _, t := range req.Titles {
		if t = strings.TrimSpace(t); t != "" {
			titles = append(titles, t)
		}
	}

	if existing == nil {
		n := domain.Niche{
			ID:                       fmt.Sprintf("analyzed-%d", time.Now().UnixMilli()),
			Name:                     strings.TrimSpace(req.Name),
			DefaultDuration:          10,
			DefaultStructureVariants: 1,
			DefaultScriptVariants:    1,
			CustomStructurePrompt:    templates.StructurePrompt,
			CustomScriptPrompt:       templates.ScriptPrompt,
			AnalyzedKeywords:         keywords,
			AnalyzedTitles:           titles,
		}
		return s.Put(n)
	}

	now := time.Now()
	return s.niches.Replace(existing.ID, func(n *domain.Niche) {
		n.PromptHistory = append(n.PromptHistory,
			domain.PromptRevision{Kind: PromptStructure, Prompt: CurrentPrompt(*n, PromptStructure), ChangedAt: now},
			domain.PromptRevision{Kind: PromptScript, Prompt: CurrentPrompt(*n, PromptScript), ChangedAt: now},
		)
		n.CustomStructurePrompt = templates.StructurePrompt
		n.CustomScriptPrompt = templates.ScriptPrompt
		if len(keywords) > 0 {
			n.AnalyzedKeywords = keywords
		}
		if len(titles) > 0 {
			n.AnalyzedTitles = titles
		}
	})
}
