package service

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/generation"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/logger"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/queue"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/storage"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/store"
)

// ProjectService is the application facade over the project store and the
// generation engine. Generation work is handed to a Dispatcher and runs in the
// background; every method returns as soon as the work is accepted.
type ProjectService struct {
	projects   *store.ProjectStore
	niches     *store.NicheStore
	ids        *generation.IDGenerator
	expander   *generation.Expander
	engine     *generation.Engine
	dispatcher Dispatcher
	storage    storage.ObjectStorage
	notices    *NoticeFeed
}

// ProjectServiceDeps are the collaborators of ProjectService. Storage is optional.
type ProjectServiceDeps struct {
	Projects   *store.ProjectStore
	Niches     *store.NicheStore
	IDs        *generation.IDGenerator
	Engine     *generation.Engine
	Dispatcher Dispatcher
	Storage    storage.ObjectStorage
	Notices    *NoticeFeed
}

// NewProjectService creates a new project service.
// Parameters:
//   - deps: stores, engine, dispatcher and optional object storage.
//
// Returns:
//   - *ProjectService: initialized service.
func NewProjectService(deps ProjectServiceDeps) *ProjectService {
	ids := deps.IDs
	if ids == nil {
		ids = generation.NewIDGenerator()
	}
	notices := deps.Notices
	if notices == nil {
		notices = NewNoticeFeed(0)
	}
	return &ProjectService{
		projects:   deps.Projects,
		niches:     deps.Niches,
		ids:        ids,
		expander:   generation.NewExpander(ids),
		engine:     deps.Engine,
		dispatcher: deps.Dispatcher,
		storage:    deps.Storage,
		notices:    notices,
	}
}

// CreateBatch expands req into its variant projects and stores them. When
// startGeneration is set, structure generation for the batch is dispatched.
// Parameters:
//   - ctx: request context.
//   - req: the submitted topic request.
//   - startGeneration: whether to dispatch structure generation right away.
//
// Returns:
//   - []domain.Project: the created projects in variant order.
//   - error: ValidationFailed for a rejected request.
func (s *ProjectService) CreateBatch(ctx context.Context, req domain.TopicRequest, startGeneration bool) ([]domain.Project, error) {
	if req.NicheID != "" {
		if _, err := s.niches.Get(req.NicheID); err != nil {
			return nil, &domain.ValidationError{Field: "nicheId", Reason: fmt.Sprintf("unknown niche %q", req.NicheID)}
		}
	}

	projects, err := s.expander.Expand(req, startGeneration)
	if err != nil {
		return nil, err
	}
	if err := s.projects.Add(projects...); err != nil {
		return nil, err
	}

	batchID := projects[0].BatchID
	ctx = logger.SetBatchID(ctx, batchID)
	logger.With(logger.Fields{logger.FieldComponent: "projects"}).
		WithCount(len(projects)).
		Info(ctx, "Created batch for %q", strings.TrimSpace(req.Title))

	if startGeneration {
		cmd := queue.NewCommand(queue.KindStructure)
		cmd.BatchID = batchID
		cmd.Instructions = req.Instructions
		if err := s.dispatch(ctx, cmd); err != nil {
			s.projects.ReplaceAll(inBatch(batchID), func(p *domain.Project) {
				p.StructureGenerating = false
			})
			return nil, err
		}
	}
	return s.projects.ListBatch(batchID), nil
}

// ImportRequest carries an externally written project.
type ImportRequest struct {
	Title         string   `json:"title"`
	NicheID       string   `json:"nicheId"`
	StructureText string   `json:"structureText"`
	ScriptText    string   `json:"scriptText"`
	ScriptParts   []string `json:"scriptParts"`
}

// Import stores a project whose structure and script were written elsewhere.
// The structure holds one section per script part so the script never outgrows it.
func (s *ProjectService) Import(ctx context.Context, req ImportRequest) (domain.Project, error) {
	title := strings.TrimSpace(req.Title)
	if err := domain.ValidateBaseTitle(title); err != nil {
		return domain.Project{}, err
	}

	parts := req.ScriptParts
	if strings.TrimSpace(req.ScriptText) != "" {
		parts = []string{req.ScriptText}
	}
	hasScript := false
	for _, t := range parts {
		if strings.TrimSpace(t) != "" {
			hasScript = true
			break
		}
	}
	structureText := strings.TrimSpace(req.StructureText)
	if structureText == "" && !hasScript {
		return domain.Project{}, &domain.ValidationError{Field: "structureText", Reason: "a structure or a script is required"}
	}

	id := s.ids.Next()
	now := time.Now()
	p := domain.Project{
		ID:                id,
		BatchID:           fmt.Sprintf("transport-%d", id),
		Title:             title,
		Filename:          domain.FilenameFromTitle(title),
		Variant:           domain.VariantIdentity{BaseTitle: title, StructIdx: -1, ScriptIdx: -1},
		NicheID:           req.NicheID,
		DurationMinutes:   10,
		StructureVariants: 1,
		ScriptVariants:    1,
		Structure:         []domain.StructureSection{},
		ScriptParts:       []domain.ScriptSection{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if structureText != "" {
		p.Structure = append(p.Structure, domain.StructureSection{
			Title:             "Imported Structure",
			TitleUa:           "Імпортована структура",
			Description:       structureText,
			DescriptionUa:     structureText,
			EstimatedDuration: "N/A",
		})
	}
	if hasScript {
		for i, text := range parts {
			sectionTitle := fmt.Sprintf("Part %d", i+1)
			if len(parts) == 1 {
				sectionTitle = "Full Script"
			}
			if i >= len(p.Structure) {
				p.Structure = append(p.Structure, domain.StructureSection{
					Title:             sectionTitle,
					TitleUa:           fmt.Sprintf("Частина %d", i+1),
					Description:       sectionTitle,
					DescriptionUa:     sectionTitle,
					EstimatedDuration: "N/A",
				})
			}
			p.ScriptParts = append(p.ScriptParts, domain.ScriptSection{
				ID:           domain.SectionID(id, i),
				SectionTitle: sectionTitle,
				ContentEn:    text,
				ContentUa:    text,
			})
		}
	}

	if err := s.projects.Add(p); err != nil {
		return domain.Project{}, err
	}
	logger.CtxInfo(logger.SetProjectID(ctx, id), "Imported project %q", title)
	return p, nil
}

// List returns all projects, or those of one batch when batchID is set.
func (s *ProjectService) List(batchID string) []domain.Project {
	if batchID != "" {
		return s.projects.ListBatch(batchID)
	}
	return s.projects.List()
}

// Get returns one project.
func (s *ProjectService) Get(id int64) (domain.Project, error) {
	return s.projects.Get(id)
}

// GenerateStructure dispatches structure generation for every group of a batch.
// Every project of the batch must be idle.
func (s *ProjectService) GenerateStructure(ctx context.Context, batchID, instructions string) (queue.Command, error) {
	batch := s.projects.ListBatch(batchID)
	if len(batch) == 0 {
		return queue.Command{}, fmt.Errorf("batch %s: %w", batchID, domain.ErrNotFound)
	}
	ids := make([]int64, len(batch))
	for i, p := range batch {
		ids[i] = p.ID
	}
	cmd := queue.NewCommand(queue.KindStructure)
	cmd.BatchID = batchID
	cmd.Instructions = instructions
	return cmd, s.claimAndDispatch(ctx, cmd, ids, nil, markStructure)
}

// GenerateStructureFor dispatches structure generation for the groups of the given projects.
func (s *ProjectService) GenerateStructureFor(ctx context.Context, ids []int64, instructions string) (queue.Command, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return queue.Command{}, &domain.ValidationError{Field: "projectIds", Reason: "must not be empty"}
	}
	cmd := queue.NewCommand(queue.KindStructure)
	cmd.ProjectIDs = ids
	cmd.Instructions = instructions
	return cmd, s.claimAndDispatch(ctx, cmd, ids, nil, markStructure)
}

// GenerateScript dispatches script generation for one or more projects. Every
// project needs a structure and must not be busy.
func (s *ProjectService) GenerateScript(ctx context.Context, ids []int64, instructions string) (queue.Command, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return queue.Command{}, &domain.ValidationError{Field: "projectIds", Reason: "must not be empty"}
	}
	cmd := queue.NewCommand(queue.KindScript)
	if len(ids) == 1 {
		cmd.ProjectID = ids[0]
	} else {
		cmd.ProjectIDs = ids
	}
	cmd.Instructions = instructions
	return cmd, s.claimAndDispatch(ctx, cmd, ids, requireStructure, func(p *domain.Project) {
		p.ScriptGenerating = true
	})
}

// RegenerateScript dispatches a rewrite of every script section of a project.
func (s *ProjectService) RegenerateScript(ctx context.Context, id int64, instructions string) (queue.Command, error) {
	cmd := queue.NewCommand(queue.KindRegenerate)
	cmd.ProjectID = id
	cmd.Instructions = instructions
	return cmd, s.claimAndDispatch(ctx, cmd, []int64{id}, func(p domain.Project) error {
		if len(p.ScriptParts) == 0 {
			return &domain.ValidationError{Field: "scriptParts", Reason: "project has no script to regenerate"}
		}
		return nil
	}, func(p *domain.Project) {
		p.ScriptGenerating = true
	})
}

// RegenerateSection dispatches a rewrite of one script section.
func (s *ProjectService) RegenerateSection(ctx context.Context, id int64, index int, instructions string) (queue.Command, error) {
	cmd := queue.NewCommand(queue.KindRegenerateSection)
	cmd.ProjectID = id
	cmd.Index = index
	cmd.Instructions = instructions
	return cmd, s.claimAndDispatch(ctx, cmd, []int64{id}, func(p domain.Project) error {
		if index < 0 || index >= len(p.ScriptParts) {
			return &domain.ValidationError{Field: "index", Reason: fmt.Sprintf("section %d does not exist", index)}
		}
		return nil
	}, func(p *domain.Project) {
		p.ScriptParts[index].IsGenerating = true
	})
}

// Refine dispatches a structure refinement; the result is shared with the
// project's structure group siblings, so the whole group must be idle.
func (s *ProjectService) Refine(ctx context.Context, id int64, instructions string) (queue.Command, error) {
	if strings.TrimSpace(instructions) == "" {
		return queue.Command{}, &domain.ValidationError{Field: "instructions", Reason: "must not be empty"}
	}
	p, err := s.projects.Get(id)
	if err != nil {
		return queue.Command{}, err
	}
	group := generation.GroupMembers(s.projects.ListBatch(p.BatchID), p)

	cmd := queue.NewCommand(queue.KindRefine)
	cmd.ProjectID = id
	cmd.Instructions = instructions
	return cmd, s.claimAndDispatch(ctx, cmd, group, func(p domain.Project) error {
		if p.ID == id {
			return requireStructure(p)
		}
		return nil
	}, markStructure)
}

// GenerateImages dispatches an image batch for a project.
func (s *ProjectService) GenerateImages(ctx context.Context, id int64, images queue.ImageSpec) (queue.Command, error) {
	if s.engine != nil && s.engine.Images == nil {
		return queue.Command{}, fmt.Errorf("%w: image generation is not configured", domain.ErrValidationFailed)
	}
	if _, err := s.projects.Get(id); err != nil {
		return queue.Command{}, err
	}
	cmd := queue.NewCommand(queue.KindImages)
	cmd.ProjectID = id
	cmd.Image = &images
	return cmd, s.dispatch(ctx, cmd)
}

// Scenes splits one script section into illustrated scenes and waits for the
// result. The section is claimed for the duration of the call.
// Parameters:
//   - ctx: request context.
//   - id: project id.
//   - index: zero-based script section index.
//   - req: segment length bounds and extra instructions.
//
// Returns:
//   - []domain.Scene: the stored scenes.
//   - error: NotFound, ValidationFailed for a busy project or an empty section,
//     or the generation error.
func (s *ProjectService) Scenes(ctx context.Context, id int64, index int, req generation.SceneRequest) ([]domain.Scene, error) {
	if err := s.projects.Claim([]int64{id}, func(p domain.Project) error {
		if index < 0 || index >= len(p.ScriptParts) {
			return &domain.ValidationError{Field: "index", Reason: fmt.Sprintf("section %d does not exist", index)}
		}
		if strings.TrimSpace(p.ScriptParts[index].ContentEn) == "" {
			return &domain.ValidationError{Field: "index", Reason: fmt.Sprintf("section %d has no text yet", index)}
		}
		return nil
	}, func(p *domain.Project) {
		p.ScriptParts[index].IsGenerating = true
	}); err != nil {
		return nil, err
	}
	defer s.projects.ReplaceAll(memberOf([]int64{id}), clearFlags)

	return s.engine.Visuals.Scenes(ctx, id, index, req)
}

// RefineImagePrompt writes one image prompt for a project from its structure or
// its script. Nothing is stored.
func (s *ProjectService) RefineImagePrompt(ctx context.Context, id int64, source, instructions string) (string, error) {
	return s.engine.Visuals.RefineImagePrompt(ctx, id, source, instructions)
}

// ToggleComplete flips the completed mark of a project.
func (s *ProjectService) ToggleComplete(id int64) (domain.Project, error) {
	return s.projects.Replace(id, func(p *domain.Project) {
		p.Completed = !p.Completed
		p.UpdatedAt = time.Now()
	})
}

// SetReleaseDate sets or clears the planned release date.
func (s *ProjectService) SetReleaseDate(id int64, date *time.Time) (domain.Project, error) {
	return s.projects.Replace(id, func(p *domain.Project) {
		p.ReleaseDate = date
		p.UpdatedAt = time.Now()
	})
}

// Delete removes a project and, when object storage is configured, its stored artifacts.
func (s *ProjectService) Delete(ctx context.Context, id int64) error {
	p, err := s.projects.Get(id)
	if err != nil {
		return err
	}
	if err := s.projects.Delete(id); err != nil {
		return err
	}
	if s.storage != nil {
		s.deleteArtifacts(ctx, p)
	}
	logger.CtxInfo(logger.SetProjectID(ctx, id), "Project deleted")
	return nil
}

// deleteArtifacts removes the images of p and its exports under the default name.
func (s *ProjectService) deleteArtifacts(ctx context.Context, p domain.Project) {
	keys := make([]string, 0, len(p.Images)+2)
	for _, img := range p.Images {
		if img.Key != "" {
			keys = append(keys, img.Key)
		}
	}
	base := strings.TrimSuffix(ExportFilename(p, ""), ".txt")
	for _, lang := range []string{LangEnglish, LangUkrainian} {
		key := storage.ExportKey(p.ID, base, lang)
		if ok, err := s.storage.Exists(ctx, key); err == nil && ok {
			keys = append(keys, key)
		}
	}
	for _, key := range keys {
		if err := s.storage.Delete(ctx, key); err != nil {
			logger.CtxWarn(ctx, "Failed to delete %s of project %d: %v", key, p.ID, err)
		}
	}
}

// OpenImage streams the stored file of the image at index. The caller closes the
// reader.
func (s *ProjectService) OpenImage(ctx context.Context, id int64, index int) (io.ReadCloser, string, error) {
	p, err := s.projects.Get(id)
	if err != nil {
		return nil, "", err
	}
	if index < 0 || index >= len(p.Images) || p.Images[index].Key == "" || s.storage == nil {
		return nil, "", fmt.Errorf("image %d of project %d: %w", index, id, domain.ErrNotFound)
	}
	key := p.Images[index].Key
	rc, err := s.storage.Download(ctx, key)
	if err != nil {
		return nil, "", fmt.Errorf("image %d of project %d: %w", index, id, err)
	}
	contentType := mime.TypeByExtension(path.Ext(key))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return rc, contentType, nil
}

// Notices returns the most recent notices, newest first.
func (s *ProjectService) Notices(limit int) []domain.Notice {
	return s.notices.List(limit)
}

// Cost returns the running cost breakdown.
func (s *ProjectService) Cost() generation.CostSnapshot {
	return s.engine.Cost.Snapshot()
}

// ResetCost zeroes the running cost, e.g. at a session boundary.
func (s *ProjectService) ResetCost() {
	s.engine.Cost.Reset()
}

// claimAndDispatch marks ids busy and dispatches cmd. Concurrent requests for the
// same project cannot both pass the claim. The flags are cleared again when the
// dispatch fails.
func (s *ProjectService) claimAndDispatch(ctx context.Context, cmd queue.Command, ids []int64, check func(domain.Project) error, mark func(*domain.Project)) error {
	if err := s.projects.Claim(ids, check, mark); err != nil {
		return err
	}
	if err := s.dispatch(ctx, cmd); err != nil {
		s.projects.ReplaceAll(memberOf(ids), clearFlags)
		return err
	}
	return nil
}

func (s *ProjectService) dispatch(ctx context.Context, cmd queue.Command) error {
	if s.dispatcher == nil {
		return fmt.Errorf("%w: no dispatcher configured", domain.ErrGenerationFailed)
	}
	return s.dispatcher.Dispatch(ctx, cmd)
}

func requireStructure(p domain.Project) error {
	if len(p.Structure) == 0 {
		return &domain.ValidationError{Field: "structure", Reason: fmt.Sprintf("project %d has no structure yet", p.ID)}
	}
	if p.StructureGenerating {
		return &domain.ValidationError{Field: "structure", Reason: fmt.Sprintf("project %d structure is still generating", p.ID)}
	}
	return nil
}

func markStructure(p *domain.Project) {
	p.StructureGenerating = true
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func memberOf(ids []int64) func(domain.Project) bool {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return func(p domain.Project) bool {
		_, ok := set[p.ID]
		return ok
	}
}

func inBatch(batchID string) func(domain.Project) bool {
	return func(p domain.Project) bool { return p.BatchID == batchID }
}
