package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/generation"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/queue"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/service"
)

// ProjectHandler handles batch and project endpoints.
type ProjectHandler struct {
	projects *service.ProjectService
}

// NewProjectHandler creates a new project handler.
// Parameters:
//   - projects: project service instance.
// Returns:
//   - *ProjectHandler: initialized handler.
func NewProjectHandler(projects *service.ProjectService) *ProjectHandler {
	return &ProjectHandler{projects: projects}
}

// CreateBatchRequest is the body of POST /batches.
type CreateBatchRequest struct {
	domain.TopicRequest
	StartGeneration bool `json:"startGeneration"`
}

// InstructionsRequest carries optional free-text generation instructions.
type InstructionsRequest struct {
	Instructions string `json:"instructions"`
}

// ScriptsRequest is the body of POST /scripts.
type ScriptsRequest struct {
	ProjectIDs   []int64 `json:"projectIds" binding:"required,min=1"`
	Instructions string  `json:"instructions"`
}

// ImagesRequest is the body of POST /projects/:id/images.
type ImagesRequest struct {
	Quantity     int    `json:"quantity" binding:"required,min=1,max=20"`
	AspectRatio  string `json:"aspectRatio"`
	Instructions string `json:"instructions"`
	SourceText   string `json:"sourceText"`
}

// ScenesRequest is the body of POST /projects/:id/sections/:index/scenes.
type ScenesRequest struct {
	MinChars     int    `json:"minChars" binding:"omitempty,min=1,max=5000"`
	MaxChars     int    `json:"maxChars" binding:"omitempty,min=1,max=5000"`
	Instructions string `json:"instructions"`
}

// ImagePromptRequest is the body of POST /projects/:id/image-prompt.
type ImagePromptRequest struct {
	Source       string `json:"source" binding:"omitempty,oneof=structure script"`
	Instructions string `json:"instructions"`
}

// ReleaseDateRequest is the body of PUT /projects/:id/release-date.
type ReleaseDateRequest struct {
	ReleaseDate *time.Time `json:"releaseDate"`
}

// AcceptedResponse is returned when generation work has been dispatched.
type AcceptedResponse struct {
	Command queue.Command `json:"command"`
}

// CreateBatch handles POST /api/v1/batches.
func (h *ProjectHandler) CreateBatch(c *gin.Context) {
	var req CreateBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}
	projects, err := h.projects.CreateBatch(c.Request.Context(), req.TopicRequest, req.StartGeneration)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"batchId":  projects[0].BatchID,
		"projects": projects,
	})
}

// GenerateStructure handles POST /api/v1/batches/:batchId/structure.
func (h *ProjectHandler) GenerateStructure(c *gin.Context) {
	var req InstructionsRequest
	if !bindOptional(c, &req) {
		return
	}
	cmd, err := h.projects.GenerateStructure(c.Request.Context(), c.Param("batchId"), req.Instructions)
	h.accepted(c, cmd, err)
}

// ListProjects handles GET /api/v1/projects.
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	projects := h.projects.List(c.Query("batchId"))
	if projects == nil {
		projects = []domain.Project{}
	}
	c.JSON(http.StatusOK, gin.H{
		"projects": projects,
		"total":    len(projects),
	})
}

// GetProject handles GET /api/v1/projects/:id.
func (h *ProjectHandler) GetProject(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	p, err := h.projects.Get(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// DeleteProject handles DELETE /api/v1/projects/:id.
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	if err := h.projects.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ImportProject handles POST /api/v1/projects/import.
func (h *ProjectHandler) ImportProject(c *gin.Context) {
	var req service.ImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}
	p, err := h.projects.Import(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// GenerateScript handles POST /api/v1/projects/:id/script.
func (h *ProjectHandler) GenerateScript(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	var req InstructionsRequest
	if !bindOptional(c, &req) {
		return
	}
	cmd, err := h.projects.GenerateScript(c.Request.Context(), []int64{id}, req.Instructions)
	h.accepted(c, cmd, err)
}

// GenerateScripts handles POST /api/v1/scripts for several projects at once.
func (h *ProjectHandler) GenerateScripts(c *gin.Context) {
	var req ScriptsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}
	cmd, err := h.projects.GenerateScript(c.Request.Context(), req.ProjectIDs, req.Instructions)
	h.accepted(c, cmd, err)
}

// RegenerateScript handles POST /api/v1/projects/:id/script/regenerate.
func (h *ProjectHandler) RegenerateScript(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	var req InstructionsRequest
	if !bindOptional(c, &req) {
		return
	}
	cmd, err := h.projects.RegenerateScript(c.Request.Context(), id, req.Instructions)
	h.accepted(c, cmd, err)
}

// RegenerateSection handles POST /api/v1/projects/:id/sections/:index/regenerate.
func (h *ProjectHandler) RegenerateSection(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, "index", fmt.Errorf("must be an integer"))
		return
	}
	var req InstructionsRequest
	if !bindOptional(c, &req) {
		return
	}
	cmd, err := h.projects.RegenerateSection(c.Request.Context(), id, index, req.Instructions)
	h.accepted(c, cmd, err)
}

// Scenes handles POST /api/v1/projects/:id/sections/:index/scenes. It waits for
// the scenes and returns them.
func (h *ProjectHandler) Scenes(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, "index", fmt.Errorf("must be an integer"))
		return
	}
	var req ScenesRequest
	if !bindOptional(c, &req) {
		return
	}
	scenes, err := h.projects.Scenes(c.Request.Context(), id, index, generation.SceneRequest{
		MinChars:     req.MinChars,
		MaxChars:     req.MaxChars,
		Instructions: req.Instructions,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"scenes": scenes})
}

// ImagePrompt handles POST /api/v1/projects/:id/image-prompt.
func (h *ProjectHandler) ImagePrompt(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	var req ImagePromptRequest
	if !bindOptional(c, &req) {
		return
	}
	prompt, err := h.projects.RefineImagePrompt(c.Request.Context(), id, req.Source, req.Instructions)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"prompt": prompt})
}

// Refine handles POST /api/v1/projects/:id/refine.
func (h *ProjectHandler) Refine(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	var req InstructionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}
	cmd, err := h.projects.Refine(c.Request.Context(), id, req.Instructions)
	h.accepted(c, cmd, err)
}

// GenerateImages handles POST /api/v1/projects/:id/images.
func (h *ProjectHandler) GenerateImages(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	var req ImagesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}
	cmd, err := h.projects.GenerateImages(c.Request.Context(), id, queue.ImageSpec{
		SourceText:   req.SourceText,
		Instructions: req.Instructions,
		Quantity:     req.Quantity,
		AspectRatio:  req.AspectRatio,
	})
	h.accepted(c, cmd, err)
}

// ToggleComplete handles POST /api/v1/projects/:id/complete.
func (h *ProjectHandler) ToggleComplete(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	p, err := h.projects.ToggleComplete(id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// SetReleaseDate handles PUT /api/v1/projects/:id/release-date.
func (h *ProjectHandler) SetReleaseDate(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	var req ReleaseDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}
	p, err := h.projects.SetReleaseDate(id, req.ReleaseDate)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Export handles GET /api/v1/projects/:id/export. The script is returned as a
// text attachment unless format=json is requested.
func (h *ProjectHandler) Export(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	out, err := h.projects.Export(c.Request.Context(), id, c.Query("lang"), c.Query("name"))
	if err != nil {
		respondError(c, err)
		return
	}
	if c.Query("format") == "json" {
		c.JSON(http.StatusOK, out)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename*=UTF-8''%s", url.PathEscape(out.Filename)))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", []byte(out.Content))
}

// Image handles GET /api/v1/projects/:id/images/:index by streaming the stored file.
func (h *ProjectHandler) Image(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		badRequest(c, "index", fmt.Errorf("must be an integer"))
		return
	}
	rc, contentType, err := h.projects.OpenImage(c.Request.Context(), id, index)
	if err != nil {
		respondError(c, err)
		return
	}
	defer rc.Close()
	c.DataFromReader(http.StatusOK, -1, contentType, rc, nil)
}

// Cost handles GET /api/v1/cost.
func (h *ProjectHandler) Cost(c *gin.Context) {
	c.JSON(http.StatusOK, h.projects.Cost())
}

// ResetCost handles DELETE /api/v1/cost.
func (h *ProjectHandler) ResetCost(c *gin.Context) {
	h.projects.ResetCost()
	c.JSON(http.StatusOK, h.projects.Cost())
}

// Notices handles GET /api/v1/notices.
func (h *ProjectHandler) Notices(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	c.JSON(http.StatusOK, gin.H{"notices": h.projects.Notices(limit)})
}

func (h *ProjectHandler) accepted(c *gin.Context, cmd queue.Command, err error) {
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, AcceptedResponse{Command: cmd})
}

// bindOptional decodes a JSON body when one is present.
func bindOptional(c *gin.Context, dst interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, "body", err)
		return false
	}
	return true
}
