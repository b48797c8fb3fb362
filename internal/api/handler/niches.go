package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/service"
)

// NicheHandler handles niche configuration endpoints.
type NicheHandler struct {
	niches *service.NicheService
}

// NewNicheHandler creates a new niche handler.
func NewNicheHandler(niches *service.NicheService) *NicheHandler {
	return &NicheHandler{niches: niches}
}

// RefinePromptRequest is the body of POST /niches/:id/refine-prompt.
type RefinePromptRequest struct {
	Kind    string `json:"kind" binding:"required"`
	Request string `json:"request" binding:"required"`
	Model   string `json:"model"`
}

// AnalyzeTitlesRequest is the body of POST /niches/analyze-titles.
type AnalyzeTitlesRequest struct {
	Titles []string `json:"titles" binding:"required,min=1,max=50"`
	Model  string   `json:"model"`
}

// AnalyzeRequest is the body of POST /niches/analyze.
type AnalyzeRequest struct {
	NicheID     string   `json:"nicheId"`
	Name        string   `json:"name"`
	Titles      []string `json:"titles" binding:"max=50"`
	Transcripts []string `json:"transcripts" binding:"required,min=1,max=20"`
	Model       string   `json:"model"`
}

// List handles GET /api/v1/niches.
func (h *NicheHandler) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"niches": h.niches.List()})
}

// Get handles GET /api/v1/niches/:id.
func (h *NicheHandler) Get(c *gin.Context) {
	n, err := h.niches.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

// ReplaceAll handles PUT /api/v1/niches.
func (h *NicheHandler) ReplaceAll(c *gin.Context) {
	var body struct {
		Niches []domain.Niche `json:"niches"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "body", err)
		return
	}
	niches, err := h.niches.SetAll(body.Niches)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"niches": niches})
}

// Put handles PUT /api/v1/niches/:id.
func (h *NicheHandler) Put(c *gin.Context) {
	var n domain.Niche
	if err := c.ShouldBindJSON(&n); err != nil {
		badRequest(c, "body", err)
		return
	}
	n.ID = c.Param("id")
	saved, err := h.niches.Put(n)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, saved)
}

// Delete handles DELETE /api/v1/niches/:id.
func (h *NicheHandler) Delete(c *gin.Context) {
	if err := h.niches.Delete(c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// RefinePrompt handles POST /api/v1/niches/:id/refine-prompt.
func (h *NicheHandler) RefinePrompt(c *gin.Context) {
	var req RefinePromptRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}
	res, err := h.niches.RefinePrompt(c.Request.Context(), c.Param("id"), req.Kind, req.Request, req.Model)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// AnalyzeTitles handles POST /api/v1/niches/analyze-titles.
func (h *NicheHandler) AnalyzeTitles(c *gin.Context) {
	var req AnalyzeTitlesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}
	keywords, err := h.niches.AnalyzeTitles(c.Request.Context(), req.Titles, req.Model)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"keywords": keywords})
}

// Analyze handles POST /api/v1/niches/analyze. It creates a niche, or updates the
// one named by nicheId, from sample transcripts.
func (h *NicheHandler) Analyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err)
		return
	}
	n, err := h.niches.Analyze(c.Request.Context(), service.AnalyzeRequest{
		NicheID:     req.NicheID,
		Name:        req.Name,
		Titles:      req.Titles,
		Transcripts: req.Transcripts,
		Model:       req.Model,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}
