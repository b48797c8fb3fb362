package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/alexkrasovskyiwork-svg/Gigakavun/internal/domain"
)

// CollectionRepository is the storage behind the collections API.
type CollectionRepository interface {
	Get(ctx context.Context, name string) (*domain.Collection, error)
	Save(ctx context.Context, name string, data []byte) error
}

// CollectionHandler serves whole JSON collections to other instances that use
// this service as their remote store.
type CollectionHandler struct {
	repo CollectionRepository
}

// NewCollectionHandler creates a new collection handler.
func NewCollectionHandler(repo CollectionRepository) *CollectionHandler {
	return &CollectionHandler{repo: repo}
}

type collectionPayload struct {
	Items json.RawMessage `json:"items"`
}

// Get handles GET /api/collections/:name. Unknown collections are empty.
func (h *CollectionHandler) Get(c *gin.Context) {
	col, err := h.repo.Get(c.Request.Context(), c.Param("name"))
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusOK, collectionPayload{Items: json.RawMessage("[]")})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, collectionPayload{Items: json.RawMessage(col.Data)})
}

// Put handles PUT /api/collections/:name.
func (h *CollectionHandler) Put(c *gin.Context) {
	var body collectionPayload
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, "body", err)
		return
	}
	if len(body.Items) == 0 {
		body.Items = json.RawMessage("[]")
	}
	if err := h.repo.Save(c.Request.Context(), c.Param("name"), body.Items); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
