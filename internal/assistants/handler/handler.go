// Package handler exposes the assistants HTTP endpoints.
package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dialflow_backend/internal/assistants/repository"
	"dialflow_backend/internal/assistants/transport"
	"dialflow_backend/platform/httpkit"
	"dialflow_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for assistants.
type Handler struct {
	repo *repository.Repository
	val  *validator.Validator
}

// New creates a new assistants handler.
func New(repo *repository.Repository, val *validator.Validator) *Handler {
	return &Handler{repo: repo, val: val}
}

// List returns all non-archived assistants.
// GET /api/v1/assistants
func (h *Handler) List(c *gin.Context) {
	items, err := h.repo.List(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToAssistantResponses(items))
}

// Create registers a provider assistant locally.
// POST /api/v1/assistants
func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateAssistantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed)
		return
	}

	created, err := h.repo.Create(c.Request.Context(), repository.CreateAssistantParams{
		ProviderAssistantID: req.ProviderAssistantID,
		Name:                req.Name,
		Project:             req.Project,
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, transport.ToAssistantResponse(created))
}
