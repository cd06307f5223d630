// Package handler exposes read endpoints over call records.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dialflow_backend/internal/calls/repository"
	"dialflow_backend/internal/calls/transport"
	"dialflow_backend/platform/httpkit"
)

// Handler handles HTTP requests for call records.
type Handler struct {
	repo *repository.Repository
}

// New creates a new calls handler.
func New(repo *repository.Repository) *Handler {
	return &Handler{repo: repo}
}

// GetByProviderCallID retrieves the record for a provider call id.
// GET /api/v1/calls/:providerCallId
func (h *Handler) GetByProviderCallID(c *gin.Context) {
	providerCallID := c.Param("providerCallId")
	if providerCallID == "" {
		httpkit.Error(c, http.StatusBadRequest, "missing provider call id")
		return
	}

	record, err := h.repo.GetByProviderCallID(c.Request.Context(), providerCallID)
	if errors.Is(err, repository.ErrNotFound) {
		httpkit.Error(c, http.StatusNotFound, "call not found")
		return
	}
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToCallRecordResponse(record))
}

// ListByLead retrieves a lead's call history, most recent first.
// GET /api/v1/calls/lead/:leadId
func (h *Handler) ListByLead(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid lead id")
		return
	}

	records, err := h.repo.ListByLead(c.Request.Context(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.ToCallRecordResponses(records))
}
