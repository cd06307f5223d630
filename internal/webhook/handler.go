package webhook

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"dialflow_backend/platform/httpkit"
	"dialflow_backend/platform/validator"
)

// Handler handles inbound provider webhooks.
type Handler struct {
	service *Service
	val     *validator.Validator
}

// NewHandler creates a webhook Handler.
func NewHandler(service *Service, val *validator.Validator) *Handler {
	return &Handler{service: service, val: val}
}

// HandleCallEvent processes a call lifecycle callback.
// POST /api/v1/webhook/calls
func (h *Handler) HandleCallEvent(c *gin.Context) {
	var req CallEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid payload")
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed")
		return
	}

	if err := h.service.Process(c.Request.Context(), req); err != nil {
		if httpkit.HandleError(c, err) {
			return
		}
	}

	httpkit.OK(c, gin.H{"received": true})
}
