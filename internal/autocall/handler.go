package autocall

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dialflow_backend/platform/httpkit"
	"dialflow_backend/platform/validator"
)

// Handler exposes the engine control endpoints.
type Handler struct {
	engine *Engine
	source LeadSource
	val    *validator.Validator
}

// NewHandler creates a new engine control handler.
func NewHandler(engine *Engine, source LeadSource, val *validator.Validator) *Handler {
	return &Handler{engine: engine, source: source, val: val}
}

// Status returns the engine snapshot.
// GET /api/v1/autocall/status
func (h *Handler) Status(c *gin.Context) {
	httpkit.OK(c, h.engine.Status())
}

// Start turns the engine on.
// POST /api/v1/autocall/start
func (h *Handler) Start(c *gin.Context) {
	started := h.engine.Start()
	httpkit.OK(c, gin.H{
		"started": started,
		"status":  h.engine.Status(),
	})
}

// Stop turns the engine off.
// POST /api/v1/autocall/stop
func (h *Handler) Stop(c *gin.Context) {
	stopped := h.engine.Stop()
	httpkit.OK(c, gin.H{
		"stopped": stopped,
		"status":  h.engine.Status(),
	})
}

type updateSettingsRequest struct {
	CallDelaySeconds *int `json:"callDelaySeconds" validate:"omitempty,min=5,max=3600"`
	MaxCallsPerBatch *int `json:"maxCallsPerBatch" validate:"omitempty,min=1,max=100"`
}

// UpdateSettings adjusts the check interval and batch size at runtime.
// PUT /api/v1/autocall/settings
func (h *Handler) UpdateSettings(c *gin.Context) {
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request")
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed")
		return
	}

	settings := Settings{MaxCallsPerBatch: req.MaxCallsPerBatch}
	if req.CallDelaySeconds != nil {
		delay := time.Duration(*req.CallDelaySeconds) * time.Second
		settings.CallDelay = &delay
	}

	httpkit.OK(c, h.engine.UpdateSettings(settings))
}

// ListEligible previews the leads the next cycle would consider.
// GET /api/v1/autocall/eligible
func (h *Handler) ListEligible(c *gin.Context) {
	leads, err := h.source.FindEligible(c.Request.Context(), h.engine.batchSize())
	if httpkit.HandleError(c, err) {
		return
	}

	type eligibleLead struct {
		ID          uuid.UUID  `json:"id"`
		Name        string     `json:"name"`
		Phone       string     `json:"phone"`
		ProjectName string     `json:"projectName"`
		Attempts    int        `json:"attempts"`
		LastCallAt  *time.Time `json:"lastCallAt,omitempty"`
	}

	out := make([]eligibleLead, 0, len(leads))
	for _, lead := range leads {
		out = append(out, eligibleLead{
			ID:          lead.ID,
			Name:        lead.Name,
			Phone:       lead.Phone,
			ProjectName: lead.ProjectName,
			Attempts:    lead.AutoCallAttempts,
			LastCallAt:  lead.LastCallTime,
		})
	}
	httpkit.OK(c, out)
}

// CallLead places a call for one lead outside the regular cycle.
// POST /api/v1/autocall/call/:leadId
func (h *Handler) CallLead(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("leadId"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid lead id")
		return
	}

	result, err := h.engine.CallLead(c.Request.Context(), leadID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{
		"providerCallId": result.ProviderCallID,
		"attempt":        result.Attempt,
		"phoneNumber":    result.PhoneNumber,
	})
}
