// Package webhook provides the provider callback bounded context module.
package webhook

import (
	"dialflow_backend/internal/events"
	apphttp "dialflow_backend/internal/http"
	"dialflow_backend/platform/config"
	"dialflow_backend/platform/logger"
	"dialflow_backend/platform/validator"
)

// Module is the webhook bounded context module implementing http.Module.
type Module struct {
	handler *Handler
	secret  string
}

// NewModule creates and initializes the webhook module.
func NewModule(cfg config.ProviderConfig, bus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	service := NewService(bus, log)
	handler := NewHandler(service, val)

	return &Module{
		handler: handler,
		secret:  cfg.GetProviderWebhookSecret(),
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "webhook"
}

// RegisterRoutes mounts the webhook routes on the provided router context.
// The endpoint is public (shared-secret auth, no JWT) and rate limited.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.V1.Group("/webhook")
	group.Use(ctx.WebhookRateLimiter.RateLimit())
	group.Use(SecretAuthMiddleware(m.secret))
	group.POST("/calls", m.handler.HandleCallEvent)
}

var _ apphttp.Module = (*Module)(nil)
