package autocall

import (
	"time"

	apphttp "dialflow_backend/internal/http"
	"dialflow_backend/platform/config"
	"dialflow_backend/platform/logger"
	"dialflow_backend/platform/validator"
)

// Module wires the auto-call engine and its control endpoints.
type Module struct {
	engine  *Engine
	dedup   *Dedup
	handler *Handler
	log     *logger.Logger
	cfg     config.AutoCallConfig
}

// NewModule creates the autocall module around an existing dedup set. The
// dedup set is built first by the composition root because the call
// dispatcher writes into it too.
func NewModule(source LeadSource, resolver AssistantResolver, dispatcher CallDispatcher, dedup *Dedup, cfg config.AutoCallConfig, phoneCfg config.PhoneConfig, val *validator.Validator, log *logger.Logger) *Module {
	engine := NewEngine(source, resolver, dispatcher, dedup, cfg, phoneCfg.GetDefaultPhoneRegion(), log)
	h := NewHandler(engine, source, val)

	return &Module{
		engine:  engine,
		dedup:   dedup,
		handler: h,
		log:     log,
		cfg:     cfg,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "autocall"
}

// Engine returns the engine for lifecycle control by the composition root.
func (m *Module) Engine() *Engine {
	return m.engine
}

// AutoStart starts the engine after the configured warm-up delay when
// auto-calling is enabled. Called once at process boot.
func (m *Module) AutoStart() {
	if !m.cfg.GetAutoCallEnabled() {
		m.log.Info("auto-call engine disabled by configuration")
		return
	}

	warmup := m.cfg.GetAutoCallWarmupDelay()
	m.log.Info("auto-call engine starting after warm-up", "warmup", warmup.String())
	time.AfterFunc(warmup, func() {
		m.engine.Start()
	})
}

// RegisterRoutes mounts the engine control routes on the provided router
// context. All of them require authentication.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/autocall")
	group.GET("/status", m.handler.Status)
	group.POST("/start", m.handler.Start)
	group.POST("/stop", m.handler.Stop)
	group.PUT("/settings", m.handler.UpdateSettings)
	group.GET("/eligible", m.handler.ListEligible)
	group.POST("/call/:leadId", m.handler.CallLead)
}

var _ apphttp.Module = (*Module)(nil)
