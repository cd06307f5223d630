// Package leads provides the lead management bounded context module. Leads
// are the subjects of the auto-call engine; this module owns their storage
// and the thin CRUD surface around it.
package leads

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "dialflow_backend/internal/http"
	"dialflow_backend/internal/leads/handler"
	"dialflow_backend/internal/leads/repository"
	"dialflow_backend/internal/leads/service"
	"dialflow_backend/platform/logger"
	"dialflow_backend/platform/validator"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the leads module.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Repository returns the repository for the engine and reconciler wiring.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts lead routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/leads")
	group.POST("", m.handler.Create)
	group.GET("", m.handler.List)
	group.GET("/:id", m.handler.Get)
	group.DELETE("/:id", m.handler.Delete)
}

var _ apphttp.Module = (*Module)(nil)
