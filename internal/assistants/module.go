// Package assistants manages the locally registered calling assistants and
// their provider sync state.
package assistants

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"dialflow_backend/internal/assistants/handler"
	"dialflow_backend/internal/assistants/repository"
	"dialflow_backend/internal/assistants/service"
	apphttp "dialflow_backend/internal/http"
	"dialflow_backend/platform/logger"
	"dialflow_backend/platform/validator"
)

// Module is the assistants bounded context module implementing http.Module.
type Module struct {
	handler  *handler.Handler
	resolver *service.Resolver
	repo     *repository.Repository
}

// NewModule creates and initializes the assistants module.
func NewModule(pool *pgxpool.Pool, verifier service.Verifier, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	resolver := service.NewResolver(repo, verifier, log)
	h := handler.New(repo, val)

	return &Module{
		handler:  h,
		resolver: resolver,
		repo:     repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "assistants"
}

// Resolver returns the assistant resolver for the call dispatcher.
func (m *Module) Resolver() *service.Resolver {
	return m.resolver
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts assistant routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/assistants")
	group.GET("", m.handler.List)
	group.POST("", m.handler.Create)
}

var _ apphttp.Module = (*Module)(nil)
