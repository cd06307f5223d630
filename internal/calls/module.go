// Package calls owns call records, outbound call dispatch, and the
// reconciliation of provider outcomes onto leads.
package calls

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"dialflow_backend/internal/calls/handler"
	"dialflow_backend/internal/calls/repository"
	"dialflow_backend/internal/calls/service"
	"dialflow_backend/internal/events"
	apphttp "dialflow_backend/internal/http"
	leadsrepo "dialflow_backend/internal/leads/repository"
	"dialflow_backend/platform/config"
	"dialflow_backend/platform/logger"
)

// Module is the calls bounded context module implementing http.Module.
type Module struct {
	handler    *handler.Handler
	dispatcher *service.Dispatcher
	reconciler *service.Reconciler
	repo       *repository.Repository
	log        *logger.Logger
}

// NewModule creates and initializes the calls module. poller and dedup may be
// nil; they are injected by the composition root after the scheduler and
// engine exist.
func NewModule(pool *pgxpool.Pool, leadsRepo *leadsrepo.Repository, prov service.CallCreator, poller service.PollScheduler, dedup service.DedupMarker, bus events.Bus, cfg config.PhoneConfig, log *logger.Logger) *Module {
	repo := repository.New(pool)
	region := cfg.GetDefaultPhoneRegion()
	dispatcher := service.NewDispatcher(leadsRepo, repo, prov, poller, dedup, bus, region, log)
	reconciler := service.NewReconciler(leadsRepo, repo, region, log)
	h := handler.New(repo)

	return &Module{
		handler:    h,
		dispatcher: dispatcher,
		reconciler: reconciler,
		repo:       repo,
		log:        log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "calls"
}

// Dispatcher returns the call dispatcher for the auto-call engine.
func (m *Module) Dispatcher() *service.Dispatcher {
	return m.dispatcher
}

// Reconciler returns the outcome reconciler for the poll worker.
func (m *Module) Reconciler() *service.Reconciler {
	return m.reconciler
}

// Repository returns the call record repository.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts call record routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/calls")
	group.GET("/:providerCallId", m.handler.GetByProviderCallID)
	group.GET("/lead/:leadId", m.handler.ListByLead)
}

// RegisterHandlers subscribes the reconciler to provider call events from the
// webhook pipeline.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.NameProviderCallStarted, m)
	bus.Subscribe(events.NameProviderCallEnded, m)
	bus.Subscribe(events.NameProviderCallStatusChanged, m)
}

// Handle routes provider call events into reconciliation.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.ProviderCallStarted:
		return m.reconciler.Reconcile(ctx, service.ReconcileInput{
			ProviderCallID: e.ProviderCallID,
			AssistantID:    e.AssistantID,
			PhoneNumber:    e.PhoneNumber,
			Terminal:       false,
			StartedAt:      e.StartedAt,
		})
	case events.ProviderCallEnded:
		input := service.ReconcileInput{
			ProviderCallID:  e.ProviderCallID,
			AssistantID:     e.AssistantID,
			PhoneNumber:     e.PhoneNumber,
			Terminal:        true,
			EndedReason:     e.EndedReason,
			DurationSeconds: e.DurationSeconds,
			EndedAt:         e.EndedAt,
		}
		if e.Cost > 0 {
			cost := e.Cost
			input.Cost = &cost
		}
		if e.RecordingURL != "" {
			url := e.RecordingURL
			input.RecordingURL = &url
		}
		if e.Transcript != "" {
			transcript := e.Transcript
			input.Transcript = &transcript
		}
		return m.reconciler.Reconcile(ctx, input)
	case events.ProviderCallStatusChanged:
		// Intermediate updates only touch the call record; terminal
		// status changes arrive as ProviderCallEnded. The phone number is
		// withheld so no lead write happens here.
		return m.reconciler.Reconcile(ctx, service.ReconcileInput{
			ProviderCallID: e.ProviderCallID,
			Terminal:       false,
		})
	default:
		return nil
	}
}

var _ apphttp.Module = (*Module)(nil)
