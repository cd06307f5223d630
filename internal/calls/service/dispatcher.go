// Package service implements call dispatch and lead outcome reconciliation.
package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	callsdomain "dialflow_backend/internal/calls/domain"
	callsrepo "dialflow_backend/internal/calls/repository"
	"dialflow_backend/internal/events"
	leadsdomain "dialflow_backend/internal/leads/domain"
	leadsrepo "dialflow_backend/internal/leads/repository"
	"dialflow_backend/internal/provider"
	"dialflow_backend/platform/apperr"
	"dialflow_backend/platform/logger"
	"dialflow_backend/platform/phone"
)

// ErrCycleExhausted signals that the lead's retry cycle is spent and still
// inside its cooldown window. Callers skip the lead; nothing was dialed.
var ErrCycleExhausted = errors.New("call cycle exhausted")

// FirstPollDelay is how long after dispatch the first outcome poll fires.
const FirstPollDelay = time.Minute

// LeadStore is the lead persistence surface the dispatcher needs.
type LeadStore interface {
	RecordDispatch(ctx context.Context, params leadsrepo.RecordDispatchParams) (leadsrepo.Lead, error)
}

// CallStore persists call records.
type CallStore interface {
	Create(ctx context.Context, params callsrepo.CreateCallParams) (callsrepo.CallRecord, error)
}

// CallCreator places outbound calls with the provider.
type CallCreator interface {
	CreateCall(ctx context.Context, assistantProviderID, phoneNumber string, metadata map[string]any) (*provider.Call, error)
}

// PollScheduler enqueues delayed outcome polls. Nil disables polling; the
// webhook path still reconciles outcomes.
type PollScheduler interface {
	SchedulePollOutcome(ctx context.Context, providerCallID string, leadID uuid.UUID, attempt int, delay time.Duration) error
}

// DedupMarker records a dialed lead so nearby engine cycles skip it.
type DedupMarker interface {
	MarkDialed(leadID uuid.UUID, phoneNumber string)
}

// DispatchResult reports what a successful dispatch did.
type DispatchResult struct {
	ProviderCallID string
	Attempt        int
	FreshCycle     bool
	PhoneNumber    string
}

// Dispatcher places provider calls for leads and persists the attempt-cycle
// bookkeeping.
type Dispatcher struct {
	leads    LeadStore
	calls    CallStore
	provider CallCreator
	poller   PollScheduler
	dedup    DedupMarker
	bus      events.Bus
	region   string
	log      *logger.Logger
	now      func() time.Time
}

// NewDispatcher creates a Dispatcher. poller and dedup may be nil.
func NewDispatcher(leads LeadStore, calls CallStore, prov CallCreator, poller PollScheduler, dedup DedupMarker, bus events.Bus, region string, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		leads:    leads,
		calls:    calls,
		provider: prov,
		poller:   poller,
		dedup:    dedup,
		bus:      bus,
		region:   region,
		log:      log,
		now:      time.Now,
	}
}

// Dispatch places a call to the lead with the given assistant. The attempt
// and cooldown rules are enforced against the lead's current stored state;
// an exhausted cycle returns ErrCycleExhausted without touching anything.
// A provider failure leaves the lead unchanged so the next engine cycle
// retries it.
func (d *Dispatcher) Dispatch(ctx context.Context, lead leadsrepo.Lead, assistant ResolvedAssistant) (DispatchResult, error) {
	now := d.now().UTC()

	number := phone.Canonical(lead.Phone, d.region)
	if !phone.Plausible(number) {
		return DispatchResult{}, apperr.Validation("lead phone number is not dialable").WithOp("calls.dispatch")
	}

	plan, ok := leadsdomain.PlanAttempt(lead.CallState(), now)
	if !ok {
		return DispatchResult{}, ErrCycleExhausted
	}

	call, err := d.provider.CreateCall(ctx, assistant.ProviderAssistantID, number, map[string]any{
		"leadId": lead.ID.String(),
	})
	if err != nil {
		d.log.ProviderError("calls.create", err)
		return DispatchResult{}, apperr.Wrap(apperr.KindUnavailable, "call provider rejected the call", err).WithOp("calls.dispatch")
	}

	assistantID := assistant.ID
	leadID := lead.ID
	startedAt := now
	if _, err := d.calls.Create(ctx, callsrepo.CreateCallParams{
		ProviderCallID: call.ID,
		AssistantID:    &assistantID,
		LeadID:         &leadID,
		PhoneNumber:    number,
		Status:         callsdomain.CallInitiated,
		StartedAt:      &startedAt,
	}); err != nil {
		d.log.DatabaseError("call_records.create", err)
	}

	if _, err := d.leads.RecordDispatch(ctx, leadsrepo.RecordDispatchParams{
		LeadID:         lead.ID,
		Attempts:       plan.Attempts,
		FreshCycle:     plan.FreshCycle,
		DispatchedAt:   now,
		ProviderCallID: call.ID,
	}); err != nil {
		// The call is already in flight; reconciliation by phone variants
		// still attributes the outcome.
		d.log.DatabaseError("leads.record_dispatch", err)
		return DispatchResult{}, err
	}

	if d.poller != nil {
		if err := d.poller.SchedulePollOutcome(ctx, call.ID, lead.ID, 1, FirstPollDelay); err != nil {
			d.log.Error("failed to schedule outcome poll", "providerCallId", call.ID, "error", err)
		}
	}

	if d.dedup != nil {
		d.dedup.MarkDialed(lead.ID, number)
	}

	d.bus.Publish(ctx, events.CallDispatched{
		BaseEvent:      events.NewBaseEvent(),
		LeadID:         lead.ID.String(),
		ProviderCallID: call.ID,
		AssistantID:    assistant.ProviderAssistantID,
		PhoneNumber:    number,
		Attempt:        plan.Attempts,
	})
	d.log.CallEvent("call_dispatched", lead.ID.String(), call.ID)

	return DispatchResult{
		ProviderCallID: call.ID,
		Attempt:        plan.Attempts,
		FreshCycle:     plan.FreshCycle,
		PhoneNumber:    number,
	}, nil
}

// ResolvedAssistant is the assistant view the dispatcher needs; it decouples
// the calls module from the assistants repository types.
type ResolvedAssistant struct {
	ID                  uuid.UUID
	ProviderAssistantID string
	Name                string
}
