package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	callsdomain "dialflow_backend/internal/calls/domain"
	callsrepo "dialflow_backend/internal/calls/repository"
	leadsdomain "dialflow_backend/internal/leads/domain"
	leadsrepo "dialflow_backend/internal/leads/repository"
	"dialflow_backend/platform/logger"
	"dialflow_backend/platform/phone"
)

// ReconcileLeadStore is the lead persistence surface the reconciler needs.
type ReconcileLeadStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (leadsrepo.Lead, error)
	FindByPhoneVariants(ctx context.Context, variants []string) (leadsrepo.Lead, error)
	ApplyOutcome(ctx context.Context, params leadsrepo.ApplyOutcomeParams) (leadsrepo.Lead, error)
}

// ReconcileCallStore is the call record surface the reconciler needs.
type ReconcileCallStore interface {
	Create(ctx context.Context, params callsrepo.CreateCallParams) (callsrepo.CallRecord, error)
	ApplyOutcome(ctx context.Context, providerCallID string, params callsrepo.OutcomeParams) error
}

// ReconcileInput carries one provider call observation, from either a webhook
// delivery or an outcome poll. Webhooks and polls race and repeat; Reconcile
// must converge to the same lead state regardless of order or duplication.
type ReconcileInput struct {
	ProviderCallID string
	// LeadID short-circuits the phone-variant lookup when known (poll path).
	LeadID          *uuid.UUID
	AssistantID     string
	PhoneNumber     string
	Terminal        bool
	EndedReason     string
	DurationSeconds int
	StartedAt       *time.Time
	EndedAt         *time.Time
	Cost            *float64
	RecordingURL    *string
	Transcript      *string
}

// Reconciler applies provider call outcomes to call records and leads.
type Reconciler struct {
	leads  ReconcileLeadStore
	calls  ReconcileCallStore
	region string
	log    *logger.Logger
	now    func() time.Time
}

// NewReconciler creates a Reconciler.
func NewReconciler(leads ReconcileLeadStore, calls ReconcileCallStore, region string, log *logger.Logger) *Reconciler {
	return &Reconciler{
		leads:  leads,
		calls:  calls,
		region: region,
		log:    log,
		now:    time.Now,
	}
}

// Reconcile derives the call status from the observation, records it, and
// updates the owning lead unless the anti-downgrade rules say otherwise.
func (r *Reconciler) Reconcile(ctx context.Context, input ReconcileInput) error {
	callStatus := callsdomain.CallInProgress
	if input.Terminal {
		callStatus = callsdomain.DeriveStatus(input.EndedReason, input.DurationSeconds)
	}

	if err := r.recordCall(ctx, input, callStatus); err != nil {
		r.log.DatabaseError("call_records.apply_outcome", err)
	}

	lead, found, err := r.findLead(ctx, input)
	if err != nil {
		return err
	}
	if !found {
		r.log.Debug("no lead matched provider call",
			"providerCallId", input.ProviderCallID,
			"phone", input.PhoneNumber)
		return nil
	}

	nextStatus := callsdomain.LeadStatusFor(callStatus)

	// Re-read right before the write; a webhook and a poll for the same call
	// may interleave and the skip decision must see the freshest status.
	current, err := r.leads.GetByID(ctx, lead.ID)
	if err != nil {
		if errors.Is(err, leadsrepo.ErrNotFound) {
			return nil
		}
		return err
	}

	if callsdomain.ShouldSkipLeadUpdate(current.CallConnectionStatus, nextStatus, callStatus, input.EndedReason) {
		r.log.Debug("skipping lead status downgrade",
			"leadId", current.ID.String(),
			"current", current.CallConnectionStatus,
			"next", nextStatus)
		return nil
	}

	_, err = r.leads.ApplyOutcome(ctx, leadsrepo.ApplyOutcomeParams{
		LeadID:         current.ID,
		Status:         nextStatus,
		OutcomeAt:      r.now().UTC(),
		ProviderCallID: input.ProviderCallID,
		ResetCycle:     leadsdomain.IsContactSuccess(nextStatus),
	})
	if err != nil {
		return err
	}

	r.log.CallEvent("lead_status_reconciled", current.ID.String(), input.ProviderCallID)
	return nil
}

// recordCall upserts the call record for this observation. Calls first seen
// through a webhook (no dispatch insert) get a fresh record.
func (r *Reconciler) recordCall(ctx context.Context, input ReconcileInput, callStatus string) error {
	if !input.Terminal {
		_, err := r.calls.Create(ctx, callsrepo.CreateCallParams{
			ProviderCallID: input.ProviderCallID,
			LeadID:         input.LeadID,
			PhoneNumber:    input.PhoneNumber,
			Status:         callStatus,
			StartedAt:      input.StartedAt,
		})
		return err
	}

	params := callsrepo.OutcomeParams{
		Status:       callStatus,
		EndedAt:      input.EndedAt,
		Cost:         input.Cost,
		RecordingURL: input.RecordingURL,
		Transcript:   input.Transcript,
	}
	if input.EndedReason != "" {
		reason := input.EndedReason
		params.EndedReason = &reason
	}
	if input.DurationSeconds > 0 {
		duration := input.DurationSeconds
		params.DurationSeconds = &duration
	}

	err := r.calls.ApplyOutcome(ctx, input.ProviderCallID, params)
	if errors.Is(err, callsrepo.ErrNotFound) {
		if _, createErr := r.calls.Create(ctx, callsrepo.CreateCallParams{
			ProviderCallID: input.ProviderCallID,
			LeadID:         input.LeadID,
			PhoneNumber:    input.PhoneNumber,
			Status:         callsdomain.CallInitiated,
			StartedAt:      input.StartedAt,
		}); createErr != nil {
			return createErr
		}
		return r.calls.ApplyOutcome(ctx, input.ProviderCallID, params)
	}
	return err
}

// findLead resolves the lead for the observation: a known lead id wins,
// otherwise the phone number is matched across its stored variants.
func (r *Reconciler) findLead(ctx context.Context, input ReconcileInput) (leadsrepo.Lead, bool, error) {
	if input.LeadID != nil {
		lead, err := r.leads.GetByID(ctx, *input.LeadID)
		if err == nil {
			return lead, true, nil
		}
		if !errors.Is(err, leadsrepo.ErrNotFound) {
			return leadsrepo.Lead{}, false, err
		}
	}

	if input.PhoneNumber == "" {
		return leadsrepo.Lead{}, false, nil
	}

	variants := phone.Variants(input.PhoneNumber, r.region)
	lead, err := r.leads.FindByPhoneVariants(ctx, variants)
	if err != nil {
		if errors.Is(err, leadsrepo.ErrNotFound) {
			return leadsrepo.Lead{}, false, nil
		}
		return leadsrepo.Lead{}, false, err
	}
	return lead, true, nil
}
