package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"dialflow_backend/platform/logger"
)

func newTestReconciler(leads *fakeLeadStore, calls *fakeCallStore) *Reconciler {
	return NewReconciler(leads, calls, "US", logger.New("test"))
}

func endedInput(leadID *uuid.UUID, phone, reason string, duration int) ReconcileInput {
	endedAt := time.Now().UTC()
	return ReconcileInput{
		ProviderCallID:  "call-1",
		LeadID:          leadID,
		PhoneNumber:     phone,
		Terminal:        true,
		EndedReason:     reason,
		DurationSeconds: duration,
		EndedAt:         &endedAt,
	}
}

func TestReconcileCompletedCallMarksLeadCompleted(t *testing.T) {
	leads := newFakeLeadStore()
	calls := newFakeCallStore()
	calls.known["call-1"] = true

	lead := freshLead("+15551234567")
	lead.CallConnectionStatus = "in-progress"
	lead.AutoCallAttempts = 1
	leads.leads[lead.ID] = lead

	r := newTestReconciler(leads, calls)
	if err := r.Reconcile(context.Background(), endedInput(&lead.ID, lead.Phone, "customer-ended-call", 95)); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if got := calls.outcomes["call-1"].Status; got != "completed" {
		t.Errorf("call record status = %q, want completed", got)
	}
	if len(leads.outcomes) != 1 {
		t.Fatalf("lead outcomes = %d, want 1", len(leads.outcomes))
	}
	outcome := leads.outcomes[0]
	if outcome.Status != "completed" {
		t.Errorf("lead status = %q, want completed", outcome.Status)
	}
	if !outcome.ResetCycle {
		t.Error("successful contact must reset the attempt cycle")
	}
}

func TestReconcileIsIdempotent(t *testing.T) {
	leads := newFakeLeadStore()
	calls := newFakeCallStore()
	calls.known["call-1"] = true

	lead := freshLead("+15551234567")
	lead.CallConnectionStatus = "in-progress"
	leads.leads[lead.ID] = lead

	r := newTestReconciler(leads, calls)
	input := endedInput(&lead.ID, lead.Phone, "customer-ended-call", 95)

	// Webhook and poll race deliver the same outcome twice.
	if err := r.Reconcile(context.Background(), input); err != nil {
		t.Fatalf("first Reconcile() error = %v", err)
	}
	if err := r.Reconcile(context.Background(), input); err != nil {
		t.Fatalf("second Reconcile() error = %v", err)
	}

	if got := leads.leads[lead.ID].CallConnectionStatus; got != "completed" {
		t.Errorf("final lead status = %q, want completed", got)
	}
	for _, outcome := range leads.outcomes {
		if outcome.Status != "completed" {
			t.Errorf("every write must carry completed, got %q", outcome.Status)
		}
	}
}

func TestReconcileNeverDowngradesCompletedLead(t *testing.T) {
	leads := newFakeLeadStore()
	calls := newFakeCallStore()
	calls.known["call-1"] = true

	lead := freshLead("+15551234567")
	lead.CallConnectionStatus = "completed"
	leads.leads[lead.ID] = lead

	r := newTestReconciler(leads, calls)
	if err := r.Reconcile(context.Background(), endedInput(&lead.ID, lead.Phone, "no-answer", 0)); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if len(leads.outcomes) != 0 {
		t.Fatalf("lead outcomes = %d, want 0 (completed never downgrades)", len(leads.outcomes))
	}
	if got := leads.leads[lead.ID].CallConnectionStatus; got != "completed" {
		t.Errorf("lead status = %q, want completed untouched", got)
	}
}

func TestReconcileConnectedToFailedNeedsGenuineFailure(t *testing.T) {
	leads := newFakeLeadStore()
	calls := newFakeCallStore()
	calls.known["call-1"] = true

	lead := freshLead("+15551234567")
	lead.CallConnectionStatus = "connected"
	leads.leads[lead.ID] = lead

	r := newTestReconciler(leads, calls)

	// A provider-side error is not a genuine failure; connected stays.
	if err := r.Reconcile(context.Background(), endedInput(&lead.ID, lead.Phone, "assistant-error", 0)); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(leads.outcomes) != 0 {
		t.Fatal("provider error must not downgrade a connected lead")
	}

	// A real no-answer is allowed through.
	if err := r.Reconcile(context.Background(), endedInput(&lead.ID, lead.Phone, "no-answer", 0)); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(leads.outcomes) != 1 || leads.outcomes[0].Status != "failed" {
		t.Fatalf("outcomes = %+v, want one failed write", leads.outcomes)
	}
}

func TestReconcileFindsLeadByPhoneVariants(t *testing.T) {
	leads := newFakeLeadStore()
	calls := newFakeCallStore()
	calls.known["call-1"] = true

	lead := freshLead("(555) 123-4567")
	lead.CallConnectionStatus = "in-progress"
	leads.leads[lead.ID] = lead
	leads.byPhone = &lead

	r := newTestReconciler(leads, calls)
	// Webhook knows the phone only, not the lead.
	if err := r.Reconcile(context.Background(), endedInput(nil, "+15551234567", "customer-ended-call", 45)); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if len(leads.outcomes) != 1 || leads.outcomes[0].LeadID != lead.ID {
		t.Fatalf("outcomes = %+v, want a write on the variant-matched lead", leads.outcomes)
	}
}

func TestReconcileUnknownLeadIsNotAnError(t *testing.T) {
	leads := newFakeLeadStore()
	calls := newFakeCallStore()
	calls.known["call-1"] = true

	r := newTestReconciler(leads, calls)
	if err := r.Reconcile(context.Background(), endedInput(nil, "+19998887766", "no-answer", 0)); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}
	if len(leads.outcomes) != 0 {
		t.Error("no lead write expected for an unmatched phone")
	}
}

func TestReconcileCallStartedConnectsLead(t *testing.T) {
	leads := newFakeLeadStore()
	calls := newFakeCallStore()

	lead := freshLead("+15551234567")
	lead.CallConnectionStatus = "in-progress"
	leads.leads[lead.ID] = lead
	leads.byPhone = &lead

	startedAt := time.Now().UTC()
	r := newTestReconciler(leads, calls)
	err := r.Reconcile(context.Background(), ReconcileInput{
		ProviderCallID: "call-1",
		PhoneNumber:    lead.Phone,
		Terminal:       false,
		StartedAt:      &startedAt,
	})
	if err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if len(calls.created) != 1 || calls.created[0].Status != "in-progress" {
		t.Fatalf("call creates = %+v, want one in-progress record", calls.created)
	}
	if len(leads.outcomes) != 1 || leads.outcomes[0].Status != "connected" {
		t.Fatalf("outcomes = %+v, want one connected write", leads.outcomes)
	}
	if !leads.outcomes[0].ResetCycle {
		t.Error("a connected call counts as contact and resets the cycle")
	}
}

func TestReconcileCreatesRecordForUnknownCall(t *testing.T) {
	leads := newFakeLeadStore()
	calls := newFakeCallStore()

	r := newTestReconciler(leads, calls)
	if err := r.Reconcile(context.Background(), endedInput(nil, "+19998887766", "busy", 0)); err != nil {
		t.Fatalf("Reconcile() error = %v", err)
	}

	if len(calls.created) != 1 {
		t.Fatalf("call creates = %d, want 1 backfilled record", len(calls.created))
	}
	if got := calls.outcomes["call-1"].Status; got != "busy" {
		t.Errorf("call record status = %q, want busy", got)
	}
}
