package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	callsservice "dialflow_backend/internal/calls/service"
	"dialflow_backend/internal/provider"
	"dialflow_backend/platform/logger"
)

type fakeFetcher struct {
	call *provider.Call
	err  error
}

func (f *fakeFetcher) GetCall(_ context.Context, _ string) (*provider.Call, error) {
	return f.call, f.err
}

type fakeReconciler struct {
	inputs []callsservice.ReconcileInput
}

func (f *fakeReconciler) Reconcile(_ context.Context, input callsservice.ReconcileInput) error {
	f.inputs = append(f.inputs, input)
	return nil
}

type fakeRepoller struct {
	attempts []int
	delays   []time.Duration
}

func (f *fakeRepoller) SchedulePollOutcome(_ context.Context, _ string, _ uuid.UUID, attempt int, delay time.Duration) error {
	f.attempts = append(f.attempts, attempt)
	f.delays = append(f.delays, delay)
	return nil
}

func pollTask(t *testing.T, attempt int) *asynq.Task {
	t.Helper()
	task, err := NewCallPollOutcomeTask(CallPollOutcomePayload{
		ProviderCallID: "call-1",
		LeadID:         uuid.NewString(),
		Attempt:        attempt,
	})
	if err != nil {
		t.Fatalf("NewCallPollOutcomeTask() error = %v", err)
	}
	return task
}

func newTestWorker(fetcher *fakeFetcher, reconciler *fakeReconciler, repoller *fakeRepoller) *Worker {
	return &Worker{
		fetcher:    fetcher,
		reconciler: reconciler,
		repoller:   repoller,
		log:        logger.New("test"),
	}
}

func TestPollReconcilesEndedCall(t *testing.T) {
	endedAt := time.Now().UTC()
	fetcher := &fakeFetcher{call: &provider.Call{
		ID:              "call-1",
		AssistantID:     "asst-1",
		Status:          provider.CallStatusEnded,
		EndedReason:     "customer-ended-call",
		Customer:        provider.Customer{Number: "+15551234567"},
		DurationSeconds: 72,
		EndedAt:         &endedAt,
		Cost:            0.41,
	}}
	reconciler := &fakeReconciler{}
	repoller := &fakeRepoller{}

	w := newTestWorker(fetcher, reconciler, repoller)
	if err := w.handleCallPollOutcome(context.Background(), pollTask(t, 1)); err != nil {
		t.Fatalf("handleCallPollOutcome() error = %v", err)
	}

	if len(reconciler.inputs) != 1 {
		t.Fatalf("reconciles = %d, want 1", len(reconciler.inputs))
	}
	input := reconciler.inputs[0]
	if !input.Terminal || input.EndedReason != "customer-ended-call" || input.DurationSeconds != 72 {
		t.Errorf("reconcile input = %+v", input)
	}
	if input.LeadID == nil {
		t.Error("poll path must pass the known lead id")
	}
	if len(repoller.attempts) != 0 {
		t.Error("no re-poll expected for an ended call")
	}
}

func TestPollRepollsRunningCallWithGrowingDelay(t *testing.T) {
	fetcher := &fakeFetcher{call: &provider.Call{ID: "call-1", Status: "in-progress"}}
	reconciler := &fakeReconciler{}
	repoller := &fakeRepoller{}

	w := newTestWorker(fetcher, reconciler, repoller)
	if err := w.handleCallPollOutcome(context.Background(), pollTask(t, 1)); err != nil {
		t.Fatalf("handleCallPollOutcome() error = %v", err)
	}
	if err := w.handleCallPollOutcome(context.Background(), pollTask(t, 2)); err != nil {
		t.Fatalf("handleCallPollOutcome() error = %v", err)
	}

	if len(repoller.attempts) != 2 {
		t.Fatalf("re-polls = %d, want 2", len(repoller.attempts))
	}
	if repoller.attempts[0] != 2 || repoller.delays[0] != 2*time.Minute {
		t.Errorf("first re-poll = attempt %d after %v, want attempt 2 after 2m", repoller.attempts[0], repoller.delays[0])
	}
	if repoller.attempts[1] != 3 || repoller.delays[1] != 3*time.Minute {
		t.Errorf("second re-poll = attempt %d after %v, want attempt 3 after 3m", repoller.attempts[1], repoller.delays[1])
	}
	if len(reconciler.inputs) != 0 {
		t.Error("no reconcile expected for a running call")
	}
}

func TestPollGivesUpSilentlyAfterMaxAttempts(t *testing.T) {
	fetcher := &fakeFetcher{call: &provider.Call{ID: "call-1", Status: "in-progress"}}
	repoller := &fakeRepoller{}

	w := newTestWorker(fetcher, &fakeReconciler{}, repoller)
	if err := w.handleCallPollOutcome(context.Background(), pollTask(t, MaxPollAttempts)); err != nil {
		t.Fatalf("handleCallPollOutcome() error = %v", err)
	}

	if len(repoller.attempts) != 0 {
		t.Error("no re-poll expected once the attempt budget is spent")
	}
}

func TestPollRetriesProviderErrors(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("provider: timeout")}
	repoller := &fakeRepoller{}

	w := newTestWorker(fetcher, &fakeReconciler{}, repoller)
	if err := w.handleCallPollOutcome(context.Background(), pollTask(t, 1)); err != nil {
		t.Fatalf("handleCallPollOutcome() error = %v", err)
	}

	if len(repoller.attempts) != 1 || repoller.attempts[0] != 2 {
		t.Errorf("re-polls = %+v, want one at attempt 2", repoller.attempts)
	}
}
