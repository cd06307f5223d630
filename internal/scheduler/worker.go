package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	callsservice "dialflow_backend/internal/calls/service"
	"dialflow_backend/internal/provider"
	"dialflow_backend/platform/config"
	"dialflow_backend/platform/logger"
)

// CallFetcher reads call state from the provider.
type CallFetcher interface {
	GetCall(ctx context.Context, providerCallID string) (*provider.Call, error)
}

// OutcomeReconciler applies a terminal call observation to the lead.
type OutcomeReconciler interface {
	Reconcile(ctx context.Context, input callsservice.ReconcileInput) error
}

// Repoller re-enqueues a poll task for a later attempt.
type Repoller interface {
	SchedulePollOutcome(ctx context.Context, providerCallID string, leadID uuid.UUID, attempt int, delay time.Duration) error
}

type Worker struct {
	server     *asynq.Server
	mux        *asynq.ServeMux
	fetcher    CallFetcher
	reconciler OutcomeReconciler
	repoller   Repoller
	log        *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, fetcher CallFetcher, reconciler OutcomeReconciler, repoller Repoller, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:     server,
		mux:        mux,
		fetcher:    fetcher,
		reconciler: reconciler,
		repoller:   repoller,
		log:        log,
	}

	mux.HandleFunc(TaskCallPollOutcome, w.handleCallPollOutcome)

	return w, nil
}

// handleCallPollOutcome checks a dispatched call's state at the provider. A
// terminal call is reconciled onto the lead; a still-running call is polled
// again with a growing delay until the attempt budget is spent. Exhaustion is
// silent: webhooks usually beat the poller anyway.
func (w *Worker) handleCallPollOutcome(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseCallPollOutcomePayload(task)
	if err != nil {
		return err
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return err
	}

	call, err := w.fetcher.GetCall(ctx, payload.ProviderCallID)
	if err != nil {
		w.log.ProviderError("calls.poll", err)
		return w.repoll(ctx, payload, leadID)
	}

	if !call.Ended() {
		return w.repoll(ctx, payload, leadID)
	}

	input := callsservice.ReconcileInput{
		ProviderCallID:  call.ID,
		LeadID:          &leadID,
		AssistantID:     call.AssistantID,
		PhoneNumber:     call.Customer.Number,
		Terminal:        true,
		EndedReason:     call.EndedReason,
		DurationSeconds: call.DurationSeconds,
		StartedAt:       call.StartedAt,
		EndedAt:         call.EndedAt,
	}
	if call.Cost > 0 {
		cost := call.Cost
		input.Cost = &cost
	}
	if call.RecordingURL != "" {
		url := call.RecordingURL
		input.RecordingURL = &url
	}
	if call.Transcript != "" {
		transcript := call.Transcript
		input.Transcript = &transcript
	}

	return w.reconciler.Reconcile(ctx, input)
}

// repoll schedules the next attempt, or gives up once the budget is spent.
// Delays grow with the attempt number: 1, 2, then 3 minutes.
func (w *Worker) repoll(ctx context.Context, payload CallPollOutcomePayload, leadID uuid.UUID) error {
	if payload.Attempt >= MaxPollAttempts {
		w.log.Debug("outcome poll exhausted",
			"providerCallId", payload.ProviderCallID,
			"attempts", payload.Attempt)
		return nil
	}

	next := payload.Attempt + 1
	delay := time.Duration(next) * time.Minute
	return w.repoller.SchedulePollOutcome(ctx, payload.ProviderCallID, leadID, next, delay)
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
