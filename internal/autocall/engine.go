package autocall

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	callsservice "dialflow_backend/internal/calls/service"
	leadsrepo "dialflow_backend/internal/leads/repository"
	"dialflow_backend/platform/apperr"
	"dialflow_backend/platform/config"
	"dialflow_backend/platform/logger"
	"dialflow_backend/platform/phone"
)

// bootstrapDelay is how soon after Start the first eligibility check runs,
// ahead of the regular ticker.
const bootstrapDelay = time.Second

// LeadSource provides the leads the engine operates on.
type LeadSource interface {
	FindEligible(ctx context.Context, limit int) ([]leadsrepo.Lead, error)
	GetByID(ctx context.Context, id uuid.UUID) (leadsrepo.Lead, error)
}

// ResolvedAssistant is the assistant view the engine hands to the dispatcher.
type ResolvedAssistant struct {
	ID                  uuid.UUID
	ProviderAssistantID string
	Name                string
}

// AssistantResolver picks a verified assistant for a project. A nil result
// with nil error means no assistant is available right now.
type AssistantResolver interface {
	Resolve(ctx context.Context, projectName string) (*ResolvedAssistant, error)
}

// CallDispatcher places a call for a lead.
type CallDispatcher interface {
	Dispatch(ctx context.Context, lead leadsrepo.Lead, assistant callsservice.ResolvedAssistant) (callsservice.DispatchResult, error)
}

// Settings are the engine knobs adjustable at runtime. Nil fields keep their
// current value.
type Settings struct {
	CallDelay        *time.Duration
	MaxCallsPerBatch *int
}

// Status is a snapshot of the engine state.
type Status struct {
	Running          bool       `json:"running"`
	CallDelay        string     `json:"callDelay"`
	MaxCallsPerBatch int        `json:"maxCallsPerBatch"`
	LastCheckAt      *time.Time `json:"lastCheckAt,omitempty"`
	NextCheckAt      *time.Time `json:"nextCheckAt,omitempty"`
	TotalCalls       int64      `json:"totalCalls"`
	DedupSize        int        `json:"dedupSize"`
}

// Engine drives the automatic call cycle. It owns a background loop that
// periodically selects eligible leads and dispatches calls through the
// resolver and dispatcher.
type Engine struct {
	source     LeadSource
	resolver   AssistantResolver
	dispatcher CallDispatcher
	dedup      *Dedup
	log        *logger.Logger

	region       string
	allowOverlap bool
	dispatchGap  time.Duration

	group singleflight.Group

	mu            sync.Mutex
	running       bool
	cancel        context.CancelFunc
	checkInterval time.Duration
	maxPerBatch   int
	lastCheckAt   *time.Time
	nextCheckAt   *time.Time
	totalCalls    int64
	resetCh       chan time.Duration
}

// NewEngine creates the engine in the stopped state.
func NewEngine(source LeadSource, resolver AssistantResolver, dispatcher CallDispatcher, dedup *Dedup, cfg config.AutoCallConfig, region string, log *logger.Logger) *Engine {
	return &Engine{
		source:        source,
		resolver:      resolver,
		dispatcher:    dispatcher,
		dedup:         dedup,
		log:           log,
		region:        region,
		allowOverlap:  cfg.GetAutoCallAllowOverlap(),
		dispatchGap:   cfg.GetAutoCallDispatchGap(),
		checkInterval: cfg.GetAutoCallCheckInterval(),
		maxPerBatch:   cfg.GetAutoCallMaxPerBatch(),
	}
}

// Start transitions the engine to running. Calling Start on a running engine
// is a no-op; it reports whether the call actually started the loop.
func (e *Engine) Start() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.running {
		return false
	}

	ctx, cancel := context.WithCancel(context.Background())
	e.cancel = cancel
	e.running = true
	e.resetCh = make(chan time.Duration, 1)
	next := time.Now().Add(bootstrapDelay)
	e.nextCheckAt = &next

	go e.run(ctx, e.resetCh)
	e.log.Info("auto-call engine started", "checkInterval", e.checkInterval.String(), "maxPerBatch", e.maxPerBatch)
	return true
}

// Stop halts the loop. In-flight dispatches finish; scheduled poll tasks are
// unaffected. Reports whether the engine was running.
func (e *Engine) Stop() bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return false
	}

	e.cancel()
	e.cancel = nil
	e.running = false
	e.nextCheckAt = nil
	e.log.Info("auto-call engine stopped")
	return true
}

// Running reports whether the loop is active.
func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// UpdateSettings applies new knobs. A changed call delay resets the ticker in
// place; the engine keeps running throughout.
func (e *Engine) UpdateSettings(settings Settings) Status {
	e.mu.Lock()

	if settings.MaxCallsPerBatch != nil && *settings.MaxCallsPerBatch > 0 {
		e.maxPerBatch = *settings.MaxCallsPerBatch
	}

	var reset *time.Duration
	if settings.CallDelay != nil && *settings.CallDelay > 0 {
		e.checkInterval = *settings.CallDelay
		if e.running {
			reset = settings.CallDelay
		}
	}
	resetCh := e.resetCh
	e.mu.Unlock()

	if reset != nil && resetCh != nil {
		select {
		case resetCh <- *reset:
		default:
		}
	}

	return e.Status()
}

// Status returns a snapshot of the engine state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()

	return Status{
		Running:          e.running,
		CallDelay:        e.checkInterval.String(),
		MaxCallsPerBatch: e.maxPerBatch,
		LastCheckAt:      e.lastCheckAt,
		NextCheckAt:      e.nextCheckAt,
		TotalCalls:       e.totalCalls,
		DedupSize:        e.dedup.Len(),
	}
}

// CallLead dispatches a single lead outside the regular cycle (manual
// trigger). The same resolution, attempt, and dedup rules apply.
func (e *Engine) CallLead(ctx context.Context, leadID uuid.UUID) (callsservice.DispatchResult, error) {
	lead, err := e.source.GetByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, leadsrepo.ErrNotFound) {
			return callsservice.DispatchResult{}, apperr.NotFound("lead not found")
		}
		return callsservice.DispatchResult{}, err
	}

	number := phone.Canonical(lead.Phone, e.region)
	if e.dedup.Contains(lead.ID, number) {
		return callsservice.DispatchResult{}, apperr.Conflict("lead was dialed moments ago")
	}

	assistant, err := e.resolver.Resolve(ctx, lead.ProjectName)
	if err != nil {
		return callsservice.DispatchResult{}, err
	}
	if assistant == nil {
		return callsservice.DispatchResult{}, apperr.Unavailable("no verified assistant available")
	}

	result, err := e.dispatcher.Dispatch(ctx, lead, callsservice.ResolvedAssistant{
		ID:                  assistant.ID,
		ProviderAssistantID: assistant.ProviderAssistantID,
		Name:                assistant.Name,
	})
	if err != nil {
		if errors.Is(err, callsservice.ErrCycleExhausted) {
			return callsservice.DispatchResult{}, apperr.Conflict("lead call cycle is exhausted")
		}
		return callsservice.DispatchResult{}, err
	}

	e.mu.Lock()
	e.totalCalls++
	e.mu.Unlock()

	return result, nil
}

func (e *Engine) run(ctx context.Context, resetCh chan time.Duration) {
	bootstrap := time.NewTimer(bootstrapDelay)
	defer bootstrap.Stop()

	ticker := time.NewTicker(e.interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case d := <-resetCh:
			ticker.Reset(d)
			e.recordNextCheck(d)
		case <-bootstrap.C:
			e.tick(ctx)
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

// tick runs one eligibility check. Checks run off the loop goroutine so a
// slow batch never delays ticker bookkeeping; overlapping runs collapse into
// one through singleflight unless overlap is explicitly allowed.
func (e *Engine) tick(ctx context.Context) {
	interval := e.interval()
	now := time.Now()
	e.mu.Lock()
	e.lastCheckAt = &now
	next := now.Add(interval)
	e.nextCheckAt = &next
	e.mu.Unlock()

	if e.allowOverlap {
		go e.checkAndCallLeads(ctx)
		return
	}

	go func() {
		_, _, _ = e.group.Do("check", func() (interface{}, error) {
			e.checkAndCallLeads(ctx)
			return nil, nil
		})
	}()
}

// checkAndCallLeads selects the oldest eligible leads up to the batch size
// and dials each one. Per-lead failures are isolated: the lead stays
// eligible and the loop moves on.
func (e *Engine) checkAndCallLeads(ctx context.Context) {
	leads, err := e.source.FindEligible(ctx, e.batchSize())
	if err != nil {
		e.log.DatabaseError("leads.find_eligible", err)
		return
	}
	if len(leads) == 0 {
		return
	}

	e.log.Info("auto-call cycle", "candidates", len(leads))

	for i, lead := range leads {
		if ctx.Err() != nil {
			return
		}

		number := phone.Canonical(lead.Phone, e.region)
		if e.dedup.Contains(lead.ID, number) {
			continue
		}

		if e.dialLead(ctx, lead) {
			e.mu.Lock()
			e.totalCalls++
			e.mu.Unlock()
		}

		if i < len(leads)-1 && e.dispatchGap > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(e.dispatchGap):
			}
		}
	}
}

func (e *Engine) dialLead(ctx context.Context, lead leadsrepo.Lead) bool {
	assistant, err := e.resolver.Resolve(ctx, lead.ProjectName)
	if err != nil {
		e.log.Error("assistant resolution failed", "leadId", lead.ID.String(), "error", err)
		return false
	}
	if assistant == nil {
		e.log.Debug("no assistant for lead", "leadId", lead.ID.String(), "project", lead.ProjectName)
		return false
	}

	_, err = e.dispatcher.Dispatch(ctx, lead, callsservice.ResolvedAssistant{
		ID:                  assistant.ID,
		ProviderAssistantID: assistant.ProviderAssistantID,
		Name:                assistant.Name,
	})
	if err != nil {
		if errors.Is(err, callsservice.ErrCycleExhausted) {
			return false
		}
		e.log.Warn("dispatch failed, lead stays eligible", "leadId", lead.ID.String(), "error", err)
		return false
	}
	return true
}

func (e *Engine) interval() time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.checkInterval
}

func (e *Engine) batchSize() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.maxPerBatch
}

func (e *Engine) recordNextCheck(interval time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	next := time.Now().Add(interval)
	e.nextCheckAt = &next
}
