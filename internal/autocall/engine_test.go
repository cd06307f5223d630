package autocall

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	callsservice "dialflow_backend/internal/calls/service"
	leadsrepo "dialflow_backend/internal/leads/repository"
	"dialflow_backend/platform/apperr"
	"dialflow_backend/platform/logger"
)

type fakeSource struct {
	mu       sync.Mutex
	eligible []leadsrepo.Lead
	limits   []int
}

func (f *fakeSource) FindEligible(_ context.Context, limit int) ([]leadsrepo.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.limits = append(f.limits, limit)
	if len(f.eligible) > limit {
		return f.eligible[:limit], nil
	}
	return f.eligible, nil
}

func (f *fakeSource) GetByID(_ context.Context, id uuid.UUID) (leadsrepo.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, lead := range f.eligible {
		if lead.ID == id {
			return lead, nil
		}
	}
	return leadsrepo.Lead{}, leadsrepo.ErrNotFound
}

type fakeResolver struct {
	assistant *ResolvedAssistant
	err       error
	byProject map[string]*ResolvedAssistant
}

func (f *fakeResolver) Resolve(_ context.Context, projectName string) (*ResolvedAssistant, error) {
	if f.err != nil {
		return nil, f.err
	}
	if f.byProject != nil {
		return f.byProject[projectName], nil
	}
	return f.assistant, nil
}

type fakeDispatcher struct {
	mu         sync.Mutex
	dispatched []uuid.UUID
	errFor     map[uuid.UUID]error
}

func (f *fakeDispatcher) Dispatch(_ context.Context, lead leadsrepo.Lead, _ callsservice.ResolvedAssistant) (callsservice.DispatchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errFor[lead.ID]; ok {
		return callsservice.DispatchResult{}, err
	}
	f.dispatched = append(f.dispatched, lead.ID)
	return callsservice.DispatchResult{ProviderCallID: "call-" + lead.ID.String()[:8], Attempt: 1}, nil
}

type engineConfig struct{}

func (engineConfig) GetAutoCallEnabled() bool                { return true }
func (engineConfig) GetAutoCallCheckInterval() time.Duration { return time.Minute }
func (engineConfig) GetAutoCallMaxPerBatch() int             { return 10 }
func (engineConfig) GetAutoCallWarmupDelay() time.Duration   { return time.Second }
func (engineConfig) GetAutoCallDispatchGap() time.Duration   { return 0 }
func (engineConfig) GetAutoCallAllowOverlap() bool           { return false }
func (engineConfig) GetDedupTTL() time.Duration              { return 10 * time.Minute }

func eligibleLead(project string) leadsrepo.Lead {
	return leadsrepo.Lead{
		ID:                   uuid.New(),
		Name:                 "Sam Vardy",
		Phone:                "+15551234567",
		ProjectName:          project,
		CallConnectionStatus: "pending",
	}
}

func newTestEngine(source *fakeSource, resolver *fakeResolver, dispatcher *fakeDispatcher, dedup *Dedup) *Engine {
	if dedup == nil {
		dedup = NewDedup(10 * time.Minute)
	}
	return NewEngine(source, resolver, dispatcher, dedup, engineConfig{}, "US", logger.New("test"))
}

func TestStartStopTransitions(t *testing.T) {
	e := newTestEngine(&fakeSource{}, &fakeResolver{}, &fakeDispatcher{}, nil)

	if e.Running() {
		t.Fatal("engine must start stopped")
	}
	if !e.Start() {
		t.Fatal("first Start() must start the loop")
	}
	defer e.Stop()

	if e.Start() {
		t.Error("second Start() must be a no-op")
	}
	if !e.Running() {
		t.Error("engine must report running")
	}

	if !e.Stop() {
		t.Error("Stop() on a running engine must report true")
	}
	if e.Stop() {
		t.Error("second Stop() must be a no-op")
	}
	if e.Running() {
		t.Error("engine must report stopped")
	}
}

func TestCheckDialsEligibleLeads(t *testing.T) {
	leads := []leadsrepo.Lead{eligibleLead("Solar"), eligibleLead("Solar"), eligibleLead("Solar")}
	source := &fakeSource{eligible: leads}
	resolver := &fakeResolver{assistant: &ResolvedAssistant{ID: uuid.New(), ProviderAssistantID: "asst-1"}}
	dispatcher := &fakeDispatcher{}

	e := newTestEngine(source, resolver, dispatcher, nil)
	e.checkAndCallLeads(context.Background())

	if len(dispatcher.dispatched) != 3 {
		t.Fatalf("dispatched = %d, want 3", len(dispatcher.dispatched))
	}
	if e.Status().TotalCalls != 3 {
		t.Errorf("TotalCalls = %d, want 3", e.Status().TotalCalls)
	}
}

func TestCheckSkipsDedupedLeads(t *testing.T) {
	leads := []leadsrepo.Lead{eligibleLead("Solar"), eligibleLead("Solar")}
	source := &fakeSource{eligible: leads}
	resolver := &fakeResolver{assistant: &ResolvedAssistant{ProviderAssistantID: "asst-1"}}
	dispatcher := &fakeDispatcher{}
	dedup := NewDedup(10 * time.Minute)
	dedup.MarkDialed(leads[0].ID, "+15551234567")

	e := newTestEngine(source, resolver, dispatcher, dedup)
	e.checkAndCallLeads(context.Background())

	if len(dispatcher.dispatched) != 1 {
		t.Fatalf("dispatched = %d, want 1 (deduped lead skipped)", len(dispatcher.dispatched))
	}
	if dispatcher.dispatched[0] != leads[1].ID {
		t.Error("wrong lead dialed")
	}
}

func TestCheckIsolatesPerLeadFailures(t *testing.T) {
	leads := []leadsrepo.Lead{eligibleLead("Solar"), eligibleLead("Solar"), eligibleLead("Solar")}
	source := &fakeSource{eligible: leads}
	resolver := &fakeResolver{assistant: &ResolvedAssistant{ProviderAssistantID: "asst-1"}}
	dispatcher := &fakeDispatcher{errFor: map[uuid.UUID]error{
		leads[1].ID: errors.New("provider: 500"),
	}}

	e := newTestEngine(source, resolver, dispatcher, nil)
	e.checkAndCallLeads(context.Background())

	if len(dispatcher.dispatched) != 2 {
		t.Fatalf("dispatched = %d, want 2 (failed lead skipped, rest dialed)", len(dispatcher.dispatched))
	}
	if e.Status().TotalCalls != 2 {
		t.Errorf("TotalCalls = %d, want 2", e.Status().TotalCalls)
	}
}

func TestCheckSkipsLeadsWithoutAssistant(t *testing.T) {
	withAssistant := eligibleLead("Solar")
	withoutAssistant := eligibleLead("Unknown")
	source := &fakeSource{eligible: []leadsrepo.Lead{withoutAssistant, withAssistant}}
	resolver := &fakeResolver{byProject: map[string]*ResolvedAssistant{
		"Solar": {ProviderAssistantID: "asst-1"},
	}}
	dispatcher := &fakeDispatcher{}

	e := newTestEngine(source, resolver, dispatcher, nil)
	e.checkAndCallLeads(context.Background())

	if len(dispatcher.dispatched) != 1 || dispatcher.dispatched[0] != withAssistant.ID {
		t.Fatalf("dispatched = %v, want only the lead with an assistant", dispatcher.dispatched)
	}
}

func TestUpdateSettingsKeepsRunningState(t *testing.T) {
	e := newTestEngine(&fakeSource{}, &fakeResolver{}, &fakeDispatcher{}, nil)
	if !e.Start() {
		t.Fatal("Start() failed")
	}
	defer e.Stop()

	delay := 30 * time.Second
	batch := 5
	status := e.UpdateSettings(Settings{CallDelay: &delay, MaxCallsPerBatch: &batch})

	if !status.Running {
		t.Error("settings update must not stop the engine")
	}
	if status.CallDelay != "30s" {
		t.Errorf("CallDelay = %q, want 30s", status.CallDelay)
	}
	if status.MaxCallsPerBatch != 5 {
		t.Errorf("MaxCallsPerBatch = %d, want 5", status.MaxCallsPerBatch)
	}
}

func TestUpdateSettingsIgnoresInvalidValues(t *testing.T) {
	e := newTestEngine(&fakeSource{}, &fakeResolver{}, &fakeDispatcher{}, nil)

	badDelay := -time.Second
	badBatch := 0
	status := e.UpdateSettings(Settings{CallDelay: &badDelay, MaxCallsPerBatch: &badBatch})

	if status.CallDelay != "1m0s" {
		t.Errorf("CallDelay = %q, want unchanged 1m0s", status.CallDelay)
	}
	if status.MaxCallsPerBatch != 10 {
		t.Errorf("MaxCallsPerBatch = %d, want unchanged 10", status.MaxCallsPerBatch)
	}
}

func TestBatchSizeCapsSelection(t *testing.T) {
	var leads []leadsrepo.Lead
	for i := 0; i < 15; i++ {
		leads = append(leads, eligibleLead("Solar"))
	}
	source := &fakeSource{eligible: leads}
	resolver := &fakeResolver{assistant: &ResolvedAssistant{ProviderAssistantID: "asst-1"}}
	dispatcher := &fakeDispatcher{}

	e := newTestEngine(source, resolver, dispatcher, nil)
	e.checkAndCallLeads(context.Background())

	if len(source.limits) != 1 || source.limits[0] != 10 {
		t.Fatalf("limits = %v, want one query capped at 10", source.limits)
	}
	if len(dispatcher.dispatched) != 10 {
		t.Errorf("dispatched = %d, want 10", len(dispatcher.dispatched))
	}
}

func TestCallLeadManualTrigger(t *testing.T) {
	lead := eligibleLead("Solar")
	source := &fakeSource{eligible: []leadsrepo.Lead{lead}}
	resolver := &fakeResolver{assistant: &ResolvedAssistant{ProviderAssistantID: "asst-1"}}
	dispatcher := &fakeDispatcher{}

	e := newTestEngine(source, resolver, dispatcher, nil)
	result, err := e.CallLead(context.Background(), lead.ID)
	if err != nil {
		t.Fatalf("CallLead() error = %v", err)
	}
	if result.Attempt != 1 {
		t.Errorf("Attempt = %d, want 1", result.Attempt)
	}

	if _, err := e.CallLead(context.Background(), uuid.New()); !apperr.Is(err, apperr.KindNotFound) {
		t.Errorf("unknown lead error = %v, want not found", err)
	}
}

func TestCallLeadRefusesDedupedLead(t *testing.T) {
	lead := eligibleLead("Solar")
	source := &fakeSource{eligible: []leadsrepo.Lead{lead}}
	resolver := &fakeResolver{assistant: &ResolvedAssistant{ProviderAssistantID: "asst-1"}}
	dedup := NewDedup(10 * time.Minute)
	dedup.MarkDialed(lead.ID, "+15551234567")

	e := newTestEngine(source, resolver, &fakeDispatcher{}, dedup)
	if _, err := e.CallLead(context.Background(), lead.ID); !apperr.Is(err, apperr.KindConflict) {
		t.Errorf("error = %v, want conflict for a just-dialed lead", err)
	}
}
