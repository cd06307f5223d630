package events

import "time"

// Event names for the calling pipeline.
const (
	NameProviderCallStarted       = "provider.call.started"
	NameProviderCallEnded         = "provider.call.ended"
	NameProviderCallStatusChanged = "provider.call.status_changed"
	NameCallDispatched            = "autocall.call.dispatched"
)

// ProviderCallStarted is published when the calling provider reports that a
// call has connected.
type ProviderCallStarted struct {
	BaseEvent
	ProviderCallID string
	AssistantID    string
	PhoneNumber    string
	StartedAt      *time.Time
}

// EventName returns the event identifier.
func (ProviderCallStarted) EventName() string { return NameProviderCallStarted }

// ProviderCallEnded is published when the calling provider reports a terminal
// call outcome, via webhook or polling.
type ProviderCallEnded struct {
	BaseEvent
	ProviderCallID  string
	AssistantID     string
	PhoneNumber     string
	EndedReason     string
	DurationSeconds int
	EndedAt         *time.Time
	Cost            float64
	RecordingURL    string
	Transcript      string
	Raw             map[string]any
}

// EventName returns the event identifier.
func (ProviderCallEnded) EventName() string { return NameProviderCallEnded }

// ProviderCallStatusChanged is published for intermediate status updates.
type ProviderCallStatusChanged struct {
	BaseEvent
	ProviderCallID string
	PhoneNumber    string
	Status         string
	Raw            map[string]any
}

// EventName returns the event identifier.
func (ProviderCallStatusChanged) EventName() string { return NameProviderCallStatusChanged }

// CallDispatched is published after the dispatcher successfully places a call.
type CallDispatched struct {
	BaseEvent
	LeadID         string
	ProviderCallID string
	AssistantID    string
	PhoneNumber    string
	Attempt        int
}

// EventName returns the event identifier.
func (CallDispatched) EventName() string { return NameCallDispatched }
