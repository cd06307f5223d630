package provider

import "time"

// CallStatusEnded is the provider's terminal call status.
const CallStatusEnded = "ended"

// Customer identifies the callee on a provider call.
type Customer struct {
	Number string `json:"number"`
	Name   string `json:"name,omitempty"`
}

// Call is the provider's view of an outbound call.
type Call struct {
	ID              string         `json:"id"`
	AssistantID     string         `json:"assistantId"`
	Status          string         `json:"status"`
	EndedReason     string         `json:"endedReason,omitempty"`
	Customer        Customer       `json:"customer"`
	StartedAt       *time.Time     `json:"startedAt,omitempty"`
	EndedAt         *time.Time     `json:"endedAt,omitempty"`
	DurationSeconds int            `json:"durationSeconds,omitempty"`
	Cost            float64        `json:"cost,omitempty"`
	RecordingURL    string         `json:"recordingUrl,omitempty"`
	Transcript      string         `json:"transcript,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

// Ended reports whether the provider considers the call terminal.
func (c *Call) Ended() bool {
	return c != nil && c.Status == CallStatusEnded
}

// Assistant is the provider's view of a configured calling agent.
type Assistant struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Model     string     `json:"model,omitempty"`
	Voice     string     `json:"voice,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

type createCallRequest struct {
	AssistantID string         `json:"assistantId"`
	Customer    Customer       `json:"customer"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}
