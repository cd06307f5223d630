// Package transport defines the request and response DTOs for the calls API.
package transport

import (
	"time"

	"github.com/google/uuid"

	"dialflow_backend/internal/calls/repository"
)

// CallRecordResponse is the API representation of a call record.
type CallRecordResponse struct {
	ID              uuid.UUID  `json:"id"`
	ProviderCallID  string     `json:"providerCallId"`
	AssistantID     *uuid.UUID `json:"assistantId,omitempty"`
	LeadID          *uuid.UUID `json:"leadId,omitempty"`
	PhoneNumber     string     `json:"phoneNumber"`
	Status          string     `json:"status"`
	EndedReason     *string    `json:"endedReason,omitempty"`
	StartedAt       *time.Time `json:"startedAt,omitempty"`
	EndedAt         *time.Time `json:"endedAt,omitempty"`
	DurationSeconds *int       `json:"durationSeconds,omitempty"`
	Cost            *float64   `json:"cost,omitempty"`
	RecordingURL    *string    `json:"recordingUrl,omitempty"`
	Transcript      *string    `json:"transcript,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// DispatchResponse reports a manually triggered call.
type DispatchResponse struct {
	ProviderCallID string `json:"providerCallId"`
	Attempt        int    `json:"attempt"`
	FreshCycle     bool   `json:"freshCycle"`
	PhoneNumber    string `json:"phoneNumber"`
}

// ToCallRecordResponse maps a stored call record to its API shape.
func ToCallRecordResponse(c repository.CallRecord) CallRecordResponse {
	return CallRecordResponse{
		ID:              c.ID,
		ProviderCallID:  c.ProviderCallID,
		AssistantID:     c.AssistantID,
		LeadID:          c.LeadID,
		PhoneNumber:     c.PhoneNumber,
		Status:          c.Status,
		EndedReason:     c.EndedReason,
		StartedAt:       c.StartedAt,
		EndedAt:         c.EndedAt,
		DurationSeconds: c.DurationSeconds,
		Cost:            c.Cost,
		RecordingURL:    c.RecordingURL,
		Transcript:      c.Transcript,
		CreatedAt:       c.CreatedAt,
	}
}

// ToCallRecordResponses maps a slice of call records.
func ToCallRecordResponses(items []repository.CallRecord) []CallRecordResponse {
	out := make([]CallRecordResponse, 0, len(items))
	for _, c := range items {
		out = append(out, ToCallRecordResponse(c))
	}
	return out
}
