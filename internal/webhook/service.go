// Package webhook ingests call lifecycle callbacks from the calling provider
// and turns them into domain events for reconciliation.
package webhook

import (
	"context"
	"time"

	"dialflow_backend/internal/events"
	"dialflow_backend/internal/provider"
	"dialflow_backend/platform/apperr"
	"dialflow_backend/platform/logger"
)

// Webhook event types sent by the provider.
const (
	EventCallStarted      = "call-started"
	EventCallEnded        = "call-ended"
	EventCallStatusUpdate = "call-status-update"
)

// CallEventData is the call payload inside a webhook delivery.
type CallEventData struct {
	ID              string            `json:"id" validate:"required,min=1,max=128"`
	AssistantID     string            `json:"assistantId"`
	Status          string            `json:"status"`
	EndedReason     string            `json:"endedReason"`
	Customer        provider.Customer `json:"customer"`
	DurationSeconds int               `json:"durationSeconds"`
	StartedAt       *time.Time        `json:"startedAt"`
	EndedAt         *time.Time        `json:"endedAt"`
	Cost            float64           `json:"cost"`
	RecordingURL    string            `json:"recordingUrl"`
	Transcript      string            `json:"transcript"`
	Metadata        map[string]any    `json:"metadata"`
}

// CallEventRequest is a webhook delivery envelope.
type CallEventRequest struct {
	Type string        `json:"type" validate:"required,oneof=call-started call-ended call-status-update"`
	Data CallEventData `json:"data" validate:"required"`
}

// Service maps webhook deliveries onto the event bus. Reconciliation runs
// synchronously so a delivery is fully applied before the 200 goes out.
type Service struct {
	bus events.Bus
	log *logger.Logger
}

// NewService creates a webhook Service.
func NewService(bus events.Bus, log *logger.Logger) *Service {
	return &Service{bus: bus, log: log}
}

// Process validates nothing (the handler did) and publishes the matching
// domain event. Handler errors are logged but do not fail ingestion; the
// provider should not retry a delivery we understood.
func (s *Service) Process(ctx context.Context, req CallEventRequest) error {
	switch req.Type {
	case EventCallStarted:
		s.publish(ctx, events.ProviderCallStarted{
			BaseEvent:      events.NewBaseEvent(),
			ProviderCallID: req.Data.ID,
			AssistantID:    req.Data.AssistantID,
			PhoneNumber:    req.Data.Customer.Number,
			StartedAt:      req.Data.StartedAt,
		})
	case EventCallEnded:
		s.publish(ctx, s.endedEvent(req.Data))
	case EventCallStatusUpdate:
		// A terminal status update carries the same weight as call-ended.
		if req.Data.Status == provider.CallStatusEnded {
			s.publish(ctx, s.endedEvent(req.Data))
			return nil
		}
		s.publish(ctx, events.ProviderCallStatusChanged{
			BaseEvent:      events.NewBaseEvent(),
			ProviderCallID: req.Data.ID,
			PhoneNumber:    req.Data.Customer.Number,
			Status:         req.Data.Status,
		})
	default:
		return apperr.BadRequest("unsupported webhook event type")
	}
	return nil
}

func (s *Service) endedEvent(data CallEventData) events.ProviderCallEnded {
	return events.ProviderCallEnded{
		BaseEvent:       events.NewBaseEvent(),
		ProviderCallID:  data.ID,
		AssistantID:     data.AssistantID,
		PhoneNumber:     data.Customer.Number,
		EndedReason:     data.EndedReason,
		DurationSeconds: data.DurationSeconds,
		EndedAt:         data.EndedAt,
		Cost:            data.Cost,
		RecordingURL:    data.RecordingURL,
		Transcript:      data.Transcript,
	}
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if err := s.bus.PublishSync(ctx, event); err != nil {
		s.log.Error("webhook event handling failed",
			"event", event.EventName(),
			"error", err)
	}
}
