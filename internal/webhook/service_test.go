package webhook

import (
	"context"
	"testing"
	"time"

	"dialflow_backend/internal/events"
	"dialflow_backend/internal/provider"
	"dialflow_backend/platform/logger"
)

type captureBus struct {
	published []events.Event
}

func (b *captureBus) Publish(_ context.Context, event events.Event) {
	b.published = append(b.published, event)
}

func (b *captureBus) PublishSync(_ context.Context, event events.Event) error {
	b.published = append(b.published, event)
	return nil
}

func (b *captureBus) Subscribe(_ string, _ events.Handler) {}

func TestProcessCallStarted(t *testing.T) {
	bus := &captureBus{}
	svc := NewService(bus, logger.New("test"))

	startedAt := time.Now().UTC()
	err := svc.Process(context.Background(), CallEventRequest{
		Type: EventCallStarted,
		Data: CallEventData{
			ID:          "call-1",
			AssistantID: "asst-1",
			Customer:    provider.Customer{Number: "+15551234567"},
			StartedAt:   &startedAt,
		},
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if len(bus.published) != 1 {
		t.Fatalf("published = %d, want 1", len(bus.published))
	}
	event, ok := bus.published[0].(events.ProviderCallStarted)
	if !ok {
		t.Fatalf("event type = %T, want ProviderCallStarted", bus.published[0])
	}
	if event.ProviderCallID != "call-1" || event.PhoneNumber != "+15551234567" {
		t.Errorf("event = %+v", event)
	}
}

func TestProcessCallEnded(t *testing.T) {
	bus := &captureBus{}
	svc := NewService(bus, logger.New("test"))

	err := svc.Process(context.Background(), CallEventRequest{
		Type: EventCallEnded,
		Data: CallEventData{
			ID:              "call-1",
			EndedReason:     "customer-ended-call",
			DurationSeconds: 61,
			Customer:        provider.Customer{Number: "+15551234567"},
			Cost:            0.4,
			RecordingURL:    "https://recordings.example/call-1.mp3",
		},
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	event, ok := bus.published[0].(events.ProviderCallEnded)
	if !ok {
		t.Fatalf("event type = %T, want ProviderCallEnded", bus.published[0])
	}
	if event.EndedReason != "customer-ended-call" || event.DurationSeconds != 61 {
		t.Errorf("event = %+v", event)
	}
}

func TestProcessTerminalStatusUpdateBecomesEnded(t *testing.T) {
	bus := &captureBus{}
	svc := NewService(bus, logger.New("test"))

	err := svc.Process(context.Background(), CallEventRequest{
		Type: EventCallStatusUpdate,
		Data: CallEventData{
			ID:          "call-1",
			Status:      provider.CallStatusEnded,
			EndedReason: "no-answer",
			Customer:    provider.Customer{Number: "+15551234567"},
		},
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if _, ok := bus.published[0].(events.ProviderCallEnded); !ok {
		t.Fatalf("event type = %T, want ProviderCallEnded for a terminal status update", bus.published[0])
	}
}

func TestProcessIntermediateStatusUpdate(t *testing.T) {
	bus := &captureBus{}
	svc := NewService(bus, logger.New("test"))

	err := svc.Process(context.Background(), CallEventRequest{
		Type: EventCallStatusUpdate,
		Data: CallEventData{
			ID:     "call-1",
			Status: "ringing",
		},
	})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	event, ok := bus.published[0].(events.ProviderCallStatusChanged)
	if !ok {
		t.Fatalf("event type = %T, want ProviderCallStatusChanged", bus.published[0])
	}
	if event.Status != "ringing" {
		t.Errorf("status = %q, want ringing", event.Status)
	}
}

func TestProcessRejectsUnknownType(t *testing.T) {
	svc := NewService(&captureBus{}, logger.New("test"))

	if err := svc.Process(context.Background(), CallEventRequest{Type: "call-rescheduled"}); err == nil {
		t.Fatal("Process() expected error for unknown event type")
	}
}
