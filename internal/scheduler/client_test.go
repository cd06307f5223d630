package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

type testSchedulerConfig struct {
	redisURL string
}

func (c testSchedulerConfig) GetRedisURL() string       { return c.redisURL }
func (c testSchedulerConfig) GetRedisTLSInsecure() bool { return false }
func (c testSchedulerConfig) GetAsynqQueueName() string { return "calls" }
func (c testSchedulerConfig) GetAsynqConcurrency() int  { return 1 }

func TestClientRequiresRedisURL(t *testing.T) {
	if _, err := NewClient(testSchedulerConfig{}); err == nil {
		t.Fatal("NewClient() expected error without redis url")
	}
}

func TestSchedulePollOutcomeEnqueuesDelayedTask(t *testing.T) {
	srv := miniredis.RunT(t)

	client, err := NewClient(testSchedulerConfig{redisURL: "redis://" + srv.Addr()})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer client.Close()

	leadID := uuid.New()
	if err := client.SchedulePollOutcome(context.Background(), "call-1", leadID, 1, time.Minute); err != nil {
		t.Fatalf("SchedulePollOutcome() error = %v", err)
	}

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: srv.Addr()})
	defer inspector.Close()

	scheduled, err := inspector.ListScheduledTasks("calls")
	if err != nil {
		t.Fatalf("ListScheduledTasks() error = %v", err)
	}
	if len(scheduled) != 1 {
		t.Fatalf("scheduled tasks = %d, want 1", len(scheduled))
	}

	task := scheduled[0]
	if task.Type != TaskCallPollOutcome {
		t.Errorf("task type = %q, want %q", task.Type, TaskCallPollOutcome)
	}

	payload, err := ParseCallPollOutcomePayload(asynq.NewTask(task.Type, task.Payload))
	if err != nil {
		t.Fatalf("ParseCallPollOutcomePayload() error = %v", err)
	}
	if payload.ProviderCallID != "call-1" || payload.LeadID != leadID.String() || payload.Attempt != 1 {
		t.Errorf("payload = %+v", payload)
	}
}

func TestNilClientIsSafe(t *testing.T) {
	var client *Client
	if err := client.SchedulePollOutcome(context.Background(), "call-1", uuid.New(), 1, time.Minute); err != nil {
		t.Fatalf("nil client SchedulePollOutcome() error = %v", err)
	}
	if err := client.Close(); err != nil {
		t.Fatalf("nil client Close() error = %v", err)
	}
}
