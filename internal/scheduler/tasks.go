package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskCallPollOutcome = "calls.poll_outcome"

// MaxPollAttempts bounds how often a single call's outcome is polled before
// giving up. Webhooks remain the primary outcome source; polling is the
// fallback for lost deliveries.
const MaxPollAttempts = 3

type CallPollOutcomePayload struct {
	ProviderCallID string `json:"providerCallId"`
	LeadID         string `json:"leadId"`
	Attempt        int    `json:"attempt"`
}

func NewCallPollOutcomeTask(payload CallPollOutcomePayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCallPollOutcome, data), nil
}

func ParseCallPollOutcomePayload(task *asynq.Task) (CallPollOutcomePayload, error) {
	var payload CallPollOutcomePayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return CallPollOutcomePayload{}, err
	}
	return payload, nil
}
