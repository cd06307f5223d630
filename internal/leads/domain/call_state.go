package domain

import (
	"time"

	"dialflow_backend/platform/phone"
)

const (
	CallStatusPending    = "pending"
	CallStatusConnected  = "connected"
	CallStatusInProgress = "in-progress"
	CallStatusCompleted  = "completed"
	CallStatusFailed     = "failed"
	CallStatusCancelled  = "cancelled"
)

const (
	// MaxAttemptsPerCycle bounds how often a lead is dialed before backing off.
	MaxAttemptsPerCycle = 2
	// SecondAttemptDelay is the cooldown between the first and second attempt.
	SecondAttemptDelay = 5 * time.Minute
	// CycleCooldown is the backoff after a full cycle before dialing resumes.
	CycleCooldown = 60 * time.Minute
)

var knownCallStatuses = map[string]struct{}{
	CallStatusPending:    {},
	CallStatusConnected:  {},
	CallStatusInProgress: {},
	CallStatusCompleted:  {},
	CallStatusFailed:     {},
	CallStatusCancelled:  {},
}

// IsKnownCallStatus reports whether the status is one of the lead call
// connection statuses.
func IsKnownCallStatus(status string) bool {
	_, ok := knownCallStatuses[status]
	return ok
}

// IsContactSuccess reports whether the status means the lead was reached.
// A successful contact ends the attempt cycle early.
func IsContactSuccess(status string) bool {
	return status == CallStatusCompleted || status == CallStatusConnected
}

// CallState is the subset of lead fields the attempt-cycle rules operate on.
type CallState struct {
	Status         string
	Attempts       int
	LastCallTime   *time.Time
	CycleStartTime *time.Time
}

// AttemptPlan describes the bookkeeping a dispatch must persist.
type AttemptPlan struct {
	// Attempts is the new attempt count after this dial.
	Attempts int
	// FreshCycle is true when this dial opens a new cycle; the cycle start
	// timestamp must be set to the dial time.
	FreshCycle bool
}

// PlanAttempt decides whether a lead may be dialed at now and what the
// resulting attempt bookkeeping is. Returns ok=false when the cycle is
// exhausted and still inside its cooldown window.
func PlanAttempt(state CallState, now time.Time) (AttemptPlan, bool) {
	if state.Attempts >= MaxAttemptsPerCycle {
		if !cycleExpired(state, now) {
			return AttemptPlan{}, false
		}
		return AttemptPlan{Attempts: 1, FreshCycle: true}, true
	}

	if state.CycleStartTime != nil && now.Sub(*state.CycleStartTime) >= CycleCooldown {
		return AttemptPlan{Attempts: 1, FreshCycle: true}, true
	}

	next := state.Attempts + 1
	if next > MaxAttemptsPerCycle && state.CycleStartTime != nil {
		// Guards against a racing dispatch that already consumed the cycle.
		return AttemptPlan{}, false
	}

	return AttemptPlan{Attempts: next, FreshCycle: state.CycleStartTime == nil}, true
}

// cycleExpired reports whether the open cycle's cooldown has elapsed. The
// last call time is authoritative; the cycle start is the fallback when no
// call has been recorded.
func cycleExpired(state CallState, now time.Time) bool {
	if state.LastCallTime != nil {
		return now.Sub(*state.LastCallTime) >= CycleCooldown
	}
	if state.CycleStartTime != nil {
		return now.Sub(*state.CycleStartTime) >= CycleCooldown
	}
	return true
}

// RetryWindowOpen reproduces the attempt/cooldown half of the eligibility
// predicate: never-called leads qualify immediately, a single attempt
// qualifies after the second-attempt delay, an exhausted cycle after the
// cycle cooldown.
func RetryWindowOpen(attempts int, lastCallTime *time.Time, now time.Time) bool {
	switch {
	case attempts <= 0:
		return true
	case attempts == 1:
		return lastCallTime == nil || now.Sub(*lastCallTime) >= SecondAttemptDelay
	default:
		return lastCallTime == nil || now.Sub(*lastCallTime) >= CycleCooldown
	}
}

// EligibleLead is the full lead view the eligibility predicate needs.
type EligibleLead struct {
	Status       string
	Deleted      bool
	PhoneNumber  string
	ProjectName  string
	Attempts     int
	LastCallTime *time.Time
}

// Eligible reproduces the auto-call eligibility predicate. The in-memory
// dedup check is applied by the engine, not here.
func Eligible(lead EligibleLead, now time.Time) bool {
	if lead.Deleted {
		return false
	}
	if lead.Status != CallStatusPending && lead.Status != CallStatusFailed {
		return false
	}
	if !phone.Plausible(lead.PhoneNumber) {
		return false
	}
	if lead.ProjectName == "" {
		return false
	}
	return RetryWindowOpen(lead.Attempts, lead.LastCallTime, now)
}
