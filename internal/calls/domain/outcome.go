package domain

import (
	"strings"

	leaddomain "dialflow_backend/internal/leads/domain"
)

// Call record lifecycle statuses.
const (
	CallInitiated  = "initiated"
	CallInProgress = "in-progress"
	CallCompleted  = "completed"
	CallFailed     = "failed"
	CallNoAnswer   = "no-answer"
	CallBusy       = "busy"
)

// CompletedDurationThreshold is the talk time above which a call counts as
// completed no matter what reason the provider reports.
const CompletedDurationThreshold = 30

// DeriveStatus maps a provider ended-reason and duration onto a terminal call
// record status.
func DeriveStatus(endedReason string, durationSeconds int) string {
	if durationSeconds >= CompletedDurationThreshold {
		return CallCompleted
	}

	reason := strings.ToLower(strings.TrimSpace(endedReason))
	switch {
	case strings.Contains(reason, "customer-ended"), strings.Contains(reason, "assistant-ended"):
		return CallCompleted
	case strings.Contains(reason, "no-answer"), strings.Contains(reason, "did-not-answer"):
		return CallNoAnswer
	case strings.Contains(reason, "busy"):
		return CallBusy
	case strings.Contains(reason, "error"):
		return CallFailed
	}

	if durationSeconds > 0 {
		return CallCompleted
	}
	return CallFailed
}

// LeadStatusFor maps a call status onto the lead's connection status.
func LeadStatusFor(callStatus string) string {
	switch callStatus {
	case CallInProgress, leaddomain.CallStatusConnected:
		return leaddomain.CallStatusConnected
	case CallCompleted:
		return leaddomain.CallStatusCompleted
	case CallFailed, CallNoAnswer, CallBusy, leaddomain.CallStatusCancelled:
		return leaddomain.CallStatusFailed
	default:
		return leaddomain.CallStatusPending
	}
}

// IsGenuineFailure reports whether a failed outcome stems from an actual
// unreachable customer rather than a provider-side hiccup.
func IsGenuineFailure(callStatus, endedReason string) bool {
	if callStatus == CallNoAnswer || callStatus == CallBusy {
		return true
	}
	return strings.Contains(strings.ToLower(endedReason), "cancel")
}

// ShouldSkipLeadUpdate is the anti-downgrade rule applied right before a lead
// status write. It must hold under repeated delivery of the same outcome from
// webhook and poller.
func ShouldSkipLeadUpdate(currentLeadStatus, nextLeadStatus, callStatus, endedReason string) bool {
	if leaddomain.IsContactSuccess(currentLeadStatus) && !leaddomain.IsContactSuccess(nextLeadStatus) {
		return true
	}
	if currentLeadStatus == leaddomain.CallStatusConnected &&
		nextLeadStatus == leaddomain.CallStatusFailed &&
		!IsGenuineFailure(callStatus, endedReason) {
		return true
	}
	return false
}
