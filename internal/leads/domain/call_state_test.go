package domain

import (
	"testing"
	"time"
)

func timePtr(t time.Time) *time.Time { return &t }

func TestRetryWindowOpenNeverCalled(t *testing.T) {
	now := time.Now()
	if !RetryWindowOpen(0, nil, now) {
		t.Fatalf("expected lead with zero attempts to be eligible")
	}
	// Independent of last call time.
	if !RetryWindowOpen(0, timePtr(now.Add(-time.Second)), now) {
		t.Fatalf("expected zero-attempt lead to be eligible regardless of last call time")
	}
}

func TestRetryWindowOpenSecondAttemptDelay(t *testing.T) {
	now := time.Now()

	if RetryWindowOpen(1, timePtr(now.Add(-3*time.Minute)), now) {
		t.Fatalf("expected lead 3 minutes after first attempt to be ineligible")
	}
	if !RetryWindowOpen(1, timePtr(now.Add(-6*time.Minute)), now) {
		t.Fatalf("expected lead 6 minutes after first attempt to be eligible")
	}
}

func TestRetryWindowOpenCycleCooldown(t *testing.T) {
	now := time.Now()

	if RetryWindowOpen(2, timePtr(now.Add(-59*time.Minute)), now) {
		t.Fatalf("expected exhausted cycle inside cooldown to be ineligible")
	}
	if !RetryWindowOpen(2, timePtr(now.Add(-61*time.Minute)), now) {
		t.Fatalf("expected exhausted cycle after cooldown to be eligible")
	}
}

func TestPlanAttemptFirstDial(t *testing.T) {
	now := time.Now()

	plan, ok := PlanAttempt(CallState{Status: CallStatusPending}, now)
	if !ok {
		t.Fatalf("expected first dial to be allowed")
	}
	if plan.Attempts != 1 || !plan.FreshCycle {
		t.Fatalf("expected attempts=1 fresh cycle, got %+v", plan)
	}
}

func TestPlanAttemptSecondDialSameCycle(t *testing.T) {
	now := time.Now()
	cycleStart := now.Add(-6 * time.Minute)

	plan, ok := PlanAttempt(CallState{
		Attempts:       1,
		LastCallTime:   timePtr(cycleStart),
		CycleStartTime: timePtr(cycleStart),
	}, now)
	if !ok {
		t.Fatalf("expected second dial to be allowed")
	}
	if plan.Attempts != 2 || plan.FreshCycle {
		t.Fatalf("expected attempts=2 in the open cycle, got %+v", plan)
	}
}

func TestPlanAttemptRefusesExhaustedCycleInsideCooldown(t *testing.T) {
	now := time.Now()
	lastCall := now.Add(-10 * time.Minute)

	_, ok := PlanAttempt(CallState{
		Attempts:       2,
		LastCallTime:   timePtr(lastCall),
		CycleStartTime: timePtr(lastCall.Add(-5 * time.Minute)),
	}, now)
	if ok {
		t.Fatalf("expected exhausted cycle inside cooldown to refuse dialing")
	}
}

func TestPlanAttemptResetsAfterCooldown(t *testing.T) {
	now := time.Now()
	lastCall := now.Add(-61 * time.Minute)

	plan, ok := PlanAttempt(CallState{
		Attempts:       2,
		LastCallTime:   timePtr(lastCall),
		CycleStartTime: timePtr(lastCall.Add(-10 * time.Minute)),
	}, now)
	if !ok {
		t.Fatalf("expected dial after cooldown to be allowed")
	}
	if plan.Attempts != 1 || !plan.FreshCycle {
		t.Fatalf("expected cycle reset to attempts=1, got %+v", plan)
	}
}

func TestPlanAttemptStaleOpenCycleStartsFresh(t *testing.T) {
	now := time.Now()
	cycleStart := now.Add(-2 * time.Hour)

	plan, ok := PlanAttempt(CallState{
		Attempts:       1,
		LastCallTime:   timePtr(cycleStart),
		CycleStartTime: timePtr(cycleStart),
	}, now)
	if !ok {
		t.Fatalf("expected dial on stale cycle to be allowed")
	}
	if plan.Attempts != 1 || !plan.FreshCycle {
		t.Fatalf("expected stale cycle to restart at attempts=1, got %+v", plan)
	}
}

func TestEligiblePredicate(t *testing.T) {
	now := time.Now()

	base := EligibleLead{
		Status:      CallStatusPending,
		PhoneNumber: "+14155552671",
		ProjectName: "solar-west",
	}

	if !Eligible(base, now) {
		t.Fatalf("expected baseline lead to be eligible")
	}

	deleted := base
	deleted.Deleted = true
	if Eligible(deleted, now) {
		t.Fatalf("expected soft-deleted lead to be ineligible")
	}

	connected := base
	connected.Status = CallStatusConnected
	if Eligible(connected, now) {
		t.Fatalf("expected connected lead to be ineligible")
	}

	shortPhone := base
	shortPhone.PhoneNumber = "555-1234"
	if Eligible(shortPhone, now) {
		t.Fatalf("expected implausible phone to be ineligible")
	}

	noProject := base
	noProject.ProjectName = ""
	if Eligible(noProject, now) {
		t.Fatalf("expected missing project to be ineligible")
	}

	failed := base
	failed.Status = CallStatusFailed
	if !Eligible(failed, now) {
		t.Fatalf("expected failed lead to be eligible for retry")
	}
}
