package retry

import (
	"testing"
	"time"
)

func TestNewPlan(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	policy := Policy{PolicyID: "p", MaxAttempts: 3, BaseMs: 100, CapMs: 5000}

	plan := NewPlan("op-1", policy, now)

	if plan.OperationID != "op-1" || plan.PolicyID != "p" {
		t.Errorf("plan identity: %+v", plan)
	}
	if len(plan.Schedule) != 3 {
		t.Fatalf("schedule length = %d, want 3", len(plan.Schedule))
	}

	first := plan.Schedule[0]
	if first.DelayMs != 0 || !first.ScheduledAt.Equal(now) {
		t.Errorf("first slot must run immediately: %+v", first)
	}

	prev := now
	for i, a := range plan.Schedule {
		if a.AttemptIndex != i {
			t.Errorf("slot %d has index %d", i, a.AttemptIndex)
		}
		if a.ScheduledAt.Before(prev) {
			t.Errorf("slot %d scheduled before its predecessor", i)
		}
		prev = a.ScheduledAt
	}

	last := plan.Schedule[len(plan.Schedule)-1]
	if !plan.ExpiresAt.Equal(last.ScheduledAt.Add(time.Hour)) {
		t.Errorf("ExpiresAt = %v, want one hour past the last slot", plan.ExpiresAt)
	}
}

func TestNewPlan_Reproducible(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	policy := Policy{PolicyID: "p", MaxAttempts: 5, BaseMs: 50, CapMs: 2000, MaxJitterMs: 25}

	a := NewPlan("op-9", policy, now)
	b := NewPlan("op-9", policy, now)

	for i := range a.Schedule {
		if a.Schedule[i].DelayMs != b.Schedule[i].DelayMs {
			t.Errorf("slot %d differs between identical plans", i)
		}
	}
}
