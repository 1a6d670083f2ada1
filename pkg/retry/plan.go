package retry

import "time"

// Plan is a precomputed attempt schedule for one operation. Useful when
// the caller wants to inspect or persist the retry timeline up front.
type Plan struct {
	PlanID      string     `json:"plan_id"`
	OperationID string     `json:"operation_id"`
	PolicyID    string     `json:"policy_id"`
	Schedule    []Attempt  `json:"schedule"`
	MaxAttempts int        `json:"max_attempts"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
}

// Attempt is one slot in a retry plan.
type Attempt struct {
	AttemptIndex int       `json:"attempt_index"`
	DelayMs      int64     `json:"delay_ms"`
	ScheduledAt  time.Time `json:"scheduled_at"`
}

// NewPlan computes the full schedule for operationID under policy.
// The first attempt runs immediately; each later slot applies Backoff.
func NewPlan(operationID string, policy Policy, now time.Time) *Plan {
	policy = policy.Normalize()
	schedule := make([]Attempt, policy.MaxAttempts)

	at := now
	for i := 0; i < policy.MaxAttempts; i++ {
		var delay time.Duration
		if i > 0 {
			delay = Backoff(BackoffParams{
				PolicyID:     policy.PolicyID,
				OperationID:  operationID,
				AttemptIndex: i,
			}, policy)
		}

		at = at.Add(delay)
		schedule[i] = Attempt{
			AttemptIndex: i,
			DelayMs:      delay.Milliseconds(),
			ScheduledAt:  at,
		}
	}

	return &Plan{
		PlanID:      "plan-" + operationID,
		OperationID: operationID,
		PolicyID:    policy.PolicyID,
		Schedule:    schedule,
		MaxAttempts: policy.MaxAttempts,
		CreatedAt:   now,
		ExpiresAt:   at.Add(1 * time.Hour),
	}
}
