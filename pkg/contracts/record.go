package contracts

import "time"

// Outcome is the terminal state of one execution attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
)

// AuditRecord is the immutable fact produced by every attempt.
// Exactly one record exists per attempt, regardless of outcome.
//
//nolint:govet // fieldalignment: struct layout is human-readable
type AuditRecord struct {
	ID          string            `json:"id"`
	OperationID string            `json:"operation_id"`
	Attempt     int               `json:"attempt"`
	Actor       string            `json:"actor"`
	Origin      string            `json:"origin,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Outcome     Outcome           `json:"outcome"`

	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration_ns"`

	// Failure detail; zero-valued on success.
	Classification Classification `json:"classification,omitempty"`
	Code           ErrorCode      `json:"code,omitempty"`
	Error          string         `json:"error,omitempty"`
}
