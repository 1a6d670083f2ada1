// Package retry implements bounded retry with exponential backoff and
// deterministic jitter.
package retry

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/castellan-io/castellan/pkg/contracts"
)

// Policy bounds the retry loop for one executor.
type Policy struct {
	PolicyID    string
	MaxAttempts int
	BaseMs      int64
	CapMs       int64
	MaxJitterMs int64
}

// DefaultPolicy matches the recognized configuration defaults.
func DefaultPolicy() Policy {
	return Policy{
		PolicyID:    "default",
		MaxAttempts: 3,
		BaseMs:      100,
		CapMs:       5000,
		MaxJitterMs: 50,
	}
}

// Normalize clamps the policy to safe bounds. Jitter is capped at the
// base delay so that successive delays stay non-decreasing until CapMs.
func (p Policy) Normalize() Policy {
	if p.MaxAttempts < 1 {
		p.MaxAttempts = 1
	}
	if p.BaseMs <= 0 {
		p.BaseMs = 100
	}
	if p.CapMs < p.BaseMs {
		p.CapMs = p.BaseMs
	}
	if p.MaxJitterMs > p.BaseMs {
		p.MaxJitterMs = p.BaseMs
	}
	if p.MaxJitterMs < 0 {
		p.MaxJitterMs = 0
	}
	return p
}

// ShouldRetry reports whether another attempt may run. Only transient
// faults are retried, and only while attempts remain.
func ShouldRetry(class contracts.Classification, attempt, maxAttempts int) bool {
	return class == contracts.ClassTransient && attempt < maxAttempts
}

// BackoffParams seed the deterministic jitter for one attempt.
type BackoffParams struct {
	PolicyID     string
	OperationID  string
	AttemptIndex int
}

// Backoff returns the delay before attempt AttemptIndex+1.
// delay = min(base * 2^attempt, cap) + jitter, jitter capped so the
// sequence is non-decreasing.
func Backoff(params BackoffParams, policy Policy) time.Duration {
	policy = policy.Normalize()

	factor := int64(1)
	if params.AttemptIndex > 0 {
		if params.AttemptIndex > 30 {
			// cap exponent to avoid overflow
			factor = 1 << 30
		} else {
			factor = 1 << params.AttemptIndex
		}
	}

	delay := policy.BaseMs * factor
	if delay > policy.CapMs || delay < 0 {
		delay = policy.CapMs
	}

	if delay < policy.CapMs {
		delay += jitter(params, policy)
		if delay > policy.CapMs {
			delay = policy.CapMs
		}
	}

	return time.Duration(delay) * time.Millisecond
}

// jitter derives a stable pseudo-random offset from the attempt identity,
// so replayed schedules are reproducible.
func jitter(params BackoffParams, policy Policy) int64 {
	if policy.MaxJitterMs == 0 {
		return 0
	}

	seed := fmt.Sprintf("%s:%s:%d", policy.PolicyID, params.OperationID, params.AttemptIndex)
	hash := sha256.Sum256([]byte(seed))
	basis := binary.BigEndian.Uint64(hash[:8])

	return int64(basis % uint64(policy.MaxJitterMs)) //nolint:gosec // MaxJitterMs is always positive
}
