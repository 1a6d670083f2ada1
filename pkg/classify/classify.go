// Package classify maps caught faults into the failure taxonomy that
// drives retry, alerting, and quarantine decisions.
package classify

import (
	"context"
	"errors"

	"github.com/castellan-io/castellan/pkg/contracts"
)

// Classifier assigns a classification to a fault. Classify must be a
// pure function: the same error kind always maps to the same bucket.
type Classifier interface {
	Classify(err error) contracts.Classification
}

// Classified lets error values carry their own classification.
// Recognized before any sentinel matching.
type Classified interface {
	Classification() contracts.Classification
}

// Rules is the default classifier.
//
// Resolution order: an *ExecutionError keeps its classification; a
// Classified error is trusted; context cancellation and deadline map to
// Cancelled; known sentinels map to their buckets; anything unknown is
// Permanent (fail closed — an unrecognized fault must not be retried).
type Rules struct{}

func (Rules) Classify(err error) contracts.Classification {
	if err == nil {
		return ""
	}

	if xe := contracts.AsExecutionError(err); xe != nil {
		return xe.Classification
	}

	var c Classified
	if errors.As(err, &c) {
		return c.Classification()
	}

	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return contracts.ClassCancelled
	case errors.Is(err, contracts.ErrSecurity):
		return contracts.ClassSecurityViolation
	case errors.Is(err, contracts.ErrIntegrity):
		return contracts.ClassIntegrityViolation
	case errors.Is(err, contracts.ErrTimeout),
		errors.Is(err, contracts.ErrContention),
		errors.Is(err, contracts.ErrUnavailable):
		return contracts.ClassTransient
	default:
		return contracts.ClassPermanent
	}
}

type classifiedError struct {
	class contracts.Classification
	cause error
}

func (e *classifiedError) Error() string                            { return e.cause.Error() }
func (e *classifiedError) Unwrap() error                            { return e.cause }
func (e *classifiedError) Classification() contracts.Classification { return e.class }

// Transient tags err as retry-eligible.
func Transient(err error) error {
	return &classifiedError{class: contracts.ClassTransient, cause: err}
}

// Permanent tags err as never retryable.
func Permanent(err error) error {
	return &classifiedError{class: contracts.ClassPermanent, cause: err}
}

// Security tags err as a security violation.
func Security(err error) error {
	return &classifiedError{class: contracts.ClassSecurityViolation, cause: err}
}

// Integrity tags err as an integrity violation.
func Integrity(err error) error {
	return &classifiedError{class: contracts.ClassIntegrityViolation, cause: err}
}
