package contracts

import (
	"errors"
	"fmt"
	"time"
)

// Classification buckets a caught fault and drives retry, alerting, and
// quarantine decisions.
type Classification string

const (
	// ClassTransient faults may succeed on retry (contention, timeout).
	ClassTransient Classification = "TRANSIENT"
	// ClassPermanent faults never succeed on retry.
	ClassPermanent Classification = "PERMANENT"
	// ClassSecurityViolation faults are never retried and always alert.
	ClassSecurityViolation Classification = "SECURITY_VIOLATION"
	// ClassIntegrityViolation faults are never retried and emit a
	// quarantine signal for the affected resource.
	ClassIntegrityViolation Classification = "INTEGRITY_VIOLATION"
	// ClassCancelled marks attempts aborted by the caller's context.
	ClassCancelled Classification = "CANCELLED"
)

// ErrorCode is the boundary-level error tag surfaced to callers.
type ErrorCode string

const (
	CodeValidationFailed   ErrorCode = "VALIDATION_FAILED"
	CodeUnauthorized       ErrorCode = "UNAUTHORIZED"
	CodeRateLimited        ErrorCode = "RATE_LIMITED"
	CodeSecurityViolation  ErrorCode = "SECURITY_VIOLATION"
	CodeInvalidResult      ErrorCode = "INVALID_RESULT"
	CodeIntegrityViolation ErrorCode = "INTEGRITY_VIOLATION"
	CodeTransient          ErrorCode = "TRANSIENT"
	CodeCancelled          ErrorCode = "CANCELLED"
	CodeInternal           ErrorCode = "INTERNAL"
)

// Sentinel faults recognized by the failure classifier. Operations wrap
// these with fmt.Errorf("...: %w", err) to tag their failures.
var (
	ErrTimeout     = errors.New("operation timed out")
	ErrContention  = errors.New("resource contention")
	ErrUnavailable = errors.New("dependency unavailable")
	ErrIntegrity   = errors.New("integrity check failed")
	ErrSecurity    = errors.New("security requirement violated")
)

// ExecutionError is the typed failure returned by the executor. The
// rendered message carries the classification, never the raw internal
// detail; the cause remains reachable through errors.Unwrap for
// programmatic use.
type ExecutionError struct {
	Code           ErrorCode
	Classification Classification
	OperationID    string
	Attempt        int

	// RetryAfter is set for rate-limited failures.
	RetryAfter time.Duration

	cause error
}

// NewExecutionError wraps cause with its boundary code and classification.
func NewExecutionError(code ErrorCode, class Classification, opID string, attempt int, cause error) *ExecutionError {
	return &ExecutionError{
		Code:           code,
		Classification: class,
		OperationID:    opID,
		Attempt:        attempt,
		cause:          cause,
	}
}

func (e *ExecutionError) Error() string {
	switch e.Code {
	case CodeRateLimited:
		if e.RetryAfter > 0 {
			return fmt.Sprintf("operation %s: rate limit exceeded, retry after %s", e.OperationID, e.RetryAfter)
		}
		return fmt.Sprintf("operation %s: rate limit exceeded", e.OperationID)
	case CodeUnauthorized:
		return fmt.Sprintf("operation %s: unauthorized", e.OperationID)
	case CodeValidationFailed:
		return fmt.Sprintf("operation %s: input validation failed", e.OperationID)
	case CodeSecurityViolation:
		return fmt.Sprintf("operation %s: security requirement violated", e.OperationID)
	case CodeInvalidResult:
		return fmt.Sprintf("operation %s: result rejected", e.OperationID)
	case CodeIntegrityViolation:
		return fmt.Sprintf("operation %s: integrity violation", e.OperationID)
	case CodeCancelled:
		return fmt.Sprintf("operation %s: cancelled", e.OperationID)
	default:
		return fmt.Sprintf("operation %s: failed (%s)", e.OperationID, e.Classification)
	}
}

func (e *ExecutionError) Unwrap() error { return e.cause }

// AsExecutionError unwraps err to an *ExecutionError, or nil.
func AsExecutionError(err error) *ExecutionError {
	var xe *ExecutionError
	if errors.As(err, &xe) {
		return xe
	}
	return nil
}
