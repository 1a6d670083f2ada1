// Package executor runs critical operations under the full guard
// sequence: transactional scope, pre-execution checks, monitored
// execution, result verification, audit, and bounded retry.
package executor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/castellan-io/castellan/pkg/alert"
	"github.com/castellan-io/castellan/pkg/audit"
	"github.com/castellan-io/castellan/pkg/classify"
	"github.com/castellan-io/castellan/pkg/contracts"
	"github.com/castellan-io/castellan/pkg/gate"
	"github.com/castellan-io/castellan/pkg/monitor"
	"github.com/castellan-io/castellan/pkg/retry"
	"github.com/castellan-io/castellan/pkg/txn"
	"github.com/castellan-io/castellan/pkg/verify"
)

// Executor composes the pipeline stages into one guaranteed sequence.
// Safe for concurrent use; each Execute call owns its own transaction
// scope. The audit sink and rate-limit counters are the only shared
// mutable resources.
type Executor struct {
	gate       *gate.Gate
	resource   txn.Resource
	monitor    *monitor.Monitor
	verifier   *verify.Validator
	sink       audit.Sink
	policy     retry.Policy
	classifier classify.Classifier

	alerts     alert.Channel
	quarantine classify.QuarantineHook
	log        *slog.Logger
	sleep      func(ctx context.Context, d time.Duration) error
}

// New creates an Executor with the required collaborators. Optional
// collaborators (alert channel, quarantine hook) are injected with the
// Set methods.
func New(g *gate.Gate, res txn.Resource, mon *monitor.Monitor, ver *verify.Validator, sink audit.Sink, policy retry.Policy) *Executor {
	return &Executor{
		gate:       g,
		resource:   res,
		monitor:    mon,
		verifier:   ver,
		sink:       sink,
		policy:     policy.Normalize(),
		classifier: classify.Rules{},
		log:        slog.Default().With("component", "executor"),
		sleep:      sleepCtx,
	}
}

// SetAlertChannel injects the channel notified on security violations.
func (e *Executor) SetAlertChannel(ch alert.Channel) { e.alerts = ch }

// SetQuarantineHook injects the caller's quarantine side effect.
func (e *Executor) SetQuarantineHook(h classify.QuarantineHook) { e.quarantine = h }

// SetClassifier replaces the default failure classifier.
func (e *Executor) SetClassifier(c classify.Classifier) {
	if c != nil {
		e.classifier = c
	}
}

// SetLogger replaces the local logger.
func (e *Executor) SetLogger(log *slog.Logger) {
	if log != nil {
		e.log = log
	}
}

// Execute runs the operation under the guard sequence, retrying
// transient faults up to the policy's attempt budget. Retries block the
// calling goroutine through the backoff sleep; run Execute on a worker
// when non-blocking behavior is needed.
//
// The same Operation value is safe to replay as a brand-new call; the
// executor does not deduplicate. Callers needing dedup supply an
// idempotency key in the context metadata.
func (e *Executor) Execute(ctx context.Context, op contracts.Operation, ectx *contracts.ExecutionContext) (*contracts.OperationResult, error) {
	if op == nil {
		return nil, errors.New("executor: nil operation")
	}
	if ectx == nil {
		ectx = &contracts.ExecutionContext{}
	}

	for attempt := 1; ; attempt++ {
		ectx.Attempt = attempt

		res, err := e.attempt(ctx, op, ectx)
		if err == nil {
			return res, nil
		}

		class := contracts.ClassPermanent
		if xe := contracts.AsExecutionError(err); xe != nil {
			class = xe.Classification
		}
		if !retry.ShouldRetry(class, attempt, e.policy.MaxAttempts) {
			return nil, err
		}

		delay := retry.Backoff(retry.BackoffParams{
			PolicyID:     e.policy.PolicyID,
			OperationID:  op.ID(),
			AttemptIndex: attempt,
		}, e.policy)

		// The failed attempt is already rolled back and audited; a
		// cancellation during backoff only has to surface as such.
		if serr := e.sleep(ctx, delay); serr != nil {
			return nil, contracts.NewExecutionError(contracts.CodeCancelled, contracts.ClassCancelled,
				op.ID(), attempt, errors.Join(serr, err))
		}
	}
}

// attempt runs one guarded attempt. Every exit path releases the
// transaction scope exactly once and produces exactly one audit record.
func (e *Executor) attempt(ctx context.Context, op contracts.Operation, ectx *contracts.ExecutionContext) (*contracts.OperationResult, error) {
	started := time.Now()

	// 1. Begin the scoped transactional resource.
	tx, err := e.resource.Begin(ctx)
	if err != nil {
		return nil, e.fail(ctx, op, ectx, nil, started, monitor.Sample{}, "", fmt.Errorf("begin transaction: %w", err))
	}

	// 2. Pre-execution checks: shape, authorization, rate limit,
	// security predicates — in that order.
	if verr := e.gate.Validate(op.Data(), op.ValidationSchema()); verr != nil {
		return nil, e.fail(ctx, op, ectx, tx, started, monitor.Sample{}, contracts.CodeValidationFailed, verr)
	}

	allowed, aerr := e.gate.CheckAccess(ctx, ectx, op.RequiredPermissions())
	if aerr != nil {
		return nil, e.fail(ctx, op, ectx, tx, started, monitor.Sample{}, "", aerr)
	}
	if !allowed {
		return nil, e.fail(ctx, op, ectx, tx, started, monitor.Sample{}, contracts.CodeUnauthorized,
			fmt.Errorf("actor %s lacks required permissions", ectx.ActorID()))
	}

	if !e.gate.CheckRateLimit(ctx, ectx, op.RateLimitKey()) {
		return nil, e.fail(ctx, op, ectx, tx, started, monitor.Sample{}, contracts.CodeRateLimited,
			fmt.Errorf("rate limit exceeded for key %s", op.RateLimitKey()))
	}

	failing, serr := e.gate.CheckSecurity(ctx, ectx, op.Data(), op.SecurityRequirements())
	if failing != "" || serr != nil {
		// Record the suspicious activity before the failure propagates.
		// Predicate evaluation errors deny too: security checks fail
		// closed.
		detail := "predicate returned false"
		if serr != nil {
			detail = serr.Error()
		}
		e.recordSecurityEvent(ctx, op, ectx, failing, detail)

		cause := fmt.Errorf("requirement %q: %s: %w", failing, detail, contracts.ErrSecurity)
		return nil, e.fail(ctx, op, ectx, tx, started, monitor.Sample{}, contracts.CodeSecurityViolation, cause)
	}

	// 3. Monitored execution. The monitor's stop step runs on every
	// path, wired into Wrap itself.
	result, sample, execErr := e.guardedExecute(ctx, op)
	if execErr != nil {
		if ctx.Err() != nil {
			return nil, e.fail(ctx, op, ectx, tx, started, sample, contracts.CodeCancelled, execErr)
		}
		return nil, e.fail(ctx, op, ectx, tx, started, sample, "", execErr)
	}

	// 4. Result verification before the commit point.
	if verr := e.verifier.Check(result); verr != nil {
		code := contracts.CodeInvalidResult
		if errors.Is(verr, contracts.ErrIntegrity) {
			code = contracts.CodeIntegrityViolation
		}
		return nil, e.fail(ctx, op, ectx, tx, started, sample, code, verr)
	}

	// 5. Commit. A failed commit still finishes the transaction, so
	// there is nothing left to roll back.
	if cerr := tx.Commit(); cerr != nil {
		return nil, e.fail(ctx, op, ectx, nil, started, sample, "", fmt.Errorf("commit: %w", cerr))
	}

	// 6. Audit success. Fail-closed: an unrecorded success is not a
	// success.
	rec := e.newRecord(op, ectx, started, sample)
	rec.Outcome = contracts.OutcomeSuccess
	if aerr := e.sink.RecordSuccess(ctx, rec); aerr != nil {
		e.log.Error("success audit record failed", "operation", op.ID(), "error", aerr)
		return nil, contracts.NewExecutionError(contracts.CodeInternal, contracts.ClassPermanent,
			op.ID(), ectx.Attempt, fmt.Errorf("audit success record: %w", aerr))
	}

	return result, nil
}

// guardedExecute runs the monitored execution and converts a panic into
// an ordinary failure so the attempt still rolls back and audits. The
// monitor records its sample before re-panicking, so only the returned
// sample is lost here.
func (e *Executor) guardedExecute(ctx context.Context, op contracts.Operation) (res *contracts.OperationResult, sample monitor.Sample, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = nil
			err = fmt.Errorf("operation panicked: %v", r)
		}
	}()
	return e.monitor.Wrap(ctx, op.ID(), op.Execute)
}

// fail releases the transaction, classifies, audits, raises the
// security/quarantine side channels, and returns the typed error.
// code "" derives the code from the classifier.
func (e *Executor) fail(ctx context.Context, op contracts.Operation, ectx *contracts.ExecutionContext, tx txn.Tx, started time.Time, sample monitor.Sample, code contracts.ErrorCode, cause error) error {
	if tx != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			e.log.Error("rollback failed", "operation", op.ID(), "error", rbErr)
		}
	}

	var class contracts.Classification
	if code == "" {
		class = e.classifier.Classify(cause)
		code = codeFor(class)
	} else {
		class = classFor(code)
	}

	rec := e.newRecord(op, ectx, started, sample)
	rec.Outcome = contracts.OutcomeFailure
	rec.Classification = class
	rec.Code = code
	rec.Error = cause.Error()
	if aerr := e.sink.RecordFailure(ctx, rec); aerr != nil {
		// Never mask the primary failure with an audit-sink failure.
		e.log.Error("failure audit record failed", "operation", op.ID(), "error", aerr)
	}

	if class == contracts.ClassSecurityViolation && e.alerts != nil {
		// Synchronous by design: a security fault is never silently
		// dropped. Delivery failures are logged, not propagated.
		if nerr := e.alerts.Notify(ctx, alert.Alert{
			Severity:    alert.SeverityCritical,
			Source:      "executor",
			OperationID: op.ID(),
			Message:     rec.Error,
			Metadata:    ectx.Metadata,
			At:          time.Now().UTC(),
		}); nerr != nil {
			e.log.Error("security alert delivery failed", "operation", op.ID(), "error", nerr)
		}
	}

	if class == contracts.ClassIntegrityViolation && e.quarantine != nil {
		e.quarantine(classify.QuarantineFor(op.ID(), ectx, rec.Error))
	}

	xe := contracts.NewExecutionError(code, class, op.ID(), ectx.Attempt, cause)
	if code == contracts.CodeRateLimited {
		xe.RetryAfter = e.gate.Window()
	}
	return xe
}

func (e *Executor) recordSecurityEvent(ctx context.Context, op contracts.Operation, ectx *contracts.ExecutionContext, requirement, detail string) {
	ses, ok := e.sink.(audit.SecurityEventSink)
	if !ok {
		return
	}
	evt := audit.NewSecurityEvent(op.ID(), ectx, requirement, detail)
	if err := ses.RecordSecurityEvent(ctx, evt); err != nil {
		e.log.Error("security event record failed", "operation", op.ID(), "error", err)
	}
}

func (e *Executor) newRecord(op contracts.Operation, ectx *contracts.ExecutionContext, started time.Time, sample monitor.Sample) *contracts.AuditRecord {
	rec := audit.NewRecord(op.ID(), ectx)
	rec.StartedAt = started
	rec.FinishedAt = time.Now()
	rec.Duration = rec.FinishedAt.Sub(rec.StartedAt)
	if !sample.Start.IsZero() {
		rec.StartedAt = sample.Start
		rec.FinishedAt = sample.End
		rec.Duration = sample.Duration
	}
	return rec
}

// codeFor maps classifier output to the boundary code for faults raised
// inside execution.
func codeFor(class contracts.Classification) contracts.ErrorCode {
	switch class {
	case contracts.ClassTransient:
		return contracts.CodeTransient
	case contracts.ClassSecurityViolation:
		return contracts.CodeSecurityViolation
	case contracts.ClassIntegrityViolation:
		return contracts.CodeIntegrityViolation
	case contracts.ClassCancelled:
		return contracts.CodeCancelled
	default:
		return contracts.CodeInternal
	}
}

// classFor fixes the classification of boundary-check failures. None of
// them are retryable.
func classFor(code contracts.ErrorCode) contracts.Classification {
	switch code {
	case contracts.CodeSecurityViolation:
		return contracts.ClassSecurityViolation
	case contracts.CodeIntegrityViolation:
		return contracts.ClassIntegrityViolation
	case contracts.CodeCancelled:
		return contracts.ClassCancelled
	default:
		// ValidationFailed, Unauthorized, RateLimited, InvalidResult.
		return contracts.ClassPermanent
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
