// Package audit records the outcome of every execution attempt and the
// security events raised on the way. Sinks are append-only and safe for
// concurrent use.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/castellan-io/castellan/pkg/contracts"
)

// Sink records attempt outcomes. Exactly one call per attempt.
type Sink interface {
	RecordSuccess(ctx context.Context, rec *contracts.AuditRecord) error
	RecordFailure(ctx context.Context, rec *contracts.AuditRecord) error
}

// SecurityEvent is a suspicious-activity fact, distinct from the
// per-attempt audit record so attempt accounting stays exact.
type SecurityEvent struct {
	ID          string            `json:"id"`
	OperationID string            `json:"operation_id"`
	Actor       string            `json:"actor"`
	Origin      string            `json:"origin,omitempty"`
	Requirement string            `json:"requirement"`
	Detail      string            `json:"detail,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Timestamp   time.Time         `json:"timestamp"`
}

// SecurityEventSink is implemented by sinks that also keep a trail of
// security events. Optional; the executor feature-detects it.
type SecurityEventSink interface {
	RecordSecurityEvent(ctx context.Context, evt SecurityEvent) error
}

// NewSecurityEvent stamps a security event for an operation attempt.
func NewSecurityEvent(opID string, ectx *contracts.ExecutionContext, requirement, detail string) SecurityEvent {
	evt := SecurityEvent{
		ID:          uuid.New().String(),
		OperationID: opID,
		Actor:       ectx.ActorID(),
		Requirement: requirement,
		Detail:      detail,
		Timestamp:   time.Now().UTC(),
	}
	if ectx != nil {
		evt.Origin = ectx.Origin
		evt.Metadata = ectx.Metadata
	}
	return evt
}

// NewRecord builds the audit record for one attempt. Outcome fields are
// filled by the executor before the record reaches a sink.
func NewRecord(opID string, ectx *contracts.ExecutionContext) *contracts.AuditRecord {
	rec := &contracts.AuditRecord{
		ID:          uuid.New().String(),
		OperationID: opID,
		Actor:       ectx.ActorID(),
	}
	if ectx != nil {
		rec.Attempt = ectx.Attempt
		rec.Origin = ectx.Origin
		rec.Metadata = ectx.Metadata
	}
	return rec
}
