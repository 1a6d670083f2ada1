package audit

import (
	"context"
	"fmt"

	"github.com/castellan-io/castellan/pkg/contracts"
)

// StoreSink records attempts and security events into a hash-chained
// Store.
type StoreSink struct {
	store *Store
}

// NewStoreSink wraps a Store as a Sink.
func NewStoreSink(s *Store) *StoreSink {
	return &StoreSink{store: s}
}

// Store exposes the underlying store for queries and export.
func (s *StoreSink) Store() *Store { return s.store }

func (s *StoreSink) RecordSuccess(ctx context.Context, rec *contracts.AuditRecord) error {
	return s.append(rec)
}

func (s *StoreSink) RecordFailure(ctx context.Context, rec *contracts.AuditRecord) error {
	return s.append(rec)
}

func (s *StoreSink) RecordSecurityEvent(ctx context.Context, evt SecurityEvent) error {
	if s.store == nil {
		return fmt.Errorf("fail-closed: audit store not configured")
	}
	_, err := s.store.Append(EntryTypeSecurityEvent, evt.OperationID, "security_violation", evt, map[string]string{
		"actor":       evt.Actor,
		"requirement": evt.Requirement,
	})
	return err
}

func (s *StoreSink) append(rec *contracts.AuditRecord) error {
	if s.store == nil {
		return fmt.Errorf("fail-closed: audit store not configured")
	}
	_, err := s.store.Append(EntryTypeAttempt, rec.OperationID, string(rec.Outcome), rec, map[string]string{
		"actor":     rec.Actor,
		"record_id": rec.ID,
		"code":      string(rec.Code),
	})
	return err
}
