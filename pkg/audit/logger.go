package audit

import (
	"context"
	"encoding/json"
	"io"
	"sync"
	"time"

	"github.com/castellan-io/castellan/pkg/contracts"
)

// LogSink writes one JSON line per record to an io.Writer. It is the
// lightweight alternative to StoreSink when chain verification is not
// needed, e.g. shipping records to a log collector.
type LogSink struct {
	mu  sync.Mutex
	enc *json.Encoder
}

// NewLogSink wraps w as a Sink. The writer is serialized internally.
func NewLogSink(w io.Writer) *LogSink {
	return &LogSink{enc: json.NewEncoder(w)}
}

type logLine struct {
	Kind   string                 `json:"kind"`
	At     time.Time              `json:"at"`
	Record *contracts.AuditRecord `json:"record,omitempty"`
	Event  *SecurityEvent         `json:"event,omitempty"`
}

func (s *LogSink) RecordSuccess(ctx context.Context, rec *contracts.AuditRecord) error {
	return s.write(logLine{Kind: "attempt", At: time.Now().UTC(), Record: rec})
}

func (s *LogSink) RecordFailure(ctx context.Context, rec *contracts.AuditRecord) error {
	return s.write(logLine{Kind: "attempt", At: time.Now().UTC(), Record: rec})
}

func (s *LogSink) RecordSecurityEvent(ctx context.Context, evt SecurityEvent) error {
	return s.write(logLine{Kind: "security_event", At: time.Now().UTC(), Event: &evt})
}

func (s *LogSink) write(line logLine) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enc.Encode(line)
}
