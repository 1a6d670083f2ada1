package audit

import (
	"archive/zip"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidTimeRange is returned when start time is after end time.
	ErrInvalidTimeRange = errors.New("audit: start_time must be before end_time")
	// ErrStoreNotConfigured is returned when export is invoked without a backing store.
	ErrStoreNotConfigured = errors.New("audit: store not configured (fail-closed)")
)

// ExportRequest defines what to export. OperationID is optional; an
// empty value exports every attempt in the window.
type ExportRequest struct {
	OperationID string    `json:"operation_id,omitempty"`
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
}

// ObjectStore persists an evidence pack and returns its content hash.
// S3Store and GCSStore implement it.
type ObjectStore interface {
	Store(ctx context.Context, data []byte) (string, error)
}

// Exporter builds evidence packs from the audit store and optionally
// uploads them to object storage.
type Exporter struct {
	store   *Store
	objects ObjectStore
}

// NewExporter creates an Exporter. objects may be nil; packs are then
// only returned to the caller.
func NewExporter(s *Store, objects ObjectStore) *Exporter {
	return &Exporter{store: s, objects: objects}
}

// GeneratePack creates a zip containing the matching audit entries and
// a manifest, returning the bytes and their SHA-256 checksum.
func (e *Exporter) GeneratePack(ctx context.Context, req ExportRequest) ([]byte, string, error) {
	if !req.StartTime.IsZero() && !req.EndTime.IsZero() && req.StartTime.After(req.EndTime) {
		return nil, "", ErrInvalidTimeRange
	}
	if e.store == nil {
		return nil, "", ErrStoreNotConfigured
	}

	filter := QueryFilter{Subject: req.OperationID}
	if !req.StartTime.IsZero() {
		filter.StartTime = &req.StartTime
	}
	if !req.EndTime.IsZero() {
		filter.EndTime = &req.EndTime
	}
	entries := e.store.Query(filter)

	entriesJSON, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return nil, "", err
	}

	manifest := map[string]any{
		"operation_id": req.OperationID,
		"generated_at": time.Now().UTC(),
		"entry_count":  len(entries),
		"chain_head":   e.store.ChainHead(),
		"period": map[string]any{
			"start": req.StartTime,
			"end":   req.EndTime,
		},
	}
	manifestJSON, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, "", fmt.Errorf("audit: marshal manifest: %w", err)
	}

	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	f, err := w.Create("entries.json")
	if err != nil {
		return nil, "", err
	}
	_, _ = f.Write(entriesJSON)

	f, err = w.Create("manifest.json")
	if err != nil {
		return nil, "", err
	}
	_, _ = f.Write(manifestJSON)

	if err := w.Close(); err != nil {
		return nil, "", err
	}

	zipBytes := buf.Bytes()
	hash := sha256.Sum256(zipBytes)
	return zipBytes, hex.EncodeToString(hash[:]), nil
}

// Upload generates a pack and stores it in the configured object store.
// Returns the stored object's content hash.
func (e *Exporter) Upload(ctx context.Context, req ExportRequest) (string, error) {
	if e.objects == nil {
		return "", errors.New("audit: no object store configured")
	}
	pack, _, err := e.GeneratePack(ctx, req)
	if err != nil {
		return "", err
	}
	return e.objects.Store(ctx, pack)
}
