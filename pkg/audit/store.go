package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEntryNotFound = errors.New("audit: entry not found")
	ErrChainBroken   = errors.New("audit: hash chain is broken")
)

// EntryType categorizes store entries.
type EntryType string

const (
	EntryTypeAttempt       EntryType = "attempt"
	EntryTypeSecurityEvent EntryType = "security_event"
)

// Entry is a single immutable entry in the audit store.
type Entry struct {
	EntryID      string            `json:"entry_id"`
	Sequence     uint64            `json:"sequence"`
	Timestamp    time.Time         `json:"timestamp"`
	EntryType    EntryType         `json:"entry_type"`
	Subject      string            `json:"subject"` // operation id
	Action       string            `json:"action"`  // outcome or event kind
	Payload      json.RawMessage   `json:"payload"`
	PayloadHash  string            `json:"payload_hash"`
	PreviousHash string            `json:"previous_hash"`
	EntryHash    string            `json:"entry_hash"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

// Store is an append-only audit log with hash chaining. Every entry
// links to its predecessor, so silent mutation or deletion is
// detectable by VerifyChain.
type Store struct {
	mu        sync.RWMutex
	entries   []*Entry
	entryByID map[string]*Entry
	sequence  uint64
	chainHead string
	handlers  []EntryHandler
}

// EntryHandler is called when new entries are appended.
type EntryHandler func(entry *Entry)

// NewStore creates an empty audit store.
func NewStore() *Store {
	return &Store{
		entries:   make([]*Entry, 0),
		entryByID: make(map[string]*Entry),
		chainHead: "genesis",
	}
}

// Append adds a new entry.
func (s *Store) Append(entryType EntryType, subject, action string, payload any, metadata map[string]string) (*Entry, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("audit: serialize payload: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sequence++
	entry := &Entry{
		EntryID:      uuid.New().String(),
		Sequence:     s.sequence,
		Timestamp:    time.Now().UTC(),
		EntryType:    entryType,
		Subject:      subject,
		Action:       action,
		Payload:      payloadBytes,
		PayloadHash:  computeHash(payloadBytes),
		PreviousHash: s.chainHead,
		Metadata:     metadata,
	}

	entryHash, err := computeEntryHash(entry)
	if err != nil {
		s.sequence-- // rollback sequence on failure
		return nil, fmt.Errorf("audit: compute entry hash: %w", err)
	}
	entry.EntryHash = entryHash
	s.chainHead = entry.EntryHash

	s.entries = append(s.entries, entry)
	s.entryByID[entry.EntryID] = entry

	for _, h := range s.handlers {
		h(entry)
	}
	return entry, nil
}

// Get retrieves an entry by ID.
func (s *Store) Get(entryID string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entryByID[entryID]
	if !ok {
		return nil, ErrEntryNotFound
	}
	return entry, nil
}

// ChainHead returns the current chain head hash.
func (s *Store) ChainHead() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.chainHead
}

// Size returns the number of entries.
func (s *Store) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// AddHandler registers a handler invoked for every appended entry.
func (s *Store) AddHandler(h EntryHandler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, h)
}

// QueryFilter selects entries for Query and export.
type QueryFilter struct {
	EntryType  EntryType
	Subject    string
	StartTime  *time.Time
	EndTime    *time.Time
	MaxResults int
}

func (f QueryFilter) matches(e *Entry) bool {
	if f.EntryType != "" && e.EntryType != f.EntryType {
		return false
	}
	if f.Subject != "" && e.Subject != f.Subject {
		return false
	}
	if f.StartTime != nil && e.Timestamp.Before(*f.StartTime) {
		return false
	}
	if f.EndTime != nil && e.Timestamp.After(*f.EndTime) {
		return false
	}
	return true
}

// Query returns entries matching the filter, in append order.
func (s *Store) Query(filter QueryFilter) []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]*Entry, 0)
	for _, e := range s.entries {
		if filter.matches(e) {
			results = append(results, e)
			if filter.MaxResults > 0 && len(results) >= filter.MaxResults {
				break
			}
		}
	}
	return results
}

// VerifyChain recomputes every link of the hash chain.
func (s *Store) VerifyChain() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	expectedPrev := "genesis"
	for i, entry := range s.entries {
		if entry.PreviousHash != expectedPrev {
			return fmt.Errorf("%w: entry %d has previous_hash %s but expected %s",
				ErrChainBroken, i, entry.PreviousHash, expectedPrev)
		}

		computed, err := computeEntryHash(entry)
		if err != nil {
			return fmt.Errorf("%w: entry %d hash computation failed: %w", ErrChainBroken, i, err)
		}
		if computed != entry.EntryHash {
			return fmt.Errorf("%w: entry %d hash mismatch (computed %s, stored %s)",
				ErrChainBroken, i, computed, entry.EntryHash)
		}

		expectedPrev = entry.EntryHash
	}
	return nil
}

func computeHash(data []byte) string {
	hash := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(hash[:])
}

// computeEntryHash hashes the chain-relevant fields of an entry.
func computeEntryHash(entry *Entry) (string, error) {
	hashable := struct {
		Sequence     uint64    `json:"sequence"`
		Timestamp    time.Time `json:"timestamp"`
		EntryType    EntryType `json:"entry_type"`
		Subject      string    `json:"subject"`
		Action       string    `json:"action"`
		PayloadHash  string    `json:"payload_hash"`
		PreviousHash string    `json:"previous_hash"`
	}{
		Sequence:     entry.Sequence,
		Timestamp:    entry.Timestamp,
		EntryType:    entry.EntryType,
		Subject:      entry.Subject,
		Action:       entry.Action,
		PayloadHash:  entry.PayloadHash,
		PreviousHash: entry.PreviousHash,
	}

	data, err := json.Marshal(hashable)
	if err != nil {
		return "", err
	}
	return computeHash(data), nil
}
