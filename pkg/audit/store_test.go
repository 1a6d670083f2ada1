package audit

import (
	"errors"
	"testing"
	"time"
)

func TestStore_AppendAndChain(t *testing.T) {
	store := NewStore()
	if store.ChainHead() != "genesis" {
		t.Errorf("empty chain head = %q, want genesis", store.ChainHead())
	}

	first, err := store.Append(EntryTypeAttempt, "op-1", "SUCCESS", map[string]any{"attempt": 1}, nil)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if first.Sequence != 1 || first.PreviousHash != "genesis" {
		t.Errorf("first entry = %+v", first)
	}

	second, err := store.Append(EntryTypeAttempt, "op-1", "FAILURE", map[string]any{"attempt": 2}, nil)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if second.PreviousHash != first.EntryHash {
		t.Error("second entry does not link to the first")
	}
	if store.ChainHead() != second.EntryHash {
		t.Error("chain head does not track the last entry")
	}
	if store.Size() != 2 {
		t.Errorf("size = %d, want 2", store.Size())
	}

	if err := store.VerifyChain(); err != nil {
		t.Errorf("VerifyChain on intact chain: %v", err)
	}
}

func TestStore_TamperDetection(t *testing.T) {
	store := NewStore()
	for i := 0; i < 3; i++ {
		if _, err := store.Append(EntryTypeAttempt, "op-1", "SUCCESS", map[string]any{"i": i}, nil); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	// Mutate a middle entry behind the store's back.
	store.entries[1].Subject = "op-forged"

	if err := store.VerifyChain(); !errors.Is(err, ErrChainBroken) {
		t.Errorf("tampered chain verified: %v", err)
	}
}

func TestStore_Get(t *testing.T) {
	store := NewStore()
	entry, err := store.Append(EntryTypeAttempt, "op-1", "SUCCESS", nil, nil)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := store.Get(entry.EntryID)
	if err != nil || got.EntryID != entry.EntryID {
		t.Errorf("Get = %v, %v", got, err)
	}
	if _, err := store.Get("missing"); !errors.Is(err, ErrEntryNotFound) {
		t.Errorf("missing entry: %v", err)
	}
}

func TestStore_Query(t *testing.T) {
	store := NewStore()
	mustAppend(t, store, EntryTypeAttempt, "op-1", "SUCCESS")
	mustAppend(t, store, EntryTypeAttempt, "op-2", "FAILURE")
	mustAppend(t, store, EntryTypeSecurityEvent, "op-2", "security_violation")

	if got := len(store.Query(QueryFilter{})); got != 3 {
		t.Errorf("unfiltered = %d, want 3", got)
	}
	if got := len(store.Query(QueryFilter{Subject: "op-2"})); got != 2 {
		t.Errorf("by subject = %d, want 2", got)
	}
	if got := len(store.Query(QueryFilter{EntryType: EntryTypeSecurityEvent})); got != 1 {
		t.Errorf("by type = %d, want 1", got)
	}
	if got := len(store.Query(QueryFilter{MaxResults: 2})); got != 2 {
		t.Errorf("capped = %d, want 2", got)
	}

	future := time.Now().Add(time.Hour)
	if got := len(store.Query(QueryFilter{StartTime: &future})); got != 0 {
		t.Errorf("future window = %d, want 0", got)
	}
}

func TestStore_Handler(t *testing.T) {
	store := NewStore()
	var seen []string
	store.AddHandler(func(e *Entry) { seen = append(seen, e.Subject) })

	mustAppend(t, store, EntryTypeAttempt, "op-1", "SUCCESS")
	mustAppend(t, store, EntryTypeAttempt, "op-2", "SUCCESS")

	if len(seen) != 2 || seen[0] != "op-1" || seen[1] != "op-2" {
		t.Errorf("handler saw %v", seen)
	}
}

func mustAppend(t *testing.T, s *Store, et EntryType, subject, action string) {
	t.Helper()
	if _, err := s.Append(et, subject, action, map[string]any{"subject": subject}, nil); err != nil {
		t.Fatalf("Append: %v", err)
	}
}
