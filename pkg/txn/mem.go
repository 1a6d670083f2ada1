package txn

import (
	"context"
	"fmt"
	"sync"
)

// MemResource is a journal-backed in-memory resource for tests and the
// demo binary. Writes staged through a MemTx become visible only on
// commit.
type MemResource struct {
	mu    sync.Mutex
	state map[string]string

	// attempt accounting, readable by tests
	begun      int
	committed  int
	rolledBack int
}

// NewMemResource returns an empty in-memory resource.
func NewMemResource() *MemResource {
	return &MemResource{state: make(map[string]string)}
}

func (r *MemResource) Begin(ctx context.Context) (Tx, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.begun++
	r.mu.Unlock()
	return &memTx{res: r, staged: make(map[string]string)}, nil
}

// Get reads a committed value.
func (r *MemResource) Get(key string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.state[key]
	return v, ok
}

// Counts returns (begun, committed, rolledBack).
func (r *MemResource) Counts() (int, int, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.begun, r.committed, r.rolledBack
}

type memTx struct {
	res    *MemResource
	staged map[string]string
	done   bool
}

// Set stages a write; it is applied on Commit and dropped on Rollback.
func (t *memTx) Set(key, value string) {
	t.staged[key] = value
}

func (t *memTx) Commit() error {
	if t.done {
		return fmt.Errorf("txn: commit on finished transaction")
	}
	t.done = true

	t.res.mu.Lock()
	defer t.res.mu.Unlock()
	for k, v := range t.staged {
		t.res.state[k] = v
	}
	t.res.committed++
	return nil
}

func (t *memTx) Rollback() error {
	if t.done {
		return fmt.Errorf("txn: rollback on finished transaction")
	}
	t.done = true

	t.res.mu.Lock()
	defer t.res.mu.Unlock()
	t.res.rolledBack++
	return nil
}
