// Package txn defines the transactional resource scoped to one
// execution attempt, with SQL and in-memory implementations.
package txn

import "context"

// Resource hands out transaction scopes. One open Tx belongs to exactly
// one in-flight attempt; scopes are never shared.
type Resource interface {
	Begin(ctx context.Context) (Tx, error)
}

// Tx is an open transaction scope. Exactly one of Commit or Rollback is
// called per scope; the second call on the same scope is a no-op error.
type Tx interface {
	Commit() error
	Rollback() error
}
