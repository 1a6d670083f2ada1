package txn

import (
	"context"
	"database/sql"
	"fmt"
)

// SQLResource adapts database/sql to the Resource interface. Works with
// any registered driver; Postgres (lib/pq) and embedded SQLite
// (modernc.org/sqlite) are the tested backends.
type SQLResource struct {
	db *sql.DB
}

// NewSQLResource wraps an open database handle.
func NewSQLResource(db *sql.DB) *SQLResource {
	return &SQLResource{db: db}
}

// Open opens a database handle and wraps it. driver is the registered
// driver name ("postgres", "sqlite").
func Open(driver, dsn string) (*SQLResource, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("txn: open %s: %w", driver, err)
	}
	return &SQLResource{db: db}, nil
}

// DB exposes the underlying handle for operations that run statements
// inside the attempt's scope.
func (r *SQLResource) DB() *sql.DB { return r.db }

// Close closes the underlying handle.
func (r *SQLResource) Close() error { return r.db.Close() }

func (r *SQLResource) Begin(ctx context.Context) (Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("txn: begin: %w", err)
	}
	return &sqlTx{tx: tx}, nil
}

type sqlTx struct {
	tx   *sql.Tx
	done bool
}

func (t *sqlTx) Commit() error {
	if t.done {
		return fmt.Errorf("txn: commit on finished transaction")
	}
	t.done = true
	return t.tx.Commit()
}

func (t *sqlTx) Rollback() error {
	if t.done {
		return fmt.Errorf("txn: rollback on finished transaction")
	}
	t.done = true
	return t.tx.Rollback()
}
