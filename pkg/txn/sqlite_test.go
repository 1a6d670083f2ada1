package txn

import (
	"context"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"
)

func openSQLite(t *testing.T) *SQLResource {
	t.Helper()
	res, err := Open("sqlite", filepath.Join(t.TempDir(), "txn_test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = res.Close() })

	if _, err := res.DB().Exec(`CREATE TABLE content (id TEXT PRIMARY KEY, state TEXT NOT NULL)`); err != nil {
		t.Fatalf("create table: %v", err)
	}
	return res
}

func TestSQLResource_SQLiteCommit(t *testing.T) {
	res := openSQLite(t)
	ctx := context.Background()

	tx, err := res.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := tx.(*sqlTx).tx.Exec(`INSERT INTO content (id, state) VALUES ('c1', 'live')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	var state string
	if err := res.DB().QueryRow(`SELECT state FROM content WHERE id = 'c1'`).Scan(&state); err != nil {
		t.Fatalf("select: %v", err)
	}
	if state != "live" {
		t.Errorf("state = %q, want live", state)
	}
}

func TestSQLResource_SQLiteRollback(t *testing.T) {
	res := openSQLite(t)
	ctx := context.Background()

	tx, err := res.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if _, err := tx.(*sqlTx).tx.Exec(`INSERT INTO content (id, state) VALUES ('c2', 'draft')`); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	var n int
	if err := res.DB().QueryRow(`SELECT COUNT(*) FROM content WHERE id = 'c2'`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Errorf("rolled-back row persisted")
	}
}
