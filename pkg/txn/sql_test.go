package txn

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestSQLResource_CommitPath(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE content").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res := NewSQLResource(db)
	tx, err := res.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}

	if _, err := tx.(*sqlTx).tx.Exec("UPDATE content SET state = 'live'"); err != nil {
		t.Fatalf("Exec: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSQLResource_RollbackPath(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectBegin()
	mock.ExpectRollback()

	res := NewSQLResource(db)
	tx, err := res.Begin(context.Background())
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}
	if err := tx.Rollback(); err == nil {
		t.Error("second rollback succeeded")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestSQLResource_BeginError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer func() { _ = db.Close() }()

	mock.ExpectBegin().WillReturnError(context.DeadlineExceeded)

	res := NewSQLResource(db)
	if _, err := res.Begin(context.Background()); err == nil {
		t.Error("Begin succeeded despite driver error")
	}
}
