package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func newMockRepo(t *testing.T) (*SQLRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	repo, err := NewSQLRepository(db, "")
	if err != nil {
		t.Fatalf("NewSQLRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo, mock
}

func TestSQLRepositoryInsert(t *testing.T) {
	repo, mock := newMockRepo(t)
	event := Event{
		ID:            "7b0c56a4-2f61-4f5a-9d51-6d3c2d8f0a11",
		Timestamp:     time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		TransactionID: "0.0.1001@1700000000.000000001",
		Endpoint:      "gw-0",
		Kind:          "submit",
		Attempt:       2,
		Code:          "BUSY",
		DurationMS:    12,
	}

	mock.ExpectExec("INSERT INTO ledger_request_audit").
		WithArgs(event.ID, sqlmock.AnyArg(), "", event.TransactionID, "gw-0", "submit", 2, "BUSY", "", int64(12)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Insert(context.Background(), event); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSQLRepositoryInsertError(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("INSERT INTO ledger_request_audit").WillReturnError(errors.New("disk full"))

	if err := repo.Insert(context.Background(), Event{ID: "x"}); err == nil {
		t.Fatal("expected insert error")
	}
}

func TestSQLRepositoryEnsureSchema(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS ledger_request_audit").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSQLRepositoryRecent(t *testing.T) {
	repo, mock := newMockRepo(t)
	ts := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	cols := []string{"id", "ts", "trace_id", "transaction_id", "endpoint", "kind", "attempt", "code", "error", "duration_ms"}
	mock.ExpectQuery("SELECT (.+) FROM ledger_request_audit WHERE transaction_id").
		WithArgs("0.0.1001@1.1", 10).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("b", ts.Add(time.Second), "t", "0.0.1001@1.1", "gw-1", "receipt", 1, "OK", "", 3).
			AddRow("a", ts, "t", "0.0.1001@1.1", "gw-0", "submit", 1, "OK", "", 5))

	events, err := repo.Recent(context.Background(), "0.0.1001@1.1", 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(events) != 2 || events[0].Kind != "receipt" || events[1].DurationMS != 5 {
		t.Fatalf("unexpected events: %+v", events)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestNewSQLRepositoryRejectsBadTable(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	defer db.Close()
	if _, err := NewSQLRepository(db, "audit; DROP TABLE x"); err == nil {
		t.Fatal("expected table name to be rejected")
	}
}

func TestOpenRequiresDSN(t *testing.T) {
	if _, err := Open(context.Background(), "", ""); err == nil {
		t.Fatal("expected missing dsn error")
	}
}
