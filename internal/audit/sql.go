package audit

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// DefaultTable is the audit table used when none is given.
const DefaultTable = "ledger_request_audit"

var tableName = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// SQLRepository writes events to a Postgres table.
type SQLRepository struct {
	db    *sqlx.DB
	table string
}

var _ Repository = (*SQLRepository)(nil)

// NewSQLRepository wraps an open Postgres handle.
func NewSQLRepository(db *sql.DB, table string) (*SQLRepository, error) {
	if table == "" {
		table = DefaultTable
	}
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("audit: invalid table name %q", table)
	}
	return &SQLRepository{db: sqlx.NewDb(db, "postgres"), table: table}, nil
}

// Open connects to dsn and verifies the connection.
func Open(ctx context.Context, dsn, table string) (*SQLRepository, error) {
	if dsn == "" {
		return nil, fmt.Errorf("audit: dsn not configured")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, err
	}
	repo, err := NewSQLRepository(db, table)
	if err != nil {
		db.Close()
		return nil, err
	}
	return repo, nil
}

// EnsureSchema creates the audit table when it does not exist.
func (r *SQLRepository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id UUID PRIMARY KEY,
	ts TIMESTAMPTZ NOT NULL,
	trace_id TEXT NOT NULL DEFAULT '',
	transaction_id TEXT NOT NULL,
	endpoint TEXT NOT NULL DEFAULT '',
	kind TEXT NOT NULL,
	attempt INTEGER NOT NULL,
	code TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	duration_ms BIGINT NOT NULL
)`, r.table))
	if err != nil {
		return fmt.Errorf("audit: create %s: %w", r.table, err)
	}
	return nil
}

func (r *SQLRepository) Insert(ctx context.Context, event Event) error {
	query := fmt.Sprintf(`INSERT INTO %s
	(id, ts, trace_id, transaction_id, endpoint, kind, attempt, code, error, duration_ms)
	VALUES (:id, :ts, :trace_id, :transaction_id, :endpoint, :kind, :attempt, :code, :error, :duration_ms)`, r.table)
	if _, err := r.db.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("audit: insert %s: %w", event.ID, err)
	}
	return nil
}

// Recent returns the newest events for a transaction, newest first.
func (r *SQLRepository) Recent(ctx context.Context, transactionID string, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	query := fmt.Sprintf(`SELECT id, ts, trace_id, transaction_id, endpoint, kind, attempt, code, error, duration_ms
	FROM %s WHERE transaction_id = $1 ORDER BY ts DESC LIMIT $2`, r.table)
	var out []Event
	if err := r.db.SelectContext(ctx, &out, query, transactionID, limit); err != nil {
		return nil, fmt.Errorf("audit: query %s: %w", transactionID, err)
	}
	return out, nil
}

// Close closes the underlying handle.
func (r *SQLRepository) Close() error { return r.db.Close() }
