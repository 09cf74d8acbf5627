/*
Package sqldb provides a database/sql implementation of leave.Store.

PURPOSE:
  Persists the leave engine in SQLite (mattn/go-sqlite3) or PostgreSQL
  (jackc/pgx through its database/sql driver). Queries are written once with
  '?' placeholders and rebound per dialect.

APPEND-ONLY ENFORCEMENT:
  ledger_entries, adjustments, employee_changes and audit_entries are only
  ever INSERTed. There is no UPDATE or DELETE statement for them.

OPTIMISTIC VERSIONING:
  employees, policies, requests and balances carry a version column. Updates
  run "... WHERE id = ? AND version = ?"; zero affected rows means another
  writer got there first and leave.ErrConcurrentModification is returned.

STORAGE FORMATS:
  Timestamps: TEXT, fixed-width UTC "2006-01-02T15:04:05.000000000Z" so that
              lexical order is chronological
  Dates:      TEXT "2006-01-02"
  Days:       INTEGER half-days
  Approvals:  JSON TEXT on the request row

CONCURRENCY:
  SQLite allows one writer, so WithTx serializes writers in-process. An
  in-memory SQLite database lives on a single connection, so the pool is
  capped at one. PostgreSQL relies on the version columns.

USAGE:
  st, err := sqldb.Open(ctx, sqldb.SQLite, "./data/leave.db")
  if err != nil {
      return err
  }
  defer st.Close()
  eng := leave.NewEngine(st, leave.DefaultOptions())

SEE ALSO:
  - leave/store.go: the contract
  - leave/store/memory.go: in-memory implementation
*/
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/warp/leave-engine/leave"
)

// Dialect is the database/sql driver name.
type Dialect string

const (
	SQLite   Dialect = "sqlite3"
	Postgres Dialect = "pgx"
)

// Store implements leave.Store.
type Store struct {
	reader
	db      *sql.DB
	dialect Dialect
	writeMu sync.Mutex
}

var _ leave.Store = (*Store)(nil)

// Open connects and migrates. For SQLite, dsn is a file path or ":memory:".
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	var (
		db  *sql.DB
		err error
	)
	switch dialect {
	case SQLite:
		db, err = sql.Open(string(SQLite), sqliteDSN(dsn))
		if err == nil && strings.Contains(dsn, ":memory:") {
			db.SetMaxOpenConns(1)
		}
	case Postgres:
		db, err = sql.Open(string(Postgres), dsn)
	default:
		return nil, fmt.Errorf("unsupported dialect %q", dialect)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := New(db, dialect)
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

// New wraps an open database. The caller runs Migrate.
func New(db *sql.DB, dialect Dialect) *Store {
	return &Store{
		reader:  reader{q: db, dialect: dialect},
		db:      db,
		dialect: dialect,
	}
}

func sqliteDSN(dsn string) string {
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000"
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%s: %w", firstLine(stmt), err)
		}
	}
	return nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i > 0 {
		return s[:i]
	}
	return s
}

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(leave.Repository) error) error {
	if s.dialect == SQLite {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()
	}

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{reader: reader{q: sqlTx, dialect: s.dialect}}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// =============================================================================
// QUERY PLUMBING
// =============================================================================

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// reader implements leave.Reader over a querier.
type reader struct {
	q       querier
	dialect Dialect
}

func (r reader) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return r.q.ExecContext(ctx, r.rebind(query), args...)
}

func (r reader) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return r.q.QueryContext(ctx, r.rebind(query), args...)
}

func (r reader) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return r.q.QueryRowContext(ctx, r.rebind(query), args...)
}

// rebind turns '?' placeholders into $1..$n for PostgreSQL.
func (r reader) rebind(query string) string {
	if r.dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// txStore is the leave.Repository handed to WithTx callbacks.
type txStore struct {
	reader
}

var _ leave.Repository = (*txStore)(nil)

// where accumulates optional filter clauses.
type where struct {
	clauses []string
	args    []any
}

func (w *where) add(clause string, args ...any) {
	w.clauses = append(w.clauses, clause)
	w.args = append(w.args, args...)
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

// =============================================================================
// HELPERS
// =============================================================================

const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", s, err)
	}
	return t, nil
}

func formatDate(t time.Time) string { return t.Format(leave.DateLayout) }

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(leave.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// checkVersioned maps zero affected rows to ErrConcurrentModification, or to
// NotFound when the row does not exist at all.
func (r reader) checkVersioned(ctx context.Context, res sql.Result, table, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var one int
	err = r.queryRow(ctx, "SELECT 1 FROM "+table+" WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return &leave.NotFoundError{Entity: entity, ID: id}
	}
	if err != nil {
		return err
	}
	return fmt.Errorf("%s %s: %w", entity, id, leave.ErrConcurrentModification)
}

func checkAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &leave.NotFoundError{Entity: entity, ID: id}
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}
