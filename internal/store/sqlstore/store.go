// Package sqlstore implements the store interfaces on SQL databases. SQLite (modernc.org/sqlite)
// is the default; PostgreSQL is reached through pgx's database/sql driver.
package sqlstore

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/elibrary/elibrary-server/internal/store"
)

//go:embed schema_sqlite.sql
var schemaSQLite string

//go:embed schema_postgres.sql
var schemaPostgres string

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

const (
	tableUsers      = "users"
	tableBooks      = "books"
	tableLoans      = "loans"
	tableLoanEvents = "loan_events"
)

// sqliteTimeLayout is fixed width so text timestamps sort chronologically.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Config selects and locates the database.
type Config struct {
	Driver string
	Path   string // SQLite file
	DSN    string // PostgreSQL connection string
}

// Store is the SQL-backed implementation of store.Store.
type Store struct {
	*conn
	db     *sqlx.DB
	logger *slog.Logger
}

var _ store.Store = (*Store)(nil)

// conn runs queries against either the pool or a transaction.
type conn struct {
	ext     sqlx.ExtContext
	dialect goqu.DialectWrapper
	driver  string
	inTx    bool
}

// Open connects, configures the pool and applies the schema.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (*Store, error) {
	var (
		db      *sqlx.DB
		err     error
		schema  string
		dialect goqu.DialectWrapper
	)

	switch cfg.Driver {
	case DriverSQLite, "":
		cfg.Driver = DriverSQLite
		db, err = sqlx.Open("sqlite", sqliteDSN(cfg.Path))
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// Pragmas ride on the DSN so every pooled connection gets them.
		db.SetMaxOpenConns(4)
		db.SetMaxIdleConns(2)
		schema = schemaSQLite
		dialect = goqu.Dialect("sqlite3")
	case DriverPostgres:
		db, err = sqlx.Open("pgx", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxIdleTime(5 * time.Minute)
		schema = schemaPostgres
		dialect = goqu.Dialect("postgres")
	default:
		return nil, fmt.Errorf("unsupported driver %q", cfg.Driver)
	}
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("database ready", "driver", cfg.Driver)

	return &Store{
		conn:   &conn{ext: db, dialect: dialect, driver: cfg.Driver},
		db:     db,
		logger: logger,
	}, nil
}

func sqliteDSN(path string) string {
	params := []string{
		"_pragma=busy_timeout(5000)",
		"_pragma=journal_mode(WAL)",
		"_pragma=synchronous(NORMAL)",
		"_pragma=foreign_keys(1)",
		// BEGIN IMMEDIATE takes the write lock up front, serializing lending transactions.
		"_txlock=immediate",
	}
	return path + "?" + strings.Join(params, "&")
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// WithTx runs fn inside one transaction. On PostgreSQL, rows read through the
// transaction are locked until it ends.
func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after Commit

	if err := fn(&conn{ext: tx, dialect: s.dialect, driver: s.driver, inTx: true}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// sqlBuilder is any goqu dataset.
type sqlBuilder interface {
	ToSQL() (string, []any, error)
}

func (c *conn) get(ctx context.Context, dest any, b sqlBuilder) error {
	query, args, err := b.ToSQL()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return sqlx.GetContext(ctx, c.ext, dest, query, args...)
}

func (c *conn) selectAll(ctx context.Context, dest any, b sqlBuilder) error {
	query, args, err := b.ToSQL()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}
	return sqlx.SelectContext(ctx, c.ext, dest, query, args...)
}

func (c *conn) exec(ctx context.Context, b sqlBuilder) (int64, error) {
	query, args, err := b.ToSQL()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}
	res, err := c.ext.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// lockRows adds FOR UPDATE where the dialect supports it and we are inside a transaction.
// SQLite needs no row locks: its transactions already hold the database write lock.
func (c *conn) lockRows(ds *goqu.SelectDataset) *goqu.SelectDataset {
	if c.inTx && c.driver == DriverPostgres {
		return ds.ForUpdate(exp.Wait)
	}
	return ds
}

// timeValue converts t to the column representation of the active driver.
func (c *conn) timeValue(t time.Time) any {
	if c.driver == DriverSQLite {
		return t.UTC().Format(sqliteTimeLayout)
	}
	return t.UTC()
}

func (c *conn) nullTimeValue(t *time.Time) any {
	if t == nil {
		return nil
	}
	return c.timeValue(*t)
}

// dbTime scans timestamps stored as TEXT (SQLite) or TIMESTAMPTZ (PostgreSQL).
type dbTime struct {
	time.Time
}

// Scan implements sql.Scanner.
func (t *dbTime) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		t.Time = v.UTC()
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	default:
		return fmt.Errorf("cannot scan %T into time", src)
	}
}

func (t *dbTime) parse(s string) error {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return fmt.Errorf("parse time %q: %w", s, err)
	}
	t.Time = parsed.UTC()
	return nil
}

// dbNullTime is dbTime for nullable columns.
type dbNullTime struct {
	Time  time.Time
	Valid bool
}

// Scan implements sql.Scanner.
func (t *dbNullTime) Scan(src any) error {
	if src == nil {
		t.Valid = false
		return nil
	}
	var inner dbTime
	if err := inner.Scan(src); err != nil {
		return err
	}
	t.Time, t.Valid = inner.Time, true
	return nil
}

func (t dbNullTime) ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// translateError maps driver errors onto store sentinels.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound.WithCause(err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return uniqueViolation(pgErr.ConstraintName, err)
		case "23514":
			if pgErr.ConstraintName == "books_available_range" {
				return store.ErrAvailabilityRange.WithCause(err)
			}
		}
		return err
	}

	msg := err.Error()
	switch {
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return uniqueViolation(msg, err)
	case strings.Contains(msg, "CHECK constraint failed") && strings.Contains(msg, "available"):
		return store.ErrAvailabilityRange.WithCause(err)
	}
	return err
}

// uniqueViolation picks the sentinel from a constraint name (PostgreSQL) or message (SQLite).
func uniqueViolation(hint string, err error) error {
	switch {
	case strings.Contains(hint, "isbn"):
		return store.ErrDuplicateISBN.WithCause(err)
	case strings.Contains(hint, "email"):
		return store.ErrDuplicateEmail.WithCause(err)
	case strings.Contains(hint, "borrower"):
		return store.ErrActiveLoanExists.WithCause(err)
	default:
		return store.ErrAlreadyExists.WithCause(err)
	}
}
