package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/spice-ledger/internal/service"
	"github.com/mattn/go-sqlite3"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
)

// sqliteDriverName is the go-sqlite3 driver with the casefold function
// registered on every connection.
const sqliteDriverName = "sqlite3_ledger"

func init() {
	sql.Register(sqliteDriverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(conn *sqlite3.SQLiteConn) error {
			return conn.RegisterFunc("casefold", casefold, true)
		},
	})
}

// casefold lower-cases s with Unicode rules. SQLite's own LIKE and lower()
// only fold ASCII letters.
func casefold(s string) string {
	return strings.ToLower(s)
}

var _ service.Storage = (*SQLStorage)(nil)

// SQLStorage implements the Storage interface on top of database/sql.
// The dialect decides placeholder syntax, column types and schema versioning.
type SQLStorage struct {
	db      *sql.DB
	dialect dialect
}

// NewSQLiteStorage creates a new SQLite storage instance.
func NewSQLiteStorage(dbPath string) (*SQLStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open(sqliteDriverName, dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, storeErr("open database", err)
	}

	// SQLite serializes writers; one connection also keeps :memory: databases shared.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, storeErr("ping database", err)
	}

	return &SQLStorage{db: db, dialect: sqliteDialect{}}, nil
}

// NewPostgresStorage connects to PostgreSQL through the pgx driver.
func NewPostgresStorage(ctx context.Context, dsn string) (*SQLStorage, error) {
	if err := validateString(dsn, "dsn"); err != nil {
		return nil, err
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, storeErr("open database", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, storeErr("ping database", err)
	}

	return &SQLStorage{db: db, dialect: postgresDialect{}}, nil
}

// Close closes the database connection.
func (s *SQLStorage) Close() error {
	return s.db.Close()
}

// Driver returns the name of the underlying SQL dialect.
func (s *SQLStorage) Driver() string {
	return s.dialect.name()
}

// dialect captures the differences between the supported SQL engines.
type dialect interface {
	name() string
	rebind(query string) string
	amountType() string
	timeType() string
	// keywordMatch returns a condition matching column against a lower-cased
	// LIKE pattern, ignoring case.
	keywordMatch(column string) string
	bootstrap(ctx context.Context, db *sql.DB) error
	schemaVersion(ctx context.Context, q querier) (int, error)
	setSchemaVersion(ctx context.Context, tx *sql.Tx, version int) error
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type sqliteDialect struct{}

func (sqliteDialect) name() string { return "sqlite" }
func (sqliteDialect) rebind(query string) string { return query }

// Amounts are stored as decimal text so no precision is lost.
func (sqliteDialect) amountType() string { return "TEXT" }
func (sqliteDialect) timeType() string { return "DATETIME" }

func (sqliteDialect) keywordMatch(column string) string {
	return "casefold(" + column + `) LIKE ? ESCAPE '\'`
}

func (sqliteDialect) bootstrap(context.Context, *sql.DB) error { return nil }

func (sqliteDialect) schemaVersion(ctx context.Context, q querier) (int, error) {
	var v int
	if err := q.QueryRowContext(ctx, "PRAGMA user_version").Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

func (sqliteDialect) setSchemaVersion(ctx context.Context, tx *sql.Tx, version int) error {
	_, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version))
	return err
}

type postgresDialect struct{}

func (postgresDialect) name() string { return "postgres" }

// rebind rewrites ? placeholders into $n. Queries in this package never
// contain a literal question mark.
func (postgresDialect) rebind(query string) string {
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (postgresDialect) amountType() string { return "NUMERIC(20,4)" }
func (postgresDialect) timeType() string { return "TIMESTAMPTZ" }

func (postgresDialect) keywordMatch(column string) string {
	return column + ` ILIKE ? ESCAPE '\'`
}

func (postgresDialect) bootstrap(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	return err
}

func (postgresDialect) schemaVersion(ctx context.Context, q querier) (int, error) {
	var v int
	err := q.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&v)
	if err != nil {
		return 0, err
	}
	return v, nil
}

func (postgresDialect) setSchemaVersion(ctx context.Context, tx *sql.Tx, version int) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES ($1)`, version)
	return err
}
