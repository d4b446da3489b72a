package credstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Dialect selects placeholder syntax and migration dialect for [SQL].
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// DriverName returns the database/sql driver registered for d.
func (d Dialect) DriverName() string {
	switch d {
	case DialectSQLite:
		return "sqlite"
	default:
		return "pgx"
	}
}

func (d Dialect) gooseDialect() string {
	switch d {
	case DialectSQLite:
		return "sqlite3"
	default:
		return "pgx"
	}
}

func (d Dialect) placeholder(n int) string {
	if d == DialectSQLite {
		return "?"
	}
	return "$" + strconv.Itoa(n)
}

// SQLOptions configures an [SQL] store.
type SQLOptions struct {
	Dialect Dialect
	// Timeout bounds every call. Default 2s.
	Timeout time.Duration
}

// SQL stores records in the "credentials" table.
type SQL struct {
	db      *sql.DB
	dialect Dialect
	timeout time.Duration
}

// gooseUp runs the migrations; tests swap it to simulate schema failures.
var gooseUp = func(ctx context.Context, db *sql.DB, dir string) error {
	return goose.UpContext(ctx, db, dir)
}

// Migrate applies the embedded schema migrations.
func Migrate(ctx context.Context, db *sql.DB, dialect Dialect) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect(dialect.gooseDialect()); err != nil {
		return err
	}
	if err := gooseUp(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("credstore: migrate: %w", err)
	}
	return nil
}

// OpenSQL opens dsn with the dialect's driver, pings it and applies migrations.
func OpenSQL(ctx context.Context, dsn string, opts SQLOptions) (*SQL, error) {
	if opts.Dialect == "" {
		opts.Dialect = DialectPostgres
	}
	db, err := sql.Open(opts.Dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := Migrate(ctx, db, opts.Dialect); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewSQL(db, opts), nil
}

// NewSQL wraps an already-migrated database handle.
func NewSQL(db *sql.DB, opts SQLOptions) *SQL {
	if opts.Dialect == "" {
		opts.Dialect = DialectPostgres
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 2 * time.Second
	}
	return &SQL{db: db, dialect: opts.Dialect, timeout: opts.Timeout}
}

// FindByUsername reads one row.
func (s *SQL) FindByUsername(ctx context.Context, username string) (Record, error) {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	query := "SELECT username, password_digest, role, is_locked, recent_failed_attempts, last_login_attempt " +
		"FROM credentials WHERE username = " + s.dialect.placeholder(1)

	var (
		rec       Record
		lastNanos int64
	)
	err := s.db.QueryRowContext(ctx, query, username).Scan(
		&rec.Username,
		&rec.PasswordDigest,
		&rec.Role,
		&rec.IsLocked,
		&rec.RecentFailedAttempts,
		&lastNanos,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if lastNanos != 0 {
		rec.LastLoginAttempt = time.Unix(0, lastNanos)
	}
	return rec, nil
}

// ApplyUpdate issues a single UPDATE naming only the changed columns.
func (s *SQL) ApplyUpdate(ctx context.Context, username string, changes Changes) error {
	if err := changes.Validate(); err != nil {
		return err
	}

	query, args := s.buildUpdate(username, changes)

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQL) buildUpdate(username string, changes Changes) (string, []any) {
	fields := changes.Fields()
	sets := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)
	for i, field := range fields {
		sets = append(sets, string(field)+" = "+s.dialect.placeholder(i+1))
		args = append(args, sqlValue(changes[field]))
	}
	args = append(args, username)

	query := "UPDATE credentials SET " + strings.Join(sets, ", ") +
		" WHERE username = " + s.dialect.placeholder(len(fields)+1)
	return query, args
}

// Put upserts a whole record.
func (s *SQL) Put(ctx context.Context, record Record) error {
	if record.Username == "" {
		return fmt.Errorf("%w: empty username", ErrInvalidChanges)
	}

	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	p := s.dialect.placeholder
	query := "INSERT INTO credentials (username, password_digest, role, is_locked, recent_failed_attempts, last_login_attempt) " +
		"VALUES (" + p(1) + ", " + p(2) + ", " + p(3) + ", " + p(4) + ", " + p(5) + ", " + p(6) + ") " +
		"ON CONFLICT (username) DO UPDATE SET " +
		"password_digest = excluded.password_digest, role = excluded.role, is_locked = excluded.is_locked, " +
		"recent_failed_attempts = excluded.recent_failed_attempts, last_login_attempt = excluded.last_login_attempt"

	_, err := s.db.ExecContext(ctx, query,
		record.Username,
		record.PasswordDigest,
		record.Role,
		record.IsLocked,
		record.RecentFailedAttempts,
		sqlValue(record.LastLoginAttempt),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Ping checks database reachability.
func (s *SQL) Ping(ctx context.Context) error {
	ctx, cancel := withTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close closes the underlying database handle.
func (s *SQL) Close() error {
	return s.db.Close()
}

func sqlValue(v any) any {
	switch x := v.(type) {
	case time.Time:
		if x.IsZero() {
			return int64(0)
		}
		return x.UnixNano()
	case int:
		return int64(x)
	default:
		return v
	}
}
