// Package sqlstore provides SQL persistence for learnquest.
// SQLite (pure Go, WAL mode) is the default; PostgreSQL is supported through
// lib/pq. Both share one schema and one set of queries.
package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)

	"github.com/learnquest/learnquest/internal/domain"
)

// Dialect selects SQL syntax differences between backends.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func (d Dialect) String() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

// DBTX is the common interface satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

var (
	_ DBTX = (*sql.DB)(nil)
	_ DBTX = (*sql.Tx)(nil)
)

// DB is a domain.Store backed by database/sql.
type DB struct {
	*queries
	db *sql.DB
}

var _ domain.Store = (*DB)(nil)

// Open creates or opens the SQLite database at dir/learnquest.db.
// Enables WAL mode, foreign keys, and 5-second busy timeout.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dbPath := filepath.Join(dir, "learnquest.db")
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// SQLite is single-writer; one connection also serializes transactions.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return initDB(db, SQLite)
}

// OpenPostgres connects to PostgreSQL with dsn (URL or key=value form).
func OpenPostgres(dsn string) (*DB, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("%w: postgres connection string is empty", domain.ErrStorageUnavailable)
	}
	connector, err := pq.NewConnector(dsn)
	if err != nil {
		return nil, fmt.Errorf("invalid postgres connection string: %w", err)
	}

	db := sql.OpenDB(connector)
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return initDB(db, Postgres)
}

func initDB(db *sql.DB, dialect Dialect) (*DB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: ping %s: %v", domain.ErrStorageUnavailable, dialect, err)
	}

	d := &DB{db: db, queries: &queries{q: db, dialect: dialect}}
	if err := d.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping(ctx context.Context) error {
	if err := d.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

// Dialect reports which backend this DB talks to.
func (d *DB) Dialect() Dialect { return d.dialect }

// migrate runs idempotent schema migrations.
func (d *DB) migrate(ctx context.Context) error {
	bigint := "INTEGER"
	if d.dialect == Postgres {
		bigint = "BIGINT"
	}

	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			username      TEXT NOT NULL,
			current_xp    ` + bigint + ` NOT NULL DEFAULT 0,
			current_level INTEGER NOT NULL DEFAULT 1,
			created_at    ` + bigint + ` NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS daily_logs (
			id             TEXT PRIMARY KEY,
			user_id        TEXT NOT NULL REFERENCES users(id),
			log_date       TEXT NOT NULL,
			time_spent     INTEGER NOT NULL,
			difficulty     INTEGER NOT NULL,
			mood           TEXT NOT NULL DEFAULT '',
			energy         TEXT NOT NULL DEFAULT '',
			freelance_load TEXT NOT NULL DEFAULT '',
			notes          TEXT NOT NULL DEFAULT '',
			xp_earned      ` + bigint + ` NOT NULL,
			created_at     ` + bigint + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_logs_user_date ON daily_logs(user_id, log_date)`,

		`CREATE TABLE IF NOT EXISTS streaks (
			user_id        TEXT PRIMARY KEY REFERENCES users(id),
			current_streak INTEGER NOT NULL DEFAULT 0,
			longest_streak INTEGER NOT NULL DEFAULT 0,
			last_log_date  TEXT NOT NULL DEFAULT ''
		)`,

		`CREATE TABLE IF NOT EXISTS badges (
			id         TEXT PRIMARY KEY,
			user_id    TEXT NOT NULL REFERENCES users(id),
			badge_type TEXT NOT NULL,
			badge_name TEXT NOT NULL,
			earned_at  ` + bigint + ` NOT NULL
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_badges_user_type ON badges(user_id, badge_type)`,

		`CREATE TABLE IF NOT EXISTS plan_tasks (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL REFERENCES users(id),
			week         INTEGER NOT NULL,
			topic        TEXT NOT NULL,
			subject_type TEXT NOT NULL,
			status       TEXT NOT NULL DEFAULT 'Not Started',
			xp_reward    ` + bigint + ` NOT NULL DEFAULT 100,
			xp_granted   BOOLEAN NOT NULL DEFAULT FALSE,
			created_at   ` + bigint + ` NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_user_week ON plan_tasks(user_id, week)`,
		`CREATE INDEX IF NOT EXISTS idx_tasks_user_status ON plan_tasks(user_id, status)`,
	}

	for _, m := range migrations {
		if _, err := d.db.ExecContext(ctx, m); err != nil {
			return fmt.Errorf("exec migration: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// rebind rewrites ? placeholders as $1, $2, ... for PostgreSQL.
func rebind(dialect Dialect, query string) string {
	if dialect != Postgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
