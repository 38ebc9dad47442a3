package repo

import (
	"context"
	"fmt"
	"strings"

	_ "github.com/glebarez/go-sqlite"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
)

const (
	driverPostgres = "pgx"
	driverSQLite   = "sqlite"
)

// Open connects to the database named by dsn. postgres:// and postgresql://
// URLs use pgx; sqlite:<path> uses the pure-Go SQLite driver.
func Open(ctx context.Context, dsn string) (*sqlx.DB, error) {
	driver, source, err := driverFor(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driver, source)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	if driver == driverSQLite {
		// SQLite serialises writers; one connection avoids SQLITE_BUSY churn.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to db: %w", err)
	}
	return db, nil
}

func driverFor(dsn string) (driver, source string, err error) {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		return driverPostgres, dsn, nil
	case strings.HasPrefix(dsn, "sqlite:"):
		path := strings.TrimPrefix(dsn, "sqlite:")
		if path == "" {
			return "", "", fmt.Errorf("sqlite dsn has no path: %q", dsn)
		}
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return driverSQLite, path + sep + "_pragma=busy_timeout(5000)&_time_format=sqlite", nil
	default:
		return "", "", fmt.Errorf("unsupported database url %q", dsn)
	}
}

var postgresSchema = []string{
	`CREATE TABLE IF NOT EXISTS message_records (
		id BIGSERIAL PRIMARY KEY,
		sender TEXT NOT NULL,
		receiver TEXT NOT NULL,
		content TEXT NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('Sent', 'Received', 'Failed'))
	)`,
	`CREATE INDEX IF NOT EXISTS message_records_timestamp_idx
		ON message_records (timestamp DESC, id DESC)`,
	`CREATE TABLE IF NOT EXISTS users (
		id BIGSERIAL PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		is_staff BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS message_records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sender TEXT NOT NULL,
		receiver TEXT NOT NULL,
		content TEXT NOT NULL,
		timestamp DATETIME NOT NULL,
		status TEXT NOT NULL CHECK (status IN ('Sent', 'Received', 'Failed'))
	)`,
	`CREATE INDEX IF NOT EXISTS message_records_timestamp_idx
		ON message_records (timestamp DESC, id DESC)`,
	`CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		is_staff BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	)`,
}

// Migrate creates the tables if they do not exist yet.
func Migrate(ctx context.Context, db *sqlx.DB) error {
	stmts := postgresSchema
	if db.DriverName() == driverSQLite {
		stmts = sqliteSchema
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
