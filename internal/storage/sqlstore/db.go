package sqlstore

import (
	"context"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

func Connect(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	switch driver {
	case DriverPostgres, DriverSQLite:
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := sqlx.ConnectContext(ctx, driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("%s connect: %w", driver, err)
	}

	if driver == DriverSQLite {
		// SQLite serializes writers anyway; one connection avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
		for _, pragma := range []string{"PRAGMA journal_mode=WAL", "PRAGMA busy_timeout = 5000"} {
			if _, err := db.ExecContext(ctx, pragma); err != nil {
				_ = db.Close()
				return nil, fmt.Errorf("apply pragma %q: %w", pragma, err)
			}
		}
		return db, nil
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}

// EnsureSchema creates the videos table. The DDL is portable between
// Postgres and SQLite; timestamps are stored as RFC 3339 text.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	const stmt = `
CREATE TABLE IF NOT EXISTS videos (
	id TEXT PRIMARY KEY,
	position BIGINT NOT NULL,
	title TEXT NOT NULL,
	description TEXT NOT NULL,
	file_name TEXT NOT NULL,
	file_size BIGINT NOT NULL,
	mime_type TEXT NOT NULL,
	uploaded_by TEXT NOT NULL,
	org_id TEXT NOT NULL,
	status TEXT NOT NULL,
	sensitivity TEXT NOT NULL,
	progress INTEGER NOT NULL,
	thumbnail_url TEXT NOT NULL,
	created_at TEXT NOT NULL
)`
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	if _, err := db.ExecContext(ctx, `CREATE INDEX IF NOT EXISTS idx_videos_org ON videos(org_id)`); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}
