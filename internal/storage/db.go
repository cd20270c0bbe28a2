package storage

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/boutique-ia/forecast-engine/internal/config"
)

// Driver names accepted by Open and Migrate.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var schemas = map[string]string{
	DriverSQLite: `
		CREATE TABLE IF NOT EXISTS forecast_runs (
			id            TEXT PRIMARY KEY,
			kind          TEXT NOT NULL,
			status        TEXT NOT NULL,
			window_start  TEXT,
			window_end    TEXT,
			filters       TEXT,
			rows_used     INTEGER NOT NULL DEFAULT 0,
			results       INTEGER NOT NULL DEFAULT 0,
			top_product   TEXT,
			total_units   INTEGER NOT NULL DEFAULT 0,
			total_revenue TEXT NOT NULL DEFAULT '0',
			metrics       TEXT,
			error         TEXT,
			started_at    TIMESTAMP NOT NULL,
			finished_at   TIMESTAMP NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_forecast_runs_started ON forecast_runs (started_at);
		CREATE INDEX IF NOT EXISTS idx_forecast_runs_kind ON forecast_runs (kind);
	`,
	DriverPostgres: `
		CREATE TABLE IF NOT EXISTS forecast_runs (
			id            UUID PRIMARY KEY,
			kind          TEXT NOT NULL,
			status        TEXT NOT NULL,
			window_start  TEXT,
			window_end    TEXT,
			filters       JSONB,
			rows_used     INTEGER NOT NULL DEFAULT 0,
			results       INTEGER NOT NULL DEFAULT 0,
			top_product   TEXT,
			total_units   BIGINT NOT NULL DEFAULT 0,
			total_revenue NUMERIC(18, 2) NOT NULL DEFAULT 0,
			metrics       JSONB,
			error         TEXT,
			started_at    TIMESTAMPTZ NOT NULL,
			finished_at   TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_forecast_runs_started ON forecast_runs (started_at DESC);
		CREATE INDEX IF NOT EXISTS idx_forecast_runs_kind ON forecast_runs (kind);
	`,
}

// Open connects to the configured run-history database.
func Open(cfg *config.Config) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)

	switch cfg.Database.Driver {
	case DriverSQLite:
		dsn := cfg.DatabaseDSN()
		if mode := cfg.Database.SQLite.JournalMode; mode != "" && dsn != ":memory:" {
			dsn += "?_journal_mode=" + mode
		}
		db, err = sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if cfg.Database.SQLite.MaxOpenConns > 0 {
			db.SetMaxOpenConns(cfg.Database.SQLite.MaxOpenConns)
		}
	case DriverPostgres:
		db, err = sql.Open("postgres", cfg.DatabaseDSN())
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		pg := cfg.Database.Postgres
		if pg.MaxOpenConns > 0 {
			db.SetMaxOpenConns(pg.MaxOpenConns)
		}
		if pg.MaxIdleConns > 0 {
			db.SetMaxIdleConns(pg.MaxIdleConns)
		}
		if pg.ConnMaxLifetime > 0 {
			db.SetConnMaxLifetime(pg.ConnMaxLifetime)
		}
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}

	return db, nil
}

// Migrate creates the run-history schema if it does not exist.
func Migrate(ctx context.Context, db DB, driver string) error {
	schema, ok := schemas[driver]
	if !ok {
		return fmt.Errorf("unsupported database driver: %s", driver)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate %s: %w", driver, err)
	}
	return nil
}
