package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrNotFound = errors.New("record not found")
)

// DefaultListLimit caps List when no limit is given.
const DefaultListLimit = 20

// DB represents a database connection interface.
type DB interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// RunRepository handles run history persistence.
type RunRepository struct {
	db DB
}

// NewRunRepository creates a new run repository.
func NewRunRepository(db DB) *RunRepository {
	return &RunRepository{db: db}
}

const runColumns = `id, kind, status, window_start, window_end, filters, rows_used, results,
	top_product, total_units, total_revenue, metrics, error, started_at, finished_at`

// Create inserts a run. A missing ID or timestamp is filled in.
func (r *RunRepository) Create(ctx context.Context, run *Run) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	now := time.Now().UTC()
	if run.StartedAt.IsZero() {
		run.StartedAt = now
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = now
	}
	if run.Status == "" {
		run.Status = RunStatusSucceeded
	}

	query := `
		INSERT INTO forecast_runs (` + runColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`
	_, err := r.db.ExecContext(ctx, query,
		run.ID.String(), string(run.Kind), string(run.Status),
		nullString(run.WindowStart), nullString(run.WindowEnd), nullJSON(run.Filters),
		run.Rows, run.Results, nullString(run.TopProduct),
		run.TotalUnits, run.TotalRevenue.String(), nullJSON(run.Metrics),
		nullString(run.Error), run.StartedAt.UTC(), run.FinishedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// GetByID retrieves a run by ID.
func (r *RunRepository) GetByID(ctx context.Context, id uuid.UUID) (*Run, error) {
	query := `SELECT ` + runColumns + ` FROM forecast_runs WHERE id = $1`
	run, err := scanRun(r.db.QueryRowContext(ctx, query, id.String()))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return run, err
}

// List returns runs newest first.
func (r *RunRepository) List(ctx context.Context, filter RunFilter) ([]*Run, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `SELECT ` + runColumns + ` FROM forecast_runs`
	args := []interface{}{}
	if filter.Kind != "" {
		query += ` WHERE kind = $1`
		args = append(args, string(filter.Kind))
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY started_at DESC LIMIT $%d", len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Latest returns the most recent run of the given kind.
func (r *RunRepository) Latest(ctx context.Context, kind RunKind) (*Run, error) {
	runs, err := r.List(ctx, RunFilter{Kind: kind, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, ErrNotFound
	}
	return runs[0], nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run                                         Run
		id, kind, status                            string
		windowStart, windowEnd, topProduct, errText sql.NullString
		filters, metrics                            sql.NullString
		revenue                                     string
	)
	err := row.Scan(
		&id, &kind, &status, &windowStart, &windowEnd, &filters, &run.Rows, &run.Results,
		&topProduct, &run.TotalUnits, &revenue, &metrics, &errText, &run.StartedAt, &run.FinishedAt,
	)
	if err != nil {
		return nil, err
	}

	if run.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("parse run id %q: %w", id, err)
	}
	if err := run.TotalRevenue.UnmarshalText([]byte(revenue)); err != nil {
		return nil, fmt.Errorf("parse run revenue %q: %w", revenue, err)
	}
	run.Kind = RunKind(kind)
	run.Status = RunStatus(status)
	run.WindowStart = windowStart.String
	run.WindowEnd = windowEnd.String
	run.TopProduct = topProduct.String
	run.Error = errText.String
	if filters.Valid {
		run.Filters = []byte(filters.String)
	}
	if metrics.Valid {
		run.Metrics = []byte(metrics.String)
	}
	run.StartedAt = run.StartedAt.UTC()
	run.FinishedAt = run.FinishedAt.UTC()
	return &run, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullJSON(b []byte) sql.NullString {
	return sql.NullString{String: string(b), Valid: len(b) > 0}
}
