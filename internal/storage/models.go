// Package storage persists training and prediction run history for the Forecast Engine.
package storage

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RunKind distinguishes training runs from prediction runs.
type RunKind string

const (
	RunKindTraining   RunKind = "training"
	RunKindPrediction RunKind = "prediction"
)

// RunStatus represents how a run ended.
type RunStatus string

const (
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one recorded training or prediction execution.
type Run struct {
	ID           uuid.UUID       `json:"id"`
	Kind         RunKind         `json:"kind"`
	Status       RunStatus       `json:"status"`
	WindowStart  string          `json:"window_start,omitempty"`
	WindowEnd    string          `json:"window_end,omitempty"`
	Filters      json.RawMessage `json:"filters,omitempty"`
	Rows         int             `json:"rows"`
	Results      int             `json:"results"`
	TopProduct   string          `json:"top_product,omitempty"`
	TotalUnits   int64           `json:"total_units"`
	TotalRevenue decimal.Decimal `json:"total_revenue"`
	Metrics      json.RawMessage `json:"metrics,omitempty"`
	Error        string          `json:"error,omitempty"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   time.Time       `json:"finished_at"`
}

// Duration returns how long the run took.
func (r *Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Fail marks the run as failed with err.
func (r *Run) Fail(err error) {
	r.Status = RunStatusFailed
	if err != nil {
		r.Error = err.Error()
	}
}

// RunFilter narrows List results.
type RunFilter struct {
	Kind  RunKind
	Limit int
}
