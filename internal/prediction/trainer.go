package prediction

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/boutique-ia/forecast-engine/internal/model"
	"github.com/boutique-ia/forecast-engine/internal/observability"
	"github.com/boutique-ia/forecast-engine/internal/sales"
	"github.com/boutique-ia/forecast-engine/internal/storage"
)

// DefaultMinRows is the smallest cleaned history a model is trained on.
const DefaultMinRows = 10

// HistorySource supplies the granular training history.
type HistorySource interface {
	Ping(ctx context.Context) error
	MonthlyHistory(ctx context.Context, since, until time.Time) (sales.Batch, error)
}

// Stage is a step of a training run, reported through OnStage.
type Stage string

const (
	StageCheck Stage = "check"
	StageFetch Stage = "fetch"
	StageTrain Stage = "train"
)

// TrainerOptions configures a Trainer.
type TrainerOptions struct {
	ModelDir string
	Since    time.Time
	MinRows  int
	Train    model.TrainOptions
	Runs     RunRecorder // optional
	OnStage  func(Stage) // optional
	Logger   *observability.Logger
	Now      func() time.Time
}

// TrainReport describes a finished training run.
type TrainReport struct {
	Since    time.Time         `json:"since"`
	Until    time.Time         `json:"until"`
	Clean    sales.CleanReport `json:"clean"`
	Stats    sales.Stats       `json:"stats"`
	History  *model.History    `json:"history"`
	ModelDir string            `json:"model_dir"`
}

// Trainer fetches history, trains a model and saves its bundle.
type Trainer struct {
	source HistorySource
	opts   TrainerOptions
	logger *observability.Logger
}

// NewTrainer creates a trainer reading from source.
func NewTrainer(source HistorySource, opts TrainerOptions) *Trainer {
	if opts.Logger == nil {
		opts.Logger = observability.NopLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MinRows <= 0 {
		opts.MinRows = DefaultMinRows
	}
	if opts.Since.IsZero() {
		opts.Since = sales.Date(2023, time.January, 1)
	}
	return &Trainer{source: source, opts: opts, logger: opts.Logger.WithComponent("trainer").WithOperation("train")}
}

// Run executes one training run end to end.
func (t *Trainer) Run(ctx context.Context) (*TrainReport, error) {
	started := time.Now().UTC()
	report := &TrainReport{
		Since:    sales.Day(t.opts.Since),
		Until:    sales.Day(t.opts.Now()),
		ModelDir: t.opts.ModelDir,
	}

	err := t.run(ctx, report)
	t.record(ctx, report, started, err)
	return report, err
}

func (t *Trainer) run(ctx context.Context, report *TrainReport) error {
	t.stage(StageCheck)
	t.logger.Info().Msg("checking business service")
	if err := t.source.Ping(ctx); err != nil {
		return fmt.Errorf("business service unreachable: %w", err)
	}

	t.stage(StageFetch)
	batch, err := t.source.MonthlyHistory(ctx, report.Since, report.Until)
	if err != nil {
		return fmt.Errorf("fetch training history: %w", err)
	}

	ds, clean := sales.Clean(batch)
	report.Clean = clean
	ds = StampSeasons(ds)

	t.logger.Info().
		Int("input_rows", clean.InputRows).
		Int("duplicates", clean.Duplicates).
		Int("dropped_nulls", clean.DroppedNulls).
		Int("rows", ds.Len()).
		Msg("training history cleaned")

	if ds.Len() < t.opts.MinRows {
		return fmt.Errorf("%w: %d rows, need at least %d", ErrInsufficientData, ds.Len(), t.opts.MinRows)
	}

	report.Stats = sales.ComputeStats(ds)
	t.logger.Info().
		Int("rows", report.Stats.Rows).
		Int("products", report.Stats.UniqueProducts).
		Int("brands", report.Stats.UniqueBrands).
		Int64("units", report.Stats.TotalUnits).
		Float64("revenue", report.Stats.TotalRevenue).
		Float64("mean_price", report.Stats.MeanPrice).
		Str("best_seller", report.Stats.BestSeller).
		Msg("dataset statistics")

	t.stage(StageTrain)
	m := model.New(t.opts.Logger)
	hist, err := m.Train(ctx, ds, t.opts.Train)
	if err != nil {
		return fmt.Errorf("train model: %w", err)
	}
	report.History = hist

	if err := m.Save(t.opts.ModelDir); err != nil {
		return fmt.Errorf("save model: %w", err)
	}

	t.logger.Info().
		Str("dir", t.opts.ModelDir).
		Float64("test_mae", hist.TestMAE).
		Float64("test_mse", hist.TestMSE).
		Msg("model saved")
	return nil
}

func (t *Trainer) stage(s Stage) {
	if t.opts.OnStage != nil {
		t.opts.OnStage(s)
	}
}

// StampSeasons sets each row's season from its month. Without a month
// column every row is marked unknown.
func StampSeasons(ds sales.Dataset) sales.Dataset {
	hasMonth := ds.HasColumn(sales.ColMonth)
	out := sales.Dataset{Records: make([]sales.Record, len(ds.Records)), Columns: ds.Columns.With(sales.ColSeason)}
	for i, r := range ds.Records {
		if hasMonth {
			r.Season = sales.SeasonOf(r.Month)
		} else {
			r.Season = sales.SeasonUnknown
		}
		out.Records[i] = r
	}
	return out
}

type trainingMetrics struct {
	Clean        sales.CleanReport `json:"clean"`
	Stats        sales.Stats       `json:"stats"`
	Epochs       int               `json:"epochs,omitempty"`
	BestEpoch    int               `json:"best_epoch,omitempty"`
	StoppedEarly bool              `json:"stopped_early,omitempty"`
	TestLoss     float64           `json:"test_loss,omitempty"`
	TestMAE      float64           `json:"test_mae,omitempty"`
	Features     []string          `json:"features,omitempty"`
}

func (t *Trainer) record(ctx context.Context, report *TrainReport, started time.Time, runErr error) {
	if t.opts.Runs == nil {
		return
	}

	metrics := trainingMetrics{Clean: report.Clean, Stats: report.Stats}
	if h := report.History; h != nil {
		metrics.Epochs = len(h.Epochs)
		metrics.BestEpoch = h.BestEpoch
		metrics.StoppedEarly = h.StoppedEarly
		metrics.TestLoss = h.TestLoss
		metrics.TestMAE = h.TestMAE
		metrics.Features = h.Features
	}

	run := &storage.Run{
		Kind:         storage.RunKindTraining,
		Status:       storage.RunStatusSucceeded,
		WindowStart:  sales.FormatDate(report.Since),
		WindowEnd:    sales.FormatDate(report.Until),
		Rows:         report.Stats.Rows,
		TopProduct:   report.Stats.BestSeller,
		TotalUnits:   report.Stats.TotalUnits,
		TotalRevenue: decimal.NewFromFloat(report.Stats.TotalRevenue).Round(2),
		StartedAt:    started,
		FinishedAt:   time.Now().UTC(),
	}
	run.Metrics, _ = json.Marshal(metrics)
	if runErr != nil {
		run.Fail(runErr)
	}

	if err := t.opts.Runs.Create(ctx, run); err != nil {
		t.logger.Warn().Err(err).Msg("failed to record training run")
	}
}
