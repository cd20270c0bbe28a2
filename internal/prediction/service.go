package prediction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/boutique-ia/forecast-engine/internal/blend"
	"github.com/boutique-ia/forecast-engine/internal/model"
	"github.com/boutique-ia/forecast-engine/internal/observability"
	"github.com/boutique-ia/forecast-engine/internal/sales"
	"github.com/boutique-ia/forecast-engine/internal/storage"
	"github.com/boutique-ia/forecast-engine/internal/upstream"
)

// Builder produces the blended inference dataset for a window.
type Builder interface {
	Build(ctx context.Context, w sales.Window, f upstream.Filters) (*blend.Result, error)
}

// RunRecorder persists run history. *storage.RunRepository satisfies it.
type RunRecorder interface {
	Create(ctx context.Context, run *storage.Run) error
}

// Options configures a Service.
type Options struct {
	ModelDir string
	Blender  Builder
	Runs     RunRecorder // optional
	Logger   *observability.Logger
}

// Service generates ranked forecasts. The model bundle is loaded on first
// use and kept for the lifetime of the service.
type Service struct {
	modelDir string
	blender  Builder
	runs     RunRecorder
	logger   *observability.Logger

	mu    sync.Mutex
	model *model.Model
}

// NewService creates a prediction service.
func NewService(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = observability.NopLogger()
	}
	return &Service{
		modelDir: opts.ModelDir,
		blender:  opts.Blender,
		runs:     opts.Runs,
		logger:   opts.Logger.WithComponent("prediction"),
	}
}

// NewServiceWithModel creates a service around an already loaded model.
func NewServiceWithModel(m *model.Model, opts Options) *Service {
	s := NewService(opts)
	s.model = m
	return s
}

// ModelAvailable reports whether a complete model bundle is on disk or
// already loaded.
func (s *Service) ModelAvailable() bool {
	s.mu.Lock()
	loaded := s.model != nil
	s.mu.Unlock()
	return loaded || model.Available(s.modelDir)
}

func (s *Service) loadModel() (*model.Model, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.model != nil {
		return s.model, nil
	}
	if !model.Available(s.modelDir) {
		return nil, ErrModelNotReady
	}

	m, err := model.Load(s.modelDir, s.logger)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrModelNotReady, err)
	}
	s.model = m
	s.logger.Info().Str("dir", s.modelDir).Strs("features", m.Space()).Msg("model bundle loaded")
	return m, nil
}

// Generate forecasts units for every product sold in the blended history of
// req.Window and returns the top req.TopN, best first.
func (s *Service) Generate(ctx context.Context, req Request) (*Result, error) {
	started := time.Now().UTC()
	logger := s.logger.WithContext(ctx).WithOperation("predict")

	logger.Info().
		Window(req.Window.Start, req.Window.End).
		Int("top_n", req.TopN).
		Interface("filters", req.Filters).
		Msg("generating prediction")

	res, blended, err := s.generate(ctx, req)

	s.record(ctx, req, res, blended, started, err)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Int("results", len(res.Items)).
		Int64("units", res.Summary.TotalUnits).
		Dur("duration", time.Since(started)).
		Msg("prediction complete")

	return res, nil
}

func (s *Service) generate(ctx context.Context, req Request) (*Result, *blend.Result, error) {
	m, err := s.loadModel()
	if err != nil {
		return nil, nil, err
	}

	blended, err := s.blender.Build(ctx, req.Window, req.Filters)
	if errors.Is(err, blend.ErrNoData) {
		s.logger.Warn().Window(req.Window.Start, req.Window.End).Msg("no products found for the requested filters")
		return &Result{Summary: Summarize(req.Window, nil), Items: []Item{}}, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("build inference data: %w", err)
	}

	ds := blended.Dataset
	if ds.Empty() {
		return &Result{Summary: Summarize(req.Window, nil), Items: []Item{}}, blended, nil
	}

	preds, err := m.Predict(ds)
	if err != nil {
		return nil, blended, fmt.Errorf("predict: %w", err)
	}

	sort.SliceStable(preds, func(i, j int) bool {
		return preds[i].Units > preds[j].Units
	})
	if req.TopN > 0 && len(preds) > req.TopN {
		preds = preds[:req.TopN]
	}

	items := make([]Item, len(preds))
	for i, p := range preds {
		items[i] = newItem(i+1, p, ds.Columns)
	}

	for _, it := range items[:min(5, len(items))] {
		s.logger.Debug().
			Int("rank", it.Rank).
			Str("product", it.ProductName).
			Int64("units", it.UnitsPredicted).
			Float64("confidence", it.Confidence).
			Msg("top prediction")
	}

	return &Result{Summary: Summarize(req.Window, items), Items: items}, blended, nil
}

type predictionMetrics struct {
	TopN           int                  `json:"top_n"`
	SeasonalRanges int                  `json:"seasonal_ranges"`
	SeasonalRows   int                  `json:"seasonal_rows"`
	RecentRows     int                  `json:"recent_rows"`
	FailedRanges   []blend.FetchFailure `json:"failed_ranges,omitempty"`
}

func (s *Service) record(ctx context.Context, req Request, res *Result, blended *blend.Result, started time.Time, runErr error) {
	if s.runs == nil {
		return
	}

	run := &storage.Run{
		Kind:        storage.RunKindPrediction,
		Status:      storage.RunStatusSucceeded,
		WindowStart: sales.FormatDate(req.Window.Start),
		WindowEnd:   sales.FormatDate(req.Window.End),
		StartedAt:   started,
		FinishedAt:  time.Now().UTC(),
	}
	if !req.Filters.Empty() {
		run.Filters, _ = json.Marshal(req.Filters)
	}

	metrics := predictionMetrics{TopN: req.TopN}
	if blended != nil {
		run.Rows = blended.Dataset.Len()
		metrics.SeasonalRanges = len(blended.SeasonalRanges)
		metrics.SeasonalRows = blended.Seasonal.Len()
		metrics.RecentRows = blended.Recent.Len()
		metrics.FailedRanges = blended.FailedRanges
	}
	run.Metrics, _ = json.Marshal(metrics)

	if res != nil {
		run.Results = len(res.Items)
		run.TotalUnits = res.Summary.TotalUnits
		run.TotalRevenue = res.Summary.Revenue()
		if len(res.Items) > 0 {
			run.TopProduct = res.Items[0].ProductName
		}
	}
	if runErr != nil {
		run.Fail(runErr)
	}

	if err := s.runs.Create(ctx, run); err != nil {
		s.logger.Warn().Err(err).Msg("failed to record prediction run")
	}
}
