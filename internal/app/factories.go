// Package app wires the forecasting pipeline from configuration. Both
// binaries build their dependencies through it.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/boutique-ia/forecast-engine/internal/blend"
	"github.com/boutique-ia/forecast-engine/internal/cache"
	"github.com/boutique-ia/forecast-engine/internal/config"
	"github.com/boutique-ia/forecast-engine/internal/model"
	"github.com/boutique-ia/forecast-engine/internal/nlp"
	"github.com/boutique-ia/forecast-engine/internal/observability"
	"github.com/boutique-ia/forecast-engine/internal/prediction"
	"github.com/boutique-ia/forecast-engine/internal/sales"
	"github.com/boutique-ia/forecast-engine/internal/storage"
	"github.com/boutique-ia/forecast-engine/internal/upstream"
)

// App bundles the wired components.
type App struct {
	Config      *config.Config
	Logger      *observability.Logger
	Cache       cache.Client
	Upstream    *upstream.Client
	Blender     *blend.Blender
	DB          *sql.DB
	Runs        *storage.RunRepository
	Predictions *prediction.Service
	Analyzer    *nlp.Analyzer

	now func() time.Time
}

// Option customizes wiring.
type Option func(*options)

type options struct {
	now     func() time.Time
	onFetch func(blend.FetchEvent)
	noStore bool
}

// WithClock fixes the clock used for windows and cache decisions.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithFetchProgress reports every seasonal range fetch.
func WithFetchProgress(fn func(blend.FetchEvent)) Option {
	return func(o *options) { o.onFetch = fn }
}

// WithoutRunHistory skips opening the run-history database.
func WithoutRunHistory() Option {
	return func(o *options) { o.noStore = true }
}

// New builds every component from cfg.
func New(ctx context.Context, cfg *config.Config, logger *observability.Logger, opts ...Option) (*App, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	c, err := NewCache(cfg.Cache)
	if err != nil {
		return nil, fmt.Errorf("create cache: %w", err)
	}

	a := &App{
		Config:   cfg,
		Logger:   logger,
		Cache:    c,
		Analyzer: nlp.NewAnalyzerAt(o.now),
		now:      o.now,
	}

	a.Upstream = upstream.NewClient(upstream.Config{
		BaseURL:        cfg.Upstream.BaseURL,
		QueryTimeout:   cfg.Upstream.QueryTimeout,
		HistoryTimeout: cfg.Upstream.HistoryTimeout,
		PingTimeout:    cfg.Upstream.PingTimeout,
		Limit:          cfg.Upstream.RecentLimit,
		Cache:          c,
		CacheTTL:       cfg.Cache.TTL,
		Logger:         logger,
		Now:            o.now,
	})

	a.Blender = blend.New(a.Upstream, blend.Options{
		Policy: blend.Policy{
			StartYear:      cfg.Blend.StartYear,
			SeasonalWeight: cfg.Blend.SeasonalWeight,
			RecentWeight:   cfg.Blend.RecentWeight,
			RecentMonths:   cfg.Blend.RecentMonths,
		},
		Logger:  logger,
		Now:     o.now,
		OnFetch: o.onFetch,
	})

	var runs prediction.RunRecorder
	if !o.noStore {
		db, err := storage.Open(cfg)
		if err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("open run history: %w", err)
		}
		if err := storage.Migrate(ctx, db, cfg.Database.Driver); err != nil {
			_ = db.Close()
			_ = c.Close()
			return nil, fmt.Errorf("migrate run history: %w", err)
		}
		a.DB = db
		a.Runs = storage.NewRunRepository(db)
		runs = a.Runs
	}

	a.Predictions = prediction.NewService(prediction.Options{
		ModelDir: cfg.Model.Dir,
		Blender:  a.Blender,
		Runs:     runs,
		Logger:   logger,
	})

	logger.Debug().
		Str("upstream", cfg.Upstream.BaseURL).
		Str("cache", cfg.Cache.Driver).
		Str("database", cfg.Database.Driver).
		Bool("run_history", a.Runs != nil).
		Str("model_dir", cfg.Model.Dir).
		Msg("forecast engine wired")

	return a, nil
}

// NewCache creates the configured fetch cache.
func NewCache(cfg config.CacheConfig) (cache.Client, error) {
	switch cfg.Driver {
	case "redis":
		return cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
			Prefix:   cfg.Redis.Prefix,
		})
	case "memory", "":
		return cache.NewMemoryClient(cfg.MaxEntries), nil
	case "none":
		return cache.NoopClient{}, nil
	default:
		return nil, fmt.Errorf("unsupported cache driver: %s", cfg.Driver)
	}
}

// TrainOptions maps model configuration onto training options.
func (a *App) TrainOptions() model.TrainOptions {
	opts := model.DefaultTrainOptions()
	m := a.Config.Model
	opts.Epochs = m.Epochs
	opts.BatchSize = m.BatchSize
	opts.ValidationSplit = m.ValidationSplit
	opts.TestSplit = m.TestSplit
	opts.Seed = m.Seed
	opts.LearningRate = m.LearningRate
	return opts
}

// NewTrainer creates a trainer reading history since the given date. A zero
// since uses the configured training start. onStage may be nil.
func (a *App) NewTrainer(since time.Time, train model.TrainOptions, onStage func(prediction.Stage)) (*prediction.Trainer, error) {
	if since.IsZero() && a.Config.Upstream.TrainingSince != "" {
		t, err := sales.ParseDate(a.Config.Upstream.TrainingSince)
		if err != nil {
			return nil, err
		}
		since = t
	}

	var runs prediction.RunRecorder
	if a.Runs != nil {
		runs = a.Runs
	}

	return prediction.NewTrainer(a.Upstream, prediction.TrainerOptions{
		ModelDir: a.Config.Model.Dir,
		Since:    since,
		MinRows:  a.Config.Model.MinRows,
		Train:    train,
		Runs:     runs,
		OnStage:  onStage,
		Logger:   a.Logger,
		Now:      a.now,
	}), nil
}

// Close releases the cache and database.
func (a *App) Close() error {
	var errs []error
	if a.Cache != nil {
		errs = append(errs, a.Cache.Close())
	}
	if a.DB != nil {
		errs = append(errs, a.DB.Close())
	}
	return errors.Join(errs...)
}
