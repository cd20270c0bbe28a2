//go:build integration

package integration

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boutique-ia/forecast-engine/internal/app"
	"github.com/boutique-ia/forecast-engine/internal/cache"
	"github.com/boutique-ia/forecast-engine/internal/config"
	"github.com/boutique-ia/forecast-engine/internal/storage"
)

func TestRunHistory_Postgres(t *testing.T) {
	requireDocker(t)

	setup := SetupTestContainers(t)
	defer setup.Cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cfg := config.DefaultConfig()
	cfg.Database.Driver = storage.DriverPostgres
	cfg.Database.Postgres.DSN = setup.PostgresConnStr

	db, err := storage.Open(cfg)
	require.NoError(t, err)
	defer db.Close()

	require.NoError(t, storage.Migrate(ctx, db, storage.DriverPostgres))
	require.NoError(t, storage.Migrate(ctx, db, storage.DriverPostgres))

	repo := storage.NewRunRepository(db)

	training := &storage.Run{
		Kind:         storage.RunKindTraining,
		WindowStart:  "2023-01-01",
		WindowEnd:    "2025-11-15",
		Rows:         216,
		TopProduct:   "Zapatilla Run",
		TotalUnits:   4120,
		TotalRevenue: decimal.RequireFromString("123456.78"),
		Metrics:      []byte(`{"test_mae":1.25,"epochs":18}`),
		StartedAt:    time.Now().Add(-time.Minute),
	}
	require.NoError(t, repo.Create(ctx, training))

	prediction := &storage.Run{
		Kind:        storage.RunKindPrediction,
		WindowStart: "2025-12-01",
		WindowEnd:   "2025-12-31",
		Filters:     []byte(`{"marca":"NIKE"}`),
		StartedAt:   time.Now(),
	}
	prediction.Fail(errors.New("business service unavailable"))
	require.NoError(t, repo.Create(ctx, prediction))

	got, err := repo.GetByID(ctx, training.ID)
	require.NoError(t, err)
	assert.Equal(t, storage.RunStatusSucceeded, got.Status)
	assert.Equal(t, 216, got.Rows)
	assert.True(t, got.TotalRevenue.Equal(training.TotalRevenue))
	assert.JSONEq(t, `{"test_mae":1.25,"epochs":18}`, string(got.Metrics))

	runs, err := repo.List(ctx, storage.RunFilter{})
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, prediction.ID, runs[0].ID)

	latest, err := repo.Latest(ctx, storage.RunKindPrediction)
	require.NoError(t, err)
	assert.Equal(t, storage.RunStatusFailed, latest.Status)
	assert.Equal(t, "business service unavailable", latest.Error)
	assert.JSONEq(t, `{"marca":"NIKE"}`, string(latest.Filters))

	onlyTraining, err := repo.List(ctx, storage.RunFilter{Kind: storage.RunKindTraining, Limit: 5})
	require.NoError(t, err)
	require.Len(t, onlyTraining, 1)
	assert.Equal(t, training.ID, onlyTraining[0].ID)
}

func TestFetchCache_Redis(t *testing.T) {
	requireDocker(t)

	setup := SetupTestContainers(t)
	defer setup.Cleanup()

	ctx := context.Background()

	c, err := app.NewCache(config.CacheConfig{
		Driver: "redis",
		Redis:  config.RedisConfig{Addr: setup.RedisAddr, PoolSize: 4, Prefix: "forecast-test:"},
	})
	require.NoError(t, err)
	defer c.Close()

	type row struct {
		ProductID int64 `json:"productoId"`
		Units     int64 `json:"cantidadVendida"`
	}
	key := cache.CacheKey("reporte", "/reporte/productos", "desde=2024-12-01&hasta=2024-12-31")

	_, err = c.Get(ctx, key)
	assert.ErrorIs(t, err, cache.ErrCacheMiss)

	want := []row{{ProductID: 1, Units: 30}, {ProductID: 4, Units: 20}}
	require.NoError(t, cache.SetJSON(ctx, c, key, want, time.Minute))

	var got []row
	require.NoError(t, cache.GetJSON(ctx, c, key, &got))
	assert.Equal(t, want, got)

	require.NoError(t, c.Set(ctx, "short", []byte("x"), time.Second))
	time.Sleep(1500 * time.Millisecond)
	_, err = c.Get(ctx, "short")
	assert.ErrorIs(t, err, cache.ErrCacheMiss)

	other := cache.CacheKey("productos", "desde=2024-12-01&hasta=2024-12-31")
	require.NoError(t, c.Set(ctx, other, []byte("[]"), time.Minute))

	require.NoError(t, c.DeleteByPrefix(ctx, cache.CacheKey("reporte", "")))
	_, err = c.Get(ctx, key)
	assert.ErrorIs(t, err, cache.ErrCacheMiss)
	_, err = c.Get(ctx, other)
	assert.NoError(t, err)
}
