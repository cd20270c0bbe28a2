package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://localhost:8081/api", cfg.Upstream.BaseURL)
	assert.Equal(t, 120*time.Second, cfg.Upstream.HistoryTimeout)
	assert.Equal(t, 50, cfg.Model.Epochs)
	assert.Equal(t, 32, cfg.Model.BatchSize)
	assert.Equal(t, int64(42), cfg.Model.Seed)
	assert.Equal(t, 10, cfg.Model.MinRows)
	assert.Equal(t, 2023, cfg.Blend.StartYear)
	assert.InDelta(t, 0.7, cfg.Blend.SeasonalWeight, 1e-9)
	assert.InDelta(t, 0.3, cfg.Blend.RecentWeight, 1e-9)
	assert.Equal(t, 3, cfg.Blend.RecentMonths)
	assert.Equal(t, 10, cfg.Prediction.DefaultTopN)
}

func TestLoad_YAMLAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "forecast.yaml")
	yaml := `
server:
  port: 9100
model:
  dir: artifacts
  epochs: 5
blend:
  seasonal_weight: 0.6
  recent_weight: 0.4
  recent_months: 3
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	t.Setenv("NEGOCIO_API_URL", "http://negocio:8081/api/")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 5, cfg.Model.Epochs)
	assert.Equal(t, filepath.Join(dir, "artifacts"), cfg.Model.Dir)
	assert.InDelta(t, 0.6, cfg.Blend.SeasonalWeight, 1e-9)
	assert.Equal(t, "http://negocio:8081/api", cfg.Upstream.BaseURL)
	assert.Equal(t, "debug", cfg.Observability.LogLevel)
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"no upstream", func(c *Config) { c.Upstream.BaseURL = "" }},
		{"bad since", func(c *Config) { c.Upstream.TrainingSince = "yesterday" }},
		{"no epochs", func(c *Config) { c.Model.Epochs = 0 }},
		{"bad validation split", func(c *Config) { c.Model.ValidationSplit = 1 }},
		{"negative weight", func(c *Config) { c.Blend.RecentWeight = -0.1 }},
		{"bad database", func(c *Config) { c.Database.Driver = "mysql" }},
		{"bad cache", func(c *Config) { c.Cache.Driver = "memcached" }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestResolveRelativePath(t *testing.T) {
	assert.Equal(t, "/etc/fe/models", ResolveRelativePath("/etc/fe/config.yaml", "models"))
	assert.Equal(t, "/abs/models", ResolveRelativePath("/etc/fe/config.yaml", "/abs/models"))
	assert.Equal(t, "", ResolveRelativePath("/etc/fe/config.yaml", ""))
}
