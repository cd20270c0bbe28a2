package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boutique-ia/forecast-engine/internal/app"
	"github.com/boutique-ia/forecast-engine/internal/config"
	"github.com/boutique-ia/forecast-engine/internal/observability"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	negocio := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	t.Cleanup(negocio.Close)

	cfg := config.DefaultConfig()
	dir := t.TempDir()
	cfg.Upstream.BaseURL = negocio.URL
	cfg.Database.SQLite.Path = filepath.Join(dir, "runs.db")
	cfg.Model.Dir = filepath.Join(dir, "ml_models")
	cfg.Server.AllowedOrigins = []string{"http://localhost:5173"}

	a, err := app.New(context.Background(), cfg, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })

	return NewRouter(observability.NopLogger(), a)
}

func TestRouter(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"health", http.MethodGet, "/health", "", http.StatusOK},
		{"ready without model", http.MethodGet, "/ready", "", http.StatusServiceUnavailable},
		{"predict without model", http.MethodGet, "/api/v1/predictions", "", http.StatusServiceUnavailable},
		{"list runs", http.MethodGet, "/api/v1/predictions/runs?kind=prediction", "", http.StatusOK},
		{"parse report", http.MethodPost, "/api/v1/reports/parse", `{"text":"ventas de este mes"}`, http.StatusOK},
		{"generate report", http.MethodPost, "/api/v1/reports", `{"text":"top 5 productos más vendidos"}`, http.StatusOK},
		{"report validation", http.MethodPost, "/api/v1/reports", `{"text":"hey"}`, http.StatusBadRequest},
		{"unknown route", http.MethodGet, "/api/v1/unknown", "", http.StatusNotFound},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.path, strings.NewReader(tc.body))
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tc.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
		})
	}
}

func TestRouter_CORS(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/predictions", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}
