package forecast

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(ClientConfig{BaseURL: srv.URL + "/"})
	require.NoError(t, err)
	return c
}

func TestPredict(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/predictions", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "2026-01-01", q.Get("fecha_inicio"))
		assert.Equal(t, "3", q.Get("top_n"))
		assert.Equal(t, "NIKE", q.Get("marca"))
		assert.False(t, q.Has("fecha_fin"))

		w.Write([]byte(`{
			"resumen": {"mensaje": "Predicción de ventas desde 2026-01-01 hasta 2026-01-31",
				"periodoPrediccion": {"inicio": "2026-01-01", "fin": "2026-01-31"},
				"totalUnidadesPredichas": 12, "totalIngresoPredicho": 5400, "totalProductosPredichos": 1},
			"resultados": [{"ranking": 1, "productoId": 1, "productoNombre": "Zapatilla Run", "marca": "NIKE",
				"precio": 450, "cantidadPredicha": 12, "confianza": 100, "ventasHistoricas": 30, "temporada": "VERANO"}]
		}`))
	})

	resp, err := c.Predict(context.Background(), PredictRequest{Start: "2026-01-01", TopN: 3, Brand: "NIKE"})
	require.NoError(t, err)
	assert.Equal(t, int64(12), resp.Summary.TotalUnits)
	assert.Equal(t, "2026-01-31", resp.Summary.Period.End)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "VERANO", resp.Items[0].Season)
}

func TestAPIError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":"Datos inválidos","message":"Datos inválidos","detail":"El campo text es obligatorio"}`))
	})

	_, err := c.ParseReport(context.Background(), "")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Datos inválidos", apiErr.Message)
	assert.Equal(t, "El campo text es obligatorio", apiErr.Detail)
	assert.Contains(t, err.Error(), "400")
}

func TestReport(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ventas de este mes", body["text"])

		w.Write([]byte(`{"intencion":"ventas","consulta":{"entidad":"ventas"},"filas":[{"ventaId":7}],"total":1}`))
	})

	resp, err := c.Report(context.Background(), "ventas de este mes")
	require.NoError(t, err)
	assert.Equal(t, "ventas", resp.Intent)
	assert.Equal(t, 1, resp.Count)
	assert.Equal(t, float64(7), resp.Rows[0]["ventaId"])
	assert.JSONEq(t, `{"entidad":"ventas"}`, string(resp.Query))
}

func TestRuns(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "training", r.URL.Query().Get("kind"))
		w.Write([]byte(`{"runs":[{"id":"0b7f2a4e-1111-4c3d-9e8f-000000000001","kind":"training","status":"succeeded",
			"rows":216,"results":0,"total_units":4120,"total_revenue":"123456.78",
			"started_at":"2025-11-15T10:00:00Z","finished_at":"2025-11-15T10:02:00Z"}],"count":1}`))
	})

	runs, err := c.Runs(context.Background(), "training", 5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 216, runs[0].Rows)
	assert.Equal(t, "123456.78", runs[0].TotalRevenue.String())
}

func TestReady(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   bool
		err    bool
	}{
		{"ready", http.StatusOK, true, false},
		{"no model", http.StatusServiceUnavailable, false, false},
		{"broken", http.StatusInternalServerError, false, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(`{"status":"x"}`))
			})

			ok, err := c.Ready(context.Background())
			assert.Equal(t, tc.want, ok)
			if tc.err {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
