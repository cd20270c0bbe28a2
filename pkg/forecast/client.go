// Package forecast provides the public Go SDK for the Forecast Engine API.
package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Client is the public SDK client for the Forecast Engine.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientConfig holds client configuration.
type ClientConfig struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client // optional; Timeout is ignored when set
}

// NewClient creates a new Forecast Engine client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8090"
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Minute
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: hc,
	}, nil
}

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string `json:"error"`
	Detail     string `json:"detail,omitempty"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("forecast api %d: %s (%s)", e.StatusCode, e.Message, e.Detail)
	}
	return fmt.Sprintf("forecast api %d: %s", e.StatusCode, e.Message)
}

// PredictRequest selects the forecast window and product filters. Empty
// fields use the server defaults.
type PredictRequest struct {
	Start       string // YYYY-MM-DD
	End         string // YYYY-MM-DD
	TopN        int
	Brand       string
	Gender      string
	GarmentType string
}

// PredictResponse is a ranked forecast.
type PredictResponse struct {
	Summary Summary          `json:"resumen"`
	Items   []PredictionItem `json:"resultados"`
}

// Summary aggregates a forecast.
type Summary struct {
	Message      string  `json:"mensaje"`
	Period       Period  `json:"periodoPrediccion"`
	TotalUnits   int64   `json:"totalUnidadesPredichas"`
	TotalRevenue float64 `json:"totalIngresoPredicho"`
	Products     int     `json:"totalProductosPredichos"`
}

// Period is an inclusive date range.
type Period struct {
	Start string `json:"inicio"`
	End   string `json:"fin"`
}

// PredictionItem is one ranked product.
type PredictionItem struct {
	Rank            int     `json:"ranking"`
	ProductID       int64   `json:"productoId"`
	ProductName     string  `json:"productoNombre"`
	Brand           string  `json:"marca"`
	Price           float64 `json:"precio"`
	UnitsPredicted  int64   `json:"cantidadPredicha"`
	Confidence      float64 `json:"confianza"`
	HistoricalUnits int64   `json:"ventasHistoricas"`
	Gender          string  `json:"genero,omitempty"`
	GarmentType     string  `json:"tipoPrenda,omitempty"`
	Season          string  `json:"temporada,omitempty"`
}

// Predict ranks the products expected to sell best.
func (c *Client) Predict(ctx context.Context, req PredictRequest) (*PredictResponse, error) {
	q := url.Values{}
	setIf(q, "fecha_inicio", req.Start)
	setIf(q, "fecha_fin", req.End)
	if req.TopN > 0 {
		q.Set("top_n", strconv.Itoa(req.TopN))
	}
	setIf(q, "marca", req.Brand)
	setIf(q, "genero", req.Gender)
	setIf(q, "tipoPrenda", req.GarmentType)

	var resp PredictResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/predictions", q, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ParseResponse is the routed domain and structured query for a text.
type ParseResponse struct {
	Intent string          `json:"intencion"`
	Score  IntentScore     `json:"puntaje"`
	Query  json.RawMessage `json:"consulta"`
}

// IntentScore holds per-domain vocabulary hits.
type IntentScore struct {
	Sales    int `json:"ventas"`
	Products int `json:"productos"`
}

// ParseReport parses a Spanish report request without fetching data.
func (c *Client) ParseReport(ctx context.Context, text string) (*ParseResponse, error) {
	var resp ParseResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/reports/parse", nil, map[string]string{"text": text}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ReportResponse carries the parsed query and the rows it matched.
type ReportResponse struct {
	Intent string                   `json:"intencion"`
	Query  json.RawMessage          `json:"consulta"`
	Rows   []map[string]interface{} `json:"filas"`
	Count  int                      `json:"total"`
}

// Report parses text and fetches the matching business rows.
func (c *Client) Report(ctx context.Context, text string) (*ReportResponse, error) {
	var resp ReportResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/reports", nil, map[string]string{"text": text}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Run is a recorded training or prediction run.
type Run struct {
	ID           string          `json:"id"`
	Kind         string          `json:"kind"`
	Status       string          `json:"status"`
	WindowStart  string          `json:"window_start,omitempty"`
	WindowEnd    string          `json:"window_end,omitempty"`
	Filters      json.RawMessage `json:"filters,omitempty"`
	Rows         int             `json:"rows"`
	Results      int             `json:"results"`
	TopProduct   string          `json:"top_product,omitempty"`
	TotalUnits   int64           `json:"total_units"`
	TotalRevenue json.Number     `json:"total_revenue"`
	Metrics      json.RawMessage `json:"metrics,omitempty"`
	Error        string          `json:"error,omitempty"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   time.Time       `json:"finished_at"`
}

// Runs lists recent runs, newest first. kind may be empty, "training" or
// "prediction".
func (c *Client) Runs(ctx context.Context, kind string, limit int) ([]Run, error) {
	q := url.Values{}
	setIf(q, "kind", kind)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var resp struct {
		Runs []Run `json:"runs"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/predictions/runs", q, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Runs, nil
}

// Ready reports whether the server has a trained model loaded.
func (c *Client) Ready(ctx context.Context) (bool, error) {
	err := c.do(ctx, http.MethodGet, "/ready", nil, nil, nil)
	if err == nil {
		return true, nil
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusServiceUnavailable {
		return false, nil
	}
	return false, err
}

func (c *Client) do(ctx context.Context, method, path string, q url.Values, body, out interface{}) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if json.Unmarshal(data, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}
