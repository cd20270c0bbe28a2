// Package upstream is the client for the business service that owns the
// sales ledger. All reads go through its /reporte endpoints.
package upstream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/boutique-ia/forecast-engine/internal/cache"
	"github.com/boutique-ia/forecast-engine/internal/observability"
	"github.com/boutique-ia/forecast-engine/internal/sales"
)

// ErrDataUnavailable is returned when the business service cannot be reached
// or answers with a non-success status.
var ErrDataUnavailable = errors.New("business data unavailable")

// Cache scopes, the first segment of every cached key.
const (
	ScopeProductSales = "productos"
	ScopeReports      = "reporte"
)

const (
	productsPath      = "/reporte/productos"
	productsMonthPath = "/reporte/productos-mes"
	salesPath         = "/reporte/ventas"
)

// Client reads sales data from the business service.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	queryTimeout   time.Duration
	historyTimeout time.Duration
	pingTimeout    time.Duration
	limit          int
	cache          cache.Client
	cacheTTL       time.Duration
	logger         *observability.Logger
	now            func() time.Time
}

// Config holds upstream client configuration.
type Config struct {
	BaseURL        string // Default: http://localhost:8081/api
	QueryTimeout   time.Duration
	HistoryTimeout time.Duration
	PingTimeout    time.Duration
	Limit          int // row limit for product range queries
	Cache          cache.Client
	CacheTTL       time.Duration
	Logger         *observability.Logger
	Now            func() time.Time
}

// Filters are the product filters the business service understands.
type Filters struct {
	Brand       string `json:"marca,omitempty"`
	Gender      string `json:"genero,omitempty"`
	GarmentType string `json:"tipoPrenda,omitempty"`
}

// Empty reports whether no filter is set.
func (f Filters) Empty() bool {
	return f == Filters{}
}

func (f Filters) apply(q url.Values) {
	setIf(q, "marca", f.Brand)
	setIf(q, "genero", f.Gender)
	setIf(q, "tipoPrenda", f.GarmentType)
}

// NewClient creates a new business service client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8081/api"
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 30 * time.Second
	}
	if cfg.HistoryTimeout <= 0 {
		cfg.HistoryTimeout = 120 * time.Second
	}
	if cfg.PingTimeout <= 0 {
		cfg.PingTimeout = 5 * time.Second
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 5000
	}
	if cfg.Cache == nil {
		cfg.Cache = cache.NoopClient{}
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	return &Client{
		// Per-call deadlines come from the context; the client bound is the
		// longest one.
		httpClient:     &http.Client{Timeout: cfg.HistoryTimeout},
		baseURL:        cfg.BaseURL,
		queryTimeout:   cfg.QueryTimeout,
		historyTimeout: cfg.HistoryTimeout,
		pingTimeout:    cfg.PingTimeout,
		limit:          cfg.Limit,
		cache:          cfg.Cache,
		cacheTTL:       cfg.CacheTTL,
		logger:         cfg.Logger.WithComponent("upstream"),
		now:            cfg.Now,
	}
}

// ProductSales returns per-product aggregates for the window. Windows that
// ended before today are served from the cache when possible.
func (c *Client) ProductSales(ctx context.Context, w sales.Window, f Filters) (sales.Batch, error) {
	q := url.Values{}
	q.Set("desde", sales.FormatDate(w.Start))
	q.Set("hasta", sales.FormatDate(w.End))
	q.Set("limite", strconv.Itoa(c.limit))
	f.apply(q)

	closed := w.End.Before(sales.Day(c.now()))
	key := cache.CacheKey(ScopeProductSales, q.Encode())

	if closed {
		if data, err := c.cache.Get(ctx, key); err == nil {
			c.logger.Debug().Window(w.Start, w.End).Msg("product sales served from cache")
			return sales.DecodeBatch(data)
		}
	}

	data, err := c.get(ctx, productsPath, q, c.queryTimeout)
	if err != nil {
		return sales.Batch{}, err
	}

	batch, err := sales.DecodeBatch(data)
	if err != nil {
		return sales.Batch{}, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}

	if closed {
		if err := c.cache.Set(ctx, key, data, c.cacheTTL); err != nil {
			c.logger.Warn().Err(err).Msg("failed to cache product sales")
		}
	}

	c.logger.Debug().
		Window(w.Start, w.End).
		Int("rows", len(batch.Rows)).
		Msg("product sales fetched")

	return batch, nil
}

// MonthlyHistory returns product × month rows from since to until, the
// granular history used for training.
func (c *Client) MonthlyHistory(ctx context.Context, since, until time.Time) (sales.Batch, error) {
	q := url.Values{}
	q.Set("desde", sales.FormatDate(since))
	q.Set("hasta", sales.FormatDate(until))

	data, err := c.get(ctx, productsMonthPath, q, c.historyTimeout)
	if err != nil {
		return sales.Batch{}, err
	}

	batch, err := sales.DecodeBatch(data)
	if err != nil {
		return sales.Batch{}, fmt.Errorf("%w: %w", ErrDataUnavailable, err)
	}

	c.logger.Info().
		Str("since", sales.FormatDate(since)).
		Str("until", sales.FormatDate(until)).
		Int("rows", len(batch.Rows)).
		Msg("monthly history fetched")

	return batch, nil
}

// PurgeCache drops the cached responses of the given scopes, or of every
// scope when none is given.
func (c *Client) PurgeCache(ctx context.Context, scopes ...string) error {
	if len(scopes) == 0 {
		scopes = []string{ScopeProductSales, ScopeReports}
	}
	for _, scope := range scopes {
		if scope != ScopeProductSales && scope != ScopeReports {
			return fmt.Errorf("unknown cache scope %q", scope)
		}
		if err := c.cache.DeleteByPrefix(ctx, cache.CacheKey(scope, "")); err != nil {
			return fmt.Errorf("purge %s cache: %w", scope, err)
		}
		c.logger.Info().Str("scope", scope).Msg("cache purged")
	}
	return nil
}

// Ping checks that the business service answers a minimal product query.
func (c *Client) Ping(ctx context.Context) error {
	q := url.Values{}
	q.Set("desde", "2024-01-01")
	q.Set("hasta", "2024-01-01")
	q.Set("limite", "1")

	_, err := c.get(ctx, productsPath, q, c.pingTimeout)
	return err
}

func (c *Client) get(ctx context.Context, path string, q url.Values, timeout time.Duration) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	endpoint := c.baseURL + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: GET %s: %w", ErrDataUnavailable, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", ErrDataUnavailable, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: GET %s: status %d, body: %s", ErrDataUnavailable, path, resp.StatusCode, truncate(body, 200))
	}

	return body, nil
}

func setIf(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
