package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/boutique-ia/forecast-engine/internal/cache"
	"github.com/boutique-ia/forecast-engine/internal/nlp"
	"github.com/boutique-ia/forecast-engine/internal/sales"
)

// Row is one report row exactly as the business service returned it.
type Row map[string]interface{}

// SalesReportParams maps a parsed sales query onto /reporte/ventas params.
// A "mayor" amount becomes montoMinimo and a "menor" amount montoMaximo.
func SalesReportParams(q nlp.Query) url.Values {
	v := url.Values{}
	v.Set("desde", sales.FormatDate(q.Range.Start))
	v.Set("hasta", sales.FormatDate(q.Range.End))

	if c := q.Conditions; c != nil {
		setIf(v, "tipoPago", c.PaymentType)
		setIf(v, "estadoVenta", c.Status)
		setIf(v, "tipoVenta", c.SaleType)
	}

	if a := q.Amount; a != nil {
		amount := strconv.FormatFloat(a.Value, 'f', -1, 64)
		switch a.Operator {
		case nlp.OperatorGreater:
			v.Set("montoMinimo", amount)
		case nlp.OperatorLess:
			v.Set("montoMaximo", amount)
		}
	}
	return v
}

// ProductReportParams maps a parsed products query onto /reporte/productos
// params.
func ProductReportParams(q nlp.Query) url.Values {
	v := url.Values{}
	v.Set("desde", sales.FormatDate(q.Range.Start))
	v.Set("hasta", sales.FormatDate(q.Range.End))

	if f := q.Filters; f != nil {
		setIf(v, "marca", f.Brand)
		setIf(v, "genero", f.Gender)
		setIf(v, "tipoPrenda", f.GarmentType)
		setIf(v, "talla", f.Size)
		setIf(v, "temporada", f.Season)
		setIf(v, "estilo", f.Style)
		setIf(v, "material", f.Material)
		setIf(v, "uso", f.Usage)
	}

	if c := q.SaleConditions; c != nil {
		setIf(v, "tipoVenta", c.SaleType)
		setIf(v, "tipoPago", c.PaymentType)
		setIf(v, "estadoVenta", c.SaleStatus)
	}

	if s := q.Sort; s != nil {
		v.Set("ordenarPor", s.Field)
		v.Set("orden", string(s.Direction))
	}
	if q.Limit > 0 {
		v.Set("limite", strconv.Itoa(q.Limit))
	}
	return v
}

// Report fetches the rows for a parsed query from the endpoint matching its
// entity.
func (c *Client) Report(ctx context.Context, q nlp.Query) ([]Row, error) {
	if q.Entity == nlp.EntitySales {
		return c.SalesReport(ctx, q)
	}
	return c.ProductReport(ctx, q)
}

// SalesReport fetches sale rows for a sales query.
func (c *Client) SalesReport(ctx context.Context, q nlp.Query) ([]Row, error) {
	return c.report(ctx, salesPath, SalesReportParams(q), q.Range)
}

// ProductReport fetches product rows for a products query.
func (c *Client) ProductReport(ctx context.Context, q nlp.Query) ([]Row, error) {
	return c.report(ctx, productsPath, ProductReportParams(q), q.Range)
}

// report fetches rows from path. Reports over ranges that ended before today
// are cached.
func (c *Client) report(ctx context.Context, path string, params url.Values, r nlp.Range) ([]Row, error) {
	closed := r.End.Before(sales.Day(c.now()))
	key := cache.CacheKey(ScopeReports, path, params.Encode())

	var rows []Row
	if closed {
		if err := cache.GetJSON(ctx, c.cache, key, &rows); err == nil {
			c.logger.Debug().Str("path", path).Int("rows", len(rows)).Msg("report rows served from cache")
			return rows, nil
		}
	}

	c.logger.Info().Str("path", path).Str("params", params.Encode()).Msg("fetching report rows")

	data, err := c.get(ctx, path, params, c.queryTimeout)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("%w: decode %s: %w", ErrDataUnavailable, path, err)
	}

	if closed {
		if err := cache.SetJSON(ctx, c.cache, key, rows, c.cacheTTL); err != nil {
			c.logger.Warn().Err(err).Msg("failed to cache report rows")
		}
	}
	return rows, nil
}
