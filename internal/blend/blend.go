// Package blend builds the inference dataset for a forecast window by mixing
// what sold in the same calendar months of past years with what sold in the
// last few months.
package blend

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/boutique-ia/forecast-engine/internal/observability"
	"github.com/boutique-ia/forecast-engine/internal/sales"
	"github.com/boutique-ia/forecast-engine/internal/upstream"
)

// ErrNoData is returned when neither the seasonal nor the recent fetch
// produced a single row.
var ErrNoData = fmt.Errorf("%w: no seasonal or recent sales", upstream.ErrDataUnavailable)

// Source fetches per-product sales for a date window.
type Source interface {
	ProductSales(ctx context.Context, w sales.Window, f upstream.Filters) (sales.Batch, error)
}

// Policy holds the blending parameters.
type Policy struct {
	StartYear      int
	SeasonalWeight float64
	RecentWeight   float64
	RecentMonths   int
}

// DefaultPolicy returns the 70/30 blend over history since 2023 and the
// last three months.
func DefaultPolicy() Policy {
	return Policy{
		StartYear:      2023,
		SeasonalWeight: 0.7,
		RecentWeight:   0.3,
		RecentMonths:   3,
	}
}

// FetchFailure records a seasonal range that could not be fetched.
type FetchFailure struct {
	Window sales.Window
	Err    error
}

// MarshalJSON renders the failure with the error as text.
func (f FetchFailure) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Start string `json:"inicio"`
		End   string `json:"fin"`
		Error string `json:"error"`
	}{sales.FormatDate(f.Window.Start), sales.FormatDate(f.Window.End), f.Err.Error()})
}

// Result is a blended dataset plus the intermediate sets it was built from.
type Result struct {
	Window         sales.Window
	Dataset        sales.Dataset
	Seasonal       sales.Dataset
	Recent         sales.Dataset
	SeasonalRanges []sales.Window
	FailedRanges   []FetchFailure
}

// FetchEvent reports progress over the seasonal range fetches.
type FetchEvent struct {
	Done   int
	Total  int
	Window sales.Window
	Err    error
}

// Options configures a Blender.
type Options struct {
	Policy  Policy
	Logger  *observability.Logger
	Now     func() time.Time
	OnFetch func(FetchEvent)
}

// Blender builds blended datasets from a Source.
type Blender struct {
	source  Source
	policy  Policy
	logger  *observability.Logger
	now     func() time.Time
	onFetch func(FetchEvent)
}

// New creates a Blender. Zero-valued options fall back to defaults.
func New(source Source, opts Options) *Blender {
	if opts.Policy == (Policy{}) {
		opts.Policy = DefaultPolicy()
	}
	if opts.Logger == nil {
		opts.Logger = observability.NopLogger()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Blender{
		source:  source,
		policy:  opts.Policy,
		logger:  opts.Logger.WithComponent("blend"),
		now:     opts.Now,
		onFetch: opts.OnFetch,
	}
}

// SeasonalRanges lists the month-long ranges of past years that match the
// months of w. Ranges that have not fully elapsed are left out.
func (b *Blender) SeasonalRanges(w sales.Window) []sales.Window {
	today := sales.Day(b.now())
	months := w.Months()

	var ranges []sales.Window
	for year := b.policy.StartYear; year < today.Year(); year++ {
		for _, m := range months {
			r := sales.MonthWindow(year, m)
			if r.End.Before(today) {
				ranges = append(ranges, r)
			}
		}
	}
	return ranges
}

// Build fetches, aggregates and blends the data for w, stamps every row with
// the forecast month and returns the cleaned result.
func (b *Blender) Build(ctx context.Context, w sales.Window, f upstream.Filters) (*Result, error) {
	start := time.Now()
	res := &Result{Window: w, SeasonalRanges: b.SeasonalRanges(w)}

	b.logger.Info().
		Window(w.Start, w.End).
		Int("ranges", len(res.SeasonalRanges)).
		Msg("building seasonal dataset")

	var parts []sales.Dataset
	for i, r := range res.SeasonalRanges {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		ds, err := b.fetch(ctx, r, f)
		if err != nil {
			b.logger.Warn().Err(err).Str("range", r.String()).Msg("seasonal range fetch failed, skipping")
			res.FailedRanges = append(res.FailedRanges, FetchFailure{Window: r, Err: err})
		} else {
			parts = append(parts, ds)
		}

		if b.onFetch != nil {
			b.onFetch(FetchEvent{Done: i + 1, Total: len(res.SeasonalRanges), Window: r, Err: err})
		}
	}
	res.Seasonal = Aggregate(Concat(parts...))

	recentWindow := b.RecentWindow()
	recent, err := b.fetch(ctx, recentWindow, f)
	if err != nil {
		b.logger.Warn().Err(err).Str("range", recentWindow.String()).Msg("recent fetch failed, continuing without recent data")
		recent = sales.Dataset{}
	}
	res.Recent = recent

	if res.Seasonal.Empty() && res.Recent.Empty() {
		return nil, ErrNoData
	}

	merged := b.MergeWeighted(res.Seasonal, res.Recent)
	res.Dataset = sales.CleanDataset(Stamp(merged, w))

	b.logger.Info().
		Int("seasonal_rows", res.Seasonal.Len()).
		Int("recent_rows", res.Recent.Len()).
		Int("blended_rows", res.Dataset.Len()).
		Int("failed_ranges", len(res.FailedRanges)).
		Dur("duration", time.Since(start)).
		Msg("blend complete")

	return res, nil
}

// RecentWindow is the last RecentMonths months up to today.
func (b *Blender) RecentWindow() sales.Window {
	today := sales.Day(b.now())
	return sales.Window{Start: sales.AddMonths(today, -b.policy.RecentMonths), End: today}
}

func (b *Blender) fetch(ctx context.Context, w sales.Window, f upstream.Filters) (sales.Dataset, error) {
	batch, err := b.source.ProductSales(ctx, w, f)
	if err != nil {
		return sales.Dataset{}, err
	}
	ds, report := sales.Clean(batch)
	if len(report.SynthesizedColumns) > 0 {
		b.logger.Debug().Strs("columns", report.SynthesizedColumns).Str("range", w.String()).Msg("synthesized missing columns")
	}
	return ds, nil
}

// MergeWeighted joins seasonal and recent rows on product id. Products in
// both sets get weighted units (rounded) and revenue; every other field comes
// from the seasonal row. Products in only one set are kept unchanged.
// Seasonal products come first, in their order, followed by recent-only ones.
func (b *Blender) MergeWeighted(seasonal, recent sales.Dataset) sales.Dataset {
	recentByID := make(map[int64]sales.Record, recent.Len())
	for _, r := range recent.Records {
		if _, ok := recentByID[r.ProductID]; !ok {
			recentByID[r.ProductID] = r
		}
	}

	ws, wr := b.policy.SeasonalWeight, b.policy.RecentWeight
	out := sales.Dataset{
		Records: make([]sales.Record, 0, seasonal.Len()+recent.Len()),
		Columns: seasonal.Columns | recent.Columns,
	}

	inSeasonal := make(map[int64]bool, seasonal.Len())
	for _, s := range seasonal.Records {
		inSeasonal[s.ProductID] = true
		if r, ok := recentByID[s.ProductID]; ok {
			s.UnitsSold = int64(math.Round(ws*float64(s.UnitsSold) + wr*float64(r.UnitsSold)))
			s.TotalRevenue = ws*s.TotalRevenue + wr*r.TotalRevenue
		}
		out.Records = append(out.Records, s)
	}
	for _, r := range recent.Records {
		if !inSeasonal[r.ProductID] {
			out.Records = append(out.Records, r)
		}
	}
	return out
}

// Concat appends datasets; the result carries the union of their columns.
func Concat(parts ...sales.Dataset) sales.Dataset {
	var out sales.Dataset
	for _, p := range parts {
		out.Records = append(out.Records, p.Records...)
		out.Columns |= p.Columns
	}
	return out
}

// Aggregate collapses rows per product: units and revenue are summed, price
// is averaged and descriptive fields keep their first value.
func Aggregate(ds sales.Dataset) sales.Dataset {
	index := make(map[int64]int, ds.Len())
	counts := make([]int, 0, ds.Len())
	out := sales.Dataset{Columns: ds.Columns}

	for _, r := range ds.Records {
		i, ok := index[r.ProductID]
		if !ok {
			index[r.ProductID] = len(out.Records)
			out.Records = append(out.Records, r)
			counts = append(counts, 1)
			continue
		}
		agg := &out.Records[i]
		agg.UnitsSold += r.UnitsSold
		agg.TotalRevenue += r.TotalRevenue
		agg.Price += r.Price
		counts[i]++
	}

	for i := range out.Records {
		out.Records[i].Price /= float64(counts[i])
	}
	return out
}

// Stamp sets month, year and season on every row to the window's reference
// month.
func Stamp(ds sales.Dataset, w sales.Window) sales.Dataset {
	year, month := w.ReferenceMonth()
	season := sales.SeasonOf(int(month))

	out := sales.Dataset{
		Records: make([]sales.Record, len(ds.Records)),
		Columns: ds.Columns.With(sales.ColMonth | sales.ColYear | sales.ColSeason),
	}
	for i, r := range ds.Records {
		r.Month = int(month)
		r.Year = year
		r.Season = season
		out.Records[i] = r
	}
	return out
}
