package blend

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boutique-ia/forecast-engine/internal/sales"
	"github.com/boutique-ia/forecast-engine/internal/upstream"
)

var today = sales.Date(2025, time.November, 15)

type fakeSource struct {
	payloads map[string]string
	errs     map[string]error
	calls    []sales.Window
}

func (f *fakeSource) ProductSales(_ context.Context, w sales.Window, _ upstream.Filters) (sales.Batch, error) {
	f.calls = append(f.calls, w)
	key := sales.FormatDate(w.Start)
	if err, ok := f.errs[key]; ok {
		return sales.Batch{}, err
	}
	payload, ok := f.payloads[key]
	if !ok {
		payload = `[]`
	}
	return sales.DecodeBatch([]byte(payload))
}

func newBlender(src Source) *Blender {
	return New(src, Options{Now: func() time.Time { return today }})
}

func TestSeasonalRanges(t *testing.T) {
	b := newBlender(nil)

	w := sales.Window{Start: sales.Date(2025, time.November, 20), End: sales.Date(2026, time.January, 10)}
	ranges := b.SeasonalRanges(w)

	require.Len(t, ranges, 6)
	assert.Equal(t, sales.MonthWindow(2023, time.November), ranges[0])
	assert.Equal(t, sales.MonthWindow(2023, time.December), ranges[1])
	assert.Equal(t, sales.MonthWindow(2023, time.January), ranges[2])
	assert.Equal(t, sales.MonthWindow(2024, time.January), ranges[5])
	for _, r := range ranges {
		assert.True(t, r.End.Before(today))
	}
}

func TestSeasonalRanges_NoPastYears(t *testing.T) {
	b := New(nil, Options{
		Policy: Policy{StartYear: 2025, SeasonalWeight: 0.7, RecentWeight: 0.3, RecentMonths: 3},
		Now:    func() time.Time { return today },
	})
	assert.Empty(t, b.SeasonalRanges(sales.NextMonth(today)))
}

func TestMergeWeighted(t *testing.T) {
	b := newBlender(nil)

	seasonal := sales.Dataset{Records: []sales.Record{
		{ProductID: 1, ProductName: "A", Price: 100, UnitsSold: 30, TotalRevenue: 3000},
		{ProductID: 2, ProductName: "B", Price: 50, UnitsSold: 4, TotalRevenue: 200},
	}}
	recent := sales.Dataset{Records: []sales.Record{
		{ProductID: 1, ProductName: "A-recent", Price: 90, UnitsSold: 10, TotalRevenue: 1000},
		{ProductID: 3, ProductName: "C", Price: 30, UnitsSold: 7, TotalRevenue: 210},
	}}

	merged := b.MergeWeighted(seasonal, recent)

	require.Equal(t, 3, merged.Len())
	p1 := merged.Records[0]
	assert.Equal(t, int64(24), p1.UnitsSold)
	assert.InDelta(t, 2400.0, p1.TotalRevenue, 1e-9)
	assert.Equal(t, "A", p1.ProductName)
	assert.Equal(t, 100.0, p1.Price)

	assert.Equal(t, seasonal.Records[1], merged.Records[1])
	assert.Equal(t, recent.Records[1], merged.Records[2])
}

func TestMergeWeighted_DisjointKeepsEveryRow(t *testing.T) {
	b := newBlender(nil)
	seasonal := sales.Dataset{Records: []sales.Record{{ProductID: 1}, {ProductID: 2}}}
	recent := sales.Dataset{Records: []sales.Record{{ProductID: 3}}}

	merged := b.MergeWeighted(seasonal, recent)
	assert.Equal(t, seasonal.Len()+recent.Len(), merged.Len())
}

func TestAggregate(t *testing.T) {
	ds := sales.Dataset{Records: []sales.Record{
		{ProductID: 1, ProductName: "A", Brand: "NIKE", Price: 100, UnitsSold: 10, TotalRevenue: 1000},
		{ProductID: 2, ProductName: "B", Price: 50, UnitsSold: 1, TotalRevenue: 50},
		{ProductID: 1, ProductName: "A2", Brand: "PUMA", Price: 120, UnitsSold: 20, TotalRevenue: 2400},
	}}

	out := Aggregate(ds)

	require.Equal(t, 2, out.Len())
	assert.Equal(t, int64(30), out.Records[0].UnitsSold)
	assert.InDelta(t, 3400.0, out.Records[0].TotalRevenue, 1e-9)
	assert.InDelta(t, 110.0, out.Records[0].Price, 1e-9)
	assert.Equal(t, "A", out.Records[0].ProductName)
	assert.Equal(t, "NIKE", out.Records[0].Brand)
	assert.Equal(t, int64(2), out.Records[1].ProductID)
}

func TestStamp(t *testing.T) {
	ds := sales.Dataset{Records: []sales.Record{{ProductID: 1}}}

	single := Stamp(ds, sales.MonthWindow(2025, time.December))
	assert.Equal(t, 12, single.Records[0].Month)
	assert.Equal(t, 2025, single.Records[0].Year)
	assert.Equal(t, sales.SeasonSummer, single.Records[0].Season)
	assert.True(t, single.HasColumn(sales.ColMonth|sales.ColYear|sales.ColSeason))

	multi := Stamp(ds, sales.Window{Start: sales.Date(2026, time.March, 1), End: sales.Date(2026, time.July, 31)})
	assert.Equal(t, 5, multi.Records[0].Month)
	assert.Equal(t, sales.SeasonAutumn, multi.Records[0].Season)
}

func fixtureSource() *fakeSource {
	return &fakeSource{
		payloads: map[string]string{
			"2023-12-01": `[
				{"productoId": 1, "productoNombre": "Zapatilla", "marca": "nike", "precio": 100, "cantidadVendida": 10, "totalVentas": 1000},
				{"productoId": 2, "productoNombre": "Polera", "marca": "puma", "precio": 50, "cantidadVendida": 4, "totalVentas": 200}
			]`,
			"2024-12-01": `[
				{"productoId": 1, "productoNombre": "Zapatilla", "marca": "nike", "precio": 120, "cantidadVendida": 20, "totalVentas": 2400}
			]`,
			"2025-08-15": `[
				{"productoId": 1, "productoNombre": "Zapatilla", "marca": "nike", "precio": 110, "cantidadVendida": 10, "totalVentas": 1100},
				{"productoId": 3, "productoNombre": "Gorra", "marca": "lee", "precio": 30, "cantidadVendida": 7, "totalVentas": 210}
			]`,
		},
		errs: map[string]error{},
	}
}

func TestBuild(t *testing.T) {
	src := fixtureSource()
	var events []FetchEvent
	b := New(src, Options{
		Now:     func() time.Time { return today },
		OnFetch: func(e FetchEvent) { events = append(events, e) },
	})

	res, err := b.Build(context.Background(), sales.NextMonth(today), upstream.Filters{})
	require.NoError(t, err)

	assert.Len(t, src.calls, 3)
	assert.Len(t, events, 2)
	assert.Equal(t, 2, events[1].Done)
	assert.Empty(t, res.FailedRanges)

	require.Equal(t, 3, res.Dataset.Len())
	p1 := res.Dataset.Records[0]
	assert.Equal(t, int64(1), p1.ProductID)
	assert.Equal(t, int64(24), p1.UnitsSold) // 0.7*30 + 0.3*10
	assert.InDelta(t, 110.0, p1.Price, 1e-9)
	assert.Equal(t, "NIKE", p1.Brand)

	for _, r := range res.Dataset.Records {
		assert.Equal(t, 12, r.Month)
		assert.Equal(t, 2025, r.Year)
		assert.Equal(t, sales.SeasonSummer, r.Season)
	}
	assert.Equal(t, int64(3), res.Dataset.Records[2].ProductID)
}

func TestBuild_PartialFailure(t *testing.T) {
	src := fixtureSource()
	src.errs["2024-12-01"] = errors.New("timeout")

	res, err := newBlender(src).Build(context.Background(), sales.NextMonth(today), upstream.Filters{})
	require.NoError(t, err)

	require.Len(t, res.FailedRanges, 1)
	assert.Equal(t, sales.MonthWindow(2024, time.December), res.FailedRanges[0].Window)
	assert.Equal(t, int64(10), res.Seasonal.Records[0].UnitsSold)
}

func TestBuild_RecentFailureIsNotFatal(t *testing.T) {
	src := fixtureSource()
	src.errs["2025-08-15"] = upstream.ErrDataUnavailable

	res, err := newBlender(src).Build(context.Background(), sales.NextMonth(today), upstream.Filters{})
	require.NoError(t, err)
	assert.True(t, res.Recent.Empty())
	assert.Equal(t, 2, res.Dataset.Len())
}

func TestBuild_NoData(t *testing.T) {
	src := &fakeSource{errs: map[string]error{
		"2023-12-01": errors.New("down"),
		"2024-12-01": errors.New("down"),
		"2025-08-15": errors.New("down"),
	}}

	_, err := newBlender(src).Build(context.Background(), sales.NextMonth(today), upstream.Filters{})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoData)
	assert.ErrorIs(t, err, upstream.ErrDataUnavailable)
}
