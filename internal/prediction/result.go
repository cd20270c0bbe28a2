package prediction

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/boutique-ia/forecast-engine/internal/model"
	"github.com/boutique-ia/forecast-engine/internal/sales"
)

// Item is one ranked forecast.
type Item struct {
	Rank            int          `json:"ranking"`
	ProductID       int64        `json:"productoId"`
	ProductName     string       `json:"productoNombre"`
	Brand           string       `json:"marca"`
	Price           float64      `json:"precio"`
	UnitsPredicted  int64        `json:"cantidadPredicha"`
	Confidence      float64      `json:"confianza"`
	HistoricalUnits int64        `json:"ventasHistoricas"`
	Gender          string       `json:"genero,omitempty"`
	GarmentType     string       `json:"tipoPrenda,omitempty"`
	Season          sales.Season `json:"temporada,omitempty"`
}

// Period is the forecast window as rendered in a summary.
type Period struct {
	Start string `json:"inicio"`
	End   string `json:"fin"`
}

// Summary aggregates a ranked forecast.
type Summary struct {
	Message      string  `json:"mensaje"`
	Period       Period  `json:"periodoPrediccion"`
	TotalUnits   int64   `json:"totalUnidadesPredichas"`
	TotalRevenue float64 `json:"totalIngresoPredicho"`
	Products     int     `json:"totalProductosPredichos"`

	revenue decimal.Decimal
}

// Revenue returns the exact predicted revenue, rounded to cents.
func (s Summary) Revenue() decimal.Decimal {
	return s.revenue
}

// Result is the full prediction response.
type Result struct {
	Summary Summary `json:"resumen"`
	Items   []Item  `json:"resultados"`
}

// Summarize totals units and revenue (units x price) over items.
func Summarize(w sales.Window, items []Item) Summary {
	start, end := sales.FormatDate(w.Start), sales.FormatDate(w.End)

	var units int64
	revenue := decimal.Zero
	for _, it := range items {
		units += it.UnitsPredicted
		revenue = revenue.Add(decimal.NewFromInt(it.UnitsPredicted).Mul(decimal.NewFromFloat(it.Price)))
	}
	revenue = revenue.Round(2)

	return Summary{
		Message:      fmt.Sprintf("Predicción de ventas desde %s hasta %s", start, end),
		Period:       Period{Start: start, End: end},
		TotalUnits:   units,
		TotalRevenue: revenue.InexactFloat64(),
		Products:     len(items),
		revenue:      revenue,
	}
}

func newItem(rank int, p model.Prediction, cols sales.ColumnSet) Item {
	r := p.Record
	it := Item{
		Rank:            rank,
		ProductID:       r.ProductID,
		ProductName:     r.ProductName,
		Brand:           r.Brand,
		Price:           r.Price,
		UnitsPredicted:  p.Units,
		Confidence:      p.Confidence,
		HistoricalUnits: r.UnitsSold,
	}
	if cols.Has(sales.ColGender) {
		it.Gender = r.Gender
	}
	if cols.Has(sales.ColGarmentType) {
		it.GarmentType = r.GarmentType
	}
	if cols.Has(sales.ColSeason) {
		it.Season = r.Season
	}
	return it
}
