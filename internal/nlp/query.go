// Package nlp turns Spanish free-text report requests into structured
// queries. Every detector is a pure function over the lower-cased text; the
// analyzers compose them per domain and never fail.
package nlp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/boutique-ia/forecast-engine/internal/sales"
)

// Entity names the report domain.
type Entity string

const (
	EntitySales    Entity = "ventas"
	EntityProducts Entity = "productos"
)

// Format is the requested report format.
type Format string

const (
	FormatExcel Format = "excel"
	FormatPDF   Format = "pdf"
)

// Operator is the direction of an amount comparison.
type Operator string

const (
	OperatorGreater Operator = "mayor"
	OperatorLess    Operator = "menor"
)

// Currency is a currency marker found next to an amount.
type Currency string

const (
	CurrencyBs  Currency = "bs"
	CurrencyUSD Currency = "usd"
	CurrencyEUR Currency = "eur"
)

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "ASC"
	Desc Direction = "DESC"
)

// Sort field names understood by the business API.
const (
	SortByUnits = "cantidadVendida"
	SortByPrice = "precio"
)

// DefaultLimit is the product result limit when none is requested.
const DefaultLimit = 10

// Range is an inclusive date range. It is always present and Start <= End.
type Range struct {
	Start time.Time
	End   time.Time
}

type rangeJSON struct {
	Start string `json:"inicio"`
	End   string `json:"fin"`
}

// MarshalJSON renders the range as {"inicio","fin"} dates.
func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal(rangeJSON{Start: sales.FormatDate(r.Start), End: sales.FormatDate(r.End)})
}

// UnmarshalJSON parses {"inicio","fin"} dates.
func (r *Range) UnmarshalJSON(b []byte) error {
	var raw rangeJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	start, err := sales.ParseDate(raw.Start)
	if err != nil {
		return fmt.Errorf("rango.inicio: %w", err)
	}
	end, err := sales.ParseDate(raw.End)
	if err != nil {
		return fmt.Errorf("rango.fin: %w", err)
	}
	r.Start, r.End = start, end
	return nil
}

// Filters are the product categorical filters.
type Filters struct {
	Brand       string `json:"marca,omitempty"`
	Gender      string `json:"genero,omitempty"`
	GarmentType string `json:"tipoPrenda,omitempty"`
	Size        string `json:"talla,omitempty"`
	Season      string `json:"temporada,omitempty"`
	Style       string `json:"estilo,omitempty"`
	Material    string `json:"material,omitempty"`
	Usage       string `json:"uso,omitempty"`
}

// Empty reports whether no filter was detected.
func (f Filters) Empty() bool {
	return f == Filters{}
}

// Conditions are the sales-domain enum conditions.
type Conditions struct {
	PaymentType string `json:"tipoPago,omitempty"`
	SaleType    string `json:"tipoVenta,omitempty"`
	Status      string `json:"estado,omitempty"`
}

// Empty reports whether no sale condition was detected.
func (c Conditions) Empty() bool {
	return c == Conditions{}
}

// SaleConditions are the sale conditions attached to a products query.
type SaleConditions struct {
	SaleType    string `json:"tipoVenta,omitempty"`
	PaymentType string `json:"tipoPago,omitempty"`
	SaleStatus  string `json:"estadoVenta,omitempty"`
}

// Empty reports whether no condition was detected.
func (c SaleConditions) Empty() bool {
	return c == SaleConditions{}
}

// AmountCondition is a monetary comparison on sale totals.
type AmountCondition struct {
	Operator Operator `json:"operador,omitempty"`
	Value    float64  `json:"valor"`
	Currency Currency `json:"moneda,omitempty"`
}

// Sort is the requested result ordering.
type Sort struct {
	Field     string    `json:"campo"`
	Direction Direction `json:"orden"`
}

// Query is the structured form of a report request.
type Query struct {
	Entity         Entity           `json:"entidad"`
	Format         Format           `json:"formato"`
	Range          Range            `json:"rango"`
	Filters        *Filters         `json:"filtros,omitempty"`
	Conditions     *Conditions      `json:"condiciones,omitempty"`
	SaleConditions *SaleConditions  `json:"condicionesVenta,omitempty"`
	Amount         *AmountCondition `json:"condicionMonto,omitempty"`
	Sort           *Sort            `json:"ordenamiento,omitempty"`
	Limit          int              `json:"limite,omitempty"`
}
