// Package sales holds the product-sales record model shared by the
// forecasting pipeline: typed rows, column presence, season classification
// and the cleaning rules applied to every batch fetched from the business API.
package sales

import (
	"encoding/json"
	"fmt"
)

// ColumnSet records which optional columns a dataset carries. Presence is a
// property of the whole dataset, never of a single row.
type ColumnSet uint16

const (
	ColGender ColumnSet = 1 << iota
	ColGarmentType
	ColSize
	ColSeason
	ColMonth
	ColYear
)

var columnNames = []struct {
	col  ColumnSet
	name string
}{
	{ColGender, "genero"},
	{ColGarmentType, "tipoPrenda"},
	{ColSize, "talla"},
	{ColSeason, "temporada"},
	{ColMonth, "mes"},
	{ColYear, "anio"},
}

// Has reports whether every column in c is present.
func (s ColumnSet) Has(c ColumnSet) bool {
	return s&c == c
}

// With returns s plus c.
func (s ColumnSet) With(c ColumnSet) ColumnSet {
	return s | c
}

// Names lists the present optional columns in wire order.
func (s ColumnSet) Names() []string {
	var names []string
	for _, cn := range columnNames {
		if s.Has(cn.col) {
			names = append(names, cn.name)
		}
	}
	return names
}

// Record is one product (or product x month) sales row.
type Record struct {
	ProductID    int64   `json:"productoId"`
	ProductName  string  `json:"productoNombre"`
	Brand        string  `json:"marca"`
	Gender       string  `json:"genero,omitempty"`
	GarmentType  string  `json:"tipoPrenda,omitempty"`
	Size         string  `json:"talla,omitempty"`
	Season       Season  `json:"temporada,omitempty"`
	Price        float64 `json:"precio"`
	UnitsSold    int64   `json:"cantidadVendida"`
	TotalRevenue float64 `json:"totalVentas"`
	Month        int     `json:"mes,omitempty"`
	Year         int     `json:"anio,omitempty"`
}

// Dataset is an ordered set of records plus the optional columns they carry.
type Dataset struct {
	Records []Record
	Columns ColumnSet
}

// Len returns the number of rows.
func (d Dataset) Len() int {
	return len(d.Records)
}

// Empty reports whether the dataset has no rows.
func (d Dataset) Empty() bool {
	return len(d.Records) == 0
}

// HasColumn reports whether an optional column is present.
func (d Dataset) HasColumn(c ColumnSet) bool {
	return d.Columns.Has(c)
}

// RawRecord is a row as decoded from the business API, before cleaning.
// Pointer fields are nil when the key is absent or null.
type RawRecord struct {
	ProductID    *Number `json:"productoId"`
	ProductName  *string `json:"productoNombre"`
	Brand        *string `json:"marca"`
	Gender       *string `json:"genero"`
	GarmentType  *string `json:"tipoPrenda"`
	Size         *string `json:"talla"`
	Season       *string `json:"temporada"`
	Price        *Number `json:"precio"`
	UnitsSold    *Number `json:"cantidadVendida"`
	TotalRevenue *Number `json:"totalVentas"`
	Month        *Number `json:"mes"`
	Year         *Number `json:"anio"`
	YearAlt      *Number `json:"año"`
}

// Batch is a decoded payload: the rows and the set of keys seen in any row.
type Batch struct {
	Rows []RawRecord
	Keys map[string]bool
}

// HasKey reports whether any row carried the key.
func (b Batch) HasKey(key string) bool {
	return b.Keys[key]
}

// DecodeBatch decodes a JSON array of sales rows.
func DecodeBatch(data []byte) (Batch, error) {
	var generic []map[string]json.RawMessage
	if err := json.Unmarshal(data, &generic); err != nil {
		return Batch{}, fmt.Errorf("decode rows: %w", err)
	}

	keys := make(map[string]bool)
	for _, row := range generic {
		for k := range row {
			keys[k] = true
		}
	}

	var rows []RawRecord
	if err := json.Unmarshal(data, &rows); err != nil {
		return Batch{}, fmt.Errorf("decode rows: %w", err)
	}

	return Batch{Rows: rows, Keys: keys}, nil
}

// BatchFromRecords converts typed records back into a raw batch. It is used
// when typed rows have to go through the full cleaning path again.
func BatchFromRecords(ds Dataset) Batch {
	keys := map[string]bool{
		"productoId": true, "productoNombre": true, "marca": true,
		"precio": true, "cantidadVendida": true, "totalVentas": true,
	}
	for _, name := range ds.Columns.Names() {
		keys[name] = true
	}

	rows := make([]RawRecord, 0, len(ds.Records))
	for _, r := range ds.Records {
		raw := RawRecord{
			ProductID:    NumberOf(float64(r.ProductID)),
			ProductName:  &r.ProductName,
			Brand:        &r.Brand,
			Price:        NumberOf(r.Price),
			UnitsSold:    NumberOf(float64(r.UnitsSold)),
			TotalRevenue: NumberOf(r.TotalRevenue),
		}
		if ds.HasColumn(ColGender) {
			raw.Gender = &r.Gender
		}
		if ds.HasColumn(ColGarmentType) {
			raw.GarmentType = &r.GarmentType
		}
		if ds.HasColumn(ColSize) {
			raw.Size = &r.Size
		}
		if ds.HasColumn(ColSeason) {
			season := string(r.Season)
			raw.Season = &season
		}
		if ds.HasColumn(ColMonth) {
			raw.Month = NumberOf(float64(r.Month))
		}
		if ds.HasColumn(ColYear) {
			raw.Year = NumberOf(float64(r.Year))
		}
		rows = append(rows, raw)
	}

	return Batch{Rows: rows, Keys: keys}
}
