package sales

import (
	"strconv"
	"strings"
)

// UnknownName is the placeholder for missing descriptive text columns.
const UnknownName = "DESCONOCIDO"

var requiredColumns = []string{
	"productoId", "productoNombre", "marca", "precio", "cantidadVendida", "totalVentas",
}

// CleanReport describes what Clean changed.
type CleanReport struct {
	InputRows          int
	SynthesizedColumns []string
	Duplicates         int
	DroppedNulls       int
	OutputRows         int
}

// Clean normalizes a raw batch into a typed dataset. The steps run in a fixed
// order: synthesize missing required columns, drop duplicates (keeping the
// first occurrence), drop rows with a null product id or price, coerce numeric
// fields (invalid values become 0) and uppercase brand, gender and garment type.
func Clean(b Batch) (Dataset, CleanReport) {
	report := CleanReport{InputRows: len(b.Rows)}

	for _, col := range requiredColumns {
		if !b.HasKey(col) {
			report.SynthesizedColumns = append(report.SynthesizedColumns, col)
		}
	}

	cols := batchColumns(b)

	dedupByMonth := cols.Has(ColYear | ColMonth)
	seen := make(map[string]struct{}, len(b.Rows))
	unique := make([]RawRecord, 0, len(b.Rows))
	for _, row := range b.Rows {
		key := dedupKey(row, dedupByMonth)
		if _, dup := seen[key]; dup {
			report.Duplicates++
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, row)
	}

	idColumn, priceColumn := b.HasKey("productoId"), b.HasKey("precio")
	records := make([]Record, 0, len(unique))
	for _, row := range unique {
		if (idColumn && row.ProductID == nil) || (priceColumn && row.Price == nil) {
			report.DroppedNulls++
			continue
		}
		records = append(records, coerce(row, cols))
	}

	report.OutputRows = len(records)
	return Dataset{Records: records, Columns: cols}, report
}

// CleanDataset re-applies the cleaning rules to typed rows. Cleaning an
// already clean dataset returns it unchanged.
func CleanDataset(ds Dataset) Dataset {
	out, _ := Clean(BatchFromRecords(ds))
	return out
}

func batchColumns(b Batch) ColumnSet {
	var cols ColumnSet
	for _, cn := range columnNames {
		if b.HasKey(cn.name) {
			cols = cols.With(cn.col)
		}
	}
	if b.HasKey("año") {
		cols = cols.With(ColYear)
	}
	return cols
}

func dedupKey(row RawRecord, byMonth bool) string {
	id := "null"
	if row.ProductID != nil {
		if v, ok := row.ProductID.Float(); ok {
			id = strconv.FormatFloat(v, 'f', -1, 64)
		} else {
			id = "raw:" + row.ProductID.raw
		}
	}
	if !byMonth {
		return id
	}
	return id + "|" + numberKey(yearOf(row)) + "|" + numberKey(row.Month)
}

func numberKey(n *Number) string {
	if n == nil {
		return "null"
	}
	if v, ok := n.Float(); ok {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return "raw:" + n.raw
}

func yearOf(row RawRecord) *Number {
	if row.Year != nil {
		return row.Year
	}
	return row.YearAlt
}

func coerce(row RawRecord, cols ColumnSet) Record {
	rec := Record{
		ProductID:    row.ProductID.IntOr(0),
		ProductName:  textOr(row.ProductName, UnknownName),
		Brand:        strings.ToUpper(textOr(row.Brand, UnknownName)),
		Price:        row.Price.FloatOr(0),
		UnitsSold:    row.UnitsSold.IntOr(0),
		TotalRevenue: row.TotalRevenue.FloatOr(0),
	}
	if cols.Has(ColGender) {
		rec.Gender = strings.ToUpper(textOr(row.Gender, ""))
	}
	if cols.Has(ColGarmentType) {
		rec.GarmentType = strings.ToUpper(textOr(row.GarmentType, ""))
	}
	if cols.Has(ColSize) {
		rec.Size = textOr(row.Size, "")
	}
	if cols.Has(ColSeason) {
		rec.Season = Season(textOr(row.Season, ""))
	}
	if cols.Has(ColMonth) {
		rec.Month = int(row.Month.IntOr(0))
	}
	if cols.Has(ColYear) {
		rec.Year = int(yearOf(row).IntOr(0))
	}
	return rec
}

func textOr(s *string, def string) string {
	if s == nil {
		return def
	}
	return *s
}
