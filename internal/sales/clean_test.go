package sales

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustBatch(t *testing.T, payload string) Batch {
	t.Helper()
	b, err := DecodeBatch([]byte(payload))
	require.NoError(t, err)
	return b
}

func TestClean_SynthesizesMissingColumns(t *testing.T) {
	b := mustBatch(t, `[{"productoId": 1, "precio": 10}]`)

	ds, report := Clean(b)

	require.Equal(t, 1, ds.Len())
	rec := ds.Records[0]
	assert.Equal(t, int64(1), rec.ProductID)
	assert.Equal(t, UnknownName, rec.ProductName)
	assert.Equal(t, UnknownName, rec.Brand)
	assert.Equal(t, int64(0), rec.UnitsSold)
	assert.Equal(t, 0.0, rec.TotalRevenue)
	assert.ElementsMatch(t, []string{"productoNombre", "marca", "cantidadVendida", "totalVentas"}, report.SynthesizedColumns)
}

func TestClean_DedupKeys(t *testing.T) {
	t.Run("by product when no month columns", func(t *testing.T) {
		b := mustBatch(t, `[
			{"productoId": 1, "precio": 10, "cantidadVendida": 3},
			{"productoId": 1, "precio": 12, "cantidadVendida": 9},
			{"productoId": 2, "precio": 5}
		]`)
		ds, report := Clean(b)
		require.Equal(t, 2, ds.Len())
		assert.Equal(t, int64(3), ds.Records[0].UnitsSold, "first occurrence kept")
		assert.Equal(t, 1, report.Duplicates)
	})

	t.Run("by product, year and month", func(t *testing.T) {
		b := mustBatch(t, `[
			{"productoId": 1, "precio": 10, "anio": 2024, "mes": 1},
			{"productoId": 1, "precio": 10, "anio": 2024, "mes": 2},
			{"productoId": 1, "precio": 10, "anio": 2024, "mes": 2}
		]`)
		ds, _ := Clean(b)
		require.Equal(t, 2, ds.Len())
		assert.True(t, ds.HasColumn(ColYear|ColMonth))
	})
}

func TestClean_DropsNullIDAndPrice(t *testing.T) {
	b := mustBatch(t, `[
		{"productoId": null, "precio": 10},
		{"productoId": 2, "precio": null},
		{"productoId": 3},
		{"productoId": 4, "precio": 7.5}
	]`)

	ds, report := Clean(b)

	require.Equal(t, 1, ds.Len())
	assert.Equal(t, int64(4), ds.Records[0].ProductID)
	assert.Equal(t, 3, report.DroppedNulls)
}

func TestClean_CoercesInvalidNumbers(t *testing.T) {
	b := mustBatch(t, `[
		{"productoId": "5", "precio": "abc", "cantidadVendida": "12.7", "totalVentas": "x"}
	]`)

	ds, _ := Clean(b)

	require.Equal(t, 1, ds.Len())
	rec := ds.Records[0]
	assert.Equal(t, int64(5), rec.ProductID)
	assert.Equal(t, 0.0, rec.Price)
	assert.Equal(t, int64(12), rec.UnitsSold)
	assert.Equal(t, 0.0, rec.TotalRevenue)
}

func TestClean_UppercasesCategoricals(t *testing.T) {
	b := mustBatch(t, `[
		{"productoId": 1, "precio": 1, "marca": "nike", "genero": "mujer", "tipoPrenda": "camiseta", "talla": "m"}
	]`)

	ds, _ := Clean(b)

	rec := ds.Records[0]
	assert.Equal(t, "NIKE", rec.Brand)
	assert.Equal(t, "MUJER", rec.Gender)
	assert.Equal(t, "CAMISETA", rec.GarmentType)
	assert.Equal(t, "m", rec.Size)
	assert.True(t, ds.HasColumn(ColGender|ColGarmentType|ColSize))
	assert.False(t, ds.HasColumn(ColSeason))
}

func TestClean_AcceptsAlternateYearKey(t *testing.T) {
	b := mustBatch(t, `[{"productoId": 1, "precio": 1, "año": 2025, "mes": 3}]`)

	ds, _ := Clean(b)

	assert.True(t, ds.HasColumn(ColYear))
	assert.Equal(t, 2025, ds.Records[0].Year)
}

func TestCleanDataset_Idempotent(t *testing.T) {
	b := mustBatch(t, `[
		{"productoId": 1, "productoNombre": "Polo", "marca": "puma", "precio": "19.9", "cantidadVendida": 4, "totalVentas": 79.6, "genero": "hombre", "mes": 2, "anio": 2024, "temporada": "VERANO"},
		{"productoId": 1, "productoNombre": "Polo", "marca": "puma", "precio": 19.9, "cantidadVendida": 4, "mes": 2, "anio": 2024},
		{"productoId": 2, "productoNombre": "Jean", "marca": "levis", "precio": 45, "cantidadVendida": 1, "mes": 3, "anio": 2024}
	]`)

	once, _ := Clean(b)
	twice := CleanDataset(once)

	assert.Equal(t, once, twice)
}

func TestComputeStats(t *testing.T) {
	ds := Dataset{Records: []Record{
		{ProductID: 1, ProductName: "A", Brand: "NIKE", Price: 10, UnitsSold: 2, TotalRevenue: 20},
		{ProductID: 2, ProductName: "B", Brand: "NIKE", Price: 30, UnitsSold: 5, TotalRevenue: 150},
	}}

	st := ComputeStats(ds)

	assert.Equal(t, 2, st.Rows)
	assert.Equal(t, 2, st.UniqueProducts)
	assert.Equal(t, 1, st.UniqueBrands)
	assert.Equal(t, int64(7), st.TotalUnits)
	assert.InDelta(t, 170.0, st.TotalRevenue, 1e-9)
	assert.InDelta(t, 20.0, st.MeanPrice, 1e-9)
	assert.Equal(t, "B", st.BestSeller)

	assert.Equal(t, Stats{}, ComputeStats(Dataset{}))
}
