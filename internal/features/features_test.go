package features

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boutique-ia/forecast-engine/internal/sales"
)

func trainingSet() sales.Dataset {
	return sales.Dataset{
		Columns: sales.ColGender | sales.ColSeason | sales.ColMonth | sales.ColYear,
		Records: []sales.Record{
			{ProductID: 1, Brand: "PUMA", Gender: "MUJER", Season: sales.SeasonSummer, Price: 100, UnitsSold: 5, Month: 1, Year: 2024},
			{ProductID: 2, Brand: "NIKE", Gender: "HOMBRE", Season: sales.SeasonWinter, Price: 200, UnitsSold: 9, Month: 7, Year: 2024},
			{ProductID: 3, Brand: "ADIDAS", Gender: "MUJER", Season: sales.SeasonSummer, Price: 50, UnitsSold: 2, Month: 12, Year: 2023},
		},
	}
}

func TestLabelEncoder(t *testing.T) {
	enc := FitLabelEncoder([]string{"PUMA", "NIKE", "PUMA", "ADIDAS"})
	assert.Equal(t, []string{"ADIDAS", "NIKE", "PUMA"}, enc.Classes)
	require.NoError(t, enc.Validate())

	code, ok := enc.Transform("PUMA")
	assert.True(t, ok)
	assert.Equal(t, 2, code)

	code, ok = enc.Transform("REEBOK")
	assert.False(t, ok)
	assert.Equal(t, 0, code)

	assert.Error(t, (&LabelEncoder{Classes: []string{"B", "A"}}).Validate())
}

func TestPrepare_TrainingSpace(t *testing.T) {
	enc := NewEncoder(nil)
	X, y, err := enc.Prepare(trainingSet(), true)
	require.NoError(t, err)

	assert.Equal(t, Space{"precio", "mes", "anio", "marca_encoded", "genero_encoded", "temporada_encoded"}, enc.Space)
	require.Len(t, X, 3)
	assert.Equal(t, []float64{100, 1, 2024, 2, 1, 1}, X[0])
	assert.Equal(t, []float64{5, 9, 2}, y)
}

func TestPrepare_Deterministic(t *testing.T) {
	a, b := NewEncoder(nil), NewEncoder(nil)
	Xa, _, err := a.Prepare(trainingSet(), true)
	require.NoError(t, err)
	Xb, _, err := b.Prepare(trainingSet(), true)
	require.NoError(t, err)
	assert.Equal(t, Xa, Xb)
}

func TestPrepare_InferenceUsesFittedSpace(t *testing.T) {
	enc := NewEncoder(nil)
	_, _, err := enc.Prepare(trainingSet(), true)
	require.NoError(t, err)

	// No gender column and an unseen brand.
	batch := sales.Dataset{
		Columns: sales.ColSeason | sales.ColMonth | sales.ColYear,
		Records: []sales.Record{
			{ProductID: 9, Brand: "REEBOK", Season: sales.SeasonSummer, Price: 80, Month: 6, Year: 2026},
		},
	}

	X, y, err := enc.Prepare(batch, false)
	require.NoError(t, err)
	assert.Nil(t, y)
	require.Len(t, X, 1)
	assert.Equal(t, []float64{80, 6, 2026, 0, 0, 1}, X[0])
}

func TestPrepare_InferenceWithoutSpace(t *testing.T) {
	_, _, err := NewEncoder(nil).Prepare(trainingSet(), false)
	assert.ErrorIs(t, err, ErrNoFeatureSpace)
}

func TestPrepare_NoYearColumn(t *testing.T) {
	ds := trainingSet()
	ds.Columns = sales.ColMonth

	enc := NewEncoder(nil)
	_, _, err := enc.Prepare(ds, true)
	require.NoError(t, err)
	assert.Equal(t, Space{"precio", "mes", "marca_encoded"}, enc.Space)
}

func TestScaler(t *testing.T) {
	X := Matrix{{1, 5}, {3, 5}, {5, 5}}
	s := FitScaler(X)

	assert.InDeltaSlice(t, []float64{3, 5}, s.Mean, 1e-12)
	assert.InDelta(t, math.Sqrt(8.0/3.0), s.Scale[0], 1e-12)
	assert.Equal(t, 1.0, s.Scale[1])

	out, err := s.Transform(X)
	require.NoError(t, err)
	assert.InDelta(t, 0, out[1][0], 1e-12)
	assert.InDelta(t, 0, out[2][1], 1e-12)

	_, err = s.Transform(Matrix{{1}})
	assert.Error(t, err)
}
