package main

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/boutique-ia/forecast-engine/internal/blend"
	"github.com/boutique-ia/forecast-engine/internal/prediction"
	"github.com/boutique-ia/forecast-engine/internal/sales"
	"github.com/boutique-ia/forecast-engine/internal/storage"
)

func TestPredictionRows(t *testing.T) {
	rows := predictionRows([]prediction.Item{
		{Rank: 1, ProductName: "Zapatilla Run", Brand: "NIKE", Price: 450, UnitsPredicted: 12, Confidence: 100, HistoricalUnits: 30},
		{Rank: 2, ProductName: "Short Playa", Brand: "ADIDAS", Price: 149.9, UnitsPredicted: 7, Confidence: 58.33, HistoricalUnits: 20},
	})

	require.Len(t, rows, 2)
	assert.Len(t, rows[0], len(predictionHeaders))
	assert.Equal(t, []string{"1", "Zapatilla Run", "NIKE", "450.00", "12", "100.0%", "30"}, rows[0])
	assert.Equal(t, []string{"2", "Short Playa", "ADIDAS", "149.90", "7", "58.3%", "20"}, rows[1])
}

func TestRunRows(t *testing.T) {
	started := time.Date(2025, time.November, 15, 10, 0, 0, 0, time.UTC)
	run := &storage.Run{
		ID:          uuid.MustParse("0b7f2a4e-1111-4c3d-9e8f-000000000001"),
		Kind:        storage.RunKindPrediction,
		Status:      storage.RunStatusSucceeded,
		WindowStart: "2025-12-01",
		WindowEnd:   "2025-12-31",
		Rows:        6,
		TopProduct:  "Zapatilla Run",
		StartedAt:   started,
		FinishedAt:  started.Add(1500 * time.Millisecond),
	}

	failed := *run
	failed.Status = storage.RunStatusFailed
	failed.Error = "el modelo de predicción no está disponible, entrena el modelo primero"

	rows := runRows([]*storage.Run{run, &failed})
	require.Len(t, rows, 2)
	assert.Equal(t, "0b7f2a4e", rows[0][0])
	assert.Equal(t, "succeeded", rows[0][2])
	assert.Equal(t, "2025-12-01 → 2025-12-31", rows[0][3])
	assert.Equal(t, "1.5s", rows[0][6])
	assert.Equal(t, "failed: el modelo de predicción no está disponi…", rows[1][2])
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"corto", 10, "corto"},
		{"exacto", 6, "exacto"},
		{"Polera Básica", 8, "Polera …"},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			assert.Equal(t, tc.want, truncate(tc.in, tc.n))
		})
	}
}

func TestSummarizeBlend(t *testing.T) {
	res := &blend.Result{
		Window: sales.MonthWindow(2025, time.December),
		Dataset: sales.Dataset{Records: []sales.Record{
			{ProductID: 1, UnitsSold: 4},
			{ProductID: 2, UnitsSold: 9},
			{ProductID: 3, UnitsSold: 6},
		}},
		Seasonal:       sales.Dataset{Records: make([]sales.Record, 5)},
		SeasonalRanges: []sales.Window{sales.MonthWindow(2023, time.December), sales.MonthWindow(2024, time.December)},
		FailedRanges:   []blend.FetchFailure{{Window: sales.MonthWindow(2023, time.December), Err: errors.New("timeout")}},
	}

	s := summarizeBlend(res, 2)
	assert.Equal(t, 3, s.Rows)
	assert.Equal(t, 5, s.SeasonalRows)
	assert.Zero(t, s.RecentRows)
	assert.Len(t, s.SeasonalRanges, 2)
	assert.Len(t, s.FailedRanges, 1)
	require.Len(t, s.Records, 2)
	assert.Equal(t, int64(2), s.Records[0].ProductID)
	assert.Equal(t, int64(3), s.Records[1].ProductID)

	rows := blendRows(s.Records)
	assert.Equal(t, "9", rows[0][4])
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", FormatDuration(250*time.Millisecond))
	assert.Equal(t, "1.5s", FormatDuration(1500*time.Millisecond))
	assert.Equal(t, "2.0m", FormatDuration(2*time.Minute))
	assert.Equal(t, "1.5h", FormatDuration(90*time.Minute))
}

func TestColumnWidths(t *testing.T) {
	widths := columnWidths([]string{"#", "Producto"}, [][]string{{"10", "Polera Básica Algodón"}})
	assert.Equal(t, []int{2, 21}, widths)
}

func TestPurgeScopes(t *testing.T) {
	tests := []struct {
		scope   string
		want    []string
		wantErr bool
	}{
		{"all", nil, false},
		{"", nil, false},
		{"productos", []string{"productos"}, false},
		{"reporte", []string{"reporte"}, false},
		{"ventas", nil, true},
	}
	for _, tc := range tests {
		t.Run(tc.scope, func(t *testing.T) {
			got, err := purgeScopes(tc.scope)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
