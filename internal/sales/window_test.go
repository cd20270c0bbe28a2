package sales

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindow_Months(t *testing.T) {
	tests := []struct {
		name string
		w    Window
		want []time.Month
	}{
		{"single month", MonthWindow(2025, time.December), []time.Month{time.December}},
		{"across year end", Window{Date(2025, 12, 1), Date(2026, 2, 28)}, []time.Month{time.December, time.January, time.February}},
		{"longer than a year", Window{Date(2024, 1, 1), Date(2025, 6, 1)}, []time.Month{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.w.Months())
		})
	}
}

func TestWindow_ReferenceMonth(t *testing.T) {
	y, m := MonthWindow(2025, time.December).ReferenceMonth()
	assert.Equal(t, 2025, y)
	assert.Equal(t, time.December, m)

	y, m = Window{Date(2025, 12, 1), Date(2026, 2, 28)}.ReferenceMonth()
	assert.Equal(t, 2026, y)
	assert.Equal(t, time.January, m)
}

func TestAddMonths_ClampsDay(t *testing.T) {
	assert.Equal(t, Date(2025, 2, 28), AddMonths(Date(2025, 1, 31), 1))
	assert.Equal(t, Date(2025, 8, 15), AddMonths(Date(2025, 11, 15), -3))
	assert.Equal(t, Date(2024, 2, 29), AddMonths(Date(2024, 3, 31), -1))
}

func TestNextMonth(t *testing.T) {
	w := NextMonth(Date(2025, 12, 20))
	assert.Equal(t, Date(2026, 1, 1), w.Start)
	assert.Equal(t, Date(2026, 1, 31), w.End)
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2025-12-01")
	require.NoError(t, err)
	assert.Equal(t, Date(2025, 12, 1), d)

	_, err = ParseDate("01/12/2025")
	assert.Error(t, err)
}
