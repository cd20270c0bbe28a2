package sales

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeasonOf(t *testing.T) {
	tests := []struct {
		month int
		want  Season
	}{
		{12, SeasonSummer}, {1, SeasonSummer}, {2, SeasonSummer},
		{3, SeasonAutumn}, {4, SeasonAutumn}, {5, SeasonAutumn},
		{6, SeasonWinter}, {7, SeasonWinter}, {8, SeasonWinter},
		{9, SeasonSpring}, {10, SeasonSpring}, {11, SeasonSpring},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, SeasonOf(tc.month), "month %d", tc.month)
	}
}

func TestSeason_English(t *testing.T) {
	assert.Equal(t, "SUMMER", SeasonOf(1).English())
	assert.Equal(t, "AUTUMN", SeasonOf(4).English())
	assert.Equal(t, "WINTER", SeasonOf(7).English())
	assert.Equal(t, "SPRING", SeasonOf(10).English())
	assert.Equal(t, "UNKNOWN", SeasonUnknown.English())
}
