package nlp

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/boutique-ia/forecast-engine/internal/sales"
)

// DetectFormat returns pdf when mentioned, otherwise excel.
func DetectFormat(text string) Format {
	if strings.Contains(text, "pdf") {
		return FormatPDF
	}
	return FormatExcel
}

// DetectCurrency returns the first currency marker found, or "".
func DetectCurrency(text string) Currency {
	switch {
	case containsAny(text, "bs", "boliviano"):
		return CurrencyBs
	case containsAny(text, "dólar", "usd"):
		return CurrencyUSD
	case strings.Contains(text, "euro"):
		return CurrencyEUR
	}
	return ""
}

var (
	agoMonthsRe = regexp.MustCompile(`hace\s+(\d+)\s+mes(?:es)?`)
	agoYearsRe  = regexp.MustCompile(`hace\s+(un|una|\d+)\s+año(?:s)?`)
)

// DetectTimeRange resolves relative date phrases against today. Checks run in
// priority order: last year, this year, this month, last month, "hace N
// meses", "hace N años"; anything else means the current month to date.
func DetectTimeRange(text string, today time.Time) Range {
	today = sales.Day(today)
	year, month := today.Year(), today.Month()
	monthStart := sales.Date(year, month, 1)

	switch {
	case strings.Contains(text, "año pasado"):
		return Range{Start: sales.Date(year-1, time.January, 1), End: sales.Date(year-1, time.December, 31)}
	case strings.Contains(text, "este año"):
		return Range{Start: sales.Date(year, time.January, 1), End: today}
	case containsAny(text, "este mes", "mes actual"):
		return Range{Start: monthStart, End: today}
	case strings.Contains(text, "mes pasado"):
		start := sales.AddMonths(monthStart, -1)
		return Range{Start: start, End: monthStart.AddDate(0, 0, -1)}
	case strings.Contains(text, "hace"):
		if m := agoMonthsRe.FindStringSubmatch(text); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				return Range{Start: sales.AddMonths(today, -n), End: today}
			}
		}
		if m := agoYearsRe.FindStringSubmatch(text); m != nil {
			n := 1
			if m[1] != "un" && m[1] != "una" {
				if v, err := strconv.Atoi(m[1]); err == nil {
					n = v
				}
			}
			return Range{Start: sales.AddMonths(today, -12*n), End: today}
		}
	}

	return Range{Start: monthStart, End: today}
}

type vocabEntry struct {
	phrase string
	code   string
}

// firstMatch returns the code of the first entry whose phrase occurs in text.
func firstMatch(text string, vocab []vocabEntry) string {
	for _, e := range vocab {
		if strings.Contains(text, e.phrase) {
			return e.code
		}
	}
	return ""
}

type patternEntry struct {
	re   *regexp.Regexp
	code string
}

func firstPattern(text string, patterns []patternEntry) string {
	for _, p := range patterns {
		if p.re.MatchString(text) {
			return p.code
		}
	}
	return ""
}

// detectPaymentType and detectSaleType are shared by both domains.
func detectPaymentType(text string) string {
	switch {
	case containsAny(text, "crédito", "credito"):
		return "CREDITO"
	case strings.Contains(text, "contado"):
		return "CONTADO"
	}
	return ""
}

func detectSaleType(text string) string {
	switch {
	case containsAny(text, "física", "fisica"):
		return "FISICA"
	case containsAny(text, "online", "virtual", "web"):
		return "ONLINE"
	}
	return ""
}
