package sales

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Window is an inclusive calendar-date range.
type Window struct {
	Start time.Time
	End   time.Time
}

// Date returns midnight UTC of the given calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Day truncates t to its calendar day in UTC, keeping the wall-clock date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return Date(y, m, d)
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// AddMonths shifts a date by n calendar months, clamping the day to the
// length of the target month.
func AddMonths(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	first := Date(y, m, 1).AddDate(0, n, 0)
	if last := DaysIn(first.Year(), first.Month()); d > last {
		d = last
	}
	return Date(first.Year(), first.Month(), d)
}

// DaysIn returns the number of days in the month.
func DaysIn(year int, month time.Month) int {
	return Date(year, month+1, 0).Day()
}

// MonthWindow covers one whole calendar month.
func MonthWindow(year int, month time.Month) Window {
	return Window{
		Start: Date(year, month, 1),
		End:   Date(year, month, DaysIn(year, month)),
	}
}

// NextMonth returns the calendar month after the one containing today.
func NextMonth(today time.Time) Window {
	next := AddMonths(Date(today.Year(), today.Month(), 1), 1)
	return MonthWindow(next.Year(), next.Month())
}

// Valid reports whether Start is not after End.
func (w Window) Valid() bool {
	return !w.Start.After(w.End)
}

// Months lists the distinct calendar months the window spans, in order of
// first appearance.
func (w Window) Months() []time.Month {
	var months []time.Month
	seen := make(map[time.Month]bool)
	cur := Date(w.Start.Year(), w.Start.Month(), 1)
	end := Date(w.End.Year(), w.End.Month(), 1)
	for !cur.After(end) && len(months) < 12 {
		if !seen[cur.Month()] {
			seen[cur.Month()] = true
			months = append(months, cur.Month())
		}
		cur = cur.AddDate(0, 1, 0)
	}
	return months
}

// SingleMonth reports whether the window lies inside one calendar month.
func (w Window) SingleMonth() bool {
	return w.Start.Year() == w.End.Year() && w.Start.Month() == w.End.Month()
}

// Midpoint returns the day halfway between Start and End.
func (w Window) Midpoint() time.Time {
	days := int(w.End.Sub(w.Start).Hours() / 24)
	return Day(w.Start).AddDate(0, 0, days/2)
}

// ReferenceMonth is the month a forecast for this window is stamped with:
// the window's own month when it covers one, otherwise its midpoint.
func (w Window) ReferenceMonth() (int, time.Month) {
	if w.SingleMonth() {
		return w.Start.Year(), w.Start.Month()
	}
	mid := w.Midpoint()
	return mid.Year(), mid.Month()
}

// String renders the window as "start → end".
func (w Window) String() string {
	return FormatDate(w.Start) + " → " + FormatDate(w.End)
}
