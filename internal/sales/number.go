package sales

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is a lenient numeric payload field. It accepts JSON numbers and
// numeric strings; anything else parses as invalid.
type Number struct {
	raw string
}

// NumberOf builds a Number from a float.
func NumberOf(f float64) *Number {
	return &Number{raw: strconv.FormatFloat(f, 'f', -1, 64)}
}

// UnmarshalJSON implements json.Unmarshaler.
func (n *Number) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if strings.HasPrefix(s, `"`) {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		s = strings.TrimSpace(str)
	}
	n.raw = s
	return nil
}

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) {
	if f, ok := n.Float(); ok {
		return []byte(strconv.FormatFloat(f, 'f', -1, 64)), nil
	}
	return json.Marshal(n.raw)
}

// Float parses the value. ok is false for nil, empty or non-numeric input.
func (n *Number) Float() (float64, bool) {
	if n == nil || n.raw == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(n.raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Int parses the value and truncates toward zero.
func (n *Number) Int() (int64, bool) {
	f, ok := n.Float()
	if !ok {
		return 0, false
	}
	return int64(f), true
}

// FloatOr returns the parsed value or def when invalid.
func (n *Number) FloatOr(def float64) float64 {
	if f, ok := n.Float(); ok {
		return f
	}
	return def
}

// IntOr returns the parsed value or def when invalid.
func (n *Number) IntOr(def int64) int64 {
	if i, ok := n.Int(); ok {
		return i
	}
	return def
}
