// Package prediction turns a trained sales model and blended business data
// into ranked unit forecasts, and drives model training runs.
package prediction

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/boutique-ia/forecast-engine/internal/sales"
	"github.com/boutique-ia/forecast-engine/internal/upstream"
)

// Errors returned by the prediction service and trainer.
var (
	ErrModelNotReady    = errors.New("el modelo de predicción no está disponible, entrena el modelo primero")
	ErrInsufficientData = errors.New("insufficient training data")
)

// DefaultTopN is used when a request carries no usable top_n.
const DefaultTopN = 10

// ValidationError reports a malformed prediction request.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Params are the raw request parameters as received at the boundary.
type Params struct {
	Start       string // fecha_inicio, YYYY-MM-DD
	End         string // fecha_fin, YYYY-MM-DD
	TopN        string
	Brand       string
	Gender      string
	GarmentType string
}

// Request is a validated prediction request.
type Request struct {
	Window  sales.Window
	TopN    int // non-positive keeps every product
	Filters upstream.Filters
}

// ParseRequest validates p against today. Each missing date defaults to the
// matching bound of next calendar month. An unparsable or non-positive top_n
// falls back to defaultTopN.
func ParseRequest(p Params, today time.Time, defaultTopN int) (Request, error) {
	if defaultTopN <= 0 {
		defaultTopN = DefaultTopN
	}
	today = sales.Day(today)
	next := sales.NextMonth(today)

	start, err := parseDateParam(p.Start, next.Start)
	if err != nil {
		return Request{}, &ValidationError{Field: "fecha_inicio", Message: err.Error()}
	}
	end, err := parseDateParam(p.End, next.End)
	if err != nil {
		return Request{}, &ValidationError{Field: "fecha_fin", Message: err.Error()}
	}

	w := sales.Window{Start: start, End: end}
	if !w.Valid() {
		return Request{}, &ValidationError{
			Field:   "fecha_inicio",
			Message: "La fecha inicial no puede ser posterior a la fecha final",
		}
	}
	if w.End.Before(today) {
		return Request{}, &ValidationError{
			Field:   "fecha_fin",
			Message: fmt.Sprintf("Las fechas deben ser futuras. Hoy es %s", sales.FormatDate(today)),
		}
	}

	topN, err := strconv.Atoi(strings.TrimSpace(p.TopN))
	if err != nil || topN <= 0 {
		topN = defaultTopN
	}

	return Request{
		Window: w,
		TopN:   topN,
		Filters: upstream.Filters{
			Brand:       strings.TrimSpace(p.Brand),
			Gender:      strings.TrimSpace(p.Gender),
			GarmentType: strings.TrimSpace(p.GarmentType),
		},
	}, nil
}

func parseDateParam(value string, def time.Time) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return def, nil
	}
	t, err := sales.ParseDate(value)
	if err != nil {
		return time.Time{}, errors.New("Formato de fecha inválido. Use YYYY-MM-DD (ejemplo: 2025-12-01)")
	}
	return t, nil
}
