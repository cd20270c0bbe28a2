// Package features turns sales datasets into the numeric matrices the
// forecasting model trains and predicts on.
package features

import (
	"errors"
	"fmt"
	"sort"

	"github.com/boutique-ia/forecast-engine/internal/observability"
	"github.com/boutique-ia/forecast-engine/internal/sales"
)

// Feature names, as stored in the model bundle.
const (
	Price = "precio"
	Month = "mes"
	Year  = "anio"

	encodedSuffix = "_encoded"
)

// ErrNoFeatureSpace is returned when inference runs before a feature space
// was fitted or loaded.
var ErrNoFeatureSpace = errors.New("feature space not fitted")

// Categorical columns considered for label encoding, in feature order.
var Categoricals = []string{"marca", "genero", "tipoPrenda", "talla", "temporada"}

var categoricalColumns = map[string]sales.ColumnSet{
	"genero":     sales.ColGender,
	"tipoPrenda": sales.ColGarmentType,
	"talla":      sales.ColSize,
	"temporada":  sales.ColSeason,
}

// Matrix is a row-major feature matrix.
type Matrix [][]float64

// Cols returns the number of columns, 0 for an empty matrix.
func (m Matrix) Cols() int {
	if len(m) == 0 {
		return 0
	}
	return len(m[0])
}

// Space is the ordered list of feature names a model was trained on.
type Space []string

// Encoded returns the feature name for a label-encoded column.
func Encoded(col string) string {
	return col + encodedSuffix
}

// Encoder builds feature matrices. Training fixes the feature space and fits
// one label encoder per categorical column; inference reuses both.
type Encoder struct {
	Space    Space
	Encoders map[string]*LabelEncoder
	logger   *observability.Logger
}

// NewEncoder creates an empty encoder.
func NewEncoder(logger *observability.Logger) *Encoder {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Encoder{
		Encoders: make(map[string]*LabelEncoder),
		logger:   logger.WithComponent("features"),
	}
}

// Restore creates an encoder from a persisted space and label encoders.
func Restore(space Space, encoders map[string]*LabelEncoder, logger *observability.Logger) *Encoder {
	e := NewEncoder(logger)
	e.Space = space
	for k, v := range encoders {
		e.Encoders[k] = v
	}
	return e
}

// Prepare encodes ds. In training mode the feature space is derived from the
// columns present and the target vector holds units sold; otherwise the
// fitted space is used as is, missing features are filled with 0 and the
// target is nil.
func (e *Encoder) Prepare(ds sales.Dataset, training bool) (Matrix, []float64, error) {
	present := presentCategoricals(ds)

	if training {
		e.Space = e.fitSpace(ds, present)
	} else if len(e.Space) == 0 {
		return nil, nil, ErrNoFeatureSpace
	}

	columns := make([][]float64, len(e.Space))
	var missing []string
	for j, name := range e.Space {
		col, ok := e.column(ds, name, present)
		if !ok {
			missing = append(missing, name)
			col = make([]float64, ds.Len())
		}
		columns[j] = col
	}
	if len(missing) > 0 {
		e.logger.Warn().Strs("features", missing).Msg("missing features filled with 0")
	}

	X := make(Matrix, ds.Len())
	for i := range X {
		row := make([]float64, len(e.Space))
		for j := range columns {
			row[j] = columns[j][i]
		}
		X[i] = row
	}

	var y []float64
	if training {
		y = make([]float64, ds.Len())
		for i, r := range ds.Records {
			y[i] = float64(r.UnitsSold)
		}
	}

	e.logger.Debug().
		Int("rows", ds.Len()).
		Strs("features", e.Space).
		Bool("training", training).
		Msg("features prepared")

	return X, y, nil
}

func (e *Encoder) fitSpace(ds sales.Dataset, present []string) Space {
	space := Space{Price, Month}
	if ds.HasColumn(sales.ColYear) {
		space = append(space, Year)
	} else {
		e.logger.Warn().Msg("no year column, training without it")
	}

	for _, col := range present {
		if _, fitted := e.Encoders[col]; !fitted {
			e.Encoders[col] = FitLabelEncoder(categoricalValues(ds, col))
			e.logger.Debug().Str("column", col).Int("classes", len(e.Encoders[col].Classes)).Msg("label encoder fitted")
		}
		space = append(space, Encoded(col))
	}
	return space
}

func (e *Encoder) column(ds sales.Dataset, name string, present []string) ([]float64, bool) {
	out := make([]float64, ds.Len())
	switch name {
	case Price:
		for i, r := range ds.Records {
			out[i] = r.Price
		}
		return out, true
	case Month:
		if !ds.HasColumn(sales.ColMonth) {
			return nil, false
		}
		for i, r := range ds.Records {
			out[i] = float64(r.Month)
		}
		return out, true
	case Year:
		if !ds.HasColumn(sales.ColYear) {
			return nil, false
		}
		for i, r := range ds.Records {
			out[i] = float64(r.Year)
		}
		return out, true
	}

	col, ok := decodedName(name)
	if !ok || !contains(present, col) {
		return nil, false
	}
	enc, ok := e.Encoders[col]
	if !ok {
		return nil, false
	}

	values := categoricalValues(ds, col)
	unseen := 0
	for i, v := range values {
		code, known := enc.Transform(v)
		if !known {
			unseen++
		}
		out[i] = float64(code)
	}
	if unseen > 0 {
		e.logger.Warn().Str("column", col).Int("rows", unseen).Msg("unseen categories encoded as 0")
	}
	return out, true
}

func presentCategoricals(ds sales.Dataset) []string {
	var present []string
	for _, col := range Categoricals {
		if c, optional := categoricalColumns[col]; optional && !ds.HasColumn(c) {
			continue
		}
		present = append(present, col)
	}
	return present
}

func categoricalValues(ds sales.Dataset, col string) []string {
	out := make([]string, ds.Len())
	for i, r := range ds.Records {
		switch col {
		case "marca":
			out[i] = r.Brand
		case "genero":
			out[i] = r.Gender
		case "tipoPrenda":
			out[i] = r.GarmentType
		case "talla":
			out[i] = r.Size
		case "temporada":
			out[i] = string(r.Season)
		}
	}
	return out
}

func decodedName(feature string) (string, bool) {
	if len(feature) <= len(encodedSuffix) || feature[len(feature)-len(encodedSuffix):] != encodedSuffix {
		return "", false
	}
	return feature[:len(feature)-len(encodedSuffix)], true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// LabelEncoder maps category strings to their index in a sorted class list.
type LabelEncoder struct {
	Classes []string `json:"classes"`
}

// FitLabelEncoder builds an encoder over the distinct values, sorted.
func FitLabelEncoder(values []string) *LabelEncoder {
	seen := make(map[string]bool, len(values))
	var classes []string
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			classes = append(classes, v)
		}
	}
	sort.Strings(classes)
	return &LabelEncoder{Classes: classes}
}

// Transform returns the code for v. Unknown values map to 0 with ok=false.
func (e *LabelEncoder) Transform(v string) (code int, ok bool) {
	i := sort.SearchStrings(e.Classes, v)
	if i < len(e.Classes) && e.Classes[i] == v {
		return i, true
	}
	return 0, false
}

// Validate checks that the class list is sorted and free of duplicates.
func (e *LabelEncoder) Validate() error {
	for i := 1; i < len(e.Classes); i++ {
		if e.Classes[i-1] >= e.Classes[i] {
			return fmt.Errorf("label classes not strictly sorted at %d", i)
		}
	}
	return nil
}
