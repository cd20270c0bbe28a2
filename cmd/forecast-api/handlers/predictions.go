package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/boutique-ia/forecast-engine/internal/observability"
	"github.com/boutique-ia/forecast-engine/internal/prediction"
	"github.com/boutique-ia/forecast-engine/internal/storage"
)

// PredictionService generates ranked forecasts.
type PredictionService interface {
	Generate(ctx context.Context, req prediction.Request) (*prediction.Result, error)
	ModelAvailable() bool
}

// RunLister lists recorded runs.
type RunLister interface {
	List(ctx context.Context, filter storage.RunFilter) ([]*storage.Run, error)
}

// PredictionHandler serves forecasts and run history.
type PredictionHandler struct {
	logger      *observability.Logger
	service     PredictionService
	runs        RunLister
	defaultTopN int
	now         func() time.Time
}

// NewPredictionHandler creates a new prediction handler. runs may be nil when
// run history is disabled.
func NewPredictionHandler(logger *observability.Logger, service PredictionService, runs RunLister, defaultTopN int, now func() time.Time) *PredictionHandler {
	if now == nil {
		now = time.Now
	}
	return &PredictionHandler{
		logger:      logger,
		service:     service,
		runs:        runs,
		defaultTopN: defaultTopN,
		now:         now,
	}
}

// Predict handles GET /predictions.
func (h *PredictionHandler) Predict(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if !h.service.ModelAvailable() {
		writeError(w, http.StatusServiceUnavailable,
			"El modelo de predicción no está disponible. Por favor, entrena el modelo primero.", "")
		return
	}

	q := r.URL.Query()
	req, err := prediction.ParseRequest(prediction.Params{
		Start:       q.Get("fecha_inicio"),
		End:         q.Get("fecha_fin"),
		TopN:        q.Get("top_n"),
		Brand:       q.Get("marca"),
		Gender:      q.Get("genero"),
		GarmentType: q.Get("tipoPrenda"),
	}, h.now(), h.defaultTopN)
	if err != nil {
		status, msg := errorStatus(err)
		writeError(w, status, msg, "")
		return
	}

	result, err := h.service.Generate(ctx, req)
	if err != nil {
		h.logger.WithContext(ctx).Error().Err(err).Window(req.Window.Start, req.Window.End).Msg("prediction failed")
		status, msg := errorStatus(err)
		writeError(w, status, msg, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// RunsResponseDTO is the run history listing.
type RunsResponseDTO struct {
	Runs  []*storage.Run `json:"runs"`
	Count int            `json:"count"`
}

// ListRuns handles GET /predictions/runs.
func (h *PredictionHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		writeError(w, http.StatusServiceUnavailable, "run history disabled", "")
		return
	}

	filter := storage.RunFilter{Kind: storage.RunKind(r.URL.Query().Get("kind"))}
	switch filter.Kind {
	case "", storage.RunKindTraining, storage.RunKindPrediction:
	default:
		writeError(w, http.StatusBadRequest, "invalid kind", "kind must be training or prediction")
		return
	}

	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit", v)
			return
		}
		filter.Limit = limit
	}

	runs, err := h.runs.List(r.Context(), filter)
	if err != nil {
		h.logger.WithContext(r.Context()).Error().Err(err).Msg("failed to list runs")
		writeError(w, http.StatusInternalServerError, "failed to list runs", err.Error())
		return
	}
	if runs == nil {
		runs = []*storage.Run{}
	}

	writeJSON(w, http.StatusOK, RunsResponseDTO{Runs: runs, Count: len(runs)})
}
