package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/boutique-ia/forecast-engine/internal/nlp"
	"github.com/boutique-ia/forecast-engine/internal/observability"
	"github.com/boutique-ia/forecast-engine/internal/upstream"
)

// QueryAnalyzer turns text into a structured query for a domain.
type QueryAnalyzer interface {
	AnalyzeAs(entity nlp.Entity, text string) nlp.Query
}

// ReportFetcher fetches report rows for a parsed query.
type ReportFetcher interface {
	Report(ctx context.Context, q nlp.Query) ([]upstream.Row, error)
}

// TextLimits bounds the length of report text.
type TextLimits struct {
	Min int
	Max int
}

// ReportHandler parses report requests and fetches their rows.
type ReportHandler struct {
	logger   *observability.Logger
	analyzer QueryAnalyzer
	fetcher  ReportFetcher
	limits   TextLimits
}

// NewReportHandler creates a new report handler.
func NewReportHandler(logger *observability.Logger, analyzer QueryAnalyzer, fetcher ReportFetcher, limits TextLimits) *ReportHandler {
	if limits.Min <= 0 {
		limits.Min = 5
	}
	if limits.Max <= 0 {
		limits.Max = 1000
	}
	return &ReportHandler{
		logger:   logger,
		analyzer: analyzer,
		fetcher:  fetcher,
		limits:   limits,
	}
}

// ReportRequestDTO is the body of both report endpoints.
type ReportRequestDTO struct {
	Text string `json:"text"`
}

// ParseResponseDTO is the routed intent and extracted query.
type ParseResponseDTO struct {
	Intent nlp.Entity      `json:"intencion"`
	Score  nlp.IntentScore `json:"puntaje"`
	Query  nlp.Query       `json:"consulta"`
}

// ReportResponseDTO carries the query and the rows it matched.
type ReportResponseDTO struct {
	Intent nlp.Entity     `json:"intencion"`
	Query  nlp.Query      `json:"consulta"`
	Rows   []upstream.Row `json:"filas"`
	Count  int            `json:"total"`
}

// Parse handles POST /reports/parse.
func (h *ReportHandler) Parse(w http.ResponseWriter, r *http.Request) {
	text, ok := h.readText(w, r)
	if !ok {
		return
	}

	score := nlp.ScoreIntent(text)
	intent := nlp.DetectIntent(text)
	writeJSON(w, http.StatusOK, ParseResponseDTO{
		Intent: intent,
		Score:  score,
		Query:  h.analyzer.AnalyzeAs(intent, text),
	})
}

// Generate handles POST /reports.
func (h *ReportHandler) Generate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	text, ok := h.readText(w, r)
	if !ok {
		return
	}

	intent := nlp.DetectIntent(text)
	query := h.analyzer.AnalyzeAs(intent, text)

	rows, err := h.fetcher.Report(ctx, query)
	if err != nil {
		h.logger.WithContext(ctx).Error().Err(err).Str("intent", string(intent)).Msg("report fetch failed")
		status, msg := errorStatus(err)
		writeError(w, status, msg, err.Error())
		return
	}
	if rows == nil {
		rows = []upstream.Row{}
	}

	h.logger.WithContext(ctx).Info().
		Str("intent", string(intent)).
		Int("rows", len(rows)).
		Msg("report rows fetched")

	writeJSON(w, http.StatusOK, ReportResponseDTO{
		Intent: intent,
		Query:  query,
		Rows:   rows,
		Count:  len(rows),
	})
}

func (h *ReportHandler) readText(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req ReportRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Datos inválidos", "invalid request body")
		return "", false
	}

	if msg := h.validateText(req.Text); msg != "" {
		writeError(w, http.StatusBadRequest, "Datos inválidos", msg)
		return "", false
	}
	return strings.TrimSpace(req.Text), true
}

func (h *ReportHandler) validateText(raw string) string {
	if raw == "" {
		return "El campo text es obligatorio"
	}
	text := strings.TrimSpace(raw)
	if text == "" {
		return "El texto no puede contener solo espacios en blanco"
	}
	n := utf8.RuneCountInString(text)
	if n < h.limits.Min {
		return fmt.Sprintf("El texto debe tener al menos %d caracteres", h.limits.Min)
	}
	if n > h.limits.Max {
		return fmt.Sprintf("El texto no puede exceder %d caracteres", h.limits.Max)
	}
	return ""
}
