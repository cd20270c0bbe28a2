// Package handlers provides HTTP handlers for the Forecast Engine API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/boutique-ia/forecast-engine/internal/model"
	"github.com/boutique-ia/forecast-engine/internal/prediction"
	"github.com/boutique-ia/forecast-engine/internal/upstream"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message, detail string) {
	resp := map[string]string{
		"error":   message,
		"message": message,
	}
	if detail != "" {
		resp["detail"] = detail
	}
	writeJSON(w, status, resp)
}

// errorStatus maps pipeline errors onto an HTTP status and a client message.
func errorStatus(err error) (int, string) {
	var verr *prediction.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Message
	case errors.Is(err, prediction.ErrModelNotReady),
		errors.Is(err, model.ErrNotTrained),
		errors.Is(err, model.ErrArtifactNotFound):
		return http.StatusServiceUnavailable, "El modelo de predicción no está disponible. Por favor, entrena el modelo primero."
	case errors.Is(err, prediction.ErrInsufficientData):
		return http.StatusUnprocessableEntity, "Datos insuficientes para entrenar el modelo"
	case errors.Is(err, upstream.ErrDataUnavailable):
		return http.StatusServiceUnavailable, "Error al conectar con el servicio de negocio"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "La solicitud excedió el tiempo límite"
	default:
		return http.StatusInternalServerError, "Error interno al procesar la solicitud"
	}
}
