package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"quizgen-backend/internal/middleware"
	"quizgen-backend/internal/models"
	"quizgen-backend/internal/services"
)

const maxBodyBytes = 1 << 20

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func errorResp(code, message string, r *http.Request) models.ErrorResponse {
	return errorRespWithFields(code, message, nil, r)
}

func errorRespWithFields(code, message string, fields map[string]string, r *http.Request) models.ErrorResponse {
	return models.ErrorResponse{
		Error: models.APIError{
			Code:      code,
			Message:   message,
			Fields:    fields,
			RequestID: r.Header.Get(middleware.RequestIDHeader),
		},
	}
}

func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch e := err.(type) {
	case *services.ValidationError:
		writeJSON(w, http.StatusBadRequest, errorRespWithFields("VALIDATION_ERROR", "Validation failed", e.Fields, r))
	case *services.ForbiddenError:
		writeJSON(w, http.StatusForbidden, errorResp("FORBIDDEN", e.Message, r))
	case *services.NotFoundError:
		writeJSON(w, http.StatusNotFound, errorResp("NOT_FOUND", e.Message, r))
	case *services.ConflictError:
		writeJSON(w, http.StatusConflict, errorResp("CONFLICT", e.Message, r))
	case *services.NotReadyError:
		writeJSON(w, http.StatusConflict, errorResp("NOT_READY", e.Message, r))
	case *services.AlreadyUsedError:
		writeJSON(w, http.StatusConflict, errorResp("TOKEN_ALREADY_USED", e.Message, r))
	case *services.AlreadySubmittedError:
		writeJSON(w, http.StatusConflict, errorResp("ALREADY_SUBMITTED", e.Message, r))
	case *services.ExpiredError:
		writeJSON(w, http.StatusGone, errorResp("TOKEN_EXPIRED", e.Message, r))
	case *services.UpstreamError:
		log.Printf("✗ Upstream failure on %s %s: %v", r.Method, r.URL.Path, e)
		writeJSON(w, http.StatusServiceUnavailable, errorResp("UPSTREAM_UNAVAILABLE", e.Message, r))
	default:
		log.Printf("✗ %s %s: %v", r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusInternalServerError, errorResp("INTERNAL_ERROR", "An unexpected error occurred", r))
	}
}

// decodeJSON writes the 400 itself and reports whether the caller may go on.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResp("VALIDATION_ERROR", "Request body too large", r))
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid request body", r))
		return false
	}
	return true
}

func parseUUIDParam(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Invalid "+name, r))
		return uuid.Nil, false
	}
	return id, true
}
