package handlers

import (
	"fmt"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"quizgen-backend/internal/middleware"
	"quizgen-backend/internal/models"
	"quizgen-backend/internal/services"
)

type AttemptHandler struct {
	attempts *services.AttemptService
}

func NewAttemptHandler(attempts *services.AttemptService) *AttemptHandler {
	return &AttemptHandler{attempts: attempts}
}

// Start opens the quiz behind an access code. The code is not consumed.
func (h *AttemptHandler) Start(w http.ResponseWriter, r *http.Request) {
	session, err := h.attempts.Start(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, session)
}

func (h *AttemptHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req models.SubmitAttemptRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.Code = chi.URLParam(r, "code")

	outcome, err := h.attempts.Submit(r.Context(), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, outcome)
}

func (h *AttemptHandler) Results(w http.ResponseWriter, r *http.Request) {
	setID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	results, err := h.attempts.Results(r.Context(), middleware.GetUserID(r.Context()), setID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, results)
}

// Export streams the set's attempts as a CSV download.
func (h *AttemptHandler) Export(w http.ResponseWriter, r *http.Request) {
	setID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	report, err := h.attempts.ResultsReport(r.Context(), middleware.GetUserID(r.Context()), setID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", services.ResultsFilename(report.Name)))
	w.WriteHeader(http.StatusOK)
	if err := services.WriteResultsCSV(w, report); err != nil {
		log.Printf("✗ Failed to write results export for %s: %v", setID, err)
	}
}
