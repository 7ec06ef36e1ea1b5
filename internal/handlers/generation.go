package handlers

import (
	"io"
	"net/http"

	"quizgen-backend/internal/middleware"
	"quizgen-backend/internal/models"
	"quizgen-backend/internal/services"
)

type GenerationHandler struct {
	generation *services.GenerationService
}

func NewGenerationHandler(generation *services.GenerationService) *GenerationHandler {
	return &GenerationHandler{generation: generation}
}

func (h *GenerationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateSetRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	set, err := h.generation.CreateSet(r.Context(), middleware.GetUserID(r.Context()), req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, set)
}

func (h *GenerationHandler) List(w http.ResponseWriter, r *http.Request) {
	sets, err := h.generation.ListSets(r.Context(), middleware.GetUserID(r.Context()))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, sets)
}

func (h *GenerationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	setID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	if err := h.generation.DeleteSet(r.Context(), middleware.GetUserID(r.Context()), setID); err != nil {
		handleServiceError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *GenerationHandler) Get(w http.ResponseWriter, r *http.Request) {
	setID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	detail, err := h.generation.GetSet(r.Context(), middleware.GetUserID(r.Context()), setID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

func (h *GenerationHandler) Generate(w http.ResponseWriter, r *http.Request) {
	setID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	var req models.StartGenerationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.generation.Dispatch(r.Context(), middleware.GetUserID(r.Context()), setID, req.NumQuestions)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusAccepted, res)
}

func (h *GenerationHandler) Status(w http.ResponseWriter, r *http.Request) {
	setID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	status, err := h.generation.Status(r.Context(), middleware.GetUserID(r.Context()), setID)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, status)
}

// Webhook receives the worker's completion callback. The body is parsed by
// the service so that malformed deliveries never touch stored state.
func (h *GenerationHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResp("VALIDATION_ERROR", "Could not read request body", r))
		return
	}

	delivery, err := services.ParseWebhook(body, r.URL.Query().Get("job_id"))
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	res, err := h.generation.HandleWebhook(r.Context(), delivery)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}
