package handlers

import (
	"net/http"

	"quizgen-backend/internal/middleware"
	"quizgen-backend/internal/models"
	"quizgen-backend/internal/services"
)

type AccessHandler struct {
	access *services.AccessService
}

func NewAccessHandler(access *services.AccessService) *AccessHandler {
	return &AccessHandler{access: access}
}

func (h *AccessHandler) Share(w http.ResponseWriter, r *http.Request) {
	setID, ok := parseUUIDParam(w, r, "id")
	if !ok {
		return
	}

	var req models.ShareRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.access.Share(r.Context(), middleware.GetUserID(r.Context()), setID, req)
	if err != nil {
		handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, res)
}
