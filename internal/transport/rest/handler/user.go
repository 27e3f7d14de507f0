package handler

import (
	"errors"
	"log"
	"net/http"

	"snakearena/internal/service"
	"snakearena/internal/transport/rest/middleware"
)

// UserHandler handles account endpoints
type UserHandler struct {
	identity *service.IdentityService
}

// NewUserHandler creates a new user handler
func NewUserHandler(identity *service.IdentityService) *UserHandler {
	return &UserHandler{identity: identity}
}

// Deactivate handles DELETE /v1/users/me
func (h *UserHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	err := h.identity.Deactivate(r.Context(), userID)
	switch {
	case errors.Is(err, service.ErrUserNotFound):
		writeError(w, http.StatusNotFound, err.Error())
		return
	case err != nil:
		log.Printf("Deactivate failed for %s: %v", userID, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	log.Printf("Account %s (%s) deactivated", middleware.GetUsername(r.Context()), userID)
	writeJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}
