package handler

import (
	"log"
	"net/http"

	"snakearena/internal/model"
	"snakearena/internal/service"
	"snakearena/internal/transport/rest/middleware"
)

// LeaderboardHandler handles score endpoints
type LeaderboardHandler struct {
	scores *service.ScoreService
}

// NewLeaderboardHandler creates a new leaderboard handler
func NewLeaderboardHandler(scores *service.ScoreService) *LeaderboardHandler {
	return &LeaderboardHandler{scores: scores}
}

// Top handles GET /v1/leaderboard
func (h *LeaderboardHandler) Top(w http.ResponseWriter, r *http.Request) {
	top := queryInt(r, "top", 20, 100)

	entries, err := h.scores.Top(r.Context(), top)
	if err != nil {
		log.Printf("Leaderboard failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"leaderboard": entries})
}

// Mine handles GET /v1/scores/me
func (h *LeaderboardHandler) Mine(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20, 100)

	scores, err := h.scores.History(r.Context(), middleware.GetUserID(r.Context()), int64(limit))
	if err != nil {
		log.Printf("Score history failed: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if scores == nil {
		scores = []*model.ScoreRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"scores": scores})
}
