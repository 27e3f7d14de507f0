package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"snakearena/internal/model"
	"snakearena/internal/service"
	"snakearena/internal/transport/rest/middleware"
)

// GameHandler handles multiplayer game endpoints
type GameHandler struct {
	games *service.GameService
}

// NewGameHandler creates a new game handler
func NewGameHandler(games *service.GameService) *GameHandler {
	return &GameHandler{games: games}
}

// Create handles POST /v1/multiplayer/create
func (h *GameHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req model.CreateGameRequest
	if err := decodeOptional(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.games.CreateGame(r.Context(), userID, &req)
	if err != nil {
		writeGameError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, resp)
}

// Join handles POST /v1/multiplayer/join
func (h *GameHandler) Join(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req model.JoinGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.games.JoinGame(r.Context(), userID, req.RoomCode)
	if err != nil {
		writeGameError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /v1/multiplayer/game/{gameId}
func (h *GameHandler) Get(w http.ResponseWriter, r *http.Request) {
	info, err := h.games.GetGame(mux.Vars(r)["gameId"])
	if err != nil {
		writeGameError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

// Start handles POST /v1/multiplayer/game/{gameId}/start
func (h *GameHandler) Start(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]
	userID := middleware.GetUserID(r.Context())

	if err := h.games.StartGame(r.Context(), userID, gameID); err != nil {
		writeGameError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": string(model.GameCountdown)})
}

// Leave handles POST /v1/multiplayer/game/{gameId}/leave
func (h *GameHandler) Leave(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]
	userID := middleware.GetUserID(r.Context())

	if err := h.games.LeaveGame(r.Context(), userID, gameID); err != nil {
		writeGameError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "left"})
}

// Current handles GET /v1/multiplayer/current
func (h *GameHandler) Current(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.games.CurrentGame(middleware.GetUserID(r.Context())))
}

// History handles GET /v1/multiplayer/history
func (h *GameHandler) History(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20, 100)

	records, err := h.games.History(r.Context(), middleware.GetUserID(r.Context()), int64(limit))
	if err != nil {
		writeGameError(w, err)
		return
	}
	if records == nil {
		records = []*model.GameRecord{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"games": records})
}

// queryInt reads a positive integer parameter, clamped to max
func queryInt(r *http.Request, name string, def, max int) int {
	n, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
