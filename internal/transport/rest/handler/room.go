package handler

import (
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	qrcode "github.com/skip2/go-qrcode"

	"snakearena/internal/cache"
	"snakearena/internal/game"
)

const qrSize = 256

// RoomHandler serves public room previews
type RoomHandler struct {
	rooms     cache.RoomCache
	publicURL string
}

// NewRoomHandler creates a new room handler
func NewRoomHandler(rooms cache.RoomCache, publicURL string) *RoomHandler {
	return &RoomHandler{
		rooms:     rooms,
		publicURL: strings.TrimSuffix(publicURL, "/"),
	}
}

// Preview handles GET /v1/multiplayer/rooms/{code}
func (h *RoomHandler) Preview(w http.ResponseWriter, r *http.Request) {
	code, err := game.NormalizeCode(mux.Vars(r)["code"])
	if err != nil {
		writeGameError(w, err)
		return
	}

	meta, err := h.rooms.GetMeta(r.Context(), code)
	if err != nil {
		log.Printf("Room preview %s failed: %v", code, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if meta == nil {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}

	writeJSON(w, http.StatusOK, meta)
}

// QR handles GET /v1/multiplayer/rooms/{code}/qr
func (h *RoomHandler) QR(w http.ResponseWriter, r *http.Request) {
	code, err := game.NormalizeCode(mux.Vars(r)["code"])
	if err != nil {
		writeGameError(w, err)
		return
	}

	meta, err := h.rooms.GetMeta(r.Context(), code)
	if err != nil {
		log.Printf("Room preview %s failed: %v", code, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if meta == nil {
		writeError(w, http.StatusNotFound, "room not found")
		return
	}

	png, err := qrcode.Encode(h.publicURL+"/join/"+code, qrcode.Medium, qrSize)
	if err != nil {
		log.Printf("QR code for %s failed: %v", code, err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}
