package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"

	"snakearena/internal/model"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for dev
	},
}

// TokenValidator validates bearer tokens
type TokenValidator interface {
	ValidateToken(token string) (*model.UserClaims, error)
}

// Games is the part of the game service the channel drives
type Games interface {
	// Admit checks membership and hands the current snapshot to attach
	// before any later broadcast of the game can be issued.
	Admit(userID, gameID string, attach func(*model.GameState)) error
	Move(userID, gameID string, dir model.Direction) bool
	StartGame(ctx context.Context, userID, gameID string) error
	LeaveGame(ctx context.Context, userID, gameID string) error
	Disconnect(userID, gameID string)
}

// Handler handles WebSocket connections
type Handler struct {
	hub   *Hub
	auth  TokenValidator
	games Games
}

// NewHandler creates a new WebSocket handler
func NewHandler(hub *Hub, auth TokenValidator, games Games) *Handler {
	return &Handler{
		hub:   hub,
		auth:  auth,
		games: games,
	}
}

// GameWS handles GET /v1/multiplayer/ws/{gameId}
func (h *Handler) GameWS(w http.ResponseWriter, r *http.Request) {
	gameID := mux.Vars(r)["gameId"]
	enc := ParseEncoding(r.URL.Query().Get("encoding"))

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		reject(wsConn, enc, "missing token")
		return
	}
	claims, err := h.auth.ValidateToken(token)
	if err != nil {
		reject(wsConn, enc, "invalid token")
		return
	}

	conn := NewConnection(gameID, claims.UserID, enc)
	var registerErr error
	err = h.games.Admit(claims.UserID, gameID, func(state *model.GameState) {
		registerErr = h.hub.Register(conn, model.MsgGameState, state)
	})
	if err == nil {
		err = registerErr
	}
	if err != nil {
		reject(wsConn, enc, err.Error())
		return
	}

	go h.writePump(wsConn, conn)
	go h.readPump(wsConn, conn)
}

// reject tells the client why it was refused and closes the channel
func reject(wsConn *websocket.Conn, enc Encoding, reason string) {
	defer wsConn.Close()

	data, err := encode(enc, &Message{Type: model.MsgError, Payload: model.ErrorNotice{Message: reason}})
	if err != nil {
		return
	}
	wsConn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := wsConn.WriteMessage(frameType(enc), data); err != nil {
		return
	}
	wsConn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason))
}

func frameType(enc Encoding) int {
	if enc == EncodingMsgpack {
		return websocket.BinaryMessage
	}
	return websocket.TextMessage
}

func decodeAction(enc Encoding, data []byte) (*model.PlayerAction, error) {
	var action model.PlayerAction
	var err error
	if enc == EncodingMsgpack {
		err = msgpack.Unmarshal(data, &action)
	} else {
		err = json.Unmarshal(data, &action)
	}
	if err != nil {
		return nil, err
	}
	return &action, nil
}

func (h *Handler) readPump(wsConn *websocket.Conn, conn *Connection) {
	defer func() {
		h.hub.Unregister(conn)
		wsConn.Close()
		h.games.Disconnect(conn.UserID, conn.SessionID)
	}()

	wsConn.SetReadLimit(maxMessageSize)
	wsConn.SetReadDeadline(time.Now().Add(pongWait))
	wsConn.SetPongHandler(func(string) error {
		wsConn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := wsConn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		action, err := decodeAction(conn.Encoding, data)
		if err != nil {
			continue // malformed input is ignored
		}
		if !h.handleAction(conn, action) {
			return
		}
	}
}

// handleAction applies one inbound action and reports whether to keep reading
func (h *Handler) handleAction(conn *Connection, action *model.PlayerAction) bool {
	switch action.Action {
	case model.ActionMove:
		h.games.Move(conn.UserID, conn.SessionID, action.Direction)
	case model.ActionStart:
		if err := h.games.StartGame(context.Background(), conn.UserID, conn.SessionID); err != nil {
			h.hub.SendTo(conn, model.MsgError, model.ErrorNotice{Message: err.Error()})
		}
	case model.ActionLeave:
		if err := h.games.LeaveGame(context.Background(), conn.UserID, conn.SessionID); err != nil {
			log.Printf("Leave failed for player %s in game %s: %v", conn.UserID, conn.SessionID, err)
		}
		return false
	}
	return true
}

func (h *Handler) writePump(wsConn *websocket.Conn, conn *Connection) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		wsConn.Close()
	}()

	for {
		select {
		case message, ok := <-conn.Send:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				wsConn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := wsConn.NextWriter(frameType(conn.Encoding))
			if err != nil {
				return
			}
			w.Write(message)

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			wsConn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := wsConn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
