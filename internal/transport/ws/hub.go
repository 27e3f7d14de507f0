package ws

import (
	"bytes"
	"encoding/json"
	"log"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
)

// Encoding is the wire format negotiated by a connection
type Encoding int

const (
	EncodingJSON Encoding = iota
	EncodingMsgpack
)

// ParseEncoding maps the encoding query parameter to an Encoding
func ParseEncoding(s string) Encoding {
	if s == "msgpack" {
		return EncodingMsgpack
	}
	return EncodingJSON
}

// Message is the WebSocket envelope format
type Message struct {
	Type    string      `json:"type" msgpack:"type"`
	Payload interface{} `json:"payload" msgpack:"payload"`
}

func encode(enc Encoding, msg *Message) ([]byte, error) {
	if enc == EncodingMsgpack {
		var buf bytes.Buffer
		e := msgpack.NewEncoder(&buf)
		e.SetCustomStructTag("json") // payload models only carry json tags
		if err := e.Encode(msg); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	}
	return json.Marshal(msg)
}

// Connection represents a WebSocket connection watching one game
type Connection struct {
	SessionID string
	UserID    string
	Encoding  Encoding
	Send      chan []byte // closed by the hub when the connection is removed
}

// NewConnection creates a connection with the default send buffer
func NewConnection(sessionID, userID string, enc Encoding) *Connection {
	return &Connection{
		SessionID: sessionID,
		UserID:    userID,
		Encoding:  enc,
		Send:      make(chan []byte, 256),
	}
}

// Hub manages WebSocket connections per game. Every method is safe to call
// while holding a session lock; none of them block on a connection.
type Hub struct {
	mu       sync.Mutex
	sessions map[string]map[*Connection]struct{}
}

// NewHub creates a new WebSocket hub
func NewHub() *Hub {
	return &Hub{
		sessions: make(map[string]map[*Connection]struct{}),
	}
}

// Register adds a connection to its game's fan-out set with msgType as the
// first message in its queue. Broadcasts issued after Register returns are
// queued behind it.
func (h *Hub) Register(conn *Connection, msgType string, payload interface{}) error {
	data, err := encode(conn.Encoding, &Message{Type: msgType, Payload: payload})
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.sessions[conn.SessionID] == nil {
		h.sessions[conn.SessionID] = make(map[*Connection]struct{})
	}
	h.sessions[conn.SessionID][conn] = struct{}{}
	conn.Send <- data // fresh connection, the buffer is empty
	log.Printf("Player %s connected to game %s", conn.UserID, conn.SessionID)
	return nil
}

// Unregister removes a connection. Removing it twice is a no-op.
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.removeLocked(conn) {
		log.Printf("Player %s disconnected from game %s", conn.UserID, conn.SessionID)
	}
}

func (h *Hub) removeLocked(conn *Connection) bool {
	conns, ok := h.sessions[conn.SessionID]
	if !ok {
		return false
	}
	if _, ok := conns[conn]; !ok {
		return false
	}
	delete(conns, conn)
	close(conn.Send)
	if len(conns) == 0 {
		delete(h.sessions, conn.SessionID)
	}
	return true
}

// Broadcast sends a message to every connection of a game (implements service.Broadcaster).
// Connections whose buffer is full are dropped.
func (h *Hub) Broadcast(sessionID string, msgType string, payload interface{}) {
	h.mu.Lock()
	defer h.mu.Unlock()

	msg := &Message{Type: msgType, Payload: payload}
	encoded := make(map[Encoding][]byte, 2)

	var dead []*Connection
	for conn := range h.sessions[sessionID] {
		data, ok := encoded[conn.Encoding]
		if !ok {
			var err error
			data, err = encode(conn.Encoding, msg)
			if err != nil {
				log.Printf("Failed to encode %s for game %s: %v", msgType, sessionID, err)
				return
			}
			encoded[conn.Encoding] = data
		}
		select {
		case conn.Send <- data:
		default:
			dead = append(dead, conn)
		}
	}

	for _, conn := range dead {
		h.removeLocked(conn)
		log.Printf("Dropped slow connection of player %s in game %s", conn.UserID, sessionID)
	}
}

// SendTo sends a message to a single registered connection
func (h *Hub) SendTo(conn *Connection, msgType string, payload interface{}) bool {
	data, err := encode(conn.Encoding, &Message{Type: msgType, Payload: payload})
	if err != nil {
		log.Printf("Failed to encode %s for player %s: %v", msgType, conn.UserID, err)
		return false
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[conn.SessionID][conn]; !ok {
		return false
	}
	select {
	case conn.Send <- data:
		return true
	default:
		h.removeLocked(conn)
		return false
	}
}

// DisconnectUser closes every connection userID holds on a game (implements service.Broadcaster)
func (h *Hub) DisconnectUser(sessionID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.sessions[sessionID] {
		if conn.UserID == userID {
			h.removeLocked(conn)
		}
	}
}

// CloseSession closes every connection of a game (implements service.Broadcaster)
func (h *Hub) CloseSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.sessions[sessionID] {
		h.removeLocked(conn)
	}
}

// Count returns the number of connections watching a game
func (h *Hub) Count(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.sessions[sessionID])
}
