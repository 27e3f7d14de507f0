package service

// Broadcaster interface for WebSocket fan-out (avoids import cycle)
type Broadcaster interface {
	Broadcast(sessionID string, msgType string, payload interface{})
	DisconnectUser(sessionID, userID string)
	CloseSession(sessionID string)
}
