package ws

import "time"

// Conn is the subset of *websocket.Conn the registry and hub depend on.
// Narrowing the type keeps fan-out testable without real network connections.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// ConnInfo carries request metadata captured at handshake time, used for
// lifecycle events and audit correlation.
type ConnInfo struct {
	ConnID      string
	Identity    string
	DeviceID    string
	IP          string
	RequestID   string
	TraceID     string
	ConnectedAt time.Time
}
