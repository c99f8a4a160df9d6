package ws

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"printdesk-chat/internal/models"
	"printdesk-chat/internal/observability"
)

// Hub fans newly created and deleted messages out to connected parties
// through an injected presence registry. Delivery is best-effort: no retry,
// no buffering; a peer without a live connection discovers the message via
// its next fetch or poll.
type Hub struct {
	registry *Registry
	mu       sync.RWMutex
	info     map[Conn]ConnInfo
}

// NewHub creates a Hub backed by the given registry.
func NewHub(registry *Registry) *Hub {
	return &Hub{registry: registry, info: make(map[Conn]ConnInfo)}
}

// Register joins the identity in the presence registry and records the
// connection metadata. A previously registered connection for the same
// identity is closed.
func (h *Hub) Register(identity string, conn Conn, info ConnInfo) {
	info.Identity = identity
	h.mu.Lock()
	h.info[conn] = info
	h.mu.Unlock()

	if evicted := h.registry.Join(identity, conn); evicted != nil {
		evicted.Close()
		h.mu.Lock()
		delete(h.info, evicted)
		h.mu.Unlock()
	}
}

// Unregister removes the connection from the registry and drops its
// metadata. It reports the identity the connection was registered under.
func (h *Hub) Unregister(conn Conn) (string, bool) {
	h.mu.Lock()
	delete(h.info, conn)
	h.mu.Unlock()
	return h.registry.Leave(conn)
}

// MessageCreated pushes a new message to the receiver's connection and, when
// it is a different connection, to the sender's as well so other tabs or
// devices of the sender see the echo immediately.
func (h *Hub) MessageCreated(msg models.Message) {
	event := models.Event{Type: models.EventReceiveMessage, Message: &msg}

	receiverConn, receiverOnline := h.registry.Lookup(msg.Receiver)
	if receiverOnline {
		h.writeEvent(receiverConn, event)
	}
	if senderConn, ok := h.registry.Lookup(msg.Sender); ok && senderConn != receiverConn {
		h.writeEvent(senderConn, event)
	}
}

// MessageDeleted notifies the two conversation participants that a message
// was removed. The fan-out is scoped to the pair rather than broadcast.
func (h *Hub) MessageDeleted(sender, receiver, messageID string) {
	event := models.Event{Type: models.EventMessageDeleted, MessageID: messageID}

	senderConn, senderOnline := h.registry.Lookup(sender)
	if senderOnline {
		h.writeEvent(senderConn, event)
	}
	if receiverConn, ok := h.registry.Lookup(receiver); ok && receiverConn != senderConn {
		h.writeEvent(receiverConn, event)
	}
}

// NotifyDeletedAll broadcasts a deletion id to every connected identity.
// Kept for the legacy delete_message websocket event, which carries no
// participant information; only an opaque id is exposed.
func (h *Hub) NotifyDeletedAll(messageID string) {
	event := models.Event{Type: models.EventMessageDeleted, MessageID: messageID}
	for _, identity := range h.registry.Identities() {
		if conn, ok := h.registry.Lookup(identity); ok {
			h.writeEvent(conn, event)
		}
	}
}

func (h *Hub) writeEvent(conn Conn, event models.Event) {
	payload, _ := json.Marshal(event)
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		log.Printf("websocket write error: %v", err)
		conn.Close()
		h.publishWSError(conn, err)
		h.Unregister(conn)
	}
}

func (h *Hub) publishWSError(conn Conn, err error) {
	h.mu.RLock()
	info, ok := h.info[conn]
	h.mu.RUnlock()
	if !ok {
		return
	}

	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"event":       "ws_error",
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      err.Error(),
		},
		"identity": map[string]interface{}{
			"email":     info.Identity,
			"device_id": info.DeviceID,
			"ip":        info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), "ws_events.chat", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent("ws_error")
}
