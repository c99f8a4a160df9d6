package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"printdesk-chat/internal/models"
	"printdesk-chat/internal/observability"
	"printdesk-chat/internal/repositories"
)

var tracer trace.Tracer = otel.Tracer("printdesk-chat/ws")

// ChatWebSocketHandler handles the realtime chat channel.
type ChatWebSocketHandler struct {
	hub         *Hub
	messageRepo repositories.MessageRepository
}

// NewChatWebSocketHandler constructs a ChatWebSocketHandler.
func NewChatWebSocketHandler(hub *Hub, messageRepo repositories.MessageRepository) *ChatWebSocketHandler {
	return &ChatWebSocketHandler{hub: hub, messageRepo: messageRepo}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and runs the event read loop. Presence is
// registered when the client sends its join event, not at upgrade time.
func (h *ChatWebSocketHandler) Handle(c *gin.Context) {
	ctx, span := tracer.Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	publishLifecycle(ctx, "ws_connect", info, "")

	go h.readLoop(ctx, conn, info)
}

func (h *ChatWebSocketHandler) readLoop(ctx context.Context, conn *websocket.Conn, info ConnInfo) {
	var closeReason string
	defer func() {
		if identity, ok := h.hub.Unregister(conn); ok {
			info.Identity = identity
		}
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		publishLifecycle(ctx, "ws_disconnect", info, closeReason)
		conn.Close()
	}()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
				publishLifecycle(ctx, "ws_error", info, closeReason)
			}
			return
		}

		var event models.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			log.Printf("websocket: discarding malformed event: %v", err)
			continue
		}

		switch event.Type {
		case models.EventJoin:
			if event.Email == "" {
				continue
			}
			info.Identity = event.Email
			h.hub.Register(event.Email, conn, info)
			observability.IncWSEvent("ws_join")

		case models.EventSendMessage:
			if event.Sender == "" || event.Receiver == "" || event.Body == "" {
				log.Printf("websocket: send_message missing fields, dropped")
				continue
			}
			msg, err := h.messageRepo.Create(ctx, event.Sender, event.Receiver, event.Body)
			if err != nil {
				// No acknowledgement channel exists for this path; log and drop.
				log.Printf("websocket: failed to store message: %v", err)
				continue
			}
			observability.IncMessagesCreated()
			h.hub.MessageCreated(msg)

		case models.EventDeleteMessage:
			// Notification only. Persistence happens through the DELETE
			// endpoint; this legacy event broadcasts the id to everyone.
			if event.MessageID == "" {
				continue
			}
			h.hub.NotifyDeletedAll(event.MessageID)
			observability.IncMessagesDeleted()

		default:
			log.Printf("websocket: unknown event type %q, dropped", event.Type)
		}
	}
}

func publishLifecycle(ctx context.Context, name string, info ConnInfo, reason string) {
	_ = observability.PublishEvent(ctx, "ws_events.chat", observability.EventEnvelope{
		EventType: "ws_events",
		EventName: name,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"event":       name,
				"conn_id":     info.ConnID,
				"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"email":     info.Identity,
				"device_id": info.DeviceID,
				"ip":        info.IP,
			},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}
