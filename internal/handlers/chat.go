package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"printdesk-chat/internal/models"
	"printdesk-chat/internal/repositories"
	"printdesk-chat/internal/telemetry"
	"printdesk-chat/internal/ws"
)

// ChatHandler manages the conversation REST endpoints.
type ChatHandler struct {
	messageRepo repositories.MessageRepository
	hub         *ws.Hub
	adminEmail  string
	emitter     *telemetry.AuditEmitter
}

// NewChatHandler builds a ChatHandler.
func NewChatHandler(messageRepo repositories.MessageRepository, hub *ws.Hub, adminEmail string, emitter *telemetry.AuditEmitter) *ChatHandler {
	return &ChatHandler{
		messageRepo: messageRepo,
		hub:         hub,
		adminEmail:  adminEmail,
		emitter:     emitter,
	}
}

// GetMessages returns the ordered conversation between two identities with
// decrypted bodies. This query-parameter shape is the canonical one.
func (h *ChatHandler) GetMessages(c *gin.Context) {
	user1 := c.Query("user1")
	user2 := c.Query("user2")
	if user1 == "" || user2 == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing user parameters"})
		return
	}

	msgs, err := h.messageRepo.FindConversation(c.Request.Context(), user1, user2)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch messages"})
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}

	c.JSON(http.StatusOK, msgs)
}

// GetConversation returns the conversation between the given identity and
// the admin.
//
// Deprecated: older clients fetch by path segment; new clients should use
// GET /messages?user1=&user2=.
func (h *ChatHandler) GetConversation(c *gin.Context) {
	identity := c.Param("identity")
	if identity == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing user parameters"})
		return
	}

	msgs, err := h.messageRepo.FindConversation(c.Request.Context(), identity, h.adminEmail)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch messages"})
		return
	}
	if msgs == nil {
		msgs = []models.Message{}
	}

	c.JSON(http.StatusOK, msgs)
}

// PostMessage stores a message and fans it out to connected participants.
// The response echoes the plaintext body for the sender's immediate display.
func (h *ChatHandler) PostMessage(c *gin.Context) {
	var req struct {
		Sender   string `json:"sender" binding:"required"`
		Receiver string `json:"receiver" binding:"required"`
		Body     string `json:"message" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing required fields"})
		return
	}

	msg, err := h.messageRepo.Create(c.Request.Context(), req.Sender, req.Receiver, req.Body)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create message"})
		return
	}

	h.hub.MessageCreated(msg)
	h.emitter.Emit(c.Request.Context(), "INFO",
		fmt.Sprintf("message %s created", msg.ID),
		requestIDFromContext(c), userEmailFromContext(c, req.Sender))

	c.JSON(http.StatusCreated, msg)
}

// DeleteMessage hard-deletes a message and notifies the two conversation
// participants. Deleting an already deleted id returns 404.
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	id := c.Param("id")

	sender, receiver, err := h.messageRepo.DeleteByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Message not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete message"})
		return
	}

	h.hub.MessageDeleted(sender, receiver, id)
	h.emitter.Emit(c.Request.Context(), "INFO",
		fmt.Sprintf("message %s deleted", id),
		requestIDFromContext(c), userEmailFromContext(c, ""))

	c.JSON(http.StatusOK, gin.H{"message": "Message deleted successfully"})
}
