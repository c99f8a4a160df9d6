package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDContextKey = "request_id"

func requestIDFromContext(c *gin.Context) string {
	if val, ok := c.Get(requestIDContextKey); ok {
		if id, ok := val.(string); ok && id != "" {
			return id
		}
	}

	requestID := c.GetHeader("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	c.Set(requestIDContextKey, requestID)
	return requestID
}

// userEmailFromContext resolves the acting identity for audit events,
// preferring the request body's sender over the transport header.
func userEmailFromContext(c *gin.Context, sender string) *string {
	if sender != "" {
		return &sender
	}
	if header := c.GetHeader("X-User-Email"); header != "" {
		return &header
	}
	return nil
}
