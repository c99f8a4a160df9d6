package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"printdesk-chat/internal/repositories"
	"printdesk-chat/internal/telemetry"
)

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router *gin.Engine, emitter *telemetry.AuditEmitter, messageRepo repositories.MessageRepository, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if emitter == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "audit emitter not configured"})
			return
		}
		emitter.Emit(c.Request.Context(), "INFO", "audit test", requestIDFromContext(c), userEmailFromContext(c, ""))
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/debug/message-count", func(c *gin.Context) {
		count, err := messageRepo.CountMessages(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count messages"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"count": count})
	})
}
