package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// CORS restricts cross-origin access to the configured frontend origins.
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	cfg.AllowHeaders = append(cfg.AllowHeaders, "X-Request-ID", "X-User-Email", "X-Device-Id")
	cfg.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	return cors.New(cfg)
}
