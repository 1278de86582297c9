package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"docchat-backend/internal/shared/telemetry"
)

const (
	// DocumentIDKey is set by handlers that resolved a document.
	DocumentIDKey = "documentId"
	// ChatOutcomeKey is set by the chat handler to the pipeline's terminal state.
	ChatOutcomeKey = "chatOutcome"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"status":      c.Writer.Status(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"user_id":     UserIDFromContext(c),
			"document_id": c.GetString(DocumentIDKey),
			"client_ip":   c.ClientIP(),
			"user_agent":  c.Request.UserAgent(),
		}
		if outcome := c.GetString(ChatOutcomeKey); outcome != "" {
			fields["chat_outcome"] = outcome
		}
		telemetry.Info("request.complete", fields)
	}
}
