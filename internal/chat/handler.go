package chat

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docchat-backend/internal/shared/server/middleware"
	"docchat-backend/internal/shared/server/respond"
	"docchat-backend/internal/shared/telemetry"
)

const messageRequired = "Message required"

// Handler exposes the pipeline over HTTP.
type Handler struct {
	Pipeline *Pipeline
}

func NewHandler(p *Pipeline) *Handler {
	return &Handler{Pipeline: p}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/chat", h.ask)
	rg.DELETE("/chat", h.deleteAll)
}

type askRequest struct {
	Message    string `json:"message"`
	Structured bool   `json:"structured"`
}

func (h *Handler) ask(c *gin.Context) {
	var req askRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Message) == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"reply": messageRequired, "message": messageRequired})
		return
	}

	reply, err := h.Pipeline.Ask(c.Request.Context(), Query{
		UserID:     middleware.UserIDFromContext(c),
		Question:   req.Message,
		Structured: req.Structured,
	})
	if reply.Outcome != "" {
		c.Set(middleware.ChatOutcomeKey, string(reply.Outcome))
	}
	if reply.DocumentID != "" {
		c.Set(middleware.DocumentIDKey, reply.DocumentID)
	}
	if err != nil {
		switch {
		case errors.Is(err, ErrUnauthenticated):
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Unauthorized", nil)
		case errors.Is(err, ErrEmptyQuestion):
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"reply": messageRequired, "message": messageRequired})
		default:
			telemetry.Error("chat.ask_failed", map[string]any{"user_id": middleware.UserIDFromContext(c), "error": err})
			respond.Error(c, http.StatusInternalServerError, "internal_error", "Something went wrong", nil)
		}
		return
	}

	respond.OK(c, gin.H{"reply": reply.Text})
}

func (h *Handler) deleteAll(c *gin.Context) {
	res, err := h.Pipeline.DeleteAll(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Unauthorized", nil)
		return
	}
	respond.OK(c, gin.H{
		"success": true,
		"message": "Chat history and documents cleared",
		"deleted": res.Deleted,
		"failed":  res.Failed,
	})
}
