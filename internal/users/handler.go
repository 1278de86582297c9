package users

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"docchat-backend/internal/shared/server/middleware"
	"docchat-backend/internal/shared/server/respond"
	"docchat-backend/internal/shared/telemetry"
)

// SessionMinter issues session tokens.
type SessionMinter interface {
	Mint(userID, email string) (string, time.Time, error)
}

type Handler struct {
	Svc      *Service
	Sessions SessionMinter
	Cookie   middleware.CookieOptions
}

func NewHandler(svc *Service, sessions SessionMinter, cookie middleware.CookieOptions) *Handler {
	return &Handler{Svc: svc, Sessions: sessions, Cookie: cookie}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userDTO struct {
	Email string `json:"email"`
}

// RegisterRoutes attaches the unauthenticated account routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/signup", h.signup)
	rg.POST("/login", h.login)
	rg.POST("/logout", h.logout)
}

// Protected returns the routes that need a verified session.
func (h *Handler) Protected() ProtectedRoutes {
	return ProtectedRoutes{h: h}
}

// ProtectedRoutes registers /auth/check behind the session guard.
type ProtectedRoutes struct {
	h *Handler
}

func (p ProtectedRoutes) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/auth/check", p.h.check)
}

func (h *Handler) signup(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "invalid_request", "All fields required", nil)
		return
	}

	user, err := h.Svc.Signup(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "invalid_request", "All fields required", nil)
		case errors.Is(err, ErrConflict):
			respond.Error(c, http.StatusConflict, "conflict", "User already exists", nil)
		default:
			telemetry.Error("users.signup_failed", map[string]any{"error": err})
			respond.Error(c, http.StatusInternalServerError, "internal_error", "Signup failed", nil)
		}
		return
	}

	if !h.startSession(c, user) {
		return
	}
	respond.OK(c, gin.H{"success": true, "user": userDTO{Email: user.Email}})
}

func (h *Handler) login(c *gin.Context) {
	var req credentialsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusUnauthorized, "invalid_credentials", "Invalid credentials", nil)
		return
	}

	user, err := h.Svc.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			respond.Error(c, http.StatusUnauthorized, "invalid_credentials", "Invalid credentials", nil)
			return
		}
		telemetry.Error("users.login_failed", map[string]any{"error": err})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Login failed", nil)
		return
	}

	if !h.startSession(c, user) {
		return
	}
	respond.OK(c, gin.H{"success": true, "user": userDTO{Email: user.Email}})
}

func (h *Handler) logout(c *gin.Context) {
	middleware.ClearSessionCookie(c, h.Cookie)
	respond.OK(c, gin.H{"success": true})
}

func (h *Handler) check(c *gin.Context) {
	respond.OK(c, gin.H{
		"isAuthenticated": true,
		"user": gin.H{
			"id":    middleware.UserIDFromContext(c),
			"email": middleware.UserEmailFromContext(c),
		},
	})
}

func (h *Handler) startSession(c *gin.Context, user User) bool {
	token, _, err := h.Sessions.Mint(user.ID, user.Email)
	if err != nil {
		telemetry.Error("users.session_mint_failed", map[string]any{"user_id": user.ID, "error": err})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "Session failed", nil)
		return false
	}
	middleware.SetSessionCookie(c, h.Cookie, token)
	return true
}
