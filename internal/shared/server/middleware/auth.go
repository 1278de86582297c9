package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docchat-backend/internal/shared/auth"
	"docchat-backend/internal/shared/server/respond"
)

const (
	userIDKey    = "userId"
	userEmailKey = "userEmail"
)

// TokenVerifier resolves a session token to its claims.
type TokenVerifier interface {
	Verify(token string) (auth.Claims, error)
}

// SessionGuard validates the session cookie or a Bearer header and stores
// identity in context. A cookie that fails verification does not hide a valid
// Bearer token. Missing and invalid tokens produce the same 401.
func SessionGuard(verifier TokenVerifier, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		var (
			claims auth.Claims
			ok     bool
		)
		for _, token := range tokensFromRequest(c, cookieName) {
			if v, err := verifier.Verify(token); err == nil {
				claims, ok = v, true
				break
			}
		}
		if !ok {
			unauthorized(c)
			return
		}

		c.Set(userIDKey, claims.UserID())
		if claims.Email != "" {
			c.Set(userEmailKey, claims.Email)
		}
		c.Next()
	}
}

// tokensFromRequest returns the cookie token then the Bearer token, skipping
// blanks.
func tokensFromRequest(c *gin.Context, cookieName string) []string {
	var tokens []string
	if cookieName != "" {
		if v, err := c.Cookie(cookieName); err == nil && strings.TrimSpace(v) != "" {
			tokens = append(tokens, strings.TrimSpace(v))
		}
	}
	authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
	if strings.HasPrefix(authHeader, "Bearer ") {
		if v := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer ")); v != "" {
			tokens = append(tokens, v)
		}
	}
	return tokens
}

func unauthorized(c *gin.Context) {
	respond.Error(c, http.StatusUnauthorized, "unauthorized", "Unauthorized", nil)
}

// UserIDFromContext fetches the user ID set by the session guard.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// UserEmailFromContext fetches the user email set by the session guard.
func UserEmailFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(userEmailKey)
	if email, ok := val.(string); ok {
		return email
	}
	return ""
}
