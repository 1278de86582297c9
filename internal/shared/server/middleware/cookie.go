package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// CookieOptions describes how the session cookie is written.
type CookieOptions struct {
	Name     string
	TTL      time.Duration
	Secure   bool
	SameSite http.SameSite
}

// CookieOptionsFor derives cookie flags from the runtime environment.
// Production is served cross-site over TLS; everything else is same-site.
func CookieOptionsFor(env, name string, ttl time.Duration) CookieOptions {
	opts := CookieOptions{Name: name, TTL: ttl, SameSite: http.SameSiteLaxMode}
	if env == "production" {
		opts.Secure = true
		opts.SameSite = http.SameSiteNoneMode
	}
	return opts
}

// SetSessionCookie writes token as an HTTP-only cookie.
func SetSessionCookie(c *gin.Context, opts CookieOptions, token string) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     opts.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(opts.TTL / time.Second),
		Expires:  time.Now().Add(opts.TTL),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
}

// ClearSessionCookie expires the session cookie.
func ClearSessionCookie(c *gin.Context, opts CookieOptions) {
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     opts.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
}
