package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docchat-backend/internal/services/health"
	"docchat-backend/internal/shared/config"
	"docchat-backend/internal/shared/metrics"
	"docchat-backend/internal/shared/server/middleware"
	"docchat-backend/internal/shared/server/respond"
)

// RouteRegistrar attaches a feature's routes to a group.
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// RouterDeps carries everything NewRouter wires together.
type RouterDeps struct {
	Config   config.Config
	Sessions middleware.TokenVerifier
	// Public routes are reachable without a session.
	Public []RouteRegistrar
	// Protected routes run behind the session guard and rate limiter.
	Protected []RouteRegistrar
	Limiter   *middleware.RateLimiter
	// Health backs /api/health. Nil reports in-memory storage.
	Health *health.Service
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	api.GET("/health", func(c *gin.Context) {
		body, ok := deps.Health.Status(c.Request.Context())
		status := http.StatusOK
		if !ok {
			status = http.StatusServiceUnavailable
		}
		respond.JSON(c, status, body)
	})
	for _, reg := range deps.Public {
		reg.RegisterRoutes(api)
	}

	protected := api.Group("")
	protected.Use(
		middleware.SessionGuard(deps.Sessions, deps.Config.CookieName),
		middleware.RateLimit(middleware.RateLimitConfig{
			GroupFor: middleware.ChatGroup,
			Limiter:  deps.Limiter,
			Rules: map[string]middleware.RateLimitRule{
				middleware.ChatRateLimitGroup: middleware.PerMinute(deps.Config.ChatRatePerMinute),
			},
		}),
	)
	for _, reg := range deps.Protected {
		reg.RegisterRoutes(protected)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
