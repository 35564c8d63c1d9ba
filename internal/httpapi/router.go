package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/nattawut-dev/dropgate/internal/telemetry"
)

// RouterConfig holds wiring for the HTTP surface
type RouterConfig struct {
	ServiceName string
	JWTSecret   string
	GinMode     string
}

// NewRouter assembles the gin engine with all routes and middleware.
func NewRouter(
	cfg RouterConfig,
	events *EventHandler,
	claims *ClaimHandler,
	queries *QueryHandler,
	health *HealthHandler,
) *gin.Engine {
	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(telemetry.TracingMiddleware(cfg.ServiceName))
	router.Use(ClaimantMiddleware(cfg.JWTSecret))

	router.GET("/health", health.Health)
	router.GET("/ready", health.Ready)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/status", health.Status)

		v1.POST("/events", events.Create)
		v1.GET("/events", events.List)
		v1.GET("/events/ids", events.ListIDs)
		v1.GET("/events/:id", events.Get)

		v1.POST("/events/:id/claims", claims.Claim)
		v1.GET("/events/:id/attempting", claims.Attempting)
		v1.GET("/events/:id/winners", queries.Winners)

		v1.GET("/claimants/:claimant_id/tickets", queries.Tickets)
		v1.GET("/claimants/:claimant_id/attempts", queries.Attempts)
	}

	return router
}
