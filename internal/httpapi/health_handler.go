package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nattawut-dev/dropgate/internal/query"
	"github.com/nattawut-dev/dropgate/internal/store"
)

// HealthHandler exposes liveness, readiness and a service status summary
type HealthHandler struct {
	store     store.Store
	queries   query.Service
	version   string
	startedAt time.Time
}

func NewHealthHandler(st store.Store, queries query.Service, version string) *HealthHandler {
	return &HealthHandler{
		store:     st,
		queries:   queries,
		version:   version,
		startedAt: time.Now(),
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": h.version,
	})
}

// Ready handles GET /ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if err := h.store.HealthCheck(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"error":  err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Status handles GET /api/v1/status
func (h *HealthHandler) Status(c *gin.Context) {
	events, err := h.queries.ListEvents(c.Request.Context())
	if err != nil {
		respondInternalError(c, err)
		return
	}

	var issued, remaining uint64
	for _, e := range events {
		issued += uint64(e.Issued())
		remaining += uint64(e.RemainingCapacity)
	}

	respondSuccess(c, gin.H{
		"version":            h.version,
		"uptime_seconds":     int64(time.Since(h.startedAt).Seconds()),
		"events":             len(events),
		"tickets_issued":     issued,
		"remaining_capacity": remaining,
	})
}
