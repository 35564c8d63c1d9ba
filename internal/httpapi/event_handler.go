package httpapi

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nattawut-dev/dropgate/internal/allocator"
	"github.com/nattawut-dev/dropgate/internal/dto"
	"github.com/nattawut-dev/dropgate/internal/query"
	"github.com/nattawut-dev/dropgate/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// EventHandler handles event registry HTTP requests
type EventHandler struct {
	engine  *allocator.Engine
	queries query.Service

	// Now supplies the clock for timing decisions. Tests override it.
	Now func() time.Time
}

func NewEventHandler(engine *allocator.Engine, queries query.Service) *EventHandler {
	return &EventHandler{
		engine:  engine,
		queries: queries,
		Now:     time.Now,
	}
}

// Create handles POST /api/v1/events
func (h *EventHandler) Create(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.event.create")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		respondBadRequest(c, err.Error())
		return
	}

	span.SetAttributes(
		attribute.String("event.title", req.Title),
		attribute.Int64("event.capacity", int64(req.TotalCapacity)),
	)

	now := h.Now()
	event, err := h.engine.CreateEvent(ctx, req.Title, req.ActivationAt, req.TotalCapacity, claimantID(c), now)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondCreated(c, dto.EventFromDomain(event, now))
}

// Get handles GET /api/v1/events/:id
func (h *EventHandler) Get(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.event.get")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	eventID, ok := eventIDParam(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int64("event.id", eventID))

	event, err := h.queries.GetEvent(ctx, eventID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, dto.EventFromDomain(event, h.Now()))
}

// List handles GET /api/v1/events
func (h *EventHandler) List(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.event.list")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	events, err := h.queries.ListEvents(ctx)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, dto.EventListFromDomain(events, h.Now()))
}

// ListIDs handles GET /api/v1/events/ids
func (h *EventHandler) ListIDs(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.event.list_ids")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	ids, err := h.queries.ListEventIDs(ctx)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, dto.EventIDListResponse{EventIDs: ids, Total: len(ids)})
}
