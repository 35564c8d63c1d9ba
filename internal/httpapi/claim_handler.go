package httpapi

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nattawut-dev/dropgate/internal/allocator"
	"github.com/nattawut-dev/dropgate/internal/dto"
	"github.com/nattawut-dev/dropgate/internal/logger"
	"github.com/nattawut-dev/dropgate/internal/metrics"
	"github.com/nattawut-dev/dropgate/internal/presence"
	"github.com/nattawut-dev/dropgate/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// ClaimHandler handles claim HTTP requests
type ClaimHandler struct {
	engine  *allocator.Engine
	tracker presence.Tracker

	// Now supplies the clock for claim timing. Tests override it.
	Now func() time.Time
}

func NewClaimHandler(engine *allocator.Engine, tracker presence.Tracker) *ClaimHandler {
	return &ClaimHandler{
		engine:  engine,
		tracker: tracker,
		Now:     time.Now,
	}
}

// Claim handles POST /api/v1/events/:id/claims
func (h *ClaimHandler) Claim(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.claim.create")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	claimant := claimantID(c)
	if claimant == "" {
		span.SetStatus(codes.Error, "unauthorized")
		respondUnauthorized(c, "claimant identity required")
		return
	}

	eventID, ok := eventIDParam(c)
	if !ok {
		return
	}

	span.SetAttributes(
		attribute.Int64("event.id", eventID),
		attribute.String("claimant.id", claimant),
	)

	// Presence is advisory and must never delay or fail the claim.
	if h.tracker != nil {
		if err := h.tracker.Touch(ctx, eventID, claimant); err != nil {
			logger.Get().Warn("presence touch failed",
				zap.Int64("event_id", eventID),
				zap.Error(err),
			)
		}
		h.reportPresence(ctx, eventID)
	}

	decision, err := h.engine.Claim(ctx, eventID, claimant, h.Now())
	if err != nil {
		respondDomainError(c, err)
		return
	}

	// A win or a duplicate settles the claimant for good; drop them from
	// the live window. Losers to timing or capacity stay until their TTL.
	if h.tracker != nil && decision.Outcome.IsTerminal() {
		if err := h.tracker.Leave(ctx, eventID, claimant); err != nil {
			logger.Get().Warn("presence leave failed",
				zap.Int64("event_id", eventID),
				zap.Error(err),
			)
		}
		h.reportPresence(ctx, eventID)
	}

	span.SetAttributes(attribute.String("claim.outcome", string(decision.Outcome)))
	respondSuccess(c, dto.ClaimFromDomain(decision))
}

// reportPresence refreshes the live-claimant gauge for the event. Best
// effort, like everything else about presence.
func (h *ClaimHandler) reportPresence(ctx context.Context, eventID int64) {
	count, err := h.tracker.Count(ctx, eventID)
	if err != nil {
		return
	}
	metrics.SetActivePresence(ctx, eventID, count)
}

// Attempting handles GET /api/v1/events/:id/attempting
func (h *ClaimHandler) Attempting(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.claim.attempting")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	eventID, ok := eventIDParam(c)
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int64("event.id", eventID))

	if h.tracker == nil {
		respondSuccess(c, &dto.AttendanceResponse{EventID: eventID, Claimants: []string{}})
		return
	}

	claimants, err := h.tracker.Attempting(ctx, eventID)
	if err != nil {
		span.RecordError(err)
		respondInternalError(c, err)
		return
	}
	metrics.SetActivePresence(ctx, eventID, int64(len(claimants)))

	respondSuccess(c, &dto.AttendanceResponse{
		EventID:   eventID,
		Claimants: claimants,
		Total:     len(claimants),
	})
}
