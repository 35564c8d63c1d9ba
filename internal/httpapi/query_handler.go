package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/nattawut-dev/dropgate/internal/dto"
	"github.com/nattawut-dev/dropgate/internal/query"
	"github.com/nattawut-dev/dropgate/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// QueryHandler handles read-side HTTP requests over tickets and the
// attempt ledger.
type QueryHandler struct {
	queries query.Service
}

func NewQueryHandler(queries query.Service) *QueryHandler {
	return &QueryHandler{queries: queries}
}

// Tickets handles GET /api/v1/claimants/:claimant_id/tickets
func (h *QueryHandler) Tickets(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.query.tickets")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	claimant := c.Param("claimant_id")
	span.SetAttributes(attribute.String("claimant.id", claimant))

	tickets, err := h.queries.TicketsFor(ctx, claimant)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, dto.TicketListFromDomain(claimant, tickets))
}

// Attempts handles GET /api/v1/claimants/:claimant_id/attempts
func (h *QueryHandler) Attempts(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.query.attempts")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	claimant := c.Param("claimant_id")
	span.SetAttributes(attribute.String("claimant.id", claimant))

	attempts, err := h.queries.AttemptsFor(ctx, claimant)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, dto.AttemptListFromDomain(claimant, attempts))
}

// Winners handles GET /api/v1/events/:id/winners
func (h *QueryHandler) Winners(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.query.winners")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	eventID, ok := eventIDParam(c)
	if !ok {
		return
	}
	limit, ok := limitQuery(c)
	if !ok {
		return
	}
	span.SetAttributes(
		attribute.Int64("event.id", eventID),
		attribute.Int("limit", limit),
	)

	winners, err := h.queries.RecentWinners(ctx, eventID, limit)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respondSuccess(c, dto.WinnersFromDomain(eventID, winners))
}
