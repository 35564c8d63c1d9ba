package query

import (
	"context"

	"github.com/nattawut-dev/dropgate/internal/domain"
	"github.com/nattawut-dev/dropgate/internal/store"
	"github.com/nattawut-dev/dropgate/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Service exposes the read side of the allocation state: events, issued
// tickets and the attempt ledger. All methods are safe for concurrent use
// with a running allocation engine.
type Service interface {
	GetEvent(ctx context.Context, eventID int64) (*domain.Event, error)
	ListEvents(ctx context.Context) ([]*domain.Event, error)
	ListEventIDs(ctx context.Context) ([]int64, error)
	TicketsFor(ctx context.Context, claimantID string) ([]*domain.Ticket, error)
	AttemptsFor(ctx context.Context, claimantID string) ([]*domain.ClaimAttempt, error)
	RecentWinners(ctx context.Context, eventID int64, limit int) ([]*domain.Ticket, error)
}

type service struct {
	registry store.Registry
	ledger   store.Ledger
}

// DefaultWinnersLimit caps the recent-winners page when the caller does
// not ask for a specific size.
const DefaultWinnersLimit = 50

// MaxWinnersLimit is the hard ceiling for one recent-winners page.
const MaxWinnersLimit = 500

func NewService(registry store.Registry, ledger store.Ledger) Service {
	return &service{registry: registry, ledger: ledger}
}

func (s *service) GetEvent(ctx context.Context, eventID int64) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "query.get_event")
	defer span.End()
	span.SetAttributes(attribute.Int64("event.id", eventID))

	return s.registry.GetEvent(ctx, eventID)
}

func (s *service) ListEvents(ctx context.Context) ([]*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "query.list_events")
	defer span.End()

	return s.registry.ListEvents(ctx)
}

func (s *service) ListEventIDs(ctx context.Context) ([]int64, error) {
	ctx, span := telemetry.StartSpan(ctx, "query.list_event_ids")
	defer span.End()

	return s.registry.ListEventIDs(ctx)
}

func (s *service) TicketsFor(ctx context.Context, claimantID string) ([]*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "query.tickets_for")
	defer span.End()
	span.SetAttributes(attribute.String("claimant.id", claimantID))

	if claimantID == "" {
		return nil, domain.ErrInvalidClaimantID
	}
	return s.ledger.TicketsFor(ctx, claimantID)
}

func (s *service) AttemptsFor(ctx context.Context, claimantID string) ([]*domain.ClaimAttempt, error) {
	ctx, span := telemetry.StartSpan(ctx, "query.attempts_for")
	defer span.End()
	span.SetAttributes(attribute.String("claimant.id", claimantID))

	if claimantID == "" {
		return nil, domain.ErrInvalidClaimantID
	}
	return s.ledger.AttemptsFor(ctx, claimantID)
}

func (s *service) RecentWinners(ctx context.Context, eventID int64, limit int) ([]*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "query.recent_winners")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("event.id", eventID),
		attribute.Int("limit", limit),
	)

	if limit <= 0 {
		limit = DefaultWinnersLimit
	}
	if limit > MaxWinnersLimit {
		limit = MaxWinnersLimit
	}

	// Unknown events are surfaced as not found rather than an empty page.
	if _, err := s.registry.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}
	return s.ledger.RecentWinners(ctx, eventID, limit)
}
