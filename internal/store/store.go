package store

import (
	"context"

	"github.com/nattawut-dev/dropgate/internal/domain"
)

// Registry owns event definitions and the authoritative
// remaining-capacity counter. Remaining capacity is mutated only
// through Ledger.RecordSuccess; everything else is a read.
type Registry interface {
	// InsertEvent stores a new event. The caller assigns the id.
	InsertEvent(ctx context.Context, event *domain.Event) error

	// GetEvent returns the event or domain.ErrEventNotFound.
	GetEvent(ctx context.Context, eventID int64) (*domain.Event, error)

	// ListEvents returns all events in creation order.
	ListEvents(ctx context.Context) ([]*domain.Event, error)

	// ListEventIDs returns all event ids in creation order.
	ListEventIDs(ctx context.Context) ([]int64, error)

	// MaxEventID returns the highest assigned event id, 0 when empty.
	// Used to seed the engine's id allocator at startup.
	MaxEventID(ctx context.Context) (int64, error)
}

// Ledger is the append-only record of claim decisions and issued
// tickets. Entries are never mutated or removed.
type Ledger interface {
	// HasClaimed reports whether the claimant already holds a ticket
	// for the event. Never false-negative for a committed success.
	HasClaimed(ctx context.Context, eventID int64, claimantID string) (bool, error)

	// RecordSuccess atomically decrements the event's remaining
	// capacity, stores the ticket, and appends the attempt. The three
	// writes are indivisible from the perspective of any concurrent
	// reader. Returns domain.ErrInvariantViolation if the remaining
	// capacity is already zero; that is unreachable under the engine's
	// per-event serialization and indicates a bug.
	RecordSuccess(ctx context.Context, ticket *domain.Ticket, attempt *domain.ClaimAttempt) error

	// RecordFailure appends a non-success attempt. No effect on
	// capacity or ownership.
	RecordFailure(ctx context.Context, attempt *domain.ClaimAttempt) error

	// TicketsFor returns the claimant's tickets in issuance order.
	TicketsFor(ctx context.Context, claimantID string) ([]*domain.Ticket, error)

	// AttemptsFor returns the claimant's attempts in insertion order.
	AttemptsFor(ctx context.Context, claimantID string) ([]*domain.ClaimAttempt, error)

	// RecentWinners returns up to limit tickets for the event, most
	// recently issued first. A limit beyond the available count
	// returns everything without error.
	RecentWinners(ctx context.Context, eventID int64, limit int) ([]*domain.Ticket, error)

	// MaxTicketID returns the highest issued ticket id, 0 when none.
	MaxTicketID(ctx context.Context) (int64, error)
}

// Store combines the registry and ledger halves of one backend.
type Store interface {
	Registry
	Ledger

	// HealthCheck verifies the backend is reachable.
	HealthCheck(ctx context.Context) error

	Close()
}
