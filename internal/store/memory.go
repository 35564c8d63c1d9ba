package store

import (
	"context"
	"sync"

	"github.com/nattawut-dev/dropgate/internal/domain"
)

// MemoryStore is the in-process backend. All state lives behind one
// RWMutex; the engine's per-event lock provides claim serialization,
// this mutex only protects the data structures themselves.
type MemoryStore struct {
	mu sync.RWMutex

	events   map[int64]*domain.Event
	eventIDs []int64

	claimed        map[int64]map[string]struct{}
	ticketsByEvent map[int64][]*domain.Ticket
	ticketsByOwner map[string][]*domain.Ticket
	attempts       map[string][]*domain.ClaimAttempt

	maxEventID  int64
	maxTicketID int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		events:         make(map[int64]*domain.Event),
		claimed:        make(map[int64]map[string]struct{}),
		ticketsByEvent: make(map[int64][]*domain.Ticket),
		ticketsByOwner: make(map[string][]*domain.Ticket),
		attempts:       make(map[string][]*domain.ClaimAttempt),
	}
}

// InsertEvent stores a new event.
func (s *MemoryStore) InsertEvent(ctx context.Context, event *domain.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev := *event
	s.events[ev.ID] = &ev
	s.eventIDs = append(s.eventIDs, ev.ID)
	if ev.ID > s.maxEventID {
		s.maxEventID = ev.ID
	}
	return nil
}

// GetEvent returns a copy of the event or domain.ErrEventNotFound.
func (s *MemoryStore) GetEvent(ctx context.Context, eventID int64) (*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ev, ok := s.events[eventID]
	if !ok {
		return nil, domain.ErrEventNotFound
	}
	out := *ev
	return &out, nil
}

// ListEvents returns copies of all events in creation order.
func (s *MemoryStore) ListEvents(ctx context.Context) ([]*domain.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]*domain.Event, 0, len(s.eventIDs))
	for _, id := range s.eventIDs {
		ev := *s.events[id]
		events = append(events, &ev)
	}
	return events, nil
}

// ListEventIDs returns all event ids in creation order.
func (s *MemoryStore) ListEventIDs(ctx context.Context) ([]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]int64, len(s.eventIDs))
	copy(ids, s.eventIDs)
	return ids, nil
}

// MaxEventID returns the highest assigned event id.
func (s *MemoryStore) MaxEventID(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxEventID, nil
}

// HasClaimed reports whether the claimant already won the event.
func (s *MemoryStore) HasClaimed(ctx context.Context, eventID int64, claimantID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owners, ok := s.claimed[eventID]
	if !ok {
		return false, nil
	}
	_, won := owners[claimantID]
	return won, nil
}

// RecordSuccess applies the capacity decrement, the ticket, and the
// attempt under one lock acquisition, so no reader observes a partial
// commit.
func (s *MemoryStore) RecordSuccess(ctx context.Context, ticket *domain.Ticket, attempt *domain.ClaimAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ev, ok := s.events[ticket.EventID]
	if !ok {
		return domain.ErrEventNotFound
	}
	if ev.RemainingCapacity == 0 {
		return domain.ErrInvariantViolation
	}
	ev.RemainingCapacity--

	t := *ticket
	s.ticketsByEvent[t.EventID] = append(s.ticketsByEvent[t.EventID], &t)
	s.ticketsByOwner[t.OwnerID] = append(s.ticketsByOwner[t.OwnerID], &t)

	owners, ok := s.claimed[t.EventID]
	if !ok {
		owners = make(map[string]struct{})
		s.claimed[t.EventID] = owners
	}
	owners[t.OwnerID] = struct{}{}

	a := *attempt
	s.attempts[a.ClaimantID] = append(s.attempts[a.ClaimantID], &a)

	if t.ID > s.maxTicketID {
		s.maxTicketID = t.ID
	}
	return nil
}

// RecordFailure appends a non-success attempt.
func (s *MemoryStore) RecordFailure(ctx context.Context, attempt *domain.ClaimAttempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a := *attempt
	s.attempts[a.ClaimantID] = append(s.attempts[a.ClaimantID], &a)
	return nil
}

// TicketsFor returns the claimant's tickets in issuance order.
func (s *MemoryStore) TicketsFor(ctx context.Context, claimantID string) ([]*domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owned := s.ticketsByOwner[claimantID]
	tickets := make([]*domain.Ticket, 0, len(owned))
	for _, t := range owned {
		out := *t
		tickets = append(tickets, &out)
	}
	return tickets, nil
}

// AttemptsFor returns the claimant's attempts in insertion order.
func (s *MemoryStore) AttemptsFor(ctx context.Context, claimantID string) ([]*domain.ClaimAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.attempts[claimantID]
	attempts := make([]*domain.ClaimAttempt, 0, len(history))
	for _, a := range history {
		out := *a
		attempts = append(attempts, &out)
	}
	return attempts, nil
}

// RecentWinners returns up to limit tickets for the event, newest
// first.
func (s *MemoryStore) RecentWinners(ctx context.Context, eventID int64, limit int) ([]*domain.Ticket, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	issued := s.ticketsByEvent[eventID]
	if limit < 0 {
		limit = 0
	}
	if limit > len(issued) {
		limit = len(issued)
	}

	winners := make([]*domain.Ticket, 0, limit)
	for i := len(issued) - 1; i >= len(issued)-limit; i-- {
		out := *issued[i]
		winners = append(winners, &out)
	}
	return winners, nil
}

// MaxTicketID returns the highest issued ticket id.
func (s *MemoryStore) MaxTicketID(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.maxTicketID, nil
}

// HealthCheck always succeeds for the in-memory backend.
func (s *MemoryStore) HealthCheck(ctx context.Context) error {
	return nil
}

// Close is a no-op for the in-memory backend.
func (s *MemoryStore) Close() {}

// Ensure MemoryStore implements Store
var _ Store = (*MemoryStore)(nil)
