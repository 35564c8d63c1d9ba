package allocator

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nattawut-dev/dropgate/internal/domain"
	"github.com/nattawut-dev/dropgate/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSink struct {
	mu        sync.Mutex
	decisions []domain.Decision
	events    []domain.Event
}

func (s *captureSink) DecisionSettled(_ context.Context, d domain.Decision) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions = append(s.decisions, d)
}

func (s *captureSink) EventCreated(_ context.Context, e domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
}

func newTestEngine(t *testing.T) (*Engine, *store.MemoryStore, *captureSink) {
	t.Helper()
	st := store.NewMemoryStore()
	sink := &captureSink{}
	eng, err := NewEngine(context.Background(), st, st, sink)
	require.NoError(t, err)
	return eng, st, sink
}

func TestCreateEvent(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name         string
		title        string
		activationAt time.Time
		capacity     uint32
		wantErr      error
	}{
		{
			name:         "valid event",
			title:        "spring drop",
			activationAt: now.Add(time.Hour),
			capacity:     100,
		},
		{
			name:         "empty title",
			title:        "",
			activationAt: now.Add(time.Hour),
			capacity:     100,
			wantErr:      domain.ErrEmptyTitle,
		},
		{
			name:         "zero capacity",
			title:        "spring drop",
			activationAt: now.Add(time.Hour),
			capacity:     0,
			wantErr:      domain.ErrZeroCapacity,
		},
		{
			name:         "activation in the past",
			title:        "spring drop",
			activationAt: now.Add(-time.Minute),
			capacity:     100,
			wantErr:      domain.ErrActivationNotInFuture,
		},
		{
			name:         "activation exactly now",
			title:        "spring drop",
			activationAt: now,
			capacity:     100,
			wantErr:      domain.ErrActivationNotInFuture,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng, _, sink := newTestEngine(t)
			event, err := eng.CreateEvent(context.Background(), tt.title, tt.activationAt, tt.capacity, "creator-1", now)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, event)
				assert.Empty(t, sink.events)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, int64(1), event.ID)
			assert.Equal(t, tt.capacity, event.RemainingCapacity)
			assert.Equal(t, tt.capacity, event.TotalCapacity)
			assert.Len(t, sink.events, 1)
		})
	}
}

func TestCreateEvent_MonotonicIDs(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	now := time.Now()

	var last int64
	for i := 0; i < 5; i++ {
		event, err := eng.CreateEvent(context.Background(), fmt.Sprintf("drop %d", i), now.Add(time.Hour), 10, "creator-1", now)
		require.NoError(t, err)
		assert.Greater(t, event.ID, last)
		last = event.ID
	}
}

func TestClaim_Success(t *testing.T) {
	eng, st, sink := newTestEngine(t)
	now := time.Now()

	event, err := eng.CreateEvent(context.Background(), "drop", now.Add(time.Minute), 3, "creator-1", now)
	require.NoError(t, err)

	claimAt := now.Add(2 * time.Minute)
	decision, err := eng.Claim(context.Background(), event.ID, "alice", claimAt)
	require.NoError(t, err)

	assert.Equal(t, domain.OutcomeSuccess, decision.Outcome)
	require.NotNil(t, decision.Ticket)
	assert.Equal(t, event.ID, decision.Ticket.EventID)
	assert.Equal(t, "alice", decision.Ticket.OwnerID)
	assert.Equal(t, claimAt, decision.Ticket.IssuedAt)

	got, err := st.GetEvent(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), got.RemainingCapacity)

	attempts, err := st.AttemptsFor(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, domain.OutcomeSuccess, attempts[0].Outcome)

	require.Len(t, sink.decisions, 1)
	assert.Equal(t, domain.OutcomeSuccess, sink.decisions[0].Outcome)
}

func TestClaim_UnknownEventLeavesNoTrace(t *testing.T) {
	eng, st, sink := newTestEngine(t)

	decision, err := eng.Claim(context.Background(), 999, "alice", time.Now())
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
	assert.Nil(t, decision)

	attempts, err := st.AttemptsFor(context.Background(), "alice")
	require.NoError(t, err)
	assert.Empty(t, attempts)
	assert.Empty(t, sink.decisions)
}

func TestClaim_EmptyClaimant(t *testing.T) {
	eng, _, _ := newTestEngine(t)

	decision, err := eng.Claim(context.Background(), 1, "", time.Now())
	assert.ErrorIs(t, err, domain.ErrInvalidClaimantID)
	assert.Nil(t, decision)
}

func TestClaim_NotYetActive(t *testing.T) {
	eng, st, _ := newTestEngine(t)
	now := time.Now()

	event, err := eng.CreateEvent(context.Background(), "drop", now.Add(time.Hour), 5, "creator-1", now)
	require.NoError(t, err)

	decision, err := eng.Claim(context.Background(), event.ID, "alice", now.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNotYetActive, decision.Outcome)
	assert.Nil(t, decision.Ticket)

	// Capacity untouched, attempt still logged.
	got, err := st.GetEvent(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), got.RemainingCapacity)

	attempts, err := st.AttemptsFor(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, attempts, 1)
	assert.Equal(t, domain.OutcomeNotYetActive, attempts[0].Outcome)
}

func TestClaim_ClaimAtExactActivationSucceeds(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	now := time.Now()
	activation := now.Add(time.Hour)

	event, err := eng.CreateEvent(context.Background(), "drop", activation, 5, "creator-1", now)
	require.NoError(t, err)

	decision, err := eng.Claim(context.Background(), event.ID, "alice", activation)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeSuccess, decision.Outcome)
}

func TestClaim_Duplicate(t *testing.T) {
	eng, st, _ := newTestEngine(t)
	now := time.Now()

	event, err := eng.CreateEvent(context.Background(), "drop", now.Add(time.Minute), 5, "creator-1", now)
	require.NoError(t, err)

	claimAt := now.Add(2 * time.Minute)
	first, err := eng.Claim(context.Background(), event.ID, "alice", claimAt)
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeSuccess, first.Outcome)

	second, err := eng.Claim(context.Background(), event.ID, "alice", claimAt.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAlreadyClaimed, second.Outcome)
	assert.Nil(t, second.Ticket)

	// The failed retry consumed no capacity.
	got, err := st.GetEvent(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), got.RemainingCapacity)

	tickets, err := st.TicketsFor(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, tickets, 1)
}

func TestClaim_TimingCheckedBeforeDuplicate(t *testing.T) {
	// A repeat claim before activation reports NotYetActive, not
	// AlreadyClaimed: timing is checked first.
	eng, st, _ := newTestEngine(t)
	now := time.Now()
	activation := now.Add(time.Hour)

	event, err := eng.CreateEvent(context.Background(), "drop", activation, 5, "creator-1", now)
	require.NoError(t, err)

	first, err := eng.Claim(context.Background(), event.ID, "alice", now.Add(time.Minute))
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeNotYetActive, first.Outcome)

	second, err := eng.Claim(context.Background(), event.ID, "alice", now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeNotYetActive, second.Outcome)

	attempts, err := st.AttemptsFor(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, attempts, 2)
}

func TestClaim_Exhaustion(t *testing.T) {
	eng, st, _ := newTestEngine(t)
	now := time.Now()

	event, err := eng.CreateEvent(context.Background(), "drop", now.Add(time.Minute), 2, "creator-1", now)
	require.NoError(t, err)

	claimAt := now.Add(2 * time.Minute)
	for _, claimant := range []string{"alice", "bob"} {
		decision, err := eng.Claim(context.Background(), event.ID, claimant, claimAt)
		require.NoError(t, err)
		require.Equal(t, domain.OutcomeSuccess, decision.Outcome)
	}

	decision, err := eng.Claim(context.Background(), event.ID, "carol", claimAt)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeExhausted, decision.Outcome)
	assert.Nil(t, decision.Ticket)

	got, err := st.GetEvent(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), got.RemainingCapacity)
	assert.Equal(t, domain.EventStatusExhausted, got.StatusAt(claimAt))

	// A repeat claim from a winner against an exhausted event still
	// reports the duplicate, not exhaustion.
	repeat, err := eng.Claim(context.Background(), event.ID, "alice", claimAt.Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAlreadyClaimed, repeat.Outcome)
}

func TestClaim_TicketIDsGloballyMonotonic(t *testing.T) {
	eng, _, _ := newTestEngine(t)
	now := time.Now()
	claimAt := now.Add(2 * time.Minute)

	first, err := eng.CreateEvent(context.Background(), "drop one", now.Add(time.Minute), 5, "creator-1", now)
	require.NoError(t, err)
	second, err := eng.CreateEvent(context.Background(), "drop two", now.Add(time.Minute), 5, "creator-1", now)
	require.NoError(t, err)

	var lastID int64
	for i, eventID := range []int64{first.ID, second.ID, first.ID, second.ID} {
		claimant := fmt.Sprintf("claimant-%d", i)
		decision, err := eng.Claim(context.Background(), eventID, claimant, claimAt)
		require.NoError(t, err)
		require.Equal(t, domain.OutcomeSuccess, decision.Outcome)
		assert.Greater(t, decision.Ticket.ID, lastID)
		lastID = decision.Ticket.ID
	}
}

func TestClaim_ConcurrentNoOversell(t *testing.T) {
	const (
		capacity  = 100
		claimants = 1000
	)

	eng, st, _ := newTestEngine(t)
	now := time.Now()

	event, err := eng.CreateEvent(context.Background(), "rush", now.Add(time.Minute), capacity, "creator-1", now)
	require.NoError(t, err)

	claimAt := now.Add(2 * time.Minute)
	outcomes := make([]domain.Outcome, claimants)

	var wg sync.WaitGroup
	for i := 0; i < claimants; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			decision, err := eng.Claim(context.Background(), event.ID, fmt.Sprintf("claimant-%d", i), claimAt)
			if err != nil {
				return
			}
			outcomes[i] = decision.Outcome
		}(i)
	}
	wg.Wait()

	var wins, exhausted int
	for _, outcome := range outcomes {
		switch outcome {
		case domain.OutcomeSuccess:
			wins++
		case domain.OutcomeExhausted:
			exhausted++
		}
	}

	assert.Equal(t, capacity, wins)
	assert.Equal(t, claimants-capacity, exhausted)

	got, err := st.GetEvent(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), got.RemainingCapacity)

	winners, err := st.RecentWinners(context.Background(), event.ID, claimants)
	require.NoError(t, err)
	assert.Len(t, winners, capacity)

	// Every issued ticket id is unique.
	seen := make(map[int64]bool, capacity)
	for _, ticket := range winners {
		assert.False(t, seen[ticket.ID], "duplicate ticket id %d", ticket.ID)
		seen[ticket.ID] = true
	}
}

func TestClaim_ConcurrentDuplicateClaimant(t *testing.T) {
	const attempts = 200

	eng, st, _ := newTestEngine(t)
	now := time.Now()

	event, err := eng.CreateEvent(context.Background(), "rush", now.Add(time.Minute), 10, "creator-1", now)
	require.NoError(t, err)

	claimAt := now.Add(2 * time.Minute)
	outcomes := make([]domain.Outcome, attempts)

	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			decision, err := eng.Claim(context.Background(), event.ID, "alice", claimAt)
			if err != nil {
				return
			}
			outcomes[i] = decision.Outcome
		}(i)
	}
	wg.Wait()

	var wins, duplicates int
	for _, outcome := range outcomes {
		switch outcome {
		case domain.OutcomeSuccess:
			wins++
		case domain.OutcomeAlreadyClaimed:
			duplicates++
		}
	}

	// Exactly one attempt wins no matter how the goroutines interleave.
	assert.Equal(t, 1, wins)
	assert.Equal(t, attempts-1, duplicates)

	tickets, err := st.TicketsFor(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, tickets, 1)

	history, err := st.AttemptsFor(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, history, attempts)

	got, err := st.GetEvent(context.Background(), event.ID)
	require.NoError(t, err)
	assert.Equal(t, uint32(9), got.RemainingCapacity)
}

func TestNewEngine_SeedsCountersFromStore(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	now := time.Now()

	eng, err := NewEngine(ctx, st, st, nil)
	require.NoError(t, err)

	event, err := eng.CreateEvent(ctx, "drop", now.Add(time.Minute), 5, "creator-1", now)
	require.NoError(t, err)
	decision, err := eng.Claim(ctx, event.ID, "alice", now.Add(2*time.Minute))
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeSuccess, decision.Outcome)

	// A rebuilt engine over the same store continues both sequences.
	rebuilt, err := NewEngine(ctx, st, st, nil)
	require.NoError(t, err)

	next, err := rebuilt.CreateEvent(ctx, "second drop", now.Add(time.Minute), 5, "creator-1", now)
	require.NoError(t, err)
	assert.Equal(t, event.ID+1, next.ID)

	nextDecision, err := rebuilt.Claim(ctx, next.ID, "bob", now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, decision.Ticket.ID+1, nextDecision.Ticket.ID)
}
