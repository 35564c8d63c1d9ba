package allocator

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/nattawut-dev/dropgate/internal/domain"
	"github.com/nattawut-dev/dropgate/internal/logger"
	"github.com/nattawut-dev/dropgate/internal/metrics"
	"github.com/nattawut-dev/dropgate/internal/store"
	"github.com/nattawut-dev/dropgate/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// DecisionSink receives settled claim decisions and event lifecycle
// notifications. Implementations must not block the caller; delivery is
// best-effort and happens outside the allocation critical section.
type DecisionSink interface {
	DecisionSettled(ctx context.Context, decision domain.Decision)
	EventCreated(ctx context.Context, event domain.Event)
}

// NoopSink discards all notifications.
type NoopSink struct{}

func (NoopSink) DecisionSettled(context.Context, domain.Decision) {}
func (NoopSink) EventCreated(context.Context, domain.Event)       {}

// Engine is the single writer for events, tickets and the attempt ledger.
// Every claim for a given event is serialized through a per-event lock, so
// capacity checks and ticket minting observe a consistent state.
type Engine struct {
	registry store.Registry
	ledger   store.Ledger
	sink     DecisionSink

	nextEventID  atomic.Int64
	nextTicketID atomic.Int64

	eventLocks sync.Map // int64 -> *sync.Mutex
}

// NewEngine builds an engine over the given store, seeding the id counters
// from whatever was already persisted so ids stay monotonic across restarts.
func NewEngine(ctx context.Context, registry store.Registry, ledger store.Ledger, sink DecisionSink) (*Engine, error) {
	if sink == nil {
		sink = NoopSink{}
	}
	e := &Engine{
		registry: registry,
		ledger:   ledger,
		sink:     sink,
	}

	maxEvent, err := registry.MaxEventID(ctx)
	if err != nil {
		return nil, err
	}
	maxTicket, err := ledger.MaxTicketID(ctx)
	if err != nil {
		return nil, err
	}
	e.nextEventID.Store(maxEvent)
	e.nextTicketID.Store(maxTicket)

	return e, nil
}

// CreateEvent registers a new event with full remaining capacity.
func (e *Engine) CreateEvent(ctx context.Context, title string, activationAt time.Time, totalCapacity uint32, creator string, now time.Time) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "engine.create_event")
	defer span.End()
	span.SetAttributes(
		attribute.String("event.title", title),
		attribute.Int64("event.capacity", int64(totalCapacity)),
	)

	if title == "" {
		return nil, domain.ErrEmptyTitle
	}
	if totalCapacity == 0 {
		return nil, domain.ErrZeroCapacity
	}
	if !activationAt.After(now) {
		return nil, domain.ErrActivationNotInFuture
	}

	event := &domain.Event{
		ID:                e.nextEventID.Add(1),
		Title:             title,
		ActivationAt:      activationAt,
		TotalCapacity:     totalCapacity,
		RemainingCapacity: totalCapacity,
		Creator:           creator,
		CreatedAt:         now,
	}

	if err := e.registry.InsertEvent(ctx, event); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert event failed")
		return nil, err
	}

	span.SetAttributes(attribute.Int64("event.id", event.ID))
	metrics.RecordEventCreated(ctx)
	logger.Get().Info("event created",
		zap.Int64("event_id", event.ID),
		zap.String("title", event.Title),
		zap.Uint32("capacity", event.TotalCapacity),
		zap.Time("activation_at", event.ActivationAt),
	)

	e.sink.EventCreated(ctx, *event)
	return event, nil
}

// Claim decides one claim attempt. The checks run in a fixed order:
// event existence, activation timing, duplicate claimant, capacity.
// An unknown event aborts with ErrEventNotFound and leaves no ledger
// trace; every other path appends exactly one ledger entry.
func (e *Engine) Claim(ctx context.Context, eventID int64, claimantID string, now time.Time) (*domain.Decision, error) {
	ctx, span := telemetry.StartSpan(ctx, "engine.claim")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("event.id", eventID),
		attribute.String("claimant.id", claimantID),
	)

	if claimantID == "" {
		return nil, domain.ErrInvalidClaimantID
	}

	start := time.Now()
	decision, err := e.decide(ctx, eventID, claimantID, now)
	if err != nil {
		span.RecordError(err)
		if !domain.IsNotFoundError(err) {
			span.SetStatus(codes.Error, "claim failed")
		}
		return nil, err
	}

	span.SetAttributes(attribute.String("claim.outcome", string(decision.Outcome)))
	telemetry.AddSpanEvent(ctx, "claim.settled",
		attribute.String("outcome", string(decision.Outcome)),
	)
	metrics.RecordClaim(ctx, eventID, string(decision.Outcome), time.Since(start).Seconds())
	if decision.Outcome == domain.OutcomeSuccess {
		metrics.RecordTicketIssued(ctx, eventID)
		logger.Get().Info("ticket issued",
			zap.Int64("event_id", eventID),
			zap.Int64("ticket_id", decision.Ticket.ID),
			zap.String("claimant_id", claimantID),
		)
	}

	e.sink.DecisionSettled(ctx, *decision)
	return decision, nil
}

func (e *Engine) decide(ctx context.Context, eventID int64, claimantID string, now time.Time) (*domain.Decision, error) {
	// Existence check runs before taking the lock: an unknown event never
	// contends with live allocation and never touches the ledger.
	if _, err := e.registry.GetEvent(ctx, eventID); err != nil {
		return nil, err
	}

	lock := e.lockFor(eventID)
	lock.Lock()
	defer lock.Unlock()

	// Re-fetch under the lock so capacity reflects all prior decisions.
	event, err := e.registry.GetEvent(ctx, eventID)
	if err != nil {
		return nil, err
	}

	decision := &domain.Decision{
		EventID:    eventID,
		ClaimantID: claimantID,
		DecidedAt:  now,
	}

	if now.Before(event.ActivationAt) {
		decision.Outcome = domain.OutcomeNotYetActive
		return decision, e.recordFailure(ctx, decision)
	}

	claimed, err := e.ledger.HasClaimed(ctx, eventID, claimantID)
	if err != nil {
		return nil, err
	}
	if claimed {
		decision.Outcome = domain.OutcomeAlreadyClaimed
		return decision, e.recordFailure(ctx, decision)
	}

	if event.RemainingCapacity == 0 {
		decision.Outcome = domain.OutcomeExhausted
		return decision, e.recordFailure(ctx, decision)
	}

	ticket := &domain.Ticket{
		ID:       e.nextTicketID.Add(1),
		EventID:  eventID,
		OwnerID:  claimantID,
		IssuedAt: now,
	}
	attempt := &domain.ClaimAttempt{
		EventID:    eventID,
		ClaimantID: claimantID,
		Outcome:    domain.OutcomeSuccess,
		At:         now,
	}
	if err := e.ledger.RecordSuccess(ctx, ticket, attempt); err != nil {
		if domain.IsInvariantViolation(err) {
			metrics.RecordInvariantFailure(ctx, eventID)
			logger.Get().Error("capacity invariant violated",
				zap.Int64("event_id", eventID),
				zap.String("claimant_id", claimantID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	decision.Outcome = domain.OutcomeSuccess
	decision.Ticket = ticket
	return decision, nil
}

func (e *Engine) recordFailure(ctx context.Context, decision *domain.Decision) error {
	attempt := &domain.ClaimAttempt{
		EventID:    decision.EventID,
		ClaimantID: decision.ClaimantID,
		Outcome:    decision.Outcome,
		At:         decision.DecidedAt,
	}
	return e.ledger.RecordFailure(ctx, attempt)
}

func (e *Engine) lockFor(eventID int64) *sync.Mutex {
	if l, ok := e.eventLocks.Load(eventID); ok {
		return l.(*sync.Mutex)
	}
	l, _ := e.eventLocks.LoadOrStore(eventID, &sync.Mutex{})
	return l.(*sync.Mutex)
}
