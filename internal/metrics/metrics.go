package metrics

import (
	"context"
	"sync"

	"github.com/nattawut-dev/dropgate/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

var (
	// Allocation counters
	ClaimsTotal       *telemetry.Counter
	TicketsIssued     *telemetry.Counter
	EventsCreated     *telemetry.Counter
	InvariantFailures *telemetry.Counter
	FeedPublished     *telemetry.Counter
	FeedDropped       *telemetry.Counter

	// Histograms
	ClaimDuration *telemetry.Histogram

	// Gauges
	ActivePresence *telemetry.UpDownCounter

	initOnce sync.Once
	initErr  error
)

// Init initializes all allocation metrics
func Init() error {
	initOnce.Do(func() {
		initErr = initMetrics()
	})
	return initErr
}

func initMetrics() error {
	var err error

	ClaimsTotal, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "claim_decisions_total",
		Description: "Total number of claim decisions, by outcome",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	TicketsIssued, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "tickets_issued_total",
		Description: "Total number of tickets minted",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	EventsCreated, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "events_created_total",
		Description: "Total number of events created",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	InvariantFailures, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "invariant_failures_total",
		Description: "Total number of allocation invariant violations observed",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	FeedPublished, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "feed_notifications_published_total",
		Description: "Total number of decision feed notifications published",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	FeedDropped, err = telemetry.NewCounter(telemetry.MetricOpts{
		Name:        "feed_notifications_dropped_total",
		Description: "Total number of decision feed notifications dropped on overflow",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	ClaimDuration, err = telemetry.NewHistogram(telemetry.MetricOpts{
		Name:        "claim_decision_duration_seconds",
		Description: "Time spent deciding one claim",
		Unit:        "s",
	})
	if err != nil {
		return err
	}

	ActivePresence, err = telemetry.NewUpDownCounter(telemetry.MetricOpts{
		Name:        "presence_active_claimants",
		Description: "Claimants currently attempting a claim (advisory)",
		Unit:        "1",
	})
	if err != nil {
		return err
	}

	return nil
}

// RecordClaim records one claim decision with its outcome.
func RecordClaim(ctx context.Context, eventID int64, outcome string, durationSeconds float64) {
	ClaimsTotal.Add(ctx, 1,
		attribute.Int64("event_id", eventID),
		attribute.String("outcome", outcome),
	)
	ClaimDuration.Record(ctx, durationSeconds,
		attribute.String("outcome", outcome),
	)
}

// RecordTicketIssued records one minted ticket.
func RecordTicketIssued(ctx context.Context, eventID int64) {
	TicketsIssued.Add(ctx, 1, attribute.Int64("event_id", eventID))
}

// RecordEventCreated records one created event.
func RecordEventCreated(ctx context.Context) {
	EventsCreated.Add(ctx, 1)
}

// RecordInvariantFailure records an observed invariant violation.
func RecordInvariantFailure(ctx context.Context, eventID int64) {
	InvariantFailures.Add(ctx, 1, attribute.Int64("event_id", eventID))
}

// RecordFeedPublished records one delivered feed notification.
func RecordFeedPublished(ctx context.Context, kind string) {
	FeedPublished.Add(ctx, 1, attribute.String("kind", kind))
}

// RecordFeedDropped records one dropped feed notification.
func RecordFeedDropped(ctx context.Context, kind string) {
	FeedDropped.Add(ctx, 1, attribute.String("kind", kind))
}

var (
	presenceMu   sync.Mutex
	presenceSeen = make(map[int64]int64)
)

// SetActivePresence reconciles the presence gauge for one event against an
// observed live count. The instrument only takes deltas, so the last count
// reported per event is remembered and the difference applied.
func SetActivePresence(ctx context.Context, eventID int64, count int64) {
	presenceMu.Lock()
	delta := count - presenceSeen[eventID]
	if count == 0 {
		delete(presenceSeen, eventID)
	} else {
		presenceSeen[eventID] = count
	}
	presenceMu.Unlock()

	if delta != 0 {
		ActivePresence.Add(ctx, delta, attribute.Int64("event_id", eventID))
	}
}
