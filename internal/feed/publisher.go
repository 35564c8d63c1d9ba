package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/nattawut-dev/dropgate/internal/domain"
	"github.com/nattawut-dev/dropgate/internal/kafka"
	"github.com/nattawut-dev/dropgate/internal/logger"
	"go.uber.org/zap"
)

// Feed topics
const (
	TopicDecisions = "dropgate.claim.decisions"
	TopicEvents    = "dropgate.events"
)

// Notification kinds
const (
	KindDecision     = "claim.decision"
	KindEventCreated = "event.created"
)

// Notification is one entry on the decision feed. Consumers must treat the
// feed as advisory: the store, not the feed, is the source of truth. The ID
// is unique per notification and lets consumers deduplicate redeliveries.
type Notification struct {
	ID         string    `json:"id"`
	Kind       string    `json:"kind"`
	EventID    int64     `json:"event_id"`
	ClaimantID string    `json:"claimant_id,omitempty"`
	Outcome    string    `json:"outcome,omitempty"`
	TicketID   int64     `json:"ticket_id,omitempty"`
	Title      string    `json:"title,omitempty"`
	Capacity   uint32    `json:"capacity,omitempty"`
	At         time.Time `json:"at"`
}

// Publisher delivers notifications to an external feed.
type Publisher interface {
	Publish(ctx context.Context, topic string, n Notification) error
	Close()
}

// KafkaPublisher publishes notifications to Kafka, keyed by event id so
// one event's decisions stay ordered within a partition.
type KafkaPublisher struct {
	producer *kafka.Producer
}

func NewKafkaPublisher(producer *kafka.Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic string, n Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	key := []byte(strconv.FormatInt(n.EventID, 10))
	headers := []kafka.Header{
		{Key: "kind", Value: n.Kind},
		{Key: "message_id", Value: n.ID},
	}
	return p.producer.Produce(ctx, topic, key, payload, headers...)
}

func (p *KafkaPublisher) Close() {
	p.producer.Close()
}

// NoopPublisher discards notifications. Used when no broker is configured
// or the broker is unreachable at startup.
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, string, Notification) error { return nil }
func (NoopPublisher) Close()                                              {}

// DecisionNotification builds the feed entry for a settled decision.
func DecisionNotification(d domain.Decision) Notification {
	n := Notification{
		ID:         uuid.NewString(),
		Kind:       KindDecision,
		EventID:    d.EventID,
		ClaimantID: d.ClaimantID,
		Outcome:    string(d.Outcome),
		At:         d.DecidedAt,
	}
	if d.Ticket != nil {
		n.TicketID = d.Ticket.ID
	}
	return n
}

// EventNotification builds the feed entry for a newly created event.
func EventNotification(e domain.Event) Notification {
	return Notification{
		ID:       uuid.NewString(),
		Kind:     KindEventCreated,
		EventID:  e.ID,
		Title:    e.Title,
		Capacity: e.TotalCapacity,
		At:       e.CreatedAt,
	}
}

// ConnectPublisher dials Kafka and falls back to a NoopPublisher when the
// broker cannot be reached, so allocation never depends on the feed.
func ConnectPublisher(ctx context.Context, cfg kafka.ProducerConfig) Publisher {
	if len(cfg.Brokers) == 0 {
		logger.Get().Info("decision feed disabled, no brokers configured")
		return NoopPublisher{}
	}
	producer, err := kafka.NewProducer(ctx, cfg)
	if err != nil {
		logger.Get().Warn("decision feed unavailable, continuing without it", zap.Error(err))
		return NoopPublisher{}
	}
	return NewKafkaPublisher(producer)
}
