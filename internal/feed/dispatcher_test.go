package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nattawut-dev/dropgate/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturePublisher struct {
	mu        sync.Mutex
	published []Notification
	topics    []string
	failWith  error
	closed    bool
}

func (p *capturePublisher) Publish(_ context.Context, topic string, n Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failWith != nil {
		return p.failWith
	}
	p.published = append(p.published, n)
	p.topics = append(p.topics, topic)
	return nil
}

func (p *capturePublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *capturePublisher) snapshot() []Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Notification, len(p.published))
	copy(out, p.published)
	return out
}

func TestDispatcher_PublishesDecisions(t *testing.T) {
	pub := &capturePublisher{}
	d := NewDispatcher(pub, DispatcherConfig{})
	d.Start()

	decidedAt := time.Now()
	d.DecisionSettled(context.Background(), domain.Decision{
		EventID:    7,
		ClaimantID: "alice",
		Outcome:    domain.OutcomeSuccess,
		Ticket:     &domain.Ticket{ID: 42, EventID: 7, OwnerID: "alice", IssuedAt: decidedAt},
		DecidedAt:  decidedAt,
	})
	d.Stop()

	published := pub.snapshot()
	require.Len(t, published, 1)
	assert.NotEmpty(t, published[0].ID)
	assert.Equal(t, KindDecision, published[0].Kind)
	assert.Equal(t, int64(7), published[0].EventID)
	assert.Equal(t, "alice", published[0].ClaimantID)
	assert.Equal(t, string(domain.OutcomeSuccess), published[0].Outcome)
	assert.Equal(t, int64(42), published[0].TicketID)
	assert.Equal(t, []string{TopicDecisions}, pub.topics)
	assert.True(t, pub.closed)
}

func TestDispatcher_PublishesEventCreations(t *testing.T) {
	pub := &capturePublisher{}
	d := NewDispatcher(pub, DispatcherConfig{})
	d.Start()

	d.EventCreated(context.Background(), domain.Event{
		ID:            3,
		Title:         "drop",
		TotalCapacity: 100,
		CreatedAt:     time.Now(),
	})
	d.Stop()

	published := pub.snapshot()
	require.Len(t, published, 1)
	assert.Equal(t, KindEventCreated, published[0].Kind)
	assert.Equal(t, "drop", published[0].Title)
	assert.Equal(t, uint32(100), published[0].Capacity)
	assert.Equal(t, []string{TopicEvents}, pub.topics)
}

func TestDispatcher_DropsOnOverflowWithoutBlocking(t *testing.T) {
	pub := &capturePublisher{}
	d := NewDispatcher(pub, DispatcherConfig{QueueSize: 1})
	// Not started: nothing drains the queue, so the second enqueue
	// overflows. Both calls must return immediately.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 10; i++ {
			d.DecisionSettled(context.Background(), domain.Decision{
				EventID:    1,
				ClaimantID: "alice",
				Outcome:    domain.OutcomeExhausted,
				DecidedAt:  time.Now(),
			})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("enqueue blocked on full queue")
	}

	d.Start()
	d.Stop()
	assert.Len(t, pub.snapshot(), 1)
}

func TestDispatcher_DrainsQueueOnStop(t *testing.T) {
	pub := &capturePublisher{}
	d := NewDispatcher(pub, DispatcherConfig{QueueSize: 100})

	for i := 0; i < 50; i++ {
		d.DecisionSettled(context.Background(), domain.Decision{
			EventID:    int64(i),
			ClaimantID: "alice",
			Outcome:    domain.OutcomeSuccess,
			DecidedAt:  time.Now(),
		})
	}

	d.Start()
	d.Stop()
	assert.Len(t, pub.snapshot(), 50)
}

func TestDispatcher_SurvivesPublisherErrors(t *testing.T) {
	pub := &capturePublisher{failWith: errors.New("broker away")}
	d := NewDispatcher(pub, DispatcherConfig{})
	d.Start()

	d.DecisionSettled(context.Background(), domain.Decision{
		EventID:    1,
		ClaimantID: "alice",
		Outcome:    domain.OutcomeSuccess,
		DecidedAt:  time.Now(),
	})
	d.Stop()

	assert.Empty(t, pub.snapshot())
	assert.True(t, pub.closed)
}

func TestDispatcher_StopIsIdempotent(t *testing.T) {
	pub := &capturePublisher{}
	d := NewDispatcher(pub, DispatcherConfig{})
	d.Start()
	d.Stop()
	d.Stop()
	assert.True(t, pub.closed)
}
