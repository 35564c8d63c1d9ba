package feed

import (
	"context"
	"sync"
	"time"

	"github.com/nattawut-dev/dropgate/internal/domain"
	"github.com/nattawut-dev/dropgate/internal/logger"
	"github.com/nattawut-dev/dropgate/internal/metrics"
	"github.com/nattawut-dev/dropgate/internal/retry"
	"go.uber.org/zap"
)

const (
	defaultQueueSize      = 4096
	defaultPublishTimeout = 5 * time.Second
)

// DispatcherConfig holds dispatcher tuning knobs
type DispatcherConfig struct {
	QueueSize      int
	PublishTimeout time.Duration
}

// Dispatcher moves notifications from the allocation hot path onto the
// feed asynchronously. Enqueue never blocks: when the queue is full the
// notification is dropped and counted, never the claim.
type Dispatcher struct {
	publisher Publisher
	timeout   time.Duration
	retrier   *retry.Retrier
	queue     chan queued
	stopCh    chan struct{}
	wg        sync.WaitGroup
	stopOnce  sync.Once
}

type queued struct {
	topic string
	n     Notification
}

func NewDispatcher(publisher Publisher, cfg DispatcherConfig) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaultPublishTimeout
	}
	return &Dispatcher{
		publisher: publisher,
		timeout:   cfg.PublishTimeout,
		retrier: retry.New(&retry.Config{
			MaxRetries:      2,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     time.Second,
		}),
		queue:  make(chan queued, cfg.QueueSize),
		stopCh: make(chan struct{}),
	}
}

// Start launches the publish loop.
func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.run()
	logger.Get().Info("feed dispatcher started", zap.Int("queue_size", cap(d.queue)))
}

// Stop drains the queue and shuts the publisher down.
func (d *Dispatcher) Stop() {
	d.stopOnce.Do(func() {
		close(d.stopCh)
		d.wg.Wait()
		d.publisher.Close()
	})
}

// DecisionSettled enqueues a settled claim decision for publication.
func (d *Dispatcher) DecisionSettled(ctx context.Context, decision domain.Decision) {
	d.enqueue(ctx, TopicDecisions, DecisionNotification(decision))
}

// EventCreated enqueues an event creation notification.
func (d *Dispatcher) EventCreated(ctx context.Context, event domain.Event) {
	d.enqueue(ctx, TopicEvents, EventNotification(event))
}

func (d *Dispatcher) enqueue(ctx context.Context, topic string, n Notification) {
	select {
	case d.queue <- queued{topic: topic, n: n}:
	default:
		metrics.RecordFeedDropped(ctx, n.Kind)
		logger.Get().Warn("feed queue full, notification dropped",
			zap.String("kind", n.Kind),
			zap.Int64("event_id", n.EventID),
		)
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for {
		select {
		case item := <-d.queue:
			d.publish(item)
		case <-d.stopCh:
			// Drain what is already queued before exiting.
			for {
				select {
				case item := <-d.queue:
					d.publish(item)
				default:
					return
				}
			}
		}
	}
}

func (d *Dispatcher) publish(item queued) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	err := d.retrier.Do(ctx, func(ctx context.Context) error {
		return d.publisher.Publish(ctx, item.topic, item.n)
	})
	if err != nil {
		logger.Get().Error("failed to publish feed notification",
			zap.String("topic", item.topic),
			zap.String("kind", item.n.Kind),
			zap.Int64("event_id", item.n.EventID),
			zap.Error(err),
		)
		return
	}
	metrics.RecordFeedPublished(ctx, item.n.Kind)
}
