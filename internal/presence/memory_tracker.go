package presence

import (
	"context"
	"sort"
	"sync"
	"time"
)

const janitorInterval = 10 * time.Second

// MemoryTracker is the in-process presence tracker. A background janitor
// sweeps expired heartbeats; reads also filter on TTL so they stay exact
// between sweeps.
type MemoryTracker struct {
	ttl time.Duration
	now func() time.Time

	mu     sync.RWMutex
	events map[int64]map[string]time.Time

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewMemoryTracker(ttl time.Duration) *MemoryTracker {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	t := &MemoryTracker{
		ttl:    ttl,
		now:    time.Now,
		events: make(map[int64]map[string]time.Time),
		stopCh: make(chan struct{}),
	}
	t.wg.Add(1)
	go t.janitor()
	return t
}

func (t *MemoryTracker) Touch(_ context.Context, eventID int64, claimantID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	claimants, ok := t.events[eventID]
	if !ok {
		claimants = make(map[string]time.Time)
		t.events[eventID] = claimants
	}
	claimants[claimantID] = t.now()
	return nil
}

func (t *MemoryTracker) Leave(_ context.Context, eventID int64, claimantID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if claimants, ok := t.events[eventID]; ok {
		delete(claimants, claimantID)
		if len(claimants) == 0 {
			delete(t.events, eventID)
		}
	}
	return nil
}

func (t *MemoryTracker) Attempting(_ context.Context, eventID int64) ([]string, error) {
	cutoff := t.now().Add(-t.ttl)

	t.mu.RLock()
	defer t.mu.RUnlock()
	claimants := t.events[eventID]
	out := make([]string, 0, len(claimants))
	for id, seen := range claimants {
		if seen.After(cutoff) {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (t *MemoryTracker) Count(ctx context.Context, eventID int64) (int64, error) {
	attempting, err := t.Attempting(ctx, eventID)
	if err != nil {
		return 0, err
	}
	return int64(len(attempting)), nil
}

func (t *MemoryTracker) Close() error {
	t.stopOnce.Do(func() {
		close(t.stopCh)
		t.wg.Wait()
	})
	return nil
}

func (t *MemoryTracker) janitor() {
	defer t.wg.Done()
	ticker := time.NewTicker(janitorInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			t.sweep()
		case <-t.stopCh:
			return
		}
	}
}

func (t *MemoryTracker) sweep() {
	cutoff := t.now().Add(-t.ttl)

	t.mu.Lock()
	defer t.mu.Unlock()
	for eventID, claimants := range t.events {
		for id, seen := range claimants {
			if !seen.After(cutoff) {
				delete(claimants, id)
			}
		}
		if len(claimants) == 0 {
			delete(t.events, eventID)
		}
	}
}
