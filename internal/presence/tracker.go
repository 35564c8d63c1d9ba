// Package presence tracks which claimants are currently attempting an
// event. The tracker is advisory only: it never influences allocation
// decisions and losing its state loses nothing but a live headcount.
package presence

import (
	"context"
	"time"
)

// DefaultTTL is how long one heartbeat keeps a claimant visible.
const DefaultTTL = 30 * time.Second

// Tracker records claimant heartbeats per event and reports who is
// currently attempting.
type Tracker interface {
	// Touch marks the claimant as attempting the event, refreshing its TTL.
	Touch(ctx context.Context, eventID int64, claimantID string) error
	// Leave removes the claimant immediately.
	Leave(ctx context.Context, eventID int64, claimantID string) error
	// Attempting lists claimants whose heartbeats have not expired.
	Attempting(ctx context.Context, eventID int64) ([]string, error)
	// Count reports the number of live claimants for the event.
	Count(ctx context.Context, eventID int64) (int64, error)
	Close() error
}
