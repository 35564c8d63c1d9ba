package presence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryTracker_TouchAndAttempting(t *testing.T) {
	tracker := NewMemoryTracker(time.Minute)
	defer tracker.Close()
	ctx := context.Background()

	require.NoError(t, tracker.Touch(ctx, 1, "alice"))
	require.NoError(t, tracker.Touch(ctx, 1, "bob"))
	require.NoError(t, tracker.Touch(ctx, 2, "carol"))

	attempting, err := tracker.Attempting(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, attempting)

	count, err := tracker.Count(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	other, err := tracker.Attempting(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"carol"}, other)
}

func TestMemoryTracker_TouchIsIdempotent(t *testing.T) {
	tracker := NewMemoryTracker(time.Minute)
	defer tracker.Close()
	ctx := context.Background()

	require.NoError(t, tracker.Touch(ctx, 1, "alice"))
	require.NoError(t, tracker.Touch(ctx, 1, "alice"))

	count, err := tracker.Count(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestMemoryTracker_Leave(t *testing.T) {
	tracker := NewMemoryTracker(time.Minute)
	defer tracker.Close()
	ctx := context.Background()

	require.NoError(t, tracker.Touch(ctx, 1, "alice"))
	require.NoError(t, tracker.Leave(ctx, 1, "alice"))

	attempting, err := tracker.Attempting(ctx, 1)
	require.NoError(t, err)
	assert.Empty(t, attempting)

	// Leaving again, or leaving an unknown event, is a no-op.
	require.NoError(t, tracker.Leave(ctx, 1, "alice"))
	require.NoError(t, tracker.Leave(ctx, 42, "bob"))
}

func TestMemoryTracker_ExpiresHeartbeats(t *testing.T) {
	tracker := NewMemoryTracker(time.Minute)
	defer tracker.Close()
	ctx := context.Background()

	current := time.Now()
	tracker.now = func() time.Time { return current }

	require.NoError(t, tracker.Touch(ctx, 1, "alice"))
	current = current.Add(30 * time.Second)
	require.NoError(t, tracker.Touch(ctx, 1, "bob"))

	// Alice's heartbeat is now a minute old, Bob's is fresh.
	current = current.Add(31 * time.Second)
	attempting, err := tracker.Attempting(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, attempting)

	// A fresh touch revives an expired claimant.
	require.NoError(t, tracker.Touch(ctx, 1, "alice"))
	attempting, err = tracker.Attempting(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "bob"}, attempting)
}

func TestMemoryTracker_SweepRemovesExpired(t *testing.T) {
	tracker := NewMemoryTracker(time.Minute)
	defer tracker.Close()
	ctx := context.Background()

	current := time.Now()
	tracker.now = func() time.Time { return current }

	require.NoError(t, tracker.Touch(ctx, 1, "alice"))
	current = current.Add(2 * time.Minute)
	tracker.sweep()

	tracker.mu.RLock()
	_, ok := tracker.events[1]
	tracker.mu.RUnlock()
	assert.False(t, ok)
}
