package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusAt(t *testing.T) {
	activation := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		remaining uint32
		now       time.Time
		want      EventStatus
	}{
		{
			name:      "before activation",
			remaining: 10,
			now:       activation.Add(-time.Second),
			want:      EventStatusNotStarted,
		},
		{
			name:      "exactly at activation",
			remaining: 10,
			now:       activation,
			want:      EventStatusActive,
		},
		{
			name:      "after activation with capacity",
			remaining: 1,
			now:       activation.Add(time.Hour),
			want:      EventStatusActive,
		},
		{
			name:      "after activation exhausted",
			remaining: 0,
			now:       activation.Add(time.Hour),
			want:      EventStatusExhausted,
		},
		{
			name:      "exhausted before activation still reports not started",
			remaining: 0,
			now:       activation.Add(-time.Minute),
			want:      EventStatusNotStarted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Event{
				ActivationAt:      activation,
				TotalCapacity:     10,
				RemainingCapacity: tt.remaining,
			}
			assert.Equal(t, tt.want, e.StatusAt(tt.now))
		})
	}
}

func TestIssued(t *testing.T) {
	e := &Event{TotalCapacity: 10, RemainingCapacity: 3}
	assert.Equal(t, uint32(7), e.Issued())
	assert.False(t, e.IsExhausted())

	e.RemainingCapacity = 0
	assert.True(t, e.IsExhausted())
}

func TestOutcomeValid(t *testing.T) {
	for _, o := range []Outcome{OutcomeSuccess, OutcomeAlreadyClaimed, OutcomeExhausted, OutcomeNotYetActive} {
		assert.True(t, o.Valid())
	}
	assert.False(t, Outcome("pending").Valid())
	assert.True(t, OutcomeSuccess.IsSuccess())
	assert.False(t, OutcomeExhausted.IsSuccess())
}

func TestOutcomeIsTerminal(t *testing.T) {
	assert.True(t, OutcomeSuccess.IsTerminal())
	assert.True(t, OutcomeAlreadyClaimed.IsTerminal())
	assert.False(t, OutcomeExhausted.IsTerminal())
	assert.False(t, OutcomeNotYetActive.IsTerminal())
}
