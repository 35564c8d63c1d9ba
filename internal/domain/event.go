package domain

import (
	"time"
)

// EventStatus is the derived lifecycle state of an event. It is never
// stored; always computed from the activation time and the remaining
// capacity so it cannot drift from the underlying counters.
type EventStatus string

const (
	EventStatusNotStarted EventStatus = "not_started"
	EventStatusActive     EventStatus = "active"
	EventStatusExhausted  EventStatus = "exhausted"
)

// Event represents a ticket-allocation campaign with fixed capacity
// and an activation time. TotalCapacity is immutable after creation;
// RemainingCapacity is mutated only by successful claims.
type Event struct {
	ID                int64     `json:"id"`
	Title             string    `json:"title"`
	ActivationAt      time.Time `json:"activation_at"`
	TotalCapacity     uint32    `json:"total_capacity"`
	RemainingCapacity uint32    `json:"remaining_capacity"`
	Creator           string    `json:"creator"`
	CreatedAt         time.Time `json:"created_at"`
}

// StatusAt derives the event status at the given instant. Pure function
// of (now, ActivationAt, RemainingCapacity).
func (e *Event) StatusAt(now time.Time) EventStatus {
	if now.Before(e.ActivationAt) {
		return EventStatusNotStarted
	}
	if e.RemainingCapacity == 0 {
		return EventStatusExhausted
	}
	return EventStatusActive
}

// HasStarted reports whether the event's activation time has passed.
func (e *Event) HasStarted(now time.Time) bool {
	return !now.Before(e.ActivationAt)
}

// IsExhausted reports whether every ticket has been issued.
func (e *Event) IsExhausted() bool {
	return e.RemainingCapacity == 0
}

// Issued returns the number of tickets issued so far.
func (e *Event) Issued() uint32 {
	return e.TotalCapacity - e.RemainingCapacity
}
