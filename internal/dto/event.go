package dto

import (
	"time"

	"github.com/nattawut-dev/dropgate/internal/domain"
)

// CreateEventRequest represents request to create an allocation event
type CreateEventRequest struct {
	Title         string    `json:"title" binding:"required"`
	ActivationAt  time.Time `json:"activation_at" binding:"required"`
	TotalCapacity uint32    `json:"total_capacity" binding:"required"`
}

// EventResponse represents an event in API responses
type EventResponse struct {
	ID                int64     `json:"id"`
	Title             string    `json:"title"`
	Status            string    `json:"status"`
	ActivationAt      time.Time `json:"activation_at"`
	TotalCapacity     uint32    `json:"total_capacity"`
	RemainingCapacity uint32    `json:"remaining_capacity"`
	Issued            uint32    `json:"issued"`
	Creator           string    `json:"creator,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
}

// EventListResponse wraps a page of events
type EventListResponse struct {
	Events []*EventResponse `json:"events"`
	Total  int              `json:"total"`
}

// EventIDListResponse carries just the registered event ids
type EventIDListResponse struct {
	EventIDs []int64 `json:"event_ids"`
	Total    int     `json:"total"`
}

// EventFromDomain converts a domain Event to EventResponse, deriving its
// status at the given instant.
func EventFromDomain(e *domain.Event, now time.Time) *EventResponse {
	return &EventResponse{
		ID:                e.ID,
		Title:             e.Title,
		Status:            string(e.StatusAt(now)),
		ActivationAt:      e.ActivationAt,
		TotalCapacity:     e.TotalCapacity,
		RemainingCapacity: e.RemainingCapacity,
		Issued:            e.Issued(),
		Creator:           e.Creator,
		CreatedAt:         e.CreatedAt,
	}
}

// EventListFromDomain converts a slice of domain events
func EventListFromDomain(events []*domain.Event, now time.Time) *EventListResponse {
	out := make([]*EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, EventFromDomain(e, now))
	}
	return &EventListResponse{Events: out, Total: len(out)}
}
