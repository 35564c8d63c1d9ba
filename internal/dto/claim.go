package dto

import (
	"time"

	"github.com/nattawut-dev/dropgate/internal/domain"
)

// ClaimResponse represents one settled claim decision
type ClaimResponse struct {
	EventID    int64           `json:"event_id"`
	ClaimantID string          `json:"claimant_id"`
	Outcome    string          `json:"outcome"`
	Ticket     *TicketResponse `json:"ticket,omitempty"`
	DecidedAt  time.Time       `json:"decided_at"`
}

// TicketResponse represents an issued ticket in API responses
type TicketResponse struct {
	ID       int64     `json:"id"`
	EventID  int64     `json:"event_id"`
	OwnerID  string    `json:"owner_id"`
	IssuedAt time.Time `json:"issued_at"`
}

// AttemptResponse represents one ledger entry
type AttemptResponse struct {
	EventID    int64     `json:"event_id"`
	ClaimantID string    `json:"claimant_id"`
	Outcome    string    `json:"outcome"`
	At         time.Time `json:"at"`
}

// TicketListResponse wraps a claimant's tickets
type TicketListResponse struct {
	ClaimantID string            `json:"claimant_id"`
	Tickets    []*TicketResponse `json:"tickets"`
	Total      int               `json:"total"`
}

// AttemptListResponse wraps a claimant's attempt history
type AttemptListResponse struct {
	ClaimantID string             `json:"claimant_id"`
	Attempts   []*AttemptResponse `json:"attempts"`
	Total      int                `json:"total"`
}

// WinnersResponse wraps the most recent winners of one event
type WinnersResponse struct {
	EventID int64             `json:"event_id"`
	Winners []*TicketResponse `json:"winners"`
	Total   int               `json:"total"`
}

// AttendanceResponse reports claimants currently attempting an event
type AttendanceResponse struct {
	EventID   int64    `json:"event_id"`
	Claimants []string `json:"claimants"`
	Total     int      `json:"total"`
}

// ClaimFromDomain converts a domain Decision to ClaimResponse
func ClaimFromDomain(d *domain.Decision) *ClaimResponse {
	resp := &ClaimResponse{
		EventID:    d.EventID,
		ClaimantID: d.ClaimantID,
		Outcome:    string(d.Outcome),
		DecidedAt:  d.DecidedAt,
	}
	if d.Ticket != nil {
		resp.Ticket = TicketFromDomain(d.Ticket)
	}
	return resp
}

// TicketFromDomain converts a domain Ticket to TicketResponse
func TicketFromDomain(t *domain.Ticket) *TicketResponse {
	return &TicketResponse{
		ID:       t.ID,
		EventID:  t.EventID,
		OwnerID:  t.OwnerID,
		IssuedAt: t.IssuedAt,
	}
}

// TicketListFromDomain converts a claimant's domain tickets
func TicketListFromDomain(claimantID string, tickets []*domain.Ticket) *TicketListResponse {
	out := make([]*TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, TicketFromDomain(t))
	}
	return &TicketListResponse{ClaimantID: claimantID, Tickets: out, Total: len(out)}
}

// AttemptListFromDomain converts a claimant's domain attempts
func AttemptListFromDomain(claimantID string, attempts []*domain.ClaimAttempt) *AttemptListResponse {
	out := make([]*AttemptResponse, 0, len(attempts))
	for _, a := range attempts {
		out = append(out, &AttemptResponse{
			EventID:    a.EventID,
			ClaimantID: a.ClaimantID,
			Outcome:    string(a.Outcome),
			At:         a.At,
		})
	}
	return &AttemptListResponse{ClaimantID: claimantID, Attempts: out, Total: len(out)}
}

// WinnersFromDomain converts an event's recent winning tickets
func WinnersFromDomain(eventID int64, tickets []*domain.Ticket) *WinnersResponse {
	out := make([]*TicketResponse, 0, len(tickets))
	for _, t := range tickets {
		out = append(out, TicketFromDomain(t))
	}
	return &WinnersResponse{EventID: eventID, Winners: out, Total: len(out)}
}
