package domain

import (
	"time"
)

// Outcome is the closed set of results a claim can resolve to. Every
// claim terminates in exactly one of these; there is no catch-all.
type Outcome string

const (
	OutcomeSuccess        Outcome = "success"
	OutcomeAlreadyClaimed Outcome = "already_claimed"
	OutcomeExhausted      Outcome = "exhausted"
	OutcomeNotYetActive   Outcome = "not_yet_active"
)

// IsSuccess reports whether the outcome minted a ticket.
func (o Outcome) IsSuccess() bool {
	return o == OutcomeSuccess
}

// IsTerminal reports whether the claimant is settled with this event:
// they hold a ticket, so further attempts change nothing for them.
func (o Outcome) IsTerminal() bool {
	return o == OutcomeSuccess || o == OutcomeAlreadyClaimed
}

// Valid reports whether o is one of the four defined outcomes.
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeSuccess, OutcomeAlreadyClaimed, OutcomeExhausted, OutcomeNotYetActive:
		return true
	}
	return false
}

// Ticket is the unique, permanent proof-of-allocation issued on a
// successful claim. Ticket ids are globally unique across all events
// and strictly increasing. A ticket is never mutated or deleted.
type Ticket struct {
	ID       int64     `json:"id"`
	EventID  int64     `json:"event_id"`
	OwnerID  string    `json:"owner_id"`
	IssuedAt time.Time `json:"issued_at"`
}

// ClaimAttempt is one append-only ledger entry. Every claim request,
// successful or not, produces exactly one.
type ClaimAttempt struct {
	EventID    int64     `json:"event_id"`
	ClaimantID string    `json:"claimant_id"`
	Outcome    Outcome   `json:"outcome"`
	At         time.Time `json:"at"`
}

// Decision is the terminal result of evaluating one claim request.
// Ticket is non-nil only when Outcome is OutcomeSuccess.
type Decision struct {
	EventID    int64     `json:"event_id"`
	ClaimantID string    `json:"claimant_id"`
	Outcome    Outcome   `json:"outcome"`
	Ticket     *Ticket   `json:"ticket,omitempty"`
	DecidedAt  time.Time `json:"decided_at"`
}
