package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/nattawut-dev/dropgate/internal/database"
	"github.com/nattawut-dev/dropgate/internal/domain"
	"github.com/nattawut-dev/dropgate/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// PostgresStore persists events, tickets and attempts in PostgreSQL.
// It relies on the engine for per-event serialization; the guarded
// capacity update is a second line of defense, not the locking scheme.
type PostgresStore struct {
	db *database.PostgresDB
}

func NewPostgresStore(db *database.PostgresDB) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS events (
		id                 BIGINT PRIMARY KEY,
		title              TEXT NOT NULL,
		activation_at      TIMESTAMPTZ NOT NULL,
		total_capacity     BIGINT NOT NULL,
		remaining_capacity BIGINT NOT NULL CHECK (remaining_capacity >= 0),
		creator            TEXT NOT NULL DEFAULT '',
		created_at         TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tickets (
		id        BIGINT PRIMARY KEY,
		event_id  BIGINT NOT NULL REFERENCES events(id),
		owner_id  TEXT NOT NULL,
		issued_at TIMESTAMPTZ NOT NULL,
		UNIQUE (event_id, owner_id)
	);
	CREATE INDEX IF NOT EXISTS idx_tickets_owner ON tickets(owner_id);
	CREATE INDEX IF NOT EXISTS idx_tickets_event ON tickets(event_id, id DESC);

	CREATE TABLE IF NOT EXISTS claim_attempts (
		seq         BIGSERIAL PRIMARY KEY,
		event_id    BIGINT NOT NULL,
		claimant_id TEXT NOT NULL,
		outcome     TEXT NOT NULL,
		at          TIMESTAMPTZ NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_attempts_claimant ON claim_attempts(claimant_id, seq);
	`
	if _, err := s.db.Pool().Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

func (s *PostgresStore) InsertEvent(ctx context.Context, event *domain.Event) error {
	ctx, span := telemetry.StartSpan(ctx, "store.insert_event")
	defer span.End()
	span.SetAttributes(attribute.Int64("event.id", event.ID))

	query := `
		INSERT INTO events (id, title, activation_at, total_capacity, remaining_capacity, creator, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.Pool().Exec(ctx, query,
		event.ID, event.Title, event.ActivationAt,
		int64(event.TotalCapacity), int64(event.RemainingCapacity),
		event.Creator, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetEvent(ctx context.Context, eventID int64) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "store.get_event")
	defer span.End()
	span.SetAttributes(attribute.Int64("event.id", eventID))

	query := `
		SELECT id, title, activation_at, total_capacity, remaining_capacity, creator, created_at
		FROM events WHERE id = $1
	`
	event, err := scanEvent(s.db.Pool().QueryRow(ctx, query, eventID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

func (s *PostgresStore) ListEvents(ctx context.Context) ([]*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "store.list_events")
	defer span.End()

	query := `
		SELECT id, title, activation_at, total_capacity, remaining_capacity, creator, created_at
		FROM events ORDER BY id
	`
	rows, err := s.db.Pool().Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var events []*domain.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func (s *PostgresStore) ListEventIDs(ctx context.Context) ([]int64, error) {
	rows, err := s.db.Pool().Query(ctx, `SELECT id FROM events ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list event ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (s *PostgresStore) MaxEventID(ctx context.Context) (int64, error) {
	var max int64
	err := s.db.Pool().QueryRow(ctx, `SELECT COALESCE(MAX(id), 0) FROM events`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to read max event id: %w", err)
	}
	return max, nil
}

func (s *PostgresStore) HasClaimed(ctx context.Context, eventID int64, claimantID string) (bool, error) {
	ctx, span := telemetry.StartSpan(ctx, "store.has_claimed")
	defer span.End()

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM tickets WHERE event_id = $1 AND owner_id = $2)`
	if err := s.db.Pool().QueryRow(ctx, query, eventID, claimantID).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check claim: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) RecordSuccess(ctx context.Context, ticket *domain.Ticket, attempt *domain.ClaimAttempt) error {
	ctx, span := telemetry.StartSpan(ctx, "store.record_success")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("event.id", ticket.EventID),
		attribute.Int64("ticket.id", ticket.ID),
	)

	tx, err := s.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Guarded decrement: affects zero rows when capacity is spent.
	tag, err := tx.Exec(ctx, `
		UPDATE events SET remaining_capacity = remaining_capacity - 1
		WHERE id = $1 AND remaining_capacity > 0
	`, ticket.EventID)
	if err != nil {
		return fmt.Errorf("failed to decrement capacity: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInvariantViolation
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO tickets (id, event_id, owner_id, issued_at)
		VALUES ($1, $2, $3, $4)
	`, ticket.ID, ticket.EventID, ticket.OwnerID, ticket.IssuedAt)
	if err != nil {
		return fmt.Errorf("failed to insert ticket: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO claim_attempts (event_id, claimant_id, outcome, at)
		VALUES ($1, $2, $3, $4)
	`, attempt.EventID, attempt.ClaimantID, string(attempt.Outcome), attempt.At)
	if err != nil {
		return fmt.Errorf("failed to insert attempt: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

func (s *PostgresStore) RecordFailure(ctx context.Context, attempt *domain.ClaimAttempt) error {
	ctx, span := telemetry.StartSpan(ctx, "store.record_failure")
	defer span.End()

	_, err := s.db.Pool().Exec(ctx, `
		INSERT INTO claim_attempts (event_id, claimant_id, outcome, at)
		VALUES ($1, $2, $3, $4)
	`, attempt.EventID, attempt.ClaimantID, string(attempt.Outcome), attempt.At)
	if err != nil {
		return fmt.Errorf("failed to insert attempt: %w", err)
	}
	return nil
}

func (s *PostgresStore) TicketsFor(ctx context.Context, claimantID string) ([]*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "store.tickets_for")
	defer span.End()

	query := `
		SELECT id, event_id, owner_id, issued_at
		FROM tickets WHERE owner_id = $1 ORDER BY id
	`
	return s.queryTickets(ctx, query, claimantID)
}

func (s *PostgresStore) AttemptsFor(ctx context.Context, claimantID string) ([]*domain.ClaimAttempt, error) {
	ctx, span := telemetry.StartSpan(ctx, "store.attempts_for")
	defer span.End()

	query := `
		SELECT event_id, claimant_id, outcome, at
		FROM claim_attempts WHERE claimant_id = $1 ORDER BY seq
	`
	rows, err := s.db.Pool().Query(ctx, query, claimantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attempts: %w", err)
	}
	defer rows.Close()

	var attempts []*domain.ClaimAttempt
	for rows.Next() {
		var a domain.ClaimAttempt
		var outcome string
		if err := rows.Scan(&a.EventID, &a.ClaimantID, &outcome, &a.At); err != nil {
			return nil, fmt.Errorf("failed to scan attempt: %w", err)
		}
		a.Outcome = domain.Outcome(outcome)
		attempts = append(attempts, &a)
	}
	return attempts, rows.Err()
}

func (s *PostgresStore) RecentWinners(ctx context.Context, eventID int64, limit int) ([]*domain.Ticket, error) {
	ctx, span := telemetry.StartSpan(ctx, "store.recent_winners")
	defer span.End()

	query := `
		SELECT id, event_id, owner_id, issued_at
		FROM tickets WHERE event_id = $1 ORDER BY id DESC LIMIT $2
	`
	return s.queryTickets(ctx, query, eventID, limit)
}

func (s *PostgresStore) MaxTicketID(ctx context.Context) (int64, error) {
	var max int64
	err := s.db.Pool().QueryRow(ctx, `SELECT COALESCE(MAX(id), 0) FROM tickets`).Scan(&max)
	if err != nil {
		return 0, fmt.Errorf("failed to read max ticket id: %w", err)
	}
	return max, nil
}

func (s *PostgresStore) HealthCheck(ctx context.Context) error {
	return s.db.HealthCheck(ctx)
}

func (s *PostgresStore) Close() {
	s.db.Close()
}

func (s *PostgresStore) queryTickets(ctx context.Context, query string, args ...any) ([]*domain.Ticket, error) {
	rows, err := s.db.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*domain.Ticket
	for rows.Next() {
		var t domain.Ticket
		if err := rows.Scan(&t.ID, &t.EventID, &t.OwnerID, &t.IssuedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, &t)
	}
	return tickets, rows.Err()
}

func scanEvent(row pgx.Row) (*domain.Event, error) {
	var e domain.Event
	var total, remaining int64
	if err := row.Scan(&e.ID, &e.Title, &e.ActivationAt, &total, &remaining, &e.Creator, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.TotalCapacity = uint32(total)
	e.RemainingCapacity = uint32(remaining)
	return &e, nil
}
