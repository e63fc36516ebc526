package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists journal events.
type Repository interface {
	Append(ctx context.Context, event Event) error
	List(ctx context.Context, sessionID string) ([]Event, error)
}

var schema = []string{`CREATE TABLE IF NOT EXISTS onboarding_events (
    id UUID PRIMARY KEY,
    session_id UUID NOT NULL,
    step TEXT NOT NULL,
    kind TEXT NOT NULL,
    detail TEXT NOT NULL DEFAULT '',
    created_at TIMESTAMPTZ NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS onboarding_events_session_idx ON onboarding_events (session_id, created_at)`,
}

// PostgresRepository stores events in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed journal.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the events table when missing.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := r.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create journal schema: %w", err)
		}
	}
	return nil
}

// Append inserts an event.
func (r *PostgresRepository) Append(ctx context.Context, event Event) error {
	id, err := uuid.Parse(event.ID)
	if err != nil {
		return err
	}
	sessionID, err := uuid.Parse(event.SessionID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO onboarding_events (id, session_id, step, kind, detail, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)`, id, sessionID, event.Step, event.Kind, event.Detail, event.CreatedAt.UTC())
	return err
}

// List returns the events of a session, oldest first.
func (r *PostgresRepository) List(ctx context.Context, sessionID string) ([]Event, error) {
	sid, err := uuid.Parse(sessionID)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, session_id, step, kind, detail, created_at
        FROM onboarding_events WHERE session_id = $1 ORDER BY created_at, id`, sid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			id, session uuid.UUID
			createdAt   time.Time
			e           Event
		)
		if err := rows.Scan(&id, &session, &e.Step, &e.Kind, &e.Detail, &createdAt); err != nil {
			return nil, err
		}
		e.ID = id.String()
		e.SessionID = session.String()
		e.CreatedAt = createdAt.UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}
