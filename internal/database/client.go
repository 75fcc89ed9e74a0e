package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// Client records wizard funnel events in postgres. Recording is
// best-effort: a failed insert never fails the user action it describes.
type Client struct {
	db *sql.DB
}

// WizardEvent is one row in the creation funnel: which session did what,
// at which step of which variant.
type WizardEvent struct {
	ID        uuid.UUID
	SessionID uuid.UUID
	UserID    uuid.UUID
	ReviewID  sql.NullString
	Event     string
	Step      int
	Variant   string
	CreatedAt time.Time
}

// Funnel event names.
const (
	EventSessionStarted   = "session_started"
	EventSessionBlocked   = "session_blocked"
	EventStepEntered      = "step_entered"
	EventDraftCreated     = "draft_created"
	EventSubmitted        = "submitted"
	EventPaymentRequested = "payment_requested"
	EventPaymentCompleted = "payment_completed"
	EventPaymentFailed    = "payment_failed"
	EventSessionCancelled = "session_cancelled"
)

func NewClient(connectionString string) (*Client, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Client{db: db}, nil
}

// RecordEvent appends one funnel event.
func (c *Client) RecordEvent(sessionID, userID uuid.UUID, reviewID, event string, step int, variant string) error {
	var review sql.NullString
	if reviewID != "" {
		review = sql.NullString{String: reviewID, Valid: true}
	}

	_, err := c.db.Exec(`
		INSERT INTO wizard_events (id, session_id, user_id, review_id, event, step, variant)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, uuid.New(), sessionID, userID, review, event, step, variant)
	if err != nil {
		return fmt.Errorf("failed to record wizard event: %w", err)
	}

	return nil
}

// ListSessionEvents returns a session's funnel events in order.
func (c *Client) ListSessionEvents(sessionID uuid.UUID) ([]WizardEvent, error) {
	rows, err := c.db.Query(`
		SELECT id, session_id, user_id, review_id, event, step, variant, created_at
		FROM wizard_events
		WHERE session_id = $1
		ORDER BY created_at ASC
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to list wizard events: %w", err)
	}
	defer rows.Close()

	var events []WizardEvent
	for rows.Next() {
		var ev WizardEvent
		err := rows.Scan(
			&ev.ID, &ev.SessionID, &ev.UserID, &ev.ReviewID,
			&ev.Event, &ev.Step, &ev.Variant, &ev.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan wizard event: %w", err)
		}
		events = append(events, ev)
	}

	return events, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}
