package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"critvue-backend/internal/wizard"
)

// ErrNotFound is returned when a session id has no stored session,
// either because it never existed or because its TTL expired.
var ErrNotFound = errors.New("wizard session not found")

// SessionTTL bounds how long an abandoned session survives.
const SessionTTL = 24 * time.Hour

// LockTTL bounds how long an in-flight guard can be held if the process
// dies mid-call.
const LockTTL = 30 * time.Second

// SessionStore persists wizard sessions between requests.
type SessionStore interface {
	Get(ctx context.Context, id uuid.UUID) (*wizard.Session, error)
	Save(ctx context.Context, session *wizard.Session) error
	Delete(ctx context.Context, id uuid.UUID) error

	// TryLock acquires the per-session in-flight guard. It returns false
	// when another backend call for the session is still outstanding, so
	// a duplicate advance/submit can be rejected instead of queued.
	TryLock(ctx context.Context, id uuid.UUID) (bool, error)
	Unlock(ctx context.Context, id uuid.UUID) error
}
