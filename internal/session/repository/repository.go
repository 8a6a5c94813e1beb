package repository

import (
	"context"
	"errors"
	"time"

	"taskhub/backend/internal/session/domain"
)

// ErrConflict is returned by Transition when the session was not in the
// expected state at the time of the update. Under concurrent refresh attempts
// this is how exactly-one-rotation is enforced; there is no application-level
// locking anywhere above this.
var ErrConflict = errors.New("session not in expected state")

// TransitionFields carries the columns written together with a state change.
type TransitionFields struct {
	// SuccessorID links a rotated session to the session that replaced it.
	SuccessorID *string
	// Reason records why the session left the active state.
	Reason string
	// TerminatedAt is the time of the transition.
	TerminatedAt time.Time
}

// Repository defines persistence for sessions. The store is the single source
// of truth; callers must not cache session rows across requests.
type Repository interface {
	Create(ctx context.Context, s *domain.Session) error
	// GetByID returns the session for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Session, error)
	// ListActiveByUser returns the user's active sessions ordered by creation
	// time, oldest first.
	ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error)
	// Transition atomically moves the session from one state to another via a
	// single compare-and-set keyed on the from state. Returns ErrConflict when
	// the row existed in a different state (or not at all).
	Transition(ctx context.Context, id string, from, to domain.State, fields TransitionFields) error
	// UpdateLastUsed stamps the session's last-used time. Best-effort.
	UpdateLastUsed(ctx context.Context, id string, at time.Time) error
	// ExpireDue transitions every active session whose deadline has passed to
	// expired and returns how many rows changed. Idempotent.
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}
