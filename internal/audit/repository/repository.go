package repository

import (
	"context"
	"time"

	"taskhub/backend/internal/audit/domain"
)

// Repository defines persistence for audit events.
type Repository interface {
	Create(ctx context.Context, e *domain.AuditLog) error
	// CountByActionAndIP counts events with the given action from ip since the
	// cutoff. Backs the source-address login throttle.
	CountByActionAndIP(ctx context.Context, action, ip string, since time.Time) (int, error)
	// CountByActionAndUser counts events with the given action for the user
	// since the cutoff. Backs the per-account login throttle.
	CountByActionAndUser(ctx context.Context, action, userID string, since time.Time) (int, error)
}
