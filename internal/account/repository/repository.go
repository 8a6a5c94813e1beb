package repository

import (
	"context"

	"taskhub/backend/internal/account/domain"
)

// Repository is the read-only credential-record lookup consumed by the auth
// service.
type Repository interface {
	// GetByEmail returns the account for email, or nil if not found.
	GetByEmail(ctx context.Context, email string) (*domain.Account, error)
	// GetByID returns the account for id, or nil if not found.
	GetByID(ctx context.Context, id string) (*domain.Account, error)
}
