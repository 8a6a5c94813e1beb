package repository

import (
	"context"
	"database/sql"
	"errors"

	"taskhub/backend/internal/account/domain"
)

// PostgresRepository reads accounts from the accounts table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an account repository backed by db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// GetByEmail returns the account for email, or nil if not found. It returns
// an error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	var (
		a    domain.Account
		role string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, role, verified, created_at
		FROM accounts
		WHERE email = $1`, email,
	).Scan(&a.ID, &a.Email, &a.PasswordHash, &role, &a.Verified, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	a.Role = domain.Role(role)
	return &a, nil
}

// GetByID returns the account for id, or nil if not found.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	var (
		a    domain.Account
		role string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, role, verified, created_at
		FROM accounts
		WHERE id = $1`, id,
	).Scan(&a.ID, &a.Email, &a.PasswordHash, &role, &a.Verified, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	a.Role = domain.Role(role)
	return &a, nil
}
