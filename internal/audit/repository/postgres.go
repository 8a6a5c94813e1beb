package repository

import (
	"context"
	"database/sql"
	"time"

	"taskhub/backend/internal/audit/domain"
)

// PostgresRepository persists audit events in the audit_log table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit repository backed by db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts one audit event.
func (r *PostgresRepository) Create(ctx context.Context, e *domain.AuditLog) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_log (id, user_id, action, session_id, ip, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID,
		sql.NullString{String: e.UserID, Valid: e.UserID != ""},
		e.Action,
		sql.NullString{String: e.SessionID, Valid: e.SessionID != ""},
		sql.NullString{String: e.IP, Valid: e.IP != ""},
		sql.NullString{String: e.Metadata, Valid: e.Metadata != ""},
		e.CreatedAt,
	)
	return err
}

// CountByActionAndIP counts events for action from ip since the cutoff.
func (r *PostgresRepository) CountByActionAndIP(ctx context.Context, action, ip string, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT count(*) FROM audit_log
		WHERE action = $1 AND ip = $2 AND created_at >= $3`,
		action, ip, since,
	).Scan(&n)
	return n, err
}

// CountByActionAndUser counts events for action and user since the cutoff.
func (r *PostgresRepository) CountByActionAndUser(ctx context.Context, action, userID string, since time.Time) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT count(*) FROM audit_log
		WHERE action = $1 AND user_id = $2 AND created_at >= $3`,
		action, userID, since,
	).Scan(&n)
	return n, err
}
