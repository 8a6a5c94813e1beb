package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"taskhub/backend/internal/session/domain"
)

// PostgresRepository persists sessions in the sessions table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository backed by db.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const sessionColumns = `id, user_id, secret_hash, device_key, source_address, state, successor_id, reason, created_at, last_used_at, expires_at, terminated_at`

// Create persists the session. The session must have ID, SecretHash, and
// ExpiresAt set.
func (r *PostgresRepository) Create(ctx context.Context, s *domain.Session) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		s.ID, s.UserID, s.SecretHash, s.DeviceKey,
		sql.NullString{String: s.SourceAddress, Valid: s.SourceAddress != ""},
		string(s.State), nullStrPtr(s.SuccessorID),
		sql.NullString{String: s.Reason, Valid: s.Reason != ""},
		s.CreatedAt, nullTimePtr(s.LastUsedAt), s.ExpiresAt, nullTimePtr(s.TerminatedAt),
	)
	return err
}

// GetByID returns the session for id, or nil if not found. It returns an
// error only for database failures, not for missing rows.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE id = $1`, id)
	s, err := scanSession(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return s, nil
}

// ListActiveByUser returns all active sessions for the user, oldest first.
func (r *PostgresRepository) ListActiveByUser(ctx context.Context, userID string) ([]*domain.Session, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sessionColumns+`
		FROM sessions
		WHERE user_id = $1 AND state = $2
		ORDER BY created_at ASC`, userID, string(domain.StateActive))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*domain.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Transition performs the atomic compare-and-set state change. A single
// UPDATE guarded on the from state makes this correct across processes; zero
// rows affected means the session raced into another state (or never existed)
// and the caller gets ErrConflict.
func (r *PostgresRepository) Transition(ctx context.Context, id string, from, to domain.State, fields TransitionFields) error {
	if !from.CanTransition(to) {
		return ErrConflict
	}
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET state = $1, successor_id = $2, reason = $3, terminated_at = $4
		WHERE id = $5 AND state = $6`,
		string(to), nullStrPtr(fields.SuccessorID),
		sql.NullString{String: fields.Reason, Valid: fields.Reason != ""},
		fields.TerminatedAt, id, string(from),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrConflict
	}
	return nil
}

// UpdateLastUsed stamps last_used_at for the session.
func (r *PostgresRepository) UpdateLastUsed(ctx context.Context, id string, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE sessions SET last_used_at = $1 WHERE id = $2`, at, id)
	return err
}

// ExpireDue sweeps active sessions past their deadline into the expired state.
func (r *PostgresRepository) ExpireDue(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sessions
		SET state = $1, reason = $2, terminated_at = $3
		WHERE state = $4 AND expires_at < $3`,
		string(domain.StateExpired), domain.ReasonExpired, now, string(domain.StateActive),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*domain.Session, error) {
	var (
		s           domain.Session
		state       string
		sourceAddr  sql.NullString
		successorID sql.NullString
		reason      sql.NullString
		lastUsedAt  sql.NullTime
		terminated  sql.NullTime
	)
	err := row.Scan(
		&s.ID, &s.UserID, &s.SecretHash, &s.DeviceKey, &sourceAddr,
		&state, &successorID, &reason, &s.CreatedAt, &lastUsedAt, &s.ExpiresAt, &terminated,
	)
	if err != nil {
		return nil, err
	}
	s.State = domain.State(state)
	s.SourceAddress = sourceAddr.String
	s.Reason = reason.String
	if successorID.Valid {
		s.SuccessorID = &successorID.String
	}
	if lastUsedAt.Valid {
		s.LastUsedAt = &lastUsedAt.Time
	}
	if terminated.Valid {
		s.TerminatedAt = &terminated.Time
	}
	return &s, nil
}

func nullStrPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
