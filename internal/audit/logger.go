package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"taskhub/backend/internal/audit/domain"
	auditrepo "taskhub/backend/internal/audit/repository"
)

// AuditLogger writes a single audit event. Used by auth code paths; LogEvent
// is best-effort and must never fail the caller.
type AuditLogger interface {
	LogEvent(ctx context.Context, userID, action, sessionID, ip, metadata string)
}

// Logger implements AuditLogger on top of the audit repository.
type Logger struct {
	repo auditrepo.Repository
}

// NewLogger returns an AuditLogger that persists to repo.
func NewLogger(repo auditrepo.Repository) *Logger {
	return &Logger{repo: repo}
}

// LogEvent writes one audit entry. Errors are logged and not returned.
func (l *Logger) LogEvent(ctx context.Context, userID, action, sessionID, ip, metadata string) {
	if l == nil || l.repo == nil {
		return
	}
	entry := &domain.AuditLog{
		ID:        uuid.New().String(),
		UserID:    userID,
		Action:    action,
		SessionID: sessionID,
		IP:        ip,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: failed to log event %s: %v", action, err)
	}
}
