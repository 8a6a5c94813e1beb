package domain

import "time"

// Auth actions recorded in the audit log.
const (
	ActionLoginSuccess   = "auth.login.success"
	ActionLoginFailed    = "auth.login.failed"
	ActionRefresh        = "auth.refresh"
	ActionReplayDetected = "auth.replay_detected"
	ActionLogout         = "auth.logout"
	ActionForceRevoke    = "auth.force_revoke_all"
)

// AuditLog is one immutable audit event row.
type AuditLog struct {
	ID        string
	UserID    string // empty when the subject could not be resolved
	Action    string
	SessionID string // empty when no single session is involved
	IP        string
	Metadata  string // free-form JSON
	CreatedAt time.Time
}
