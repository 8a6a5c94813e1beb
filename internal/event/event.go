// Package event publishes security events (replay detection, mass
// revocations) to a broker so downstream consumers can alert on them without
// blocking the auth path.
package event

import (
	"context"
	"encoding/json"
	"time"
)

// Event types emitted by the session lifecycle.
const (
	TypeReplayDetected  = "replay_detected"
	TypeSessionsRevoked = "sessions_revoked"
)

// SecurityEvent is the JSON payload written to the broker.
type SecurityEvent struct {
	UserID    string          `json:"user_id"`
	SessionID string          `json:"session_id,omitempty"`
	EventType string          `json:"event_type"`
	Source    string          `json:"source"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Emitter publishes a single security event.
type Emitter interface {
	Emit(ctx context.Context, e *SecurityEvent) error
}
