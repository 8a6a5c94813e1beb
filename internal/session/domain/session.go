package domain

import "time"

// State is the lifecycle state of a session. Active is the only non-terminal
// state; rotated, revoked, and expired are terminal and never transition again.
type State string

const (
	StateActive  State = "active"
	StateRotated State = "rotated"
	StateRevoked State = "revoked"
	StateExpired State = "expired"
)

// Terminal reports whether a session in this state can never change again.
func (s State) Terminal() bool {
	return s == StateRotated || s == StateRevoked || s == StateExpired
}

// CanTransition reports whether the state machine permits moving from s to
// target. Only active sessions move, and only into a terminal state.
func (s State) CanTransition(target State) bool {
	return s == StateActive && target.Terminal()
}

// Revocation reasons recorded on terminal transitions.
const (
	ReasonSuperseded      = "superseded_by_new_login"
	ReasonCapEvicted      = "session_cap_evicted"
	ReasonLogout          = "logout"
	ReasonReplayContained = "replay_containment"
	ReasonCredentialReset = "credential_reset"
	ReasonRotated         = "rotated"
	ReasonExpired         = "expired"
)

// Session is one refresh-credential lineage entry for a single device login.
// SecretHash is set once at creation and never mutated; rotation creates a new
// row and links the old one forward through SuccessorID, so every row keeps a
// single well-defined terminal state and the chain stays auditable.
type Session struct {
	ID            string
	UserID        string
	SecretHash    string
	DeviceKey     string
	SourceAddress string
	State         State
	SuccessorID   *string // set only when State is StateRotated
	Reason        string  // why the session left StateActive; empty while active
	CreatedAt     time.Time
	LastUsedAt    *time.Time
	ExpiresAt     time.Time
	TerminatedAt  *time.Time
}

// ExpiredAt reports whether the session's fixed TTL has passed at now. The
// deadline is set at creation and never extended by rotation or refresh use.
func (s *Session) ExpiredAt(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
