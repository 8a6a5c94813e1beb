// Package service implements the session lifecycle: login with device-scoped
// replacement and cap enforcement, refresh rotation with replay containment,
// logout, and forced revocation. All cross-request coordination goes through
// the session store's compare-and-set transition; the service itself holds no
// mutable session state.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	accountdomain "taskhub/backend/internal/account/domain"
	"taskhub/backend/internal/audit"
	auditdomain "taskhub/backend/internal/audit/domain"
	"taskhub/backend/internal/event"
	"taskhub/backend/internal/security"
	sessiondomain "taskhub/backend/internal/session/domain"
	sessionrepo "taskhub/backend/internal/session/repository"
)

// Sentinel errors for the auth service; the handler maps them to HTTP codes.
var (
	// ErrInvalidCredentials covers both unknown account and wrong password so
	// the two cases are indistinguishable to callers.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountNotVerified blocks login until the account passes verification.
	ErrAccountNotVerified = errors.New("account not verified")
	// ErrInvalidToken covers malformed and unknown refresh credentials, and
	// secret mismatches against a known session.
	ErrInvalidToken = errors.New("invalid or unknown refresh token")
	// ErrSessionExpired is returned when the session's fixed TTL has passed.
	ErrSessionExpired = errors.New("session expired")
	// ErrReplayDetected signals reuse of an already-rotated or revoked refresh
	// credential. The cascade revocation has already run when it is returned.
	ErrReplayDetected = errors.New("refresh token reuse detected; all sessions revoked")
	// ErrTooManyAttempts is the rate-limit hook surfaced to the transport.
	ErrTooManyAttempts = errors.New("too many attempts")
)

// AuthResult holds the outcome of Login or Refresh.
type AuthResult struct {
	AccessToken     string
	AccessExpiresAt time.Time
	RefreshToken    string
	SessionID       string
	UserID          string
}

// AccountRepo is the minimal credential-record lookup needed by the service.
type AccountRepo interface {
	GetByEmail(ctx context.Context, email string) (*accountdomain.Account, error)
	GetByID(ctx context.Context, id string) (*accountdomain.Account, error)
}

// SessionRepo is the minimal session repository needed by the service.
type SessionRepo interface {
	Create(ctx context.Context, s *sessiondomain.Session) error
	GetByID(ctx context.Context, id string) (*sessiondomain.Session, error)
	ListActiveByUser(ctx context.Context, userID string) ([]*sessiondomain.Session, error)
	Transition(ctx context.Context, id string, from, to sessiondomain.State, fields sessionrepo.TransitionFields) error
	UpdateLastUsed(ctx context.Context, id string, at time.Time) error
}

// LoginThrottle gates login attempts. Nil disables throttling.
type LoginThrottle interface {
	Allow(ctx context.Context, userID, ip string, now time.Time) (bool, time.Duration, error)
}

// AuthService orchestrates the session state machine.
type AuthService struct {
	accounts    AccountRepo
	sessions    SessionRepo
	hasher      *security.Hasher
	tokens      *security.TokenProvider
	auditor     audit.AuditLogger
	events      event.Emitter
	throttle    LoginThrottle
	refreshTTL  time.Duration
	maxSessions int
}

// NewAuthService returns an AuthService. auditor, events, and throttle may be
// nil; the corresponding side channels are then skipped.
func NewAuthService(
	accounts AccountRepo,
	sessions SessionRepo,
	hasher *security.Hasher,
	tokens *security.TokenProvider,
	auditor audit.AuditLogger,
	events event.Emitter,
	throttle LoginThrottle,
	refreshTTL time.Duration,
	maxSessions int,
) *AuthService {
	if maxSessions <= 0 {
		maxSessions = 5
	}
	return &AuthService{
		accounts:    accounts,
		sessions:    sessions,
		hasher:      hasher,
		tokens:      tokens,
		auditor:     auditor,
		events:      events,
		throttle:    throttle,
		refreshTTL:  refreshTTL,
		maxSessions: maxSessions,
	}
}

// Login verifies the credential, replaces any prior session for the same
// device, enforces the per-user session cap, and issues a fresh access token
// plus an opaque refresh credential backed by a new active session row.
func (s *AuthService) Login(ctx context.Context, email, password, deviceKey, sourceAddr string) (*AuthResult, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	now := time.Now().UTC()

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	var userID string
	if account != nil {
		userID = account.ID
	}
	if s.throttle != nil {
		ok, _, err := s.throttle.Allow(ctx, userID, sourceAddr, now)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrTooManyAttempts
		}
	}

	// The missing-account and wrong-password paths must be indistinguishable.
	if account == nil || s.hasher.Compare(account.PasswordHash, []byte(password)) != nil {
		s.logAudit(ctx, userID, auditdomain.ActionLoginFailed, "", sourceAddr, "")
		return nil, ErrInvalidCredentials
	}
	if !account.Verified {
		return nil, ErrAccountNotVerified
	}

	active, err := s.sessions.ListActiveByUser(ctx, account.ID)
	if err != nil {
		return nil, err
	}

	// Device-scoped replacement: a new login from the same device revokes the
	// device's previous session without touching other devices.
	remaining := active[:0]
	for _, sess := range active {
		if deviceKey != "" && sess.DeviceKey == deviceKey {
			s.terminate(ctx, sess.ID, sessiondomain.StateRevoked, sessiondomain.ReasonSuperseded, now)
			continue
		}
		remaining = append(remaining, sess)
	}

	// Cap enforcement: evict oldest-first until one slot is free. The list is
	// ordered by created_at ascending. A concurrent login burst may overshoot
	// the cap by a bounded margin; no security property depends on exactness.
	for len(remaining) >= s.maxSessions {
		s.terminate(ctx, remaining[0].ID, sessiondomain.StateRevoked, sessiondomain.ReasonCapEvicted, now)
		remaining = remaining[1:]
	}

	result, err := s.issueSession(ctx, account.ID, string(account.Role), deviceKey, sourceAddr, now, now.Add(s.refreshTTL))
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, account.ID, auditdomain.ActionLoginSuccess, result.SessionID, sourceAddr, "")
	return result, nil
}

// Refresh rotates a refresh credential. Presenting a credential whose session
// already left the active state is treated as theft: every active session for
// the user is revoked before the error is returned, so containment cannot be
// skipped by the caller.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	sessionID, secret, err := security.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}
	now := time.Now().UTC()

	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, ErrInvalidToken
	}

	if sess.State != sessiondomain.StateActive {
		return nil, s.containReplay(ctx, sess, now)
	}

	if sess.ExpiredAt(now) {
		s.terminate(ctx, sess.ID, sessiondomain.StateExpired, sessiondomain.ReasonExpired, now)
		return nil, ErrSessionExpired
	}

	// Secret mismatch must not reveal that the session id was valid.
	if s.hasher.Compare(sess.SecretHash, []byte(secret)) != nil {
		return nil, ErrInvalidToken
	}

	// Rotate: the successor id is chosen up front so the CAS that retires the
	// old row also writes the forward link of the audit chain.
	successorID := uuid.New().String()
	fields := sessionrepo.TransitionFields{
		SuccessorID:  &successorID,
		Reason:       sessiondomain.ReasonRotated,
		TerminatedAt: now,
	}
	err = s.sessions.Transition(ctx, sess.ID, sessiondomain.StateActive, sessiondomain.StateRotated, fields)
	if errors.Is(err, sessionrepo.ErrConflict) {
		// Lost a race. Retry once: if the session is no longer active, a
		// concurrent refresh already rotated it and this one is a replay.
		sess, err = s.sessions.GetByID(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if sess == nil || sess.State != sessiondomain.StateActive {
			return nil, s.containReplay(ctx, sess, now)
		}
		if err := s.sessions.Transition(ctx, sess.ID, sessiondomain.StateActive, sessiondomain.StateRotated, fields); err != nil {
			return nil, s.containReplay(ctx, sess, now)
		}
	} else if err != nil {
		return nil, err
	}

	_ = s.sessions.UpdateLastUsed(ctx, sess.ID, now)

	// The successor inherits the original deadline: rotation never extends a
	// credential's life.
	result, err := s.issueSessionWithID(ctx, successorID, sess.UserID, s.roleForUser(ctx, sess.UserID), sess.DeviceKey, sess.SourceAddress, now, sess.ExpiresAt)
	if err != nil {
		return nil, err
	}
	s.logAudit(ctx, sess.UserID, auditdomain.ActionRefresh, sess.ID, sess.SourceAddress,
		fmt.Sprintf(`{"successor_id":%q}`, successorID))
	return result, nil
}

// Logout revokes the session named by refreshToken, or every active session
// for the user when no token is supplied. Idempotent: unknown, foreign, or
// already-terminated tokens are not errors.
func (s *AuthService) Logout(ctx context.Context, userID, refreshToken string) error {
	if refreshToken == "" {
		_, err := s.revokeAllActive(ctx, userID, sessiondomain.ReasonLogout)
		if err != nil {
			return err
		}
		s.logAudit(ctx, userID, auditdomain.ActionLogout, "", "", `{"scope":"all"}`)
		return nil
	}
	sessionID, _, err := security.ParseRefreshToken(refreshToken)
	if err != nil {
		return nil
	}
	sess, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if sess == nil || sess.UserID != userID {
		return nil
	}
	s.terminate(ctx, sess.ID, sessiondomain.StateRevoked, sessiondomain.ReasonLogout, time.Now().UTC())
	s.logAudit(ctx, userID, auditdomain.ActionLogout, sess.ID, sess.SourceAddress, "")
	return nil
}

// ForceRevokeAll unconditionally revokes every active session for the user.
// Credential-reset flows must call this so old refresh credentials cannot
// survive a password change.
func (s *AuthService) ForceRevokeAll(ctx context.Context, userID string) error {
	n, err := s.revokeAllActive(ctx, userID, sessiondomain.ReasonCredentialReset)
	if err != nil {
		return err
	}
	s.logAudit(ctx, userID, auditdomain.ActionForceRevoke, "", "", fmt.Sprintf(`{"revoked":%d}`, n))
	event.EmitAsync(s.events, &event.SecurityEvent{
		UserID:    userID,
		EventType: event.TypeSessionsRevoked,
		Source:    "force_revoke_all",
		CreatedAt: time.Now().UTC(),
	})
	return nil
}

// containReplay is the blast-radius response to a reused refresh credential:
// revoke everything the user has, emit a security event, then report the
// replay. sess may be nil when the row vanished mid-race.
func (s *AuthService) containReplay(ctx context.Context, sess *sessiondomain.Session, now time.Time) error {
	if sess == nil {
		return ErrInvalidToken
	}
	if _, err := s.revokeAllActive(ctx, sess.UserID, sessiondomain.ReasonReplayContained); err != nil {
		return err
	}
	s.logAudit(ctx, sess.UserID, auditdomain.ActionReplayDetected, sess.ID, sess.SourceAddress, "")
	event.EmitAsync(s.events, &event.SecurityEvent{
		UserID:    sess.UserID,
		SessionID: sess.ID,
		EventType: event.TypeReplayDetected,
		Source:    "refresh",
		CreatedAt: now,
	})
	return ErrReplayDetected
}

func (s *AuthService) revokeAllActive(ctx context.Context, userID string, reason string) (int, error) {
	active, err := s.sessions.ListActiveByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	n := 0
	now := time.Now().UTC()
	for _, sess := range active {
		if s.terminate(ctx, sess.ID, sessiondomain.StateRevoked, reason, now) {
			n++
		}
	}
	return n, nil
}

// terminate moves one session out of the active state. A conflict means some
// concurrent request already retired the row, which is fine for every caller.
func (s *AuthService) terminate(ctx context.Context, id string, to sessiondomain.State, reason string, now time.Time) bool {
	err := s.sessions.Transition(ctx, id, sessiondomain.StateActive, to, sessionrepo.TransitionFields{
		Reason:       reason,
		TerminatedAt: now,
	})
	return err == nil
}

func (s *AuthService) issueSession(ctx context.Context, userID, role, deviceKey, sourceAddr string, now, expiresAt time.Time) (*AuthResult, error) {
	return s.issueSessionWithID(ctx, uuid.New().String(), userID, role, deviceKey, sourceAddr, now, expiresAt)
}

func (s *AuthService) issueSessionWithID(ctx context.Context, sessionID, userID, role, deviceKey, sourceAddr string, now, expiresAt time.Time) (*AuthResult, error) {
	secret, err := security.NewRefreshSecret()
	if err != nil {
		return nil, err
	}
	secretHash, err := s.hasher.Hash([]byte(secret))
	if err != nil {
		return nil, err
	}
	sess := &sessiondomain.Session{
		ID:            sessionID,
		UserID:        userID,
		SecretHash:    secretHash,
		DeviceKey:     deviceKey,
		SourceAddress: sourceAddr,
		State:         sessiondomain.StateActive,
		CreatedAt:     now,
		ExpiresAt:     expiresAt,
	}
	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, err
	}
	accessToken, accessExp, err := s.tokens.IssueAccess(userID, role, sessionID)
	if err != nil {
		return nil, err
	}
	return &AuthResult{
		AccessToken:     accessToken,
		AccessExpiresAt: accessExp,
		RefreshToken:    security.FormatRefreshToken(sessionID, secret),
		SessionID:       sessionID,
		UserID:          userID,
	}, nil
}

// roleForUser resolves the role claim for a rotated session's new access
// token. Best-effort: an unreadable account yields an empty role rather than
// failing the rotation.
func (s *AuthService) roleForUser(ctx context.Context, userID string) string {
	account, err := s.accounts.GetByID(ctx, userID)
	if err != nil || account == nil {
		return ""
	}
	return string(account.Role)
}

func (s *AuthService) logAudit(ctx context.Context, userID, action, sessionID, ip, metadata string) {
	if s.auditor == nil {
		return
	}
	s.auditor.LogEvent(ctx, userID, action, sessionID, ip, metadata)
}
