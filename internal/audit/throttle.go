package audit

import (
	"context"
	"time"

	"taskhub/backend/internal/audit/domain"
	auditrepo "taskhub/backend/internal/audit/repository"
)

// Throttle answers whether another login attempt is allowed, by counting
// recent failed-login audit rows. Counting persisted rows keeps the limiter
// correct across multiple server processes; no in-memory counters exist.
type Throttle struct {
	repo       auditrepo.Repository
	window     time.Duration
	maxPerIP   int
	maxPerUser int
}

// NewThrottle returns a Throttle over the audit repository. Zero or negative
// limits disable the corresponding check.
func NewThrottle(repo auditrepo.Repository, window time.Duration, maxPerIP, maxPerUser int) *Throttle {
	return &Throttle{repo: repo, window: window, maxPerIP: maxPerIP, maxPerUser: maxPerUser}
}

// Allow reports whether a login attempt from ip for userID may proceed, and a
// suggested retry-after when it may not. userID may be empty (unknown account
// -> only the ip check applies). Errors are database failures.
func (t *Throttle) Allow(ctx context.Context, userID, ip string, now time.Time) (bool, time.Duration, error) {
	if t == nil || t.repo == nil || t.window <= 0 {
		return true, 0, nil
	}
	cut := now.Add(-t.window)
	if t.maxPerIP > 0 && ip != "" {
		n, err := t.repo.CountByActionAndIP(ctx, domain.ActionLoginFailed, ip, cut)
		if err != nil {
			return false, 0, err
		}
		if n >= t.maxPerIP {
			return false, t.window, nil
		}
	}
	if t.maxPerUser > 0 && userID != "" {
		n, err := t.repo.CountByActionAndUser(ctx, domain.ActionLoginFailed, userID, cut)
		if err != nil {
			return false, 0, err
		}
		if n >= t.maxPerUser {
			return false, t.window, nil
		}
	}
	return true, 0, nil
}
