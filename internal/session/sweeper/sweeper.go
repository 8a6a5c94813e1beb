// Package sweeper runs the periodic cleanup job that moves active sessions
// past their deadline into the expired state. Refresh already checks expiry
// live, so the sweep is not needed for correctness; it bounds stored-row
// growth and keeps active-session counts cheap to query.
package sweeper

import (
	"context"
	"log"
	"time"
)

// Store is the slice of the session repository the sweeper needs.
type Store interface {
	ExpireDue(ctx context.Context, now time.Time) (int64, error)
}

// Sweeper expires due sessions on a fixed interval.
type Sweeper struct {
	store    Store
	interval time.Duration
}

// New returns a Sweeper. interval must be positive; 0 falls back to 10m.
func New(store Store, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &Sweeper{store: store, interval: interval}
}

// Run sweeps once immediately, then on every tick until ctx is cancelled.
// Each sweep is idempotent, so overlapping deployments are harmless.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.store.ExpireDue(ctx, time.Now().UTC())
	if err != nil {
		log.Printf("sweeper: expire pass failed: %v", err)
		return
	}
	if n > 0 {
		log.Printf("sweeper: expired %d sessions", n)
	}
}
