package service

import (
	"context"
	"time"

	"github.com/severindevelopment/hub/internal/hub/store"
	"github.com/severindevelopment/hub/pkg/slogx"
)

// DefaultHousekeepingInterval is how often expired records are purged.
const DefaultHousekeepingInterval = 15 * time.Minute

// Housekeeper periodically deletes expired authorization codes and token
// pairs whose refresh window has closed. Expired records are already inert
// (every read path checks expiry), so this is purely about keeping the
// tables small.
type Housekeeper struct {
	Store    store.Store
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// Start launches the background purge loop. Call Stop to shut it down.
func (h *Housekeeper) Start(ctx context.Context) {
	interval := h.Interval
	if interval <= 0 {
		interval = DefaultHousekeepingInterval
	}

	h.stopCh = make(chan struct{})
	h.doneCh = make(chan struct{})

	go func() {
		defer close(h.doneCh)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				h.sweep(ctx)
			case <-h.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop halts the loop and waits for the in-flight sweep, if any, to finish.
func (h *Housekeeper) Stop() {
	if h.stopCh == nil {
		return
	}
	close(h.stopCh)
	<-h.doneCh
}

func (h *Housekeeper) sweep(ctx context.Context) {
	log := slogx.FromContext(ctx)

	if err := h.Store.AuthorizationCodes().DeleteExpiredAuthorizationCodes(ctx); err != nil {
		log.Error("purging expired authorization codes failed", "error", err)
	}
	if err := h.Store.OAuthTokens().DeleteExpiredOAuthTokens(ctx); err != nil {
		log.Error("purging expired oauth tokens failed", "error", err)
	}
}
