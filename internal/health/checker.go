// Package health watches backend connectivity and reports DOWN→UP
// transitions so a reconciliation pass can run once the backend is back.
package health

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Pinger probes the backend.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BackendChecker monitors backend health via periodic pings.
type BackendChecker struct {
	pinger       Pinger
	healthy      atomic.Int32
	log          zerolog.Logger
	probeTimeout time.Duration
	onRecover    func(ctx context.Context)
}

// NewBackendChecker creates a checker. onRecover, when non-nil, runs on the
// checker goroutine after every DOWN→UP transition (not on the first
// successful probe).
func NewBackendChecker(p Pinger, log zerolog.Logger, probeTimeout time.Duration, onRecover func(ctx context.Context)) *BackendChecker {
	hc := &BackendChecker{
		pinger:       p,
		log:          log,
		probeTimeout: probeTimeout,
		onRecover:    onRecover,
	}
	hc.healthy.Store(0) // unknown until first probe
	return hc
}

// Name returns the checker name.
func (hc *BackendChecker) Name() string { return "backend" }

// IsHealthy returns the cached health status (non-blocking).
func (hc *BackendChecker) IsHealthy() bool { return hc.healthy.Load() == 1 }

// Start probes immediately and then on every tick until ctx is done.
func (hc *BackendChecker) Start(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	probed := false
	check := func() {
		up := hc.probe(ctx)
		prev := hc.healthy.Load() == 1
		if up {
			hc.healthy.Store(1)
		} else {
			hc.healthy.Store(0)
		}
		switch {
		case up && !prev:
			hc.log.Info().Str("checker", hc.Name()).Msg("backend health: UP")
			if probed && hc.onRecover != nil {
				hc.onRecover(ctx)
			}
		case !up && (prev || !probed):
			hc.log.Warn().Str("checker", hc.Name()).Msg("backend health: DOWN")
		}
		probed = true
	}

	check()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			check()
		}
	}
}

func (hc *BackendChecker) probe(ctx context.Context) bool {
	to := hc.probeTimeout
	if to <= 0 {
		to = 2 * time.Second
	}
	probeCtx, cancel := context.WithTimeout(ctx, to)
	defer cancel()
	if err := hc.pinger.Ping(probeCtx); err != nil {
		hc.log.Debug().Err(err).Str("checker", hc.Name()).Msg("backend ping failed")
		return false
	}
	return true
}
