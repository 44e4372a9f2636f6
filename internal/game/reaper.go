package game

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Reaper discards games with no recorded activity past the timeout. Teardown
// notification is a callback so the broadcast layer stays out of this package.
type Reaper struct {
	mgr      *Manager
	interval time.Duration
	timeout  time.Duration
	onDelete func(code string)
}

func NewReaper(mgr *Manager, interval, timeout time.Duration, onDelete func(code string)) *Reaper {
	return &Reaper{mgr: mgr, interval: interval, timeout: timeout, onDelete: onDelete}
}

func (r *Reaper) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep()
		}
	}
}

func (r *Reaper) sweep() {
	for _, code := range r.mgr.Expired(r.timeout) {
		// notify first so connected clients hear why the game vanished;
		// a failed broadcast must never block the deletion
		if r.onDelete != nil {
			r.onDelete(code)
		}
		if r.mgr.Delete(code) {
			log.Info().Str("code", code).Dur("timeout", r.timeout).Msg("reaped inactive game")
		}
	}
}
