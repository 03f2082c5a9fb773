package sched

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// TickFunc performs one poll tick. Returning false terminates the loop
// (the tick observed a terminal condition).
type TickFunc func(ctx context.Context) bool

// Handle is a running poll loop. Releasing the handle via Release or
// Stop is the only external way to end the loop; the loop also ends
// itself when a tick returns false.
type Handle struct {
	cancel   context.CancelFunc
	done     chan struct{}
	stopOnce sync.Once
}

// Run starts a loop that invokes fn every interval until fn returns
// false, parent is cancelled, or the handle is released. Ticks run on a single
// goroutine, so two ticks of the same handle never overlap; a slow
// tick delays the next one instead of racing it.
func Run(parent context.Context, interval time.Duration, fn TickFunc, logger *zerolog.Logger) *Handle {
	if interval <= 0 {
		interval = time.Second
	}
	ctx, cancel := context.WithCancel(parent)
	h := &Handle{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(h.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				logger.Debug().Msg("poll loop released")
				return
			case <-ticker.C:
				if !fn(ctx) {
					logger.Debug().Msg("poll loop finished")
					return
				}
			}
		}
	}()
	return h
}

// Release cancels the loop without waiting for the goroutine to exit.
// A tick already in flight runs to completion on its own; the caller's
// tagging must suppress its effect. Idempotent.
func (h *Handle) Release() {
	h.stopOnce.Do(h.cancel)
}

// Stop releases the handle and waits for the loop goroutine to exit.
// Idempotent; safe to call after self-termination. Must not be called
// while holding a lock the tick function acquires, and not with a tick
// in flight that can block indefinitely — use Release there.
func (h *Handle) Stop() {
	h.Release()
	<-h.done
}

// Done is closed once the loop goroutine has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }
