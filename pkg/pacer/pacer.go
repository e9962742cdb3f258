// Package pacer enforces a minimum spacing between consecutive outbound calls.
//
// Every call to Wait reserves the next free slot under a mutex, so concurrent
// callers are spaced out globally rather than per goroutine.
package pacer

import (
	"context"
	"sync"
	"time"
)

// Pacer hands out request slots separated by at least the requested spacing.
type Pacer struct {
	mu   sync.Mutex
	last time.Time

	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

// New constructs a pacer with no prior reservation.
func New() *Pacer {
	return &Pacer{now: time.Now, sleep: sleepContext}
}

// Wait blocks until at least spacing has elapsed since the previous reserved
// slot. It returns ctx.Err() when the context ends first; the slot stays
// reserved in that case.
func (p *Pacer) Wait(ctx context.Context, spacing time.Duration) error {
	p.mu.Lock()
	now := p.now()
	slot := now
	if !p.last.IsZero() {
		if earliest := p.last.Add(spacing); earliest.After(now) {
			slot = earliest
		}
	}
	p.last = slot
	p.mu.Unlock()

	if delay := slot.Sub(now); delay > 0 {
		return p.sleep(ctx, delay)
	}
	return ctx.Err()
}

// Last reports the most recently reserved slot.
func (p *Pacer) Last() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
