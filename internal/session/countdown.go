package session

import (
	"context"
	"sync"
	"time"
)

// Countdown emits display ticks until a deadline passes. It only informs the
// UI; the session enforces the deadline itself at submission time.
type Countdown struct {
	interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewCountdown ticks every interval, one second if interval is not positive.
func NewCountdown(interval time.Duration) *Countdown {
	if interval <= 0 {
		interval = time.Second
	}
	return &Countdown{interval: interval}
}

// Start replaces any running countdown. tick receives the remaining time
// (never negative); expired runs once when the deadline passes. Neither
// callback may call Start or Stop.
func (c *Countdown) Start(ctx context.Context, deadline time.Time, tick func(remaining time.Duration), expired func()) {
	c.Stop()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	c.mu.Lock()
	c.cancel = cancel
	c.done = done
	c.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				remaining := time.Until(deadline)
				if remaining <= 0 {
					if tick != nil {
						tick(0)
					}
					if expired != nil {
						expired()
					}
					return
				}
				if tick != nil {
					tick(remaining)
				}
			}
		}
	}()
}

// Stop cancels the running countdown and waits for it to exit.
func (c *Countdown) Stop() {
	c.mu.Lock()
	cancel, done := c.cancel, c.done
	c.cancel, c.done = nil, nil
	c.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}
