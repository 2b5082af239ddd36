// Package timer provides the cancellable countdown clock that drives running
// exam sessions.
package timer

import (
	"errors"
	"sync"
	"time"
)

var errAlreadyStarted = errors.New("countdown already started")

// Countdown invokes onTick at a fixed cadence and onExpire exactly once when
// the duration elapses.
//
// Callback delivery and Stop are mutually exclusive: no callback runs after
// Stop returns. Callbacks must therefore never call Stop themselves — an
// expiring countdown tears itself down.
type Countdown struct {
	interval time.Duration

	mu      sync.Mutex
	started bool
	stopped bool
	stopCh  chan struct{}
}

// New creates a countdown ticking at the given cadence.
func New(interval time.Duration) *Countdown {
	if interval <= 0 {
		interval = time.Second
	}
	return &Countdown{
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the clock. onTick receives the remaining time on every
// cadence; onExpire fires once when the duration has fully elapsed.
// A Countdown is single-use: restarting or starting after Stop is an error.
func (c *Countdown) Start(duration time.Duration, onTick func(remaining time.Duration), onExpire func()) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started || c.stopped {
		return errAlreadyStarted
	}
	c.started = true

	go c.run(time.Now().Add(duration), onTick, onExpire)
	return nil
}

// Stop halts the clock. Safe to call multiple times and after expiry.
// Blocks until any in-flight callback has returned.
func (c *Countdown) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.stopped {
		c.stopped = true
		close(c.stopCh)
	}
}

func (c *Countdown) run(deadline time.Time, onTick func(remaining time.Duration), onExpire func()) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.mu.Lock()
			if c.stopped {
				c.mu.Unlock()
				return
			}
			remaining := time.Until(deadline)
			if remaining <= 0 {
				// Expiry is final: mark stopped before the callbacks so a
				// concurrent Stop cannot race a second delivery.
				c.stopped = true
				onTick(0)
				onExpire()
				c.mu.Unlock()
				return
			}
			onTick(remaining)
			c.mu.Unlock()
		}
	}
}
