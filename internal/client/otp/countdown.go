package otp

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Countdown is an advisory timer for the resend cooldown and the code
// expiry hint. The backend stays the authority on expiry; nothing in the
// flow consults a Countdown.
type Countdown struct {
	d   time.Duration
	now func() time.Time

	mu       sync.Mutex
	deadline time.Time
}

// NewCountdown returns a countdown of d that starts immediately.
func NewCountdown(d time.Duration) *Countdown {
	c := &Countdown{d: d, now: time.Now}
	c.Restart()
	return c
}

func (c *Countdown) Restart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deadline = c.now().Add(c.d)
}

func (c *Countdown) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if r := c.deadline.Sub(c.now()); r > 0 {
		return r
	}
	return 0
}

func (c *Countdown) Expired() bool {
	return c.Remaining() == 0
}

// Run calls fn with the remaining time on every tick until the countdown
// reaches zero or ctx is done. fn sees a final zero when it expires.
func (c *Countdown) Run(ctx context.Context, tick time.Duration, fn func(remaining time.Duration)) {
	t := time.NewTicker(tick)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			r := c.Remaining()
			fn(r)
			if r == 0 {
				return
			}
		}
	}
}

// FormatRemaining renders d as m:ss.
func FormatRemaining(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	s := int(d.Round(time.Second) / time.Second)
	return fmt.Sprintf("%d:%02d", s/60, s%60)
}
