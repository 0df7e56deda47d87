package stream

import (
	"context"
	"math/rand"
	"time"
)

// BackoffConfig configures reconnect delays.
type BackoffConfig struct {
	BaseWait time.Duration // Default: 1s
	MaxWait  time.Duration // Default: 60s
	Jitter   float64       // fraction of the delay, 0..1. Default: 0.2
}

// DefaultBackoffConfig returns default configuration.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		BaseWait: time.Second,
		MaxWait:  time.Minute,
		Jitter:   0.2,
	}
}

// backoff produces exponentially growing, capped, jittered delays.
type backoff struct {
	cfg  BackoffConfig
	cur  time.Duration
	rand func() float64 // [0, 1)
}

func newBackoff(cfg BackoffConfig) *backoff {
	if cfg.BaseWait <= 0 {
		cfg.BaseWait = time.Second
	}
	if cfg.MaxWait < cfg.BaseWait {
		cfg.MaxWait = cfg.BaseWait
	}
	if cfg.Jitter < 0 {
		cfg.Jitter = 0
	}
	if cfg.Jitter > 1 {
		cfg.Jitter = 1
	}
	return &backoff{cfg: cfg, cur: cfg.BaseWait, rand: rand.Float64}
}

// next returns the delay before the next attempt and doubles the base.
// The jittered delay never exceeds MaxWait.
func (b *backoff) next() time.Duration {
	d := b.cur
	if b.cfg.Jitter > 0 {
		// Uniform in [d*(1-j), d*(1+j)).
		d = time.Duration(float64(d) * (1 - b.cfg.Jitter + 2*b.cfg.Jitter*b.rand()))
	}
	if d > b.cfg.MaxWait {
		d = b.cfg.MaxWait
	}

	b.cur *= 2
	if b.cur > b.cfg.MaxWait {
		b.cur = b.cfg.MaxWait
	}
	return d
}

// reset restarts from BaseWait.
func (b *backoff) reset() {
	b.cur = b.cfg.BaseWait
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, after func(time.Duration) <-chan time.Time, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-after(d):
		return nil
	}
}
