// Package poller retries a probe a bounded number of times.
package poller

import (
	"context"
	"errors"
	"time"
)

// State is the lifecycle of a Poller.
type State string

const (
	StatePending   State = "pending"
	StateSucceeded State = "succeeded"
	StateExhausted State = "exhausted"
)

// ErrExhausted is returned by Run when every attempt failed.
var ErrExhausted = errors.New("poller: attempts exhausted")

// Config bounds a Poller. With Exponential set the delay doubles after each
// failed attempt up to MaxInterval.
type Config struct {
	MaxAttempts int
	Interval    time.Duration
	MaxInterval time.Duration
	Exponential bool
}

// Probe performs one attempt; a nil error ends polling.
type Probe func(ctx context.Context, attempt int) error

// Poller is a small state machine: pending until a probe succeeds or the
// attempt budget runs out. It is not safe for concurrent use.
type Poller struct {
	cfg      Config
	Attempts int
	LastErr  error
	State    State
	sleep    func(context.Context, time.Duration) error
}

// New returns a pending Poller. MaxAttempts below one is raised to one.
func New(cfg Config) *Poller {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if cfg.Interval < 0 {
		cfg.Interval = 0
	}
	if cfg.MaxInterval < cfg.Interval {
		cfg.MaxInterval = cfg.Interval
	}
	return &Poller{cfg: cfg, State: StatePending, sleep: sleepContext}
}

// MaxAttempts is the probe budget.
func (p *Poller) MaxAttempts() int { return p.cfg.MaxAttempts }

// Next records the outcome of one attempt and returns the resulting state.
// It is a no-op once the poller left the pending state.
func (p *Poller) Next(err error) State {
	if p.State != StatePending {
		return p.State
	}
	p.Attempts++
	p.LastErr = err
	switch {
	case err == nil:
		p.State = StateSucceeded
	case p.Attempts >= p.cfg.MaxAttempts:
		p.State = StateExhausted
	}
	return p.State
}

// Delay is the wait before the next attempt.
func (p *Poller) Delay() time.Duration {
	if !p.cfg.Exponential || p.Attempts <= 1 {
		return p.cfg.Interval
	}
	d := p.cfg.Interval
	for i := 1; i < p.Attempts; i++ {
		d *= 2
		if d >= p.cfg.MaxInterval {
			return p.cfg.MaxInterval
		}
	}
	return d
}

// Run probes until success, exhaustion or cancellation. On exhaustion the
// returned error wraps ErrExhausted and the last probe error.
func (p *Poller) Run(ctx context.Context, probe Probe) error {
	for p.State == StatePending {
		if err := ctx.Err(); err != nil {
			return err
		}
		state := p.Next(probe(ctx, p.Attempts+1))
		switch state {
		case StateSucceeded:
			return nil
		case StateExhausted:
			return errors.Join(ErrExhausted, p.LastErr)
		}
		if err := p.sleep(ctx, p.Delay()); err != nil {
			return err
		}
	}
	if p.State == StateSucceeded {
		return nil
	}
	return errors.Join(ErrExhausted, p.LastErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
