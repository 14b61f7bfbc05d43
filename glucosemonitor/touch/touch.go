// Package touch holds the touch interrupt flag and brings the touch
// controller up.
package touch

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/harveysanders/glucopanel/xslog"
)

// Flag records that a touch interrupt fired. Set is the only method the
// interrupt context may call; Take belongs to the main loop.
type Flag struct {
	pending atomic.Bool
}

// Set marks a touch as pending. It does not allocate or block.
func (f *Flag) Set() { f.pending.Store(true) }

// Take clears the flag and reports whether it was set.
func (f *Flag) Take() bool { return f.pending.Swap(false) }

// Pending reports the flag without clearing it.
func (f *Flag) Pending() bool { return f.pending.Load() }

// Controller is a touch controller that may need several attempts to answer.
type Controller interface {
	Begin() bool
}

// Session owns the controller and the flag its interrupt line raises.
type Session struct {
	dev        Controller
	flag       *Flag
	retryDelay time.Duration
	sleep      func(ctx context.Context, d time.Duration) error
	logger     *slog.Logger
}

type Option func(*Session)

// WithSleep replaces the wait between attempts, for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Session) { s.sleep = sleep }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) { s.logger = logger }
}

func NewSession(dev Controller, flag *Flag, retryDelay time.Duration, opts ...Option) *Session {
	s := &Session{
		dev:        dev,
		flag:       flag,
		retryDelay: retryDelay,
		sleep:      Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = xslog.OrDiscard(s.logger)
	return s
}

// Init calls Begin until the controller answers, waiting retryDelay between
// attempts. There is no attempt limit; only ctx ends the wait. It returns the
// number of attempts made.
func (s *Session) Init(ctx context.Context) (int, error) {
	for attempt := 1; ; attempt++ {
		if s.dev.Begin() {
			s.logger.Info("touch:ready", xslog.Attempt(attempt))
			return attempt, nil
		}
		s.logger.Warn("touch:begin-failed, retrying", xslog.Attempt(attempt), xslog.Duration(s.retryDelay))
		if err := s.sleep(ctx, s.retryDelay); err != nil {
			return attempt, err
		}
	}
}

// Interrupt is the callback for the controller's interrupt line.
func (s *Session) Interrupt() { s.flag.Set() }

// Touched clears the pending touch and reports whether there was one.
func (s *Session) Touched() bool { return s.flag.Take() }

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
