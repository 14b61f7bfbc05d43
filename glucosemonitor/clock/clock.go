// Package clock keeps local wall time for the panel. Syncing runs in the
// background; callers never wait for it.
package clock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/harveysanders/glucopanel/xslog"
)

// Syncer measures how far the local clock is behind a reference.
type Syncer interface {
	Offset(ctx context.Context, host string) (time.Duration, error)
}

// SyncerFunc adapts a function to Syncer.
type SyncerFunc func(ctx context.Context, host string) (time.Duration, error)

func (f SyncerFunc) Offset(ctx context.Context, host string) (time.Duration, error) {
	return f(ctx, host)
}

type Clock struct {
	syncer Syncer
	now    func() time.Time
	logger *slog.Logger

	mu     sync.Mutex
	zone   *time.Location
	offset time.Duration
	synced bool

	done     chan struct{}
	doneOnce sync.Once
}

type Option func(*Clock)

// WithNow replaces the local time source.
func WithNow(now func() time.Time) Option {
	return func(c *Clock) { c.now = now }
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Clock) { c.logger = logger }
}

func New(syncer Syncer, opts ...Option) *Clock {
	c := &Clock{
		syncer: syncer,
		now:    time.Now,
		zone:   time.UTC,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = xslog.OrDiscard(c.logger)
	return c
}

// Configure sets the zone to UTC+gmtOffsetSec+dstOffsetSec and starts one
// sync against host. It returns immediately. A failed sync is logged and
// not retried.
func (c *Clock) Configure(ctx context.Context, gmtOffsetSec, dstOffsetSec int, host string) {
	zone := time.FixedZone(zoneName(gmtOffsetSec+dstOffsetSec), gmtOffsetSec+dstOffsetSec)

	c.mu.Lock()
	c.zone = zone
	c.mu.Unlock()

	c.logger.Info("clock:configure", slog.String("zone", zone.String()), slog.String("host", host))
	go func() {
		defer c.doneOnce.Do(func() { close(c.done) })
		offset, err := c.syncer.Offset(ctx, host)
		if err != nil {
			c.logger.Error("clock:sync-failed", slog.String("host", host), xslog.Error(err))
			return
		}
		c.mu.Lock()
		c.offset = offset
		c.synced = true
		c.mu.Unlock()
		c.logger.Info("clock:synced", xslog.Duration(offset))
	}()
}

// LocalTime returns the corrected wall time in the configured zone. The bool
// is false until a sync has succeeded.
func (c *Clock) LocalTime() (time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now().Add(c.offset).In(c.zone), c.synced
}

// Done is closed once the first sync attempt finishes, whatever its result.
func (c *Clock) Done() <-chan struct{} { return c.done }

// Format renders t as HH:MM, or "--:--" when ok is false.
func Format(t time.Time, ok bool) string {
	if !ok {
		return "--:--"
	}
	return t.Format("15:04")
}

func zoneName(offsetSec int) string {
	if offsetSec == 0 {
		return "UTC"
	}
	sign := '+'
	if offsetSec < 0 {
		sign = '-'
		offsetSec = -offsetSec
	}
	return fmt.Sprintf("UTC%c%02d:%02d", sign, offsetSec/3600, offsetSec%3600/60)
}
