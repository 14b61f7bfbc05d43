//go:build !tinygo

package clock

import (
	"context"
	"fmt"
	"time"

	"github.com/beevik/ntp"
)

const DefaultNTPHost = "pool.ntp.org"

// NTP measures the local clock offset against an NTP server.
type NTP struct {
	// Timeout bounds one query. Zero means 5s, shortened by any ctx deadline.
	Timeout time.Duration
}

var _ Syncer = NTP{}

func (n NTP) Offset(ctx context.Context, host string) (time.Duration, error) {
	if host == "" {
		host = DefaultNTPHost
	}
	timeout := n.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if deadline, ok := ctx.Deadline(); ok {
		timeout = min(timeout, time.Until(deadline))
	}
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	resp, err := ntp.QueryWithOptions(host, ntp.QueryOptions{Timeout: timeout})
	if err != nil {
		return 0, fmt.Errorf("ntp query %s: %w", host, err)
	}
	if err := resp.Validate(); err != nil {
		return 0, fmt.Errorf("ntp response from %s: %w", host, err)
	}
	return resp.ClockOffset, nil
}
