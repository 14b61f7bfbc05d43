package glucose

import (
	"context"
	"log/slog"

	"github.com/harveysanders/glucopanel/xslog"
)

// Service is the remote follower service holding the session.
type Service interface {
	// CreateSession authenticates and keeps the session for later reads. The
	// returned status is meaningful even when err is non-nil.
	CreateSession(ctx context.Context, username, password string) (SessionStatus, error)
	// LatestGlucose returns the newest reading, or NoData when there is none.
	LatestGlucose(ctx context.Context) (Reading, error)
}

// Client owns the session status and turns every service failure into a
// status or the no-data reading.
type Client struct {
	svc    Service
	logger *slog.Logger
	status SessionStatus
}

func NewClient(svc Service, logger *slog.Logger) *Client {
	return &Client{
		svc:    svc,
		logger: xslog.OrDiscard(logger),
	}
}

// Login establishes the session. Empty credentials are rejected locally.
func (c *Client) Login(ctx context.Context, username, password string) SessionStatus {
	switch {
	case username == "":
		c.status = StatusUsernameEmpty
	case password == "":
		c.status = StatusPasswordEmpty
	default:
		status, err := c.svc.CreateSession(ctx, username, password)
		if err != nil {
			c.logger.Error("glucose:login-failed", xslog.Status(status), xslog.Error(err))
		}
		if err != nil && status == StatusLoggedIn {
			status = StatusUnknown
		}
		c.status = status
	}
	c.logger.Info("glucose:login", xslog.Status(c.status))
	return c.status
}

// Status returns the result of the last Login.
func (c *Client) Status() SessionStatus { return c.status }

// PollLatest returns the newest reading. Without a session, or when the
// service fails, it returns NoData.
func (c *Client) PollLatest(ctx context.Context) Reading {
	if c.status != StatusLoggedIn {
		return NoData()
	}
	r, err := c.svc.LatestGlucose(ctx)
	if err != nil {
		c.logger.Error("glucose:poll-failed", xslog.Error(err))
		return NoData()
	}
	if !r.Available() {
		c.logger.Debug("glucose:no-data")
		return NoData()
	}
	c.logger.Debug("glucose:reading", xslog.Value(r.Value), slog.String("trend", r.Trend.String()))
	return r
}
