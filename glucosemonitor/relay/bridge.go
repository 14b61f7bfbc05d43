package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/harveysanders/glucopanel/glucosemonitor/glucose"
	"github.com/harveysanders/glucopanel/xslog"
)

// MessagePublisher is what a Bridge publishes through.
type MessagePublisher interface {
	Publish(ctx context.Context, m Message) error
}

// Bridge logs into the follower service once and republishes the session
// status and latest reading every interval.
type Bridge struct {
	Client   *glucose.Client
	Pub      MessagePublisher
	Username string
	Password string
	Interval time.Duration
	Now      func() time.Time
	Sleep    func(ctx context.Context, d time.Duration) error
	Logger   *slog.Logger
}

// Run returns only when ctx is done or Sleep fails.
func (b *Bridge) Run(ctx context.Context) error {
	now := b.Now
	if now == nil {
		now = time.Now
	}
	logger := xslog.OrDiscard(b.Logger)

	status := b.Client.Login(ctx, b.Username, b.Password)
	logger.Info("relay:login", xslog.Status(status))
	for {
		r := glucose.NoData()
		if status == glucose.StatusLoggedIn {
			r = b.Client.PollLatest(ctx)
		}
		if err := b.Pub.Publish(ctx, NewMessage(status, r, now())); err != nil {
			logger.Error("relay:publish-failed", xslog.Error(err))
		} else {
			logger.Info("relay:published", xslog.Status(status), xslog.Value(r.Value))
		}
		if err := b.Sleep(ctx, b.Interval); err != nil {
			return err
		}
	}
}
