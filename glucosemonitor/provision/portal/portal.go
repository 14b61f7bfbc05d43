// Package portal provisions WiFi on a host: cached credentials first, then a
// captive configuration form served over HTTP.
package portal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"net/http"
	"time"

	"github.com/harveysanders/glucopanel/glucosemonitor/provision"
	"github.com/harveysanders/glucopanel/xslog"
)

const (
	DefaultAddr       = ":8080"
	DefaultTimeout    = 3 * time.Minute
	DefaultNamePrefix = "GlucoPanel"
)

// Portal implements provision.Service.
type Portal struct {
	addr       string
	timeout    time.Duration
	namePrefix string
	store      Store
	joiner     Joiner
	online     func(ctx context.Context) bool
	nameSuffix func() uint16
	logger     *slog.Logger

	connected chan Credentials
}

var _ provision.Service = (*Portal)(nil)

type Option func(*Portal)

func WithAddr(addr string) Option {
	return func(p *Portal) { p.addr = addr }
}

// WithTimeout bounds how long the form stays open.
func WithTimeout(d time.Duration) Option {
	return func(p *Portal) { p.timeout = d }
}

func WithNamePrefix(prefix string) Option {
	return func(p *Portal) { p.namePrefix = prefix }
}

// WithOnlineCheck replaces the connectivity check run before anything else.
func WithOnlineCheck(online func(ctx context.Context) bool) Option {
	return func(p *Portal) { p.online = online }
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Portal) { p.logger = logger }
}

func withNameSuffix(f func() uint16) Option {
	return func(p *Portal) { p.nameSuffix = f }
}

func New(store Store, joiner Joiner, opts ...Option) *Portal {
	p := &Portal{
		addr:       DefaultAddr,
		timeout:    DefaultTimeout,
		namePrefix: DefaultNamePrefix,
		store:      store,
		joiner:     joiner,
		online:     func(context.Context) bool { return false },
		nameSuffix: func() uint16 { return uint16(rand.Uint32()) },
		connected:  make(chan Credentials, 1),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = xslog.OrDiscard(p.logger)
	return p
}

// Name is the network name announced while the portal is open.
func (p *Portal) Name() string {
	return fmt.Sprintf("%s-%04X", p.namePrefix, p.nameSuffix())
}

// AutoConnect succeeds at once when already online or when the cached
// credentials join. Otherwise it serves the form until a submission joins,
// the timeout passes or ctx is done.
func (p *Portal) AutoConnect(ctx context.Context, onPortalStarted func(name, addr string)) bool {
	if p.online(ctx) {
		p.logger.Info("portal:already-online")
		return true
	}

	creds, err := p.store.Load()
	switch {
	case errors.Is(err, ErrNoCredentials):
		p.logger.Info("portal:no-cached-credentials")
	case err != nil:
		p.logger.Warn("portal:load-credentials", xslog.Error(err))
	default:
		err := p.joiner.Join(ctx, creds)
		if err == nil {
			p.logger.Info("portal:joined-cached", slog.String("ssid", creds.SSID))
			return true
		}
		p.logger.Warn("portal:cached-join-failed", slog.String("ssid", creds.SSID), xslog.Error(err))
	}

	return p.serve(ctx, onPortalStarted)
}

func (p *Portal) serve(ctx context.Context, onPortalStarted func(name, addr string)) bool {
	ln, err := net.Listen("tcp", p.addr)
	if err != nil {
		p.logger.Error("portal:listen", xslog.Addr(p.addr), xslog.Error(err))
		return false
	}

	srv := &http.Server{
		Handler:           p.Handler(),
		BaseContext:       func(net.Listener) context.Context { return ctx },
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			p.logger.Error("portal:serve", xslog.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	name, addr := p.Name(), ln.Addr().String()
	p.logger.Info("portal:started", slog.String("name", name), xslog.Addr(addr), xslog.Duration(p.timeout))
	if onPortalStarted != nil {
		onPortalStarted(name, addr)
	}

	timer := time.NewTimer(p.timeout)
	defer timer.Stop()
	select {
	case creds := <-p.connected:
		p.logger.Info("portal:connected", slog.String("ssid", creds.SSID))
		return true
	case <-timer.C:
		p.logger.Warn("portal:timed-out")
		return false
	case <-ctx.Done():
		p.logger.Warn("portal:cancelled", xslog.Error(ctx.Err()))
		return false
	}
}

// submit joins creds and, on success, caches them and releases AutoConnect.
func (p *Portal) submit(ctx context.Context, creds Credentials) error {
	if err := p.joiner.Join(ctx, creds); err != nil {
		return err
	}
	if err := p.store.Save(creds); err != nil {
		p.logger.Warn("portal:save-credentials", xslog.Error(err))
	}
	select {
	case p.connected <- creds:
	default:
	}
	return nil
}

// OnlineCheck reports whether a TCP connection to host can be opened.
func OnlineCheck(host string, timeout time.Duration) func(ctx context.Context) bool {
	return func(ctx context.Context) bool {
		if host == "" {
			return false
		}
		d := net.Dialer{Timeout: timeout}
		conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(host, "443"))
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}
}
