// Package monitor is the panel's main loop: bring every collaborator up
// once, then refresh the latest glucose reading on a fixed tick.
package monitor

import (
	"context"
	"errors"
	"image/color"
	"log/slog"
	"time"

	"github.com/harveysanders/glucopanel/display"
	"github.com/harveysanders/glucopanel/glucosemonitor/clock"
	"github.com/harveysanders/glucopanel/glucosemonitor/glucose"
	"github.com/harveysanders/glucopanel/glucosemonitor/touch"
	"github.com/harveysanders/glucopanel/xslog"
)

const (
	DefaultRefreshInterval = 60 * time.Second
	haltInterval           = time.Second
)

// ErrProvisioningFailed is returned by Init when no network came up.
var ErrProvisioningFailed = errors.New("provisioning failed")

type Reporter interface {
	Report(msg string)
}

type Touch interface {
	Init(ctx context.Context) (int, error)
	Touched() bool
}

type Provisioner interface {
	Run(ctx context.Context) bool
}

type Clock interface {
	Configure(ctx context.Context, gmtOffsetSec, dstOffsetSec int, host string)
	LocalTime() (time.Time, bool)
}

type GlucoseClient interface {
	Login(ctx context.Context, username, password string) glucose.SessionStatus
	Status() glucose.SessionStatus
	PollLatest(ctx context.Context) glucose.Reading
}

// ReadingSink receives every reading drawn on the panel.
type ReadingSink interface {
	PublishReading(ctx context.Context, r glucose.Reading) error
}

type Config struct {
	Username        string
	Password        string
	GMTOffsetSec    int
	DSTOffsetSec    int
	NTPHost         string
	RefreshInterval time.Duration
}

// Deps are the collaborators the loop drives. All are required.
type Deps struct {
	Display     display.Display
	Reporter    Reporter
	Touch       Touch
	Provisioner Provisioner
	Clock       Clock
	Glucose     GlucoseClient
}

type Monitor struct {
	cfg Config
	Deps
	layout Layout
	sink   ReadingSink
	sleep  func(ctx context.Context, d time.Duration) error
	logger *slog.Logger
}

type Option func(*Monitor)

func WithSink(sink ReadingSink) Option {
	return func(m *Monitor) { m.sink = sink }
}

// WithSleep replaces the wait between ticks, for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(m *Monitor) { m.sleep = sleep }
}

func WithLogger(logger *slog.Logger) Option {
	return func(m *Monitor) { m.logger = logger }
}

func New(cfg Config, deps Deps, opts ...Option) *Monitor {
	if cfg.RefreshInterval <= 0 {
		cfg.RefreshInterval = DefaultRefreshInterval
	}
	m := &Monitor{
		cfg:   cfg,
		Deps:  deps,
		sleep: touch.Sleep,
	}
	m.layout = LayoutFor(deps.Display)
	for _, opt := range opts {
		opt(m)
	}
	m.logger = xslog.OrDiscard(m.logger)
	return m
}

// Run initializes and then ticks until ctx is done. If provisioning fails it
// idles without touching anything else.
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.Init(ctx); err != nil {
		if !errors.Is(err, ErrProvisioningFailed) {
			return err
		}
		m.logger.Error("monitor:halted", xslog.Error(err))
		return m.halt(ctx)
	}
	for {
		if err := m.Tick(ctx); err != nil {
			return err
		}
	}
}

// Init runs the one-time startup sequence: display, touch, network, clock
// and login. A login failure is reported but does not fail Init.
func (m *Monitor) Init(ctx context.Context) error {
	if !m.Display.Begin() {
		m.logger.Error("display:begin-failed")
	}
	m.resetScreen()
	m.Reporter.Report("Starting...")

	attempts, err := m.Touch.Init(ctx)
	if err != nil {
		return err
	}
	m.logger.Debug("monitor:touch-ready", xslog.Attempt(attempts))

	if !m.Provisioner.Run(ctx) {
		return ErrProvisioningFailed
	}

	m.Clock.Configure(ctx, m.cfg.GMTOffsetSec, m.cfg.DSTOffsetSec, m.cfg.NTPHost)

	m.Reporter.Report("Logging in...")
	status := m.Glucose.Login(ctx, m.cfg.Username, m.cfg.Password)
	m.Reporter.Report(status.Message())
	return nil
}

// Tick runs one steady-state cycle, including the sleep that ends it.
func (m *Monitor) Tick(ctx context.Context) error {
	if m.Touch.Touched() {
		m.logger.Debug("monitor:touched")
		m.resetScreen()
	}

	if m.Glucose.Status() != glucose.StatusLoggedIn {
		return m.sleep(ctx, m.cfg.RefreshInterval)
	}

	m.Reporter.Report("Getting data...")
	r := m.Glucose.PollLatest(ctx)
	if !r.Available() {
		m.Reporter.Report("No glucose data")
		return m.sleep(ctx, m.cfg.RefreshInterval)
	}

	m.render(r)
	if m.sink != nil {
		if err := m.sink.PublishReading(ctx, r); err != nil {
			m.logger.Warn("monitor:sink-failed", xslog.Error(err))
		}
	}
	return m.sleep(ctx, m.cfg.RefreshInterval)
}

func (m *Monitor) halt(ctx context.Context) error {
	for {
		if err := m.sleep(ctx, haltInterval); err != nil {
			return err
		}
	}
}

// resetScreen clears the panel and puts the cursor and text style back to
// the status-line defaults.
func (m *Monitor) resetScreen() {
	m.Display.FillScreen(display.Black)
	m.Display.SetCursor(0, 0)
	m.Display.SetTextColor(display.White)
	m.Display.SetTextSize(1)
}

func (m *Monitor) render(r glucose.Reading) {
	l := m.layout
	d := m.Display
	d.FillScreen(display.Black)

	d.SetCursor(l.Margin, l.ValueY)
	d.SetTextSize(l.ValueSize)
	d.SetTextColor(RangeColor(r.Range()))
	d.Println(r.Text())

	d.SetCursor(l.Margin, l.TrendY)
	d.SetTextSize(l.TrendSize)
	d.SetTextColor(display.White)
	d.Println(r.Trend.Text())

	d.SetCursor(l.Margin, l.TimeY)
	d.SetTextSize(l.TimeSize)
	d.SetTextColor(display.Gray)
	d.Println(clock.Format(m.Clock.LocalTime()))

	d.SetTextColor(display.White)
	d.SetTextSize(1)
	m.logger.Info("monitor:rendered", xslog.Value(r.Value), slog.String("trend", r.Trend.String()))
}

// RangeColor is the value color: red when low, orange when high.
func RangeColor(rg glucose.Range) color.RGBA {
	switch rg {
	case glucose.Low:
		return display.Red
	case glucose.High:
		return display.Orange
	default:
		return display.Green
	}
}

// Layout places the three lines of a rendered reading.
type Layout struct {
	Margin    int16
	ValueY    int16
	TrendY    int16
	TimeY     int16
	ValueSize uint8
	TrendSize uint8
	TimeSize  uint8
}

// LayoutFor spreads the lines over the panel height, with larger text on
// wider panels.
func LayoutFor(d display.Display) Layout {
	h := d.Height()
	l := Layout{
		Margin:    10,
		ValueY:    h / 4,
		TrendY:    h / 2,
		TimeY:     h * 3 / 4,
		ValueSize: 3,
		TrendSize: 2,
		TimeSize:  1,
	}
	if d.Width() >= 300 {
		l.ValueSize, l.TrendSize, l.TimeSize = 4, 3, 2
	}
	return l
}
