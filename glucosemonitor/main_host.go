//go:build !tinygo

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"syscall"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/harveysanders/glucopanel/board"
	"github.com/harveysanders/glucopanel/display"
	"github.com/harveysanders/glucopanel/glucosemonitor/clock"
	"github.com/harveysanders/glucopanel/glucosemonitor/config"
	"github.com/harveysanders/glucopanel/glucosemonitor/dexcom"
	"github.com/harveysanders/glucopanel/glucosemonitor/glucose"
	"github.com/harveysanders/glucopanel/glucosemonitor/monitor"
	"github.com/harveysanders/glucopanel/glucosemonitor/provision"
	"github.com/harveysanders/glucopanel/glucosemonitor/provision/portal"
	"github.com/harveysanders/glucopanel/glucosemonitor/relay"
	"github.com/harveysanders/glucopanel/glucosemonitor/status"
	"github.com/harveysanders/glucopanel/glucosemonitor/touch"
	"github.com/harveysanders/glucopanel/sim"
	"github.com/harveysanders/glucopanel/xslog"
)

type simOptions struct {
	headless bool
	scale    int
	snapshot string
	duration time.Duration
}

func main() {
	_ = godotenv.Load()

	var opts simOptions
	rootCmd := &cobra.Command{
		Use:   "glucosemonitor",
		Short: "Glucose panel in a simulator window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSimulator(cmd.Context(), opts)
		},
	}
	rootCmd.Flags().BoolVar(&opts.headless, "headless", false, "Run without a window.")
	rootCmd.Flags().IntVar(&opts.scale, "scale", 2, "Window scale factor.")
	rootCmd.Flags().StringVar(&opts.snapshot, "snapshot", "", "Write the final panel to this PNG (headless).")
	rootCmd.Flags().DurationVar(&opts.duration, "duration", 0, "Stop after this long (headless, 0 = until interrupted).")

	rootCmd.AddCommand(relayCmd(), checkCmd())

	if err := fang.Execute(context.Background(), rootCmd, fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM)); err != nil {
		os.Exit(1)
	}
}

func runSimulator(ctx context.Context, opts simOptions) error {
	cfg, err := config.Read()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger := xslog.NewLogger(os.Stderr, cfg.LogLevel)

	font, err := display.ParseFont(cfg.PanelFont)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	fb := display.NewFramebuffer(board.LCDWidth, board.LCDHeight)
	con := display.NewConsole(fb, display.WithFont(font))
	rep := status.NewReporter(con, logger)

	var touched touch.Flag
	ts := touch.NewSession(sim.TouchPanel{}, &touched, cfg.TouchRetryDelay, touch.WithLogger(logger))

	wifi, err := newPortal(cfg, logger)
	if err != nil {
		return err
	}
	share, err := newShareClient(cfg, logger)
	if err != nil {
		return err
	}

	monitorOpts := []monitor.Option{monitor.WithLogger(logger)}
	if cfg.MQTT.Addr != "" {
		pub := newPublisher(cfg, logger)
		defer pub.Close()
		monitorOpts = append(monitorOpts, monitor.WithSink(pub))
	}

	m := monitor.New(cfg.Monitor(), monitor.Deps{
		Display:     con,
		Reporter:    rep,
		Touch:       ts,
		Provisioner: provision.NewController(wifi, rep),
		Clock:       clock.New(clock.NTP{}, clock.WithLogger(logger)),
		Glucose:     glucose.NewClient(share, logger),
	}, monitorOpts...)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if opts.headless {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return ignoreCanceled(m.Run(gctx))
		})
		g.Go(func() error {
			defer cancel()
			return ignoreCanceled(sim.RunHeadless(gctx, fb, sim.HeadlessConfig{Duration: opts.duration, Snapshot: opts.snapshot}))
		})
		return g.Wait()
	}

	var g errgroup.Group
	g.Go(func() error {
		return ignoreCanceled(m.Run(ctx))
	})
	err = sim.RunWindow(ctx, fb, sim.WindowConfig{Title: "glucosemonitor", Scale: opts.scale, OnTouch: ts.Interrupt})
	cancel()
	return errors.Join(err, g.Wait())
}

func newPortal(cfg config.Config, logger *slog.Logger) (*portal.Portal, error) {
	path := cfg.WiFiCredentialsPath
	if path == "" {
		var err error
		if path, err = portal.DefaultPath(); err != nil {
			return nil, err
		}
	}
	return portal.New(portal.FileStore{Path: path}, portal.NMCLI{},
		portal.WithAddr(cfg.Portal.Addr),
		portal.WithTimeout(cfg.Portal.Timeout),
		portal.WithNamePrefix(cfg.Portal.NamePrefix),
		portal.WithOnlineCheck(portal.OnlineCheck(cfg.OnlineProbeHost, 3*time.Second)),
		portal.WithLogger(logger),
	), nil
}

func newShareClient(cfg config.Config, logger *slog.Logger) (*dexcom.Client, error) {
	region, err := dexcom.ParseRegion(cfg.Dexcom.Region)
	if err != nil {
		return nil, err
	}
	return dexcom.New(dexcom.WithRegion(region), dexcom.WithTimeout(cfg.Dexcom.Timeout), dexcom.WithLogger(logger)), nil
}

func newPublisher(cfg config.Config, logger *slog.Logger) *relay.Publisher {
	return relay.NewPublisher(relay.Config{
		Dial:     relay.TCPDialer(cfg.MQTT.Addr),
		Topic:    cfg.MQTT.Topic,
		ClientID: cfg.MQTT.ClientID,
		Logger:   logger,
	}, cfg.MQTT.Username, cfg.MQTT.Password)
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
