//go:build !tinygo

package main

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"syscall"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/harveysanders/glucopanel/board"
	"github.com/harveysanders/glucopanel/display"
	"github.com/harveysanders/glucopanel/hellopanel/demo"
	"github.com/harveysanders/glucopanel/sim"
	"github.com/harveysanders/glucopanel/xslog"
)

type options struct {
	headless bool
	scale    int
	snapshot string
	duration time.Duration
}

func main() {
	var opts options
	rootCmd := &cobra.Command{
		Use:   "hellopanel",
		Short: "Panel bring-up demo in a simulator window",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}
	rootCmd.Flags().BoolVar(&opts.headless, "headless", false, "Run without a window.")
	rootCmd.Flags().IntVar(&opts.scale, "scale", 2, "Window scale factor.")
	rootCmd.Flags().StringVar(&opts.snapshot, "snapshot", "", "Write the final panel to this PNG (headless).")
	rootCmd.Flags().DurationVar(&opts.duration, "duration", 0, "Stop after this long (headless, 0 = until interrupted).")

	if err := fang.Execute(context.Background(), rootCmd, fang.WithNotifySignal(os.Interrupt, syscall.SIGTERM)); err != nil {
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	logger := xslog.NewLogger(os.Stderr, xslog.FromEnv())
	fb := display.NewFramebuffer(board.LCDWidth, board.LCDHeight)
	con := display.NewConsole(fb)
	rng := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if opts.headless {
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			return ignoreCanceled(demo.Run(gctx, con, rng, sleep, logger))
		})
		g.Go(func() error {
			defer cancel()
			return ignoreCanceled(sim.RunHeadless(gctx, fb, sim.HeadlessConfig{Duration: opts.duration, Snapshot: opts.snapshot}))
		})
		return g.Wait()
	}

	var g errgroup.Group
	g.Go(func() error {
		return ignoreCanceled(demo.Run(ctx, con, rng, sleep, logger))
	})
	err := sim.RunWindow(ctx, fb, sim.WindowConfig{Title: "hellopanel", Scale: opts.scale})
	cancel()
	return errors.Join(err, g.Wait())
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
