//go:build !tinygo

// Package sim runs the panel on a desktop: a window or a headless runner in
// front of a display.Framebuffer, and a touch controller that is always
// ready.
package sim

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"time"

	"github.com/harveysanders/glucopanel/display"
)

type WindowConfig struct {
	Title string
	// Scale multiplies the window size. Zero means 1.
	Scale   int
	OnTouch func()
}

func (c *WindowConfig) setDefaults() {
	if c.Title == "" {
		c.Title = "glucopanel"
	}
	if c.Scale <= 0 {
		c.Scale = 1
	}
}

type HeadlessConfig struct {
	// Duration stops the runner after that long. Zero runs until ctx is done.
	Duration time.Duration
	// Snapshot is a PNG path written with the final panel contents.
	Snapshot string
}

// RunHeadless waits for ctx or the configured duration, then writes the
// snapshot if one was requested. Reaching the duration is not an error.
func RunHeadless(ctx context.Context, fb *display.Framebuffer, cfg HeadlessConfig) error {
	var timeout <-chan time.Time
	if cfg.Duration > 0 {
		t := time.NewTimer(cfg.Duration)
		defer t.Stop()
		timeout = t.C
	}

	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case <-timeout:
	}

	if cfg.Snapshot != "" {
		if serr := WriteSnapshot(fb, cfg.Snapshot); serr != nil {
			return serr
		}
	}
	return err
}

// WriteSnapshot encodes the current panel contents as a PNG at path.
func WriteSnapshot(fb *display.Framebuffer, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create snapshot: %w", err)
	}
	if err := png.Encode(f, fb.SnapshotRGBA(nil)); err != nil {
		f.Close()
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return f.Close()
}

// TouchPanel is the simulator's touch controller. Touches arrive through
// WindowConfig.OnTouch.
type TouchPanel struct{}

func (TouchPanel) Begin() bool { return true }
