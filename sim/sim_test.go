//go:build !tinygo

package sim

import (
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/harveysanders/glucopanel/display"
)

func TestRunHeadlessWritesSnapshot(t *testing.T) {
	t.Parallel()

	fb := display.NewFramebuffer(8, 4)
	fb.FillScreen(display.Red)
	path := filepath.Join(t.TempDir(), "panel.png")

	if err := RunHeadless(context.Background(), fb, HeadlessConfig{Duration: time.Millisecond, Snapshot: path}); err != nil {
		t.Fatalf("RunHeadless: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open snapshot: %v", err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 8 || b.Dy() != 4 {
		t.Fatalf("snapshot bounds = %v, want 8x4", b)
	}
	r, g, b, _ := img.At(3, 2).RGBA()
	if r>>8 != 0xFF || g != 0 || b != 0 {
		t.Errorf("pixel = %d,%d,%d, want red", r>>8, g>>8, b>>8)
	}
}

func TestRunHeadlessCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := RunHeadless(ctx, display.NewFramebuffer(2, 2), HeadlessConfig{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("RunHeadless err = %v, want context.Canceled", err)
	}
}
