package demo

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/harveysanders/glucopanel/display"
)

func TestRun(t *testing.T) {
	t.Parallel()

	const w, h = 120, 80
	fb := display.NewFramebuffer(w, h)
	con := display.NewConsole(fb)

	errStop := errors.New("stop")
	var sleeps []time.Duration
	var cursors [][2]int16
	sleep := func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		if len(sleeps) > 1 {
			x, y := con.Cursor()
			cursors = append(cursors, [2]int16{x, y})
		}
		if len(sleeps) == 6 {
			return errStop
		}
		return nil
	}

	err := Run(context.Background(), con, rand.New(rand.NewPCG(1, 2)), sleep, nil)
	if !errors.Is(err, errStop) {
		t.Fatalf("Run err = %v, want %v", err, errStop)
	}

	want := []time.Duration{5 * time.Second, 200 * time.Millisecond, 200 * time.Millisecond, 200 * time.Millisecond, 200 * time.Millisecond, 200 * time.Millisecond}
	if diff := cmp.Diff(want, sleeps); diff != "" {
		t.Errorf("sleeps mismatch (-want +got):\n%s", diff)
	}
	if len(cursors) != 5 {
		t.Fatalf("recorded %d scatter cursors, want 5", len(cursors))
	}
	for _, c := range cursors {
		// Println leaves the cursor at x=0 below the greeting.
		if c[0] != 0 {
			t.Errorf("cursor x after Println = %d, want 0", c[0])
		}
	}
	if fb.Frames() < 6 {
		t.Errorf("presented %d frames, want at least 6", fb.Frames())
	}
}

func TestRunFirstGreetingIsRed(t *testing.T) {
	t.Parallel()

	fb := display.NewFramebuffer(200, 40)
	con := display.NewConsole(fb)
	stop := errors.New("stop")
	err := Run(context.Background(), con, rand.New(rand.NewPCG(3, 4)), func(context.Context, time.Duration) error {
		return stop
	}, nil)
	if !errors.Is(err, stop) {
		t.Fatalf("Run err = %v, want %v", err, stop)
	}

	red := 0
	for y := int16(10); y < 30; y++ {
		for x := int16(10); x < 200; x++ {
			if fb.At(x, y) == display.Red {
				red++
			}
		}
	}
	if red == 0 {
		t.Error("no red greeting pixels near (10,10)")
	}
}
