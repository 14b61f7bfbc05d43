package touch

import (
	"context"
	"sync"
	"testing"
	"time"
)

type flakyController struct {
	failures int
	calls    int
}

func (c *flakyController) Begin() bool {
	c.calls++
	return c.calls > c.failures
}

func TestInitRetriesWithFixedDelay(t *testing.T) {
	t.Parallel()

	dev := &flakyController{failures: 3}
	var delays []time.Duration
	s := NewSession(dev, &Flag{}, 250*time.Millisecond, WithSleep(func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}))

	attempts, err := s.Init(context.Background())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if attempts != 4 {
		t.Fatalf("attempts = %d, want 4", attempts)
	}
	if len(delays) != 3 {
		t.Fatalf("slept %d times, want 3", len(delays))
	}
	for _, d := range delays {
		if d != 250*time.Millisecond {
			t.Fatalf("delay = %v, want fixed 250ms", d)
		}
	}
}

func TestInitStopsOnContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewSession(&flakyController{failures: 1 << 30}, &Flag{}, time.Hour)
	if _, err := s.Init(ctx); err == nil {
		t.Fatal("Init with cancelled context returned nil")
	}
}

func TestFlagTakeClears(t *testing.T) {
	t.Parallel()

	var f Flag
	if f.Take() {
		t.Fatal("fresh flag was set")
	}
	f.Set()
	f.Set()
	if !f.Pending() {
		t.Fatal("Pending() = false after Set")
	}
	if !f.Take() {
		t.Fatal("Take() = false after Set")
	}
	if f.Take() || f.Pending() {
		t.Fatal("flag still set after Take")
	}
}

func TestFlagConcurrentSetters(t *testing.T) {
	t.Parallel()

	var f Flag
	s := NewSession(&flakyController{}, &f, 0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.Interrupt()
			}
		}()
	}

	seen := 0
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
loop:
	for {
		select {
		case <-done:
			break loop
		default:
			if s.Touched() {
				seen++
			}
		}
	}
	if s.Touched() {
		seen++
	}
	if seen == 0 {
		t.Fatal("no touch observed")
	}
	if f.Pending() {
		t.Fatal("flag left set after final Take")
	}
}
