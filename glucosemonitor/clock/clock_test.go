package clock

import (
	"context"
	"errors"
	"testing"
	"time"
)

var epoch = time.Date(1970, 1, 1, 0, 0, 42, 0, time.UTC)

func fixedNow() time.Time { return epoch }

func TestLocalTimeBeforeSync(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	c := New(SyncerFunc(func(ctx context.Context, _ string) (time.Duration, error) {
		<-release
		return time.Hour, nil
	}), WithNow(fixedNow))

	c.Configure(context.Background(), 0, 0, "pool.ntp.org")
	if _, ok := c.LocalTime(); ok {
		t.Fatal("LocalTime reported synced before the sync finished")
	}
	if got := Format(c.LocalTime()); got != "--:--" {
		t.Errorf("Format before sync = %q, want --:--", got)
	}
	close(release)
	<-c.Done()
	if _, ok := c.LocalTime(); !ok {
		t.Fatal("LocalTime not synced after Done")
	}
}

func TestLocalTimeAppliesOffsetAndZone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		gmt, dst int
		offset   time.Duration
		want     string
	}{
		{name: "utc", offset: 56 * 365 * 24 * time.Hour, want: "00:00"},
		{name: "gmt minus five", gmt: -5 * 3600, offset: 15 * time.Hour, want: "10:00"},
		{name: "gmt plus one with dst", gmt: 3600, dst: 3600, offset: 13*time.Hour + 30*time.Minute, want: "15:30"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := New(SyncerFunc(func(context.Context, string) (time.Duration, error) {
				return tt.offset - 42*time.Second, nil
			}), WithNow(fixedNow))
			c.Configure(context.Background(), tt.gmt, tt.dst, "")
			<-c.Done()

			lt, ok := c.LocalTime()
			if !ok {
				t.Fatal("not synced")
			}
			if got := Format(lt, ok); got != tt.want {
				t.Errorf("Format = %q, want %q", got, tt.want)
			}
			if _, off := lt.Zone(); off != tt.gmt+tt.dst {
				t.Errorf("zone offset = %d, want %d", off, tt.gmt+tt.dst)
			}
		})
	}
}

func TestSyncFailureStaysUnsynced(t *testing.T) {
	t.Parallel()

	c := New(SyncerFunc(func(context.Context, string) (time.Duration, error) {
		return 0, errors.New("i/o timeout")
	}), WithNow(fixedNow))
	c.Configure(context.Background(), 0, 0, "pool.ntp.org")
	<-c.Done()
	if got, ok := c.LocalTime(); ok || !got.Equal(epoch) {
		t.Errorf("LocalTime = %v, %v; want %v, false", got, ok, epoch)
	}
}

func TestZoneName(t *testing.T) {
	t.Parallel()

	tests := map[int]string{
		0:      "UTC",
		-18000: "UTC-05:00",
		19800:  "UTC+05:30",
		-12600: "UTC-03:30",
	}
	for in, want := range tests {
		if got := zoneName(in); got != want {
			t.Errorf("zoneName(%d) = %q, want %q", in, got, want)
		}
	}
}
