// Package demo is the panel bring-up check: a fixed greeting, then the same
// greeting scattered at random positions, colors and sizes.
package demo

import (
	"context"
	"image/color"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/harveysanders/glucopanel/display"
	"github.com/harveysanders/glucopanel/xslog"
)

const (
	Greeting      = "Hello World!"
	greetingDelay = 5 * time.Second
	scatterDelay  = 200 * time.Millisecond
)

// Run greets once and then scatters greetings until ctx is done or sleep
// fails.
func Run(ctx context.Context, d display.Display, rng *rand.Rand, sleep func(ctx context.Context, d time.Duration) error, logger *slog.Logger) error {
	logger = xslog.OrDiscard(logger)
	if !d.Begin() {
		logger.Error("display:begin-failed")
	}
	d.FillScreen(display.Black)
	d.SetCursor(10, 10)
	d.SetTextColor(display.Red)
	d.Println(Greeting)
	if err := sleep(ctx, greetingDelay); err != nil {
		return err
	}

	for {
		d.SetCursor(int16(rng.IntN(int(d.Width()))), int16(rng.IntN(int(d.Height()))))
		d.SetTextColors(randomColor(rng), randomColor(rng))
		// Size 0 draws at size 1.
		d.SetTextSize(uint8(rng.IntN(6)))
		d.Println(Greeting)
		if err := sleep(ctx, scatterDelay); err != nil {
			return err
		}
	}
}

// randomColor picks any 16-bit panel color.
func randomColor(rng *rand.Rand) color.RGBA {
	return display.FromRGB565(uint16(rng.Uint32()))
}
