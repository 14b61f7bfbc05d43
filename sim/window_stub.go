//go:build !tinygo && !cgo

package sim

import (
	"context"
	"errors"

	"github.com/harveysanders/glucopanel/display"
)

func RunWindow(_ context.Context, _ *display.Framebuffer, _ WindowConfig) error {
	return errors.New("window mode requires cgo (build/run with CGO_ENABLED=1), or use --headless")
}
