// Package status surfaces state changes as one short line on the panel and
// the same line in the diagnostic log.
package status

import (
	"fmt"
	"log/slog"

	"github.com/harveysanders/glucopanel/display"
	"github.com/harveysanders/glucopanel/xslog"
)

type Reporter struct {
	display display.Display
	logger  *slog.Logger
}

func NewReporter(d display.Display, logger *slog.Logger) *Reporter {
	return &Reporter{display: d, logger: xslog.OrDiscard(logger)}
}

// Report logs msg and prints it below the previous line, without clearing.
func (r *Reporter) Report(msg string) {
	r.logger.Info(msg)
	r.display.Println(msg)
}

func (r *Reporter) Reportf(format string, args ...any) {
	r.Report(fmt.Sprintf(format, args...))
}
