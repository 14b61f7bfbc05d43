package status

import (
	"bytes"
	"strings"
	"testing"

	"github.com/harveysanders/glucopanel/display"
	"github.com/harveysanders/glucopanel/xslog"
)

func TestReportWritesPanelAndLog(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	fb := display.NewFramebuffer(200, 200)
	con := display.NewConsole(fb)
	r := NewReporter(con, xslog.NewLogger(&buf, xslog.LevelInfo))

	r.Report("Getting data...")
	r.Reportf("Connect to WiFi: %s", "GlucoPanel-1A2B")

	if !strings.Contains(buf.String(), `msg="Getting data..."`) {
		t.Fatalf("log missing first line: %q", buf.String())
	}
	if !strings.Contains(buf.String(), "GlucoPanel-1A2B") {
		t.Fatalf("log missing formatted line: %q", buf.String())
	}
	if _, y := con.Cursor(); y != 2*con.LineHeight() {
		t.Fatalf("cursor y = %d, want two lines down (%d)", y, 2*con.LineHeight())
	}
	if fb.Frames() == 0 {
		t.Fatal("panel never presented")
	}
}
