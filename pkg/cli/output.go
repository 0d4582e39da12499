package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/devicelab-dev/actionrunner/pkg/core"
	"github.com/devicelab-dev/actionrunner/pkg/flow"
	"github.com/devicelab-dev/actionrunner/pkg/report"
)

// ANSI color codes
const (
	colorReset  = "\033[0m"
	colorBold   = "\033[1m"
	colorDim    = "\033[2m"
	colorGreen  = "\033[32m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

// colorsEnabled determines if ANSI colors should be used
var colorsEnabled = true

func init() {
	// Respect NO_COLOR environment variable
	if os.Getenv("NO_COLOR") != "" {
		colorsEnabled = false
		return
	}
	// Check if stdout is a terminal
	if fileInfo, err := os.Stdout.Stat(); err == nil {
		if (fileInfo.Mode() & os.ModeCharDevice) == 0 {
			colorsEnabled = false
		}
	}
}

// color returns the color code if colors are enabled, empty string otherwise
func color(c string) string {
	if colorsEnabled {
		return c
	}
	return ""
}

func statusColor(s core.ActionStatus, required bool) string {
	switch {
	case s.IsSuccess():
		return colorGreen
	case s == core.StatusCancelled:
		return colorDim
	case !required:
		return colorYellow
	default:
		return colorRed
	}
}

// progress prints live action lines for one run.
type progress struct {
	w io.Writer
}

func (p progress) header(f *flow.Flow, target string) {
	fmt.Fprintf(p.w, "\n  %s%s%s on %s (%d actions)\n",
		color(colorBold), f.Name(), color(colorReset), target, len(f.Actions))
	fmt.Fprintln(p.w, strings.Repeat("─", 60))
}

func (p progress) onActionStart(idx, total int, a *flow.Action) {
	if !colorsEnabled {
		return
	}
	fmt.Fprintf(p.w, "%s  [%d/%d] %s…%s\r", color(colorDim), idx+1, total, a.Name(), color(colorReset))
}

func (p progress) onActionComplete(idx int, a *flow.Action, r *core.ActionResult) {
	if colorsEnabled {
		// Clear the in-progress line.
		fmt.Fprint(p.w, "\033[2K")
	}
	fmt.Fprintf(p.w, "%s%s%s\n", color(statusColor(r.Status, r.Required)), report.ActionLine(r), color(colorReset))
}
