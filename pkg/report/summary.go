package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/devicelab-dev/actionrunner/pkg/core"
)

// statusSymbol returns the marker shown in front of an action line.
func statusSymbol(s core.ActionStatus) string {
	switch s {
	case core.StatusSuccess:
		return "✓"
	case core.StatusCancelled:
		return "○"
	default:
		return "✗"
	}
}

// FormatDuration renders d the way the terminal output shows it.
func FormatDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		m := int(d.Minutes())
		s := int(d.Seconds()) % 60
		return fmt.Sprintf("%dm%ds", m, s)
	}
}

// ActionLine renders one result for live progress output.
func ActionLine(r *core.ActionResult) string {
	line := fmt.Sprintf("  %s %s (%s)", statusSymbol(r.Status), r.Name, FormatDuration(r.Duration))
	if !r.Status.IsSuccess() {
		line += " " + r.Status.String()
		if !r.Required {
			line += " [optional]"
		}
		if r.Error != "" {
			line += ": " + r.Error
		}
	}
	return line
}

// PrintSummary writes the end-of-run summary.
func PrintSummary(w io.Writer, r *core.RunReport) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("─", 50))
	fmt.Fprintf(w, "Profile:  %s\n", r.Profile)
	fmt.Fprintf(w, "Target:   %s\n", r.Target)
	if r.Platform != nil && r.Platform.DeviceName != "" {
		fmt.Fprintf(w, "Device:   %s (Android %s)\n", r.Platform.DeviceName, r.Platform.OSVersion)
	}
	fmt.Fprintf(w, "Status:   %s\n", strings.ToUpper(string(r.Status)))
	fmt.Fprintf(w, "Actions:  %d/%d run, %d succeeded", len(r.Results), r.Planned, r.Summary.Succeeded)
	if failed := r.Summary.Failed(); failed > 0 {
		fmt.Fprintf(w, ", %d failed", failed)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Duration: %s\n", FormatDuration(r.Duration))
	if h := r.Halted(); h != nil {
		fmt.Fprintf(w, "Halted at action %d (%s): %s\n", h.Index+1, h.Name, h.Error)
	}
	if !r.SessionReleased {
		fmt.Fprintln(w, "Warning: session was not released cleanly")
	}
	fmt.Fprintln(w, strings.Repeat("─", 50))
}
