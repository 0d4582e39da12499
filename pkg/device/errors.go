package device

import (
	"strings"

	"github.com/devicelab-dev/actionrunner/pkg/core"
)

// NoDevicesError is returned when no device is ready for a run.
type NoDevicesError struct {
	Message     string
	NotReady    []Entry // Devices adb lists in a non-ready state
	Suggestions []string
}

func (e *NoDevicesError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)
	for _, d := range e.NotReady {
		sb.WriteString("\n  " + d.Serial + " (" + d.State + ")")
	}
	if len(e.Suggestions) > 0 {
		sb.WriteString("\n\nOptions:")
		for _, s := range e.Suggestions {
			sb.WriteString("\n  - " + s)
		}
	}
	return sb.String()
}

// Unwrap lets errors.Is match core.ErrNoTarget.
func (e *NoDevicesError) Unwrap() error { return core.ErrNoTarget }

func buildNoDevicesError(entries []Entry) *NoDevicesError {
	err := &NoDevicesError{Message: "No Android devices or emulators ready"}
	suggestions := []string{
		"Connect a physical device via USB and enable USB debugging",
		"Start an emulator: emulator -avd <name>",
	}
	for _, e := range entries {
		if !e.Ready() {
			err.NotReady = append(err.NotReady, e)
		}
		if e.State == "unauthorized" {
			suggestions = append(suggestions, "Accept the USB debugging prompt on "+e.Serial)
		}
	}
	err.Suggestions = suggestions
	return err
}
