package core

import (
	"context"

	"github.com/devicelab-dev/actionrunner/pkg/flow"
)

// Element is a handle to a located UI element.
type Element struct {
	ID   string `json:"id"`             // Backend element reference
	Text string `json:"text,omitempty"` // Visible text or content description
}

// Backend defines the element operations the runner depends on.
// Implementations: Appium (W3C WebDriver), mock.
// Waiting is done by the runner on top of FindBySelector/IsActionable.
type Backend interface {
	// FindBySelector returns every element matching loc, searched under parent
	// when parent is non-nil. An empty result with nil error means "not present".
	FindBySelector(ctx context.Context, loc flow.Locator, parent *Element) ([]Element, error)

	// IsActionable reports whether the element is displayed and enabled.
	IsActionable(ctx context.Context, el Element) (bool, error)

	// Click taps the element.
	Click(ctx context.Context, el Element) error

	// TypeText sends text to the element.
	TypeText(ctx context.Context, el Element, text string) error

	// DumpUITree returns the current UI hierarchy (page source).
	DumpUITree(ctx context.Context) (string, error)
}

// Session is a live handle to a connected automation target.
// A session serves exactly one in-flight run.
type Session interface {
	Backend

	// Target returns the device/app identifier.
	Target() string

	// Endpoint returns the automation server URL.
	Endpoint() string

	// Alive reports whether the session can still execute commands.
	Alive() bool

	// Close releases the session. Safe to call more than once.
	Close() error
}

// PlatformInfo contains device and platform details
type PlatformInfo struct {
	Platform   string `json:"platform"`             // android
	OSVersion  string `json:"osVersion,omitempty"`  // e.g., "14"
	DeviceName string `json:"deviceName,omitempty"` // e.g., "Pixel 8"
	DeviceID   string `json:"deviceId"`             // Unique device identifier
	AppID      string `json:"appId,omitempty"`      // Package name
}
