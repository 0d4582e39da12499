// Package device provides Android device discovery, preflight and session acquisition via ADB.
package device

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/devicelab-dev/actionrunner/pkg/core"
	"github.com/devicelab-dev/actionrunner/pkg/logger"
)

// CommandRunner executes a binary and returns its stdout.
type CommandRunner func(ctx context.Context, name string, args ...string) (string, error)

// execRunner runs commands with os/exec. Stderr is also copied to the log file.
func execRunner(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...) //#nosec G204 -- adb path and args are built internally
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = io.MultiWriter(&stderr, logger.GetWriter())

	if err := cmd.Run(); err != nil {
		errMsg := strings.TrimSpace(stderr.String())
		if errMsg == "" {
			errMsg = strings.TrimSpace(stdout.String())
		}
		return "", fmt.Errorf("%w: %s", err, errMsg)
	}
	return stdout.String(), nil
}

// ADB wraps the adb binary.
type ADB struct {
	path string
	run  CommandRunner
}

// NewADB locates adb: the given path, then PATH, then $ANDROID_HOME/platform-tools.
func NewADB(path string) (*ADB, error) {
	if path == "" {
		var err error
		if path, err = findADB(); err != nil {
			return nil, err
		}
	}
	return &ADB{path: path, run: execRunner}, nil
}

// NewADBWithRunner creates an ADB that executes through run.
func NewADBWithRunner(path string, run CommandRunner) *ADB {
	return &ADB{path: path, run: run}
}

// Path returns the adb binary path.
func (a *ADB) Path() string { return a.path }

// Exec runs adb with args, optionally scoped to serial.
func (a *ADB) Exec(ctx context.Context, serial string, args ...string) (string, error) {
	cmdArgs := make([]string, 0, len(args)+2)
	if serial != "" {
		cmdArgs = append(cmdArgs, "-s", serial)
	}
	cmdArgs = append(cmdArgs, args...)

	out, err := a.run(ctx, a.path, cmdArgs...)
	if err != nil {
		return "", fmt.Errorf("adb %s: %w", strings.Join(args, " "), err)
	}
	return out, nil
}

// Entry is one line of `adb devices`.
type Entry struct {
	Serial string
	State  string // device, offline, unauthorized, ...
}

// Ready reports whether the device accepts commands.
func (e Entry) Ready() bool { return e.State == "device" }

// ListDevices returns every device adb knows about, in adb's order.
func (a *ADB) ListDevices(ctx context.Context) ([]Entry, error) {
	out, err := a.Exec(ctx, "", "devices")
	if err != nil {
		return nil, err
	}
	return parseDevices(out), nil
}

// parseDevices parses `adb devices` output.
func parseDevices(out string) []Entry {
	var entries []Entry
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "List of") || strings.HasPrefix(line, "*") {
			continue
		}
		parts := strings.Fields(line)
		if len(parts) < 2 {
			continue
		}
		entries = append(entries, Entry{Serial: parts[0], State: parts[1]})
	}
	return entries
}

// Device returns a handle scoped to serial.
func (a *ADB) Device(serial string) *AndroidDevice {
	return &AndroidDevice{serial: serial, adb: a}
}

// AndroidDevice manages one Android device via ADB.
type AndroidDevice struct {
	serial string
	adb    *ADB
}

// Info contains basic device information.
type Info struct {
	Serial     string
	Model      string
	SDK        string
	Release    string
	Brand      string
	IsEmulator bool
}

// Serial returns the device serial number.
func (d *AndroidDevice) Serial() string {
	return d.serial
}

// Shell executes a shell command on the device.
func (d *AndroidDevice) Shell(ctx context.Context, args ...string) (string, error) {
	return d.adb.Exec(ctx, d.serial, append([]string{"shell"}, args...)...)
}

// IsInstalled checks if a package is installed.
func (d *AndroidDevice) IsInstalled(ctx context.Context, pkg string) (bool, error) {
	out, err := d.Shell(ctx, "pm", "list", "packages", pkg)
	if err != nil {
		return false, err
	}
	for _, line := range strings.Split(out, "\n") {
		if strings.TrimSpace(line) == "package:"+pkg {
			return true, nil
		}
	}
	return false, nil
}

// GrantPermission grants a runtime permission to pkg.
func (d *AndroidDevice) GrantPermission(ctx context.Context, pkg, permission string) error {
	_, err := d.Shell(ctx, "pm", "grant", pkg, permission)
	return err
}

// Info returns device information. Missing properties are left empty.
func (d *AndroidDevice) Info(ctx context.Context) Info {
	info := Info{Serial: d.serial}
	prop := func(name string) string {
		out, err := d.Shell(ctx, "getprop", name)
		if err != nil {
			return ""
		}
		return strings.TrimSpace(out)
	}

	info.Model = prop("ro.product.model")
	info.SDK = prop("ro.build.version.sdk")
	info.Release = prop("ro.build.version.release")
	info.Brand = prop("ro.product.brand")
	info.IsEmulator = prop("ro.kernel.qemu") == "1" || strings.HasPrefix(d.serial, "emulator-")
	return info
}

// PlatformInfo converts device info for reports.
func (i Info) PlatformInfo(appID string) *core.PlatformInfo {
	return &core.PlatformInfo{
		Platform:   "android",
		OSVersion:  i.Release,
		DeviceName: strings.TrimSpace(i.Brand + " " + i.Model),
		DeviceID:   i.Serial,
		AppID:      appID,
	}
}

// findADB locates the ADB binary.
func findADB() (string, error) {
	if path, err := exec.LookPath("adb"); err == nil {
		return path, nil
	}
	for _, env := range []string{"ANDROID_HOME", "ANDROID_SDK_ROOT"} {
		if root := os.Getenv(env); root != "" {
			path := filepath.Join(root, "platform-tools", "adb")
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	}
	return "", fmt.Errorf("adb not found in PATH or $ANDROID_HOME/platform-tools; ensure Android SDK is installed")
}
