package device

import (
	"context"
	"fmt"

	"github.com/devicelab-dev/actionrunner/pkg/core"
	"github.com/devicelab-dev/actionrunner/pkg/driver/appium"
	"github.com/devicelab-dev/actionrunner/pkg/flow"
	"github.com/devicelab-dev/actionrunner/pkg/logger"
)

// Dialer opens an automation session on the first reachable port.
type Dialer func(ctx context.Context, host string, ports []int, target string, caps map[string]interface{}) (core.Session, error)

// dialAppium is the default Dialer.
func dialAppium(ctx context.Context, host string, ports []int, target string, caps map[string]interface{}) (core.Session, error) {
	s, err := appium.DialFirst(ctx, host, ports, target, caps)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// ProviderConfig configures session acquisition.
type ProviderConfig struct {
	Host              string
	Ports             []int // Tried in order
	SystemPort        int
	NewCommandTimeout int // seconds
	Capabilities      map[string]interface{}
	SkipPreflight     bool
}

// Provider enumerates targets and opens sessions on them.
type Provider struct {
	adb    *ADB
	config ProviderConfig
	dial   Dialer
}

// NewProvider creates a Provider backed by adb and Appium.
func NewProvider(adb *ADB, cfg ProviderConfig) *Provider {
	return &Provider{adb: adb, config: cfg, dial: dialAppium}
}

// WithDialer replaces the session dialer.
func (p *Provider) WithDialer(d Dialer) *Provider {
	p.dial = d
	return p
}

// ListTargets returns the serials of ready devices, in adb order.
func (p *Provider) ListTargets(ctx context.Context) ([]string, error) {
	entries, err := p.adb.ListDevices(ctx)
	if err != nil {
		return nil, err
	}
	var serials []string
	for _, e := range entries {
		if e.Ready() {
			serials = append(serials, e.Serial)
		}
	}
	return serials, nil
}

// Acquisition is an opened session plus what was learned about the device.
type Acquisition struct {
	Session  core.Session
	Platform *core.PlatformInfo
}

// Acquire picks target (the first ready device when empty), runs preflight
// for the profile, and opens a session.
func (p *Provider) Acquire(ctx context.Context, target string, f *flow.Flow) (*Acquisition, error) {
	entries, err := p.adb.ListDevices(ctx)
	if err != nil {
		return nil, core.ErrNoTarget.WithCause(err)
	}

	serial, err := pickTarget(entries, target)
	if err != nil {
		return nil, err
	}
	logger.Info("using device %s", serial)

	dev := p.adb.Device(serial)
	if !p.config.SkipPreflight {
		if err := Preflight(ctx, dev, f.Config); err != nil {
			return nil, err
		}
	}

	caps := appium.Capabilities(appium.CapabilityOptions{
		DeviceName:        serial,
		AppPackage:        f.Config.AppID,
		AppActivity:       f.Config.AppActivity,
		SystemPort:        p.config.SystemPort,
		NewCommandTimeout: p.config.NewCommandTimeout,
		Extra:             p.config.Capabilities,
	})

	session, err := p.dial(ctx, p.config.Host, p.config.Ports, serial, caps)
	if err != nil {
		return nil, err
	}

	return &Acquisition{
		Session:  session,
		Platform: dev.Info(ctx).PlatformInfo(f.Config.AppID),
	}, nil
}

// pickTarget selects the requested serial, or the first ready one.
func pickTarget(entries []Entry, target string) (string, error) {
	if target == "" {
		for _, e := range entries {
			if e.Ready() {
				return e.Serial, nil
			}
		}
		return "", buildNoDevicesError(entries)
	}

	for _, e := range entries {
		if e.Serial != target {
			continue
		}
		if !e.Ready() {
			return "", core.ErrNoTarget.WithMessage(fmt.Sprintf("device %s is %s", target, e.State))
		}
		return target, nil
	}
	return "", core.ErrNoTarget.WithMessage(fmt.Sprintf("device %s not found", target))
}
