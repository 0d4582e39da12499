// Package cli provides the command-line interface for actionrunner.
package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/actionrunner/pkg/config"
	"github.com/devicelab-dev/actionrunner/pkg/device"
	"github.com/devicelab-dev/actionrunner/pkg/logger"
)

// Version is set at build time.
var Version = "dev"

// GlobalFlags are available to all commands.
var GlobalFlags = []cli.Flag{
	&cli.StringFlag{
		Name:    "config",
		Usage:   "Path to actionrunner.yaml (default: ./actionrunner.yaml if present)",
		EnvVars: []string{"ACTIONRUNNER_CONFIG"},
	},
	&cli.StringFlag{
		Name:    "device",
		Aliases: []string{"s"},
		Usage:   "adb serial to run on (default: first ready device)",
		EnvVars: []string{"ACTIONRUNNER_DEVICE", "ANDROID_SERIAL"},
	},
	&cli.StringFlag{
		Name:    "adb",
		Usage:   "Path to the adb binary",
		EnvVars: []string{"ACTIONRUNNER_ADB"},
	},
	&cli.StringFlag{
		Name:    "appium-host",
		Usage:   "Appium server host",
		EnvVars: []string{"APPIUM_HOST"},
	},
	&cli.IntSliceFlag{
		Name:    "appium-port",
		Usage:   "Appium server port, tried in order (repeatable)",
		EnvVars: []string{"APPIUM_PORTS"},
	},
	&cli.BoolFlag{
		Name:    "verbose",
		Aliases: []string{"v"},
		Usage:   "Mirror log output to stderr",
		EnvVars: []string{"ACTIONRUNNER_VERBOSE"},
	},
	&cli.StringFlag{
		Name:    "log-file",
		Usage:   "Log file path (default: <home>/logs/actionrunner.log)",
		EnvVars: []string{"ACTIONRUNNER_LOG_FILE"},
	},
	&cli.BoolFlag{
		Name:  "no-ansi",
		Usage: "Disable ANSI colors",
	},
}

// newADB and dialer are replaced in tests.
var (
	newADB = device.NewADB
	dialer device.Dialer
)

// NewApp builds the command tree.
func NewApp() *cli.App {
	return &cli.App{
		Name:    "actionrunner",
		Usage:   "Run declarative UI action profiles on Android devices",
		Version: Version,
		Description: `actionrunner executes a table of UI actions (wait, click, type) against
an app through an Appium UiAutomator2 session. Each action reports a status;
a failed required action halts the run, optional ones are recorded and skipped.

Examples:
  actionrunner run --profile reddit
  actionrunner --device emulator-5554 run --profile ./my-profile.yaml
  actionrunner validate profiles/
  actionrunner history --limit 5`,
		Flags: GlobalFlags,
		Before: func(c *cli.Context) error {
			if c.Bool("no-ansi") {
				colorsEnabled = false
			}
			return nil
		},
		Commands: []*cli.Command{
			runCommand,
			devicesCommand,
			hierarchyCommand,
			profilesCommand,
			validateCommand,
			historyCommand,
		},
	}
}

// Execute runs the CLI.
func Execute() {
	if err := NewApp().Run(os.Args); err != nil {
		// cli.Exit errors have already been reported and exited.
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig reads the workspace config and applies global flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path := c.String("config"); path != "" {
		cfg, err = config.Load(path)
	} else {
		cfg, err = config.LoadFromDir(".")
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	err = cfg.Merge(config.Overrides{
		Device:      c.String("device"),
		ADBPath:     c.String("adb"),
		AppiumHost:  c.String("appium-host"),
		AppiumPorts: c.IntSlice("appium-port"),
		LogFile:     c.String("log-file"),
	})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// setupLogging opens the log file; the caller defers logger.Close.
func setupLogging(c *cli.Context, cfg *config.Config) error {
	if err := logger.Init(cfg.LogPath()); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	logger.SetVerbose(c.Bool("verbose"))
	logger.Info("actionrunner %s: %s", Version, strings.Join(os.Args[1:], " "))
	return nil
}

// buildProvider wires adb and Appium from cfg.
func buildProvider(cfg *config.Config) (*device.Provider, error) {
	adb, err := newADB(cfg.ADBPath)
	if err != nil {
		return nil, err
	}
	p := device.NewProvider(adb, device.ProviderConfig{
		Host:              cfg.Appium.Host,
		Ports:             cfg.Appium.Ports,
		SystemPort:        cfg.Appium.SystemPort,
		NewCommandTimeout: cfg.Appium.NewCommandTimeout,
		Capabilities:      cfg.Appium.Capabilities,
		SkipPreflight:     cfg.SkipPreflight,
	})
	if dialer != nil {
		p.WithDialer(dialer)
	}
	return p, nil
}

// parseEnvVars parses KEY=VALUE pairs; malformed entries are ignored.
func parseEnvVars(envs []string) map[string]string {
	result := make(map[string]string)
	for _, e := range envs {
		parts := strings.SplitN(e, "=", 2)
		if len(parts) == 2 {
			result[parts[0]] = parts[1]
		}
	}
	return result
}
