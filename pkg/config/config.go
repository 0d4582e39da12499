// Package config handles configuration for actionrunner.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the workspace configuration (actionrunner.yaml).
// Fields absent from the file keep their Default values.
type Config struct {
	// Device settings
	Device  string       `yaml:"device"`  // adb serial; empty picks the first ready device
	ADBPath string       `yaml:"adbPath"` // Defaults to adb on PATH
	Appium  AppiumConfig `yaml:"appium"`

	// Execution settings
	PollIntervalMs    int               `yaml:"pollInterval"`
	ContinueOnFailure bool              `yaml:"continueOnFailure"`
	SnapshotOnFailure bool              `yaml:"snapshotOnFailure"`
	SkipPreflight     bool              `yaml:"skipPreflight"`
	ExcludedUsernames []string          `yaml:"excludedUsernames"` // Exposed to filters as "excluded"
	Env               map[string]string `yaml:"env"`               // Variables for ${...} in input text

	// Output settings
	Output    string `yaml:"output"`    // Report directory; empty uses <home>/reports
	History   string `yaml:"history"`   // SQLite history path; empty uses <home>/history.db
	NoHistory bool   `yaml:"noHistory"` // Disable run history
	LogFile   string `yaml:"logFile"`   // Empty uses <home>/logs/actionrunner.log
}

// AppiumConfig describes where the automation server listens.
type AppiumConfig struct {
	Host              string                 `yaml:"host"`
	Ports             []int                  `yaml:"ports"` // Tried in order
	SystemPort        int                    `yaml:"systemPort"`
	NewCommandTimeout int                    `yaml:"newCommandTimeout"` // seconds
	Capabilities      map[string]interface{} `yaml:"capabilities"`      // Extra/override capabilities
}

// DefaultExcludedUsernames are accounts never picked as message recipients.
var DefaultExcludedUsernames = []string{
	"AltruisticDistance56",
	"AutoModerator",
	"Dependent-Taste-9645",
	"Misaboi",
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Appium: AppiumConfig{
			Host:              "localhost",
			Ports:             []int{4723, 4724, 4725, 4726},
			SystemPort:        8201,
			NewCommandTimeout: 6000,
		},
		PollIntervalMs:    500,
		ExcludedUsernames: append([]string(nil), DefaultExcludedUsernames...),
	}
}

// Load loads configuration from a file over the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided config file
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return cfg, nil
}

// LoadFromDir looks for actionrunner.yaml or actionrunner.yml in the directory.
func LoadFromDir(dir string) (*Config, error) {
	for _, name := range []string{"actionrunner.yaml", "actionrunner.yml"} {
		configPath := filepath.Join(dir, name)
		if _, err := os.Stat(configPath); err == nil {
			return Load(configPath)
		}
	}

	// No config file found, return defaults
	return Default(), nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.PollIntervalMs <= 0 {
		errs = append(errs, fmt.Errorf("pollInterval must be positive, got %d", c.PollIntervalMs))
	}
	if len(c.Appium.Ports) == 0 {
		errs = append(errs, errors.New("appium.ports must not be empty"))
	}
	for _, p := range c.Appium.Ports {
		if p <= 0 || p > 65535 {
			errs = append(errs, fmt.Errorf("appium.ports: invalid port %d", p))
		}
	}
	if c.Appium.SystemPort < 0 || c.Appium.SystemPort > 65535 {
		errs = append(errs, fmt.Errorf("appium.systemPort: invalid port %d", c.Appium.SystemPort))
	}
	return errors.Join(errs...)
}

// PollInterval returns the wait polling period.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMs) * time.Millisecond
}

// LogPath returns the configured log file or the default under home.
func (c *Config) LogPath() string {
	if c.LogFile != "" {
		return c.LogFile
	}
	return filepath.Join(GetLogsDir(), "actionrunner.log")
}

// ReportDir returns the configured report directory or the default under home.
func (c *Config) ReportDir() string {
	if c.Output != "" {
		return c.Output
	}
	return GetReportsDir()
}

// HistoryPath returns the history database path, or "" when history is disabled.
func (c *Config) HistoryPath() string {
	if c.NoHistory {
		return ""
	}
	if c.History != "" {
		return c.History
	}
	return GetHistoryPath()
}

// Overrides holds values given on the command line.
// Zero values leave the config unchanged; Env keys are merged.
type Overrides struct {
	Device      string
	ADBPath     string
	AppiumHost  string
	AppiumPorts []int
	LogFile     string

	PollIntervalMs    int
	ContinueOnFailure bool
	SnapshotOnFailure bool
	SkipPreflight     bool
	NoHistory         bool
	Output            string
	Env               map[string]string
}

// Merge applies o over c and validates the result.
func (c *Config) Merge(o Overrides) error {
	if o.Device != "" {
		c.Device = o.Device
	}
	if o.ADBPath != "" {
		c.ADBPath = o.ADBPath
	}
	if o.AppiumHost != "" {
		c.Appium.Host = o.AppiumHost
	}
	if len(o.AppiumPorts) > 0 {
		c.Appium.Ports = append([]int(nil), o.AppiumPorts...)
	}
	if o.LogFile != "" {
		c.LogFile = o.LogFile
	}
	if o.PollIntervalMs != 0 {
		c.PollIntervalMs = o.PollIntervalMs
	}
	c.ContinueOnFailure = c.ContinueOnFailure || o.ContinueOnFailure
	c.SnapshotOnFailure = c.SnapshotOnFailure || o.SnapshotOnFailure
	c.SkipPreflight = c.SkipPreflight || o.SkipPreflight
	c.NoHistory = c.NoHistory || o.NoHistory
	if o.Output != "" {
		c.Output = o.Output
	}
	if len(o.Env) > 0 {
		if c.Env == nil {
			c.Env = make(map[string]string, len(o.Env))
		}
		for k, v := range o.Env {
			c.Env[k] = v
		}
	}
	return c.Validate()
}
