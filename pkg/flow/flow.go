// Package flow handles parsing and representation of action profiles.
//
// A profile is a YAML file with an optional config document followed by
// the action table:
//
//	appId: com.twitter.android
//	appActivity: .StartActivity
//	---
//	- click:
//	    id: com.twitter.android:id/inline_like
//	    settle: 2000
package flow

import (
	"errors"
	"fmt"
	"time"
)

// Flow represents a parsed action profile.
type Flow struct {
	SourcePath string   // Path to the source file (or builtin:<name>)
	Config     Config   // Profile configuration (appId, permissions, etc.)
	Actions    []Action // Actions to execute, in order
}

// Config represents profile-level configuration.
type Config struct {
	Name           string            `yaml:"name"`
	AppID          string            `yaml:"appId"`       // Android package
	AppActivity    string            `yaml:"appActivity"` // Launch activity
	Permissions    []string          `yaml:"permissions"` // Runtime permissions granted during preflight
	LaunchSettleMs int               `yaml:"launchSettle"` // Pause after the session opens
	Description    string            `yaml:"description"`
	Env            map[string]string `yaml:"env"` // Variables for ${...} in input text
}

// Validate checks the whole table: non-empty, every action valid.
func (f *Flow) Validate() error {
	if len(f.Actions) == 0 {
		return errors.New("profile has no actions")
	}
	var errs []error
	for i := range f.Actions {
		if err := f.Actions[i].Validate(); err != nil {
			errs = append(errs, fmt.Errorf("action %d: %w", i+1, err))
		}
	}
	return errors.Join(errs...)
}

// LaunchSettle returns the pause applied before the first action.
func (f *Flow) LaunchSettle() time.Duration {
	return time.Duration(f.Config.LaunchSettleMs) * time.Millisecond
}

// Name returns the configured name, falling back to the source path.
func (f *Flow) Name() string {
	if f.Config.Name != "" {
		return f.Config.Name
	}
	return f.SourcePath
}
