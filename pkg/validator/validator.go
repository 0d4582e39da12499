// Package validator checks action profiles before execution.
package validator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/devicelab-dev/actionrunner/pkg/flow"
	"github.com/devicelab-dev/actionrunner/pkg/jsengine"
)

// ValidationError represents a validation error with context.
type ValidationError struct {
	File    string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

// Result contains the validation result.
type Result struct {
	// Files is the list of profile paths checked, sorted.
	Files []string
	// Errors contains all validation errors found.
	Errors []error
	// Warnings are problems that do not prevent a run.
	Warnings []string
}

// IsValid returns true if there are no validation errors.
func (r *Result) IsValid() bool {
	return len(r.Errors) == 0
}

// Validator validates profile files.
type Validator struct {
	engine *jsengine.Engine
}

// New creates a new Validator.
func New() *Validator {
	return &Validator{engine: jsengine.New()}
}

// Validate validates a profile file, a directory of profiles, or a built-in profile name.
func (v *Validator) Validate(path string) *Result {
	result := &Result{}

	info, err := os.Stat(path)
	if err != nil {
		// Not a file: try the built-in profiles.
		f, berr := flow.Builtin(path)
		if berr != nil {
			result.Errors = append(result.Errors, &ValidationError{
				File:    path,
				Message: fmt.Sprintf("cannot access: %v", err),
			})
			return result
		}
		result.Files = append(result.Files, f.SourcePath)
		v.check(f, result)
		return result
	}

	var files []string
	if info.IsDir() {
		files, err = collectProfileFiles(path)
		if err != nil {
			result.Errors = append(result.Errors, &ValidationError{
				File:    path,
				Message: fmt.Sprintf("failed to scan directory: %v", err),
			})
			return result
		}
	} else {
		files = []string{path}
	}

	for _, file := range files {
		result.Files = append(result.Files, file)
		f, err := flow.ParseFile(file)
		if err != nil {
			result.Errors = append(result.Errors, &ValidationError{
				File:    file,
				Message: fmt.Sprintf("parse error: %v", err),
			})
			continue
		}
		v.check(f, result)
	}

	return result
}

// ValidateFlow checks an already parsed profile.
func (v *Validator) ValidateFlow(f *flow.Flow) *Result {
	result := &Result{Files: []string{f.SourcePath}}
	v.check(f, result)
	return result
}

func (v *Validator) check(f *flow.Flow, result *Result) {
	file := f.SourcePath

	if err := f.Validate(); err != nil {
		// errors.Join output is one line per action.
		for _, line := range strings.Split(err.Error(), "\n") {
			result.Errors = append(result.Errors, &ValidationError{File: file, Message: line})
		}
	}

	allOptional := len(f.Actions) > 0
	for i := range f.Actions {
		a := &f.Actions[i]
		if a.Filter != "" {
			if err := v.engine.Check(a.Filter); err != nil {
				result.Errors = append(result.Errors, &ValidationError{
					File:    file,
					Message: fmt.Sprintf("action %d: %v", i+1, err),
				})
			}
		}
		if a.Op == flow.OpWaitForAll && a.Index != 0 {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s: action %d: index is ignored by waitForAll", file, i+1))
		}
		if a.IsRequired() {
			allOptional = false
		}
	}

	if f.Config.AppID == "" {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%s: no appId; preflight checks are skipped", file))
	}
	if allOptional {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("%s: every action is optional; the run can never halt", file))
	}
}

// collectProfileFiles finds all .yaml/.yml files in a directory tree, sorted.
func collectProfileFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		if ext == ".yaml" || ext == ".yml" {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.New("no .yaml/.yml profiles found")
	}

	sort.Strings(files)
	return files, nil
}
