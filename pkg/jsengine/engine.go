// Package jsengine provides JavaScript expression evaluation for action profiles:
// element text predicates and ${...} variable expansion.
package jsengine

import (
	"fmt"
	"strings"
	"sync"

	"github.com/dop251/goja"
)

// Engine wraps a goja runtime. All evaluation is serialized.
type Engine struct {
	runtime   *goja.Runtime
	variables map[string]interface{}
	programs  map[string]*goja.Program
	mu        sync.Mutex
}

// New creates a new JS engine instance
func New() *Engine {
	e := &Engine{
		runtime:   goja.New(),
		variables: make(map[string]interface{}),
		programs:  make(map[string]*goja.Program),
	}
	e.runtime.Set("text", "")
	return e
}

// SetVariable sets a variable accessible in JS as a global
func (e *Engine) SetVariable(name string, value interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.variables[name] = value
	e.runtime.Set(name, value)
}

// SetVariables sets multiple variables
func (e *Engine) SetVariables(vars map[string]string) {
	for k, v := range vars {
		e.SetVariable(k, v)
	}
}

// SetExcluded exposes the excluded text set to expressions as the array "excluded".
func (e *Engine) SetExcluded(values []string) {
	list := make([]interface{}, len(values))
	for i, v := range values {
		list[i] = v
	}
	e.SetVariable("excluded", list)
}

// Eval evaluates a JavaScript expression and returns the result
func (e *Engine) Eval(script string) (interface{}, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	result, err := e.runtime.RunString(script)
	if err != nil {
		return nil, fmt.Errorf("JS eval error: %w", err)
	}

	return result.Export(), nil
}

// EvalString evaluates a JavaScript expression and returns string result
func (e *Engine) EvalString(script string) (string, error) {
	result, err := e.Eval(script)
	if err != nil {
		return "", err
	}

	if result == nil {
		return "", nil
	}

	return fmt.Sprintf("%v", result), nil
}

// Check compiles expr without running it.
func (e *Engine) Check(expr string) error {
	_, err := e.program(expr)
	return err
}

// Match evaluates the predicate expr with the global "text" bound to text.
// The result is converted with JS truthiness.
func (e *Engine) Match(expr, text string) (bool, error) {
	prog, err := e.program(expr)
	if err != nil {
		return false, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.runtime.Set("text", text)
	result, err := e.runtime.RunProgram(prog)
	if err != nil {
		return false, fmt.Errorf("filter %q: %w", expr, err)
	}
	return result.ToBoolean(), nil
}

// program returns the cached compiled form of expr.
func (e *Engine) program(expr string) (*goja.Program, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if prog, ok := e.programs[expr]; ok {
		return prog, nil
	}
	prog, err := goja.Compile("filter", expr, false)
	if err != nil {
		return nil, fmt.Errorf("invalid filter %q: %w", expr, err)
	}
	e.programs[expr] = prog
	return prog, nil
}

// ExpandVariables expands ${...} expressions in a string using JS evaluation.
// Expressions that fail to evaluate are left as-is.
func (e *Engine) ExpandVariables(text string) string {
	result := text
	start := 0

	for {
		// Find ${
		idx := strings.Index(result[start:], "${")
		if idx == -1 {
			break
		}
		idx += start

		// Find matching }
		depth := 1
		end := idx + 2
		for end < len(result) && depth > 0 {
			if result[end] == '{' {
				depth++
			} else if result[end] == '}' {
				depth--
			}
			end++
		}

		if depth != 0 {
			start = idx + 2
			continue
		}

		expr := result[idx+2 : end-1]
		value, err := e.EvalString(expr)
		if err != nil {
			start = end
			continue
		}

		result = result[:idx] + value + result[end:]
		start = idx + len(value)
	}

	return result
}
