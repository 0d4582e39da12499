package flow

import (
	"fmt"
	"time"
)

// Op is the operation an action performs on its located element.
type Op string

// Operation constants.
const (
	OpWaitForPresence  Op = "waitForPresence"
	OpWaitForClickable Op = "waitForClickable"
	OpClick            Op = "click"
	OpTypeText         Op = "typeText"
	OpWaitForAll       Op = "waitForAll"
)

// DefaultTimeoutMs is used when an action does not declare a timeout.
const DefaultTimeoutMs = 10000

// IsValid reports whether op is a known operation.
func (o Op) IsValid() bool {
	switch o {
	case OpWaitForPresence, OpWaitForClickable, OpClick, OpTypeText, OpWaitForAll:
		return true
	}
	return false
}

// NeedsActionable reports whether the element must be displayed and enabled
// before the operation is applied.
func (o Op) NeedsActionable() bool {
	switch o {
	case OpWaitForClickable, OpClick, OpTypeText:
		return true
	}
	return false
}

// Action is one declarative UI step: locate, optionally act, record.
type Action struct {
	Op      Op
	Label   string
	Locator Locator

	// Input is the text payload for typeText.
	Input string

	TimeoutMs int
	SettleMs  int // Pause after the action so the UI can stabilize
	Optional  bool
	Snapshot  bool // Capture the UI tree after a successful action

	// Filter is a predicate expression evaluated against each located
	// element's text; only passing elements are eligible.
	Filter string
	// Index selects among the eligible elements (0 = first).
	Index int
}

// Name returns the label, or a generated description when unlabeled.
func (a *Action) Name() string {
	if a.Label != "" {
		return a.Label
	}
	return a.Describe()
}

// Describe returns a human-readable description.
func (a *Action) Describe() string {
	desc := string(a.Op)
	if loc := a.Locator.Describe(); loc != "" {
		desc += " " + loc
	}
	if a.Op == OpTypeText && a.Input != "" {
		desc += fmt.Sprintf(" %q", a.Input)
	}
	return desc
}

// IsRequired reports whether a failure of this action halts the run.
func (a *Action) IsRequired() bool { return !a.Optional }

// Timeout returns the wait deadline for this action.
func (a *Action) Timeout() time.Duration {
	return time.Duration(a.TimeoutMs) * time.Millisecond
}

// Settle returns the declared pause after this action.
func (a *Action) Settle() time.Duration {
	return time.Duration(a.SettleMs) * time.Millisecond
}

// Validate checks the action's static constraints.
func (a *Action) Validate() error {
	if !a.Op.IsValid() {
		return fmt.Errorf("unknown operation %q", a.Op)
	}
	if a.Locator.IsEmpty() {
		return fmt.Errorf("%s: locator is required", a.Op)
	}
	for child := a.Locator.Child; child != nil; child = child.Child {
		if child.IsEmpty() {
			return fmt.Errorf("%s: child locator is empty", a.Op)
		}
	}
	if a.TimeoutMs <= 0 {
		return fmt.Errorf("%s: timeout must be positive, got %dms", a.Op, a.TimeoutMs)
	}
	if a.SettleMs < 0 {
		return fmt.Errorf("%s: settle must not be negative", a.Op)
	}
	if a.Index < 0 {
		return fmt.Errorf("%s: index must not be negative", a.Op)
	}
	if a.Op == OpTypeText && a.Input == "" {
		return fmt.Errorf("typeText: input is required")
	}
	return nil
}

// WaitForPresence builds a presence action with the default timeout.
func WaitForPresence(loc Locator) Action {
	return Action{Op: OpWaitForPresence, Locator: loc, TimeoutMs: DefaultTimeoutMs}
}

// Click builds a click action with the default timeout.
func Click(loc Locator) Action {
	return Action{Op: OpClick, Locator: loc, TimeoutMs: DefaultTimeoutMs}
}

// TypeText builds a text entry action with the default timeout.
func TypeText(loc Locator, input string) Action {
	return Action{Op: OpTypeText, Locator: loc, Input: input, TimeoutMs: DefaultTimeoutMs}
}

// WaitForAll builds an all-elements presence action with the default timeout.
func WaitForAll(loc Locator) Action {
	return Action{Op: OpWaitForAll, Locator: loc, TimeoutMs: DefaultTimeoutMs}
}
