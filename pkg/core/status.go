package core

import (
	"encoding/json"
	"fmt"
)

// ActionStatus represents the outcome of a single action
type ActionStatus int

const (
	StatusSuccess   ActionStatus = iota // Element located and operation applied
	StatusNotFound                      // Elements located but none passed the filter/index
	StatusTimeout                       // Element never satisfied the wait condition in time
	StatusError                         // Backend failed while locating or acting
	StatusCancelled                     // Run was cancelled while this action was in flight
)

// String returns the string representation of ActionStatus
func (s ActionStatus) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusNotFound:
		return "not_found"
	case StatusTimeout:
		return "timeout"
	case StatusError:
		return "error"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// IsSuccess returns true if the action succeeded
func (s ActionStatus) IsSuccess() bool {
	return s == StatusSuccess
}

// HaltsRun returns true if this status halts the run when the action is required
func (s ActionStatus) HaltsRun() bool {
	switch s {
	case StatusNotFound, StatusTimeout, StatusError:
		return true
	default:
		return false
	}
}

// MarshalJSON encodes the status as its string form
func (s ActionStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a status from its string form
func (s *ActionStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	parsed, err := ParseActionStatus(str)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseActionStatus parses the string form produced by String
func ParseActionStatus(s string) (ActionStatus, error) {
	for st := StatusSuccess; st <= StatusCancelled; st++ {
		if st.String() == s {
			return st, nil
		}
	}
	return 0, fmt.Errorf("unknown action status %q", s)
}

// RunStatus is the overall outcome of a run
type RunStatus string

// RunStatus values
const (
	RunCompleted RunStatus = "completed" // Every action was attempted
	RunHalted    RunStatus = "halted"    // A required action failed
	RunCancelled RunStatus = "cancelled" // Aborted by the caller
)

// IsSuccess returns true if the run was not halted or cancelled
func (s RunStatus) IsSuccess() bool {
	return s == RunCompleted
}

// ErrorCategory classifies the type of error for better debugging and reporting
type ErrorCategory int

const (
	ErrCategoryNone         ErrorCategory = iota // No error
	ErrCategoryNotFound                          // Element not found or filtered out
	ErrCategoryTimeout                           // Wait condition timed out
	ErrCategoryOperation                         // Backend failed during find/click/type
	ErrCategoryConnection                        // Device/server connection lost or unusable session
	ErrCategoryPrecondition                      // App missing, no device, permissions
	ErrCategoryConfig                            // Invalid configuration or action table
	ErrCategoryCancelled                         // Aborted by the caller
)

// String returns the string representation of ErrorCategory
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryNotFound:
		return "not_found"
	case ErrCategoryTimeout:
		return "timeout"
	case ErrCategoryOperation:
		return "operation"
	case ErrCategoryConnection:
		return "connection"
	case ErrCategoryPrecondition:
		return "precondition"
	case ErrCategoryConfig:
		return "config"
	case ErrCategoryCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// CategoryFor maps an action status to its error category
func CategoryFor(s ActionStatus) ErrorCategory {
	switch s {
	case StatusNotFound:
		return ErrCategoryNotFound
	case StatusTimeout:
		return ErrCategoryTimeout
	case StatusError:
		return ErrCategoryOperation
	case StatusCancelled:
		return ErrCategoryCancelled
	default:
		return ErrCategoryNone
	}
}

// MarshalJSON encodes the category as its string form
func (c ErrorCategory) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes a category from its string form
func (c *ErrorCategory) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}
	for cat := ErrCategoryNone; cat <= ErrCategoryCancelled; cat++ {
		if cat.String() == str {
			*c = cat
			return nil
		}
	}
	return fmt.Errorf("unknown error category %q", str)
}
