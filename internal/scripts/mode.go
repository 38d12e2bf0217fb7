// SPDX-License-Identifier: MPL-2.0

package scripts

import (
	"errors"
	"fmt"
)

const (
	// ModeConvert turns scripts into native tasks (CreateTasksFromScripts).
	ModeConvert Mode = "convert"
	// ModeWrap runs every script through the package manager
	// (InferTasksFromScripts).
	ModeWrap Mode = "wrap"
)

// ErrInvalidMode is the sentinel wrapped by InvalidModeError.
var ErrInvalidMode = errors.New("invalid inference mode")

type (
	// Mode selects how scripts become tasks.
	Mode string

	// InvalidModeError is returned when a Mode value is not recognized.
	InvalidModeError struct {
		Value Mode
	}
)

func (e *InvalidModeError) Error() string {
	return fmt.Sprintf("invalid inference mode %q (valid: convert, wrap)", e.Value)
}

// Unwrap returns ErrInvalidMode for errors.Is() compatibility.
func (e *InvalidModeError) Unwrap() error { return ErrInvalidMode }

// String returns the string representation of the Mode.
func (m Mode) String() string { return string(m) }

// IsValid returns whether the Mode is one of the defined modes,
// and a list of validation errors if it is not.
func (m Mode) IsValid() (bool, []error) {
	switch m {
	case ModeConvert, ModeWrap:
		return true, nil
	default:
		return false, []error{&InvalidModeError{Value: m}}
	}
}
