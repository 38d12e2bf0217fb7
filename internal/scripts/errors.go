// SPDX-License-Identifier: MPL-2.0

package scripts

import (
	"errors"
	"fmt"
)

var (
	// ErrNoParentOutput is the sentinel wrapped by NoParentOutputError.
	ErrNoParentOutput = errors.New("output path escapes the project root")
	// ErrNoAbsoluteOutput is the sentinel wrapped by NoAbsoluteOutputError.
	ErrNoAbsoluteOutput = errors.New("output path is absolute")
	// ErrEmptyCommand is the sentinel wrapped by EmptyCommandError.
	ErrEmptyCommand = errors.New("script has no command")
	// ErrUnsupportedSyntax is the sentinel wrapped by UnsupportedSyntaxError.
	ErrUnsupportedSyntax = errors.New("unsupported script syntax")
	// ErrUnresolvedTarget is the sentinel wrapped by UnresolvedTargetError.
	ErrUnresolvedTarget = errors.New("unresolved script reference")
)

type (
	// NoParentOutputError is returned when an output flag points outside the
	// project with a "../" path. It aborts the whole inference call.
	NoParentOutputError struct {
		Path   string
		TaskID string
	}

	// NoAbsoluteOutputError is returned when an output flag points at an
	// absolute path. It aborts the whole inference call.
	NoAbsoluteOutputError struct {
		Path   string
		TaskID string
	}

	// EmptyCommandError is returned when a script, or one step of a chain,
	// contains only environment assignments.
	EmptyCommandError struct {
		Script string
		TaskID string
	}

	// UnsupportedSyntaxError describes shell syntax the resolver refuses to
	// model. Scripts rejected this way stay in the script map.
	UnsupportedSyntaxError struct {
		Script string
		Reason string
	}

	// UnresolvedTargetError describes a "run <target>" step whose target is
	// missing, unconvertible, or a lifecycle script.
	UnresolvedTargetError struct {
		Script string
		Target string
		Reason string
	}
)

func (e *NoParentOutputError) Error() string {
	return fmt.Sprintf("task %s: output %q must not reference a parent directory", e.TaskID, e.Path)
}

// Unwrap returns ErrNoParentOutput for errors.Is() compatibility.
func (e *NoParentOutputError) Unwrap() error { return ErrNoParentOutput }

func (e *NoAbsoluteOutputError) Error() string {
	return fmt.Sprintf("task %s: output %q must be relative to the project root", e.TaskID, e.Path)
}

// Unwrap returns ErrNoAbsoluteOutput for errors.Is() compatibility.
func (e *NoAbsoluteOutputError) Unwrap() error { return ErrNoAbsoluteOutput }

func (e *EmptyCommandError) Error() string {
	return fmt.Sprintf("task %s: script %q has no command after its environment variables", e.TaskID, e.Script)
}

// Unwrap returns ErrEmptyCommand for errors.Is() compatibility.
func (e *EmptyCommandError) Unwrap() error { return ErrEmptyCommand }

func (e *UnsupportedSyntaxError) Error() string {
	return fmt.Sprintf("script %q: %s", e.Script, e.Reason)
}

// Unwrap returns ErrUnsupportedSyntax for errors.Is() compatibility.
func (e *UnsupportedSyntaxError) Unwrap() error { return ErrUnsupportedSyntax }

func (e *UnresolvedTargetError) Error() string {
	return fmt.Sprintf("script %q: cannot resolve %q: %s", e.Script, e.Target, e.Reason)
}

// Unwrap returns ErrUnresolvedTarget for errors.Is() compatibility.
func (e *UnresolvedTargetError) Unwrap() error { return ErrUnresolvedTarget }
