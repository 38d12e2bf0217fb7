// SPDX-License-Identifier: MPL-2.0

package task

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

const (
	// PlatformSystem runs the command directly with the host shell utilities.
	PlatformSystem Platform = "system"
	// PlatformNode runs the command through the project's Node.js toolchain.
	PlatformNode Platform = "node"

	// SelfScope is the target scope that refers to the owning project.
	SelfScope = "~"
)

var (
	// ErrInvalidPlatform is returned when a Platform value is not recognized.
	ErrInvalidPlatform = errors.New("invalid platform")
	// ErrInvalidTarget is returned when a Target is not of the form <scope>:<task>.
	ErrInvalidTarget = errors.New("invalid target")
)

type (
	// Platform selects the toolchain a task's command runs under.
	Platform string

	// InvalidPlatformError is returned when a Platform value is not recognized.
	// It wraps ErrInvalidPlatform for errors.Is() compatibility.
	InvalidPlatformError struct {
		Value Platform
	}

	// Target references a task as <scope>:<task>, where scope is a project id
	// or SelfScope for the owning project.
	Target string

	// InvalidTargetError is returned when a Target cannot be split into scope and task.
	InvalidTargetError struct {
		Value Target
	}

	// Options holds scheduling flags for a task.
	Options struct {
		// RunInCI reports whether the task is safe to run unattended in CI.
		RunInCI bool `json:"runInCI" yaml:"runInCI" toml:"runInCI"`
	}

	// Task is a normalized, graph-ready unit of work inferred from a script.
	Task struct {
		// ID is the fully qualified id, <project>:<name>.
		ID       string
		Command  string
		Args     []string
		Env      map[string]string
		Outputs  []string
		Deps     []Target
		Platform Platform
		Options  Options
	}
)

// New creates a task with the given id and default options.
func New(id string) *Task {
	return &Task{
		ID:       id,
		Env:      make(map[string]string),
		Platform: PlatformNode,
		Options:  Options{RunInCI: true},
	}
}

// ID joins a project id and a task name into a fully qualified task id.
func ID(project, name string) string {
	return project + ":" + name
}

// SelfTarget returns a target referencing name in the owning project.
func SelfTarget(name string) Target {
	return Target(SelfScope + ":" + name)
}

// AddDep appends a dependency unless it is already present.
func (t *Task) AddDep(dep Target) {
	if slices.Contains(t.Deps, dep) {
		return
	}
	t.Deps = append(t.Deps, dep)
}

// Name returns the local part of the task id.
func (t *Task) Name() string {
	_, name, found := strings.Cut(t.ID, ":")
	if !found {
		return t.ID
	}
	return name
}

// String returns the string representation of the Platform.
func (p Platform) String() string { return string(p) }

// IsValid returns whether the Platform is one of the defined platforms,
// and a list of validation errors if it is not.
func (p Platform) IsValid() (bool, []error) {
	switch p {
	case PlatformSystem, PlatformNode:
		return true, nil
	default:
		return false, []error{&InvalidPlatformError{Value: p}}
	}
}

// Error implements the error interface for InvalidPlatformError.
func (e *InvalidPlatformError) Error() string {
	return fmt.Sprintf("invalid platform %q (valid: system, node)", e.Value)
}

// Unwrap returns ErrInvalidPlatform for errors.Is() compatibility.
func (e *InvalidPlatformError) Unwrap() error { return ErrInvalidPlatform }

// String returns the string representation of the Target.
func (t Target) String() string { return string(t) }

// Split returns the scope and task name of the target.
func (t Target) Split() (scope, name string, err error) {
	scope, name, found := strings.Cut(string(t), ":")
	if !found || scope == "" || name == "" {
		return "", "", &InvalidTargetError{Value: t}
	}
	return scope, name, nil
}

// IsSelf reports whether the target refers to the owning project.
func (t Target) IsSelf() bool {
	return strings.HasPrefix(string(t), SelfScope+":")
}

// Error implements the error interface for InvalidTargetError.
func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("invalid target %q (expected <scope>:<task>)", e.Value)
}

// Unwrap returns ErrInvalidTarget for errors.Is() compatibility.
func (e *InvalidTargetError) Unwrap() error { return ErrInvalidTarget }
