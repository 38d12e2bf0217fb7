// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestActionableError_Error(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *ActionableError
		expected string
	}{
		{
			name:     "operation only",
			err:      &ActionableError{Operation: "convert scripts"},
			expected: "failed to convert scripts",
		},
		{
			name:     "operation with resource",
			err:      &ActionableError{Operation: "read package manifest", Resource: "./package.json"},
			expected: "failed to read package manifest: ./package.json",
		},
		{
			name:     "operation with cause",
			err:      &ActionableError{Operation: "load configuration", Cause: errors.New("syntax error at line 5")},
			expected: "failed to load configuration: syntax error at line 5",
		},
		{
			name: "full context",
			err: &ActionableError{
				Operation: "read package manifest",
				Resource:  "./package.json",
				Cause:     errors.New("file not found"),
			},
			expected: "failed to read package manifest: ./package.json: file not found",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.err.Error(); got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestActionableError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("underlying error")
	err := &ActionableError{Operation: "test", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}
	if (&ActionableError{Operation: "test"}).Unwrap() != nil {
		t.Error("Unwrap() should return nil when no cause")
	}
}

func TestActionableError_Format(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      *ActionableError
		verbose  bool
		contains []string
		excludes []string
	}{
		{
			name: "suggestions",
			err: &ActionableError{
				Operation:   "read package manifest",
				Resource:    "./package.json",
				Suggestions: []string{"Pass the project directory as an argument", "Check file permissions"},
			},
			contains: []string{
				"failed to read package manifest: ./package.json",
				"• Pass the project directory as an argument",
				"• Check file permissions",
			},
		},
		{
			name:     "no error chain in non-verbose",
			err:      &ActionableError{Operation: "load configuration", Cause: errors.New("syntax error")},
			contains: []string{"failed to load configuration: syntax error"},
			excludes: []string{"Error chain:"},
		},
		{
			name: "nested error chain verbose",
			err: &ActionableError{
				Operation: "convert scripts",
				Cause: &ActionableError{
					Operation: "read package manifest",
					Cause:     errors.New("file not found"),
				},
			},
			verbose: true,
			contains: []string{
				"Error chain:",
				"1. failed to read package manifest: file not found",
				"2. file not found",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := tt.err.Format(tt.verbose)
			for _, s := range tt.contains {
				if !strings.Contains(got, s) {
					t.Errorf("Format() missing %q\ngot:\n%s", s, got)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(got, s) {
					t.Errorf("Format() should not contain %q\ngot:\n%s", s, got)
				}
			}
		})
	}
}

func TestErrorContext_Build(t *testing.T) {
	t.Parallel()

	if NewErrorContext().WithResource("package.json").Build() != nil {
		t.Error("Build() without operation should return nil")
	}
	if NewErrorContext().BuildError() != nil {
		t.Error("BuildError() without operation should return nil")
	}

	err := NewErrorContext().
		WithOperation("load configuration").
		WithResource("config.cue").
		WithSuggestion("Check syntax").
		WithSuggestion("Run 'monorun config show'").
		WithSuggestion("Run 'monorun config init'").
		WithIssue(ConfigLoadFailedId).
		Wrap(errors.New("parse error")).
		Build()
	if err == nil {
		t.Fatal("Build() returned nil")
	}
	if err.Operation != "load configuration" || err.Resource != "config.cue" {
		t.Errorf("unexpected operation/resource: %q %q", err.Operation, err.Resource)
	}
	if len(err.Suggestions) != 3 {
		t.Errorf("Suggestions count = %d, want 3", len(err.Suggestions))
	}
	if err.Issue != ConfigLoadFailedId {
		t.Errorf("Issue = %d, want %d", err.Issue, ConfigLoadFailedId)
	}
}

func TestWrapWithContext(t *testing.T) {
	t.Parallel()

	cause := errors.New("permission denied")
	err := WrapWithContext(cause, "write project file", "monorun.yml")
	if err == nil || err.Operation != "write project file" || err.Resource != "monorun.yml" {
		t.Fatalf("WrapWithContext() = %#v", err)
	}
	if !errors.Is(err, cause) {
		t.Error("Cause should be the original error")
	}
	if WrapWithContext(nil, "test", "resource") != nil {
		t.Error("WrapWithContext(nil) should return nil")
	}
}

func TestIssueOf(t *testing.T) {
	t.Parallel()

	inner := NewErrorContext().WithOperation("detect outputs").WithIssue(OutputOutsideProjectId).BuildError()
	outer := NewErrorContext().WithOperation("convert scripts").Wrap(fmt.Errorf("web: %w", inner)).BuildError()

	if got := IssueOf(outer); got != OutputOutsideProjectId {
		t.Errorf("IssueOf() = %d, want %d", got, OutputOutsideProjectId)
	}
	if got := IssueOf(errors.New("plain")); got != 0 {
		t.Errorf("IssueOf(plain) = %d, want 0", got)
	}
	if got := IssueOf(nil); got != 0 {
		t.Errorf("IssueOf(nil) = %d, want 0", got)
	}
}
