// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/invowk/monorun/internal/projectfile"
	"github.com/invowk/monorun/internal/scripts"
)

const (
	// LogLevelDebug logs resolver decisions and skipped scripts.
	LogLevelDebug LogLevel = "debug"
	// LogLevelInfo logs one line per project and written file.
	LogLevelInfo LogLevel = "info"
	// LogLevelWarn logs only problems that did not stop the run.
	LogLevelWarn LogLevel = "warn"
	// LogLevelError logs failures only.
	LogLevelError LogLevel = "error"

	// MaxConcurrency bounds workspace.concurrency.
	MaxConcurrency = 64
)

var (
	// ErrInvalidLogLevel is returned when a LogLevel value is not recognized.
	ErrInvalidLogLevel = errors.New("invalid log level")
	// ErrInvalidDebounce is returned when a Debounce value is not a positive duration.
	ErrInvalidDebounce = errors.New("invalid debounce duration")
	// ErrInvalidConcurrency is returned when a Concurrency value is out of range.
	ErrInvalidConcurrency = errors.New("invalid concurrency")
	// ErrInvalidBinaryName is returned when a BinaryName is empty or contains whitespace.
	ErrInvalidBinaryName = errors.New("invalid binary name")
	// ErrInvalidProjectFile is returned when a ProjectFile name is unusable.
	ErrInvalidProjectFile = errors.New("invalid project file name")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// LogLevel is the minimum level written to stderr.
	LogLevel string

	// InvalidLogLevelError is returned when a LogLevel value is not recognized.
	// It wraps ErrInvalidLogLevel for errors.Is() compatibility.
	InvalidLogLevelError struct {
		Value LogLevel
	}

	// Debounce is a Go duration string such as "500ms".
	Debounce string

	// InvalidDebounceError is returned when a Debounce value does not parse
	// as a positive duration.
	InvalidDebounceError struct {
		Value Debounce
	}

	// Concurrency is the number of projects inferred at the same time.
	Concurrency int

	// InvalidConcurrencyError is returned when a Concurrency value is outside
	// 1..MaxConcurrency.
	InvalidConcurrencyError struct {
		Value Concurrency
	}

	// BinaryName is the orchestrator executable written into generated
	// commands, for example "monorun run web:build".
	BinaryName string

	// InvalidBinaryNameError is returned when a BinaryName is empty or
	// contains whitespace.
	InvalidBinaryNameError struct {
		Value BinaryName
	}

	// ProjectFile is the file name, relative to a project, that converted
	// tasks are written to.
	ProjectFile string

	// InvalidProjectFileError is returned when a ProjectFile is empty,
	// absolute or escapes the project directory.
	InvalidProjectFileError struct {
		Value ProjectFile
	}

	// InvalidConfigError is returned when a Config has invalid fields.
	// It wraps ErrInvalidConfig for errors.Is() compatibility and collects
	// field-level validation errors from all sections.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config holds the application configuration.
	Config struct {
		// Binary is the orchestrator binary used in rewritten commands.
		Binary BinaryName `json:"binary" mapstructure:"binary"`
		// Infer configures single-project inference.
		Infer InferConfig `json:"infer" mapstructure:"infer"`
		// Workspace configures project discovery.
		Workspace WorkspaceConfig `json:"workspace" mapstructure:"workspace"`
		// Watch configures "workspace --watch".
		Watch WatchConfig `json:"watch" mapstructure:"watch"`
		// Log configures stderr logging.
		Log LogConfig `json:"log" mapstructure:"log"`
	}

	// InferConfig selects how scripts become tasks and where they are written.
	InferConfig struct {
		Mode        scripts.Mode       `json:"mode" mapstructure:"mode"`
		Format      projectfile.Format `json:"format" mapstructure:"format"`
		ProjectFile ProjectFile        `json:"project_file" mapstructure:"project_file"`
	}

	// WorkspaceConfig configures project discovery under a workspace root.
	WorkspaceConfig struct {
		// Patterns are doublestar globs matched against directories
		// relative to the root.
		Patterns    []string    `json:"patterns" mapstructure:"patterns"`
		Concurrency Concurrency `json:"concurrency" mapstructure:"concurrency"`
	}

	// WatchConfig configures manifest watching.
	WatchConfig struct {
		Debounce Debounce `json:"debounce" mapstructure:"debounce"`
		// Ignore adds glob patterns to the watcher's default ignores.
		Ignore []string `json:"ignore" mapstructure:"ignore"`
	}

	// LogConfig configures logging.
	LogConfig struct {
		Level LogLevel `json:"level" mapstructure:"level"`
	}
)

// String returns the string representation of the LogLevel.
func (l LogLevel) String() string { return string(l) }

// IsValid returns whether the LogLevel is one of the defined levels.
func (l LogLevel) IsValid() (bool, []error) {
	switch l {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return true, nil
	default:
		return false, []error{&InvalidLogLevelError{Value: l}}
	}
}

// Error implements the error interface.
func (e *InvalidLogLevelError) Error() string {
	return fmt.Sprintf("invalid log level %q (valid: debug, info, warn, error)", e.Value)
}

// Unwrap returns ErrInvalidLogLevel for errors.Is() compatibility.
func (e *InvalidLogLevelError) Unwrap() error { return ErrInvalidLogLevel }

// String returns the string representation of the Debounce.
func (d Debounce) String() string { return string(d) }

// Duration parses the debounce. Invalid values yield zero.
func (d Debounce) Duration() time.Duration {
	dur, err := time.ParseDuration(string(d))
	if err != nil {
		return 0
	}
	return dur
}

// IsValid returns whether the Debounce parses as a positive duration.
func (d Debounce) IsValid() (bool, []error) {
	if d.Duration() <= 0 {
		return false, []error{&InvalidDebounceError{Value: d}}
	}
	return true, nil
}

// Error implements the error interface.
func (e *InvalidDebounceError) Error() string {
	return fmt.Sprintf("invalid debounce %q (want a positive duration such as \"500ms\")", e.Value)
}

// Unwrap returns ErrInvalidDebounce for errors.Is() compatibility.
func (e *InvalidDebounceError) Unwrap() error { return ErrInvalidDebounce }

// IsValid returns whether the Concurrency is within 1..MaxConcurrency.
func (c Concurrency) IsValid() (bool, []error) {
	if c < 1 || c > MaxConcurrency {
		return false, []error{&InvalidConcurrencyError{Value: c}}
	}
	return true, nil
}

// Error implements the error interface.
func (e *InvalidConcurrencyError) Error() string {
	return fmt.Sprintf("invalid concurrency %d (must be between 1 and %d)", e.Value, MaxConcurrency)
}

// Unwrap returns ErrInvalidConcurrency for errors.Is() compatibility.
func (e *InvalidConcurrencyError) Unwrap() error { return ErrInvalidConcurrency }

// String returns the string representation of the BinaryName.
func (b BinaryName) String() string { return string(b) }

// IsValid returns whether the BinaryName is non-empty and free of whitespace.
func (b BinaryName) IsValid() (bool, []error) {
	if b == "" || strings.ContainsFunc(string(b), isSpace) {
		return false, []error{&InvalidBinaryNameError{Value: b}}
	}
	return true, nil
}

// Error implements the error interface.
func (e *InvalidBinaryNameError) Error() string {
	return fmt.Sprintf("invalid binary name %q (must be non-empty without whitespace)", e.Value)
}

// Unwrap returns ErrInvalidBinaryName for errors.Is() compatibility.
func (e *InvalidBinaryNameError) Unwrap() error { return ErrInvalidBinaryName }

// String returns the string representation of the ProjectFile.
func (p ProjectFile) String() string { return string(p) }

// IsValid returns whether the ProjectFile is a relative path that stays
// inside the project directory.
func (p ProjectFile) IsValid() (bool, []error) {
	s := string(p)
	if strings.TrimSpace(s) == "" || strings.HasPrefix(s, "/") || strings.HasPrefix(s, "\\") ||
		s == ".." || strings.HasPrefix(s, "../") || strings.Contains(s, "/../") {
		return false, []error{&InvalidProjectFileError{Value: p}}
	}
	return true, nil
}

// Error implements the error interface.
func (e *InvalidProjectFileError) Error() string {
	return fmt.Sprintf("invalid project file %q (must be a relative path inside the project)", e.Value)
}

// Unwrap returns ErrInvalidProjectFile for errors.Is() compatibility.
func (e *InvalidProjectFileError) Unwrap() error { return ErrInvalidProjectFile }

// IsValid returns whether every field of the Config is valid.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Binary.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Infer.Mode.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Infer.Format.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Infer.ProjectFile.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Workspace.Concurrency.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Watch.Debounce.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.Log.Level.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// Error implements the error interface.
func (e *InvalidConfigError) Error() string {
	if len(e.FieldErrors) == 1 {
		return "invalid config: " + e.FieldErrors[0].Error()
	}
	msgs := make([]string, len(e.FieldErrors))
	for i, err := range e.FieldErrors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("invalid config: %d field errors: %s", len(e.FieldErrors), strings.Join(msgs, "; "))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// ScriptOptions returns the scripts options derived from the config.
func (c *Config) ScriptOptions() scripts.Options {
	return scripts.Options{Binary: string(c.Binary)}
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Binary: "monorun",
		Infer: InferConfig{
			Mode:        scripts.ModeConvert,
			Format:      projectfile.FormatYAML,
			ProjectFile: "monorun.yml",
		},
		Workspace: WorkspaceConfig{
			Patterns:    []string{"packages/*", "apps/*"},
			Concurrency: 4,
		},
		Watch: WatchConfig{
			Debounce: "500ms",
			Ignore:   []string{},
		},
		Log: LogConfig{
			Level: LogLevelInfo,
		},
	}
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
