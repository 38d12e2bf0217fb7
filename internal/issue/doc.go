// SPDX-License-Identifier: MPL-2.0

// Package issue provides actionable error handling with user-friendly messages.
//
// ActionableError carries the failed operation, the resource involved and
// remediation suggestions. The issue catalog holds Markdown guidance for the
// failures users hit most when converting scripts (missing manifests, outputs
// outside the project, empty commands, unsupported syntax), rendered with
// glamour by the CLI.
package issue
