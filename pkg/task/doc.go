// SPDX-License-Identifier: MPL-2.0

// Package task defines the normalized task model produced by script inference:
// tasks with commands, environment, outputs and same-project dependency
// targets, the insertion-ordered Collection that holds them, and the
// ScriptMap they are inferred from.
package task
