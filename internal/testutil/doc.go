// SPDX-License-Identifier: MPL-2.0

// Package testutil provides fixture helpers for tests that build project and
// workspace trees on disk. Helpers fail the test immediately on I/O errors.
package testutil
