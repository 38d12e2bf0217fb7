// SPDX-License-Identifier: MPL-2.0

// Package cmd contains the Cobra command tree of the monorun CLI.
//
// The commands infer tasks from package.json scripts (infer, convert),
// convert a whole workspace and optionally keep watching it (workspace),
// explain CI eligibility (ci), manage configuration (config) and fetch
// Node.js archives (toolchain).
package cmd
