// SPDX-License-Identifier: MPL-2.0

// Package scripts infers orchestrator tasks from package.json scripts.
//
// Two modes are provided. InferTasksFromScripts wraps every script in a task
// that runs it through the package manager. CreateTasksFromScripts converts
// scripts into native tasks: environment prefixes become task env, "&&"
// chains become linked tasks, "npm run <script>" indirection is resolved to
// the referenced task and pre/post hooks become dependencies. Scripts that
// use shell syntax beyond simple "&&" chains are left in the manifest.
//
// Both modes detect build outputs from command flags and decide whether a
// task may run unattended in CI.
package scripts
