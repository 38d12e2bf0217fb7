// SPDX-License-Identifier: MPL-2.0

// Package benchmark provides benchmarks for PGO profile generation.
// They cover the hot paths of a workspace run:
//   - package.json parsing
//   - script tokenizing, CI detection and conversion
//   - project file encoding
//   - workspace discovery and concurrent inference
//
// To generate a profile, run:
//
//	go test -run '^$' -bench . -cpuprofile default.pgo ./internal/benchmark
package benchmark
