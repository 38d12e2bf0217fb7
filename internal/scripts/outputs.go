// SPDX-License-Identifier: MPL-2.0

package scripts

import (
	"slices"
	"strings"
)

// outputFlags lists the flags whose value names a build artifact.
var outputFlags = []string{
	"-o",
	"--out", "--outDir", "--out-dir", "--outdir",
	"--outFile", "--out-file", "--outfile",
	"--output", "--outputDir", "--output-dir",
	"--outputFile", "--output-file",
	"--dist", "--distDir", "--dist-dir", "--distdir",
	"--distFile", "--dist-file", "--distfile",
}

// OutputFlags returns a copy of the recognized output flags.
func OutputFlags() []string {
	return slices.Clone(outputFlags)
}

// DetectOutputs scans args for output flags and returns the normalized paths
// they name, deduplicated in first-seen order. Both "--flag value" and
// "--flag=value" forms are recognized. A flag without a value is ignored.
//
// Paths are made project relative by dropping a leading "./". A path that
// climbs out of the project fails with NoParentOutputError and an absolute
// path fails with NoAbsoluteOutputError; taskID is recorded on both.
func DetectOutputs(taskID string, args []string) ([]string, error) {
	var outputs []string
	for i := 0; i < len(args); i++ {
		value, ok := outputValue(args, i)
		if !ok {
			continue
		}
		path, err := normalizeOutput(taskID, value)
		if err != nil {
			return nil, err
		}
		if !slices.Contains(outputs, path) {
			outputs = append(outputs, path)
		}
	}
	return outputs, nil
}

func outputValue(args []string, i int) (string, bool) {
	arg := args[i]
	if flag, value, found := strings.Cut(arg, "="); found && strings.HasPrefix(flag, "--") {
		if slices.Contains(outputFlags, flag) && value != "" {
			return value, true
		}
		return "", false
	}
	if !slices.Contains(outputFlags, arg) || i+1 >= len(args) {
		return "", false
	}
	return args[i+1], true
}

func normalizeOutput(taskID, path string) (string, error) {
	if isAbsolutePath(path) {
		return "", &NoAbsoluteOutputError{Path: path, TaskID: taskID}
	}

	normalized := path
	for strings.HasPrefix(normalized, "./") || strings.HasPrefix(normalized, `.\`) {
		normalized = normalized[2:]
	}

	if normalized == ".." || strings.HasPrefix(normalized, "../") || strings.HasPrefix(normalized, `..\`) {
		return "", &NoParentOutputError{Path: path, TaskID: taskID}
	}
	if normalized == "" {
		return ".", nil
	}
	return normalized, nil
}

// isAbsolutePath recognizes POSIX roots, Windows roots and drive-letter paths
// regardless of the host OS, since manifests are shared across platforms.
func isAbsolutePath(path string) bool {
	if strings.HasPrefix(path, "/") || strings.HasPrefix(path, `\`) {
		return true
	}
	if len(path) >= 3 && path[1] == ':' && (path[2] == '\\' || path[2] == '/') {
		c := path[0]
		return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
	}
	return false
}
