// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// ManifestName is the file WriteManifest writes.
const ManifestName = "package.json"

// MustMkdirAll creates a directory along with any necessary parents.
// The test fails immediately if the operation fails.
func MustMkdirAll(t testing.TB, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("failed to create directory %s: %v", path, err)
	}
}

// MustWriteFile writes content to path, creating missing parent directories.
func MustWriteFile(t testing.TB, path, content string) {
	t.Helper()
	MustMkdirAll(t, filepath.Dir(path))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
}

// MustReadFile returns the content of path.
func MustReadFile(t testing.TB, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	return string(data)
}

// WriteManifest writes a package.json with content into dir and returns its
// path.
func WriteManifest(t testing.TB, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, ManifestName)
	MustWriteFile(t, path, content)
	return path
}

// WriteWorkspace writes one package.json per entry of projects, keyed by
// slash-separated directory relative to root.
func WriteWorkspace(t testing.TB, root string, projects map[string]string) {
	t.Helper()
	for rel, content := range projects {
		WriteManifest(t, filepath.Join(root, filepath.FromSlash(rel)), content)
	}
}
