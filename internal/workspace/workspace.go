// SPDX-License-Identifier: MPL-2.0

// Package workspace discovers the projects of a JavaScript monorepo and runs
// script inference across them concurrently.
package workspace

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/invowk/monorun/internal/manifest"
)

// ErrDuplicateProject is the sentinel wrapped by DuplicateProjectError.
var ErrDuplicateProject = errors.New("duplicate project id")

type (
	// Project is a directory holding a package.json.
	Project struct {
		// ID is the directory base name and prefixes every task id.
		ID string
		// Dir is the absolute project directory.
		Dir string
		// Rel is Dir relative to the workspace root, slash separated.
		Rel string
	}

	// DuplicateProjectError is returned when two matched directories share
	// a base name and would produce colliding task ids.
	DuplicateProjectError struct {
		ID   string
		Dirs []string
	}
)

func (e *DuplicateProjectError) Error() string {
	return fmt.Sprintf("project id %q is used by %s", e.ID, strings.Join(e.Dirs, " and "))
}

// Unwrap returns ErrDuplicateProject for errors.Is() compatibility.
func (e *DuplicateProjectError) Unwrap() error { return ErrDuplicateProject }

// Discover returns the projects under root matched by the doublestar
// directory patterns (for example "packages/*"), sorted by relative path.
// A pattern matches a project when the directory contains a package.json.
// Directories inside node_modules are never projects.
func Discover(root string, patterns []string) ([]Project, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}

	fsys := os.DirFS(absRoot)
	seen := make(map[string]bool)
	var rels []string
	for _, pattern := range patterns {
		matches, err := doublestar.Glob(fsys, path.Join(pattern, manifest.FileName), doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("match workspace pattern %q: %w", pattern, err)
		}
		for _, match := range matches {
			rel := path.Dir(match)
			if seen[rel] || slices.Contains(strings.Split(rel, "/"), "node_modules") {
				continue
			}
			seen[rel] = true
			rels = append(rels, rel)
		}
	}
	slices.Sort(rels)

	projects := make([]Project, 0, len(rels))
	owners := make(map[string]string, len(rels))
	for _, rel := range rels {
		dir := filepath.Join(absRoot, filepath.FromSlash(rel))
		id := filepath.Base(dir)
		if other, dup := owners[id]; dup {
			return nil, &DuplicateProjectError{ID: id, Dirs: []string{other, rel}}
		}
		owners[id] = rel
		projects = append(projects, Project{ID: id, Dir: dir, Rel: rel})
	}
	return projects, nil
}
