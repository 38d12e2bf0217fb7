// SPDX-License-Identifier: MPL-2.0

package scripts

import (
	"testing"
)

func TestTaskName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		script string
		want   string
	}{
		{"build", "build"},
		{"foo:bar", "foo-bar"},
		{"foo-bar", "foo-bar"},
		{"build:types:esm", "build-types-esm"},
		{"Build_All", "Build_All"},
		{"docs/site.build", "docs/site.build"},
		{"test watch", "test-watch"},
		{"@scope/pkg", "-scope/pkg"},
		{"lint!", "lint-"},
	}

	for _, tt := range tests {
		t.Run(tt.script, func(t *testing.T) {
			t.Parallel()
			if got := TaskName(tt.script); got != tt.want {
				t.Errorf("TaskName(%q) = %q, want %q", tt.script, got, tt.want)
			}
		})
	}
}

func TestIsLifecycle(t *testing.T) {
	t.Parallel()

	for _, name := range LifecycleScripts() {
		if !IsLifecycle(name) {
			t.Errorf("IsLifecycle(%q) = false", name)
		}
	}
	for _, name := range []string{"build", "test", "pretest", "postbuild", "release"} {
		if IsLifecycle(name) {
			t.Errorf("IsLifecycle(%q) = true", name)
		}
	}
}

func TestHookBase(t *testing.T) {
	t.Parallel()

	scripts := map[string]bool{"build": true, "test": true, "view": true}
	exists := func(name string) bool { return scripts[name] }

	tests := []struct {
		name     string
		wantBase string
		wantOK   bool
	}{
		{"prebuild", "build", true},
		{"posttest", "test", true},
		{"preview", "view", true},
		{"prelint", "", false},
		{"pre", "", false},
		{"post", "", false},
		{"build", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			base, ok := hookBase(tt.name, exists)
			if base != tt.wantBase || ok != tt.wantOK {
				t.Errorf("hookBase(%q) = (%q, %v), want (%q, %v)", tt.name, base, ok, tt.wantBase, tt.wantOK)
			}
		})
	}
}
