// SPDX-License-Identifier: MPL-2.0

package scripts

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/invowk/monorun/pkg/task"
)

// newTask returns the task CreateTask would build for a plain command.
func newTask(id, command string, args ...string) *task.Task {
	t := task.New(id)
	t.Command = command
	t.Args = args
	return t
}

func TestCreateTask_Convert(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		script string
		want   func() *task.Task
	}{
		{
			name:   "plain command",
			script: "tsc --build",
			want: func() *task.Task {
				return newTask("project:build", "tsc", "--build")
			},
		},
		{
			name:   "quoted env value",
			script: "NODE_OPTIONS='-f -b' yarn",
			want: func() *task.Task {
				tk := newTask("project:build", "yarn")
				tk.Env = map[string]string{"NODE_OPTIONS": "-f -b"}
				return tk
			},
		},
		{
			name:   "semicolon separated env",
			script: "KEY1=VAL1; KEY2=VAL2 yarn",
			want: func() *task.Task {
				tk := newTask("project:build", "yarn")
				tk.Env = map[string]string{"KEY1": "VAL1", "KEY2": "VAL2"}
				return tk
			},
		},
		{
			name:   "cross-env",
			script: "cross-env NODE_ENV=production webpack build --output dist",
			want: func() *task.Task {
				tk := newTask("project:build", "cross-env", "webpack", "build", "--output", "dist")
				tk.Env = map[string]string{"NODE_ENV": "production"}
				tk.Outputs = []string{"dist"}
				return tk
			},
		},
		{
			name:   "shell script file",
			script: "scripts/setup.sh --force",
			want: func() *task.Task {
				tk := newTask("project:build", "bash", "scripts/setup.sh", "--force")
				tk.Platform = task.PlatformSystem
				return tk
			},
		},
		{
			name:   "module script file",
			script: "./bin/gen.mjs",
			want: func() *task.Task {
				return newTask("project:build", "node", "./bin/gen.mjs")
			},
		},
		{
			name:   "system command",
			script: "rm -rf dist",
			want: func() *task.Task {
				tk := newTask("project:build", "rm", "-rf", "dist")
				tk.Platform = task.PlatformSystem
				return tk
			},
		},
		{
			name:   "dev server",
			script: "vite --port 3000",
			want: func() *task.Task {
				tk := newTask("project:build", "vite", "--port", "3000")
				tk.Options.RunInCI = false
				return tk
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := CreateTask("project:build", "build", tt.script, ConvertCommand, Options{})
			if err != nil {
				t.Fatalf("CreateTask() unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want(), got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("CreateTask() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCreateTask_Wrap(t *testing.T) {
	t.Parallel()

	got, err := CreateTask("web:build", "build", "NODE_ENV=production tsc --outDir ./lib", WrapRunScript, Options{Binary: "moon"})
	if err != nil {
		t.Fatalf("CreateTask() unexpected error: %v", err)
	}

	want := newTask("web:build", "moon", "node", "run-script", "build")
	want.Outputs = []string{"lib"}
	if diff := cmp.Diff(want, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("CreateTask() mismatch (-want +got):\n%s", diff)
	}
}

func TestCreateTask_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		script  string
		ctx     TaskContext
		wantErr error
	}{
		{"env only", "NODE_ENV=production", ConvertCommand, ErrEmptyCommand},
		{"empty script", "", ConvertCommand, ErrEmptyCommand},
		{"absolute windows output", `build --out C:\\abs\\dir`, ConvertCommand, ErrNoAbsoluteOutput},
		{"absolute output", "tsc --outDir /abs", ConvertCommand, ErrNoAbsoluteOutput},
		{"parent output", "tsc --outDir ../lib", ConvertCommand, ErrNoParentOutput},
		{"parent output when wrapped", "tsc --outDir ../lib", WrapRunScript, ErrNoParentOutput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := CreateTask("project:build", "build", tt.script, tt.ctx, Options{})
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("CreateTask(%q) error = %v, want %v", tt.script, err, tt.wantErr)
			}
		})
	}
}
