// SPDX-License-Identifier: MPL-2.0

package scripts

import (
	"path"
	"slices"

	"github.com/invowk/monorun/pkg/task"
)

// DefaultBinary is the orchestrator executable written into generated commands.
const DefaultBinary = "monorun"

const (
	// ConvertCommand turns the script's own command into the task command.
	ConvertCommand TaskContext = iota
	// WrapRunScript runs the script through "<binary> node run-script <name>",
	// leaving its body to the package manager.
	WrapRunScript
)

// systemCommands run without the Node.js toolchain.
var systemCommands = []string{
	"bash", "sh", "zsh", "fish",
	"make", "git",
	"cp", "mv", "rm", "mkdir", "echo", "cat", "touch", "ls", "chmod", "ln",
	"exit", "true", "false", "test",
	"curl", "wget", "tar", "docker",
}

type (
	// TaskContext selects how CreateTask derives the task command.
	TaskContext int

	// Options configures task generation.
	Options struct {
		// Binary is the orchestrator executable used in generated commands.
		// Empty means DefaultBinary.
		Binary string
	}
)

func (o Options) binary() string {
	if o.Binary == "" {
		return DefaultBinary
	}
	return o.Binary
}

// CreateTask assembles one task from a script. In ConvertCommand context the
// script is tokenized, its environment prefix extracted and its command and
// arguments kept; a script made only of assignments fails with
// EmptyCommandError. In WrapRunScript context the task delegates to the
// package manager and only outputs and CI eligibility are derived from the
// script body.
func CreateTask(taskID, scriptName, script string, ctx TaskContext, opts Options) (*task.Task, error) {
	t := task.New(taskID)

	var args []string
	switch ctx {
	case WrapRunScript:
		t.Command = opts.binary()
		t.Args = []string{"node", "run-script", scriptName}
		args = Tokenize(script)
	default:
		env, rest := ExtractEnv(Tokenize(script))
		if len(rest) == 0 {
			return nil, &EmptyCommandError{Script: scriptName, TaskID: taskID}
		}
		t.Command, t.Args = splitCommand(rest)
		t.Env = env
		t.Platform = platformFor(t.Command)
		args = t.Args
	}

	outputs, err := DetectOutputs(taskID, args)
	if err != nil {
		return nil, err
	}
	t.Outputs = outputs
	t.Options.RunInCI = ShouldRunInCI(scriptName, script)

	return t, nil
}

// splitCommand separates the command from its arguments. A script file given
// as the command is run through its interpreter.
func splitCommand(tokens []string) (string, []string) {
	switch path.Ext(tokens[0]) {
	case ".sh", ".bash":
		return "bash", slices.Clone(tokens)
	case ".js", ".cjs", ".mjs":
		return "node", slices.Clone(tokens)
	}
	return tokens[0], slices.Clone(tokens[1:])
}

func platformFor(command string) task.Platform {
	if slices.Contains(systemCommands, path.Base(command)) {
		return task.PlatformSystem
	}
	return task.PlatformNode
}
