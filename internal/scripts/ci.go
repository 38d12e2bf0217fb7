// SPDX-License-Identifier: MPL-2.0

package scripts

import (
	"path"
	"slices"
	"strings"
)

// watchFlag keeps a process alive and is never run in CI.
const watchFlag = "--watch"

var (
	// reservedNames are script names that conventionally start long-running
	// servers. A colon segment equal to serve or start also disqualifies,
	// while dev only disqualifies as the whole name.
	reservedNames    = []string{"dev", "serve", "start"}
	reservedSegments = []string{"serve", "start"}

	// runnerCommands execute a package binary and are skipped to find the tool.
	runnerCommands = []string{"npx", "pnpx", "bunx"}

	// infoFlags only print information and exit.
	infoFlags = []string{"--version", "--help", "-v", "-h"}

	toolRules = map[string]toolRule{
		"gatsby": {
			allow: []string{"build", "info", "clean"},
			deny:  []string{"dev", "develop", "new", "serve", "repl"},
			bare:  true,
			other: true,
		},
		"next": {
			allow: []string{"build", "export", "info", "lint"},
			deny:  []string{"dev", "start"},
			bare:  false,
			other: true,
		},
		"parcel": {
			allow: []string{"build"},
			deny:  []string{"serve", "watch"},
			bare:  false,
			other: false,
		},
		"react-scripts": {
			allow: []string{"build", "eject", "test"},
			deny:  []string{"start"},
			bare:  true,
			other: true,
		},
		"snowpack": {
			allow: []string{"build"},
			deny:  []string{"dev"},
			bare:  true,
			other: true,
		},
		"vite": {
			allow: []string{"build", "optimize"},
			deny:  []string{"dev", "serve", "preview"},
			bare:  false,
			other: false,
		},
		"webpack": {
			allow:     []string{"build", "bundle", "info", "configtest"},
			deny:      []string{"s", "serve", "server", "w", "watch"},
			denyFlags: []string{"--entry"},
			bare:      false,
			other:     true,
		},
	}
)

// toolRule decides CI eligibility for one build tool from its first argument.
type toolRule struct {
	// allow lists subcommands that terminate on their own.
	allow []string
	// deny lists subcommands that start a server or watcher.
	deny []string
	// denyFlags disqualify the invocation wherever they appear.
	denyFlags []string
	// bare is the verdict for an invocation without arguments.
	bare bool
	// other is the verdict for any first argument not listed above.
	other bool
}

// ToolRule is the exported view of a tool's CI rule, used for documentation.
type ToolRule struct {
	Tool      string
	Allow     []string
	Deny      []string
	DenyFlags []string
	Bare      bool
	Other     bool
}

func (r toolRule) permits(args []string) bool {
	for _, arg := range args {
		if slices.Contains(r.denyFlags, arg) {
			return false
		}
	}
	if len(args) == 0 {
		return r.bare
	}
	first := args[0]
	switch {
	case slices.Contains(infoFlags, first), slices.Contains(r.allow, first):
		return true
	case slices.Contains(r.deny, first):
		return false
	default:
		return r.other
	}
}

// ShouldRunInCI reports whether a script is safe to run unattended in CI.
// It returns false for reserved server names, for commands passing --watch,
// and for known build tools invoked in a development-server mode. Tools
// without a rule are assumed to terminate. Commands chained with "&&" are
// checked step by step.
func ShouldRunInCI(name, command string) bool {
	if isReservedName(name) {
		return false
	}

	tokens := Tokenize(command)
	if slices.Contains(tokens, watchFlag) {
		return false
	}

	for _, step := range splitOnAnd(tokens) {
		if !stepRunsInCI(step) {
			return false
		}
	}
	return true
}

// ToolRules returns the per-tool rules sorted by tool name.
func ToolRules() []ToolRule {
	tools := make([]string, 0, len(toolRules))
	for tool := range toolRules {
		tools = append(tools, tool)
	}
	slices.Sort(tools)

	out := make([]ToolRule, 0, len(tools))
	for _, tool := range tools {
		r := toolRules[tool]
		out = append(out, ToolRule{
			Tool:      tool,
			Allow:     slices.Clone(r.allow),
			Deny:      slices.Clone(r.deny),
			DenyFlags: slices.Clone(r.denyFlags),
			Bare:      r.bare,
			Other:     r.other,
		})
	}
	return out
}

func isReservedName(name string) bool {
	if slices.Contains(reservedNames, name) {
		return true
	}
	for segment := range strings.SplitSeq(name, ":") {
		if slices.Contains(reservedSegments, segment) {
			return true
		}
	}
	return false
}

func stepRunsInCI(tokens []string) bool {
	_, rest := ExtractEnv(tokens)
	if len(rest) > 0 && rest[0] == crossEnvCommand {
		rest = rest[1:]
	}
	for len(rest) > 0 && slices.Contains(runnerCommands, rest[0]) {
		rest = rest[1:]
	}
	if len(rest) == 0 {
		return true
	}

	rule, ok := toolRules[path.Base(rest[0])]
	if !ok {
		return true
	}
	return rule.permits(rest[1:])
}

func splitOnAnd(tokens []string) [][]string {
	var steps [][]string
	start := 0
	for i, token := range tokens {
		if token == "&&" {
			steps = append(steps, tokens[start:i])
			start = i + 1
		}
	}
	return append(steps, tokens[start:])
}
