// SPDX-License-Identifier: MPL-2.0

package scripts

import (
	"regexp"
	"strings"
)

// crossEnvCommand is the npm utility that sets variables portably. Its own
// assignments are lifted into the task environment.
const crossEnvCommand = "cross-env"

var envNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ExtractEnv consumes leading NAME=VALUE tokens and returns them as an
// environment map together with the remaining tokens. A trailing ";" on an
// assignment token is a statement separator and is dropped. Later
// assignments to the same name win.
//
// When the first remaining token is cross-env, the assignments that follow it
// are extracted as well and cross-env stays the command.
func ExtractEnv(tokens []string) (map[string]string, []string) {
	env := make(map[string]string)
	rest := consumeAssignments(env, tokens)

	if len(rest) > 0 && rest[0] == crossEnvCommand {
		after := consumeAssignments(env, rest[1:])
		rest = append([]string{crossEnvCommand}, after...)
	}

	return env, rest
}

func consumeAssignments(env map[string]string, tokens []string) []string {
	for i, token := range tokens {
		if token == ";" {
			continue
		}
		name, value, ok := parseAssignment(token)
		if !ok {
			return tokens[i:]
		}
		env[name] = value
	}
	return []string{}
}

func parseAssignment(token string) (name, value string, ok bool) {
	name, value, found := strings.Cut(token, "=")
	if !found || !envNamePattern.MatchString(name) {
		return "", "", false
	}
	return name, strings.TrimSuffix(value, ";"), true
}
