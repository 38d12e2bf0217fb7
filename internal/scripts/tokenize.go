// SPDX-License-Identifier: MPL-2.0

package scripts

import (
	"log/slog"
	"strings"

	"github.com/anmitsu/go-shlex"
)

// Tokenize splits a command string into argv-style tokens. Whitespace
// separates tokens; single- and double-quoted spans belong to the token they
// appear in and lose their quotes; a backslash outside single quotes escapes
// the next character. No other shell metacharacter is interpreted.
//
// Tokenize never fails: unbalanced quotes or a trailing backslash fall back to
// plain whitespace splitting.
func Tokenize(command string) []string {
	if strings.TrimSpace(command) == "" {
		return []string{}
	}

	tokens, err := shlex.Split(command, true)
	if err != nil {
		slog.Debug("unbalanced quoting, splitting on whitespace", "command", command, "error", err)
		return strings.Fields(command)
	}
	return tokens
}
