// SPDX-License-Identifier: MPL-2.0

package scripts

import (
	"slices"
	"strings"
)

const (
	prePrefix  = "pre"
	postPrefix = "post"
)

// lifecycleScripts are run by the package manager itself around install,
// pack, publish and version. They stay in the manifest and are never turned
// into tasks.
var lifecycleScripts = []string{
	"preinstall", "install", "postinstall",
	"prepublish", "preprepare", "prepare", "postprepare",
	"prepublishOnly", "prepack", "postpack",
	"publish", "postpublish",
	"preversion", "version", "postversion",
	"dependencies",
}

// IsLifecycle reports whether name is a package-manager lifecycle script.
func IsLifecycle(name string) bool {
	return slices.Contains(lifecycleScripts, name)
}

// LifecycleScripts returns a copy of the lifecycle script names.
func LifecycleScripts() []string {
	return slices.Clone(lifecycleScripts)
}

// TaskName converts a script name into a task name: ":" becomes "-" and any
// character outside [A-Za-z0-9_./-] becomes "-". Case, "_" and "-" are kept
// as written.
func TaskName(script string) string {
	var sb strings.Builder
	sb.Grow(len(script))
	for _, r := range script {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			sb.WriteRune(r)
		case r == '_', r == '.', r == '/', r == '-':
			sb.WriteRune(r)
		default:
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

// hookBase returns the script a pre/post hook belongs to, when it exists in
// scripts.
func hookBase(name string, exists func(string) bool) (string, bool) {
	for _, prefix := range []string{prePrefix, postPrefix} {
		base, found := strings.CutPrefix(name, prefix)
		if found && base != "" && exists(base) {
			return base, true
		}
	}
	return "", false
}
