// SPDX-License-Identifier: MPL-2.0

package task

import (
	"maps"
	"slices"
)

// ScriptMap maps script names to their raw shell command strings, as found in
// the "scripts" member of a package manifest. A nil ScriptMap means the
// manifest has no scripts member.
type ScriptMap map[string]string

// Names returns the script names in sorted order.
func (s ScriptMap) Names() []string {
	return slices.Sorted(maps.Keys(s))
}

// Has reports whether a script with the given name exists.
func (s ScriptMap) Has(name string) bool {
	_, ok := s[name]
	return ok
}

// Clone returns a shallow copy. Cloning a nil map returns nil.
func (s ScriptMap) Clone() ScriptMap {
	return maps.Clone(s)
}
