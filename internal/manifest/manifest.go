// SPDX-License-Identifier: MPL-2.0

// Package manifest reads the scripts of a package.json and writes the
// residual script map back without disturbing the rest of the document.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/invowk/monorun/internal/issue"
	"github.com/invowk/monorun/pkg/task"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// FileName is the name of the package manifest inside a project directory.
const FileName = "package.json"

// ErrInvalidManifest is the sentinel wrapped by InvalidManifestError.
var ErrInvalidManifest = errors.New("invalid package manifest")

type (
	// InvalidManifestError is returned when a manifest is not a JSON object.
	InvalidManifestError struct {
		Path   string
		Reason string
	}

	// PackageJSON is the subset of a package manifest used by script inference.
	// The original bytes are retained so that Marshal only touches "scripts".
	PackageJSON struct {
		// Path is the manifest file path; empty for in-memory manifests.
		Path string
		// Name is the "name" member, if present.
		Name string
		// Scripts holds the string-valued members of "scripts". It is nil when
		// the manifest has no scripts member.
		Scripts task.ScriptMap

		raw []byte
	}
)

func (e *InvalidManifestError) Error() string {
	return fmt.Sprintf("%s: %s", e.Path, e.Reason)
}

// Unwrap returns ErrInvalidManifest for errors.Is() compatibility.
func (e *InvalidManifestError) Unwrap() error { return ErrInvalidManifest }

// Load reads the package.json in dir.
func Load(dir string) (*PackageJSON, error) {
	path := filepath.Join(dir, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		ctx := issue.NewErrorContext().
			WithOperation("read package manifest").
			WithResource(path)
		if errors.Is(err, os.ErrNotExist) {
			ctx = ctx.WithIssue(issue.ManifestNotFoundId).
				WithSuggestion("Run the command from a directory that contains a package.json").
				WithSuggestion("Pass the project directory as an argument")
		}
		return nil, ctx.Wrap(err).BuildError()
	}
	return Parse(path, data)
}

// Parse decodes manifest bytes. Non-string script values are ignored.
func Parse(path string, data []byte) (*PackageJSON, error) {
	if !gjson.ValidBytes(data) {
		return nil, &InvalidManifestError{Path: path, Reason: "not valid JSON"}
	}
	root := gjson.ParseBytes(data)
	if !root.IsObject() {
		return nil, &InvalidManifestError{Path: path, Reason: "top-level value is not an object"}
	}

	pkg := &PackageJSON{
		Path: path,
		Name: root.Get("name").String(),
		raw:  slices.Clone(data),
	}

	scripts := root.Get("scripts")
	if scripts.IsObject() {
		pkg.Scripts = make(task.ScriptMap)
		scripts.ForEach(func(key, value gjson.Result) bool {
			if value.Type == gjson.String {
				pkg.Scripts[key.String()] = value.String()
			}
			return true
		})
	}

	return pkg, nil
}

// New creates an in-memory manifest holding only scripts.
func New(scripts task.ScriptMap) *PackageJSON {
	return &PackageJSON{Scripts: scripts, raw: []byte("{}")}
}

// Marshal returns the manifest bytes with the string members of "scripts"
// replaced by the current Scripts map. Existing scripts keep their position
// and new scripts follow in sorted order. Non-string members of "scripts" are
// kept as they were; the member is removed when Scripts is nil and nothing
// else remains in it. Bytes outside "scripts" are left untouched.
func (p *PackageJSON) Marshal() ([]byte, error) {
	current := gjson.GetBytes(p.raw, "scripts")
	members, err := p.scriptMembers(current)
	if err != nil {
		return nil, err
	}

	if p.Scripts == nil && len(members) == 0 {
		out, err := sjson.DeleteBytes(p.raw, "scripts")
		if err != nil {
			return nil, fmt.Errorf("remove scripts: %w", err)
		}
		return slices.Clone(out), nil
	}

	obj := newLayout(current, p.raw).object(members)
	if !current.Exists() {
		return appendMember(p.raw, "scripts", obj), nil
	}
	out, err := sjson.SetRawBytes(p.raw, "scripts", obj)
	if err != nil {
		return nil, fmt.Errorf("replace scripts: %w", err)
	}
	return out, nil
}

// Save writes Marshal's output to Path.
func (p *PackageJSON) Save() error {
	if p.Path == "" {
		return errors.New("manifest has no path")
	}
	data, err := p.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(p.Path, data, 0o644); err != nil {
		return issue.WrapWithContext(err, "write package manifest", p.Path)
	}
	return nil
}

// Raw returns a copy of the bytes the manifest was parsed from.
func (p *PackageJSON) Raw() []byte {
	return slices.Clone(p.raw)
}

type (
	member struct {
		key   []byte
		value []byte
	}

	// layout is the whitespace used around the members of an object.
	layout struct {
		multiline bool
		indent    string
		closing   string
	}
)

// scriptMembers lists the encoded members of the new scripts object.
func (p *PackageJSON) scriptMembers(current gjson.Result) ([]member, error) {
	var (
		members []member
		seen    = make(map[string]bool)
		err     error
	)
	if !current.IsObject() {
		current = gjson.Result{}
	}
	current.ForEach(func(key, value gjson.Result) bool {
		name := key.String()
		if seen[name] {
			return true
		}
		seen[name] = true
		if value.Type != gjson.String {
			members = append(members, member{key: []byte(key.Raw), value: []byte(value.Raw)})
			return true
		}
		script, ok := p.Scripts[name]
		if !ok {
			return true
		}
		var encoded []byte
		if encoded, err = quote(script); err != nil {
			err = fmt.Errorf("encode script %q: %w", name, err)
			return false
		}
		members = append(members, member{key: []byte(key.Raw), value: encoded})
		return true
	})
	if err != nil {
		return nil, err
	}

	for _, name := range p.Scripts.Names() {
		if seen[name] {
			continue
		}
		key, kerr := quote(name)
		if kerr != nil {
			return nil, fmt.Errorf("encode script name %q: %w", name, kerr)
		}
		value, verr := quote(p.Scripts[name])
		if verr != nil {
			return nil, fmt.Errorf("encode script %q: %w", name, verr)
		}
		members = append(members, member{key: key, value: value})
	}
	return members, nil
}

// newLayout follows the formatting of the existing scripts object. Without
// one, members are indented one level deeper than the document's own.
func newLayout(current gjson.Result, raw []byte) layout {
	if text := current.Raw; current.IsObject() && strings.Contains(text, "\n") {
		first := text[strings.IndexByte(text, '\n')+1:]
		last := text[strings.LastIndexByte(text, '\n')+1:]
		l := layout{
			multiline: true,
			indent:    first[:len(first)-len(strings.TrimLeft(first, " \t"))],
			closing:   last[:len(last)-len(strings.TrimLeft(last, " \t"))],
		}
		if l.indent == l.closing {
			l.indent += documentIndent(raw)
		}
		return l
	}
	if !bytes.Contains(raw, []byte("\n")) {
		return layout{}
	}
	indent := documentIndent(raw)
	return layout{multiline: true, indent: indent + indent, closing: indent}
}

func (l layout) object(members []member) []byte {
	if len(members) == 0 {
		return []byte("{}")
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, m := range members {
		if i > 0 {
			buf.WriteByte(',')
		}
		if l.multiline {
			buf.WriteString("\n" + l.indent)
		}
		buf.Write(m.key)
		buf.WriteByte(':')
		if l.multiline {
			buf.WriteByte(' ')
		}
		buf.Write(m.value)
	}
	if l.multiline {
		buf.WriteString("\n" + l.closing)
	}
	buf.WriteByte('}')
	return buf.Bytes()
}

// appendMember adds key as the last member of the top-level object in raw,
// leaving everything around it in place.
func appendMember(raw []byte, key string, value []byte) []byte {
	end := bytes.LastIndexByte(raw, '}')
	body := bytes.TrimRight(raw[:end], " \t\r\n")
	multiline := bytes.Contains(raw, []byte("\n"))

	out := slices.Clone(body)
	if !bytes.HasSuffix(body, []byte("{")) {
		out = append(out, ',')
	}
	encodedKey, _ := quote(key)
	if multiline {
		out = append(out, "\n"+documentIndent(raw)...)
		out = append(out, encodedKey...)
		out = append(out, ": "...)
	} else {
		out = append(out, encodedKey...)
		out = append(out, ':')
	}
	out = append(out, value...)
	if multiline {
		out = append(out, '\n')
	}
	return append(out, raw[end:]...)
}

// quote encodes s as a JSON string without escaping "&", "<" and ">", which
// are common in shell commands.
func quote(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// documentIndent returns the indent of the first indented line of raw.
func documentIndent(raw []byte) string {
	for i := 0; i < len(raw); i++ {
		if raw[i] != '\n' {
			continue
		}
		j := i + 1
		for j < len(raw) && (raw[j] == ' ' || raw[j] == '\t') {
			j++
		}
		if j > i+1 {
			return string(raw[i+1 : j])
		}
	}
	return "  "
}
