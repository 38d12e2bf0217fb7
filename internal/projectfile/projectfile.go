// SPDX-License-Identifier: MPL-2.0

// Package projectfile writes inferred tasks as an orchestrator project file.
package projectfile

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/invowk/monorun/pkg/task"

	"github.com/pelletier/go-toml/v2"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
	"gopkg.in/yaml.v3"
)

const (
	// FormatYAML writes a YAML document. Tasks keep collection order.
	FormatYAML Format = "yaml"
	// FormatTOML writes a TOML document. Task tables are sorted by name.
	FormatTOML Format = "toml"
	// FormatJSON writes an indented JSON document. Tasks keep collection order.
	FormatJSON Format = "json"

	header = "Generated by monorun from package.json scripts."
)

// ErrInvalidFormat is the sentinel wrapped by InvalidFormatError.
var ErrInvalidFormat = errors.New("invalid project file format")

type (
	// Format selects the project file encoding.
	Format string

	// InvalidFormatError is returned when a Format value is not recognized.
	InvalidFormatError struct {
		Value Format
	}

	// Document is the encoded form of one task. Empty fields are omitted.
	Document struct {
		Command  string            `json:"command" yaml:"command" toml:"command"`
		Args     []string          `json:"args,omitempty" yaml:"args,omitempty" toml:"args,omitempty"`
		Env      map[string]string `json:"env,omitempty" yaml:"env,omitempty" toml:"env,omitempty"`
		Outputs  []string          `json:"outputs,omitempty" yaml:"outputs,omitempty" toml:"outputs,omitempty"`
		Deps     []string          `json:"deps,omitempty" yaml:"deps,omitempty" toml:"deps,omitempty"`
		Platform string            `json:"platform" yaml:"platform" toml:"platform"`
		Options  *task.Options     `json:"options,omitempty" yaml:"options,omitempty" toml:"options,omitempty"`
	}

	fileDocument struct {
		Tasks map[string]Document `json:"tasks" yaml:"tasks" toml:"tasks"`
	}
)

func (e *InvalidFormatError) Error() string {
	return fmt.Sprintf("invalid project file format %q (valid: yaml, toml, json)", e.Value)
}

// Unwrap returns ErrInvalidFormat for errors.Is() compatibility.
func (e *InvalidFormatError) Unwrap() error { return ErrInvalidFormat }

// String returns the string representation of the Format.
func (f Format) String() string { return string(f) }

// IsValid returns whether the Format is one of the defined formats,
// and a list of validation errors if it is not.
func (f Format) IsValid() (bool, []error) {
	switch f {
	case FormatYAML, FormatTOML, FormatJSON:
		return true, nil
	default:
		return false, []error{&InvalidFormatError{Value: f}}
	}
}

// FormatForPath infers the format from a file extension.
func FormatForPath(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		return FormatYAML, true
	case ".toml":
		return FormatTOML, true
	case ".json":
		return FormatJSON, true
	default:
		return "", false
	}
}

// NewDocument converts a task into its encoded form. Options are only written
// when they differ from the defaults.
func NewDocument(t *task.Task) Document {
	doc := Document{
		Command:  t.Command,
		Args:     t.Args,
		Outputs:  t.Outputs,
		Platform: t.Platform.String(),
	}
	if len(t.Env) > 0 {
		doc.Env = t.Env
	}
	for _, dep := range t.Deps {
		doc.Deps = append(doc.Deps, dep.String())
	}
	if !t.Options.RunInCI {
		opts := t.Options
		doc.Options = &opts
	}
	return doc
}

// Encode writes tasks to w under a top-level "tasks" key.
func Encode(w io.Writer, format Format, tasks *task.Collection) error {
	if ok, errs := format.IsValid(); !ok {
		return errs[0]
	}

	names := tasks.Names()
	docs := make(map[string]Document, len(names))
	for name, t := range tasks.All() {
		docs[name] = NewDocument(t)
	}

	var err error
	switch format {
	case FormatTOML:
		err = encodeTOML(w, docs)
	case FormatJSON:
		err = encodeJSON(w, names, docs)
	default:
		err = encodeYAML(w, names, docs)
	}
	if err != nil {
		return fmt.Errorf("encode %s project file: %w", format, err)
	}
	return nil
}

func encodeYAML(w io.Writer, names []string, docs map[string]Document) error {
	tasksNode := &yaml.Node{Kind: yaml.MappingNode}
	for _, name := range names {
		var value yaml.Node
		if err := value.Encode(docs[name]); err != nil {
			return err
		}
		tasksNode.Content = append(tasksNode.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: name},
			&value,
		)
	}

	root := &yaml.Node{
		Kind:        yaml.MappingNode,
		HeadComment: header,
		Content: []*yaml.Node{
			{Kind: yaml.ScalarNode, Tag: "!!str", Value: "tasks"},
			tasksNode,
		},
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(root); err != nil {
		return err
	}
	return enc.Close()
}

func encodeTOML(w io.Writer, docs map[string]Document) error {
	if _, err := io.WriteString(w, "# "+header+"\n\n"); err != nil {
		return err
	}
	enc := toml.NewEncoder(w)
	enc.SetIndentTables(true)
	return enc.Encode(fileDocument{Tasks: docs})
}

func encodeJSON(w io.Writer, names []string, docs map[string]Document) error {
	out := []byte(`{"tasks":{}}`)
	for _, name := range names {
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetEscapeHTML(false)
		if err := enc.Encode(docs[name]); err != nil {
			return err
		}
		var err error
		out, err = sjson.SetRawBytes(out, "tasks."+gjson.Escape(name), bytes.TrimSpace(buf.Bytes()))
		if err != nil {
			return err
		}
	}

	pretty := strings.TrimRight(gjson.GetBytes(out, `@pretty:{"width":0}`).Raw, "\n")
	_, err := io.WriteString(w, pretty+"\n")
	return err
}

// Decode reads a project file written by Encode and returns its task
// documents keyed by name.
func Decode(r io.Reader, format Format) (map[string]Document, error) {
	if ok, errs := format.IsValid(); !ok {
		return nil, errs[0]
	}

	var (
		file fileDocument
		err  error
	)
	switch format {
	case FormatTOML:
		err = toml.NewDecoder(r).Decode(&file)
	case FormatJSON:
		err = json.NewDecoder(r).Decode(&file)
	default:
		err = yaml.NewDecoder(r).Decode(&file)
	}
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode %s project file: %w", format, err)
	}
	return file.Tasks, nil
}
