// SPDX-License-Identifier: MPL-2.0

package config

import (
	"reflect"
	"strings"
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

// These tests keep the Go structs' JSON tags aligned with the CUE schema, so
// that a field added on one side only fails here instead of being ignored.

func extractCUEFields(t *testing.T, val cue.Value) map[string]bool {
	t.Helper()

	iter, err := val.Fields(cue.Definitions(false), cue.Optional(true))
	if err != nil {
		t.Fatalf("failed to iterate CUE fields: %v", err)
	}

	fields := make(map[string]bool)
	for iter.Next() {
		sel := iter.Selector()
		if sel.LabelType().IsHidden() || sel.IsDefinition() {
			continue
		}
		fields[strings.TrimSuffix(sel.String(), "?")] = iter.IsOptional()
	}
	return fields
}

func extractGoJSONTags(t *testing.T, typ reflect.Type) map[string]bool {
	t.Helper()

	if typ.Kind() != reflect.Struct {
		t.Fatalf("expected struct type, got %s", typ.Kind())
	}

	fields := make(map[string]bool)
	for i := range typ.NumField() {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			continue
		}
		fields[name] = true
	}
	return fields
}

func lookupDefinition(t *testing.T, defPath string) cue.Value {
	t.Helper()

	schema := cuecontext.New().CompileString(configSchema)
	if schema.Err() != nil {
		t.Fatalf("failed to compile CUE schema: %v", schema.Err())
	}
	def := schema.LookupPath(cue.ParsePath(defPath))
	if def.Err() != nil {
		t.Fatalf("failed to lookup CUE definition %s: %v", defPath, def.Err())
	}
	return def
}

func TestSchemaSync(t *testing.T) {
	t.Parallel()

	tests := []struct {
		def string
		typ reflect.Type
	}{
		{"#Config", reflect.TypeFor[Config]()},
		{"#InferConfig", reflect.TypeFor[InferConfig]()},
		{"#WorkspaceConfig", reflect.TypeFor[WorkspaceConfig]()},
		{"#WatchConfig", reflect.TypeFor[WatchConfig]()},
		{"#LogConfig", reflect.TypeFor[LogConfig]()},
	}

	for _, tt := range tests {
		t.Run(tt.def, func(t *testing.T) {
			t.Parallel()

			cueFields := extractCUEFields(t, lookupDefinition(t, tt.def))
			goFields := extractGoJSONTags(t, tt.typ)

			for field, optional := range cueFields {
				if _, ok := goFields[field]; !ok {
					t.Errorf("CUE field %q has no Go JSON tag", field)
				}
				if !optional {
					t.Errorf("CUE field %q should be optional so defaults apply", field)
				}
			}
			for field := range goFields {
				if _, ok := cueFields[field]; !ok {
					t.Errorf("Go JSON tag %q not found in CUE schema", field)
				}
			}
		})
	}
}

func TestGeneratedCUEMatchesSchema(t *testing.T) {
	t.Parallel()

	ctx := cuecontext.New()
	schema := ctx.CompileString(configSchema).LookupPath(cue.ParsePath("#Config"))
	generated := ctx.CompileString(GenerateCUE(DefaultConfig()))
	if generated.Err() != nil {
		t.Fatalf("generated CUE does not compile: %v", generated.Err())
	}
	if err := schema.Unify(generated).Validate(cue.Concrete(true)); err != nil {
		t.Errorf("generated CUE does not satisfy #Config: %v", err)
	}
}
