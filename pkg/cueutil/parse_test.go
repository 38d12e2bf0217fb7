// SPDX-License-Identifier: MPL-2.0

package cueutil

import (
	"strings"
	"testing"

	"cuelang.org/go/cue"
)

const testSchema = `
#Settings: {
	name:    string
	count:   int & >=1
	enabled: bool
	tags?: [...string]
}

#Partial: {
	mode?:  "convert" | "wrap"
	limit?: int & >0
}
`

type settings struct {
	Name    string   `json:"name"`
	Count   int      `json:"count"`
	Enabled bool     `json:"enabled"`
	Tags    []string `json:"tags,omitempty"`
}

func TestParseAndDecode(t *testing.T) {
	t.Parallel()

	t.Run("valid data decodes", func(t *testing.T) {
		t.Parallel()

		data := []byte(`
name: "web"
count: 3
enabled: true
tags: ["a", "b"]
`)
		result, err := ParseAndDecode[settings]([]byte(testSchema), data, "#Settings")
		if err != nil {
			t.Fatalf("ParseAndDecode() error = %v", err)
		}
		got := result.Value
		if got.Name != "web" || got.Count != 3 || !got.Enabled || len(got.Tags) != 2 {
			t.Errorf("unexpected value: %+v", got)
		}
		name, err := result.Unified.LookupPath(cue.ParsePath("name")).String()
		if err != nil || name != "web" {
			t.Errorf("Unified name = %q, %v", name, err)
		}
	})

	t.Run("constraint violation names the field", func(t *testing.T) {
		t.Parallel()

		data := []byte(`
name: "web"
count: 0
enabled: true
`)
		_, err := ParseAndDecode[settings]([]byte(testSchema), data, "#Settings", WithFilename("settings.cue"))
		if err == nil {
			t.Fatal("expected error")
		}
		if !strings.Contains(err.Error(), "settings.cue") || !strings.Contains(err.Error(), "count") {
			t.Errorf("error should name file and field, got: %v", err)
		}
	})

	t.Run("missing required field fails when concrete", func(t *testing.T) {
		t.Parallel()

		_, err := ParseAndDecode[settings]([]byte(testSchema), []byte(`name: "web"`), "#Settings")
		if err == nil {
			t.Fatal("expected error for missing fields")
		}
	})

	t.Run("unknown field is rejected", func(t *testing.T) {
		t.Parallel()

		_, err := ParseAndDecode[map[string]any]([]byte(testSchema), []byte(`colour: "red"`), "#Partial",
			WithConcrete(false))
		if err == nil {
			t.Fatal("expected error for field outside the definition")
		}
	})

	t.Run("syntax error", func(t *testing.T) {
		t.Parallel()

		_, err := ParseAndDecode[settings]([]byte(testSchema), []byte(`name: "web`), "#Settings")
		if err == nil {
			t.Fatal("expected syntax error")
		}
		if !strings.HasPrefix(err.Error(), "<input>") {
			t.Errorf("default filename should be <input>, got: %v", err)
		}
	})

	t.Run("missing definition is an internal error", func(t *testing.T) {
		t.Parallel()

		_, err := ParseAndDecode[settings]([]byte(testSchema), []byte(`name: "web"`), "#Nope")
		if err == nil || !strings.Contains(err.Error(), "internal error") {
			t.Fatalf("expected internal error, got %v", err)
		}
	})
}

func TestParseAndDecode_NonConcrete(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		want    map[string]any
		wantErr bool
	}{
		{name: "empty file", data: ``, want: map[string]any{}},
		{name: "one field", data: `mode: "wrap"`, want: map[string]any{"mode": "wrap"}},
		{name: "bad enum", data: `mode: "other"`, wantErr: true},
		{name: "bad bound", data: `limit: 0`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			result, err := ParseAndDecodeString[map[string]any](testSchema, []byte(tt.data), "#Partial",
				WithConcrete(false), WithFilename("partial.cue"))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAndDecodeString() error = %v", err)
			}
			got := *result.Value
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("%s = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}

func TestParseAndDecode_FileSize(t *testing.T) {
	t.Parallel()

	data := []byte(`mode: "wrap"` + strings.Repeat("\n", 64))

	if _, err := ParseAndDecode[map[string]any]([]byte(testSchema), data, "#Partial",
		WithConcrete(false), WithMaxFileSize(16)); err == nil {
		t.Fatal("expected size limit error")
	}
	if _, err := ParseAndDecode[map[string]any]([]byte(testSchema), data, "#Partial",
		WithConcrete(false), WithMaxFileSize(1024)); err != nil {
		t.Fatalf("unexpected error within limit: %v", err)
	}
}
