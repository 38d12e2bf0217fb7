// SPDX-License-Identifier: MPL-2.0

package scripts

import (
	"errors"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestDetectOutputs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		args    []string
		want    []string
		wantErr error
	}{
		{"no flags", []string{"build", "--mode", "production"}, nil, nil},
		{"separate value", []string{"--out", "dist"}, []string{"dist"}, nil},
		{"short flag", []string{"-o", "lib/index.js"}, []string{"lib/index.js"}, nil},
		{"equals form", []string{"--outDir=build"}, []string{"build"}, nil},
		{"strips dot slash", []string{"--output", "./out"}, []string{"out"}, nil},
		{"dot slash alone", []string{"--out-dir", "./"}, []string{"."}, nil},
		{"deduplicates", []string{"-o", "./lib", "--outDir=lib", "--dist", "esm"}, []string{"lib", "esm"}, nil},
		{"flag without value", []string{"--outDir"}, nil, nil},
		{"unknown equals flag", []string{"--config=out"}, nil, nil},
		{"parent directory", []string{"--out", "../dist"}, nil, ErrNoParentOutput},
		{"bare parent", []string{"--outDir", ".."}, nil, ErrNoParentOutput},
		{"hidden parent", []string{"--outDir", "./../dist"}, nil, ErrNoParentOutput},
		{"posix absolute", []string{"--out", "/abs/dir"}, nil, ErrNoAbsoluteOutput},
		{"windows absolute", []string{"--out", `C:\abs\dir`}, nil, ErrNoAbsoluteOutput},
		{"windows forward slash", []string{"--outFile=d:/bundle.js"}, nil, ErrNoAbsoluteOutput},
		{"windows root", []string{"--out", `\share`}, nil, ErrNoAbsoluteOutput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := DetectOutputs("project:build", tt.args)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("DetectOutputs() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("DetectOutputs() unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("DetectOutputs() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDetectOutputs_ErrorCarriesTask(t *testing.T) {
	t.Parallel()

	_, err := DetectOutputs("web:build", []string{"--out", "../dist"})
	var parentErr *NoParentOutputError
	if !errors.As(err, &parentErr) {
		t.Fatalf("expected *NoParentOutputError, got %T", err)
	}
	if parentErr.TaskID != "web:build" || parentErr.Path != "../dist" {
		t.Errorf("error = %+v", parentErr)
	}
}

func TestOutputFlags_ReturnsCopy(t *testing.T) {
	t.Parallel()

	flags := OutputFlags()
	if !slices.Contains(flags, "--outDir") {
		t.Fatal("OutputFlags() should contain --outDir")
	}
	flags[0] = "changed"
	if OutputFlags()[0] == "changed" {
		t.Error("OutputFlags() should return a copy")
	}
}
