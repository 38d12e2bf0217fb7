// SPDX-License-Identifier: MPL-2.0

package workspace

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/invowk/monorun/internal/scripts"
	"github.com/invowk/monorun/internal/testutil"
)

func TestDiscover(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteManifest(t, root, `{"name":"root"}`)
	testutil.WriteManifest(t, filepath.Join(root, "packages", "web"), `{}`)
	testutil.WriteManifest(t, filepath.Join(root, "packages", "api"), `{}`)
	testutil.WriteManifest(t, filepath.Join(root, "apps", "site"), `{}`)
	testutil.WriteManifest(t, filepath.Join(root, "packages", "web", "node_modules", "dep"), `{}`)
	testutil.MustMkdirAll(t, filepath.Join(root, "packages", "empty"))

	projects, err := Discover(root, []string{"packages/*", "apps/*", "packages/**"})
	if err != nil {
		t.Fatalf("Discover() unexpected error: %v", err)
	}

	var got []string
	for _, p := range projects {
		got = append(got, p.ID+"="+p.Rel)
		if p.Dir != filepath.Join(root, filepath.FromSlash(p.Rel)) {
			t.Errorf("Dir = %q for %q", p.Dir, p.Rel)
		}
	}
	want := []string{"site=apps/site", "api=packages/api", "web=packages/web"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Discover() mismatch (-want +got):\n%s", diff)
	}
}

func TestDiscover_Root(t *testing.T) {
	t.Parallel()

	root := filepath.Join(t.TempDir(), "mono")
	testutil.WriteManifest(t, root, `{}`)

	projects, err := Discover(root, []string{"."})
	if err != nil {
		t.Fatalf("Discover() unexpected error: %v", err)
	}
	if len(projects) != 1 || projects[0].ID != "mono" || projects[0].Rel != "." {
		t.Errorf("Discover() = %+v", projects)
	}
}

func TestDiscover_Duplicate(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	testutil.WriteManifest(t, filepath.Join(root, "packages", "ui"), `{}`)
	testutil.WriteManifest(t, filepath.Join(root, "apps", "ui"), `{}`)

	_, err := Discover(root, []string{"packages/*", "apps/*"})
	if !errors.Is(err, ErrDuplicateProject) {
		t.Fatalf("Discover() error = %v, want ErrDuplicateProject", err)
	}
}

func TestRun_PreservesOrder(t *testing.T) {
	t.Parallel()

	projects := []Project{{ID: "a"}, {ID: "b"}, {ID: "c"}, {ID: "d"}}
	var inFlight, maxInFlight atomic.Int32

	got, err := Run(context.Background(), projects, 2, func(_ context.Context, p Project) (string, error) {
		n := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			cur := maxInFlight.Load()
			if n <= cur || maxInFlight.CompareAndSwap(cur, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		return p.ID + "!", nil
	})
	if err != nil {
		t.Fatalf("Run() unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"a!", "b!", "c!", "d!"}, got); diff != "" {
		t.Errorf("Run() mismatch (-want +got):\n%s", diff)
	}
	if maxInFlight.Load() > 2 {
		t.Errorf("max in flight = %d, want <= 2", maxInFlight.Load())
	}
}

func TestRun_FirstErrorCancels(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	projects := []Project{{ID: "bad"}, {ID: "slow"}}

	_, err := Run(context.Background(), projects, 0, func(ctx context.Context, p Project) (int, error) {
		if p.ID == "bad" {
			return 0, boom
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(5 * time.Second):
			return 1, nil
		}
	})
	if !errors.Is(err, boom) {
		t.Errorf("Run() error = %v, want boom", err)
	}
}

func TestInferrer(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dir := filepath.Join(root, "packages", "web")
	testutil.WriteManifest(t, dir, `{"scripts":{"build":"tsc","lint":"eslint . | tee lint.log"}}`)
	project := Project{ID: "web", Dir: dir, Rel: "packages/web"}

	in, err := NewInferrer(scripts.ModeConvert, scripts.Options{}, 4)
	if err != nil {
		t.Fatalf("NewInferrer() unexpected error: %v", err)
	}

	out, err := in.Infer(context.Background(), project)
	if err != nil {
		t.Fatalf("Infer() unexpected error: %v", err)
	}
	if out.Cached || out.Tasks.Len() != 1 || len(out.Skipped) != 1 {
		t.Fatalf("Infer() = %+v", out)
	}
	if _, ok := out.Residual["lint"]; !ok {
		t.Errorf("Residual = %v, want lint kept", out.Residual)
	}

	again, err := in.Infer(context.Background(), project)
	if err != nil {
		t.Fatalf("Infer() unexpected error: %v", err)
	}
	if !again.Cached {
		t.Error("second Infer() should be served from cache")
	}

	testutil.WriteManifest(t, dir, `{"scripts":{"build":"tsc --build"}}`)
	changed, err := in.Infer(context.Background(), project)
	if err != nil {
		t.Fatalf("Infer() unexpected error: %v", err)
	}
	if changed.Cached {
		t.Error("changed scripts should not be served from cache")
	}

	// The manifest on disk is never rewritten.
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `{"scripts":{"build":"tsc --build"}}` {
		t.Errorf("manifest modified: %s", data)
	}
}

func TestInferrer_Wrap(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	testutil.WriteManifest(t, dir, `{"scripts":{"build":"tsc","prebuild":"rm -rf lib"}}`)

	in, err := NewInferrer(scripts.ModeWrap, scripts.Options{Binary: "moon"}, 0)
	if err != nil {
		t.Fatalf("NewInferrer() unexpected error: %v", err)
	}
	out, err := in.Infer(context.Background(), Project{ID: "lib", Dir: dir})
	if err != nil {
		t.Fatalf("Infer() unexpected error: %v", err)
	}
	if diff := cmp.Diff([]string{"build"}, out.Tasks.Names()); diff != "" {
		t.Errorf("task names mismatch (-want +got):\n%s", diff)
	}
	if len(out.Residual) != 2 {
		t.Errorf("wrap mode should keep every script, got %v", out.Residual)
	}
}

func TestInferrer_Errors(t *testing.T) {
	t.Parallel()

	if _, err := NewInferrer("magic", scripts.Options{}, 0); !errors.Is(err, scripts.ErrInvalidMode) {
		t.Errorf("NewInferrer() error = %v, want ErrInvalidMode", err)
	}

	in, err := NewInferrer(scripts.ModeConvert, scripts.Options{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := in.Infer(context.Background(), Project{ID: "x", Dir: t.TempDir()}); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Infer() error = %v, want os.ErrNotExist", err)
	}

	dir := t.TempDir()
	testutil.WriteManifest(t, dir, `{"scripts":{"build":"tsc --outDir ../out"}}`)
	if _, err := in.Infer(context.Background(), Project{ID: "x", Dir: dir}); !errors.Is(err, scripts.ErrNoParentOutput) {
		t.Errorf("Infer() error = %v, want ErrNoParentOutput", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := in.Infer(ctx, Project{ID: "x", Dir: dir}); !errors.Is(err, context.Canceled) {
		t.Errorf("Infer() error = %v, want context.Canceled", err)
	}
}
