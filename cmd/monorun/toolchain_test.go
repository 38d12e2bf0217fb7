// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/invowk/monorun/internal/issue"
	"github.com/invowk/monorun/internal/testutil"
	"github.com/invowk/monorun/internal/toolchain"
)

const archiveContent = "node archive bytes"

func digest(content string) string {
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

func TestToolchainVerify(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "node-v20.0.0-linux-x64.tar.xz")
	testutil.MustWriteFile(t, archive, archiveContent)

	t.Run("match", func(t *testing.T) {
		sums := filepath.Join(dir, "match.txt")
		testutil.MustWriteFile(t, sums, digest(archiveContent)+"  node-v20.0.0-linux-x64.tar.xz\n")

		stdout, _, err := execute(t, fakeConfig{}, "toolchain", "verify", archive, sums)
		if err != nil {
			t.Fatalf("verify failed: %v", err)
		}
		if !strings.Contains(stdout, "matches") {
			t.Errorf("stdout = %q", stdout)
		}
	})

	t.Run("mismatch", func(t *testing.T) {
		sums := filepath.Join(dir, "mismatch.txt")
		testutil.MustWriteFile(t, sums, digest("other bytes")+"  node-v20.0.0-linux-x64.tar.xz\n")

		_, _, err := execute(t, fakeConfig{}, "toolchain", "verify", archive, sums)
		var svcErr *ServiceError
		if !errors.As(err, &svcErr) {
			t.Fatalf("expected a ServiceError, got %v", err)
		}
		if svcErr.IssueID != issue.ShasumMismatchId {
			t.Errorf("IssueID = %d, want ShasumMismatchId", svcErr.IssueID)
		}
		if !errors.Is(err, toolchain.ErrInvalidShasum) {
			t.Errorf("error should wrap ErrInvalidShasum: %v", err)
		}
	})
}

func TestToolchainDownload(t *testing.T) {
	fileName, err := toolchain.DownloadFileName("20.0.0", runtime.GOOS, runtime.GOARCH)
	if err != nil {
		t.Skipf("no Node.js archive for this platform: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v20.0.0/" + toolchain.ShasumsFileName:
			fmt.Fprintf(w, "%s  %s\n", digest(archiveContent), fileName)
		case "/v20.0.0/" + fileName:
			fmt.Fprint(w, archiveContent)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	stdout, _, err := execute(t, fakeConfig{}, "toolchain", "download", "20.0.0", "--dir", dir, "--base-url", srv.URL)
	if err != nil {
		t.Fatalf("download failed: %v", err)
	}
	if !strings.Contains(stdout, "node 20.0.0") {
		t.Errorf("stdout = %q", stdout)
	}
	if got := testutil.MustReadFile(t, filepath.Join(dir, fileName)); got != archiveContent {
		t.Errorf("archive content = %q", got)
	}

	if _, _, err := execute(t, fakeConfig{}, "toolchain", "download", "21.0.0", "--dir", dir, "--base-url", srv.URL); err == nil {
		t.Error("expected an error for a missing release")
	}
}
