// SPDX-License-Identifier: MPL-2.0

package toolchain

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"golang.org/x/sync/semaphore"
)

// DefaultDistURL is the Node.js release host.
const DefaultDistURL = "https://nodejs.org/dist"

// NodeDownloader downloads Node.js archives into a temporary directory.
// Downloaders created with NewNodeDownloader share a fixed number of slots
// between concurrent downloads.
type NodeDownloader struct {
	// BaseURL is the release host; archives are fetched from
	// <BaseURL>/v<version>/<file>.
	BaseURL string
	// Dir receives downloaded archives.
	Dir string
	// GOOS and GOARCH select the archive; empty means the running platform.
	GOOS   string
	GOARCH string
	Client *http.Client

	slots *semaphore.Weighted
}

// NewNodeDownloader creates a downloader writing into dir with at most
// parallel downloads in flight.
func NewNodeDownloader(dir string, parallel int64) *NodeDownloader {
	if parallel < 1 {
		parallel = 1
	}
	return &NodeDownloader{
		BaseURL: DefaultDistURL,
		Dir:     dir,
		Client:  http.DefaultClient,
		slots:   semaphore.NewWeighted(parallel),
	}
}

// Download fetches and verifies the archive for version, returning its path.
// An archive already present and matching its digest is not downloaded
// again.
func (d *NodeDownloader) Download(ctx context.Context, version string) (string, error) {
	version = strings.TrimPrefix(version, "v")
	goos, goarch := d.platform()
	fileName, err := DownloadFileName(version, goos, goarch)
	if err != nil {
		return "", err
	}

	if d.slots != nil {
		if err := d.slots.Acquire(ctx, 1); err != nil {
			return "", err
		}
		defer d.slots.Release(1)
	}

	base := fmt.Sprintf("%s/v%s/", strings.TrimSuffix(d.BaseURL, "/"), version)
	sums, err := d.fetchShasums(ctx, base+ShasumsFileName)
	if err != nil {
		return "", err
	}

	dest := filepath.Join(d.Dir, fileName)
	if _, statErr := os.Stat(dest); statErr == nil {
		if VerifyFile(dest, fileName, sums) == nil {
			slog.Debug("toolchain: archive already downloaded", "path", dest)
			return dest, nil
		}
	}

	if err := d.fetchFile(ctx, base+fileName, dest); err != nil {
		return "", err
	}
	if err := VerifyFile(dest, fileName, sums); err != nil {
		return "", err
	}
	return dest, nil
}

func (d *NodeDownloader) platform() (string, string) {
	goos, goarch := d.GOOS, d.GOARCH
	if goos == "" {
		goos = runtime.GOOS
	}
	if goarch == "" {
		goarch = runtime.GOARCH
	}
	return goos, goarch
}

func (d *NodeDownloader) fetchShasums(ctx context.Context, url string) (map[string]string, error) {
	body, err := d.get(ctx, url)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return ParseShasums(body)
}

// fetchFile streams url into a temporary file next to dest and renames it
// once complete, so dest never holds a partial download.
func (d *NodeDownloader) fetchFile(ctx context.Context, url, dest string) error {
	body, err := d.get(ctx, url)
	if err != nil {
		return err
	}
	defer body.Close()

	if err := os.MkdirAll(d.Dir, 0o755); err != nil {
		return fmt.Errorf("create download directory: %w", err)
	}
	tmp, err := os.CreateTemp(d.Dir, filepath.Base(dest)+".*.part")
	if err != nil {
		return fmt.Errorf("create temporary file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // gone after a successful rename

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close() //nolint:errcheck // the copy error is reported
		return fmt.Errorf("download %s: %w", url, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return fmt.Errorf("move download into place: %w", err)
	}
	slog.Debug("toolchain: downloaded", "url", url, "path", dest)
	return nil
}

func (d *NodeDownloader) get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close() //nolint:errcheck // status error is reported
		return nil, fmt.Errorf("download %s: %s", url, resp.Status)
	}
	return resp.Body, nil
}
