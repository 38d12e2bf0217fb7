// SPDX-License-Identifier: MPL-2.0

// Package toolchain downloads Node.js release archives and verifies them
// against the published SHASUMS256.txt digest file.
//
// The pipeline is linear: acquire a download slot, stream the archive to a
// temporary file, verify its checksum, then hand it to an Installer. A
// checksum mismatch removes the artifact so it is never installed.
package toolchain

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ShasumsFileName is the digest file published next to every release.
const ShasumsFileName = "SHASUMS256.txt"

var (
	// ErrInvalidShasum is the sentinel wrapped by InvalidShasumError.
	ErrInvalidShasum = errors.New("checksum mismatch")
	// ErrMissingShasum is the sentinel wrapped by MissingShasumError.
	ErrMissingShasum = errors.New("no checksum published")
	// ErrUnsupportedPlatform is the sentinel wrapped by UnsupportedPlatformError.
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

type (
	// Downloader fetches the release archive of a version and returns the
	// path of the verified file.
	Downloader interface {
		Download(ctx context.Context, version string) (string, error)
	}

	// Installer unpacks a verified archive into dest.
	Installer interface {
		Install(ctx context.Context, archive, dest string) error
	}

	// InvalidShasumError is returned when a downloaded file does not match
	// its published digest. The file has been removed.
	InvalidShasumError struct {
		File string
		Want string
		Got  string
	}

	// MissingShasumError is returned when the digest file has no entry for
	// the downloaded file.
	MissingShasumError struct {
		File string
	}

	// UnsupportedPlatformError is returned for an OS or architecture without
	// published release archives.
	UnsupportedPlatformError struct {
		GOOS   string
		GOARCH string
	}
)

func (e *InvalidShasumError) Error() string {
	return fmt.Sprintf("%s: expected sha256 %s, got %s", e.File, e.Want, e.Got)
}

// Unwrap returns ErrInvalidShasum for errors.Is() compatibility.
func (e *InvalidShasumError) Unwrap() error { return ErrInvalidShasum }

func (e *MissingShasumError) Error() string {
	return fmt.Sprintf("%s: not listed in %s", e.File, ShasumsFileName)
}

// Unwrap returns ErrMissingShasum for errors.Is() compatibility.
func (e *MissingShasumError) Unwrap() error { return ErrMissingShasum }

func (e *UnsupportedPlatformError) Error() string {
	return fmt.Sprintf("no Node.js release for %s/%s", e.GOOS, e.GOARCH)
}

// Unwrap returns ErrUnsupportedPlatform for errors.Is() compatibility.
func (e *UnsupportedPlatformError) Unwrap() error { return ErrUnsupportedPlatform }

// DownloadFileName returns the release archive name for a version and
// platform, for example "node-v20.11.0-linux-x64.tar.gz".
func DownloadFileName(version, goos, goarch string) (string, error) {
	osName, ok := map[string]string{
		"darwin":  "darwin",
		"linux":   "linux",
		"windows": "win",
	}[goos]
	if !ok {
		return "", &UnsupportedPlatformError{GOOS: goos, GOARCH: goarch}
	}
	arch, ok := map[string]string{
		"amd64":   "x64",
		"arm64":   "arm64",
		"386":     "x86",
		"arm":     "armv7l",
		"ppc64le": "ppc64le",
		"s390x":   "s390x",
	}[goarch]
	if !ok {
		return "", &UnsupportedPlatformError{GOOS: goos, GOARCH: goarch}
	}

	ext := ".tar.gz"
	if goos == "windows" {
		ext = ".zip"
	}
	return fmt.Sprintf("node-v%s-%s-%s%s", strings.TrimPrefix(version, "v"), osName, arch, ext), nil
}

// ParseShasums reads a SHASUMS256.txt document: one "<hex digest>  <file>"
// pair per line. Blank lines are skipped and digests are lower-cased.
func ParseShasums(r io.Reader) (map[string]string, error) {
	sums := make(map[string]string)
	scanner := bufio.NewScanner(r)
	for line := 1; scanner.Scan(); line++ {
		fields := strings.Fields(scanner.Text())
		switch len(fields) {
		case 0:
			continue
		case 2:
			sums[strings.TrimPrefix(fields[1], "*")] = strings.ToLower(fields[0])
		default:
			return nil, fmt.Errorf("%s line %d: expected \"<digest> <file>\"", ShasumsFileName, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", ShasumsFileName, err)
	}
	return sums, nil
}

// VerifyFile checks the sha256 digest of path against the entry for fileName.
// On mismatch the file is removed and an InvalidShasumError is returned.
func VerifyFile(path, fileName string, sums map[string]string) error {
	want, ok := sums[fileName]
	if !ok {
		return &MissingShasumError{File: fileName}
	}

	got, err := FileDigest(path)
	if err != nil {
		return err
	}
	if got != want {
		if rmErr := os.Remove(path); rmErr != nil {
			return errors.Join(&InvalidShasumError{File: fileName, Want: want, Got: got}, rmErr)
		}
		return &InvalidShasumError{File: fileName, Want: want, Got: got}
	}
	return nil
}

// FileDigest returns the hex sha256 digest of a file.
func FileDigest(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
