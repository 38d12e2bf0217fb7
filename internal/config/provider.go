// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"path/filepath"
)

// LoadOptions defines explicit configuration loading inputs.
type LoadOptions struct {
	// ConfigFilePath forces loading from a specific config file when set.
	ConfigFilePath string
	// ConfigDirPath overrides the config directory lookup when set.
	ConfigDirPath string
	// WorkDir is where monorun.cue and .env are looked up. Empty means the
	// current directory.
	WorkDir string
}

// Provider loads configuration from explicit options.
type Provider interface {
	// Load returns the effective configuration and the config file it was
	// read from ("" when only defaults and environment applied).
	Load(ctx context.Context, opts LoadOptions) (*Config, string, error)
}

type fileProvider struct{}

// NewProvider creates a configuration provider.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load reads configuration from the requested source.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Config, string, error) {
	return loadWithOptions(ctx, opts)
}

func (o LoadOptions) dotenvPath() string {
	return filepath.Join(o.WorkDir, DotenvFileName)
}
