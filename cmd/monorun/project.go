// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/invowk/monorun/internal/projectfile"

	"github.com/spf13/cobra"
)

// projectFlagValues holds the flags shared by the single-project commands.
type projectFlagValues struct {
	project string
	format  string
}

func (p *projectFlagValues) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&p.project, "project", "", "project id used in task ids (default is the directory name)")
	cmd.Flags().StringVar(&p.format, "format", "", "project file format: yaml, toml or json (default from config)")
}

// resolve returns the absolute project directory named by args (default
// ".") and the project id.
func (p *projectFlagValues) resolve(args []string) (dir, id string, err error) {
	dir = "."
	if len(args) > 0 {
		dir = args[0]
	}
	dir, err = filepath.Abs(dir)
	if err != nil {
		return "", "", fmt.Errorf("resolve project directory: %w", err)
	}
	id = p.project
	if id == "" {
		id = filepath.Base(dir)
	}
	return dir, id, nil
}

// outputFormat returns the --format value, or fallback when unset.
func (p *projectFlagValues) outputFormat(fallback projectfile.Format) (projectfile.Format, error) {
	if p.format == "" {
		return fallback, nil
	}
	format := projectfile.Format(p.format)
	if valid, errs := format.IsValid(); !valid {
		return "", errs[0]
	}
	return format, nil
}
