// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/invowk/monorun/internal/config"
	"github.com/invowk/monorun/internal/projectfile"
	"github.com/invowk/monorun/internal/scripts"

	"github.com/spf13/cobra"
)

// settableKeys are the keys accepted by "config set".
var settableKeys = []string{
	"binary",
	"infer.mode",
	"infer.format",
	"infer.project_file",
	"workspace.concurrency",
	"watch.debounce",
	"log.level",
}

func newConfigCommand(app *App, root *rootFlagValues) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage monorun configuration",
		Long: `Manage monorun configuration.

Configuration is stored in:
  - Linux: ~/.config/monorun/config.cue
  - macOS: ~/Library/Application Support/monorun/config.cue
  - Windows: %APPDATA%\monorun\config.cue

A monorun.cue in the working directory is used when that file is missing.
Every key can be overridden with a MONORUN_* environment variable, for
example MONORUN_INFER_MODE=wrap, also read from a .env file.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration as CUE",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showConfig(cmd.Context(), app, root)
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Create the default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.CreateDefaultConfig()
			if err != nil {
				return fmt.Errorf("failed to create config: %w", err)
			}
			fmt.Fprintf(app.stdout, "%s Configuration at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show the configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgDir, err := config.ConfigDir()
			if err != nil {
				return err
			}
			fmt.Fprintln(app.stdout, filepath.Join(cfgDir, config.ConfigFileName+"."+config.ConfigFileExt))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:       "set <key> <value>",
		Short:     "Set a configuration value",
		Args:      cobra.ExactArgs(2),
		ValidArgs: settableKeys,
		RunE: func(cmd *cobra.Command, args []string) error {
			return setConfigValue(cmd.Context(), app, root, args[0], args[1])
		},
	})

	return cfgCmd
}

func showConfig(ctx context.Context, app *App, root *rootFlagValues) error {
	cfg, path, err := app.Config.Load(ctx, config.LoadOptions{ConfigFilePath: root.configPath})
	if err != nil {
		return classifyError(err, root.verbose)
	}

	source := "(defaults)"
	if path != "" {
		source = path
	}
	fmt.Fprintf(app.stdout, "// source: %s\n", source)
	fmt.Fprint(app.stdout, config.GenerateCUE(cfg))
	return nil
}

func setConfigValue(ctx context.Context, app *App, root *rootFlagValues, key, value string) error {
	cfg, _, err := app.Config.Load(ctx, config.LoadOptions{ConfigFilePath: root.configPath})
	if err != nil {
		return classifyError(err, root.verbose)
	}

	switch key {
	case "binary":
		cfg.Binary = config.BinaryName(value)
	case "infer.mode":
		cfg.Infer.Mode = scripts.Mode(value)
	case "infer.format":
		cfg.Infer.Format = projectfile.Format(value)
	case "infer.project_file":
		cfg.Infer.ProjectFile = config.ProjectFile(value)
	case "workspace.concurrency":
		n, convErr := strconv.Atoi(value)
		if convErr != nil {
			return fmt.Errorf("invalid workspace.concurrency %q: %w", value, convErr)
		}
		cfg.Workspace.Concurrency = config.Concurrency(n)
	case "watch.debounce":
		cfg.Watch.Debounce = config.Debounce(value)
	case "log.level":
		cfg.Log.Level = config.LogLevel(value)
	default:
		return fmt.Errorf("unknown configuration key: %s\nValid keys: %s", key, strings.Join(settableKeys, ", "))
	}

	if valid, errs := cfg.IsValid(); !valid {
		return errs[0]
	}
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintf(app.stdout, "%s Set %s = %s\n", SuccessStyle.Render("✓"), key, value)
	return nil
}
