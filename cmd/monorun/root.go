// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/invowk/monorun/internal/config"
	"github.com/invowk/monorun/internal/issue"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// rootFlagValues holds the persistent flags and the configuration loaded
// before any subcommand runs.
type rootFlagValues struct {
	verbose    bool
	configPath string

	cfg        *config.Config
	configFile string
}

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &rootFlagValues{}

	rootCmd := &cobra.Command{
		Use:   "monorun",
		Short: "Turn package.json scripts into monorepo tasks",
		Long: TitleStyle.Render("monorun") + SubtitleStyle.Render(" - turn package.json scripts into monorepo tasks") + `

monorun reads the scripts of a package.json and infers tasks from them:
environment prefixes become task env, "&&" chains become linked tasks,
"npm run" indirection becomes a task reference and pre/post hooks become
dependencies. Build outputs and CI eligibility are detected from the
commands themselves.

` + SubtitleStyle.Render("Examples:") + `
  monorun infer packages/web          Print wrapper tasks for every script
  monorun convert --write             Convert scripts and patch package.json
  monorun workspace --watch           Convert every project, then keep watching
  monorun ci dev "vite"               Explain whether a task runs in CI
  monorun ci rules                    Show the per-tool CI rules`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			flags.init(cmd.Context(), app)
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is $XDG_CONFIG_HOME/monorun/config.cue)")

	rootCmd.AddCommand(
		newInferCommand(app, flags),
		newConvertCommand(app, flags),
		newWorkspaceCommand(app, flags),
		newCICommand(app),
		newConfigCommand(app, flags),
		newToolchainCommand(app, flags),
	)
	rootCmd.SetOut(app.stdout)
	rootCmd.SetErr(app.stderr)

	return rootCmd
}

// init loads the configuration and installs the logger. Configuration
// errors are reported and the defaults are used instead.
func (f *rootFlagValues) init(ctx context.Context, app *App) {
	cfg, path, err := app.Config.Load(ctx, config.LoadOptions{ConfigFilePath: f.configPath})
	if err != nil {
		fmt.Fprintln(app.stderr, WarningStyle.Render("Warning: ")+formatErrorForDisplay(err, f.verbose))
		cfg, path = config.DefaultConfig(), ""
	}
	f.cfg, f.configFile = cfg, path

	level := cfg.Log.Level
	if f.verbose {
		level = config.LogLevelDebug
	}
	slog.SetDefault(newLogger(app.stderr, level))
}

// config returns the loaded configuration, or the defaults when the
// persistent pre-run did not run.
func (f *rootFlagValues) config() *config.Config {
	if f.cfg == nil {
		return config.DefaultConfig()
	}
	return f.cfg
}

// newLogger returns a slog logger backed by a charmbracelet/log handler.
func newLogger(w io.Writer, level config.LogLevel) *slog.Logger {
	lvl, err := log.ParseLevel(string(level))
	if err != nil {
		lvl = log.InfoLevel
	}
	handler := log.NewWithOptions(w, log.Options{
		Level:  lvl,
		Prefix: "monorun",
	})
	return slog.New(handler)
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute runs the CLI and exits with the resulting status code.
// This is called by main.main().
func Execute() {
	app := NewApp(Dependencies{})
	rootCmd := NewRootCommand(app)

	verbose := func() bool {
		v, _ := rootCmd.PersistentFlags().GetBool("verbose")
		return v
	}

	if err := fang.Execute(
		context.Background(),
		rootCmd,
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
		fang.WithErrorHandler(func(w io.Writer, styles fang.Styles, err error) {
			handleError(w, styles, err, verbose())
		}),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		os.Exit(1)
	}
}

// handleError prints err the way fang's handler would, except that domain
// errors are rendered with their issue catalog entry and silent exit codes
// print nothing.
func handleError(w io.Writer, styles fang.Styles, err error, verbose bool) {
	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Err == nil {
		return
	}

	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		renderServiceError(w, svcErr, issueStyle(os.Stderr))
		return
	}

	fang.DefaultErrorHandler(w, styles, err)
}

// issueStyle picks the glamour style for w: "dark" on terminals and
// "notty" otherwise.
func issueStyle(w io.Writer) string {
	if f, ok := w.(term.File); ok && term.IsTerminal(f.Fd()) {
		return "dark"
	}
	return "notty"
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
