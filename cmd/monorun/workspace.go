// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/invowk/monorun/internal/config"
	"github.com/invowk/monorun/internal/scripts"
	"github.com/invowk/monorun/internal/watch"
	"github.com/invowk/monorun/internal/workspace"

	"github.com/spf13/cobra"
)

type workspaceFlagValues struct {
	watch bool
	mode  string
}

func newWorkspaceCommand(app *App, root *rootFlagValues) *cobra.Command {
	flags := &workspaceFlagValues{}
	cmd := &cobra.Command{
		Use:   "workspace [root]",
		Short: "Infer tasks for every project of a workspace",
		Long: `Infer tasks for every project matched by workspace.patterns and print a
summary. Projects are processed concurrently (workspace.concurrency) and no
file is modified.

With --watch the summary is printed again whenever a package.json changes;
only projects whose scripts changed are recomputed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}
			return runWorkspace(cmd.Context(), app, root, flags, dir)
		},
	}
	cmd.Flags().BoolVarP(&flags.watch, "watch", "w", false, "re-run when a package.json changes")
	cmd.Flags().StringVar(&flags.mode, "mode", "", "inference mode: convert or wrap (default from config)")
	return cmd
}

func runWorkspace(ctx context.Context, app *App, root *rootFlagValues, flags *workspaceFlagValues, dir string) error {
	cfg := root.config()

	mode := cfg.Infer.Mode
	if flags.mode != "" {
		mode = scripts.Mode(flags.mode)
	}
	inferrer, err := workspace.NewInferrer(mode, cfg.ScriptOptions(), workspace.DefaultCacheSize)
	if err != nil {
		return err
	}

	pass := func(ctx context.Context) error {
		projects, err := workspace.Discover(dir, cfg.Workspace.Patterns)
		if err != nil {
			return err
		}
		outcomes, err := workspace.Run(ctx, projects, int(cfg.Workspace.Concurrency), inferrer.Infer)
		if err != nil {
			return classifyError(err, root.verbose)
		}
		printSummary(app.stdout, mode, outcomes)
		return nil
	}

	if err := pass(ctx); err != nil {
		if !flags.watch {
			return err
		}
		// The user may fix the manifest and save again.
		renderServiceError(app.stderr, asServiceError(err, root.verbose), "notty")
	}
	if !flags.watch {
		return nil
	}

	return watchWorkspace(ctx, app, cfg.Watch, dir, pass)
}

func watchWorkspace(ctx context.Context, app *App, cfg config.WatchConfig, dir string, pass func(context.Context) error) error {
	w, err := watch.New(watch.Config{
		Root:     dir,
		Ignore:   cfg.Ignore,
		Debounce: cfg.Debounce.Duration(),
		OnChange: func(ctx context.Context, changed []string) error {
			slog.Info("package manifests changed", "files", changed)
			if err := pass(ctx); err != nil {
				fmt.Fprintf(app.stderr, "%s %s\n", WarningStyle.Render("!"), err)
			}
			return nil
		},
	})
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}

	fmt.Fprintf(app.stdout, "\n%s Watching for package.json changes (Ctrl+C to stop)...\n", CmdStyle.Render("→"))
	return w.Run(ctx)
}

func asServiceError(err error, verbose bool) *ServiceError {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return classifyError(err, verbose)
}

func printSummary(w io.Writer, mode scripts.Mode, outcomes []*workspace.Outcome) {
	fmt.Fprintf(w, "%s %s\n", TitleStyle.Render("Workspace"), SubtitleStyle.Render(fmt.Sprintf("(%d projects, %s)", len(outcomes), mode)))
	for _, out := range outcomes {
		line := fmt.Sprintf("  %-24s %3d tasks", CmdStyle.Render(out.Project.ID), out.Tasks.Len())
		if mode == scripts.ModeConvert {
			line += fmt.Sprintf("  %3d left in package.json", len(out.Residual))
		}
		if out.Cached {
			line += "  " + SubtitleStyle.Render("(unchanged)")
		}
		fmt.Fprintln(w, line)
		for _, s := range out.Skipped {
			fmt.Fprintf(w, "    %s %s: %v\n", WarningStyle.Render("!"), s.Script, s.Reason)
		}
	}
}
