// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/invowk/monorun/internal/manifest"
	"github.com/invowk/monorun/internal/projectfile"
	"github.com/invowk/monorun/internal/scripts"

	"github.com/spf13/cobra"
)

type convertFlagValues struct {
	projectFlagValues
	write  bool
	dryRun bool
}

func newInferCommand(app *App, root *rootFlagValues) *cobra.Command {
	flags := &projectFlagValues{}
	cmd := &cobra.Command{
		Use:   "infer [dir]",
		Short: "Print tasks that run each script through the package manager",
		Long: `Print one task per package.json script. Each task runs the script with
"<binary> node run-script <name>", so the package manager keeps executing
it. Lifecycle scripts and the pre/post hooks of existing scripts are left out.
package.json is not modified.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfer(app, root, flags, args)
		},
	}
	flags.register(cmd)
	return cmd
}

func newConvertCommand(app *App, root *rootFlagValues) *cobra.Command {
	flags := &convertFlagValues{}
	cmd := &cobra.Command{
		Use:   "convert [dir]",
		Short: "Convert package.json scripts into native tasks",
		Long: `Convert package.json scripts into native tasks and print the project file.

With --write the project file is written next to package.json (see
infer.project_file) and the converted scripts are removed from package.json.
Scripts using shell syntax beyond "&&" chains stay in package.json.
--dry-run prints both files instead of writing them.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd.Context(), app, root, flags, args)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&flags.write, "write", false, "write the project file and patch package.json")
	cmd.Flags().BoolVar(&flags.dryRun, "dry-run", false, "print the files --write would produce")
	cmd.MarkFlagsMutuallyExclusive("write", "dry-run")
	return cmd
}

func runInfer(app *App, root *rootFlagValues, flags *projectFlagValues, args []string) error {
	cfg := root.config()
	dir, id, err := flags.resolve(args)
	if err != nil {
		return err
	}
	format, err := flags.outputFormat(cfg.Infer.Format)
	if err != nil {
		return err
	}

	pkg, err := manifest.Load(dir)
	if err != nil {
		return classifyError(err, root.verbose)
	}

	tasks, err := scripts.InferTasksFromScripts(id, pkg.Scripts, cfg.ScriptOptions())
	if err != nil {
		return classifyError(err, root.verbose)
	}
	slog.Debug("inferred tasks", "project", id, "tasks", tasks.Len())

	return projectfile.Encode(app.stdout, format, tasks)
}

func runConvert(ctx context.Context, app *App, root *rootFlagValues, flags *convertFlagValues, args []string) error {
	cfg := root.config()
	dir, id, err := flags.resolve(args)
	if err != nil {
		return err
	}

	target := filepath.Join(dir, string(cfg.Infer.ProjectFile))
	fallback := cfg.Infer.Format
	if detected, ok := projectfile.FormatForPath(target); ok {
		fallback = detected
	}
	format, err := flags.outputFormat(fallback)
	if err != nil {
		return err
	}

	pkg, err := manifest.Load(dir)
	if err != nil {
		return classifyError(err, root.verbose)
	}

	before := len(pkg.Scripts)
	res, err := scripts.CreateTasksFromScripts(id, pkg, cfg.ScriptOptions())
	if err != nil {
		return classifyError(err, root.verbose)
	}
	if _, err := res.Tasks.ExecutionOrder(); err != nil {
		return classifyError(fmt.Errorf("project %s: %w", id, err), root.verbose)
	}
	for _, s := range res.Skipped {
		slog.Info("script left in package.json", "project", id, "script", s.Script, "reason", s.Reason)
	}

	var out bytes.Buffer
	if err := projectfile.Encode(&out, format, res.Tasks); err != nil {
		return err
	}

	switch {
	case flags.write:
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := os.WriteFile(target, out.Bytes(), 0o644); err != nil {
			return fmt.Errorf("write project file: %w", err)
		}
		if err := pkg.Save(); err != nil {
			return err
		}
		fmt.Fprintf(app.stdout, "%s converted %d scripts of %s into %s\n",
			SuccessStyle.Render("✓"), before-len(pkg.Scripts), CmdStyle.Render(id), CmdStyle.Render(target))
		printSkipped(app, res.Skipped)
		return nil
	case flags.dryRun:
		patched, err := pkg.Marshal()
		if err != nil {
			return err
		}
		fmt.Fprintf(app.stdout, "%s\n", SubtitleStyle.Render("# "+target))
		fmt.Fprint(app.stdout, out.String())
		fmt.Fprintf(app.stdout, "\n%s\n", SubtitleStyle.Render("# "+pkg.Path))
		fmt.Fprint(app.stdout, string(patched))
		return nil
	default:
		_, err := app.stdout.Write(out.Bytes())
		return err
	}
}

func printSkipped(app *App, skipped []scripts.Skipped) {
	if len(skipped) == 0 {
		return
	}
	fmt.Fprintf(app.stdout, "%s %d scripts stay in package.json:\n", WarningStyle.Render("!"), len(skipped))
	for _, s := range skipped {
		fmt.Fprintf(app.stdout, "  %s: %v\n", CmdStyle.Render(s.Script), s.Reason)
	}
}
