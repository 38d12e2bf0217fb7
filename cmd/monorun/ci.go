// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/invowk/monorun/internal/scripts"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
)

// renderMarkdown is replaceable in tests.
var renderMarkdown = glamour.Render

func newCICommand(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ci <task-name> <command...>",
		Short: "Report whether a task would run in CI",
		Long: `Report whether a script would be marked as safe to run unattended in CI.

Scripts named dev, serve or start, names with a serve or start segment
(such as "app:serve"), commands passing --watch and known tools started in a
development-server mode are not run in CI. The exit status is 1 in that case.`,
		Example: `  monorun ci build "vite build"
  monorun ci dev vite`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, command := args[0], strings.Join(args[1:], " ")
			if scripts.ShouldRunInCI(name, command) {
				fmt.Fprintf(app.stdout, "%s %s runs in CI\n", SuccessStyle.Render("✓"), CmdStyle.Render(name))
				return nil
			}
			fmt.Fprintf(app.stdout, "%s %s is skipped in CI\n", WarningStyle.Render("✗"), CmdStyle.Render(name))
			return &ExitError{Code: 1}
		},
	}
	// Flags after the task name belong to the inspected command.
	cmd.Flags().SetInterspersed(false)

	cmd.AddCommand(&cobra.Command{
		Use:   "rules",
		Short: "Show the per-tool CI rules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out, err := renderMarkdown(ciRulesMarkdown(), issueStyle(app.stdout))
			if err != nil {
				return err
			}
			fmt.Fprint(app.stdout, out)
			return nil
		},
	})

	return cmd
}

// ciRulesMarkdown describes scripts.ToolRules as a Markdown table.
func ciRulesMarkdown() string {
	var sb strings.Builder
	sb.WriteString("# CI rules\n\n")
	sb.WriteString("`--version`, `--help`, `-v` and `-h` always run. ")
	sb.WriteString("`--watch` anywhere never runs.\n\n")
	sb.WriteString("| Tool | Allowed | Denied | Denied flags | No arguments | Other arguments |\n")
	sb.WriteString("|---|---|---|---|---|---|\n")
	for _, rule := range scripts.ToolRules() {
		fmt.Fprintf(&sb, "| %s | %s | %s | %s | %s | %s |\n",
			rule.Tool, codeList(rule.Allow), codeList(rule.Deny), codeList(rule.DenyFlags),
			verdict(rule.Bare), verdict(rule.Other))
	}
	return sb.String()
}

func codeList(items []string) string {
	if len(items) == 0 {
		return "-"
	}
	return "`" + strings.Join(items, "`, `") + "`"
}

func verdict(runs bool) string {
	if runs {
		return "run"
	}
	return "skip"
}
