// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"strings"
	"testing"
)

func TestCI_Verdicts(t *testing.T) {
	tests := []struct {
		args     []string
		wantCode int
		wantOut  string
	}{
		{[]string{"build", "vite", "build"}, 0, "runs in CI"},
		{[]string{"dev", "vite"}, 1, "is skipped in CI"},
		{[]string{"app:serve", "node", "server.js"}, 1, "is skipped in CI"},
		{[]string{"test", "jest", "--watch"}, 1, "is skipped in CI"},
		{[]string{"check", "next", "--version"}, 0, "runs in CI"},
	}

	for _, tt := range tests {
		t.Run(strings.Join(tt.args, " "), func(t *testing.T) {
			stdout, _, err := execute(t, fakeConfig{}, append([]string{"ci"}, tt.args...)...)
			if !strings.Contains(stdout, tt.wantOut) {
				t.Errorf("stdout = %q, want it to contain %q", stdout, tt.wantOut)
			}

			if tt.wantCode == 0 {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var exitErr *ExitError
			if !errors.As(err, &exitErr) {
				t.Fatalf("expected ExitError, got %v", err)
			}
			if exitErr.Code != tt.wantCode || exitErr.Err != nil {
				t.Errorf("ExitError = %+v, want silent code %d", exitErr, tt.wantCode)
			}
		})
	}
}

func TestCI_RequiresCommand(t *testing.T) {
	if _, _, err := execute(t, fakeConfig{}, "ci", "build"); err == nil {
		t.Fatal("expected an argument error")
	}
}

func TestCIRulesMarkdown(t *testing.T) {
	t.Parallel()

	md := ciRulesMarkdown()
	for _, want := range []string{
		"# CI rules",
		"| Tool | Allowed |",
		"| next |",
		"| webpack |",
		"`--entry`",
		"`--watch` anywhere never runs.",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("ciRulesMarkdown() missing %q:\n%s", want, md)
		}
	}
}

func TestCI_RulesCommand(t *testing.T) {
	originalRender := renderMarkdown
	t.Cleanup(func() { renderMarkdown = originalRender })

	var gotStyle string
	renderMarkdown = func(in, style string) (string, error) {
		gotStyle = style
		return in, nil
	}

	stdout, _, err := execute(t, fakeConfig{}, "ci", "rules")
	if err != nil {
		t.Fatalf("ci rules failed: %v", err)
	}
	if !strings.Contains(stdout, "| vite |") {
		t.Errorf("stdout missing vite row:\n%s", stdout)
	}
	if gotStyle != "notty" {
		t.Errorf("style = %q, want notty for a buffer", gotStyle)
	}
}
