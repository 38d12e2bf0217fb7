// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/invowk/monorun/internal/dag"
	"github.com/invowk/monorun/internal/issue"
	"github.com/invowk/monorun/internal/manifest"
	"github.com/invowk/monorun/internal/scripts"
	"github.com/invowk/monorun/internal/toolchain"
)

// ServiceError carries rendering information for the CLI layer: a styled
// message and an optional issue catalog entry printed after it.
// Always create via newServiceError.
type ServiceError struct {
	// Err is the underlying error (must not be nil).
	Err error
	// IssueID selects the catalog entry rendered below the message; zero
	// means none.
	IssueID issue.Id
	// StyledMessage is the pre-rendered error text.
	StyledMessage string
}

func newServiceError(err error, issueID issue.Id, styledMessage string) *ServiceError {
	if err == nil {
		panic("ServiceError: Err must not be nil")
	}
	return &ServiceError{
		Err:           err,
		IssueID:       issueID,
		StyledMessage: styledMessage,
	}
}

// Error implements the error interface.
func (e *ServiceError) Error() string { return e.Err.Error() }

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *ServiceError) Unwrap() error { return e.Err }

// classifyError maps domain failures to issue catalog entries. An issue
// already attached to an ActionableError wins.
func classifyError(err error, verbose bool) *ServiceError {
	issueID := issue.IssueOf(err)
	if issueID == 0 {
		switch {
		case errors.Is(err, manifest.ErrInvalidManifest):
			issueID = issue.ManifestInvalidId
		case errors.Is(err, scripts.ErrNoParentOutput), errors.Is(err, scripts.ErrNoAbsoluteOutput):
			issueID = issue.OutputOutsideProjectId
		case errors.Is(err, scripts.ErrEmptyCommand):
			issueID = issue.EmptyCommandId
		case errors.Is(err, dag.ErrCycle):
			issueID = issue.DependencyCycleId
		case errors.Is(err, toolchain.ErrInvalidShasum):
			issueID = issue.ShasumMismatchId
		}
	}

	return newServiceError(err, issueID,
		fmt.Sprintf("%s %s\n", ErrorStyle.Render("Error:"), formatErrorForDisplay(err, verbose)))
}

// renderServiceError prints the styled message, then the issue entry.
func renderServiceError(w io.Writer, svcErr *ServiceError, stylePath string) {
	if svcErr == nil {
		return
	}

	if svcErr.StyledMessage != "" {
		fmt.Fprint(w, svcErr.StyledMessage)
	}

	if svcErr.IssueID == 0 {
		return
	}

	if catalogEntry := issue.Get(svcErr.IssueID); catalogEntry != nil {
		rendered, renderErr := catalogEntry.Render(stylePath)
		if renderErr != nil {
			slog.Warn("failed to render issue catalog entry", "issueID", svcErr.IssueID, "error", renderErr)
			return
		}
		fmt.Fprint(w, rendered)
	}
}
