// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/glamour"
)

const (
	ManifestNotFoundId Id = iota + 1
	ManifestInvalidId
	ConfigLoadFailedId
	OutputOutsideProjectId
	EmptyCommandId
	UnsupportedScriptId
	DependencyCycleId
	ShasumMismatchId
)

type (
	// Id identifies an issue catalog entry.
	Id int

	// MarkdownMsg is the markdown body of an issue.
	MarkdownMsg string

	// HttpLink is a documentation or external link.
	HttpLink string

	// Issue is a catalog entry with markdown remediation guidance.
	Issue struct {
		id       Id
		mdMsg    MarkdownMsg
		docLinks []HttpLink
		extLinks []HttpLink
	}
)

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the issue with the given glamour style ("dark", "light",
// "notty", or a path to a JSON style file).
func (i *Issue) Render(stylePath string) (string, error) {
	var md strings.Builder
	md.WriteString(string(i.mdMsg))
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		md.WriteString("\n\n## See also\n")
		for _, link := range append(i.DocLinks(), i.extLinks...) {
			md.WriteString("- <" + string(link) + ">\n")
		}
	}
	return render(md.String(), stylePath)
}

var (
	render = glamour.Render

	manifestNotFoundIssue = &Issue{
		id: ManifestNotFoundId,
		mdMsg: `
# No package.json found!

Script inference reads the ` + "`scripts`" + ` member of a project's package.json.

## Things you can try:
- Run the command from the project directory
- Pass the project directory explicitly:
~~~
$ monorun convert ./packages/web
~~~`,
		extLinks: []HttpLink{"https://docs.npmjs.com/cli/configuring-npm/package-json#scripts"},
	}

	manifestInvalidIssue = &Issue{
		id: ManifestInvalidId,
		mdMsg: `
# The package.json could not be parsed!

The manifest must be a JSON object. Trailing commas and comments are not valid JSON.

## Things you can try:
- Validate the file with your package manager:
~~~
$ npm pkg get name
~~~`,
	}

	configLoadFailedIssue = &Issue{
		id: ConfigLoadFailedId,
		mdMsg: `
# Failed to load configuration!

The configuration file is written in CUE and validated against a schema.

## Things you can try:
- Print the effective configuration:
~~~
$ monorun config show
~~~
- Regenerate a default file:
~~~
$ monorun config init
~~~`,
	}

	outputOutsideProjectIssue = &Issue{
		id: OutputOutsideProjectId,
		mdMsg: `
# A script writes outside its project!

Outputs detected from flags such as ` + "`--out-dir`" + ` must be relative to the project
root. Paths starting with ` + "`../`" + ` or an absolute root cannot be cached per project.

## Things you can try:
- Point the flag at a directory inside the project, for example ` + "`--outDir dist`" + `
- Move the script to the project that owns the output`,
	}

	emptyCommandIssue = &Issue{
		id: EmptyCommandId,
		mdMsg: `
# A script only sets environment variables!

A script such as ` + "`NODE_ENV=production`" + ` has no command to run once its
environment prefix is removed.

## Things you can try:
- Add the command the variables were meant for
- Remove the empty script from package.json`,
	}

	unsupportedScriptIssue = &Issue{
		id: UnsupportedScriptId,
		mdMsg: `
# Some scripts were left in package.json

Pipes, redirects, ` + "`||`" + `, subshells and ` + "`cd`" + ` cannot be modeled as tasks.
These scripts keep running through the package manager.

## Things you can try:
- Move the logic into a script file and call it: ` + "`bash scripts/release.sh`" + `
- Split the script into smaller scripts joined with ` + "`&&`",
	}

	dependencyCycleIssue = &Issue{
		id: DependencyCycleId,
		mdMsg: `
# Dependency cycle detected!

The inferred tasks depend on each other in a loop, so no execution order exists.

## Things you can try:
- Check pre/post hooks that call back into the script they wrap`,
	}

	shasumMismatchIssue = &Issue{
		id: ShasumMismatchId,
		mdMsg: `
# Checksum verification failed!

The downloaded archive does not match the published SHASUMS256.txt entry and was removed.

## Things you can try:
- Retry the download
- Check for a proxy rewriting downloads`,
		extLinks: []HttpLink{"https://nodejs.org/dist/"},
	}

	issues = map[Id]*Issue{
		manifestNotFoundIssue.Id():     manifestNotFoundIssue,
		manifestInvalidIssue.Id():      manifestInvalidIssue,
		configLoadFailedIssue.Id():     configLoadFailedIssue,
		outputOutsideProjectIssue.Id(): outputOutsideProjectIssue,
		emptyCommandIssue.Id():         emptyCommandIssue,
		unsupportedScriptIssue.Id():    unsupportedScriptIssue,
		dependencyCycleIssue.Id():      dependencyCycleIssue,
		shasumMismatchIssue.Id():       shasumMismatchIssue,
	}
)

// Values returns all catalog entries ordered by id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, id := range slices.Sorted(maps.Keys(issues)) {
		out = append(out, issues[id])
	}
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
