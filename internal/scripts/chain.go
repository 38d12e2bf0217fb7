// SPDX-License-Identifier: MPL-2.0

package scripts

import (
	"slices"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

var (
	// packageManagers are the clients whose "run <script>" form is rewritten
	// into an orchestrator invocation.
	packageManagers = []string{"npm", "pnpm", "yarn"}
	runSubcommands  = []string{"run", "run-script"}

	// commandKeywords open a compound or declaration clause when they appear
	// in command position. Scripts use them as program names ("time jest",
	// "do something"), so they are masked before parsing.
	commandKeywords = []string{
		"case", "coproc", "declare", "do", "done", "elif", "else", "esac",
		"export", "fi", "for", "function", "if", "let", "local", "nameref",
		"readonly", "select", "then", "time", "typeset", "until", "while",
	}
)

type (
	// step is one simple command of an "&&" chain, located by byte offsets
	// into the original script.
	step struct {
		// text runs from the first assignment of the step to its last word.
		text string
		// end is the offset just past the last word.
		end   int
		words []wordSpan
	}

	wordSpan struct {
		start int
		// lit is the literal value of the word, or "" when it contains
		// quotes or expansions.
		lit string
	}

	// indirection is a "<manager> run <target> [--] [args]" step.
	indirection struct {
		manager string
		target  string
		tail    []string
		// commandStart is the offset of the manager word.
		commandStart int
		// tailStart is the offset of the first forwarded argument, or -1.
		tailStart int
	}
)

// parseChain splits a script into the simple commands of an "&&" chain. Any
// other shell construct is refused with an UnsupportedSyntaxError: pipes,
// "||", redirections, background jobs, negation, subshells and other compound
// commands, command or process substitution, and multiple statements.
// Statements made only of assignments are allowed ahead of the chain
// ("A=1; B=2; yarn build") and become part of its first step.
//
// Shell keywords in command position are plain commands here: "do something"
// is a call of "do", not the start of a loop body.
func parseChain(name, script string) ([]step, error) {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash))
	file, err := parser.Parse(strings.NewReader(maskKeywords(script)), name)
	if err != nil {
		return nil, unsupported(name, "cannot parse: "+err.Error())
	}
	if len(file.Stmts) == 0 {
		return nil, nil
	}

	prefixStart := -1
	last := file.Stmts[len(file.Stmts)-1]
	for _, stmt := range file.Stmts[:len(file.Stmts)-1] {
		if !isAssignmentOnly(stmt) {
			return nil, unsupported(name, "multiple statements")
		}
		if prefixStart < 0 {
			prefixStart = offset(stmt.Pos())
		}
	}

	var calls []*syntax.CallExpr
	if err := flattenAnd(name, last, &calls); err != nil {
		return nil, err
	}

	steps := make([]step, 0, len(calls))
	for i, call := range calls {
		st := newStep(script, call)
		if i == 0 && prefixStart >= 0 {
			st.text = script[prefixStart:st.end]
		}
		steps = append(steps, st)
	}
	return steps, nil
}

func flattenAnd(name string, stmt *syntax.Stmt, out *[]*syntax.CallExpr) error {
	switch {
	case stmt.Negated:
		return unsupported(name, "negated command")
	case stmt.Background, stmt.Coprocess:
		return unsupported(name, "background command")
	case len(stmt.Redirs) > 0:
		return unsupported(name, "redirection")
	}

	switch cmd := stmt.Cmd.(type) {
	case *syntax.BinaryCmd:
		switch cmd.Op {
		case syntax.AndStmt:
			if err := flattenAnd(name, cmd.X, out); err != nil {
				return err
			}
			return flattenAnd(name, cmd.Y, out)
		case syntax.OrStmt:
			return unsupported(name, "|| operator")
		default:
			return unsupported(name, "pipe")
		}
	case *syntax.CallExpr:
		if reason := substitution(cmd); reason != "" {
			return unsupported(name, reason)
		}
		*out = append(*out, cmd)
		return nil
	default:
		return unsupported(name, "compound command")
	}
}

func substitution(call *syntax.CallExpr) string {
	reason := ""
	syntax.Walk(call, func(node syntax.Node) bool {
		switch node.(type) {
		case *syntax.CmdSubst:
			reason = "command substitution"
		case *syntax.ProcSubst:
			reason = "process substitution"
		}
		return reason == ""
	})
	return reason
}

func isAssignmentOnly(stmt *syntax.Stmt) bool {
	call, ok := stmt.Cmd.(*syntax.CallExpr)
	return ok && len(call.Args) == 0 && len(call.Assigns) > 0 &&
		len(stmt.Redirs) == 0 && !stmt.Negated && !stmt.Background && !stmt.Coprocess &&
		substitution(call) == ""
}

func newStep(script string, call *syntax.CallExpr) step {
	start, end := offset(call.Pos()), offset(call.End())
	st := step{text: script[start:end], end: end}
	for _, w := range call.Args {
		span := wordSpan{start: offset(w.Pos())}
		// The parsed text may be masked; literals come from the script.
		if w.Lit() != "" {
			span.lit = script[span.start:offset(w.End())]
		}
		st.words = append(st.words, span)
	}
	return st
}

// maskKeywords replaces the first byte of every unquoted keyword in command
// position with "_", so the parser reads it as an ordinary command name.
// The result has the same length as script and all offsets stay valid.
func maskKeywords(script string) string {
	masked := []byte(script)
	atCommand := true
	for i := 0; i < len(script); {
		switch c := script[i]; c {
		case ' ', '\t':
			i++
		case '\n', ';', '&', '|', '(':
			atCommand = true
			i++
		case ')', '<', '>':
			atCommand = false
			i++
		case '#':
			return string(masked)
		default:
			end, plain := scanWord(script, i)
			if atCommand {
				word := script[i:end]
				if plain && slices.Contains(commandKeywords, word) {
					masked[i] = '_'
				}
				// Assignments keep the next word in command position.
				_, _, isAssign := parseAssignment(word)
				atCommand = isAssign
			}
			i = end
		}
	}
	return string(masked)
}

// scanWord returns the end of the shell word starting at i and whether the
// word is free of quotes, escapes and expansions.
func scanWord(script string, i int) (end int, plain bool) {
	plain = true
	for i < len(script) {
		switch c := script[i]; c {
		case ' ', '\t', '\n', ';', '&', '|', '(', ')', '<', '>':
			return i, plain
		case '\\':
			plain = false
			i += 2
		case '\'', '"', '`':
			plain = false
			i = closingQuote(script, i)
		case '$':
			plain = false
			i++
		default:
			i++
		}
	}
	return len(script), plain
}

// closingQuote returns the offset just past the quote that closes the one
// opened at i, or len(script) when it is unterminated.
func closingQuote(script string, i int) int {
	quote := script[i]
	for j := i + 1; j < len(script); j++ {
		switch script[j] {
		case '\\':
			if quote != '\'' {
				j++
			}
		case quote:
			return j + 1
		}
	}
	return len(script)
}

// command returns the literal command word of the step, if any.
func (s step) command() string {
	if len(s.words) == 0 {
		return ""
	}
	return s.words[0].lit
}

// indirection reports whether the step runs another script of the same
// manifest through a package manager.
func (s step) indirection(script string) (indirection, bool) {
	if len(s.words) < 3 ||
		!slices.Contains(packageManagers, s.words[0].lit) ||
		!slices.Contains(runSubcommands, s.words[1].lit) {
		return indirection{}, false
	}
	target := s.words[2].lit
	if target == "" || strings.HasPrefix(target, "-") {
		return indirection{}, false
	}

	ind := indirection{
		manager:      s.words[0].lit,
		target:       target,
		commandStart: s.words[0].start,
		tailStart:    -1,
	}
	tail := s.words[3:]
	if len(tail) > 0 && tail[0].lit == "--" {
		tail = tail[1:]
	}
	if len(tail) > 0 {
		ind.tailStart = tail[0].start
		ind.tail = Tokenize(script[ind.tailStart:s.end])
	}
	return ind, true
}

func offset(p syntax.Pos) int {
	return int(p.Offset())
}

func unsupported(name, reason string) error {
	return &UnsupportedSyntaxError{Script: name, Reason: reason}
}
