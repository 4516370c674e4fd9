// errors.go: structured template errors and caret-snippet rendering
//
// What this file does
// -------------------
// Every failure the engine can produce is a *Error carrying a Kind tag, the
// template name and 1-based source line, and (for render errors crossing
// include boundaries) the chain of enclosing template frames. Unknown
// variable errors additionally carry fuzzy-matched candidate names from the
// visible scope.
//
// Parse-stage diagnostics start life as *LexError (lexer.go) or *ParseError
// (declared below, raised by parser.go and expr.go); the template parse boundary converts
// them to *Error with Kind ErrParse. `FormatErrorSnippet` renders any of the
// three against the original source as a plain-text snippet with a caret
// under the offending column:
//
//	parse error in page.tmpl at 3:10: unexpected token ")"
//
//	   2 | {% if a == 1 %}
//	   3 | {% endif ) %}
//	     |          ^
//	   4 | done
//
// Render-time faults inside the tree walk travel as panics with a private
// sentinel and are recovered into *Error at the public render boundary; see
// render.go.
package tmpl

import (
	"fmt"
	"strings"

	"github.com/sahilm/fuzzy"
)

/* ===========================
   PUBLIC API
   =========================== */

// ErrorKind tags the failure class of an Error.
type ErrorKind int

const (
	ErrParse ErrorKind = iota
	ErrUnknownVariable
	ErrType
	ErrIndex
	ErrArithmetic
	ErrUser
	ErrNotFound
	ErrAbort
	ErrInternal
)

func (k ErrorKind) String() string {
	switch k {
	case ErrParse:
		return "parse error"
	case ErrUnknownVariable:
		return "unknown variable"
	case ErrType:
		return "type error"
	case ErrIndex:
		return "index error"
	case ErrArithmetic:
		return "arithmetic error"
	case ErrUser:
		return "user error"
	case ErrNotFound:
		return "not found"
	case ErrAbort:
		return "render aborted"
	case ErrInternal:
		return "internal error"
	}
	return "error"
}

// ErrorFrame is one entry of the include chain, innermost caller first.
type ErrorFrame struct {
	Template string
	Line     int
}

// Error is the engine's error type.
type Error struct {
	Kind     ErrorKind
	Msg      string
	Template string
	Line     int

	// Chain holds the enclosing include frames when the error crossed
	// template boundaries, innermost caller first.
	Chain []ErrorFrame

	// Suggestions holds close variable names for ErrUnknownVariable.
	Suggestions []string
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Kind, e.Msg)
	if e.Template != "" || e.Line > 0 {
		fmt.Fprintf(&b, " on: %s:%d", e.Template, e.Line)
	}
	if len(e.Suggestions) > 0 {
		fmt.Fprintf(&b, " (did you mean %s?)", quoteList(e.Suggestions))
	}
	for _, f := range e.Chain {
		fmt.Fprintf(&b, "\n  included from %s:%d", f.Template, f.Line)
	}
	return b.String()
}

// IsKind reports whether err is a template *Error of the given kind.
func IsKind(err error, k ErrorKind) bool {
	e, ok := err.(*Error)
	return ok && e.Kind == k
}

// ParseError reports a structural failure while parsing tag contents. Col is
// 0 when only the line is known.
type ParseError struct {
	Line int
	Col  int
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse error at %d:%d: %s", e.Line, e.Col, e.Msg)
}

// FormatErrorSnippet renders err against its source with line context and a
// caret. It recognizes *LexError, *ParseError and *Error; anything else is
// returned via err.Error() unchanged.
func FormatErrorSnippet(err error, name, src string) string {
	switch e := err.(type) {
	case *LexError:
		return prettySnippet(src, "lex error", name, e.Line, e.Col, e.Msg)
	case *ParseError:
		return prettySnippet(src, "parse error", name, e.Line, e.Col, e.Msg)
	case *Error:
		return prettySnippet(src, e.Kind.String(), name, e.Line, 0, e.Msg)
	default:
		return err.Error()
	}
}

//// END_OF_PUBLIC

/* ===========================
   PRIVATE: construction helpers
   =========================== */

// parseErrAt converts a lexer/parser diagnostic into the engine error type.
func parseErrAt(err error, template string) *Error {
	switch e := err.(type) {
	case *LexError:
		return &Error{Kind: ErrParse, Msg: e.Msg, Template: template, Line: e.Line}
	case *ParseError:
		return &Error{Kind: ErrParse, Msg: e.Msg, Template: template, Line: e.Line}
	case *Error:
		return e
	default:
		return &Error{Kind: ErrParse, Msg: err.Error(), Template: template}
	}
}

// suggestionLimit caps how many candidate names an unknown-variable error
// carries.
const suggestionLimit = 3

func suggestNames(name string, candidates []string) []string {
	matches := fuzzy.Find(name, candidates)
	var out []string
	for _, m := range matches {
		out = append(out, m.Str)
		if len(out) == suggestionLimit {
			break
		}
	}
	return out
}

func quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = "'" + n + "'"
	}
	return strings.Join(quoted, " or ")
}

// prettySnippet builds the caret-annotated context block. Coordinates are
// 1-based and clamped to the source bounds; col 0 suppresses the caret line.
func prettySnippet(src, header, name string, line, col int, msg string) string {
	lines := strings.Split(src, "\n")
	if line < 1 {
		line = 1
	}
	if len(lines) == 0 {
		lines = []string{""}
	}
	if line > len(lines) {
		line = len(lines)
	}

	var b strings.Builder
	if name != "" {
		fmt.Fprintf(&b, "%s in %s at %d:%d: %s\n\n", header, name, line, col, msg)
	} else {
		fmt.Fprintf(&b, "%s at %d:%d: %s\n\n", header, line, col, msg)
	}
	if line > 1 {
		fmt.Fprintf(&b, "%4d | %s\n", line-1, lines[line-2])
	}
	fmt.Fprintf(&b, "%4d | %s\n", line, lines[line-1])
	if col > 0 {
		fmt.Fprintf(&b, "     | %s^\n", strings.Repeat(" ", col-1))
	}
	if line < len(lines) {
		fmt.Fprintf(&b, "%4d | %s\n", line+1, lines[line])
	}
	return b.String()
}
