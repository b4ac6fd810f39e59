package rewrite

import (
	"fmt"
	"sort"
	"strings"
)

// Code identifies the kind of failure raised by the rule engine. See
// spec.md section 7 for the policy associated with each code.
type Code string

const (
	// ConfigErr is raised when a TOML config file is malformed, an edge
	// references an unknown rule name, or an edge names an unknown
	// scope kind. Fatal at load.
	ConfigErr Code = "codegraft_config_error"

	// UnboundHoleErr is raised when instantiating a rule leaves an @name
	// hole unresolved. Local: the rule is skipped at this site.
	UnboundHoleErr Code = "codegraft_unbound_hole"

	// QueryCompileErr is raised when a query string is syntactically
	// invalid for the target language. Fatal: the rule is broken.
	QueryCompileErr Code = "codegraft_query_compile_error"

	// PostEditParseErr is raised when a source file fails to reparse
	// after a splice. Local: the edit is reverted and the file
	// continues with the next match.
	PostEditParseErr Code = "codegraft_post_edit_parse_error"

	// InvalidEditRangeErr is raised when an edit's byte range falls
	// outside the current text. Fatal: this is a programmer error.
	InvalidEditRangeErr Code = "codegraft_invalid_edit_range"

	// InterruptedErr names an external cancellation observed between
	// edits. The driver itself reports cancellation through
	// Summary.Interrupted and does not produce an error with this code.
	InterruptedErr Code = "codegraft_interrupted"
)

// Location pinpoints a byte offset within a source file for diagnostic
// purposes. Row/Col are zero-based, matching tree-sitter points.
type Location struct {
	File string
	Row  int
	Col  int
}

func (loc *Location) String() string {
	if loc == nil {
		return ""
	}
	if loc.File == "" {
		return fmt.Sprintf("%d:%d", loc.Row+1, loc.Col+1)
	}
	return fmt.Sprintf("%s:%d:%d", loc.File, loc.Row+1, loc.Col+1)
}

// Error is a single diagnostic produced by the rule engine.
type Error struct {
	Code     Code
	Message  string
	Location *Location
	// RuleName names the rule that caused this error, when applicable.
	RuleName string
}

// NewError returns a new Error with the given code, location and
// formatted message.
func NewError(code Code, loc *Location, f string, a ...any) *Error {
	return &Error{
		Code:     code,
		Message:  fmt.Sprintf(f, a...),
		Location: loc,
	}
}

func (e *Error) Error() string {
	var buf strings.Builder
	if loc := e.Location.String(); loc != "" {
		buf.WriteString(loc)
		buf.WriteString(": ")
	}
	buf.WriteString(string(e.Code))
	buf.WriteString(": ")
	buf.WriteString(e.Message)
	if e.RuleName != "" {
		fmt.Fprintf(&buf, " (rule %q)", e.RuleName)
	}
	return buf.String()
}

// Fatal reports whether this error's code should abort the run, per
// spec.md section 7's policy column.
func (e *Error) Fatal() bool {
	switch e.Code {
	case ConfigErr, QueryCompileErr, InvalidEditRangeErr:
		return true
	default:
		return false
	}
}

// Errors is a collection of diagnostics, sortable for stable output.
type Errors []*Error

func (e Errors) Error() string {
	if len(e) == 0 {
		return "no errors"
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	s := make([]string, len(e))
	sorted := e.Sorted()
	for i, err := range sorted {
		s[i] = err.Error()
	}
	return fmt.Sprintf("%d errors occurred:\n%s", len(e), strings.Join(s, "\n"))
}

// Sorted returns a copy of e sorted by file, then row, then column.
func (e Errors) Sorted() Errors {
	cpy := make(Errors, len(e))
	copy(cpy, e)
	sort.SliceStable(cpy, func(i, j int) bool {
		a, b := cpy[i].Location, cpy[j].Location
		if a == nil || b == nil {
			return b == nil && a != nil
		}
		if a.File != b.File {
			return a.File < b.File
		}
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.Col < b.Col
	})
	return cpy
}

// Fatal reports whether any error in the collection is fatal.
func (e Errors) Fatal() bool {
	for _, err := range e {
		if err.Fatal() {
			return true
		}
	}
	return false
}
