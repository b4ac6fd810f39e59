package rewrite

import sitter "github.com/smacker/go-tree-sitter"

// Binding is the narrow surface the rule engine needs from a
// per-language tree-sitter plugin. Concrete implementations live in
// v1/lang; this interface exists so v1/rewrite never imports v1/lang
// (the language registry is an external collaborator per spec.md
// section 1, not part of the hard core).
type Binding interface {
	// Name identifies the language, e.g. "go", "python", "java".
	Name() string

	// SitterLanguage returns the compiled tree-sitter grammar used to
	// parse source and compile queries.
	SitterLanguage() *sitter.Language

	// Parse parses content, reusing old as an incremental-reparse hint
	// when old is non-nil and has already had its edits applied via
	// Tree.Edit.
	Parse(old *sitter.Tree, content []byte) (*sitter.Tree, error)
}
