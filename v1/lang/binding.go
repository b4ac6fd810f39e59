// Package lang provides the concrete tree-sitter language bindings
// codegraft ships with, and a small registry for looking one up by
// name (as referenced from piranha_arguments.toml's "language" key,
// spec.md section 6).
package lang

import (
	"sort"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/codegraft/codegraft/v1/rewrite"
)

// binding is the shared implementation of rewrite.Binding for any
// tree-sitter grammar: construction only needs the grammar's
// *sitter.Language and its canonical name.
type binding struct {
	name string
	sl   *sitter.Language
}

func (b *binding) Name() string                      { return b.name }
func (b *binding) SitterLanguage() *sitter.Language   { return b.sl }

// Parse parses content, reusing old as an incremental hint when
// non-nil. This is the one method every concrete language shares
// verbatim; grammars differ only in which *sitter.Language they hand
// to newBinding.
func (b *binding) Parse(old *sitter.Tree, content []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(b.sl)
	if old != nil {
		return parser.ParseCtx(nil, old, content)
	}
	return parser.ParseCtx(nil, nil, content)
}

func newBinding(name string, sl *sitter.Language) rewrite.Binding {
	return &binding{name: name, sl: sl}
}

// registry maps a language name, as it appears in
// piranha_arguments.toml, to its binding.
var registry = map[string]rewrite.Binding{}

func register(b rewrite.Binding) {
	registry[b.Name()] = b
}

// Lookup returns the registered Binding for name, or an error wrapping
// rewrite.ConfigErr if no such language is registered.
func Lookup(name string) (rewrite.Binding, error) {
	b, ok := registry[name]
	if !ok {
		return nil, rewrite.NewError(rewrite.ConfigErr, nil, "unknown language %q", name)
	}
	return b, nil
}

// Names returns the sorted list of registered language names, for use
// in CLI help text and config validation errors.
func Names() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// extensions maps a registered language name to the file extensions
// cmd/codegraft walks a directory for when that language is selected.
var extensions = map[string][]string{
	"go":     {".go"},
	"python": {".py"},
	"java":   {".java"},
}

// Extensions returns the file extensions (including the leading dot)
// associated with name, or nil if name is not registered.
func Extensions(name string) []string {
	return extensions[name]
}
