package rewrite

import "strings"

// Env is a substitution environment: a mapping from tag name (without
// the leading '@') to a captured literal string. Three layers compose
// at read time: process-level input substitutions, global tags
// accumulated across the run, and per-match captures from the current
// rule firing. See spec.md section 3 and
// original_source/polyglot/piranha/src/models/rule_store.rs's
// default_substitutions for the layering this mirrors.
type Env map[string]string

// Merge returns a new Env containing every entry of e, overridden by
// every entry of with. The receiver is left unmodified.
func (e Env) Merge(with Env) Env {
	out := make(Env, len(e)+len(with))
	for k, v := range e {
		out[k] = v
	}
	for k, v := range with {
		out[k] = v
	}
	return out
}

// Clone returns a shallow copy of e.
func (e Env) Clone() Env {
	return e.Merge(nil)
}

// UnboundHole is returned by Render when a template references a tag
// that is not present in the environment.
type UnboundHole struct {
	Name string
}

func (u *UnboundHole) Error() string {
	return "unbound hole: @" + u.Name
}

// Render substitutes every "@name" occurrence in template with its
// bound value from env. It fails with *UnboundHole the first time it
// encounters a hole with no binding. Rendering is pure: it never
// mutates env or template's backing storage.
func Render(template string, env Env) (string, error) {
	var out strings.Builder
	out.Grow(len(template))

	i := 0
	for i < len(template) {
		c := template[i]
		if c != '@' {
			out.WriteByte(c)
			i++
			continue
		}
		j := i + 1
		for j < len(template) && isTagByte(template[j]) {
			j++
		}
		if j == i+1 {
			// Lone '@' with no identifier after it; copy verbatim.
			out.WriteByte(c)
			i++
			continue
		}
		name := template[i+1 : j]
		val, ok := env[name]
		if !ok {
			return "", &UnboundHole{Name: name}
		}
		out.WriteString(val)
		i = j
	}
	return out.String(), nil
}

// RenderQuery substitutes "@name" occurrences the same way Render
// does, but only when they appear inside a double-quoted string
// literal. Query text, filter matchers, and filter sub-queries are
// tree-sitter structural patterns, and tree-sitter's own syntax uses
// unquoted "@name" to annotate a capture group (e.g. "(identifier)
// @flag"). Those capture annotations must pass through untouched —
// they are bound by running the query, not by this environment — so
// only a hole written inside quotes (e.g. a literal value compared
// with an #eq? predicate, `(#eq? @flag "@stale_flag_name")`) is
// treated as a substitution. See DESIGN.md for why Query and Replace
// need different rendering rules despite spec.md describing both as
// "rendered against env".
func RenderQuery(template string, env Env) (string, error) {
	var out strings.Builder
	out.Grow(len(template))

	inString := false
	i := 0
	for i < len(template) {
		c := template[i]
		if c == '"' {
			inString = !inString
			out.WriteByte(c)
			i++
			continue
		}
		if c != '@' || !inString {
			out.WriteByte(c)
			i++
			continue
		}
		j := i + 1
		for j < len(template) && isTagByte(template[j]) {
			j++
		}
		if j == i+1 {
			out.WriteByte(c)
			i++
			continue
		}
		name := template[i+1 : j]
		val, ok := env[name]
		if !ok {
			return "", &UnboundHole{Name: name}
		}
		out.WriteString(val)
		i = j
	}
	return out.String(), nil
}

// Holes returns every distinct "@name" tag referenced in template, in
// order of first appearance.
func Holes(template string) []string {
	seen := map[string]bool{}
	var out []string
	i := 0
	for i < len(template) {
		if template[i] != '@' {
			i++
			continue
		}
		j := i + 1
		for j < len(template) && isTagByte(template[j]) {
			j++
		}
		if j > i+1 {
			name := template[i+1 : j]
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
		i = j
	}
	return out
}

func isTagByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}
