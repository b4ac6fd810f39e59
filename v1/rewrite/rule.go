package rewrite

import sitter "github.com/smacker/go-tree-sitter"

// Relation names the four filter predicate kinds from spec.md section
// 3: a filter either requires a sub-query to match somewhere inside
// (or enclosing) the candidate's range, or requires that it does not.
type Relation string

const (
	RelationContains       Relation = "contains"
	RelationNotContains    Relation = "not-contains"
	RelationEnclosing      Relation = "enclosing"
	RelationNotEnclosing   Relation = "not-enclosing"
)

// Filter is one predicate a candidate match must satisfy to survive.
// Matcher optionally narrows the region searched (e.g. "the enclosing
// method") before Queries are evaluated against it; when Matcher is
// empty the candidate's own range is used. Queries is evaluated as an
// alternation: for Contains/Enclosing relations the filter is
// satisfied if any query matches; for NotContains/NotEnclosing it is
// satisfied only if none do. See DESIGN.md for why a list is OR'd.
type Filter struct {
	Matcher  string
	Queries  []string
	Relation Relation
}

// Rule is an immutable rewrite pattern: a structural query, optional
// filters, a replacement template (or "" for match-only), and the tag
// bookkeeping needed to propagate along a RuleGraph.
type Rule struct {
	Name string

	// Query is the structural query string that locates candidate
	// sites. Empty for dummy rules.
	Query string

	// ReplaceNode names the capture tag whose range is the edit
	// target. For a match-only rule (Replace == "") it still selects
	// the range reported for each match.
	ReplaceNode string

	// Replace is the replacement template. Empty marks this rule as
	// match-only: matches are still discovered and reported, but no
	// edit is ever applied (spec.md section 8 scenario 5).
	Replace string

	// Filters must all pass for a candidate to survive (spec.md
	// section 4.3 step 3).
	Filters []Filter

	// Holes lists tag names that must already be bound in the
	// environment before this rule is even attempted, independent of
	// whether they are textually referenced by Query/Replace.
	Holes []string

	// Groups is the membership set; the distinguished member "seed"
	// marks this rule as a starting point for global scans.
	Groups []string

	// RequiresTags lists capture tag names that must be bound in a
	// match's Captures for the match to survive (spec.md section 4.3
	// step 4). See DESIGN.md for why this is distinct from Holes.
	RequiresTags []string
}

// IsDummy reports whether r is a graph relay: no query, no
// replacement. Dummies never match anything themselves; RuleGraph.Next
// transparently expands their outgoing edges (spec.md section 4.6).
func (r *Rule) IsDummy() bool {
	return r.Query == "" && r.Replace == ""
}

// IsSeed reports whether r belongs to the "seed" group.
func (r *Rule) IsSeed() bool {
	return r.InGroup("seed")
}

// InGroup reports whether r carries the named group membership.
func (r *Rule) InGroup(name string) bool {
	for _, g := range r.Groups {
		if g == name {
			return true
		}
	}
	return false
}

// IsMatchOnly reports whether r never produces an edit.
func (r *Rule) IsMatchOnly() bool {
	return r.Replace == ""
}

// Instantiate renders the string-valued fields of r (query, filter
// sub-queries, and — best effort — the replacement template) against
// env and returns a new, independent Rule. The receiver is never
// mutated (spec.md section 4.1, testable property 3: instantiation is
// pure). Instantiation fails with *UnboundHole the first time a
// declared Hole has no binding, or a referenced tag in Query or a
// filter sub-query has no binding; an unresolved tag in Replace is not
// fatal here, since Replace may legitimately reference a tag this
// rule's own Query is about to capture (see DESIGN.md).
func (r *Rule) Instantiate(env Env) (*Rule, error) {
	for _, hole := range r.Holes {
		if _, ok := env[hole]; !ok {
			return nil, &UnboundHole{Name: hole}
		}
	}

	out := &Rule{
		Name:         r.Name,
		ReplaceNode:  r.ReplaceNode,
		Holes:        r.Holes,
		Groups:       r.Groups,
		RequiresTags: r.RequiresTags,
	}

	var err error
	if out.Query, err = RenderQuery(r.Query, env); err != nil {
		return nil, err
	}

	// Replace is rendered best-effort here: env at this point is the
	// upstream environment (input substitutions, global tags, and —
	// for a graph-propagated rule — the firing rule's captures), which
	// covers a Replace template that only references upstream tags
	// (e.g. a propagated "@arg"). A Replace that instead references a
	// tag this rule's own Query will capture (e.g. "@then" in an
	// if-simplification rule) cannot resolve yet; the driver
	// (engine.applyMatch) renders it against the match's own captures
	// once the query has actually run. Only an UnboundHole is swallowed here — any other
	// error (malformed template) still fails instantiation.
	if rendered, rerr := Render(r.Replace, env); rerr == nil {
		out.Replace = rendered
	} else if _, isUnbound := rerr.(*UnboundHole); isUnbound {
		out.Replace = r.Replace
	} else {
		return nil, rerr
	}

	out.Filters = make([]Filter, len(r.Filters))
	for i, f := range r.Filters {
		nf := Filter{Relation: f.Relation}
		if nf.Matcher, err = RenderQuery(f.Matcher, env); err != nil {
			return nil, err
		}
		nf.Queries = make([]string, len(f.Queries))
		for j, q := range f.Queries {
			if nf.Queries[j], err = RenderQuery(q, env); err != nil {
				return nil, err
			}
		}
		out.Filters[i] = nf
	}
	return out, nil
}

// RenderedEqual reports whether two already-instantiated rules are
// structurally identical (same name and every rendered string field
// equal). This is the equality used for global-worklist
// deduplication; spec.md section 9's open question (a) calls out that
// this is over rendered strings, not over (name, captures).
func (r *Rule) RenderedEqual(other *Rule) bool {
	if r.Name != other.Name || r.Query != other.Query || r.Replace != other.Replace || r.ReplaceNode != other.ReplaceNode {
		return false
	}
	if len(r.Filters) != len(other.Filters) {
		return false
	}
	for i := range r.Filters {
		a, b := r.Filters[i], other.Filters[i]
		if a.Matcher != b.Matcher || a.Relation != b.Relation || len(a.Queries) != len(b.Queries) {
			return false
		}
		for j := range a.Queries {
			if a.Queries[j] != b.Queries[j] {
				return false
			}
		}
	}
	return true
}

// MatchRule runs rule against unit, restricted to the given range when
// restrict is true, following the contract in spec.md section 4.3:
// instantiate, query, filter, check constraint tags, and return
// document-ordered survivors. baseEnv supplies the substitution layers
// that precede the rule's own captures (input substitutions and
// global tags); it does not include any per-match captures.
func MatchRule(cache *QueryCache, rule *Rule, unit *SourceCodeUnit, baseEnv Env, restrict bool, start, end uint32) ([]Match, error) {
	inst, err := rule.Instantiate(baseEnv.Merge(unit.Substitutions))
	if err != nil {
		return nil, nil // unbound hole: yield no matches, not an error (spec.md 4.3 step 1)
	}

	cq, err := cache.Query(inst.Query)
	if err != nil {
		return nil, err
	}

	root := unit.Tree.RootNode()
	raw, err := runQuery(cq, unit.Text, root, restrict, start, end, inst.ReplaceNode)
	if err != nil {
		return nil, err
	}

	var survivors []Match
	for _, m := range raw {
		m.RuleName = rule.Name
		ok, err := evaluateFilters(cache, inst.Filters, unit, m)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		if !hasRequiredTags(inst.RequiresTags, m.Captures) {
			continue
		}
		survivors = append(survivors, m)
	}
	return survivors, nil
}

func hasRequiredTags(required []string, captures Env) bool {
	for _, tag := range required {
		if _, ok := captures[tag]; !ok {
			return false
		}
	}
	return true
}

func evaluateFilters(cache *QueryCache, filters []Filter, unit *SourceCodeUnit, candidate Match) (bool, error) {
	for _, f := range filters {
		ok, err := evaluateFilter(cache, f, unit, candidate)
		if err != nil {
			return false, err
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

func evaluateFilter(cache *QueryCache, f Filter, unit *SourceCodeUnit, candidate Match) (bool, error) {
	region := candidate.Range
	if f.Matcher != "" {
		matcherCq, err := cache.Query(f.Matcher)
		if err != nil {
			return false, err
		}
		// Matcher and Queries were rendered once, by Instantiate,
		// against the rule's base environment; the candidate's own
		// captures are not substituted into them.
		root := unit.Tree.RootNode()
		matches, err := runQuery(matcherCq, unit.Text, root, true, candidate.Range.StartByte, candidate.Range.EndByte, "")
		if err != nil {
			return false, err
		}
		if len(matches) == 0 {
			region = candidate.Range
		} else {
			region = matches[0].Range
		}
	}

	anyMatched := false
	for _, q := range f.Queries {
		cq, err := cache.Query(q)
		if err != nil {
			return false, err
		}
		var root *sitter.Node
		var start, end uint32
		switch f.Relation {
		case RelationEnclosing, RelationNotEnclosing:
			// Search the whole tree for a match that encloses region.
			root = unit.Tree.RootNode()
			matches, err := runQuery(cq, unit.Text, root, false, 0, 0, "")
			if err != nil {
				return false, err
			}
			for _, m := range matches {
				if m.Range.StartByte <= region.StartByte && m.Range.EndByte >= region.EndByte {
					anyMatched = true
					break
				}
			}
		default: // RelationContains, RelationNotContains
			root = unit.Tree.RootNode()
			start, end = region.StartByte, region.EndByte
			matches, err := runQuery(cq, unit.Text, root, true, start, end, "")
			if err != nil {
				return false, err
			}
			if len(matches) > 0 {
				anyMatched = true
			}
		}
		if anyMatched {
			break
		}
	}

	switch f.Relation {
	case RelationContains, RelationEnclosing:
		return anyMatched, nil
	case RelationNotContains, RelationNotEnclosing:
		return !anyMatched, nil
	default:
		return false, NewError(ConfigErr, nil, "unknown filter relation %q", f.Relation)
	}
}
