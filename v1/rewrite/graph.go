package rewrite

// Edge is a directed triple (from, to, scope) describing how firing
// "from" can trigger "to" within the named propagation scope (spec.md
// section 3).
type Edge struct {
	From  string
	To    string
	Scope Scope
}

// RuleGraph is the adjacency of a rule's outgoing edges, keyed by rule
// name. It holds no reference to Rule values themselves — per spec.md
// section 9's design note, cyclic references among rules are expressed
// as indices into a name-keyed table rather than owning pointers, so
// rules stay cheaply clonable for instantiation.
type RuleGraph struct {
	adj map[string][]Edge
}

// NewRuleGraph builds a RuleGraph from a flat edge list. An edge whose
// "to" field names more than one rule (as edges.toml allows) should
// already have been expanded into one Edge per target by the caller
// (see v1/config).
func NewRuleGraph(edges []Edge) *RuleGraph {
	g := &RuleGraph{adj: make(map[string][]Edge)}
	for _, e := range edges {
		g.adj[e.From] = append(g.adj[e.From], e)
	}
	return g
}

// Neighbors returns the raw outgoing edges of ruleName, in declared
// order (spec.md section 5: "among edges sharing a scope, iteration
// order follows the declared edge order in the configuration").
func (g *RuleGraph) Neighbors(ruleName string) []Edge {
	return g.adj[ruleName]
}

// NumEdges returns the total number of edges in the graph, used for
// diagnostics at store construction (mirrors
// rule_store.rs::new's "Number of rules and edges loaded" log line).
func (g *RuleGraph) NumEdges() int {
	n := 0
	for _, edges := range g.adj {
		n += len(edges)
	}
	return n
}

// RulesByName looks up rules by name; the engine never holds owning
// pointers between Rule values, only this table (spec.md section 9).
type RulesByName map[string]*Rule

// Next computes the map of scope to instantiated next-rules reachable
// from ruleName, per spec.md section 4.6: a dummy target is
// transparently expanded into its own outgoing edges (which carry
// their own declared scope, not the scope of the edge that reached the
// dummy), while a non-dummy target is instantiated against env and
// grouped under its edge's scope. The result always contains the keys
// Parent and Global, possibly empty, so callers can iterate them
// unconditionally.
func Next(g *RuleGraph, rules RulesByName, ruleName string, env Env) (map[Scope][]*Rule, error) {
	out := map[Scope][]*Rule{}
	if err := collectNext(g, rules, ruleName, env, out); err != nil {
		return nil, err
	}
	for _, s := range []Scope{ScopeParent, ScopeGlobal} {
		if _, ok := out[s]; !ok {
			out[s] = nil
		}
	}
	return out, nil
}

func collectNext(g *RuleGraph, rules RulesByName, ruleName string, env Env, out map[Scope][]*Rule) error {
	for _, edge := range g.Neighbors(ruleName) {
		target, ok := rules[edge.To]
		if !ok {
			return NewError(ConfigErr, nil, "edge %s -> %s: unknown rule %q", edge.From, edge.To, edge.To)
		}
		if target.IsDummy() {
			// The dummy's own captures are empty; the caller's env
			// passes through unchanged, but each of the dummy's
			// outgoing edges carries its own declared scope.
			if err := collectNext(g, rules, target.Name, env, out); err != nil {
				return err
			}
			continue
		}
		inst, err := target.Instantiate(env)
		if err != nil {
			// Unbound hole on this edge: skip it, as spec.md 4.1 says
			// the rule is simply not applicable at this site.
			if _, isUnbound := err.(*UnboundHole); isUnbound {
				continue
			}
			return err
		}
		out[edge.Scope] = append(out[edge.Scope], inst)
	}
	return nil
}
