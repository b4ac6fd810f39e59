package rewrite

import (
	"sync"

	"github.com/codegraft/codegraft/v1/logging"
)

// RuleStore aggregates everything loaded once at driver start: the
// rule table, the graph, the query cache, the current global (seed)
// worklist, the global-tag environment, and the language binding
// (spec.md section 4.6). Rules, edges, and scope generators never
// mutate after construction; GlobalRules and GlobalTags grow
// monotonically over a run (spec.md section 3, testable property 2).
type RuleStore struct {
	Rules               RulesByName
	Graph               *RuleGraph
	Cache               *QueryCache
	Scopes              ScopeTable
	Lang                Binding
	InputSubstitutions  Env
	GlobalTagPrefix     string

	// CleanupComments, when set, makes the driver delete a standalone
	// line comment left orphaned immediately above a deletion edit
	// (piranha_arguments.toml's cleanup_comments, spec.md section 6).
	// It has no constructor parameter because it is driver-side policy,
	// not part of the rule graph itself; callers set it after
	// NewRuleStore returns.
	CleanupComments bool

	log logging.Logger

	// mu guards GlobalRules/GlobalTags. Per spec.md section 5 the core
	// design confines a store to a single file's run and expects no
	// sharing across file workers; this mutex exists only for the
	// deployment escape hatch that section describes ("must serialize
	// writes with a mutex that is acquired only for add_global_tags
	// and add_to_global_rules, never held across a match or parse").
	mu          sync.Mutex
	globalRules []*Rule
	globalTags  Env
}

// NewRuleStore builds a store from a fully-resolved rule/edge/scope
// set, mirroring original_source/polyglot/piranha/src/models/rule_store.rs's
// RuleStore::new: rules are indexed by name, the graph is built, and
// every rule in the "seed" group is immediately instantiated against
// inputSubstitutions and pushed onto the global worklist.
func NewRuleStore(rules []*Rule, edges []Edge, scopes ScopeTable, lang Binding, inputSubstitutions Env, globalTagPrefix string, log logging.Logger) (*RuleStore, error) {
	byName := make(RulesByName, len(rules))
	for _, r := range rules {
		byName[r.Name] = r
	}
	for _, e := range edges {
		if _, ok := byName[e.From]; !ok {
			return nil, NewError(ConfigErr, nil, "edge references unknown rule %q", e.From)
		}
		if _, ok := byName[e.To]; !ok {
			return nil, NewError(ConfigErr, nil, "edge references unknown rule %q", e.To)
		}
	}

	graph := NewRuleGraph(edges)
	if log == nil {
		log = logging.NewNopLogger()
	}

	s := &RuleStore{
		Rules:              byName,
		Graph:              graph,
		Cache:              NewQueryCache(lang),
		Scopes:             scopes,
		Lang:               lang,
		InputSubstitutions: inputSubstitutions,
		GlobalTagPrefix:    globalTagPrefix,
		log:                log,
		globalTags:         Env{},
	}

	for _, r := range rules {
		if r.IsSeed() {
			s.AddToGlobalRules(r, inputSubstitutions)
		}
	}

	log.Info("loaded %d rules and %d edges", len(rules), graph.NumEdges())
	return s, nil
}

// GlobalRules returns a copy of the current global worklist; later
// calls to AddToGlobalRules do not change a slice already returned.
func (s *RuleStore) GlobalRules() []*Rule {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Rule, len(s.globalRules))
	copy(out, s.globalRules)
	return out
}

// GlobalTags returns a copy of the accumulated global-tag environment.
func (s *RuleStore) GlobalTags() Env {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.globalTags.Clone()
}

// Substitutions returns the base environment every MatchRule call
// starts from: input substitutions extended by global tags (spec.md
// section 3's substitution-environment layering (a) and (b); layer
// (c), per-match captures, is merged in by the caller). A key present
// in both layers keeps its input-substitution value. This mirrors
// rule_store.rs's default_substitutions.
func (s *RuleStore) Substitutions() Env {
	return s.GlobalTags().Merge(s.InputSubstitutions)
}

// AddToGlobalRules instantiates rule against env and appends it to the
// global worklist iff an identical instantiated rule (by rendered
// string equality, spec.md section 9 open question a) is not already
// present.
func (s *RuleStore) AddToGlobalRules(rule *Rule, env Env) {
	inst, err := rule.Instantiate(env)
	if err != nil {
		return // unbound hole: rule stays inapplicable at this site.
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.globalRules {
		if existing.RenderedEqual(inst) {
			return
		}
	}
	s.log.Debug("added global rule %s", inst.Name)
	s.globalRules = append(s.globalRules, inst)
}

// AddGlobalTags retains only keys beginning with GlobalTagPrefix from
// newEntries and merges them into the monotonic global-tag map. A key
// that is already present keeps its first value.
func (s *RuleStore) AddGlobalTags(newEntries Env) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range newEntries {
		if _, exists := s.globalTags[k]; exists {
			continue
		}
		if len(k) >= len(s.GlobalTagPrefix) && k[:len(s.GlobalTagPrefix)] == s.GlobalTagPrefix {
			s.globalTags[k] = v
		}
	}
}

// Next delegates to the package-level Next helper, supplying this
// store's graph and rule table.
func (s *RuleStore) Next(ruleName string, env Env) (map[Scope][]*Rule, error) {
	return Next(s.Graph, s.Rules, ruleName, env)
}

// Clone returns a new RuleStore suitable for driving a different file
// in parallel (spec.md section 5): rules, graph, and scope tables are
// shared by pointer since they never mutate after load, but the query
// cache and global-tag/worklist state are independent so that one
// file's run can never observe another's in-flight global state.
func (s *RuleStore) Clone() *RuleStore {
	s.mu.Lock()
	globalRules := make([]*Rule, len(s.globalRules))
	copy(globalRules, s.globalRules)
	globalTags := s.globalTags.Clone()
	s.mu.Unlock()

	return &RuleStore{
		Rules:              s.Rules,
		Graph:              s.Graph,
		Cache:              NewQueryCache(s.Lang),
		Scopes:             s.Scopes,
		Lang:               s.Lang,
		InputSubstitutions: s.InputSubstitutions,
		GlobalTagPrefix:    s.GlobalTagPrefix,
		CleanupComments:    s.CleanupComments,
		log:                s.log,
		globalRules:        globalRules,
		globalTags:         globalTags,
	}
}
