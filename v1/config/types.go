// Package config loads the four TOML configuration files that
// parameterize a codegraft run (spec.md section 6): rules.toml,
// edges.toml, piranha_arguments.toml, and a language's
// scope_config.toml.
package config

// RuleFile is the top-level shape of rules.toml.
type RuleFile struct {
	Rules []RuleEntry `toml:"rules"`
}

// RuleEntry is one [[rules]] table entry.
type RuleEntry struct {
	Name        string           `toml:"name"`
	Query       string           `toml:"query"`
	ReplaceNode string           `toml:"replace_node"`
	Replace     string           `toml:"replace"`
	Holes       []string         `toml:"holes"`
	Groups      []string         `toml:"groups"`
	Constraints []ConstraintEntry `toml:"constraints"`

	// RequiresTags lists capture tags that must be bound in a match
	// for it to survive. See DESIGN.md: this is distinct from a
	// query-based constraint, and the spec's own schema does not name
	// a field for it, so it is added here explicitly.
	RequiresTags []string `toml:"requires_tags"`
}

// ConstraintEntry is one filter predicate attached to a rule.
// Relation defaults to "contains" when empty, matching spec.md
// section 4.3's single-relation description generalized to a named
// field (DESIGN.md decision).
type ConstraintEntry struct {
	Matcher  string   `toml:"matcher"`
	Queries  []string `toml:"queries"`
	Relation string   `toml:"relation"`
}

// EdgeFile is the top-level shape of edges.toml.
type EdgeFile struct {
	Edges []EdgeEntry `toml:"edges"`
}

// EdgeEntry is one [[edges]] table entry. To may name more than one
// target rule; the loader expands this into one rewrite.Edge per
// target.
type EdgeEntry struct {
	From  string   `toml:"from"`
	To    []string `toml:"to"`
	Scope string   `toml:"scope"`
}

// ArgumentsFile is the top-level shape of piranha_arguments.toml.
type ArgumentsFile struct {
	Language           string            `toml:"language"`
	InputSubstitutions map[string]string `toml:"input_substitutions"`
	GlobalTagPrefix    string            `toml:"global_tag_prefix"`
	CleanupComments    bool              `toml:"cleanup_comments"`
}

// ScopeConfigFile is the top-level shape of a language's
// scope_config.toml.
type ScopeConfigFile struct {
	Scopes []ScopeConfigEntry `toml:"scopes"`
}

// ScopeConfigEntry is one [[scopes]] table entry.
type ScopeConfigEntry struct {
	Name  string             `toml:"name"`
	Rules []ScopeRuleEntry   `toml:"rules"`
}

// ScopeRuleEntry is one candidate query for resolving a scope.
type ScopeRuleEntry struct {
	EnclosingNode string `toml:"enclosing_node"`
	Scope         string `toml:"scope"`
}
