package config

import (
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/codegraft/codegraft/v1/rewrite"
)

// RunConfig bundles everything v1/engine needs to build a RuleStore
// and drive a run, fully decoded and converted to rewrite's own
// types.
type RunConfig struct {
	Language           string
	InputSubstitutions rewrite.Env
	GlobalTagPrefix    string
	CleanupComments    bool

	Rules []*rewrite.Rule
	Edges []rewrite.Edge
	Scopes rewrite.ScopeTable
}

const defaultGlobalTagPrefix = "GLOBAL_"

// Load reads rules.toml, edges.toml, and piranha_arguments.toml from
// configDir, and scope_config.toml from langScopeDir (typically a
// directory named after the language, shipped alongside the rules),
// and converts them into a RunConfig. Env-var overrides follow
// piranha_arguments.toml's own keys, uppercased and prefixed
// CODEGRAFT_ (e.g. CODEGRAFT_GLOBAL_TAG_PREFIX), matching the
// teacher's convention of letting deployment environment variables
// override file-based configuration without a second code path.
func Load(configDir, langScopeDir string) (*RunConfig, error) {
	var ruleFile RuleFile
	if err := decodeFile(filepath.Join(configDir, "rules.toml"), &ruleFile); err != nil {
		return nil, err
	}
	var edgeFile EdgeFile
	if err := decodeFile(filepath.Join(configDir, "edges.toml"), &edgeFile); err != nil {
		return nil, err
	}
	var argsFile ArgumentsFile
	if err := decodeFile(filepath.Join(configDir, "piranha_arguments.toml"), &argsFile); err != nil {
		return nil, err
	}
	var scopeFile ScopeConfigFile
	scopePath := filepath.Join(langScopeDir, "scope_config.toml")
	if _, err := os.Stat(scopePath); err == nil {
		if err := decodeFile(scopePath, &scopeFile); err != nil {
			return nil, err
		}
	}

	applyEnvOverrides(&argsFile)

	rules, err := convertRules(ruleFile.Rules)
	if err != nil {
		return nil, err
	}
	edges, err := convertEdges(edgeFile.Edges)
	if err != nil {
		return nil, err
	}

	prefix := argsFile.GlobalTagPrefix
	if prefix == "" {
		prefix = defaultGlobalTagPrefix
	}

	return &RunConfig{
		Language:           argsFile.Language,
		InputSubstitutions: rewrite.Env(argsFile.InputSubstitutions),
		GlobalTagPrefix:    prefix,
		CleanupComments:    argsFile.CleanupComments,
		Rules:              rules,
		Edges:              edges,
		Scopes:              convertScopes(scopeFile.Scopes),
	}, nil
}

func decodeFile(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return rewrite.NewError(rewrite.ConfigErr, &rewrite.Location{File: path}, "read config: %v", err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return rewrite.NewError(rewrite.ConfigErr, &rewrite.Location{File: path}, "parse TOML: %v", err)
	}
	return nil
}

func applyEnvOverrides(a *ArgumentsFile) {
	if v := os.Getenv("CODEGRAFT_LANGUAGE"); v != "" {
		a.Language = v
	}
	if v := os.Getenv("CODEGRAFT_GLOBAL_TAG_PREFIX"); v != "" {
		a.GlobalTagPrefix = v
	}
	if v := os.Getenv("CODEGRAFT_CLEANUP_COMMENTS"); v != "" {
		a.CleanupComments = v == "true" || v == "1"
	}
}

func convertRules(entries []RuleEntry) ([]*rewrite.Rule, error) {
	out := make([]*rewrite.Rule, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for _, e := range entries {
		if e.Name == "" {
			return nil, rewrite.NewError(rewrite.ConfigErr, nil, "rule entry missing name")
		}
		if seen[e.Name] {
			return nil, rewrite.NewError(rewrite.ConfigErr, nil, "duplicate rule name %q", e.Name)
		}
		seen[e.Name] = true

		filters := make([]rewrite.Filter, len(e.Constraints))
		for i, c := range e.Constraints {
			rel := rewrite.Relation(c.Relation)
			if rel == "" {
				rel = rewrite.RelationContains
			}
			filters[i] = rewrite.Filter{
				Matcher:  c.Matcher,
				Queries:  c.Queries,
				Relation: rel,
			}
		}

		out = append(out, &rewrite.Rule{
			Name:         e.Name,
			Query:        e.Query,
			ReplaceNode:  e.ReplaceNode,
			Replace:      e.Replace,
			Filters:      filters,
			Holes:        e.Holes,
			Groups:       e.Groups,
			RequiresTags: e.RequiresTags,
		})
	}
	return out, nil
}

func convertEdges(entries []EdgeEntry) ([]rewrite.Edge, error) {
	var out []rewrite.Edge
	for _, e := range entries {
		scope := rewrite.Scope(e.Scope)
		switch scope {
		case rewrite.ScopeParent, rewrite.ScopeMethod, rewrite.ScopeClass, rewrite.ScopeGlobal:
		default:
			return nil, rewrite.NewError(rewrite.ConfigErr, nil, "edge %s: unknown scope %q", e.From, e.Scope)
		}
		if len(e.To) == 0 {
			return nil, rewrite.NewError(rewrite.ConfigErr, nil, "edge %s: empty to-list", e.From)
		}
		for _, to := range e.To {
			out = append(out, rewrite.Edge{From: e.From, To: to, Scope: scope})
		}
	}
	return out, nil
}

func convertScopes(entries []ScopeConfigEntry) rewrite.ScopeTable {
	table := make(rewrite.ScopeTable, len(entries))
	for _, e := range entries {
		gen := &rewrite.ScopeGenerator{Name: rewrite.Scope(e.Name)}
		for _, r := range e.Rules {
			gen.Rules = append(gen.Rules, rewrite.ScopeQueryGenerator{
				EnclosingNode: r.EnclosingNode,
				Tag:           r.Scope,
			})
		}
		table[gen.Name] = gen
	}
	return table
}
