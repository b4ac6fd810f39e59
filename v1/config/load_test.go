package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(contents), 0o644))
}

func TestLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rules.toml", `
[[rules]]
name = "simplify_if_true"
query = "(if_statement) @m"
replace_node = "m"
replace = "@then"
groups = ["seed"]
requires_tags = []

[[rules.constraints]]
`)
	writeFile(t, dir, "edges.toml", `
[[edges]]
from = "simplify_if_true"
to = ["cleanup_unused"]
scope = "Method"
`)
	writeFile(t, dir, "piranha_arguments.toml", `
language = "go"
global_tag_prefix = "GLOBAL_"
cleanup_comments = true

[input_substitutions]
stale_flag_name = "X"
`)
	writeFile(t, dir, "scope_config.toml", `
[[scopes]]
name = "Method"

[[scopes.rules]]
enclosing_node = "(function_declaration) @m"
scope = "m"
`)

	cfg, err := Load(dir, dir)
	require.NoError(t, err)

	assert.Equal(t, "go", cfg.Language)
	assert.Equal(t, "GLOBAL_", cfg.GlobalTagPrefix)
	assert.True(t, cfg.CleanupComments)
	assert.Equal(t, "X", cfg.InputSubstitutions["stale_flag_name"])
	require.Len(t, cfg.Rules, 1)
	assert.Equal(t, "simplify_if_true", cfg.Rules[0].Name)
	require.Len(t, cfg.Edges, 1)
	assert.Equal(t, "cleanup_unused", cfg.Edges[0].To)
	require.Contains(t, cfg.Scopes, cfg.Edges[0].Scope)
}

func TestLoadDuplicateRuleNameIsConfigError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rules.toml", `
[[rules]]
name = "a"
query = "(x) @m"

[[rules]]
name = "a"
query = "(y) @m"
`)
	writeFile(t, dir, "edges.toml", "")
	writeFile(t, dir, "piranha_arguments.toml", `language = "go"`)

	_, err := Load(dir, dir)
	require.Error(t, err)
}

func TestLoadUnknownScopeIsConfigError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "rules.toml", `
[[rules]]
name = "a"
query = "(x) @m"
`)
	writeFile(t, dir, "edges.toml", `
[[edges]]
from = "a"
to = ["b"]
scope = "Nonsense"
`)
	writeFile(t, dir, "piranha_arguments.toml", `language = "go"`)

	_, err := Load(dir, dir)
	require.Error(t, err)
}
