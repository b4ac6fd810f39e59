package engine_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegraft/codegraft/v1/engine"
	"github.com/codegraft/codegraft/v1/lang"
	"github.com/codegraft/codegraft/v1/rewrite"
)

func goBinding(t *testing.T) rewrite.Binding {
	t.Helper()
	b, err := lang.Lookup("go")
	require.NoError(t, err)
	return b
}

func newStore(t *testing.T, rules []*rewrite.Rule, edges []rewrite.Edge, scopes rewrite.ScopeTable) *rewrite.RuleStore {
	t.Helper()
	store, err := rewrite.NewRuleStore(rules, edges, scopes, goBinding(t), rewrite.Env{}, "GLOBAL_", nil)
	require.NoError(t, err)
	return store
}

// Scenario 1 (spec section 8): stale boolean flag, always-true. The
// if/else disappears in favor of its consequence alone.
func TestScenarioStaleFlagAlwaysTrueSimplifiesIf(t *testing.T) {
	source := "package main\n\nfunc run() {\n\tif flags.get(\"X\") {\n\t\tA()\n\t} else {\n\t\tB()\n\t}\n}\n"

	simplifyIfTrue := &rewrite.Rule{
		Name: "simplify_if_true",
		Query: `(if_statement
			consequence: (block (expression_statement (call_expression) @then))
			alternative: (block (expression_statement (call_expression) @else_stmt))) @match`,
		Replace: "@then",
		Groups:  []string{"seed"},
	}

	store := newStore(t, []*rewrite.Rule{simplifyIfTrue}, nil, nil)
	summary, err := engine.Run(context.Background(), store, "flag.go", []byte(source))
	require.NoError(t, err)
	require.Empty(t, summary.Diagnostics)

	want := "package main\n\nfunc run() {\n\tA()\n}\n"
	assert.Equal(t, want, string(summary.ContentAfter))
	require.Len(t, summary.Rewrites, 1)
	assert.Equal(t, "simplify_if_true", summary.Rewrites[0].RuleName)

	// Invariant 4: a second run against the same store and its own
	// output produces zero further edits.
	again, err := engine.Run(context.Background(), store, "flag.go", summary.ContentAfter)
	require.NoError(t, err)
	assert.Empty(t, again.Rewrites, "fixpoint output must be stable under a second run")
	assert.Equal(t, want, string(again.ContentAfter))
}

// Scenario 2 (spec section 8, adapted): a Global edit's captured tag
// drives a Method-scoped cleanup elsewhere in the same function.
func TestScenarioMethodScopePropagationUsesCapturedTag(t *testing.T) {
	source := "package main\n\nfunc run() {\n\tx := 1\n\tcall(x)\n\tother()\n}\n"

	simplifyCall := &rewrite.Rule{
		Name:    "simplify_call",
		Query:   `(call_expression function: (identifier) @fn arguments: (argument_list (identifier) @arg)) @match`,
		Replace: "noop()",
		Groups:  []string{"seed"},
	}
	blankDecl := &rewrite.Rule{
		Name: "blank_decl",
		Query: `(short_var_declaration
			left: (expression_list (identifier) @id)
			right: (expression_list (int_literal) @val)
			(#eq? @id "@arg")) @decl`,
		Replace: "_ = @val",
	}

	store := newStore(t,
		[]*rewrite.Rule{simplifyCall, blankDecl},
		[]rewrite.Edge{{From: "simplify_call", To: "blank_decl", Scope: rewrite.ScopeMethod}},
		rewrite.ScopeTable{
			rewrite.ScopeMethod: &rewrite.ScopeGenerator{
				Name:  rewrite.ScopeMethod,
				Rules: []rewrite.ScopeQueryGenerator{{EnclosingNode: "(function_declaration) @scope"}},
			},
		},
	)

	summary, err := engine.Run(context.Background(), store, "unused.go", []byte(source))
	require.NoError(t, err)
	require.Empty(t, summary.Diagnostics)

	want := "package main\n\nfunc run() {\n\t_ = 1\n\tnoop()\n\tother()\n}\n"
	assert.Equal(t, want, string(summary.ContentAfter))
	require.Len(t, summary.Rewrites, 2)

	byRule := map[string]rewrite.Edit{}
	for _, e := range summary.Rewrites {
		byRule[e.RuleName] = e
	}
	require.Contains(t, byRule, "simplify_call")
	require.Contains(t, byRule, "blank_decl")

	// Invariant 5: the Method-propagated edit must fall within the
	// enclosing function's range, not merely somewhere in the file.
	funcStart := uint32(len("package main\n\n"))
	funcEnd := uint32(len(source))
	decl := byRule["blank_decl"].Match.Range
	assert.GreaterOrEqual(t, decl.StartByte, funcStart)
	assert.LessOrEqual(t, decl.EndByte, funcEnd)
}

// Scenario 3 (spec section 8): chained propagation through a dummy
// relay. find_call matches twice with the same captured @arg; the
// Global-propagated delete_def must be instantiated and deduplicated
// to a single worklist entry despite firing twice, and the dummy
// relay itself must never surface as a match or edit (invariant 6).
func TestScenarioChainedPropagationThroughDummyDeduplicates(t *testing.T) {
	source := "package main\n\nfunc run() {\n\tpending(mark(tmp))\n\tpending(mark(tmp))\n}\n"

	findCall := &rewrite.Rule{
		Name: "find_call",
		Query: `(call_expression
			function: (identifier) @outerfn
			arguments: (argument_list
				(call_expression
					function: (identifier) @fn
					arguments: (argument_list (identifier) @arg)))) @match`,
		Replace: "mark(@arg)",
		Groups:  []string{"seed"},
	}
	relay := &rewrite.Rule{Name: "relay"} // dummy: no query, no replace
	deleteDef := &rewrite.Rule{
		Name:    "delete_def",
		Query:   `(raw_string_literal) @lit (#eq? @lit "@arg")`,
		Replace: "DELETED",
	}

	store := newStore(t,
		[]*rewrite.Rule{findCall, relay, deleteDef},
		[]rewrite.Edge{
			{From: "find_call", To: "relay", Scope: rewrite.ScopeGlobal},
			{From: "relay", To: "delete_def", Scope: rewrite.ScopeGlobal},
		},
		nil,
	)

	summary, err := engine.Run(context.Background(), store, "chain.go", []byte(source))
	require.NoError(t, err)
	require.Empty(t, summary.Diagnostics)

	want := "package main\n\nfunc run() {\n\tmark(tmp)\n\tmark(tmp)\n}\n"
	assert.Equal(t, want, string(summary.ContentAfter), "both sites rewrite even though the second site's range shifted after the first edit")
	assert.Len(t, summary.Rewrites, 2)

	global := store.GlobalRules()
	var deleteDefCount int
	for _, r := range global {
		assert.NotEqual(t, "relay", r.Name, "a dummy relay must never be instantiated onto a worklist")
		if r.Name == "delete_def" {
			deleteDefCount++
		}
	}
	assert.Equal(t, 1, deleteDefCount, "delete_def must be deduplicated despite find_call matching twice with the same @arg")

	for _, m := range summary.Matches {
		assert.NotEqual(t, "relay", m.RuleName)
	}
}

// Scenario 4 (spec section 8): a not-contains filter selects only the
// return statement that does not enclose a call.
func TestScenarioNotContainsFilterSelectsOnlyPlainReturn(t *testing.T) {
	source := "package main\n\nfunc run() int {\n\tif true {\n\t\treturn compute()\n\t}\n\treturn 42\n}\n"

	flagPlainReturn := &rewrite.Rule{
		Name:  "flag_plain_return",
		Query: `(return_statement) @match`,
		Filters: []rewrite.Filter{{
			Queries:  []string{"(call_expression) @c"},
			Relation: rewrite.RelationNotContains,
		}},
		Groups: []string{"seed"},
		// Replace left empty: this rule only reports matches.
	}

	store := newStore(t, []*rewrite.Rule{flagPlainReturn}, nil, nil)
	summary, err := engine.Run(context.Background(), store, "returns.go", []byte(source))
	require.NoError(t, err)

	require.Len(t, summary.Matches, 1)
	assert.Equal(t, "flag_plain_return", summary.Matches[0].RuleName)
	assert.Equal(t, "return 42", source[summary.Matches[0].Match.Range.StartByte:summary.Matches[0].Match.Range.EndByte])
	assert.Empty(t, summary.Rewrites)
	assert.Equal(t, source, string(summary.ContentAfter))
}

// Scenario 5 (spec section 8): every seed rule is match-only, so the
// run reports matches but leaves the file byte-identical.
func TestScenarioMatchOnlyModeLeavesFileUnchanged(t *testing.T) {
	source := "package main\n\nfunc run() {\n\ta := 1\n\tb := 2\n}\n"

	flagDecls := &rewrite.Rule{Name: "flag_decls", Query: "(short_var_declaration) @match", Groups: []string{"seed"}}
	flagIdents := &rewrite.Rule{Name: "flag_idents", Query: "(identifier) @match", Groups: []string{"seed"}}

	store := newStore(t, []*rewrite.Rule{flagDecls, flagIdents}, nil, nil)
	summary, err := engine.Run(context.Background(), store, "matchonly.go", []byte(source))
	require.NoError(t, err)

	assert.NotEmpty(t, summary.Matches)
	assert.Empty(t, summary.Rewrites)
	assert.Equal(t, source, string(summary.ContentAfter))
}

// Scenario 6 (spec section 6): cleanup_comments sweeps the standalone
// comment left dangling directly above a deleted statement.
func TestCleanupCommentsDeletesOrphanedCommentAboveDeletedStatement(t *testing.T) {
	source := "package main\n\nfunc run() {\n\t// stale flag check\n\tA()\n\tB()\n}\n"

	deleteA := &rewrite.Rule{
		Name:    "delete_a",
		Query:   `(expression_statement (call_expression function: (identifier) @fn (#eq? @fn "A"))) @match`,
		Replace: "",
		Groups:  []string{"seed"},
	}

	store := newStore(t, []*rewrite.Rule{deleteA}, nil, nil)
	store.CleanupComments = true

	summary, err := engine.Run(context.Background(), store, "cleanup.go", []byte(source))
	require.NoError(t, err)
	require.Empty(t, summary.Diagnostics)

	want := "package main\n\nfunc run() {\n\t\n\tB()\n}\n"
	assert.Equal(t, want, string(summary.ContentAfter))
	assert.NotContains(t, string(summary.ContentAfter), "stale flag check")

	var sawCleanup bool
	for _, e := range summary.Rewrites {
		if e.IsDeleteRange() {
			sawCleanup = true
		}
	}
	assert.True(t, sawCleanup, "the comment deletion must be recorded as its own edit")
}

// Without cleanup_comments, the same deletion leaves the now-orphaned
// comment behind.
func TestCleanupCommentsDisabledLeavesCommentInPlace(t *testing.T) {
	source := "package main\n\nfunc run() {\n\t// stale flag check\n\tA()\n\tB()\n}\n"

	deleteA := &rewrite.Rule{
		Name:    "delete_a",
		Query:   `(expression_statement (call_expression function: (identifier) @fn (#eq? @fn "A"))) @match`,
		Replace: "",
		Groups:  []string{"seed"},
	}

	store := newStore(t, []*rewrite.Rule{deleteA}, nil, nil)
	summary, err := engine.Run(context.Background(), store, "cleanup.go", []byte(source))
	require.NoError(t, err)
	assert.Contains(t, string(summary.ContentAfter), "stale flag check")
}

func TestRunManyRunsEachFileAgainstAnIndependentStoreClone(t *testing.T) {
	flagDecls := &rewrite.Rule{Name: "flag_decls", Query: "(short_var_declaration) @match", Groups: []string{"seed"}}
	store := newStore(t, []*rewrite.Rule{flagDecls}, nil, nil)

	files := map[string][]byte{
		"a.go": []byte("package main\n\nfunc a() {\n\tx := 1\n\t_ = x\n}\n"),
		"b.go": []byte("package main\n\nfunc b() {\n\ty := 2\n\t_ = y\n}\n"),
	}

	summaries, err := engine.RunMany(context.Background(), store, files, 2)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	for _, s := range summaries {
		assert.NotEmpty(t, s.Matches)
		assert.Empty(t, s.Rewrites)
	}

	// The seed worklist on the original store must be untouched by
	// either clone's run (spec.md section 5: disjoint global state).
	assert.Len(t, store.GlobalRules(), 1)
}
