package rewrite_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codegraft/codegraft/v1/rewrite"
)

func TestNewRuleStoreSeedsGlobalWorklist(t *testing.T) {
	rules := []*rewrite.Rule{
		{Name: "seed_rule", Query: "(x)", Replace: "y", Groups: []string{"seed"}},
		{Name: "other_rule", Query: "(z)", Replace: "w"},
	}
	store, err := rewrite.NewRuleStore(rules, nil, rewrite.ScopeTable{}, goBinding(t), rewrite.Env{}, "GLOBAL_", nil)
	require.NoError(t, err)

	global := store.GlobalRules()
	require.Len(t, global, 1)
	assert.Equal(t, "seed_rule", global[0].Name)
}

func TestNewRuleStoreRejectsEdgeToUnknownRule(t *testing.T) {
	rules := []*rewrite.Rule{{Name: "a"}}
	_, err := rewrite.NewRuleStore(rules, []rewrite.Edge{{From: "a", To: "ghost", Scope: rewrite.ScopeGlobal}}, rewrite.ScopeTable{}, goBinding(t), rewrite.Env{}, "GLOBAL_", nil)
	require.Error(t, err)
}

// TestGlobalStateIsMonotonic checks spec.md invariant 2: global_tags
// and the seed worklist only grow, and an already-present instantiated
// rule is never duplicated.
func TestGlobalStateIsMonotonic(t *testing.T) {
	store, err := rewrite.NewRuleStore(nil, nil, rewrite.ScopeTable{}, goBinding(t), rewrite.Env{}, "GLOBAL_", nil)
	require.NoError(t, err)

	store.AddGlobalTags(rewrite.Env{"GLOBAL_x": "1", "local_y": "2"})
	assert.Equal(t, rewrite.Env{"GLOBAL_x": "1"}, store.GlobalTags(), "only keys with the configured prefix are retained")

	store.AddGlobalTags(rewrite.Env{"GLOBAL_z": "3"})
	assert.Equal(t, rewrite.Env{"GLOBAL_x": "1", "GLOBAL_z": "3"}, store.GlobalTags())

	r := &rewrite.Rule{Name: "find_call", Query: "(call @arg)", Replace: "delete(@arg)"}
	store.AddToGlobalRules(r, rewrite.Env{"arg": "x"})
	store.AddToGlobalRules(r, rewrite.Env{"arg": "x"})
	assert.Len(t, store.GlobalRules(), 1, "an identical instantiation must not be added twice")

	store.AddToGlobalRules(r, rewrite.Env{"arg": "y"})
	assert.Len(t, store.GlobalRules(), 2)
}

func TestCloneIsIndependentOfParent(t *testing.T) {
	store, err := rewrite.NewRuleStore(nil, nil, rewrite.ScopeTable{}, goBinding(t), rewrite.Env{}, "GLOBAL_", nil)
	require.NoError(t, err)

	clone := store.Clone()
	clone.AddGlobalTags(rewrite.Env{"GLOBAL_only_in_clone": "1"})

	assert.Empty(t, store.GlobalTags())
	assert.NotEmpty(t, clone.GlobalTags())
}
