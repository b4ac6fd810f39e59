package rewrite

import (
	"fmt"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
)

// CompiledQuery wraps a compiled tree-sitter query together with the
// capture names it exposes, indexed by capture id.
type CompiledQuery struct {
	Source       string
	query        *sitter.Query
	captureNames []string
}

// CaptureName returns the tag name bound to a capture index.
func (q *CompiledQuery) CaptureName(idx uint32) string {
	if int(idx) >= len(q.captureNames) {
		return ""
	}
	return q.captureNames[idx]
}

// QueryCache is a thread-confined, parse-once cache from query-source
// string to compiled structural query. Per spec.md section 4.2 the
// cache is never evicted during a run: query strings are small and
// the engine benefits from stable, fast repeated execution. It is
// append-only, so a reader under RLock always observes either the old
// map or the fully-populated new entry, never a torn state (spec.md
// section 5).
type QueryCache struct {
	mu    sync.RWMutex
	byKey map[string]*CompiledQuery
	lang  Binding
}

// NewQueryCache returns an empty cache bound to lang.
func NewQueryCache(lang Binding) *QueryCache {
	return &QueryCache{
		byKey: make(map[string]*CompiledQuery),
		lang:  lang,
	}
}

// Query returns the compiled query for text, compiling and caching it
// on first use.
func (c *QueryCache) Query(text string) (*CompiledQuery, error) {
	c.mu.RLock()
	if cq, ok := c.byKey[text]; ok {
		c.mu.RUnlock()
		return cq, nil
	}
	c.mu.RUnlock()

	sq, err := sitter.NewQuery([]byte(text), c.lang.SitterLanguage())
	if err != nil {
		return nil, NewError(QueryCompileErr, nil, "compile query %q: %v", text, err)
	}

	names := make([]string, sq.CaptureCount())
	for i := uint32(0); i < sq.CaptureCount(); i++ {
		names[i] = sq.CaptureNameForId(i)
	}
	cq := &CompiledQuery{Source: text, query: sq, captureNames: names}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.byKey[text]; ok {
		// Another caller raced us; keep the first compiled instance so
		// every caller observes the same *CompiledQuery pointer.
		return existing, nil
	}
	c.byKey[text] = cq
	return cq, nil
}

// Size returns the number of distinct queries compiled so far. Used by
// tests to assert the cache is actually being reused.
func (c *QueryCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byKey)
}

// queryCapture is one raw (node, tag) pair produced by running a
// compiled query over a tree, before filters are evaluated.
type queryCapture struct {
	node *sitter.Node
	tag  string
}

// runQuery executes cq against root, restricted to byte range
// [startByte, endByte) when restrict is true, grouping captures by
// the match they belong to. Matches are returned in document order.
// replaceNodeTag, when non-empty, names the capture whose range
// becomes the match's anchor/edit range (spec.md section 6's
// replace_node field); when empty, the first capture is used unless
// one named "match" or "target" is present, which takes precedence
// (Piranha's own convention for annotating the whole-match capture).
func runQuery(cq *CompiledQuery, content []byte, root *sitter.Node, restrict bool, startByte, endByte uint32, replaceNodeTag string) ([]Match, error) {
	if root == nil {
		return nil, fmt.Errorf("nil root node")
	}
	cursor := sitter.NewQueryCursor()
	defer cursor.Close()

	if restrict {
		cursor.SetByteRange(startByte, endByte)
	}
	cursor.Exec(cq.query, root)

	var matches []Match
	for {
		m, ok := cursor.NextMatch()
		if !ok {
			break
		}
		if len(m.Captures) == 0 {
			continue
		}
		captures := make(Env, len(m.Captures))
		var anchor *sitter.Node
		var replaceNode *sitter.Node
		for _, c := range m.Captures {
			name := cq.CaptureName(c.Index)
			text := content[c.Node.StartByte():c.Node.EndByte()]
			captures[name] = string(text)
			if anchor == nil || name == "match" || name == "target" {
				anchor = c.Node
			}
			if replaceNodeTag != "" && name == replaceNodeTag {
				replaceNode = c.Node
			}
		}
		if replaceNode != nil {
			anchor = replaceNode
		}
		matches = append(matches, Match{
			Range:    RangeOfNode(anchor),
			Captures: captures,
		})
	}
	return matches, nil
}
