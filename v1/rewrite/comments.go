package rewrite

import sitter "github.com/smacker/go-tree-sitter"

// OrphanedLineComment looks for a standalone comment node immediately
// preceding the byte offset at, with nothing but whitespace between
// the two, so a deletion edit can sweep it away along with the code
// it documented (piranha_arguments.toml's cleanup_comments, spec.md
// section 6). ok is false when at has no preceding sibling, the
// preceding sibling is not a comment, or anything other than
// whitespace separates them.
func (u *SourceCodeUnit) OrphanedLineComment(at uint32) (Range, bool) {
	if at == 0 || at > uint32(len(u.Text)) {
		return Range{}, false
	}

	container := smallestNodeContaining(u.Tree.RootNode(), Range{StartByte: at, EndByte: at})
	if container == nil {
		return Range{}, false
	}

	// A leaf has no children to search for a preceding sibling; look
	// one level up instead, treating the leaf's own start as the
	// boundary.
	if container.ChildCount() == 0 {
		parent := container.Parent()
		if parent == nil {
			return Range{}, false
		}
		return precedingComment(u, parent, container.StartByte())
	}
	return precedingComment(u, container, at)
}

// precedingComment walks container's children looking for the last one
// that starts before at, and reports it as the orphaned comment when
// it is a comment node separated from at only by whitespace.
func precedingComment(u *SourceCodeUnit, container *sitter.Node, at uint32) (Range, bool) {
	var prev *sitter.Node
	for i := 0; i < int(container.ChildCount()); i++ {
		child := container.Child(i)
		if child == nil || child.StartByte() >= at {
			break
		}
		prev = child
	}
	if prev == nil || !isCommentType(prev.Type()) {
		return Range{}, false
	}
	if !isAllWhitespace(u.Text[prev.EndByte():at]) {
		return Range{}, false
	}
	return RangeOfNode(prev), true
}

func isCommentType(nodeType string) bool {
	return nodeType == "comment" || nodeType == "line_comment"
}

func isAllWhitespace(b []byte) bool {
	for _, c := range b {
		switch c {
		case ' ', '\t', '\n', '\r':
		default:
			return false
		}
	}
	return true
}
