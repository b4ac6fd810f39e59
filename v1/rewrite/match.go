package rewrite

import sitter "github.com/smacker/go-tree-sitter"

// Point is a zero-based row/column position, matching tree-sitter's
// convention.
type Point struct {
	Row    int
	Column int
}

func pointOf(p sitter.Point) Point {
	return Point{Row: int(p.Row), Column: int(p.Column)}
}

// Range is a located byte span plus its row/column endpoints.
type Range struct {
	StartByte  uint32
	EndByte    uint32
	StartPoint Point
	EndPoint   Point
}

// RangeOfNode returns the Range spanned by a tree-sitter node.
func RangeOfNode(n *sitter.Node) Range {
	return Range{
		StartByte:  n.StartByte(),
		EndByte:    n.EndByte(),
		StartPoint: pointOf(n.StartPoint()),
		EndPoint:   pointOf(n.EndPoint()),
	}
}

// Match is a located site in a parsed tree: a byte range plus the tag
// bindings captured by the query that produced it.
type Match struct {
	Range    Range
	Captures Env
	// RuleName names the rule whose query produced this match.
	RuleName string
}

// DeleteRangeRuleName is the synthetic rule name carried by edits that
// delete a span without an originating replacement template, mirroring
// original_source/src/models/edit.rs's Edit::delete_range.
const DeleteRangeRuleName = "Delete Range"

// Edit pairs a match with the text that should replace it.
type Edit struct {
	Match           Match
	ReplacementText string
	RuleName        string
}

// DeleteRangeEdit returns an Edit that deletes r without attributing
// the change to any user rule.
func DeleteRangeEdit(r Range) Edit {
	return Edit{
		Match:           Match{Range: r, Captures: Env{}, RuleName: DeleteRangeRuleName},
		ReplacementText: "",
		RuleName:        DeleteRangeRuleName,
	}
}

// IsDeleteRange reports whether e is a delete-range edit.
func (e Edit) IsDeleteRange() bool {
	return e.RuleName == DeleteRangeRuleName
}
