package rewrite

import (
	"bytes"
	"context"

	sitter "github.com/smacker/go-tree-sitter"
)

// SourceCodeUnit owns the source text of one file, its parsed tree,
// and the per-file substitution layer accumulated by rules firing
// against it. Invariant: Tree is always the parse of Text by lang;
// after every successful ApplyEdit both are updated atomically
// (spec.md section 3).
type SourceCodeUnit struct {
	Path          string
	Text          []byte
	Tree          *sitter.Tree
	Substitutions Env

	lang Binding
}

// NewSourceCodeUnit parses content with lang and returns a unit ready
// for matching and editing.
func NewSourceCodeUnit(ctx context.Context, lang Binding, path string, content []byte) (*SourceCodeUnit, error) {
	tree, err := lang.Parse(nil, content)
	if err != nil {
		return nil, NewError(ConfigErr, &Location{File: path}, "parse %s: %v", path, err)
	}
	return &SourceCodeUnit{
		Path:          path,
		Text:          content,
		Tree:          tree,
		Substitutions: Env{},
		lang:          lang,
	}, nil
}

// ApplyEdit splices edit.ReplacementText into Text at edit.Match.Range,
// emits an incremental tree-edit descriptor, and reparses using the
// previous tree as a hint (spec.md section 4.4). On success it returns
// the byte range of the inserted replacement text, which anchors
// subsequent scope resolution (spec.md section 4.9, open question b:
// Parent scope for a deleted anchor resolves against this returned
// range, never the pre-edit range).
//
// If reparsing fails, Text and Tree are reverted to their pre-edit
// state and a *Error with code PostEditParseErr is returned; the
// caller is expected to record the diagnostic and continue with the
// next match (spec.md section 7).
func (u *SourceCodeUnit) ApplyEdit(ctx context.Context, edit Edit) (Range, error) {
	r := edit.Match.Range
	if int(r.StartByte) > len(u.Text) || int(r.EndByte) > len(u.Text) || r.StartByte > r.EndByte {
		return Range{}, NewError(InvalidEditRangeErr, &Location{File: u.Path}, "edit range [%d,%d) out of bounds for %d-byte file", r.StartByte, r.EndByte, len(u.Text))
	}

	oldText := u.Text
	oldTree := u.Tree

	replacement := []byte(edit.ReplacementText)
	newText := make([]byte, 0, len(oldText)-int(r.EndByte-r.StartByte)+len(replacement))
	newText = append(newText, oldText[:r.StartByte]...)
	newText = append(newText, replacement...)
	newText = append(newText, oldText[r.EndByte:]...)

	newEndByte := r.StartByte + uint32(len(replacement))
	newEndPoint := advance(r.StartPoint, replacement)

	oldTree.Edit(sitter.EditInput{
		StartIndex:  r.StartByte,
		OldEndIndex: r.EndByte,
		NewEndIndex: newEndByte,
		StartPoint:  toSitterPoint(r.StartPoint),
		OldEndPoint: toSitterPoint(r.EndPoint),
		NewEndPoint: toSitterPoint(newEndPoint),
	})

	newTree, err := u.lang.Parse(oldTree, newText)
	if err != nil {
		// Revert: the pre-edit tree was mutated in place by Edit above,
		// so reparse the untouched old text fresh to restore a clean
		// tree rather than reuse the now-edited-but-stale oldTree.
		revertedTree, revertErr := u.lang.Parse(nil, oldText)
		if revertErr == nil {
			u.Tree = revertedTree
		}
		u.Text = oldText
		return Range{}, NewError(PostEditParseErr, &Location{File: u.Path}, "reparse after edit by rule %q: %v", edit.RuleName, err)
	}

	u.Text = newText
	u.Tree = newTree

	return Range{
		StartByte:  r.StartByte,
		EndByte:    newEndByte,
		StartPoint: r.StartPoint,
		EndPoint:   newEndPoint,
	}, nil
}

// Reparse reparses u.Text from scratch, discarding any incremental
// hint. Used by tests to check the tree/text coherence invariant
// (spec.md section 8, invariant 1).
func (u *SourceCodeUnit) Reparse() (*sitter.Tree, error) {
	return u.lang.Parse(nil, u.Text)
}

// NodeText returns the slice of Text spanned by r.
func (u *SourceCodeUnit) NodeText(r Range) string {
	return string(u.Text[r.StartByte:r.EndByte])
}

func toSitterPoint(p Point) sitter.Point {
	return sitter.Point{Row: uint32(p.Row), Column: uint32(p.Column)}
}

// advance computes the end point reached by writing replacement
// starting at start.
func advance(start Point, replacement []byte) Point {
	if !bytes.ContainsRune(replacement, '\n') {
		return Point{Row: start.Row, Column: start.Column + len(replacement)}
	}
	lines := bytes.Split(replacement, []byte{'\n'})
	lastLine := lines[len(lines)-1]
	return Point{
		Row:    start.Row + len(lines) - 1,
		Column: len(lastLine),
	}
}
