// Package engine implements the driver: the fixpoint algorithm that
// applies a loaded rule set to one or more files (spec.md section
// 4.7).
package engine

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/codegraft/codegraft/v1/rewrite"
)

// MatchRecord pairs a discovered match with the rule that produced it,
// independent of whether an edit was ultimately applied (spec.md
// section 6's Summary.matches field).
type MatchRecord struct {
	RuleName string
	Match    rewrite.Match
}

// Summary is the per-file result of a run (spec.md section 6).
type Summary struct {
	Path           string
	ContentBefore  []byte
	ContentAfter   []byte
	Matches        []MatchRecord
	Rewrites       []rewrite.Edit
	Diagnostics    rewrite.Errors
	Interrupted    bool
}

// Run drives the fixpoint algorithm over a single file and returns its
// summary. store is consumed exclusively by this call — callers
// running files concurrently must pass each a distinct store.Clone().
func Run(ctx context.Context, store *rewrite.RuleStore, path string, content []byte) (*Summary, error) {
	unit, err := rewrite.NewSourceCodeUnit(ctx, store.Lang, path, content)
	if err != nil {
		rerr, ok := err.(*rewrite.Error)
		if !ok {
			return nil, err
		}
		return &Summary{
			Path:          path,
			ContentBefore: content,
			ContentAfter:  content,
			Diagnostics:   rewrite.Errors{rerr},
		}, nil
	}

	d := &driver{ctx: ctx, store: store, unit: unit, summary: &Summary{Path: path, ContentBefore: content}}
	d.globalScan()

	d.summary.ContentAfter = unit.Text
	return d.summary, nil
}

// RunMany drives every (path, content) pair in files, each against its
// own store.Clone(), with up to concurrency files running at once
// (spec.md section 5: parallelism only across disjoint store clones).
// concurrency <= 0 means unbounded up to len(files).
func RunMany(ctx context.Context, store *rewrite.RuleStore, files map[string][]byte, concurrency int) ([]*Summary, error) {
	paths := make([]string, 0, len(files))
	for p := range files {
		paths = append(paths, p)
	}

	summaries := make([]*Summary, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	for i, p := range paths {
		i, p := i, p
		g.Go(func() error {
			s, err := Run(gctx, store.Clone(), p, files[p])
			if err != nil {
				return err
			}
			summaries[i] = s
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return summaries, nil
}

// driver holds the mutable state of one file's fixpoint run.
type driver struct {
	ctx     context.Context
	store   *rewrite.RuleStore
	unit    *rewrite.SourceCodeUnit
	summary *Summary
	state   fileState
}

// globalScan implements the GLOBAL_SCAN pseudocode of spec.md section
// 4.7: repeatedly sweep every global rule over the whole file until a
// full pass applies no edit.
//
// Each pass applies at most one edit before restarting from a fresh
// query: once an edit lands, every match range computed earlier in
// this pass (for this rule or rules still to come) may address bytes
// that have since shifted, so it is discarded rather than acted on.
// This is what spec.md section 4.3's "later matches are recomputed
// against fresh trees" requires — a query snapshot is only trustworthy
// until the first edit drawn from it is applied.
func (d *driver) globalScan() {
	d.state = stateDirty
	for {
		if d.interrupted() {
			d.summary.Interrupted = true
			return
		}

		applied, err := d.globalPass()
		if err != nil {
			d.fatal(err)
			return
		}
		if d.summary.Interrupted {
			return
		}
		if !applied {
			d.state = stateClean
			return
		}
		d.state = stateLocalFixpointReached
	}
}

// globalPass sweeps every global rule once, applying the first edit it
// finds and stopping immediately (see globalScan). It reports whether
// an edit was applied.
func (d *driver) globalPass() (bool, error) {
	for _, g := range d.store.GlobalRules() {
		root := d.unit.Tree.RootNode()
		matches, err := rewrite.MatchRule(d.store.Cache, g, d.unit, d.store.Substitutions(), true, root.StartByte(), root.EndByte())
		if err != nil {
			return false, err
		}
		for _, m := range matches {
			d.summary.Matches = append(d.summary.Matches, MatchRecord{RuleName: g.Name, Match: m})
			if g.IsMatchOnly() {
				continue
			}
			newRange, ok := d.applyMatch(g, m)
			if !ok {
				continue
			}
			d.propagate(g, m.Captures, newRange)
			if d.interrupted() {
				d.summary.Interrupted = true
			}
			return true, nil
		}
	}
	return false, nil
}

// propagate implements the PROPAGATE pseudocode: resolve Parent,
// Method, Class scopes in that fixed order and fixpoint-apply the
// rules reachable in each before reseeding the global worklist and
// global tags (spec.md section 4.7).
func (d *driver) propagate(firedRule *rewrite.Rule, captures rewrite.Env, anchor rewrite.Range) {
	next, err := d.store.Next(firedRule.Name, captures)
	if err != nil {
		d.fatal(err)
		return
	}

	for _, scope := range rewrite.OrderedLocalScopes {
		rules := next[scope]
		if len(rules) == 0 {
			continue
		}
		region, err := d.store.Scopes.Resolve(d.store.Cache, scope, anchor, d.unit)
		if err != nil {
			d.fatal(err)
			return
		}
		d.fixpointScope(rules, region)
		if d.summary.Interrupted {
			return
		}
	}

	for _, r := range next[rewrite.ScopeGlobal] {
		d.store.AddToGlobalRules(r, captures)
	}
	d.store.AddGlobalTags(captures)
}

// fixpointScope repeatedly runs every rule in rules against region
// until a full pass yields no edit, recursing via propagate on every
// edit applied (the inner "fixpoint over next[scope]" loop of spec.md
// section 4.7). Like globalScan, each pass applies at most one edit
// before restarting from a fresh query over region.
func (d *driver) fixpointScope(rules []*rewrite.Rule, region rewrite.Range) {
	for {
		if d.interrupted() {
			d.summary.Interrupted = true
			return
		}
		applied, err := d.scopePass(rules, region)
		if err != nil {
			d.fatal(err)
			return
		}
		if d.summary.Interrupted || !applied {
			return
		}
	}
}

// scopePass sweeps every rule in rules once against region, applying
// the first edit it finds and stopping immediately.
func (d *driver) scopePass(rules []*rewrite.Rule, region rewrite.Range) (bool, error) {
	for _, r := range rules {
		matches, err := rewrite.MatchRule(d.store.Cache, r, d.unit, d.store.Substitutions(), true, region.StartByte, region.EndByte)
		if err != nil {
			return false, err
		}
		for _, m := range matches {
			d.summary.Matches = append(d.summary.Matches, MatchRecord{RuleName: r.Name, Match: m})
			if r.IsMatchOnly() {
				continue
			}
			newRange, ok := d.applyMatch(r, m)
			if !ok {
				continue
			}
			d.propagate(r, m.Captures, newRange)
			if d.interrupted() {
				d.summary.Interrupted = true
			}
			return true, nil
		}
	}
	return false, nil
}

// applyMatch instantiates r's replacement against m's captures and
// applies it to the unit. On a local (non-fatal) error it records the
// diagnostic and reports ok=false so the caller skips to the next
// match; on a fatal error it aborts the whole run.
func (d *driver) applyMatch(r *rewrite.Rule, m rewrite.Match) (rewrite.Range, bool) {
	// r.Replace may already be fully rendered (an upstream-only
	// template resolved at Instantiate time) or may still contain
	// holes this rule's own query just captured; rendering again
	// against the full substitution stack plus m.Captures resolves
	// either case and is a no-op if nothing is left to substitute.
	replacement, err := rewrite.Render(r.Replace, d.store.Substitutions().Merge(m.Captures))
	if err != nil {
		d.recordLocal(err)
		return rewrite.Range{}, false
	}

	edit := rewrite.Edit{Match: m, ReplacementText: replacement, RuleName: r.Name}
	newRange, err := d.unit.ApplyEdit(d.ctx, edit)
	if err != nil {
		rerr, ok := err.(*rewrite.Error)
		if ok && !rerr.Fatal() {
			d.recordLocal(rerr)
			return rewrite.Range{}, false
		}
		d.fatal(err)
		return rewrite.Range{}, false
	}

	d.summary.Rewrites = append(d.summary.Rewrites, edit)

	if replacement == "" && d.store.CleanupComments {
		d.cleanupOrphanedComment(newRange.StartByte)
	}

	return newRange, true
}

// cleanupOrphanedComment deletes a standalone comment left immediately
// above a span this pass just deleted, when the store's
// CleanupComments policy is enabled. A missing or non-adjacent
// comment is not an error; there is simply nothing to clean up.
func (d *driver) cleanupOrphanedComment(at uint32) {
	commentRange, ok := d.unit.OrphanedLineComment(at)
	if !ok {
		return
	}
	edit := rewrite.DeleteRangeEdit(commentRange)
	if _, err := d.unit.ApplyEdit(d.ctx, edit); err != nil {
		return
	}
	d.summary.Rewrites = append(d.summary.Rewrites, edit)
}

func (d *driver) recordLocal(err error) {
	if rerr, ok := err.(*rewrite.Error); ok {
		d.summary.Diagnostics = append(d.summary.Diagnostics, rerr)
		return
	}
	d.summary.Diagnostics = append(d.summary.Diagnostics, rewrite.NewError(rewrite.PostEditParseErr, &rewrite.Location{File: d.unit.Path}, "%v", err))
}

func (d *driver) fatal(err error) {
	d.state = stateError
	d.recordLocal(err)
}

func (d *driver) interrupted() bool {
	select {
	case <-d.ctx.Done():
		return true
	default:
		return false
	}
}
