package revset

import (
	"context"
	"strings"

	"github.com/jmarsh/jjcore/internal/ids"
	"github.com/jmarsh/jjcore/internal/index"
	"github.com/jmarsh/jjcore/internal/model"
	"github.com/jmarsh/jjcore/internal/store"
)

// Repo is the narrow read surface the evaluator needs; it is satisfied
// structurally by *repo.ReadonlyRepo. Method signatures must match exactly
// — index.ReadonlyIndex rather than the wider index.Index, store.Backend
// rather than an inline-equivalent interface — since Go's structural
// interface satisfaction requires identical return types, not merely
// compatible ones.
type Repo interface {
	Index() index.ReadonlyIndex
	View() *model.View
	Backend() store.Backend
}

// WorkspaceContext supplies the workspace-relative bits of symbol
// resolution (spec §4.I: "(e) workspace-id, (f) '@' current working
// copy").
type WorkspaceContext struct {
	WorkspaceID    model.WorkspaceID
	WorkingCopyIDs map[model.WorkspaceID]model.CommitID
}

// Revset is the lazily-ordered result of evaluating an Expr: index entries
// in descending position order (spec §5 "Ordering guarantees").
type Revset struct {
	entries []index.Entry
}

// IsEmpty reports whether the revset contains no commits.
func (r *Revset) IsEmpty() bool { return len(r.entries) == 0 }

// Entries returns the result in descending index-position order.
func (r *Revset) Entries() []index.Entry { return r.entries }

// CommitIDs is a convenience projection of Entries.
func (r *Revset) CommitIDs() []model.CommitID {
	ids := make([]model.CommitID, len(r.entries))
	for i, e := range r.entries {
		ids[i] = e.CommitID
	}
	return ids
}

// Contains reports whether id is a member of the revset.
func (r *Revset) Contains(id model.CommitID) bool {
	for _, e := range r.entries {
		if e.CommitID.Equal(id) {
			return true
		}
	}
	return false
}

// IterGraph returns the Missing/Direct/Indirect edge classification of
// idx's own graph walk from heads, excluding roots, when idx provides one,
// and nil otherwise. The revset's own members are not consulted.
func (r *Revset) IterGraph(idx index.Index, heads, roots []model.CommitID) []struct {
	Entry index.Entry
	Edges []index.Edge
} {
	type grapher interface {
		IterGraph(heads, roots []model.CommitID) []struct {
			Entry index.Entry
			Edges []index.Edge
		}
	}
	if g, ok := idx.(grapher); ok {
		return g.IterGraph(heads, roots)
	}
	return nil
}

// Evaluate evaluates expr against repo (spec §4.I "evaluate(expr, repo,
// workspace_ctx) -> Revset"). Callers should Optimize(expr) first; Evaluate
// does not optimize on its own so callers can inspect/compare the
// optimized tree independently.
func Evaluate(ctx context.Context, expr Expr, repo Repo, wc WorkspaceContext) (*Revset, error) {
	ev := &evaluator{ctx: ctx, repo: repo, idx: repo.Index(), view: repo.View(), wc: wc}
	entries, err := ev.eval(expr)
	if err != nil {
		return nil, err
	}
	return &Revset{entries: entries}, nil
}

type evaluator struct {
	ctx       context.Context
	repo      Repo
	idx       index.ReadonlyIndex
	view      *model.View
	wc        WorkspaceContext
	prefixIdx *ids.Index[model.CommitID]
}

func (ev *evaluator) entryFor(id model.CommitID) (index.Entry, bool) {
	return ev.idx.EntryByID(id)
}

func (ev *evaluator) allHeads() []model.CommitID {
	ids := make([]model.CommitID, 0, len(ev.view.Heads))
	for _, id := range ev.view.Heads {
		ids = append(ids, id)
	}
	return ids
}

func (ev *evaluator) allEntriesDesc() []index.Entry {
	w := ev.idx.WalkRevs(ev.allHeads(), nil)
	var out []index.Entry
	for {
		e, ok := w.Next()
		if !ok {
			break
		}
		out = append(out, e)
	}
	return out
}

func (ev *evaluator) idsOf(entries []index.Entry) []model.CommitID {
	ids := make([]model.CommitID, len(entries))
	for i, e := range entries {
		ids[i] = e.CommitID
	}
	return ids
}

func (ev *evaluator) eval(expr Expr) ([]index.Entry, error) {
	switch e := expr.(type) {
	case NoneExpr:
		return nil, nil

	case AllExpr:
		return ev.allEntriesDesc(), nil

	case VisibleHeadsExpr:
		return ev.entriesFromIDs(ev.allHeads()), nil

	case PublicHeadsExpr:
		ids := make([]model.CommitID, 0, len(ev.view.PublicHeads))
		for _, id := range ev.view.PublicHeads {
			ids = append(ids, id)
		}
		return ev.entriesFromIDs(ids), nil

	case TagsExpr:
		var ids []model.CommitID
		for _, rt := range ev.view.Tags {
			ids = append(ids, rt.AddedCommits()...)
		}
		return ev.entriesFromIDsDedup(ids)

	case GitRefsExpr:
		var ids []model.CommitID
		for _, rt := range ev.view.GitRefs {
			ids = append(ids, rt.AddedCommits()...)
		}
		return ev.entriesFromIDsDedup(ids)

	case GitHeadExpr:
		if ev.view.GitHead == nil {
			return nil, nil
		}
		return ev.entriesFromIDsDedup(ev.view.GitHead.AddedCommits())

	case *CommitsExpr:
		return ev.entriesFromIDs(e.IDs), nil

	case *SymbolExpr:
		id, err := ev.resolveSymbol(e.Name, e.Literal)
		if err != nil {
			return nil, err
		}
		return ev.entriesFromIDs([]model.CommitID{id}), nil

	case *ChildrenExpr:
		srcEntries, err := ev.eval(e.Source)
		if err != nil {
			return nil, err
		}
		srcPos := make(map[index.Position]bool, len(srcEntries))
		for _, se := range srcEntries {
			srcPos[se.Position] = true
		}
		var out []index.Entry
		for _, ent := range ev.allEntriesDesc() {
			for _, pp := range ent.ParentPositions {
				if srcPos[pp] {
					out = append(out, ent)
					break
				}
			}
		}
		return out, nil

	case *AncestorsExpr:
		heads, err := ev.eval(e.Heads)
		if err != nil {
			return nil, err
		}
		return ev.ancestorsInRange(ev.idsOf(heads), e.Gen), nil

	case *RangeExpr:
		roots, err := ev.eval(e.Roots)
		if err != nil {
			return nil, err
		}
		heads, err := ev.eval(e.Heads)
		if err != nil {
			return nil, err
		}
		w := ev.idx.WalkRevs(ev.idsOf(heads), ev.idsOf(roots))
		var out []index.Entry
		for {
			ent, ok := w.Next()
			if !ok {
				break
			}
			out = append(out, ent)
		}
		return filterByGen(out, e.Gen, ev.idsOf(heads), ev.idx), nil

	case *DagRangeExpr:
		roots, err := ev.eval(e.Roots)
		if err != nil {
			return nil, err
		}
		heads, err := ev.eval(e.Heads)
		if err != nil {
			return nil, err
		}
		// descendants(roots) ∩ ancestors(heads), i.e. everything reachable
		// forward from roots that's also reachable backward from heads.
		desc := ev.descendantsOf(ev.idsOf(roots))
		descSet := make(map[string]bool, len(desc))
		for _, id := range desc {
			descSet[id.Hex()] = true
		}
		w := ev.idx.WalkRevs(ev.idsOf(heads), nil)
		var out []index.Entry
		for {
			ent, ok := w.Next()
			if !ok {
				break
			}
			if descSet[ent.CommitID.Hex()] {
				out = append(out, ent)
			}
		}
		return out, nil

	case *HeadsExpr:
		src, err := ev.eval(e.Source)
		if err != nil {
			return nil, err
		}
		return ev.entriesFromIDs(ev.idx.Heads(ev.idsOf(src))), nil

	case *RootsExpr:
		src, err := ev.eval(e.Source)
		if err != nil {
			return nil, err
		}
		ids := ev.idsOf(src)
		member := make(map[string]bool, len(ids))
		for _, id := range ids {
			member[id.Hex()] = true
		}
		var roots []model.CommitID
		for _, id := range ids {
			ent, ok := ev.entryFor(id)
			if !ok {
				continue
			}
			hasMemberParent := false
			for _, pp := range ent.ParentPositions {
				if pe, ok := ev.idx.EntryByPosition(pp); ok && member[pe.CommitID.Hex()] {
					hasMemberParent = true
					break
				}
			}
			if !hasMemberParent {
				roots = append(roots, id)
			}
		}
		return ev.entriesFromIDs(roots), nil

	case *BranchesExpr:
		var ids []model.CommitID
		for name, bt := range ev.view.Branches {
			if e.Needle != "" && !strings.Contains(name, e.Needle) {
				continue
			}
			if bt.Local != nil {
				ids = append(ids, bt.Local.AddedCommits()...)
			}
		}
		return ev.entriesFromIDsDedup(ids)

	case *RemoteBranchesExpr:
		var ids []model.CommitID
		for name, bt := range ev.view.Branches {
			if e.Branch != "" && !strings.Contains(name, e.Branch) {
				continue
			}
			for remote, rt := range bt.Remotes {
				if e.Remote != "" && !strings.Contains(remote, e.Remote) {
					continue
				}
				ids = append(ids, rt.AddedCommits()...)
			}
		}
		return ev.entriesFromIDsDedup(ids)

	case *FilterExpr:
		var out []index.Entry
		for _, ent := range ev.allEntriesDesc() {
			ok, err := ev.testPredicate(e.Predicate, ent)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, ent)
			}
		}
		return out, nil

	case *AsFilterExpr:
		return ev.eval(e.Source)

	case *PresentExpr:
		entries, err := ev.eval(e.Source)
		if err != nil {
			var evalErr *EvalError
			if as(err, &evalErr) && evalErr.Kind == NoSuchRevision {
				return nil, nil
			}
			return nil, err
		}
		return entries, nil

	case *NotInExpr:
		src, err := ev.eval(e.Source)
		if err != nil {
			return nil, err
		}
		excl := make(map[string]bool, len(src))
		for _, se := range src {
			excl[se.CommitID.Hex()] = true
		}
		var out []index.Entry
		for _, ent := range ev.allEntriesDesc() {
			if !excl[ent.CommitID.Hex()] {
				out = append(out, ent)
			}
		}
		return out, nil

	case *UnionExpr:
		a, err := ev.eval(e.A)
		if err != nil {
			return nil, err
		}
		b, err := ev.eval(e.B)
		if err != nil {
			return nil, err
		}
		return mergeDescByPosition(a, b), nil

	case *IntersectionExpr:
		a, err := ev.eval(e.A)
		if err != nil {
			return nil, err
		}
		bSet, err := ev.memberSet(e.B)
		if err != nil {
			return nil, err
		}
		var out []index.Entry
		for _, ae := range a {
			if bSet(ae) {
				out = append(out, ae)
			}
		}
		return out, nil

	case *DifferenceExpr:
		a, err := ev.eval(e.A)
		if err != nil {
			return nil, err
		}
		bSet, err := ev.memberSet(e.B)
		if err != nil {
			return nil, err
		}
		var out []index.Entry
		for _, ae := range a {
			if !bSet(ae) {
				out = append(out, ae)
			}
		}
		return out, nil

	default:
		return nil, &EvalError{Kind: StoreError, Err: errUnknownExprNode}
	}
}

// memberSet evaluates expr as a predicate: if it's filter-like it tests
// each candidate directly (no independent materialization); otherwise it
// materializes expr once and tests membership against the resulting set.
func (ev *evaluator) memberSet(expr Expr) (func(index.Entry) bool, error) {
	if af, ok := expr.(*AsFilterExpr); ok {
		expr = af.Source
	}
	if fe, ok := expr.(*FilterExpr); ok {
		return func(ent index.Entry) bool {
			ok, err := ev.testPredicate(fe.Predicate, ent)
			return err == nil && ok
		}, nil
	}
	entries, err := ev.eval(expr)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(entries))
	for _, e := range entries {
		set[e.CommitID.Hex()] = true
	}
	return func(ent index.Entry) bool { return set[ent.CommitID.Hex()] }, nil
}

func (ev *evaluator) testPredicate(p Predicate, ent index.Entry) (bool, error) {
	c, err := ev.repo.Backend().ReadCommit(ev.ctx, ent.CommitID)
	if err != nil {
		return false, &EvalError{Kind: StoreError, Err: err}
	}
	switch pr := p.(type) {
	case AuthorPredicate:
		return strings.Contains(c.Author.Name, pr.Needle) || strings.Contains(c.Author.Email, pr.Needle), nil
	case CommitterPredicate:
		return strings.Contains(c.Committer.Name, pr.Needle) || strings.Contains(c.Committer.Email, pr.Needle), nil
	case DescriptionPredicate:
		return strings.Contains(c.Description, pr.Needle), nil
	case FilePredicate:
		// The core has no working-copy diff surface (out of scope, spec
		// §1); file-path filtering is left unimplemented here and always
		// reports no match rather than guessing at tree-walk semantics.
		return false, nil
	case ParentCountPredicate:
		n := uint32(len(c.Parents))
		return n >= pr.Range.Start && n < pr.Range.End, nil
	default:
		return false, nil
	}
}

// ancestorsInRange walks ancestors of heads, keeping only generation
// distances within gen (spec §4.I AncestorsExpr.Gen, half-open [Start,End)
// measured in hops from the nearest head in the argument set).
func (ev *evaluator) ancestorsInRange(heads []model.CommitID, gen GenRange) []index.Entry {
	if gen.isEmpty() {
		return nil
	}
	dist := map[string]uint32{}
	var frontier []model.CommitID
	for _, h := range heads {
		if _, ok := dist[h.Hex()]; !ok {
			dist[h.Hex()] = 0
			frontier = append(frontier, h)
		}
	}
	for len(frontier) > 0 {
		var next []model.CommitID
		for _, id := range frontier {
			d := dist[id.Hex()]
			if d+1 >= gen.End && gen.End != maxGeneration {
				continue
			}
			ent, ok := ev.entryFor(id)
			if !ok {
				continue
			}
			for _, pp := range ent.ParentPositions {
				pe, ok := ev.idx.EntryByPosition(pp)
				if !ok {
					continue
				}
				nd := d + 1
				if cur, seen := dist[pe.CommitID.Hex()]; !seen || nd < cur {
					dist[pe.CommitID.Hex()] = nd
					next = append(next, pe.CommitID)
				}
			}
		}
		frontier = next
	}
	var out []index.Entry
	for _, ent := range ev.allEntriesDesc() {
		d, ok := dist[ent.CommitID.Hex()]
		if !ok {
			continue
		}
		if d >= gen.Start && d < gen.End {
			out = append(out, ent)
		}
	}
	return out
}

func (ev *evaluator) descendantsOf(roots []model.CommitID) []model.CommitID {
	rootSet := make(map[string]bool, len(roots))
	for _, r := range roots {
		rootSet[r.Hex()] = true
	}
	// Ascending position order so a commit's parents are visited before it,
	// making single-pass propagation correct.
	all := ev.allEntriesDesc()
	inDesc := make(map[string]bool, len(all))
	for i := len(all) - 1; i >= 0; i-- {
		ent := all[i]
		if rootSet[ent.CommitID.Hex()] {
			inDesc[ent.CommitID.Hex()] = true
			continue
		}
		for _, pp := range ent.ParentPositions {
			if pe, ok := ev.idx.EntryByPosition(pp); ok && inDesc[pe.CommitID.Hex()] {
				inDesc[ent.CommitID.Hex()] = true
				break
			}
		}
	}
	var out []model.CommitID
	for _, ent := range all {
		if inDesc[ent.CommitID.Hex()] {
			out = append(out, ent.CommitID)
		}
	}
	return out
}

func filterByGen(entries []index.Entry, gen GenRange, heads []model.CommitID, idx index.ReadonlyIndex) []index.Entry {
	if gen.Start == 0 && gen.End == maxGeneration {
		return entries
	}
	// Generation-range filtering on a roots..heads range reuses the same
	// hop-distance-from-heads measure as AncestorsExpr.
	dist := map[string]uint32{}
	var frontier []model.CommitID
	for _, h := range heads {
		dist[h.Hex()] = 0
		frontier = append(frontier, h)
	}
	inSet := make(map[string]bool, len(entries))
	for _, e := range entries {
		inSet[e.CommitID.Hex()] = true
	}
	for len(frontier) > 0 {
		var next []model.CommitID
		for _, id := range frontier {
			ent, ok := idx.EntryByID(id)
			if !ok {
				continue
			}
			d := dist[id.Hex()]
			for _, pp := range ent.ParentPositions {
				pe, ok := idx.EntryByPosition(pp)
				if !ok || !inSet[pe.CommitID.Hex()] {
					continue
				}
				nd := d + 1
				if cur, seen := dist[pe.CommitID.Hex()]; !seen || nd < cur {
					dist[pe.CommitID.Hex()] = nd
					next = append(next, pe.CommitID)
				}
			}
		}
		frontier = next
	}
	var out []index.Entry
	for _, e := range entries {
		d, ok := dist[e.CommitID.Hex()]
		if !ok {
			continue
		}
		if d >= gen.Start && d < gen.End {
			out = append(out, e)
		}
	}
	return out
}

func mergeDescByPosition(a, b []index.Entry) []index.Entry {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]index.Entry, 0, len(a)+len(b))
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i].Position > b[j].Position:
			if !seen[a[i].CommitID.Hex()] {
				out = append(out, a[i])
				seen[a[i].CommitID.Hex()] = true
			}
			i++
		case b[j].Position > a[i].Position:
			if !seen[b[j].CommitID.Hex()] {
				out = append(out, b[j])
				seen[b[j].CommitID.Hex()] = true
			}
			j++
		default:
			if !seen[a[i].CommitID.Hex()] {
				out = append(out, a[i])
				seen[a[i].CommitID.Hex()] = true
			}
			i++
			j++
		}
	}
	for ; i < len(a); i++ {
		if !seen[a[i].CommitID.Hex()] {
			out = append(out, a[i])
			seen[a[i].CommitID.Hex()] = true
		}
	}
	for ; j < len(b); j++ {
		if !seen[b[j].CommitID.Hex()] {
			out = append(out, b[j])
			seen[b[j].CommitID.Hex()] = true
		}
	}
	return out
}

func (ev *evaluator) entriesFromIDs(ids []model.CommitID) []index.Entry {
	var out []index.Entry
	for _, id := range ids {
		if ent, ok := ev.entryFor(id); ok {
			out = append(out, ent)
		}
	}
	sortEntriesDesc(out)
	return out
}

func (ev *evaluator) entriesFromIDsDedup(ids []model.CommitID) ([]index.Entry, error) {
	return ev.entriesFromIDs(model.DedupCommitIDs(ids)), nil
}

func sortEntriesDesc(entries []index.Entry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].Position > entries[j-1].Position; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}

// resolveSymbol implements the symbol resolution order of spec §4.I: (a)
// hex prefix, (b) local branch, (c) tag, (d) git ref, (e) workspace-id, (f)
// '@' current working copy, (g) failure.
func (ev *evaluator) resolveSymbol(name string, literal bool) (model.CommitID, error) {
	if name == "@" && !literal {
		if id, ok := ev.wc.WorkingCopyIDs[ev.wc.WorkspaceID]; ok {
			return id, nil
		}
		return nil, &EvalError{Kind: NoSuchRevision, Name: name}
	}
	if !literal {
		if id, ok, ambiguous := ev.resolveHexPrefix(name); ambiguous {
			return nil, &EvalError{Kind: AmbiguousIdPrefix, Name: name}
		} else if ok {
			return id, nil
		}
	}
	if bt, ok := ev.view.Branches[name]; ok && bt.Local != nil && bt.Local.IsResolved() {
		return bt.Local.Normal, nil
	}
	if rt, ok := ev.view.Tags[name]; ok && rt.IsResolved() {
		return rt.Normal, nil
	}
	if rt, ok := ev.view.GitRefs[name]; ok && rt.IsResolved() {
		return rt.Normal, nil
	}
	if id, ok := ev.wc.WorkingCopyIDs[model.WorkspaceID(name)]; ok {
		return id, nil
	}
	return nil, &EvalError{Kind: NoSuchRevision, Name: name}
}

// resolveHexPrefix resolves name as a (possibly partial) hex commit-id
// prefix via the shortest-unique-prefix index (spec §4.A), not merely a
// full-length id lookup, so short prefixes like jj's own "abc123" disambiguate
// correctly and ambiguous ones are reported rather than silently picking one.
func (ev *evaluator) resolveHexPrefix(name string) (model.CommitID, bool, bool) {
	p, ok := ids.NewPrefixFromHex(name)
	if !ok {
		return nil, false, false
	}
	res := ev.prefixIndex().ResolvePrefix(p)
	switch res.Kind {
	case ids.SingleMatch:
		return res.Values[0], true, false
	case ids.AmbiguousMatch:
		return nil, false, true
	default:
		return nil, false, false
	}
}

func (ev *evaluator) prefixIndex() *ids.Index[model.CommitID] {
	if ev.prefixIdx != nil {
		return ev.prefixIdx
	}
	var entries []ids.Entry[model.CommitID]
	for _, e := range ev.allEntriesDesc() {
		entries = append(entries, ids.Entry[model.CommitID]{Key: []byte(e.CommitID), Value: e.CommitID})
	}
	ev.prefixIdx = ids.NewIndex(entries)
	return ev.prefixIdx
}

var errUnknownExprNode = &simpleErr{"revset: unknown expression node"}

type simpleErr struct{ s string }

func (e *simpleErr) Error() string { return e.s }

func as(err error, target **EvalError) bool {
	for err != nil {
		if e, ok := err.(*EvalError); ok {
			*target = e
			return true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = u.Unwrap()
	}
	return false
}
