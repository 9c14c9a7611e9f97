// Package rewrite implements the descendant rebaser of spec §4.H: given a
// MutableRepo's rewritten/abandoned bookkeeping, it walks every descendant
// of a changed commit, substitutes rewritten/abandoned parents, and writes a
// new commit wherever the parent set or tree actually changed. Grounded on
// b5c43f20_antgroup-hugescm__pkg-zeta-worktree_rebase.go.go's repeated
// parent-substitution-and-tree-merge structure, adapted from its single
// onto-destination rebase to this spec's free-form descendant propagation.
package rewrite

import (
	"context"

	"github.com/jmarsh/jjcore/internal/conflict"
	"github.com/jmarsh/jjcore/internal/index"
	"github.com/jmarsh/jjcore/internal/model"
	"github.com/jmarsh/jjcore/internal/store"
)

// RepoLike is the narrow slice of *repo.MutableRepo the rebaser needs. It
// is defined here, not in package repo, so repo can call into rewrite
// without rewrite importing repo (which would cycle back, since repo would
// otherwise need to import rewrite too).
type RepoLike interface {
	Backend() store.Backend
	Index() index.MutableIndex
	View() (*model.View, error)
	AddHead(ctx context.Context, id model.CommitID) error
	RecordRewrittenCommit(old, new model.CommitID) error
	RecordAbandonedCommit(old model.CommitID) error
	Rewritten() map[string][]model.CommitID
	Abandoned() map[string]bool
}

// RebaseDescendants implements spec §4.H. It returns the count of commits
// rebased.
func RebaseDescendants(ctx context.Context, r RepoLike) (int, error) {
	oldIDs, err := collectOldIDs(r)
	if err != nil {
		return 0, err
	}
	if len(oldIDs) == 0 {
		return 0, nil
	}

	v, err := r.View()
	if err != nil {
		return 0, err
	}
	heads := v.HeadIDs()

	toProcess, err := descendantsAscending(r, heads, oldIDs)
	if err != nil {
		return 0, err
	}

	isOld := map[string]bool{}
	for _, id := range oldIDs {
		isOld[id.Hex()] = true
	}

	memo := map[string][]model.CommitID{}
	visiting := map[string]bool{}
	count := 0

	for _, e := range toProcess {
		c, err := r.Backend().ReadCommit(ctx, e.CommitID)
		if err != nil {
			return count, err
		}

		var newParents []model.CommitID
		for _, p := range c.Parents {
			sub, err := substitute(ctx, r, p, memo, visiting)
			if err != nil {
				return count, err
			}
			newParents = append(newParents, sub...)
		}
		newParents = cleanParents(r, newParents)

		if parentsEqual(newParents, c.Parents) && !isOld[e.CommitID.Hex()] {
			continue
		}

		newTree, err := rebuildTree(ctx, r.Backend(), c, c.Parents, newParents)
		if err != nil {
			return count, err
		}

		newCommit := &model.Commit{
			Parents:      newParents,
			RootTree:     newTree,
			Author:       c.Author,
			Committer:    c.Committer,
			Description:  c.Description,
			ChangeID:     c.ChangeID,
			IsOpen:       c.IsOpen,
			Predecessors: []model.CommitID{e.CommitID},
		}
		newID, err := r.Backend().WriteCommit(ctx, newCommit)
		if err != nil {
			return count, err
		}

		if err := r.RecordRewrittenCommit(e.CommitID, newID); err != nil {
			return count, err
		}
		memo[e.CommitID.Hex()] = []model.CommitID{newID}
		if err := r.AddHead(ctx, newID); err != nil {
			return count, err
		}
		count++
	}

	return count, nil
}

// RebaseOnto rewrites each of sources to have dest as its sole new parent,
// then propagates the change to every descendant via RebaseDescendants. It
// rejects destinations that are, or descend from, any source (Open
// Question decision: reject before any write).
func RebaseOnto(ctx context.Context, r RepoLike, sources []model.CommitID, dest model.CommitID) (int, error) {
	for _, src := range sources {
		if src.Equal(dest) || r.Index().IsAncestor(src, dest) {
			return 0, ErrCyclicRebase
		}
	}
	for _, src := range sources {
		newCommit, err := r.Backend().ReadCommit(ctx, src)
		if err != nil {
			return 0, err
		}
		rewritten := *newCommit
		rewritten.Parents = []model.CommitID{dest}
		rewritten.Predecessors = []model.CommitID{src}
		newID, err := r.Backend().WriteCommit(ctx, &rewritten)
		if err != nil {
			return 0, err
		}
		if err := r.RecordRewrittenCommit(src, newID); err != nil {
			return 0, err
		}
		if err := r.AddHead(ctx, newID); err != nil {
			return 0, err
		}
	}
	n, err := RebaseDescendants(ctx, r)
	return n + len(sources), err
}

// RebaseRevision implements single-revision rebase (`-r`, spec §8 scenario
// 3: "Rebase single revision retargets descendants"): unlike RebaseOnto's
// branch-style move, source itself relocates onto dest while its
// descendants bypass it and reattach directly to source's *original*
// parents (e.g. `a, b, c = merge(a,b), d = c-child`; `rebase(-r c, dest =
// root)` yields `d = merge(a,b)`, not `d`'s parent becoming the relocated
// `c`).
//
// This is done by recording source as both abandoned and rewritten:
// substitute (in RebaseDescendants) checks Abandoned first, so source's
// descendants are retargeted through the transitive substitution of
// source's original parents exactly as if source had no replacement, while
// the Rewritten record still lets source's successorship be discovered by
// anything walking rewritten instead of abandoned commits.
func RebaseRevision(ctx context.Context, r RepoLike, source, dest model.CommitID) (int, error) {
	if source.Equal(dest) || r.Index().IsAncestor(source, dest) {
		return 0, ErrCyclicRebase
	}

	c, err := r.Backend().ReadCommit(ctx, source)
	if err != nil {
		return 0, err
	}
	relocated := *c
	relocated.Parents = []model.CommitID{dest}
	relocated.Predecessors = []model.CommitID{source}
	newID, err := r.Backend().WriteCommit(ctx, &relocated)
	if err != nil {
		return 0, err
	}

	if err := r.RecordAbandonedCommit(source); err != nil {
		return 0, err
	}
	if err := r.RecordRewrittenCommit(source, newID); err != nil {
		return 0, err
	}
	if err := r.AddHead(ctx, newID); err != nil {
		return 0, err
	}

	n, err := RebaseDescendants(ctx, r)
	return n + 1, err
}

func collectOldIDs(r RepoLike) ([]model.CommitID, error) {
	seen := map[string]bool{}
	var out []model.CommitID
	for k := range r.Rewritten() {
		if seen[k] {
			continue
		}
		seen[k] = true
		id, err := model.CommitIDFromHex(k)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	for k := range r.Abandoned() {
		if seen[k] {
			continue
		}
		seen[k] = true
		id, err := model.CommitIDFromHex(k)
		if err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, nil
}

// descendantsAscending returns every commit reachable from heads that
// descends from some id in oldIDs, ordered so each commit's parents already
// appear earlier (ancestors-first), satisfying spec §4.H step 1's "each
// commit's parents are already handled" requirement.
func descendantsAscending(r RepoLike, heads []model.CommitID, oldIDs []model.CommitID) ([]index.Entry, error) {
	walk := r.Index().WalkRevs(heads, nil)
	var all []index.Entry
	for {
		e, ok := walk.Next()
		if !ok {
			break
		}
		all = append(all, e)
	}

	var toProcess []index.Entry
	for i := len(all) - 1; i >= 0; i-- {
		e := all[i]
		for _, oid := range oldIDs {
			if oid.Equal(e.CommitID) {
				continue
			}
			if r.Index().IsAncestor(oid, e.CommitID) {
				toProcess = append(toProcess, e)
				break
			}
		}
	}
	return toProcess, nil
}

// substitute resolves id through the rewritten/abandoned chains (spec
// §4.H step 2), recursing through transitive abandonment, and memoizing
// results as they're discovered.
func substitute(ctx context.Context, r RepoLike, id model.CommitID, memo map[string][]model.CommitID, visiting map[string]bool) ([]model.CommitID, error) {
	key := id.Hex()
	if v, ok := memo[key]; ok {
		return v, nil
	}
	if visiting[key] {
		return nil, errCycleDuringSubstitution
	}

	if r.Abandoned()[key] {
		visiting[key] = true
		defer delete(visiting, key)

		c, err := r.Backend().ReadCommit(ctx, id)
		if err != nil {
			return nil, err
		}
		var out []model.CommitID
		for _, p := range c.Parents {
			sub, err := substitute(ctx, r, p, memo, visiting)
			if err != nil {
				return nil, err
			}
			out = append(out, sub...)
		}
		out = cleanParents(r, out)
		memo[key] = out
		return out, nil
	}

	if newIDs, ok := r.Rewritten()[key]; ok && len(newIDs) > 0 {
		memo[key] = newIDs
		return newIDs, nil
	}

	memo[key] = []model.CommitID{id}
	return memo[key], nil
}

// cleanParents implements spec §4.H step 2's dedup/root-drop/redundant-
// ancestor-parent pruning.
func cleanParents(r RepoLike, ps []model.CommitID) []model.CommitID {
	ps = model.DedupCommitIDs(ps)
	if len(ps) > 1 {
		var withoutRoot []model.CommitID
		for _, p := range ps {
			if !p.IsRoot() {
				withoutRoot = append(withoutRoot, p)
			}
		}
		if len(withoutRoot) > 0 {
			ps = withoutRoot
		}
	}

	var out []model.CommitID
	for i, p := range ps {
		redundant := false
		for j, q := range ps {
			if i == j {
				continue
			}
			if !p.Equal(q) && r.Index().IsAncestor(p, q) {
				redundant = true
				break
			}
		}
		if !redundant {
			out = append(out, p)
		}
	}
	return out
}

func parentsEqual(a, b []model.CommitID) bool {
	if len(a) != len(b) {
		return false
	}
	used := map[string]bool{}
	for _, x := range a {
		used[x.Hex()] = true
	}
	for _, y := range b {
		if !used[y.Hex()] {
			return false
		}
	}
	return true
}

func rebuildTree(ctx context.Context, backend store.Backend, c *model.Commit, oldParents, newParents []model.CommitID) (model.TreeID, error) {
	oldParentTree, err := parentsMergedTree(ctx, backend, oldParents)
	if err != nil {
		return nil, err
	}
	newParentTree, err := parentsMergedTree(ctx, backend, newParents)
	if err != nil {
		return nil, err
	}
	return conflict.MergeTrees(ctx, backend, oldParentTree, c.RootTree, newParentTree)
}

func parentsMergedTree(ctx context.Context, backend store.Backend, parents []model.CommitID) (model.TreeID, error) {
	if len(parents) == 0 {
		return nil, nil
	}
	trees := make([]model.TreeID, 0, len(parents))
	for _, p := range parents {
		if p.IsRoot() {
			trees = append(trees, nil)
			continue
		}
		pc, err := backend.ReadCommit(ctx, p)
		if err != nil {
			return nil, err
		}
		trees = append(trees, pc.RootTree)
	}
	return conflict.MergeParentTrees(ctx, backend, trees)
}
