package repo

import (
	"context"
	"errors"

	"github.com/jmarsh/jjcore/internal/index"
	"github.com/jmarsh/jjcore/internal/model"
	"github.com/jmarsh/jjcore/internal/store"
	"github.com/jmarsh/jjcore/internal/view"
)

// MutableRepo is the owning-thread-only working state of a Transaction
// (spec §4.G): a base ReadonlyRepo, a MutableIndex, a dirty-cell-held View,
// and the rewritten/abandoned bookkeeping that seeds descendant rebase.
type MutableRepo struct {
	base    *ReadonlyRepo
	index   index.MutableIndex
	cell    *dirtyCell

	rewritten map[string][]model.CommitID // old commit hex -> new commit ids
	abandoned map[string]bool             // old commit hex -> true
}

func newMutableRepo(base *ReadonlyRepo) *MutableRepo {
	mi := index.NewMutable()
	mi.MergeIn(base.Index())
	return &MutableRepo{
		base:      base,
		index:     mi,
		cell:      newDirtyCell(base.View().Clone()),
		rewritten: map[string][]model.CommitID{},
		abandoned: map[string]bool{},
	}
}

func (r *MutableRepo) Backend() store.Backend { return r.base.Backend() }

// Index exposes the mutable index (satisfies the narrow RepoLike index
// accessor internal/rewrite depends on).
func (r *MutableRepo) Index() index.MutableIndex { return r.index }

// ViewMut returns the view for direct mutation; the cell stays clean, so
// the caller is responsible for preserving the head invariant (§3) itself.
func (r *MutableRepo) ViewMut() *model.View { return r.cell.ViewMut() }

// View returns the current view, normalizing the head set first if it was
// left dirty by a prior AddHead slow path or Merge (spec §4.G).
func (r *MutableRepo) View() (*model.View, error) {
	return r.cell.EnsureClean(r.enforceHeadInvariant)
}

func (r *MutableRepo) enforceHeadInvariant(v *model.View) {
	heads := v.HeadIDs()
	minimal := r.index.Heads(heads)
	v.SetHeads(minimal)
	if len(minimal) == 0 {
		v.AddHead(r.base.Backend().RootCommitID())
	}
	public := r.index.Heads(v.PublicHeadIDs())
	v.PublicHeads = map[string]model.CommitID{}
	for _, id := range public {
		if v.HasHead(id) {
			v.PublicHeads[id.Hex()] = id
		}
	}
}

// AddHead implements spec §4.G add_head: fast path when every parent of
// commit is already a head; otherwise a slow path that indexes any
// not-yet-indexed ancestors in reverse topological order and defers head
// normalization to the dirty cell.
func (r *MutableRepo) AddHead(ctx context.Context, id model.CommitID) error {
	if id.IsRoot() {
		return nil
	}
	c, err := r.base.Backend().ReadCommit(ctx, id)
	if err != nil {
		return err
	}

	v := r.cell.ViewMut()

	allParentsAreHeads := true
	for _, p := range c.Parents {
		if !p.IsRoot() && !v.HasHead(p) {
			allParentsAreHeads = false
			break
		}
	}

	if allParentsAreHeads {
		r.index.AddCommitWithParents(id, c.ChangeID, c.Parents)
		v.AddHead(id)
		for _, p := range c.Parents {
			v.RemoveHead(p)
		}
		return nil
	}

	order, err := r.topoSortUnindexedAncestors(ctx, c.Parents)
	if err != nil {
		return err
	}
	for _, aid := range order {
		ac, err := r.base.Backend().ReadCommit(ctx, aid)
		if err != nil {
			return err
		}
		r.index.AddCommitWithParents(aid, ac.ChangeID, ac.Parents)
	}
	r.index.AddCommitWithParents(id, c.ChangeID, c.Parents)
	v.AddHead(id)
	r.cell.MarkDirty()
	return nil
}

// topoSortUnindexedAncestors returns every ancestor of roots not already in
// the index, in an order where each commit follows all of its own
// ancestors (reverse topological, i.e. parents before children).
func (r *MutableRepo) topoSortUnindexedAncestors(ctx context.Context, roots []model.CommitID) ([]model.CommitID, error) {
	var order []model.CommitID
	visited := map[string]bool{}
	var walk func(id model.CommitID) error
	walk = func(id model.CommitID) error {
		if id.IsRoot() || visited[id.Hex()] || r.index.HasID(id) {
			return nil
		}
		visited[id.Hex()] = true
		c, err := r.base.Backend().ReadCommit(ctx, id)
		if err != nil {
			return err
		}
		for _, p := range c.Parents {
			if err := walk(p); err != nil {
				return err
			}
		}
		order = append(order, id)
		return nil
	}
	for _, id := range roots {
		if err := walk(id); err != nil {
			return nil, err
		}
	}
	return order, nil
}

// RecordRewrittenCommit and RecordAbandonedCommit accumulate the advisory
// records descendant rebase consumes (spec §4.G).
func (r *MutableRepo) RecordRewrittenCommit(old, new model.CommitID) error {
	if old.IsRoot() {
		return &store.RewriteRootCommit{}
	}
	r.rewritten[old.Hex()] = append(r.rewritten[old.Hex()], new)
	return nil
}

func (r *MutableRepo) RecordAbandonedCommit(old model.CommitID) error {
	if old.IsRoot() {
		return &store.RewriteRootCommit{}
	}
	r.abandoned[old.Hex()] = true
	return nil
}

// EditCommit points workspace's working-copy pointer directly at commit
// (spec §3: working-copy pointers; checking out the root commit is never
// meaningful and fails with a dedicated error).
func (r *MutableRepo) EditCommit(ctx context.Context, workspace model.WorkspaceID, commit model.CommitID) error {
	if commit.IsRoot() {
		return &store.EditCommitError{Root: &store.RewriteRootCommit{}}
	}
	if _, err := r.base.Backend().ReadCommit(ctx, commit); err != nil {
		return &store.EditCommitError{NotFound: store.NewBackendError(r.base.Backend().Name(), "read_commit", err)}
	}
	v := r.cell.ViewMut()
	v.WorkingCopies[workspace] = commit
	return nil
}

// CheckOutCommit creates a new open commit as a child of parent, carrying
// parent's tree forward unchanged, adds it as a head, and edits workspace
// onto it (spec §3). Checking out onto the root commit (parent == root) is
// how a repo's very first real commit is created and is permitted; it is
// only EditCommit onto the root itself that's rejected.
func (r *MutableRepo) CheckOutCommit(ctx context.Context, workspace model.WorkspaceID, parent model.CommitID, author, committer model.Signature) (model.CommitID, error) {
	var parentTree model.TreeID
	if !parent.IsRoot() {
		parentCommit, err := r.base.Backend().ReadCommit(ctx, parent)
		if err != nil {
			return nil, &store.CheckOutCommitError{CreateCommit: store.NewBackendError(r.base.Backend().Name(), "read_commit", err)}
		}
		parentTree = parentCommit.RootTree
	}

	newCommit := &model.Commit{
		Parents:   []model.CommitID{parent},
		RootTree:  parentTree,
		Author:    author,
		Committer: committer,
		IsOpen:    true,
	}
	id, err := r.base.Backend().WriteCommit(ctx, newCommit)
	if err != nil {
		return nil, &store.CheckOutCommitError{CreateCommit: store.NewBackendError(r.base.Backend().Name(), "write_commit", err)}
	}
	if err := r.AddHead(ctx, id); err != nil {
		return nil, &store.CheckOutCommitError{CreateCommit: store.NewBackendError(r.base.Backend().Name(), "add_head", err)}
	}
	if err := r.EditCommit(ctx, workspace, id); err != nil {
		var ece *store.EditCommitError
		if errors.As(err, &ece) {
			return nil, &store.CheckOutCommitError{EditCommit: ece}
		}
		return nil, &store.CheckOutCommitError{CreateCommit: store.NewBackendError(r.base.Backend().Name(), "edit_commit", err)}
	}
	return id, nil
}

// Rewritten and Abandoned expose the bookkeeping maps for internal/rewrite
// (through the narrow RepoLike interface it defines itself to avoid an
// import cycle back to this package).
func (r *MutableRepo) Rewritten() map[string][]model.CommitID { return r.rewritten }
func (r *MutableRepo) Abandoned() map[string]bool              { return r.abandoned }

// RecordRewrites implements spec §4.G record_rewrites: commits present in
// oldHeads but not in newHeads are matched to commits present only in
// newHeads that share a change-id (rewrites), or marked abandoned when their
// change-id disappears entirely.
//
// Per spec wording ("walk old_heads \ new_heads ... walk new_heads \
// old_heads") this operates on the head sets themselves, not their full
// ancestry — a descendant rebase invoked afterwards is what propagates the
// consequences to the rest of the graph.
func (r *MutableRepo) RecordRewrites(ctx context.Context, oldHeads, newHeads []model.CommitID) error {
	oldOnly, newOnly := diffCommitIDs(oldHeads, newHeads)

	removedByChange := map[string][]model.CommitID{}
	for _, id := range oldOnly {
		c, err := r.base.Backend().ReadCommit(ctx, id)
		if err != nil {
			return err
		}
		k := c.ChangeID.Hex()
		removedByChange[k] = append(removedByChange[k], id)
	}

	addedByChange := map[string][]model.CommitID{}
	for _, id := range newOnly {
		c, err := r.base.Backend().ReadCommit(ctx, id)
		if err != nil {
			return err
		}
		k := c.ChangeID.Hex()
		addedByChange[k] = append(addedByChange[k], id)
	}

	for changeKey, removedIDs := range removedByChange {
		addedIDs, ok := addedByChange[changeKey]
		if !ok {
			for _, old := range removedIDs {
				if err := r.RecordAbandonedCommit(old); err != nil {
					return err
				}
			}
			continue
		}
		for _, old := range removedIDs {
			for _, newID := range addedIDs {
				if err := r.RecordRewrittenCommit(old, newID); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func diffCommitIDs(a, b []model.CommitID) (onlyA, onlyB []model.CommitID) {
	inA := map[string]model.CommitID{}
	for _, id := range a {
		inA[id.Hex()] = id
	}
	inB := map[string]model.CommitID{}
	for _, id := range b {
		inB[id.Hex()] = id
	}
	for k, id := range inA {
		if _, ok := inB[k]; !ok {
			onlyA = append(onlyA, id)
		}
	}
	for k, id := range inB {
		if _, ok := inA[k]; !ok {
			onlyB = append(onlyB, id)
		}
	}
	return model.SortCommitIDs(onlyA), model.SortCommitIDs(onlyB)
}

// Merge implements spec §4.G's 3-way operation merge: indices are combined,
// rewrites are recorded from base to each side's heads, and the view is
// replaced by the §4.D field-by-field merge (including git-HEAD, merged by
// the same single-ref rule as every other ref map entry).
func (r *MutableRepo) Merge(ctx context.Context, base, other *ReadonlyRepo) error {
	r.index.MergeIn(base.Index())
	r.index.MergeIn(other.Index())

	selfView, err := r.View()
	if err != nil {
		return err
	}

	if err := r.RecordRewrites(ctx, base.View().HeadIDs(), selfView.HeadIDs()); err != nil {
		return err
	}
	if err := r.RecordRewrites(ctx, base.View().HeadIDs(), other.View().HeadIDs()); err != nil {
		return err
	}

	merged := view.Merge(base.View(), selfView, other.View())
	r.cell.Replace(merged)
	return nil
}
