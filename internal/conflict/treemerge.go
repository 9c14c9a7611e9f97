// Package conflict implements the 3-way tree merge used by descendant
// rebase (spec §4.H) and the conflict-marker wire format (spec §6),
// grounded on b5c43f20_antgroup-hugescm__pkg-zeta-worktree_rebase.go.go's
// repeated-3-way-merge rebase structure and on
// original_source/lib/tests/test_conflicts.rs for the marker format.
package conflict

import (
	"context"

	"github.com/jmarsh/jjcore/internal/model"
	"github.com/jmarsh/jjcore/internal/store"
)

func readTreeOrEmpty(ctx context.Context, backend store.Backend, id model.TreeID) (*model.Tree, error) {
	if len(id) == 0 {
		return &model.Tree{Entries: map[string]model.TreeEntry{}}, nil
	}
	return backend.ReadTree(ctx, id)
}

func entriesEqual(a, b model.TreeEntry) bool {
	if a.Kind != b.Kind || a.Executable != b.Executable {
		return false
	}
	switch a.Kind {
	case model.EntryFile:
		return a.FileID.Hex() == b.FileID.Hex()
	case model.EntryTree:
		return a.TreeID.Hex() == b.TreeID.Hex()
	default:
		return a.ConflictID.Hex() == b.ConflictID.Hex()
	}
}

// MergeTrees performs a flat, path-by-path 3-way merge of base/self/other
// (spec §4.H: "tree produced by a 3-way tree merge"). Paths unanimous
// between self and other are taken as-is; paths where exactly one side
// diverged from base take the diverging side; genuine divergence produces a
// Conflict tree entry rather than an error (spec §4.H: "Tree conflicts are
// not errors").
func MergeTrees(ctx context.Context, backend store.Backend, baseID, selfID, otherID model.TreeID) (model.TreeID, error) {
	base, err := readTreeOrEmpty(ctx, backend, baseID)
	if err != nil {
		return nil, err
	}
	self, err := readTreeOrEmpty(ctx, backend, selfID)
	if err != nil {
		return nil, err
	}
	other, err := readTreeOrEmpty(ctx, backend, otherID)
	if err != nil {
		return nil, err
	}

	paths := map[string]bool{}
	for p := range base.Entries {
		paths[p] = true
	}
	for p := range self.Entries {
		paths[p] = true
	}
	for p := range other.Entries {
		paths[p] = true
	}

	merged := &model.Tree{Entries: map[string]model.TreeEntry{}}
	for path := range paths {
		be, bok := base.Entries[path]
		se, sok := self.Entries[path]
		oe, ook := other.Entries[path]

		switch {
		case sok == ook && (!sok || entriesEqual(se, oe)):
			if sok {
				merged.Entries[path] = se
			}
		case sok == bok && (!bok || (sok && entriesEqual(se, be))):
			if ook {
				merged.Entries[path] = oe
			}
		case ook == bok && (!bok || (ook && entriesEqual(oe, be))):
			if sok {
				merged.Entries[path] = se
			}
		default:
			entry, ok, err := resolvePathConflict(ctx, backend, be, bok, se, sok, oe, ook)
			if err != nil {
				return nil, err
			}
			if ok {
				merged.Entries[path] = entry
			}
		}
	}

	return backend.WriteTree(ctx, merged)
}

func resolvePathConflict(ctx context.Context, backend store.Backend, be model.TreeEntry, bok bool, se model.TreeEntry, sok bool, oe model.TreeEntry, ook bool) (model.TreeEntry, bool, error) {
	var removes []model.FileID
	if bok && be.Kind == model.EntryFile {
		removes = append(removes, be.FileID)
	}
	var adds []model.FileID
	if sok && se.Kind == model.EntryFile {
		adds = append(adds, se.FileID)
	}
	if ook && oe.Kind == model.EntryFile {
		adds = append(adds, oe.FileID)
	}
	if len(adds) == 0 {
		return model.TreeEntry{}, false, nil
	}

	c := &model.Conflict{Removes: removes, Adds: adds}
	if c.IsResolved() {
		return model.TreeEntry{Kind: model.EntryFile, FileID: adds[0]}, true, nil
	}
	cid, err := backend.WriteConflict(ctx, c)
	if err != nil {
		return model.TreeEntry{}, false, err
	}
	return model.TreeEntry{Kind: model.EntryConflict, ConflictID: cid}, true, nil
}

// MergeParentTrees folds a multi-parent commit's parent trees down to a
// single tree, used as one side of the 3-way merge when rebasing a merge
// commit (spec §4.H: "the merged tree of P"). This is a deliberate
// simplification: it merges parent trees pairwise against the first
// parent's tree as a common base, rather than computing the real jj
// "simplify parents" reduction, which needs a full commit-history merge-base
// search beyond this package's scope.
func MergeParentTrees(ctx context.Context, backend store.Backend, parentTrees []model.TreeID) (model.TreeID, error) {
	if len(parentTrees) == 0 {
		return nil, nil
	}
	if len(parentTrees) == 1 {
		return parentTrees[0], nil
	}
	acc := parentTrees[0]
	for _, t := range parentTrees[1:] {
		merged, err := MergeTrees(ctx, backend, parentTrees[0], acc, t)
		if err != nil {
			return nil, err
		}
		acc = merged
	}
	return acc, nil
}
