// Package index specifies the commit index capability the core consumes
// (spec §4.B): ancestry queries, heads, generation numbers and walks. The
// core never implements a production index itself — only the narrow
// capability contract and a simple in-memory reference (package refidx),
// adapted from go-git's own merge-base and commit-preorder walk
// (_examples/other_examples/72df7d36_go-git-go-git__plumbing-object-commit_walker.go.go,
// 90c3eb48_antgroup-hugescm__pkg-zeta-revision.go.go).
package index

import "github.com/jmarsh/jjcore/internal/model"

// Position is a dense, backend-assigned integer identifying a commit's slot
// in the index; entries are iterated in descending position order.
type Position uint32

// Entry exposes one commit's index-local metadata (spec §4.B).
type Entry struct {
	Position        Position
	CommitID        model.CommitID
	ChangeID        model.ChangeID
	Generation      uint32
	ParentPositions []Position
}

// Edge classifies one step of a graph walk (spec §4.I evaluator contract).
type EdgeKind int

const (
	EdgeMissing EdgeKind = iota
	EdgeDirect
	EdgeIndirect
)

// Edge is one edge emitted by IterGraph.
type Edge struct {
	Kind   EdgeKind
	Target Position
}

// RevWalk is a lazy, descending-by-position iterator of index entries.
type RevWalk interface {
	Next() (Entry, bool)
}

// Index is the read side of the commit index capability.
type Index interface {
	// IsAncestor reports whether ancestor is an ancestor of (or equal to)
	// descendant.
	IsAncestor(ancestor, descendant model.CommitID) bool

	// Heads returns the minimal head set of ids: the subset of ids that is
	// not an ancestor of any other id in ids.
	Heads(ids []model.CommitID) []model.CommitID

	// WalkRevs returns entries reachable from heads, excluding anything
	// reachable from roots, in descending position order.
	WalkRevs(heads, roots []model.CommitID) RevWalk

	HasID(id model.CommitID) bool
	EntryByPosition(p Position) (Entry, bool)
	EntryByID(id model.CommitID) (Entry, bool)

	// Len returns the number of commits indexed.
	Len() int
}

// ReadonlyIndex is an Index constructed from a persisted store view; it is
// immutable and shareable across threads (spec §5).
type ReadonlyIndex interface {
	Index
}

// MutableIndex additionally accepts new commits and can absorb another
// index's commits (used by op-heads merge, spec §4.E).
type MutableIndex interface {
	Index
	AddCommit(entry Entry)
	// AddCommitWithParents is the ergonomic entry point for callers that
	// only know parent CommitIDs, not index Positions.
	AddCommitWithParents(id model.CommitID, changeID model.ChangeID, parents []model.CommitID)
	MergeIn(other Index)
	Freeze() ReadonlyIndex
}
