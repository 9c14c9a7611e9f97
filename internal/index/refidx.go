package index

import (
	"github.com/jmarsh/jjcore/internal/model"
)

// refIndex is the in-memory reference Index/MutableIndex implementation
// (spec §9: "Implementations may replace both with a persistent on-disk
// index without changing the evaluator contract."). Generation numbers and
// ancestry are computed the way go-git's object.Commit.MergeBase and
// object.NewCommitPreorderIter walk parents
// (_examples/other_examples/72df7d36_go-git-go-git__plumbing-object-commit_walker.go.go),
// adapted to a dense position space instead of walking the backend directly.
type refIndex struct {
	byHex      map[string]Position
	entries    []Entry // indexed by Position
	nextPos    Position
}

// NewMutable returns an empty MutableIndex.
func NewMutable() MutableIndex {
	return &refIndex{byHex: map[string]Position{}}
}

func (ix *refIndex) Len() int { return len(ix.entries) }

func (ix *refIndex) HasID(id model.CommitID) bool {
	_, ok := ix.byHex[id.Hex()]
	return ok
}

func (ix *refIndex) EntryByID(id model.CommitID) (Entry, bool) {
	p, ok := ix.byHex[id.Hex()]
	if !ok {
		return Entry{}, false
	}
	return ix.entries[p], true
}

func (ix *refIndex) EntryByPosition(p Position) (Entry, bool) {
	if int(p) >= len(ix.entries) {
		return Entry{}, false
	}
	return ix.entries[p], true
}

// AddCommit appends a new entry. The caller supplies ParentPositions; if a
// parent isn't yet indexed (MergeIn from a partial index, or a commit
// added out of order), AddCommit resolves generation lazily by treating
// unindexed parents as generation 0.
func (ix *refIndex) AddCommit(e Entry) {
	if _, exists := ix.byHex[e.CommitID.Hex()]; exists {
		return
	}
	e.Position = ix.nextPos
	gen := uint32(0)
	for _, pp := range e.ParentPositions {
		if int(pp) < len(ix.entries) {
			if g := ix.entries[pp].Generation + 1; g > gen {
				gen = g
			}
		}
	}
	if len(e.ParentPositions) > 0 && gen == 0 {
		gen = 1
	}
	e.Generation = gen
	ix.entries = append(ix.entries, e)
	ix.byHex[e.CommitID.Hex()] = e.Position
	ix.nextPos++
}

// AddCommitWithParents is a convenience used by callers (repo, rewrite) that
// only know parent CommitIDs, not Positions.
func (ix *refIndex) AddCommitWithParents(id model.CommitID, changeID model.ChangeID, parents []model.CommitID) {
	var pp []Position
	for _, p := range parents {
		if pos, ok := ix.byHex[p.Hex()]; ok {
			pp = append(pp, pos)
		}
	}
	ix.AddCommit(Entry{CommitID: id, ChangeID: changeID, ParentPositions: pp})
}

func (ix *refIndex) MergeIn(other Index) {
	o, ok := other.(*refIndex)
	if !ok {
		// Fall back to a generic walk for foreign Index implementations.
		for p := 0; ; p++ {
			e, ok := other.EntryByPosition(Position(p))
			if !ok {
				break
			}
			parents := make([]model.CommitID, 0, len(e.ParentPositions))
			for _, pp := range e.ParentPositions {
				if pe, ok := other.EntryByPosition(pp); ok {
					parents = append(parents, pe.CommitID)
				}
			}
			ix.AddCommitWithParents(e.CommitID, e.ChangeID, parents)
		}
		return
	}
	// Walk the foreign index in position order (ancestors before
	// descendants, by construction) so parent positions resolve.
	for _, e := range o.entries {
		parents := make([]model.CommitID, 0, len(e.ParentPositions))
		for _, pp := range e.ParentPositions {
			parents = append(parents, o.entries[pp].CommitID)
		}
		ix.AddCommitWithParents(e.CommitID, e.ChangeID, parents)
	}
}

func (ix *refIndex) Freeze() ReadonlyIndex {
	frozen := &refIndex{byHex: map[string]Position{}}
	frozen.MergeIn(ix)
	return frozen
}

func (ix *refIndex) IsAncestor(ancestor, descendant model.CommitID) bool {
	if ancestor.Equal(descendant) {
		return true
	}
	if ancestor.IsRoot() {
		// The root commit is an ancestor of everything reachable in the
		// index (it's the universal sentinel parent).
		return ix.HasID(descendant)
	}
	startPos, ok := ix.byHex[descendant.Hex()]
	if !ok {
		return false
	}
	target, ok := ix.byHex[ancestor.Hex()]
	if !ok {
		return false
	}
	visited := make(map[Position]bool)
	stack := []Position{startPos}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[p] {
			continue
		}
		visited[p] = true
		if p == target {
			return true
		}
		e := ix.entries[p]
		// Generation numbers only decrease while walking to parents, so a
		// parent whose generation is already below the target's can't reach
		// it and is not pushed.
		for _, pp := range e.ParentPositions {
			if ix.entries[pp].Generation >= ix.entries[target].Generation {
				stack = append(stack, pp)
			}
		}
	}
	return false
}

// Heads returns the minimal head set of ids (spec §4.B).
func (ix *refIndex) Heads(ids []model.CommitID) []model.CommitID {
	heads := make([]model.CommitID, 0, len(ids))
	for i, a := range ids {
		isAncestorOfOther := false
		for j, b := range ids {
			if i == j {
				continue
			}
			if a.Equal(b) {
				if i > j {
					// Keep only the first occurrence of a duplicate.
					isAncestorOfOther = true
				}
				continue
			}
			if ix.IsAncestor(a, b) {
				isAncestorOfOther = true
				break
			}
		}
		if !isAncestorOfOther {
			heads = append(heads, a)
		}
	}
	return model.DedupCommitIDs(heads)
}

type refWalk struct {
	entries []Entry
	pos     int
}

func (w *refWalk) Next() (Entry, bool) {
	if w.pos >= len(w.entries) {
		return Entry{}, false
	}
	e := w.entries[w.pos]
	w.pos++
	return e, true
}

// WalkRevs returns entries reachable from heads, excluding anything
// reachable from roots, in descending position order (spec §4.B, §5
// "Ordering guarantees").
func (ix *refIndex) WalkRevs(heads, roots []model.CommitID) RevWalk {
	excluded := make(map[Position]bool)
	var excludeStack []Position
	for _, r := range roots {
		if p, ok := ix.byHex[r.Hex()]; ok {
			excludeStack = append(excludeStack, p)
		}
	}
	for len(excludeStack) > 0 {
		p := excludeStack[len(excludeStack)-1]
		excludeStack = excludeStack[:len(excludeStack)-1]
		if excluded[p] {
			continue
		}
		excluded[p] = true
		for _, pp := range ix.entries[p].ParentPositions {
			excludeStack = append(excludeStack, pp)
		}
	}

	included := make(map[Position]bool)
	var stack []Position
	for _, h := range heads {
		if p, ok := ix.byHex[h.Hex()]; ok {
			stack = append(stack, p)
		}
	}
	for len(stack) > 0 {
		p := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if included[p] || excluded[p] {
			continue
		}
		included[p] = true
		for _, pp := range ix.entries[p].ParentPositions {
			stack = append(stack, pp)
		}
	}

	var out []Entry
	for p := len(ix.entries) - 1; p >= 0; p-- {
		if included[Position(p)] {
			out = append(out, ix.entries[p])
		}
	}
	return &refWalk{entries: out}
}

// IterGraph exposes (entry, edges) pairs classified Missing/Direct/Indirect,
// for revset evaluators that need to render or reason about graph topology.
func (ix *refIndex) IterGraph(heads, roots []model.CommitID) []struct {
	Entry Entry
	Edges []Edge
} {
	w := ix.WalkRevs(heads, roots)
	included := map[Position]bool{}
	var entries []Entry
	for {
		e, ok := w.Next()
		if !ok {
			break
		}
		entries = append(entries, e)
		included[e.Position] = true
	}
	out := make([]struct {
		Entry Entry
		Edges []Edge
	}, len(entries))
	for i, e := range entries {
		var edges []Edge
		for _, pp := range e.ParentPositions {
			if included[pp] {
				edges = append(edges, Edge{Kind: EdgeDirect, Target: pp})
			} else if int(pp) < len(ix.entries) {
				edges = append(edges, Edge{Kind: EdgeIndirect, Target: pp})
			} else {
				edges = append(edges, Edge{Kind: EdgeMissing, Target: pp})
			}
		}
		out[i] = struct {
			Entry Entry
			Edges []Edge
		}{e, edges}
	}
	return out
}
