package model

// RefTargetKind distinguishes a resolved ref from a conflicted one.
type RefTargetKind int

const (
	RefNormal RefTargetKind = iota
	RefConflict
)

// RefTarget is a tagged variant: Normal(CommitId) or a structural Conflict
// carrying both sides (spec §3, §9 "Tagged ref conflicts").
type RefTarget struct {
	Kind    RefTargetKind
	Normal  CommitID   // valid when Kind == RefNormal
	Removes []CommitID // valid when Kind == RefConflict
	Adds    []CommitID // valid when Kind == RefConflict
}

// NewRefTargetNormal builds a resolved RefTarget.
func NewRefTargetNormal(id CommitID) RefTarget {
	return RefTarget{Kind: RefNormal, Normal: id}
}

// NewRefTargetConflict builds a conflicted RefTarget, collapsing to Normal
// if it is in fact trivially resolvable (|adds|=1, |removes|=0).
func NewRefTargetConflict(removes, adds []CommitID) RefTarget {
	if len(adds) == 1 && len(removes) == 0 {
		return NewRefTargetNormal(adds[0])
	}
	return RefTarget{Kind: RefConflict, Removes: removes, Adds: adds}
}

// IsResolved reports whether the target names exactly one commit.
func (t RefTarget) IsResolved() bool { return t.Kind == RefNormal }

// Equal reports structural equality of two RefTargets.
func (t RefTarget) Equal(o RefTarget) bool {
	if t.Kind != o.Kind {
		return false
	}
	if t.Kind == RefNormal {
		return t.Normal.Equal(o.Normal)
	}
	return idSlicesEqual(t.Removes, o.Removes) && idSlicesEqual(t.Adds, o.Adds)
}

func idSlicesEqual(a, b []CommitID) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// AddedCommits returns every commit id the target resolves or could resolve
// to: the single Normal id, or every Conflict add.
func (t RefTarget) AddedCommits() []CommitID {
	if t.Kind == RefNormal {
		if t.Normal == nil {
			return nil
		}
		return []CommitID{t.Normal}
	}
	return t.Adds
}

// BranchTarget is one branch's local pointer plus its per-remote pointers.
type BranchTarget struct {
	Local   *RefTarget // nil if the branch has no local target (remote-only)
	Remotes map[string]RefTarget
}

// View is a snapshot of refs, heads and working-copy pointers for one
// operation (spec §3).
type View struct {
	WorkingCopies map[WorkspaceID]CommitID
	Heads         map[string]CommitID // set, keyed by hex id for determinism
	PublicHeads   map[string]CommitID
	Branches      map[string]BranchTarget
	Tags          map[string]RefTarget
	GitRefs       map[string]RefTarget
	GitHead       *RefTarget
}

// NewView returns an empty, non-nil View.
func NewView() *View {
	return &View{
		WorkingCopies: map[WorkspaceID]CommitID{},
		Heads:         map[string]CommitID{},
		PublicHeads:   map[string]CommitID{},
		Branches:      map[string]BranchTarget{},
		Tags:          map[string]RefTarget{},
		GitRefs:       map[string]RefTarget{},
	}
}

// Clone produces a deep-enough copy for independent mutation (maps copied
// one level deep; ids and RefTargets are themselves immutable byte slices
// copied by reference since they are never mutated in place).
func (v *View) Clone() *View {
	out := NewView()
	for k, id := range v.WorkingCopies {
		out.WorkingCopies[k] = id
	}
	for k, id := range v.Heads {
		out.Heads[k] = id
	}
	for k, id := range v.PublicHeads {
		out.PublicHeads[k] = id
	}
	for k, b := range v.Branches {
		nb := BranchTarget{Remotes: map[string]RefTarget{}}
		if b.Local != nil {
			l := *b.Local
			nb.Local = &l
		}
		for r, t := range b.Remotes {
			nb.Remotes[r] = t
		}
		out.Branches[k] = nb
	}
	for k, t := range v.Tags {
		out.Tags[k] = t
	}
	for k, t := range v.GitRefs {
		out.GitRefs[k] = t
	}
	if v.GitHead != nil {
		h := *v.GitHead
		out.GitHead = &h
	}
	return out
}

// HeadIDs returns the view's heads as a slice, sorted for determinism.
func (v *View) HeadIDs() []CommitID {
	ids := make([]CommitID, 0, len(v.Heads))
	for _, id := range v.Heads {
		ids = append(ids, id)
	}
	return SortCommitIDs(ids)
}

// SetHeads replaces the head set from a slice of ids.
func (v *View) SetHeads(ids []CommitID) {
	v.Heads = map[string]CommitID{}
	for _, id := range ids {
		v.Heads[id.Hex()] = id
	}
}

// AddHead adds a single commit to the head set.
func (v *View) AddHead(id CommitID) { v.Heads[id.Hex()] = id }

// RemoveHead removes a single commit from the head set.
func (v *View) RemoveHead(id CommitID) { delete(v.Heads, id.Hex()) }

// HasHead reports whether id is currently a head.
func (v *View) HasHead(id CommitID) bool {
	_, ok := v.Heads[id.Hex()]
	return ok
}

// PublicHeadIDs returns the public heads, sorted.
func (v *View) PublicHeadIDs() []CommitID {
	ids := make([]CommitID, 0, len(v.PublicHeads))
	for _, id := range v.PublicHeads {
		ids = append(ids, id)
	}
	return SortCommitIDs(ids)
}
