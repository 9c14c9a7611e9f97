// Package view implements the View snapshot type and its 3-way merge
// (spec §4.D), grounded on original_source/lib/src/repo.rs's view-merging
// functions and on the spec's field-by-field rules.
package view

import (
	"github.com/jmarsh/jjcore/internal/model"
)

// Merge performs the field-by-field 3-way merge of spec §4.D. The Heads
// field is returned as a naive union of self and other (spec: "add heads
// added by other; do not remove heads removed by other") — the caller
// (package repo) is responsible for running record_rewrites first and for
// later dropping non-maximal heads via the dirty-cell invariant enforcer.
func Merge(base, self, other *model.View) *model.View {
	out := self.Clone()

	out.WorkingCopies = mergeWorkingCopies(base.WorkingCopies, self.WorkingCopies, other.WorkingCopies)

	heads := map[string]model.CommitID{}
	for k, v := range self.Heads {
		heads[k] = v
	}
	for k, v := range other.Heads {
		heads[k] = v
	}
	out.Heads = heads

	out.PublicHeads = mergeHeadSet(base.PublicHeads, self.PublicHeads, other.PublicHeads)

	out.Branches = mergeBranches(base.Branches, self.Branches, other.Branches)
	out.Tags = mergeRefTargetMap(base.Tags, self.Tags, other.Tags)
	out.GitRefs = mergeRefTargetMap(base.GitRefs, self.GitRefs, other.GitRefs)
	out.GitHead = mergeRefTarget(base.GitHead, self.GitHead, other.GitHead)

	return out
}

func mergeWorkingCopies(base, self, other map[model.WorkspaceID]model.CommitID) map[model.WorkspaceID]model.CommitID {
	out := map[model.WorkspaceID]model.CommitID{}
	keys := map[model.WorkspaceID]bool{}
	for k := range base {
		keys[k] = true
	}
	for k := range self {
		keys[k] = true
	}
	for k := range other {
		keys[k] = true
	}
	for ws := range keys {
		baseVal, hasBase := base[ws]
		selfVal, hasSelf := self[ws]
		otherVal, hasOther := other[ws]

		if !hasBase {
			// Not present in base: added only by self, only by other, or by
			// both (prefer self in that degenerate case).
			if hasSelf {
				out[ws] = selfVal
			} else if hasOther {
				out[ws] = otherVal
			}
			continue
		}

		switch {
		case !hasOther:
			// other removed the workspace: remove it, even if self changed it.
			continue
		case otherVal.Equal(baseVal) || (hasSelf && otherVal.Equal(selfVal)):
			// other unchanged, or other agrees with self: keep self.
			if hasSelf {
				out[ws] = selfVal
			}
		case hasSelf && selfVal.Equal(baseVal):
			// self unchanged, other changed: take other.
			out[ws] = otherVal
		default:
			// Both changed, disagreeing, and other didn't remove it: self
			// wins (no structural conflict type exists for working-copy
			// pointers).
			if hasSelf {
				out[ws] = selfVal
			} else {
				out[ws] = otherVal
			}
		}
	}
	return out
}

// mergeHeadSet 3-way merges a set of commit ids (used for PublicHeads),
// keyed by hex id.
func mergeHeadSet(base, self, other map[string]model.CommitID) map[string]model.CommitID {
	out := map[string]model.CommitID{}
	keys := map[string]model.CommitID{}
	for k, v := range base {
		keys[k] = v
	}
	for k, v := range self {
		keys[k] = v
	}
	for k, v := range other {
		keys[k] = v
	}
	for k, id := range keys {
		_, inBase := base[k]
		_, inSelf := self[k]
		_, inOther := other[k]
		switch {
		case inSelf == inOther:
			if inSelf {
				out[k] = id
			}
		case inSelf == inBase:
			if inOther {
				out[k] = id
			}
		case inOther == inBase:
			if inSelf {
				out[k] = id
			}
		default:
			// No side agrees with base: conservative union (present).
			out[k] = id
		}
	}
	return out
}

func mergeBranches(base, self, other map[string]model.BranchTarget) map[string]model.BranchTarget {
	out := map[string]model.BranchTarget{}
	names := map[string]bool{}
	for n := range base {
		names[n] = true
	}
	for n := range self {
		names[n] = true
	}
	for n := range other {
		names[n] = true
	}
	for name := range names {
		b, hasBase := base[name]
		s, hasSelf := self[name]
		o, hasOther := other[name]

		var baseLocal, selfLocal, otherLocal *model.RefTarget
		if hasBase {
			baseLocal = b.Local
		}
		if hasSelf {
			selfLocal = s.Local
		}
		if hasOther {
			otherLocal = o.Local
		}
		merged := model.BranchTarget{Remotes: map[string]model.RefTarget{}}
		merged.Local = mergeRefTarget(baseLocal, selfLocal, otherLocal)

		remoteNames := map[string]bool{}
		for r := range b.Remotes {
			remoteNames[r] = true
		}
		for r := range s.Remotes {
			remoteNames[r] = true
		}
		for r := range o.Remotes {
			remoteNames[r] = true
		}
		for r := range remoteNames {
			var bv, sv, ov *model.RefTarget
			if v, ok := b.Remotes[r]; ok {
				bv = &v
			}
			if v, ok := s.Remotes[r]; ok {
				sv = &v
			}
			if v, ok := o.Remotes[r]; ok {
				ov = &v
			}
			if merged2 := mergeRefTarget(bv, sv, ov); merged2 != nil {
				merged.Remotes[r] = *merged2
			}
		}

		if merged.Local != nil || len(merged.Remotes) > 0 {
			out[name] = merged
		}
	}
	return out
}

func mergeRefTargetMap(base, self, other map[string]model.RefTarget) map[string]model.RefTarget {
	out := map[string]model.RefTarget{}
	names := map[string]bool{}
	for n := range base {
		names[n] = true
	}
	for n := range self {
		names[n] = true
	}
	for n := range other {
		names[n] = true
	}
	for name := range names {
		var b, s, o *model.RefTarget
		if v, ok := base[name]; ok {
			b = &v
		}
		if v, ok := self[name]; ok {
			s = &v
		}
		if v, ok := other[name]; ok {
			o = &v
		}
		if merged := mergeRefTarget(b, s, o); merged != nil {
			out[name] = *merged
		}
	}
	return out
}

// mergeRefTarget implements the single-ref 3-way rule shared by public
// heads, branches, tags, git-refs and git-HEAD (spec §4.D, §4.G step 4,
// §9 "Tagged ref conflicts"): if one side equals base, take the other; if
// both sides changed identically, that value; otherwise produce a
// structural conflict whose adds are both sides' resolved commits and
// whose removes is the base target, canceling matching add/remove pairs.
func mergeRefTarget(base, self, other *model.RefTarget) *model.RefTarget {
	if refTargetPtrEqual(self, other) {
		return self
	}
	if refTargetPtrEqual(other, base) {
		return self
	}
	if refTargetPtrEqual(self, base) {
		return other
	}

	var removes []model.CommitID
	if base != nil {
		removes = append(removes, base.AddedCommits()...)
	}
	var adds []model.CommitID
	if self != nil {
		adds = append(adds, self.AddedCommits()...)
	}
	if other != nil {
		adds = append(adds, other.AddedCommits()...)
	}
	removes, adds = cancelPairs(removes, adds)
	if len(adds) == 0 {
		return nil
	}
	t := model.NewRefTargetConflict(removes, adds)
	return &t
}

func refTargetPtrEqual(a, b *model.RefTarget) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.Equal(*b)
}

// cancelPairs removes one matching (remove, add) pair for each id present in
// both slices (spec §9: "canceling matching add/remove pairs").
func cancelPairs(removes, adds []model.CommitID) ([]model.CommitID, []model.CommitID) {
	rem := append([]model.CommitID{}, removes...)
	add := append([]model.CommitID{}, adds...)
	for i := 0; i < len(add); {
		cancelled := false
		for j := 0; j < len(rem); j++ {
			if add[i].Equal(rem[j]) {
				add = append(add[:i], add[i+1:]...)
				rem = append(rem[:j], rem[j+1:]...)
				cancelled = true
				break
			}
		}
		if !cancelled {
			i++
		}
	}
	return rem, add
}
