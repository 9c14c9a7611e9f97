package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRefTargetConflictCollapsesToNormalWhenTrivial(t *testing.T) {
	rt := NewRefTargetConflict(nil, []CommitID{mkID(1)})
	assert.True(t, rt.IsResolved())
	assert.True(t, rt.Normal.Equal(mkID(1)))
}

func TestNewRefTargetConflictStaysConflictWithMultipleAdds(t *testing.T) {
	rt := NewRefTargetConflict([]CommitID{mkID(1)}, []CommitID{mkID(2), mkID(3)})
	assert.False(t, rt.IsResolved())
	assert.Equal(t, RefConflict, rt.Kind)
}

func TestRefTargetAddedCommitsForNormalAndConflict(t *testing.T) {
	normal := NewRefTargetNormal(mkID(1))
	assert.Equal(t, []CommitID{mkID(1)}, normal.AddedCommits())

	conflict := NewRefTargetConflict([]CommitID{mkID(1)}, []CommitID{mkID(2), mkID(3)})
	assert.ElementsMatch(t, []CommitID{mkID(2), mkID(3)}, conflict.AddedCommits())
}

func TestRefTargetEqualDistinguishesKindAndContents(t *testing.T) {
	a := NewRefTargetNormal(mkID(1))
	b := NewRefTargetNormal(mkID(1))
	c := NewRefTargetNormal(mkID(2))
	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))

	conflictA := NewRefTargetConflict([]CommitID{mkID(1)}, []CommitID{mkID(2), mkID(3)})
	conflictB := NewRefTargetConflict([]CommitID{mkID(1)}, []CommitID{mkID(2), mkID(3)})
	assert.True(t, conflictA.Equal(conflictB))
	assert.False(t, a.Equal(conflictA))
}

func TestViewCloneIsIndependentOfOriginal(t *testing.T) {
	v := NewView()
	v.AddHead(mkID(1))
	v.WorkingCopies[DefaultWorkspaceID] = mkID(1)
	local := NewRefTargetNormal(mkID(1))
	v.Branches["main"] = BranchTarget{Local: &local, Remotes: map[string]RefTarget{}}

	clone := v.Clone()
	clone.AddHead(mkID(2))
	clone.WorkingCopies[DefaultWorkspaceID] = mkID(9)
	newLocal := NewRefTargetNormal(mkID(9))
	clone.Branches["main"] = BranchTarget{Local: &newLocal, Remotes: map[string]RefTarget{}}

	assert.False(t, v.HasHead(mkID(2)), "mutating the clone's heads must not affect the original")
	assert.True(t, v.WorkingCopies[DefaultWorkspaceID].Equal(mkID(1)))
	assert.True(t, v.Branches["main"].Local.Normal.Equal(mkID(1)))
}

func TestViewHeadIDsReturnsSortedSlice(t *testing.T) {
	v := NewView()
	v.AddHead(mkID(3))
	v.AddHead(mkID(1))
	v.AddHead(mkID(2))
	ids := v.HeadIDs()
	require.Len(t, ids, 3)
	assert.True(t, ids[0].Equal(mkID(1)))
	assert.True(t, ids[1].Equal(mkID(2)))
	assert.True(t, ids[2].Equal(mkID(3)))
}

func TestViewSetHeadsReplacesExistingSet(t *testing.T) {
	v := NewView()
	v.AddHead(mkID(1))
	v.SetHeads([]CommitID{mkID(2), mkID(3)})
	assert.False(t, v.HasHead(mkID(1)))
	assert.True(t, v.HasHead(mkID(2)))
	assert.True(t, v.HasHead(mkID(3)))
}

func TestViewRemoveHead(t *testing.T) {
	v := NewView()
	v.AddHead(mkID(1))
	v.RemoveHead(mkID(1))
	assert.False(t, v.HasHead(mkID(1)))
}

func TestConflictIsResolvedOnlyForSingleAddNoRemoves(t *testing.T) {
	assert.True(t, Conflict{Adds: []FileID{FileID("a")}}.IsResolved())
	assert.False(t, Conflict{Adds: []FileID{FileID("a")}, Removes: []FileID{FileID("b")}}.IsResolved())
	assert.False(t, Conflict{Adds: []FileID{FileID("a"), FileID("b")}}.IsResolved())
}
