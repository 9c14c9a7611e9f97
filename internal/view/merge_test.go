package view

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmarsh/jjcore/internal/model"
)

func cid(b byte) model.CommitID {
	buf := make([]byte, 20)
	buf[19] = b
	return model.CommitID(buf)
}

func TestMergeHeadsIsUnionOfSelfAndOther(t *testing.T) {
	base := model.NewView()
	base.AddHead(cid(1))

	self := base.Clone()
	self.AddHead(cid(2))

	other := base.Clone()
	other.AddHead(cid(3))

	out := Merge(base, self, other)
	assert.True(t, out.HasHead(cid(1)))
	assert.True(t, out.HasHead(cid(2)))
	assert.True(t, out.HasHead(cid(3)))
}

func TestMergeWorkingCopyUnchangedOnOtherSideKeepsSelf(t *testing.T) {
	base := model.NewView()
	base.WorkingCopies[model.DefaultWorkspaceID] = cid(1)

	self := base.Clone()
	self.WorkingCopies[model.DefaultWorkspaceID] = cid(2)

	other := base.Clone() // other left workspace pointer untouched

	out := Merge(base, self, other)
	assert.True(t, out.WorkingCopies[model.DefaultWorkspaceID].Equal(cid(2)))
}

func TestMergeWorkingCopySelfUnchangedTakesOther(t *testing.T) {
	base := model.NewView()
	base.WorkingCopies[model.DefaultWorkspaceID] = cid(1)

	self := base.Clone() // self left it untouched

	other := base.Clone()
	other.WorkingCopies[model.DefaultWorkspaceID] = cid(3)

	out := Merge(base, self, other)
	assert.True(t, out.WorkingCopies[model.DefaultWorkspaceID].Equal(cid(3)))
}

func TestMergeWorkingCopyRemovedByOtherIsDropped(t *testing.T) {
	base := model.NewView()
	base.WorkingCopies[model.DefaultWorkspaceID] = cid(1)

	self := base.Clone()
	self.WorkingCopies[model.DefaultWorkspaceID] = cid(2)

	other := base.Clone()
	delete(other.WorkingCopies, model.DefaultWorkspaceID)

	out := Merge(base, self, other)
	_, present := out.WorkingCopies[model.DefaultWorkspaceID]
	assert.False(t, present)
}

func TestMergeBranchBothSidesAgreeTakesThatValue(t *testing.T) {
	base := model.NewView()
	self := base.Clone()
	other := base.Clone()

	target := model.NewRefTargetNormal(cid(5))
	self.Branches["main"] = model.BranchTarget{Local: &target, Remotes: map[string]model.RefTarget{}}
	other.Branches["main"] = model.BranchTarget{Local: &target, Remotes: map[string]model.RefTarget{}}

	out := Merge(base, self, other)
	require.Contains(t, out.Branches, "main")
	assert.True(t, out.Branches["main"].Local.Normal.Equal(cid(5)))
}

func TestMergeBranchDivergentEditsProduceConflict(t *testing.T) {
	base := model.NewView()
	baseTarget := model.NewRefTargetNormal(cid(1))
	base.Branches["main"] = model.BranchTarget{Local: &baseTarget, Remotes: map[string]model.RefTarget{}}

	self := base.Clone()
	selfTarget := model.NewRefTargetNormal(cid(2))
	self.Branches["main"] = model.BranchTarget{Local: &selfTarget, Remotes: map[string]model.RefTarget{}}

	other := base.Clone()
	otherTarget := model.NewRefTargetNormal(cid(3))
	other.Branches["main"] = model.BranchTarget{Local: &otherTarget, Remotes: map[string]model.RefTarget{}}

	out := Merge(base, self, other)
	local := out.Branches["main"].Local
	require.NotNil(t, local)
	assert.False(t, local.IsResolved())
	assert.ElementsMatch(t, []model.CommitID{cid(2), cid(3)}, local.Adds)
	assert.ElementsMatch(t, []model.CommitID{cid(1)}, local.Removes)
}

func TestMergeTagCancelsMatchingAddRemovePair(t *testing.T) {
	base := model.NewView()
	baseTarget := model.NewRefTargetNormal(cid(1))
	base.Tags["v1"] = baseTarget

	self := base.Clone()
	// self advances v1 from 1 to 2.
	selfTarget := model.NewRefTargetNormal(cid(2))
	self.Tags["v1"] = selfTarget

	other := base.Clone()
	// other also advances v1, but back to cid(1) via a conflict that already
	// contains a cancelling remove/add pair against the base value.
	otherConflict := model.NewRefTargetConflict([]model.CommitID{cid(1)}, []model.CommitID{cid(1), cid(4)})
	other.Tags["v1"] = otherConflict

	out := Merge(base, self, other)
	merged, ok := out.Tags["v1"]
	require.True(t, ok)
	// self changed 1->2 (remove 1, add 2); other's conflict itself adds 1
	// back alongside 4. removes={1}, adds={2,1,4}; cancelling the (1,1) pair
	// leaves remove={}, add={2,4}.
	assert.False(t, merged.IsResolved())
	assert.Empty(t, merged.Removes)
	assert.ElementsMatch(t, []model.CommitID{cid(2), cid(4)}, merged.Adds)
}

func TestMergeGitHeadOtherUnchangedKeepsSelf(t *testing.T) {
	base := model.NewView()
	baseTarget := model.NewRefTargetNormal(cid(1))
	base.GitHead = &baseTarget

	self := base.Clone()
	selfTarget := model.NewRefTargetNormal(cid(2))
	self.GitHead = &selfTarget

	other := base.Clone()

	out := Merge(base, self, other)
	require.NotNil(t, out.GitHead)
	assert.True(t, out.GitHead.Normal.Equal(cid(2)))
}
