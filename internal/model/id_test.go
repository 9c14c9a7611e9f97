package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mkID(b byte) CommitID {
	buf := make([]byte, 20)
	buf[19] = b
	return CommitID(buf)
}

func TestRootCommitIDIsAllZero(t *testing.T) {
	root := RootCommitID(20)
	assert.True(t, root.IsRoot())
	assert.Len(t, root, 20)
}

func TestIsRootFalseForNonZeroID(t *testing.T) {
	assert.False(t, mkID(1).IsRoot())
}

func TestIsRootFalseForEmptyID(t *testing.T) {
	assert.False(t, CommitID{}.IsRoot())
}

func TestCommitIDFromHexRoundTrips(t *testing.T) {
	id := mkID(7)
	parsed, err := CommitIDFromHex(id.Hex())
	require.NoError(t, err)
	assert.True(t, id.Equal(parsed))
}

func TestCommitIDFromHexRejectsInvalid(t *testing.T) {
	_, err := CommitIDFromHex("not-hex")
	assert.Error(t, err)
}

func TestSortCommitIDsOrdersLexicographically(t *testing.T) {
	unsorted := []CommitID{mkID(3), mkID(1), mkID(2)}
	sorted := SortCommitIDs(unsorted)
	require.Len(t, sorted, 3)
	assert.True(t, sorted[0].Equal(mkID(1)))
	assert.True(t, sorted[1].Equal(mkID(2)))
	assert.True(t, sorted[2].Equal(mkID(3)))
	// original slice must be untouched.
	assert.True(t, unsorted[0].Equal(mkID(3)))
}

func TestContainsCommitIDFindsMatchByValue(t *testing.T) {
	ids := []CommitID{mkID(1), mkID(2)}
	assert.True(t, ContainsCommitID(ids, mkID(2)))
	assert.False(t, ContainsCommitID(ids, mkID(3)))
}

func TestDedupCommitIDsPreservesFirstOccurrenceOrder(t *testing.T) {
	ids := []CommitID{mkID(2), mkID(1), mkID(2), mkID(3), mkID(1)}
	out := DedupCommitIDs(ids)
	require.Len(t, out, 3)
	assert.True(t, out[0].Equal(mkID(2)))
	assert.True(t, out[1].Equal(mkID(1)))
	assert.True(t, out[2].Equal(mkID(3)))
}
