package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmarsh/jjcore/internal/model"
)

func TestBackendWriteCommitThenReadRoundTrips(t *testing.T) {
	ctx := context.Background()
	b := NewBackend()

	c := &model.Commit{
		Parents:     []model.CommitID{b.RootCommitID()},
		Description: "initial",
		ChangeID:    model.ChangeID("change-a"),
	}
	id, err := b.WriteCommit(ctx, c)
	require.NoError(t, err)

	got, err := b.ReadCommit(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "initial", got.Description)
	assert.Equal(t, "change-a", string(got.ChangeID))
}

func TestBackendCommitHashIsContentAddressedAndDeterministic(t *testing.T) {
	ctx := context.Background()
	b := NewBackend()

	c := &model.Commit{Description: "same content", ChangeID: model.ChangeID("x")}
	id1, err := b.WriteCommit(ctx, c)
	require.NoError(t, err)

	c2 := &model.Commit{Description: "same content", ChangeID: model.ChangeID("x")}
	id2, err := b.WriteCommit(ctx, c2)
	require.NoError(t, err)

	assert.Equal(t, id1.Hex(), id2.Hex())
}

func TestBackendDifferentCommitContentProducesDifferentIDs(t *testing.T) {
	ctx := context.Background()
	b := NewBackend()

	id1, err := b.WriteCommit(ctx, &model.Commit{Description: "a"})
	require.NoError(t, err)
	id2, err := b.WriteCommit(ctx, &model.Commit{Description: "b"})
	require.NoError(t, err)
	assert.NotEqual(t, id1.Hex(), id2.Hex())
}

func TestBackendReadRootCommitReturnsEmptyCommit(t *testing.T) {
	b := NewBackend()
	got, err := b.ReadCommit(context.Background(), b.RootCommitID())
	require.NoError(t, err)
	assert.Empty(t, got.Description)
}

func TestBackendReadMissingCommitErrors(t *testing.T) {
	b := NewBackend()
	bogus := model.CommitID(make([]byte, 20))
	bogus[0] = 0xAB
	_, err := b.ReadCommit(context.Background(), bogus)
	assert.Error(t, err)
}

func TestBackendTreeHashIsOrderIndependent(t *testing.T) {
	ctx := context.Background()
	b := NewBackend()

	fileA, err := b.WriteFile(ctx, []byte("a"))
	require.NoError(t, err)
	fileB, err := b.WriteFile(ctx, []byte("b"))
	require.NoError(t, err)

	t1 := &model.Tree{Entries: map[string]model.TreeEntry{
		"a.txt": {Kind: model.EntryFile, FileID: fileA},
		"b.txt": {Kind: model.EntryFile, FileID: fileB},
	}}
	t2 := &model.Tree{Entries: map[string]model.TreeEntry{
		"b.txt": {Kind: model.EntryFile, FileID: fileB},
		"a.txt": {Kind: model.EntryFile, FileID: fileA},
	}}

	id1, err := b.WriteTree(ctx, t1)
	require.NoError(t, err)
	id2, err := b.WriteTree(ctx, t2)
	require.NoError(t, err)
	assert.Equal(t, id1.Hex(), id2.Hex())
}

func TestBackendWriteFileThenReadRoundTrips(t *testing.T) {
	ctx := context.Background()
	b := NewBackend()
	id, err := b.WriteFile(ctx, []byte("payload"))
	require.NoError(t, err)
	content, err := b.ReadFile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "payload", string(content))
}

func TestBackendWriteConflictThenReadRoundTrips(t *testing.T) {
	ctx := context.Background()
	b := NewBackend()
	f1, err := b.WriteFile(ctx, []byte("side1"))
	require.NoError(t, err)
	f2, err := b.WriteFile(ctx, []byte("side2"))
	require.NoError(t, err)

	c := &model.Conflict{Adds: []model.FileID{f1, f2}}
	id, err := b.WriteConflict(ctx, c)
	require.NoError(t, err)

	got, err := b.ReadConflict(ctx, id)
	require.NoError(t, err)
	assert.False(t, got.IsResolved())
	assert.ElementsMatch(t, c.Adds, got.Adds)
}
