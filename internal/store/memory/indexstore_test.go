package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmarsh/jjcore/internal/model"
)

func TestIndexStoreGetIndexAtOpBuildsFromBackendAncestry(t *testing.T) {
	ctx := context.Background()
	backend := NewBackend()
	opStore := NewOpStore()
	ixStore := NewIndexStore(opStore)

	c1, err := backend.WriteCommit(ctx, &model.Commit{
		Parents:  []model.CommitID{backend.RootCommitID()},
		ChangeID: model.ChangeID("c1"),
	})
	require.NoError(t, err)
	c2, err := backend.WriteCommit(ctx, &model.Commit{
		Parents:  []model.CommitID{c1},
		ChangeID: model.ChangeID("c2"),
	})
	require.NoError(t, err)

	v := model.NewView()
	v.AddHead(c2)
	viewID, err := opStore.WriteView(ctx, v)
	require.NoError(t, err)
	opID, err := opStore.WriteOperation(ctx, &model.Operation{ViewID: viewID})
	require.NoError(t, err)

	ri, err := ixStore.GetIndexAtOp(ctx, opID, backend)
	require.NoError(t, err)
	assert.True(t, ri.HasID(c1))
	assert.True(t, ri.HasID(c2))
	assert.True(t, ri.IsAncestor(c1, c2))
}

func TestIndexStoreGetIndexAtOpCachesResult(t *testing.T) {
	ctx := context.Background()
	backend := NewBackend()
	opStore := NewOpStore()
	ixStore := NewIndexStore(opStore)

	v := model.NewView()
	v.AddHead(backend.RootCommitID())
	viewID, err := opStore.WriteView(ctx, v)
	require.NoError(t, err)
	opID, err := opStore.WriteOperation(ctx, &model.Operation{ViewID: viewID})
	require.NoError(t, err)

	first, err := ixStore.GetIndexAtOp(ctx, opID, backend)
	require.NoError(t, err)
	second, err := ixStore.GetIndexAtOp(ctx, opID, backend)
	require.NoError(t, err)
	assert.Same(t, first, second, "repeated calls for the same op id should return the cached index")
}
