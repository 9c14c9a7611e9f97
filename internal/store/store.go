package store

import (
	"context"

	"github.com/jmarsh/jjcore/internal/index"
	"github.com/jmarsh/jjcore/internal/model"
)

// Backend reads and writes the content-addressed objects commits are made
// of (spec §6). It never mutates a written object.
type Backend interface {
	Name() string
	RootCommitID() model.CommitID

	ReadCommit(ctx context.Context, id model.CommitID) (*model.Commit, error)
	WriteCommit(ctx context.Context, c *model.Commit) (model.CommitID, error)

	ReadTree(ctx context.Context, id model.TreeID) (*model.Tree, error)
	WriteTree(ctx context.Context, t *model.Tree) (model.TreeID, error)

	ReadFile(ctx context.Context, id model.FileID) ([]byte, error)
	WriteFile(ctx context.Context, content []byte) (model.FileID, error)

	ReadConflict(ctx context.Context, id model.ConflictID) (*model.Conflict, error)
	WriteConflict(ctx context.Context, c *model.Conflict) (model.ConflictID, error)
}

// OpStore persists Views and Operations (spec §6).
type OpStore interface {
	Name() string
	ReadView(ctx context.Context, id model.ViewID) (*model.View, error)
	WriteView(ctx context.Context, v *model.View) (model.ViewID, error)
	ReadOperation(ctx context.Context, id model.OperationID) (*model.Operation, error)
	WriteOperation(ctx context.Context, op *model.Operation) (model.OperationID, error)
}

// OpHeadsUpdate is the callback passed to OpHeadsStore.LockedUpdate: given
// the current head set, it returns the new operation to add and the parent
// ids to remove, atomically (spec §5 "Locking discipline").
type OpHeadsUpdate func(current []model.OperationID) (add model.OperationID, remove []model.OperationID, err error)

// OpHeadsStore persists the current leaf set of the operation DAG (spec §6).
// The op-heads directory lock is the only process-wide concurrency boundary
// (spec §5).
type OpHeadsStore interface {
	Name() string
	AddOpHead(ctx context.Context, id model.OperationID) error
	RemoveOpHead(ctx context.Context, id model.OperationID) error
	GetOpHeads(ctx context.Context) ([]model.OperationID, error)
	LockedUpdate(ctx context.Context, f OpHeadsUpdate) error
}

// IndexStore materializes and persists a commit Index for a given operation
// (spec §6).
type IndexStore interface {
	Name() string
	GetIndexAtOp(ctx context.Context, op model.OperationID, backend Backend) (index.ReadonlyIndex, error)
	WriteIndex(ctx context.Context, mi index.MutableIndex, op model.OperationID) error
}
