// Package repo implements the ReadonlyRepo / MutableRepo / Transaction
// lifecycle of spec §4.G, grounded on original_source/lib/src/repo.rs's
// ReadonlyRepo/MutableRepo split and on the teacher's session-per-dispatch
// shape (internal/git/engine.go, internal/git/session.go) adapted to the
// dirty-cell head-invariant enforcement this spec requires instead of the
// teacher's always-consistent single in-memory worktree.
package repo

import (
	"context"

	"github.com/jmarsh/jjcore/internal/index"
	"github.com/jmarsh/jjcore/internal/model"
	"github.com/jmarsh/jjcore/internal/store"
)

// ReadonlyRepo is an immutable snapshot at one operation; it is shareable
// across threads (spec §5).
type ReadonlyRepo struct {
	backend      store.Backend
	opStore      store.OpStore
	indexStore   store.IndexStore
	opHeadsStore store.OpHeadsStore
	opID         model.OperationID
	view         *model.View
	idx          index.ReadonlyIndex
}

// Load reads the operation, its view, and builds (or fetches a cached)
// index for it.
func Load(ctx context.Context, backend store.Backend, opStore store.OpStore, indexStore store.IndexStore, opHeadsStore store.OpHeadsStore, opID model.OperationID) (*ReadonlyRepo, error) {
	op, err := opStore.ReadOperation(ctx, opID)
	if err != nil {
		return nil, err
	}
	v, err := opStore.ReadView(ctx, op.ViewID)
	if err != nil {
		return nil, err
	}
	idx, err := indexStore.GetIndexAtOp(ctx, opID, backend)
	if err != nil {
		return nil, err
	}
	return &ReadonlyRepo{
		backend:      backend,
		opStore:      opStore,
		indexStore:   indexStore,
		opHeadsStore: opHeadsStore,
		opID:         opID,
		view:         v,
		idx:          idx,
	}, nil
}

func (r *ReadonlyRepo) Backend() store.Backend             { return r.backend }
func (r *ReadonlyRepo) OpStore() store.OpStore              { return r.opStore }
func (r *ReadonlyRepo) IndexStore() store.IndexStore        { return r.indexStore }
func (r *ReadonlyRepo) OpHeadsStore() store.OpHeadsStore    { return r.opHeadsStore }
func (r *ReadonlyRepo) OperationID() model.OperationID      { return r.opID }
func (r *ReadonlyRepo) View() *model.View                   { return r.view }
func (r *ReadonlyRepo) Index() index.ReadonlyIndex          { return r.idx }

// StartTransaction begins a Transaction whose MutableRepo is seeded from
// this snapshot (spec §4.G: "MutableRepo exists only for the duration of a
// Transaction.").
func (r *ReadonlyRepo) StartTransaction(description string) *Transaction {
	return &Transaction{
		mutable: newMutableRepo(r),
		base:    r,
		parents: []model.OperationID{r.opID},
		metadata: model.OperationMetadata{
			Description: description,
			Tags:        map[string]string{},
		},
	}
}
