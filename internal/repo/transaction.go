package repo

import (
	"context"
	"time"

	"github.com/jmarsh/jjcore/internal/model"
	"github.com/jmarsh/jjcore/internal/oplog"
)

// Transaction owns a MutableRepo for its lifetime and publishes it as a new
// operation on Commit (spec §4.G: "MutableRepo exists only for the duration
// of a Transaction.").
type Transaction struct {
	mutable  *MutableRepo
	base     *ReadonlyRepo
	parents  []model.OperationID
	metadata model.OperationMetadata
	logger   oplog.Logger
}

// SetLogger attaches the logger Commit reports to; nil (the default) falls
// back to log.Default() via oplog.Or.
func (t *Transaction) SetLogger(l oplog.Logger) { t.logger = l }

// Mutable returns the transaction's working MutableRepo.
func (t *Transaction) Mutable() *MutableRepo { return t.mutable }

// SetParents overrides the operation's parent list; used by op-heads
// resolution to record every merged head as a parent of the synthetic
// merge operation (spec §4.E).
func (t *Transaction) SetParents(ids []model.OperationID) { t.parents = ids }

// SetTag attaches a metadata tag, carried verbatim into the committed
// Operation (spec §3).
func (t *Transaction) SetTag(key, value string) {
	if t.metadata.Tags == nil {
		t.metadata.Tags = map[string]string{}
	}
	t.metadata.Tags[key] = value
}

// Commit normalizes the working view, persists it and a new Operation, and
// atomically swaps the op-heads set (spec §5 steps 2-4, via
// OpHeadsStore.LockedUpdate). It returns the resulting ReadonlyRepo.
func (t *Transaction) Commit(ctx context.Context, start, end time.Time, userName, userEmail, hostname string) (*ReadonlyRepo, error) {
	v, err := t.mutable.View()
	if err != nil {
		return nil, err
	}

	viewID, err := t.base.OpStore().WriteView(ctx, v)
	if err != nil {
		return nil, err
	}

	t.metadata.StartTime = start
	t.metadata.EndTime = end
	t.metadata.UserName = userName
	t.metadata.UserEmail = userEmail
	t.metadata.Hostname = hostname

	op := &model.Operation{Parents: t.parents, ViewID: viewID, Metadata: t.metadata}
	opID, err := t.base.OpStore().WriteOperation(ctx, op)
	if err != nil {
		return nil, err
	}

	if err := t.base.IndexStore().WriteIndex(ctx, t.mutable.index, opID); err != nil {
		return nil, err
	}

	parents := t.parents
	err = t.base.OpHeadsStore().LockedUpdate(ctx, func(current []model.OperationID) (model.OperationID, []model.OperationID, error) {
		return opID, parents, nil
	})
	if err != nil {
		return nil, err
	}

	oplog.CommitPublished(t.logger, opID, t.metadata.Description, t.parents)

	return Load(ctx, t.base.Backend(), t.base.OpStore(), t.base.IndexStore(), t.base.OpHeadsStore(), opID)
}
