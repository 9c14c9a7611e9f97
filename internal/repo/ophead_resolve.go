package repo

import (
	"context"
	"time"

	"github.com/jmarsh/jjcore/internal/model"
	"github.com/jmarsh/jjcore/internal/oplog"
	"github.com/jmarsh/jjcore/internal/rewrite"
	"github.com/jmarsh/jjcore/internal/store"
)

// ResolveOpHeads implements spec §4.E resolve_op_heads: a single head
// returns directly; multiple heads are merged pairwise into the
// smallest-id head via a single synthetic transaction, descendant-rebased
// after each pairwise merge, and published as one new operation whose
// parents are every original head. loggers takes at most one optional
// *log.Logger-compatible logger (nil-safe, defaulting to log.Default()).
func ResolveOpHeads(ctx context.Context, backend store.Backend, opStore store.OpStore, indexStore store.IndexStore, opHeadsStore store.OpHeadsStore, now time.Time, userName, userEmail, hostname string, loggers ...oplog.Logger) (*ReadonlyRepo, error) {
	var logger oplog.Logger
	if len(loggers) > 0 {
		logger = loggers[0]
	}

	heads, err := opHeadsStore.GetOpHeads(ctx)
	if err != nil {
		return nil, &store.OpHeadResolutionError{Err: err}
	}
	if len(heads) == 0 {
		return nil, &store.OpHeadResolutionError{NoHeads: true}
	}
	if len(heads) == 1 {
		return Load(ctx, backend, opStore, indexStore, opHeadsStore, heads[0])
	}

	sorted := sortOperationIDs(heads)
	baseID := sorted[0]
	baseRepo, err := Load(ctx, backend, opStore, indexStore, opHeadsStore, baseID)
	if err != nil {
		return nil, err
	}

	tx := baseRepo.StartTransaction("resolve divergent operations")
	tx.SetLogger(logger)

	for _, otherID := range sorted[1:] {
		otherRepo, err := Load(ctx, backend, opStore, indexStore, opHeadsStore, otherID)
		if err != nil {
			return nil, err
		}
		if err := tx.Mutable().Merge(ctx, baseRepo, otherRepo); err != nil {
			return nil, err
		}
		if _, err := rewrite.RebaseDescendants(ctx, tx.Mutable()); err != nil {
			return nil, err
		}
	}

	tx.SetParents(sorted)
	result, err := tx.Commit(ctx, now, now, userName, userEmail, hostname)
	if err != nil {
		return nil, err
	}
	oplog.OpHeadsMerged(logger, result.OperationID(), sorted)
	return result, nil
}

func sortOperationIDs(ids []model.OperationID) []model.OperationID {
	out := append([]model.OperationID{}, ids...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && string(out[j-1]) > string(out[j]); j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}
