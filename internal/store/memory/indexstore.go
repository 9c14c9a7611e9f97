package memory

import (
	"context"
	"sync"

	"github.com/jmarsh/jjcore/internal/index"
	"github.com/jmarsh/jjcore/internal/model"
	"github.com/jmarsh/jjcore/internal/store"
)

const IndexStoreName = "memory"

// IndexStore is the reference in-memory IndexStore: it caches one built
// index per operation id, and builds a fresh one from the backend by
// walking every view head's ancestry on first use (spec §9: "the
// ReadonlyRepo builds [a persistent change-id index] on first use and
// caches it ... implementations may replace both with a persistent on-disk
// index without changing the evaluator contract").
type IndexStore struct {
	mu      sync.Mutex
	byOp    map[string]index.ReadonlyIndex
	opStore *OpStore
}

func NewIndexStore(opStore *OpStore) *IndexStore {
	return &IndexStore{byOp: map[string]index.ReadonlyIndex{}, opStore: opStore}
}

func (s *IndexStore) Name() string { return IndexStoreName }

func (s *IndexStore) GetIndexAtOp(ctx context.Context, op model.OperationID, backend store.Backend) (index.ReadonlyIndex, error) {
	s.mu.Lock()
	if ri, ok := s.byOp[op.Hex()]; ok {
		s.mu.Unlock()
		return ri, nil
	}
	s.mu.Unlock()

	operation, err := s.opStore.ReadOperation(ctx, op)
	if err != nil {
		return nil, err
	}
	v, err := s.opStore.ReadView(ctx, operation.ViewID)
	if err != nil {
		return nil, err
	}

	mi := index.NewMutable()
	visited := map[string]bool{}
	var walk func(id model.CommitID) error
	walk = func(id model.CommitID) error {
		if id.IsRoot() || visited[id.Hex()] {
			return nil
		}
		if mi.HasID(id) {
			return nil
		}
		visited[id.Hex()] = true
		c, err := backend.ReadCommit(ctx, id)
		if err != nil {
			return err
		}
		for _, p := range c.Parents {
			if err := walk(p); err != nil {
				return err
			}
		}
		mi.AddCommitWithParents(id, c.ChangeID, c.Parents)
		return nil
	}
	for _, id := range v.HeadIDs() {
		if err := walk(id); err != nil {
			return nil, err
		}
	}

	ri := mi.Freeze()
	s.mu.Lock()
	s.byOp[op.Hex()] = ri
	s.mu.Unlock()
	return ri, nil
}

func (s *IndexStore) WriteIndex(ctx context.Context, mi index.MutableIndex, op model.OperationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byOp[op.Hex()] = mi.Freeze()
	return nil
}

var _ store.IndexStore = (*IndexStore)(nil)
