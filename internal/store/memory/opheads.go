package memory

import (
	"context"
	"sync"

	"github.com/jmarsh/jjcore/internal/model"
	"github.com/jmarsh/jjcore/internal/store"
)

const OpHeadsStoreName = "memory"

// OpHeadsStore is the reference in-memory OpHeadsStore. The mutex here
// stands in for the "exclusive lock on the op-heads directory" of spec §5
// step 2-4; callers outside this process would instead take a filesystem
// lock, but the atomicity contract to LockedUpdate is identical.
type OpHeadsStore struct {
	mu    sync.Mutex
	heads map[string]model.OperationID
}

func NewOpHeadsStore() *OpHeadsStore {
	return &OpHeadsStore{heads: map[string]model.OperationID{}}
}

func (s *OpHeadsStore) Name() string { return OpHeadsStoreName }

func (s *OpHeadsStore) AddOpHead(ctx context.Context, id model.OperationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.heads[id.Hex()] = id
	return nil
}

func (s *OpHeadsStore) RemoveOpHead(ctx context.Context, id model.OperationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.heads, id.Hex())
	return nil
}

func (s *OpHeadsStore) GetOpHeads(ctx context.Context) ([]model.OperationID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.OperationID, 0, len(s.heads))
	for _, id := range s.heads {
		out = append(out, id)
	}
	return out, nil
}

// LockedUpdate implements spec §5's atomic step (2)-(4): remove the parent
// operation ids of the new operation, add the new id, all under one lock.
func (s *OpHeadsStore) LockedUpdate(ctx context.Context, f store.OpHeadsUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := make([]model.OperationID, 0, len(s.heads))
	for _, id := range s.heads {
		current = append(current, id)
	}

	add, remove, err := f(current)
	if err != nil {
		return err
	}
	for _, id := range remove {
		delete(s.heads, id.Hex())
	}
	if add != nil {
		s.heads[add.Hex()] = add
	}
	return nil
}

var _ store.OpHeadsStore = (*OpHeadsStore)(nil)
