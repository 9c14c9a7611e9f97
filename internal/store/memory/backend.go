// Package memory provides the reference, in-process implementations of
// every store capability (spec §9 "Capability pluggability": "the registry
// has a clearly defined default set and an empty() constructor for
// tests"). Grounded on the teacher's own in-memory session model
// (internal/git/session.go's map[string]*git.Repository) and on go-git's
// storage/memory.Storage, which the teacher already depends on for the
// same purpose.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/jmarsh/jjcore/internal/hash"
	"github.com/jmarsh/jjcore/internal/model"
	"github.com/jmarsh/jjcore/internal/store"
)

const Name = "memory"

// Backend is the reference in-memory Backend.
type Backend struct {
	mu        sync.RWMutex
	commits   map[string]*model.Commit
	trees     map[string]*model.Tree
	files     map[string]([]byte)
	conflicts map[string]*model.Conflict
	rootID    model.CommitID
}

// NewBackend returns an empty Backend with a 20-byte (SHA-1-sized) root id.
func NewBackend() *Backend {
	return &Backend{
		commits:   map[string]*model.Commit{},
		trees:     map[string]*model.Tree{},
		files:     map[string][]byte{},
		conflicts: map[string]*model.Conflict{},
		rootID:    model.RootCommitID(hash.Size),
	}
}

func (b *Backend) Name() string                  { return Name }
func (b *Backend) RootCommitID() model.CommitID  { return b.rootID }

func commitHashID(c *model.Commit) model.CommitID {
	fields := [][]byte{[]byte(c.Description), []byte(c.ChangeID), []byte(c.RootTree)}
	for _, p := range c.Parents {
		fields = append(fields, []byte(p))
	}
	fields = append(fields, []byte(c.Author.Name), []byte(c.Author.Email))
	fields = append(fields, []byte(c.Committer.Name), []byte(c.Committer.Email))
	return model.CommitID(hash.Sum(fields...))
}

func (b *Backend) ReadCommit(ctx context.Context, id model.CommitID) (*model.Commit, error) {
	if id.IsRoot() {
		return &model.Commit{}, nil
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.commits[id.Hex()]
	if !ok {
		return nil, store.NewBackendError(Name, "ReadCommit", fmt.Errorf("commit %s not found", id.Hex()))
	}
	return c, nil
}

func (b *Backend) WriteCommit(ctx context.Context, c *model.Commit) (model.CommitID, error) {
	id := commitHashID(c)
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := *c
	b.commits[id.Hex()] = &cp
	return id, nil
}

func treeHashID(t *model.Tree) model.TreeID {
	var fields [][]byte
	for path, e := range t.Entries {
		fields = append(fields, []byte(path), []byte{byte(e.Kind)}, []byte(e.FileID), []byte(e.TreeID), []byte(e.ConflictID))
	}
	return model.TreeID(hash.SumSorted(fields))
}

func (b *Backend) ReadTree(ctx context.Context, id model.TreeID) (*model.Tree, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.trees[id.Hex()]
	if !ok {
		return nil, store.NewBackendError(Name, "ReadTree", fmt.Errorf("tree %s not found", id.Hex()))
	}
	return t, nil
}

func (b *Backend) WriteTree(ctx context.Context, t *model.Tree) (model.TreeID, error) {
	id := treeHashID(t)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trees[id.Hex()] = t
	return id, nil
}

func (b *Backend) ReadFile(ctx context.Context, id model.FileID) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	content, ok := b.files[id.Hex()]
	if !ok {
		return nil, store.NewBackendError(Name, "ReadFile", fmt.Errorf("file %s not found", id.Hex()))
	}
	return content, nil
}

func (b *Backend) WriteFile(ctx context.Context, content []byte) (model.FileID, error) {
	id := model.FileID(hash.Sum(content))
	b.mu.Lock()
	defer b.mu.Unlock()
	b.files[id.Hex()] = content
	return id, nil
}

func conflictHashID(c *model.Conflict) model.ConflictID {
	var fields [][]byte
	for _, r := range c.Removes {
		fields = append(fields, []byte("r"), []byte(r))
	}
	for _, a := range c.Adds {
		fields = append(fields, []byte("a"), []byte(a))
	}
	return model.ConflictID(hash.Sum(fields...))
}

func (b *Backend) ReadConflict(ctx context.Context, id model.ConflictID) (*model.Conflict, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.conflicts[id.Hex()]
	if !ok {
		return nil, store.NewBackendError(Name, "ReadConflict", fmt.Errorf("conflict %s not found", id.Hex()))
	}
	return c, nil
}

func (b *Backend) WriteConflict(ctx context.Context, c *model.Conflict) (model.ConflictID, error) {
	id := conflictHashID(c)
	b.mu.Lock()
	defer b.mu.Unlock()
	cp := *c
	b.conflicts[id.Hex()] = &cp
	return id, nil
}

var _ store.Backend = (*Backend)(nil)
