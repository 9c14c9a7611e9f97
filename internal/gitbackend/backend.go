// Package gitbackend is a concrete store.Backend implementation over
// github.com/go-git/go-git/v5, the teacher's own object-model dependency
// (internal/git/commands/merge_pr.go constructs and encodes object.Commit
// values into a go-git storer exactly the way this package does). Commits
// are real go-git objects; trees, file contents and conflicts are kept in
// in-memory tables beside the object store. The jj-specific fields a raw git
// commit has no slot for (ChangeID, Predecessors, IsOpen) are kept in a
// side index next to the object store, the same way the teacher keeps
// session-only bookkeeping (ReflogEntry, PotentialCommits) alongside the
// go-git repository it wraps (internal/git/session.go).
package gitbackend

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/storage/memory"

	"github.com/jmarsh/jjcore/internal/model"
	jjstore "github.com/jmarsh/jjcore/internal/store"
)

const Name = "git"

// sideMeta holds the jj-only commit fields go-git's object.Commit has no
// field for.
type sideMeta struct {
	changeID     model.ChangeID
	isOpen       bool
	predecessors []model.CommitID
}

// Backend adapts a go-git object storer to the store.Backend capability.
type Backend struct {
	mu     sync.RWMutex
	storer storer.EncodedObjectStorer
	meta   map[plumbing.Hash]sideMeta
	// trees/conflicts modeled as go-git blobs/trees are overkill for the
	// flat model.Tree abstraction used by the rebaser's 3-way tree merge,
	// so those two object kinds are kept in a parallel in-memory table
	// rather than forced into go-git's object.Tree (which models real
	// directory trees, not our flat-conflict-aware path map).
	trees     map[string]*model.Tree
	files     map[string][]byte
	conflicts map[string]*model.Conflict
}

// New returns a Backend over a fresh in-memory go-git object store
// (storage/memory.Storage, the same storer the teacher uses for every
// simulated repository in internal/git/session.go).
func New() *Backend {
	return &Backend{
		storer:    memory.NewStorage(),
		meta:      map[plumbing.Hash]sideMeta{},
		trees:     map[string]*model.Tree{},
		files:     map[string][]byte{},
		conflicts: map[string]*model.Conflict{},
	}
}

func (b *Backend) Name() string { return Name }

func (b *Backend) RootCommitID() model.CommitID {
	return model.RootCommitID(20) // SHA-1-sized, matching go-git's plumbing.Hash width
}

func toPlumbingHash(id model.CommitID) plumbing.Hash {
	var h plumbing.Hash
	copy(h[:], id)
	return h
}

func (b *Backend) ReadCommit(ctx context.Context, id model.CommitID) (*model.Commit, error) {
	if id.IsRoot() {
		return &model.Commit{}, nil
	}
	h := toPlumbingHash(id)
	b.mu.RLock()
	defer b.mu.RUnlock()

	obj, err := b.storer.EncodedObject(plumbing.CommitObject, h)
	if err != nil {
		return nil, jjstore.NewBackendError(Name, "ReadCommit", err)
	}
	gc := &object.Commit{}
	if err := gc.Decode(obj); err != nil {
		return nil, jjstore.NewBackendError(Name, "ReadCommit", err)
	}
	meta := b.meta[h]

	parents := make([]model.CommitID, 0, len(gc.ParentHashes))
	for _, p := range gc.ParentHashes {
		parents = append(parents, model.CommitID(p[:]))
	}

	return &model.Commit{
		Parents:     parents,
		RootTree:    model.TreeID(gc.TreeHash[:]),
		Author:      model.Signature{Name: gc.Author.Name, Email: gc.Author.Email, Timestamp: gc.Author.When},
		Committer:   model.Signature{Name: gc.Committer.Name, Email: gc.Committer.Email, Timestamp: gc.Committer.When},
		Description: gc.Message,
		ChangeID:    meta.changeID,
		IsOpen:      meta.isOpen,
		Predecessors: meta.predecessors,
	}, nil
}

func (b *Backend) WriteCommit(ctx context.Context, c *model.Commit) (model.CommitID, error) {
	gc := &object.Commit{
		Author:    object.Signature{Name: c.Author.Name, Email: c.Author.Email, When: timeOrNow(c.Author.Timestamp)},
		Committer: object.Signature{Name: c.Committer.Name, Email: c.Committer.Email, When: timeOrNow(c.Committer.Timestamp)},
		Message:   c.Description,
		TreeHash:  toPlumbingHash(model.CommitID(c.RootTree)),
	}
	for _, p := range c.Parents {
		gc.ParentHashes = append(gc.ParentHashes, toPlumbingHash(p))
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	obj := b.storer.NewEncodedObject()
	if err := gc.Encode(obj); err != nil {
		return nil, jjstore.NewBackendError(Name, "WriteCommit", err)
	}
	h, err := b.storer.SetEncodedObject(obj)
	if err != nil {
		return nil, jjstore.NewBackendError(Name, "WriteCommit", err)
	}
	b.meta[h] = sideMeta{changeID: c.ChangeID, isOpen: c.IsOpen, predecessors: c.Predecessors}
	return model.CommitID(h[:]), nil
}

func timeOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}

// ReadTree/WriteTree/ReadFile/WriteFile/ReadConflict/WriteConflict: the flat
// path->entry Tree model (spec §4.H's 3-way tree merge operates on whole
// paths, not git's nested tree objects) is stored content-addressed by a
// plain hash of its serialized entries, parallel to the go-git object
// store rather than inside it.

func (b *Backend) ReadTree(ctx context.Context, id model.TreeID) (*model.Tree, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.trees[string(id)]
	if !ok {
		return nil, jjstore.NewBackendError(Name, "ReadTree", fmt.Errorf("tree not found"))
	}
	return t, nil
}

func (b *Backend) WriteTree(ctx context.Context, t *model.Tree) (model.TreeID, error) {
	id := hashTree(t)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.trees[string(id)] = t
	return id, nil
}

func (b *Backend) ReadFile(ctx context.Context, id model.FileID) ([]byte, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	content, ok := b.files[string(id)]
	if !ok {
		return nil, jjstore.NewBackendError(Name, "ReadFile", fmt.Errorf("file not found"))
	}
	return content, nil
}

func (b *Backend) WriteFile(ctx context.Context, content []byte) (model.FileID, error) {
	h := plumbing.ComputeHash(plumbing.BlobObject, content)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.files[string(h[:])] = content
	return model.FileID(h[:]), nil
}

func (b *Backend) ReadConflict(ctx context.Context, id model.ConflictID) (*model.Conflict, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	c, ok := b.conflicts[string(id)]
	if !ok {
		return nil, jjstore.NewBackendError(Name, "ReadConflict", fmt.Errorf("conflict not found"))
	}
	return c, nil
}

func (b *Backend) WriteConflict(ctx context.Context, c *model.Conflict) (model.ConflictID, error) {
	var buf bytes.Buffer
	for _, r := range c.Removes {
		buf.WriteByte('r')
		buf.Write(r)
	}
	for _, a := range c.Adds {
		buf.WriteByte('a')
		buf.Write(a)
	}
	h := plumbing.ComputeHash(plumbing.BlobObject, buf.Bytes())
	b.mu.Lock()
	defer b.mu.Unlock()
	b.conflicts[string(h[:])] = c
	return model.ConflictID(h[:]), nil
}

func hashTree(t *model.Tree) model.TreeID {
	paths := make([]string, 0, len(t.Entries))
	for path := range t.Entries {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	var buf bytes.Buffer
	for _, path := range paths {
		e := t.Entries[path]
		fmt.Fprintf(&buf, "%s\x00%d\x00%x\x00%x\x00%x\x00%v\n", path, e.Kind, e.FileID, e.TreeID, e.ConflictID, e.Executable)
	}
	h := plumbing.ComputeHash(plumbing.TreeObject, buf.Bytes())
	return model.TreeID(h[:])
}

var _ jjstore.Backend = (*Backend)(nil)
