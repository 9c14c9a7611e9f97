package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jmarsh/jjcore/internal/hash"
	"github.com/jmarsh/jjcore/internal/model"
	"github.com/jmarsh/jjcore/internal/store"
)

// wireView and wireOperation are JSON-serializable mirrors of model.View and
// model.Operation, used only to get a deterministic byte encoding to hash
// and store. encoding/json is the teacher's own serialization idiom
// (internal/git/types.go tags every wire struct `json:"..."`); no
// alternative serialization library appears anywhere in the retrieval pack.
type wireView struct {
	WorkingCopies map[string]string
	Heads         []string
	PublicHeads   []string
	Branches      map[string]wireBranch
	Tags          map[string]wireRef
	GitRefs       map[string]wireRef
	GitHead       *wireRef
}

type wireBranch struct {
	Local   *wireRef
	Remotes map[string]wireRef
}

type wireRef struct {
	Kind    int
	Normal  string
	Removes []string
	Adds    []string
}

func toWireRef(t model.RefTarget) wireRef {
	w := wireRef{Kind: int(t.Kind)}
	if t.Kind == model.RefNormal {
		w.Normal = hexOf(t.Normal)
	} else {
		for _, r := range t.Removes {
			w.Removes = append(w.Removes, hexOf(r))
		}
		for _, a := range t.Adds {
			w.Adds = append(w.Adds, hexOf(a))
		}
	}
	return w
}

func hexOf(id model.CommitID) string {
	if id == nil {
		return ""
	}
	return id.Hex()
}

func toWireView(v *model.View) wireView {
	w := wireView{
		WorkingCopies: map[string]string{},
		Branches:      map[string]wireBranch{},
		Tags:          map[string]wireRef{},
		GitRefs:       map[string]wireRef{},
	}
	for ws, id := range v.WorkingCopies {
		w.WorkingCopies[string(ws)] = hexOf(id)
	}
	for _, id := range v.HeadIDs() {
		w.Heads = append(w.Heads, hexOf(id))
	}
	for _, id := range v.PublicHeadIDs() {
		w.PublicHeads = append(w.PublicHeads, hexOf(id))
	}
	for name, b := range v.Branches {
		wb := wireBranch{Remotes: map[string]wireRef{}}
		if b.Local != nil {
			r := toWireRef(*b.Local)
			wb.Local = &r
		}
		for remote, t := range b.Remotes {
			wb.Remotes[remote] = toWireRef(t)
		}
		w.Branches[name] = wb
	}
	for name, t := range v.Tags {
		w.Tags[name] = toWireRef(t)
	}
	for name, t := range v.GitRefs {
		w.GitRefs[name] = toWireRef(t)
	}
	if v.GitHead != nil {
		r := toWireRef(*v.GitHead)
		w.GitHead = &r
	}
	return w
}

// OpStore is the reference in-memory OpStore.
type OpStore struct {
	mu         sync.RWMutex
	views      map[string]*model.View
	operations map[string]*model.Operation
}

const OpStoreName = "memory"

func NewOpStore() *OpStore {
	return &OpStore{views: map[string]*model.View{}, operations: map[string]*model.Operation{}}
}

func (s *OpStore) Name() string { return OpStoreName }

func (s *OpStore) ReadView(ctx context.Context, id model.ViewID) (*model.View, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.views[id.Hex()]
	if !ok {
		return nil, store.NewBackendError(OpStoreName, "ReadView", fmt.Errorf("view %s not found", id.Hex()))
	}
	return v.Clone(), nil
}

func (s *OpStore) WriteView(ctx context.Context, v *model.View) (model.ViewID, error) {
	payload, err := json.Marshal(toWireView(v))
	if err != nil {
		return nil, store.NewBackendError(OpStoreName, "WriteView", err)
	}
	id := model.ViewID(hash.Sum(payload))
	s.mu.Lock()
	defer s.mu.Unlock()
	s.views[id.Hex()] = v.Clone()
	return id, nil
}

func (s *OpStore) ReadOperation(ctx context.Context, id model.OperationID) (*model.Operation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	op, ok := s.operations[id.Hex()]
	if !ok {
		return nil, store.NewBackendError(OpStoreName, "ReadOperation", fmt.Errorf("operation %s not found", id.Hex()))
	}
	cp := *op
	return &cp, nil
}

func (s *OpStore) WriteOperation(ctx context.Context, op *model.Operation) (model.OperationID, error) {
	id := OperationID(op)
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *op
	s.operations[id.Hex()] = &cp
	return id, nil
}

// OperationID computes the content hash of (parents, view_id, metadata)
// (spec §4.E: "The operation id is the content hash of...").
func OperationID(op *model.Operation) model.OperationID {
	fields := [][]byte{[]byte(op.ViewID)}
	for _, p := range op.Parents {
		fields = append(fields, []byte(p))
	}
	fields = append(fields,
		[]byte(op.Metadata.UserName),
		[]byte(op.Metadata.UserEmail),
		[]byte(op.Metadata.Description),
		[]byte(op.Metadata.Hostname),
		[]byte(op.Metadata.StartTime.Format(timeLayout)),
		[]byte(op.Metadata.EndTime.Format(timeLayout)),
	)
	tagKeys := make([]string, 0, len(op.Metadata.Tags))
	for k := range op.Metadata.Tags {
		tagKeys = append(tagKeys, k)
	}
	for _, k := range sortedStrings(tagKeys) {
		fields = append(fields, []byte(k), []byte(op.Metadata.Tags[k]))
	}
	return model.OperationID(hash.Sum(fields...))
}

const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func sortedStrings(ss []string) []string {
	out := append([]string{}, ss...)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j-1] > out[j]; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

var _ store.OpStore = (*OpStore)(nil)
