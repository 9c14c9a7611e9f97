package revset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmarsh/jjcore/internal/index"
	"github.com/jmarsh/jjcore/internal/model"
	"github.com/jmarsh/jjcore/internal/store"
	"github.com/jmarsh/jjcore/internal/store/memory"
)

// fakeRepo is a minimal revset.Repo built directly over a memory.Backend
// and a refIndex, without going through internal/repo, so the evaluator
// can be unit tested in isolation.
type fakeRepo struct {
	backend *memory.Backend
	idx     index.ReadonlyIndex
	view    *model.View
}

func (f *fakeRepo) Index() index.ReadonlyIndex { return f.idx }
func (f *fakeRepo) View() *model.View          { return f.view }
func (f *fakeRepo) Backend() store.Backend     { return f.backend }

// buildChain builds a linear history on top of root with one commit per
// description, indexes each, and returns their ids in order.
func buildChain(t *testing.T, backend *memory.Backend, mi index.MutableIndex, descriptions []string) []model.CommitID {
	t.Helper()
	ctx := context.Background()
	parent := backend.RootCommitID()
	var ids []model.CommitID
	for _, desc := range descriptions {
		c := &model.Commit{
			Parents:     []model.CommitID{parent},
			Description: desc,
			ChangeID:    model.ChangeID([]byte(desc + "-change")),
			Author:      model.Signature{Name: "tester", Email: "t@example.com"},
			Committer:   model.Signature{Name: "tester", Email: "t@example.com"},
		}
		id, err := backend.WriteCommit(ctx, c)
		require.NoError(t, err)
		mi.AddCommitWithParents(id, c.ChangeID, c.Parents)
		ids = append(ids, id)
		parent = id
	}
	return ids
}

func newFakeRepoChain(t *testing.T, descriptions []string) (*fakeRepo, []model.CommitID) {
	t.Helper()
	backend := memory.NewBackend()
	mi := index.NewMutable()
	ids := buildChain(t, backend, mi, descriptions)
	view := model.NewView()
	view.Heads[ids[len(ids)-1].Hex()] = ids[len(ids)-1]
	return &fakeRepo{backend: backend, idx: mi.Freeze(), view: view}, ids
}

func evalSrc(t *testing.T, repo *fakeRepo, src string) *Revset {
	t.Helper()
	expr, err := Parse(src, nil)
	require.NoError(t, err)
	rs, err := Evaluate(context.Background(), Optimize(expr), repo, WorkspaceContext{})
	require.NoError(t, err)
	return rs
}

func TestEvaluateAll(t *testing.T) {
	repo, ids := newFakeRepoChain(t, []string{"c1", "c2", "c3"})
	rs := evalSrc(t, repo, "all()")
	for _, id := range ids {
		assert.True(t, rs.Contains(id))
	}
}

func TestEvaluateAncestorsFullRange(t *testing.T) {
	repo, ids := newFakeRepoChain(t, []string{"c1", "c2", "c3"})
	rs, err := Evaluate(context.Background(), &AncestorsExpr{Heads: &CommitsExpr{IDs: []model.CommitID{ids[2]}}, Gen: FullGeneration}, repo, WorkspaceContext{})
	require.NoError(t, err)
	assert.True(t, rs.Contains(ids[0]))
	assert.True(t, rs.Contains(ids[1]))
	assert.True(t, rs.Contains(ids[2]))
}

func TestEvaluateParentsIsSingleGeneration(t *testing.T) {
	repo, ids := newFakeRepoChain(t, []string{"c1", "c2", "c3"})
	rs, err := Evaluate(context.Background(), &AncestorsExpr{Heads: &CommitsExpr{IDs: []model.CommitID{ids[2]}}, Gen: ParentsGeneration}, repo, WorkspaceContext{})
	require.NoError(t, err)
	assert.True(t, rs.Contains(ids[1]))
	assert.False(t, rs.Contains(ids[2]))
	assert.False(t, rs.Contains(ids[0]))
}

func TestEvaluateDescriptionFilter(t *testing.T) {
	repo, ids := newFakeRepoChain(t, []string{"fix bug", "add feature", "fix typo"})
	rs := evalSrc(t, repo, `description("fix")`)
	assert.True(t, rs.Contains(ids[0]))
	assert.True(t, rs.Contains(ids[2]))
	assert.False(t, rs.Contains(ids[1]))
}

func TestEvaluateDifferenceExcludesRightSide(t *testing.T) {
	repo, ids := newFakeRepoChain(t, []string{"c1", "c2", "c3"})
	rs := evalSrc(t, repo, "all() & ~"+ids[1].Hex())
	assert.True(t, rs.Contains(ids[0]))
	assert.False(t, rs.Contains(ids[1]))
	assert.True(t, rs.Contains(ids[2]))
}

func TestEvaluateHexPrefixResolution(t *testing.T) {
	repo, ids := newFakeRepoChain(t, []string{"c1", "c2", "c3"})
	full := ids[1].Hex()
	rs := evalSrc(t, repo, full[:8])
	assert.True(t, rs.Contains(ids[1]))
}

func TestEvaluateUnknownSymbolFails(t *testing.T) {
	repo, _ := newFakeRepoChain(t, []string{"c1"})
	_, err := Evaluate(context.Background(), mustParse(t, "nonexistent_branch_name"), repo, WorkspaceContext{})
	require.Error(t, err)
	var ee *EvalError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, NoSuchRevision, ee.Kind)
}

func TestEvaluatePresentSwallowsNoSuchRevision(t *testing.T) {
	repo, _ := newFakeRepoChain(t, []string{"c1"})
	rs := evalSrc(t, repo, "present(nonexistent_branch_name)")
	assert.True(t, rs.IsEmpty())
}

func TestEvaluateHeadsAndRoots(t *testing.T) {
	repo, ids := newFakeRepoChain(t, []string{"c1", "c2", "c3"})
	rs := evalSrc(t, repo, "heads(all())")
	assert.True(t, rs.Contains(ids[2]))
	assert.False(t, rs.Contains(ids[0]))

	rs = evalSrc(t, repo, "roots(all())")
	assert.True(t, rs.Contains(ids[0]))
	assert.False(t, rs.Contains(ids[2]))
}

func TestEvaluateUnionOrdersDescendingByPosition(t *testing.T) {
	repo, ids := newFakeRepoChain(t, []string{"c1", "c2", "c3"})
	rs := evalSrc(t, repo, ids[0].Hex()+" | "+ids[2].Hex())
	entries := rs.Entries()
	require.Len(t, entries, 2)
	assert.Greater(t, entries[0].Position, entries[1].Position)
}
