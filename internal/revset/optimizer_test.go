package revset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimizeUnfoldsThenRefoldsDifference(t *testing.T) {
	// Spec §4.I worked example: ":foo & ~:bar" -> Range{roots=bar, heads=foo,
	// gen=0..MAX}, i.e. the optimizer should recognize this as a plain
	// roots..heads range once unfold/internalize/fold_difference have run.
	e := mustParse(t, ":foo & ~:bar")
	opt := Optimize(e)
	rng, ok := opt.(*RangeExpr)
	require.True(t, ok, "got %T", opt)
	heads, ok := rng.Heads.(*SymbolExpr)
	require.True(t, ok)
	assert.Equal(t, "foo", heads.Name)
	roots, ok := rng.Roots.(*SymbolExpr)
	require.True(t, ok)
	assert.Equal(t, "bar", roots.Name)
}

func TestFoldDifferenceDoesNotFoldNonFullGenerationRoots(t *testing.T) {
	// "x- & ~y-" is parents(x) minus parents(y), both ParentsGeneration
	// (1..2), not FullGeneration. Folding this into Range{roots=y, heads=x,
	// gen=1..2} would evaluate as "ancestors of x within 1 generation minus
	// ALL ancestors of y" (RangeExpr always excludes the negated side's full
	// ancestry), which is not what "x- & ~y-" means. The fold must require
	// the negated side to be a full-generation ancestor set.
	e := mustParse(t, "x- & ~y-")
	opt := Optimize(e)
	diff, ok := opt.(*DifferenceExpr)
	require.True(t, ok, "got %T, must not be folded into a Range", opt)

	a, ok := diff.A.(*AncestorsExpr)
	require.True(t, ok)
	assert.Equal(t, ParentsGeneration, a.Gen)
	aSym, ok := a.Heads.(*SymbolExpr)
	require.True(t, ok)
	assert.Equal(t, "x", aSym.Name)

	b, ok := diff.B.(*AncestorsExpr)
	require.True(t, ok)
	assert.Equal(t, ParentsGeneration, b.Gen)
	bSym, ok := b.Heads.(*SymbolExpr)
	require.True(t, ok)
	assert.Equal(t, "y", bSym.Name)
}

func TestFoldRedundantDoubleNegation(t *testing.T) {
	e := mustParse(t, "~~main")
	opt := Optimize(e)
	sym, ok := opt.(*SymbolExpr)
	require.True(t, ok, "got %T", opt)
	assert.Equal(t, "main", sym.Name)
}

func TestFoldRedundantIntersectWithAll(t *testing.T) {
	e := mustParse(t, "all() & main")
	opt := Optimize(e)
	sym, ok := opt.(*SymbolExpr)
	require.True(t, ok, "got %T", opt)
	assert.Equal(t, "main", sym.Name)
}

func TestFoldRedundantDoesNotSimplifyIntersectNone(t *testing.T) {
	e := mustParse(t, "main & none()")
	opt := Optimize(e)
	_, ok := opt.(*IntersectionExpr)
	assert.True(t, ok, "x & none() must not be simplified away, got %T", opt)
}

func TestFoldAncestorsSumsNestedGenerations(t *testing.T) {
	// parents(parents(x)) == x--  -> Ancestors(Ancestors(x,1..2),1..2), should
	// fold to Ancestors(x, 2..3).
	e := mustParse(t, "x--")
	opt := Optimize(e)
	a, ok := opt.(*AncestorsExpr)
	require.True(t, ok, "got %T", opt)
	assert.Equal(t, GenRange{Start: 2, End: 3}, a.Gen)
	_, isSym := a.Heads.(*SymbolExpr)
	assert.True(t, isSym)
}

func TestOptimizePreservesIdentityWhenNoop(t *testing.T) {
	e := mustParse(t, "main")
	opt := Optimize(e)
	assert.Same(t, e, opt)
}

func TestAddGenRangeClampsAtMax(t *testing.T) {
	g := addGenRange(GenRange{Start: 0, End: maxGeneration}, GenRange{Start: 1, End: 2})
	assert.Equal(t, uint32(1), g.Start)
	assert.Equal(t, maxGeneration, g.End)
}
