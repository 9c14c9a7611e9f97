// Package revset implements the query language of spec §4.I: a
// recursive-descent lexer/parser, a fixed-order optimizer, and a streaming
// evaluator over the commit index. Hand-rolled rather than built on a
// parser-combinator library — none appears anywhere in the retrieval pack,
// so this is necessarily stdlib-only (see DESIGN.md).
package revset

import "github.com/jmarsh/jjcore/internal/model"

const maxGeneration = ^uint32(0)

// GenRange is a half-open generation-distance range [Start, End); End ==
// maxGeneration means unbounded. An empty range (Start >= End) is distinct
// from a full range and is never silently simplified (spec §4.I
// fold_redundant: "Do not simplify x ∩ None").
type GenRange struct {
	Start uint32
	End   uint32
}

// FullGeneration is the unbounded "all ancestors" range.
var FullGeneration = GenRange{Start: 0, End: maxGeneration}

// ParentsGeneration is the single-generation range used by postfix '-'.
var ParentsGeneration = GenRange{Start: 1, End: 2}

func (g GenRange) isEmpty() bool { return g.Start >= g.End }

// addGenRange sums two generation ranges the way fold_ancestors composes
// nested Ancestors nodes: [g1.start+g2.start, g1.end+g2.end-1), clamped to
// uint32 (spec §4.I pass 3).
func addGenRange(g1, g2 GenRange) GenRange {
	start := clampAdd(g1.Start, g2.Start)
	var end uint32
	if g1.End == maxGeneration || g2.End == maxGeneration {
		end = maxGeneration
	} else {
		end = clampAdd(g1.End, g2.End)
		if end > 0 {
			end--
		}
	}
	return GenRange{Start: start, End: end}
}

func clampAdd(a, b uint32) uint32 {
	sum := uint64(a) + uint64(b)
	if sum > uint64(maxGeneration) {
		return maxGeneration
	}
	return uint32(sum)
}

// Expr is the tagged-union AST node type (spec §4.I "AST variants").
type Expr interface {
	exprNode()
}

type NoneExpr struct{}
type AllExpr struct{}
type VisibleHeadsExpr struct{}
type PublicHeadsExpr struct{}
type TagsExpr struct{}
type GitRefsExpr struct{}
type GitHeadExpr struct{}

type CommitsExpr struct{ IDs []model.CommitID }

// SymbolExpr is a bare or quoted revset symbol. Literal marks a quoted
// string, which is never alias-substituted (spec §4.I).
type SymbolExpr struct {
	Name    string
	Literal bool
}

type ChildrenExpr struct{ Source Expr }
type AncestorsExpr struct {
	Heads Expr
	Gen   GenRange
}
type RangeExpr struct {
	Roots, Heads Expr
	Gen          GenRange
}
type DagRangeExpr struct{ Roots, Heads Expr }

type HeadsExpr struct{ Source Expr }
type RootsExpr struct{ Source Expr }

type BranchesExpr struct{ Needle string }
type RemoteBranchesExpr struct{ Branch, Remote string }

type FilterExpr struct{ Predicate Predicate }
type AsFilterExpr struct{ Source Expr }

type PresentExpr struct{ Source Expr }
type NotInExpr struct{ Source Expr }

type UnionExpr struct{ A, B Expr }
type IntersectionExpr struct{ A, B Expr }
type DifferenceExpr struct{ A, B Expr }

func (NoneExpr) exprNode()           {}
func (AllExpr) exprNode()            {}
func (VisibleHeadsExpr) exprNode()   {}
func (PublicHeadsExpr) exprNode()    {}
func (TagsExpr) exprNode()           {}
func (GitRefsExpr) exprNode()        {}
func (GitHeadExpr) exprNode()        {}
func (*CommitsExpr) exprNode()       {}
func (*SymbolExpr) exprNode()        {}
func (*ChildrenExpr) exprNode()      {}
func (*AncestorsExpr) exprNode()     {}
func (*RangeExpr) exprNode()         {}
func (*DagRangeExpr) exprNode()      {}
func (*HeadsExpr) exprNode()         {}
func (*RootsExpr) exprNode()         {}
func (*BranchesExpr) exprNode()      {}
func (*RemoteBranchesExpr) exprNode() {}
func (*FilterExpr) exprNode()        {}
func (*AsFilterExpr) exprNode()      {}
func (*PresentExpr) exprNode()       {}
func (*NotInExpr) exprNode()         {}
func (*UnionExpr) exprNode()         {}
func (*IntersectionExpr) exprNode()  {}
func (*DifferenceExpr) exprNode()    {}

// Predicate is the tagged-union filter-predicate type (spec §4.I Filter).
type Predicate interface {
	predicateNode()
}

type AuthorPredicate struct{ Needle string }
type CommitterPredicate struct{ Needle string }
type DescriptionPredicate struct{ Needle string }
type FilePredicate struct{ Paths []string }
type ParentCountPredicate struct{ Range GenRange }

func (AuthorPredicate) predicateNode()      {}
func (CommitterPredicate) predicateNode()   {}
func (DescriptionPredicate) predicateNode() {}
func (FilePredicate) predicateNode()        {}
func (ParentCountPredicate) predicateNode() {}

// MergesRange is 2..MAX, the generation range merges() uses for
// ParentCount (spec §4.I: "Predicate::ParentCount(range) uses 2..MAX for
// merges()").
var MergesRange = GenRange{Start: 2, End: maxGeneration}
