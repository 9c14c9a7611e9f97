package revset

// Optimize runs the fixed-order optimizer pipeline over expr (spec §4.I
// "5-pass optimizer"): unfold_difference, fold_redundant, fold_ancestors,
// internalize_filter, fold_difference. Each pass rewrites bottom-up and
// returns the original node pointer when none of its children changed, so a
// caller can compare results by identity to detect a no-op pass.
func Optimize(expr Expr) Expr {
	expr = unfoldDifference(expr)
	expr = foldRedundant(expr)
	expr = foldAncestors(expr)
	expr = internalizeFilter(expr)
	expr = foldDifference(expr)
	return expr
}

// mapChildren applies f to expr's immediate children and returns a new node
// only if at least one child actually changed (by pointer identity for
// pointer-typed nodes); otherwise it returns expr unchanged, preserving
// identity for the next pass's own no-op detection.
func mapChildren(expr Expr, f func(Expr) Expr) Expr {
	switch e := expr.(type) {
	case *CommitsExpr, *SymbolExpr:
		return expr
	case NoneExpr, AllExpr, VisibleHeadsExpr, PublicHeadsExpr, TagsExpr, GitRefsExpr, GitHeadExpr:
		return expr
	case *ChildrenExpr:
		s := f(e.Source)
		if s == e.Source {
			return e
		}
		return &ChildrenExpr{Source: s}
	case *AncestorsExpr:
		h := f(e.Heads)
		if h == e.Heads {
			return e
		}
		return &AncestorsExpr{Heads: h, Gen: e.Gen}
	case *RangeExpr:
		r, h := f(e.Roots), f(e.Heads)
		if r == e.Roots && h == e.Heads {
			return e
		}
		return &RangeExpr{Roots: r, Heads: h, Gen: e.Gen}
	case *DagRangeExpr:
		r, h := f(e.Roots), f(e.Heads)
		if r == e.Roots && h == e.Heads {
			return e
		}
		return &DagRangeExpr{Roots: r, Heads: h}
	case *HeadsExpr:
		s := f(e.Source)
		if s == e.Source {
			return e
		}
		return &HeadsExpr{Source: s}
	case *RootsExpr:
		s := f(e.Source)
		if s == e.Source {
			return e
		}
		return &RootsExpr{Source: s}
	case *BranchesExpr, *RemoteBranchesExpr, *FilterExpr:
		return expr
	case *AsFilterExpr:
		s := f(e.Source)
		if s == e.Source {
			return e
		}
		return &AsFilterExpr{Source: s}
	case *PresentExpr:
		s := f(e.Source)
		if s == e.Source {
			return e
		}
		return &PresentExpr{Source: s}
	case *NotInExpr:
		s := f(e.Source)
		if s == e.Source {
			return e
		}
		return &NotInExpr{Source: s}
	case *UnionExpr:
		a, b := f(e.A), f(e.B)
		if a == e.A && b == e.B {
			return e
		}
		return &UnionExpr{A: a, B: b}
	case *IntersectionExpr:
		a, b := f(e.A), f(e.B)
		if a == e.A && b == e.B {
			return e
		}
		return &IntersectionExpr{A: a, B: b}
	case *DifferenceExpr:
		a, b := f(e.A), f(e.B)
		if a == e.A && b == e.B {
			return e
		}
		return &DifferenceExpr{A: a, B: b}
	default:
		return expr
	}
}

// unfoldDifference rewrites x ~ y into x & ~y so later passes only need to
// reason about Intersection/NotIn.
func unfoldDifference(expr Expr) Expr {
	var walk func(Expr) Expr
	walk = func(e Expr) Expr {
		e = mapChildren(e, walk)
		if d, ok := e.(*DifferenceExpr); ok {
			return &IntersectionExpr{A: d.A, B: &NotInExpr{Source: d.B}}
		}
		return e
	}
	return walk(expr)
}

// foldRedundant applies ¬¬x -> x, x & All -> x, All & x -> x. It
// deliberately does not simplify x & None (spec §4.I: "Do not simplify x ∩
// None") since None may carry evaluation-order significance a naive fold
// would erase.
func foldRedundant(expr Expr) Expr {
	var walk func(Expr) Expr
	walk = func(e Expr) Expr {
		e = mapChildren(e, walk)
		switch v := e.(type) {
		case *NotInExpr:
			if inner, ok := v.Source.(*NotInExpr); ok {
				return walk(inner.Source)
			}
			return v
		case *IntersectionExpr:
			if _, ok := v.A.(AllExpr); ok {
				return v.B
			}
			if _, ok := v.B.(AllExpr); ok {
				return v.A
			}
			return v
		default:
			return e
		}
	}
	return walk(expr)
}

// foldAncestors sums nested Ancestors generation ranges
// (Ancestors(Ancestors(x, g2), g1) -> Ancestors(x, g1+g2)) via addGenRange.
func foldAncestors(expr Expr) Expr {
	var walk func(Expr) Expr
	walk = func(e Expr) Expr {
		e = mapChildren(e, walk)
		if outer, ok := e.(*AncestorsExpr); ok {
			if inner, ok := outer.Heads.(*AncestorsExpr); ok {
				return walk(&AncestorsExpr{Heads: inner.Heads, Gen: addGenRange(outer.Gen, inner.Gen)})
			}
		}
		return e
	}
	return walk(expr)
}

// isFilterLike reports whether expr can be evaluated as a pure membership
// predicate against a single candidate, without needing its own index
// traversal (spec §4.I Filter/AsFilter nodes).
func isFilterLike(e Expr) bool {
	switch v := e.(type) {
	case *FilterExpr, *AsFilterExpr:
		return true
	case *NotInExpr:
		return isFilterLike(v.Source)
	case *UnionExpr:
		return isFilterLike(v.A) && isFilterLike(v.B)
	case *IntersectionExpr:
		return isFilterLike(v.A) && isFilterLike(v.B)
	default:
		return false
	}
}

// internalizeFilter marks the filter-only side of an Intersection with
// AsFilterExpr so the evaluator can test candidates from the other side by
// predicate rather than by intersecting two independently-materialized
// revsets.
func internalizeFilter(expr Expr) Expr {
	var walk func(Expr) Expr
	walk = func(e Expr) Expr {
		e = mapChildren(e, walk)
		inter, ok := e.(*IntersectionExpr)
		if !ok {
			return e
		}
		aFilter, bFilter := isFilterLike(inter.A), isFilterLike(inter.B)
		switch {
		case bFilter && !aFilter:
			if _, already := inter.B.(*AsFilterExpr); already {
				return inter
			}
			return &IntersectionExpr{A: inter.A, B: &AsFilterExpr{Source: inter.B}}
		case aFilter && !bFilter:
			if _, already := inter.A.(*AsFilterExpr); already {
				return inter
			}
			return &IntersectionExpr{A: &AsFilterExpr{Source: inter.A}, B: inter.B}
		default:
			return inter
		}
	}
	return walk(expr)
}

// foldDifference re-collapses x & ~y (possibly produced fresh by
// internalizeFilter's rewrite) back into a single Difference node, and
// further recognizes Ancestors(h) \ Ancestors(r) as exactly the roots..heads
// Range it's defined to mean (spec §4.I worked example: ":foo & ~:bar" ->
// Range{roots=bar, heads=foo, gen=0..MAX}). The fold only holds when the
// negated side is a full-generation ancestor set: the evaluator's RangeExpr
// case excludes roots' entire ancestry regardless of Gen, so folding a
// bounded not.Source (e.g. "x- & ~y-", both ParentsGeneration) into a Range
// would exclude more of y's ancestry than the original expression did.
func foldDifference(expr Expr) Expr {
	var walk func(Expr) Expr
	walk = func(e Expr) Expr {
		e = mapChildren(e, walk)
		inter, ok := e.(*IntersectionExpr)
		if !ok {
			return e
		}
		not, ok := unwrapAsFilter(inter.B).(*NotInExpr)
		if !ok {
			return inter
		}
		diff := Expr(&DifferenceExpr{A: inter.A, B: not.Source})
		if ha, ok := inter.A.(*AncestorsExpr); ok {
			if hb, ok := not.Source.(*AncestorsExpr); ok && hb.Gen == FullGeneration {
				return &RangeExpr{Roots: hb.Heads, Heads: ha.Heads, Gen: ha.Gen}
			}
		}
		return diff
	}
	return walk(expr)
}

func unwrapAsFilter(e Expr) Expr {
	if af, ok := e.(*AsFilterExpr); ok {
		return af.Source
	}
	return e
}
