package revset

import "strconv"

// buildFunc maps a builtin function call to its AST node (spec §4.I
// "Functions"). User-defined aliases are intercepted before this is
// reached (see parser.parseFunc).
func buildFunc(name string, args []Expr, kwargs map[string]Expr) (Expr, error) {
	switch name {
	case "all":
		return requireNoArgs(name, args, kwargs, AllExpr{})
	case "none":
		return requireNoArgs(name, args, kwargs, NoneExpr{})
	case "visible_heads":
		return requireNoArgs(name, args, kwargs, VisibleHeadsExpr{})
	case "public_heads":
		return requireNoArgs(name, args, kwargs, PublicHeadsExpr{})
	case "tags":
		return requireNoArgs(name, args, kwargs, TagsExpr{})
	case "git_refs":
		return requireNoArgs(name, args, kwargs, GitRefsExpr{})
	case "git_head":
		return requireNoArgs(name, args, kwargs, GitHeadExpr{})

	case "parents":
		e, err := require1(name, args, kwargs)
		if err != nil {
			return nil, err
		}
		return &AncestorsExpr{Heads: e, Gen: ParentsGeneration}, nil

	case "children":
		e, err := require1(name, args, kwargs)
		if err != nil {
			return nil, err
		}
		return &ChildrenExpr{Source: e}, nil

	case "ancestors":
		return buildAncestors(name, args, kwargs)

	case "descendants":
		e, err := require1(name, args, kwargs)
		if err != nil {
			return nil, err
		}
		return &DagRangeExpr{Roots: e, Heads: &AllExpr{}}, nil

	case "heads":
		e, err := require1(name, args, kwargs)
		if err != nil {
			return nil, err
		}
		return &HeadsExpr{Source: e}, nil

	case "roots":
		e, err := require1(name, args, kwargs)
		if err != nil {
			return nil, err
		}
		return &RootsExpr{Source: e}, nil

	case "branches":
		needle, err := requireOptionalString(name, args, kwargs)
		if err != nil {
			return nil, err
		}
		return &BranchesExpr{Needle: needle}, nil

	case "remote_branches":
		branch, remote, err := buildRemoteBranchesArgs(args, kwargs)
		if err != nil {
			return nil, err
		}
		return &RemoteBranchesExpr{Branch: branch, Remote: remote}, nil

	case "author":
		needle, err := requireString(name, args, kwargs)
		if err != nil {
			return nil, err
		}
		return &FilterExpr{Predicate: AuthorPredicate{Needle: needle}}, nil

	case "committer":
		needle, err := requireString(name, args, kwargs)
		if err != nil {
			return nil, err
		}
		return &FilterExpr{Predicate: CommitterPredicate{Needle: needle}}, nil

	case "description":
		needle, err := requireString(name, args, kwargs)
		if err != nil {
			return nil, err
		}
		return &FilterExpr{Predicate: DescriptionPredicate{Needle: needle}}, nil

	case "file":
		if len(kwargs) > 0 {
			return nil, newInvalidArgs(name, "keyword arguments not accepted")
		}
		if len(args) == 0 {
			return nil, newInvalidArgs(name, "expected at least one path")
		}
		paths := make([]string, 0, len(args))
		for _, a := range args {
			s, ok := symbolText(a)
			if !ok {
				return nil, newInvalidArgs(name, "expected string arguments")
			}
			paths = append(paths, s)
		}
		return &FilterExpr{Predicate: FilePredicate{Paths: paths}}, nil

	case "merges":
		return requireNoArgs(name, args, kwargs, &FilterExpr{Predicate: ParentCountPredicate{Range: MergesRange}})

	case "present":
		e, err := require1(name, args, kwargs)
		if err != nil {
			return nil, err
		}
		return &PresentExpr{Source: e}, nil

	default:
		return nil, newNoSuchFunction(name)
	}
}

func buildAncestors(name string, args []Expr, kwargs map[string]Expr) (Expr, error) {
	if len(kwargs) > 0 {
		return nil, newInvalidArgs(name, "keyword arguments not accepted")
	}
	if len(args) < 1 || len(args) > 2 {
		return nil, newInvalidArgs(name, "expected 1 or 2 arguments")
	}
	gen := FullGeneration
	if len(args) == 2 {
		n, ok := literalUint(args[1])
		if !ok {
			return nil, newInvalidArgs(name, "depth must be a numeric literal")
		}
		gen = GenRange{Start: 0, End: clampAdd(n, 1)}
	}
	return &AncestorsExpr{Heads: args[0], Gen: gen}, nil
}

func buildRemoteBranchesArgs(args []Expr, kwargs map[string]Expr) (branch, remote string, err error) {
	const name = "remote_branches"
	params := []string{"branch", "remote"}
	vals := map[string]string{}
	if len(args) > len(params) {
		return "", "", newInvalidArgs(name, "too many positional arguments")
	}
	for i, a := range args {
		s, ok := symbolText(a)
		if !ok {
			return "", "", newInvalidArgs(name, "expected string arguments")
		}
		vals[params[i]] = s
	}
	for k, v := range kwargs {
		found := false
		for _, p := range params {
			if p == k {
				found = true
			}
		}
		if !found {
			return "", "", newInvalidArgs(name, "unknown parameter: "+k)
		}
		if _, exists := vals[k]; exists {
			return "", "", newRedefinedParam(k)
		}
		s, ok := symbolText(v)
		if !ok {
			return "", "", newInvalidArgs(name, "expected string keyword arguments")
		}
		vals[k] = s
	}
	return vals["branch"], vals["remote"], nil
}

func requireNoArgs(name string, args []Expr, kwargs map[string]Expr, result Expr) (Expr, error) {
	if len(args) != 0 || len(kwargs) != 0 {
		return nil, newInvalidArgs(name, "expected no arguments")
	}
	return result, nil
}

func require1(name string, args []Expr, kwargs map[string]Expr) (Expr, error) {
	if len(kwargs) > 0 || len(args) != 1 {
		return nil, newInvalidArgs(name, "expected exactly 1 argument")
	}
	return args[0], nil
}

func requireString(name string, args []Expr, kwargs map[string]Expr) (string, error) {
	if len(kwargs) > 0 || len(args) != 1 {
		return "", newInvalidArgs(name, "expected exactly 1 string argument")
	}
	s, ok := symbolText(args[0])
	if !ok {
		return "", newInvalidArgs(name, "expected a string argument")
	}
	return s, nil
}

func requireOptionalString(name string, args []Expr, kwargs map[string]Expr) (string, error) {
	if len(kwargs) > 0 || len(args) > 1 {
		return "", newInvalidArgs(name, "expected at most 1 string argument")
	}
	if len(args) == 0 {
		return "", nil
	}
	s, ok := symbolText(args[0])
	if !ok {
		return "", newInvalidArgs(name, "expected a string argument")
	}
	return s, nil
}

// symbolText extracts the literal text of a bare or quoted symbol atom, the
// form function arguments take for string-like parameters.
func symbolText(e Expr) (string, bool) {
	if se, ok := e.(*SymbolExpr); ok {
		return se.Name, true
	}
	return "", false
}

func literalUint(e Expr) (uint32, bool) {
	s, ok := symbolText(e)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint32(n), true
}
