package rewrite

import "errors"

// ErrCyclicRebase is returned when a requested rebase destination is, or is
// a descendant of, one of the commits being rebased (Open Question: cyclic
// rebase destination, resolved as "reject before any write").
var ErrCyclicRebase = errors.New("rewrite: rebase destination is a descendant of a source commit")

// errCycleDuringSubstitution guards against a malformed rewritten/abandoned
// chain (e.g. A abandoned in favor of B which was itself rewritten back
// toward A) that would otherwise recurse forever; it should never surface
// from bookkeeping produced by RecordRewrites.
var errCycleDuringSubstitution = errors.New("rewrite: cycle detected while substituting rewritten/abandoned parents")
