package model

import "time"

// Signature identifies an author or committer (spec §3).
type Signature struct {
	Name      string
	Email     string
	Timestamp time.Time
	TZOffset  time.Duration // offset east of UTC, preserved verbatim
}

// Commit is immutable once written (spec §3).
type Commit struct {
	Parents      []CommitID // ordered; conventionally >=1 except the synthetic root
	RootTree     TreeID
	Author       Signature
	Committer    Signature
	Description  string
	ChangeID     ChangeID
	IsOpen       bool // optional; tracked only when the backend supports it
	Predecessors []CommitID // ordered; for rewrite history
}

// Tree is a flat directory listing consumed by the conflict/rebase tree
// merge; path contents are opaque to the core beyond equality and the
// 3-way merge contract of §4.H.
type Tree struct {
	Entries map[string]TreeEntry // path -> entry, sorted by the store on write
}

// TreeEntryKind distinguishes a tree entry's payload.
type TreeEntryKind int

const (
	EntryFile TreeEntryKind = iota
	EntryTree
	EntryConflict
)

// TreeEntry is one path's content within a Tree.
type TreeEntry struct {
	Kind       TreeEntryKind
	FileID     FileID
	TreeID     TreeID
	ConflictID ConflictID
	Executable bool
}

// Conflict is an unresolved multi-way file conflict (spec §6): a set of
// removed "base" sides and a set of added sides. |adds|=1, |removes|=0 is
// the resolved (trivial) case and is represented directly as a file entry,
// never as a Conflict.
type Conflict struct {
	Removes []FileID
	Adds    []FileID
}

// IsResolved reports whether c trivially resolves to its single add.
func (c Conflict) IsResolved() bool {
	return len(c.Adds) == 1 && len(c.Removes) == 0
}
