// Package model defines the data types shared by every layer of the core:
// the three id spaces, commits, views, ref targets and operations (spec §3).
package model

import (
	"bytes"
	"encoding/hex"
)

// CommitID identifies a committed object. It is an opaque byte string, sized
// by whichever hash the backend uses (20 bytes for SHA-1, 32 for SHA-256).
type CommitID []byte

// ChangeID identifies a logical change. Multiple CommitIDs may share a
// ChangeID iff one was rewritten from the other.
type ChangeID []byte

// OperationID identifies an entry in the operation log.
type OperationID []byte

// ViewID identifies a persisted View blob in the OpStore.
type ViewID []byte

// TreeID identifies a root-tree object in the Backend.
type TreeID []byte

// FileID identifies file content in the Backend.
type FileID []byte

// ConflictID identifies a persisted Conflict object in the Backend.
type ConflictID []byte

// WorkspaceID names one working copy within a View.
type WorkspaceID string

// DefaultWorkspaceID is the workspace every repo has from creation.
const DefaultWorkspaceID WorkspaceID = "default"

func (id CommitID) Hex() string     { return hex.EncodeToString(id) }
func (id ChangeID) Hex() string     { return hex.EncodeToString(id) }
func (id OperationID) Hex() string  { return hex.EncodeToString(id) }
func (id ViewID) Hex() string       { return hex.EncodeToString(id) }
func (id TreeID) Hex() string       { return hex.EncodeToString(id) }
func (id FileID) Hex() string       { return hex.EncodeToString(id) }
func (id ConflictID) Hex() string   { return hex.EncodeToString(id) }

func (id CommitID) String() string    { return id.Hex() }
func (id ChangeID) String() string    { return id.Hex() }
func (id OperationID) String() string { return id.Hex() }

func (id CommitID) Equal(other CommitID) bool       { return bytes.Equal(id, other) }
func (id ChangeID) Equal(other ChangeID) bool        { return bytes.Equal(id, other) }
func (id OperationID) Equal(other OperationID) bool   { return bytes.Equal(id, other) }

// IsRoot reports whether id is the synthetic all-zero root commit id for the
// given width (root commit ids are all-zero bytes, §3).
func (id CommitID) IsRoot() bool {
	for _, b := range id {
		if b != 0 {
			return false
		}
	}
	return len(id) > 0
}

// RootCommitID returns the synthetic root commit id for a given hash width
// (20 for SHA-1-sized backends, 32 for SHA-256-sized ones).
func RootCommitID(width int) CommitID {
	return make(CommitID, width)
}

// CommitIDFromHex parses a hex string into a CommitID.
func CommitIDFromHex(s string) (CommitID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return CommitID(b), nil
}

// ChangeIDFromHex parses a hex string into a ChangeID.
func ChangeIDFromHex(s string) (ChangeID, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, err
	}
	return ChangeID(b), nil
}

// SortCommitIDs returns a new, lexicographically sorted copy of ids.
func SortCommitIDs(ids []CommitID) []CommitID {
	out := make([]CommitID, len(ids))
	copy(out, ids)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && bytes.Compare(out[j-1], out[j]) > 0; j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// ContainsCommitID reports whether id is present in ids.
func ContainsCommitID(ids []CommitID, id CommitID) bool {
	for _, x := range ids {
		if x.Equal(id) {
			return true
		}
	}
	return false
}

// DedupCommitIDs removes duplicate ids, preserving first-occurrence order.
func DedupCommitIDs(ids []CommitID) []CommitID {
	out := make([]CommitID, 0, len(ids))
	for _, id := range ids {
		if !ContainsCommitID(out, id) {
			out = append(out, id)
		}
	}
	return out
}
