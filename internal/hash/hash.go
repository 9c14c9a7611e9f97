// Package hash content-addresses the operation log: operation and view ids
// are the hash of their serialized contents (spec §4.E: "The operation id is
// the content hash of (parents, view_id, metadata)").
//
// It reuses the teacher's own collision-detecting SHA-1
// (github.com/pjbgf/sha1cd, the same hash go-git uses for commit ids) rather
// than pulling in a second hash algorithm for a second id space.
package hash

import (
	"encoding/binary"
	"sort"

	"github.com/pjbgf/sha1cd"
)

// Size is the digest length in bytes.
const Size = sha1cd.Size

// Sum returns the collision-detecting SHA-1 digest of data, written as a
// sequence of length-prefixed fields so that e.g. ("ab", "c") and ("a",
// "bc") never collide.
func Sum(fields ...[]byte) []byte {
	h := sha1cd.New()
	for _, f := range fields {
		var lenBuf [8]byte
		binary.BigEndian.PutUint64(lenBuf[:], uint64(len(f)))
		h.Write(lenBuf[:])
		h.Write(f)
	}
	sum := h.Sum(nil)
	return sum
}

// SumSorted hashes a set of byte strings order-independently, by sorting
// them first. Used for hashing sets (e.g. parent id sets that must hash the
// same regardless of iteration order) where order is not semantically
// meaningful but content is.
func SumSorted(fields [][]byte) []byte {
	sorted := make([][]byte, len(fields))
	copy(sorted, fields)
	sort.Slice(sorted, func(i, j int) bool {
		return string(sorted[i]) < string(sorted[j])
	})
	return Sum(sorted...)
}
