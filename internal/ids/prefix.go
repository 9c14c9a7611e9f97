// Package ids implements the shortest-unique-prefix index (spec §4.A): a
// sorted sequence of (key, value) pairs, duplicate keys permitted, queried
// by hex prefix.
package ids

import (
	"bytes"
	"encoding/hex"
	"sort"
)

// Entry is one (key, value) pair held by an Index.
type Entry[V any] struct {
	Key   []byte
	Value V
}

// Index is a sorted (key, value) table supporting prefix resolution and
// shortest-unique-prefix computation (spec §4.A).
type Index[V any] struct {
	entries []Entry[V] // sorted by Key, ties broken by insertion order (stable sort)
}

// NewIndex builds an Index from an unsorted slice of entries.
func NewIndex[V any](entries []Entry[V]) *Index[V] {
	sorted := make([]Entry[V], len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].Key, sorted[j].Key) < 0
	})
	return &Index[V]{entries: sorted}
}

// Len returns the number of entries (counting duplicate keys separately).
func (ix *Index[V]) Len() int { return len(ix.entries) }

// Prefix is a (byte-string, odd-or-even bit-length) pair: a hex-digit
// count, not necessarily a whole number of bytes.
type Prefix struct {
	bytes     []byte
	hasNibble bool
	nibble    byte // high nibble value, 0-15; valid iff hasNibble
}

// NewPrefixFromHex parses a hex string (odd or even length) into a Prefix.
func NewPrefixFromHex(s string) (Prefix, bool) {
	if len(s)%2 == 1 {
		full := s[:len(s)-1]
		b, err := hex.DecodeString(full)
		if err != nil {
			return Prefix{}, false
		}
		n, err := hex.DecodeString(s[len(s)-1:] + "0")
		if err != nil {
			return Prefix{}, false
		}
		return Prefix{bytes: b, hasNibble: true, nibble: n[0] >> 4}, true
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return Prefix{}, false
	}
	return Prefix{bytes: b}, true
}

// HexLen returns the number of hex digits this prefix spans.
func (p Prefix) HexLen() int {
	n := len(p.bytes) * 2
	if p.hasNibble {
		n++
	}
	return n
}

// Matches reports whether key begins with this prefix.
func (p Prefix) Matches(key []byte) bool {
	if len(key) < len(p.bytes) {
		return false
	}
	if !bytes.Equal(key[:len(p.bytes)], p.bytes) {
		return false
	}
	if p.hasNibble {
		if len(key) <= len(p.bytes) {
			return false
		}
		return key[len(p.bytes)]>>4 == p.nibble
	}
	return true
}

// ResolveKind classifies the result of resolving a prefix.
type ResolveKind int

const (
	NoMatch ResolveKind = iota
	SingleMatch
	AmbiguousMatch
)

// Resolution is the result of resolving a Prefix against an Index.
type Resolution[V any] struct {
	Kind   ResolveKind
	Values []V // populated only for SingleMatch: every value sharing the unique matched key
}

// minPrefixBytes is the number of whole bytes the prefix definitely covers,
// used as the binary-search floor: any matching key must share at least
// this many leading bytes.
func (p Prefix) minPrefixBytes() []byte { return p.bytes }

// lowerBound returns the index of the first entry whose key is >= b.
func (ix *Index[V]) lowerBound(b []byte) int {
	return sort.Search(len(ix.entries), func(i int) bool {
		return bytes.Compare(ix.entries[i].Key, b) >= 0
	})
}

// ResolvePrefix implements §4.A resolve_prefix.
func (ix *Index[V]) ResolvePrefix(p Prefix) Resolution[V] {
	start := ix.lowerBound(p.minPrefixBytes())
	var matchedKey []byte
	var values []V
	ambiguous := false
	for i := start; i < len(ix.entries); i++ {
		e := ix.entries[i]
		if !p.Matches(e.Key) {
			// Once keys sort past the prefix range we can stop; bytes.Compare
			// on the covered-byte prefix is monotonic so any subsequent key
			// either still matches or sorts strictly after all matches.
			if len(e.Key) >= len(p.bytes) && bytes.Compare(e.Key[:len(p.bytes)], p.bytes) > 0 {
				break
			}
			continue
		}
		if matchedKey == nil {
			matchedKey = e.Key
			values = append(values, e.Value)
		} else if bytes.Equal(matchedKey, e.Key) {
			values = append(values, e.Value)
		} else {
			ambiguous = true
		}
	}
	if ambiguous {
		return Resolution[V]{Kind: AmbiguousMatch}
	}
	if matchedKey == nil {
		return Resolution[V]{Kind: NoMatch}
	}
	return Resolution[V]{Kind: SingleMatch, Values: values}
}

// commonHexLen returns the number of leading hex digits shared by a and b.
func commonHexLen(a, b []byte) int {
	ah, bh := hex.EncodeToString(a), hex.EncodeToString(b)
	n := 0
	for n < len(ah) && n < len(bh) && ah[n] == bh[n] {
		n++
	}
	return n
}

// ShortestUniquePrefixLen implements §4.A / §8 "Prefix correctness": the
// smallest hex-digit count n such that no neighboring key shares the first
// n digits of key. Works even when key is not itself present in the index.
func (ix *Index[V]) ShortestUniquePrefixLen(key []byte) int {
	if len(ix.entries) == 0 {
		return 0
	}
	pos := ix.lowerBound(key)

	// Skip past any entries equal to key itself in both directions: an
	// identical neighbor (key's own entry, or a duplicate of it) gives no
	// extra discriminating power, so the real comparison is against the
	// nearest *distinct* key on each side.
	left := pos - 1
	for left >= 0 && bytes.Equal(ix.entries[left].Key, key) {
		left--
	}
	right := pos
	for right < len(ix.entries) && bytes.Equal(ix.entries[right].Key, key) {
		right++
	}

	leftLen, rightLen := 0, 0
	if left >= 0 {
		leftLen = commonHexLen(key, ix.entries[left].Key)
	}
	if right < len(ix.entries) {
		rightLen = commonHexLen(key, ix.entries[right].Key)
	}
	n := leftLen
	if rightLen > n {
		n = rightLen
	}
	maxLen := len(key) * 2
	if n >= maxLen {
		return maxLen + 1
	}
	return n + 1
}
