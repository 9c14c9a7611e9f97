package ids

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func hexEntry(hexKey string, value int) Entry[int] {
	p, ok := NewPrefixFromHex(hexKey)
	if !ok {
		panic("bad test hex: " + hexKey)
	}
	return Entry[int]{Key: p.bytes, Value: value}
}

func TestResolvePrefixSingleMatch(t *testing.T) {
	ix := NewIndex([]Entry[int]{
		hexEntry("aabbcc", 1),
		hexEntry("aabbdd", 2),
		hexEntry("ffffff", 3),
	})

	p, ok := NewPrefixFromHex("aabbcc")
	require.True(t, ok)
	res := ix.ResolvePrefix(p)
	assert.Equal(t, SingleMatch, res.Kind)
	assert.Equal(t, []int{1}, res.Values)
}

func TestResolvePrefixOddLengthNibbleMatch(t *testing.T) {
	ix := NewIndex([]Entry[int]{
		hexEntry("ab", 1),
		hexEntry("ac", 2),
	})

	p, ok := NewPrefixFromHex("a")
	require.True(t, ok)
	res := ix.ResolvePrefix(p)
	assert.Equal(t, AmbiguousMatch, res.Kind)
}

func TestResolvePrefixAmbiguous(t *testing.T) {
	ix := NewIndex([]Entry[int]{
		hexEntry("aabbcc", 1),
		hexEntry("aabbdd", 2),
	})
	p, ok := NewPrefixFromHex("aabb")
	require.True(t, ok)
	res := ix.ResolvePrefix(p)
	assert.Equal(t, AmbiguousMatch, res.Kind)
}

func TestResolvePrefixNoMatch(t *testing.T) {
	ix := NewIndex([]Entry[int]{hexEntry("aabbcc", 1)})
	p, ok := NewPrefixFromHex("ffff")
	require.True(t, ok)
	res := ix.ResolvePrefix(p)
	assert.Equal(t, NoMatch, res.Kind)
}

func TestResolvePrefixDuplicateKeysAreSingleMatchWithAllValues(t *testing.T) {
	ix := NewIndex([]Entry[int]{
		hexEntry("aabbcc", 1),
		hexEntry("aabbcc", 2),
	})
	p, ok := NewPrefixFromHex("aabbcc")
	require.True(t, ok)
	res := ix.ResolvePrefix(p)
	assert.Equal(t, SingleMatch, res.Kind)
	assert.ElementsMatch(t, []int{1, 2}, res.Values)
}

func TestShortestUniquePrefixLenDistinguishesNeighbors(t *testing.T) {
	ix := NewIndex([]Entry[int]{
		hexEntry("aabbcc", 1),
		hexEntry("aabbdd", 2),
		hexEntry("ffffff", 3),
	})

	p, _ := NewPrefixFromHex("aabbcc")
	n := ix.ShortestUniquePrefixLen(p.bytes)
	// "aabbcc" vs its nearest neighbor "aabbdd" share "aabb" (4 hex digits),
	// so 5 digits ("aabbc") are needed to distinguish it.
	assert.Equal(t, 5, n)
}

func TestShortestUniquePrefixLenForUniqueKeyIsOne(t *testing.T) {
	ix := NewIndex([]Entry[int]{
		hexEntry("aabbcc", 1),
		hexEntry("ffffff", 2),
	})
	p, _ := NewPrefixFromHex("aabbcc")
	n := ix.ShortestUniquePrefixLen(p.bytes)
	assert.Equal(t, 1, n)
}

func TestNewPrefixFromHexRejectsInvalidHex(t *testing.T) {
	_, ok := NewPrefixFromHex("zz")
	assert.False(t, ok)
}
