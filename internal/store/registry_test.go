package store

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryBuildUsesRegisteredFactory(t *testing.T) {
	r := NewRegistry[string]()
	r.Register("memory", func(path string) (string, error) {
		return "built:" + path, nil
	})

	got, err := r.Build("memory", "/tmp/repo")
	require.NoError(t, err)
	assert.Equal(t, "built:/tmp/repo", got)
}

func TestRegistryBuildUnknownTypeErrors(t *testing.T) {
	r := NewRegistry[string]()
	_, err := r.Build("bogus", "/tmp/repo")
	require.Error(t, err)
	var unsupported *StoreLoadUnsupportedType
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "bogus", unsupported.Type)
}

func TestRegistryRegisterOverwritesExistingName(t *testing.T) {
	r := NewRegistry[int]()
	r.Register("a", func(string) (int, error) { return 1, nil })
	r.Register("a", func(string) (int, error) { return 2, nil })

	got, err := r.Build("a", "")
	require.NoError(t, err)
	assert.Equal(t, 2, got)
}

func TestRegistryHasReflectsRegistration(t *testing.T) {
	r := NewRegistry[int]()
	assert.False(t, r.Has("x"))
	r.Register("x", func(string) (int, error) { return 0, nil })
	assert.True(t, r.Has("x"))
}

func TestRegistryEmptyHasNoDefaultFactories(t *testing.T) {
	r := NewRegistry[int]()
	assert.False(t, r.Has("memory"))
	assert.False(t, r.Has("git"))
}
