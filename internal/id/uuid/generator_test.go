// Package uuid includes tests for the UUID generator wrapper.
package uuid

import (
	"testing"

	goUUID "github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// TestGeneratorNewID ensures generated IDs are unique and valid UUIDs.
func TestGeneratorNewID(t *testing.T) {
	t.Parallel()

	gen := New()
	id1, err := gen.NewID()
	require.NoError(t, err)
	id2, err := gen.NewID()
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)

	_, err = goUUID.Parse(id1)
	require.NoError(t, err)
	_, err = goUUID.Parse(id2)
	require.NoError(t, err)
}

// TestGeneratorNewRawID ensures raw UUIDs are version 7.
func TestGeneratorNewRawID(t *testing.T) {
	t.Parallel()

	gen := New()
	id, err := gen.NewRawID()
	require.NoError(t, err)
	require.Equal(t, goUUID.Version(7), id.Version())
}
