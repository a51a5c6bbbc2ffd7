package lifecycle

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wk-dev/wk/internal/types"
	"github.com/wk-dev/wk/internal/werr"
)

func TestNormalizeDepBlocks(t *testing.T) {
	dep, err := normalizeDep("a", "b", DepBlocks)
	require.NoError(t, err)
	assert.Equal(t, types.Dependency{FromID: "a", ToID: "b", Relation: types.RelationBlocks}, dep)
}

func TestNormalizeDepBlockedBySwapsFromTo(t *testing.T) {
	dep, err := normalizeDep("a", "b", DepBlockedBy)
	require.NoError(t, err)
	assert.Equal(t, types.Dependency{FromID: "b", ToID: "a", Relation: types.RelationBlocks}, dep)
}

func TestNormalizeDepTracks(t *testing.T) {
	dep, err := normalizeDep("a", "b", DepTracks)
	require.NoError(t, err)
	assert.Equal(t, types.Dependency{FromID: "a", ToID: "b", Relation: types.RelationTracks}, dep)
}

func TestNormalizeDepTrackedBySwapsFromTo(t *testing.T) {
	dep, err := normalizeDep("a", "b", DepTrackedBy)
	require.NoError(t, err)
	assert.Equal(t, types.Dependency{FromID: "b", ToID: "a", Relation: types.RelationTracks}, dep)
}

func TestNormalizeDepUnknownKind(t *testing.T) {
	_, err := normalizeDep("a", "b", DepKind("bogus"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, werr.InvalidInput))
}
