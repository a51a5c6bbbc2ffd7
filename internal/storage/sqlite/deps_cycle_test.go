package sqlite

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wk-dev/wk/internal/types"
)

func blocksDep(from, to string) types.Dependency {
	return types.Dependency{FromID: from, ToID: to, Relation: types.RelationBlocks}
}

func TestWouldCycleDirectCycle(t *testing.T) {
	deps := []types.Dependency{blocksDep("a", "b")}
	assert.True(t, WouldCycle(deps, "b", "a"))
}

func TestWouldCycleTransitiveCycle(t *testing.T) {
	deps := []types.Dependency{blocksDep("a", "b"), blocksDep("b", "c")}
	assert.True(t, WouldCycle(deps, "c", "a"))
}

func TestWouldCycleNoCycle(t *testing.T) {
	deps := []types.Dependency{blocksDep("a", "b"), blocksDep("b", "c")}
	assert.False(t, WouldCycle(deps, "a", "c"))
}

func TestWouldCycleIgnoresNonBlocksRelations(t *testing.T) {
	deps := []types.Dependency{{FromID: "a", ToID: "b", Relation: types.RelationTracks}}
	assert.False(t, WouldCycle(deps, "b", "a"))
}

func TestWouldCycleDisjointGraph(t *testing.T) {
	deps := []types.Dependency{blocksDep("x", "y")}
	assert.False(t, WouldCycle(deps, "a", "b"))
}
