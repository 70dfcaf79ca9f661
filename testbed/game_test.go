package testbed

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/phusis/engine"
	"github.com/spaghettifunk/phusis/engine/renderer/metadata"
)

func newGame(t *testing.T, objects int) *TestGame {
	t.Helper()
	g := NewTestGame(&engine.ApplicationConfig{Name: "test", Width: 800, Height: 600, Objects: objects}, 42)
	require.NoError(t, g.FnInitialize())
	return g
}

func TestRenderExposesEveryCube(t *testing.T) {
	g := newGame(t, 9)

	bound := &metadata.FrameBoundData{}
	require.NoError(t, g.FnRender(bound, 0))
	require.Len(t, bound.Objects, 9)

	seen := make(map[interface{}]bool)
	for _, obj := range bound.Objects {
		assert.True(t, obj.Enabled)
		assert.Same(t, bound.Objects[0].Mesh, obj.Mesh)
		seen[obj.ID] = true
	}
	assert.Len(t, seen, 9, "ids are unique")
	assert.Equal(t, uint32(36), bound.Objects[0].Mesh.IndexCount())
}

func TestUpdateTogglesCubes(t *testing.T) {
	g := newGame(t, 4)
	require.NoError(t, g.FnUpdate(toggleEvery))

	disabled := 0
	for _, c := range g.state().cubes {
		if !c.object.Enabled {
			disabled++
		}
	}
	assert.Equal(t, 1, disabled)
}

func TestPopulationStaysInBounds(t *testing.T) {
	g := newGame(t, 20)
	s := g.state()

	for i := 0; i < 50; i++ {
		require.NoError(t, g.FnUpdate(respawnEvery))
		assert.GreaterOrEqual(t, len(s.cubes), 10)
		assert.LessOrEqual(t, len(s.cubes), 30)
	}
}

func TestUpdateSpinsCubes(t *testing.T) {
	g := newGame(t, 1)
	c := g.state().cubes[0]
	before := c.object.Rotation

	require.NoError(t, g.FnUpdate(100*time.Millisecond))
	assert.NotEqual(t, before, c.object.Rotation)
	assert.Greater(t, c.angle, float32(0))
}

func TestEmptyScene(t *testing.T) {
	g := newGame(t, 0)
	require.NoError(t, g.FnUpdate(respawnEvery))

	bound := &metadata.FrameBoundData{}
	require.NoError(t, g.FnRender(bound, 0))
	assert.Empty(t, bound.Objects)
}
