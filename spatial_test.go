package colony

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWorldToChunkFloorDivision(t *testing.T) {
	s := NewSpatialIndex(ChunkDimensions{X: 64, Y: 32, Z: 64})

	cases := []struct {
		x, y, z  float64
		expected ChunkLocation
	}{
		{0, 0, 0, ChunkLocation{0, 0, 0}},
		{63, 31, 63, ChunkLocation{0, 0, 0}},
		{64, 32, 64, ChunkLocation{1, 1, 1}},
		{-1, -1, -1, ChunkLocation{-1, -1, -1}},
		{-64, -32, -64, ChunkLocation{-1, -1, -1}},
		{-65, -33, -65, ChunkLocation{-2, -2, -2}},
	}
	for _, c := range cases {
		got := s.WorldToChunk(c.x, c.y, c.z)
		require.Equal(t, c.expected, got)
	}
}

func TestAssignmentDrainProducesChunkUpdate(t *testing.T) {
	w := NewWorld(ChunkDimensions{X: 64, Y: 32, Z: 64}, 3)
	e, err := w.CreateEntity()
	require.NoError(t, err)

	origin := ChunkLocation{X: 0, Y: 0, Z: 0}
	dest := ChunkLocation{X: 1, Y: 0, Z: 0}

	w.Spatial.EnqueueAssignment(e, origin)
	updates := w.Spatial.Drain(w.entities)
	require.Len(t, updates, 1, "expected 1 update for the initial placement")
	require.False(t, updates[0].Had, "the entity's first assignment should report Had=false")
	require.Equal(t, origin, updates[0].To)

	w.Spatial.EnqueueAssignment(e, dest)
	updates = w.Spatial.Drain(w.entities)
	require.Len(t, updates, 1, "expected 1 update for the cross-chunk move")
	u := updates[0]
	require.True(t, u.Had)
	require.Equal(t, origin, u.From)
	require.Equal(t, dest, u.To)

	require.Contains(t, w.Spatial.ChunkEntities(dest), e.Index(), "entity should be tracked in the destination chunk")
	require.NotContains(t, w.Spatial.ChunkEntities(origin), e.Index(), "entity should no longer be tracked in the origin chunk")

	// Re-enqueuing the same location the entity already occupies is a no-op.
	w.Spatial.EnqueueAssignment(e, dest)
	updates = w.Spatial.Drain(w.entities)
	require.Empty(t, updates, "a same-location re-assignment should produce no update")
}

func TestHandleDestroyRequestRemovesFromChunk(t *testing.T) {
	w := NewWorld(ChunkDimensions{X: 64, Y: 32, Z: 64}, 3)
	e, err := w.CreateEntity()
	require.NoError(t, err)
	loc := ChunkLocation{X: 2, Y: 0, Z: 0}
	w.Spatial.EnqueueAssignment(e, loc)
	w.Spatial.Drain(w.entities)

	require.Contains(t, w.Spatial.ChunkEntities(loc), e.Index())

	w.Spatial.HandleDestroyRequest(EntityBatch{e})

	require.NotContains(t, w.Spatial.ChunkEntities(loc), e.Index())
}

func TestEvictIdleRemovesAgedEmptyChunks(t *testing.T) {
	w := NewWorld(ChunkDimensions{X: 64, Y: 32, Z: 64}, 3)
	e, err := w.CreateEntity()
	require.NoError(t, err)
	loc := ChunkLocation{X: 9, Y: 0, Z: 0}
	w.Spatial.EnqueueAssignment(e, loc)
	w.Spatial.Drain(w.entities)
	w.Spatial.HandleDestroyRequest(EntityBatch{e}) // empties the chunk, leaving it idle

	require.Zero(t, w.Spatial.EvictIdle(), "no eviction should happen immediately after going idle")

	for i := 0; i < 301; i++ {
		w.Spatial.Drain(w.entities) // advances the frame counter with an empty queue
	}

	require.Equal(t, 1, w.Spatial.EvictIdle(), "the aged empty chunk should be evicted")
	require.Nil(t, w.Spatial.ChunkEntities(loc), "an evicted chunk should report no tracked entities")
}

func TestCrossChunkMoveBothDirectionsInOneDrain(t *testing.T) {
	w := NewWorld(ChunkDimensions{X: 64, Y: 32, Z: 64}, 3)
	e1, err := w.CreateEntity()
	require.NoError(t, err)
	e2, err := w.CreateEntity()
	require.NoError(t, err)

	chunkX := ChunkLocation{X: 5, Y: 0, Z: 0}
	chunkY := ChunkLocation{X: 6, Y: 0, Z: 0}

	w.Spatial.EnqueueAssignment(e1, chunkX)
	w.Spatial.EnqueueAssignment(e2, chunkY)
	w.Spatial.Drain(w.entities)

	// e1 moves X->Y while e2 moves Y->X in the same batch: the canonical
	// lock order must still leave both chunks in a consistent end state
	// regardless of which pointer pair is locked first.
	w.Spatial.EnqueueAssignment(e1, chunkY)
	w.Spatial.EnqueueAssignment(e2, chunkX)
	w.Spatial.Drain(w.entities)

	xEntities := w.Spatial.ChunkEntities(chunkX)
	yEntities := w.Spatial.ChunkEntities(chunkY)

	require.Contains(t, xEntities, e2.Index())
	require.NotContains(t, xEntities, e1.Index())
	require.Contains(t, yEntities, e1.Index())
	require.NotContains(t, yEntities, e2.Index())
}
