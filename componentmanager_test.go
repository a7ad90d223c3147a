package colony

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type cmPosition struct{ X, Y float64 }
type cmVelocity struct{ X, Y float64 }

func TestAddComponentMovesEntityToNewArchetype(t *testing.T) {
	w := NewWorld(ChunkDimensions{X: 16, Y: 16, Z: 16}, 3)
	posComp := FactoryNewComponent[cmPosition]()
	velComp := FactoryNewComponent[cmVelocity]()

	posSig, err := NewSignature(posComp)
	require.NoError(t, err)
	e, err := w.CreateEntityWithSignature(posSig)
	require.NoError(t, err)

	archBefore, _, ok := w.TryGetEntityLocation(e)
	require.True(t, ok, "entity should be tracked immediately after creation")
	require.Equal(t, 1, archBefore.Signature().Count())

	require.NoError(t, w.AddComponentWithValue(e, velComp.Component, cmVelocity{X: 1, Y: 2}))

	archAfter, slot, ok := w.TryGetEntityLocation(e)
	require.True(t, ok, "entity should still be tracked after AddComponentWithValue")
	require.Equal(t, 2, archAfter.Signature().Count())
	require.NotEqual(t, archBefore.id, archAfter.id, "adding a new component should move the entity")

	vel := velComp.Get(slot, archAfter.table)
	require.Equal(t, cmVelocity{X: 1, Y: 2}, *vel, "velocity value should survive the archetype move")
}

func TestAddComponentAlreadyPresentUpdatesValue(t *testing.T) {
	w := NewWorld(ChunkDimensions{X: 16, Y: 16, Z: 16}, 3)
	posComp := FactoryNewComponent[cmPosition]()

	posSig, err := NewSignature(posComp)
	require.NoError(t, err)
	e, err := w.CreateEntityWithSignature(posSig)
	require.NoError(t, err)

	require.NoError(t, w.AddComponentWithValue(e, posComp.Component, cmPosition{X: 5, Y: 6}))

	pos, err := posComp.GetFromEntity(w, e)
	require.NoError(t, err)
	require.Equal(t, cmPosition{X: 5, Y: 6}, *pos, "value should be updated in place")
}

func TestRemoveComponentMovesEntityToSmallerArchetype(t *testing.T) {
	w := NewWorld(ChunkDimensions{X: 16, Y: 16, Z: 16}, 3)
	posComp := FactoryNewComponent[cmPosition]()
	velComp := FactoryNewComponent[cmVelocity]()

	sig, err := NewSignature(posComp, velComp)
	require.NoError(t, err)
	e, err := w.CreateEntityWithSignature(sig)
	require.NoError(t, err)

	require.NoError(t, w.RemoveComponent(e, componentIDOf(velComp)))

	arch, _, ok := w.TryGetEntityLocation(e)
	require.True(t, ok, "entity should still be tracked after RemoveComponent")
	require.Equal(t, 1, arch.Signature().Count())
	require.False(t, arch.Signature().Contains(componentIDOf(velComp)), "removed component should no longer be present")
}

func TestComponentOpsOnStaleHandleFail(t *testing.T) {
	w := NewWorld(ChunkDimensions{X: 16, Y: 16, Z: 16}, 3)
	posComp := FactoryNewComponent[cmPosition]()
	velComp := FactoryNewComponent[cmVelocity]()

	e, err := w.CreateEntity()
	require.NoError(t, err)
	w.EnqueueDestroyEntity(e)
	w.Tick(0.016)

	err = w.AddComponentWithValue(e, posComp.Component, cmPosition{})
	require.Error(t, err, "adding a component to a destroyed entity should fail")
	require.IsType(t, StaleHandleError{}, err)

	err = w.RemoveComponent(e, componentIDOf(velComp))
	require.Error(t, err, "removing a component from a destroyed entity should fail")
	require.IsType(t, StaleHandleError{}, err)
}
