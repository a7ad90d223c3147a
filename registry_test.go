package colony

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type regWidget struct{ N int }
type regGadget struct{ S string }

func TestRegistryInternsTypeOnce(t *testing.T) {
	id1, el1 := registryIDOf[regWidget]()
	id2, el2 := registryIDOf[regWidget]()

	require.Equal(t, id1, id2, "registryIDOf should return the same id for the same type")
	require.Equal(t, el1.ID(), el2.ID(), "registryIDOf should return the same element identity for the same type")
}

func TestRegistryDistinctTypesGetDistinctIDs(t *testing.T) {
	widgetID, _ := registryIDOf[regWidget]()
	gadgetID, _ := registryIDOf[regGadget]()

	require.NotEqual(t, widgetID, gadgetID, "distinct types should get distinct ComponentIDs")
}

func TestTypeOfRoundTrips(t *testing.T) {
	id, _ := registryIDOf[regGadget]()

	typ, err := TypeOf(id)
	require.NoError(t, err)
	require.Equal(t, "regGadget", typ.Name())
}

func TestTypeOfUnknownID(t *testing.T) {
	_, err := TypeOf(ComponentID(signatureCapacity * 2))
	require.Error(t, err)
	require.IsType(t, UnknownComponentIDError{}, err)
}

func TestHighestComponentIDMonotonic(t *testing.T) {
	before := HighestComponentID()
	registryIDOf[struct{ uniqueMarkerA int }]()
	after := HighestComponentID()

	require.GreaterOrEqual(t, after, before)
}

type regLiveMarker struct{ N int }

// TestResetRegistryForTestsPanicsWhileWorldHasEntities: the registry reset
// guard refuses to run while a tracked World still has live entities, and
// allows it again once that World's population returns to zero.
func TestResetRegistryForTestsPanicsWhileWorldHasEntities(t *testing.T) {
	// The guard checks every tracked World, and earlier tests in the package
	// leave populated Worlds behind; track only this test's World while it
	// runs, then put the earlier ones back.
	liveWorldsMu.Lock()
	savedWorlds := liveWorlds
	liveWorlds = nil
	liveWorldsMu.Unlock()
	defer func() {
		liveWorldsMu.Lock()
		liveWorlds = append(savedWorlds, liveWorlds...)
		liveWorldsMu.Unlock()
	}()

	w := NewWorld(ChunkDimensions{X: 16, Y: 16, Z: 16}, 3)
	comp := FactoryNewComponent[regLiveMarker]()
	sig, err := NewSignature(comp)
	require.NoError(t, err)

	e, err := w.CreateEntityWithSignature(sig)
	require.NoError(t, err)

	require.Panics(t, func() { ResetRegistryForTests() }, "reset must refuse to run while a World still holds entities")

	w.EnqueueDestroyEntity(e)
	w.Tick(0.016)

	require.NotPanics(t, func() { ResetRegistryForTests() }, "reset should proceed once no tracked World has entities")
}

func TestComponentsForSignatureRoundTrips(t *testing.T) {
	widgetComp := FactoryNewComponent[regWidget]()
	gadgetComp := FactoryNewComponent[regGadget]()

	sig, err := NewSignature(widgetComp, gadgetComp)
	require.NoError(t, err)

	comps, err := componentsForSignature(sig)
	require.NoError(t, err)
	require.Len(t, comps, 2)

	roundTripSig, err := NewSignature(comps...)
	require.NoError(t, err)
	require.True(t, roundTripSig.Equal(sig), "round-tripped signature should equal the original")
}
