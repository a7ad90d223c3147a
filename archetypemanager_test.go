package colony

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type amPosition struct{ X, Y float64 }
type amVelocity struct{ X, Y float64 }

func TestArchetypeManagerInternsBySignature(t *testing.T) {
	m := newArchetypeManager()
	posComp := FactoryNewComponent[amPosition]()
	velComp := FactoryNewComponent[amVelocity]()

	sig, err := NewSignature(posComp, velComp)
	require.NoError(t, err)

	a1, err := m.getOrCreate(sig, []Component{posComp, velComp})
	require.NoError(t, err)
	a2, err := m.getOrCreate(sig, []Component{velComp, posComp})
	require.NoError(t, err, "reordered components should still intern to the same archetype")

	require.Equal(t, a1.id, a2.id, "same signature should produce the same archetype")
}

func TestArchetypeManagerEmptyArchetypeAlwaysExists(t *testing.T) {
	m := newArchetypeManager()
	empty := m.emptyArchetype()
	require.NotNil(t, empty)
	require.Equal(t, 0, empty.Signature().Count())
}

func TestArchetypeManagerQueryBySuperset(t *testing.T) {
	m := newArchetypeManager()
	posComp := FactoryNewComponent[amPosition]()
	velComp := FactoryNewComponent[amVelocity]()

	posSig, err := NewSignature(posComp)
	require.NoError(t, err)
	posVelSig, err := NewSignature(posComp, velComp)
	require.NoError(t, err)

	_, err = m.getOrCreate(posSig, []Component{posComp})
	require.NoError(t, err)
	_, err = m.getOrCreate(posVelSig, []Component{posComp, velComp})
	require.NoError(t, err)

	matches := m.query(posSig)
	require.Len(t, matches, 2, "Position and Position+Velocity both match a Position-only query")

	matches = m.query(posVelSig)
	require.Len(t, matches, 1, "only Position+Velocity matches a Position+Velocity query")

	all := m.query(Signature{})
	require.Len(t, all, len(m.all()), "querying the zero signature should return every archetype")
}

func TestArchetypeManagerArchetypeForTable(t *testing.T) {
	m := newArchetypeManager()
	posComp := FactoryNewComponent[amPosition]()
	sig, err := NewSignature(posComp)
	require.NoError(t, err)

	arch, err := m.getOrCreate(sig, []Component{posComp})
	require.NoError(t, err)

	resolved, ok := m.archetypeForTable(arch.Table())
	require.True(t, ok, "archetypeForTable should resolve a table just created")
	require.Equal(t, arch.id, resolved.id)
}
