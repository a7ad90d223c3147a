package colony

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type sigA struct{ V int }
type sigB struct{ V int }
type sigC struct{ V int }

func TestSignatureAddContainsRemove(t *testing.T) {
	aComp := FactoryNewComponent[sigA]()
	bComp := FactoryNewComponent[sigB]()

	sig, err := NewSignature(aComp)
	require.NoError(t, err)
	aID := componentIDOf(aComp)
	bID := componentIDOf(bComp)

	require.True(t, sig.Contains(aID), "signature should contain its own component")
	require.False(t, sig.Contains(bID), "signature should not contain an unrelated component")
	require.Equal(t, 1, sig.Count())

	sig2, err := sig.Add(bID)
	require.NoError(t, err)
	require.Equal(t, 2, sig2.Count())
	require.True(t, sig2.ContainsAll(sig), "sig2 should be a superset of sig")

	// Adding an id already present is a no-op.
	sig3, err := sig2.Add(aID)
	require.NoError(t, err)
	require.Equal(t, 2, sig3.Count(), "re-adding an existing id should not change count")

	sig4 := sig2.Remove(aID)
	require.Equal(t, 1, sig4.Count())
	require.False(t, sig4.Contains(aID), "removed id should no longer be contained")

	// Removing an absent id is a no-op, never going negative.
	sig5 := sig4.Remove(aID)
	require.Equal(t, sig4.Count(), sig5.Count(), "removing an absent id should not change count")
}

func TestSignatureContainsAnyNone(t *testing.T) {
	aComp := FactoryNewComponent[sigA]()
	bComp := FactoryNewComponent[sigB]()
	cComp := FactoryNewComponent[sigC]()

	ab, err := NewSignature(aComp, bComp)
	require.NoError(t, err)
	bc, err := NewSignature(bComp, cComp)
	require.NoError(t, err)
	onlyC, err := NewSignature(cComp)
	require.NoError(t, err)

	require.True(t, ab.ContainsAny(bc), "ab and bc share b")
	require.False(t, ab.ContainsAny(onlyC), "ab and onlyC share nothing")
	require.True(t, ab.ContainsNone(onlyC), "ab and onlyC share nothing")
	require.False(t, ab.ContainsNone(bc), "ab and bc share b")
}

func TestSignatureGetIdsAscending(t *testing.T) {
	aComp := FactoryNewComponent[sigA]()
	bComp := FactoryNewComponent[sigB]()
	cComp := FactoryNewComponent[sigC]()

	sig, err := NewSignature(cComp, aComp, bComp)
	require.NoError(t, err)

	ids := sig.GetIds()
	require.Len(t, ids, 3)
	for i := 1; i < len(ids); i++ {
		require.Less(t, ids[i-1], ids[i], "ids should be strictly ascending")
	}
}

func TestSignatureOverflow(t *testing.T) {
	_, err := Signature{}.Add(ComponentID(signatureCapacity))
	require.Error(t, err)
	require.IsType(t, SignatureOverflowError{}, err)
}

func TestSignatureEqualityAsMapKey(t *testing.T) {
	aComp := FactoryNewComponent[sigA]()
	bComp := FactoryNewComponent[sigB]()

	sig1, err := NewSignature(aComp, bComp)
	require.NoError(t, err)
	sig2, err := NewSignature(bComp, aComp)
	require.NoError(t, err)

	require.True(t, sig1.Equal(sig2), "signatures built in different orders should be equal")

	m := map[Signature]int{sig1: 1}
	require.Equal(t, 1, m[sig2], "equal signatures should collide to the same map entry")
}
