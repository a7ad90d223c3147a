package colony

import (
	"sort"

	"github.com/TheBitDrifter/mask"
)

// Signature is the immutable bitset identity of an archetype: the set of
// ComponentIDs it carries. The teacher interns archetypes by an analogous
// bitset (storage.go's idsGroupedByMask map[mask.Mask]archetypeID); colony
// widens that idea to mask.Mask256, the same 256-bit type the teacher
// already reaches for wherever a larger address space is needed
// (storage.go's storage.locks), so a population with a few hundred
// distinct component types still fits one Signature. mask.Mask256 is a
// fixed-width, comparable array type, so equality and hashing (for use as
// a map key) are already word-wise, and a Signature value is itself a
// legal map key.
type Signature struct {
	bits  mask.Mask256
	count int
}

// signatureCapacity is the number of distinct component ids a Signature
// can address. mask.Mask256 is fixed width; exceeding this capacity
// returns SignatureOverflowError rather than silently resizing, since no
// growable bitset exists anywhere in the retrieved dependency pack (see
// DESIGN.md).
const signatureCapacity = 256

// NewSignature builds a Signature from a set of components, in any order.
func NewSignature(components ...Component) (Signature, error) {
	var sig Signature
	for _, c := range components {
		var err error
		sig, err = sig.Add(componentIDOf(c))
		if err != nil {
			return Signature{}, err
		}
	}
	return sig, nil
}

// Add returns a new Signature with id set. A no-op (same receiver
// returned) if id is already present.
func (s Signature) Add(id ComponentID) (Signature, error) {
	if int(id) >= signatureCapacity {
		return Signature{}, SignatureOverflowError{ID: id, Capacity: signatureCapacity}
	}
	if s.Contains(id) {
		return s, nil
	}
	out := s
	out.bits.Mark(uint32(id))
	out.count = s.count + 1
	return out, nil
}

// Remove returns a new Signature with id cleared. Removing an absent id
// returns a signature equal to the receiver; count is never decremented
// below zero (spec.md section 4.2 edge case).
func (s Signature) Remove(id ComponentID) Signature {
	if !s.Contains(id) {
		return s
	}
	out := s
	out.bits.Unmark(uint32(id))
	out.count = s.count - 1
	return out
}

// Contains reports whether id is a member of the signature.
func (s Signature) Contains(id ComponentID) bool {
	if int(id) >= signatureCapacity {
		return false
	}
	var probe mask.Mask256
	probe.Mark(uint32(id))
	return s.bits.ContainsAll(probe)
}

// ContainsAll reports whether s is a superset of other (used by
// query_archetypes' "all_of" filter).
func (s Signature) ContainsAll(other Signature) bool {
	return s.bits.ContainsAll(other.bits)
}

// ContainsAny reports whether s and other share at least one component id.
func (s Signature) ContainsAny(other Signature) bool {
	return s.bits.ContainsAny(other.bits)
}

// ContainsNone reports whether s and other share no component ids.
func (s Signature) ContainsNone(other Signature) bool {
	return s.bits.ContainsNone(other.bits)
}

// Count returns the number of component ids in the signature.
func (s Signature) Count() int {
	return s.count
}

// GetIds returns the signature's component ids in ascending order,
// preserving the canonical column order invariant (spec.md I3).
func (s Signature) GetIds() []ComponentID {
	ids := make([]ComponentID, 0, s.count)
	for i := 0; i < signatureCapacity; i++ {
		if s.Contains(ComponentID(i)) {
			ids = append(ids, ComponentID(i))
		}
	}
	return ids
}

// Equal reports bit-for-bit equality. Provided for readability; Signature
// values are already directly comparable with ==.
func (s Signature) Equal(other Signature) bool {
	return s.bits == other.bits
}

// sortComponents orders components ascending by ComponentID, establishing
// the canonical column order (spec.md I3) before a table is built for
// them.
func sortComponents(components []Component) []Component {
	out := make([]Component, len(components))
	copy(out, components)
	sort.Slice(out, func(i, j int) bool {
		return componentIDOf(out[i]) < componentIDOf(out[j])
	})
	return out
}
