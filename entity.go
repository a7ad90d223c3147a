package colony

import "fmt"

// Entity is a stable, generational reference to a live or recycled entity.
// It packs as one 64-bit word (version high, index low); the zero value,
// Invalid, is never handed out by an EntityManager (spec.md section 3).
//
// Unlike the teacher's Entity, which is a heavyweight interface carrying
// parent/child relationships and direct component mutation methods,
// colony's Entity is a plain value handle: structural mutation goes
// through World/ComponentManager methods that take an Entity parameter,
// matching the World API in spec.md section 6 (see DESIGN.md's Open
// Question decisions for why the teacher's parent/child tracking was
// dropped rather than adapted).
type Entity struct {
	index   uint32
	version uint32
}

// Invalid is the zero Entity; Valid() is always false for it.
var Invalid = Entity{}

// Index returns the entity's stable process-wide index.
func (e Entity) Index() uint32 { return e.index }

// Version returns the generation captured when this handle was obtained.
// A live entity's current version may differ from a stale handle's.
func (e Entity) Version() uint32 { return e.version }

// Valid reports whether the handle is non-zero. It does not, by itself,
// mean the entity is still alive in a World — use World.IsEntityValid for
// that; Valid only rules out the zero handle.
func (e Entity) Valid() bool { return e.index != 0 }

// Pack encodes the handle as one 64-bit word, version in the high 32
// bits, index in the low 32 bits (spec.md section 3).
func (e Entity) Pack() uint64 {
	return uint64(e.version)<<32 | uint64(e.index)
}

// Unpack decodes a 64-bit word produced by Pack back into an Entity.
func Unpack(packed uint64) Entity {
	return Entity{index: uint32(packed), version: uint32(packed >> 32)}
}

func (e Entity) String() string {
	return fmt.Sprintf("Entity{index:%d version:%d}", e.index, e.version)
}
