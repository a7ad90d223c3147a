package colony

import (
	"sync"

	"github.com/TheBitDrifter/table"
)

// globalSchema and globalEntryIndex are process-wide, mirroring the
// teacher's own package-level globalEntryIndex/globalEntities in
// storage.go. Registry identity (ComponentID) is already process-wide
// (registry.go), so sharing one schema and entry index across every
// World in the process keeps every archetype's table participating in a
// single consistent entry-id space, rather than inventing a second,
// World-scoped id space that would have to be kept in sync with the
// Signature bit space by hand.
var (
	globalSchema     = table.Factory.NewSchema()
	globalEntryIndex = table.Factory.NewEntryIndex()
)

// archetypeManager interns archetypes by signature and maintains the
// dense archetype-index lookup plus a per-component-id posting list for
// query_archetypes (spec.md section 4.4).
type archetypeManager struct {
	mu       sync.RWMutex
	nextID   archetypeIndex
	bySig    map[Signature]archetypeIndex
	byIndex  []*Archetype
	byTable  map[table.Table]archetypeIndex
	postings map[ComponentID][]archetypeIndex
	empty    archetypeIndex
}

func newArchetypeManager() *archetypeManager {
	m := &archetypeManager{
		bySig:    make(map[Signature]archetypeIndex),
		byTable:  make(map[table.Table]archetypeIndex),
		postings: make(map[ComponentID][]archetypeIndex),
	}
	// The empty archetype always exists; every entity created without an
	// explicit signature starts here (spec.md section 3).
	empty, err := m.getOrCreate(Signature{}, nil)
	if err != nil {
		panic(err) // building the empty archetype cannot fail
	}
	m.empty = empty.id
	return m
}

// getOrCreate interns an archetype by bit-equal signature, building it on
// first demand (spec.md section 4.4). components must already match sig
// (caller's responsibility — archetypeManager does not derive one from
// the other, since the zero-component empty archetype has no components
// to walk).
func (m *archetypeManager) getOrCreate(sig Signature, components []Component) (*Archetype, error) {
	m.mu.RLock()
	if idx, ok := m.bySig[sig]; ok {
		arch := m.byIndex[idx]
		m.mu.RUnlock()
		return arch, nil
	}
	m.mu.RUnlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	// Re-check: another goroutine may have interned sig while we waited
	// for the write lock.
	if idx, ok := m.bySig[sig]; ok {
		return m.byIndex[idx], nil
	}

	ordered := sortComponents(components)
	idx := m.nextID
	arch, err := newArchetype(globalSchema, globalEntryIndex, idx, sig, ordered)
	if err != nil {
		return nil, err
	}
	m.nextID++

	stored := &arch
	m.bySig[sig] = idx
	m.byIndex = append(m.byIndex, stored)
	m.byTable[arch.table] = idx

	for _, id := range sig.GetIds() {
		m.postings[id] = append(m.postings[id], idx)
	}

	return stored, nil
}

// archetypeByIndex returns the archetype at a dense index.
func (m *archetypeManager) archetypeByIndex(idx archetypeIndex) *Archetype {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if int(idx) >= len(m.byIndex) {
		return nil
	}
	return m.byIndex[idx]
}

// archetypeForTable resolves a table.Table back to the archetype that
// owns it. Mirrors the teacher's own use of table.Table as a map key
// (storage.go's tableGroups := make(map[table.Table][]int)).
func (m *archetypeManager) archetypeForTable(tbl table.Table) (*Archetype, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	idx, ok := m.byTable[tbl]
	if !ok {
		return nil, false
	}
	return m.byIndex[idx], true
}

// emptyArchetype returns the archetype with the zero signature.
func (m *archetypeManager) emptyArchetype() *Archetype {
	return m.archetypeByIndex(m.empty)
}

// all returns every interned archetype, in dense-index order.
func (m *archetypeManager) all() []*Archetype {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Archetype, len(m.byIndex))
	copy(out, m.byIndex)
	return out
}

// query enumerates archetypes whose signature is a superset of allOf,
// using the per-component posting lists when allOf is non-empty (the
// "optimized implementation" spec.md section 4.4 describes), falling
// back to a full scan for the zero signature (matches every archetype,
// including the empty one).
func (m *archetypeManager) query(allOf Signature) []*Archetype {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if allOf.Count() == 0 {
		out := make([]*Archetype, len(m.byIndex))
		copy(out, m.byIndex)
		return out
	}

	ids := allOf.GetIds()
	candidates := m.postings[ids[0]]
	matched := make(map[archetypeIndex]struct{}, len(candidates))
	for _, idx := range candidates {
		matched[idx] = struct{}{}
	}
	for _, id := range ids[1:] {
		next := make(map[archetypeIndex]struct{})
		for _, idx := range m.postings[id] {
			if _, ok := matched[idx]; ok {
				next[idx] = struct{}{}
			}
		}
		matched = next
	}

	out := make([]*Archetype, 0, len(matched))
	for idx := range matched {
		out = append(out, m.byIndex[idx])
	}
	return out
}
