package colony

import (
	"sync"

	"github.com/TheBitDrifter/table"
)

// entityManager is the World's allocation, recycling, lookup, and
// deferred-lifecycle authority (spec.md section 4.5).
//
// Slot/version bookkeeping is layered directly on table.EntryIndex +
// table.Entry rather than reimplemented: an Entry's ID is already a
// stable process-wide index, its Recycled() count is already the
// generation bumped whenever that index's slot is freed and reused, and
// its Table()/Index() pair already is spec's "world lookup". This is
// exactly how the teacher's own entity.go reads liveness/version
// (`e.entry().Recycled()`), captured at enqueue time and compared again
// at drain time to detect stale ops. entityManager adds only what the
// teacher's globalEntities slice layered on top: an explicit alive bit
// per index, since table.EntryIndex itself has no "is this id currently
// live" query.
type entityManager struct {
	mu    sync.Mutex
	alive []bool // 1-based entity index i lives at alive[i-1]
}

func newEntityManager() *entityManager {
	return &entityManager{alive: make([]bool, 0, 1024)}
}

// trackCreated wraps freshly created table.Entry values as live Entity
// handles and marks them alive.
func (m *entityManager) trackCreated(entries []table.Entry) []Entity {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Entity, len(entries))
	for i, en := range entries {
		idx := uint32(en.ID())
		m.growTo(int(idx))
		m.alive[idx-1] = true
		out[i] = Entity{index: idx, version: uint32(en.Recycled())}
	}
	return out
}

func (m *entityManager) growTo(index int) {
	for index > len(m.alive) {
		m.alive = append(m.alive, false)
	}
}

// markDestroyed clears the alive bit for an entity's index. Called after
// the entity has been removed from its archetype's table.
func (m *entityManager) markDestroyed(e Entity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if int(e.index) <= len(m.alive) {
		m.alive[e.index-1] = false
	}
}

// currentEntry fetches the live table.Entry for an index, regardless of
// the version captured on any particular Entity handle.
func (m *entityManager) currentEntry(index uint32) (table.Entry, error) {
	return globalEntryIndex.Entry(int(index) - 1)
}

// isAlive reports whether e still refers to the same generation of its
// index that is currently live (spec.md I4, section 4.5's is_alive).
func (m *entityManager) isAlive(e Entity) bool {
	if e.index == 0 {
		return false
	}
	m.mu.Lock()
	liveBit := int(e.index) <= len(m.alive) && m.alive[e.index-1]
	m.mu.Unlock()
	if !liveBit {
		return false
	}
	entry, err := m.currentEntry(e.index)
	if err != nil {
		return false
	}
	return uint32(entry.Recycled()) == e.version
}

// currentVersion returns the live generation for an index, used by
// deferred ops to detect staleness without needing a full Entity value.
func (m *entityManager) currentVersion(index uint32) (uint32, bool) {
	entry, err := m.currentEntry(index)
	if err != nil {
		return 0, false
	}
	return uint32(entry.Recycled()), true
}

// tryGetLocation resolves an entity's current archetype and slot. Returns
// ok=false for a dead or stale handle.
func (m *entityManager) tryGetLocation(am *archetypeManager, e Entity) (*Archetype, int, bool) {
	if !m.isAlive(e) {
		return nil, 0, false
	}
	entry, err := m.currentEntry(e.index)
	if err != nil {
		return nil, 0, false
	}
	arch, ok := am.archetypeForTable(entry.Table())
	if !ok {
		return nil, 0, false
	}
	return arch, entry.Index(), true
}
