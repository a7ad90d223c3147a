package colony

import (
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"
)

// ChunkLocation is a cell coordinate in the spatial chunk grid (spec.md
// section 4.10).
type ChunkLocation struct {
	X, Y, Z int32
}

// ChunkDimensions gives the world-unit size of one chunk along each axis.
type ChunkDimensions struct {
	X, Y, Z float64
}

// ChunkOwner is the per-entity component shadowing its tracked chunk
// location; the spatial indexer enqueues updates to it via the ordinary
// component-add queue rather than writing it directly (spec.md section
// 4.10's "enqueue a component-value update ... for the next frame").
type ChunkOwner struct {
	Location ChunkLocation
}

// ChunkOwnerComponent is the registered Component/Accessor pair for
// ChunkOwner, usable directly in queries and system read/write sets.
var ChunkOwnerComponent = FactoryNewComponent[ChunkOwner]()

// ChunkUpdate describes one entity's chunk-boundary crossing, delivered
// to OnChunkUpdateRequested observers.
type ChunkUpdate struct {
	Entity Entity
	From   ChunkLocation
	Had    bool // false if the entity had no previously tracked chunk
	To     ChunkLocation
}

type chunk struct {
	mu       sync.Mutex
	location ChunkLocation
	entities map[uint32]struct{}
	lastSeen uint64
}

func newChunk(loc ChunkLocation) *chunk {
	return &chunk{location: loc, entities: make(map[uint32]struct{})}
}

type entityChunkShadow struct {
	valid    bool
	location ChunkLocation
}

type chunkAssignment struct {
	entity   Entity
	location ChunkLocation
}

// SpatialIndex maintains a uniform 3-D grid of chunks indexing live
// entities by position, without performing synchronous structural
// changes (spec.md section 4.10). Chunk lookup is a plain map guarded by
// a single RWMutex — the map only grows on first reference to a
// location, so contention is limited to that case — while each
// individual chunk's entity set has its own mutex, matching spec.md
// section 5's "each chunk has its own lock" and the xxhash-derived
// canonical lock order for cross-chunk moves below.
type SpatialIndex struct {
	dims ChunkDimensions

	mu     sync.RWMutex
	chunks map[ChunkLocation]*chunk

	shadowMu sync.Mutex
	shadow   []entityChunkShadow // 1-based by entity index

	assignMu    sync.Mutex
	assignQueue []chunkAssignment

	frame          uint64
	evictIdleAfter uint64
	evictBudget    int
}

// NewSpatialIndex builds an index over the given chunk dimensions.
func NewSpatialIndex(dims ChunkDimensions) *SpatialIndex {
	return &SpatialIndex{
		dims:           dims,
		chunks:         make(map[ChunkLocation]*chunk),
		evictIdleAfter: 300,
		evictBudget:    64,
	}
}

// WorldToChunk maps a world position to its chunk location by integer
// floor division.
func (s *SpatialIndex) WorldToChunk(x, y, z float64) ChunkLocation {
	return ChunkLocation{
		X: floorDiv(x, s.dims.X),
		Y: floorDiv(y, s.dims.Y),
		Z: floorDiv(z, s.dims.Z),
	}
}

func floorDiv(v, size float64) int32 {
	if size <= 0 {
		return 0
	}
	q := v / size
	f := int32(q)
	if q < 0 && float64(f) != q {
		f--
	}
	return f
}

// EnqueueAssignment records an entity's desired chunk location, to be
// resolved on the next Drain. Called by movement systems observing a
// position change.
func (s *SpatialIndex) EnqueueAssignment(e Entity, loc ChunkLocation) {
	s.assignMu.Lock()
	s.assignQueue = append(s.assignQueue, chunkAssignment{entity: e, location: loc})
	s.assignMu.Unlock()
}

func (s *SpatialIndex) getOrCreateChunk(loc ChunkLocation) *chunk {
	s.mu.RLock()
	c, ok := s.chunks[loc]
	s.mu.RUnlock()
	if ok {
		return c
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.chunks[loc]; ok {
		return c
	}
	c = newChunk(loc)
	s.chunks[loc] = c
	return c
}

func (s *SpatialIndex) growShadow(index int) {
	for index > len(s.shadow) {
		s.shadow = append(s.shadow, entityChunkShadow{})
	}
}

// locationKey is the xxhash of a chunk location's coordinates, used only
// to pick a deterministic lock-acquisition order for cross-chunk moves
// (spec.md section 5's "canonical order to avoid deadlock"); it is not
// used for chunk lookup, which stays a direct map-by-struct for O(1)
// comparison.
func locationKey(loc ChunkLocation) uint64 {
	var buf [12]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(loc.X))
	binary.LittleEndian.PutUint32(buf[4:8], uint32(loc.Y))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(loc.Z))
	return xxhash.Sum64(buf[:])
}

// withTwoChunks locks both chunks in a deterministic order (by
// locationKey, tie-broken by the location value itself) and runs fn.
func withTwoChunks(a, b *chunk, fn func()) {
	if a == b {
		a.mu.Lock()
		defer a.mu.Unlock()
		fn()
		return
	}
	first, second := a, b
	if locationKey(b.location) < locationKey(a.location) ||
		(locationKey(b.location) == locationKey(a.location) && chunkLess(b.location, a.location)) {
		first, second = b, a
	}
	first.mu.Lock()
	defer first.mu.Unlock()
	second.mu.Lock()
	defer second.mu.Unlock()
	fn()
}

func chunkLess(a, b ChunkLocation) bool {
	if a.X != b.X {
		return a.X < b.X
	}
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.Z < b.Z
}

// Drain resolves every queued assignment against the entity manager's
// liveness, in one pass (spec.md section 4.10's drain algorithm). Returns
// one ChunkUpdate per assignment that changed an entity's tracked chunk,
// including its first placement (Had=false); an assignment to the chunk
// the entity is already tracked in produces none.
func (s *SpatialIndex) Drain(em *entityManager) []ChunkUpdate {
	s.assignMu.Lock()
	queue := s.assignQueue
	s.assignQueue = nil
	s.assignMu.Unlock()

	s.frame++
	var updates []ChunkUpdate

	for _, a := range queue {
		idx := a.entity.Index()
		if idx == 0 {
			continue
		}
		if !em.isAlive(a.entity) {
			s.removeStaleEntity(idx)
			continue
		}

		s.shadowMu.Lock()
		s.growShadow(int(idx))
		prev := s.shadow[idx-1]
		s.shadowMu.Unlock()

		if prev.valid && prev.location == a.location {
			continue
		}

		newChunk := s.getOrCreateChunk(a.location)
		if prev.valid {
			oldChunk := s.getOrCreateChunk(prev.location)
			withTwoChunks(oldChunk, newChunk, func() {
				delete(oldChunk.entities, idx)
				newChunk.entities[idx] = struct{}{}
				oldChunk.lastSeen = s.frame
				newChunk.lastSeen = s.frame
			})
		} else {
			newChunk.mu.Lock()
			newChunk.entities[idx] = struct{}{}
			newChunk.lastSeen = s.frame
			newChunk.mu.Unlock()
		}

		s.shadowMu.Lock()
		s.shadow[idx-1] = entityChunkShadow{valid: true, location: a.location}
		s.shadowMu.Unlock()

		updates = append(updates, ChunkUpdate{
			Entity: a.entity,
			From:   prev.location,
			Had:    prev.valid,
			To:     a.location,
		})
	}

	return updates
}

func (s *SpatialIndex) removeStaleEntity(idx uint32) {
	s.shadowMu.Lock()
	if int(idx) > len(s.shadow) || !s.shadow[idx-1].valid {
		s.shadowMu.Unlock()
		return
	}
	loc := s.shadow[idx-1].location
	s.shadow[idx-1] = entityChunkShadow{}
	s.shadowMu.Unlock()

	c := s.getOrCreateChunk(loc)
	c.mu.Lock()
	delete(c.entities, idx)
	c.mu.Unlock()
}

// HandleDestroyRequest fast-paths the still-alive entities in a destroy
// batch out of their tracked chunk, using the shadow this index already
// maintains rather than re-reading the ChunkOwner component (spec.md
// section 4.10). A cleanup pass for entities whose component reference
// was stale is unnecessary here for the same reason — the shadow is
// colony's own source of truth, not a copy of the component.
func (s *SpatialIndex) HandleDestroyRequest(batch EntityBatch) {
	for _, e := range batch {
		idx := e.Index()
		if idx == 0 {
			continue
		}
		s.removeStaleEntity(idx)
	}
}

// EvictIdle deletes chunks that are empty and have had no entity
// assigned into or moved out of them for more than evictIdleAfter frames,
// up to the per-call budget (spec.md section 4.10's "a budget per frame
// bounds eviction cost"). Evicted chunks are dropped, not pooled; removing
// a destroyed entity does not count as activity.
func (s *SpatialIndex) EvictIdle() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for loc, c := range s.chunks {
		if evicted >= s.evictBudget {
			break
		}
		c.mu.Lock()
		idle := len(c.entities) == 0 && s.frame-c.lastSeen > s.evictIdleAfter
		c.mu.Unlock()
		if idle {
			delete(s.chunks, loc)
			evicted++
		}
	}
	return evicted
}

// ChunkEntities returns a snapshot of the entity indices tracked in loc,
// or nil if the chunk has never been referenced.
func (s *SpatialIndex) ChunkEntities(loc ChunkLocation) []uint32 {
	s.mu.RLock()
	c, ok := s.chunks[loc]
	s.mu.RUnlock()
	if !ok {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]uint32, 0, len(c.entities))
	for idx := range c.entities {
		out = append(out, idx)
	}
	return out
}
