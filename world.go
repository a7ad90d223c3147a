package colony

import (
	"encoding/binary"
	"fmt"
	"log"
	"sync"

	"github.com/TheBitDrifter/bark"
)

// liveWorlds tracks every constructed World so componentRegistry.reset
// can refuse to run while one still holds live entities (registry.go).
// Test-only machinery: it exists purely to back that guard, and entries
// are never removed, so it is only appropriate for the short-lived
// processes test binaries run as.
var (
	liveWorldsMu sync.Mutex
	liveWorlds   []*World
)

func trackLiveWorld(w *World) {
	liveWorldsMu.Lock()
	liveWorlds = append(liveWorlds, w)
	liveWorldsMu.Unlock()
}

// anyLiveWorldHasEntities reports whether any tracked World still has a
// non-empty archetype, i.e. whether resetting the component registry out
// from under it would desynchronize its ComponentIDs from its data.
func anyLiveWorldHasEntities() bool {
	liveWorldsMu.Lock()
	defer liveWorldsMu.Unlock()
	for _, w := range liveWorlds {
		for _, arch := range w.archetypes.all() {
			if arch.Len() > 0 {
				return true
			}
		}
	}
	return false
}

// World is the façade holding every manager, the deferred command
// buffer, the event sinks, the system scheduler, and the spatial index;
// it owns the fixed-order per-frame Tick pipeline (spec.md sections 2
// and 4.7).
type World struct {
	archetypes *archetypeManager
	entities   *entityManager
	commands   *commandBuffer
	events     *eventSinks

	Systems *Scheduler
	Spatial *SpatialIndex

	frame uint64
}

// NewWorld constructs a World with its own scheduler and a spatial index
// over the given chunk dimensions. The schema and entry index behind every
// archetype table are process-wide (archetypemanager.go's
// globalSchema/globalEntryIndex), matching the teacher's own package-level
// storage globals; each World still interns its own archetypes, tracks its
// own entities' liveness, and owns its command buffer, event sinks,
// scheduler, and spatial index.
func NewWorld(chunkDims ChunkDimensions, warnThresholdMS float64) *World {
	w := &World{
		archetypes: newArchetypeManager(),
		entities:   newEntityManager(),
		commands:   newCommandBuffer(),
		events:     newEventSinks(),
		Systems:    NewScheduler(warnThresholdMS),
		Spatial:    NewSpatialIndex(chunkDims),
	}
	w.events.OnEntityBatchDestroyRequest(w.Spatial.HandleDestroyRequest)
	trackLiveWorld(w)
	return w
}

// CreateEntity allocates an entity directly in the empty archetype,
// bypassing the deferred pipeline. Safe only outside Tick.
func (w *World) CreateEntity() (Entity, error) {
	arch := w.archetypes.emptyArchetype()
	entries, err := arch.newEntities(1)
	if err != nil {
		return Entity{}, err
	}
	return w.entities.trackCreated(entries)[0], nil
}

// CreateEntityWithSignature allocates an entity directly in the
// archetype interned for sig, the critical path for thrash-free batched
// creation (spec.md section 4.5).
func (w *World) CreateEntityWithSignature(sig Signature) (Entity, error) {
	components, err := componentsForSignature(sig)
	if err != nil {
		return Entity{}, err
	}
	arch, err := w.archetypes.getOrCreate(sig, components)
	if err != nil {
		return Entity{}, err
	}
	entries, err := arch.newEntities(1)
	if err != nil {
		return Entity{}, err
	}
	return w.entities.trackCreated(entries)[0], nil
}

// CreateEntityBuilder returns a fresh, empty EntityBuilder.
func (w *World) CreateEntityBuilder() *EntityBuilder {
	return NewEntityBuilder()
}

// EnqueueCreateEntity queues a builder-based entity creation, resolved
// at the next Tick's step 5.
func (w *World) EnqueueCreateEntity(builder *EntityBuilder) {
	w.commands.enqueueBuilder(builder)
}

// EnqueueCreateEntitySimple queues a creation into the empty archetype;
// thunk (if non-nil) runs once the entity exists, at the next Tick's
// step 7 (spec.md section 4.7).
func (w *World) EnqueueCreateEntitySimple(thunk func(*World, Entity)) {
	w.commands.enqueueCreate(thunk)
}

// EnqueueDestroyEntity queues e for destruction at the next Tick.
func (w *World) EnqueueDestroyEntity(e Entity) {
	w.commands.enqueueDestroy(e)
}

// EnqueueComponentAdd queues a component addition, applied at the next
// Tick's step 9. value may be nil for a default-constructed column.
func (w *World) EnqueueComponentAdd(e Entity, c Component, value any) {
	w.commands.enqueueAdd(e, c, value)
}

// EnqueueComponentRemove queues a component removal, applied at the next
// Tick's step 8.
func (w *World) EnqueueComponentRemove(e Entity, id ComponentID) {
	w.commands.enqueueRemove(e, id)
}

// TryGetEntityLocation resolves e's current archetype and slot.
func (w *World) TryGetEntityLocation(e Entity) (*Archetype, int, bool) {
	return w.entities.tryGetLocation(w.archetypes, e)
}

// IsEntityValid reports whether e is alive and at its current version.
func (w *World) IsEntityValid(e Entity) bool {
	return w.entities.isAlive(e)
}

// QueryArchetypes enumerates archetypes whose signature is a superset of
// allOf.
func (w *World) QueryArchetypes(allOf Signature) []*Archetype {
	return w.archetypes.query(allOf)
}

// NewQuery returns a fresh, empty Query.
func (w *World) NewQuery() Query {
	return newQuery()
}

// NewCursor returns a Cursor over this World for the given query.
func (w *World) NewCursor(q QueryNode) *Cursor {
	return newCursor(q, w)
}

// AddComponent performs an immediate (non-deferred) component add.
// Callers inside a system's Update must use EnqueueComponentAdd instead;
// this is for setup code running outside the pipeline.
func (w *World) AddComponent(e Entity, c Component) error {
	return w.addComponent(e, c, nil)
}

// AddComponentWithValue is AddComponent with an explicit initial value.
func (w *World) AddComponentWithValue(e Entity, c Component, value any) error {
	return w.addComponent(e, c, value)
}

// RemoveComponent performs an immediate (non-deferred) component remove.
func (w *World) RemoveComponent(e Entity, id ComponentID) error {
	return w.removeComponent(e, id)
}

// OnEntityBatchCreated registers an observer for the pipeline's combined
// builder + simple creation batch.
func (w *World) OnEntityBatchCreated(h func(EntityBatch)) {
	w.events.OnEntityBatchCreated(h)
}

// OnEntityBatchDestroyRequest registers an observer fired while doomed
// entities are still alive and queryable.
func (w *World) OnEntityBatchDestroyRequest(h func(EntityBatch)) {
	w.events.OnEntityBatchDestroyRequest(h)
}

// OnEntityBatchDestroyed registers an observer fired after doomed
// entities have actually been removed.
func (w *World) OnEntityBatchDestroyed(h func(EntityBatch)) {
	w.events.OnEntityBatchDestroyed(h)
}

// OnChunkUpdateRequested registers an observer fired whenever the
// spatial index places an entity in its first chunk or moves it across a
// chunk boundary.
func (w *World) OnChunkUpdateRequested(h func(ChunkUpdate)) {
	w.events.OnChunkUpdateRequested(h)
}

// WorldStats is a read-only snapshot of a World's size and system
// timings, for tooling and tests (SPEC_FULL.md's supplemental World.Stats
// introspection — the core defines only this in-memory shape; dashboards
// and control panels are the host's concern, per spec.md's Non-goals).
type WorldStats struct {
	Frame          uint64
	ArchetypeCount int
	Systems        map[string]SystemTiming
}

// SystemTiming is one system's timing snapshot.
type SystemTiming struct {
	EMAMilliseconds  float64
	PeakMilliseconds float64
	Runs             uint64
}

// Stats returns a read-only snapshot of the World's current size and
// per-system timings.
func (w *World) Stats() WorldStats {
	w.Systems.mu.RLock()
	systems := make(map[string]SystemTiming, len(w.Systems.systems))
	for _, r := range w.Systems.systems {
		ema, peak, _, runs := r.stats.Snapshot()
		systems[r.sys.Name()] = SystemTiming{EMAMilliseconds: ema, PeakMilliseconds: peak, Runs: runs}
	}
	w.Systems.mu.RUnlock()

	return WorldStats{
		Frame:          w.frame,
		ArchetypeCount: len(w.archetypes.all()),
		Systems:        systems,
	}
}

// Tick runs one pass of the fixed frame pipeline (spec.md section 4.7),
// then the system scheduler, then drains the spatial assignment queue.
// A per-op failure is logged and skipped, except a stale-handle op, which
// is dropped without being logged; Tick itself never returns
// an error (spec.md section 7: "the pipeline never aborts mid-frame on a
// per-op failure").
func (w *World) Tick(deltaSeconds float64) {
	w.frame++

	destroyOps := w.commands.drainDestroys()
	stillAlive := make([]Entity, 0, len(destroyOps))
	for _, op := range destroyOps {
		if w.entities.isAlive(op.entity) {
			stillAlive = append(stillAlive, op.entity)
		}
	}
	w.events.fireDestroyRequest(stillAlive)

	for _, e := range stillAlive {
		arch, _, ok := w.entities.tryGetLocation(w.archetypes, e)
		if !ok {
			continue
		}
		if err := arch.deleteEntries(int(e.Index())); err != nil {
			log.Print(bark.AddTrace(fmt.Errorf("destroy entity %v: %w", e, err)))
			continue
		}
		w.entities.markDestroyed(e)
	}
	w.events.fireDestroyed(stillAlive)

	created := w.drainBuilderCreates()
	created = append(created, w.drainSimpleCreates()...)
	w.events.fireCreated(created)

	for _, op := range w.commands.drainRemoves() {
		if err := w.removeComponent(op.entity, op.id); err != nil {
			if _, stale := err.(StaleHandleError); !stale {
				log.Print(bark.AddTrace(err))
			}
		}
	}

	for _, op := range w.commands.drainAdds() {
		if err := w.addComponent(op.entity, op.comp, op.value); err != nil {
			if _, stale := err.(StaleHandleError); !stale {
				log.Print(bark.AddTrace(err))
			}
		}
	}

	w.Systems.RunBatches(w, deltaSeconds)

	for _, update := range w.Spatial.Drain(w.entities) {
		w.commands.enqueueAdd(update.Entity, ChunkOwnerComponent.Component, ChunkOwner{Location: update.To})
		w.events.fireChunkUpdate(update)
	}
}

// drainBuilderCreates resolves the builder-creation queue: builders are
// grouped by their resolved Signature so entities sharing a component
// pattern are created in one batch against one interned archetype
// (spec.md section 4.7 step 5's anti-thrash path), then each entity's
// override values are written into its columns.
func (w *World) drainBuilderCreates() []Entity {
	builders := w.commands.drainBuilders()
	if len(builders) == 0 {
		return nil
	}

	order := make([]Signature, 0, len(builders))
	groups := make(map[Signature][]*EntityBuilder)
	// Builders with the same ordered component pattern share one Signature,
	// so its bitmap is built once per pattern per drain.
	sigByPattern := make(map[string]Signature)
	var pattern []byte
	for _, b := range builders {
		pattern = pattern[:0]
		for _, f := range b.fields {
			pattern = binary.LittleEndian.AppendUint32(pattern, uint32(componentIDOf(f.comp)))
		}
		sig, ok := sigByPattern[string(pattern)]
		if !ok {
			var err error
			sig, err = b.Signature()
			if err != nil {
				log.Print(bark.AddTrace(QueueBuilderFailureError{Cause: err}))
				continue
			}
			sigByPattern[string(pattern)] = sig
		}
		if _, seen := groups[sig]; !seen {
			order = append(order, sig)
		}
		groups[sig] = append(groups[sig], b)
	}

	var created []Entity
	for _, sig := range order {
		group := groups[sig]
		components, err := componentsForSignature(sig)
		if err != nil {
			log.Print(bark.AddTrace(QueueBuilderFailureError{Cause: err}))
			continue
		}
		arch, err := w.archetypes.getOrCreate(sig, components)
		if err != nil {
			log.Print(bark.AddTrace(QueueBuilderFailureError{Cause: err}))
			continue
		}
		entries, err := arch.newEntities(len(group))
		if err != nil {
			log.Print(bark.AddTrace(QueueBuilderFailureError{Cause: err}))
			continue
		}
		ents := w.entities.trackCreated(entries)
		for i, entry := range entries {
			for _, f := range group[i].fields {
				if f.value == nil {
					continue
				}
				if err := setColumnValue(arch, entry.Index(), f.value); err != nil {
					log.Print(bark.AddTrace(QueueBuilderFailureError{Cause: err}))
				}
			}
		}
		created = append(created, ents...)
	}
	return created
}

// drainSimpleCreates resolves the simple-create queue: one batch
// allocation into the empty archetype, then each entity's optional
// thunk mutates it (spec.md section 4.7 step 7). A panicking thunk is
// recovered and logged; other creates in the drain proceed.
func (w *World) drainSimpleCreates() []Entity {
	ops := w.commands.drainCreates()
	if len(ops) == 0 {
		return nil
	}

	arch := w.archetypes.emptyArchetype()
	entries, err := arch.newEntities(len(ops))
	if err != nil {
		log.Print(bark.AddTrace(QueueBuilderFailureError{Cause: err}))
		return nil
	}
	ents := w.entities.trackCreated(entries)
	for i, e := range ents {
		runThunkSafely(ops[i].thunk, w, e)
	}
	return ents
}

func runThunkSafely(thunk func(*World, Entity), w *World, e Entity) {
	if thunk == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			log.Print(bark.AddTrace(QueueBuilderFailureError{Cause: fmt.Errorf("panic: %v", p)}))
		}
	}()
	thunk(w, e)
}
