package colony

import "sync"

// EntityBatch is a borrowed view of the entities flowing through one
// pipeline event (spec.md section 4.8). No copy is made: every handler
// receives the same slice the pipeline itself holds, so handlers must not
// modify it or retain it past the call.
type EntityBatch []Entity

// eventSinks holds the World's four batched event sinks. Each is a
// plain slice of observer funcs rather than the teacher's single
// TableEvents struct (config.go), since colony needs four independent,
// growable multicast points rather than one fixed callback set —
// grounded on the "event sinks as multicast delegates" redesign
// direction, generalized to all four of spec.md section 4.8's events.
type eventSinks struct {
	mu sync.Mutex

	onCreated        []func(EntityBatch)
	onDestroyRequest []func(EntityBatch)
	onDestroyed      []func(EntityBatch)
	onChunkUpdate    []func(ChunkUpdate)
}

func newEventSinks() *eventSinks {
	return &eventSinks{}
}

// OnEntityBatchCreated registers an observer invoked once per drain of
// the builder-creation and simple-creation queues, after both have run
// (spec.md section 4.7 step 6).
func (s *eventSinks) OnEntityBatchCreated(h func(EntityBatch)) {
	s.mu.Lock()
	s.onCreated = append(s.onCreated, h)
	s.mu.Unlock()
}

// OnEntityBatchDestroyRequest registers an observer invoked before
// destroyed entities are actually removed — observers may still read
// their components (spec.md section 4.7 step 2).
func (s *eventSinks) OnEntityBatchDestroyRequest(h func(EntityBatch)) {
	s.mu.Lock()
	s.onDestroyRequest = append(s.onDestroyRequest, h)
	s.mu.Unlock()
}

// OnEntityBatchDestroyed registers an observer invoked after destroyed
// entities have been removed from their archetypes (spec.md section 4.7
// step 4).
func (s *eventSinks) OnEntityBatchDestroyed(h func(EntityBatch)) {
	s.mu.Lock()
	s.onDestroyed = append(s.onDestroyed, h)
	s.mu.Unlock()
}

// OnChunkUpdateRequested registers an observer invoked whenever the
// spatial chunk indexer moves an entity to a new chunk (spec.md section
// 4.10).
func (s *eventSinks) OnChunkUpdateRequested(h func(ChunkUpdate)) {
	s.mu.Lock()
	s.onChunkUpdate = append(s.onChunkUpdate, h)
	s.mu.Unlock()
}

// fireCreated, fireDestroyRequest, fireDestroyed and fireChunkUpdate run
// every registered observer synchronously on the pipeline thread
// (spec.md section 5). Handlers are snapshotted under the lock, then
// invoked without it held, so a handler enqueueing a deferred op or even
// registering a new observer never deadlocks against the sink itself.
func (s *eventSinks) fireCreated(batch EntityBatch) {
	if len(batch) == 0 {
		return
	}
	s.mu.Lock()
	handlers := append([]func(EntityBatch){}, s.onCreated...)
	s.mu.Unlock()
	for _, h := range handlers {
		h(batch)
	}
}

func (s *eventSinks) fireDestroyRequest(batch EntityBatch) {
	if len(batch) == 0 {
		return
	}
	s.mu.Lock()
	handlers := append([]func(EntityBatch){}, s.onDestroyRequest...)
	s.mu.Unlock()
	for _, h := range handlers {
		h(batch)
	}
}

func (s *eventSinks) fireDestroyed(batch EntityBatch) {
	if len(batch) == 0 {
		return
	}
	s.mu.Lock()
	handlers := append([]func(EntityBatch){}, s.onDestroyed...)
	s.mu.Unlock()
	for _, h := range handlers {
		h(batch)
	}
}

func (s *eventSinks) fireChunkUpdate(update ChunkUpdate) {
	s.mu.Lock()
	handlers := append([]func(ChunkUpdate){}, s.onChunkUpdate...)
	s.mu.Unlock()
	for _, h := range handlers {
		h(update)
	}
}
