package colony

import "sync"

// Deferred command queues (spec.md section 4.6): every structural
// mutation requested from inside a system's Update is appended here
// rather than applied immediately, and only drained at the fixed points
// in World.Tick's pipeline (spec.md section 4.7). This is the direct
// generalization of the teacher's operation_queue.go: the same
// capture-then-revalidate shape (record the entity plus the version seen
// at enqueue time, re-check both at drain time), split into the four
// named queues spec.md calls for instead of the teacher's single
// EntityOperation interface, since each queue drains at a different
// pipeline step with different resolution rules (section 4.6's "last
// write for a given (entity,id) wins within a frame").
type destroyOp struct {
	entity Entity
}

type componentAddOp struct {
	entity Entity
	comp   Component
	value  any // nil means "default-constructed column"
}

type componentRemoveOp struct {
	entity Entity
	id     ComponentID
}

type simpleCreateOp struct {
	thunk func(*World, Entity)
}

// commandBuffer holds the World's four deferred queues plus the
// builder-based creation queue (the queued *EntityBuilder values
// themselves, kept here to keep all queue state in one place). A
// sync.Mutex guards every queue: enqueue calls arrive from arbitrary
// goroutines (system Update bodies running under the scheduler's
// errgroup), drains happen single-threaded in World.Tick before the
// scheduler runs its batches (spec.md section 5).
type commandBuffer struct {
	mu sync.Mutex

	destroys []destroyOp
	adds     []componentAddOp
	removes  []componentRemoveOp
	creates  []simpleCreateOp
	builders []*EntityBuilder
}

func newCommandBuffer() *commandBuffer {
	return &commandBuffer{}
}

func (b *commandBuffer) enqueueDestroy(e Entity) {
	b.mu.Lock()
	b.destroys = append(b.destroys, destroyOp{entity: e})
	b.mu.Unlock()
}

func (b *commandBuffer) enqueueAdd(e Entity, c Component, value any) {
	b.mu.Lock()
	b.adds = append(b.adds, componentAddOp{entity: e, comp: c, value: value})
	b.mu.Unlock()
}

func (b *commandBuffer) enqueueRemove(e Entity, id ComponentID) {
	b.mu.Lock()
	b.removes = append(b.removes, componentRemoveOp{entity: e, id: id})
	b.mu.Unlock()
}

func (b *commandBuffer) enqueueCreate(thunk func(*World, Entity)) {
	b.mu.Lock()
	b.creates = append(b.creates, simpleCreateOp{thunk: thunk})
	b.mu.Unlock()
}

func (b *commandBuffer) enqueueBuilder(builder *EntityBuilder) {
	b.mu.Lock()
	b.builders = append(b.builders, builder)
	b.mu.Unlock()
}

// drainBuilders removes and returns every queued builder-based creation
// request, clearing the queue. Called at pipeline step 5.
func (b *commandBuffer) drainBuilders() []*EntityBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.builders
	b.builders = nil
	return out
}

// drainDestroys removes and returns every queued destroy request.
// Called first, at pipeline step 1.
func (b *commandBuffer) drainDestroys() []destroyOp {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.destroys
	b.destroys = nil
	return out
}

// drainCreates removes and returns every queued simple-create request.
// Called at pipeline step 7.
func (b *commandBuffer) drainCreates() []simpleCreateOp {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.creates
	b.creates = nil
	return out
}

// drainAdds removes and returns every queued component-add request.
// Called at pipeline step 9, after drainRemoves.
func (b *commandBuffer) drainAdds() []componentAddOp {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.adds
	b.adds = nil
	return out
}

// drainRemoves removes and returns every queued component-remove
// request. Called at pipeline step 8, before drainAdds.
func (b *commandBuffer) drainRemoves() []componentRemoveOp {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.removes
	b.removes = nil
	return out
}
