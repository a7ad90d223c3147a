/*
Package colony is an archetype-based Entity-Component-System (ECS)
runtime for simulating large entity populations (hundreds of thousands
to millions) in soft real time.

Colony keeps entities with identical component signatures together in
columnar archetypes for cache-friendly iteration, defers structural
mutations (create/destroy/add-component/remove-component) to fixed
points in a per-frame pipeline (immediate variants exist for setup code
running outside Tick), and schedules systems in
conflict-free parallel batches based on their declared read/write sets.

Core Concepts:

  - Entity: a generational (index, version) handle to a live or
    recycled entity.
  - Component: a copyable value type with a process-wide, dense
    integer identity.
  - Archetype: columnar storage for every entity sharing a signature.
  - Signature: the immutable bitset of component ids that identifies
    an archetype.
  - World: the façade owning every manager, the event sinks, and the
    Tick pipeline.
  - System: a unit of per-frame work with a name, a read/write set,
    and a tick rate.

Basic Usage:

	w := colony.NewWorld(colony.ChunkDimensions{X: 64, Y: 32, Z: 64}, 3)

	position := colony.FactoryNewComponent[Position]()
	velocity := colony.FactoryNewComponent[Velocity]()

	builder := colony.NewEntityBuilder()
	colony.With(builder, position, Position{})
	colony.With(builder, velocity, Velocity{X: 1})
	w.EnqueueCreateEntity(builder)

	w.Systems.Register(&MovementSystem{})

	w.Tick(1.0 / 60.0)

Colony is a standalone library; it makes no assumptions about
rendering, input, or persistence.
*/
package colony
