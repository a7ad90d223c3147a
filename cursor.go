package colony

import (
	"iter"

	"github.com/TheBitDrifter/table"
)

var _ iCursor = &Cursor{}

// iCursor defines the interface for iterating over entities matched by a
// query.
type iCursor interface {
	Entities() iter.Seq2[int, table.Table]
	Next() bool
}

// Cursor provides iteration over archetypes matching a query, snapshot
// at Initialize time. It takes no per-archetype lock the way the
// teacher's Storage.AddLock/PopLock did: structural changes queued
// through commands.go are applied only inside World.Tick, so they never
// land mid-iteration. The immediate World methods (CreateEntity,
// CreateEntityWithSignature, AddComponent, AddComponentWithValue,
// RemoveComponent) are not deferred, and calling them during an
// iteration changes the archetypes the cursor is walking.
type Cursor struct {
	query            QueryNode
	world            *World
	currentArchetype *Archetype
	archIndex        int
	entityIndex      int
	remaining        int

	initialized       bool
	matchedArchetypes []*Archetype
}

// newCursor creates a new cursor for the given query over a World.
func newCursor(query QueryNode, world *World) *Cursor {
	return &Cursor{query: query, world: world}
}

// Next advances to the next entity and returns whether one exists.
func (c *Cursor) Next() bool {
	if c.entityIndex < c.remaining {
		c.entityIndex++
		return true
	}
	return c.advance()
}

func (c *Cursor) advance() bool {
	if !c.initialized {
		c.Initialize()
	}

	for c.archIndex < len(c.matchedArchetypes) {
		c.currentArchetype = c.matchedArchetypes[c.archIndex]
		c.remaining = c.currentArchetype.Len()
		if c.entityIndex < c.remaining {
			c.entityIndex++
			return true
		}
		c.archIndex++
		c.entityIndex = 0
	}

	c.Reset()
	return false
}

// Entities returns an iterator sequence over (slot, table) pairs for
// every entity matching the query.
func (c *Cursor) Entities() iter.Seq2[int, table.Table] {
	return func(yield func(int, table.Table) bool) {
		c.Initialize()

		for c.archIndex < len(c.matchedArchetypes) {
			c.currentArchetype = c.matchedArchetypes[c.archIndex]
			c.remaining = c.currentArchetype.Len()

			for c.entityIndex < c.remaining {
				if !yield(c.entityIndex, c.currentArchetype.table) {
					c.Reset()
					return
				}
				c.entityIndex++
			}

			c.entityIndex = 0
			c.archIndex++
		}

		c.Reset()
	}
}

// Initialize snapshots the archetypes currently matching the cursor's
// query.
func (c *Cursor) Initialize() {
	if c.initialized {
		return
	}

	c.matchedArchetypes = c.world.archetypes.query(Signature{})
	matched := c.matchedArchetypes[:0]
	for _, arch := range c.matchedArchetypes {
		if c.query.Evaluate(arch) {
			matched = append(matched, arch)
		}
	}
	c.matchedArchetypes = matched

	if len(c.matchedArchetypes) > 0 {
		c.archIndex = 0
		c.currentArchetype = c.matchedArchetypes[0]
		c.remaining = c.currentArchetype.Len()
	}

	c.initialized = true
}

// Reset clears cursor state so the cursor can be re-initialized.
func (c *Cursor) Reset() {
	c.archIndex = 0
	c.entityIndex = 0
	c.remaining = 0
	c.matchedArchetypes = nil
	c.initialized = false
}

// CurrentEntity returns the entity at the current cursor position.
func (c *Cursor) CurrentEntity() (Entity, error) {
	entry, err := c.currentArchetype.table.Entry(c.entityIndex - 1)
	if err != nil {
		return Entity{}, err
	}
	return Entity{index: uint32(entry.ID()), version: uint32(entry.Recycled())}, nil
}

// EntityAtOffset returns the entity at an offset from the current cursor
// position, within the current archetype.
func (c *Cursor) EntityAtOffset(offset int) (Entity, error) {
	entry, err := c.currentArchetype.table.Entry(c.entityIndex - 1 + offset)
	if err != nil {
		return Entity{}, err
	}
	return Entity{index: uint32(entry.ID()), version: uint32(entry.Recycled())}, nil
}

// EntityIndex returns the current entity index within the current
// archetype.
func (c *Cursor) EntityIndex() int {
	return c.entityIndex
}

// RemainingInArchetype returns the number of entities left in the
// current archetype.
func (c *Cursor) RemainingInArchetype() int {
	return c.remaining - c.entityIndex
}

// TotalMatched returns the total number of entities matching the query.
func (c *Cursor) TotalMatched() int {
	if !c.initialized {
		c.Initialize()
	}

	total := 0
	for _, arch := range c.matchedArchetypes {
		total += arch.Len()
	}

	c.Reset()
	return total
}
