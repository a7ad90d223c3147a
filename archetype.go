package colony

import "github.com/TheBitDrifter/table"

// archetypeIndex is the dense integer identifying an archetype within a
// World's ArchetypeManager (spec.md section 4.4's "archetype_index").
type archetypeIndex uint32

// Archetype is columnar storage for every entity sharing a signature: a
// signature plus the component table backing its columns. Column order
// within the table is canonical (ascending ComponentID, spec.md I3),
// enforced at construction time by archetypeManager.getOrCreate sorting
// components before calling newArchetype.
type Archetype struct {
	id        archetypeIndex
	signature Signature
	table     table.Table
	compIDs   []ComponentID // canonical (ascending) order, for introspection
}

// newArchetype builds the backing table.Table for a signature, reusing
// the teacher's own archetype construction: one table.TableBuilder call
// per distinct signature, sharing the World's schema and entry index so
// every archetype in a World participates in the same entry-id space.
func newArchetype(schema table.Schema, entryIndex table.EntryIndex, id archetypeIndex, sig Signature, components []Component) (Archetype, error) {
	elementTypes := make([]table.ElementType, len(components))
	compIDs := make([]ComponentID, len(components))
	for i, comp := range components {
		elementTypes[i] = comp
		compIDs[i] = componentIDOf(comp)
	}
	tbl, err := table.NewTableBuilder().
		WithSchema(schema).
		WithEntryIndex(entryIndex).
		WithElementTypes(elementTypes...).
		WithEvents(Config.tableEvents).
		Build()
	if err != nil {
		return Archetype{}, err
	}
	return Archetype{
		id:        id,
		signature: sig,
		table:     tbl,
		compIDs:   compIDs,
	}, nil
}

// ID returns the archetype's dense index within its ArchetypeManager.
func (a Archetype) ID() uint32 {
	return uint32(a.id)
}

// Table returns the backing column storage.
func (a Archetype) Table() table.Table {
	return a.table
}

// Signature returns the archetype's component signature.
func (a Archetype) Signature() Signature {
	return a.signature
}

// Len returns the number of entities currently stored in this archetype.
func (a Archetype) Len() int {
	return a.table.Length()
}

// ComponentIDs returns the archetype's components in canonical
// (ascending) order.
func (a Archetype) ComponentIDs() []ComponentID {
	out := make([]ComponentID, len(a.compIDs))
	copy(out, a.compIDs)
	return out
}

// newEntities appends n entities to the archetype's columns, growing
// every column by n (spec.md section 4.3's add_entity, batched). Atomic
// against concurrent calls: table.Table serializes NewEntries internally
// per spec.md section 4.3/section 5's "single lock per archetype, held
// only during add_entity/remove_at_swap."
func (a *Archetype) newEntities(n int) ([]table.Entry, error) {
	return a.table.NewEntries(n)
}

// deleteEntries removes the given global entry ids from the archetype,
// swap-filling each freed slot from the tail (spec.md's remove_at_swap),
// delegated to table.Table.
func (a *Archetype) deleteEntries(ids ...int) error {
	_, err := a.table.DeleteEntries(ids...)
	return err
}

// transferEntryTo moves the entity at slot into dest, copying every
// retained column and growing dest's new columns with defaults — the
// move_entity_to primitive of spec.md section 4.3.
func (a *Archetype) transferEntryTo(dest *Archetype, slot int) error {
	return a.table.TransferEntries(dest.table, slot)
}
