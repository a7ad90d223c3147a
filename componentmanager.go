package colony

import (
	"fmt"
	"reflect"
)

// moveEntityTo transfers an entity from its current archetype into dest,
// optionally writing an override value into dest's column for addedComp.
// This is spec.md section 4.3's move_entity_to primitive, grounded
// directly on the teacher's AddComponentWithValue (entity.go): transfer
// first via table.Table.TransferEntries, then re-resolve the entity's
// live slot (which TransferEntries has already updated in the shared
// EntryIndex) before writing the override column by reflection.
func (w *World) moveEntityTo(e Entity, dest *Archetype, addedComp Component, value any) error {
	origArch, slot, ok := w.entities.tryGetLocation(w.archetypes, e)
	if !ok {
		return StaleHandleError{Entity: e}
	}
	if origArch.id == dest.id {
		if addedComp != nil && value != nil {
			return setColumnValue(dest, slot, value)
		}
		return nil
	}
	if err := origArch.transferEntryTo(dest, slot); err != nil {
		return ArchetypeMoveFailureError{Entity: e, Reason: err.Error()}
	}
	if addedComp != nil && value != nil {
		_, resolvedSlot, ok := w.entities.tryGetLocation(w.archetypes, e)
		if !ok {
			return ArchetypeMoveFailureError{Entity: e, Reason: "entity missing from destination archetype after transfer"}
		}
		return setColumnValue(dest, resolvedSlot, value)
	}
	return nil
}

// setColumnValue writes value into whichever column of arch's table holds
// that Go type, mirroring entity.go's AddComponentWithValue reflection
// walk over table.Table.Rows().
func setColumnValue(arch *Archetype, slot int, value any) error {
	valueType := reflect.TypeOf(value)
	for _, row := range arch.table.Rows() {
		if row.Type().Elem() == valueType {
			reflect.Value(row).Index(slot).Set(reflect.ValueOf(value))
			return nil
		}
	}
	return fmt.Errorf("no column for value type %v in archetype %d", valueType, arch.id)
}

// addComponent resolves (or interns) the destination archetype for
// e + comp and moves e there, applying value if given. Used by
// World.AddComponent (immediate) and the drained add-queue (deferred).
func (w *World) addComponent(e Entity, comp Component, value any) error {
	arch, _, ok := w.entities.tryGetLocation(w.archetypes, e)
	if !ok {
		return StaleHandleError{Entity: e}
	}
	id := componentIDOf(comp)
	if arch.Signature().Contains(id) {
		if value != nil {
			_, slot, _ := w.entities.tryGetLocation(w.archetypes, e)
			return setColumnValue(arch, slot, value)
		}
		return nil
	}
	newSig, err := arch.Signature().Add(id)
	if err != nil {
		return err
	}
	components, err := componentsForSignature(newSig)
	if err != nil {
		return err
	}
	dest, err := w.archetypes.getOrCreate(newSig, components)
	if err != nil {
		return err
	}
	return w.moveEntityTo(e, dest, comp, value)
}

// removeComponent resolves the destination archetype for e minus id and
// moves e there. A no-op if e never carried id.
func (w *World) removeComponent(e Entity, id ComponentID) error {
	arch, _, ok := w.entities.tryGetLocation(w.archetypes, e)
	if !ok {
		return StaleHandleError{Entity: e}
	}
	if !arch.Signature().Contains(id) {
		return nil
	}
	newSig := arch.Signature().Remove(id)
	components, err := componentsForSignature(newSig)
	if err != nil {
		return err
	}
	dest, err := w.archetypes.getOrCreate(newSig, components)
	if err != nil {
		return err
	}
	return w.moveEntityTo(e, dest, nil, nil)
}
