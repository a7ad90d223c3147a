package colony

import "github.com/TheBitDrifter/table"

// AccessibleComponent extends a base Component with table-based
// accessibility: retrieval by cursor position or by a World-resolved
// entity. Mirrors the teacher's componentaccessible.go, except
// GetFromEntity now takes the owning *World explicitly — colony's Entity
// is a plain (index, version) value with no back-reference to its
// storage, unlike the teacher's heavyweight Entity interface.
type AccessibleComponent[T any] struct {
	Component
	table.Accessor[T]
}

// GetFromCursor retrieves a component value for the entity at the
// cursor's current position.
func (c AccessibleComponent[T]) GetFromCursor(cursor *Cursor) *T {
	return c.Get(
		cursor.entityIndex-1,
		cursor.currentArchetype.table,
	)
}

// GetFromCursorSafe retrieves a component value, reporting whether the
// archetype at the cursor's position even carries this component.
func (c AccessibleComponent[T]) GetFromCursorSafe(cursor *Cursor) (bool, *T) {
	if !c.Accessor.Check(cursor.currentArchetype.table) {
		return false, nil
	}
	return true, c.GetFromCursor(cursor)
}

// CheckCursor reports whether the archetype at the cursor's position
// carries this component.
func (c AccessibleComponent[T]) CheckCursor(cursor *Cursor) bool {
	return c.Accessor.Check(cursor.currentArchetype.table)
}

// GetFromEntity retrieves a component value for the given entity,
// resolving its current archetype and slot through w.
func (c AccessibleComponent[T]) GetFromEntity(w *World, entity Entity) (*T, error) {
	arch, slot, ok := w.entities.tryGetLocation(w.archetypes, entity)
	if !ok {
		return nil, StaleHandleError{Entity: entity}
	}
	return c.Get(slot, arch.table), nil
}
