package colony

import "github.com/TheBitDrifter/table"

// factory implements the factory pattern for colony's top-level helpers,
// the same single-instance pattern the teacher used for Storage/Query/
// Cursor construction (warehouse/factory.go).
type factory struct{}

// Factory is the global factory instance for colony's query/cursor
// helpers.
var Factory factory

// NewQuery creates a new Query instance.
func (f factory) NewQuery() Query {
	return newQuery()
}

// NewCursor creates a new Cursor scoped to a World and a composed query.
func (f factory) NewCursor(query QueryNode, world *World) *Cursor {
	return newCursor(query, world)
}

// FactoryNewComponent interns T in the global registry and returns an
// AccessibleComponent wrapping its table.Accessor.
func FactoryNewComponent[T any]() AccessibleComponent[T] {
	id, element := registryIDOf[T]()
	_ = id
	return AccessibleComponent[T]{
		Component: element,
		Accessor:  table.FactoryNewAccessor[T](element),
	}
}
