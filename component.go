package colony

import (
	"github.com/TheBitDrifter/table"
)

// Component is a data attribute that can be attached to entities. Authors
// assert nothing about layout beyond "copyable value" — a component is a
// value type, not a live reference into storage. Tag components are
// zero-sized markers; they still occupy a column slot but carry no data.
type Component interface {
	table.ElementType
}

// componentIDOf returns the dense registry id backing a Component's
// identity. It is the Signature bit position for that component.
func componentIDOf(c Component) ComponentID {
	return ComponentID(c.ID())
}
