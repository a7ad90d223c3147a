package colony

import (
	"reflect"
	"sync"

	"github.com/TheBitDrifter/table"
)

// ComponentID is a dense, process-wide integer identifier for a
// component type. Ids are assigned first-seen, never reused, never
// reordered (spec section 4.1).
type ComponentID uint32

type componentDescriptor struct {
	id      ComponentID
	typ     reflect.Type
	element table.ElementType
}

// componentRegistry is the process-wide, thread-safe bidirectional
// mapping between component types and ComponentIDs. Reads are lock-free
// on the happy path; writes take the registry mutex only on first
// sighting of a type, matching spec section 4.1 and section 5's
// "many-readers/one-writer" policy.
//
// Identity assignment itself is delegated to table.FactoryNewElementType,
// the teacher's own generic component-identity factory; this registry
// layers the inverse lookup (type_of) and highest_id bookkeeping spec.md
// requires on top of it.
type componentRegistry struct {
	byType  sync.Map // reflect.Type -> *componentDescriptor
	mu      sync.Mutex
	byID    []*componentDescriptor
	highest ComponentID
}

func newComponentRegistry() *componentRegistry {
	return &componentRegistry{byID: make([]*componentDescriptor, 0, 64)}
}

var globalRegistry = newComponentRegistry()

// registryIDOf interns T on first mention and returns its stable
// ComponentID along with the table.ElementType identity object backing
// it (the same object FactoryNewComponent wraps into an
// AccessibleComponent).
func registryIDOf[T any]() (ComponentID, table.ElementType) {
	t := reflect.TypeFor[T]()
	if v, ok := globalRegistry.byType.Load(t); ok {
		d := v.(*componentDescriptor)
		return d.id, d.element
	}

	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()

	// Re-check under the lock: another goroutine may have interned T
	// between the lock-free load above and acquiring the mutex.
	if v, ok := globalRegistry.byType.Load(t); ok {
		d := v.(*componentDescriptor)
		return d.id, d.element
	}

	element := table.FactoryNewElementType[T]()
	id := ComponentID(element.ID())
	desc := &componentDescriptor{id: id, typ: t, element: element}

	for int(id) >= len(globalRegistry.byID) {
		globalRegistry.byID = append(globalRegistry.byID, nil)
	}
	globalRegistry.byID[id] = desc
	if id > globalRegistry.highest {
		globalRegistry.highest = id
	}
	globalRegistry.byType.Store(t, desc)

	return id, element
}

// typeOf is the inverse lookup: ComponentID -> reflect.Type.
func (r *componentRegistry) typeOf(id ComponentID) (reflect.Type, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if int(id) >= len(r.byID) || r.byID[id] == nil {
		return nil, UnknownComponentIDError{ID: id}
	}
	return r.byID[id].typ, nil
}

// elementTypeOf returns the table.ElementType registered under id. Since
// Component is just table.ElementType under another name (component.go),
// the returned value already satisfies Component — callers needing a
// []Component for a Signature whose members are known only as ids (e.g.
// componentManager rebuilding a destination archetype after a remove)
// use this instead of requiring a fresh typed Component literal at every
// call site.
func (r *componentRegistry) elementTypeOf(id ComponentID) (table.ElementType, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if int(id) >= len(r.byID) || r.byID[id] == nil {
		return nil, UnknownComponentIDError{ID: id}
	}
	return r.byID[id].element, nil
}

// ElementTypeOf is the package-level accessor for elementTypeOf.
func ElementTypeOf(id ComponentID) (table.ElementType, error) {
	return globalRegistry.elementTypeOf(id)
}

// componentsForSignature reconstructs a []Component for every id in sig,
// in canonical ascending order, by consulting the registry. Used whenever
// an archetype must be interned from a Signature alone (component
// removal, where only the surviving ids — not fresh Component values —
// are known).
func componentsForSignature(sig Signature) ([]Component, error) {
	ids := sig.GetIds()
	out := make([]Component, len(ids))
	for i, id := range ids {
		et, err := globalRegistry.elementTypeOf(id)
		if err != nil {
			return nil, err
		}
		out[i] = et
	}
	return out, nil
}

// highestID is an upper bound for signature bitmap sizing.
func (r *componentRegistry) highestID() ComponentID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.highest
}

// reset clears all interned component types. Test-only: panics if any
// tracked World still holds a non-empty archetype, since resetting ids out
// from under live data would desynchronize every previously built
// Signature from the ComponentIDs it was built against.
func (r *componentRegistry) reset() {
	if anyLiveWorldHasEntities() {
		panic("colony: componentRegistry.reset called while a World still has live entities")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = r.byID[:0]
	r.highest = 0
	r.byType = sync.Map{}
}

// ResetRegistryForTests clears the process-wide component registry. It
// exists solely so test suites can run in isolation from one another;
// production callers must never invoke it.
func ResetRegistryForTests() {
	globalRegistry.reset()
}

// TypeOf returns the reflect.Type registered under id, or
// UnknownComponentIDError if id was never assigned.
func TypeOf(id ComponentID) (reflect.Type, error) {
	return globalRegistry.typeOf(id)
}

// HighestComponentID returns the largest ComponentID interned so far.
func HighestComponentID() ComponentID {
	return globalRegistry.highestID()
}
