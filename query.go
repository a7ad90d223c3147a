// Package colony provides an archetype-based Entity-Component-System
// runtime for simulating large entity populations.
package colony

import (
	"fmt"

	"github.com/TheBitDrifter/bark"
)

// Query is a composable filter over archetype signatures.
type Query interface {
	QueryNode
	And(items ...interface{}) QueryNode
	Or(items ...interface{}) QueryNode
	Not(items ...interface{}) QueryNode
}

// QueryNode evaluates whether an archetype matches a query tree.
type QueryNode interface {
	Evaluate(archetype *Archetype) bool
}

// QueryOperation names the logical combinator a query node applies.
type QueryOperation int

const (
	OpAnd QueryOperation = iota
	OpOr
	OpNot
)

// compositeNode implements a compound query with child nodes.
type compositeNode struct {
	op         QueryOperation
	children   []QueryNode
	components []Component
}

// leafNode implements a simple query with no child nodes.
type leafNode struct {
	components []Component
}

// query implements the Query interface.
type query struct {
	root QueryNode
}

func newQuery() Query {
	return &query{}
}

func newCompositeNode(op QueryOperation, components []Component) *compositeNode {
	return &compositeNode{op: op, children: make([]QueryNode, 0), components: components}
}

func newLeafNode(components []Component) *leafNode {
	return &leafNode{components: components}
}

// sigForQueryNode builds the Signature identifying a node's own
// components. Query components are always already-registered types, so
// an overflow here reflects a programmer error composing the query, not
// a runtime condition callers can recover from.
func sigForQueryNode(components []Component) Signature {
	sig, err := NewSignature(components...)
	if err != nil {
		panic(bark.AddTrace(err))
	}
	return sig
}

// Evaluate implements the QueryNode interface for composite nodes,
// testing archetype.Signature() against the node's own Signature instead
// of the teacher's table.Table-as-mask.Maskable cast (see DESIGN.md:
// Archetype carries its Signature directly rather than re-deriving it
// through table's internal column-bit assignment).
func (n *compositeNode) Evaluate(archetype *Archetype) bool {
	nodeSig := sigForQueryNode(n.components)
	archSig := archetype.Signature()

	switch n.op {
	case OpAnd:
		if !archSig.ContainsAll(nodeSig) {
			return false
		}
		for _, child := range n.children {
			if !child.Evaluate(archetype) {
				return false
			}
		}
		return true
	case OpOr:
		if archSig.ContainsAny(nodeSig) {
			return true
		}
		for _, child := range n.children {
			if child.Evaluate(archetype) {
				return true
			}
		}
		return false
	case OpNot:
		if len(n.children) == 0 {
			return archSig.ContainsNone(nodeSig)
		}
		if len(n.components) > 0 && !archSig.ContainsNone(nodeSig) {
			return false
		}
		for _, child := range n.children {
			if child.Evaluate(archetype) {
				return false
			}
		}
		return true
	}
	return false
}

// Evaluate implements the QueryNode interface for leaf nodes.
func (n *leafNode) Evaluate(archetype *Archetype) bool {
	return archetype.Signature().ContainsAll(sigForQueryNode(n.components))
}

func (q *query) And(items ...interface{}) QueryNode {
	components, children := q.processItems(items...)
	node := newCompositeNode(OpAnd, components)
	node.children = children
	if q.root == nil {
		q.root = node
	}
	return node
}

func (q *query) Or(items ...interface{}) QueryNode {
	components, children := q.processItems(items...)
	node := newCompositeNode(OpOr, components)
	node.children = children
	if q.root == nil {
		q.root = node
	}
	return node
}

func (q *query) Not(items ...interface{}) QueryNode {
	components, children := q.processItems(items...)
	node := newCompositeNode(OpNot, components)
	node.children = children
	if q.root == nil {
		q.root = node
	}
	return node
}

func (q *query) validateQueryItems(items ...interface{}) error {
	for _, item := range items {
		switch item.(type) {
		case Component, []Component, QueryNode, Query:
			continue
		default:
			return fmt.Errorf("invalid query item type: %T. Only Component, []Component, or QueryNode are allowed", item)
		}
	}
	return nil
}

func (q *query) processItems(items ...interface{}) ([]Component, []QueryNode) {
	if err := q.validateQueryItems(items...); err != nil {
		panic(bark.AddTrace(err))
	}
	components := make([]Component, 0)
	children := make([]QueryNode, 0)
	for _, item := range items {
		switch v := item.(type) {
		case Component:
			components = append(components, v)
		case []Component:
			components = append(components, v...)
		case QueryNode:
			children = append(children, v)
		}
	}
	return components, children
}

func (q *query) Evaluate(archetype *Archetype) bool {
	if q.root == nil {
		return false
	}
	return q.root.Evaluate(archetype)
}
