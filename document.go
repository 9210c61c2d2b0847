package flowyaml

import (
	"github.com/flowyaml/flowyaml/internal/yamlh"
)

// NodeKind discriminates the document tree node variants.
type NodeKind int

const (
	ScalarNode NodeKind = iota + 1
	SequenceNode
	MappingNode
	AliasNode
)

func (k NodeKind) String() string {
	switch k {
	case ScalarNode:
		return "scalar"
	case SequenceNode:
		return "sequence"
	case MappingNode:
		return "mapping"
	case AliasNode:
		return "alias"
	}
	return "<unknown node kind>"
}

// NodePair is one ordered mapping entry.
type NodePair struct {
	Key   *Node
	Value *Node
}

// Node is one node of the mutable document tree. A node has exactly
// one parent; detaching it from that parent is the only way to orphan
// it. Mapping pairs keep insertion order, and the order is observable.
type Node struct {
	Kind NodeKind

	// Style hints, honored by the emitter in original mode.
	ScalarStyle     yamlh.ScalarStyle
	CollectionStyle yamlh.CollectionStyle

	Tag    string
	Anchor string

	// Value is the scalar text, or the anchor name for an alias node.
	Value string

	// Children of a sequence node.
	Children []*Node

	// Pairs of a mapping node.
	Pairs []NodePair

	Parent *Node

	// Meta is an opaque slot for callers.
	Meta any

	// markers is the 24-bit user marker set for traversal state.
	markers uint32

	HeadComment string
	LineComment string
	FootComment string

	Line   int
	Column int
	Offset int
}

const nodeMarkerBits = 24

// SetMarker sets user marker i (0..23).
func (n *Node) SetMarker(i int) {
	if i >= 0 && i < nodeMarkerBits {
		n.markers |= 1 << uint(i)
	}
}

// ClearMarker clears user marker i.
func (n *Node) ClearMarker(i int) {
	if i >= 0 && i < nodeMarkerBits {
		n.markers &^= 1 << uint(i)
	}
}

// Marker reports user marker i.
func (n *Node) Marker(i int) bool {
	return i >= 0 && i < nodeMarkerBits && n.markers&(1<<uint(i)) != 0
}

// ClearMarkers clears all user markers.
func (n *Node) ClearMarkers() { n.markers = 0 }

// Append adds a child to a sequence node.
func (n *Node) Append(child *Node) {
	child.Parent = n
	n.Children = append(n.Children, child)
}

// AppendPair adds an entry to a mapping node.
func (n *Node) AppendPair(key, value *Node) {
	key.Parent = n
	value.Parent = n
	n.Pairs = append(n.Pairs, NodePair{Key: key, Value: value})
}

// Detach removes the node from its parent, making it free to drop or
// reattach. Detaching a mapping key removes the whole pair.
func (n *Node) Detach() {
	p := n.Parent
	if p == nil {
		return
	}
	n.Parent = nil
	switch p.Kind {
	case SequenceNode:
		for i, c := range p.Children {
			if c == n {
				p.Children = append(p.Children[:i], p.Children[i+1:]...)
				return
			}
		}
	case MappingNode:
		for i := range p.Pairs {
			if p.Pairs[i].Key == n || p.Pairs[i].Value == n {
				if p.Pairs[i].Key != n {
					p.Pairs[i].Key.Parent = nil
				}
				if p.Pairs[i].Value != n {
					p.Pairs[i].Value.Parent = nil
				}
				p.Pairs = append(p.Pairs[:i], p.Pairs[i+1:]...)
				return
			}
		}
	}
}

// Visit walks the subtree in depth-first order, keys before values.
// Returning false from fn prunes the walk below that node.
func (n *Node) Visit(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	switch n.Kind {
	case SequenceNode:
		for _, c := range n.Children {
			c.Visit(fn)
		}
	case MappingNode:
		for _, p := range n.Pairs {
			p.Key.Visit(fn)
			p.Value.Visit(fn)
		}
	}
}

// Get returns the value node of the given string key of a mapping
// node, or nil.
func (n *Node) Get(key string) *Node {
	if n.Kind != MappingNode {
		return nil
	}
	for _, p := range n.Pairs {
		if p.Key.Kind == ScalarNode && p.Key.Value == key {
			return p.Value
		}
	}
	return nil
}

// Document is one parsed document: a root node, the document state
// (version and tag directives), and the anchor index. Dropping the
// document drops every node reachable from it.
type Document struct {
	Root  *Node
	State *yamlh.DocumentState

	anchors map[string]*Node
}

// Anchor returns the node the name is bound to, or nil. Lookup is by
// bytewise name equality and sees the most recent binding.
func (d *Document) Anchor(name string) *Node {
	return d.anchors[name]
}

// SetAnchor binds a name to a node. Rebinding replaces the earlier
// binding for subsequent lookups; aliases already resolved keep their
// targets.
func (d *Document) SetAnchor(name string, n *Node) {
	if d.anchors == nil {
		d.anchors = make(map[string]*Node)
	}
	if n != nil {
		n.Anchor = name
	}
	d.anchors[name] = n
}

// ResolveAlias returns the node an alias node points at, or nil.
func (d *Document) ResolveAlias(n *Node) *Node {
	if n == nil || n.Kind != AliasNode {
		return nil
	}
	return d.anchors[n.Value]
}
