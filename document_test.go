package flowyaml

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNodeMarkers(t *testing.T) {
	n := &Node{Kind: ScalarNode}

	require.False(t, n.Marker(0))
	n.SetMarker(0)
	n.SetMarker(23)
	require.True(t, n.Marker(0))
	require.True(t, n.Marker(23))

	// Only 24 marker bits exist; the rest are ignored.
	n.SetMarker(24)
	require.False(t, n.Marker(24))
	n.SetMarker(-1)
	require.False(t, n.Marker(-1))

	n.ClearMarker(0)
	require.False(t, n.Marker(0))
	require.True(t, n.Marker(23))

	n.ClearMarkers()
	require.False(t, n.Marker(23))
}

func TestNodeDetachFromSequence(t *testing.T) {
	seq := &Node{Kind: SequenceNode}
	a := &Node{Kind: ScalarNode, Value: "a"}
	b := &Node{Kind: ScalarNode, Value: "b"}
	seq.Append(a)
	seq.Append(b)
	require.Same(t, seq, a.Parent)

	a.Detach()
	require.Nil(t, a.Parent)
	require.Len(t, seq.Children, 1)
	require.Same(t, b, seq.Children[0])

	// Detaching an orphan is a no-op.
	a.Detach()
	require.Len(t, seq.Children, 1)
}

func TestNodeDetachFromMapping(t *testing.T) {
	m := &Node{Kind: MappingNode}
	k := &Node{Kind: ScalarNode, Value: "k"}
	v := &Node{Kind: ScalarNode, Value: "v"}
	k2 := &Node{Kind: ScalarNode, Value: "k2"}
	v2 := &Node{Kind: ScalarNode, Value: "v2"}
	m.AppendPair(k, v)
	m.AppendPair(k2, v2)

	// Detaching either half removes the whole pair and orphans both.
	v.Detach()
	require.Len(t, m.Pairs, 1)
	require.Nil(t, k.Parent)
	require.Nil(t, v.Parent)
	require.Same(t, m, k2.Parent)
	require.Same(t, v2, m.Get("k2"))
	require.Nil(t, m.Get("k"))
}

func TestNodeVisit(t *testing.T) {
	doc, err := ComposeDocument(ParseConfig{}, []byte("a:\n  - 1\n  - 2\nb: 3\n"))
	require.NoError(t, err)

	var order []string
	doc.Root.Visit(func(n *Node) bool {
		if n.Kind == ScalarNode {
			order = append(order, n.Value)
		}
		return true
	})
	require.Equal(t, []string{"a", "1", "2", "b", "3"}, order)

	// Returning false prunes the subtree.
	var pruned []string
	doc.Root.Visit(func(n *Node) bool {
		if n.Kind == SequenceNode {
			return false
		}
		if n.Kind == ScalarNode {
			pruned = append(pruned, n.Value)
		}
		return true
	})
	require.Equal(t, []string{"a", "b", "3"}, pruned)
}

func TestDocumentAnchorRebinding(t *testing.T) {
	d := &Document{}
	n1 := &Node{Kind: ScalarNode, Value: "1"}
	n2 := &Node{Kind: ScalarNode, Value: "2"}

	d.SetAnchor("x", n1)
	require.Same(t, n1, d.Anchor("x"))
	require.Equal(t, "x", n1.Anchor)

	// Rebinding replaces the target for later lookups.
	d.SetAnchor("x", n2)
	require.Same(t, n2, d.Anchor("x"))

	require.Nil(t, d.Anchor("missing"))
}

func TestNodeMetaSlot(t *testing.T) {
	n := &Node{Kind: ScalarNode}
	require.Nil(t, n.Meta)
	n.Meta = map[string]int{"visits": 1}
	require.Equal(t, map[string]int{"visits": 1}, n.Meta)
}
