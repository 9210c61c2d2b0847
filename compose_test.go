package flowyaml

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustCompose(t *testing.T, src string) (*Builder, Value) {
	t.Helper()
	b, v, err := Compose(ParseConfig{}, []byte(src))
	require.NoError(t, err)
	return b, v
}

func TestComposeScalarTypes(t *testing.T) {
	b, v := mustCompose(t, `
null_k: ~
bool_k: true
int_k: -12
float_k: 1.5
str_k: hello
quoted_int: '17'
`)
	require.Equal(t, KindNull, b.Resolve(b.Get(v, "null_k")).Kind())

	bo, ok := b.BoolVal(b.Get(v, "bool_k"))
	require.True(t, ok)
	require.True(t, bo)

	i, ok := b.IntVal(b.Get(v, "int_k"))
	require.True(t, ok)
	require.Equal(t, int64(-12), i)

	f, ok := b.FloatVal(b.Get(v, "float_k"))
	require.True(t, ok)
	require.Equal(t, 1.5, f)

	s, ok := b.StringVal(b.Get(v, "str_k"))
	require.True(t, ok)
	require.Equal(t, "hello", s)

	// Quoting suppresses implicit resolution.
	qs, ok := b.StringVal(b.Get(v, "quoted_int"))
	require.True(t, ok)
	require.Equal(t, "17", qs)
}

func TestComposeAnchorsShareHandles(t *testing.T) {
	b, v := mustCompose(t, "a: &x 1\nb: *x\n")

	va := b.Get(v, "a")
	vb := b.Get(v, "b")
	require.Equal(t, va, vb)

	// The anchored value keeps its name through the indirect wrapper.
	meta := b.Meta(va)
	require.NotNil(t, meta)
	require.Equal(t, "x", meta.Anchor)

	i, ok := b.IntVal(va)
	require.True(t, ok)
	require.Equal(t, int64(1), i)
}

func TestComposeAnchorRedefinition(t *testing.T) {
	// The second binding applies to later aliases only.
	b, v := mustCompose(t, "a: &x 1\nb: *x\nc: &x 2\nd: *x\n")
	i, _ := b.IntVal(b.Get(v, "b"))
	require.Equal(t, int64(1), i)
	i, _ = b.IntVal(b.Get(v, "d"))
	require.Equal(t, int64(2), i)
}

func TestComposeMergeKey(t *testing.T) {
	b, v := mustCompose(t, "defaults: &d {x: 1, y: 2}\nthing: { <<: *d, y: 99 }\n")

	thing := b.Get(v, "thing")
	require.Equal(t, 2, b.Len(thing))

	x, _ := b.IntVal(b.Get(thing, "x"))
	require.Equal(t, int64(1), x)
	y, _ := b.IntVal(b.Get(thing, "y"))
	require.Equal(t, int64(99), y)

	// Merged keys land first, at the position of the "<<" entry.
	pairs := b.Pairs(thing)
	k0, _ := b.StringVal(pairs[0].Key)
	k1, _ := b.StringVal(pairs[1].Key)
	require.Equal(t, []string{"x", "y"}, []string{k0, k1})
}

func TestComposeMergeSequencePrecedence(t *testing.T) {
	b, v := mustCompose(t, `
one: &one {x: 1, z: 3}
two: &two {x: 2, y: 2}
c:
  <<: [*one, *two]
  z: 9
`)
	c := b.Get(v, "c")
	require.Equal(t, 3, b.Len(c))

	// Earlier sources win over later ones; explicit keys win over all.
	x, _ := b.IntVal(b.Get(c, "x"))
	require.Equal(t, int64(1), x)
	y, _ := b.IntVal(b.Get(c, "y"))
	require.Equal(t, int64(2), y)
	z, _ := b.IntVal(b.Get(c, "z"))
	require.Equal(t, int64(9), z)
}

func TestComposeMergeDisabledByVersion(t *testing.T) {
	// An explicit %YAML 1.2 turns the 1.1 merge behavior off.
	src := "%YAML 1.2\n---\nd: &d {x: 1}\nt: { <<: *d }\n"
	b, v, err := Compose(ParseConfig{}, []byte(src))
	require.NoError(t, err)

	tv := b.Get(v, "t")
	require.Equal(t, 1, b.Len(tv))
	require.Equal(t, InvalidValue, b.Get(tv, "x"))
	require.True(t, b.Get(tv, "<<").IsValid())
}

func TestComposeMergeValueMustBeMapping(t *testing.T) {
	_, _, err := Compose(ParseConfig{}, []byte("a: &d [1]\nt: { <<: *d }\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "map merge")
}

func TestComposeAliasErrors(t *testing.T) {
	// Unknown anchor.
	_, _, err := Compose(ParseConfig{}, []byte("a: *nope\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown anchor")

	// An alias may not reference an anchor defined later.
	_, _, err = Compose(ParseConfig{}, []byte("a: *x\nx: &x 1\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown anchor")
}

func TestComposeCycleError(t *testing.T) {
	_, _, err := Compose(ParseConfig{}, []byte("&a [ *a ]\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "refers to itself")

	_, _, err = Compose(ParseConfig{}, []byte("&m { k: *m }\n"))
	require.Error(t, err)
}

func TestComposeDocumentCycleError(t *testing.T) {
	// The tree path rejects an alias inside its own definition the
	// same way the value path does: error, no partial tree.
	doc, err := ComposeDocument(ParseConfig{}, []byte("&a [ *a ]\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "refers to itself")
	require.Nil(t, doc)

	doc, err = ComposeDocument(ParseConfig{}, []byte("&m { k: *m }\n"))
	require.Error(t, err)
	require.Nil(t, doc)

	// An alias to an already finished anchor is unaffected.
	doc, err = ComposeDocument(ParseConfig{}, []byte("a: &x 1\nb: [*x]\n"))
	require.NoError(t, err)
	require.NotNil(t, doc.Root.Get("b"))
}

func TestComposeDepthLimit(t *testing.T) {
	deep := strings.Repeat("[", 10) + "1" + strings.Repeat("]", 10)
	_, _, err := Compose(ParseConfig{MaxDepth: 4}, []byte(deep))
	require.Error(t, err)

	_, _, err = Compose(ParseConfig{MaxDepth: 16}, []byte(deep))
	require.NoError(t, err)
}

func TestComposeEmptyDocument(t *testing.T) {
	b, v, err := Compose(ParseConfig{}, []byte("---\n"))
	require.NoError(t, err)
	require.Equal(t, KindNull, b.Resolve(v).Kind())

	doc, err := ComposeDocument(ParseConfig{}, []byte("---\n"))
	require.NoError(t, err)
	require.NotNil(t, doc.Root)
	require.Equal(t, ScalarNode, doc.Root.Kind)
	require.Equal(t, "!!null", doc.Root.Tag)
}

func TestComposeEmptyStream(t *testing.T) {
	b := NewBuilder()
	v, err := b.Parse(ParseConfig{}, nil)
	require.NoError(t, err)
	require.Equal(t, KindNull, v.Kind())

	doc, err := ComposeDocument(ParseConfig{}, nil)
	require.NoError(t, err)
	require.Nil(t, doc)
}

func TestComposeAllDocuments(t *testing.T) {
	docs, err := ComposeAll(ParseConfig{}, []byte("a: 1\n---\nb: 2\n"))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	require.NotSame(t, docs[0].State, docs[1].State)
	require.Equal(t, "1", docs[0].Root.Get("a").Value)
	require.Equal(t, "2", docs[1].Root.Get("b").Value)
}

func TestParseAllValues(t *testing.T) {
	b := NewBuilder()
	vals, err := b.ParseAll(ParseConfig{}, []byte("1\n---\n2\n---\n1\n"))
	require.NoError(t, err)
	require.Len(t, vals, 3)
	// Equal scalars yield equal handles, so the repeated document compares equal.
	require.Equal(t, vals[0], vals[2])
	require.NotEqual(t, vals[0], vals[1])
}

func TestComposeDocumentTree(t *testing.T) {
	doc, err := ComposeDocument(ParseConfig{}, []byte(`
name: &n thing
items:
  - 1
  - two
ref: *n
`))
	require.NoError(t, err)
	root := doc.Root
	require.Equal(t, MappingNode, root.Kind)
	require.Len(t, root.Pairs, 3)

	// Pair order is insertion order.
	require.Equal(t, "name", root.Pairs[0].Key.Value)
	require.Equal(t, "items", root.Pairs[1].Key.Value)
	require.Equal(t, "ref", root.Pairs[2].Key.Value)

	name := root.Get("name")
	require.Equal(t, "thing", name.Value)
	require.Equal(t, "!!str", name.Tag)
	require.Equal(t, "n", name.Anchor)

	items := root.Get("items")
	require.Equal(t, SequenceNode, items.Kind)
	require.Len(t, items.Children, 2)
	require.Equal(t, "!!int", items.Children[0].Tag)
	require.Equal(t, "!!str", items.Children[1].Tag)
	require.Same(t, items, items.Children[0].Parent)

	ref := root.Get("ref")
	require.Equal(t, AliasNode, ref.Kind)
	require.Same(t, name, doc.ResolveAlias(ref))
	require.Same(t, name, doc.Anchor("n"))
}

func TestComposeDocumentUnknownAlias(t *testing.T) {
	_, err := ComposeDocument(ParseConfig{}, []byte("a: *nope\n"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "unknown anchor")
}

func TestComposeExplicitTags(t *testing.T) {
	b, v := mustCompose(t, "a: !!str 123\nb: !!int '456'\n")

	s, ok := b.StringVal(b.Get(v, "a"))
	require.True(t, ok)
	require.Equal(t, "123", s)

	i, ok := b.IntVal(b.Get(v, "b"))
	require.True(t, ok)
	require.Equal(t, int64(456), i)
}

func TestEqualNodeValue(t *testing.T) {
	src := []byte(`
name: widget
count: 3
ratio: 0.5
flags: [true, false]
nested:
  a: null
`)
	doc, err := ComposeDocument(ParseConfig{}, src)
	require.NoError(t, err)
	b, v, err := Compose(ParseConfig{}, src)
	require.NoError(t, err)

	require.True(t, EqualNodeValue(b, doc.Root, v))

	// A structural difference is detected.
	doc.Root.Get("count").Value = "4"
	require.False(t, EqualNodeValue(b, doc.Root, v))
}

func TestComposeCommentsRetained(t *testing.T) {
	src := []byte("# head\na: 1 # line\n")
	doc, err := ComposeDocument(ParseConfig{Comments: true}, src)
	require.NoError(t, err)
	retained := doc.Root.HeadComment + doc.Root.Pairs[0].Key.HeadComment
	require.Contains(t, retained, "head")

	// Comments are dropped by default.
	doc, err = ComposeDocument(ParseConfig{}, src)
	require.NoError(t, err)
	require.Empty(t, doc.Root.HeadComment)
	require.Empty(t, doc.Root.Pairs[0].Key.HeadComment)
}
