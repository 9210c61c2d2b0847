package flowyaml

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuilderPrimitives(t *testing.T) {
	b := NewBuilder()

	require.Equal(t, KindNull, b.Null().Kind())
	require.True(t, b.Null().IsValid())
	require.False(t, InvalidValue.IsValid())
	require.NotEqual(t, InvalidValue, b.Null())

	tr := b.Bool(true)
	fa := b.Bool(false)
	require.Equal(t, KindBool, tr.Kind())
	require.NotEqual(t, tr, fa)
	got, ok := b.BoolVal(tr)
	require.True(t, ok)
	require.True(t, got)

	i := b.Int(42)
	require.Equal(t, KindInt, i.Kind())
	iv, ok := b.IntVal(i)
	require.True(t, ok)
	require.Equal(t, int64(42), iv)

	f := b.Float(1.5)
	require.Equal(t, KindFloat, f.Kind())
	fv, ok := b.FloatVal(f)
	require.True(t, ok)
	require.Equal(t, 1.5, fv)

	s := b.String("hello")
	require.Equal(t, KindString, s.Kind())
	sv, ok := b.StringVal(s)
	require.True(t, ok)
	require.Equal(t, "hello", sv)
}

func TestBuilderLargeInts(t *testing.T) {
	b := NewBuilder()
	for _, want := range []int64{0, -1, 1 << 58, -(1 << 58), math.MaxInt64, math.MinInt64} {
		v := b.Int(want)
		got, ok := b.IntVal(v)
		require.True(t, ok)
		require.Equal(t, want, got)
	}
	// Out-of-line ints dedup like everything else.
	require.Equal(t, b.Int(math.MaxInt64), b.Int(math.MaxInt64))
}

func TestBuilderDedupIdentity(t *testing.T) {
	b := NewBuilder()
	require.True(t, b.Dedup())

	require.Equal(t, b.String("x"), b.String("x"))
	require.Equal(t, b.Float(2.5), b.Float(2.5))

	s1 := b.Sequence(b.Int(1), b.String("a"))
	s2 := b.Sequence(b.Int(1), b.String("a"))
	require.Equal(t, s1, s2)

	m1 := b.Mapping([]Pair{{Key: b.String("k"), Value: s1}})
	m2 := b.Mapping([]Pair{{Key: b.String("k"), Value: s2}})
	require.Equal(t, m1, m2)

	// Equality is handle identity for interned composites.
	require.True(t, b.Equal(m1, m2))
	m3 := b.Mapping([]Pair{{Key: b.String("k"), Value: b.Int(2)}})
	require.NotEqual(t, m1, m3)
	require.False(t, b.Equal(m1, m3))
}

func TestBuilderNoDedupStructuralEqual(t *testing.T) {
	b := NewBuilderNoDedup()
	require.False(t, b.Dedup())

	s1 := b.Sequence(b.Int(1), b.String("a"))
	s2 := b.Sequence(b.Int(1), b.String("a"))
	require.NotEqual(t, s1, s2)
	require.True(t, b.Equal(s1, s2))

	m1 := b.Mapping([]Pair{{Key: b.String("k"), Value: b.Int(1)}})
	m2 := b.Mapping([]Pair{{Key: b.String("k"), Value: b.Int(1)}})
	require.True(t, b.Equal(m1, m2))

	// Lookup falls back to scanning when handles cannot match.
	require.Equal(t, b.Int(1), b.Resolve(b.Get(m1, "k")))
}

func TestBuilderSequenceOps(t *testing.T) {
	b := NewBuilder()
	seq := b.Sequence(b.Int(10), b.Int(20), b.String("x"))

	require.Equal(t, 3, b.Len(seq))
	require.Equal(t, b.Int(20), b.Get(seq, 1))
	require.Equal(t, InvalidValue, b.Get(seq, 3))
	require.Equal(t, InvalidValue, b.Get(seq, -1))
	require.Equal(t, InvalidValue, b.Get(seq, "not an index"))

	require.True(t, b.Contains(seq, b.Int(10)))
	require.False(t, b.Contains(seq, b.Int(30)))
}

func TestBuilderMappingOps(t *testing.T) {
	b := NewBuilder()
	m := b.Mapping([]Pair{
		{Key: b.String("a"), Value: b.Int(1)},
		{Key: b.Int(7), Value: b.String("seven")},
		{Key: b.Bool(true), Value: b.Null()},
	})

	require.Equal(t, 3, b.Len(m))
	require.Equal(t, b.Int(1), b.Get(m, "a"))
	require.Equal(t, b.String("seven"), b.Get(m, 7))
	require.Equal(t, b.Null(), b.Get(m, true))
	require.Equal(t, InvalidValue, b.Get(m, "missing"))

	// Pairs keep insertion order.
	pairs := b.Pairs(m)
	require.Len(t, pairs, 3)
	k0, _ := b.StringVal(pairs[0].Key)
	require.Equal(t, "a", k0)

	// String length through Len.
	require.Equal(t, 5, b.Len(b.String("hello")))
	require.Equal(t, -1, b.Len(b.Int(1)))
}

func TestBuilderMappingDuplicateKeyLookup(t *testing.T) {
	b := NewBuilder()
	m := b.Mapping([]Pair{
		{Key: b.String("k"), Value: b.Int(1)},
		{Key: b.String("k"), Value: b.Int(2)},
	})
	// The first occurrence wins on lookup; both pairs stay observable.
	require.Equal(t, b.Int(1), b.Get(m, "k"))
	require.Equal(t, 2, b.Len(m))
}

func TestBuilderIndirect(t *testing.T) {
	b := NewBuilder()
	base := b.Int(1)
	v := b.Indirect(base, Meta{Anchor: "x", Tag: "!!int"})

	require.Equal(t, KindIndirect, v.Kind())
	require.Equal(t, base, b.Resolve(v))
	meta := b.Meta(v)
	require.NotNil(t, meta)
	require.Equal(t, "x", meta.Anchor)
	require.Equal(t, "!!int", meta.Tag)
	require.Nil(t, b.Meta(base))

	// Typed accessors look through the wrapper.
	iv, ok := b.IntVal(v)
	require.True(t, ok)
	require.Equal(t, int64(1), iv)

	// Equality looks through the wrapper too.
	require.True(t, b.Equal(v, base))

	// Same base, same metadata: same wrapper handle under dedup.
	require.Equal(t, v, b.Indirect(base, Meta{Anchor: "x", Tag: "!!int"}))
	require.NotEqual(t, v, b.Indirect(base, Meta{Anchor: "y"}))
}

func TestBuilderAlias(t *testing.T) {
	b := NewBuilder()
	a := b.Alias("target")
	require.Equal(t, KindAlias, a.Kind())
	name, ok := b.AliasName(a)
	require.True(t, ok)
	require.Equal(t, "target", name)
	require.Equal(t, a, b.Alias("target"))
}

func TestBuilderInternalize(t *testing.T) {
	src := NewBuilder()
	v := src.Mapping([]Pair{
		{Key: src.String("list"), Value: src.Sequence(src.Int(1), src.Float(2.5))},
		{Key: src.String("big"), Value: src.Int(math.MaxInt64)},
		{Key: src.String("meta"), Value: src.Indirect(src.String("s"), Meta{Anchor: "a"})},
	})

	dst := NewBuilder()
	moved := dst.Internalize(src, v)

	require.Equal(t, 3, dst.Len(moved))
	require.Equal(t, dst.Int(1), dst.Get(dst.Get(moved, "list"), 0))
	big, ok := dst.IntVal(dst.Get(moved, "big"))
	require.True(t, ok)
	require.Equal(t, int64(math.MaxInt64), big)
	meta := dst.Meta(dst.Get(moved, "meta"))
	require.NotNil(t, meta)
	require.Equal(t, "a", meta.Anchor)

	// Internalizing re-interns: building the same content natively in
	// dst yields the same handles.
	native := dst.Sequence(dst.Int(1), dst.Float(2.5))
	require.Equal(t, native, dst.Resolve(dst.Get(moved, "list")))
}

func TestChildBuilder(t *testing.T) {
	parent := NewBuilder()
	ps := parent.String("shared")
	pseq := parent.Sequence(parent.Int(1), ps)

	child := NewChildBuilder(parent)

	// Reads of parent data fall through.
	got, ok := child.StringVal(ps)
	require.True(t, ok)
	require.Equal(t, "shared", got)
	require.Equal(t, 2, child.Len(pseq))

	// Interning sees the parent: identical content returns the
	// parent's handle.
	require.Equal(t, ps, child.String("shared"))
	require.Equal(t, pseq, child.Sequence(child.Int(1), child.String("shared")))

	// New content lands in the child only.
	cs := child.String("child only")
	got, ok = child.StringVal(cs)
	require.True(t, ok)
	require.Equal(t, "child only", got)
	require.NotEqual(t, cs, child.String("shared"))
}

func TestBuilderStats(t *testing.T) {
	b := NewBuilder()
	b.String("some interned content")
	b.String("some interned content")
	b.String("other")

	// The builder's own index short-circuits the repeat, so the arena
	// sees one store per distinct string.
	stats := b.Stats()
	require.Positive(t, stats.BytesLive)
	require.Equal(t, 2, stats.Allocs)
}
