package flowyaml

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParsePath(t *testing.T) {
	tests := []struct {
		in   string
		want Path
	}{
		{"/", nil},
		{"", nil},
		{"/a", Path{"a"}},
		{"/a/b/0/c", Path{"a", "b", int64(0), "c"}},
		{"a/b", Path{"a", "b"}},
		{"/true/false", Path{true, false}},
		{"/-3", Path{int64(-3)}},
	}
	for _, tt := range tests {
		require.Equal(t, tt.want, ParsePath(tt.in), "path %q", tt.in)
	}
}

func TestPathString(t *testing.T) {
	require.Equal(t, "/", Path(nil).String())
	require.Equal(t, "/a/0/c", Path{"a", int64(0), "c"}.String())
	require.Equal(t, "/true", Path{true}.String())

	// String and ParsePath invert each other.
	p := Path{"a", "b", int64(2), "c"}
	require.Equal(t, p, ParsePath(p.String()))
}

func TestGetAtPath(t *testing.T) {
	b := NewBuilder()
	root := b.Mapping([]Pair{
		{Key: b.String("a"), Value: b.Mapping([]Pair{
			{Key: b.String("b"), Value: b.Sequence(b.Int(10), b.Int(20))},
		})},
	})

	require.Equal(t, b.Int(20), b.GetAtPath(root, Path{"a", "b", 1}))
	require.Equal(t, b.Int(20), b.GetAtPath(root, ParsePath("/a/b/1")))
	require.Equal(t, root, b.GetAtPath(root, nil))
	require.Equal(t, InvalidValue, b.GetAtPath(root, Path{"a", "missing"}))
	require.Equal(t, InvalidValue, b.GetAtPath(root, Path{"a", "b", 5}))
}

func TestSetAtPathReplace(t *testing.T) {
	b := NewBuilder()
	root := b.Mapping([]Pair{
		{Key: b.String("a"), Value: b.Int(1)},
		{Key: b.String("b"), Value: b.Sequence(b.Int(1), b.Int(2))},
	})

	out, err := b.SetAtPath(root, Path{"b", 1}, b.Int(99))
	require.NoError(t, err)
	require.Equal(t, b.Int(99), b.GetAtPath(out, Path{"b", 1}))
	// The original root is untouched.
	require.Equal(t, b.Int(2), b.GetAtPath(root, Path{"b", 1}))
	// Untouched siblings carry over.
	require.Equal(t, b.Int(1), b.GetAtPath(out, Path{"a"}))
}

func TestSetAtPathSharesUnchangedSubtrees(t *testing.T) {
	// Without interning, handle identity on the untouched branch can
	// only come from actual sharing.
	b := NewBuilderNoDedup()
	left := b.Mapping([]Pair{{Key: b.String("x"), Value: b.Int(1)}})
	right := b.Sequence(b.Int(1), b.Int(2))
	root := b.Mapping([]Pair{
		{Key: b.String("left"), Value: left},
		{Key: b.String("right"), Value: right},
	})

	out, err := b.SetAtPath(root, Path{"right", 0}, b.Int(42))
	require.NoError(t, err)
	require.NotEqual(t, root, out)
	require.Equal(t, left, b.Get(out, "left"))
	require.NotEqual(t, right, b.Get(out, "right"))
}

func TestSetAtPathGetBack(t *testing.T) {
	b := NewBuilder()
	root := b.Mapping([]Pair{
		{Key: b.String("a"), Value: b.Sequence(b.Int(0))},
	})
	paths := []Path{
		{"a", 0},
		{"a", 1}, // one-past-the-end appends
		{"new"},
		{"deep", "er", 0},
	}
	for _, p := range paths {
		x := b.String("inserted")
		out, err := b.SetAtPath(root, p, x)
		require.NoError(t, err, "path %v", p)
		require.Equal(t, x, b.GetAtPath(out, p), "path %v", p)
	}
}

func TestSetAtPathCreatesContainers(t *testing.T) {
	b := NewBuilder()
	root := b.Mapping(nil)

	out, err := b.SetAtPath(root, Path{"a", "b"}, b.Int(42))
	require.NoError(t, err)
	require.Equal(t, b.Int(42), b.GetAtPath(out, Path{"a", "b"}))
	require.Equal(t, KindMapping, b.Resolve(b.Get(out, "a")).Kind())

	// An integer component through missing data forces a sequence.
	out, err = b.SetAtPath(root, Path{"a", 0}, b.Int(7))
	require.NoError(t, err)
	inner := b.Resolve(b.Get(out, "a"))
	require.Equal(t, KindSequence, inner.Kind())
	require.Equal(t, b.Int(7), b.Get(inner, 0))

	// Null behaves like a missing location.
	root = b.Mapping([]Pair{{Key: b.String("a"), Value: b.Null()}})
	out, err = b.SetAtPath(root, Path{"a", "b"}, b.Int(1))
	require.NoError(t, err)
	require.Equal(t, b.Int(1), b.GetAtPath(out, Path{"a", "b"}))
}

func TestSetAtPathEmptyPathReplacesRoot(t *testing.T) {
	b := NewBuilder()
	root := b.Mapping(nil)
	v := b.Int(1)
	out, err := b.SetAtPath(root, nil, v)
	require.NoError(t, err)
	require.Equal(t, v, out)
}

func TestSetAtPathErrors(t *testing.T) {
	b := NewBuilder()
	root := b.Mapping([]Pair{
		{Key: b.String("seq"), Value: b.Sequence(b.Int(1))},
		{Key: b.String("scalar"), Value: b.Int(1)},
	})

	_, err := b.SetAtPath(root, Path{"seq", 5}, b.Int(1))
	require.Error(t, err)

	_, err = b.SetAtPath(root, Path{"seq", "name"}, b.Int(1))
	require.Error(t, err)

	_, err = b.SetAtPath(root, Path{"scalar", "below"}, b.Int(1))
	require.Error(t, err)

	// A sequence cannot spring into existence at a nonzero index.
	_, err = b.SetAtPath(root, Path{"missing", 3}, b.Int(1))
	require.Error(t, err)
}
