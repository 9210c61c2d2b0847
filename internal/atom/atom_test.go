package atom

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStoreDedup(t *testing.T) {
	a := New()
	tag := a.NewTag(PerTagFreeDedup)

	one := a.Store(tag, []byte("hello world"))
	two := a.Store(tag, []byte("hello world"))
	require.Equal(t, "hello world", string(one))
	// Identical content must come back as the identical slice.
	require.Same(t, &one[0], &two[0])

	st := a.Stats(tag)
	require.Equal(t, 1, st.DedupHits)
	require.Equal(t, 1, st.Allocs)
}

func TestStoreBelowThreshold(t *testing.T) {
	a := New()
	tag := a.NewTag(PerTagFreeDedup)

	one := a.Store(tag, []byte("ab"))
	two := a.Store(tag, []byte("ab"))
	require.Equal(t, one, two)
	// Short sequences are copied, not tracked.
	require.NotSame(t, &one[0], &two[0])
}

func TestStoreNoDedup(t *testing.T) {
	a := New()
	tag := a.NewTag(PerTagFree)

	one := a.Store(tag, []byte("hello world"))
	two := a.Store(tag, []byte("hello world"))
	require.NotSame(t, &one[0], &two[0])
}

func TestStoreV(t *testing.T) {
	a := New()
	tag := a.NewTag(PerTagFreeDedup)

	joined := a.StoreV(tag, []byte("foo"), []byte("/"), []byte("bar"))
	require.Equal(t, "foo/bar", string(joined))

	whole := a.Store(tag, []byte("foo/bar"))
	require.Same(t, &joined[0], &whole[0])
}

func TestPointerStability(t *testing.T) {
	a := New()
	tag := a.NewTag(PerTagFree)

	first := a.Store(tag, []byte("stable"))
	// Force a number of slab rollovers.
	for i := 0; i < 10000; i++ {
		a.Store(tag, bytes.Repeat([]byte{'x'}, 64))
	}
	require.Equal(t, "stable", string(first))
}

func TestOversizedAllocation(t *testing.T) {
	a := New()
	tag := a.NewTag(PerTagFree)

	big := a.Alloc(tag, defaultSlabSize*2)
	require.Len(t, big, defaultSlabSize*2)

	small := a.Store(tag, []byte("tiny"))
	require.Equal(t, "tiny", string(small))
}

func TestReset(t *testing.T) {
	a := New()
	tag := a.NewTag(PerTagFreeDedup)

	a.Store(tag, []byte("some content here"))
	a.Reset(tag)

	st := a.Stats(tag)
	require.Equal(t, 0, st.Allocs)
	require.Equal(t, 0, st.BytesLive)

	// The tag stays usable after a reset.
	out := a.Store(tag, []byte("fresh"))
	require.Equal(t, "fresh", string(out))
}

func TestTrimAccounting(t *testing.T) {
	a := New()
	tag := a.NewTag(PerTagFree)

	for i := 0; i < 1000; i++ {
		a.Store(tag, bytes.Repeat([]byte{'y'}, 100))
	}
	before := a.Stats(tag).BytesSlack
	a.Trim(tag)
	after := a.Stats(tag).BytesSlack
	require.LessOrEqual(t, after, before)
	require.Equal(t, 1000, a.Stats(tag).Allocs)
}

func TestDestroyedTagPanics(t *testing.T) {
	a := New()
	tag := a.NewTag(PerTagFree)
	a.Destroy(tag)
	require.Panics(t, func() { a.Store(tag, []byte("boom")) })
}

func TestIndependentTags(t *testing.T) {
	a := New()
	t1 := a.NewTag(PerTagFreeDedup)
	t2 := a.NewTag(PerTagFreeDedup)

	one := a.Store(t1, []byte("shared content"))
	two := a.Store(t2, []byte("shared content"))
	// Tags are independent scopes; no cross-tag sharing.
	require.NotSame(t, &one[0], &two[0])

	a.Reset(t1)
	require.Equal(t, "shared content", string(two))
}
