package flowyaml

import (
	"encoding/binary"
	"math"

	"github.com/flowyaml/flowyaml/internal/atom"
)

// Builder owns a generic value store: every Value handle is an index
// into its stores. Destroying a builder (letting it go out of scope)
// invalidates every handle derived from it.
//
// Builders may be chained: a child builder reads its parent's interned
// data while all writes go to the child. Destroying a parent while
// children are alive is caller error.
//
// A builder is not safe for concurrent use.
type Builder struct {
	parent *Builder

	arena  *atom.Arena
	strTag atom.Tag
	dedup  bool

	strs      [][]byte
	ints      []int64
	floats    []float64
	seqs      [][]Value
	maps      []*mappingData
	indirects []indirectData
	aliases   []string

	strIndex      map[string]int
	intIndex      map[int64]int
	floatIndex    map[uint64]int
	seqIndex      map[string]int
	mapIndex      map[string]int
	indirectIndex map[indirectKey]int
	aliasIndex    map[string]int

	// Index offsets of this builder's stores; lower indexes belong to
	// the parent chain.
	strOff, intOff, floatOff, seqOff, mapOff, indirectOff, aliasOff int
}

type mappingData struct {
	pairs []Pair

	// Lazy lookup index, built on the first Get.
	byHandle map[Value]Value
	byString map[string]Value
}

type indirectData struct {
	base Value
	meta Meta
}

type indirectKey struct {
	base Value
	meta Meta
}

// NewBuilder returns a deduplicating builder: structurally equal
// values share one handle, so Equal reduces to handle identity.
func NewBuilder() *Builder {
	b := newBuilder(true)
	return b
}

// NewBuilderNoDedup returns a builder without structural interning.
func NewBuilderNoDedup() *Builder {
	return newBuilder(false)
}

func newBuilder(dedup bool) *Builder {
	a := atom.New()
	mode := atom.PerTagFree
	if dedup {
		mode = atom.PerTagFreeDedup
	}
	b := &Builder{
		arena:  a,
		strTag: a.NewTag(mode),
		dedup:  dedup,
	}
	if dedup {
		b.strIndex = make(map[string]int)
		b.intIndex = make(map[int64]int)
		b.floatIndex = make(map[uint64]int)
		b.seqIndex = make(map[string]int)
		b.mapIndex = make(map[string]int)
		b.indirectIndex = make(map[indirectKey]int)
		b.aliasIndex = make(map[string]int)
	}
	return b
}

// NewChildBuilder chains a new builder onto parent: reads of interned
// data fall through to the parent, writes stay local.
func NewChildBuilder(parent *Builder) *Builder {
	b := newBuilder(parent.dedup)
	b.parent = parent
	b.strOff = parent.strOff + len(parent.strs)
	b.intOff = parent.intOff + len(parent.ints)
	b.floatOff = parent.floatOff + len(parent.floats)
	b.seqOff = parent.seqOff + len(parent.seqs)
	b.mapOff = parent.mapOff + len(parent.maps)
	b.indirectOff = parent.indirectOff + len(parent.indirects)
	b.aliasOff = parent.aliasOff + len(parent.aliases)
	return b
}

// Dedup reports whether structural interning is on.
func (b *Builder) Dedup() bool { return b.dedup }

// Stats reports the interner's accounting for trimming decisions.
func (b *Builder) Stats() atom.Stats { return b.arena.Stats(b.strTag) }

// Store accessors walking the parent chain.

func (b *Builder) str(i int) []byte {
	if i < b.strOff {
		return b.parent.str(i)
	}
	return b.strs[i-b.strOff]
}

func (b *Builder) intAt(i int) int64 {
	if i < b.intOff {
		return b.parent.intAt(i)
	}
	return b.ints[i-b.intOff]
}

func (b *Builder) floatAt(i int) float64 {
	if i < b.floatOff {
		return b.parent.floatAt(i)
	}
	return b.floats[i-b.floatOff]
}

func (b *Builder) seqAt(i int) []Value {
	if i < b.seqOff {
		return b.parent.seqAt(i)
	}
	return b.seqs[i-b.seqOff]
}

func (b *Builder) mapAt(i int) *mappingData {
	if i < b.mapOff {
		return b.parent.mapAt(i)
	}
	return b.maps[i-b.mapOff]
}

func (b *Builder) indirectAt(i int) *indirectData {
	if i < b.indirectOff {
		return b.parent.indirectAt(i)
	}
	return &b.indirects[i-b.indirectOff]
}

func (b *Builder) aliasAt(i int) string {
	if i < b.aliasOff {
		return b.parent.aliasAt(i)
	}
	return b.aliases[i-b.aliasOff]
}

// Dedup index lookups walking the parent chain.

func (b *Builder) findStr(s string) (int, bool) {
	if b.parent != nil {
		if i, ok := b.parent.findStr(s); ok {
			return i, ok
		}
	}
	if b.strIndex == nil {
		return 0, false
	}
	i, ok := b.strIndex[s]
	return i, ok
}

func (b *Builder) findSeq(key string) (int, bool) {
	if b.parent != nil {
		if i, ok := b.parent.findSeq(key); ok {
			return i, ok
		}
	}
	if b.seqIndex == nil {
		return 0, false
	}
	i, ok := b.seqIndex[key]
	return i, ok
}

func (b *Builder) findMap(key string) (int, bool) {
	if b.parent != nil {
		if i, ok := b.parent.findMap(key); ok {
			return i, ok
		}
	}
	if b.mapIndex == nil {
		return 0, false
	}
	i, ok := b.mapIndex[key]
	return i, ok
}

// Constructors.

// Null returns the null value.
func (b *Builder) Null() Value { return Value(tagNull) }

// Bool returns the boolean value.
func (b *Builder) Bool(v bool) Value {
	if v {
		return Value(tagTrue)
	}
	return Value(tagFalse)
}

// Int returns an integer value. Small integers pack into the handle;
// the rest are interned.
func (b *Builder) Int(i int64) Value {
	if smallIntFits(i) {
		return packSmallInt(i)
	}
	if b.dedup {
		if idx, ok := b.lookupInt(i); ok {
			return packIndex(tagInt, idx)
		}
	}
	idx := b.intOff + len(b.ints)
	b.ints = append(b.ints, i)
	if b.dedup {
		b.intIndex[i] = idx
	}
	return packIndex(tagInt, idx)
}

func (b *Builder) lookupInt(i int64) (int, bool) {
	if b.parent != nil {
		if idx, ok := b.parent.lookupInt(i); ok {
			return idx, ok
		}
	}
	if b.intIndex == nil {
		return 0, false
	}
	idx, ok := b.intIndex[i]
	return idx, ok
}

// Float returns a floating point value.
func (b *Builder) Float(f float64) Value {
	bits := math.Float64bits(f)
	if b.dedup {
		if idx, ok := b.lookupFloat(bits); ok {
			return packIndex(tagFloat, idx)
		}
	}
	idx := b.floatOff + len(b.floats)
	b.floats = append(b.floats, f)
	if b.dedup {
		b.floatIndex[bits] = idx
	}
	return packIndex(tagFloat, idx)
}

func (b *Builder) lookupFloat(bits uint64) (int, bool) {
	if b.parent != nil {
		if idx, ok := b.parent.lookupFloat(bits); ok {
			return idx, ok
		}
	}
	if b.floatIndex == nil {
		return 0, false
	}
	idx, ok := b.floatIndex[bits]
	return idx, ok
}

// String returns an interned string value.
func (b *Builder) String(s string) Value {
	return b.StringBytes([]byte(s))
}

// StringBytes returns an interned string value from bytes.
func (b *Builder) StringBytes(s []byte) Value {
	if b.dedup {
		if idx, ok := b.findStr(string(s)); ok {
			return packIndex(tagString, idx)
		}
	}
	stored := b.arena.Store(b.strTag, s)
	idx := b.strOff + len(b.strs)
	b.strs = append(b.strs, stored)
	if b.dedup {
		b.strIndex[string(stored)] = idx
	}
	return packIndex(tagString, idx)
}

// contentKey packs handles into a dedup key.
func contentKey(items []Value) string {
	buf := make([]byte, 8*len(items))
	for i, v := range items {
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(v))
	}
	return string(buf)
}

// Sequence returns a sequence of the given items. Under dedup the
// whole content is interned: an equal sequence returns the same
// handle.
func (b *Builder) Sequence(items ...Value) Value {
	var key string
	if b.dedup {
		key = contentKey(items)
		if idx, ok := b.findSeq(key); ok {
			return packIndex(tagSequence, idx)
		}
	}
	stored := append([]Value(nil), items...)
	idx := b.seqOff + len(b.seqs)
	b.seqs = append(b.seqs, stored)
	if b.dedup {
		b.seqIndex[key] = idx
	}
	return packIndex(tagSequence, idx)
}

// Mapping returns a mapping of the given pairs, preserving their
// order.
func (b *Builder) Mapping(pairs []Pair) Value {
	var key string
	if b.dedup {
		flat := make([]Value, 0, len(pairs)*2)
		for _, p := range pairs {
			flat = append(flat, p.Key, p.Value)
		}
		key = contentKey(flat)
		if idx, ok := b.findMap(key); ok {
			return packIndex(tagMapping, idx)
		}
	}
	stored := &mappingData{pairs: append([]Pair(nil), pairs...)}
	idx := b.mapOff + len(b.maps)
	b.maps = append(b.maps, stored)
	if b.dedup {
		b.mapIndex[key] = idx
	}
	return packIndex(tagMapping, idx)
}

// Indirect wraps base with metadata. The base value is unchanged;
// queries resolve through the wrapper.
func (b *Builder) Indirect(base Value, meta Meta) Value {
	if b.dedup {
		k := indirectKey{base: base, meta: meta}
		if idx, ok := b.lookupIndirect(k); ok {
			return packIndex(tagIndirect, idx)
		}
	}
	idx := b.indirectOff + len(b.indirects)
	b.indirects = append(b.indirects, indirectData{base: base, meta: meta})
	if b.dedup {
		b.indirectIndex[indirectKey{base: base, meta: meta}] = idx
	}
	return packIndex(tagIndirect, idx)
}

func (b *Builder) lookupIndirect(k indirectKey) (int, bool) {
	if b.parent != nil {
		if idx, ok := b.parent.lookupIndirect(k); ok {
			return idx, ok
		}
	}
	if b.indirectIndex == nil {
		return 0, false
	}
	idx, ok := b.indirectIndex[k]
	return idx, ok
}

// Alias returns an unresolved alias naming an anchor. The composer
// resolves aliases before values reach callers; a leftover alias only
// appears in hand-built graphs.
func (b *Builder) Alias(name string) Value {
	if b.dedup {
		if idx, ok := b.lookupAlias(name); ok {
			return packIndex(tagAlias, idx)
		}
	}
	idx := b.aliasOff + len(b.aliases)
	b.aliases = append(b.aliases, name)
	if b.dedup {
		b.aliasIndex[name] = idx
	}
	return packIndex(tagAlias, idx)
}

func (b *Builder) lookupAlias(name string) (int, bool) {
	if b.parent != nil {
		if idx, ok := b.parent.lookupAlias(name); ok {
			return idx, ok
		}
	}
	if b.aliasIndex == nil {
		return 0, false
	}
	idx, ok := b.aliasIndex[name]
	return idx, ok
}

// Accessors.

// Resolve strips indirect wrappers, returning the base value.
func (b *Builder) Resolve(v Value) Value {
	for v.tag() == tagIndirect {
		v = b.indirectAt(v.index()).base
	}
	return v
}

// Meta returns the metadata of an indirect value, or nil.
func (b *Builder) Meta(v Value) *Meta {
	if v.tag() != tagIndirect {
		return nil
	}
	return &b.indirectAt(v.index()).meta
}

// BoolVal returns the boolean payload.
func (b *Builder) BoolVal(v Value) (value, ok bool) {
	switch b.Resolve(v).tag() {
	case tagTrue:
		return true, true
	case tagFalse:
		return false, true
	}
	return false, false
}

// IntVal returns the integer payload.
func (b *Builder) IntVal(v Value) (int64, bool) {
	v = b.Resolve(v)
	switch v.tag() {
	case tagSmallInt:
		return unpackSmallInt(v), true
	case tagInt:
		return b.intAt(v.index()), true
	}
	return 0, false
}

// FloatVal returns the float payload.
func (b *Builder) FloatVal(v Value) (float64, bool) {
	v = b.Resolve(v)
	if v.tag() != tagFloat {
		return 0, false
	}
	return b.floatAt(v.index()), true
}

// StringVal returns the string payload.
func (b *Builder) StringVal(v Value) (string, bool) {
	v = b.Resolve(v)
	if v.tag() != tagString {
		return "", false
	}
	return string(b.str(v.index())), true
}

// AliasName returns the anchor name of an alias value.
func (b *Builder) AliasName(v Value) (string, bool) {
	if v.tag() != tagAlias {
		return "", false
	}
	return b.aliasAt(v.index()), true
}

// Items returns the items of a sequence. The slice is owned by the
// builder and must not be modified.
func (b *Builder) Items(v Value) []Value {
	v = b.Resolve(v)
	if v.tag() != tagSequence {
		return nil
	}
	return b.seqAt(v.index())
}

// Pairs returns the entries of a mapping in insertion order. The slice
// is owned by the builder and must not be modified.
func (b *Builder) Pairs(v Value) []Pair {
	v = b.Resolve(v)
	if v.tag() != tagMapping {
		return nil
	}
	return b.mapAt(v.index()).pairs
}

// Len returns the size of a sequence, mapping or string, or -1.
func (b *Builder) Len(v Value) int {
	v = b.Resolve(v)
	switch v.tag() {
	case tagSequence:
		return len(b.seqAt(v.index()))
	case tagMapping:
		return len(b.mapAt(v.index()).pairs)
	case tagString:
		return len(b.str(v.index()))
	}
	return -1
}

// Get looks a value up by key. For sequences the key must be an
// integer index; for mappings a string, integer, boolean or Value key.
// Missing entries return InvalidValue.
func (b *Builder) Get(v Value, key interface{}) Value {
	v = b.Resolve(v)
	switch v.tag() {
	case tagSequence:
		idx, ok := intKey(key)
		if !ok {
			return InvalidValue
		}
		items := b.seqAt(v.index())
		if idx < 0 || idx >= int64(len(items)) {
			return InvalidValue
		}
		return items[idx]
	case tagMapping:
		return b.mappingGet(v, key)
	}
	return InvalidValue
}

func intKey(key interface{}) (int64, bool) {
	switch k := key.(type) {
	case int:
		return int64(k), true
	case int64:
		return k, true
	}
	return 0, false
}

// mappingGet builds the mapping's lookup index on first use.
func (b *Builder) mappingGet(v Value, key interface{}) Value {
	m := b.mapAt(v.index())
	if m.byHandle == nil {
		m.byHandle = make(map[Value]Value, len(m.pairs))
		m.byString = make(map[string]Value, len(m.pairs))
		// Earlier entries win so redefinitions do not shadow the
		// first occurrence.
		for i := len(m.pairs) - 1; i >= 0; i-- {
			p := m.pairs[i]
			m.byHandle[b.Resolve(p.Key)] = p.Value
			if s, ok := b.StringVal(p.Key); ok {
				m.byString[s] = p.Value
			}
		}
	}

	var handle Value
	switch k := key.(type) {
	case Value:
		handle = b.Resolve(k)
	case string:
		if out, ok := m.byString[k]; ok {
			return out
		}
		return InvalidValue
	case int:
		handle = b.Int(int64(k))
	case int64:
		handle = b.Int(k)
	case bool:
		handle = b.Bool(k)
	case float64:
		handle = b.Float(k)
	default:
		return InvalidValue
	}
	if out, ok := m.byHandle[handle]; ok {
		return out
	}
	if !b.dedup {
		// Without interning, handle identity misses structurally
		// equal keys; fall back to scanning.
		for _, p := range m.pairs {
			if b.Equal(p.Key, handle) {
				return p.Value
			}
		}
	}
	return InvalidValue
}

// Contains reports whether the sequence has an item equal to v.
func (b *Builder) Contains(seq, v Value) bool {
	for _, item := range b.Items(seq) {
		if b.Equal(item, v) {
			return true
		}
	}
	return false
}

// Equal reports structural equality, looking through indirect
// wrappers. Under dedup equal composites share handles, so the
// comparison short-circuits.
func (b *Builder) Equal(a, c Value) bool {
	a = b.Resolve(a)
	c = b.Resolve(c)
	if a == c {
		return true
	}
	if b.dedup {
		// Interning makes handle identity complete for composites.
		if a.tag() == c.tag() {
			switch a.tag() {
			case tagSequence, tagMapping, tagString, tagInt, tagFloat:
				return false
			}
		}
	}
	switch {
	case a.Kind() != c.Kind():
		return false
	case a.Kind() == KindInt:
		av, _ := b.IntVal(a)
		cv, _ := b.IntVal(c)
		return av == cv
	case a.Kind() == KindFloat:
		av, _ := b.FloatVal(a)
		cv, _ := b.FloatVal(c)
		return av == cv
	case a.Kind() == KindString:
		av, _ := b.StringVal(a)
		cv, _ := b.StringVal(c)
		return av == cv
	case a.Kind() == KindSequence:
		ai := b.Items(a)
		ci := b.Items(c)
		if len(ai) != len(ci) {
			return false
		}
		for i := range ai {
			if !b.Equal(ai[i], ci[i]) {
				return false
			}
		}
		return true
	case a.Kind() == KindMapping:
		ap := b.Pairs(a)
		cp := b.Pairs(c)
		if len(ap) != len(cp) {
			return false
		}
		for i := range ap {
			if !b.Equal(ap[i].Key, cp[i].Key) || !b.Equal(ap[i].Value, cp[i].Value) {
				return false
			}
		}
		return true
	case a.Kind() == KindAlias:
		an, _ := b.AliasName(a)
		cn, _ := b.AliasName(c)
		return an == cn
	}
	return false
}

// Internalize deep-copies a value owned by src into b, re-interning
// all content.
func (b *Builder) Internalize(src *Builder, v Value) Value {
	switch v.tag() {
	case tagNull, tagTrue, tagFalse, tagSmallInt:
		return v
	case tagInt:
		return b.Int(src.intAt(v.index()))
	case tagFloat:
		return b.Float(src.floatAt(v.index()))
	case tagString:
		return b.StringBytes(src.str(v.index()))
	case tagSequence:
		items := src.seqAt(v.index())
		out := make([]Value, len(items))
		for i, item := range items {
			out[i] = b.Internalize(src, item)
		}
		return b.Sequence(out...)
	case tagMapping:
		pairs := src.mapAt(v.index()).pairs
		out := make([]Pair, len(pairs))
		for i, p := range pairs {
			out[i] = Pair{Key: b.Internalize(src, p.Key), Value: b.Internalize(src, p.Value)}
		}
		return b.Mapping(out)
	case tagIndirect:
		data := src.indirectAt(v.index())
		return b.Indirect(b.Internalize(src, data.base), data.meta)
	case tagAlias:
		return b.Alias(src.aliasAt(v.index()))
	}
	return InvalidValue
}
