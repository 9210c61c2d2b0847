package flowyaml

import (
	"fmt"
	"math"
	"strconv"

	"github.com/flowyaml/flowyaml/internal/resolve"
	"github.com/flowyaml/flowyaml/internal/yamlh"
)

// composer folds the event stream into a Document tree or an interned
// generic value.
type composer struct {
	p        *Parser
	event    *Event
	maxDepth int
}

func newComposer(p *Parser, maxDepth int) *composer {
	if maxDepth <= 0 {
		maxDepth = defaultMaxDepth
	}
	return &composer{p: p, maxDepth: maxDepth}
}

// peek returns the pending event, pulling the next one if needed.
func (c *composer) peek() (*Event, error) {
	if c.event != nil {
		return c.event, nil
	}
	ev, err := c.p.Next()
	if err != nil {
		return nil, err
	}
	c.event = ev
	return ev, nil
}

// next consumes the pending event.
func (c *composer) next() (*Event, error) {
	ev, err := c.peek()
	if err != nil {
		return nil, err
	}
	c.event = nil
	return ev, nil
}

// expect consumes an event of the given kind.
func (c *composer) expect(kind EventKind) (*Event, error) {
	ev, err := c.next()
	if err != nil {
		return nil, err
	}
	if ev.Kind != kind {
		return nil, composerError(fmt.Sprintf("expected %v event but got %v", kind, ev.Kind), ev.Start)
	}
	return ev, nil
}

// mergeAllowed reports whether "<<" merge keys apply to the document.
// Merging is the 1.1 behavior; it stays on for documents that never
// declare a version, and turns off under an explicit %YAML 1.2+.
func mergeAllowed(doc *yamlh.DocumentState) bool {
	if doc == nil {
		return true
	}
	return !doc.Explicit || doc.MergeKeys()
}

func resolveMode(doc *yamlh.DocumentState) resolve.Mode {
	if doc != nil && doc.Explicit && doc.MergeKeys() {
		return resolve.Legacy11
	}
	return resolve.Core12
}

// ---------------------------------------------------------------------------
// Document tree composition.

type docComposer struct {
	*composer
	doc *Document

	// pending marks anchors whose node is still being built, so an
	// alias inside its own definition fails instead of resolving to
	// the half-finished node.
	pending map[string]bool
	depth   int
}

// composeDocument folds one document's events into a tree. It returns
// nil at stream end.
func (c *composer) composeDocument() (*Document, error) {
	for {
		ev, err := c.peek()
		if err != nil {
			return nil, err
		}
		switch ev.Kind {
		case StreamStartEvent:
			c.event = nil
			continue
		case StreamEndEvent, NoEvent:
			return nil, nil
		case DocumentStartEvent:
			dc := &docComposer{
				composer: c,
				doc:      &Document{State: ev.State},
				pending:  make(map[string]bool),
			}
			return dc.document()
		default:
			return nil, composerError(fmt.Sprintf("unexpected %v event", ev.Kind), ev.Start)
		}
	}
}

func (dc *docComposer) document() (*Document, error) {
	ev, err := dc.expect(DocumentStartEvent)
	if err != nil {
		return nil, err
	}
	dc.doc.State = ev.State

	root, err := dc.node()
	if err != nil {
		return nil, err
	}
	dc.doc.Root = root

	ev, err = dc.peek()
	if err != nil {
		return nil, err
	}
	if ev.Kind == DocumentEndEvent && len(ev.FootComment) > 0 {
		root.FootComment = string(ev.FootComment)
	}
	if _, err = dc.expect(DocumentEndEvent); err != nil {
		return nil, err
	}
	return dc.doc, nil
}

func (dc *docComposer) node() (*Node, error) {
	ev, err := dc.peek()
	if err != nil {
		return nil, err
	}
	dc.depth++
	if dc.depth > dc.maxDepth {
		return nil, composerError(fmt.Sprintf("exceeded max depth of %d", dc.maxDepth), ev.Start)
	}
	defer func() { dc.depth-- }()

	switch ev.Kind {
	case ScalarEvent:
		return dc.scalar()
	case AliasEvent:
		return dc.alias()
	case SequenceStartEvent:
		return dc.sequence()
	case MappingStartEvent:
		return dc.mapping()
	default:
		return nil, composerError(fmt.Sprintf("unexpected %v event", ev.Kind), ev.Start)
	}
}

// newNode fills the common fields from the event.
func (dc *docComposer) newNode(kind NodeKind, ev *Event) *Node {
	n := &Node{
		Kind:        kind,
		Line:        ev.Start.Line,
		Column:      ev.Start.Column,
		Offset:      ev.Start.Index,
		HeadComment: string(ev.HeadComment),
		LineComment: string(ev.LineComment),
		FootComment: string(ev.FootComment),
	}
	if len(ev.Anchor) > 0 && kind != AliasNode {
		dc.doc.SetAnchor(string(ev.Anchor), n)
	}
	return n
}

func (dc *docComposer) scalar() (*Node, error) {
	ev, err := dc.next()
	if err != nil {
		return nil, err
	}
	n := dc.newNode(ScalarNode, ev)
	n.Value = string(ev.Value)
	n.ScalarStyle = ev.ScalarStyle

	tag := string(ev.Tag)
	switch {
	case tag != "" && tag != "!":
		n.Tag = resolve.ShortTag(tag)
	case ev.ScalarStyle != yamlh.PlainStyle && ev.ScalarStyle != yamlh.AnyScalarStyle:
		n.Tag = resolve.StrTag
	default:
		rtag, _, err := resolve.Resolve(resolveMode(dc.doc.State), "", n.Value)
		if err != nil {
			return nil, err
		}
		n.Tag = rtag
	}
	return n, nil
}

func (dc *docComposer) alias() (*Node, error) {
	ev, err := dc.next()
	if err != nil {
		return nil, err
	}
	name := string(ev.Anchor)
	if dc.pending[name] {
		return nil, composerError(fmt.Sprintf("anchor '%s' refers to itself", name), ev.Start)
	}
	if dc.doc.Anchor(name) == nil {
		return nil, composerError(fmt.Sprintf("unknown anchor '%s' referenced", name), ev.Start)
	}
	n := dc.newNode(AliasNode, ev)
	n.Value = name
	return n, nil
}

func (dc *docComposer) sequence() (*Node, error) {
	ev, err := dc.next()
	if err != nil {
		return nil, err
	}
	n := dc.newNode(SequenceNode, ev)
	n.Tag = resolve.SeqTag
	if tag := string(ev.Tag); tag != "" && tag != "!" {
		n.Tag = resolve.ShortTag(tag)
	}
	n.CollectionStyle = ev.CollectionStyle
	if name := string(ev.Anchor); name != "" {
		dc.pending[name] = true
		defer delete(dc.pending, name)
	}

	for {
		next, err := dc.peek()
		if err != nil {
			return nil, err
		}
		if next.Kind == SequenceEndEvent {
			break
		}
		child, err := dc.node()
		if err != nil {
			return nil, err
		}
		n.Append(child)
	}
	end, err := dc.expect(SequenceEndEvent)
	if err != nil {
		return nil, err
	}
	if len(end.LineComment) > 0 {
		n.LineComment = string(end.LineComment)
	}
	if len(end.FootComment) > 0 {
		n.FootComment = string(end.FootComment)
	}
	return n, nil
}

func (dc *docComposer) mapping() (*Node, error) {
	ev, err := dc.next()
	if err != nil {
		return nil, err
	}
	n := dc.newNode(MappingNode, ev)
	n.Tag = resolve.MapTag
	if tag := string(ev.Tag); tag != "" && tag != "!" {
		n.Tag = resolve.ShortTag(tag)
	}
	n.CollectionStyle = ev.CollectionStyle
	if name := string(ev.Anchor); name != "" {
		dc.pending[name] = true
		defer delete(dc.pending, name)
	}

	block := ev.CollectionStyle != yamlh.FlowStyle
	for {
		next, err := dc.peek()
		if err != nil {
			return nil, err
		}
		if next.Kind == MappingEndEvent {
			break
		}
		if next.Kind == TailCommentEvent {
			tail, _ := dc.next()
			if len(n.Pairs) > 0 && n.Pairs[len(n.Pairs)-1].Key.FootComment == "" {
				n.Pairs[len(n.Pairs)-1].Key.FootComment = string(tail.FootComment)
			}
			continue
		}

		key, err := dc.node()
		if err != nil {
			return nil, err
		}
		if block && key.FootComment != "" && len(n.Pairs) > 0 {
			// A foot comment seen while dedenting belongs to the
			// prior value.
			n.Pairs[len(n.Pairs)-1].Value.FootComment = key.FootComment
			key.FootComment = ""
		}
		value, err := dc.node()
		if err != nil {
			return nil, err
		}
		if key.FootComment == "" && value.FootComment != "" {
			key.FootComment = value.FootComment
			value.FootComment = ""
		}
		n.AppendPair(key, value)
	}
	end, err := dc.expect(MappingEndEvent)
	if err != nil {
		return nil, err
	}
	if len(end.LineComment) > 0 {
		n.LineComment = string(end.LineComment)
	}
	if len(end.FootComment) > 0 && block && len(n.Pairs) > 0 {
		n.Pairs[len(n.Pairs)-1].Value.FootComment = string(end.FootComment)
	} else if len(end.FootComment) > 0 {
		n.FootComment = string(end.FootComment)
	}
	return n, nil
}

// ---------------------------------------------------------------------------
// Generic value composition.

type valueComposer struct {
	*composer
	b *Builder

	doc     *yamlh.DocumentState
	anchors map[string]Value
	pending map[string]bool
	depth   int
}

// composeValue folds one document's events into a generic value. It
// returns InvalidValue at stream end.
func (c *composer) composeValue(b *Builder) (Value, error) {
	for {
		ev, err := c.peek()
		if err != nil {
			return InvalidValue, err
		}
		switch ev.Kind {
		case StreamStartEvent:
			c.event = nil
			continue
		case StreamEndEvent, NoEvent:
			return InvalidValue, nil
		case DocumentStartEvent:
			vc := &valueComposer{
				composer: c,
				b:        b,
				doc:      ev.State,
				anchors:  make(map[string]Value),
				pending:  make(map[string]bool),
			}
			return vc.document()
		default:
			return InvalidValue, composerError(fmt.Sprintf("unexpected %v event", ev.Kind), ev.Start)
		}
	}
}

func (vc *valueComposer) document() (Value, error) {
	if _, err := vc.expect(DocumentStartEvent); err != nil {
		return InvalidValue, err
	}
	root, err := vc.value()
	if err != nil {
		return InvalidValue, err
	}
	if _, err = vc.expect(DocumentEndEvent); err != nil {
		return InvalidValue, err
	}
	return root, nil
}

func (vc *valueComposer) value() (Value, error) {
	ev, err := vc.peek()
	if err != nil {
		return InvalidValue, err
	}
	vc.depth++
	if vc.depth > vc.maxDepth {
		return InvalidValue, composerError(fmt.Sprintf("exceeded max depth of %d", vc.maxDepth), ev.Start)
	}
	defer func() { vc.depth-- }()

	switch ev.Kind {
	case ScalarEvent:
		return vc.scalar()
	case AliasEvent:
		return vc.alias()
	case SequenceStartEvent:
		return vc.sequence()
	case MappingStartEvent:
		return vc.mapping()
	default:
		return InvalidValue, composerError(fmt.Sprintf("unexpected %v event", ev.Kind), ev.Start)
	}
}

// bind registers an anchored value under its name.
func (vc *valueComposer) bind(anchor []byte, v Value) {
	if len(anchor) > 0 {
		vc.anchors[string(anchor)] = v
	}
}

// wrap adds an indirect wrapper when the event carries metadata worth
// keeping: an anchor, an explicit tag, a non-default style. The mark
// rides along on wrapped values only, so bare scalars stay shareable.
func (vc *valueComposer) wrap(base Value, ev *Event, meta Meta) Value {
	if meta.empty() {
		return base
	}
	meta.Mark = ev.Start
	return vc.b.Indirect(base, meta)
}

func (vc *valueComposer) scalar() (Value, error) {
	ev, err := vc.next()
	if err != nil {
		return InvalidValue, err
	}
	text := string(ev.Value)
	tag := string(ev.Tag)

	var base Value
	var resolvedTag string
	switch {
	case tag != "" && tag != "!":
		rtag, out, err := resolve.Resolve(resolveMode(vc.doc), tag, text)
		if err != nil {
			return InvalidValue, composerError(err.Error(), ev.Start)
		}
		base = vc.typed(rtag, out, text)
		resolvedTag = resolve.ShortTag(tag)
	case ev.ScalarStyle != yamlh.PlainStyle && ev.ScalarStyle != yamlh.AnyScalarStyle:
		base = vc.b.String(text)
	default:
		rtag, out, err := resolve.Resolve(resolveMode(vc.doc), "", text)
		if err != nil {
			return InvalidValue, composerError(err.Error(), ev.Start)
		}
		base = vc.typed(rtag, out, text)
	}

	meta := Meta{Anchor: string(ev.Anchor)}
	if resolvedTag != "" && resolvedTag != resolve.StrTag {
		meta.Tag = resolvedTag
	}
	if ev.ScalarStyle != yamlh.PlainStyle && ev.ScalarStyle != yamlh.AnyScalarStyle {
		meta.ScalarStyle = ev.ScalarStyle
	}
	out := vc.wrap(base, ev, meta)
	vc.bind(ev.Anchor, out)
	return out, nil
}

// typed maps a resolved scalar to its store value.
func (vc *valueComposer) typed(rtag string, out interface{}, text string) Value {
	switch v := out.(type) {
	case nil:
		return vc.b.Null()
	case bool:
		return vc.b.Bool(v)
	case int64:
		return vc.b.Int(v)
	case int:
		return vc.b.Int(int64(v))
	case uint64:
		if v <= math.MaxInt64 {
			return vc.b.Int(int64(v))
		}
		// Out of int64 range; keep the text form.
		return vc.b.String(text)
	case float64:
		return vc.b.Float(v)
	case string:
		return vc.b.String(v)
	default:
		// Timestamps and other resolved types keep their text form.
		return vc.b.String(text)
	}
}

// scalarKeyID is a canonical identity for shadowing and merge
// bookkeeping; it stays meaningful without interning.
func scalarKeyID(b *Builder, v Value) string {
	v = b.Resolve(v)
	switch v.Kind() {
	case KindString:
		s, _ := b.StringVal(v)
		return "s:" + s
	case KindInt:
		i, _ := b.IntVal(v)
		return "i:" + strconv.FormatInt(i, 10)
	case KindFloat:
		f, _ := b.FloatVal(v)
		return "f:" + strconv.FormatFloat(f, 'g', -1, 64)
	case KindBool:
		t, _ := b.BoolVal(v)
		return "b:" + strconv.FormatBool(t)
	case KindNull:
		return "n:"
	}
	return "h:" + strconv.FormatUint(uint64(v), 16)
}

func (vc *valueComposer) alias() (Value, error) {
	ev, err := vc.next()
	if err != nil {
		return InvalidValue, err
	}
	name := string(ev.Anchor)
	if vc.pending[name] {
		return InvalidValue, composerError(fmt.Sprintf("anchor '%s' refers to itself", name), ev.Start)
	}
	v, ok := vc.anchors[name]
	if !ok {
		return InvalidValue, composerError(fmt.Sprintf("unknown anchor '%s' referenced", name), ev.Start)
	}
	return v, nil
}

func (vc *valueComposer) sequence() (Value, error) {
	ev, err := vc.next()
	if err != nil {
		return InvalidValue, err
	}
	anchor := string(ev.Anchor)
	if anchor != "" {
		vc.pending[anchor] = true
		defer delete(vc.pending, anchor)
	}

	var items []Value
	for {
		next, err := vc.peek()
		if err != nil {
			return InvalidValue, err
		}
		if next.Kind == SequenceEndEvent {
			break
		}
		item, err := vc.value()
		if err != nil {
			return InvalidValue, err
		}
		items = append(items, item)
	}
	if _, err = vc.expect(SequenceEndEvent); err != nil {
		return InvalidValue, err
	}

	base := vc.b.Sequence(items...)
	meta := Meta{Anchor: anchor}
	if tag := string(ev.Tag); tag != "" && tag != "!" && resolve.ShortTag(tag) != resolve.SeqTag {
		meta.Tag = resolve.ShortTag(tag)
	}
	if ev.CollectionStyle == yamlh.FlowStyle {
		meta.CollectionStyle = ev.CollectionStyle
	}
	out := vc.wrap(base, ev, meta)
	vc.bind(ev.Anchor, out)
	return out, nil
}

func (vc *valueComposer) mapping() (Value, error) {
	ev, err := vc.next()
	if err != nil {
		return InvalidValue, err
	}
	anchor := string(ev.Anchor)
	if anchor != "" {
		vc.pending[anchor] = true
		defer delete(vc.pending, anchor)
	}

	type rawPair struct {
		key, value Value
		merge      bool
	}
	var raw []rawPair
	merge := mergeAllowed(vc.doc)
	for {
		next, err := vc.peek()
		if err != nil {
			return InvalidValue, err
		}
		if next.Kind == MappingEndEvent {
			break
		}
		if next.Kind == TailCommentEvent {
			vc.event = nil
			continue
		}

		isMerge := false
		if next.Kind == ScalarEvent {
			keyTag := string(next.Tag)
			if resolve.ShortTag(keyTag) == resolve.MergeTag ||
				(merge && keyTag == "" && string(next.Value) == "<<" &&
					(next.ScalarStyle == yamlh.PlainStyle || next.ScalarStyle == yamlh.AnyScalarStyle)) {
				isMerge = true
			}
		}

		key, err := vc.value()
		if err != nil {
			return InvalidValue, err
		}
		value, err := vc.value()
		if err != nil {
			return InvalidValue, err
		}
		raw = append(raw, rawPair{key: key, value: value, merge: isMerge})
	}
	if _, err = vc.expect(MappingEndEvent); err != nil {
		return InvalidValue, err
	}

	// Merge expansion. Explicit keys always win; merged keys land at
	// the position of their "<<" entry; with a sequence of sources,
	// earlier sources take precedence over later ones.
	explicit := make(map[string]bool)
	for _, p := range raw {
		if !p.merge {
			explicit[scalarKeyID(vc.b, p.key)] = true
		}
	}
	var pairs []Pair
	added := make(map[string]int) // key identity -> index in pairs
	appendPair := func(key, value Value, overwrite bool) {
		rk := scalarKeyID(vc.b, key)
		if i, ok := added[rk]; ok {
			if overwrite {
				pairs[i].Value = value
			}
			return
		}
		added[rk] = len(pairs)
		pairs = append(pairs, Pair{Key: key, Value: value})
	}
	for _, p := range raw {
		if !p.merge {
			appendPair(p.key, p.value, true)
			continue
		}
		sources := []Value{p.value}
		if vc.b.Resolve(p.value).Kind() == KindSequence {
			sources = vc.b.Items(p.value)
		}
		for _, src := range sources {
			if vc.b.Resolve(src).Kind() != KindMapping {
				return InvalidValue, composerError("map merge requires map or sequence of maps as the value", ev.Start)
			}
			for _, mp := range vc.b.Pairs(src) {
				if explicit[scalarKeyID(vc.b, mp.Key)] {
					continue
				}
				appendPair(mp.Key, mp.Value, false)
			}
		}
	}

	base := vc.b.Mapping(pairs)
	meta := Meta{Anchor: anchor}
	if tag := string(ev.Tag); tag != "" && tag != "!" && resolve.ShortTag(tag) != resolve.MapTag {
		meta.Tag = resolve.ShortTag(tag)
	}
	if ev.CollectionStyle == yamlh.FlowStyle {
		meta.CollectionStyle = ev.CollectionStyle
	}
	out := vc.wrap(base, ev, meta)
	vc.bind(ev.Anchor, out)
	return out, nil
}

// ---------------------------------------------------------------------------
// Cross-representation equality.

// EqualNodeValue compares a document tree against a generic value.
// It is defined for alias-free trees; style hints and comments are
// ignored, scalar text compares after resolution.
func EqualNodeValue(b *Builder, n *Node, v Value) bool {
	if n == nil {
		return !v.IsValid()
	}
	v = b.Resolve(v)
	switch n.Kind {
	case ScalarNode:
		_, out, err := resolve.Resolve(resolve.Core12, n.Tag, n.Value)
		if err != nil {
			return false
		}
		switch typed := out.(type) {
		case nil:
			return v.Kind() == KindNull
		case bool:
			got, ok := b.BoolVal(v)
			return ok && got == typed
		case int:
			got, ok := b.IntVal(v)
			return ok && got == int64(typed)
		case int64:
			got, ok := b.IntVal(v)
			return ok && got == typed
		case float64:
			got, ok := b.FloatVal(v)
			return ok && got == typed
		case string:
			got, ok := b.StringVal(v)
			return ok && got == typed
		default:
			got, ok := b.StringVal(v)
			return ok && got == n.Value
		}
	case SequenceNode:
		items := b.Items(v)
		if v.Kind() != KindSequence || len(items) != len(n.Children) {
			return false
		}
		for i, child := range n.Children {
			if !EqualNodeValue(b, child, items[i]) {
				return false
			}
		}
		return true
	case MappingNode:
		pairs := b.Pairs(v)
		if v.Kind() != KindMapping || len(pairs) != len(n.Pairs) {
			return false
		}
		for i, p := range n.Pairs {
			if !EqualNodeValue(b, p.Key, pairs[i].Key) || !EqualNodeValue(b, p.Value, pairs[i].Value) {
				return false
			}
		}
		return true
	}
	return false
}
