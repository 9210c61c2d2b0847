package flowyaml

import (
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/flowyaml/flowyaml/internal/resolve"
	"github.com/flowyaml/flowyaml/internal/yamlh"
)

// serializer turns a generic value or a document tree back into the
// canonical event stream.
type serializer struct {
	b   *Builder
	cfg EmitConfig

	// seen maps anchored values already emitted to their anchor, so a
	// repeated handle becomes an alias.
	seen map[Value]string
}

func newSerializer(b *Builder, cfg EmitConfig) *serializer {
	return &serializer{b: b, cfg: cfg, seen: make(map[Value]string)}
}

// valueEvents pushes the events of v into emit.
func (s *serializer) valueEvents(emit func(*Event) error, v Value) error {
	if !v.IsValid() {
		return usageError("cannot emit an invalid value")
	}

	var meta *Meta
	if v.Kind() == KindIndirect {
		meta = s.b.Meta(v)
	}

	anchor := ""
	if meta != nil && meta.Anchor != "" && !s.cfg.StripAnchors {
		if name, ok := s.seen[v]; ok {
			return emit(&Event{Kind: AliasEvent, Anchor: []byte(name)})
		}
		anchor = meta.Anchor
		s.seen[v] = anchor
	}

	tag := ""
	if meta != nil && meta.Tag != "" && !s.cfg.StripTags {
		tag = resolve.LongTag(meta.Tag)
	}

	base := s.b.Resolve(v)
	switch base.Kind() {
	case KindNull, KindBool, KindInt, KindFloat, KindString:
		return emit(s.scalarEvent(base, anchor, tag, meta))

	case KindSequence:
		style := yamlh.BlockStyle
		if meta != nil && meta.CollectionStyle == yamlh.FlowStyle {
			style = yamlh.FlowStyle
		}
		err := emit(&Event{
			Kind:            SequenceStartEvent,
			Anchor:          []byte(anchor),
			Tag:             []byte(tag),
			Implicit:        tag == "",
			CollectionStyle: style,
		})
		if err != nil {
			return err
		}
		for _, item := range s.b.Items(base) {
			if err := s.valueEvents(emit, item); err != nil {
				return err
			}
		}
		return emit(&Event{Kind: SequenceEndEvent})

	case KindMapping:
		style := yamlh.BlockStyle
		if meta != nil && meta.CollectionStyle == yamlh.FlowStyle {
			style = yamlh.FlowStyle
		}
		err := emit(&Event{
			Kind:            MappingStartEvent,
			Anchor:          []byte(anchor),
			Tag:             []byte(tag),
			Implicit:        tag == "",
			CollectionStyle: style,
		})
		if err != nil {
			return err
		}
		pairs := s.b.Pairs(base)
		if s.cfg.SortKeys {
			sorted := make([]Pair, len(pairs))
			copy(sorted, pairs)
			sort.SliceStable(sorted, func(i, j int) bool {
				return scalarKeyID(s.b, sorted[i].Key) < scalarKeyID(s.b, sorted[j].Key)
			})
			pairs = sorted
		}
		for _, p := range pairs {
			if err := s.valueEvents(emit, p.Key); err != nil {
				return err
			}
			if err := s.valueEvents(emit, p.Value); err != nil {
				return err
			}
		}
		return emit(&Event{Kind: MappingEndEvent})

	case KindAlias:
		name, _ := s.b.AliasName(base)
		return emit(&Event{Kind: AliasEvent, Anchor: []byte(name)})
	}
	return usageError("cannot emit value of kind " + base.Kind().String())
}

// scalarEvent renders one scalar value as an event, choosing a style
// that re-parses to the same value.
func (s *serializer) scalarEvent(base Value, anchor, tag string, meta *Meta) *Event {
	var text string
	style := yamlh.AnyScalarStyle
	implicit := true

	switch base.Kind() {
	case KindNull:
		text = "null"
	case KindBool:
		v, _ := s.b.BoolVal(base)
		text = strconv.FormatBool(v)
	case KindInt:
		v, _ := s.b.IntVal(base)
		text = strconv.FormatInt(v, 10)
	case KindFloat:
		v, _ := s.b.FloatVal(base)
		text = formatFloat(v)
	case KindString:
		text, _ = s.b.StringVal(base)
		// A string that resolves to another type must not go out
		// plain.
		if rtag, _, err := resolve.Resolve(resolve.Core12, "", text); err == nil && rtag != resolve.StrTag {
			style = yamlh.SingleQuotedStyle
		}
	}

	if meta != nil && meta.ScalarStyle != yamlh.AnyScalarStyle {
		style = meta.ScalarStyle
	}

	quotedImplicit := tag == ""
	if tag != "" {
		implicit = false
		quotedImplicit = false
	}
	return &Event{
		Kind:           ScalarEvent,
		Anchor:         []byte(anchor),
		Tag:            []byte(tag),
		Value:          []byte(text),
		Implicit:       implicit,
		QuotedImplicit: quotedImplicit,
		ScalarStyle:    style,
	}
}

// formatFloat renders a float so it re-parses as a float.
func formatFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return ".nan"
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	}
	text := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(text, ".eE") {
		text += ".0"
	}
	return text
}

// ---------------------------------------------------------------------------
// Document tree serialization.

// nodeEvents pushes the events of a tree node into emit.
func (s *serializer) nodeEvents(emit func(*Event) error, d *Document, n *Node) error {
	if n == nil {
		return usageError("cannot emit a nil node")
	}

	anchor := n.Anchor
	if s.cfg.StripAnchors {
		anchor = ""
	}
	comments := func(ev *Event) *Event {
		ev.HeadComment = []byte(n.HeadComment)
		ev.LineComment = []byte(n.LineComment)
		ev.FootComment = []byte(n.FootComment)
		return ev
	}

	switch n.Kind {
	case AliasNode:
		return emit(&Event{Kind: AliasEvent, Anchor: []byte(n.Value)})

	case ScalarNode:
		rtag, _, err := resolve.Resolve(resolve.Core12, "", n.Value)
		if err != nil {
			rtag = resolve.StrTag
		}
		style := n.ScalarStyle
		var tag string
		var implicit, quotedImplicit bool
		switch {
		case n.Tag == "" || n.Tag == rtag:
			// The plain text already resolves to the node's tag.
			implicit = true
			quotedImplicit = true
		case n.Tag == resolve.StrTag:
			// A string that parses as something else: quoting keeps
			// the type without an explicit tag.
			quotedImplicit = true
			if style == yamlh.AnyScalarStyle || style == yamlh.PlainStyle {
				style = yamlh.SingleQuotedStyle
			}
		case s.cfg.StripTags:
			implicit = true
			quotedImplicit = true
		default:
			tag = resolve.LongTag(n.Tag)
		}
		return emit(comments(&Event{
			Kind:           ScalarEvent,
			Anchor:         []byte(anchor),
			Tag:            []byte(tag),
			Value:          []byte(n.Value),
			Implicit:       implicit,
			QuotedImplicit: quotedImplicit,
			ScalarStyle:    style,
		}))

	case SequenceNode:
		tag := ""
		if n.Tag != "" && n.Tag != resolve.SeqTag && !s.cfg.StripTags {
			tag = resolve.LongTag(n.Tag)
		}
		err := emit(comments(&Event{
			Kind:            SequenceStartEvent,
			Anchor:          []byte(anchor),
			Tag:             []byte(tag),
			Implicit:        tag == "",
			CollectionStyle: n.CollectionStyle,
		}))
		if err != nil {
			return err
		}
		for _, c := range n.Children {
			if err := s.nodeEvents(emit, d, c); err != nil {
				return err
			}
		}
		return emit(&Event{Kind: SequenceEndEvent})

	case MappingNode:
		tag := ""
		if n.Tag != "" && n.Tag != resolve.MapTag && !s.cfg.StripTags {
			tag = resolve.LongTag(n.Tag)
		}
		err := emit(comments(&Event{
			Kind:            MappingStartEvent,
			Anchor:          []byte(anchor),
			Tag:             []byte(tag),
			Implicit:        tag == "",
			CollectionStyle: n.CollectionStyle,
		}))
		if err != nil {
			return err
		}
		pairs := n.Pairs
		if s.cfg.SortKeys {
			sorted := make([]NodePair, len(pairs))
			copy(sorted, pairs)
			sort.SliceStable(sorted, func(i, j int) bool {
				return sorted[i].Key.Value < sorted[j].Key.Value
			})
			pairs = sorted
		}
		for _, p := range pairs {
			if err := s.nodeEvents(emit, d, p.Key); err != nil {
				return err
			}
			if err := s.nodeEvents(emit, d, p.Value); err != nil {
				return err
			}
		}
		return emit(&Event{Kind: MappingEndEvent})
	}
	return usageError("cannot emit node of kind " + n.Kind.String())
}
