package emit

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowyaml/flowyaml/internal/yamlh"
)

func scalar(value string, style yamlh.ScalarStyle) *yamlh.Event {
	return &yamlh.Event{
		Kind:           yamlh.ScalarEvent,
		Value:          []byte(value),
		Implicit:       true,
		QuotedImplicit: true,
		ScalarStyle:    style,
	}
}

func run(t *testing.T, o Options, events []*yamlh.Event) string {
	t.Helper()
	var buf bytes.Buffer
	e := New(&buf, o)
	for _, ev := range events {
		require.NoError(t, e.Emit(ev))
	}
	return buf.String()
}

func stream(inner ...*yamlh.Event) []*yamlh.Event {
	events := []*yamlh.Event{
		{Kind: yamlh.StreamStartEvent, Encoding: yamlh.UTF8Encoding},
		{Kind: yamlh.DocumentStartEvent, Implicit: true},
	}
	events = append(events, inner...)
	events = append(events,
		&yamlh.Event{Kind: yamlh.DocumentEndEvent, Implicit: true},
		&yamlh.Event{Kind: yamlh.StreamEndEvent},
	)
	return events
}

func TestEmitScalarDocument(t *testing.T) {
	out := run(t, Options{}, stream(scalar("hello", yamlh.PlainStyle)))
	require.Equal(t, "hello\n", out)
}

func TestEmitBlockMapping(t *testing.T) {
	out := run(t, Options{}, stream(
		&yamlh.Event{Kind: yamlh.MappingStartEvent, Implicit: true, CollectionStyle: yamlh.BlockStyle},
		scalar("a", yamlh.PlainStyle),
		scalar("1", yamlh.PlainStyle),
		scalar("b", yamlh.PlainStyle),
		scalar("2", yamlh.PlainStyle),
		&yamlh.Event{Kind: yamlh.MappingEndEvent},
	))
	require.Equal(t, "a: 1\nb: 2\n", out)
}

func TestEmitBlockSequence(t *testing.T) {
	out := run(t, Options{}, stream(
		&yamlh.Event{Kind: yamlh.SequenceStartEvent, Implicit: true, CollectionStyle: yamlh.BlockStyle},
		scalar("a", yamlh.PlainStyle),
		scalar("b", yamlh.PlainStyle),
		&yamlh.Event{Kind: yamlh.SequenceEndEvent},
	))
	require.Equal(t, "- a\n- b\n", out)
}

func TestEmitFlowSequence(t *testing.T) {
	out := run(t, Options{}, stream(
		&yamlh.Event{Kind: yamlh.SequenceStartEvent, Implicit: true, CollectionStyle: yamlh.FlowStyle},
		scalar("1", yamlh.PlainStyle),
		scalar("2", yamlh.PlainStyle),
		&yamlh.Event{Kind: yamlh.MappingStartEvent, Implicit: true, CollectionStyle: yamlh.FlowStyle},
		scalar("a", yamlh.PlainStyle),
		scalar("b", yamlh.PlainStyle),
		&yamlh.Event{Kind: yamlh.MappingEndEvent},
		&yamlh.Event{Kind: yamlh.SequenceEndEvent},
	))
	require.Equal(t, "[1, 2, {a: b}]\n", out)
}

func TestEmitAnchorsAndAliases(t *testing.T) {
	out := run(t, Options{}, stream(
		&yamlh.Event{Kind: yamlh.MappingStartEvent, Implicit: true, CollectionStyle: yamlh.BlockStyle},
		scalar("a", yamlh.PlainStyle),
		&yamlh.Event{
			Kind:           yamlh.ScalarEvent,
			Anchor:         []byte("x"),
			Value:          []byte("1"),
			Implicit:       true,
			QuotedImplicit: true,
			ScalarStyle:    yamlh.PlainStyle,
		},
		scalar("b", yamlh.PlainStyle),
		&yamlh.Event{Kind: yamlh.AliasEvent, Anchor: []byte("x")},
		&yamlh.Event{Kind: yamlh.MappingEndEvent},
	))
	require.Equal(t, "a: &x 1\nb: *x\n", out)
}

func TestEmitScalarStyles(t *testing.T) {
	tests := []struct {
		style yamlh.ScalarStyle
		value string
		want  string
	}{
		{yamlh.PlainStyle, "plain", "plain\n"},
		{yamlh.SingleQuotedStyle, "quoted", "'quoted'\n"},
		{yamlh.DoubleQuotedStyle, "quoted", "\"quoted\"\n"},
		{yamlh.LiteralStyle, "line1\nline2\n", "|\n  line1\n  line2\n"},
	}
	for _, tt := range tests {
		out := run(t, Options{}, stream(scalar(tt.value, tt.style)))
		require.Equal(t, tt.want, out, "style %v", tt.style)
	}
}

func TestEmitUnrepresentablePlainEscalates(t *testing.T) {
	// A value with a leading space cannot stay plain.
	out := run(t, Options{}, stream(scalar(" padded", yamlh.PlainStyle)))
	require.Equal(t, "' padded'\n", out)

	// Control characters force double quoting.
	out = run(t, Options{}, stream(scalar("a\x01b", yamlh.PlainStyle)))
	require.Equal(t, "\"a\\x01b\"\n", out)
}

func TestEmitExplicitMarkers(t *testing.T) {
	events := []*yamlh.Event{
		{Kind: yamlh.StreamStartEvent, Encoding: yamlh.UTF8Encoding},
		{Kind: yamlh.DocumentStartEvent},
		scalar("a", yamlh.PlainStyle),
		{Kind: yamlh.DocumentEndEvent},
		{Kind: yamlh.StreamEndEvent},
	}
	out := run(t, Options{}, events)
	require.Equal(t, "--- a\n...\n", out)
}

func TestEmitMarkerPolicyOn(t *testing.T) {
	out := run(t, Options{DocumentMarkers: MarkerOn}, stream(scalar("a", yamlh.PlainStyle)))
	require.Equal(t, "--- a\n", out)
}

func TestEmitVersionDirective(t *testing.T) {
	doc := &yamlh.DocumentState{
		Version:  yamlh.VersionDirective{Major: 1, Minor: 1},
		Explicit: true,
	}
	events := []*yamlh.Event{
		{Kind: yamlh.StreamStartEvent, Encoding: yamlh.UTF8Encoding},
		{Kind: yamlh.DocumentStartEvent, Implicit: true, State: doc},
		scalar("a", yamlh.PlainStyle),
		{Kind: yamlh.DocumentEndEvent, Implicit: true},
		{Kind: yamlh.StreamEndEvent},
	}
	out := run(t, Options{}, events)
	require.Equal(t, "%YAML 1.1\n--- a\n", out)
}

func TestEmitIndentOption(t *testing.T) {
	inner := []*yamlh.Event{
		{Kind: yamlh.MappingStartEvent, Implicit: true, CollectionStyle: yamlh.BlockStyle},
		scalar("a", yamlh.PlainStyle),
		{Kind: yamlh.MappingStartEvent, Implicit: true, CollectionStyle: yamlh.BlockStyle},
		scalar("b", yamlh.PlainStyle),
		scalar("1", yamlh.PlainStyle),
		{Kind: yamlh.MappingEndEvent},
		{Kind: yamlh.MappingEndEvent},
	}
	out := run(t, Options{Indent: 4}, stream(inner...))
	require.Equal(t, "a:\n    b: 1\n", out)
}

func TestEmitJSON(t *testing.T) {
	inner := []*yamlh.Event{
		{Kind: yamlh.MappingStartEvent, Implicit: true, CollectionStyle: yamlh.FlowStyle},
		{Kind: yamlh.ScalarEvent, Value: []byte("n"), Implicit: true, QuotedImplicit: true, ScalarStyle: yamlh.DoubleQuotedStyle},
		scalar("1.5", yamlh.PlainStyle),
		{Kind: yamlh.ScalarEvent, Value: []byte("s"), Implicit: true, QuotedImplicit: true, ScalarStyle: yamlh.DoubleQuotedStyle},
		{Kind: yamlh.ScalarEvent, Value: []byte("hi"), Implicit: true, QuotedImplicit: true, ScalarStyle: yamlh.DoubleQuotedStyle},
		{Kind: yamlh.ScalarEvent, Value: []byte("l"), Implicit: true, QuotedImplicit: true, ScalarStyle: yamlh.DoubleQuotedStyle},
		{Kind: yamlh.SequenceStartEvent, Implicit: true, CollectionStyle: yamlh.FlowStyle},
		scalar("true", yamlh.PlainStyle),
		scalar("null", yamlh.PlainStyle),
		{Kind: yamlh.SequenceEndEvent},
		{Kind: yamlh.MappingEndEvent},
	}
	out := run(t, Options{Mode: JSON}, stream(inner...))
	want := "{\n  \"n\": 1.5,\n  \"s\": \"hi\",\n  \"l\": [\n    true,\n    null\n  ]\n}"
	require.Equal(t, want, out)
}

func TestEmitJSONOneline(t *testing.T) {
	inner := []*yamlh.Event{
		{Kind: yamlh.MappingStartEvent, Implicit: true, CollectionStyle: yamlh.FlowStyle},
		scalar("a", yamlh.PlainStyle),
		scalar("1", yamlh.PlainStyle),
		scalar("b", yamlh.PlainStyle),
		{Kind: yamlh.SequenceStartEvent, Implicit: true, CollectionStyle: yamlh.FlowStyle},
		scalar("x", yamlh.PlainStyle),
		{Kind: yamlh.SequenceEndEvent},
		{Kind: yamlh.MappingEndEvent},
	}
	out := run(t, Options{Mode: JSONOneline}, stream(inner...))
	require.Equal(t, `{"a":1,"b":["x"]}`, out)
}

func TestEmitJSONTypePreserving(t *testing.T) {
	dq := func(v string) *yamlh.Event {
		return &yamlh.Event{
			Kind:           yamlh.ScalarEvent,
			Value:          []byte(v),
			Implicit:       true,
			QuotedImplicit: true,
			ScalarStyle:    yamlh.DoubleQuotedStyle,
		}
	}
	inner := []*yamlh.Event{
		{Kind: yamlh.MappingStartEvent, Implicit: true, CollectionStyle: yamlh.FlowStyle},
		dq("hex"), scalar("0x10", yamlh.PlainStyle),
		dq("sep"), scalar("1_000", yamlh.PlainStyle),
		dq("flag"), scalar("True", yamlh.PlainStyle),
		dq("quoted"), dq("17"),
		dq("inf"), scalar(".inf", yamlh.PlainStyle),
		{Kind: yamlh.MappingEndEvent},
	}
	out := run(t, Options{Mode: JSONTypePreserving}, stream(inner...))
	want := "{\n  \"hex\": 16,\n  \"sep\": 1000,\n  \"flag\": true,\n  \"quoted\": \"17\",\n  \"inf\": \".inf\"\n}"
	require.Equal(t, want, out)

	// Plain JSON mode keeps the non-JSON spellings as strings.
	out = run(t, Options{Mode: JSON}, stream(
		scalar("0x10", yamlh.PlainStyle),
	))
	require.Equal(t, `"0x10"`, out)
}

func TestEmitDeJSONPretty(t *testing.T) {
	dq := func(v string) *yamlh.Event {
		return &yamlh.Event{
			Kind:           yamlh.ScalarEvent,
			Value:          []byte(v),
			Implicit:       true,
			QuotedImplicit: true,
			ScalarStyle:    yamlh.DoubleQuotedStyle,
		}
	}
	inner := []*yamlh.Event{
		{Kind: yamlh.MappingStartEvent, Implicit: true, CollectionStyle: yamlh.FlowStyle},
		dq("a"), dq("hello"),
		dq("n"), dq("17"),
		dq("l"),
		{Kind: yamlh.SequenceStartEvent, Implicit: true, CollectionStyle: yamlh.FlowStyle},
		scalar("1", yamlh.PlainStyle),
		scalar("2", yamlh.PlainStyle),
		{Kind: yamlh.SequenceEndEvent},
		{Kind: yamlh.MappingEndEvent},
	}
	out := run(t, Options{Mode: DeJSONPretty}, stream(inner...))
	// Collections go block; quotes drop except where they keep "17" a
	// string.
	require.Equal(t, "a: hello\nn: \"17\"\nl:\n  - 1\n  - 2\n", out)
}

func TestEmitJSONQuotesNonJSONScalars(t *testing.T) {
	out := run(t, Options{Mode: JSON}, stream(scalar("hello there", yamlh.PlainStyle)))
	require.Equal(t, `"hello there"`, out)

	// A number that fails the JSON grammar is quoted.
	out = run(t, Options{Mode: JSON}, stream(scalar("0x10", yamlh.PlainStyle)))
	require.Equal(t, `"0x10"`, out)
}

func TestEmitJSONRejectsAliases(t *testing.T) {
	var buf bytes.Buffer
	e := New(&buf, Options{Mode: JSON})
	require.NoError(t, e.Emit(&yamlh.Event{Kind: yamlh.StreamStartEvent}))
	require.NoError(t, e.Emit(&yamlh.Event{Kind: yamlh.DocumentStartEvent, Implicit: true}))
	err := e.Emit(&yamlh.Event{Kind: yamlh.AliasEvent, Anchor: []byte("x")})
	require.Error(t, err)
	// The error is terminal.
	require.Error(t, e.Emit(&yamlh.Event{Kind: yamlh.StreamEndEvent}))
}

func TestEmitBlockForcedMode(t *testing.T) {
	inner := []*yamlh.Event{
		{Kind: yamlh.SequenceStartEvent, Implicit: true, CollectionStyle: yamlh.FlowStyle},
		scalar("1", yamlh.PlainStyle),
		scalar("2", yamlh.PlainStyle),
		{Kind: yamlh.SequenceEndEvent},
	}
	out := run(t, Options{Mode: BlockForced}, stream(inner...))
	require.Equal(t, "- 1\n- 2\n", out)
}

func TestEmitFlowForcedMode(t *testing.T) {
	inner := []*yamlh.Event{
		{Kind: yamlh.SequenceStartEvent, Implicit: true, CollectionStyle: yamlh.BlockStyle},
		scalar("1", yamlh.PlainStyle),
		scalar("2", yamlh.PlainStyle),
		{Kind: yamlh.SequenceEndEvent},
	}
	out := run(t, Options{Mode: FlowForced}, stream(inner...))
	require.Equal(t, "[1, 2]\n", out)
}
