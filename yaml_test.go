package flowyaml

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rogpeppe/go-internal/txtar"
	"github.com/stretchr/testify/require"
)

// canonPair and canon reduce a value graph to a plain Go form with
// styles, marks and anchors erased, so two parses compare under
// canonical equivalence.
type canonPair struct {
	Key, Val any
}

func canon(b *Builder, v Value) any {
	v = b.Resolve(v)
	switch v.Kind() {
	case KindNull:
		return nil
	case KindBool:
		x, _ := b.BoolVal(v)
		return x
	case KindInt:
		x, _ := b.IntVal(v)
		return x
	case KindFloat:
		x, _ := b.FloatVal(v)
		return x
	case KindString:
		x, _ := b.StringVal(v)
		return x
	case KindSequence:
		items := b.Items(v)
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = canon(b, item)
		}
		return out
	case KindMapping:
		pairs := b.Pairs(v)
		out := make([]canonPair, len(pairs))
		for i, p := range pairs {
			out[i] = canonPair{Key: canon(b, p.Key), Val: canon(b, p.Value)}
		}
		return out
	}
	return "<invalid>"
}

// roundTrip checks that parse, emit and re-parse reach a fixpoint:
// the second parse yields the same document under canonical
// equivalence.
func roundTrip(t *testing.T, cfg ParseConfig, ecfg EmitConfig, src []byte) {
	t.Helper()
	b1, v1, err := Compose(cfg, src)
	require.NoError(t, err)
	out, err := b1.Emit(ecfg, v1)
	require.NoError(t, err)
	b2, v2, err := Compose(cfg, out)
	require.NoError(t, err, "re-parsing emitted output:\n%s", out)
	diff := cmp.Diff(canon(b1, v1), canon(b2, v2))
	require.Empty(t, diff, "round trip changed the document; emitted:\n%s", out)
}

// eventTrace reduces a parse to the canonical event sequence, styles
// and marks erased.
func eventTrace(t *testing.T, cfg ParseConfig, src []byte) []string {
	t.Helper()
	p := NewParserBytes(cfg, src)
	var trace []string
	for {
		ev, err := p.Next()
		require.NoError(t, err)
		switch ev.Kind {
		case StreamStartEvent:
			trace = append(trace, "+STR")
		case StreamEndEvent:
			return append(trace, "-STR")
		case NoEvent:
			return trace
		case DocumentStartEvent:
			trace = append(trace, "+DOC")
		case DocumentEndEvent:
			trace = append(trace, "-DOC")
		case SequenceStartEvent:
			trace = append(trace, "+SEQ "+string(ev.Anchor))
		case SequenceEndEvent:
			trace = append(trace, "-SEQ")
		case MappingStartEvent:
			trace = append(trace, "+MAP "+string(ev.Anchor))
		case MappingEndEvent:
			trace = append(trace, "-MAP")
		case ScalarEvent:
			trace = append(trace, "=VAL "+string(ev.Anchor)+" "+string(ev.Value))
		case AliasEvent:
			trace = append(trace, "*ALI "+string(ev.Anchor))
		}
	}
}

func TestEventStreamShape(t *testing.T) {
	got := eventTrace(t, ParseConfig{}, []byte("a: 1\n"))
	want := []string{"+STR", "+DOC", "+MAP ", "=VAL  a", "=VAL  1", "-MAP", "-DOC", "-STR"}
	require.Empty(t, cmp.Diff(want, got))
}

func TestScenarioAnchorAlias(t *testing.T) {
	src := "a: &x 1\nb: *x\n"
	b, v, err := Compose(ParseConfig{}, []byte(src))
	require.NoError(t, err)
	require.Equal(t, b.Get(v, "a"), b.Get(v, "b"))

	out, err := b.Emit(EmitConfig{}, v)
	require.NoError(t, err)
	require.Equal(t, src, string(out))
}

func TestScenarioMergeKeyEmit(t *testing.T) {
	src := "defaults: &d {x: 1, y: 2}\nthing: { <<: *d, y: 99 }\n"
	b, v, err := Compose(ParseConfig{}, []byte(src))
	require.NoError(t, err)

	out, err := b.Emit(EmitConfig{}, v)
	require.NoError(t, err)
	require.Equal(t, "defaults: &d {x: 1, y: 2}\nthing: {x: 1, y: 99}\n", string(out))
}

func TestScenarioFlowBlockRoundTrip(t *testing.T) {
	src := "[1, 2, {a: b}]\n"
	b, v, err := Compose(ParseConfig{}, []byte(src))
	require.NoError(t, err)

	flow, err := b.Emit(EmitConfig{}, v)
	require.NoError(t, err)
	require.Equal(t, src, string(flow))

	block, err := b.Emit(EmitConfig{Mode: EmitBlockForced}, v)
	require.NoError(t, err)
	require.Equal(t, "- 1\n- 2\n- a: b\n", string(block))

	// Both forms re-parse to the same structure.
	b2, v2, err := Compose(ParseConfig{}, block)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(canon(b, v), canon(b2, v2)))
}

func TestScenarioJSON(t *testing.T) {
	src := `{"n": 1.5, "s": "hi", "l": [true, null]}`
	b, v, err := Compose(ParseConfig{JSON: true}, []byte(src))
	require.NoError(t, err)

	f, ok := b.FloatVal(b.Get(v, "n"))
	require.True(t, ok)
	require.Equal(t, 1.5, f)

	jsonOut, err := b.Emit(EmitConfig{Mode: EmitJSON}, v)
	require.NoError(t, err)
	want := "{\n  \"n\": 1.5,\n  \"s\": \"hi\",\n  \"l\": [\n    true,\n    null\n  ]\n}\n"
	require.Equal(t, want, string(jsonOut))

	oneline, err := b.Emit(EmitConfig{Mode: EmitJSONOneline}, v)
	require.NoError(t, err)
	require.Equal(t, "{\"n\":1.5,\"s\":\"hi\",\"l\":[true,null]}\n", string(oneline))

	// The YAML rendition needs no explicit tags.
	yamlOut, err := b.Emit(EmitConfig{}, v)
	require.NoError(t, err)
	require.NotContains(t, string(yamlOut), "!!")
	require.NotContains(t, string(yamlOut), "tag:")
	roundTrip(t, ParseConfig{}, EmitConfig{}, yamlOut)
}

func TestJSONTypePreservingPassthrough(t *testing.T) {
	// Typed JSON output differs from plain JSON mode on scalars whose
	// YAML spelling is not a JSON one.
	src := []byte("hex: 0x10\nflag: True\nquoted: '17'\n")
	pump := func(mode EmitMode) string {
		p := NewParserBytes(ParseConfig{}, src)
		var buf bytes.Buffer
		e := NewEmitter(EmitConfig{Mode: mode}, &buf)
		for {
			ev, err := p.Next()
			require.NoError(t, err)
			require.NoError(t, e.Emit(ev))
			if ev.Kind == StreamEndEvent {
				break
			}
		}
		return buf.String()
	}

	typed := pump(EmitJSONTypePreserving)
	require.Equal(t, "{\n  \"hex\": 16,\n  \"flag\": true,\n  \"quoted\": \"17\"\n}", typed)

	plain := pump(EmitJSON)
	require.Equal(t, "{\n  \"hex\": \"0x10\",\n  \"flag\": true,\n  \"quoted\": \"17\"\n}", plain)
}

func TestEmitDeJSONPrettyFromJSON(t *testing.T) {
	b, v, err := Compose(ParseConfig{JSON: true}, []byte(`{"a": "hello", "n": "17", "l": [1, 2]}`))
	require.NoError(t, err)

	out, err := b.Emit(EmitConfig{Mode: EmitDeJSONPretty}, v)
	require.NoError(t, err)
	require.Equal(t, "a: hello\nn: \"17\"\nl:\n  - 1\n  - 2\n", string(out))

	// The de-jsoned form re-parses to the same document.
	b2, v2, err := Compose(ParseConfig{}, out)
	require.NoError(t, err)
	require.Empty(t, cmp.Diff(canon(b, v), canon(b2, v2)))
}

func TestJSONModeRejectsYAMLConstructs(t *testing.T) {
	bad := []string{
		"a: 1\n",              // block mapping
		"- a\n",               // block sequence
		"[1, *x]",             // alias
		"[&x 1]",              // anchor
		"[!!int 1]",           // tag
		"%YAML 1.2\n---\n{}",  // directive
		"'single'",            // single quoted
		"[hello]",             // non-JSON plain scalar
	}
	for _, src := range bad {
		_, _, err := Compose(ParseConfig{JSON: true}, []byte(src))
		require.Error(t, err, "input %q", src)
	}

	// The same inputs are fine as YAML.
	for _, src := range []string{"a: 1\n", "- a\n", "[&x 1, *x]", "'single'"} {
		_, _, err := Compose(ParseConfig{}, []byte(src))
		require.NoError(t, err, "input %q", src)
	}
}

func TestNewParserFileDetectsJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "data.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"a": [1, 2]}`), 0o644))

	p, err := NewParserFile(ParseConfig{}, path)
	require.NoError(t, err)
	for {
		ev, err := p.Next()
		require.NoError(t, err)
		if ev.Kind == StreamEndEvent || ev.Kind == NoEvent {
			break
		}
	}

	// JSON strictness came along with the extension.
	path = filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("a: 1\n"), 0o644))
	p, err = NewParserFile(ParseConfig{}, path)
	require.NoError(t, err)
	_, err = p.Next()
	for err == nil {
		_, err = p.Next()
	}
	require.Error(t, err)

	_, err = NewParserFile(ParseConfig{}, filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	require.Equal(t, ResourceError, perr.Kind)
}

func TestEmitterEventPassthrough(t *testing.T) {
	src := []byte("a: &x 1\nb: *x\n---\n- 1\n- [2, 3]\n")
	p := NewParserBytes(ParseConfig{}, src)
	var buf bytes.Buffer
	e := NewEmitter(EmitConfig{}, &buf)
	for {
		ev, err := p.Next()
		require.NoError(t, err)
		require.NoError(t, e.Emit(ev))
		if ev.Kind == StreamEndEvent {
			break
		}
	}

	want := eventTrace(t, ParseConfig{}, src)
	got := eventTrace(t, ParseConfig{}, buf.Bytes())
	require.Empty(t, cmp.Diff(want, got), "emitted:\n%s", buf.Bytes())
}

func TestParserDocumentState(t *testing.T) {
	src := []byte("%YAML 1.1\n%TAG !e! tag:example.com,2000:\n---\n!e!foo bar\n")
	p := NewParserBytes(ParseConfig{}, src)

	var scalarTag string
	for {
		ev, err := p.Next()
		require.NoError(t, err)
		if ev.Kind == ScalarEvent {
			scalarTag = string(ev.Tag)
		}
		if ev.Kind == StreamEndEvent {
			break
		}
	}
	require.Equal(t, "tag:example.com,2000:foo", scalarTag)

	state := p.Document()
	require.NotNil(t, state)
	require.True(t, state.Explicit)
	require.Equal(t, VersionDirective{Major: 1, Minor: 1}, state.Version)
	require.Equal(t, []byte("tag:example.com,2000:"), state.LookupHandle([]byte("!e!")))
}

func TestVersionDirectiveValidation(t *testing.T) {
	for _, src := range []string{"%YAML 1.0\n---\na\n", "%YAML 1.3\n---\na\n"} {
		_, _, err := Compose(ParseConfig{}, []byte(src))
		require.NoError(t, err, "input %q", src)
	}
	for _, src := range []string{"%YAML 2.0\n---\na\n", "%YAML 0.9\n---\na\n"} {
		_, _, err := Compose(ParseConfig{}, []byte(src))
		require.Error(t, err, "input %q", src)
	}
}

func TestInsertionOrderPreserved(t *testing.T) {
	src := "z: 1\na: 2\nm: 3\n"
	b, v, err := Compose(ParseConfig{}, []byte(src))
	require.NoError(t, err)

	out, err := b.Emit(EmitConfig{}, v)
	require.NoError(t, err)
	require.Equal(t, src, string(out))
}

func TestEmitSortKeys(t *testing.T) {
	b, v, err := Compose(ParseConfig{}, []byte("z: 1\na: 2\nm: 3\n"))
	require.NoError(t, err)
	out, err := b.Emit(EmitConfig{SortKeys: true}, v)
	require.NoError(t, err)
	require.Equal(t, "a: 2\nm: 3\nz: 1\n", string(out))
}

func TestEmitStripAnchors(t *testing.T) {
	b, v, err := Compose(ParseConfig{}, []byte("a: &x 1\nb: *x\n"))
	require.NoError(t, err)
	out, err := b.Emit(EmitConfig{StripAnchors: true}, v)
	require.NoError(t, err)
	require.Equal(t, "a: 1\nb: 1\n", string(out))
}

func TestEmitStripTags(t *testing.T) {
	b, v, err := Compose(ParseConfig{}, []byte("a: !!binary aGk=\n"))
	require.NoError(t, err)

	out, err := b.Emit(EmitConfig{}, v)
	require.NoError(t, err)
	require.Equal(t, "a: !!binary aGk=\n", string(out))

	out, err = b.Emit(EmitConfig{StripTags: true}, v)
	require.NoError(t, err)
	require.Equal(t, "a: aGk=\n", string(out))
}

func TestEmitNoFinalNewline(t *testing.T) {
	b, v, err := Compose(ParseConfig{}, []byte("a: 1\n"))
	require.NoError(t, err)
	out, err := b.Emit(EmitConfig{NoFinalNewline: true}, v)
	require.NoError(t, err)
	require.Equal(t, "a: 1", string(out))
}

func TestEmitWidthRestyles(t *testing.T) {
	b := NewBuilder()
	long := strings.TrimSpace(strings.Repeat("word ", 30))
	v := b.Mapping([]Pair{{Key: b.String("text"), Value: b.String(long)}})

	out, err := b.Emit(EmitConfig{Width: 40}, v)
	require.NoError(t, err)
	require.Greater(t, strings.Count(string(out), "\n"), 1)

	// Folding does not change the content.
	b2, v2, err := Compose(ParseConfig{}, out)
	require.NoError(t, err)
	got, ok := b2.StringVal(b2.Get(v2, "text"))
	require.True(t, ok)
	require.Equal(t, long, got)
}

func TestStringNeedingQuotesSurvives(t *testing.T) {
	b := NewBuilder()
	for _, s := range []string{"17", "true", "null", "1.5", "-0.5", "", "  padded  ", "0x10"} {
		v := b.Mapping([]Pair{{Key: b.String("k"), Value: b.String(s)}})
		out, err := b.Emit(EmitConfig{}, v)
		require.NoError(t, err)

		b2, v2, err := Compose(ParseConfig{}, out)
		require.NoError(t, err)
		got, ok := b2.StringVal(b2.Get(v2, "k"))
		require.True(t, ok, "emitted %q", out)
		require.Equal(t, s, got, "emitted %q", out)
	}
}

func TestDocumentTreeRoundTrip(t *testing.T) {
	src := []byte("name: &n thing\nitems:\n  - 1\n  - two\nref: *n\n")
	doc, err := ComposeDocument(ParseConfig{}, src)
	require.NoError(t, err)

	out, err := EmitDocument(EmitConfig{}, doc)
	require.NoError(t, err)
	require.Equal(t, string(src), string(out))
}

func TestDocumentTreeEdit(t *testing.T) {
	doc, err := ComposeDocument(ParseConfig{}, []byte("a: 1\nb: 2\n"))
	require.NoError(t, err)

	doc.Root.Get("b").Detach()
	doc.Root.AppendPair(
		&Node{Kind: ScalarNode, Tag: "!!str", Value: "c"},
		&Node{Kind: ScalarNode, Tag: "!!int", Value: "3"},
	)

	out, err := EmitDocument(EmitConfig{}, doc)
	require.NoError(t, err)
	require.Equal(t, "a: 1\nc: 3\n", string(out))
}

func TestDiagnosticRendering(t *testing.T) {
	src := []byte("a:\n\tb: 1\n")
	p := NewParserBytes(ParseConfig{Filename: "test.yaml"}, src)
	var err error
	for err == nil {
		_, err = p.Next()
	}
	require.Error(t, err)
	require.Same(t, err, p.Err())

	msg := p.Diagnostic()
	require.Contains(t, msg, "test.yaml:")
	require.Contains(t, msg, "^")

	require.Contains(t, RenderError(err, src), "test.yaml:")
}

func TestErrorLatches(t *testing.T) {
	p := NewParserBytes(ParseConfig{}, []byte("a: [1,\nb: }\n"))
	var first error
	for first == nil {
		_, first = p.Next()
	}
	_, again := p.Next()
	require.Same(t, first, again)
}

func TestRoundTripCorpus(t *testing.T) {
	ar, err := txtar.ParseFile(filepath.Join("testdata", "roundtrip.txtar"))
	require.NoError(t, err)
	require.NotEmpty(t, ar.Files)

	for _, f := range ar.Files {
		f := f
		t.Run(f.Name, func(t *testing.T) {
			roundTrip(t, ParseConfig{}, EmitConfig{}, f.Data)
			roundTrip(t, ParseConfig{}, EmitConfig{Mode: EmitBlockForced}, f.Data)
			roundTrip(t, ParseConfig{}, EmitConfig{Mode: EmitFlowForced}, f.Data)
		})
	}
}
