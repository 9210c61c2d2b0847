package parse

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowyaml/flowyaml/internal/scan"
	"github.com/flowyaml/flowyaml/internal/yamlh"
)

func newTestParser(src string, o Options) *Parser {
	return New(scan.New(scan.NewReaderBytes([]byte(src)), scan.Options{MaxDepth: o.MaxDepth}), o)
}

// eventKinds drains the parser and returns the event kinds.
func eventKinds(t *testing.T, src string) []yamlh.EventKind {
	t.Helper()
	p := newTestParser(src, Options{})
	var kinds []yamlh.EventKind
	for {
		ev, err := p.Next()
		require.NoError(t, err)
		if ev.Kind == yamlh.NoEvent {
			return kinds
		}
		kinds = append(kinds, ev.Kind)
	}
}

func TestParseScalarDocument(t *testing.T) {
	require.Equal(t, []yamlh.EventKind{
		yamlh.StreamStartEvent,
		yamlh.DocumentStartEvent,
		yamlh.ScalarEvent,
		yamlh.DocumentEndEvent,
		yamlh.StreamEndEvent,
	}, eventKinds(t, "hello\n"))
}

func TestParseBlockMapping(t *testing.T) {
	require.Equal(t, []yamlh.EventKind{
		yamlh.StreamStartEvent,
		yamlh.DocumentStartEvent,
		yamlh.MappingStartEvent,
		yamlh.ScalarEvent, yamlh.ScalarEvent,
		yamlh.ScalarEvent, yamlh.ScalarEvent,
		yamlh.MappingEndEvent,
		yamlh.DocumentEndEvent,
		yamlh.StreamEndEvent,
	}, eventKinds(t, "a: 1\nb: 2\n"))
}

func TestParseNestedSequence(t *testing.T) {
	require.Equal(t, []yamlh.EventKind{
		yamlh.StreamStartEvent,
		yamlh.DocumentStartEvent,
		yamlh.SequenceStartEvent,
		yamlh.ScalarEvent,
		yamlh.SequenceStartEvent,
		yamlh.ScalarEvent,
		yamlh.SequenceEndEvent,
		yamlh.SequenceEndEvent,
		yamlh.DocumentEndEvent,
		yamlh.StreamEndEvent,
	}, eventKinds(t, "- a\n- - b\n"))
}

func TestParseEmptyValueScalar(t *testing.T) {
	// A missing value parses as an empty plain scalar.
	p := newTestParser("a:\n", Options{})
	var values []string
	for {
		ev, err := p.Next()
		require.NoError(t, err)
		if ev.Kind == yamlh.NoEvent {
			break
		}
		if ev.Kind == yamlh.ScalarEvent {
			values = append(values, string(ev.Value))
			require.Equal(t, yamlh.PlainStyle, ev.ScalarStyle)
		}
	}
	require.Equal(t, []string{"a", ""}, values)
}

func TestParseMultipleDocuments(t *testing.T) {
	p := newTestParser("one\n---\ntwo\n", Options{})
	var states []*yamlh.DocumentState
	for {
		ev, err := p.Next()
		require.NoError(t, err)
		if ev.Kind == yamlh.NoEvent {
			break
		}
		if ev.Kind == yamlh.DocumentStartEvent {
			states = append(states, ev.State)
		}
	}
	require.Len(t, states, 2)
	// Each document carries its own state record.
	require.NotSame(t, states[0], states[1])
}

func TestParseVersionDirective(t *testing.T) {
	p := newTestParser("%YAML 1.1\n---\na\n", Options{})
	for {
		ev, err := p.Next()
		require.NoError(t, err)
		if ev.Kind == yamlh.DocumentStartEvent {
			require.True(t, ev.State.Explicit)
			require.Equal(t, int8(1), ev.State.Version.Major)
			require.Equal(t, int8(1), ev.State.Version.Minor)
			require.True(t, ev.State.MergeKeys())
			return
		}
		require.NotEqual(t, yamlh.NoEvent, ev.Kind)
	}
}

func TestParseVersionDirectiveRange(t *testing.T) {
	// 1.0 through 1.3 are accepted; 2.0 is not.
	for _, ok := range []string{"1.0", "1.1", "1.2", "1.3"} {
		p := newTestParser("%YAML "+ok+"\n---\na\n", Options{})
		for {
			ev, err := p.Next()
			require.NoError(t, err, "version %s", ok)
			if ev.Kind == yamlh.NoEvent {
				break
			}
		}
	}
	p := newTestParser("%YAML 2.0\n---\na\n", Options{})
	_, err := p.Next()
	for err == nil {
		var ev *yamlh.Event
		ev, err = p.Next()
		if err == nil && ev.Kind == yamlh.NoEvent {
			break
		}
	}
	require.Error(t, err)
	require.Contains(t, err.Error(), "incompatible YAML document")
}

func TestParseDuplicateVersionDirective(t *testing.T) {
	p := newTestParser("%YAML 1.1\n%YAML 1.2\n---\na\n", Options{})
	var err error
	for err == nil {
		var ev *yamlh.Event
		ev, err = p.Next()
		if err == nil && ev.Kind == yamlh.NoEvent {
			break
		}
	}
	require.Error(t, err)
}

func TestParseTagDirectiveExpansion(t *testing.T) {
	p := newTestParser("%TAG !e! tag:example.com,2000:app/\n---\n!e!foo bar\n", Options{})
	for {
		ev, err := p.Next()
		require.NoError(t, err)
		require.NotEqual(t, yamlh.NoEvent, ev.Kind)
		if ev.Kind == yamlh.ScalarEvent {
			require.Equal(t, "tag:example.com,2000:app/foo", string(ev.Tag))
			require.Equal(t, "bar", string(ev.Value))
			return
		}
	}
}

func TestParseUndefinedTagHandle(t *testing.T) {
	p := newTestParser("!x!foo bar\n", Options{})
	var err error
	for err == nil {
		var ev *yamlh.Event
		ev, err = p.Next()
		if err == nil && ev.Kind == yamlh.NoEvent {
			break
		}
	}
	require.Error(t, err)
	require.Contains(t, err.Error(), "undefined tag handle")
}

func TestParsePropertiesEitherOrder(t *testing.T) {
	for _, src := range []string{"&a !!str x\n", "!!str &a x\n"} {
		p := newTestParser(src, Options{})
		for {
			ev, err := p.Next()
			require.NoError(t, err, "source %q", src)
			require.NotEqual(t, yamlh.NoEvent, ev.Kind)
			if ev.Kind == yamlh.ScalarEvent {
				require.Equal(t, "a", string(ev.Anchor))
				require.Equal(t, yamlh.StrTag, string(ev.Tag))
				break
			}
		}
	}
}

func TestParseErrorIsTerminal(t *testing.T) {
	p := newTestParser("[1\n", Options{})
	var firstErr error
	for firstErr == nil {
		var ev *yamlh.Event
		ev, firstErr = p.Next()
		if firstErr == nil && ev.Kind == yamlh.NoEvent {
			break
		}
	}
	require.Error(t, firstErr)
	_, err := p.Next()
	require.Equal(t, firstErr, err)
}

func TestParseExplicitKey(t *testing.T) {
	require.Equal(t, []yamlh.EventKind{
		yamlh.StreamStartEvent,
		yamlh.DocumentStartEvent,
		yamlh.MappingStartEvent,
		yamlh.ScalarEvent, yamlh.ScalarEvent,
		yamlh.MappingEndEvent,
		yamlh.DocumentEndEvent,
		yamlh.StreamEndEvent,
	}, eventKinds(t, "? key\n: value\n"))
}

func TestParseFlowMappingInSequence(t *testing.T) {
	require.Equal(t, []yamlh.EventKind{
		yamlh.StreamStartEvent,
		yamlh.DocumentStartEvent,
		yamlh.SequenceStartEvent,
		yamlh.ScalarEvent,
		yamlh.ScalarEvent,
		yamlh.MappingStartEvent,
		yamlh.ScalarEvent, yamlh.ScalarEvent,
		yamlh.MappingEndEvent,
		yamlh.SequenceEndEvent,
		yamlh.DocumentEndEvent,
		yamlh.StreamEndEvent,
	}, eventKinds(t, "[1, 2, {a: b}]\n"))
}
