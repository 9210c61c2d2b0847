// Package emit serializes the canonical event stream as YAML or JSON.
// The emitter mirrors the parser's state machine and buffers events
// just long enough to decide styles.
package emit

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/flowyaml/flowyaml/internal/resolve"
	"github.com/flowyaml/flowyaml/internal/yamlh"
)

// Mode selects the output form.
type Mode int

const (
	// Original preserves the styles carried by the events where the
	// content is representable in them.
	Original Mode = iota
	// BlockForced renders every collection in block form.
	BlockForced
	// FlowForced renders every collection in flow form.
	FlowForced
	// FlowOneline renders flow form with no width limit.
	FlowOneline
	// JSON renders strict RFC 8259 output. Plain scalars pass through
	// as numbers only when their spelling is already JSON; everything
	// else is quoted.
	JSON
	// JSONTypePreserving renders JSON keyed on the resolved scalar
	// types: a plain scalar that resolves as a number or boolean is
	// written as a JSON number or literal even when its YAML spelling
	// is not valid JSON (0x10 becomes 16). Quoted scalars stay strings.
	JSONTypePreserving
	// JSONOneline renders JSON with no interior whitespace.
	JSONOneline
	// DeJSONPretty renders block YAML with the JSON styling undone:
	// collections go block and quoting is dropped wherever the plain
	// spelling reads back as the same string.
	DeJSONPretty
)

// MarkerPolicy controls document marker and directive emission.
type MarkerPolicy int

const (
	MarkerAuto MarkerPolicy = iota
	MarkerOff
	MarkerOn
)

// Options configure an Emitter.
type Options struct {
	Mode Mode

	// Indent in [1..9]; out of range means 2.
	Indent int

	// Width in [0..255]; 0 or 255 means unbounded.
	Width int

	DocumentMarkers MarkerPolicy
	Directives      MarkerPolicy

	// Comments enables comment output.
	Comments bool
}

type state int

// The emitter states.
const (
	stateStreamStart state = iota

	stateFirstDocumentStart   // expect the first DOCUMENT-START or STREAM-END
	stateDocumentStart        // expect DOCUMENT-START or STREAM-END
	stateDocumentContent      // expect the content of a document
	stateDocumentEnd          // expect DOCUMENT-END
	stateFlowSequenceFirst    // expect the first item of a flow sequence
	stateFlowSequenceTrail    // expect the next item, comma already out
	stateFlowSequenceItem     // expect an item of a flow sequence
	stateFlowMappingFirstKey  // expect the first key of a flow mapping
	stateFlowMappingTrailKey  // expect the next key, comma already out
	stateFlowMappingKey       // expect a key of a flow mapping
	stateFlowMappingSimpleVal // expect a value for a simple key
	stateFlowMappingValue     // expect a value of a flow mapping
	stateBlockSequenceFirst   // expect the first item of a block sequence
	stateBlockSequenceItem    // expect an item of a block sequence
	stateBlockMappingFirstKey // expect the first key of a block mapping
	stateBlockMappingKey      // expect the key of a block mapping
	stateBlockMappingSimpleVal
	stateBlockMappingValue
	stateEnd // expect nothing
)

// Emitter writes the event stream to a sink.
type Emitter struct {
	writer io.Writer

	mode     Mode
	json     bool
	comments bool

	markerPolicy    MarkerPolicy
	directivePolicy MarkerPolicy

	indent int // configured indentation step
	width  int // preferred line width

	state  state
	states []state

	eventsQueue []yamlh.Event
	eventsHead  int

	indentStack []int
	indentLevel int // current indentation level

	tagDirectives []yamlh.TagDirective

	flowLevel int

	rootContext      bool
	simpleKeyContext bool

	line              int
	column            int
	lastCharWhitespace bool
	lastCharIndent     bool
	openEnded          bool

	footIndent int // indent of the foot comment written above, or -1

	anchorData struct {
		anchor []byte
		alias  bool
	}

	tagData struct {
		handle []byte
		suffix []byte
	}

	scalarData struct {
		value               []byte
		multiline           bool
		flowPlainAllowed    bool
		blockPlainAllowed   bool
		singleQuotedAllowed bool
		blockAllowed        bool
		style               yamlh.ScalarStyle
	}

	headComment    []byte
	lineComment    []byte
	footComment    []byte
	tailComment    []byte
	keyLineComment []byte

	// JSON mode bookkeeping.
	jsonStack []jsonFrame

	err error
}

// New returns an emitter writing to w.
func New(w io.Writer, o Options) *Emitter {
	indent := o.Indent
	if indent < 1 || indent > 9 {
		indent = 2
	}
	width := o.Width
	if width <= 0 || width >= 255 {
		width = -1
	}
	e := &Emitter{
		writer:          w,
		mode:            o.Mode,
		comments:        o.Comments,
		markerPolicy:    o.DocumentMarkers,
		directivePolicy: o.Directives,
		states:          make([]state, 0, yamlh.InitialStackSize),
		eventsQueue:     make([]yamlh.Event, 0, yamlh.InitialQueueSize),
		indent:          indent,
		width:           width,
	}
	if o.Mode == JSON || o.Mode == JSONTypePreserving || o.Mode == JSONOneline {
		e.json = true
		e.comments = false
	}
	if o.Mode == FlowOneline || o.Mode == JSONOneline {
		e.width = -1
	}
	return e
}

// Err returns the latched terminal error, if any.
func (e *Emitter) Err() error { return e.err }

// Emit accepts the next event. Events are buffered until enough are
// queued to decide the output form.
func (e *Emitter) Emit(event *yamlh.Event) error {
	if e.err != nil {
		return e.err
	}
	if event.Kind == yamlh.StreamEndEvent {
		e.openEnded = false
	}
	ev := *event
	e.applyMode(&ev)
	e.eventsQueue = append(e.eventsQueue, ev)
	for e.readyToEmit() {
		head := &e.eventsQueue[e.eventsHead]
		var err error
		if e.json {
			err = e.jsonStateMachine(head)
		} else {
			if err = e.analyzeEvent(head); err == nil {
				err = e.stateMachine(head)
			}
		}
		if err != nil {
			e.err = err
			return err
		}
		e.eventsHead++
	}
	return nil
}

// applyMode rewrites event styles per the configured output mode.
func (e *Emitter) applyMode(ev *yamlh.Event) {
	switch e.mode {
	case BlockForced:
		if ev.Kind == yamlh.SequenceStartEvent || ev.Kind == yamlh.MappingStartEvent {
			ev.CollectionStyle = yamlh.BlockStyle
		}
	case DeJSONPretty:
		if ev.Kind == yamlh.SequenceStartEvent || ev.Kind == yamlh.MappingStartEvent {
			ev.CollectionStyle = yamlh.BlockStyle
		}
		if ev.Kind == yamlh.ScalarEvent && ev.QuotedImplicit &&
			(ev.ScalarStyle == yamlh.SingleQuotedStyle || ev.ScalarStyle == yamlh.DoubleQuotedStyle) &&
			bytes.IndexByte(ev.Value, '\n') < 0 {
			// Quoting is only load bearing when the plain spelling
			// would resolve to another type.
			if rtag, _, err := resolve.Resolve(resolve.Core12, "", string(ev.Value)); err == nil && rtag == resolve.StrTag {
				ev.ScalarStyle = yamlh.AnyScalarStyle
			}
		}
	case FlowForced, FlowOneline:
		if ev.Kind == yamlh.SequenceStartEvent || ev.Kind == yamlh.MappingStartEvent {
			ev.CollectionStyle = yamlh.FlowStyle
		}
	}
	if !e.comments {
		ev.HeadComment = nil
		ev.LineComment = nil
		ev.FootComment = nil
		ev.TailComment = nil
	}
}

// put writes one byte.
func (e *Emitter) put(value byte) error {
	if _, err := e.writer.Write([]byte{value}); err != nil {
		return fmt.Errorf("yaml: write error: %v", err)
	}
	e.column++
	return nil
}

// putBreak writes a line break.
func (e *Emitter) putBreak() error {
	if _, err := e.writer.Write([]byte{'\n'}); err != nil {
		return fmt.Errorf("yaml: write error: %v", err)
	}
	e.column = 0
	e.line++
	e.lastCharIndent = true
	return nil
}

// write copies one character from b, returning its byte width.
func (e *Emitter) write(b []byte) (int, error) {
	w := yamlh.Width(b[0])
	if _, err := io.CopyN(e.writer, bytes.NewReader(b), int64(w)); err != nil {
		return 0, fmt.Errorf("yaml: write error: %v", err)
	}
	e.column++
	return w, nil
}

// writeAll writes b.
func (e *Emitter) writeAll(b []byte) error {
	e.column += len([]rune(string(b)))
	for len(b) > 0 {
		n, err := e.writer.Write(b)
		if err != nil {
			return fmt.Errorf("yaml: write error: %v", err)
		}
		b = b[n:]
	}
	return nil
}

// writeLineBreak writes one break from b with LF normalization,
// returning the bytes consumed.
func (e *Emitter) writeLineBreak(b []byte) (int, error) {
	if b[0] == '\n' {
		if err := e.putBreak(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	n, err := e.write(b)
	if err != nil {
		return 0, err
	}
	e.column = 0
	e.line++
	e.lastCharIndent = true
	return n, nil
}

// readyToEmit checks whether enough events queued to emit the head.
//
// Extra accumulation:
//   - 1 event for DOCUMENT-START
//   - 2 events for SEQUENCE-START
//   - 3 events for MAPPING-START
func (e *Emitter) readyToEmit() bool {
	if e.eventsHead == len(e.eventsQueue) {
		return false
	}
	var accumulate int
	switch e.eventsQueue[e.eventsHead].Kind {
	case yamlh.DocumentStartEvent:
		accumulate = 1
	case yamlh.SequenceStartEvent:
		accumulate = 2
	case yamlh.MappingStartEvent:
		accumulate = 3
	default:
		return true
	}
	if len(e.eventsQueue)-e.eventsHead > accumulate {
		return true
	}
	var level int
	for i := e.eventsHead; i < len(e.eventsQueue); i++ {
		switch e.eventsQueue[i].Kind {
		case yamlh.StreamStartEvent, yamlh.DocumentStartEvent, yamlh.SequenceStartEvent, yamlh.MappingStartEvent:
			level++
		case yamlh.StreamEndEvent, yamlh.DocumentEndEvent, yamlh.SequenceEndEvent, yamlh.MappingEndEvent:
			level--
		}
		if level == 0 {
			return true
		}
	}
	return false
}

func (e *Emitter) increaseIndent(flow, indentless bool) {
	e.indentStack = append(e.indentStack, e.indentLevel)
	if e.indentLevel < 0 {
		if flow {
			e.indentLevel = e.indent
		} else {
			e.indentLevel = 0
		}
		return
	}
	if !indentless {
		if e.states[len(e.states)-1] == stateBlockSequenceItem {
			// The first indent inside a sequence just skips the "- ".
			e.indentLevel += 2
		} else {
			// Everything else aligns to the chosen indentation.
			e.indentLevel = e.indent * ((e.indentLevel + e.indent) / e.indent)
		}
	}
}

func (e *Emitter) popIndent() {
	e.indentLevel = e.indentStack[len(e.indentStack)-1]
	e.indentStack = e.indentStack[:len(e.indentStack)-1]
}

func (e *Emitter) popState() {
	e.state = e.states[len(e.states)-1]
	e.states = e.states[:len(e.states)-1]
}

// appendTagDirective records a handle binding for tag compaction.
func (e *Emitter) appendTagDirective(value *yamlh.TagDirective, allowDuplicates bool) error {
	for i := 0; i < len(e.tagDirectives); i++ {
		if bytes.Equal(value.Handle, e.tagDirectives[i].Handle) {
			if allowDuplicates {
				return nil
			}
			return errors.New("duplicate %TAG directive")
		}
	}
	copied := yamlh.TagDirective{
		Handle: append([]byte(nil), value.Handle...),
		Prefix: append([]byte(nil), value.Prefix...),
	}
	e.tagDirectives = append(e.tagDirectives, copied)
	return nil
}
