// Package flowyaml is a YAML 1.1/1.2 and JSON processor built around a
// canonical event stream. The pipeline is pull based: the composer
// drives the parser, the parser drives the scanner, the scanner drives
// the input source. Emission runs push based in the other direction.
//
// Three representations are produced and consumed:
//
//   - the event stream itself (Parser, Emitter),
//   - a mutable Document tree preserving anchors, tags, styles and
//     optionally comments,
//   - an immutable, interned generic value graph (Builder, Value)
//     where structural equality is handle identity.
//
// Instances are single threaded; independent pipelines run in
// parallel freely.
package flowyaml

import (
	"bytes"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/flowyaml/flowyaml/internal/common"
	"github.com/flowyaml/flowyaml/internal/diag"
	"github.com/flowyaml/flowyaml/internal/emit"
	"github.com/flowyaml/flowyaml/internal/parse"
	"github.com/flowyaml/flowyaml/internal/scan"
	"github.com/flowyaml/flowyaml/internal/yamlh"
)

const defaultMaxDepth = common.DefaultMaxDepth

// TabPolicy decides how tabs are treated around indentation.
type TabPolicy = scan.TabPolicy

const (
	TabsRejected = scan.TabsRejected
	TabsAuto     = scan.TabsAuto
)

// EmitMode selects the output form.
type EmitMode = emit.Mode

const (
	EmitOriginal           = emit.Original
	EmitBlockForced        = emit.BlockForced
	EmitFlowForced         = emit.FlowForced
	EmitFlowOneline        = emit.FlowOneline
	EmitJSON               = emit.JSON
	EmitJSONTypePreserving = emit.JSONTypePreserving
	EmitJSONOneline        = emit.JSONOneline
	EmitDeJSONPretty       = emit.DeJSONPretty
)

// MarkerPolicy controls document marker and directive emission.
type MarkerPolicy = emit.MarkerPolicy

const (
	MarkerAuto = emit.MarkerAuto
	MarkerOff  = emit.MarkerOff
	MarkerOn   = emit.MarkerOn
)

// ParseConfig configures a parsing pipeline. The zero value parses
// YAML 1.2 with merge keys honored, comments dropped, tabs rejected
// as indentation, and a nesting bound of 64.
type ParseConfig struct {
	// Version applies until a %YAML directive overrides it. Zero
	// means 1.2 rules.
	Version VersionDirective

	// JSON selects strict JSON lexical and grammar rules.
	JSON bool

	// Comments retains comments on events and nodes.
	Comments bool

	TabPolicy TabPolicy

	// MaxDepth bounds nesting. Zero means 64; raising it is on the
	// caller to back with stack.
	MaxDepth int

	// AcceptNonUTF8 transcodes UTF-16/32 inputs (detected by BOM)
	// instead of rejecting them.
	AcceptNonUTF8 bool

	// NoDedup disables structural interning in Compose.
	NoDedup bool

	// Filename names the input in diagnostics.
	Filename string

	// Logger, when set, receives pipeline errors as structured logs.
	Logger *slog.Logger
}

// EmitConfig configures an emission pipeline. The zero value emits
// original-preserving YAML with two-space indent and a final newline.
type EmitConfig struct {
	Mode EmitMode

	// Indent in [1..9]; out of range means 2.
	Indent int

	// Width in [0..255]; 0 or 255 means unbounded.
	Width int

	DocumentMarkers MarkerPolicy
	Directives      MarkerPolicy

	SortKeys     bool
	StripAnchors bool
	StripTags    bool
	StripDocs    bool

	// Comments enables comment output.
	Comments bool

	// NoFinalNewline suppresses the trailing newline of the buffered
	// entry points.
	NoFinalNewline bool

	Logger *slog.Logger
}

func (cfg *ParseConfig) scanOptions() scan.Options {
	return scan.Options{
		JSON:      cfg.JSON,
		Comments:  cfg.Comments,
		TabPolicy: cfg.TabPolicy,
		MaxDepth:  cfg.MaxDepth,
	}
}

func (cfg *EmitConfig) emitOptions() emit.Options {
	o := emit.Options{
		Mode:            cfg.Mode,
		Indent:          cfg.Indent,
		Width:           cfg.Width,
		DocumentMarkers: cfg.DocumentMarkers,
		Directives:      cfg.Directives,
		Comments:        cfg.Comments,
	}
	if cfg.StripDocs {
		o.DocumentMarkers = emit.MarkerOff
		o.Directives = emit.MarkerOff
	}
	return o
}

// Parser is the pull side of the pipeline: it produces the canonical
// event stream from an input source.
type Parser struct {
	cfg     ParseConfig
	scanner *scan.Scanner
	parser  *parse.Parser
	src     []byte // retained for diagnostics when parsing bytes
}

// NewParser returns a parser reading from r.
func NewParser(cfg ParseConfig, r io.Reader) *Parser {
	reader := scan.NewReader(r)
	return newParser(cfg, reader, nil)
}

// NewParserBytes returns a parser over b. The parser reads b as it goes
// and keeps it for diagnostics, so b must stay unmodified while the
// parser is in use; tokens and events hold copies of their bytes.
func NewParserBytes(cfg ParseConfig, b []byte) *Parser {
	reader := scan.NewReaderBytes(b)
	return newParser(cfg, reader, b)
}

// NewParserFile returns a parser over the file's contents. A ".json"
// suffix selects JSON mode.
func NewParserFile(cfg ParseConfig, path string) (*Parser, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Kind: yamlh.ResourceError, Problem: err.Error(), Filename: path}
	}
	if cfg.Filename == "" {
		cfg.Filename = path
	}
	if strings.HasSuffix(path, ".json") {
		cfg.JSON = true
	}
	return NewParserBytes(cfg, b), nil
}

func newParser(cfg ParseConfig, reader *scan.Reader, src []byte) *Parser {
	if cfg.AcceptNonUTF8 {
		reader.AcceptNonUTF8()
	}
	scanner := scan.New(reader, cfg.scanOptions())
	version := cfg.Version
	if cfg.JSON && version.Major == 0 {
		version = VersionDirective{Major: 1, Minor: 2}
	}
	parser := parse.New(scanner, parse.Options{
		DefaultVersion: version,
		MaxDepth:       cfg.MaxDepth,
	})
	return &Parser{cfg: cfg, scanner: scanner, parser: parser, src: src}
}

// Next returns the next event, or an empty event after stream end.
// The first error is terminal.
func (p *Parser) Next() (*Event, error) {
	ev, err := p.parser.Next()
	if err != nil {
		err = p.decorate(err)
		return nil, err
	}
	return ev, nil
}

// Document returns the state of the current document, or nil before
// the first document start.
func (p *Parser) Document() *DocumentState { return p.parser.Document() }

// Err returns the latched terminal error, if any.
func (p *Parser) Err() error { return p.decorate(p.parser.Err()) }

// Diagnostic renders the latched error with the source line and a
// caret, when the input was parsed from bytes.
func (p *Parser) Diagnostic() string {
	err := p.Err()
	if err == nil {
		return ""
	}
	return diag.Render(err, p.src)
}

func (p *Parser) decorate(err error) error {
	if err == nil {
		return nil
	}
	if e, ok := err.(*Error); ok && e.Filename == "" {
		e.Filename = p.cfg.Filename
	}
	diag.Report(p.cfg.Logger, err)
	return err
}

// Emitter is the push side of the pipeline: it accepts the canonical
// event stream and writes YAML or JSON to a sink.
type Emitter struct {
	e *emit.Emitter
}

// NewEmitter returns an emitter writing to w.
func NewEmitter(cfg EmitConfig, w io.Writer) *Emitter {
	return &Emitter{e: emit.New(w, cfg.emitOptions())}
}

// Emit accepts the next event.
func (e *Emitter) Emit(ev *Event) error { return e.e.Emit(ev) }

// Err returns the latched terminal error, if any.
func (e *Emitter) Err() error { return e.e.Err() }

// ---------------------------------------------------------------------------
// Buffered entry points.

// ComposeDocument parses the first document of src into a Document
// tree. An empty stream yields nil.
func ComposeDocument(cfg ParseConfig, src []byte) (*Document, error) {
	p := NewParserBytes(cfg, src)
	c := newComposer(p, cfg.MaxDepth)
	doc, err := c.composeDocument()
	if err != nil {
		return nil, p.decorate(err)
	}
	if doc == nil {
		return nil, nil
	}
	// An empty document gets a null scalar root.
	if doc.Root == nil {
		doc.Root = &Node{Kind: ScalarNode, Tag: "!!null"}
	}
	return doc, nil
}

// ComposeAll parses every document of src into Document trees. Each
// document carries its own state.
func ComposeAll(cfg ParseConfig, src []byte) ([]*Document, error) {
	p := NewParserBytes(cfg, src)
	c := newComposer(p, cfg.MaxDepth)
	var docs []*Document
	for {
		doc, err := c.composeDocument()
		if err != nil {
			return nil, p.decorate(err)
		}
		if doc == nil {
			return docs, nil
		}
		docs = append(docs, doc)
	}
}

// Compose parses the first document of src into a generic value held
// by a fresh builder. Deduplication is on unless cfg.NoDedup is set.
func Compose(cfg ParseConfig, src []byte) (*Builder, Value, error) {
	b := newBuilder(!cfg.NoDedup)
	v, err := b.Parse(cfg, src)
	if err != nil {
		return nil, InvalidValue, err
	}
	return b, v, nil
}

// Parse parses the first document of src into this builder. An empty
// stream yields the null value.
func (b *Builder) Parse(cfg ParseConfig, src []byte) (Value, error) {
	p := NewParserBytes(cfg, src)
	c := newComposer(p, cfg.MaxDepth)
	v, err := c.composeValue(b)
	if err != nil {
		return InvalidValue, p.decorate(err)
	}
	if !v.IsValid() {
		return b.Null(), nil
	}
	return v, nil
}

// ParseAll parses every document of src into this builder.
func (b *Builder) ParseAll(cfg ParseConfig, src []byte) ([]Value, error) {
	p := NewParserBytes(cfg, src)
	c := newComposer(p, cfg.MaxDepth)
	var out []Value
	for {
		v, err := c.composeValue(b)
		if err != nil {
			return nil, p.decorate(err)
		}
		if !v.IsValid() {
			return out, nil
		}
		out = append(out, v)
	}
}

// Emit renders the value as YAML or JSON per the config.
func (b *Builder) Emit(cfg EmitConfig, v Value) ([]byte, error) {
	var buf bytes.Buffer
	e := emit.New(&buf, cfg.emitOptions())
	s := newSerializer(b, cfg)

	push := func(ev *Event) error { return e.Emit(ev) }
	if err := push(&Event{Kind: StreamStartEvent, Encoding: yamlh.UTF8Encoding}); err != nil {
		return nil, reportEmit(cfg, err)
	}
	if err := push(&Event{Kind: DocumentStartEvent, Implicit: true}); err != nil {
		return nil, reportEmit(cfg, err)
	}
	if err := s.valueEvents(push, v); err != nil {
		return nil, reportEmit(cfg, err)
	}
	if err := push(&Event{Kind: DocumentEndEvent, Implicit: true}); err != nil {
		return nil, reportEmit(cfg, err)
	}
	if err := push(&Event{Kind: StreamEndEvent}); err != nil {
		return nil, reportEmit(cfg, err)
	}
	return finishOutput(cfg, buf.Bytes()), nil
}

// EmitDocument renders the document tree per the config.
func EmitDocument(cfg EmitConfig, d *Document) ([]byte, error) {
	if d == nil || d.Root == nil {
		return nil, usageError("cannot emit a nil document")
	}
	var buf bytes.Buffer
	e := emit.New(&buf, cfg.emitOptions())
	s := newSerializer(nil, cfg)

	push := func(ev *Event) error { return e.Emit(ev) }
	if err := push(&Event{Kind: StreamStartEvent, Encoding: yamlh.UTF8Encoding}); err != nil {
		return nil, reportEmit(cfg, err)
	}
	if err := push(&Event{Kind: DocumentStartEvent, Implicit: true, State: d.State}); err != nil {
		return nil, reportEmit(cfg, err)
	}
	if err := s.nodeEvents(push, d, d.Root); err != nil {
		return nil, reportEmit(cfg, err)
	}
	if err := push(&Event{Kind: DocumentEndEvent, Implicit: true}); err != nil {
		return nil, reportEmit(cfg, err)
	}
	if err := push(&Event{Kind: StreamEndEvent}); err != nil {
		return nil, reportEmit(cfg, err)
	}
	return finishOutput(cfg, buf.Bytes()), nil
}

func reportEmit(cfg EmitConfig, err error) error {
	diag.Report(cfg.Logger, err)
	return err
}

// finishOutput normalizes the trailing newline of buffered output.
// Only the final break is touched: trailing breaks inside a
// keep-chomped block scalar are content and stay.
func finishOutput(cfg EmitConfig, out []byte) []byte {
	if cfg.NoFinalNewline {
		return bytes.TrimSuffix(out, []byte{'\n'})
	}
	if len(out) > 0 && out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	return out
}
