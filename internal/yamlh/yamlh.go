//
// Copyright (c) 2011-2019 Canonical Ltd
// Copyright (c) 2006-2010 Kirill Simonov
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies
// of the Software, and to permit persons to whom the Software is furnished to do
// so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package yamlh holds the types shared by the scanner, parser, composer
// and emitter: marks, tokens, events and document state.
package yamlh

import (
	"bytes"
	"fmt"
)

// Mark is a position in the input stream. Index counts characters from
// the start of the stream (a CRLF line break counts as two), Line and
// Column are zero based; Column counts codepoints, not bytes.
type Mark struct {
	Index  int
	Line   int
	Column int
}

func (m Mark) String() string {
	return fmt.Sprintf("%d:%d", m.Line+1, m.Column+1)
}

// VersionDirective is a parsed %YAML directive.
type VersionDirective struct {
	Major int8
	Minor int8
}

// TagDirective is a parsed %TAG directive.
type TagDirective struct {
	Handle []byte
	Prefix []byte
}

// DocumentState is the per-document record built by the parser on
// document start: the effective version and the tag directive map.
// All events and nodes of a document reference the same state.
type DocumentState struct {
	Version    VersionDirective
	Directives []TagDirective

	// Explicit reports whether the version was set by a %YAML
	// directive rather than assumed.
	Explicit bool

	// ExplicitDirectives counts the entries of Directives that came
	// from %TAG lines; the default handles follow them.
	ExplicitDirectives int
}

// MergeKeys reports whether the document's version enables the
// YAML 1.1 merge key ("<<") behavior.
func (ds *DocumentState) MergeKeys() bool {
	return ds.Version.Major == 1 && ds.Version.Minor <= 1
}

// LookupHandle returns the prefix a tag handle expands to, or nil.
func (ds *DocumentState) LookupHandle(handle []byte) []byte {
	for i := range ds.Directives {
		if bytes.Equal(ds.Directives[i].Handle, handle) {
			return ds.Directives[i].Prefix
		}
	}
	return nil
}

// Encoding of the input stream.
type Encoding int

const (
	AnyEncoding Encoding = iota
	UTF8Encoding
	UTF16LEEncoding
	UTF16BEEncoding
	UTF32LEEncoding
	UTF32BEEncoding
)

// ErrorKind classifies pipeline errors.
type ErrorKind int

const (
	NoError       ErrorKind = iota
	ReaderError             // cannot read or decode the input stream
	ScannerError            // malformed lexical input
	ParserError             // malformed token sequence
	ComposerError           // semantic error while building a tree or value
	WriterError             // cannot write to the output stream
	EmitterError            // cannot emit a YAML stream
	ResourceError           // allocation or I/O resource failure
	UsageError              // caller misuse (nil argument, invalid handle)
)

func (k ErrorKind) String() string {
	switch k {
	case NoError:
		return "no error"
	case ReaderError:
		return "reader error"
	case ScannerError:
		return "scanner error"
	case ParserError:
		return "parser error"
	case ComposerError:
		return "composer error"
	case WriterError:
		return "writer error"
	case EmitterError:
		return "emitter error"
	case ResourceError:
		return "resource error"
	case UsageError:
		return "usage error"
	}
	return "<unknown error kind>"
}

// ScalarStyle of a scalar token or event.
type ScalarStyle int8

const (
	AnyScalarStyle ScalarStyle = iota
	PlainStyle
	SingleQuotedStyle
	DoubleQuotedStyle
	LiteralStyle
	FoldedStyle
)

// CollectionStyle of a sequence or mapping.
type CollectionStyle int8

const (
	AnyCollectionStyle CollectionStyle = iota
	BlockStyle
	FlowStyle
)

// TokenKind discriminates the scanner's token variants.
type TokenKind int

const (
	NoToken TokenKind = iota

	StreamStartToken
	StreamEndToken

	VersionDirectiveToken
	TagDirectiveToken
	DocumentStartToken
	DocumentEndToken

	BlockSequenceStartToken
	BlockMappingStartToken
	BlockEndToken

	FlowSequenceStartToken
	FlowSequenceEndToken
	FlowMappingStartToken
	FlowMappingEndToken

	BlockEntryToken
	FlowEntryToken
	KeyToken
	ValueToken

	AliasToken
	AnchorToken
	TagToken
	ScalarToken

	CommentToken
)

func (k TokenKind) String() string {
	switch k {
	case NoToken:
		return "NONE"
	case StreamStartToken:
		return "STREAM-START"
	case StreamEndToken:
		return "STREAM-END"
	case VersionDirectiveToken:
		return "VERSION-DIRECTIVE"
	case TagDirectiveToken:
		return "TAG-DIRECTIVE"
	case DocumentStartToken:
		return "DOCUMENT-START"
	case DocumentEndToken:
		return "DOCUMENT-END"
	case BlockSequenceStartToken:
		return "BLOCK-SEQUENCE-START"
	case BlockMappingStartToken:
		return "BLOCK-MAPPING-START"
	case BlockEndToken:
		return "BLOCK-END"
	case FlowSequenceStartToken:
		return "FLOW-SEQUENCE-START"
	case FlowSequenceEndToken:
		return "FLOW-SEQUENCE-END"
	case FlowMappingStartToken:
		return "FLOW-MAPPING-START"
	case FlowMappingEndToken:
		return "FLOW-MAPPING-END"
	case BlockEntryToken:
		return "BLOCK-ENTRY"
	case FlowEntryToken:
		return "FLOW-ENTRY"
	case KeyToken:
		return "KEY"
	case ValueToken:
		return "VALUE"
	case AliasToken:
		return "ALIAS"
	case AnchorToken:
		return "ANCHOR"
	case TagToken:
		return "TAG"
	case ScalarToken:
		return "SCALAR"
	case CommentToken:
		return "COMMENT"
	}
	return "<unknown token>"
}

// Token is an immutable lexical record. Raw is the token's span in the
// input stream (offset and length, counted like Mark.Index); Value holds
// a copy of the token's bytes, decoded where escape processing rewrote
// the raw form, and does not refer to the input buffer.
type Token struct {
	Kind TokenKind

	Start Mark
	End   Mark

	// Raw span of the token in the input stream.
	RawOffset int
	RawLength int

	// Encoding, for StreamStartToken.
	Encoding Encoding

	// Value holds the alias/anchor/scalar bytes, or the handle of a
	// tag or tag directive.
	Value []byte

	// Suffix of a TagToken.
	Suffix []byte

	// Prefix of a TagDirectiveToken.
	Prefix []byte

	// Style of a ScalarToken.
	Style ScalarStyle

	// Major, Minor of a VersionDirectiveToken.
	Major, Minor int8
}

// EventKind discriminates the canonical event stream variants.
type EventKind int8

const (
	NoEvent EventKind = iota

	StreamStartEvent
	StreamEndEvent
	DocumentStartEvent
	DocumentEndEvent
	AliasEvent
	ScalarEvent
	SequenceStartEvent
	SequenceEndEvent
	MappingStartEvent
	MappingEndEvent
	TailCommentEvent
)

var eventStrings = []string{
	NoEvent:            "none",
	StreamStartEvent:   "stream start",
	StreamEndEvent:     "stream end",
	DocumentStartEvent: "document start",
	DocumentEndEvent:   "document end",
	AliasEvent:         "alias",
	ScalarEvent:        "scalar",
	SequenceStartEvent: "sequence start",
	SequenceEndEvent:   "sequence end",
	MappingStartEvent:  "mapping start",
	MappingEndEvent:    "mapping end",
	TailCommentEvent:   "tail comment",
}

func (e EventKind) String() string {
	if e < 0 || int(e) >= len(eventStrings) {
		return fmt.Sprintf("unknown event %d", e)
	}
	return eventStrings[e]
}

// Event is one element of the canonical event stream. Events own their
// token-derived byte slices; they stay valid until the event is
// discarded.
type Event struct {
	Kind EventKind

	Start Mark
	End   Mark

	// Encoding, for StreamStartEvent.
	Encoding Encoding

	// State of the enclosing document, for DocumentStartEvent and all
	// node events within that document.
	State *DocumentState

	// Comments, retained only when comment scanning is enabled.
	HeadComment []byte
	LineComment []byte
	FootComment []byte
	TailComment []byte

	// Anchor, for ScalarEvent, SequenceStartEvent, MappingStartEvent
	// and AliasEvent.
	Anchor []byte

	// Tag, for ScalarEvent, SequenceStartEvent and MappingStartEvent.
	Tag []byte

	// Value, for ScalarEvent.
	Value []byte

	// Implicit document markers, or implicit plain-scalar tag.
	Implicit bool

	// QuotedImplicit reports that the tag may be dropped for any
	// non-plain style, for ScalarEvent.
	QuotedImplicit bool

	ScalarStyle     ScalarStyle
	CollectionStyle CollectionStyle
}

// Tag URIs of the YAML core schema.
const (
	NullTag      = "tag:yaml.org,2002:null"
	BoolTag      = "tag:yaml.org,2002:bool"
	StrTag       = "tag:yaml.org,2002:str"
	IntTag       = "tag:yaml.org,2002:int"
	FloatTag     = "tag:yaml.org,2002:float"
	TimestampTag = "tag:yaml.org,2002:timestamp"

	SeqTag = "tag:yaml.org,2002:seq"
	MapTag = "tag:yaml.org,2002:map"

	BinaryTag = "tag:yaml.org,2002:binary"
	MergeTag  = "tag:yaml.org,2002:merge"

	DefaultScalarTag   = StrTag
	DefaultSequenceTag = SeqTag
	DefaultMappingTag  = MapTag
)

// SimpleKey is a pending implicit-key candidate. A simple key is valid
// iff it is on top of the scanner's stack and its indent matches; the
// scanner invalidates candidates that grow stale (older than a line,
// or 1024 codepoints).
type SimpleKey struct {
	Possible    bool
	Required    bool
	TokenNumber int
	Mark        Mark
}

// Comment is a scanned comment, folded into events by the parser when
// comment retention is on.
type Comment struct {
	ScanMark  Mark // where scanning for comments started
	TokenMark Mark // tokens after this mark own the comment
	Start     Mark // position of the '#'
	End       Mark

	Head []byte
	Line []byte
	Foot []byte
}
