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

// Package parse drives the YAML production state machine over the
// token stream, producing the canonical event stream.
//
// The grammar:
//
// stream               ::= STREAM-START implicit_document? explicit_document* STREAM-END
// implicit_document    ::= block_node DOCUMENT-END*
// explicit_document    ::= DIRECTIVE* DOCUMENT-START block_node? DOCUMENT-END*
// block_node_or_indentless_sequence    ::=
//                          ALIAS
//                          | properties (block_content | indentless_block_sequence)?
//                          | block_content
//                          | indentless_block_sequence
// block_node           ::= ALIAS
//                          | properties block_content?
//                          | block_content
// flow_node            ::= ALIAS
//                          | properties flow_content?
//                          | flow_content
// properties           ::= TAG ANCHOR? | ANCHOR TAG?
// block_content        ::= block_collection | flow_collection | SCALAR
// flow_content         ::= flow_collection | SCALAR
// block_collection     ::= block_sequence | block_mapping
// flow_collection      ::= flow_sequence | flow_mapping
// block_sequence       ::= BLOCK-SEQUENCE-START (BLOCK-ENTRY block_node?)* BLOCK-END
// indentless_sequence  ::= (BLOCK-ENTRY block_node?)+
// block_mapping        ::= BLOCK-MAPPING_START
//                          ((KEY block_node_or_indentless_sequence?)?
//                          (VALUE block_node_or_indentless_sequence?)?)*
//                          BLOCK-END
// flow_sequence        ::= FLOW-SEQUENCE-START
//                          (flow_sequence_entry FLOW-ENTRY)*
//                          flow_sequence_entry?
//                          FLOW-SEQUENCE-END
// flow_sequence_entry  ::= flow_node | KEY flow_node? (VALUE flow_node?)?
// flow_mapping         ::= FLOW-MAPPING-START
//                          (flow_mapping_entry FLOW-ENTRY)*
//                          flow_mapping_entry?
//                          FLOW-MAPPING-END
// flow_mapping_entry   ::= flow_node | KEY flow_node? (VALUE flow_node?)?
package parse

import (
	"bytes"
	"fmt"

	"github.com/flowyaml/flowyaml/internal/common"
	"github.com/flowyaml/flowyaml/internal/scan"
	"github.com/flowyaml/flowyaml/internal/yamlh"
)

// Options configure a Parser.
type Options struct {
	// DefaultVersion applies until a %YAML directive overrides it.
	// Zero means 1.2.
	DefaultVersion yamlh.VersionDirective

	// MaxDepth bounds the state stack. Zero means the default.
	MaxDepth int
}

// Parser consumes tokens and produces events. The first error latches
// it into a terminal state.
type Parser struct {
	scanner *scan.Scanner

	state  State
	states []State
	marks  []yamlh.Mark

	defaultVersion yamlh.VersionDirective
	maxDepth       int

	doc *yamlh.DocumentState

	err error
}

// New returns a parser over the scanner.
func New(s *scan.Scanner, o Options) *Parser {
	version := o.DefaultVersion
	if version.Major == 0 {
		version = yamlh.VersionDirective{Major: 1, Minor: 2}
	}
	depth := o.MaxDepth
	if depth <= 0 {
		depth = common.DefaultMaxDepth
	}
	return &Parser{
		scanner:        s,
		states:         make([]State, 0, yamlh.InitialStackSize),
		defaultVersion: version,
		maxDepth:       depth,
	}
}

// Document returns the state of the current document, or nil before
// the first document start.
func (p *Parser) Document() *yamlh.DocumentState { return p.doc }

// Err returns the latched terminal error, if any.
func (p *Parser) Err() error { return p.err }

// Next returns the next event. After the stream end or an error it
// returns an empty event.
func (p *Parser) Next() (*yamlh.Event, error) {
	if p.err != nil {
		return &yamlh.Event{}, p.err
	}
	if p.scanner.StreamEndProduced() || p.state == EndState {
		return &yamlh.Event{}, nil
	}
	event, err := p.stateMachine()
	if err != nil {
		p.err = err
		return nil, err
	}
	return event, nil
}

func (p *Parser) parserError(problem string, problemMark, contextMark yamlh.Mark) error {
	return &yamlh.Error{
		Kind:        yamlh.ParserError,
		Problem:     problem,
		Mark:        problemMark,
		ContextMark: contextMark,
	}
}

func (p *Parser) peekToken() (*yamlh.Token, error) {
	return p.scanner.Peek()
}

func (p *Parser) skipToken() {
	p.scanner.Skip()
}

// pushState saves the return state, enforcing the nesting bound.
func (p *Parser) pushState(s State) error {
	p.states = append(p.states, s)
	if len(p.states) > p.maxDepth {
		return p.parserError(fmt.Sprintf("exceeded max depth of %d", p.maxDepth), yamlh.Mark{}, yamlh.Mark{})
	}
	return nil
}

func (p *Parser) popState() State {
	s := p.states[len(p.states)-1]
	p.states = p.states[:len(p.states)-1]
	return s
}

func (p *Parser) stateMachine() (*yamlh.Event, error) {
	switch p.state {
	case StreamStartState:
		return p.parseStreamStart()
	case ImplicitDocumentStartState:
		return p.parseDocumentStart(true)
	case DocumentStartState:
		return p.parseDocumentStart(false)
	case DocumentContentState:
		return p.parseDocumentContent()
	case DocumentEndState:
		return p.parseDocumentEnd()
	case BlockNodeState:
		return p.parseNode(true, false)
	case BlockNodeOrIndentlessSequenceState:
		return p.parseNode(true, true)
	case FlowNodeState:
		return p.parseNode(false, false)
	case BlockSequenceFirstEntryState:
		return p.parseBlockSequenceEntry(true)
	case BlockSequenceEntryState:
		return p.parseBlockSequenceEntry(false)
	case IndentlessSequenceEntryState:
		return p.parseIndentlessSequenceEntry()
	case BlockMappingFirstKeyState:
		return p.parseBlockMappingKey(true)
	case BlockMappingKeyState:
		return p.parseBlockMappingKey(false)
	case BlockMappingValueState:
		return p.parseBlockMappingValue()
	case FlowSequenceFirstEntryState:
		return p.parseFlowSequenceEntry(true)
	case FlowSequenceEntryState:
		return p.parseFlowSequenceEntry(false)
	case FlowSequenceEntryMappingKeyState:
		return p.parseFlowSequenceEntryMappingKey()
	case FlowSequenceEntryMappingValueState:
		return p.parseFlowSequenceEntryMappingValue()
	case FlowSequenceEntryMappingEndState:
		return p.parseFlowSequenceEntryMappingEnd()
	case FlowMappingFirstKeyState:
		return p.parseFlowMappingKey(true)
	case FlowMappingKeyState:
		return p.parseFlowMappingKey(false)
	case FlowMappingValueState:
		return p.parseFlowMappingValue(false)
	case FlowMappingEmptyValueState:
		return p.parseFlowMappingValue(true)
	default:
		panic("invalid parser state")
	}
}

// parseStreamStart handles:
// stream ::= STREAM-START implicit_document? explicit_document* STREAM-END
//
//	************
func (p *Parser) parseStreamStart() (*yamlh.Event, error) {
	token, err := p.peekToken()
	if err != nil {
		return nil, err
	}
	if token.Kind != yamlh.StreamStartToken {
		return nil, p.parserError("did not find expected <stream-start>", token.Start, yamlh.Mark{})
	}
	p.state = ImplicitDocumentStartState
	event := yamlh.Event{
		Kind:     yamlh.StreamStartEvent,
		Start:    token.Start,
		End:      token.End,
		Encoding: token.Encoding,
	}
	p.skipToken()
	return &event, nil
}

// parseDocumentStart handles:
// implicit_document    ::= block_node DOCUMENT-END*
//
//	*
//
// explicit_document    ::= DIRECTIVE* DOCUMENT-START block_node? DOCUMENT-END*
//
//	*************************
func (p *Parser) parseDocumentStart(implicit bool) (*yamlh.Event, error) {
	token, err := p.peekToken()
	if err != nil {
		return nil, err
	}

	if !implicit {
		// Eat extra document end indicators.
		for token.Kind == yamlh.DocumentEndToken {
			p.skipToken()
			token, err = p.peekToken()
			if err != nil {
				return nil, err
			}
		}
	}

	if implicit && token.Kind != yamlh.VersionDirectiveToken &&
		token.Kind != yamlh.TagDirectiveToken &&
		token.Kind != yamlh.DocumentStartToken &&
		token.Kind != yamlh.StreamEndToken {
		// An implicit document.
		if err = p.processDirectives(); err != nil {
			return nil, err
		}
		if err = p.pushState(DocumentEndState); err != nil {
			return nil, err
		}
		p.state = BlockNodeState

		headComment := p.scanner.SplitDocumentHeadComment()

		return &yamlh.Event{
			Kind:        yamlh.DocumentStartEvent,
			Start:       token.Start,
			End:         token.End,
			State:       p.doc,
			Implicit:    true,
			HeadComment: headComment,
		}, nil
	}

	if token.Kind != yamlh.StreamEndToken {
		// An explicit document.
		start := token.Start
		if err = p.processDirectives(); err != nil {
			return nil, err
		}
		token, err = p.peekToken()
		if err != nil {
			return nil, err
		}
		if token.Kind != yamlh.DocumentStartToken {
			return nil, p.parserError("did not find expected <document start>", token.Start, yamlh.Mark{})
		}
		if err = p.pushState(DocumentEndState); err != nil {
			return nil, err
		}
		p.state = DocumentContentState

		event := yamlh.Event{
			Kind:  yamlh.DocumentStartEvent,
			Start: start,
			End:   token.End,
			State: p.doc,
		}
		p.skipToken()
		return &event, nil
	}

	// The stream end.
	p.state = EndState
	event := yamlh.Event{
		Kind:  yamlh.StreamEndEvent,
		Start: token.Start,
		End:   token.End,
	}
	p.skipToken()
	return &event, nil
}

// parseDocumentContent handles:
// explicit_document ::= DIRECTIVE* DOCUMENT-START block_node? DOCUMENT-END*
//
//	***********
func (p *Parser) parseDocumentContent() (*yamlh.Event, error) {
	token, err := p.peekToken()
	if err != nil {
		return nil, err
	}

	if token.Kind == yamlh.VersionDirectiveToken ||
		token.Kind == yamlh.TagDirectiveToken ||
		token.Kind == yamlh.DocumentStartToken ||
		token.Kind == yamlh.DocumentEndToken ||
		token.Kind == yamlh.StreamEndToken {
		p.state = p.popState()
		return p.processEmptyScalar(token.Start), nil
	}
	return p.parseNode(true, false)
}

// parseDocumentEnd handles:
// implicit_document ::= block_node DOCUMENT-END*
//
//	*************
func (p *Parser) parseDocumentEnd() (*yamlh.Event, error) {
	token, err := p.peekToken()
	if err != nil {
		return nil, err
	}

	start := token.Start
	end := token.Start

	implicit := true
	if token.Kind == yamlh.DocumentEndToken {
		end = token.End
		p.skipToken()
		implicit = false
	}

	p.state = DocumentStartState
	event := yamlh.Event{
		Kind:     yamlh.DocumentEndEvent,
		Start:    start,
		End:      end,
		State:    p.doc,
		Implicit: implicit,
	}
	p.scanner.TakeComments(&event)
	if len(event.HeadComment) > 0 && len(event.FootComment) == 0 {
		event.FootComment = event.HeadComment
		event.HeadComment = nil
	}
	return &event, nil
}

// parseNode handles the node productions (see the package comment).
func (p *Parser) parseNode(block, indentlessSequence bool) (*yamlh.Event, error) {
	token, err := p.peekToken()
	if err != nil {
		return nil, err
	}

	if token.Kind == yamlh.AliasToken {
		p.state = p.popState()
		event := yamlh.Event{
			Kind:   yamlh.AliasEvent,
			Start:  token.Start,
			End:    token.End,
			State:  p.doc,
			Anchor: token.Value,
		}
		p.scanner.TakeComments(&event)
		p.skipToken()
		return &event, nil
	}

	start := token.Start
	end := token.Start

	// The property list: anchor and tag, in either order, once each.
	var tagToken bool
	var tagHandle, tagSuffix, anchor []byte
	var tagMark yamlh.Mark
	if token.Kind == yamlh.AnchorToken {
		anchor = token.Value
		start = token.Start
		end = token.End
		p.skipToken()
		token, err = p.peekToken()
		if err != nil {
			return nil, err
		}
		if token.Kind == yamlh.TagToken {
			tagToken = true
			tagHandle = token.Value
			tagSuffix = token.Suffix
			tagMark = token.Start
			end = token.End
			p.skipToken()
			token, err = p.peekToken()
			if err != nil {
				return nil, err
			}
		}
	} else if token.Kind == yamlh.TagToken {
		tagToken = true
		tagHandle = token.Value
		tagSuffix = token.Suffix
		start = token.Start
		tagMark = token.Start
		end = token.End
		p.skipToken()
		token, err = p.peekToken()
		if err != nil {
			return nil, err
		}
		if token.Kind == yamlh.AnchorToken {
			anchor = token.Value
			end = token.End
			p.skipToken()
			token, err = p.peekToken()
			if err != nil {
				return nil, err
			}
		}
	}

	var tag []byte
	if tagToken {
		if len(tagHandle) == 0 {
			tag = tagSuffix
			tagSuffix = nil
		} else {
			prefix := p.doc.LookupHandle(tagHandle)
			if prefix == nil {
				return nil, p.parserError("found undefined tag handle", tagMark, start)
			}
			tag = append(append([]byte(nil), prefix...), tagSuffix...)
		}
	}

	implicit := len(tag) == 0
	if indentlessSequence && token.Kind == yamlh.BlockEntryToken {
		p.state = IndentlessSequenceEntryState
		return &yamlh.Event{
			Kind:            yamlh.SequenceStartEvent,
			Start:           start,
			End:             token.End,
			State:           p.doc,
			Anchor:          anchor,
			Tag:             tag,
			Implicit:        implicit,
			CollectionStyle: yamlh.BlockStyle,
		}, nil
	}
	if token.Kind == yamlh.ScalarToken {
		var plainImplicit, quotedImplicit bool
		end = token.End
		if (len(tag) == 0 && token.Style == yamlh.PlainStyle) || (len(tag) == 1 && tag[0] == '!') {
			plainImplicit = true
		} else if len(tag) == 0 {
			quotedImplicit = true
		}
		p.state = p.popState()

		event := yamlh.Event{
			Kind:           yamlh.ScalarEvent,
			Start:          start,
			End:            end,
			State:          p.doc,
			Anchor:         anchor,
			Tag:            tag,
			Value:          token.Value,
			Implicit:       plainImplicit,
			QuotedImplicit: quotedImplicit,
			ScalarStyle:    token.Style,
		}
		p.scanner.TakeComments(&event)
		p.skipToken()
		return &event, nil
	}
	if token.Kind == yamlh.FlowSequenceStartToken {
		p.state = FlowSequenceFirstEntryState
		event := yamlh.Event{
			Kind:            yamlh.SequenceStartEvent,
			Start:           start,
			End:             token.End,
			State:           p.doc,
			Anchor:          anchor,
			Tag:             tag,
			Implicit:        implicit,
			CollectionStyle: yamlh.FlowStyle,
		}
		p.scanner.TakeComments(&event)
		return &event, nil
	}
	if token.Kind == yamlh.FlowMappingStartToken {
		p.state = FlowMappingFirstKeyState
		event := yamlh.Event{
			Kind:            yamlh.MappingStartEvent,
			Start:           start,
			End:             token.End,
			State:           p.doc,
			Anchor:          anchor,
			Tag:             tag,
			Implicit:        implicit,
			CollectionStyle: yamlh.FlowStyle,
		}
		p.scanner.TakeComments(&event)
		return &event, nil
	}
	if block && token.Kind == yamlh.BlockSequenceStartToken {
		p.state = BlockSequenceFirstEntryState
		event := yamlh.Event{
			Kind:            yamlh.SequenceStartEvent,
			Start:           start,
			End:             token.End,
			State:           p.doc,
			Anchor:          anchor,
			Tag:             tag,
			Implicit:        implicit,
			CollectionStyle: yamlh.BlockStyle,
		}
		if stem := p.scanner.StemComment(); stem != nil {
			event.HeadComment = stem
		}
		return &event, nil
	}
	if block && token.Kind == yamlh.BlockMappingStartToken {
		p.state = BlockMappingFirstKeyState
		event := yamlh.Event{
			Kind:            yamlh.MappingStartEvent,
			Start:           start,
			End:             token.End,
			State:           p.doc,
			Anchor:          anchor,
			Tag:             tag,
			Implicit:        implicit,
			CollectionStyle: yamlh.BlockStyle,
		}
		if stem := p.scanner.StemComment(); stem != nil {
			event.HeadComment = stem
		}
		return &event, nil
	}
	if len(anchor) > 0 || len(tag) > 0 {
		// Properties with no content: an empty plain scalar.
		p.state = p.popState()
		return &yamlh.Event{
			Kind:        yamlh.ScalarEvent,
			Start:       start,
			End:         end,
			State:       p.doc,
			Anchor:      anchor,
			Tag:         tag,
			Implicit:    implicit,
			ScalarStyle: yamlh.PlainStyle,
		}, nil
	}

	return nil, p.parserError("did not find expected node content", token.Start, start)
}

// parseBlockSequenceEntry handles:
// block_sequence ::= BLOCK-SEQUENCE-START (BLOCK-ENTRY block_node?)* BLOCK-END
//
//	********************  *********** *             *********
func (p *Parser) parseBlockSequenceEntry(first bool) (*yamlh.Event, error) {
	if first {
		token, err := p.peekToken()
		if err != nil {
			return nil, err
		}
		p.marks = append(p.marks, token.Start)
		p.skipToken()
	}

	token, err := p.peekToken()
	if err != nil {
		return nil, err
	}

	if token.Kind == yamlh.BlockEntryToken {
		mark := token.End
		priorHeadLen := p.scanner.HeadCommentLen()
		p.skipToken()
		if err = p.splitStemComment(priorHeadLen); err != nil {
			return nil, err
		}
		token, err = p.peekToken()
		if err != nil {
			return nil, err
		}
		if token.Kind != yamlh.BlockEntryToken && token.Kind != yamlh.BlockEndToken {
			if err = p.pushState(BlockSequenceEntryState); err != nil {
				return nil, err
			}
			return p.parseNode(true, false)
		}
		p.state = BlockSequenceEntryState
		return p.processEmptyScalar(mark), nil
	}
	if token.Kind == yamlh.BlockEndToken {
		p.state = p.popState()
		p.marks = p.marks[:len(p.marks)-1]

		event := yamlh.Event{
			Kind:  yamlh.SequenceEndEvent,
			Start: token.Start,
			End:   token.End,
		}
		p.skipToken()
		return &event, nil
	}

	contextMark := p.marks[len(p.marks)-1]
	p.marks = p.marks[:len(p.marks)-1]
	return nil, p.parserError("did not find expected '-' indicator", token.Start, contextMark)
}

// parseIndentlessSequenceEntry handles:
// indentless_sequence ::= (BLOCK-ENTRY block_node?)+
//
//	*********** *
func (p *Parser) parseIndentlessSequenceEntry() (*yamlh.Event, error) {
	token, err := p.peekToken()
	if err != nil {
		return nil, err
	}

	if token.Kind == yamlh.BlockEntryToken {
		mark := token.End
		priorHeadLen := p.scanner.HeadCommentLen()
		p.skipToken()
		if err = p.splitStemComment(priorHeadLen); err != nil {
			return nil, err
		}
		token, err = p.peekToken()
		if err != nil {
			return nil, err
		}
		if token.Kind != yamlh.BlockEntryToken &&
			token.Kind != yamlh.KeyToken &&
			token.Kind != yamlh.ValueToken &&
			token.Kind != yamlh.BlockEndToken {
			if err = p.pushState(IndentlessSequenceEntryState); err != nil {
				return nil, err
			}
			return p.parseNode(true, false)
		}
		p.state = IndentlessSequenceEntryState
		return p.processEmptyScalar(mark), nil
	}
	p.state = p.popState()

	return &yamlh.Event{
		Kind:  yamlh.SequenceEndEvent,
		Start: token.Start,
		End:   token.End,
	}, nil
}

// splitStemComment moves the head comment aside when a nested
// collection follows a sequence entry: the comment belongs to the
// collection as a whole, not its first entry.
func (p *Parser) splitStemComment(stemLen int) error {
	if stemLen == 0 {
		return nil
	}
	token, err := p.peekToken()
	if err != nil {
		return err
	}
	p.scanner.SplitStemComment(token.Kind, stemLen)
	return nil
}

// parseBlockMappingKey handles:
// block_mapping ::= BLOCK-MAPPING_START
//
//	*******************
//	((KEY block_node_or_indentless_sequence?)?
//	  *** *
//	(VALUE block_node_or_indentless_sequence?)?)*
//
//	BLOCK-END
//	*********
func (p *Parser) parseBlockMappingKey(first bool) (*yamlh.Event, error) {
	if first {
		token, err := p.peekToken()
		if err != nil {
			return nil, err
		}
		p.marks = append(p.marks, token.Start)
		p.skipToken()
	}

	token, err := p.peekToken()
	if err != nil {
		return nil, err
	}

	// A tail comment left from the prior mapping value must go out
	// with that value, not the following key.
	if tail := p.scanner.TailComment(); len(tail) > 0 {
		return &yamlh.Event{
			Kind:        yamlh.TailCommentEvent,
			Start:       token.Start,
			End:         token.End,
			FootComment: tail,
		}, nil
	}

	if token.Kind == yamlh.KeyToken {
		mark := token.End
		p.skipToken()
		token, err = p.peekToken()
		if err != nil {
			return nil, err
		}
		if token.Kind != yamlh.KeyToken &&
			token.Kind != yamlh.ValueToken &&
			token.Kind != yamlh.BlockEndToken {
			if err = p.pushState(BlockMappingValueState); err != nil {
				return nil, err
			}
			return p.parseNode(true, true)
		}
		p.state = BlockMappingValueState
		return p.processEmptyScalar(mark), nil
	}
	if token.Kind == yamlh.BlockEndToken {
		p.state = p.popState()
		p.marks = p.marks[:len(p.marks)-1]
		event := yamlh.Event{
			Kind:  yamlh.MappingEndEvent,
			Start: token.Start,
			End:   token.End,
		}
		p.scanner.TakeComments(&event)
		p.skipToken()
		return &event, nil
	}

	contextMark := p.marks[len(p.marks)-1]
	p.marks = p.marks[:len(p.marks)-1]
	return nil, p.parserError("did not find expected key", token.Start, contextMark)
}

// parseBlockMappingValue handles:
// block_mapping ::= ... (VALUE block_node_or_indentless_sequence?)?)* ...
//
//	***** *
func (p *Parser) parseBlockMappingValue() (*yamlh.Event, error) {
	token, err := p.peekToken()
	if err != nil {
		return nil, err
	}
	if token.Kind == yamlh.ValueToken {
		mark := token.End
		p.skipToken()
		token, err = p.peekToken()
		if err != nil {
			return nil, err
		}
		if token.Kind != yamlh.KeyToken &&
			token.Kind != yamlh.ValueToken &&
			token.Kind != yamlh.BlockEndToken {
			if err = p.pushState(BlockMappingKeyState); err != nil {
				return nil, err
			}
			return p.parseNode(true, true)
		}
		p.state = BlockMappingKeyState
		return p.processEmptyScalar(mark), nil
	}
	p.state = BlockMappingKeyState
	return p.processEmptyScalar(token.Start), nil
}

// parseFlowSequenceEntry handles:
// flow_sequence ::= FLOW-SEQUENCE-START
//
//	*******************
//	(flow_sequence_entry FLOW-ENTRY)*
//	 *                   **********
//	flow_sequence_entry?
//	*
//	FLOW-SEQUENCE-END
//	*****************
func (p *Parser) parseFlowSequenceEntry(first bool) (*yamlh.Event, error) {
	if first {
		token, err := p.peekToken()
		if err != nil {
			return nil, err
		}
		p.marks = append(p.marks, token.Start)
		p.skipToken()
	}
	token, err := p.peekToken()
	if err != nil {
		return nil, err
	}
	if token.Kind != yamlh.FlowSequenceEndToken {
		if !first {
			if token.Kind == yamlh.FlowEntryToken {
				p.skipToken()
				token, err = p.peekToken()
				if err != nil {
					return nil, err
				}
			} else {
				contextMark := p.marks[len(p.marks)-1]
				p.marks = p.marks[:len(p.marks)-1]
				return nil, p.parserError("did not find expected ',' or ']'", token.Start, contextMark)
			}
		}

		if token.Kind == yamlh.KeyToken {
			p.state = FlowSequenceEntryMappingKeyState
			event := yamlh.Event{
				Kind:            yamlh.MappingStartEvent,
				Start:           token.Start,
				End:             token.End,
				State:           p.doc,
				Implicit:        true,
				CollectionStyle: yamlh.FlowStyle,
			}
			p.skipToken()
			return &event, nil
		}
		if token.Kind != yamlh.FlowSequenceEndToken {
			if err = p.pushState(FlowSequenceEntryState); err != nil {
				return nil, err
			}
			return p.parseNode(false, false)
		}
	}

	p.state = p.popState()
	p.marks = p.marks[:len(p.marks)-1]

	event := yamlh.Event{
		Kind:  yamlh.SequenceEndEvent,
		Start: token.Start,
		End:   token.End,
	}
	p.scanner.TakeComments(&event)
	p.skipToken()
	return &event, nil
}

// parseFlowSequenceEntryMappingKey handles:
// flow_sequence_entry ::= flow_node | KEY flow_node? (VALUE flow_node?)?
//
//	*** *
func (p *Parser) parseFlowSequenceEntryMappingKey() (*yamlh.Event, error) {
	token, err := p.peekToken()
	if err != nil {
		return nil, err
	}
	if token.Kind != yamlh.ValueToken &&
		token.Kind != yamlh.FlowEntryToken &&
		token.Kind != yamlh.FlowSequenceEndToken {
		if err = p.pushState(FlowSequenceEntryMappingValueState); err != nil {
			return nil, err
		}
		return p.parseNode(false, false)
	}
	mark := token.End
	p.skipToken()
	p.state = FlowSequenceEntryMappingValueState
	return p.processEmptyScalar(mark), nil
}

// parseFlowSequenceEntryMappingValue handles:
// flow_sequence_entry ::= flow_node | KEY flow_node? (VALUE flow_node?)?
//
//	***** *
func (p *Parser) parseFlowSequenceEntryMappingValue() (*yamlh.Event, error) {
	token, err := p.peekToken()
	if err != nil {
		return nil, err
	}
	if token.Kind == yamlh.ValueToken {
		p.skipToken()
		token, err = p.peekToken()
		if err != nil {
			return nil, err
		}
		if token.Kind != yamlh.FlowEntryToken && token.Kind != yamlh.FlowSequenceEndToken {
			if err = p.pushState(FlowSequenceEntryMappingEndState); err != nil {
				return nil, err
			}
			return p.parseNode(false, false)
		}
	}
	p.state = FlowSequenceEntryMappingEndState
	return p.processEmptyScalar(token.Start), nil
}

// parseFlowSequenceEntryMappingEnd handles:
// flow_sequence_entry ::= flow_node | KEY flow_node? (VALUE flow_node?)?
//
//	*
func (p *Parser) parseFlowSequenceEntryMappingEnd() (*yamlh.Event, error) {
	token, err := p.peekToken()
	if err != nil {
		return nil, err
	}
	p.state = FlowSequenceEntryState
	return &yamlh.Event{
		Kind:  yamlh.MappingEndEvent,
		Start: token.Start,
		End:   token.End,
	}, nil
}

// parseFlowMappingKey handles:
// flow_mapping ::= FLOW-MAPPING-START
//
//	******************
//	(flow_mapping_entry FLOW-ENTRY)*
//	 *                  **********
//	flow_mapping_entry?
//	******************
//	FLOW-MAPPING-END
//	****************
func (p *Parser) parseFlowMappingKey(first bool) (*yamlh.Event, error) {
	if first {
		token, err := p.peekToken()
		if err != nil {
			return nil, err
		}
		p.marks = append(p.marks, token.Start)
		p.skipToken()
	}

	token, err := p.peekToken()
	if err != nil {
		return nil, err
	}

	if token.Kind != yamlh.FlowMappingEndToken {
		if !first {
			if token.Kind == yamlh.FlowEntryToken {
				p.skipToken()
				token, err = p.peekToken()
				if err != nil {
					return nil, err
				}
			} else {
				contextMark := p.marks[len(p.marks)-1]
				p.marks = p.marks[:len(p.marks)-1]
				return nil, p.parserError("did not find expected ',' or '}'", token.Start, contextMark)
			}
		}

		if token.Kind == yamlh.KeyToken {
			p.skipToken()
			token, err = p.peekToken()
			if err != nil {
				return nil, err
			}
			if token.Kind != yamlh.ValueToken &&
				token.Kind != yamlh.FlowEntryToken &&
				token.Kind != yamlh.FlowMappingEndToken {
				if err = p.pushState(FlowMappingValueState); err != nil {
					return nil, err
				}
				return p.parseNode(false, false)
			}
			p.state = FlowMappingValueState
			return p.processEmptyScalar(token.Start), nil
		}
		if token.Kind != yamlh.FlowMappingEndToken {
			if err = p.pushState(FlowMappingEmptyValueState); err != nil {
				return nil, err
			}
			return p.parseNode(false, false)
		}
	}

	p.state = p.popState()
	p.marks = p.marks[:len(p.marks)-1]
	event := yamlh.Event{
		Kind:  yamlh.MappingEndEvent,
		Start: token.Start,
		End:   token.End,
	}
	p.scanner.TakeComments(&event)
	p.skipToken()
	return &event, nil
}

// parseFlowMappingValue handles:
// flow_mapping_entry ::= flow_node | KEY flow_node? (VALUE flow_node?)?
//
//	***** *
func (p *Parser) parseFlowMappingValue(empty bool) (*yamlh.Event, error) {
	token, err := p.peekToken()
	if err != nil {
		return nil, err
	}
	if empty {
		p.state = FlowMappingKeyState
		return p.processEmptyScalar(token.Start), nil
	}
	if token.Kind == yamlh.ValueToken {
		p.skipToken()
		token, err = p.peekToken()
		if err != nil {
			return nil, err
		}
		if token.Kind != yamlh.FlowEntryToken && token.Kind != yamlh.FlowMappingEndToken {
			if err = p.pushState(FlowMappingKeyState); err != nil {
				return nil, err
			}
			return p.parseNode(false, false)
		}
	}
	p.state = FlowMappingKeyState
	return p.processEmptyScalar(token.Start), nil
}

// processEmptyScalar produces the empty plain scalar event.
func (p *Parser) processEmptyScalar(mark yamlh.Mark) *yamlh.Event {
	return &yamlh.Event{
		Kind:        yamlh.ScalarEvent,
		Start:       mark,
		End:         mark,
		State:       p.doc,
		Implicit:    true,
		ScalarStyle: yamlh.PlainStyle,
	}
}

// processDirectives installs the pending directives into a fresh
// document state. %YAML accepts 1.0 through 1.3; anything else is
// rejected. 1.1 switches the implicit typing and merge key rules.
func (p *Parser) processDirectives() error {
	doc := &yamlh.DocumentState{Version: p.defaultVersion}

	token, err := p.peekToken()
	if err != nil {
		return err
	}

	for token.Kind == yamlh.VersionDirectiveToken || token.Kind == yamlh.TagDirectiveToken {
		if token.Kind == yamlh.VersionDirectiveToken {
			if doc.Explicit {
				return p.parserError("found duplicate %YAML directive", token.Start, yamlh.Mark{})
			}
			if token.Major != 1 || token.Minor < 0 || token.Minor > 3 {
				return p.parserError("found incompatible YAML document", token.Start, yamlh.Mark{})
			}
			doc.Version = yamlh.VersionDirective{Major: token.Major, Minor: token.Minor}
			doc.Explicit = true
		} else {
			directive := yamlh.TagDirective{
				Handle: token.Value,
				Prefix: token.Prefix,
			}
			if err = appendTagDirective(doc, directive, false, token.Start); err != nil {
				return err
			}
		}

		p.skipToken()
		token, err = p.peekToken()
		if err != nil {
			return err
		}
	}

	doc.ExplicitDirectives = len(doc.Directives)
	for i := range common.DefaultTagDirectives {
		if err = appendTagDirective(doc, common.DefaultTagDirectives[i], true, token.Start); err != nil {
			return err
		}
	}

	p.doc = doc
	return nil
}

// appendTagDirective adds one handle binding, rejecting duplicates.
func appendTagDirective(doc *yamlh.DocumentState, value yamlh.TagDirective, allowDuplicates bool, mark yamlh.Mark) error {
	for i := range doc.Directives {
		if bytes.Equal(value.Handle, doc.Directives[i].Handle) {
			if allowDuplicates {
				return nil
			}
			return &yamlh.Error{
				Kind:    yamlh.ParserError,
				Problem: "found duplicate %TAG directive",
				Mark:    mark,
			}
		}
	}
	copied := yamlh.TagDirective{
		Handle: append([]byte(nil), value.Handle...),
		Prefix: append([]byte(nil), value.Prefix...),
	}
	doc.Directives = append(doc.Directives, copied)
	return nil
}
