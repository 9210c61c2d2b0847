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

// Package scan turns an input stream into a lazy, restartable stream
// of lexical tokens. The scanner is a cooperative producer: each Peek
// may fetch zero or more tokens until one is ready for the parser.
package scan

import (
	"fmt"

	"github.com/flowyaml/flowyaml/internal/common"
	"github.com/flowyaml/flowyaml/internal/yamlh"
)

// Options configure a Scanner.
type Options struct {
	// JSON selects strict JSON lexical rules: flow-only structure, no
	// directives, anchors, tags or block scalars.
	JSON bool

	// Comments retains comments in the comment queue instead of
	// consuming them as whitespace.
	Comments bool

	TabPolicy TabPolicy

	// MaxDepth bounds flow nesting and the block indent stack.
	// Zero means common.DefaultMaxDepth.
	MaxDepth int
}

// Scanner produces the token stream. Internal state is a FIFO of
// produced-but-unconsumed tokens, the stack of simple-key candidates,
// the block indent stack, and a flow nesting counter.
type Scanner struct {
	r *Reader

	json      bool
	comments  bool
	tabPolicy TabPolicy
	maxDepth  int

	streamStartProduced bool
	streamEndProduced   bool

	flowLevel int

	tokens         []yamlh.Token
	tokensHead     int
	tokensParsed   int
	tokenAvailable bool

	indent  int
	indents []int

	simpleKeyAllowed bool
	simpleKeys       []yamlh.SimpleKey
	simpleKeysByTok  map[int]int

	commentQueue []yamlh.Comment
	commentHead  int

	// Comment accumulators folded out of the queue for the parser.
	headComment []byte
	lineComment []byte
	footComment []byte
	tailComment []byte
	stemComment []byte

	err error
}

// New returns a scanner over r.
func New(r *Reader, o Options) *Scanner {
	depth := o.MaxDepth
	if depth <= 0 {
		depth = common.DefaultMaxDepth
	}
	return &Scanner{
		r:         r,
		json:      o.JSON,
		comments:  o.Comments,
		tabPolicy: o.TabPolicy,
		maxDepth:  depth,
		tokens:    make([]yamlh.Token, 0, yamlh.InitialQueueSize),
	}
}

// Reader returns the scanner's input source.
func (s *Scanner) Reader() *Reader { return s.r }

// Err returns the latched terminal error, if any.
func (s *Scanner) Err() error { return s.err }

// StreamEndProduced reports whether the stream end token was consumed.
func (s *Scanner) StreamEndProduced() bool { return s.streamEndProduced }

// TokensParsed returns the number of tokens handed to the parser.
func (s *Scanner) TokensParsed() int { return s.tokensParsed }

func (s *Scanner) scannerError(contextMark yamlh.Mark, problem string) error {
	return &Error{
		Kind:        yamlh.ScannerError,
		Problem:     problem,
		Mark:        s.r.mark,
		ContextMark: contextMark,
	}
}

// Peek returns the next token without consuming it, folding queued
// comments that belong before it into the accumulators.
func (s *Scanner) Peek() (*yamlh.Token, error) {
	if s.err != nil {
		return nil, s.err
	}
	if !s.tokenAvailable {
		if err := s.fetchMoreTokens(); err != nil {
			s.err = err
			return nil, err
		}
	}
	token := &s.tokens[s.tokensHead]
	s.unfoldComments(token)
	return token, nil
}

// Skip consumes the token returned by the last Peek.
func (s *Scanner) Skip() {
	s.tokenAvailable = false
	s.tokensParsed++
	s.streamEndProduced = s.tokens[s.tokensHead].Kind == yamlh.StreamEndToken
	s.tokensHead++
}

// unfoldComments joins all queued comments behind the token's position
// into the accumulators.
func (s *Scanner) unfoldComments(token *yamlh.Token) {
	for s.commentHead < len(s.commentQueue) && token.Start.Index >= s.commentQueue[s.commentHead].TokenMark.Index {
		comment := &s.commentQueue[s.commentHead]
		if len(comment.Head) > 0 {
			if token.Kind == yamlh.BlockEndToken {
				// No heads on ends; the head stays for a follow-up token.
				break
			}
			if len(s.headComment) > 0 {
				s.headComment = append(s.headComment, '\n')
			}
			s.headComment = append(s.headComment, comment.Head...)
		}
		if len(comment.Foot) > 0 {
			if len(s.footComment) > 0 {
				s.footComment = append(s.footComment, '\n')
			}
			s.footComment = append(s.footComment, comment.Foot...)
		}
		if len(comment.Line) > 0 {
			if len(s.lineComment) > 0 {
				s.lineComment = append(s.lineComment, '\n')
			}
			s.lineComment = append(s.lineComment, comment.Line...)
		}
		*comment = yamlh.Comment{}
		s.commentHead++
	}
}

// TakeComments moves the accumulated comments onto the event and
// clears the accumulators.
func (s *Scanner) TakeComments(event *yamlh.Event) {
	event.HeadComment = s.headComment
	event.LineComment = s.lineComment
	event.FootComment = s.footComment
	s.headComment = nil
	s.lineComment = nil
	s.footComment = nil
	s.tailComment = nil
	s.stemComment = nil
}

// TailComment returns and clears the pending tail comment.
func (s *Scanner) TailComment() []byte {
	t := s.tailComment
	s.tailComment = nil
	return t
}

// HeadCommentLen reports the size of the accumulated head comment.
func (s *Scanner) HeadCommentLen() int { return len(s.headComment) }

// StemComment returns and clears the pending stem comment.
func (s *Scanner) StemComment() []byte {
	c := s.stemComment
	s.stemComment = nil
	return c
}

// SplitStemComment moves the prior head comment aside as the stem
// comment when a nested collection follows a sequence entry.
func (s *Scanner) SplitStemComment(nextKind yamlh.TokenKind, stemLen int) {
	if stemLen == 0 {
		return
	}
	if nextKind != yamlh.BlockSequenceStartToken && nextKind != yamlh.BlockMappingStartToken {
		return
	}
	s.stemComment = s.headComment[:stemLen]
	if len(s.headComment) == stemLen {
		s.headComment = nil
	} else {
		// Copy the suffix so appends to the stem slice can never
		// clobber it.
		s.headComment = append([]byte(nil), s.headComment[stemLen+1:]...)
	}
}

// SplitDocumentHeadComment breaks the accumulated head comment at the
// last empty line: the part above belongs to the document header, the
// rest to the first node.
func (s *Scanner) SplitDocumentHeadComment() []byte {
	var head []byte
	if len(s.headComment) == 0 {
		return nil
	}
	for i := len(s.headComment) - 1; i > 0; i-- {
		if s.headComment[i] != '\n' {
			continue
		}
		if i == len(s.headComment)-1 {
			head = s.headComment[:i]
			s.headComment = s.headComment[i+1:]
			break
		}
		if s.headComment[i-1] == '\n' {
			head = s.headComment[:i-1]
			s.headComment = s.headComment[i+1:]
			break
		}
	}
	return head
}

// insertToken places a token at the queue position, or appends when
// pos is negative.
func (s *Scanner) insertToken(pos int, token *yamlh.Token) {
	token.RawOffset = token.Start.Index
	token.RawLength = token.End.Index - token.Start.Index
	if s.tokensHead > 0 && len(s.tokens) == cap(s.tokens) {
		if s.tokensHead != len(s.tokens) {
			copy(s.tokens, s.tokens[s.tokensHead:])
		}
		s.tokens = s.tokens[:len(s.tokens)-s.tokensHead]
		s.tokensHead = 0
	}
	s.tokens = append(s.tokens, *token)
	if pos < 0 {
		return
	}
	copy(s.tokens[s.tokensHead+pos+1:], s.tokens[s.tokensHead+pos:])
	s.tokens[s.tokensHead+pos] = *token
}

// fetchMoreTokens fills the queue until a token can be returned.
func (s *Scanner) fetchMoreTokens() error {
	for {
		// Comment parsing needs a two-token lookahead so foot
		// comments can attach to the tokens scanned before them.
		if s.tokensHead < len(s.tokens)-2 {
			// With a potential simple key at the head position the
			// next token is still needed to disambiguate it.
			headTokIdx, ok := s.simpleKeysByTok[s.tokensParsed]
			if !ok {
				break
			}
			valid, err := s.simpleKeyIsValid(&s.simpleKeys[headTokIdx])
			if err != nil {
				return err
			}
			if !valid {
				break
			}
		}
		if err := s.fetchNextToken(); err != nil {
			return err
		}
	}
	s.tokenAvailable = true
	return nil
}

// fetchNextToken dispatches on the next character.
func (s *Scanner) fetchNextToken() (errOut error) {
	if s.r.unread < 1 {
		if err := s.r.ensure(1); err != nil {
			return err
		}
	}

	if !s.streamStartProduced {
		s.fetchStreamStart()
		return nil
	}

	scanMark := s.r.mark

	if err := s.scanToNextToken(); err != nil {
		return err
	}

	// While unrolling indents, head comments of closed levels become
	// foot comments of the blocks they trailed.
	s.unrollIndent(s.r.mark.Column, scanMark)

	// Longest indicators are '--- ' and '... '.
	if s.r.unread < 4 {
		if err := s.r.ensure(4); err != nil {
			return err
		}
	}

	if yamlh.IsZ(s.r.buf, s.r.pos) {
		return s.fetchStreamEnd()
	}

	if s.r.mark.Column == 0 && s.r.buf[s.r.pos] == '%' {
		if s.json {
			return s.scannerError(s.r.mark, "directives are not allowed in JSON mode")
		}
		return s.fetchDirective()
	}

	buf, pos := s.r.buf, s.r.pos

	if s.r.mark.Column == 0 && buf[pos] == '-' && buf[pos+1] == '-' && buf[pos+2] == '-' && yamlh.IsBlankZ(buf, pos+3) {
		if s.json {
			return s.scannerError(s.r.mark, "document markers are not allowed in JSON mode")
		}
		return s.fetchDocumentIndicator(yamlh.DocumentStartToken)
	}
	if s.r.mark.Column == 0 && buf[pos] == '.' && buf[pos+1] == '.' && buf[pos+2] == '.' && yamlh.IsBlankZ(buf, pos+3) {
		if s.json {
			return s.scannerError(s.r.mark, "document markers are not allowed in JSON mode")
		}
		return s.fetchDocumentIndicator(yamlh.DocumentEndToken)
	}

	commentMark := s.r.mark
	if len(s.tokens) > 0 && (s.flowLevel == 0 && buf[pos] == ':' || s.flowLevel > 0 && buf[pos] == ',') {
		// Following comments belong to the prior token.
		commentMark = s.tokens[len(s.tokens)-1].Start
	}
	defer func() {
		if errOut != nil || !s.comments {
			return
		}
		if len(s.tokens) > 0 && s.tokens[len(s.tokens)-1].Kind == yamlh.BlockEntryToken {
			// A bare sequence indicator has no line comment; it heads
			// whatever follows.
			return
		}
		errOut = s.scanLineComment(commentMark)
	}()

	switch {
	case buf[pos] == '[':
		return s.fetchFlowCollectionStart(yamlh.FlowSequenceStartToken)
	case buf[pos] == '{':
		return s.fetchFlowCollectionStart(yamlh.FlowMappingStartToken)
	case buf[pos] == ']':
		return s.fetchFlowCollectionEnd(yamlh.FlowSequenceEndToken)
	case buf[pos] == '}':
		return s.fetchFlowCollectionEnd(yamlh.FlowMappingEndToken)
	case buf[pos] == ',':
		return s.fetchFlowEntry()
	case buf[pos] == '-' && yamlh.IsBlankZ(buf, pos+1):
		if s.json {
			return s.scannerError(s.r.mark, "block sequence entries are not allowed in JSON mode")
		}
		return s.fetchBlockEntry()
	case buf[pos] == '?' && (s.flowLevel > 0 || yamlh.IsBlankZ(buf, pos+1)):
		if s.json {
			return s.scannerError(s.r.mark, "explicit key indicators are not allowed in JSON mode")
		}
		return s.fetchKey()
	case buf[pos] == ':' && (s.flowLevel > 0 || yamlh.IsBlankZ(buf, pos+1)):
		if s.json && s.flowLevel == 0 {
			return s.scannerError(s.r.mark, "block mappings are not allowed in JSON mode")
		}
		return s.fetchValue()
	case buf[pos] == '*':
		if s.json {
			return s.scannerError(s.r.mark, "aliases are not allowed in JSON mode")
		}
		return s.fetchAnchor(yamlh.AliasToken)
	case buf[pos] == '&':
		if s.json {
			return s.scannerError(s.r.mark, "anchors are not allowed in JSON mode")
		}
		return s.fetchAnchor(yamlh.AnchorToken)
	case buf[pos] == '!':
		if s.json {
			return s.scannerError(s.r.mark, "tags are not allowed in JSON mode")
		}
		return s.fetchTag()
	case buf[pos] == '|' && s.flowLevel == 0:
		if s.json {
			return s.scannerError(s.r.mark, "block scalars are not allowed in JSON mode")
		}
		return s.fetchBlockScalar(true)
	case buf[pos] == '>' && s.flowLevel == 0:
		if s.json {
			return s.scannerError(s.r.mark, "block scalars are not allowed in JSON mode")
		}
		return s.fetchBlockScalar(false)
	case buf[pos] == '\'':
		if s.json {
			return s.scannerError(s.r.mark, "single-quoted strings are not allowed in JSON mode")
		}
		return s.fetchFlowScalar(true)
	case buf[pos] == '"':
		return s.fetchFlowScalar(false)
	}

	// A plain scalar may start with any non-blank character except the
	// indicators; '-', '?' and ':' may also start one when followed by
	// a non-blank character.
	if !(yamlh.IsBlankZ(buf, pos) || buf[pos] == '-' ||
		buf[pos] == '?' || buf[pos] == ':' ||
		buf[pos] == ',' || buf[pos] == '[' ||
		buf[pos] == ']' || buf[pos] == '{' ||
		buf[pos] == '}' || buf[pos] == '#' ||
		buf[pos] == '&' || buf[pos] == '*' ||
		buf[pos] == '!' || buf[pos] == '|' ||
		buf[pos] == '>' || buf[pos] == '\'' ||
		buf[pos] == '"' || buf[pos] == '%' ||
		buf[pos] == '@' || buf[pos] == '`') ||
		(buf[pos] == '-' && !yamlh.IsBlank(buf, pos+1)) ||
		(s.flowLevel == 0 &&
			(buf[pos] == '?' || buf[pos] == ':') &&
			!yamlh.IsBlankZ(buf, pos+1)) {
		return s.fetchPlainScalar()
	}

	return s.scannerError(s.r.mark, "found character that cannot start any token")
}

// simpleKeyIsValid reports whether a candidate can still become a key.
// The ':' must appear within 1024 characters and on the same line.
func (s *Scanner) simpleKeyIsValid(key *yamlh.SimpleKey) (bool, error) {
	if !key.Possible {
		return false, nil
	}
	if key.Mark.Line < s.r.mark.Line || key.Mark.Index+1024 < s.r.mark.Index {
		if key.Required {
			return false, s.scannerError(key.Mark, "could not find expected ':'")
		}
		key.Possible = false
		return false, nil
	}
	return true, nil
}

// saveSimpleKey records a possible simple key at the current position.
func (s *Scanner) saveSimpleKey() error {
	// Required iff in block context at the current indentation level.
	required := s.flowLevel == 0 && s.indent == s.r.mark.Column

	if s.simpleKeyAllowed {
		key := yamlh.SimpleKey{
			Possible:    true,
			Required:    required,
			TokenNumber: s.tokensParsed + (len(s.tokens) - s.tokensHead),
			Mark:        s.r.mark,
		}
		if err := s.removeSimpleKey(); err != nil {
			return err
		}
		s.simpleKeys[len(s.simpleKeys)-1] = key
		s.simpleKeysByTok[key.TokenNumber] = len(s.simpleKeys) - 1
	}
	return nil
}

// removeSimpleKey drops the candidate at the current flow level.
func (s *Scanner) removeSimpleKey() error {
	i := len(s.simpleKeys) - 1
	if s.simpleKeys[i].Possible {
		if s.simpleKeys[i].Required {
			return s.scannerError(s.simpleKeys[i].Mark, "could not find expected ':'")
		}
		s.simpleKeys[i].Possible = false
		delete(s.simpleKeysByTok, s.simpleKeys[i].TokenNumber)
	}
	return nil
}

func (s *Scanner) increaseFlowLevel() error {
	// A fresh simple-key slot for the nested level.
	s.simpleKeys = append(s.simpleKeys, yamlh.SimpleKey{
		TokenNumber: s.tokensParsed + (len(s.tokens) - s.tokensHead),
		Mark:        s.r.mark,
	})
	s.flowLevel++
	if s.flowLevel > s.maxDepth {
		return s.scannerError(s.simpleKeys[len(s.simpleKeys)-1].Mark, fmt.Sprintf("exceeded max depth of %d", s.maxDepth))
	}
	return nil
}

func (s *Scanner) decreaseFlowLevel() {
	if s.flowLevel > 0 {
		s.flowLevel--
		last := len(s.simpleKeys) - 1
		delete(s.simpleKeysByTok, s.simpleKeys[last].TokenNumber)
		s.simpleKeys = s.simpleKeys[:last]
	}
}

// rollIndent pushes the indentation level and inserts a block start
// token when the column is deeper than the current level.
func (s *Scanner) rollIndent(column, number int, kind yamlh.TokenKind, mark yamlh.Mark) error {
	if s.flowLevel > 0 {
		return nil
	}
	if s.indent < column {
		s.indents = append(s.indents, s.indent)
		s.indent = column
		if len(s.indents) > s.maxDepth {
			return s.scannerError(s.simpleKeys[len(s.simpleKeys)-1].Mark, fmt.Sprintf("exceeded max depth of %d", s.maxDepth))
		}
		token := yamlh.Token{
			Kind:  kind,
			Start: mark,
			End:   mark,
		}
		if number > -1 {
			number -= s.tokensParsed
		}
		s.insertToken(number, &token)
	}
	return nil
}

// unrollIndent pops indentation levels deeper than the column,
// appending a BLOCK-END for each, placed before any trailing foot
// comments of the closing blocks.
func (s *Scanner) unrollIndent(column int, scanMark yamlh.Mark) {
	if s.flowLevel > 0 {
		return
	}

	blockMark := scanMark
	blockMark.Index--

	for s.indent > column {
		// Search backwards for recent comments at the indent of the
		// block that is ending now.
		stopIndex := blockMark.Index
		for i := len(s.commentQueue) - 1; i >= 0; i-- {
			comment := &s.commentQueue[i]
			if comment.End.Index < stopIndex {
				// Don't go back beyond the start of the scan.
				break
			}
			if comment.Start.Column == s.indent+1 {
				// A good match, but an earlier comment may sit at the
				// same indent, so keep searching.
				blockMark = comment.Start
			}
			stopIndex = comment.ScanMark.Index
		}

		token := yamlh.Token{
			Kind:  yamlh.BlockEndToken,
			Start: blockMark,
			End:   blockMark,
		}
		s.insertToken(-1, &token)

		s.indent = s.indents[len(s.indents)-1]
		s.indents = s.indents[:len(s.indents)-1]
	}
}

// fetchStreamStart produces the STREAM-START token.
func (s *Scanner) fetchStreamStart() {
	s.indent = -1
	s.simpleKeys = append(s.simpleKeys, yamlh.SimpleKey{})
	s.simpleKeysByTok = make(map[int]int)
	s.simpleKeyAllowed = true
	s.streamStartProduced = true

	token := yamlh.Token{
		Kind:     yamlh.StreamStartToken,
		Start:    s.r.mark,
		End:      s.r.mark,
		Encoding: s.r.encoding,
	}
	s.insertToken(-1, &token)
}

// fetchStreamEnd produces STREAM-END and shuts the scanner down.
func (s *Scanner) fetchStreamEnd() error {
	// Force a new line.
	if s.r.mark.Column != 0 {
		s.r.mark.Column = 0
		s.r.mark.Line++
	}

	s.unrollIndent(-1, s.r.mark)

	if err := s.removeSimpleKey(); err != nil {
		return err
	}
	s.simpleKeyAllowed = false

	token := yamlh.Token{
		Kind:  yamlh.StreamEndToken,
		Start: s.r.mark,
		End:   s.r.mark,
	}
	s.insertToken(-1, &token)
	return nil
}

// fetchDirective produces a VERSION-DIRECTIVE or TAG-DIRECTIVE token.
func (s *Scanner) fetchDirective() error {
	s.unrollIndent(-1, s.r.mark)

	if err := s.removeSimpleKey(); err != nil {
		return err
	}
	s.simpleKeyAllowed = false

	token, err := s.scanDirective()
	if err != nil {
		return err
	}
	s.insertToken(-1, token)
	return nil
}

// fetchDocumentIndicator produces DOCUMENT-START or DOCUMENT-END.
func (s *Scanner) fetchDocumentIndicator(kind yamlh.TokenKind) error {
	s.unrollIndent(-1, s.r.mark)

	if err := s.removeSimpleKey(); err != nil {
		return err
	}
	s.simpleKeyAllowed = false

	start := s.r.mark
	s.r.skip()
	s.r.skip()
	s.r.skip()

	token := yamlh.Token{
		Kind:  kind,
		Start: start,
		End:   s.r.mark,
	}
	s.insertToken(-1, &token)
	return nil
}

// fetchFlowCollectionStart produces FLOW-SEQUENCE-START or
// FLOW-MAPPING-START.
func (s *Scanner) fetchFlowCollectionStart(kind yamlh.TokenKind) error {
	// '[' and '{' may start a simple key.
	if err := s.saveSimpleKey(); err != nil {
		return err
	}
	if err := s.increaseFlowLevel(); err != nil {
		return err
	}
	s.simpleKeyAllowed = true

	start := s.r.mark
	s.r.skip()

	token := yamlh.Token{
		Kind:  kind,
		Start: start,
		End:   s.r.mark,
	}
	s.insertToken(-1, &token)
	return nil
}

// fetchFlowCollectionEnd produces FLOW-SEQUENCE-END or
// FLOW-MAPPING-END.
func (s *Scanner) fetchFlowCollectionEnd(kind yamlh.TokenKind) error {
	if err := s.removeSimpleKey(); err != nil {
		return err
	}
	s.decreaseFlowLevel()
	s.simpleKeyAllowed = false

	start := s.r.mark
	s.r.skip()

	token := yamlh.Token{
		Kind:  kind,
		Start: start,
		End:   s.r.mark,
	}
	s.insertToken(-1, &token)
	return nil
}

// fetchFlowEntry produces the FLOW-ENTRY token.
func (s *Scanner) fetchFlowEntry() error {
	if err := s.removeSimpleKey(); err != nil {
		return err
	}
	s.simpleKeyAllowed = true

	start := s.r.mark
	s.r.skip()

	token := yamlh.Token{
		Kind:  yamlh.FlowEntryToken,
		Start: start,
		End:   s.r.mark,
	}
	s.insertToken(-1, &token)
	return nil
}

// fetchBlockEntry produces the BLOCK-ENTRY token.
func (s *Scanner) fetchBlockEntry() error {
	if s.flowLevel == 0 {
		if !s.simpleKeyAllowed {
			return s.scannerError(s.r.mark, "block sequence entries are not allowed in this context")
		}
		if err := s.rollIndent(s.r.mark.Column, -1, yamlh.BlockSequenceStartToken, s.r.mark); err != nil {
			return err
		}
	}

	if err := s.removeSimpleKey(); err != nil {
		return err
	}
	s.simpleKeyAllowed = true

	start := s.r.mark
	s.r.skip()

	token := yamlh.Token{
		Kind:  yamlh.BlockEntryToken,
		Start: start,
		End:   s.r.mark,
	}
	s.insertToken(-1, &token)
	return nil
}

// fetchKey produces the KEY token.
func (s *Scanner) fetchKey() error {
	if s.flowLevel == 0 {
		if !s.simpleKeyAllowed {
			return s.scannerError(s.r.mark, "mapping keys are not allowed in this context")
		}
		if err := s.rollIndent(s.r.mark.Column, -1, yamlh.BlockMappingStartToken, s.r.mark); err != nil {
			return err
		}
	}

	if err := s.removeSimpleKey(); err != nil {
		return err
	}
	s.simpleKeyAllowed = s.flowLevel == 0

	start := s.r.mark
	s.r.skip()

	token := yamlh.Token{
		Kind:  yamlh.KeyToken,
		Start: start,
		End:   s.r.mark,
	}
	s.insertToken(-1, &token)
	return nil
}

// fetchValue produces the VALUE token, inserting the deferred KEY
// token first when a valid simple key precedes it.
func (s *Scanner) fetchValue() error {
	key := &s.simpleKeys[len(s.simpleKeys)-1]

	valid, err := s.simpleKeyIsValid(key)
	if err != nil {
		return err
	}
	if valid {
		token := yamlh.Token{
			Kind:  yamlh.KeyToken,
			Start: key.Mark,
			End:   key.Mark,
		}
		s.insertToken(key.TokenNumber-s.tokensParsed, &token)

		if err = s.rollIndent(key.Mark.Column, key.TokenNumber, yamlh.BlockMappingStartToken, key.Mark); err != nil {
			return err
		}

		key.Possible = false
		delete(s.simpleKeysByTok, key.TokenNumber)

		// A simple key cannot follow another simple key.
		s.simpleKeyAllowed = false
	} else {
		// The ':' follows a complex key.
		if s.flowLevel == 0 {
			if !s.simpleKeyAllowed {
				return s.scannerError(s.r.mark, "mapping values are not allowed in this context")
			}
			if err = s.rollIndent(s.r.mark.Column, -1, yamlh.BlockMappingStartToken, s.r.mark); err != nil {
				return err
			}
		}
		s.simpleKeyAllowed = s.flowLevel == 0
	}

	start := s.r.mark
	s.r.skip()

	token := yamlh.Token{
		Kind:  yamlh.ValueToken,
		Start: start,
		End:   s.r.mark,
	}
	s.insertToken(-1, &token)
	return nil
}

// fetchAnchor produces an ALIAS or ANCHOR token.
func (s *Scanner) fetchAnchor(kind yamlh.TokenKind) error {
	if err := s.saveSimpleKey(); err != nil {
		return err
	}
	s.simpleKeyAllowed = false

	token, err := s.scanAnchor(kind)
	if err != nil {
		return err
	}
	s.insertToken(-1, token)
	return nil
}

// fetchTag produces the TAG token.
func (s *Scanner) fetchTag() error {
	if err := s.saveSimpleKey(); err != nil {
		return err
	}
	s.simpleKeyAllowed = false

	token, err := s.scanTag()
	if err != nil {
		return err
	}
	s.insertToken(-1, token)
	return nil
}

// fetchBlockScalar produces a literal or folded SCALAR token.
func (s *Scanner) fetchBlockScalar(literal bool) error {
	if err := s.removeSimpleKey(); err != nil {
		return err
	}
	// A simple key may follow a block scalar.
	s.simpleKeyAllowed = true

	token, err := s.scanBlockScalar(literal)
	if err != nil {
		return err
	}
	s.insertToken(-1, token)
	return nil
}

// fetchFlowScalar produces a single or double quoted SCALAR token.
func (s *Scanner) fetchFlowScalar(single bool) error {
	if err := s.saveSimpleKey(); err != nil {
		return err
	}
	s.simpleKeyAllowed = false

	token, err := s.scanFlowScalar(single)
	if err != nil {
		return err
	}
	s.insertToken(-1, token)
	return nil
}

// fetchPlainScalar produces a plain SCALAR token.
func (s *Scanner) fetchPlainScalar() error {
	if err := s.saveSimpleKey(); err != nil {
		return err
	}
	s.simpleKeyAllowed = false

	token, err := s.scanPlainScalar()
	if err != nil {
		return err
	}
	if s.json {
		if err := s.checkJSONScalar(token); err != nil {
			return err
		}
	}
	s.insertToken(-1, token)
	return nil
}

// tabSkippable reports whether a tab may be eaten as whitespace at the
// current position.
func (s *Scanner) tabSkippable() bool {
	if s.tabPolicy == TabsAuto {
		return true
	}
	// Tabs are allowed in the flow context, and in the block context
	// except at the start of a line or after '-', '?' or ':'.
	return s.flowLevel > 0 || !s.simpleKeyAllowed
}

// scanToNextToken eats whitespace and comments until a token starts.
func (s *Scanner) scanToNextToken() error {
	scanMark := s.r.mark

	for {
		// A BOM may start a line.
		if s.r.unread < 1 {
			if err := s.r.ensure(1); err != nil {
				return err
			}
		}
		if s.r.mark.Column == 0 && yamlh.IsBOM(s.r.buf, s.r.pos) {
			if s.r.mark.Index > 0 {
				return s.scannerError(s.r.mark, "byte order mark is only allowed at stream start")
			}
			s.r.skip()
		}

		if s.r.unread < 1 {
			if err := s.r.ensure(1); err != nil {
				return err
			}
		}

		for s.r.buf[s.r.pos] == ' ' || (s.tabSkippable() && s.r.buf[s.r.pos] == '\t') {
			s.r.skip()
			if s.r.unread < 1 {
				if err := s.r.ensure(1); err != nil {
					return err
				}
			}
		}

		// A line comment directly under a bare sequence entry reads
		// as a header for the following content:
		//
		// - # The comment
		//   - Some data
		//
		// Transform it into a head comment and reposition.
		if len(s.commentQueue) > 0 && len(s.tokens) > 1 {
			tokenA := s.tokens[len(s.tokens)-2]
			tokenB := s.tokens[len(s.tokens)-1]
			comment := &s.commentQueue[len(s.commentQueue)-1]
			if tokenA.Kind == yamlh.BlockSequenceStartToken && tokenB.Kind == yamlh.BlockEntryToken && len(comment.Line) > 0 && !yamlh.IsBreak(s.r.buf, s.r.pos) {
				comment.Head = comment.Line
				comment.Line = nil
				if comment.Start.Line == s.r.mark.Line-1 {
					comment.TokenMark = s.r.mark
				}
			}
		}

		if s.r.buf[s.r.pos] == '#' {
			if s.comments {
				if err := s.scanComments(scanMark); err != nil {
					return err
				}
			} else {
				if err := s.consumeComment(); err != nil {
					return err
				}
			}
		}

		if yamlh.IsBreak(s.r.buf, s.r.pos) {
			if s.r.unread < 2 {
				if err := s.r.ensure(2); err != nil {
					return err
				}
			}
			s.r.skipLine()

			// A new line may start a simple key in block context.
			if s.flowLevel == 0 {
				s.simpleKeyAllowed = true
			}
		} else {
			break
		}
	}

	return nil
}

// consumeComment eats a comment to the end of the line without
// recording it.
func (s *Scanner) consumeComment() error {
	for !yamlh.IsBreakZ(s.r.buf, s.r.pos) {
		s.r.skip()
		if s.r.unread < 1 {
			if err := s.r.ensure(1); err != nil {
				return err
			}
		}
	}
	return nil
}
