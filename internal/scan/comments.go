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

package scan

import (
	"github.com/flowyaml/flowyaml/internal/yamlh"
)

// scanLineComment captures a comment on the current line, associated
// with the token at tokenMark.
func (s *Scanner) scanLineComment(tokenMark yamlh.Mark) error {
	if s.r.newlines > 0 {
		return nil
	}

	var start yamlh.Mark
	var text []byte

	for peek := 0; peek < 512; peek++ {
		if s.r.unread < peek+1 {
			if err := s.r.ensure(peek + 1); err != nil {
				return err
			}
		}
		if yamlh.IsBlank(s.r.buf, s.r.pos+peek) {
			continue
		}
		if s.r.buf[s.r.pos+peek] == '#' {
			seen := s.r.mark.Index + peek
			for {
				if s.r.unread < 1 {
					if err := s.r.ensure(1); err != nil {
						return err
					}
				}
				if yamlh.IsBreakZ(s.r.buf, s.r.pos) {
					if s.r.mark.Index >= seen {
						break
					}
					if s.r.unread < 2 {
						if err := s.r.ensure(2); err != nil {
							return err
						}
					}
					s.r.skipLine()
				} else if s.r.mark.Index >= seen {
					if len(text) == 0 {
						start = s.r.mark
					}
					text = s.r.read(text)
				} else {
					s.r.skip()
				}
			}
		}
		break
	}
	if len(text) > 0 {
		s.commentQueue = append(s.commentQueue, yamlh.Comment{
			TokenMark: tokenMark,
			Start:     start,
			Line:      text,
		})
	}
	return nil
}

// scanComments captures a run of head and foot comments starting at
// the current position.
func (s *Scanner) scanComments(scanMark yamlh.Mark) error {
	token := s.tokens[len(s.tokens)-1]

	if token.Kind == yamlh.FlowEntryToken && len(s.tokens) > 1 {
		token = s.tokens[len(s.tokens)-2]
	}

	tokenMark := token.Start
	var start yamlh.Mark
	nextIndent := s.indent
	if nextIndent < 0 {
		nextIndent = 0
	}

	recentEmpty := false
	firstEmpty := s.r.newlines <= 1

	line := s.r.mark.Line
	column := s.r.mark.Column

	var text []byte

	// The foot line is where a comment must start to still count as a
	// foot of the prior content. With content on the current line the
	// foot is the line below it.
	footLine := -1
	if scanMark.Line > 0 {
		footLine = s.r.mark.Line - s.r.newlines + 1
		if s.r.newlines == 0 && s.r.mark.Column > 1 {
			footLine++
		}
	}

	peek := 0
	for ; peek < 512; peek++ {
		if s.r.unread < peek+1 && s.r.ensure(peek+1) != nil {
			break
		}
		column++
		if yamlh.IsBlank(s.r.buf, s.r.pos+peek) {
			continue
		}
		c := s.r.buf[s.r.pos+peek]
		closeFlow := s.flowLevel > 0 && (c == ']' || c == '}')
		if closeFlow || yamlh.IsBreakZ(s.r.buf, s.r.pos+peek) {
			// Line break or terminator.
			if closeFlow || !recentEmpty {
				if closeFlow || firstEmpty && (start.Line == footLine && token.Kind != yamlh.ValueToken || start.Column-1 < nextIndent) {
					// The first empty line with none before it: this
					// initial run is a foot of the prior token, not a
					// head of the following one. A last comment inside
					// a flow scope is likewise a footer.
					if len(text) > 0 {
						if start.Column-1 < nextIndent {
							// Dedented, so unrelated to the prior token.
							tokenMark = start
						}
						s.commentQueue = append(s.commentQueue, yamlh.Comment{
							ScanMark:  scanMark,
							TokenMark: tokenMark,
							Start:     start,
							End:       yamlh.Mark{Index: s.r.mark.Index + peek, Line: line, Column: column},
							Foot:      text,
						})
						scanMark = yamlh.Mark{Index: s.r.mark.Index + peek, Line: line, Column: column}
						tokenMark = scanMark
						text = nil
					}
				} else {
					if len(text) > 0 && s.r.buf[s.r.pos+peek] != 0 {
						text = append(text, '\n')
					}
				}
			}
			if !yamlh.IsBreak(s.r.buf, s.r.pos+peek) {
				break
			}
			firstEmpty = false
			recentEmpty = true
			column = 0
			line++
			continue
		}

		if len(text) > 0 && (closeFlow || column-1 < nextIndent && column != start.Column) {
			// A comment at a different indentation is a foot of the
			// preceding data rather than a head of the upcoming one.
			s.commentQueue = append(s.commentQueue, yamlh.Comment{
				ScanMark:  scanMark,
				TokenMark: tokenMark,
				Start:     start,
				End:       yamlh.Mark{Index: s.r.mark.Index + peek, Line: line, Column: column},
				Foot:      text,
			})
			scanMark = yamlh.Mark{Index: s.r.mark.Index + peek, Line: line, Column: column}
			tokenMark = scanMark
			text = nil
		}

		if s.r.buf[s.r.pos+peek] != '#' {
			break
		}

		if len(text) == 0 {
			start = yamlh.Mark{Index: s.r.mark.Index + peek, Line: line, Column: column}
		} else {
			text = append(text, '\n')
		}

		recentEmpty = false

		// Consume through the end of the comment line.
		seen := s.r.mark.Index + peek
		for {
			if s.r.unread < 1 {
				if err := s.r.ensure(1); err != nil {
					return err
				}
			}
			if yamlh.IsBreakZ(s.r.buf, s.r.pos) {
				if s.r.mark.Index >= seen {
					break
				}
				if s.r.unread < 2 {
					if err := s.r.ensure(2); err != nil {
						return err
					}
				}
				s.r.skipLine()
			} else if s.r.mark.Index >= seen {
				text = s.r.read(text)
			} else {
				s.r.skip()
			}
		}

		peek = 0
		column = 0
		line = s.r.mark.Line
		nextIndent = s.indent
		if nextIndent < 0 {
			nextIndent = 0
		}
	}

	if len(text) > 0 {
		s.commentQueue = append(s.commentQueue, yamlh.Comment{
			ScanMark:  scanMark,
			TokenMark: start,
			Start:     start,
			End:       yamlh.Mark{Index: s.r.mark.Index + peek - 1, Line: line, Column: column},
			Head:      text,
		})
	}
	return nil
}
