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

// scanBlockScalar scans a literal or folded scalar, starting at the
// '|' or '>' indicator.
func (s *Scanner) scanBlockScalar(literal bool) (*yamlh.Token, error) {
	// Eat the indicator.
	start := s.r.mark
	s.r.skip()

	if s.r.unread < 1 {
		if err := s.r.ensure(1); err != nil {
			return nil, err
		}
	}

	// Chomping and indentation indicators may come in either order.
	var chomping, increment int
	if s.r.buf[s.r.pos] == '+' || s.r.buf[s.r.pos] == '-' {
		if s.r.buf[s.r.pos] == '+' {
			chomping = +1
		} else {
			chomping = -1
		}
		s.r.skip()

		if s.r.unread < 1 {
			if err := s.r.ensure(1); err != nil {
				return nil, err
			}
		}
		if yamlh.IsDigit(s.r.buf, s.r.pos) {
			if s.r.buf[s.r.pos] == '0' {
				return nil, s.scannerError(start, "found an indentation indicator equal to 0")
			}
			increment = yamlh.AsDigit(s.r.buf, s.r.pos)
			s.r.skip()
		}
	} else if yamlh.IsDigit(s.r.buf, s.r.pos) {
		if s.r.buf[s.r.pos] == '0' {
			return nil, s.scannerError(start, "found an indentation indicator equal to 0")
		}
		increment = yamlh.AsDigit(s.r.buf, s.r.pos)
		s.r.skip()

		if s.r.unread < 1 {
			if err := s.r.ensure(1); err != nil {
				return nil, err
			}
		}
		if s.r.buf[s.r.pos] == '+' || s.r.buf[s.r.pos] == '-' {
			if s.r.buf[s.r.pos] == '+' {
				chomping = +1
			} else {
				chomping = -1
			}
			s.r.skip()
		}
	}

	// Eat whitespace and comments to the end of the line.
	if s.r.unread < 1 {
		if err := s.r.ensure(1); err != nil {
			return nil, err
		}
	}
	for yamlh.IsBlank(s.r.buf, s.r.pos) {
		s.r.skip()
		if s.r.unread < 1 {
			if err := s.r.ensure(1); err != nil {
				return nil, err
			}
		}
	}
	if s.r.buf[s.r.pos] == '#' {
		if s.comments {
			if err := s.scanLineComment(start); err != nil {
				return nil, err
			}
		}
		for !yamlh.IsBreakZ(s.r.buf, s.r.pos) {
			s.r.skip()
			if s.r.unread < 1 {
				if err := s.r.ensure(1); err != nil {
					return nil, err
				}
			}
		}
	}

	if !yamlh.IsBreakZ(s.r.buf, s.r.pos) {
		return nil, s.scannerError(start, "did not find expected comment or line break")
	}

	if yamlh.IsBreak(s.r.buf, s.r.pos) {
		if s.r.unread < 2 {
			if err := s.r.ensure(2); err != nil {
				return nil, err
			}
		}
		s.r.skipLine()
	}

	end := s.r.mark

	// An explicit indentation indicator is relative to the parent.
	var indent int
	if increment > 0 {
		if s.indent >= 0 {
			indent = s.indent + increment
		} else {
			indent = increment
		}
	}

	// Leading line breaks also settle the detected indentation.
	var value, leadingBreak, trailingBreaks []byte
	if err := s.scanBlockScalarBreaks(&indent, &trailingBreaks, start, &end); err != nil {
		return nil, err
	}

	if s.r.unread < 1 {
		if err := s.r.ensure(1); err != nil {
			return nil, err
		}
	}
	var leadingBlank, trailingBlank bool
	for s.r.mark.Column == indent && !yamlh.IsZ(s.r.buf, s.r.pos) {
		// At the start of a non-empty line.
		trailingBlank = yamlh.IsBlank(s.r.buf, s.r.pos)

		// Fold the leading line break unless a blank line borders it.
		if !literal && !leadingBlank && !trailingBlank && len(leadingBreak) > 0 && leadingBreak[0] == '\n' {
			if len(trailingBreaks) == 0 {
				value = append(value, ' ')
			}
		} else {
			value = append(value, leadingBreak...)
		}
		leadingBreak = leadingBreak[:0]

		value = append(value, trailingBreaks...)
		trailingBreaks = trailingBreaks[:0]

		leadingBlank = yamlh.IsBlank(s.r.buf, s.r.pos)

		for !yamlh.IsBreakZ(s.r.buf, s.r.pos) {
			value = s.r.read(value)
			if s.r.unread < 1 {
				if err := s.r.ensure(1); err != nil {
					return nil, err
				}
			}
		}

		if s.r.unread < 2 {
			if err := s.r.ensure(2); err != nil {
				return nil, err
			}
		}
		leadingBreak = s.r.readLine(leadingBreak)

		if err := s.scanBlockScalarBreaks(&indent, &trailingBreaks, start, &end); err != nil {
			return nil, err
		}
	}

	// Chomp the tail.
	if chomping != -1 {
		value = append(value, leadingBreak...)
	}
	if chomping == 1 {
		value = append(value, trailingBreaks...)
	}

	token := yamlh.Token{
		Kind:  yamlh.ScalarToken,
		Start: start,
		End:   end,
		Value: value,
		Style: yamlh.LiteralStyle,
	}
	if !literal {
		token.Style = yamlh.FoldedStyle
	}
	return &token, nil
}

// scanBlockScalarBreaks eats indentation and empty lines inside a
// block scalar, detecting the indentation level when not yet fixed.
func (s *Scanner) scanBlockScalarBreaks(indent *int, breaks *[]byte, start yamlh.Mark, end *yamlh.Mark) error {
	*end = s.r.mark

	maxIndent := 0
	for {
		if s.r.unread < 1 {
			if err := s.r.ensure(1); err != nil {
				return err
			}
		}
		for (*indent == 0 || s.r.mark.Column < *indent) &&
			(yamlh.IsSpace(s.r.buf, s.r.pos) || (s.tabPolicy == TabsAuto && yamlh.IsTab(s.r.buf, s.r.pos))) {
			s.r.skip()
			if s.r.unread < 1 {
				if err := s.r.ensure(1); err != nil {
					return err
				}
			}
		}
		if s.r.mark.Column > maxIndent {
			maxIndent = s.r.mark.Column
		}

		if (*indent == 0 || s.r.mark.Column < *indent) && yamlh.IsTab(s.r.buf, s.r.pos) {
			return s.scannerError(start, "found a tab character where an indentation space is expected")
		}

		if !yamlh.IsBreak(s.r.buf, s.r.pos) {
			break
		}

		if s.r.unread < 2 {
			if err := s.r.ensure(2); err != nil {
				return err
			}
		}
		*breaks = s.r.readLine(*breaks)
		*end = s.r.mark
	}

	if *indent == 0 {
		*indent = maxIndent
		if *indent < s.indent+1 {
			*indent = s.indent + 1
		}
		if *indent < 1 {
			*indent = 1
		}
	}
	return nil
}

// scanFlowScalar scans a single or double quoted scalar.
func (s *Scanner) scanFlowScalar(single bool) (*yamlh.Token, error) {
	// Eat the left quote.
	start := s.r.mark
	s.r.skip()

	var value, leadingBreak, trailingBreaks, whitespaces []byte
	for {
		// Document indicators may not start a line inside a scalar.
		if s.r.unread < 4 {
			if err := s.r.ensure(4); err != nil {
				return nil, err
			}
		}

		buf, pos := s.r.buf, s.r.pos
		if s.r.mark.Column == 0 &&
			((buf[pos+0] == '-' && buf[pos+1] == '-' && buf[pos+2] == '-') ||
				(buf[pos+0] == '.' && buf[pos+1] == '.' && buf[pos+2] == '.')) &&
			yamlh.IsBlankZ(buf, pos+3) {
			return nil, s.scannerError(start, "found unexpected document indicator")
		}

		if yamlh.IsZ(s.r.buf, s.r.pos) {
			return nil, s.scannerError(start, "found unexpected end of stream")
		}

		leadingBlanks := false
		for !yamlh.IsBlankZ(s.r.buf, s.r.pos) {
			switch {
			case single && s.r.buf[s.r.pos] == '\'' && s.r.buf[s.r.pos+1] == '\'':
				// An escaped single quote.
				value = append(value, '\'')
				s.r.skip()
				s.r.skip()

			case single && s.r.buf[s.r.pos] == '\'':
				// The closing quote.
				goto done

			case !single && s.r.buf[s.r.pos] == '"':
				goto done

			case !single && s.r.buf[s.r.pos] == '\\' && yamlh.IsBreak(s.r.buf, s.r.pos+1):
				// An escaped line break.
				if s.r.unread < 3 {
					if err := s.r.ensure(3); err != nil {
						return nil, err
					}
				}
				s.r.skip()
				s.r.skipLine()
				leadingBlanks = true
				goto blanks

			case !single && s.r.buf[s.r.pos] == '\\':
				var err error
				value, err = s.scanEscapeSequence(start, value)
				if err != nil {
					return nil, err
				}

			default:
				value = s.r.read(value)
			}
			if s.r.unread < 2 {
				if err := s.r.ensure(2); err != nil {
					return nil, err
				}
			}
		}

		if s.r.unread < 1 {
			if err := s.r.ensure(1); err != nil {
				return nil, err
			}
		}

		// The closing quote may follow blanks.
		if single {
			if s.r.buf[s.r.pos] == '\'' {
				break
			}
		} else {
			if s.r.buf[s.r.pos] == '"' {
				break
			}
		}

	blanks:
		for yamlh.IsBlank(s.r.buf, s.r.pos) || yamlh.IsBreak(s.r.buf, s.r.pos) {
			if yamlh.IsBlank(s.r.buf, s.r.pos) {
				if !leadingBlanks {
					whitespaces = s.r.read(whitespaces)
				} else {
					s.r.skip()
				}
			} else {
				if s.r.unread < 2 {
					if err := s.r.ensure(2); err != nil {
						return nil, err
					}
				}
				if !leadingBlanks {
					whitespaces = whitespaces[:0]
					leadingBreak = s.r.readLine(leadingBreak)
					leadingBlanks = true
				} else {
					trailingBreaks = s.r.readLine(trailingBreaks)
				}
			}
			if s.r.unread < 1 {
				if err := s.r.ensure(1); err != nil {
					return nil, err
				}
			}
		}

		// Join the whitespace or fold the line breaks.
		if leadingBlanks {
			if len(leadingBreak) > 0 && leadingBreak[0] == '\n' {
				if len(trailingBreaks) == 0 {
					value = append(value, ' ')
				} else {
					value = append(value, trailingBreaks...)
				}
			} else {
				value = append(value, leadingBreak...)
				value = append(value, trailingBreaks...)
			}
			trailingBreaks = trailingBreaks[:0]
			leadingBreak = leadingBreak[:0]
		} else {
			value = append(value, whitespaces...)
			whitespaces = whitespaces[:0]
		}
	}

done:
	// Eat the right quote.
	s.r.skip()

	token := yamlh.Token{
		Kind:  yamlh.ScalarToken,
		Start: start,
		End:   s.r.mark,
		Value: value,
		Style: yamlh.SingleQuotedStyle,
	}
	if !single {
		token.Style = yamlh.DoubleQuotedStyle
	}
	return &token, nil
}

// scanEscapeSequence decodes one '\' escape of a double quoted scalar.
func (s *Scanner) scanEscapeSequence(start yamlh.Mark, value []byte) ([]byte, error) {
	codeLength := 0
	switch s.r.buf[s.r.pos+1] {
	case '0':
		value = append(value, 0)
	case 'a':
		value = append(value, '\x07')
	case 'b':
		value = append(value, '\x08')
	case 't', '\t':
		value = append(value, '\x09')
	case 'n':
		value = append(value, '\x0A')
	case 'v':
		value = append(value, '\x0B')
	case 'f':
		value = append(value, '\x0C')
	case 'r':
		value = append(value, '\x0D')
	case 'e':
		value = append(value, '\x1B')
	case ' ':
		value = append(value, '\x20')
	case '"':
		value = append(value, '"')
	case '\'':
		value = append(value, '\'')
	case '\\':
		value = append(value, '\\')
	case '/':
		value = append(value, '/')
	case 'N': // NEL (#x85)
		value = append(value, '\xC2', '\x85')
	case '_': // #xA0
		value = append(value, '\xC2', '\xA0')
	case 'L': // LS (#x2028)
		value = append(value, '\xE2', '\x80', '\xA8')
	case 'P': // PS (#x2029)
		value = append(value, '\xE2', '\x80', '\xA9')
	case 'x':
		codeLength = 2
	case 'u':
		codeLength = 4
	case 'U':
		codeLength = 8
	default:
		return nil, s.scannerError(start, "found unknown escape character")
	}

	s.r.skip()
	s.r.skip()

	if codeLength > 0 {
		var code int
		if s.r.unread < codeLength {
			if err := s.r.ensure(codeLength); err != nil {
				return nil, err
			}
		}
		for k := 0; k < codeLength; k++ {
			if !yamlh.IsHex(s.r.buf, s.r.pos+k) {
				return nil, s.scannerError(start, "did not find expected hexdecimal number")
			}
			code = (code << 4) + yamlh.AsHex(s.r.buf, s.r.pos+k)
		}

		if (code >= 0xD800 && code <= 0xDFFF) || code > 0x10FFFF {
			return nil, s.scannerError(start, "found invalid Unicode character escape code")
		}
		switch {
		case code <= 0x7F:
			value = append(value, byte(code))
		case code <= 0x7FF:
			value = append(value, byte(0xC0+(code>>6)), byte(0x80+(code&0x3F)))
		case code <= 0xFFFF:
			value = append(value, byte(0xE0+(code>>12)), byte(0x80+((code>>6)&0x3F)), byte(0x80+(code&0x3F)))
		default:
			value = append(value, byte(0xF0+(code>>18)), byte(0x80+((code>>12)&0x3F)), byte(0x80+((code>>6)&0x3F)), byte(0x80+(code&0x3F)))
		}

		for k := 0; k < codeLength; k++ {
			s.r.skip()
		}
	}
	return value, nil
}

// scanPlainScalar scans an unquoted scalar.
func (s *Scanner) scanPlainScalar() (*yamlh.Token, error) {
	var value, leadingBreak, trailingBreaks, whitespaces []byte
	var leadingBlanks bool
	indent := s.indent + 1

	start := s.r.mark
	end := s.r.mark

	for {
		// A document indicator ends the scalar.
		if s.r.unread < 4 {
			if err := s.r.ensure(4); err != nil {
				return nil, err
			}
		}
		buf, pos := s.r.buf, s.r.pos
		if s.r.mark.Column == 0 &&
			((buf[pos+0] == '-' && buf[pos+1] == '-' && buf[pos+2] == '-') ||
				(buf[pos+0] == '.' && buf[pos+1] == '.' && buf[pos+2] == '.')) &&
			yamlh.IsBlankZ(buf, pos+3) {
			break
		}

		// So does a comment.
		if s.r.buf[s.r.pos] == '#' {
			break
		}

		for !yamlh.IsBlankZ(s.r.buf, s.r.pos) {
			// Indicators that end a plain scalar.
			if (s.r.buf[s.r.pos] == ':' && yamlh.IsBlankZ(s.r.buf, s.r.pos+1)) ||
				(s.flowLevel > 0 &&
					(s.r.buf[s.r.pos] == ',' ||
						s.r.buf[s.r.pos] == '?' || s.r.buf[s.r.pos] == '[' ||
						s.r.buf[s.r.pos] == ']' || s.r.buf[s.r.pos] == '{' ||
						s.r.buf[s.r.pos] == '}')) {
				break
			}

			// Join pending whitespace and breaks.
			if leadingBlanks || len(whitespaces) > 0 {
				if leadingBlanks {
					if leadingBreak[0] == '\n' {
						if len(trailingBreaks) == 0 {
							value = append(value, ' ')
						} else {
							value = append(value, trailingBreaks...)
						}
					} else {
						value = append(value, leadingBreak...)
						value = append(value, trailingBreaks...)
					}
					trailingBreaks = trailingBreaks[:0]
					leadingBreak = leadingBreak[:0]
					leadingBlanks = false
				} else {
					value = append(value, whitespaces...)
					whitespaces = whitespaces[:0]
				}
			}

			value = s.r.read(value)
			end = s.r.mark
			if s.r.unread < 2 {
				if err := s.r.ensure(2); err != nil {
					return nil, err
				}
			}
		}

		if !(yamlh.IsBlank(s.r.buf, s.r.pos) || yamlh.IsBreak(s.r.buf, s.r.pos)) {
			break
		}

		if s.r.unread < 1 {
			if err := s.r.ensure(1); err != nil {
				return nil, err
			}
		}

		for yamlh.IsBlank(s.r.buf, s.r.pos) || yamlh.IsBreak(s.r.buf, s.r.pos) {
			if yamlh.IsBlank(s.r.buf, s.r.pos) {
				// A tab may not dedent a continuation line.
				if leadingBlanks && s.r.mark.Column < indent && yamlh.IsTab(s.r.buf, s.r.pos) && s.tabPolicy != TabsAuto {
					return nil, s.scannerError(start, "found a tab character that violates indentation")
				}
				if !leadingBlanks {
					whitespaces = s.r.read(whitespaces)
				} else {
					s.r.skip()
				}
			} else {
				if s.r.unread < 2 {
					if err := s.r.ensure(2); err != nil {
						return nil, err
					}
				}
				if !leadingBlanks {
					whitespaces = whitespaces[:0]
					leadingBreak = s.r.readLine(leadingBreak)
					leadingBlanks = true
				} else {
					trailingBreaks = s.r.readLine(trailingBreaks)
				}
			}
			if s.r.unread < 1 {
				if err := s.r.ensure(1); err != nil {
					return nil, err
				}
			}
		}

		// Dedenting ends the scalar in block context.
		if s.flowLevel == 0 && s.r.mark.Column < indent {
			break
		}
	}

	token := yamlh.Token{
		Kind:  yamlh.ScalarToken,
		Start: start,
		End:   end,
		Value: value,
		Style: yamlh.PlainStyle,
	}

	// Multiline plain scalars allow a following simple key.
	if leadingBlanks {
		s.simpleKeyAllowed = true
	}
	return &token, nil
}
