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
	"bytes"

	"github.com/flowyaml/flowyaml/internal/yamlh"
)

// scanDirective scans a %YAML or %TAG line.
//
//	%YAML    1.1    # a comment \n
//	^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^
//	%TAG    !yaml!  tag:yaml.org,2002:  \n
//	^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^^
func (s *Scanner) scanDirective() (*yamlh.Token, error) {
	// Eat '%'.
	start := s.r.mark
	s.r.skip()

	name, err := s.scanDirectiveName(start)
	if err != nil {
		return nil, err
	}

	var token yamlh.Token
	switch {
	case bytes.Equal(name, []byte("YAML")):
		major, minor, err := s.scanVersionDirectiveValue(start)
		if err != nil {
			return nil, err
		}
		token = yamlh.Token{
			Kind:  yamlh.VersionDirectiveToken,
			Start: start,
			End:   s.r.mark,
			Major: major,
			Minor: minor,
		}
	case bytes.Equal(name, []byte("TAG")):
		handle, prefix, err := s.scanTagDirectiveValue(start)
		if err != nil {
			return nil, err
		}
		token = yamlh.Token{
			Kind:   yamlh.TagDirectiveToken,
			Start:  start,
			End:    s.r.mark,
			Value:  handle,
			Prefix: prefix,
		}
	default:
		return nil, s.scannerError(start, "found unknown directive name")
	}

	// Eat the rest of the line including any comment.
	if s.r.unread < 1 {
		if err = s.r.ensure(1); err != nil {
			return nil, err
		}
	}
	for yamlh.IsBlank(s.r.buf, s.r.pos) {
		s.r.skip()
		if s.r.unread < 1 {
			if err = s.r.ensure(1); err != nil {
				return nil, err
			}
		}
	}
	if s.r.buf[s.r.pos] == '#' {
		// Directive comments are discarded.
		for !yamlh.IsBreakZ(s.r.buf, s.r.pos) {
			s.r.skip()
			if s.r.unread < 1 {
				if err = s.r.ensure(1); err != nil {
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
			if err = s.r.ensure(2); err != nil {
				return nil, err
			}
		}
		s.r.skipLine()
	}

	return &token, nil
}

// scanDirectiveName scans the word after '%'.
func (s *Scanner) scanDirectiveName(start yamlh.Mark) ([]byte, error) {
	if s.r.unread < 1 {
		if err := s.r.ensure(1); err != nil {
			return nil, err
		}
	}

	var name []byte
	for yamlh.IsAlpha(s.r.buf, s.r.pos) {
		name = s.r.read(name)
		if s.r.unread < 1 {
			if err := s.r.ensure(1); err != nil {
				return nil, err
			}
		}
	}

	if len(name) == 0 {
		return nil, s.scannerError(start, "could not find expected directive name")
	}
	if !yamlh.IsBlankZ(s.r.buf, s.r.pos) {
		return nil, s.scannerError(start, "found unexpected non-alphabetical character")
	}
	return name, nil
}

// scanVersionDirectiveValue scans the "x.y" of %YAML.
func (s *Scanner) scanVersionDirectiveValue(start yamlh.Mark) (major, minor int8, _ error) {
	if s.r.unread < 1 {
		if err := s.r.ensure(1); err != nil {
			return 0, 0, err
		}
	}
	for yamlh.IsBlank(s.r.buf, s.r.pos) {
		s.r.skip()
		if s.r.unread < 1 {
			if err := s.r.ensure(1); err != nil {
				return 0, 0, err
			}
		}
	}

	major, err := s.scanVersionDirectiveNumber(start)
	if err != nil {
		return 0, 0, err
	}

	if s.r.buf[s.r.pos] != '.' {
		return 0, 0, s.scannerError(start, "did not find expected digit or '.' character")
	}
	s.r.skip()

	minor, err = s.scanVersionDirectiveNumber(start)
	if err != nil {
		return 0, 0, err
	}
	return major, minor, nil
}

const maxVersionNumberLength = 2

// scanVersionDirectiveNumber scans one version component.
func (s *Scanner) scanVersionDirectiveNumber(start yamlh.Mark) (int8, error) {
	if s.r.unread < 1 {
		if err := s.r.ensure(1); err != nil {
			return 0, err
		}
	}
	var value, length int8
	for yamlh.IsDigit(s.r.buf, s.r.pos) {
		length++
		if length > maxVersionNumberLength {
			return 0, s.scannerError(start, "found extremely long version number")
		}
		value = value*10 + int8(yamlh.AsDigit(s.r.buf, s.r.pos))
		s.r.skip()
		if s.r.unread < 1 {
			if err := s.r.ensure(1); err != nil {
				return 0, err
			}
		}
	}
	if length == 0 {
		return 0, s.scannerError(start, "did not find expected version number")
	}
	return value, nil
}

// scanTagDirectiveValue scans the handle and prefix of %TAG.
func (s *Scanner) scanTagDirectiveValue(start yamlh.Mark) (handle, prefix []byte, _ error) {
	if s.r.unread < 1 {
		if err := s.r.ensure(1); err != nil {
			return nil, nil, err
		}
	}
	for yamlh.IsBlank(s.r.buf, s.r.pos) {
		s.r.skip()
		if s.r.unread < 1 {
			if err := s.r.ensure(1); err != nil {
				return nil, nil, err
			}
		}
	}

	if err := s.scanTagHandle(true, start, &handle); err != nil {
		return nil, nil, err
	}

	if s.r.unread < 1 {
		if err := s.r.ensure(1); err != nil {
			return nil, nil, err
		}
	}
	if !yamlh.IsBlank(s.r.buf, s.r.pos) {
		return nil, nil, s.scannerError(start, "did not find expected whitespace")
	}
	for yamlh.IsBlank(s.r.buf, s.r.pos) {
		s.r.skip()
		if s.r.unread < 1 {
			if err := s.r.ensure(1); err != nil {
				return nil, nil, err
			}
		}
	}

	if err := s.scanTagURI(true, nil, start, &prefix); err != nil {
		return nil, nil, err
	}

	if s.r.unread < 1 {
		if err := s.r.ensure(1); err != nil {
			return nil, nil, err
		}
	}
	if !yamlh.IsBlankZ(s.r.buf, s.r.pos) {
		return nil, nil, s.scannerError(start, "did not find expected whitespace or line break")
	}
	return handle, prefix, nil
}

// scanAnchor scans '&name' or '*name'.
func (s *Scanner) scanAnchor(kind yamlh.TokenKind) (*yamlh.Token, error) {
	var name []byte

	start := s.r.mark
	s.r.skip()

	if s.r.unread < 1 {
		if err := s.r.ensure(1); err != nil {
			return nil, err
		}
	}
	for yamlh.IsAlpha(s.r.buf, s.r.pos) {
		name = s.r.read(name)
		if s.r.unread < 1 {
			if err := s.r.ensure(1); err != nil {
				return nil, err
			}
		}
	}
	end := s.r.mark

	// The anchor must be non-empty and followed by whitespace or one
	// of: '?', ':', ',', ']', '}', '%', '@', '`'.
	b := s.r.buf[s.r.pos]
	if len(name) == 0 ||
		!(yamlh.IsBlankZ(s.r.buf, s.r.pos) || b == '?' || b == ':' || b == ',' ||
			b == ']' || b == '}' || b == '%' || b == '@' || b == '`') {
		return nil, s.scannerError(start, "did not find expected alphabetic or numeric character")
	}

	return &yamlh.Token{
		Kind:  kind,
		Start: start,
		End:   end,
		Value: name,
	}, nil
}

// scanTag scans a '!...' tag token.
func (s *Scanner) scanTag() (*yamlh.Token, error) {
	var handle, suffix []byte

	start := s.r.mark

	if s.r.unread < 2 {
		if err := s.r.ensure(2); err != nil {
			return nil, err
		}
	}

	if s.r.buf[s.r.pos+1] == '<' {
		// Verbatim tag '!<uri>'; the handle stays empty.
		s.r.skip()
		s.r.skip()

		if err := s.scanTagURI(false, nil, start, &suffix); err != nil {
			return nil, err
		}
		if s.r.buf[s.r.pos] != '>' {
			return nil, s.scannerError(start, "did not find the expected '>'")
		}
		s.r.skip()
	} else {
		// '!suffix' or '!handle!suffix' form.
		if err := s.scanTagHandle(false, start, &handle); err != nil {
			return nil, err
		}
		if handle[0] == '!' && len(handle) > 1 && handle[len(handle)-1] == '!' {
			if err := s.scanTagURI(false, nil, start, &suffix); err != nil {
				return nil, err
			}
		} else {
			// Not a handle after all; scan the rest of the tag.
			if err := s.scanTagURI(false, handle, start, &suffix); err != nil {
				return nil, err
			}
			handle = []byte{'!'}
			// The special '!' tag: empty handle, '!' suffix.
			if len(suffix) == 0 {
				handle, suffix = suffix, handle
			}
		}
	}

	if s.r.unread < 1 {
		if err := s.r.ensure(1); err != nil {
			return nil, err
		}
	}
	if !yamlh.IsBlankZ(s.r.buf, s.r.pos) {
		return nil, s.scannerError(start, "did not find expected whitespace or line break")
	}

	return &yamlh.Token{
		Kind:   yamlh.TagToken,
		Start:  start,
		End:    s.r.mark,
		Value:  handle,
		Suffix: suffix,
	}, nil
}

// scanTagHandle scans a '!...!' handle.
func (s *Scanner) scanTagHandle(directive bool, start yamlh.Mark, handle *[]byte) error {
	if s.r.unread < 1 {
		if err := s.r.ensure(1); err != nil {
			return err
		}
	}
	if s.r.buf[s.r.pos] != '!' {
		return s.scannerError(start, "did not find expected '!'")
	}

	var h []byte
	h = s.r.read(h)

	if s.r.unread < 1 {
		if err := s.r.ensure(1); err != nil {
			return err
		}
	}
	for yamlh.IsAlpha(s.r.buf, s.r.pos) {
		h = s.r.read(h)
		if s.r.unread < 1 {
			if err := s.r.ensure(1); err != nil {
				return err
			}
		}
	}

	if s.r.buf[s.r.pos] == '!' {
		h = s.r.read(h)
	} else {
		// Either the '!' tag or not really a handle. In a %TAG
		// directive that is an error; in a tag token it is part of
		// the URI.
		if directive && string(h) != "!" {
			return s.scannerError(start, "did not find expected '!'")
		}
	}

	*handle = h
	return nil
}

// scanTagURI scans the body of a tag or directive prefix.
func (s *Scanner) scanTagURI(directive bool, head []byte, start yamlh.Mark, uri *[]byte) error {
	var u []byte
	hasTag := len(head) > 0

	// The leading '!' of the head is not copied.
	if len(head) > 1 {
		u = append(u, head[1:]...)
	}

	if s.r.unread < 1 {
		if err := s.r.ensure(1); err != nil {
			return err
		}
	}

	// URI characters:
	//      '0'-'9', 'A'-'Z', 'a'-'z', '_', '-', ';', '/', '?', ':',
	//      '@', '&', '=', '+', '$', ',', '.', '!', '~', '*', '\'',
	//      '(', ')', '[', ']', '%'.
	for isURIChar(s.r.buf[s.r.pos]) {
		if s.r.buf[s.r.pos] == '%' {
			if err := s.scanURIEscapes(directive, start, &u); err != nil {
				return err
			}
		} else {
			u = s.r.read(u)
		}
		if s.r.unread < 1 {
			if err := s.r.ensure(1); err != nil {
				return err
			}
		}
		hasTag = true
	}

	if !hasTag {
		return s.scannerError(start, "did not find expected tag URI")
	}
	*uri = u
	return nil
}

func isURIChar(b byte) bool {
	if b >= '0' && b <= '9' || b >= 'A' && b <= 'Z' || b >= 'a' && b <= 'z' {
		return true
	}
	switch b {
	case '_', '-', ';', '/', '?', ':', '@', '&', '=', '+', '$', ',', '.',
		'!', '~', '*', '\'', '(', ')', '[', ']', '%':
		return true
	}
	return false
}

// scanURIEscapes decodes a %NN escape sequence for one UTF-8 character.
func (s *Scanner) scanURIEscapes(directive bool, start yamlh.Mark, u *[]byte) error {
	w := -1
	for w != 0 {
		if s.r.unread < 3 {
			if err := s.r.ensure(3); err != nil {
				return err
			}
		}

		if !(s.r.buf[s.r.pos] == '%' &&
			yamlh.IsHex(s.r.buf, s.r.pos+1) &&
			yamlh.IsHex(s.r.buf, s.r.pos+2)) {
			return s.scannerError(start, "did not find URI escaped octet")
		}

		octet := byte((yamlh.AsHex(s.r.buf, s.r.pos+1) << 4) + yamlh.AsHex(s.r.buf, s.r.pos+2))

		if w < 0 {
			// Leading octet decides the sequence length.
			w = yamlh.Width(octet)
			if w == 0 {
				return s.scannerError(start, "found an incorrect leading UTF-8 octet")
			}
		} else if octet&0xC0 != 0x80 {
			return s.scannerError(start, "found an incorrect trailing UTF-8 octet")
		}

		*u = append(*u, octet)
		s.r.skip()
		s.r.skip()
		s.r.skip()
		w--
	}
	return nil
}
