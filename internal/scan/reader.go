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
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/encoding/unicode/utf32"
	"golang.org/x/text/transform"

	"github.com/flowyaml/flowyaml/internal/yamlh"
)

const (
	// Size of the raw input buffer.
	rawBufferSize = 512

	// Size of the working buffer. It must be possible to decode the
	// whole raw buffer into it.
	bufferSize = rawBufferSize * 3
)

// Byte order marks.
const (
	bomUTF8    = "\xef\xbb\xbf"
	bomUTF16LE = "\xff\xfe"
	bomUTF16BE = "\xfe\xff"
	bomUTF32LE = "\xff\xfe\x00\x00"
	bomUTF32BE = "\x00\x00\xfe\xff"
)

// Reader presents the input stream to the scanner as validated UTF-8
// with incremental position tracking. A NUL pseudo-character is
// appended at EOF so lookahead never runs off the buffer.
type Reader struct {
	src io.Reader
	eof bool

	raw    []byte // undecoded input bytes
	rawPos int

	buf []byte // decoded, validated UTF-8
	pos int

	unread   int // decoded characters not yet consumed
	newlines int // line breaks since the last non-blank character

	encoding yamlh.Encoding
	offset   int // raw byte offset of the decode position
	mark     yamlh.Mark

	// transcode UTF-16/32 inputs instead of rejecting them
	acceptNonUTF8 bool

	err error
}

// NewReader reads the stream from r.
func NewReader(r io.Reader) *Reader {
	return &Reader{
		src: r,
		raw: make([]byte, 0, rawBufferSize),
		buf: make([]byte, 0, bufferSize),
	}
}

// NewReaderBytes reads the stream from b; an empty b reads as a single
// line break. The reader consumes b as scanning proceeds, so b must stay
// unmodified until scanning is done; tokens hold copies of their bytes.
func NewReaderBytes(b []byte) *Reader {
	if len(b) == 0 {
		b = []byte{'\n'}
	}
	return NewReader(bytes.NewReader(b))
}

// AcceptNonUTF8 makes a UTF-16/32 BOM select transcoding rather than
// a reader error.
func (r *Reader) AcceptNonUTF8() {
	r.acceptNonUTF8 = true
}

// Mark returns the current input position.
func (r *Reader) Mark() yamlh.Mark { return r.mark }

// Encoding returns the detected stream encoding.
func (r *Reader) Encoding() yamlh.Encoding { return r.encoding }

// Newlines returns the break count since the last non-blank character.
func (r *Reader) Newlines() int { return r.newlines }

func (r *Reader) resetNewlines() { r.newlines = 0 }

func readerError(problem string, mark yamlh.Mark) error {
	return &Error{Kind: yamlh.ReaderError, Problem: problem, Mark: mark}
}

// fillRaw tops up the raw buffer from the source.
func (r *Reader) fillRaw() error {
	if r.rawPos == 0 && len(r.raw) == cap(r.raw) {
		return nil
	}
	if r.eof {
		return nil
	}
	if r.rawPos > 0 && r.rawPos < len(r.raw) {
		copy(r.raw, r.raw[r.rawPos:])
	}
	r.raw = r.raw[:len(r.raw)-r.rawPos]
	r.rawPos = 0

	n, err := r.src.Read(r.raw[len(r.raw):cap(r.raw)])
	r.raw = r.raw[:len(r.raw)+n]
	switch err {
	case nil:
	case io.EOF:
		r.eof = true
	default:
		return readerError("input error: "+err.Error(), r.mark)
	}
	return nil
}

// determineEncoding inspects the BOM. UTF-8 input continues on the
// fast path; UTF-16/32 input either becomes a transcoding source or a
// reader error, depending on configuration.
func (r *Reader) determineEncoding() error {
	for !r.eof && len(r.raw)-r.rawPos < 4 {
		if err := r.fillRaw(); err != nil {
			return err
		}
	}
	buf := r.raw[r.rawPos:]
	switch {
	case len(buf) >= 4 && string(buf[:4]) == bomUTF32LE:
		r.encoding = yamlh.UTF32LEEncoding
	case len(buf) >= 4 && string(buf[:4]) == bomUTF32BE:
		r.encoding = yamlh.UTF32BEEncoding
	case len(buf) >= 2 && string(buf[:2]) == bomUTF16LE:
		r.encoding = yamlh.UTF16LEEncoding
	case len(buf) >= 2 && string(buf[:2]) == bomUTF16BE:
		r.encoding = yamlh.UTF16BEEncoding
	case len(buf) >= 3 && string(buf[:3]) == bomUTF8:
		r.encoding = yamlh.UTF8Encoding
		r.rawPos += 3
		r.offset += 3
	default:
		r.encoding = yamlh.UTF8Encoding
	}

	if r.encoding == yamlh.UTF8Encoding {
		return nil
	}
	if !r.acceptNonUTF8 {
		return readerError("input is not UTF-8 (found UTF-16/32 byte order mark)", r.mark)
	}
	return r.installTranscoder()
}

// installTranscoder rebuilds the source as a UTF-8 transcoding reader
// over the bytes seen so far plus the rest of the stream.
func (r *Reader) installTranscoder() error {
	var dec transform.Transformer
	switch r.encoding {
	case yamlh.UTF16LEEncoding:
		dec = unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM).NewDecoder()
	case yamlh.UTF16BEEncoding:
		dec = unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM).NewDecoder()
	case yamlh.UTF32LEEncoding:
		dec = utf32.UTF32(utf32.LittleEndian, utf32.ExpectBOM).NewDecoder()
	case yamlh.UTF32BEEncoding:
		dec = utf32.UTF32(utf32.BigEndian, utf32.ExpectBOM).NewDecoder()
	}
	pending := append([]byte(nil), r.raw[r.rawPos:]...)
	var rest io.Reader = r.src
	if r.eof {
		rest = bytes.NewReader(nil)
	}
	r.src = transform.NewReader(io.MultiReader(bytes.NewReader(pending), rest), dec)
	r.raw = r.raw[:0]
	r.rawPos = 0
	r.eof = false
	return nil
}

// ensure guarantees at least length decoded characters in the working
// buffer, padding with NUL at EOF. length is expected to be small.
func (r *Reader) ensure(length int) error {
	if r.unread >= length {
		return nil
	}
	if r.encoding == yamlh.AnyEncoding {
		if err := r.determineEncoding(); err != nil {
			return err
		}
	}

	// Move the unread characters to the front of the buffer.
	bufLen := len(r.buf)
	if r.pos > 0 && r.pos < bufLen {
		copy(r.buf, r.buf[r.pos:])
		bufLen -= r.pos
		r.pos = 0
	} else if r.pos == bufLen {
		bufLen = 0
		r.pos = 0
	}
	r.buf = r.buf[:cap(r.buf)]

	first := true
	for r.unread < length {
		if !first || r.rawPos == len(r.raw) {
			if err := r.fillRaw(); err != nil {
				r.buf = r.buf[:bufLen]
				return err
			}
		}
		first = false

		// Validate and copy whole UTF-8 sequences.
	inner:
		for r.rawPos != len(r.raw) {
			octet := r.raw[r.rawPos]
			width := yamlh.Width(octet)
			if width == 0 {
				return readerError("invalid leading UTF-8 octet", r.mark)
			}
			if width > len(r.raw)-r.rawPos {
				if r.eof {
					return readerError("incomplete UTF-8 octet sequence", r.mark)
				}
				break inner
			}

			var value rune
			switch width {
			case 1:
				value = rune(octet & 0x7F)
			case 2:
				value = rune(octet & 0x1F)
			case 3:
				value = rune(octet & 0x0F)
			case 4:
				value = rune(octet & 0x07)
			}
			for k := 1; k < width; k++ {
				octet = r.raw[r.rawPos+k]
				if octet&0xC0 != 0x80 {
					return readerError("invalid trailing UTF-8 octet", r.mark)
				}
				value = (value << 6) + rune(octet&0x3F)
			}

			switch {
			case width == 1:
			case width == 2 && value >= 0x80:
			case width == 3 && value >= 0x800:
			case width == 4 && value >= 0x10000:
			default:
				return readerError("overlong UTF-8 sequence", r.mark)
			}
			if value >= 0xD800 && value <= 0xDFFF || value > 0x10FFFF {
				return readerError("invalid Unicode character", r.mark)
			}

			// The YAML character range:
			//      #x9 | #xA | #xD | [#x20-#x7E]
			//      | #x85 | [#xA0-#xD7FF] | [#xE000-#xFFFD]
			//      | [#x10000-#x10FFFF]
			switch {
			case value == 0x09:
			case value == 0x0A:
			case value == 0x0D:
			case value >= 0x20 && value <= 0x7E:
			case value == 0x85:
			case value >= 0xA0 && value <= 0xD7FF:
			case value >= 0xE000 && value <= 0xFFFD:
			case value >= 0x10000 && value <= 0x10FFFF:
			default:
				return readerError("control characters are not allowed", r.mark)
			}

			copy(r.buf[bufLen:], r.raw[r.rawPos:r.rawPos+width])
			bufLen += width
			r.rawPos += width
			r.offset += width
			r.unread++
		}

		if r.eof {
			r.buf[bufLen] = 0
			bufLen++
			r.unread++
			break
		}
	}
	// Guarantee the requested lookahead even past EOF.
	for bufLen < length {
		r.buf[bufLen] = 0
		bufLen++
	}
	r.buf = r.buf[:bufLen]
	return nil
}

// peek returns the byte at lookahead offset i without consuming it.
// The caller must have ensured enough characters.
func (r *Reader) peek(i int) byte { return r.buf[r.pos+i] }

// window returns the decoded buffer and the current position for the
// predicate helpers in yamlh.
func (r *Reader) window() ([]byte, int) { return r.buf, r.pos }

// skip consumes one character.
func (r *Reader) skip() {
	if !yamlh.IsBlank(r.buf, r.pos) {
		r.newlines = 0
	}
	r.mark.Index++
	r.mark.Column++
	r.unread--
	r.pos += yamlh.Width(r.buf[r.pos])
}

// skipLine consumes one line break.
func (r *Reader) skipLine() {
	if yamlh.IsCRLF(r.buf, r.pos) {
		r.mark.Index += 2
		r.mark.Column = 0
		r.mark.Line++
		r.unread -= 2
		r.pos += 2
		r.newlines++
	} else if yamlh.IsBreak(r.buf, r.pos) {
		r.mark.Index++
		r.mark.Column = 0
		r.mark.Line++
		r.unread--
		r.pos += yamlh.Width(r.buf[r.pos])
		r.newlines++
	}
}

// read consumes one character and appends it to s.
func (r *Reader) read(s []byte) []byte {
	if !yamlh.IsBlank(r.buf, r.pos) {
		r.newlines = 0
	}
	w := yamlh.Width(r.buf[r.pos])
	if w == 0 {
		panic("scan: invalid character sequence in validated buffer")
	}
	if len(s) == 0 {
		s = make([]byte, 0, 32)
	}
	s = append(s, r.buf[r.pos:r.pos+w]...)
	r.pos += w
	r.mark.Index++
	r.mark.Column++
	r.unread--
	return s
}

// readLine consumes one line break and appends its canonical form to s.
func (r *Reader) readLine(s []byte) []byte {
	buf, pos := r.buf, r.pos
	switch {
	case buf[pos] == '\r' && buf[pos+1] == '\n':
		// CR LF -> LF
		s = append(s, '\n')
		r.pos += 2
		r.mark.Index++
		r.unread--
	case buf[pos] == '\r' || buf[pos] == '\n':
		// CR|LF -> LF
		s = append(s, '\n')
		r.pos++
	case buf[pos] == '\xC2' && buf[pos+1] == '\x85':
		// NEL -> LF
		s = append(s, '\n')
		r.pos += 2
	case buf[pos] == '\xE2' && buf[pos+1] == '\x80' && (buf[pos+2] == '\xA8' || buf[pos+2] == '\xA9'):
		// LS|PS kept verbatim
		s = append(s, buf[pos:pos+3]...)
		r.pos += 3
	default:
		return s
	}
	r.mark.Index++
	r.mark.Column = 0
	r.mark.Line++
	r.unread--
	r.newlines++
	return s
}
