package emit

import "github.com/flowyaml/flowyaml/internal/yamlh"

func (e *Emitter) writeIndent() error {
	indent := e.indentLevel
	if indent < 0 {
		indent = 0
	}
	if !e.lastCharIndent || e.column > indent || (e.column == indent && !e.lastCharWhitespace) {
		if err := e.putBreak(); err != nil {
			return err
		}
	}
	if e.footIndent == indent {
		if err := e.putBreak(); err != nil {
			return err
		}
	}
	for e.column < indent {
		if err := e.put(' '); err != nil {
			return err
		}
	}
	e.lastCharWhitespace = true
	e.footIndent = -1
	return nil
}

func (e *Emitter) writeIndicator(indicator []byte, needWhitespace, isWhitespace, isIndention bool) error {
	if needWhitespace && !e.lastCharWhitespace {
		if err := e.put(' '); err != nil {
			return err
		}
	}
	if err := e.writeAll(indicator); err != nil {
		return err
	}
	e.lastCharWhitespace = isWhitespace
	e.lastCharIndent = e.lastCharIndent && isIndention
	e.openEnded = false
	return nil
}

func (e *Emitter) writeAnchor(value []byte) error {
	if err := e.writeAll(value); err != nil {
		return err
	}
	e.lastCharWhitespace = false
	e.lastCharIndent = false
	return nil
}

func (e *Emitter) writeTagHandle(value []byte) error {
	if !e.lastCharWhitespace {
		if err := e.put(' '); err != nil {
			return err
		}
	}
	if err := e.writeAll(value); err != nil {
		return err
	}
	e.lastCharWhitespace = false
	e.lastCharIndent = false
	return nil
}

func (e *Emitter) writeTagContent(value []byte, needWhitespace bool) error {
	if needWhitespace && !e.lastCharWhitespace {
		if err := e.put(' '); err != nil {
			return err
		}
	}
	for len(value) > 0 {
		var mustWrite bool
		switch value[0] {
		case ';', '/', '?', ':', '@', '&', '=', '+', '$', ',', '_', '.', '~', '*', '\'', '(', ')', '[', ']':
			mustWrite = true
		default:
			mustWrite = yamlh.IsAlpha(value, 0)
		}
		if mustWrite {
			n, err := e.write(value)
			if err != nil {
				return err
			}
			value = value[n:]
			continue
		}
		w := yamlh.Width(value[0])
		for k := 0; k < w; k++ {
			octet := value[0]
			if err := e.put('%'); err != nil {
				return err
			}

			c := octet >> 4
			if c < 10 {
				c += '0'
			} else {
				c += 'A' - 10
			}
			if err := e.put(c); err != nil {
				return err
			}

			c = octet & 0x0f
			if c < 10 {
				c += '0'
			} else {
				c += 'A' - 10
			}
			if err := e.put(c); err != nil {
				return err
			}
		}
		value = value[w:]
	}
	e.lastCharWhitespace = false
	e.lastCharIndent = false
	return nil
}

func (e *Emitter) writePlainScalar(value []byte, allowBreaks bool) error {
	var err error
	totalLen := len(value)
	if totalLen > 0 && !e.lastCharWhitespace {
		if err = e.put(' '); err != nil {
			return err
		}
	}

	spaces := false
	breaks := false
	for len(value) > 0 {
		w := yamlh.Width(value[0])
		if yamlh.IsSpace(value, 0) {
			nextIsSpace := len(value) > w && yamlh.IsSpace(value, w)
			if allowBreaks && !spaces && e.column > e.width && !nextIsSpace {
				// Break at the last space before the width.
				if err = e.writeIndent(); err != nil {
					return err
				}
			} else {
				if w, err = e.write(value); err != nil {
					return err
				}
			}
			value = value[w:]
			spaces = true
			continue
		}
		if yamlh.IsBreak(value, 0) {
			if !breaks && value[0] == '\n' {
				if err = e.putBreak(); err != nil {
					return err
				}
			}
			if w, err = e.writeLineBreak(value); err != nil {
				return err
			}
			value = value[w:]
			breaks = true
			continue
		}
		if breaks {
			if err = e.writeIndent(); err != nil {
				return err
			}
		}
		if w, err = e.write(value); err != nil {
			return err
		}
		value = value[w:]
		e.lastCharIndent = false
		spaces = false
		breaks = false
	}

	if totalLen > 0 {
		e.lastCharWhitespace = false
	}
	e.lastCharIndent = false
	if e.rootContext {
		e.openEnded = true
	}
	return nil
}

func (e *Emitter) writeSingleQuotedScalar(value []byte, allowBreaks bool) error {
	err := e.writeIndicator([]byte{'\''}, true, false, false)
	if err != nil {
		return err
	}

	spaces := false
	breaks := false
	count := 0
	for len(value) > 0 {
		count++
		w := yamlh.Width(value[0])
		hasMore := len(value) > w
		if yamlh.IsSpace(value, 0) {
			if allowBreaks &&
				!spaces &&
				e.column > e.width &&
				count > 1 &&
				hasMore &&
				!yamlh.IsSpace(value, 1) {
				if err = e.writeIndent(); err != nil {
					return err
				}
			} else {
				if w, err = e.write(value); err != nil {
					return err
				}
			}
			spaces = true
			value = value[w:]
			continue
		}
		if yamlh.IsBreak(value, 0) {
			if !breaks && value[0] == '\n' {
				if err = e.putBreak(); err != nil {
					return err
				}
			}
			if w, err = e.writeLineBreak(value); err != nil {
				return err
			}
			breaks = true
			value = value[w:]
			continue
		}
		if breaks {
			if err = e.writeIndent(); err != nil {
				return err
			}
		}
		if value[0] == '\'' {
			if err = e.put('\''); err != nil {
				return err
			}
		}
		if w, err = e.write(value); err != nil {
			return err
		}
		value = value[w:]
		e.lastCharIndent = false
		spaces = false
		breaks = false
	}
	if err = e.writeIndicator([]byte{'\''}, false, false, false); err != nil {
		return err
	}
	e.lastCharWhitespace = false
	e.lastCharIndent = false
	return nil
}

func (e *Emitter) writeDoubleQuotedScalar(value []byte, allowBreaks bool) error {
	spaces := false
	err := e.writeIndicator([]byte{'"'}, true, false, false)
	if err != nil {
		return err
	}
	isBom := false
	if len(value) >= 3 {
		isBom = yamlh.IsBOM(value, 0)
	}
	count := 0
	for len(value) > 0 {
		var w int
		count++
		if !yamlh.IsPrintable(value, 0) ||
			isBom || yamlh.IsBreak(value, 0) ||
			value[0] == '"' || value[0] == '\\' {

			value, err = e.writeDoubleQuotedEscapedChar(value)
			if err != nil {
				return err
			}
			spaces = false
			continue
		}
		if yamlh.IsSpace(value, 0) {
			w = yamlh.Width(value[0])
			if allowBreaks && !spaces && e.column > e.width && count > 1 && len(value) > w {
				if err = e.writeIndent(); err != nil {
					return err
				}
				if yamlh.IsSpace(value, 1) {
					// A forced break inside an unbreakable run keeps
					// the following space with a '\' continuation.
					if err = e.put('\\'); err != nil {
						return err
					}
				}
			} else {
				if w, err = e.write(value); err != nil {
					return err
				}
			}
			value = value[w:]
			spaces = true
			continue
		}
		if w, err = e.write(value); err != nil {
			return err
		}
		value = value[w:]
		spaces = false
	}
	if err = e.writeIndicator([]byte{'"'}, false, false, false); err != nil {
		return err
	}
	e.lastCharWhitespace = false
	e.lastCharIndent = false
	return nil
}

func (e *Emitter) writeDoubleQuotedEscapedChar(value []byte) ([]byte, error) {
	octet := value[0]

	var v rune
	var w int
	switch {
	case octet&0x80 == 0x00:
		w, v = 1, rune(octet&0x7F)
	case octet&0xE0 == 0xC0:
		w, v = 2, rune(octet&0x1F)
	case octet&0xF0 == 0xE0:
		w, v = 3, rune(octet&0x0F)
	case octet&0xF8 == 0xF0:
		w, v = 4, rune(octet&0x07)
	}
	for k := 1; k < w; k++ {
		octet = value[k]
		v = (v << 6) + (rune(octet) & 0x3F)
	}
	value = value[w:]

	err := e.put('\\')
	if err != nil {
		return nil, err
	}

	switch v {
	case 0x00:
		err = e.put('0')
	case 0x07:
		err = e.put('a')
	case 0x08:
		err = e.put('b')
	case 0x09:
		err = e.put('t')
	case 0x0A:
		err = e.put('n')
	case 0x0b:
		err = e.put('v')
	case 0x0c:
		err = e.put('f')
	case 0x0d:
		err = e.put('r')
	case 0x1b:
		err = e.put('e')
	case 0x22:
		err = e.put('"')
	case 0x5c:
		err = e.put('\\')
	case 0x85:
		err = e.put('N')
	case 0xA0:
		err = e.put('_')
	case 0x2028:
		err = e.put('L')
	case 0x2029:
		err = e.put('P')
	default:
		switch {
		case v <= 0xFF:
			err = e.put('x')
			w = 2
		case v <= 0xFFFF:
			err = e.put('u')
			w = 4
		default:
			err = e.put('U')
			w = 8
		}
		if err != nil {
			return nil, err
		}
		for k := (w - 1) * 4; err == nil && k >= 0; k -= 4 {
			digit := byte((v >> uint(k)) & 0x0F)
			if digit < 10 {
				err = e.put(digit + '0')
			} else {
				err = e.put(digit + 'A' - 10)
			}
			if err != nil {
				return nil, err
			}
		}
	}
	if err != nil {
		return nil, err
	}
	return value, nil
}

func (e *Emitter) writeBlockScalarHints(value []byte) error {
	var err error
	if yamlh.IsSpace(value, 0) || yamlh.IsBreak(value, 0) {
		indentHint := []byte{'0' + byte(e.indent)}
		if err = e.writeIndicator(indentHint, false, false, false); err != nil {
			return err
		}
	}

	e.openEnded = false

	var chompHint [1]byte
	if len(value) == 0 {
		chompHint[0] = '-'
	} else {
		i := len(value) - 1
		for value[i]&0xC0 == 0x80 {
			i--
		}
		switch {
		case !yamlh.IsBreak(value, i):
			chompHint[0] = '-'
		case i == 0:
			chompHint[0] = '+'
			e.openEnded = true
		default:
			i--
			for value[i]&0xC0 == 0x80 {
				i--
			}
			if yamlh.IsBreak(value, i) {
				chompHint[0] = '+'
				e.openEnded = true
			}
		}
	}
	if chompHint[0] != 0 {
		if err = e.writeIndicator(chompHint[:], false, false, false); err != nil {
			return err
		}
	}
	return nil
}

func (e *Emitter) writeLiteralScalar(value []byte) error {
	err := e.writeIndicator([]byte{'|'}, true, false, false)
	if err != nil {
		return err
	}
	if err = e.writeBlockScalarHints(value); err != nil {
		return err
	}
	if err = e.processLineComment(); err != nil {
		return err
	}
	e.lastCharWhitespace = true
	breaks := true
	for len(value) > 0 {
		var w int
		if yamlh.IsBreak(value, 0) {
			if w, err = e.writeLineBreak(value); err != nil {
				return err
			}
			breaks = true
			value = value[w:]
			continue
		}
		if breaks {
			if err = e.writeIndent(); err != nil {
				return err
			}
		}
		if w, err = e.write(value); err != nil {
			return err
		}
		value = value[w:]
		e.lastCharIndent = false
		breaks = false
	}
	return nil
}

func (e *Emitter) writeFoldedScalar(value []byte) error {
	err := e.writeIndicator([]byte{'>'}, true, false, false)
	if err != nil {
		return err
	}
	if err = e.writeBlockScalarHints(value); err != nil {
		return err
	}
	if err = e.processLineComment(); err != nil {
		return err
	}

	e.lastCharWhitespace = true

	breaks := true
	leadingSpaces := true
	for len(value) > 0 {
		w := yamlh.Width(value[0])
		if yamlh.IsBreak(value, 0) {
			if !breaks && !leadingSpaces && value[0] == '\n' {
				k := 0
				for yamlh.IsBreak(value, k) {
					k += yamlh.Width(value[k])
				}
				if !yamlh.IsBlankZ(value, k) {
					if err = e.putBreak(); err != nil {
						return err
					}
				}
			}
			if w, err = e.writeLineBreak(value); err != nil {
				return err
			}
			value = value[w:]
			breaks = true
			continue
		}
		if breaks {
			if err = e.writeIndent(); err != nil {
				return err
			}
			leadingSpaces = yamlh.IsBlank(value, 0)
		}
		nextIsSpace := len(value) > w && yamlh.IsSpace(value, w)
		if !breaks && yamlh.IsSpace(value, 0) && !nextIsSpace && e.column > e.width {
			if err = e.writeIndent(); err != nil {
				return err
			}
		} else {
			if w, err = e.write(value); err != nil {
				return err
			}
		}
		value = value[w:]
		e.lastCharIndent = false
		breaks = false
	}
	return nil
}

func (e *Emitter) writeComment(comment []byte) error {
	breaks := false
	pound := false
	for len(comment) > 0 {
		if yamlh.IsBreak(comment, 0) {
			n, err := e.writeLineBreak(comment)
			if err != nil {
				return err
			}
			comment = comment[n:]
			breaks = true
			pound = false
			continue
		}
		if breaks {
			if err := e.writeIndent(); err != nil {
				return err
			}
		}
		if !pound {
			if comment[0] != '#' {
				if err := e.writeAll([]byte("# ")); err != nil {
					return err
				}
			}
			pound = true
		}
		n, err := e.write(comment)
		if err != nil {
			return err
		}
		comment = comment[n:]
		e.lastCharIndent = false
		breaks = false
	}
	if !breaks {
		if err := e.putBreak(); err != nil {
			return err
		}
	}
	e.lastCharWhitespace = true
	return nil
}
