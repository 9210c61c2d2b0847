package emit

import "github.com/flowyaml/flowyaml/internal/yamlh"

func (e *Emitter) processLineComment() error {
	if len(e.lineComment) == 0 {
		return nil
	}
	if !e.lastCharWhitespace {
		if err := e.put(' '); err != nil {
			return err
		}
	}
	if err := e.writeComment(e.lineComment); err != nil {
		return err
	}
	e.lineComment = e.lineComment[:0]
	return nil
}

func (e *Emitter) processAnchor() error {
	if e.anchorData.anchor == nil {
		return nil
	}
	c := []byte{'&'}
	if e.anchorData.alias {
		c[0] = '*'
	}
	if err := e.writeIndicator(c, true, false, false); err != nil {
		return err
	}
	return e.writeAnchor(e.anchorData.anchor)
}

func (e *Emitter) processTag() error {
	if len(e.tagData.handle) == 0 && len(e.tagData.suffix) == 0 {
		return nil
	}
	if len(e.tagData.handle) > 0 {
		if err := e.writeTagHandle(e.tagData.handle); err != nil {
			return err
		}
		if len(e.tagData.suffix) > 0 {
			if err := e.writeTagContent(e.tagData.suffix, false); err != nil {
				return err
			}
		}
		return nil
	}
	// Verbatim tag.
	if err := e.writeIndicator([]byte("!<"), true, false, false); err != nil {
		return err
	}
	if err := e.writeTagContent(e.tagData.suffix, false); err != nil {
		return err
	}
	return e.writeIndicator([]byte{'>'}, false, false, false)
}

func (e *Emitter) processScalar() error {
	switch e.scalarData.style {
	case yamlh.PlainStyle:
		return e.writePlainScalar(e.scalarData.value, !e.simpleKeyContext)
	case yamlh.SingleQuotedStyle:
		return e.writeSingleQuotedScalar(e.scalarData.value, !e.simpleKeyContext)
	case yamlh.DoubleQuotedStyle:
		return e.writeDoubleQuotedScalar(e.scalarData.value, !e.simpleKeyContext)
	case yamlh.LiteralStyle:
		return e.writeLiteralScalar(e.scalarData.value)
	case yamlh.FoldedStyle:
		return e.writeFoldedScalar(e.scalarData.value)
	}
	panic("unknown scalar style")
}

func (e *Emitter) processHeadComment() error {
	if len(e.tailComment) > 0 {
		if err := e.writeIndent(); err != nil {
			return err
		}
		if err := e.writeComment(e.tailComment); err != nil {
			return err
		}
		e.tailComment = e.tailComment[:0]
		e.footIndent = e.indentLevel
		if e.footIndent < 0 {
			e.footIndent = 0
		}
	}

	if len(e.headComment) == 0 {
		return nil
	}
	if err := e.writeIndent(); err != nil {
		return err
	}
	if err := e.writeComment(e.headComment); err != nil {
		return err
	}
	e.headComment = e.headComment[:0]
	return nil
}

func (e *Emitter) processFootComment() error {
	if len(e.footComment) == 0 {
		return nil
	}
	if err := e.writeIndent(); err != nil {
		return err
	}
	if err := e.writeComment(e.footComment); err != nil {
		return err
	}
	e.footComment = e.footComment[:0]
	e.footIndent = e.indentLevel
	if e.footIndent < 0 {
		e.footIndent = 0
	}
	return nil
}
