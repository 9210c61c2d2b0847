package emit

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/flowyaml/flowyaml/internal/yamlh"
)

func (e *Emitter) analyzeAnchor(anchor []byte, alias bool) error {
	if len(anchor) == 0 {
		problem := "anchor value must not be empty"
		if alias {
			problem = "alias value must not be empty"
		}
		return errors.New(problem)
	}
	for i := 0; i < len(anchor); i += yamlh.Width(anchor[i]) {
		if !yamlh.IsAlpha(anchor, i) {
			problem := "anchor value must contain alphanumerical characters only"
			if alias {
				problem = "alias value must contain alphanumerical characters only"
			}
			return errors.New(problem)
		}
	}
	e.anchorData.anchor = anchor
	e.anchorData.alias = alias
	return nil
}

func (e *Emitter) analyzeTag(tag []byte) error {
	if len(tag) == 0 {
		return fmt.Errorf("tag value must not be empty")
	}
	for i := 0; i < len(e.tagDirectives); i++ {
		directive := &e.tagDirectives[i]
		if bytes.HasPrefix(tag, directive.Prefix) {
			e.tagData.handle = directive.Handle
			e.tagData.suffix = tag[len(directive.Prefix):]
			return nil
		}
	}
	e.tagData.suffix = tag
	return nil
}

func analyzeTagDirective(directive *yamlh.TagDirective) error {
	handle := directive.Handle
	prefix := directive.Prefix
	if len(handle) == 0 {
		return errors.New(`tag handle must not be empty`)
	}
	if handle[0] != '!' {
		return errors.New(`tag handle must start with '!'`)
	}
	if handle[len(handle)-1] != '!' {
		return errors.New(`tag handle must end with '!'`)
	}
	for i := 1; i < len(handle)-1; i += yamlh.Width(handle[i]) {
		if !yamlh.IsAlpha(handle, i) {
			return errors.New(`tag handle must contain alphanumerical characters only`)
		}
	}
	if len(prefix) == 0 {
		return errors.New(`tag prefix must not be empty`)
	}
	return nil
}

// analyzeScalar records which styles can represent the value.
func (e *Emitter) analyzeScalar(value []byte) {
	var blockIndicators, flowIndicators, lineBreaks, specialCharacters, tabCharacters bool
	var leadingSpace, leadingBreak, trailingSpace, trailingBreak, breakSpace, spaceBreak bool
	var precededByWhitespace, followedByWhitespace, previousSpace, previousBreak bool

	e.scalarData.value = value

	if len(value) == 0 {
		e.scalarData.multiline = false
		e.scalarData.flowPlainAllowed = false
		e.scalarData.blockPlainAllowed = true
		e.scalarData.singleQuotedAllowed = true
		e.scalarData.blockAllowed = false
		return
	}

	if len(value) >= 3 && ((value[0] == '-' && value[1] == '-' && value[2] == '-') || (value[0] == '.' && value[1] == '.' && value[2] == '.')) {
		blockIndicators = true
		flowIndicators = true
	}

	precededByWhitespace = true
	for i, w := 0, 0; i < len(value); i += w {
		w = yamlh.Width(value[i])
		followedByWhitespace = i+w >= len(value) || yamlh.IsBlank(value, i+w)

		if i == 0 {
			switch value[i] {
			case '#', ',', '[', ']', '{', '}', '&', '*', '!', '|', '>', '\'', '"', '%', '@', '`':
				flowIndicators = true
				blockIndicators = true
			case '?', ':':
				flowIndicators = true
				if followedByWhitespace {
					blockIndicators = true
				}
			case '-':
				if followedByWhitespace {
					flowIndicators = true
					blockIndicators = true
				}
			}
		} else {
			switch value[i] {
			case ',', '?', '[', ']', '{', '}':
				flowIndicators = true
			case ':':
				flowIndicators = true
				if followedByWhitespace {
					blockIndicators = true
				}
			case '#':
				if precededByWhitespace {
					flowIndicators = true
					blockIndicators = true
				}
			}
		}

		if value[i] == '\t' {
			tabCharacters = true
		} else if !yamlh.IsPrintable(value, i) {
			specialCharacters = true
		}
		if yamlh.IsSpace(value, i) {
			if i == 0 {
				leadingSpace = true
			}
			if i+yamlh.Width(value[i]) == len(value) {
				trailingSpace = true
			}
			if previousBreak {
				breakSpace = true
			}
			previousSpace = true
			previousBreak = false
		} else if yamlh.IsBreak(value, i) {
			lineBreaks = true
			if i == 0 {
				leadingBreak = true
			}
			if i+yamlh.Width(value[i]) == len(value) {
				trailingBreak = true
			}
			if previousSpace {
				spaceBreak = true
			}
			previousSpace = false
			previousBreak = true
		} else {
			previousSpace = false
			previousBreak = false
		}

		precededByWhitespace = yamlh.IsBlankZ(value, i)
	}

	e.scalarData.multiline = lineBreaks
	e.scalarData.flowPlainAllowed = true
	e.scalarData.blockPlainAllowed = true
	e.scalarData.singleQuotedAllowed = true
	e.scalarData.blockAllowed = true

	if leadingSpace || leadingBreak || trailingSpace || trailingBreak {
		e.scalarData.flowPlainAllowed = false
		e.scalarData.blockPlainAllowed = false
	}
	if trailingSpace {
		e.scalarData.blockAllowed = false
	}
	if breakSpace {
		e.scalarData.flowPlainAllowed = false
		e.scalarData.blockPlainAllowed = false
		e.scalarData.singleQuotedAllowed = false
	}
	if spaceBreak || tabCharacters || specialCharacters {
		e.scalarData.flowPlainAllowed = false
		e.scalarData.blockPlainAllowed = false
		e.scalarData.singleQuotedAllowed = false
	}
	if spaceBreak || specialCharacters {
		e.scalarData.blockAllowed = false
	}
	if lineBreaks {
		e.scalarData.flowPlainAllowed = false
		e.scalarData.blockPlainAllowed = false
	}
	if flowIndicators {
		e.scalarData.flowPlainAllowed = false
	}
	if blockIndicators {
		e.scalarData.blockPlainAllowed = false
	}
}

func (e *Emitter) analyzeEvent(event *yamlh.Event) error {
	e.anchorData.anchor = nil
	e.tagData.handle = nil
	e.tagData.suffix = nil
	e.scalarData.value = nil

	if e.comments {
		if len(event.HeadComment) > 0 {
			e.headComment = event.HeadComment
		}
		if len(event.LineComment) > 0 {
			e.lineComment = event.LineComment
		}
		if len(event.FootComment) > 0 {
			e.footComment = event.FootComment
		}
		if len(event.TailComment) > 0 {
			e.tailComment = event.TailComment
		}
	}

	switch event.Kind {
	case yamlh.AliasEvent:
		return e.analyzeAnchor(event.Anchor, true)
	case yamlh.ScalarEvent:
		if len(event.Anchor) > 0 {
			if err := e.analyzeAnchor(event.Anchor, false); err != nil {
				return err
			}
		}
		if len(event.Tag) > 0 && !event.Implicit && !event.QuotedImplicit {
			if err := e.analyzeTag(event.Tag); err != nil {
				return err
			}
		}
		e.analyzeScalar(event.Value)
	case yamlh.SequenceStartEvent, yamlh.MappingStartEvent:
		if len(event.Anchor) > 0 {
			if err := e.analyzeAnchor(event.Anchor, false); err != nil {
				return err
			}
		}
		if len(event.Tag) > 0 && !event.Implicit {
			if err := e.analyzeTag(event.Tag); err != nil {
				return err
			}
		}
	}
	return nil
}
