package emit

import (
	"fmt"
	"strconv"

	"github.com/flowyaml/flowyaml/internal/common"
	"github.com/flowyaml/flowyaml/internal/yamlh"
)

func (e *Emitter) stateMachine(event *yamlh.Event) error {
	switch e.state {
	case stateStreamStart:
		return e.emitStreamStart(event)
	case stateFirstDocumentStart:
		return e.emitDocumentStart(event, true)
	case stateDocumentStart:
		return e.emitDocumentStart(event, false)
	case stateDocumentContent:
		return e.emitDocumentContent(event)
	case stateDocumentEnd:
		return e.emitDocumentEnd(event)
	case stateFlowSequenceFirst:
		return e.emitFlowSequenceItem(event, true, false)
	case stateFlowSequenceTrail:
		return e.emitFlowSequenceItem(event, false, true)
	case stateFlowSequenceItem:
		return e.emitFlowSequenceItem(event, false, false)
	case stateFlowMappingFirstKey:
		return e.emitFlowMappingKey(event, true, false)
	case stateFlowMappingTrailKey:
		return e.emitFlowMappingKey(event, false, true)
	case stateFlowMappingKey:
		return e.emitFlowMappingKey(event, false, false)
	case stateFlowMappingSimpleVal:
		return e.emitFlowMappingValue(event, true)
	case stateFlowMappingValue:
		return e.emitFlowMappingValue(event, false)
	case stateBlockSequenceFirst:
		return e.emitBlockSequenceItem(event, true)
	case stateBlockSequenceItem:
		return e.emitBlockSequenceItem(event, false)
	case stateBlockMappingFirstKey:
		return e.emitBlockMappingKey(event, true)
	case stateBlockMappingKey:
		return e.emitBlockMappingKey(event, false)
	case stateBlockMappingSimpleVal:
		return e.emitBlockMappingValue(event, true)
	case stateBlockMappingValue:
		return e.emitBlockMappingValue(event, false)
	case stateEnd:
		return fmt.Errorf("expected nothing after STREAM-END")
	}
	panic("invalid emitter state")
}

// emitStreamStart expects STREAM-START.
func (e *Emitter) emitStreamStart(event *yamlh.Event) error {
	if event.Kind != yamlh.StreamStartEvent {
		return fmt.Errorf("expected STREAM-START")
	}
	if e.width >= 0 && e.width <= e.indent*2 {
		e.width = 80
	}
	if e.width < 0 {
		e.width = 1<<31 - 1
	}

	e.indentLevel = -1
	e.line = 0
	e.column = 0
	e.lastCharWhitespace = true
	e.lastCharIndent = true
	e.footIndent = -1

	e.state = stateFirstDocumentStart
	return nil
}

// emitDocumentStart expects DOCUMENT-START or STREAM-END.
func (e *Emitter) emitDocumentStart(event *yamlh.Event, first bool) error {
	if event.Kind == yamlh.DocumentStartEvent {
		return e.emitDocumentStartEvent(event, first)
	}
	if event.Kind == yamlh.StreamEndEvent {
		if e.openEnded {
			if err := e.writeIndicator([]byte("..."), true, false, false); err != nil {
				return err
			}
			if err := e.writeIndent(); err != nil {
				return err
			}
		}
		e.state = stateEnd
		return nil
	}
	return fmt.Errorf("expected DOCUMENT-START or STREAM-END")
}

func (e *Emitter) emitDocumentStartEvent(event *yamlh.Event, first bool) error {
	doc := event.State

	emitVersion := false
	var explicitTags []yamlh.TagDirective
	if doc != nil && e.directivePolicy != MarkerOff {
		emitVersion = doc.Explicit || e.directivePolicy == MarkerOn
		explicitTags = doc.Directives[:doc.ExplicitDirectives]
	}

	if emitVersion {
		if doc.Version.Major != 1 || doc.Version.Minor < 0 || doc.Version.Minor > 3 {
			return fmt.Errorf("incompatible %%YAML directive")
		}
	}
	for i := range explicitTags {
		if err := analyzeTagDirective(&explicitTags[i]); err != nil {
			return err
		}
		if err := e.appendTagDirective(&explicitTags[i], false); err != nil {
			return err
		}
	}
	for i := range common.DefaultTagDirectives {
		if err := e.appendTagDirective(&common.DefaultTagDirectives[i], true); err != nil {
			return err
		}
	}

	implicit := event.Implicit
	if !first || e.markerPolicy == MarkerOn {
		implicit = false
	}
	if e.markerPolicy == MarkerOff && first {
		implicit = true
	}

	if e.openEnded && (emitVersion || len(explicitTags) > 0) {
		if err := e.writeIndicator([]byte("..."), true, false, false); err != nil {
			return err
		}
		if err := e.writeIndent(); err != nil {
			return err
		}
	}

	if emitVersion {
		implicit = false
		directive := "%YAML " + strconv.Itoa(int(doc.Version.Major)) + "." + strconv.Itoa(int(doc.Version.Minor))
		if err := e.writeIndicator([]byte(directive), true, false, false); err != nil {
			return err
		}
		if err := e.writeIndent(); err != nil {
			return err
		}
	}

	if len(explicitTags) > 0 {
		implicit = false
		for i := range explicitTags {
			directive := &explicitTags[i]
			if err := e.writeIndicator([]byte("%TAG"), true, false, false); err != nil {
				return err
			}
			if err := e.writeTagHandle(directive.Handle); err != nil {
				return err
			}
			if err := e.writeTagContent(directive.Prefix, true); err != nil {
				return err
			}
			if err := e.writeIndent(); err != nil {
				return err
			}
		}
	}

	if !implicit {
		if err := e.writeIndent(); err != nil {
			return err
		}
		if err := e.writeIndicator([]byte("---"), true, false, false); err != nil {
			return err
		}
	}

	if len(e.headComment) > 0 {
		if err := e.processHeadComment(); err != nil {
			return err
		}
		if err := e.putBreak(); err != nil {
			return err
		}
	}

	e.state = stateDocumentContent
	return nil
}

// emitDocumentContent expects the root node.
func (e *Emitter) emitDocumentContent(event *yamlh.Event) error {
	e.states = append(e.states, stateDocumentEnd)
	if err := e.processHeadComment(); err != nil {
		return err
	}
	if err := e.emitNode(event, true, false); err != nil {
		return err
	}
	if err := e.processLineComment(); err != nil {
		return err
	}
	return e.processFootComment()
}

// emitDocumentEnd expects DOCUMENT-END.
func (e *Emitter) emitDocumentEnd(event *yamlh.Event) error {
	if event.Kind != yamlh.DocumentEndEvent {
		return fmt.Errorf("expected DOCUMENT-END")
	}
	// Force document foot separation.
	e.footIndent = 0
	if err := e.processFootComment(); err != nil {
		return err
	}
	e.footIndent = -1
	if err := e.writeIndent(); err != nil {
		return err
	}
	if !event.Implicit && e.markerPolicy != MarkerOff {
		if err := e.writeIndicator([]byte("..."), true, false, false); err != nil {
			return err
		}
		if err := e.writeIndent(); err != nil {
			return err
		}
	}
	e.state = stateDocumentStart
	e.tagDirectives = e.tagDirectives[:0]
	return nil
}

// emitFlowSequenceItem expects a flow item node.
func (e *Emitter) emitFlowSequenceItem(event *yamlh.Event, first, trail bool) error {
	if first {
		if err := e.writeIndicator([]byte{'['}, true, true, false); err != nil {
			return err
		}
		e.increaseIndent(true, false)
		e.flowLevel++
	}

	if event.Kind == yamlh.SequenceEndEvent {
		e.flowLevel--
		e.popIndent()
		if e.column == 0 {
			if err := e.writeIndent(); err != nil {
				return err
			}
		}
		if err := e.writeIndicator([]byte{']'}, false, false, false); err != nil {
			return err
		}
		if err := e.processLineComment(); err != nil {
			return err
		}
		if err := e.processFootComment(); err != nil {
			return err
		}
		e.popState()
		return nil
	}

	if !first && !trail {
		if err := e.writeIndicator([]byte{','}, false, false, false); err != nil {
			return err
		}
	}

	if err := e.processHeadComment(); err != nil {
		return err
	}
	if e.column == 0 {
		if err := e.writeIndent(); err != nil {
			return err
		}
	}
	if e.column > e.width {
		if err := e.writeIndent(); err != nil {
			return err
		}
	}
	if len(e.lineComment)+len(e.footComment)+len(e.tailComment) > 0 {
		e.states = append(e.states, stateFlowSequenceTrail)
	} else {
		e.states = append(e.states, stateFlowSequenceItem)
	}
	if err := e.emitNode(event, false, false); err != nil {
		return err
	}
	if len(e.lineComment)+len(e.footComment)+len(e.tailComment) > 0 {
		if err := e.writeIndicator([]byte{','}, false, false, false); err != nil {
			return err
		}
	}
	if err := e.processLineComment(); err != nil {
		return err
	}
	return e.processFootComment()
}

// emitFlowMappingKey expects a flow key node.
func (e *Emitter) emitFlowMappingKey(event *yamlh.Event, first, trail bool) error {
	if first {
		if err := e.writeIndicator([]byte{'{'}, true, true, false); err != nil {
			return err
		}
		e.increaseIndent(true, false)
		e.flowLevel++
	}

	if event.Kind == yamlh.MappingEndEvent {
		if len(e.headComment)+len(e.footComment)+len(e.tailComment) > 0 && !first && !trail {
			if err := e.writeIndicator([]byte{','}, false, false, false); err != nil {
				return err
			}
		}
		if err := e.processHeadComment(); err != nil {
			return err
		}
		e.flowLevel--
		e.popIndent()
		if err := e.writeIndicator([]byte{'}'}, false, false, false); err != nil {
			return err
		}
		if err := e.processLineComment(); err != nil {
			return err
		}
		if err := e.processFootComment(); err != nil {
			return err
		}
		e.popState()
		return nil
	}

	if !first && !trail {
		if err := e.writeIndicator([]byte{','}, false, false, false); err != nil {
			return err
		}
	}

	if err := e.processHeadComment(); err != nil {
		return err
	}
	if e.column == 0 {
		if err := e.writeIndent(); err != nil {
			return err
		}
	}
	if e.column > e.width {
		if err := e.writeIndent(); err != nil {
			return err
		}
	}

	if e.checkSimpleKey() {
		e.states = append(e.states, stateFlowMappingSimpleVal)
		return e.emitNode(event, false, true)
	}
	if err := e.writeIndicator([]byte{'?'}, true, false, false); err != nil {
		return err
	}
	e.states = append(e.states, stateFlowMappingValue)
	return e.emitNode(event, false, false)
}

// emitFlowMappingValue expects a flow value node.
func (e *Emitter) emitFlowMappingValue(event *yamlh.Event, simple bool) error {
	if simple {
		if err := e.writeIndicator([]byte{':'}, false, false, false); err != nil {
			return err
		}
	} else {
		if e.column > e.width {
			if err := e.writeIndent(); err != nil {
				return err
			}
		}
		if err := e.writeIndicator([]byte{':'}, true, false, false); err != nil {
			return err
		}
	}
	if len(e.lineComment)+len(e.footComment)+len(e.tailComment) > 0 {
		e.states = append(e.states, stateFlowMappingTrailKey)
	} else {
		e.states = append(e.states, stateFlowMappingKey)
	}
	if err := e.emitNode(event, false, false); err != nil {
		return err
	}
	if len(e.lineComment)+len(e.footComment)+len(e.tailComment) > 0 {
		if err := e.writeIndicator([]byte{','}, false, false, false); err != nil {
			return err
		}
	}
	if err := e.processLineComment(); err != nil {
		return err
	}
	return e.processFootComment()
}

// emitBlockSequenceItem expects a block item node.
func (e *Emitter) emitBlockSequenceItem(event *yamlh.Event, first bool) error {
	if first {
		e.increaseIndent(false, false)
	}
	if event.Kind == yamlh.SequenceEndEvent {
		e.popIndent()
		e.popState()
		return nil
	}
	if err := e.processHeadComment(); err != nil {
		return err
	}
	if err := e.writeIndent(); err != nil {
		return err
	}
	if err := e.writeIndicator([]byte{'-'}, true, false, true); err != nil {
		return err
	}
	e.states = append(e.states, stateBlockSequenceItem)
	if err := e.emitNode(event, false, false); err != nil {
		return err
	}
	if err := e.processLineComment(); err != nil {
		return err
	}
	return e.processFootComment()
}

// emitBlockMappingKey expects a block key node.
func (e *Emitter) emitBlockMappingKey(event *yamlh.Event, first bool) error {
	if first {
		e.increaseIndent(false, false)
	}
	if err := e.processHeadComment(); err != nil {
		return err
	}
	if event.Kind == yamlh.MappingEndEvent {
		e.popIndent()
		e.popState()
		return nil
	}
	if err := e.writeIndent(); err != nil {
		return err
	}
	if len(e.lineComment) > 0 {
		// A line comment on the key is unusual: the scanner associates
		// line comments with the value. Save it for later.
		e.keyLineComment = e.lineComment
		e.lineComment = nil
	}
	if e.checkSimpleKey() {
		e.states = append(e.states, stateBlockMappingSimpleVal)
		return e.emitNode(event, false, true)
	}
	if err := e.writeIndicator([]byte{'?'}, true, false, true); err != nil {
		return err
	}
	e.states = append(e.states, stateBlockMappingValue)
	return e.emitNode(event, false, false)
}

// emitBlockMappingValue expects a block value node.
func (e *Emitter) emitBlockMappingValue(event *yamlh.Event, simple bool) error {
	if simple {
		if err := e.writeIndicator([]byte{':'}, false, false, false); err != nil {
			return err
		}
	} else {
		if err := e.writeIndent(); err != nil {
			return err
		}
		if err := e.writeIndicator([]byte{':'}, true, false, true); err != nil {
			return err
		}
	}
	if len(e.keyLineComment) > 0 {
		// With no value on the key's line the comment belongs to the
		// key itself.
		if event.Kind == yamlh.ScalarEvent {
			if len(e.lineComment) == 0 {
				// The scalar handles the line comment as usual; if it
				// carries one of its own, the key's comment is lost.
				e.lineComment = e.keyLineComment
				e.keyLineComment = nil
			}
		} else if event.CollectionStyle != yamlh.FlowStyle && (event.Kind == yamlh.MappingStartEvent || event.Kind == yamlh.SequenceStartEvent) {
			// An indented block follows; write the comment now.
			e.lineComment, e.keyLineComment = e.keyLineComment, e.lineComment
			if err := e.processLineComment(); err != nil {
				return err
			}
			e.lineComment, e.keyLineComment = e.keyLineComment, e.lineComment
		}
	}
	e.states = append(e.states, stateBlockMappingKey)
	if err := e.emitNode(event, false, false); err != nil {
		return err
	}
	if err := e.processLineComment(); err != nil {
		return err
	}
	return e.processFootComment()
}

// emitNode dispatches on the node event kind.
func (e *Emitter) emitNode(event *yamlh.Event, root, simpleKey bool) error {
	e.rootContext = root
	e.simpleKeyContext = simpleKey

	switch event.Kind {
	case yamlh.AliasEvent:
		return e.emitAlias(event)
	case yamlh.ScalarEvent:
		return e.emitScalar(event)
	case yamlh.SequenceStartEvent:
		return e.emitSequenceStart(event)
	case yamlh.MappingStartEvent:
		return e.emitMappingStart(event)
	default:
		return fmt.Errorf("expected SCALAR, SEQUENCE-START, MAPPING-START, or ALIAS, but got %v", event.Kind)
	}
}

// emitAlias expects ALIAS.
func (e *Emitter) emitAlias(event *yamlh.Event) error {
	if err := e.processAnchor(); err != nil {
		return err
	}
	e.popState()
	return nil
}

// emitScalar expects SCALAR.
func (e *Emitter) emitScalar(event *yamlh.Event) error {
	if err := e.selectScalarStyle(event); err != nil {
		return err
	}
	if err := e.processAnchor(); err != nil {
		return err
	}
	if err := e.processTag(); err != nil {
		return err
	}
	e.increaseIndent(true, false)
	if err := e.processScalar(); err != nil {
		return err
	}
	e.popIndent()
	e.popState()
	return nil
}

// emitSequenceStart expects SEQUENCE-START.
func (e *Emitter) emitSequenceStart(event *yamlh.Event) error {
	if err := e.processAnchor(); err != nil {
		return err
	}
	if err := e.processTag(); err != nil {
		return err
	}
	if e.flowLevel > 0 || e.mode == FlowForced || e.mode == FlowOneline ||
		event.CollectionStyle == yamlh.FlowStyle || e.checkEmptySequence() {
		e.state = stateFlowSequenceFirst
	} else {
		e.state = stateBlockSequenceFirst
	}
	return nil
}

// emitMappingStart expects MAPPING-START.
func (e *Emitter) emitMappingStart(event *yamlh.Event) error {
	if err := e.processAnchor(); err != nil {
		return err
	}
	if err := e.processTag(); err != nil {
		return err
	}
	if e.flowLevel > 0 || e.mode == FlowForced || e.mode == FlowOneline ||
		event.CollectionStyle == yamlh.FlowStyle || e.checkEmptyMapping() {
		e.state = stateFlowMappingFirstKey
	} else {
		e.state = stateBlockMappingFirstKey
	}
	return nil
}

// selectScalarStyle picks an acceptable scalar style: the event's hint
// when representable, otherwise the most compact safe alternative in
// the order plain, single quoted, double quoted, literal.
func (e *Emitter) selectScalarStyle(event *yamlh.Event) error {
	noTag := len(e.tagData.handle) == 0 && len(e.tagData.suffix) == 0
	if noTag && !event.Implicit && !event.QuotedImplicit {
		return fmt.Errorf("neither tag nor implicit flags are specified")
	}

	style := event.ScalarStyle
	if style == yamlh.AnyScalarStyle {
		style = yamlh.PlainStyle
	}
	if e.simpleKeyContext && e.scalarData.multiline {
		style = yamlh.DoubleQuotedStyle
	}

	if style == yamlh.PlainStyle {
		if e.flowLevel > 0 && !e.scalarData.flowPlainAllowed ||
			e.flowLevel == 0 && !e.scalarData.blockPlainAllowed {
			style = yamlh.SingleQuotedStyle
		}
		if len(e.scalarData.value) == 0 && (e.flowLevel > 0 || e.simpleKeyContext) {
			style = yamlh.SingleQuotedStyle
		}
		if noTag && !event.Implicit {
			style = yamlh.SingleQuotedStyle
		}
	}
	if style == yamlh.SingleQuotedStyle {
		if !e.scalarData.singleQuotedAllowed {
			style = yamlh.DoubleQuotedStyle
		}
	}
	if style == yamlh.LiteralStyle || style == yamlh.FoldedStyle {
		if !e.scalarData.blockAllowed || e.flowLevel > 0 || e.simpleKeyContext {
			style = yamlh.DoubleQuotedStyle
		}
	}

	if noTag && !event.QuotedImplicit && style != yamlh.PlainStyle {
		e.tagData.handle = []byte{'!'}
	}
	e.scalarData.style = style
	return nil
}
