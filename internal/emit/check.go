package emit

import "github.com/flowyaml/flowyaml/internal/yamlh"

// checkEmptySequence checks if the next events form an empty sequence.
func (e *Emitter) checkEmptySequence() bool {
	if len(e.eventsQueue)-e.eventsHead < 2 {
		return false
	}
	return e.eventsQueue[e.eventsHead].Kind == yamlh.SequenceStartEvent &&
		e.eventsQueue[e.eventsHead+1].Kind == yamlh.SequenceEndEvent
}

// checkEmptyMapping checks if the next events form an empty mapping.
func (e *Emitter) checkEmptyMapping() bool {
	if len(e.eventsQueue)-e.eventsHead < 2 {
		return false
	}
	return e.eventsQueue[e.eventsHead].Kind == yamlh.MappingStartEvent &&
		e.eventsQueue[e.eventsHead+1].Kind == yamlh.MappingEndEvent
}

// checkSimpleKey checks if the next node fits a simple key.
func (e *Emitter) checkSimpleKey() bool {
	length := 0
	switch e.eventsQueue[e.eventsHead].Kind {
	case yamlh.AliasEvent:
		length += len(e.anchorData.anchor)
	case yamlh.ScalarEvent:
		if e.scalarData.multiline {
			return false
		}
		length += len(e.anchorData.anchor) +
			len(e.tagData.handle) +
			len(e.tagData.suffix) +
			len(e.scalarData.value)
	case yamlh.SequenceStartEvent:
		if !e.checkEmptySequence() {
			return false
		}
		length += len(e.anchorData.anchor) +
			len(e.tagData.handle) +
			len(e.tagData.suffix)
	case yamlh.MappingStartEvent:
		if !e.checkEmptyMapping() {
			return false
		}
		length += len(e.anchorData.anchor) +
			len(e.tagData.handle) +
			len(e.tagData.suffix)
	default:
		return false
	}
	return length <= 128
}
