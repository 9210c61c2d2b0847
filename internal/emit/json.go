package emit

import (
	"fmt"
	"math"
	"strconv"

	"github.com/flowyaml/flowyaml/internal/resolve"
	"github.com/flowyaml/flowyaml/internal/yamlh"
)

// jsonFrame tracks one open JSON composite.
type jsonFrame struct {
	mapping    bool
	count      int
	keyPending bool
}

// jsonStateMachine consumes events in JSON mode. The output is strict
// RFC 8259: no anchors, aliases, tags, directives or comments; string
// scalars always double quoted; mappings keyed by strings.
func (e *Emitter) jsonStateMachine(event *yamlh.Event) error {
	switch event.Kind {
	case yamlh.StreamStartEvent, yamlh.DocumentEndEvent, yamlh.TailCommentEvent:
		return nil
	case yamlh.StreamEndEvent:
		return nil
	case yamlh.DocumentStartEvent:
		if e.state == stateDocumentStart {
			// Separate concatenated documents with a newline.
			return e.putBreak()
		}
		e.state = stateDocumentStart
		return nil
	case yamlh.AliasEvent:
		return fmt.Errorf("aliases cannot be represented in JSON output")
	case yamlh.ScalarEvent:
		if err := e.jsonComma(); err != nil {
			return err
		}
		return e.jsonScalar(event)
	case yamlh.SequenceStartEvent:
		if err := e.jsonComma(); err != nil {
			return err
		}
		if err := e.writeAll([]byte{'['}); err != nil {
			return err
		}
		e.jsonStack = append(e.jsonStack, jsonFrame{})
		return nil
	case yamlh.SequenceEndEvent:
		frame := e.jsonPop()
		if frame.count > 0 && e.mode != JSONOneline {
			if err := e.jsonNewline(); err != nil {
				return err
			}
		}
		return e.writeAll([]byte{']'})
	case yamlh.MappingStartEvent:
		if err := e.jsonComma(); err != nil {
			return err
		}
		if err := e.writeAll([]byte{'{'}); err != nil {
			return err
		}
		e.jsonStack = append(e.jsonStack, jsonFrame{mapping: true, keyPending: true})
		return nil
	case yamlh.MappingEndEvent:
		frame := e.jsonPop()
		if frame.count > 0 && e.mode != JSONOneline {
			if err := e.jsonNewline(); err != nil {
				return err
			}
		}
		return e.writeAll([]byte{'}'})
	}
	return fmt.Errorf("unexpected event in JSON output: %v", event.Kind)
}

func (e *Emitter) jsonPop() jsonFrame {
	frame := e.jsonStack[len(e.jsonStack)-1]
	e.jsonStack = e.jsonStack[:len(e.jsonStack)-1]
	return frame
}

// jsonComma writes the separator due before a new value, and the
// pretty-mode line break and indentation.
func (e *Emitter) jsonComma() error {
	if len(e.jsonStack) == 0 {
		return nil
	}
	frame := &e.jsonStack[len(e.jsonStack)-1]
	if frame.mapping {
		if !frame.keyPending {
			// The value half of a pair: the ':' was written with the key.
			frame.keyPending = true
			frame.count++
			return nil
		}
		if frame.count > 0 {
			if err := e.writeAll([]byte{','}); err != nil {
				return err
			}
		}
		frame.keyPending = false
		if e.mode != JSONOneline {
			return e.jsonNewlineIndent()
		}
		return nil
	}
	if frame.count > 0 {
		if err := e.writeAll([]byte{','}); err != nil {
			return err
		}
	}
	frame.count++
	if e.mode != JSONOneline {
		return e.jsonNewlineIndent()
	}
	return nil
}

func (e *Emitter) jsonNewlineIndent() error {
	if err := e.putBreak(); err != nil {
		return err
	}
	for i := 0; i < len(e.jsonStack)*e.indent; i++ {
		if err := e.put(' '); err != nil {
			return err
		}
	}
	return nil
}

// jsonNewline breaks before a closing bracket at the parent's indent.
func (e *Emitter) jsonNewline() error {
	if err := e.putBreak(); err != nil {
		return err
	}
	for i := 0; i < (len(e.jsonStack))*e.indent; i++ {
		if err := e.put(' '); err != nil {
			return err
		}
	}
	return nil
}

// jsonScalar writes one scalar, quoting everything that does not pass
// as a JSON literal or number.
func (e *Emitter) jsonScalar(event *yamlh.Event) error {
	value := string(event.Value)

	isKey := false
	if len(e.jsonStack) > 0 {
		frame := &e.jsonStack[len(e.jsonStack)-1]
		// keyPending was flipped by jsonComma: false means a key was
		// just due.
		isKey = frame.mapping && !frame.keyPending
	}

	if isKey {
		if err := e.jsonWriteString(value); err != nil {
			return err
		}
		if e.mode == JSONOneline {
			return e.writeAll([]byte{':'})
		}
		return e.writeAll([]byte(": "))
	}

	if event.ScalarStyle == yamlh.PlainStyle || event.ScalarStyle == yamlh.AnyScalarStyle {
		if e.mode == JSONTypePreserving {
			return e.jsonTypedScalar(value)
		}
		switch value {
		case "", "~", "null", "Null", "NULL":
			return e.writeAll([]byte("null"))
		case "true", "True", "TRUE":
			return e.writeAll([]byte("true"))
		case "false", "False", "FALSE":
			return e.writeAll([]byte("false"))
		}
		if yamlh.IsJSONNumber(value) {
			return e.writeAll([]byte(value))
		}
	}
	return e.jsonWriteString(value)
}

// jsonTypedScalar writes a plain scalar by its resolved type: numbers
// and booleans keep their type even when their YAML spelling is not
// valid JSON. Values with no JSON representation (infinities, NaN,
// strings) are quoted.
func (e *Emitter) jsonTypedScalar(value string) error {
	if _, out, err := resolve.Resolve(resolve.Core12, "", value); err == nil {
		switch v := out.(type) {
		case nil:
			return e.writeAll([]byte("null"))
		case bool:
			return e.writeAll([]byte(strconv.FormatBool(v)))
		case int64:
			return e.writeAll([]byte(strconv.FormatInt(v, 10)))
		case uint64:
			return e.writeAll([]byte(strconv.FormatUint(v, 10)))
		case float64:
			if !math.IsNaN(v) && !math.IsInf(v, 0) {
				if s := strconv.FormatFloat(v, 'g', -1, 64); yamlh.IsJSONNumber(s) {
					return e.writeAll([]byte(s))
				}
			}
		}
	}
	return e.jsonWriteString(value)
}

const hexDigits = "0123456789abcdef"

// jsonWriteString writes a double quoted string with the JSON escape
// table.
func (e *Emitter) jsonWriteString(s string) error {
	out := make([]byte, 0, len(s)+2)
	out = append(out, '"')
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '"':
			out = append(out, '\\', '"')
		case c == '\\':
			out = append(out, '\\', '\\')
		case c == '\n':
			out = append(out, '\\', 'n')
		case c == '\r':
			out = append(out, '\\', 'r')
		case c == '\t':
			out = append(out, '\\', 't')
		case c == '\b':
			out = append(out, '\\', 'b')
		case c == '\f':
			out = append(out, '\\', 'f')
		case c < 0x20:
			out = append(out, '\\', 'u', '0', '0', hexDigits[c>>4], hexDigits[c&0xF])
		default:
			out = append(out, c)
		}
	}
	out = append(out, '"')
	return e.writeAll(out)
}
