package parse

// State of the parser automaton.
type State int

const (
	StreamStartState State = iota

	ImplicitDocumentStartState // expect the beginning of an implicit document
	DocumentStartState         // expect DOCUMENT-START
	DocumentContentState       // expect the content of a document
	DocumentEndState           // expect DOCUMENT-END
	BlockNodeState             // expect a block node
	BlockNodeOrIndentlessSequenceState
	FlowNodeState
	BlockSequenceFirstEntryState
	BlockSequenceEntryState
	IndentlessSequenceEntryState
	BlockMappingFirstKeyState
	BlockMappingKeyState
	BlockMappingValueState
	FlowSequenceFirstEntryState
	FlowSequenceEntryState
	FlowSequenceEntryMappingKeyState
	FlowSequenceEntryMappingValueState
	FlowSequenceEntryMappingEndState
	FlowMappingFirstKeyState
	FlowMappingKeyState
	FlowMappingValueState
	FlowMappingEmptyValueState
	EndState // expect nothing
)

var stateStrings = []string{
	StreamStartState:                   "stream-start",
	ImplicitDocumentStartState:         "implicit-doc",
	DocumentStartState:                 "doc-start",
	DocumentContentState:               "doc-content",
	DocumentEndState:                   "doc-end",
	BlockNodeState:                     "block-node",
	BlockNodeOrIndentlessSequenceState: "block-node-or-indentless-sequence",
	FlowNodeState:                      "flow-node",
	BlockSequenceFirstEntryState:       "block-sequence-first-entry",
	BlockSequenceEntryState:            "block-sequence-entry",
	IndentlessSequenceEntryState:       "indentless-sequence-entry",
	BlockMappingFirstKeyState:          "block-mapping-first-key",
	BlockMappingKeyState:               "block-mapping-key",
	BlockMappingValueState:             "block-mapping-value",
	FlowSequenceFirstEntryState:        "flow-sequence-first-entry",
	FlowSequenceEntryState:             "flow-sequence-entry",
	FlowSequenceEntryMappingKeyState:   "flow-sequence-entry-mapping-key",
	FlowSequenceEntryMappingValueState: "flow-sequence-entry-mapping-value",
	FlowSequenceEntryMappingEndState:   "flow-sequence-entry-mapping-end",
	FlowMappingFirstKeyState:           "flow-mapping-first-key",
	FlowMappingKeyState:                "flow-mapping-key",
	FlowMappingValueState:              "flow-mapping-value",
	FlowMappingEmptyValueState:         "flow-mapping-empty-value",
	EndState:                           "end",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateStrings) {
		return "<unknown parser state>"
	}
	return stateStrings[s]
}
