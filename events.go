package flowyaml

import (
	"github.com/flowyaml/flowyaml/internal/yamlh"
)

// The canonical event stream types. The set and the field shapes match
// the libyaml event ABI.
type (
	Event         = yamlh.Event
	EventKind     = yamlh.EventKind
	Token         = yamlh.Token
	TokenKind     = yamlh.TokenKind
	Mark          = yamlh.Mark
	DocumentState = yamlh.DocumentState

	VersionDirective = yamlh.VersionDirective
	TagDirective     = yamlh.TagDirective

	ScalarStyle     = yamlh.ScalarStyle
	CollectionStyle = yamlh.CollectionStyle
)

const (
	NoEvent            = yamlh.NoEvent
	StreamStartEvent   = yamlh.StreamStartEvent
	StreamEndEvent     = yamlh.StreamEndEvent
	DocumentStartEvent = yamlh.DocumentStartEvent
	DocumentEndEvent   = yamlh.DocumentEndEvent
	AliasEvent         = yamlh.AliasEvent
	ScalarEvent        = yamlh.ScalarEvent
	SequenceStartEvent = yamlh.SequenceStartEvent
	SequenceEndEvent   = yamlh.SequenceEndEvent
	MappingStartEvent  = yamlh.MappingStartEvent
	MappingEndEvent    = yamlh.MappingEndEvent
	TailCommentEvent   = yamlh.TailCommentEvent
)

const (
	AnyScalarStyle    = yamlh.AnyScalarStyle
	PlainStyle        = yamlh.PlainStyle
	SingleQuotedStyle = yamlh.SingleQuotedStyle
	DoubleQuotedStyle = yamlh.DoubleQuotedStyle
	LiteralStyle      = yamlh.LiteralStyle
	FoldedStyle       = yamlh.FoldedStyle

	AnyCollectionStyle = yamlh.AnyCollectionStyle
	BlockStyle         = yamlh.BlockStyle
	FlowStyle          = yamlh.FlowStyle
)

// Tag URIs of the core schema.
const (
	NullTag      = yamlh.NullTag
	BoolTag      = yamlh.BoolTag
	StrTag       = yamlh.StrTag
	IntTag       = yamlh.IntTag
	FloatTag     = yamlh.FloatTag
	TimestampTag = yamlh.TimestampTag
	SeqTag       = yamlh.SeqTag
	MapTag       = yamlh.MapTag
	BinaryTag    = yamlh.BinaryTag
	MergeTag     = yamlh.MergeTag
)
