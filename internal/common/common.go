// Package common holds the few constants shared by the parser and the
// emitter.
package common

import (
	"github.com/flowyaml/flowyaml/internal/yamlh"
)

// DefaultTagDirectives are the handle expansions every document gets
// whether or not it carries %TAG directives.
var DefaultTagDirectives = []yamlh.TagDirective{
	{Handle: []byte("!"), Prefix: []byte("!")},
	{Handle: []byte("!!"), Prefix: []byte("tag:yaml.org,2002:")},
}

// DefaultMaxDepth bounds nesting when the caller does not choose one.
const DefaultMaxDepth = 64
