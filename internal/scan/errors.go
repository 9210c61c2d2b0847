package scan

import "github.com/flowyaml/flowyaml/internal/yamlh"

// Error is the shared pipeline error type.
type Error = yamlh.Error

// TabPolicy decides how tabs are treated around indentation.
type TabPolicy int

const (
	// TabsRejected is the YAML-conformant default: tabs never count
	// as indentation, and only appear where the spec allows blanks.
	TabsRejected TabPolicy = iota
	// TabsAuto additionally accepts tabs wherever indentation
	// whitespace is skipped.
	TabsAuto
)
