package flowyaml

import (
	"github.com/flowyaml/flowyaml/internal/diag"
	"github.com/flowyaml/flowyaml/internal/yamlh"
)

// Error is the error produced anywhere in the pipeline. It carries the
// error kind and the source mark of the offending input.
type Error = yamlh.Error

// ErrorKind classifies pipeline errors.
type ErrorKind = yamlh.ErrorKind

const (
	NoError       = yamlh.NoError
	ReaderError   = yamlh.ReaderError
	ScannerError  = yamlh.ScannerError
	ParserError   = yamlh.ParserError
	ComposerError = yamlh.ComposerError
	WriterError   = yamlh.WriterError
	EmitterError  = yamlh.EmitterError
	ResourceError = yamlh.ResourceError
	UsageError    = yamlh.UsageError
)

// RenderError formats err as a multi-line diagnostic with the source
// line and a caret under the offending column. src may be nil.
func RenderError(err error, src []byte) string {
	return diag.Render(err, src)
}

func composerError(problem string, mark Mark) error {
	return &Error{Kind: yamlh.ComposerError, Problem: problem, Mark: mark}
}

func usageError(problem string) error {
	return &Error{Kind: yamlh.UsageError, Problem: problem}
}
