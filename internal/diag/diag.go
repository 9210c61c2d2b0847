// Package diag renders source-located diagnostics: a file:line:column
// header with the offending line and a caret under the column, and
// optional structured logging of pipeline errors.
package diag

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"

	"github.com/flowyaml/flowyaml/internal/yamlh"
)

// Render formats a multi-line message for err against the source text,
// with a caret under the offending character:
//
//	file.yaml:3:5: did not find expected ':'
//	  key value
//	      ^
//
// The source may be nil, in which case only the header line is
// produced. Non-pipeline errors format as their Error text.
func Render(err error, src []byte) string {
	e, ok := err.(*yamlh.Error)
	if !ok {
		return err.Error()
	}

	name := e.Filename
	if name == "" {
		name = "<input>"
	}
	header := fmt.Sprintf("%s:%d:%d: %s", name, e.Mark.Line+1, e.Mark.Column+1, e.Problem)
	if src == nil {
		return header
	}

	line := sourceLine(src, e.Mark.Line)
	if line == "" {
		return header
	}
	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n  ")
	b.WriteString(line)
	b.WriteString("\n  ")
	col := e.Mark.Column
	if col > len(line) {
		col = len(line)
	}
	for i := 0; i < col; i++ {
		if line[i] == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}
	}
	b.WriteByte('^')
	return b.String()
}

// sourceLine extracts one zero-based line of src, tab-preserving,
// trimmed of its line break.
func sourceLine(src []byte, n int) string {
	for i := 0; i <= n; i++ {
		end := bytes.IndexByte(src, '\n')
		if i == n {
			if end < 0 {
				return strings.TrimRight(string(src), "\r\n")
			}
			return strings.TrimRight(string(src[:end]), "\r")
		}
		if end < 0 {
			return ""
		}
		src = src[end+1:]
	}
	return ""
}

// Report logs a pipeline error through the logger, carrying the error
// kind and source position as attributes. A nil logger is a no-op.
func Report(logger *slog.Logger, err error) {
	if logger == nil || err == nil {
		return
	}
	if e, ok := err.(*yamlh.Error); ok {
		logger.Error("yaml pipeline error",
			slog.String("kind", e.Kind.String()),
			slog.String("problem", e.Problem),
			slog.Int("line", e.Mark.Line+1),
			slog.Int("column", e.Mark.Column+1),
			slog.String("file", e.Filename),
		)
		return
	}
	logger.Error("yaml pipeline error", slog.String("problem", err.Error()))
}
