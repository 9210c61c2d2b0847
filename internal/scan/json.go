package scan

import (
	"github.com/flowyaml/flowyaml/internal/yamlh"
)

// checkJSONScalar validates a plain token against the JSON grammar:
// the only unquoted forms are literals and numbers (RFC 8259).
func (s *Scanner) checkJSONScalar(token *yamlh.Token) error {
	v := string(token.Value)
	switch v {
	case "null", "true", "false":
		return nil
	}
	if yamlh.IsJSONNumber(v) {
		return nil
	}
	return s.scannerError(token.Start, "invalid JSON value: "+v)
}
