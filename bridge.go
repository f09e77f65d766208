package graver

import (
	gojson "github.com/goccy/go-json"
)

// ToJSON converts a graver document to JSON through a loose parse. Type
// overrides survive under the reserved "(type)" key. Intended for tooling and
// interop, not as a second persistence format: JSON output has no tactic
// semantics.
func ToJSON(data []byte) ([]byte, error) {
	v, err := ParseLoose(data)
	if err != nil {
		return nil, err
	}
	out, merr := gojson.MarshalIndent(v, "", "  ")
	if merr != nil {
		return nil, AppendIssues(nil, Issue{Code: CodeParseError, Message: merr.Error(), Cause: merr, Offset: -1})
	}
	return out, nil
}

// FromJSON converts generic JSON into a graver document: objects become
// classes (a "(type)" key becomes the override tag), arrays lists, strings
// and numbers scalar tokens. The result is reformatted like any written
// document.
func FromJSON(jsonData []byte) ([]byte, error) {
	var v any
	if err := gojson.Unmarshal(jsonData, &v); err != nil {
		return nil, AppendIssues(nil, Issue{Code: CodeParseError, Message: err.Error(), Cause: err, Offset: -1})
	}
	return looseWrite(v)
}
