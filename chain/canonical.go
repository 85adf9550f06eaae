package chain

import "encoding/json"

// canonicalJSON marshals a field map to UTF-8 JSON bytes with keys in
// lexicographic order. encoding/json already sorts map[string]any keys
// when marshaling, so building the canonical encoding from a plain map
// (rather than a struct, whose fields serialize in source order) is
// sufficient to make independent implementations reproduce the same
// bytes, and therefore the same hash, without sharing code.
func canonicalJSON(fields map[string]interface{}) ([]byte, error) {
	return json.Marshal(fields)
}
