package crypto

import (
	"bytes"
	"encoding/json"
)

// SortedMarshalJSON is similar to json.Marshal, but it also enforces all struct
// fields to be sorted when marshaling, just like json.Marshal does for maps.
// Signed ballot content is serialized with it, so signer and verifier agree
// on the same bytes regardless of struct field order.
func SortedMarshalJSON(v1 any) ([]byte, error) {
	// First, marshal the data, where the keys might not be sorted if v1
	// contains a struct.
	unsorted, err := json.Marshal(v1)
	if err != nil {
		return nil, err
	}

	// Then, unmarshal back into an empty interface, which will turn the
	// structs into map[string]any. UseNumber keeps integers exact.
	var v2 any
	dec := json.NewDecoder(bytes.NewReader(unsorted))
	dec.UseNumber()
	if err := dec.Decode(&v2); err != nil {
		return nil, err
	}

	// Marshal again; the json package will sort keys in maps, so the output
	// will have all keys sorted.
	return json.Marshal(v2)
}
