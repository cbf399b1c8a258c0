package snapshot

import "encoding/json"

// Marshal serializes a Snapshot to its wire contract: stable field order
// via struct tag order, used both for the REST/MCP surface and for
// round-trip tests. Fields used in hashing round-trip losslessly.
func Marshal(s Snapshot) ([]byte, error) {
	return json.Marshal(s)
}

// Unmarshal deserializes a wire-format Snapshot.
func Unmarshal(data []byte) (Snapshot, error) {
	var s Snapshot
	err := json.Unmarshal(data, &s)
	return s, err
}
