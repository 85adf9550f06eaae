package chain

import "encoding/json"

// MarshalJSON emits the wire representation of a transaction: sender,
// timestamp, data and signature, with Data flattened to its map form so
// standard JSON tooling (and other independent implementations) can read
// it without knowing about the Payload interface.
func (tx Transaction) MarshalJSON() ([]byte, error) {
	return canonicalJSON(tx.wireFields())
}

// UnmarshalJSON is the inverse of MarshalJSON: it recovers the concrete
// Payload type from the decoded "data" map via PayloadFromMap.
func (tx *Transaction) UnmarshalJSON(b []byte) error {
	var raw struct {
		Sender    string                 `json:"sender"`
		Timestamp float64                `json:"timestamp"`
		Data      map[string]interface{} `json:"data"`
		Signature string                 `json:"signature"`
	}

	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	tx.Sender = raw.Sender
	tx.Timestamp = raw.Timestamp
	tx.Data = PayloadFromMap(raw.Data)
	tx.Signature = raw.Signature

	return nil
}
