package chain

// Payload is the application-defined record carried by a Transaction.
// The network only ever needs to round-trip it through canonical JSON and
// let the application layer interpret "transaction_type"; it is modeled
// as a sum type over the two shapes the voting application produces plus
// an opaque catch-all so a future payload kind never breaks decoding of
// blocks that already made it onto the chain.
type Payload interface {
	// ToMap returns the canonical field set for this payload, used both
	// for signing/hashing and for wire encoding.
	ToMap() map[string]interface{}
}

const (
	TxCreatePoll = "create_poll"
	TxVote       = "vote"
)

// CreatePoll is the payload of a poll-creation transaction.
type CreatePoll struct {
	PollID   string   `json:"poll_id"`
	PollName string   `json:"poll_name"`
	Options  []string `json:"options"`
}

func (p CreatePoll) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"transaction_type": TxCreatePoll,
		"poll_id":          p.PollID,
		"poll_name":        p.PollName,
		"options":          toAnySlice(p.Options),
	}
}

// Vote is the payload of a vote transaction.
type Vote struct {
	PollID string `json:"poll_id"`
	Option string `json:"vote"`
}

func (v Vote) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"transaction_type": TxVote,
		"poll_id":          v.PollID,
		"vote":             v.Option,
	}
}

// OpaquePayload preserves any payload shape this build doesn't know about,
// so that replaying a chain built by a newer peer never loses data.
type OpaquePayload map[string]interface{}

func (o OpaquePayload) ToMap() map[string]interface{} {
	return map[string]interface{}(o)
}

func toAnySlice(s []string) []interface{} {
	out := make([]interface{}, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}

// PayloadFromMap recovers the concrete Payload type from a decoded
// "data" field based on its transaction_type tag, falling back to
// OpaquePayload when the tag is missing or unrecognized.
func PayloadFromMap(m map[string]interface{}) Payload {
	t, _ := m["transaction_type"].(string)

	switch t {
	case TxCreatePoll:
		pollID, _ := m["poll_id"].(string)
		pollName, _ := m["poll_name"].(string)
		var options []string
		if raw, ok := m["options"].([]interface{}); ok {
			for _, v := range raw {
				if s, ok := v.(string); ok {
					options = append(options, s)
				}
			}
		}
		return CreatePoll{PollID: pollID, PollName: pollName, Options: options}

	case TxVote:
		pollID, _ := m["poll_id"].(string)
		option, _ := m["vote"].(string)
		return Vote{PollID: pollID, Option: option}

	default:
		return OpaquePayload(m)
	}
}
