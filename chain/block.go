package chain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// GenesisPrevHash is the sentinel prev_hash accepted for the first block
// on a chain; any value is actually accepted at id 0 (per spec.md §4.3),
// but this is what peernode's miner passes to NewBlock when mining the
// genesis block locally.
const GenesisPrevHash = "0"

// Block is a single, numbered, content-addressed container for one
// transaction (by current application use; the type supports more).
type Block struct {
	ID        int64         `json:"id"`
	Txns      []Transaction `json:"txns"`
	PrevHash  string        `json:"prev_hash"`
	Nonce     uint64        `json:"nonce"`
	Timestamp float64       `json:"timestamp"`
	Hash      string        `json:"hash"`
}

// SentinelBlockID marks the terminator block id sent at the end of a
// GET-CHAIN stream (spec.md §4.4, §4.6).
const SentinelBlockID int64 = -1

// IsSentinel reports whether b terminates a GET-CHAIN stream.
func (b Block) IsSentinel() bool {
	return b.ID == SentinelBlockID
}

// Sentinel builds the terminator block appended after a full GET-CHAIN
// response.
func Sentinel() Block {
	return Block{ID: SentinelBlockID}
}

// fields returns the block's canonical field map. withHash controls
// whether the "hash" key is present, matching spec.md §4.1: the content
// hash is computed over every field except hash itself.
func (b Block) fields(withHash bool) map[string]interface{} {
	txns := make([]interface{}, len(b.Txns))
	for i, tx := range b.Txns {
		txns[i] = tx.wireFields()
	}

	f := map[string]interface{}{
		"id":        b.ID,
		"txns":      txns,
		"prev_hash": b.PrevHash,
		"nonce":     b.Nonce,
		"timestamp": b.Timestamp,
	}

	if withHash {
		f["hash"] = b.Hash
	}

	return f
}

// HashableBytes returns the canonical JSON bytes a block's content hash
// is computed over.
func (b Block) HashableBytes() ([]byte, error) {
	return canonicalJSON(b.fields(false))
}

// ComputeHash recomputes the block's content hash from its fields,
// independent of whatever is currently stored in b.Hash.
func (b Block) ComputeHash() (string, error) {
	raw, err := b.HashableBytes()
	if err != nil {
		return "", err
	}

	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// MeetsDifficulty reports whether hash has at least the required number
// of leading hexadecimal zeros.
func MeetsDifficulty(hash string, difficulty int) bool {
	if difficulty <= 0 {
		return true
	}
	if len(hash) < difficulty {
		return false
	}
	return strings.Count(hash[:difficulty], "0") == difficulty
}

// IsValid checks block-local validity per spec.md §4.3 step 3: the
// stored hash matches a fresh recomputation, that hash meets the
// difficulty, and every contained transaction verifies. It does not
// check chain linkage or semantic (duplicate-poll) rules — see
// CanAppend for the full admission predicate.
func (b Block) IsValid(difficulty int) bool {
	recomputed, err := b.ComputeHash()
	if err != nil {
		return false
	}

	if recomputed != b.Hash {
		return false
	}

	if !MeetsDifficulty(b.Hash, difficulty) {
		return false
	}

	for _, tx := range b.Txns {
		if !tx.Verify() {
			return false
		}
	}

	return true
}

// NewBlock assembles (but does not mine) a block with the given nonce; a
// caller in search of a valid nonce calls this repeatedly with increasing
// nonces and inspects ComputeHash until MeetsDifficulty is satisfied —
// see peernode's mining loop.
func NewBlock(id int64, txns []Transaction, prevHash string, nonce uint64, timestamp float64) Block {
	return Block{
		ID:        id,
		Txns:      txns,
		PrevHash:  prevHash,
		Nonce:     nonce,
		Timestamp: timestamp,
	}
}

// NowTimestamp is the canonical "seconds since epoch" clock reading used
// for both transaction and block timestamps.
func NowTimestamp() float64 {
	return float64(time.Now().UnixNano()) / float64(time.Second)
}
