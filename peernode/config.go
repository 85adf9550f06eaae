package peernode

import (
	"encoding/json"
	"fmt"
	"os"
)

// TamperType names which field of an outgoing broadcast gets corrupted
// for resilience testing (spec.md §6).
type TamperType string

const (
	TamperHash     TamperType = "hash"
	TamperPrevHash TamperType = "prev_hash"
	TamperTxnData  TamperType = "txn_data"
	TamperChain    TamperType = "chain"
)

// Config is the optional JSON config file (spec.md §6). Absent keys mean
// "always broadcast, never tamper".
type Config struct {
	TamperFreq    int        `json:"tamper_freq"`
	TamperType    TamperType `json:"tamper_type"`
	BroadcastFreq int        `json:"broadcast_freq"`
}

// DefaultConfig is applied when no config file is given on the command
// line: every mined block is broadcast, and nothing is ever tampered.
func DefaultConfig() Config {
	return Config{TamperFreq: 0, TamperType: TamperHash, BroadcastFreq: 1}
}

// LoadConfig reads and parses a config file. A missing TamperType
// defaults to "hash", matching spec.md §6.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config file %s: %w", path, err)
	}

	if err := json.Unmarshal(raw, &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if cfg.TamperType == "" {
		cfg.TamperType = TamperHash
	}
	if cfg.BroadcastFreq <= 0 {
		cfg.BroadcastFreq = 1
	}

	return cfg, nil
}

// ShouldBroadcast reports whether the seq-th mined block should be sent
// to peers at all, per the broadcast_freq config key.
func (c Config) ShouldBroadcast(seq int) bool {
	return seq%c.BroadcastFreq == 0
}

// ShouldTamper reports whether the seq-th mined block should be
// corrupted before being broadcast, per the tamper_freq config key. A
// non-positive TamperFreq disables tampering entirely.
func (c Config) ShouldTamper(seq int) bool {
	return c.TamperFreq > 0 && seq%c.TamperFreq == 0
}
