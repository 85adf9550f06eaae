package peernode

import (
	"os"
	"testing"
)

func TestDefaultConfigNeverTampersAlwaysBroadcasts(t *testing.T) {
	cfg := DefaultConfig()

	for seq := 1; seq <= 10; seq++ {
		if !cfg.ShouldBroadcast(seq) {
			t.Fatalf("expected every block to broadcast under defaults, seq=%d", seq)
		}
		if cfg.ShouldTamper(seq) {
			t.Fatalf("expected no tampering under defaults, seq=%d", seq)
		}
	}
}

func TestShouldBroadcastHonorsFrequency(t *testing.T) {
	cfg := Config{BroadcastFreq: 3}

	got := []bool{}
	for seq := 1; seq <= 6; seq++ {
		got = append(got, cfg.ShouldBroadcast(seq))
	}

	want := []bool{false, false, true, false, false, true}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("seq %d: expected %v, got %v", i+1, want[i], got[i])
		}
	}
}

func TestShouldTamperHonorsFrequency(t *testing.T) {
	cfg := Config{TamperFreq: 2, TamperType: TamperHash}

	for seq := 1; seq <= 4; seq++ {
		want := seq%2 == 0
		if got := cfg.ShouldTamper(seq); got != want {
			t.Fatalf("seq %d: expected %v, got %v", seq, want, got)
		}
	}
}

func TestLoadConfigDefaultsMissingKeys(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/config.json"

	if err := os.WriteFile(path, []byte(`{"tamper_freq": 5}`), 0644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.TamperFreq != 5 {
		t.Fatalf("expected tamper_freq 5, got %d", cfg.TamperFreq)
	}
	if cfg.TamperType != TamperHash {
		t.Fatalf("expected default tamper_type hash, got %q", cfg.TamperType)
	}
	if cfg.BroadcastFreq != 1 {
		t.Fatalf("expected default broadcast_freq 1, got %d", cfg.BroadcastFreq)
	}
}
