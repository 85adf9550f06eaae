package chain

import (
	"testing"

	"github.com/xytuang/pollchain/identity"
)

func mustIdentity(t *testing.T) identity.Identity {
	t.Helper()
	id, err := identity.Generate()
	if err != nil {
		t.Fatalf("generating identity: %v", err)
	}
	return id
}

func mineBlock(t *testing.T, id int64, txns []Transaction, prevHash string, difficulty int) Block {
	t.Helper()

	for nonce := uint64(0); ; nonce++ {
		b := NewBlock(id, txns, prevHash, nonce, 1700000000.0)
		hash, err := b.ComputeHash()
		if err != nil {
			t.Fatalf("computing hash: %v", err)
		}
		b.Hash = hash
		if MeetsDifficulty(hash, difficulty) {
			return b
		}
	}
}

func signedCreatePoll(t *testing.T, id identity.Identity, pollID, name string, options []string) Transaction {
	t.Helper()

	peerID, err := id.PeerID()
	if err != nil {
		t.Fatalf("peer id: %v", err)
	}

	tx := Transaction{Sender: peerID, Timestamp: 1700000000.0, Data: CreatePoll{PollID: pollID, PollName: name, Options: options}}
	if err := tx.Sign(id.Private); err != nil {
		t.Fatalf("signing: %v", err)
	}
	return tx
}

func signedVote(t *testing.T, id identity.Identity, pollID, option string) Transaction {
	t.Helper()

	peerID, err := id.PeerID()
	if err != nil {
		t.Fatalf("peer id: %v", err)
	}

	tx := Transaction{Sender: peerID, Timestamp: 1700000001.0, Data: Vote{PollID: pollID, Option: option}}
	if err := tx.Sign(id.Private); err != nil {
		t.Fatalf("signing: %v", err)
	}
	return tx
}

func TestTransactionSignAndVerify(t *testing.T) {
	id := mustIdentity(t)
	tx := signedCreatePoll(t, id, "p1", "favorite color", []string{"red", "blue"})

	if !tx.Verify() {
		t.Fatal("expected freshly signed transaction to verify")
	}
}

func TestTransactionVerifyRejectsTamperedData(t *testing.T) {
	id := mustIdentity(t)
	tx := signedCreatePoll(t, id, "p1", "favorite color", []string{"red", "blue"})

	cp := tx.Data.(CreatePoll)
	cp.PollName = "tampered"
	tx.Data = cp

	if tx.Verify() {
		t.Fatal("expected tampered transaction to fail verification")
	}
}

func TestTransactionVerifyRejectsMalformedSender(t *testing.T) {
	tx := Transaction{Sender: "not a pem key", Timestamp: 1.0, Data: Vote{PollID: "p1", Option: "red"}, Signature: "ab"}
	if tx.Verify() {
		t.Fatal("expected malformed sender to fail verification, not panic or succeed")
	}
}

func TestBlockIsValidRequiresMatchingHashAndDifficulty(t *testing.T) {
	id := mustIdentity(t)
	tx := signedCreatePoll(t, id, "p1", "color", []string{"red", "blue"})

	b := mineBlock(t, 0, []Transaction{tx}, GenesisPrevHash, 1)
	if !b.IsValid(1) {
		t.Fatal("expected mined block to be valid at its own difficulty")
	}

	corrupted := b
	corrupted.Nonce++
	if corrupted.IsValid(1) {
		t.Fatal("expected a nonce change without a hash recompute to invalidate the block")
	}
}

func TestCanAppendEnforcesLinkageAndID(t *testing.T) {
	id := mustIdentity(t)
	tx := signedCreatePoll(t, id, "p1", "color", []string{"red", "blue"})
	genesis := mineBlock(t, 0, []Transaction{tx}, GenesisPrevHash, 1)

	c := Chain{genesis}

	tx2 := signedVote(t, id, "p1", "red")
	next := mineBlock(t, 1, []Transaction{tx2}, genesis.Hash, 1)

	if !CanAppend(next, c, 1) {
		t.Fatal("expected properly linked next block to be appendable")
	}

	wrongID := next
	wrongID.ID = 5
	if CanAppend(wrongID, c, 1) {
		t.Fatal("expected wrong id to be rejected")
	}

	wrongPrev := mineBlock(t, 1, []Transaction{tx2}, "bogus", 1)
	if CanAppend(wrongPrev, c, 1) {
		t.Fatal("expected mismatched prev_hash to be rejected")
	}
}

func TestCanAppendRejectsDuplicatePollName(t *testing.T) {
	id := mustIdentity(t)
	tx := signedCreatePoll(t, id, "p1", "color", []string{"red", "blue"})
	genesis := mineBlock(t, 0, []Transaction{tx}, GenesisPrevHash, 1)
	c := Chain{genesis}

	dup := signedCreatePoll(t, id, "p2", "color", []string{"green", "yellow"})
	next := mineBlock(t, 1, []Transaction{dup}, genesis.Hash, 1)

	if CanAppend(next, c, 1) {
		t.Fatal("expected a second poll with the same name to be rejected")
	}
	if !IsDuplicatePollCreation(next, c) {
		t.Fatal("expected IsDuplicatePollCreation to flag the same block")
	}
}

func TestIsVoteForNonexistentPollNotEnforcedByCanAppend(t *testing.T) {
	id := mustIdentity(t)
	tx := signedCreatePoll(t, id, "p1", "color", []string{"red", "blue"})
	genesis := mineBlock(t, 0, []Transaction{tx}, GenesisPrevHash, 1)
	c := Chain{genesis}

	stray := signedVote(t, id, "does-not-exist", "red")
	next := mineBlock(t, 1, []Transaction{stray}, genesis.Hash, 1)

	if !CanAppend(next, c, 1) {
		t.Fatal("CanAppend should still admit a block replicated from a peer even if its vote targets an unknown poll")
	}
	if !IsVoteForNonexistentPoll(next, c) {
		t.Fatal("expected IsVoteForNonexistentPoll to flag the vote")
	}
}

func TestLongestCommonPrefix(t *testing.T) {
	id := mustIdentity(t)
	tx := signedCreatePoll(t, id, "p1", "color", []string{"red", "blue"})
	genesis := mineBlock(t, 0, []Transaction{tx}, GenesisPrevHash, 1)

	a := Chain{genesis}
	b := Chain{genesis}

	tx2 := signedVote(t, id, "p1", "red")
	aNext := mineBlock(t, 1, []Transaction{tx2}, genesis.Hash, 1)
	a = append(a, aNext)

	tx3 := signedVote(t, id, "p1", "blue")
	bNext := mineBlock(t, 1, []Transaction{tx3}, genesis.Hash, 1)
	b = append(b, bNext)

	if lcp := LongestCommonPrefix(a, b); lcp != 1 {
		t.Fatalf("expected common prefix of 1, got %d", lcp)
	}
}

func TestIsFullyValidReplaysEntireChain(t *testing.T) {
	id := mustIdentity(t)
	tx := signedCreatePoll(t, id, "p1", "color", []string{"red", "blue"})
	genesis := mineBlock(t, 0, []Transaction{tx}, GenesisPrevHash, 1)

	tx2 := signedVote(t, id, "p1", "red")
	next := mineBlock(t, 1, []Transaction{tx2}, genesis.Hash, 1)

	c := Chain{genesis, next}
	if !IsFullyValid(c, 1) {
		t.Fatal("expected chain built from two linked, valid blocks to be fully valid")
	}

	broken := Chain{genesis, next}
	broken[1].Hash = corrupt(broken[1].Hash)
	if IsFullyValid(broken, 1) {
		t.Fatal("expected a corrupted second block to fail full validation")
	}
}

func corrupt(h string) string {
	if h == "" {
		return "f"
	}
	if h[0] == '0' {
		return "f" + h[1:]
	}
	return "0" + h[1:]
}

func TestTransactionJSONRoundTrip(t *testing.T) {
	id := mustIdentity(t)
	tx := signedCreatePoll(t, id, "p1", "color", []string{"red", "blue"})

	raw, err := tx.MarshalJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded Transaction
	if err := decoded.UnmarshalJSON(raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	if !decoded.Verify() {
		t.Fatal("expected round-tripped transaction to still verify")
	}
	if decoded.Data.(CreatePoll).PollName != "color" {
		t.Fatalf("expected poll name to survive round trip, got %+v", decoded.Data)
	}
}
