package peernode

import (
	"io"
	"log"
	"testing"

	"github.com/xytuang/pollchain/chain"
	"github.com/xytuang/pollchain/identity"
)

func testNode(t *testing.T, peerID string) *Node {
	t.Helper()
	return &Node{
		peerID:     peerID,
		logger:     log.New(io.Discard, "", 0),
		difficulty: 1,
		knownPeers: make(map[string]PeerInfo),
		shutdownCh: make(chan struct{}),
		cfg:        DefaultConfig(),
	}
}

func mineTestBlock(t *testing.T, id int64, txns []chain.Transaction, prevHash string) chain.Block {
	t.Helper()
	for nonce := uint64(0); ; nonce++ {
		b := chain.NewBlock(id, txns, prevHash, nonce, 1700000000.0)
		hash, err := b.ComputeHash()
		if err != nil {
			t.Fatalf("hash: %v", err)
		}
		b.Hash = hash
		if chain.MeetsDifficulty(hash, 1) {
			return b
		}
	}
}

func signedTx(t *testing.T, id identity.Identity, data chain.Payload) chain.Transaction {
	t.Helper()
	peerID, err := id.PeerID()
	if err != nil {
		t.Fatalf("peer id: %v", err)
	}
	tx := chain.Transaction{Sender: peerID, Timestamp: 1700000000.0, Data: data}
	if err := tx.Sign(id.Private); err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tx
}

func TestPendingQueueFIFOAndRequeue(t *testing.T) {
	id, err := identity.Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	peerID, _ := id.PeerID()
	n := testNode(t, peerID)

	n.SubmitTransaction(chain.Vote{PollID: "a", Option: "x"})
	n.SubmitTransaction(chain.Vote{PollID: "b", Option: "y"})

	first, ok := n.popPending()
	if !ok || first.Data.(chain.Vote).PollID != "a" {
		t.Fatalf("expected first popped transaction to be for poll a, got %+v", first)
	}

	n.pushFrontPending(first)

	again, ok := n.popPending()
	if !ok || again.Data.(chain.Vote).PollID != "a" {
		t.Fatalf("expected requeued transaction back at the front, got %+v", again)
	}
}

func TestTryAppendMinedAppliesValidBlock(t *testing.T) {
	id, err := identity.Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	peerID, _ := id.PeerID()
	n := testNode(t, peerID)

	tx := signedTx(t, id, chain.CreatePoll{PollID: "p1", PollName: "color", Options: []string{"red", "blue"}})
	b := mineTestBlock(t, 0, []chain.Transaction{tx}, chain.GenesisPrevHash)

	if outcome := n.tryAppendMined(b); outcome != appendOutcomeApplied {
		t.Fatalf("expected appendOutcomeApplied, got %v", outcome)
	}

	if got := len(n.SnapshotChain()); got != 1 {
		t.Fatalf("expected chain length 1, got %d", got)
	}
}

func TestTryAppendMinedDropsDuplicatePollName(t *testing.T) {
	id, err := identity.Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	peerID, _ := id.PeerID()
	n := testNode(t, peerID)

	tx1 := signedTx(t, id, chain.CreatePoll{PollID: "p1", PollName: "color", Options: []string{"red"}})
	genesis := mineTestBlock(t, 0, []chain.Transaction{tx1}, chain.GenesisPrevHash)
	if outcome := n.tryAppendMined(genesis); outcome != appendOutcomeApplied {
		t.Fatalf("expected genesis to apply, got %v", outcome)
	}

	tx2 := signedTx(t, id, chain.CreatePoll{PollID: "p2", PollName: "color", Options: []string{"green"}})
	dup := mineTestBlock(t, 1, []chain.Transaction{tx2}, genesis.Hash)

	if outcome := n.tryAppendMined(dup); outcome != appendOutcomeDropped {
		t.Fatalf("expected appendOutcomeDropped for duplicate poll name, got %v", outcome)
	}
	if got := len(n.SnapshotChain()); got != 1 {
		t.Fatalf("expected dropped block to leave chain length at 1, got %d", got)
	}
}

func TestTryAppendMinedRetriesOnLostRace(t *testing.T) {
	id, err := identity.Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	peerID, _ := id.PeerID()
	n := testNode(t, peerID)

	tx := signedTx(t, id, chain.CreatePoll{PollID: "p1", PollName: "color", Options: []string{"red"}})
	genesis := mineTestBlock(t, 0, []chain.Transaction{tx}, chain.GenesisPrevHash)
	n.chain = chain.Chain{genesis}

	// A block mined against a now-stale snapshot (id 0 again) should be
	// rejected as a transient race rather than applied or dropped. It
	// carries a vote for the existing poll, so neither permanent rule
	// (duplicate poll name, vote for an unknown poll) applies.
	vote := signedTx(t, id, chain.Vote{PollID: "p1", Option: "red"})
	stale := mineTestBlock(t, 0, []chain.Transaction{vote}, chain.GenesisPrevHash)
	if outcome := n.tryAppendMined(stale); outcome != appendOutcomeRetry {
		t.Fatalf("expected appendOutcomeRetry, got %v", outcome)
	}
}

func TestAdoptIfLongerRequeuesLostOwnTransactions(t *testing.T) {
	id, err := identity.Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	peerID, _ := id.PeerID()
	n := testNode(t, peerID)

	create := signedTx(t, id, chain.CreatePoll{PollID: "p1", PollName: "color", Options: []string{"red", "blue"}})
	genesis := mineTestBlock(t, 0, []chain.Transaction{create}, chain.GenesisPrevHash)

	ownVote := signedTx(t, id, chain.Vote{PollID: "p1", Option: "red"})
	localNext := mineTestBlock(t, 1, []chain.Transaction{ownVote}, genesis.Hash)

	n.chain = chain.Chain{genesis, localNext}

	otherID, err := identity.Generate()
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	otherVote := signedTx(t, otherID, chain.Vote{PollID: "p1", Option: "blue"})
	remoteNext := mineTestBlock(t, 1, []chain.Transaction{otherVote}, genesis.Hash)
	remoteNext2 := mineTestBlock(t, 2, nil, remoteNext.Hash)

	remote := chain.Chain{genesis, remoteNext, remoteNext2}

	n.adoptIfLonger(remote)

	got := n.SnapshotChain()
	if len(got) != 3 || got[1].Hash != remoteNext.Hash {
		t.Fatalf("expected remote chain to be adopted, got %+v", got)
	}

	pending, ok := n.popPending()
	if !ok || pending.Data.(chain.Vote).PollID != "p1" {
		t.Fatalf("expected the dropped own vote to be requeued, got %+v ok=%v", pending, ok)
	}
}
