package peernode

import (
	"time"

	"github.com/davecgh/go-spew/spew"

	"github.com/xytuang/pollchain/chain"
	"github.com/xytuang/pollchain/wire"
)

// mineLoop is the miner activity of spec.md §4.4: it repeatedly takes
// the oldest pending transaction, searches for a nonce that satisfies
// the difficulty target, and either appends the resulting block to the
// chain or, if a competing block won the race first, requeues the
// transaction with a fresh timestamp and signature.
func (n *Node) mineLoop() {
	defer n.wg.Done()

	for {
		if n.isShuttingDown() {
			return
		}

		tx, ok := n.popPending()
		if !ok {
			n.state.set(StateIdle)
			time.Sleep(PollDelay)
			continue
		}

		tx.Timestamp = chain.NowTimestamp()
		if err := tx.Sign(n.id.Private); err != nil {
			n.logger.Printf("signing pending transaction: %v", err)
			continue
		}

		n.state.set(StateMining)
		n.mineOne(tx)
	}
}

// mineOne searches for a valid nonce for a block carrying tx, restarting
// from a fresh timestamp and chain-head snapshot whenever the chain
// advances underneath it. It returns once the block is appended (and
// broadcast) or the transaction has been requeued for a later attempt.
func (n *Node) mineOne(tx chain.Transaction) {
	for {
		if n.isShuttingDown() {
			n.pushFrontPending(tx)
			return
		}

		snapshot := n.SnapshotChain()
		mineID := snapshot.NextID()
		prevHash := ""
		if head, ok := snapshot.Head(); ok {
			prevHash = head.Hash
		} else {
			prevHash = chain.GenesisPrevHash
		}

		timestamp := chain.NowTimestamp()

		for nonce := uint64(0); nonce < MineBatchSize; nonce++ {
			if n.isShuttingDown() {
				n.pushFrontPending(tx)
				return
			}

			if n.chainHeadChanged(mineID) {
				n.pushFrontPending(tx)
				return
			}

			candidate := chain.NewBlock(mineID, []chain.Transaction{tx}, prevHash, nonce, timestamp)
			hash, err := candidate.ComputeHash()
			if err != nil {
				continue
			}
			candidate.Hash = hash

			if chain.MeetsDifficulty(hash, n.difficulty) {
				switch n.tryAppendMined(candidate) {
				case appendOutcomeApplied, appendOutcomeDropped:
					return
				case appendOutcomeRetry:
					// A concurrent append won the race since the last
					// head check; re-snapshot and mine again.
				}
				break
			}
		}

		time.Sleep(MiningPassDelay)
	}
}

func (n *Node) chainHeadChanged(mineID int64) bool {
	n.chainLock.Lock()
	defer n.chainLock.Unlock()
	return n.chain.NextID() != mineID
}

// appendOutcome distinguishes the three ways a mined block's admission
// can go: applied (broadcast follows), permanently dropped (no amount
// of retrying will fix it), or a transient loss that's worth re-mining.
type appendOutcome int

const (
	appendOutcomeApplied appendOutcome = iota
	appendOutcomeDropped
	appendOutcomeRetry
)

// tryAppendMined admits a freshly mined block to the local chain. A
// vote for a poll this node has never seen created, or a poll creation
// that races another with the same name, is dropped outright (see
// chain.IsVoteForNonexistentPoll, chain.IsDuplicatePollCreation); any
// other CanAppend failure means a concurrent append won a timing race,
// and the caller should re-snapshot and mine again.
func (n *Node) tryAppendMined(b chain.Block) appendOutcome {
	n.chainLock.Lock()

	if chain.IsVoteForNonexistentPoll(b, n.chain) {
		n.chainLock.Unlock()
		n.logger.Printf("dropping mined vote for unknown poll")
		return appendOutcomeDropped
	}

	if chain.IsDuplicatePollCreation(b, n.chain) {
		n.chainLock.Unlock()
		n.logger.Printf("dropping mined poll creation: name already taken")
		return appendOutcomeDropped
	}

	if !chain.CanAppend(b, n.chain, n.difficulty) {
		n.chainLock.Unlock()
		return appendOutcomeRetry
	}

	n.chain = append(n.chain, b)
	n.chainLock.Unlock()

	n.logger.Printf("mined block %d, nonce %d", b.ID, b.Nonce)
	n.logger.Println(spew.Sdump(b))

	n.afterMined(b)
	return appendOutcomeApplied
}

func (n *Node) afterMined(b chain.Block) {
	seq := n.nextMineSeq()

	if !n.cfg.ShouldBroadcast(seq) {
		return
	}

	out := b
	if n.cfg.ShouldTamper(seq) {
		if n.cfg.TamperType == TamperChain {
			n.corruptHistoricalBlock()
		} else {
			out = tamperForBroadcast(b, n.cfg.TamperType)
		}
	}

	n.broadcast(out, wire.TagBroadcast)
}
