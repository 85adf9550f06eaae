package peernode

import "github.com/xytuang/pollchain/chain"

// nextMineSeq increments and returns the count of blocks this node has
// successfully mined, used to decide broadcast_freq/tamper_freq hits.
func (n *Node) nextMineSeq() int {
	n.counterLock.Lock()
	defer n.counterLock.Unlock()
	n.minedCount++
	return n.minedCount
}

// tamperForBroadcast returns the copy of b that should actually go out
// over the wire for tamper types hash/prev_hash/txn_data: the original
// mined block stays on this node's own chain untouched, and only the
// outgoing message lies. "chain" mode is handled separately by
// corruptHistoricalBlock, which mutates local state instead.
func tamperForBroadcast(b chain.Block, kind TamperType) chain.Block {
	switch kind {
	case TamperHash:
		b.Hash = corruptHash(b.Hash)
	case TamperPrevHash:
		b.PrevHash = corruptHash(b.PrevHash)
	case TamperTxnData:
		if len(b.Txns) > 0 {
			// b.Txns shares its backing array with the block already
			// appended to n.chain, so the broadcast copy needs its own
			// slice and its own copy of the transaction being mutated —
			// otherwise this would corrupt the node's own chain, not
			// just the outgoing message.
			txns := make([]chain.Transaction, len(b.Txns))
			copy(txns, b.Txns)

			tx := txns[0]
			if cp, ok := tx.Data.(chain.CreatePoll); ok {
				cp.PollName = cp.PollName + "-tampered"
				tx.Data = cp
			} else if v, ok := tx.Data.(chain.Vote); ok {
				v.Option = v.Option + "-tampered"
				tx.Data = v
			}
			txns[0] = tx

			b.Txns = txns
		}
	}
	return b
}

func corruptHash(h string) string {
	if h == "" {
		return "f"
	}
	if h[0] == '0' {
		return "f" + h[1:]
	}
	return "0" + h[1:]
}

// corruptHistoricalBlock flips the leading byte of an already-committed
// block's stored hash, permanently invalidating this node's own chain
// from that point on. tamper_type "chain" simulates a participant whose
// own ledger has silently rotted, rather than one that only lies to
// others about a single broadcast.
func (n *Node) corruptHistoricalBlock() {
	n.chainLock.Lock()
	defer n.chainLock.Unlock()

	if len(n.chain) == 0 {
		return
	}

	idx := len(n.chain) / 2
	n.chain[idx].Hash = corruptHash(n.chain[idx].Hash)
}
