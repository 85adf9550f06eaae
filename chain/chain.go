package chain

// Chain is an ordered sequence of blocks. It carries no mutex of its own
// — callers (peernode.Node) own the single chainLock guarding reads and
// writes, and a Chain value handed back by a snapshot is a shallow copy
// safe to range over without holding that lock.
type Chain []Block

// Head returns the last block on the chain and true, or the zero Block
// and false if the chain is empty.
func (c Chain) Head() (Block, bool) {
	if len(c) == 0 {
		return Block{}, false
	}
	return c[len(c)-1], true
}

// NextID is the id the next appended block must carry.
func (c Chain) NextID() int64 {
	return int64(len(c))
}

// CanAppend implements spec.md §4.3's admission predicate:
//  1. newBlock.ID must equal len(chain).
//  2. If the chain is non-empty, newBlock.PrevHash must equal the head's
//     hash; an empty chain accepts any prev_hash (genesis).
//  3. newBlock must pass block-local validity at difficulty.
//  4. newBlock must not be a poll-creation block naming a poll that
//     already has a creation block on the chain.
func CanAppend(newBlock Block, c Chain, difficulty int) bool {
	if newBlock.ID != c.NextID() {
		return false
	}

	if head, ok := c.Head(); ok {
		if newBlock.PrevHash != head.Hash {
			return false
		}
	}

	if !newBlock.IsValid(difficulty) {
		return false
	}

	if name, isCreate := firstTxPollCreation(newBlock); isCreate {
		if pollNameExists(c, name) {
			return false
		}
	}

	return true
}

// IsVoteForNonexistentPoll reports whether newBlock's first transaction
// is a vote whose poll_id has no matching create_poll transaction
// anywhere on c. Per spec.md §4.3 and the Open Question in §9(ii), this
// predicate is applied only by the miner at local-append time (see
// peernode.Node.tryAppendMined); it is deliberately not part of
// CanAppend, so a peer still replicates a semantically-bad vote block it
// receives from another peer.
func IsVoteForNonexistentPoll(newBlock Block, c Chain) bool {
	if len(newBlock.Txns) == 0 {
		return false
	}

	vote, ok := newBlock.Txns[0].Data.(Vote)
	if !ok {
		return false
	}

	for _, block := range c {
		if len(block.Txns) == 0 {
			continue
		}
		if create, ok := block.Txns[0].Data.(CreatePoll); ok {
			if create.PollID == vote.PollID {
				return false
			}
		}
	}

	return true
}

// IsDuplicatePollCreation reports whether newBlock creates a poll whose
// name already has a creation block somewhere on c. This is the one
// CanAppend failure mode that can never be resolved by retrying with a
// fresh nonce or timestamp: the miner uses it to tell a permanently
// losing transaction apart from one that just lost a timing race
// against a concurrently appended block.
func IsDuplicatePollCreation(newBlock Block, c Chain) bool {
	name, isCreate := firstTxPollCreation(newBlock)
	return isCreate && pollNameExists(c, name)
}

func firstTxPollCreation(b Block) (name string, ok bool) {
	if len(b.Txns) == 0 {
		return "", false
	}

	create, ok := b.Txns[0].Data.(CreatePoll)
	if !ok {
		return "", false
	}

	return create.PollName, true
}

func pollNameExists(c Chain, name string) bool {
	for _, block := range c {
		if existing, isCreate := firstTxPollCreation(block); isCreate && existing == name {
			return true
		}
	}
	return false
}

// LongestCommonPrefix returns the length of the shared prefix of a and b:
// the number of leading blocks whose id and hash match exactly (the hash
// already covers each block's prev_hash). Used by fork resolution to compute the dropped suffix of the
// local chain when a longer remote chain is adopted.
func LongestCommonPrefix(a, b Chain) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	for i := 0; i < n; i++ {
		if a[i].Hash != b[i].Hash || a[i].ID != b[i].ID {
			return i
		}
	}

	return n
}

// IsFullyValid reports whether every block in c passes block-local
// validity at difficulty and links correctly to its predecessor, i.e.
// whether c could have been built one CanAppend call at a time onto an
// empty chain.
func IsFullyValid(c Chain, difficulty int) bool {
	running := Chain{}
	for _, b := range c {
		if !CanAppend(b, running, difficulty) {
			return false
		}
		running = append(running, b)
	}
	return true
}
