package peernode

import (
	"time"

	"github.com/xytuang/pollchain/chain"
)

// receiveLoop is the receive-processor activity of spec.md §4.4: it
// drains inbound blocks in arrival order and applies the transition
// table that decides whether each one is stale and dropped, fails
// block-local validity and is discarded, extends the chain directly, or
// is valid but doesn't link and triggers fork resolution.
func (n *Node) receiveLoop() {
	defer n.wg.Done()

	for {
		if n.isShuttingDown() {
			return
		}

		item, ok := n.popInbound()
		if !ok {
			time.Sleep(PollDelay)
			continue
		}

		n.processInbound(item)
	}
}

func (n *Node) popInbound() (inboundBlock, bool) {
	n.rcvBufferLock.Lock()
	defer n.rcvBufferLock.Unlock()

	if len(n.rcvBuffer) == 0 {
		return inboundBlock{}, false
	}

	item := n.rcvBuffer[0]
	n.rcvBuffer = n.rcvBuffer[1:]
	return item, true
}

func (n *Node) processInbound(item inboundBlock) {
	n.chainLock.Lock()
	next := n.chain.NextID()

	if item.block.ID < next {
		n.chainLock.Unlock()
		return
	}

	if !item.block.IsValid(n.difficulty) {
		n.chainLock.Unlock()
		n.logger.Printf("discarding inbound block %d: fails block-local validity", item.block.ID)
		return
	}

	if item.block.ID == next && chain.CanAppend(item.block, n.chain, n.difficulty) {
		n.chain = append(n.chain, item.block)
		n.chainLock.Unlock()
		return
	}

	n.chainLock.Unlock()

	n.state.set(StateWaitingForChain)
	n.resolveFork(item)
	n.state.set(StateMining)
}
