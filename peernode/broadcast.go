package peernode

import (
	"net"
	"time"

	"github.com/xytuang/pollchain/chain"
	"github.com/xytuang/pollchain/wire"
)

// broadcastTimeout bounds each per-peer dial+send during a broadcast, so
// one unreachable peer can't stall the fan-out.
const broadcastTimeout = 2 * time.Second

// broadcast sends b to every known peer, best-effort: a peer that fails
// to dial or accept the block is logged and skipped, never retried
// (spec.md §4.4). sendLock serializes outbound broadcasts so two mined
// blocks can never interleave their frames on some shared resource; each
// peer still gets its own short-lived connection.
func (n *Node) broadcast(b chain.Block, tag wire.BlockTag) {
	n.sendLock.Lock()
	defer n.sendLock.Unlock()

	for _, peer := range n.snapshotKnownPeers() {
		n.sendBlockTo(peer.Addr(), b, tag)
	}
}

func (n *Node) sendBlockTo(addr string, b chain.Block, tag wire.BlockTag) {
	conn, err := net.DialTimeout("tcp", addr, broadcastTimeout)
	if err != nil {
		n.logger.Printf("broadcast: could not reach %s: %v", addr, err)
		return
	}
	defer conn.Close()

	f := wire.NewFramedConn(conn)
	if err := wire.SendBlock(f, b, tag); err != nil {
		n.logger.Printf("broadcast: send to %s failed: %v", addr, err)
	}
}
