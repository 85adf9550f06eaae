package peernode

import (
	"net"
	"strconv"
	"time"

	"github.com/xytuang/pollchain/chain"
	"github.com/xytuang/pollchain/wire"
)

// forkFetchTimeout bounds the dial and the whole GET-CHAIN exchange used
// to resolve a fork.
const forkFetchTimeout = 5 * time.Second

// resolveFork implements spec.md §4.4's WAITING_FOR_CHAIN handling: it
// identifies the peer that produced the block which didn't fit, fetches
// that peer's full chain, and adopts it if it is both valid and longer
// than the local chain. Any failure along the way (unresolvable
// identity, unreachable peer, an invalid or not-longer remote chain)
// just leaves the local chain as it was.
func (n *Node) resolveFork(item inboundBlock) {
	if len(item.block.Txns) == 0 {
		n.logger.Printf("fork block carries no transactions, cannot resolve sender identity")
		return
	}

	senderID := item.block.Txns[0].Sender

	port, err := n.tracker.GetPeer(senderID)
	if err != nil || port <= 0 {
		n.logger.Printf("fork: could not resolve a listening port for %s", item.sourceIP)
		return
	}

	remote, err := fetchRemoteChain(item.sourceIP, port)
	if err != nil {
		n.logger.Printf("fork: fetching chain from %s:%d failed: %v", item.sourceIP, port, err)
		return
	}

	if !chain.IsFullyValid(remote, n.difficulty) {
		n.logger.Printf("fork: remote chain from %s:%d failed validation", item.sourceIP, port)
		return
	}

	n.adoptIfLonger(remote)
}

// fetchRemoteChain dials host:port, issues GET-CHAIN, and reads blocks
// until the sentinel terminator (spec.md §4.4, §4.6).
func fetchRemoteChain(host string, port int) (chain.Chain, error) {
	conn, err := net.DialTimeout("tcp", addrOf(host, port), forkFetchTimeout)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	_ = conn.SetDeadline(time.Now().Add(forkFetchTimeout))

	f := wire.NewFramedConn(conn)
	if err := wire.SendGetChain(f); err != nil {
		return nil, err
	}

	var out chain.Chain
	for {
		header, err := wire.ReadHeader(f)
		if err != nil {
			return nil, err
		}
		if header.Verb != wire.VerbBlock || len(header.Args) != 2 {
			break
		}

		bodyLen, err := strconv.Atoi(header.Args[0])
		if err != nil {
			return nil, err
		}

		b, err := wire.ReadBlockBody(f, bodyLen)
		if err != nil {
			return nil, err
		}

		if b.IsSentinel() {
			break
		}

		out = append(out, b)
	}

	return out, nil
}

// adoptIfLonger replaces the local chain with remote if remote is
// strictly longer, re-queueing any local-only transactions that would
// otherwise be lost — oldest first, matching swap_block in
// original_source/blockchain.py.
func (n *Node) adoptIfLonger(remote chain.Chain) {
	n.chainLock.Lock()

	if len(remote) <= len(n.chain) {
		n.chainLock.Unlock()
		return
	}

	lcp := chain.LongestCommonPrefix(n.chain, remote)
	dropped := n.chain[lcp:]

	var lost []chain.Transaction
	for _, b := range dropped {
		for _, tx := range b.Txns {
			if tx.Sender == n.peerID {
				lost = append(lost, tx)
			}
		}
	}

	n.chain = append(chain.Chain{}, remote...)
	n.chainLock.Unlock()

	n.pushFrontPendingMany(lost)
}

func addrOf(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
