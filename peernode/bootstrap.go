package peernode

import (
	"fmt"
	"time"

	"github.com/xytuang/pollchain/chain"
	"github.com/xytuang/pollchain/trackerclient"
	"github.com/xytuang/pollchain/wire"
)

// dialTimeout bounds the initial connection to the directory.
const dialTimeout = 5 * time.Second

// Start bootstraps the peer per spec.md §4.7: it joins the directory,
// learns the currently active peer set, adopts the longest valid chain
// any of them will hand over, binds its own listening socket, and
// starts the acceptor, receive-processor and miner activities.
func (n *Node) Start() error {
	client, err := trackerclient.Dial(n.dirAddr, dialTimeout)
	if err != nil {
		return fmt.Errorf("bootstrap: dialing directory: %w", err)
	}
	n.tracker = client

	peers, err := client.Join(n.port, n.peerID)
	if err != nil {
		return fmt.Errorf("bootstrap: joining directory: %w", err)
	}

	for _, p := range peers {
		n.addKnownPeer(p.IP+":"+itoaPort(p.Port), PeerInfo{IP: p.IP, Port: p.Port})
	}

	n.adoptBestAvailableChain(peers)

	if err := n.listen(); err != nil {
		return err
	}

	n.state.set(StateMining)

	n.wg.Add(3)
	go n.acceptLoop()
	go n.receiveLoop()
	go n.mineLoop()

	return nil
}

// adoptBestAvailableChain asks every known peer for its chain and keeps
// the longest one that validates, matching the "join mid-network"
// behavior described in spec.md §4.7. It is not an error for no peer to
// answer: a first peer on an empty network just starts from nothing.
func (n *Node) adoptBestAvailableChain(peers []wire.PeerAddr) {
	var best chain.Chain

	for _, p := range peers {
		remote, err := fetchRemoteChain(p.IP, p.Port)
		if err != nil {
			n.logger.Printf("bootstrap: could not fetch chain from %s:%d: %v", p.IP, p.Port, err)
			continue
		}
		if !chain.IsFullyValid(remote, n.difficulty) {
			continue
		}
		if len(remote) > len(best) {
			best = remote
		}
	}

	if best != nil {
		n.chainLock.Lock()
		n.chain = best
		n.chainLock.Unlock()
	}
}

func itoaPort(p int) string {
	return fmt.Sprintf("%d", p)
}
