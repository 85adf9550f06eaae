// Package peernode implements the peer: the chain/pending-queue owner
// that runs the acceptor, receive-processor, miner and bootstrap
// activities described in spec.md §4.4, and exposes the thin
// submit/snapshot/shutdown interface consumed by the application layer
// (spec.md §6).
package peernode

import (
	"fmt"
	"log"
	"net"
	"os"
	"sync"
	"time"

	"github.com/xytuang/pollchain/chain"
	"github.com/xytuang/pollchain/identity"
	"github.com/xytuang/pollchain/trackerclient"
)

// MineBatchSize is K from spec.md §4.4: the number of nonces attempted
// per outer mining pass before the block timestamp is refreshed and the
// chain head is re-checked.
const MineBatchSize = 100

// MiningPassDelay is the pause between mining passes (spec.md §5).
const MiningPassDelay = 100 * time.Millisecond

// PollDelay is the yield used when the receive buffer or pending queue
// is empty (spec.md §5).
const PollDelay = time.Millisecond

// AcceptTimeout bounds how long the acceptor blocks in Accept before
// re-checking the shutdown flag (spec.md §5).
const AcceptTimeout = time.Second

// JoinTimeout bounds how long Shutdown waits, in total, for the
// activities to stop.
const JoinTimeout = 3 * time.Second

const DefaultDifficulty = 4

// PeerInfo is everything the node remembers about another peer it has
// exchanged a listening address with.
type PeerInfo struct {
	IP   string
	Port int
}

func (p PeerInfo) Addr() string {
	return fmt.Sprintf("%s:%d", p.IP, p.Port)
}

type inboundBlock struct {
	block    chain.Block
	sourceIP string
}

// Node owns the chain, the pending-transaction queue and a peer state
// variable, and runs the four cooperating activities of spec.md §4.4.
type Node struct {
	id       identity.Identity
	peerID   string
	ip       string
	port     int
	dirAddr  string
	tracker  *trackerclient.Client
	logger   *log.Logger
	logFile  *os.File
	cfg      Config

	difficulty int

	chainLock sync.Mutex
	chain     chain.Chain

	rcvBufferLock sync.Mutex
	rcvBuffer     []inboundBlock

	txnLock sync.Mutex
	pending []chain.Transaction

	state stateHolder

	peersLock  sync.Mutex
	knownPeers map[string]PeerInfo

	sendLock sync.Mutex

	counterLock sync.Mutex
	minedCount  int

	listener net.Listener

	shutdownCh chan struct{}
	shutdownMu sync.Mutex
	wg         sync.WaitGroup
}

// Options configures a new Node.
type Options struct {
	IP            string
	Port          int
	DirectoryHost string
	DirectoryPort int
	Difficulty    int
	Config        Config
}

// New creates a Node with a fresh RSA identity and opens its per-process
// plaintext log file "<port>_log.txt" (spec.md §6).
func New(opts Options) (*Node, error) {
	id, err := identity.Generate()
	if err != nil {
		return nil, err
	}

	peerID, err := id.PeerID()
	if err != nil {
		return nil, err
	}

	difficulty := opts.Difficulty
	if difficulty <= 0 {
		difficulty = DefaultDifficulty
	}

	logPath := fmt.Sprintf("%d_log.txt", opts.Port)
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", logPath, err)
	}

	logger := log.New(logFile, fmt.Sprintf("[peer:%d] ", opts.Port), log.LstdFlags)

	return &Node{
		id:         id,
		peerID:     peerID,
		ip:         opts.IP,
		port:       opts.Port,
		dirAddr:    fmt.Sprintf("%s:%d", opts.DirectoryHost, opts.DirectoryPort),
		logger:     logger,
		logFile:    logFile,
		cfg:        opts.Config,
		difficulty: difficulty,
		knownPeers: make(map[string]PeerInfo),
		shutdownCh: make(chan struct{}),
	}, nil
}

// PeerID returns this peer's stable network identifier.
func (n *Node) PeerID() string {
	return n.peerID
}

// State reports the peer's current lifecycle state.
func (n *Node) State() State {
	return n.state.get()
}

func (n *Node) isShuttingDown() bool {
	select {
	case <-n.shutdownCh:
		return true
	default:
		return false
	}
}

// SnapshotChain returns a shallow copy of the chain, safe for the caller
// to range over without holding any of Node's locks (spec.md §5, §6).
func (n *Node) SnapshotChain() chain.Chain {
	n.chainLock.Lock()
	defer n.chainLock.Unlock()

	out := make(chain.Chain, len(n.chain))
	copy(out, n.chain)
	return out
}

// SubmitTransaction enqueues data for mining under the identity of this
// peer (spec.md §6). The transaction is left unsigned and unstamped: the
// miner stamps it with the time it actually starts working on it and
// signs it then, so a transaction that sits in the queue through a fork
// and is re-queued gets a fresh timestamp and signature each time.
func (n *Node) SubmitTransaction(data chain.Payload) {
	tx := chain.Transaction{Sender: n.peerID, Data: data}

	n.txnLock.Lock()
	n.pending = append(n.pending, tx)
	n.txnLock.Unlock()
}

func (n *Node) popPending() (chain.Transaction, bool) {
	n.txnLock.Lock()
	defer n.txnLock.Unlock()

	if len(n.pending) == 0 {
		return chain.Transaction{}, false
	}

	tx := n.pending[0]
	n.pending = n.pending[1:]
	return tx, true
}

func (n *Node) pushFrontPending(tx chain.Transaction) {
	n.txnLock.Lock()
	defer n.txnLock.Unlock()
	n.pending = append([]chain.Transaction{tx}, n.pending...)
}

// pushFrontPendingMany restores multiple dropped transactions to the
// front of the queue in oldest-first order: txns is expected already
// oldest-first, so pushing it as a block preserves that order ahead of
// whatever was already queued.
func (n *Node) pushFrontPendingMany(txns []chain.Transaction) {
	if len(txns) == 0 {
		return
	}

	n.txnLock.Lock()
	defer n.txnLock.Unlock()
	n.pending = append(append([]chain.Transaction{}, txns...), n.pending...)
}

func (n *Node) addKnownPeer(peerAddr string, info PeerInfo) {
	n.peersLock.Lock()
	defer n.peersLock.Unlock()
	n.knownPeers[peerAddr] = info
}

func (n *Node) snapshotKnownPeers() []PeerInfo {
	n.peersLock.Lock()
	defer n.peersLock.Unlock()

	out := make([]PeerInfo, 0, len(n.knownPeers))
	for _, p := range n.knownPeers {
		out = append(out, p)
	}
	return out
}

// Difficulty returns the network difficulty this node validates against.
func (n *Node) Difficulty() int {
	return n.difficulty
}
