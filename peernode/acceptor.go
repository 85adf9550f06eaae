package peernode

import (
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/xytuang/pollchain/chain"
	"github.com/xytuang/pollchain/wire"
)

// listen binds the peer's own listening socket. Called once before the
// acceptor activity starts.
func (n *Node) listen() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", n.port))
	if err != nil {
		return fmt.Errorf("peer: bind failed on port %d: %w", n.port, err)
	}
	n.listener = ln
	return nil
}

// acceptLoop is the acceptor activity of spec.md §4.4: it accepts
// inbound connections, each good for exactly one request, and returns
// once shutdown is signalled. A 1s accept deadline lets it notice
// shutdown promptly without spinning.
func (n *Node) acceptLoop() {
	defer n.wg.Done()

	tcpLn, _ := n.listener.(*net.TCPListener)

	for {
		if n.isShuttingDown() {
			return
		}

		if tcpLn != nil {
			_ = tcpLn.SetDeadline(time.Now().Add(AcceptTimeout))
		}

		conn, err := n.listener.Accept()
		if err != nil {
			if isTimeout(err) {
				continue
			}
			if n.isShuttingDown() {
				return
			}
			n.logger.Printf("accept error: %v", err)
			continue
		}

		go n.handleConn(conn)
	}
}

func (n *Node) handleConn(conn net.Conn) {
	defer conn.Close()

	f := wire.NewFramedConn(conn)
	ip := hostOfConn(conn)

	header, err := wire.ReadHeader(f)
	if err != nil {
		return
	}

	switch header.Verb {
	case wire.VerbBlock:
		n.handleIncomingBlock(f, header, ip)
	case wire.VerbGetChain:
		n.handleGetChain(f)
	default:
		n.logger.Printf("unrecognized request %q from %s", header.Verb, ip)
	}
}

func (n *Node) handleIncomingBlock(f *wire.FramedConn, header wire.ParsedHeader, ip string) {
	if len(header.Args) != 2 {
		n.logger.Printf("malformed BLOCK header from %s: %v", ip, header.Args)
		return
	}

	bodyLen, err := strconv.Atoi(header.Args[0])
	if err != nil {
		return
	}

	block, err := wire.ReadBlockBody(f, bodyLen)
	if err != nil {
		n.logger.Printf("reading block body from %s: %v", ip, err)
		return
	}

	n.rcvBufferLock.Lock()
	n.rcvBuffer = append(n.rcvBuffer, inboundBlock{block: block, sourceIP: ip})
	n.rcvBufferLock.Unlock()
}

// handleGetChain serves this node's current chain to a peer that's
// resolving a fork: every block is sent as a BLOCK/sync frame, followed
// by the sentinel block (spec.md §4.4, §4.6).
func (n *Node) handleGetChain(f *wire.FramedConn) {
	snapshot := n.SnapshotChain()

	for _, b := range snapshot {
		if err := wire.SendBlock(f, b, wire.TagSync); err != nil {
			return
		}
	}

	_ = wire.SendBlock(f, chain.Sentinel(), wire.TagSync)
}

func hostOfConn(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}

func isTimeout(err error) bool {
	type timeouter interface{ Timeout() bool }
	te, ok := err.(timeouter)
	return ok && te.Timeout()
}
