// Package trackerclient is the peer-side client for the directory
// (tracker) service: it registers the peer, lists active peers, and
// resolves a single peer identity to its listening port. All traffic on
// the tracker connection is serialized through a single mutex, making
// every exchange effectively request/response (spec.md §4.5, §5).
package trackerclient

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/xytuang/pollchain/wire"
)

// Client owns the single long-lived connection a peer keeps open to its
// directory for the lifetime of the process.
type Client struct {
	mu   sync.Mutex
	conn net.Conn
	f    *wire.FramedConn
}

// Dial connects to the directory at addr and wraps the connection for
// framed I/O. The connection is not registered yet — call Join.
func Dial(addr string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return nil, fmt.Errorf("dialing directory at %s: %w", addr, err)
	}

	return &Client{conn: conn, f: wire.NewFramedConn(conn)}, nil
}

// Join registers this peer under peerID, advertising listeningPort, and
// returns the initial peer list the directory hands back in the same
// session (spec.md §4.5 step 1, §4.7).
func (c *Client) Join(listeningPort int, peerID string) ([]wire.PeerAddr, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := wire.SendJoin(c.f, listeningPort); err != nil {
		return nil, err
	}
	if err := wire.SendID(c.f, peerID); err != nil {
		return nil, err
	}

	header, err := wire.ReadHeader(c.f)
	if err != nil {
		return nil, err
	}
	if header.Verb != wire.VerbPeers {
		return nil, fmt.Errorf("trackerclient: expected PEERS after JOIN, got %q", header.Verb)
	}

	return wire.ReadPeers(c.f)
}

// List asks the directory for the peer set excluding peerID.
func (c *Client) List(peerID string) ([]wire.PeerAddr, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := wire.SendList(c.f, peerID); err != nil {
		return nil, err
	}

	header, err := wire.ReadHeader(c.f)
	if err != nil {
		return nil, err
	}
	if header.Verb != wire.VerbPeers {
		return nil, fmt.Errorf("trackerclient: expected PEERS response, got %q", header.Verb)
	}

	return wire.ReadPeers(c.f)
}

// GetPeer resolves peerID to its listening port, or -1 if the directory
// has no such peer connected.
func (c *Client) GetPeer(peerID string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := wire.SendGetPeer(c.f, peerID); err != nil {
		return -1, err
	}

	header, err := wire.ReadHeader(c.f)
	if err != nil {
		return -1, err
	}
	if header.Verb != wire.VerbPeerPort {
		return -1, fmt.Errorf("trackerclient: expected PEER-PORT response, got %q", header.Verb)
	}

	body, err := c.f.ReadLine()
	if err != nil {
		return -1, err
	}

	var port int
	if _, err := fmt.Sscanf(string(body), "%d", &port); err != nil {
		return -1, fmt.Errorf("trackerclient: malformed PEER-PORT body %q: %w", body, err)
	}

	return port, nil
}

// Leave tells the directory this peer is departing and closes the
// connection. Errors sending LEAVE are swallowed (spec.md §7: shutdown
// is best-effort), but the close is always attempted.
func (c *Client) Leave() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	_ = wire.SendLeave(c.f)

	return c.conn.Close()
}
