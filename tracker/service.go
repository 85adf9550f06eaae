// Package tracker implements the directory service: a single process
// that maps peer identities to network addresses for every currently
// connected peer. It holds no chain state and is not authoritative about
// liveness beyond "this session is still connected" (spec.md §4.5).
package tracker

import (
	"fmt"
	"log"
	"net"
	"sync"

	"github.com/xytuang/pollchain/wire"
)

type entry struct {
	addr string
	port int
}

// Service is the directory's in-memory peer table plus its listener.
type Service struct {
	mu    sync.Mutex
	table map[string]entry

	listener net.Listener
	logger   *log.Logger
}

// New constructs a directory service bound to no socket yet.
func New(logger *log.Logger) *Service {
	if logger == nil {
		logger = log.Default()
	}
	return &Service{table: make(map[string]entry), logger: logger}
}

// Addr returns the address the service is currently bound to, or "" if
// Run hasn't bound a listener yet. Mainly useful in tests that bind to
// port 0 and need to learn which port the OS actually picked.
func (s *Service) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run binds port and serves connections until done is closed.
// Every accepted connection is handled in its own goroutine
// (process_peer_requests in original_source/tracker.py).
func (s *Service) Run(done <-chan struct{}, port int) error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", port))
	if err != nil {
		return fmt.Errorf("directory: bind failed on port %d: %w", port, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	s.logger.Printf("directory listening on port %d", port)

	go func() {
		<-done
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-done:
				return nil
			default:
				s.logger.Printf("accept error: %v", err)
				continue
			}
		}

		go s.handleSession(conn)
	}
}

// handleSession implements the per-connection lifecycle of spec.md
// §4.5: read JOIN/ID, reply with the current peer list, then loop on
// LIST / GET-PEER / LEAVE until the peer disconnects or leaves.
func (s *Service) handleSession(conn net.Conn) {
	defer conn.Close()

	f := wire.NewFramedConn(conn)
	ip := hostOf(conn.RemoteAddr())

	header, err := wire.ReadHeader(f)
	if err != nil {
		return
	}
	if header.Verb != wire.VerbJoin {
		s.logger.Printf("protocol error from %s: expected JOIN, got %q", ip, header.Verb)
		return
	}

	portLine, err := f.ReadLine()
	if err != nil {
		return
	}

	var port int
	if _, err := fmt.Sscanf(string(portLine), "%d", &port); err != nil {
		s.logger.Printf("malformed JOIN port from %s: %v", ip, err)
		return
	}

	idHeader, err := wire.ReadHeader(f)
	if err != nil {
		return
	}
	if idHeader.Verb != wire.VerbID || len(idHeader.Args) != 1 {
		s.logger.Printf("protocol error from %s: expected ID <len>, got %q", ip, idHeader.Verb)
		return
	}

	var idLen int
	if _, err := fmt.Sscanf(idHeader.Args[0], "%d", &idLen); err != nil {
		return
	}

	idBytes, err := f.ReadExact(idLen)
	if err != nil {
		return
	}
	peerID := string(idBytes)

	s.register(peerID, ip, port)
	defer s.unregister(peerID)

	if err := wire.SendPeers(f, s.peersExcluding(peerID)); err != nil {
		return
	}

	for {
		header, err := wire.ReadHeader(f)
		if err != nil {
			return
		}

		switch header.Verb {
		case wire.VerbLeave:
			return

		case wire.VerbList:
			if len(header.Args) != 1 {
				continue
			}
			n, err := atoiSafe(header.Args[0])
			if err != nil {
				continue
			}
			requesterID, err := f.ReadExact(n)
			if err != nil {
				return
			}
			if err := wire.SendPeers(f, s.peersExcluding(string(requesterID))); err != nil {
				return
			}

		case wire.VerbGetPeer:
			if len(header.Args) != 1 {
				continue
			}
			n, err := atoiSafe(header.Args[0])
			if err != nil {
				continue
			}
			targetID, err := f.ReadExact(n)
			if err != nil {
				return
			}
			if err := wire.SendPeerPort(f, s.portOf(string(targetID))); err != nil {
				return
			}

		default:
			s.logger.Printf("unrecognized request %q from %s", header.Verb, ip)
		}
	}
}

func (s *Service) register(peerID, ip string, port int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.table[peerID] = entry{addr: ip, port: port}
}

func (s *Service) unregister(peerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.table, peerID)
}

func (s *Service) peersExcluding(peerID string) []wire.PeerAddr {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]wire.PeerAddr, 0, len(s.table))
	for id, e := range s.table {
		if id == peerID {
			continue
		}
		out = append(out, wire.PeerAddr{IP: e.addr, Port: e.port})
	}
	return out
}

func (s *Service) portOf(peerID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.table[peerID]
	if !ok {
		return -1
	}
	return e.port
}

func hostOf(addr net.Addr) string {
	host, _, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	return host
}

func atoiSafe(s string) (int, error) {
	var n int
	_, err := fmt.Sscanf(s, "%d", &n)
	return n, err
}
