// Package statusapi is an optional, off-by-default HTTP introspection
// surface for a running peer: read-only JSON views of its state, chain
// length and poll tallies. It is never part of the peer-to-peer wire
// protocol (that is raw framed TCP, see package wire) — it exists only
// so an operator can point a browser or curl at a running peer, in the
// spirit of the echo-based HTTP routes the teacher repo used for its
// own (HTTP-based) peer surface.
package statusapi

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/xytuang/pollchain/app"
	"github.com/xytuang/pollchain/peernode"
)

// Server is the status HTTP surface for a single running peer.
type Server struct {
	echo *echo.Echo
	node *peernode.Node
}

// New builds a Server bound to node. It is not listening until Start
// is called.
func New(node *peernode.Node) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{echo: e, node: node}

	e.GET("/status", s.handleStatus)
	e.GET("/chain", s.handleChain)
	e.GET("/polls", s.handlePolls)

	return s
}

type statusResponse struct {
	PeerID     string `json:"peer_id"`
	State      string `json:"state"`
	ChainLen   int    `json:"chain_length"`
	Difficulty int    `json:"difficulty"`
}

func (s *Server) handleStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, statusResponse{
		PeerID:     s.node.PeerID(),
		State:      s.node.State().String(),
		ChainLen:   len(s.node.SnapshotChain()),
		Difficulty: s.node.Difficulty(),
	})
}

func (s *Server) handleChain(c echo.Context) error {
	return c.JSON(http.StatusOK, s.node.SnapshotChain())
}

func (s *Server) handlePolls(c echo.Context) error {
	return c.JSON(http.StatusOK, app.Tally(s.node.SnapshotChain()))
}

// Start serves plain HTTP on addr. It blocks until the server stops.
func (s *Server) Start(addr string) error {
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// StartTLS serves HTTPS using certmagic-managed certificates for domain,
// issued through Let's Encrypt under email. addr is not used: certmagic
// binds the standard HTTPS port. It blocks until the server stops.
func (s *Server) StartTLS(addr, domain, email string) error {
	return startManagedTLS(s.echo, addr, domain, email)
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
