// Package oeserver is the order-entry accept loop: it owns
// the shared LimitOrderBook and Account Registry, accepts TCP connections,
// and serializes every session's request handling onto one dispatch
// goroutine so the book is never touched by two goroutines at once. Each
// connection gets its own reader goroutine that only parses frames and
// forwards them; the single dispatch goroutine behind a channel renders
// the single-reactor concurrency model as cooperating goroutines plus a
// channel, instead of literal callback scheduling.
package oeserver

import (
	"io"
	"net"

	"github.com/yanun0323/logs"

	"venue/internal/oe"
	"venue/internal/orderbook"
)

// request is one decoded frame waiting to be applied to the book, or a
// disconnect notice for a session whose peer went away.
type request struct {
	session    *oe.Session
	frame      []byte
	disconnect bool
}

// Server accepts order-entry connections and serializes their effect on
// a single Book and Registry.
type Server struct {
	Book     *orderbook.LimitOrderBook
	Registry *orderbook.Registry

	listener net.Listener
	inbox    chan request
	done     chan struct{}
}

// NewServer binds addr and prepares (but does not yet run) the dispatch
// loop and accept loop.
func NewServer(addr string, book *orderbook.LimitOrderBook, registry *orderbook.Registry) (*Server, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}
	return &Server{
		Book:     book,
		Registry: registry,
		listener: ln,
		inbox:    make(chan request, 256),
		done:     make(chan struct{}),
	}, nil
}

// Addr returns the address the server is listening on.
func (s *Server) Addr() net.Addr { return s.listener.Addr() }

// Run starts the dispatch goroutine and then accepts connections until
// the listener is closed. It blocks the calling goroutine.
func (s *Server) Run() error {
	go s.dispatchLoop()
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			close(s.done)
			return err
		}
		session := oe.NewSession(conn)
		go s.readPump(session)
	}
}

// Close stops accepting new connections.
func (s *Server) Close() error {
	return s.listener.Close()
}

// dispatchLoop is the single goroutine allowed to call Book or Registry
// methods. Every session's reader forwards decoded frames here instead
// of acting on the book directly.
func (s *Server) dispatchLoop() {
	for req := range s.inbox {
		if req.disconnect {
			req.session.Disconnect()
			_ = req.session.Conn().Close()
			continue
		}
		if req.session.Dispatch(s.Book, s.Registry, req.frame) {
			_ = req.session.Conn().Close()
		}
	}
}

// readPump reads fixed 40-byte frames off one connection and forwards
// them to the dispatch loop until the peer disconnects or a short read
// occurs. Any partial read is a TransportFailure: the connection is
// closed and the session is logged out without sending anything further.
func (s *Server) readPump(session *oe.Session) {
	buf := make([]byte, oe.FrameSize)
	for {
		if _, err := io.ReadFull(session.Conn(), buf); err != nil {
			if err != io.EOF {
				logs.Errorf("oeserver: read from %s failed: %v", session.Conn().RemoteAddr(), err)
			}
			break
		}
		frame := make([]byte, oe.FrameSize)
		copy(frame, buf)
		s.inbox <- request{session: session, frame: frame}
	}
	s.inbox <- request{session: session, disconnect: true}
}
