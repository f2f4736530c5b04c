package oe

import (
	"net"

	"github.com/yanun0323/logs"

	"venue/internal/orderbook"
	"venue/internal/sequence"
)

// State is a session's position in the authorization state machine.
type State uint8

const (
	Unauthenticated State = iota
	Authenticated
)

// Session holds the per-connection state: the TCP socket, the
// authorization state machine, the bound account (once authenticated),
// and the outbound frame sequence. Every method that touches Book or
// Registry is called from the owning Server's single dispatch goroutine
// -- see internal/oeserver -- so Session itself needs no internal
// locking.
type Session struct {
	conn  net.Conn
	state State

	account *orderbook.Account
	outSeq  *sequence.Sequencer
}

// NewSession wraps an accepted connection in an unauthenticated session.
// The outbound frame sequence starts at 0: the Sequencer is seeded one
// below zero so its first Next() wraps around to 0 rather than 1.
func NewSession(conn net.Conn) *Session {
	return &Session{conn: conn, state: Unauthenticated, outSeq: sequence.New(^uint64(0))}
}

// Conn exposes the underlying connection, e.g. for the accept loop's
// RemoteAddr logging and final Close.
func (s *Session) Conn() net.Conn { return s.conn }

func (s *Session) nextSeq() uint32 {
	return uint32(s.outSeq.Next())
}

func (s *Session) send(frame []byte) {
	if _, err := s.conn.Write(frame); err != nil {
		logs.Errorf("oe: write to %s failed: %v", s.conn.RemoteAddr(), err)
	}
}

// OnTrade implements orderbook.TradeHandler: it is called synchronously,
// from inside the dispatch goroutine's call into Book.Limit/Book.Market,
// whenever a fill lands on this session's account.
func (s *Session) OnTrade(orderID orderbook.UID, price orderbook.Price, quantity, leaves orderbook.Quantity, side orderbook.Side) {
	s.send(EncodeTradeResponse(s.nextSeq(), TradeResponse{
		OrderID:        orderID,
		Price:          price,
		Quantity:       quantity,
		LeavesQuantity: leaves,
		Side:           side,
	}))
}

// Dispatch decodes one inbound frame and applies it against book and
// registry, writing whatever response(s) the operation produces. It
// returns true when the caller should close the connection after this
// call -- an unrecognized message kind, an Order or Replace request with
// an invalid side byte, or a LogoutRequest received while
// unauthenticated, all of which are protocol violations.
func (s *Session) Dispatch(book *orderbook.LimitOrderBook, registry *orderbook.Registry, frame []byte) bool {
	hdr := DecodeHeader(frame)
	switch hdr.Kind {
	case KindLoginRequest:
		s.handleLogin(registry, DecodeLoginRequest(frame))
		return false
	case KindLogoutRequest:
		return s.handleLogout()
	case KindOrderRequest:
		req, err := DecodeOrderRequest(frame)
		if err != nil {
			return s.violation()
		}
		s.handleOrder(book, req)
		return false
	case KindCancelRequest:
		s.handleCancel(book, DecodeCancelRequest(frame))
		return false
	case KindReplaceRequest:
		req, err := DecodeReplaceRequest(frame)
		if err != nil {
			return s.violation()
		}
		s.handleReplace(book, req)
		return false
	case KindPurgeRequest:
		s.handlePurge(book)
		return false
	default:
		return s.violation()
	}
}

// violation sends the terminal LogoutResponse and reports that the
// caller must close the connection.
func (s *Session) violation() bool {
	logs.Infof("oe: protocol violation from %s", s.conn.RemoteAddr())
	s.send(EncodeLogoutResponse(s.nextSeq(), LogoutResponse{Reason: ProtocolViolation}))
	s.clearAuth()
	return true
}

func (s *Session) clearAuth() {
	if s.account != nil {
		s.account.Connected = false
		s.account.Handler = nil
	}
	s.account = nil
	s.state = Unauthenticated
}

// Disconnect is called by the server when the peer's connection drops,
// outside the normal Logout flow. It releases the account's session
// binding without writing anything back -- there is no peer left to
// write to.
func (s *Session) Disconnect() {
	s.clearAuth()
}

func (s *Session) handleLogin(registry *orderbook.Registry, req LoginRequest) {
	if s.state == Authenticated {
		s.send(EncodeLoginResponse(s.nextSeq(), LoginResponse{Status: AlreadyAuthorized}))
		return
	}
	if !registry.IsValid(req.Username, req.Password) {
		s.send(EncodeLoginResponse(s.nextSeq(), LoginResponse{Status: NotAuthorized}))
		return
	}
	acct := registry.Get(req.Username)
	if acct.Connected {
		s.send(EncodeLoginResponse(s.nextSeq(), LoginResponse{Status: SessionInUse}))
		return
	}
	acct.Connected = true
	acct.Handler = s
	s.account = acct
	s.state = Authenticated
	s.send(EncodeLoginResponse(s.nextSeq(), LoginResponse{Status: Accepted}))
}

func (s *Session) handleLogout() bool {
	if s.state != Authenticated {
		return s.violation()
	}
	s.clearAuth()
	s.send(EncodeLogoutResponse(s.nextSeq(), LogoutResponse{Reason: UserRequested}))
	return false
}

func (s *Session) handleOrder(book *orderbook.LimitOrderBook, req OrderRequest) {
	if s.state != Authenticated {
		s.send(EncodeOrderResponse(s.nextSeq(), OrderResponse{OrderID: 0, Status: Rejected}))
		return
	}
	if req.Price == 0 {
		book.Market(s.account, req.Side, req.Quantity)
		s.send(EncodeOrderResponse(s.nextSeq(), OrderResponse{OrderID: 0, Status: Accepted}))
		return
	}
	uid := book.Limit(s.account, req.Side, req.Quantity, req.Price)
	s.send(EncodeOrderResponse(s.nextSeq(), OrderResponse{OrderID: uid, Status: Accepted}))
}

func (s *Session) handleCancel(book *orderbook.LimitOrderBook, req CancelRequest) {
	if s.state != Authenticated {
		s.send(EncodeCancelResponse(s.nextSeq(), CancelResponse{OrderID: 0, Status: Rejected}))
		return
	}
	order, ok := book.Get(req.OrderID)
	if !ok || order.Account != s.account {
		s.send(EncodeCancelResponse(s.nextSeq(), CancelResponse{OrderID: req.OrderID, Status: Rejected}))
		return
	}
	_ = book.Cancel(req.OrderID)
	s.send(EncodeCancelResponse(s.nextSeq(), CancelResponse{OrderID: req.OrderID, Status: Accepted}))
}

func (s *Session) handleReplace(book *orderbook.LimitOrderBook, req ReplaceRequest) {
	if s.state != Authenticated {
		s.send(EncodeReplaceResponse(s.nextSeq(), ReplaceResponse{Status: Rejected}))
		return
	}
	var canceled orderbook.UID
	if order, ok := book.Get(req.OrderID); ok {
		if order.Account != s.account {
			s.send(EncodeReplaceResponse(s.nextSeq(), ReplaceResponse{Status: Rejected}))
			return
		}
		_ = book.Cancel(req.OrderID)
		canceled = req.OrderID
	}
	// canceled stays 0 when the order no longer exists: it already filled,
	// which counts as success here, not a race error.
	newUID := book.Limit(s.account, req.Side, req.Quantity, req.Price)
	s.send(EncodeReplaceResponse(s.nextSeq(), ReplaceResponse{
		Canceled:   canceled,
		NewOrderID: newUID,
		Status:     Accepted,
	}))
}

func (s *Session) handlePurge(book *orderbook.LimitOrderBook) {
	if s.state != Authenticated {
		s.send(EncodePurgeResponse(s.nextSeq(), PurgeResponse{Status: Rejected}))
		return
	}
	for len(s.account.Orders()) > 0 {
		for uid := range s.account.Orders() {
			_ = book.Cancel(uid)
			break
		}
	}
	s.send(EncodePurgeResponse(s.nextSeq(), PurgeResponse{Status: Accepted}))
}
