package oe

import (
	"io"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venue/internal/orderbook"
)

// newTestSession wires a Session to one end of an in-memory pipe and
// returns the session plus a reader for the frames it writes.
func newTestSession(t *testing.T) (*Session, net.Conn) {
	serverConn, clientConn := net.Pipe()
	t.Cleanup(func() { serverConn.Close(); clientConn.Close() })
	return NewSession(serverConn), clientConn
}

func readFrame(t *testing.T, conn net.Conn) []byte {
	t.Helper()
	buf := make([]byte, FrameSize)
	_, err := io.ReadFull(conn, buf)
	require.NoError(t, err)
	return buf
}

func newTestRegistry(t *testing.T) *orderbook.Registry {
	reg, err := orderbook.NewRegistry([]orderbook.AccountConfig{
		{Username: "ally", Password: "secret"},
	})
	require.NoError(t, err)
	return reg
}

func TestLoginAcceptsValidCredentials(t *testing.T) {
	s, conn := newTestSession(t)
	reg := newTestRegistry(t)

	done := make(chan struct{})
	go func() {
		frame := EncodeLoginRequest(0, LoginRequest{Username: "ally", Password: "secret"})
		s.Dispatch(nil, reg, frame)
		close(done)
	}()

	resp := DecodeLoginResponse(readFrame(t, conn))
	<-done
	assert.Equal(t, Accepted, resp.Status)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	s, conn := newTestSession(t)
	reg := newTestRegistry(t)

	go s.Dispatch(nil, reg, EncodeLoginRequest(0, LoginRequest{Username: "ally", Password: "wrong"}))

	resp := DecodeLoginResponse(readFrame(t, conn))
	assert.Equal(t, NotAuthorized, resp.Status)
}

func TestSecondLoginWhileAuthenticatedIsAlreadyAuthorized(t *testing.T) {
	s, conn := newTestSession(t)
	reg := newTestRegistry(t)

	go s.Dispatch(nil, reg, EncodeLoginRequest(0, LoginRequest{Username: "ally", Password: "secret"}))
	readFrame(t, conn)

	go s.Dispatch(nil, reg, EncodeLoginRequest(1, LoginRequest{Username: "ally", Password: "secret"}))
	resp := DecodeLoginResponse(readFrame(t, conn))
	assert.Equal(t, AlreadyAuthorized, resp.Status)
}

func TestSecondSessionSameAccountIsSessionInUse(t *testing.T) {
	reg := newTestRegistry(t)

	s1, conn1 := newTestSession(t)
	go s1.Dispatch(nil, reg, EncodeLoginRequest(0, LoginRequest{Username: "ally", Password: "secret"}))
	readFrame(t, conn1)

	s2, conn2 := newTestSession(t)
	go s2.Dispatch(nil, reg, EncodeLoginRequest(0, LoginRequest{Username: "ally", Password: "secret"}))
	resp := DecodeLoginResponse(readFrame(t, conn2))
	assert.Equal(t, SessionInUse, resp.Status)
}

func TestLogoutWhileUnauthenticatedIsAProtocolViolation(t *testing.T) {
	s, conn := newTestSession(t)
	reg := newTestRegistry(t)

	violated := make(chan bool, 1)
	go func() { violated <- s.Dispatch(nil, reg, EncodeLogoutRequest(0)) }()

	resp := DecodeLogoutResponse(readFrame(t, conn))
	assert.Equal(t, ProtocolViolation, resp.Reason)
	assert.True(t, <-violated)
}

func TestUnrecognizedKindIsAProtocolViolation(t *testing.T) {
	s, conn := newTestSession(t)
	reg := newTestRegistry(t)

	frame := EncodeLogoutRequest(0)
	frame[2] = 'Z' // corrupt the kind byte

	violated := make(chan bool, 1)
	go func() { violated <- s.Dispatch(nil, reg, frame) }()

	readFrame(t, conn) // the terminal LogoutResponse
	assert.True(t, <-violated)
}

func TestOrderRequestWhileUnauthenticatedIsRejectedNotAViolation(t *testing.T) {
	s, conn := newTestSession(t)
	reg := newTestRegistry(t)

	frame := EncodeOrderRequest(0, OrderRequest{Price: 100, Quantity: 10, Side: orderbook.Buy})
	violated := make(chan bool, 1)
	go func() { violated <- s.Dispatch(nil, reg, frame) }()

	resp := DecodeOrderResponse(readFrame(t, conn))
	assert.Equal(t, Rejected, resp.Status)
	assert.Zero(t, resp.OrderID)
	assert.False(t, <-violated)
}

func loginSession(t *testing.T, s *Session, conn net.Conn, reg *orderbook.Registry) {
	t.Helper()
	go s.Dispatch(nil, reg, EncodeLoginRequest(0, LoginRequest{Username: "ally", Password: "secret"}))
	readFrame(t, conn)
}

func TestAuthenticatedLimitOrderRestsAndReturnsUID(t *testing.T) {
	s, conn := newTestSession(t)
	reg := newTestRegistry(t)
	loginSession(t, s, conn, reg)

	book := orderbook.NewLimitOrderBook(nil)
	frame := EncodeOrderRequest(1, OrderRequest{Price: 100, Quantity: 10, Side: orderbook.Buy})
	go s.Dispatch(book, reg, frame)

	resp := DecodeOrderResponse(readFrame(t, conn))
	assert.Equal(t, Accepted, resp.Status)
	assert.NotZero(t, resp.OrderID)
	assert.True(t, book.Has(resp.OrderID))
}

func TestCancelRejectsOwnershipMismatch(t *testing.T) {
	reg := newTestRegistry(t)
	book := orderbook.NewLimitOrderBook(nil)
	other := orderbook.NewAccount("bob", "pw")
	uid := book.Limit(other, orderbook.Buy, 10, 100)

	s, conn := newTestSession(t)
	loginSession(t, s, conn, reg)

	frame := EncodeCancelRequest(1, CancelRequest{OrderID: uid})
	go s.Dispatch(book, reg, frame)

	resp := DecodeCancelResponse(readFrame(t, conn))
	assert.Equal(t, Rejected, resp.Status)
	assert.True(t, book.Has(uid))
}

func TestReplaceOnAlreadyFilledOrderStillSucceedsWithZeroCanceled(t *testing.T) {
	reg := newTestRegistry(t)
	book := orderbook.NewLimitOrderBook(nil)

	s, conn := newTestSession(t)
	loginSession(t, s, conn, reg)

	// uid never existed (e.g. already filled) -- Replace should still
	// accept and place the new order, reporting canceled=0.
	frame := EncodeReplaceRequest(1, ReplaceRequest{OrderID: 9999, Price: 50, Quantity: 5, Side: orderbook.Sell})
	go s.Dispatch(book, reg, frame)

	resp := DecodeReplaceResponse(readFrame(t, conn))
	assert.Equal(t, Accepted, resp.Status)
	assert.Zero(t, resp.Canceled)
	assert.NotZero(t, resp.NewOrderID)
}

func TestPurgeCancelsEveryOrderOwnedByAccount(t *testing.T) {
	reg := newTestRegistry(t)
	book := orderbook.NewLimitOrderBook(nil)

	s, conn := newTestSession(t)
	loginSession(t, s, conn, reg)

	go s.Dispatch(book, reg, EncodeOrderRequest(1, OrderRequest{Price: 100, Quantity: 10, Side: orderbook.Buy}))
	readFrame(t, conn)
	go s.Dispatch(book, reg, EncodeOrderRequest(2, OrderRequest{Price: 101, Quantity: 5, Side: orderbook.Buy}))
	readFrame(t, conn)

	assert.EqualValues(t, 2, book.Count())

	go s.Dispatch(book, reg, EncodePurgeRequest(3))
	resp := DecodePurgeResponse(readFrame(t, conn))
	assert.Equal(t, Accepted, resp.Status)
	assert.Zero(t, book.Count())
}
