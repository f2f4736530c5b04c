package oeserver

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venue/internal/oe"
	"venue/internal/orderbook"
)

func startTestServer(t *testing.T) (*Server, string) {
	book := orderbook.NewLimitOrderBook(nil)
	reg, err := orderbook.NewRegistry([]orderbook.AccountConfig{{Username: "ally", Password: "secret"}})
	require.NoError(t, err)

	srv, err := NewServer("127.0.0.1:0", book, reg)
	require.NoError(t, err)

	go srv.Run()
	t.Cleanup(func() { srv.Close() })
	return srv, srv.Addr().String()
}

func dial(t *testing.T, addr string) net.Conn {
	conn, err := net.DialTimeout("tcp", addr, time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn net.Conn) []byte {
	t.Helper()
	buf := make([]byte, oe.FrameSize)
	_, err := io.ReadFull(conn, buf)
	require.NoError(t, err)
	return buf
}

func TestServerEndToEndLoginOrderCancel(t *testing.T) {
	_, addr := startTestServer(t)
	conn := dial(t, addr)

	_, err := conn.Write(oe.EncodeLoginRequest(0, oe.LoginRequest{Username: "ally", Password: "secret"}))
	require.NoError(t, err)
	loginResp := oe.DecodeLoginResponse(readFrame(t, conn))
	require.Equal(t, oe.Accepted, loginResp.Status)

	_, err = conn.Write(oe.EncodeOrderRequest(1, oe.OrderRequest{Price: 100, Quantity: 10, Side: orderbook.Buy}))
	require.NoError(t, err)
	orderResp := oe.DecodeOrderResponse(readFrame(t, conn))
	require.Equal(t, oe.Accepted, orderResp.Status)
	require.NotZero(t, orderResp.OrderID)

	_, err = conn.Write(oe.EncodeCancelRequest(2, oe.CancelRequest{OrderID: orderResp.OrderID}))
	require.NoError(t, err)
	cancelResp := oe.DecodeCancelResponse(readFrame(t, conn))
	assert.Equal(t, oe.Accepted, cancelResp.Status)
}

func TestServerClosesConnectionOnProtocolViolation(t *testing.T) {
	_, addr := startTestServer(t)
	conn := dial(t, addr)

	// LogoutRequest while unauthenticated is a protocol violation.
	_, err := conn.Write(oe.EncodeLogoutRequest(0))
	require.NoError(t, err)

	resp := oe.DecodeLogoutResponse(readFrame(t, conn))
	assert.Equal(t, oe.ProtocolViolation, resp.Reason)

	// The server closes its end after a violation; the next read observes EOF.
	buf := make([]byte, 1)
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, err = conn.Read(buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestSecondConnectionSameAccountIsSessionInUse(t *testing.T) {
	_, addr := startTestServer(t)
	buyerConn := dial(t, addr)

	reg2, err := net.Dial("tcp", addr)
	require.NoError(t, err)
	t.Cleanup(func() { reg2.Close() })
	sellerConn := reg2

	_, err = buyerConn.Write(oe.EncodeLoginRequest(0, oe.LoginRequest{Username: "ally", Password: "secret"}))
	require.NoError(t, err)
	require.Equal(t, oe.Accepted, oe.DecodeLoginResponse(readFrame(t, buyerConn)).Status)

	_, err = buyerConn.Write(oe.EncodeOrderRequest(1, oe.OrderRequest{Price: 100, Quantity: 10, Side: orderbook.Buy}))
	require.NoError(t, err)
	buyResp := oe.DecodeOrderResponse(readFrame(t, buyerConn))
	require.Equal(t, oe.Accepted, buyResp.Status)

	// A second login attempt for the same account from another connection
	// must be rejected as SessionInUse.
	_, err = sellerConn.Write(oe.EncodeLoginRequest(0, oe.LoginRequest{Username: "ally", Password: "secret"}))
	require.NoError(t, err)
	sellResp := oe.DecodeLoginResponse(readFrame(t, sellerConn))
	assert.Equal(t, oe.SessionInUse, sellResp.Status)
}
