// Package oe implements the order-entry wire protocol: a fixed 40-byte
// framed binary codec and the per-connection session state machine built
// on top of it. Fields are written with explicit binary.LittleEndian
// calls at fixed offsets into a preallocated buffer -- no reflection, no
// varint framing, no generated marshaling code.
package oe

import (
	"encoding/binary"
	"fmt"

	"venue/internal/orderbook"
)

// FrameSize is the fixed size of every order-entry wire message.
const FrameSize = 40

// HeaderSize is the fixed size of the length/kind/pad/sequence header that
// precedes every frame's payload.
const HeaderSize = 8

// Kind identifies a message's wire type by its single-character code.
type Kind byte

const (
	KindLoginRequest    Kind = 'L'
	KindLoginResponse   Kind = 'l'
	KindLogoutRequest   Kind = 'O'
	KindLogoutResponse  Kind = 'o'
	KindOrderRequest    Kind = 'N'
	KindOrderResponse   Kind = 'n'
	KindCancelRequest   Kind = 'C'
	KindCancelResponse  Kind = 'c'
	KindReplaceRequest  Kind = 'R'
	KindReplaceResponse Kind = 'r'
	KindPurgeRequest    Kind = 'P'
	KindPurgeResponse   Kind = 'p'
	KindTradeResponse   Kind = 't'
)

// Login response statuses.
const (
	Accepted          byte = 'A'
	NotAuthorized     byte = 'N'
	AlreadyAuthorized byte = 'C'
	SessionInUse      byte = 'B'
)

// Logout reasons.
const (
	UserRequested     byte = 'U'
	EndOfDay          byte = 'E'
	Administrative    byte = 'A'
	ProtocolViolation byte = '!'
)

// Order/cancel/replace/purge response statuses. Reuses the 'A' Accepted
// constant above; Rejected is the only status not already defined.
const Rejected byte = 'R'

// Header is the 8 bytes common to every frame.
type Header struct {
	Length uint16
	Kind   Kind
	Seq    uint32
}

// DecodeHeader reads the header out of a full 40-byte frame.
func DecodeHeader(frame []byte) Header {
	return Header{
		Length: binary.LittleEndian.Uint16(frame[0:2]),
		Kind:   Kind(frame[2]),
		Seq:    binary.LittleEndian.Uint32(frame[4:8]),
	}
}

// encodeFrame lays out a header plus payload into a fresh 40-byte buffer.
// Bytes past HeaderSize+len(payload) are left zero -- the "don't care"
// trailer the wire format permits, sent anyway because every frame is a
// fixed 40-byte transport unit.
func encodeFrame(kind Kind, seq uint32, payload []byte) []byte {
	buf := make([]byte, FrameSize)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(HeaderSize+len(payload)))
	buf[2] = byte(kind)
	binary.LittleEndian.PutUint32(buf[4:8], seq)
	copy(buf[HeaderSize:], payload)
	return buf
}

func putFixedString(dst []byte, s string) {
	n := copy(dst, s)
	for i := n; i < len(dst); i++ {
		dst[i] = 0
	}
}

func getFixedString(src []byte) string {
	n := len(src)
	for n > 0 && src[n-1] == 0 {
		n--
	}
	return string(src[:n])
}

// LoginRequest is a 4-byte username followed by a 12-byte password, both
// NUL-padded on the right.
type LoginRequest struct {
	Username string
	Password string
}

func EncodeLoginRequest(seq uint32, m LoginRequest) []byte {
	payload := make([]byte, 16)
	putFixedString(payload[0:4], m.Username)
	putFixedString(payload[4:16], m.Password)
	return encodeFrame(KindLoginRequest, seq, payload)
}

func DecodeLoginRequest(frame []byte) LoginRequest {
	p := frame[HeaderSize:]
	return LoginRequest{
		Username: getFixedString(p[0:4]),
		Password: getFixedString(p[4:16]),
	}
}

type LoginResponse struct {
	Status byte
}

func EncodeLoginResponse(seq uint32, m LoginResponse) []byte {
	return encodeFrame(KindLoginResponse, seq, []byte{m.Status})
}

func DecodeLoginResponse(frame []byte) LoginResponse {
	return LoginResponse{Status: frame[HeaderSize]}
}

func EncodeLogoutRequest(seq uint32) []byte {
	return encodeFrame(KindLogoutRequest, seq, nil)
}

type LogoutResponse struct {
	Reason byte
}

func EncodeLogoutResponse(seq uint32, m LogoutResponse) []byte {
	return encodeFrame(KindLogoutResponse, seq, []byte{m.Reason})
}

func DecodeLogoutResponse(frame []byte) LogoutResponse {
	return LogoutResponse{Reason: frame[HeaderSize]}
}

// OrderRequest submits a new order. Price 0 means market order.
type OrderRequest struct {
	Price    orderbook.Price
	Quantity orderbook.Quantity
	Side     orderbook.Side
}

func EncodeOrderRequest(seq uint32, m OrderRequest) []byte {
	payload := make([]byte, 13)
	binary.LittleEndian.PutUint64(payload[0:8], m.Price)
	binary.LittleEndian.PutUint32(payload[8:12], m.Quantity)
	payload[12] = m.Side.Byte()
	return encodeFrame(KindOrderRequest, seq, payload)
}

func DecodeOrderRequest(frame []byte) (OrderRequest, error) {
	p := frame[HeaderSize:]
	side, ok := orderbook.ParseSide(p[12])
	if !ok {
		return OrderRequest{}, fmt.Errorf("oe: invalid side byte %q", p[12])
	}
	return OrderRequest{
		Price:    binary.LittleEndian.Uint64(p[0:8]),
		Quantity: binary.LittleEndian.Uint32(p[8:12]),
		Side:     side,
	}, nil
}

type OrderResponse struct {
	OrderID orderbook.UID
	Status  byte
}

func EncodeOrderResponse(seq uint32, m OrderResponse) []byte {
	payload := make([]byte, 9)
	binary.LittleEndian.PutUint64(payload[0:8], m.OrderID)
	payload[8] = m.Status
	return encodeFrame(KindOrderResponse, seq, payload)
}

func DecodeOrderResponse(frame []byte) OrderResponse {
	p := frame[HeaderSize:]
	return OrderResponse{OrderID: binary.LittleEndian.Uint64(p[0:8]), Status: p[8]}
}

type CancelRequest struct {
	OrderID orderbook.UID
}

func EncodeCancelRequest(seq uint32, m CancelRequest) []byte {
	payload := make([]byte, 8)
	binary.LittleEndian.PutUint64(payload[0:8], m.OrderID)
	return encodeFrame(KindCancelRequest, seq, payload)
}

func DecodeCancelRequest(frame []byte) CancelRequest {
	return CancelRequest{OrderID: binary.LittleEndian.Uint64(frame[HeaderSize : HeaderSize+8])}
}

type CancelResponse struct {
	OrderID orderbook.UID
	Status  byte
}

func EncodeCancelResponse(seq uint32, m CancelResponse) []byte {
	payload := make([]byte, 9)
	binary.LittleEndian.PutUint64(payload[0:8], m.OrderID)
	payload[8] = m.Status
	return encodeFrame(KindCancelResponse, seq, payload)
}

func DecodeCancelResponse(frame []byte) CancelResponse {
	p := frame[HeaderSize:]
	return CancelResponse{OrderID: binary.LittleEndian.Uint64(p[0:8]), Status: p[8]}
}

type ReplaceRequest struct {
	OrderID  orderbook.UID
	Price    orderbook.Price
	Quantity orderbook.Quantity
	Side     orderbook.Side
}

func EncodeReplaceRequest(seq uint32, m ReplaceRequest) []byte {
	payload := make([]byte, 21)
	binary.LittleEndian.PutUint64(payload[0:8], m.OrderID)
	binary.LittleEndian.PutUint64(payload[8:16], m.Price)
	binary.LittleEndian.PutUint32(payload[16:20], m.Quantity)
	payload[20] = m.Side.Byte()
	return encodeFrame(KindReplaceRequest, seq, payload)
}

func DecodeReplaceRequest(frame []byte) (ReplaceRequest, error) {
	p := frame[HeaderSize:]
	side, ok := orderbook.ParseSide(p[20])
	if !ok {
		return ReplaceRequest{}, fmt.Errorf("oe: invalid side byte %q", p[20])
	}
	return ReplaceRequest{
		OrderID:  binary.LittleEndian.Uint64(p[0:8]),
		Price:    binary.LittleEndian.Uint64(p[8:16]),
		Quantity: binary.LittleEndian.Uint32(p[16:20]),
		Side:     side,
	}, nil
}

type ReplaceResponse struct {
	Canceled   orderbook.UID
	NewOrderID orderbook.UID
	Status     byte
}

func EncodeReplaceResponse(seq uint32, m ReplaceResponse) []byte {
	payload := make([]byte, 17)
	binary.LittleEndian.PutUint64(payload[0:8], m.Canceled)
	binary.LittleEndian.PutUint64(payload[8:16], m.NewOrderID)
	payload[16] = m.Status
	return encodeFrame(KindReplaceResponse, seq, payload)
}

func DecodeReplaceResponse(frame []byte) ReplaceResponse {
	p := frame[HeaderSize:]
	return ReplaceResponse{
		Canceled:   binary.LittleEndian.Uint64(p[0:8]),
		NewOrderID: binary.LittleEndian.Uint64(p[8:16]),
		Status:     p[16],
	}
}

func EncodePurgeRequest(seq uint32) []byte {
	return encodeFrame(KindPurgeRequest, seq, nil)
}

type PurgeResponse struct {
	Status byte
}

func EncodePurgeResponse(seq uint32, m PurgeResponse) []byte {
	return encodeFrame(KindPurgeResponse, seq, []byte{m.Status})
}

func DecodePurgeResponse(frame []byte) PurgeResponse {
	return PurgeResponse{Status: frame[HeaderSize]}
}

// TradeResponse reports one fill against an order owned by the receiving
// session. OrderID is 0 when the fill was the taker side of a market
// order (which never receives a UID).
type TradeResponse struct {
	OrderID        orderbook.UID
	Price          orderbook.Price
	Quantity       orderbook.Quantity
	LeavesQuantity orderbook.Quantity
	Side           orderbook.Side
}

func EncodeTradeResponse(seq uint32, m TradeResponse) []byte {
	payload := make([]byte, 25)
	binary.LittleEndian.PutUint64(payload[0:8], m.OrderID)
	binary.LittleEndian.PutUint64(payload[8:16], m.Price)
	binary.LittleEndian.PutUint32(payload[16:20], m.Quantity)
	binary.LittleEndian.PutUint32(payload[20:24], m.LeavesQuantity)
	payload[24] = m.Side.Byte()
	return encodeFrame(KindTradeResponse, seq, payload)
}

func DecodeTradeResponse(frame []byte) (TradeResponse, error) {
	p := frame[HeaderSize:]
	side, ok := orderbook.ParseSide(p[24])
	if !ok {
		return TradeResponse{}, fmt.Errorf("oe: invalid side byte %q", p[24])
	}
	return TradeResponse{
		OrderID:        binary.LittleEndian.Uint64(p[0:8]),
		Price:          binary.LittleEndian.Uint64(p[8:16]),
		Quantity:       binary.LittleEndian.Uint32(p[16:20]),
		LeavesQuantity: binary.LittleEndian.Uint32(p[20:24]),
		Side:           side,
	}, nil
}
