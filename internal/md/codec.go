// Package md implements the market-data wire protocol: a
// fixed 40-byte UDP datagram with a 16-byte header carrying a sequence
// number and a wall-clock timestamp, framed the same way internal/oe
// frames its TCP messages but with room for the extra 8 timestamp bytes.
package md

import (
	"encoding/binary"

	"venue/internal/orderbook"
)

// FrameSize is the fixed size of every market-data datagram.
const FrameSize = 40

// HeaderSize is the fixed size of the length/kind/pad/sequence/timestamp
// header that precedes every datagram's payload.
const HeaderSize = 16

// Kind identifies a market-data event by its single-character code.
type Kind byte

const (
	KindClear           Kind = 'c'
	KindAddOrder        Kind = 'a'
	KindDeleteOrder     Kind = 'd'
	KindTrade           Kind = 't'
	KindStartOfSession  Kind = 's'
	KindEndOfSession    Kind = 'e'
)

// Header is the 16 bytes common to every datagram. Timestamp is
// nanoseconds from a wall-clock source; it is informational only and
// must never be used to order events -- Seq is authoritative for that.
type Header struct {
	Length    uint16
	Kind      Kind
	Seq       uint32
	Timestamp int64
}

func DecodeHeader(frame []byte) Header {
	return Header{
		Length:    binary.LittleEndian.Uint16(frame[0:2]),
		Kind:      Kind(frame[2]),
		Seq:       binary.LittleEndian.Uint32(frame[4:8]),
		Timestamp: int64(binary.LittleEndian.Uint64(frame[8:16])),
	}
}

func encodeFrame(kind Kind, seq uint32, timestampNs int64, payload []byte) []byte {
	buf := make([]byte, FrameSize)
	binary.LittleEndian.PutUint16(buf[0:2], uint16(HeaderSize+len(payload)))
	buf[2] = byte(kind)
	binary.LittleEndian.PutUint32(buf[4:8], seq)
	binary.LittleEndian.PutUint64(buf[8:16], uint64(timestampNs))
	copy(buf[HeaderSize:], payload)
	return buf
}

func EncodeClear(seq uint32, ts int64) []byte {
	return encodeFrame(KindClear, seq, ts, nil)
}

func EncodeStartOfSession(seq uint32, ts int64) []byte {
	return encodeFrame(KindStartOfSession, seq, ts, nil)
}

func EncodeEndOfSession(seq uint32, ts int64) []byte {
	return encodeFrame(KindEndOfSession, seq, ts, nil)
}

// AddOrder reports a new resting order.
type AddOrder struct {
	UID      orderbook.UID
	Price    orderbook.Price
	Quantity orderbook.Quantity
	Side     orderbook.Side
}

func EncodeAddOrder(seq uint32, ts int64, m AddOrder) []byte {
	payload := make([]byte, 21)
	binary.LittleEndian.PutUint64(payload[0:8], m.UID)
	binary.LittleEndian.PutUint64(payload[8:16], m.Price)
	binary.LittleEndian.PutUint32(payload[16:20], m.Quantity)
	payload[20] = m.Side.Byte()
	return encodeFrame(KindAddOrder, seq, ts, payload)
}

func DecodeAddOrder(frame []byte) (AddOrder, error) {
	p := frame[HeaderSize:]
	side, ok := orderbook.ParseSide(p[20])
	if !ok {
		return AddOrder{}, errInvalidSide(p[20])
	}
	return AddOrder{
		UID:      binary.LittleEndian.Uint64(p[0:8]),
		Price:    binary.LittleEndian.Uint64(p[8:16]),
		Quantity: binary.LittleEndian.Uint32(p[16:20]),
		Side:     side,
	}, nil
}

// DeleteOrder reports that a resting order left the book without a trade.
type DeleteOrder struct {
	UID orderbook.UID
}

func EncodeDeleteOrder(seq uint32, ts int64, m DeleteOrder) []byte {
	payload := make([]byte, 8)
	binary.LittleEndian.PutUint64(payload[0:8], m.UID)
	return encodeFrame(KindDeleteOrder, seq, ts, payload)
}

func DecodeDeleteOrder(frame []byte) DeleteOrder {
	return DeleteOrder{UID: binary.LittleEndian.Uint64(frame[HeaderSize : HeaderSize+8])}
}

// Trade reports one match against the resting (maker) order named by UID.
type Trade struct {
	UID      orderbook.UID
	Price    orderbook.Price
	Quantity orderbook.Quantity
	Side     orderbook.Side
}

func EncodeTrade(seq uint32, ts int64, m Trade) []byte {
	payload := make([]byte, 21)
	binary.LittleEndian.PutUint64(payload[0:8], m.UID)
	binary.LittleEndian.PutUint64(payload[8:16], m.Price)
	binary.LittleEndian.PutUint32(payload[16:20], m.Quantity)
	payload[20] = m.Side.Byte()
	return encodeFrame(KindTrade, seq, ts, payload)
}

func DecodeTrade(frame []byte) (Trade, error) {
	p := frame[HeaderSize:]
	side, ok := orderbook.ParseSide(p[20])
	if !ok {
		return Trade{}, errInvalidSide(p[20])
	}
	return Trade{
		UID:      binary.LittleEndian.Uint64(p[0:8]),
		Price:    binary.LittleEndian.Uint64(p[8:16]),
		Quantity: binary.LittleEndian.Uint32(p[16:20]),
		Side:     side,
	}, nil
}

func errInvalidSide(b byte) error {
	return &invalidSideError{b}
}

type invalidSideError struct{ b byte }

func (e *invalidSideError) Error() string {
	return "md: invalid side byte '" + string(e.b) + "'"
}
