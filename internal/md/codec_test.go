package md

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"venue/internal/orderbook"
)

func TestEveryDatagramIsFixedSize(t *testing.T) {
	frames := [][]byte{
		EncodeClear(1, 0),
		EncodeStartOfSession(2, 0),
		EncodeEndOfSession(3, 0),
		EncodeAddOrder(4, 0, AddOrder{UID: 1, Price: 100, Quantity: 10, Side: orderbook.Buy}),
		EncodeDeleteOrder(5, 0, DeleteOrder{UID: 1}),
		EncodeTrade(6, 0, Trade{UID: 1, Price: 100, Quantity: 10, Side: orderbook.Sell}),
	}
	for _, f := range frames {
		assert.Len(t, f, FrameSize)
	}
}

func TestHeaderRoundTripCarriesSequenceAndTimestamp(t *testing.T) {
	frame := EncodeAddOrder(42, 123456789, AddOrder{UID: 1, Price: 100, Quantity: 10, Side: orderbook.Buy})
	hdr := DecodeHeader(frame)
	assert.Equal(t, KindAddOrder, hdr.Kind)
	assert.EqualValues(t, 42, hdr.Seq)
	assert.EqualValues(t, 123456789, hdr.Timestamp)
	assert.EqualValues(t, HeaderSize+21, hdr.Length)
}

func TestAddOrderRoundTrip(t *testing.T) {
	want := AddOrder{UID: 7, Price: 100, Quantity: 50, Side: orderbook.Sell}
	frame := EncodeAddOrder(1, 0, want)

	got, err := DecodeAddOrder(frame)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecodeAddOrderRejectsInvalidSide(t *testing.T) {
	frame := EncodeAddOrder(1, 0, AddOrder{UID: 1, Price: 1, Quantity: 1, Side: orderbook.Buy})
	frame[HeaderSize+20] = 'X'
	_, err := DecodeAddOrder(frame)
	assert.Error(t, err)
}

func TestDeleteOrderRoundTrip(t *testing.T) {
	want := DeleteOrder{UID: 9}
	frame := EncodeDeleteOrder(1, 0, want)
	assert.Equal(t, want, DecodeDeleteOrder(frame))
}

func TestTradeRoundTrip(t *testing.T) {
	want := Trade{UID: 3, Price: 101, Quantity: 20, Side: orderbook.Buy}
	frame := EncodeTrade(1, 0, want)

	got, err := DecodeTrade(frame)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
