package orderbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFillAppliesOppositeSignsBySide(t *testing.T) {
	buyer := NewAccount("buyer", "pw")
	buyer.fill(Buy, 10, 100)
	assert.EqualValues(t, 10, buyer.Shares)
	assert.EqualValues(t, -1000, buyer.Capital)

	seller := NewAccount("seller", "pw")
	seller.fill(Sell, 10, 100)
	assert.EqualValues(t, -10, seller.Shares)
	assert.EqualValues(t, 1000, seller.Capital)
}

func TestApplyMakerFillRemovesOrderFromAccount(t *testing.T) {
	a := NewAccount("a", "pw")
	o := &Order{UID: 1, Side: Buy, Account: a}
	a.addOrder(o)
	assert.Equal(t, 1, a.OrderCount())

	a.applyMakerFill(o, 10, 100)

	assert.Equal(t, 0, a.OrderCount())
	assert.EqualValues(t, 10, a.Shares)
}

func TestApplyMakerPartialKeepsOrderOnAccount(t *testing.T) {
	a := NewAccount("a", "pw")
	o := &Order{UID: 1, Side: Sell, Account: a}
	a.addOrder(o)

	a.applyMakerPartial(o, 10, 100)

	assert.Equal(t, 1, a.OrderCount())
	assert.EqualValues(t, -10, a.Shares)
}

func TestGlobalConservationAcrossMultipleMatches(t *testing.T) {
	book, maker1, taker := newTestBook()
	maker2 := NewAccount("maker2", "pw")

	book.Limit(maker1, Sell, 50, 100)
	book.Limit(maker2, Sell, 30, 101)
	book.Market(taker, Buy, 80)

	totalShares := maker1.Shares + maker2.Shares + taker.Shares
	totalCapital := maker1.Capital + maker2.Capital + taker.Capital

	assert.Zero(t, totalShares)
	assert.Zero(t, totalCapital)
}
