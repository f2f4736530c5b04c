package orderbook

import (
	"errors"

	"venue/internal/memory"
	"venue/internal/sequence"
)

// ErrUnknownOrder is returned when an operation targets a UID the book
// does not currently hold.
var ErrUnknownOrder = errors.New("orderbook: unknown order id")

// ErrInsufficientQuantity is returned by Reduce when delta exceeds the
// order's remaining quantity. It has no wire representation: nothing in
// the order-entry protocol reaches Reduce directly, so this error only
// ever surfaces to a direct (e.g. test) caller of the Go API.
var ErrInsufficientQuantity = errors.New("orderbook: reduce delta exceeds remaining quantity")

// TradeHandler receives per-account trade notifications. An Account's
// Handler is set by whatever owns the session layer (internal/oe); the
// orderbook package only ever calls back through this interface, so it
// has no import-time dependency on sessions or wire codecs.
type TradeHandler interface {
	// OnTrade reports a single trade against orderID (0 if the trade was
	// the taker side of a market order, which never receives a UID).
	// leavesQuantity is the quantity still open on orderID after the trade.
	OnTrade(orderID UID, price Price, quantity Quantity, leavesQuantity Quantity, side Side)
}

// BookListener receives the depth-of-book event stream: every mutation the
// book makes fans out here in the same order it happened, so a
// market-data publisher can packetize and multicast it verbatim.
type BookListener interface {
	Clear()
	AddOrder(uid UID, price Price, quantity Quantity, side Side)
	DeleteOrder(uid UID)
	Trade(uid UID, price Price, quantity Quantity, side Side)
}

type noopListener struct{}

func (noopListener) Clear()                              {}
func (noopListener) AddOrder(UID, Price, Quantity, Side)  {}
func (noopListener) DeleteOrder(UID)                      {}
func (noopListener) Trade(UID, Price, Quantity, Side)     {}

// LimitOrderBook is the matching engine for a single instrument: a pair of
// SideBooks, the UID->Order map that exclusively owns every Order record,
// the UID allocator, and account bookkeeping plus event fan-out layered
// on top of the crossing rule -- match only when the incoming price
// crosses the opposite side's best.
type LimitOrderBook struct {
	buys  *SideBook
	sells *SideBook

	orders    map[UID]*Order
	seq       *sequence.Sequencer
	orderPool *memory.Pool[Order]

	Listener BookListener
}

// NewLimitOrderBook creates an empty book. listener may be nil, in which
// case book events are discarded (useful for tests that only care about
// the book's own state). Order records are recycled through a typed
// pool -- every order's lifetime is bounded by exactly one UID map entry,
// so once it leaves the map there are no outstanding references left to
// alias a reused one.
func NewLimitOrderBook(listener BookListener) *LimitOrderBook {
	if listener == nil {
		listener = noopListener{}
	}
	return &LimitOrderBook{
		buys:      NewSideBook(Buy),
		sells:     NewSideBook(Sell),
		orders:    make(map[UID]*Order),
		seq:       sequence.New(0),
		orderPool: memory.NewPool(func() *Order { return &Order{} }),
		Listener:  listener,
	}
}

// allocOrder draws an Order record from the pool and resets every field.
func (b *LimitOrderBook) allocOrder(uid UID, side Side, price Price, quantity Quantity, account *Account) *Order {
	o := b.orderPool.Get()
	*o = Order{UID: uid, Side: side, Price: price, Quantity: quantity, Account: account}
	return o
}

func (b *LimitOrderBook) sideBook(side Side) *SideBook {
	if side == Buy {
		return b.buys
	}
	return b.sells
}

// Limit submits a new limit order. If the opposite side's best price
// crosses, it is matched immediately (at the resting side's price) before
// any residual quantity rests. Returns the assigned UID, or 0 if the
// order was fully consumed on entry and never rested -- the "market
// order" sentinel used throughout the wire protocol.
//
// The UID counter is always consumed, even when the return value is 0:
// this mirrors the source engine's behavior deliberately: uids are
// reserved at entry and the counter is never rewound, so observable uid
// sequences may contain gaps.
func (b *LimitOrderBook) Limit(account *Account, side Side, quantity Quantity, price Price) UID {
	uid := b.seq.Next()
	order := b.allocOrder(uid, side, price, quantity, account)
	b.orders[uid] = order

	opposite := b.sideBook(side.Opposite())
	if b.crosses(side, price, opposite) {
		opposite.Market(order, b.dispatchFill, b.freeMaker)
		if order.Remaining() == 0 {
			delete(b.orders, uid)
			b.orderPool.Put(order)
			return 0
		}
	}

	account.addOrder(order)
	b.sideBook(side).Limit(order)
	b.Listener.AddOrder(uid, order.Price, order.Remaining(), side)
	return uid
}

// InsertAt rests an order at a caller-supplied UID with no crossing
// check and no account attached. It exists for the market-data
// subscriber's mirror book, where the wire UID is authoritative and
// matching has already happened on the publishing engine -- the mirror
// only ever replays AddOrder/DeleteOrder/Trade, never computes a cross.
func (b *LimitOrderBook) InsertAt(uid UID, side Side, quantity Quantity, price Price) {
	order := b.allocOrder(uid, side, price, quantity, nil)
	b.orders[uid] = order
	b.sideBook(side).Limit(order)
	b.Listener.AddOrder(uid, price, quantity, side)
}

func (b *LimitOrderBook) crosses(side Side, price Price, opposite *SideBook) bool {
	best := opposite.Best()
	if best == 0 {
		return false
	}
	if side == Buy {
		return best <= price
	}
	return best >= price
}

// Market submits a market order: it trades against the opposite side's
// best levels until filled or that side empties, and never rests.
func (b *LimitOrderBook) Market(account *Account, side Side, quantity Quantity) {
	order := &Order{Side: side, Price: 0, Quantity: quantity, Account: account}
	b.sideBook(side.Opposite()).Market(order, b.dispatchFill, b.freeMaker)
}

// dispatchFill is the SideBook.Market onFill callback: it applies account
// bookkeeping to both counterparties, notifies each account's
// TradeHandler (if any), and forwards a Trade event to the market-data
// listener.
func (b *LimitOrderBook) dispatchFill(f Fill) {
	maker, taker := f.Maker, f.Taker

	if f.MakerFullyConsumed {
		maker.Account.applyMakerFill(maker, f.Quantity, f.Price)
	} else {
		maker.Account.applyMakerPartial(maker, f.Quantity, f.Price)
	}
	if taker.Account != nil {
		if f.TakerFullyConsumed {
			taker.Account.applyTakerFill(taker.Side, f.Quantity, f.Price)
		} else {
			taker.Account.applyTakerPartial(taker.Side, f.Quantity, f.Price)
		}
	}

	if h := maker.Account.Handler; h != nil {
		leaves := maker.Remaining()
		if f.MakerFullyConsumed {
			leaves = 0
		}
		h.OnTrade(maker.UID, f.Price, f.Quantity, leaves, maker.Side)
	}
	if taker.Account != nil {
		if h := taker.Account.Handler; h != nil {
			reportedUID := taker.UID // 0 for ephemeral market orders, by construction
			leaves := taker.Remaining()
			h.OnTrade(reportedUID, f.Price, f.Quantity, leaves, taker.Side)
		}
	}

	b.Listener.Trade(maker.UID, f.Price, f.Quantity, maker.Side)
}

// freeMaker is the SideBook.Market onFree callback: it releases a fully
// consumed maker's storage from the UID map, the one place that owns it,
// and returns the record to the pool.
func (b *LimitOrderBook) freeMaker(uid UID) {
	order := b.orders[uid]
	delete(b.orders, uid)
	if order != nil {
		b.orderPool.Put(order)
	}
}

// Cancel removes a resting order from the book entirely. Ownership
// checks are the caller's responsibility -- Cancel itself only requires
// that uid currently exist.
func (b *LimitOrderBook) Cancel(uid UID) error {
	order, ok := b.orders[uid]
	if !ok {
		return ErrUnknownOrder
	}
	b.sideBook(order.Side).Cancel(order)
	if order.Account != nil {
		order.Account.removeOrder(uid)
	}
	delete(b.orders, uid)
	b.Listener.DeleteOrder(uid)
	b.orderPool.Put(order)
	return nil
}

// Reduce trims delta off order uid's open quantity. A reduction that
// exhausts the order behaves exactly like Cancel. Not reachable from the
// wire protocol -- see ErrInsufficientQuantity.
func (b *LimitOrderBook) Reduce(uid UID, delta Quantity) error {
	order, ok := b.orders[uid]
	if !ok {
		return ErrUnknownOrder
	}
	if delta > order.Remaining() {
		return ErrInsufficientQuantity
	}
	if delta == order.Remaining() {
		return b.Cancel(uid)
	}
	b.sideBook(order.Side).Reduce(order, delta)
	return nil
}

// Clear erases every order, level, and tree node, and resets the UID
// sequence so the next allocated UID is 1.
func (b *LimitOrderBook) Clear() {
	for _, o := range b.orders {
		if o.Account != nil {
			o.Account.removeOrder(o.UID)
		}
	}
	b.buys = NewSideBook(Buy)
	b.sells = NewSideBook(Sell)
	b.orders = make(map[UID]*Order)
	b.seq.Reset(0)
	b.Listener.Clear()
}

// Has reports whether uid currently names a resting or in-flight order.
func (b *LimitOrderBook) Has(uid UID) bool {
	_, ok := b.orders[uid]
	return ok
}

// Get returns the order named by uid, if any.
func (b *LimitOrderBook) Get(uid UID) (*Order, bool) {
	o, ok := b.orders[uid]
	return o, ok
}

// BestBuy returns the best (highest) resting buy price, or 0 if none.
func (b *LimitOrderBook) BestBuy() Price { return b.buys.Best() }

// BestSell returns the best (lowest) resting sell price, or 0 if none.
func (b *LimitOrderBook) BestSell() Price { return b.sells.Best() }

// Best returns the best resting price on the given side.
func (b *LimitOrderBook) Best(side Side) Price { return b.sideBook(side).Best() }

// VolumeAt returns the combined open quantity resting at price on both sides.
func (b *LimitOrderBook) VolumeAt(price Price) uint64 {
	return b.buys.VolumeAt(price) + b.sells.VolumeAt(price)
}

// VolumeSide returns the total open quantity resting on one side.
func (b *LimitOrderBook) VolumeSide(side Side) uint64 { return b.sideBook(side).Volume() }

// Volume returns the total open quantity resting in the book.
func (b *LimitOrderBook) Volume() uint64 { return b.buys.Volume() + b.sells.Volume() }

// CountAt returns the combined number of orders resting at price on both sides.
func (b *LimitOrderBook) CountAt(price Price) uint32 {
	return b.buys.CountAt(price) + b.sells.CountAt(price)
}

// CountSide returns the number of orders resting on one side.
func (b *LimitOrderBook) CountSide(side Side) uint32 { return b.sideBook(side).Count() }

// Count returns the total number of orders resting in the book.
func (b *LimitOrderBook) Count() uint32 { return b.buys.Count() + b.sells.Count() }

// DoesCross reports whether this book's best sell undercuts other's best
// buy by more than spread -- true iff this book has a sell side, adding
// spread to it does not overflow, and the result still beats other's best
// buy.
func (b *LimitOrderBook) DoesCross(other *LimitOrderBook, spread Quantity) bool {
	sell := b.BestSell()
	if sell == 0 {
		return false
	}
	if sell > ^uint64(0)-uint64(spread) {
		return false
	}
	return sell+uint64(spread) < other.BestBuy()
}
