package orderbook

// Account is a trading account: a signed share and capital balance plus
// the set of orders it currently has resting in the book. fill() and the
// four apply* bookkeeping methods keep the sign conventions of the
// source's LOB::Account and map one-to-one onto its limit_fill,
// limit_partial, market_fill and market_partial hooks -- the exact four
// observation points a virtual-dispatch account subclass used to hook
// trade reporting onto.
type Account struct {
	Username string
	Password string

	Shares  int64
	Capital int64

	orders    map[UID]*Order
	Connected bool

	// Handler receives a notification for every fill against this
	// account's orders. Set by whichever session logs the account in;
	// cleared on logout or disconnect. nil for accounts with no session
	// bound, and always nil for the market-data subscriber's mirror book,
	// which never carries real accounts.
	Handler TradeHandler
}

// NewAccount creates an account with zero balances and no resting orders.
func NewAccount(username, password string) *Account {
	return &Account{
		Username: username,
		Password: password,
		orders:   make(map[UID]*Order),
	}
}

// Orders returns the account's currently resting orders. Exposed read-only
// (the map value) because callers (Purge) must be able to pick an
// arbitrary still-present member while iterating safely.
func (a *Account) Orders() map[UID]*Order {
	return a.orders
}

// OrderCount reports how many orders the account currently has resting.
func (a *Account) OrderCount() int {
	return len(a.orders)
}

func (a *Account) addOrder(o *Order) {
	a.orders[o.UID] = o
}

func (a *Account) removeOrder(uid UID) {
	delete(a.orders, uid)
}

// fill applies the balance effect of a trade of quantity shares at price
// on the given side of the trade: a sell credits capital and debits
// shares, a buy does the opposite. Every matched share and every matched
// dollar lands on exactly two accounts with opposite signs, so shares and
// capital are conserved globally across any sequence of matches.
func (a *Account) fill(side Side, quantity Quantity, price Price) {
	notional := int64(quantity) * int64(price)
	switch side {
	case Sell:
		a.Shares -= int64(quantity)
		a.Capital += notional
	case Buy:
		a.Shares += int64(quantity)
		a.Capital -= notional
	}
}

// applyMakerFill accounts for a maker order that has just been fully
// consumed: the order leaves the account's resting set and the account is
// credited/debited for the full traded quantity.
func (a *Account) applyMakerFill(o *Order, quantity Quantity, price Price) {
	a.removeOrder(o.UID)
	a.fill(o.Side, quantity, price)
}

// applyMakerPartial accounts for a maker order that traded but remains
// resting with reduced quantity.
func (a *Account) applyMakerPartial(o *Order, quantity Quantity, price Price) {
	a.fill(o.Side, quantity, price)
}

// applyTakerFill accounts for a taker side that has been completely
// satisfied by this trade.
func (a *Account) applyTakerFill(side Side, quantity Quantity, price Price) {
	a.fill(side, quantity, price)
}

// applyTakerPartial accounts for a taker side that traded but still has
// quantity left to fill from further levels.
func (a *Account) applyTakerPartial(side Side, quantity Quantity, price Price) {
	a.fill(side, quantity, price)
}
