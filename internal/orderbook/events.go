package orderbook

// Fill describes one match produced inside a SideBook's matching loop. It
// decouples the matching algorithm from both account bookkeeping and
// transport: rather than dispatching straight into virtual
// limit_fill/limit_partial/market_fill/market_partial callbacks, the
// SideBook emits one fine-grained event and leaves the LimitOrderBook (not
// the SideBook) to decide what to do with it.
//
// Maker is always the resting order providing liquidity; Taker is the
// incoming order consuming it (nil only when Quantity can't be attributed,
// which never happens -- Taker is always non-nil here, but may be an
// ephemeral, unregistered market order with UID 0). Trades always execute
// at Maker.Price.
type Fill struct {
	Maker    *Order
	Taker    *Order
	Price    Price
	Quantity Quantity

	MakerFullyConsumed bool
	TakerFullyConsumed bool
}
