package orderbook

// SideBook holds one side (Buy or Sell) of the book: a PriceTree indexing
// that side's resting levels, plus the limit/cancel/market algorithms that
// mutate it, split into its own type per side so the crossing logic in
// LimitOrderBook reads as "ask my opposite side to match" rather than a
// bid/ask if-else at every call site.
type SideBook struct {
	Side Side
	tree *PriceTree
}

// NewSideBook creates an empty side book. Buy is a descending price index
// (best = highest); Sell is ascending (best = lowest).
func NewSideBook(side Side) *SideBook {
	return &SideBook{Side: side, tree: NewPriceTree(side == Buy)}
}

// Best returns the best resting price on this side, or 0 if empty.
func (sb *SideBook) Best() Price {
	return sb.tree.BestPrice()
}

// BestLevel returns the best PriceLevel, or nil if empty.
func (sb *SideBook) BestLevel() *PriceLevel {
	return sb.tree.Best()
}

// Count returns the total number of resting orders on this side.
func (sb *SideBook) Count() uint32 {
	return sb.tree.TotalCount
}

// Volume returns the total open quantity resting on this side.
func (sb *SideBook) Volume() uint64 {
	return sb.tree.TotalVolume
}

// VolumeAt returns the open quantity resting at a single price.
func (sb *SideBook) VolumeAt(price Price) uint64 {
	if lvl := sb.tree.Find(price); lvl != nil {
		return lvl.Volume
	}
	return 0
}

// CountAt returns the number of orders resting at a single price.
func (sb *SideBook) CountAt(price Price) uint32 {
	if lvl := sb.tree.Find(price); lvl != nil {
		return lvl.Count
	}
	return 0
}

// Levels walks every level from the best price to the worst.
func (sb *SideBook) Levels(fn func(*PriceLevel) bool) {
	sb.tree.ForEach(fn)
}

// Limit appends order to the level at order.Price, creating the level if
// necessary. The caller (LimitOrderBook) must already have established
// that order cannot cross the opposite side.
func (sb *SideBook) Limit(o *Order) {
	lvl := sb.tree.GetOrCreate(o.Price)
	lvl.Enqueue(o)
	sb.tree.TotalCount++
	sb.tree.TotalVolume += uint64(o.Quantity)
}

// Cancel removes a resting order from its level, erasing the level from
// the index if it empties. Does not free the order's storage -- that is
// the LimitOrderBook's job, since it owns the UID map.
func (sb *SideBook) Cancel(o *Order) {
	lvl := o.level
	lvl.Remove(o)
	sb.tree.TotalCount--
	sb.tree.TotalVolume -= uint64(o.Quantity)
	if lvl.Empty() {
		sb.tree.Erase(lvl)
	}
}

// Reduce trims delta off a resting order's open quantity without removing
// it, adjusting level and side totals to match.
func (sb *SideBook) Reduce(o *Order, delta Quantity) {
	o.Quantity -= delta
	o.level.ReduceVolume(delta)
	sb.tree.TotalVolume -= uint64(delta)
}

// Market consumes liquidity from this side on behalf of taker until taker
// is fully filled, this side empties, or (when taker carries a limit
// price) the best remaining price on this side would be worse than the
// taker is willing to accept. Every match invokes onFill with a Fill
// describing exactly what happened; onFree is called with the UID of any
// maker order that is fully consumed and removed from the book, so the
// LimitOrderBook can release it from its UID map.
//
// Trades always execute at the resting (maker) order's price -- the
// price-priority invariant -- never at the taker's price.
func (sb *SideBook) Market(taker *Order, onFill func(Fill), onFree func(UID)) {
	for taker.Remaining() > 0 {
		best := sb.tree.Best()
		if best == nil {
			return
		}
		if taker.Price != 0 {
			if sb.Side == Sell && best.Price > taker.Price {
				return
			}
			if sb.Side == Buy && best.Price < taker.Price {
				return
			}
		}

		head := best.Head()
		if head.Remaining() <= taker.Remaining() {
			trade := head.Remaining()
			taker.Quantity -= trade

			best.PopHead()
			sb.tree.TotalCount--
			sb.tree.TotalVolume -= uint64(trade)
			if best.Empty() {
				sb.tree.Erase(best)
			}

			onFill(Fill{
				Maker: head, Taker: taker, Price: best.Price, Quantity: trade,
				MakerFullyConsumed: true, TakerFullyConsumed: taker.Remaining() == 0,
			})
			onFree(head.UID)
		} else {
			trade := taker.Remaining()
			head.Quantity -= trade
			best.ReduceVolume(trade)
			sb.tree.TotalVolume -= uint64(trade)
			taker.Quantity = 0

			onFill(Fill{
				Maker: head, Taker: taker, Price: best.Price, Quantity: trade,
				MakerFullyConsumed: false, TakerFullyConsumed: true,
			})
		}
	}
}
