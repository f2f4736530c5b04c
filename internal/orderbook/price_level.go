package orderbook

// PriceLevel is the set of resting orders at one price: a FIFO queue plus
// the aggregates the book needs on every query. The Enqueue/PopHead/Remove
// shapes are the classic intrusive-FIFO ones. PriceLevel carries no
// back-reference into its owning PriceTree: the tree deletes by key, and
// a PriceLevel's address is itself the stable handle callers cache (a
// PriceTree's best pointer included), since levels are never mutated in
// place by tree rebalancing.
type PriceLevel struct {
	Price Price

	head, tail *Order
	Count      uint32
	Volume     uint64
}

// Enqueue appends an order to the tail of the FIFO -- the new order becomes
// the last to match at this price.
func (p *PriceLevel) Enqueue(o *Order) {
	o.level = p
	if p.tail == nil {
		p.head = o
		p.tail = o
	} else {
		p.tail.next = o
		o.prev = p.tail
		p.tail = o
	}
	p.Count++
	p.Volume += uint64(o.Quantity)
}

// Head returns the next order to match (the oldest resting order), or nil.
func (p *PriceLevel) Head() *Order {
	return p.head
}

// PopHead removes and returns the head of the FIFO. Callers are
// responsible for adjusting side-level totals; PopHead only maintains the
// level's own Count/Volume and FIFO pointers.
func (p *PriceLevel) PopHead() *Order {
	o := p.head
	if o == nil {
		return nil
	}
	p.head = o.next
	if p.head != nil {
		p.head.prev = nil
	} else {
		p.tail = nil
	}
	o.next = nil
	o.prev = nil
	o.level = nil
	p.Count--
	p.Volume -= uint64(o.Quantity)
	return o
}

// Remove splices an arbitrary order out of the FIFO. Used by cancel, which
// may target an order anywhere in the queue, not just the head.
func (p *PriceLevel) Remove(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		p.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		p.tail = o.prev
	}
	o.next = nil
	o.prev = nil
	o.level = nil
	p.Count--
	p.Volume -= uint64(o.Quantity)
}

// Empty reports whether the level has no resting orders left.
func (p *PriceLevel) Empty() bool {
	return p.head == nil
}

// ReduceVolume accounts for a partial fill or an explicit Reduce against an
// order that remains on this level (i.e. does not empty the FIFO).
func (p *PriceLevel) ReduceVolume(delta Quantity) {
	p.Volume -= uint64(delta)
}
