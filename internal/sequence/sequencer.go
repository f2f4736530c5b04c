// Package sequence provides strictly monotonic counters used for order
// UIDs, per-session outbound frame numbers, and the market-data publisher's
// packet sequence. The counter is atomic, so Next never hands out the same
// value twice even when several goroutines call it at once.
package sequence

import "sync/atomic"

// Sequencer hands out a strictly increasing stream of uint64 values.
type Sequencer struct {
	next atomic.Uint64
}

// New creates a sequencer whose first Next() call returns start+1.
func New(start uint64) *Sequencer {
	s := &Sequencer{}
	s.next.Store(start)
	return s
}

// Next returns the next value in the sequence.
func (s *Sequencer) Next() uint64 {
	return s.next.Add(1)
}

// Current returns the last issued value without advancing.
func (s *Sequencer) Current() uint64 {
	return s.next.Load()
}

// Reset rewinds the counter, used by LimitOrderBook.Clear to restart UIDs at 1.
func (s *Sequencer) Reset(v uint64) {
	s.next.Store(v)
}
