package md

import (
	"net"
	"sync"

	"github.com/yanun0323/logs"
	"golang.org/x/net/ipv4"

	"venue/internal/orderbook"
	"venue/internal/sequence"
)

// Publisher sends the depth-of-book event stream to a UDP multicast
// group. It implements orderbook.BookListener so a LimitOrderBook can
// drive it directly; StartOfSession/EndOfSession are exposed separately
// since the book never calls them -- the admin CLI does.
//
// now is injected so tests can supply a deterministic clock; the
// production wiring passes time.Now().UnixNano. The timestamp field is
// informational only -- nothing in this package or mdsub orders events
// by it.
type Publisher struct {
	conn *net.UDPConn
	now  func() int64

	mu  sync.Mutex
	seq *sequence.Sequencer
}

// NewPublisher dials a multicast group:port, optionally setting TTL and
// the outbound interface (iface may be nil to use the system default
// route). Sequence numbers start at 1.
func NewPublisher(groupAddr string, ttl int, iface *net.Interface, now func() int64) (*Publisher, error) {
	addr, err := net.ResolveUDPAddr("udp4", groupAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.DialUDP("udp4", nil, addr)
	if err != nil {
		return nil, err
	}
	pc := ipv4.NewPacketConn(conn)
	if ttl > 0 {
		if err := pc.SetMulticastTTL(ttl); err != nil {
			return nil, err
		}
	}
	if iface != nil {
		if err := pc.SetMulticastInterface(iface); err != nil {
			return nil, err
		}
	}
	return &Publisher{
		conn: conn,
		now:  now,
		seq:  sequence.New(0),
	}, nil
}

// send serializes a packet send with its sequence-number assignment, so
// that per-packet (length, kind, sequence, timestamp) construction and
// the socket write are atomic with respect to the sequence counter even
// when multiple reactor-side callers race to publish (tests exercising
// the book directly, rather than through the single-threaded server).
func (p *Publisher) send(encode func(seq uint32, ts int64) []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	seq := uint32(p.seq.Next())
	frame := encode(seq, p.now())
	if _, err := p.conn.Write(frame); err != nil {
		logs.Errorf("md: publish failed: %v", err)
	}
}

func (p *Publisher) Clear() {
	p.send(func(seq uint32, ts int64) []byte { return EncodeClear(seq, ts) })
}

func (p *Publisher) AddOrder(uid orderbook.UID, price orderbook.Price, quantity orderbook.Quantity, side orderbook.Side) {
	p.send(func(seq uint32, ts int64) []byte {
		return EncodeAddOrder(seq, ts, AddOrder{UID: uid, Price: price, Quantity: quantity, Side: side})
	})
}

func (p *Publisher) DeleteOrder(uid orderbook.UID) {
	p.send(func(seq uint32, ts int64) []byte {
		return EncodeDeleteOrder(seq, ts, DeleteOrder{UID: uid})
	})
}

func (p *Publisher) Trade(uid orderbook.UID, price orderbook.Price, quantity orderbook.Quantity, side orderbook.Side) {
	p.send(func(seq uint32, ts int64) []byte {
		return EncodeTrade(seq, ts, Trade{UID: uid, Price: price, Quantity: quantity, Side: side})
	})
}

// StartOfSession and EndOfSession are driven by the admin CLI, not by
// book events.
func (p *Publisher) StartOfSession() {
	p.send(func(seq uint32, ts int64) []byte { return EncodeStartOfSession(seq, ts) })
}

func (p *Publisher) EndOfSession() {
	p.send(func(seq uint32, ts int64) []byte { return EncodeEndOfSession(seq, ts) })
}

func (p *Publisher) Close() error {
	return p.conn.Close()
}
