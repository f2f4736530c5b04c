// Package mdsub implements the market-data subscriber: it
// joins the publisher's multicast group, applies every datagram to a
// local mirror LimitOrderBook, and tolerates sequence gaps as a
// best-effort feed rather than requesting replay.
package mdsub

import (
	"net"

	"github.com/yanun0323/logs"
	"golang.org/x/net/ipv4"

	"venue/internal/md"
	"venue/internal/orderbook"
)

// Subscriber reads the market-data feed and keeps Mirror in sync with
// it. SessionActive is exported for tests and for an admin surface that
// wants to report feed health; the last applied sequence is kept in the
// unexported lastSeq field.
type Subscriber struct {
	Mirror *orderbook.LimitOrderBook

	conn *net.UDPConn

	haveSeq       bool
	lastSeq       uint32
	SessionActive bool
}

// NewSubscriber joins groupAddr on iface (nil for the default
// interface) and returns a Subscriber ready for Run. mirror is typically
// built with a nil BookListener, since the mirror itself has nothing
// further to fan out to.
func NewSubscriber(groupAddr string, iface *net.Interface, mirror *orderbook.LimitOrderBook) (*Subscriber, error) {
	addr, err := net.ResolveUDPAddr("udp4", groupAddr)
	if err != nil {
		return nil, err
	}
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: addr.IP, Port: addr.Port})
	if err != nil {
		return nil, err
	}
	pc := ipv4.NewPacketConn(conn)
	if err := pc.JoinGroup(iface, addr); err != nil {
		conn.Close()
		return nil, err
	}
	return &Subscriber{Mirror: mirror, conn: conn}, nil
}

// Run reads datagrams until the connection is closed.
func (s *Subscriber) Run() error {
	buf := make([]byte, md.FrameSize)
	for {
		n, _, err := s.conn.ReadFromUDP(buf)
		if err != nil {
			return err
		}
		if n != md.FrameSize {
			continue // a malformed/truncated datagram
		}
		s.apply(buf)
	}
}

// Close stops the subscriber.
func (s *Subscriber) Close() error {
	return s.conn.Close()
}

func (s *Subscriber) apply(frame []byte) {
	hdr := md.DecodeHeader(frame)
	if int(hdr.Length) != md.HeaderSize+payloadLen(hdr.Kind) {
		return // declared length disagrees with the kind's fixed payload
	}
	s.checkSequence(hdr.Seq)

	switch hdr.Kind {
	case md.KindStartOfSession:
		s.SessionActive = true
	case md.KindEndOfSession:
		s.SessionActive = false
	case md.KindClear:
		s.Mirror.Clear()
	case md.KindAddOrder:
		m, err := md.DecodeAddOrder(frame)
		if err != nil {
			logs.Errorf("mdsub: %v", err)
			return
		}
		s.Mirror.InsertAt(m.UID, m.Side, m.Quantity, m.Price)
	case md.KindDeleteOrder:
		m := md.DecodeDeleteOrder(frame)
		if s.Mirror.Has(m.UID) {
			_ = s.Mirror.Cancel(m.UID)
		} else {
			logs.Infof("mdsub: delete for unknown uid %d", m.UID)
		}
	case md.KindTrade:
		m, err := md.DecodeTrade(frame)
		if err != nil {
			logs.Errorf("mdsub: %v", err)
			return
		}
		if s.Mirror.Has(m.UID) {
			_ = s.Mirror.Reduce(m.UID, m.Quantity)
		}
	}
}

// checkSequence logs a gap and resynchronizes to the observed sequence
// rather than requesting replay -- this is a best-effort feed, not a
// reliable one.
func (s *Subscriber) checkSequence(seq uint32) {
	if s.haveSeq && seq != s.lastSeq+1 {
		logs.Infof("mdsub: sequence gap: expected %d, got %d", s.lastSeq+1, seq)
	}
	s.lastSeq = seq
	s.haveSeq = true
}

func payloadLen(kind md.Kind) int {
	switch kind {
	case md.KindAddOrder, md.KindTrade:
		return 21
	case md.KindDeleteOrder:
		return 8
	default:
		return 0
	}
}
