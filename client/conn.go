package client

import (
	"bufio"
	"context"
	"net"
	"sync"
	"time"

	"github.com/zunkfs/zunkdb/libs/log"
)

// connState tracks where a peer connection is in its lifecycle:
//
//	New → Connecting → Connected → closed
//
// A connection released while still Connecting had its handshake cut short
// and gets its address quarantined; a connection released while Connected
// goes back into the live cache.
type connState int32

const (
	connStateNew connState = iota
	connStateConnecting
	connStateConnected
	connStateClosed
)

type connEventKind int

const (
	// The TCP handshake completed and the outbound message was queued.
	eventConnected connEventKind = iota
	// The connection attempt failed outright (refused, unreachable).
	eventDialFailed
	// One complete inbound line was parsed.
	eventMessage
	// The peer closed the connection or an I/O error occurred.
	eventClosed
)

// connEvent is what a connection's goroutine reports back to the request
// loop that owns it. Events from one connection arrive in order; events from
// different connections interleave arbitrarily.
type connEvent struct {
	kind connEventKind
	conn *peerConn
	msg  Message
	err  error
}

// peerConn is one TCP connection to a peer, together with the goroutine that
// drives its I/O while a request has it attached. A peerConn is exclusively
// owned by exactly one of: an active request, the pool's live cache, or the
// pool's quarantine list.
type peerConn struct {
	addr   PeerAddress
	logger log.Logger

	mtx      sync.Mutex
	tcp      net.Conn // nil until the dial completes
	state    connState
	stopping bool

	stopCh chan struct{} // closed by stop(); tells the goroutine to bail out
	doneCh chan struct{} // closed by the goroutine on exit
}

func newPeerConn(logger log.Logger, addr PeerAddress) *peerConn {
	return &peerConn{
		addr:   addr,
		logger: logger.With("peer", addr.String()),
		state:  connStateNew,
	}
}

// handshakeDone reports whether the TCP handshake ever completed. The pool
// uses it to decide between re-caching and quarantining on release.
func (p *peerConn) handshakeDone() bool {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.state == connStateConnected
}

func (p *peerConn) setConn(tcp net.Conn) (stopped bool) {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	if p.stopping {
		return true
	}
	p.tcp = tcp
	p.state = connStateConnected
	return false
}

func (p *peerConn) setState(s connState) {
	p.mtx.Lock()
	p.state = s
	p.mtx.Unlock()
}

func (p *peerConn) isStopping() bool {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	return p.stopping
}

// start attaches the connection to a request loop: it resets the stop
// plumbing and launches the goroutine that dials (if needed), sends the
// serialized request, and feeds parsed inbound lines to events. It is called
// by the request loop both for fresh connections and for connections reused
// from the live cache.
func (p *peerConn) start(ctx context.Context, out []byte, events chan<- connEvent) {
	p.mtx.Lock()
	p.stopping = false
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.mtx.Unlock()

	go p.run(ctx, out, events)
}

func (p *peerConn) run(ctx context.Context, out []byte, events chan<- connEvent) {
	defer close(p.doneCh)

	if p.tcp == nil {
		p.setState(connStateConnecting)

		// The dial is bounded by the request context: a peer still
		// mid-handshake when the request ends is reconciled as quarantined.
		var dialer net.Dialer
		tcp, err := dialer.DialContext(ctx, "tcp", p.addr.String())
		if err != nil {
			p.logger.Debug("connect failed", "err", err)
			p.send(events, connEvent{kind: eventDialFailed, conn: p, err: err})
			return
		}
		if p.setConn(tcp) {
			// The request went away while we were dialing.
			_ = tcp.Close()
			return
		}
	}

	if !p.send(events, connEvent{kind: eventConnected, conn: p}) {
		return
	}

	if _, err := p.tcp.Write(out); err != nil {
		if !p.isStopping() {
			p.send(events, connEvent{kind: eventClosed, conn: p, err: err})
		}
		return
	}

	scanner := bufio.NewScanner(p.tcp)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
	scanner.Split(scanLines)

	for scanner.Scan() {
		msg := parseMessage(scanner.Bytes())
		if msg == nil {
			continue
		}
		if msgStore, ok := msg.(StoreChunk); ok {
			// The scanner's buffer is reused; payloads must not alias it.
			data := make([]byte, len(msgStore.Data))
			copy(data, msgStore.Data)
			msg = StoreChunk{Data: data}
		}
		if !p.send(events, connEvent{kind: eventMessage, conn: p, msg: msg}) {
			return
		}
	}

	if p.isStopping() {
		return
	}
	p.send(events, connEvent{kind: eventClosed, conn: p, err: scanner.Err()})
}

// send delivers an event unless the connection is being stopped, in which
// case the event is dropped and the goroutine should exit.
func (p *peerConn) send(events chan<- connEvent, ev connEvent) bool {
	select {
	case events <- ev:
		return true
	case <-p.stopCh:
		return false
	}
}

// stop detaches the connection from its request loop: the I/O goroutine is
// told to exit and stop blocks until it has. The underlying socket stays
// open; it is the pool's job to close or cache it afterwards.
func (p *peerConn) stop() {
	p.mtx.Lock()
	if p.doneCh == nil {
		p.mtx.Unlock()
		return
	}
	if !p.stopping {
		p.stopping = true
		close(p.stopCh)
		if p.tcp != nil {
			// Unblock a goroutine parked in Read or Write.
			_ = p.tcp.SetDeadline(time.Now())
		}
	}
	done := p.doneCh
	tcp := p.tcp
	p.mtx.Unlock()

	<-done

	if tcp != nil {
		_ = tcp.SetDeadline(time.Time{})
	}
}

// close tears the connection down for good.
func (p *peerConn) close() {
	p.mtx.Lock()
	defer p.mtx.Unlock()
	p.state = connStateClosed
	if p.tcp != nil {
		_ = p.tcp.Close()
		p.tcp = nil
	}
}
