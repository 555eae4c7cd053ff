package client

import (
	"context"
	"errors"
	"time"

	"github.com/zunkfs/zunkdb/chunk"
)

// request is one logical chunk operation: a read (buf != nil) or a write. It
// owns a growing, deduplicated candidate address list seeded with the
// bootstrap address, the set of connections currently attached, and the
// completion bookkeeping. It lives exactly as long as one driver loop.
type request struct {
	out    []byte       // serialized outbound wire message
	digest chunk.Digest // target digest, also the request_done match key
	buf    []byte       // destination for chunk data; nil for writes
	filled bool         // whether buf holds a candidate payload

	addrs    []PeerAddress // candidate peers; grows via store_node, never shrinks
	next     int           // how many candidates have been dispatched
	limit    int           // max connections in flight; 0 means no limit
	inflight int
	done     int // completions observed

	conns  []*peerConn
	events chan connEvent
}

func newRequest(out []byte, digest chunk.Digest, buf []byte, bootstrap PeerAddress, limit int) *request {
	r := &request{
		out:    out,
		digest: digest,
		buf:    buf,
		limit:  limit,
		events: make(chan connEvent, 16),
	}
	r.addAddr(bootstrap)
	return r
}

// addAddr appends a candidate address unless it is already known. Peers
// frequently volunteer addresses the request has seen before, from each
// other or repeatedly.
func (r *request) addAddr(addr PeerAddress) bool {
	for _, known := range r.addrs {
		if known == addr {
			return false
		}
	}
	r.addrs = append(r.addrs, addr)
	return true
}

func (r *request) attach(conn *peerConn) {
	r.conns = append(r.conns, conn)
}

func (r *request) detach(conn *peerConn) {
	for i, c := range r.conns {
		if c == conn {
			r.conns = append(r.conns[:i], r.conns[i+1:]...)
			return
		}
	}
}

func (r *request) attached(conn *peerConn) bool {
	for _, c := range r.conns {
		if c == conn {
			return true
		}
	}
	return false
}

// run drives the request until success, timeout or candidate exhaustion.
func (c *Client) run(ctx context.Context, req *request) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer c.reconcile(req)
	defer cancel() // runs before reconcile, unblocking any in-flight dials

	for {
		c.dispatch(ctx, req)

		if err := ctx.Err(); err != nil {
			return timeoutErr(err)
		}
		if len(req.conns) == 0 {
			// Nothing attached and dispatch found no candidate worth
			// contacting: the request cannot make progress anymore.
			return ErrExhausted
		}

		select {
		case <-ctx.Done():
			return timeoutErr(ctx.Err())
		case ev := <-req.events:
			c.handleEvent(req, ev)
		}

		if req.done == 0 {
			continue
		}
		if req.buf == nil {
			// Write: any completion is success.
			return nil
		}
		if req.filled && chunk.Verify(req.buf, req.digest) {
			return nil
		}

		// Either no payload arrived with this completion or it failed
		// verification: that peer did not actually have the chunk. Discard
		// the answer and keep soliciting other candidates.
		req.filled = false
		req.done--
	}
}

// dispatch opens connections to undispatched candidates until the in-flight
// limit is reached. Quarantined candidates are skipped without consuming a
// concurrency slot.
func (c *Client) dispatch(ctx context.Context, req *request) {
	for req.next < len(req.addrs) && (req.limit <= 0 || req.inflight < req.limit) {
		addr := req.addrs[req.next]
		req.next++

		conn, status := c.pool.Acquire(addr)
		switch status {
		case AcquireQuarantined:
			c.logger.Debug("skipping quarantined peer", "addr", addr.String())
			continue
		case AcquireNotFound:
			conn = newPeerConn(c.logger, addr)
		case AcquireConn:
			conn.logger.Debug("reusing cached connection")
		}

		req.attach(conn)
		req.inflight++
		conn.start(ctx, req.out, req.events)
	}
}

func (c *Client) handleEvent(req *request, ev connEvent) {
	if !req.attached(ev.conn) {
		// Stale event from a connection already released or discarded.
		return
	}

	switch ev.kind {
	case eventConnected:
		ev.conn.logger.Debug("connected")

	case eventDialFailed:
		c.metrics.DialFailures.Add(1)
		req.detach(ev.conn)
		req.inflight--
		// The handshake never completed, so this quarantines the address.
		c.pool.Release(ev.conn)

	case eventClosed:
		ev.conn.logger.Debug("connection lost", "err", ev.err)
		req.detach(ev.conn)
		req.inflight--
		ev.conn.close()

	case eventMessage:
		c.handleMessage(req, ev.conn, ev.msg)
	}
}

func (c *Client) handleMessage(req *request, conn *peerConn, msg Message) {
	switch msg := msg.(type) {
	case StoreChunk:
		// Decode into the destination exactly once; later payloads are
		// ignored until a failed verification re-arms the fill target.
		if req.buf != nil && !req.filled {
			copy(req.buf, msg.Data)
			req.filled = true
		}

	case RequestDone:
		if msg.Digest != req.digest.String() {
			return
		}
		req.done++
		req.inflight--
		req.detach(conn)
		conn.stop()
		c.pool.Release(conn)

	case StoreNode:
		if req.addAddr(msg.Addr) {
			c.metrics.PeersDiscovered.Add(1)
			conn.logger.Debug("peer volunteered address", "addr", msg.Addr.String())
		}
	}
}

// reconcile hands every connection still attached to the request back to the
// pool, live or quarantined as appropriate, and returns the request's
// outbound buffer.
func (c *Client) reconcile(req *request) {
	for _, conn := range req.conns {
		conn.stop()
		c.pool.Release(conn)
	}
	req.conns = nil
	req.inflight = 0

	putMessageBuf(req.out)
	req.out = nil
}

func timeoutErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	return err
}

// requestOutcome maps a driver result onto a metrics label.
func requestOutcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrExhausted):
		return "exhausted"
	default:
		return "error"
	}
}

func observeRequest(m *Metrics, start time.Time, err error) {
	outcome := requestOutcome(err)
	m.Requests.With("outcome", outcome).Add(1)
	m.RequestDurationSeconds.With("outcome", outcome).Observe(time.Since(start).Seconds())
}
