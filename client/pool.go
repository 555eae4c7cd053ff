package client

import (
	"sync"
	"time"

	"github.com/zunkfs/zunkdb/libs/log"
)

const (
	// defaultCacheCapacity bounds the live connection cache. When a release
	// pushes the cache over capacity, the least-recently-released entry is
	// closed and dropped.
	defaultCacheCapacity = 100

	// defaultQuarantine is how long an address that failed to complete its
	// handshake is excluded from new connection attempts.
	defaultQuarantine = 60 * time.Second
)

// AcquireStatus is the tag of a Pool.Acquire result.
type AcquireStatus int

const (
	// AcquireConn means a live cached connection was found; the caller now
	// owns it.
	AcquireConn AcquireStatus = iota
	// AcquireQuarantined means the address recently failed to connect and
	// must not be attempted for the current request.
	AcquireQuarantined
	// AcquireNotFound means nothing is known about the address; the caller
	// must establish a fresh connection.
	AcquireNotFound
)

type quarantineEntry struct {
	addr   PeerAddress
	expiry time.Time
}

// Pool is the connection cache shared by every request a client runs. It
// holds reusable live connections in release-recency order and a set of
// time-quarantined addresses known to be unreachable. Requests run
// concurrently from independent callers, so all access is serialized by one
// mutex, held only for the duration of each Acquire/Release call.
//
// Separating "address recently failed to connect" from "address connected
// and finished its exchange" avoids retrying unreachable peers within a hot
// loop while still reusing healthy sockets across unrelated requests,
// amortizing TCP handshake cost.
type Pool struct {
	logger  log.Logger
	metrics *Metrics

	capacity   int
	quarantine time.Duration
	now        func() time.Time

	mtx  sync.Mutex
	live []*peerConn // front is the most recently released
	dead []quarantineEntry
}

func newPool(logger log.Logger, metrics *Metrics) *Pool {
	return &Pool{
		logger:     logger,
		metrics:    metrics,
		capacity:   defaultCacheCapacity,
		quarantine: defaultQuarantine,
		now:        time.Now,
	}
}

// Acquire looks up addr. If a live connection exists it is removed from the
// cache and returned; ownership passes to the caller. Expired quarantine
// entries encountered during the scan are dropped for good.
func (p *Pool) Acquire(addr PeerAddress) (*peerConn, AcquireStatus) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	for i, conn := range p.live {
		if conn.addr == addr {
			p.live = append(p.live[:i], p.live[i+1:]...)
			p.metrics.CacheHits.Add(1)
			return conn, AcquireConn
		}
	}

	now := p.now()
	kept := p.dead[:0]
	quarantined := false
	for _, entry := range p.dead {
		if now.After(entry.expiry) {
			continue
		}
		kept = append(kept, entry)
		if entry.addr == addr {
			quarantined = true
		}
	}
	p.dead = kept

	if quarantined {
		p.metrics.QuarantineHits.Add(1)
		return nil, AcquireQuarantined
	}
	return nil, AcquireNotFound
}

// Release takes ownership of a connection back from a request and classifies
// it: a connection whose TCP handshake never completed has its socket closed
// and its address quarantined, everything else goes to the front of the live
// cache, evicting the oldest entry if the cache is full.
//
// The caller must have stopped the connection's I/O goroutine first.
func (p *Pool) Release(conn *peerConn) {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	if !conn.handshakeDone() {
		conn.close()
		p.dead = append(p.dead, quarantineEntry{
			addr:   conn.addr,
			expiry: p.now().Add(p.quarantine),
		})
		p.logger.Debug("quarantined peer", "addr", conn.addr.String(), "for", p.quarantine.String())
		return
	}

	p.live = append([]*peerConn{conn}, p.live...)
	if len(p.live) > p.capacity {
		oldest := p.live[len(p.live)-1]
		p.live = p.live[:len(p.live)-1]
		oldest.close()
		p.metrics.CacheEvictions.Add(1)
		p.logger.Debug("evicted cached connection", "addr", oldest.addr.String())
	}
}

// Close tears down every cached connection. Quarantine entries are plain
// addresses and need no cleanup.
func (p *Pool) Close() {
	p.mtx.Lock()
	defer p.mtx.Unlock()

	for _, conn := range p.live {
		conn.close()
	}
	p.live = nil
	p.dead = nil
}
