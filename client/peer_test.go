package client

import (
	"bufio"
	"encoding/base64"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/creachadair/taskgroup"
	"github.com/stretchr/testify/require"

	"github.com/zunkfs/zunkdb/chunk"
)

// testPeer is a minimal in-process peer: a loopback listener whose accepted
// connections are each driven by the test's handler in its own goroutine.
// stop closes the listener and every open connection, then waits for all
// handler goroutines, so tests can assert with leaktest afterwards.
type testPeer struct {
	t       *testing.T
	ln      net.Listener
	g       *taskgroup.Group
	handler func(*peerSession)

	accepts int32

	mtx   sync.Mutex
	conns []net.Conn
}

func startTestPeer(t *testing.T, handler func(*peerSession)) *testPeer {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	p := &testPeer{t: t, ln: ln, g: taskgroup.New(nil), handler: handler}
	p.g.Go(p.accept)
	t.Cleanup(p.stop)
	return p
}

func (p *testPeer) addr() PeerAddress {
	p.t.Helper()
	addr, err := ParsePeerAddress(p.ln.Addr().String())
	require.NoError(p.t, err)
	return addr
}

func (p *testPeer) acceptCount() int32 {
	return atomic.LoadInt32(&p.accepts)
}

func (p *testPeer) accept() error {
	for {
		conn, err := p.ln.Accept()
		if err != nil {
			return nil
		}
		atomic.AddInt32(&p.accepts, 1)

		p.mtx.Lock()
		p.conns = append(p.conns, conn)
		p.mtx.Unlock()

		p.g.Go(func() error {
			p.handler(newPeerSession(p.t, conn))
			return nil
		})
	}
}

func (p *testPeer) stop() {
	_ = p.ln.Close()
	p.mtx.Lock()
	for _, conn := range p.conns {
		_ = conn.Close()
	}
	p.mtx.Unlock()
	_ = p.g.Wait()
}

// peerSession wraps one accepted connection with line-oriented helpers
// mirroring the wire protocol.
type peerSession struct {
	t       *testing.T
	conn    net.Conn
	scanner *bufio.Scanner
}

func newPeerSession(t *testing.T, conn net.Conn) *peerSession {
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
	scanner.Split(scanLines)
	return &peerSession{t: t, conn: conn, scanner: scanner}
}

// readLine returns the next request line, or "" once the client (or the
// harness teardown) closed the connection.
func (s *peerSession) readLine() string {
	if !s.scanner.Scan() {
		return ""
	}
	return s.scanner.Text()
}

func (s *peerSession) sendf(format string, args ...interface{}) {
	// A write may race the client hanging up; the test asserts on the
	// client-side outcome, not on this send.
	_, _ = fmt.Fprintf(s.conn, format+"\r\n", args...)
}

func (s *peerSession) sendChunk(data []byte) {
	s.sendf("store_chunk %s", base64.StdEncoding.EncodeToString(data))
}

func (s *peerSession) sendDone(digest chunk.Digest) {
	s.sendf("request_done %s", digest)
}

func (s *peerSession) sendNode(addr PeerAddress) {
	s.sendf("store_node %s", addr)
}

// makeChunk builds a deterministic full-size chunk from a seed byte.
func makeChunk(seed byte) ([]byte, chunk.Digest) {
	data := make([]byte, chunk.Size)
	for i := range data {
		data[i] = seed + byte(i%251)
	}
	return data, chunk.Sum(data)
}
