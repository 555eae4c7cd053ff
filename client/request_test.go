package client

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/zunkfs/zunkdb/chunk"
)

func TestRequestAddAddrDedup(t *testing.T) {
	_, digest := makeChunk(12)
	req := newRequest(nil, digest, nil, testAddr(9000), 0)

	assert.False(t, req.addAddr(testAddr(9000)), "bootstrap is already known")
	assert.True(t, req.addAddr(testAddr(9001)))
	assert.False(t, req.addAddr(testAddr(9001)))
	assert.True(t, req.addAddr(testAddr(9002)))

	assert.Equal(t, []PeerAddress{testAddr(9000), testAddr(9001), testAddr(9002)}, req.addrs)
}

func TestRequestOutcome(t *testing.T) {
	assert.Equal(t, "ok", requestOutcome(nil))
	assert.Equal(t, "timeout", requestOutcome(ErrTimeout))
	assert.Equal(t, "exhausted", requestOutcome(ErrExhausted))
	assert.Equal(t, "error", requestOutcome(chunk.ErrBadDigest))
}
