package chunk_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zunkfs/zunkdb/chunk"
)

func TestSumVerify(t *testing.T) {
	data := make([]byte, chunk.Size)
	copy(data, "some chunk payload")

	digest := chunk.Sum(data)
	require.Len(t, []byte(digest), chunk.DigestSize)
	assert.True(t, chunk.Verify(data, digest))

	data[0] ^= 0xff
	assert.False(t, chunk.Verify(data, digest))
}

func TestParseDigest(t *testing.T) {
	digest := chunk.Sum([]byte("x"))

	parsed, err := chunk.ParseDigest(digest.String())
	require.NoError(t, err)
	assert.Equal(t, digest, parsed)

	_, err = chunk.ParseDigest("zzzz")
	require.ErrorIs(t, err, chunk.ErrBadDigest)

	// Right alphabet, wrong length.
	_, err = chunk.ParseDigest(strings.Repeat("ab", chunk.DigestSize+1))
	require.ErrorIs(t, err, chunk.ErrBadDigest)
}
