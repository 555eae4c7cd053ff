// Package chunk defines the fixed-size unit of storage and its
// content-addressed digest.
package chunk

import (
	"bytes"
	"crypto/sha1" //nolint:gosec // content addressing, not authentication
	"errors"
	"fmt"

	tmbytes "github.com/zunkfs/zunkdb/libs/bytes"
)

const (
	// Size is the fixed size of every chunk, in bytes. Chunks are the unit
	// of transfer and addressing; partial chunks do not exist.
	Size = 64 * 1024

	// DigestSize is the length of a chunk digest, in bytes.
	DigestSize = sha1.Size
)

// ErrBadDigest is returned when parsing a malformed digest string.
var ErrBadDigest = errors.New("malformed chunk digest")

// Digest is a fixed-size content hash identifying a chunk uniquely. It
// renders as a lowercase hex string, which is also its wire format.
type Digest = tmbytes.HexBytes

// Sum computes the digest of the given data.
func Sum(data []byte) Digest {
	sum := sha1.Sum(data) //nolint:gosec
	return sum[:]
}

// Verify reports whether data hashes to the given digest. It is the guard
// against peers returning corrupt or bogus chunk payloads.
func Verify(data []byte, digest Digest) bool {
	return bytes.Equal(Sum(data), digest)
}

// ParseDigest parses a digest from its hex string form.
func ParseDigest(s string) (Digest, error) {
	var d Digest
	if err := d.UnmarshalText([]byte(s)); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrBadDigest, err)
	}
	if len(d) != DigestSize {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrBadDigest, len(d), DigestSize)
	}
	return d, nil
}
