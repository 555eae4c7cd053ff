// Package chunkdb is the registry that chunk-store backends plug into. A
// backend is selected by the scheme prefix of its spec string, e.g.
// "zunkdb:127.0.0.1:9876,timeout=30".
package chunkdb

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/zunkfs/zunkdb/chunk"
)

// Mode selects the capabilities requested from a backend.
type Mode int

const (
	// ReadOnly backends only ever fetch chunks.
	ReadOnly Mode = iota
	// ReadWrite backends fetch and store chunks.
	ReadWrite
)

var (
	// ErrUnknownScheme is returned by Open for an unregistered scheme.
	ErrUnknownScheme = errors.New("unknown chunkdb scheme")

	// ErrReadOnly is returned when a write is attempted on a backend opened
	// in read-only mode.
	ErrReadOnly = errors.New("chunkdb opened read-only")
)

// Backend reads chunks by digest. ReadChunk blocks until the chunk is
// retrieved and verified, or the backend gives up.
type Backend interface {
	ReadChunk(ctx context.Context, digest chunk.Digest) ([]byte, error)
}

// WriteBackend is a Backend that can also store chunks. Backends opened in
// read-only mode need not implement it.
type WriteBackend interface {
	Backend

	WriteChunk(ctx context.Context, data []byte, digest chunk.Digest) error
}

// Ctor constructs a backend from the part of the spec string after the
// scheme prefix.
type Ctor func(mode Mode, spec string) (Backend, error)

var (
	ctorsMtx sync.RWMutex
	ctors    = map[string]Ctor{}
)

// Register makes a backend constructor available under the given scheme.
// Registering the same scheme twice panics; it is a wiring bug.
func Register(scheme string, ctor Ctor) {
	ctorsMtx.Lock()
	defer ctorsMtx.Unlock()

	if _, ok := ctors[scheme]; ok {
		panic(fmt.Sprintf("chunkdb scheme %q registered twice", scheme))
	}
	ctors[scheme] = ctor
}

// Open constructs the backend named by the scheme prefix of spec, passing it
// the remainder of the string.
func Open(mode Mode, spec string) (Backend, error) {
	scheme, rest, ok := cutScheme(spec)
	if !ok {
		return nil, fmt.Errorf("chunkdb spec %q has no scheme", spec)
	}

	ctorsMtx.RLock()
	ctor, ok := ctors[scheme]
	ctorsMtx.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (registered: %s)",
			ErrUnknownScheme, scheme, strings.Join(Schemes(), ", "))
	}

	return ctor(mode, rest)
}

// Schemes lists the registered scheme names in sorted order.
func Schemes() []string {
	ctorsMtx.RLock()
	defer ctorsMtx.RUnlock()

	schemes := make([]string, 0, len(ctors))
	for scheme := range ctors {
		schemes = append(schemes, scheme)
	}
	sort.Strings(schemes)
	return schemes
}

func cutScheme(spec string) (scheme, rest string, ok bool) {
	i := strings.IndexByte(spec, ':')
	if i <= 0 {
		return "", "", false
	}
	return spec[:i], spec[i+1:], true
}
