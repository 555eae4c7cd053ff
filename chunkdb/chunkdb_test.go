package chunkdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zunkfs/zunkdb/chunk"
)

type fakeBackend struct {
	mode Mode
	spec string
}

func (f *fakeBackend) ReadChunk(ctx context.Context, digest chunk.Digest) ([]byte, error) {
	return nil, nil
}

func TestOpenDispatch(t *testing.T) {
	Register("fake", func(mode Mode, spec string) (Backend, error) {
		return &fakeBackend{mode: mode, spec: spec}, nil
	})

	backend, err := Open(ReadWrite, "fake:10.0.0.1:9876,timeout=5")
	require.NoError(t, err)

	fake, ok := backend.(*fakeBackend)
	require.True(t, ok)
	assert.Equal(t, ReadWrite, fake.mode)
	assert.Equal(t, "10.0.0.1:9876,timeout=5", fake.spec)

	assert.Contains(t, Schemes(), "fake")
}

func TestOpenErrors(t *testing.T) {
	_, err := Open(ReadOnly, "no-scheme-here")
	require.Error(t, err)

	_, err = Open(ReadOnly, "nosuch:whatever")
	require.ErrorIs(t, err, ErrUnknownScheme)
}

func TestRegisterTwicePanics(t *testing.T) {
	Register("dup", func(Mode, string) (Backend, error) { return nil, nil })
	require.Panics(t, func() {
		Register("dup", func(Mode, string) (Backend, error) { return nil, nil })
	})
}
