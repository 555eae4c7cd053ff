// Package client implements the zunkdb chunk-store backend: given a chunk
// digest it locates a peer holding that chunk (or willing to store one) by
// fanning the request out over a dynamically discovered set of peers,
// starting from a single bootstrap address.
package client

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/zunkfs/zunkdb/chunk"
	"github.com/zunkfs/zunkdb/chunkdb"
	"github.com/zunkfs/zunkdb/libs/log"
)

// Scheme is the chunkdb scheme this backend registers under.
const Scheme = "zunkdb"

// DefaultTimeout bounds a single chunk request unless the backend spec
// string overrides it.
const DefaultTimeout = 60 * time.Second

var (
	// ErrTimeout is returned when a request's deadline expires before any
	// peer completes the exchange.
	ErrTimeout = errors.New("chunk request timed out")

	// ErrExhausted is returned when every candidate peer has been tried (or
	// was quarantined) without a verified completion.
	ErrExhausted = errors.New("candidate peers exhausted")

	// ErrChunkSize is returned for write payloads that are not exactly one
	// chunk.
	ErrChunkSize = fmt.Errorf("chunk payload must be exactly %d bytes", chunk.Size)
)

// Config tunes a Client. The zero value is not valid; start from
// DefaultConfig.
type Config struct {
	// Bootstrap is the peer every request's candidate list starts from.
	Bootstrap PeerAddress

	// Timeout bounds each chunk request as a whole.
	Timeout time.Duration

	// MaxConcurrency caps connections in flight per request. 0 means
	// unlimited.
	MaxConcurrency int
}

// DefaultConfig returns a Config for the given bootstrap peer with the
// default timeout and unlimited concurrency.
func DefaultConfig(bootstrap PeerAddress) Config {
	return Config{
		Bootstrap: bootstrap,
		Timeout:   DefaultTimeout,
	}
}

// Validate checks the configuration for obvious mistakes.
func (cfg Config) Validate() error {
	if cfg.Bootstrap.Zero() {
		return errors.New("no bootstrap address")
	}
	if cfg.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if cfg.MaxConcurrency < 0 {
		return errors.New("negative concurrency limit")
	}
	return nil
}

// ParseSpec parses a backend spec of the form
//
//	ip:port[,timeout=SECONDS][,concurrency=N]
//
// into a Config. The address is mandatory and comes first.
func ParseSpec(spec string) (Config, error) {
	opts := strings.Split(spec, ",")

	bootstrap, err := ParsePeerAddress(opts[0])
	if err != nil {
		return Config{}, err
	}
	cfg := DefaultConfig(bootstrap)

	for _, opt := range opts[1:] {
		switch {
		case strings.HasPrefix(opt, "timeout="):
			secs, err := strconv.Atoi(strings.TrimPrefix(opt, "timeout="))
			if err != nil || secs <= 0 {
				return Config{}, fmt.Errorf("bad timeout option %q", opt)
			}
			cfg.Timeout = time.Duration(secs) * time.Second

		case strings.HasPrefix(opt, "concurrency="):
			n, err := strconv.Atoi(strings.TrimPrefix(opt, "concurrency="))
			if err != nil || n <= 0 {
				return Config{}, fmt.Errorf("bad concurrency option %q", opt)
			}
			cfg.MaxConcurrency = n

		default:
			return Config{}, fmt.Errorf("unknown option %q", opt)
		}
	}

	return cfg, nil
}

// Client is the zunkdb chunk-store backend. It is safe for concurrent use:
// each call runs its own request loop, and the only shared mutable state is
// the connection pool.
type Client struct {
	logger  log.Logger
	cfg     Config
	metrics *Metrics
	pool    *Pool
}

// Option sets an optional parameter on a Client.
type Option func(*Client)

// WithMetrics sets the metrics sink.
func WithMetrics(metrics *Metrics) Option {
	return func(c *Client) {
		c.metrics = metrics
		c.pool.metrics = metrics
	}
}

// New creates a chunk-store client for the given configuration.
func New(logger log.Logger, cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid client config: %w", err)
	}

	c := &Client{
		logger:  logger,
		cfg:     cfg,
		metrics: NopMetrics(),
	}
	c.pool = newPool(logger, c.metrics)

	for _, opt := range opts {
		opt(c)
	}

	c.logger.Info("chunk client ready",
		"bootstrap", cfg.Bootstrap.String(),
		"timeout", cfg.Timeout.String(),
		"concurrency", cfg.MaxConcurrency,
	)
	return c, nil
}

// ReadChunk locates and returns the chunk with the given digest. The
// returned data has been verified against the digest; no partial or
// unverified data is ever returned.
func (c *Client) ReadChunk(ctx context.Context, digest chunk.Digest) (_ []byte, err error) {
	if len(digest) != chunk.DigestSize {
		return nil, chunk.ErrBadDigest
	}

	start := time.Now()
	defer func() { observeRequest(c.metrics, start, err) }()

	buf := make([]byte, chunk.Size)
	req := newRequest(encodeFindChunk(digest), digest, buf, c.cfg.Bootstrap, c.cfg.MaxConcurrency)
	if err := c.run(ctx, req); err != nil {
		return nil, fmt.Errorf("read chunk %s: %w", digest, err)
	}
	return buf, nil
}

// WriteChunk stores one chunk on any peer willing to take it. Success means
// at least one peer acknowledged the digest with request_done.
func (c *Client) WriteChunk(ctx context.Context, data []byte, digest chunk.Digest) (err error) {
	if len(data) != chunk.Size {
		return ErrChunkSize
	}
	if len(digest) != chunk.DigestSize {
		return chunk.ErrBadDigest
	}

	start := time.Now()
	defer func() { observeRequest(c.metrics, start, err) }()

	req := newRequest(encodeStoreChunk(data), digest, nil, c.cfg.Bootstrap, c.cfg.MaxConcurrency)
	if err := c.run(ctx, req); err != nil {
		return fmt.Errorf("write chunk %s: %w", digest, err)
	}
	return nil
}

// Close discards all cached connections. In-flight requests are not
// interrupted; cancel their contexts instead.
func (c *Client) Close() error {
	c.pool.Close()
	return nil
}

// readOnly hides the write capability of a client opened in read-only mode.
type readOnly struct {
	c *Client
}

func (r readOnly) ReadChunk(ctx context.Context, digest chunk.Digest) ([]byte, error) {
	return r.c.ReadChunk(ctx, digest)
}

func init() {
	chunkdb.Register(Scheme, func(mode chunkdb.Mode, spec string) (chunkdb.Backend, error) {
		cfg, err := ParseSpec(spec)
		if err != nil {
			return nil, err
		}
		c, err := New(log.NewNopLogger(), cfg)
		if err != nil {
			return nil, err
		}
		if mode == chunkdb.ReadOnly {
			return readOnly{c: c}, nil
		}
		return c, nil
	})
}
