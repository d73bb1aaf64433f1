// Package redisstore provides a Redis-backed content-addressable store.
//
// Each block is one Redis string value under a configurable key prefix.
// Redis failures are reported as transient (storage.ErrTransient): a
// missing key is the only permanent failure. Blocks are never expired by
// this package; lifecycle is the deployment's concern.
package redisstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ipfs/go-cid"
	"github.com/redis/go-redis/v9"

	"xdao.co/inlinedag/storage"
)

// DefaultKeyPrefix namespaces block keys in a shared Redis.
const DefaultKeyPrefix = "inlinedag:block:"

// Options configures the Redis connection.
type Options struct {
	// URL is the Redis connection string (e.g. "redis://localhost:6379").
	URL string

	// KeyPrefix overrides DefaultKeyPrefix when non-empty.
	KeyPrefix string

	// ConnectTimeout bounds connection establishment. Defaults to 5s.
	ConnectTimeout time.Duration

	// ReadTimeout bounds read operations. Defaults to 30s.
	ReadTimeout time.Duration

	// WriteTimeout bounds write operations. Defaults to 5s.
	WriteTimeout time.Duration
}

// CAS is a Redis-backed CAS.
type CAS struct {
	client *redis.Client
	prefix string
}

// New creates a Redis CAS with the given options.
func New(opts Options) (*CAS, error) {
	if opts.URL == "" {
		opts.URL = "redis://localhost:6379"
	}
	if opts.ConnectTimeout == 0 {
		opts.ConnectTimeout = 5 * time.Second
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 30 * time.Second
	}
	if opts.WriteTimeout == 0 {
		opts.WriteTimeout = 5 * time.Second
	}

	redisOpts, err := redis.ParseURL(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("redisstore: parse URL: %w", err)
	}
	redisOpts.DialTimeout = opts.ConnectTimeout
	redisOpts.ReadTimeout = opts.ReadTimeout
	redisOpts.WriteTimeout = opts.WriteTimeout

	prefix := opts.KeyPrefix
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &CAS{client: redis.NewClient(redisOpts), prefix: prefix}, nil
}

// NewWithClient wraps an existing client, e.g. for tests or shared pools.
func NewWithClient(client *redis.Client, keyPrefix string) *CAS {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	return &CAS{client: client, prefix: keyPrefix}
}

var _ storage.CAS = (*CAS)(nil)

// Close closes the underlying Redis connection.
func (c *CAS) Close() error { return c.client.Close() }

func (c *CAS) Put(ctx context.Context, id cid.Cid, data []byte) error {
	if err := storage.Verify(id, data); err != nil {
		return err
	}
	key := c.key(id)
	set, err := c.client.SetNX(ctx, key, data, 0).Result()
	if err != nil {
		return transient("put", err)
	}
	if set {
		return nil
	}
	existing, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return transient("put", err)
	}
	if string(existing) != string(data) {
		return storage.ErrImmutable
	}
	return nil
}

func (c *CAS) Resolve(ctx context.Context, id cid.Cid) ([]byte, error) {
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	b, err := c.client.Get(ctx, c.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, transient("get", err)
	}
	if err := storage.Verify(id, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (c *CAS) Has(ctx context.Context, id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	n, err := c.client.Exists(ctx, c.key(id)).Result()
	return err == nil && n > 0
}

func (c *CAS) key(id cid.Cid) string { return c.prefix + id.String() }

func transient(op string, err error) error {
	return fmt.Errorf("%w: redis %s: %v", storage.ErrTransient, op, err)
}
