// Package memstore provides an in-memory content-addressable store. It is
// the reference Sink/Resolver pair for tests and for ephemeral round-trip
// work where no persistence is wanted.
package memstore

import (
	"context"
	"sync"

	"github.com/ipfs/go-cid"

	"xdao.co/inlinedag/storage"
)

// CAS is an in-memory CAS, safe for concurrent use. The zero value is
// ready to use.
type CAS struct {
	mu     sync.RWMutex
	blocks map[cid.Cid][]byte
}

// New returns an empty in-memory CAS.
func New() *CAS { return &CAS{} }

var _ storage.CAS = (*CAS)(nil)

func (c *CAS) Put(ctx context.Context, id cid.Cid, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := storage.Verify(id, data); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.blocks[id]; ok {
		if string(existing) != string(data) {
			return storage.ErrImmutable
		}
		return nil
	}
	if c.blocks == nil {
		c.blocks = make(map[cid.Cid][]byte)
	}
	c.blocks[id] = append([]byte(nil), data...)
	return nil
}

func (c *CAS) Resolve(ctx context.Context, id cid.Cid) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	b, ok := c.blocks[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (c *CAS) Has(ctx context.Context, id cid.Cid) bool {
	if !id.Defined() {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.blocks[id]
	return ok
}

// Len returns the number of stored blocks.
func (c *CAS) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.blocks)
}

// CIDs returns the CIDs of all stored blocks, in unspecified order.
func (c *CAS) CIDs() []cid.Cid {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]cid.Cid, 0, len(c.blocks))
	for id := range c.blocks {
		out = append(out, id)
	}
	return out
}
