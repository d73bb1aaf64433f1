package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/ipfs/go-cid"
)

// MultiCAS provides deterministic, ordered fallback across multiple CAS
// adapters.
//
// Resolution order is the slice order in Adapters; callers MUST supply a
// fixed order. A transient failure from any adapter aborts the fallback
// chain, since skipping past it could mask a block that is merely
// temporarily unreachable.
//
// Put writes only to the first adapter; PutAll replicates to every adapter.
type MultiCAS struct {
	Adapters []CAS
}

var _ CAS = MultiCAS{}

func (m MultiCAS) Put(ctx context.Context, id cid.Cid, data []byte) error {
	if len(m.Adapters) == 0 {
		return errors.New("storage: MultiCAS has no adapters")
	}
	return m.Adapters[0].Put(ctx, id, data)
}

// PutAll writes the block to every adapter. The first failure aborts.
func (m MultiCAS) PutAll(ctx context.Context, id cid.Cid, data []byte) error {
	if len(m.Adapters) == 0 {
		return errors.New("storage: MultiCAS has no adapters")
	}
	for i, cas := range m.Adapters {
		if cas == nil {
			return fmt.Errorf("storage: nil CAS at index %d", i)
		}
		if err := cas.Put(ctx, id, data); err != nil {
			return err
		}
	}
	return nil
}

func (m MultiCAS) Resolve(ctx context.Context, id cid.Cid) ([]byte, error) {
	for _, cas := range m.Adapters {
		b, err := cas.Resolve(ctx, id)
		if err == nil {
			return b, nil
		}
		if IsNotFound(err) {
			continue
		}
		return nil, err
	}
	return nil, ErrNotFound
}

func (m MultiCAS) Has(ctx context.Context, id cid.Cid) bool {
	for _, cas := range m.Adapters {
		if cas.Has(ctx, id) {
			return true
		}
	}
	return false
}
