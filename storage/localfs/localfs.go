// Package localfs provides a local filesystem-backed content-addressable
// store.
//
// Objects are stored immutably, one file per block, keyed strictly by CID.
// Filenames are the multibase base32 encoding of the CID bytes so they are
// safe on case-insensitive filesystems. This implementation is offline and
// deterministic: it never uses the network and never depends on wall-clock
// time.
package localfs

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/ipfs/go-cid"

	"xdao.co/inlinedag/cidutil"
	"xdao.co/inlinedag/storage"
)

// CAS is a filesystem CAS rooted at a directory.
type CAS struct {
	root string
}

// New constructs a filesystem CAS rooted at root. The directory is created
// if needed.
func New(root string) (*CAS, error) {
	if root == "" {
		return nil, errors.New("localfs: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	return &CAS{root: root}, nil
}

var _ storage.CAS = (*CAS)(nil)

func (c *CAS) Put(ctx context.Context, id cid.Cid, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := storage.Verify(id, data); err != nil {
		return err
	}

	path := c.pathFor(id)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o444)
	if err != nil {
		if os.IsExist(err) {
			existing, rerr := c.Resolve(ctx, id)
			if rerr != nil {
				// The file exists but is unreadable or corrupted:
				// treat as an immutability violation.
				return storage.ErrImmutable
			}
			if string(existing) != string(data) {
				return storage.ErrImmutable
			}
			return nil
		}
		return err
	}
	defer f.Close()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}

func (c *CAS) Resolve(ctx context.Context, id cid.Cid) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !id.Defined() {
		return nil, storage.ErrInvalidCID
	}
	b, err := os.ReadFile(c.pathFor(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
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
	_, err := os.Stat(c.pathFor(id))
	return err == nil
}

func (c *CAS) pathFor(id cid.Cid) string {
	name := cidutil.Filename(id)
	if len(name) < 3 {
		return filepath.Join(c.root, name)
	}
	// Shard by the first two payload characters after the multibase prefix.
	return filepath.Join(c.root, name[1:3], name)
}
