// Package storage defines the block storage capabilities consumed by the
// inline and extract engines, with a shared error taxonomy and adapters
// for composing backends.
//
// Blocks are keyed by CID, and the CID's prefix carries the codec and
// multihash tags the bytes were produced under. Stores therefore cannot
// re-derive a block's CID from bytes alone; all puts are keyed, and
// implementations verify the bytes against the requested CID's multihash.
package storage

import (
	"context"

	"github.com/ipfs/go-cid"
)

// Resolver retrieves block bytes by CID.
//
// Contract:
// - A missing block is ErrNotFound (permanent).
// - Failures that may succeed on retry wrap ErrTransient.
// - Returned bytes MUST hash to the requested CID.
type Resolver interface {
	Resolve(ctx context.Context, id cid.Cid) ([]byte, error)
}

// Sink accepts block bytes keyed by CID.
//
// Contract:
// - Put MUST be idempotent: re-writing an existing (cid, bytes) pair is a
//   no-op.
// - Stored objects MUST be immutable: a put of different bytes under an
//   existing CID is ErrImmutable.
// - Implementations SHOULD verify bytes against the CID's multihash and
//   reject mismatches with ErrCIDMismatch.
type Sink interface {
	Put(ctx context.Context, id cid.Cid, data []byte) error
}

// CAS is a content-addressable store: a Resolver and Sink over one block
// space, plus existence checks.
type CAS interface {
	Resolver
	Sink
	Has(ctx context.Context, id cid.Cid) bool
}

// Verify checks that data hashes to id under id's own multihash tag.
// Recomputation goes through the CID's full prefix so the version is
// preserved; CIDv0 keys verify against CIDv0. Returns ErrInvalidCID for
// undefined CIDs and ErrCIDMismatch when the digest differs.
func Verify(id cid.Cid, data []byte) error {
	if !id.Defined() {
		return ErrInvalidCID
	}
	got, err := id.Prefix().Sum(data)
	if err != nil {
		return err
	}
	if !got.Equals(id) {
		return ErrCIDMismatch
	}
	return nil
}
