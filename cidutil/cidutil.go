// Package cidutil derives and renders content identifiers.
//
// A CID binds three things: the multicodec tag of the codec that produced
// the block bytes, the multihash tag of the digest function, and the digest
// itself. Everything here is deterministic: the same bytes under the same
// tags always produce the same CID.
package cidutil

import (
	"fmt"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multibase"
	"github.com/multiformats/go-multihash"
)

// Hasher is the digest capability: bytes plus a multihash tag to a
// multihash. Implementations must be deterministic.
type Hasher interface {
	Sum(hashTag uint64, data []byte) (multihash.Multihash, error)
}

// MultihashSum is the default Hasher, backed by the go-multihash registry
// (sha2-256, sha2-512, blake3, ...).
type MultihashSum struct{}

func (MultihashSum) Sum(hashTag uint64, data []byte) (multihash.Multihash, error) {
	return multihash.Sum(data, hashTag, -1)
}

// NewCID returns a CIDv1 for data under the given codec and multihash tags.
func NewCID(codecTag, hashTag uint64, data []byte) (cid.Cid, error) {
	return NewCIDWith(MultihashSum{}, codecTag, hashTag, data)
}

// NewCIDWith is NewCID with an injected Hasher.
func NewCIDWith(h Hasher, codecTag, hashTag uint64, data []byte) (cid.Cid, error) {
	sum, err := h.Sum(hashTag, data)
	if err != nil {
		return cid.Undef, fmt.Errorf("cidutil: multihash 0x%x: %w", hashTag, err)
	}
	return cid.NewCidV1(codecTag, sum), nil
}

// CIDv1RawSHA256 returns a CIDv1 (raw + sha2-256) for data. This is the
// conventional identity for opaque byte blocks.
func CIDv1RawSHA256(data []byte) (cid.Cid, error) {
	return NewCID(cid.Raw, multihash.SHA2_256, data)
}

// Filename returns the base32lower multibase encoding of a CID, suitable as
// a case-insensitive filesystem name.
func Filename(c cid.Cid) string {
	encoded, _ := multibase.Encode(multibase.Base32, c.Bytes())
	return encoded
}
