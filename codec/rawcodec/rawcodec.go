// Package rawcodec implements the raw codec (multicodec 0x55): a block is
// an opaque byte string, and the only node it can carry is a Bytes node.
package rawcodec

import (
	"fmt"

	"github.com/ipfs/go-cid"

	"xdao.co/inlinedag/codec"
	"xdao.co/inlinedag/ipld"
)

// Tag is the raw multicodec code.
const Tag = uint64(cid.Raw)

func init() {
	codec.Default().MustRegister(Codec{})
}

// Codec is the raw codec. The zero value is ready to use.
type Codec struct{}

var _ codec.Codec = Codec{}

func (Codec) Tag() uint64 { return Tag }

func (Codec) Encode(n *ipld.Node) ([]byte, error) {
	if n.Kind() != ipld.KindBytes {
		return nil, fmt.Errorf("rawcodec: cannot encode %s node, raw blocks are bytes only", n.Kind())
	}
	return n.AsBytes(), nil
}

func (Codec) Decode(data []byte) (*ipld.Node, error) {
	return ipld.Bytes(data), nil
}
