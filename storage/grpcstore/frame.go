package grpcstore

import (
	"fmt"

	"github.com/ipfs/go-cid"
)

// encodeFrame prepends the CID bytes to the block bytes. CID bytes are
// self-delimiting, so the frame needs no length field.
func encodeFrame(id cid.Cid, data []byte) []byte {
	raw := id.Bytes()
	out := make([]byte, 0, len(raw)+len(data))
	out = append(out, raw...)
	return append(out, data...)
}

// decodeFrame splits a frame back into CID and block bytes.
func decodeFrame(frame []byte) (cid.Cid, []byte, error) {
	n, id, err := cid.CidFromBytes(frame)
	if err != nil {
		return cid.Undef, nil, fmt.Errorf("grpcstore: malformed block frame: %w", err)
	}
	return id, frame[n:], nil
}
