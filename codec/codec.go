// Package codec defines the codec capability: deterministic translation
// between nodes and block bytes, keyed by multicodec tag.
package codec

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"xdao.co/inlinedag/ipld"
)

// ErrUnknownCodec is returned when no codec is registered for a tag.
var ErrUnknownCodec = errors.New("codec: unknown codec tag")

// Codec translates between nodes and bytes.
//
// Contract:
// - Encode MUST be deterministic: the same logical node always produces
//   byte-identical output (canonical map key order included).
// - Decode(Encode(n)) MUST be structurally equal to n for every node the
//   codec supports.
type Codec interface {
	// Tag is the multicodec code identifying this codec in CID prefixes.
	Tag() uint64
	Encode(n *ipld.Node) ([]byte, error)
	Decode(data []byte) (*ipld.Node, error)
}

// Registry maps multicodec tags to codecs. The zero value is empty and
// ready to use. Registries are safe for concurrent lookup after setup.
type Registry struct {
	mu     sync.RWMutex
	codecs map[uint64]Codec
}

// NewRegistry returns a registry holding the given codecs.
func NewRegistry(codecs ...Codec) (*Registry, error) {
	r := &Registry{}
	for _, c := range codecs {
		if err := r.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a codec. Registering two codecs with the same tag is an
// error.
func (r *Registry) Register(c Codec) error {
	if c == nil {
		return errors.New("codec: nil codec")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.codecs == nil {
		r.codecs = make(map[uint64]Codec)
	}
	if _, exists := r.codecs[c.Tag()]; exists {
		return fmt.Errorf("codec: tag 0x%x already registered", c.Tag())
	}
	r.codecs[c.Tag()] = c
	return nil
}

// MustRegister is Register but panics on error. Intended for init-time
// registration into the default registry.
func (r *Registry) MustRegister(c Codec) {
	if err := r.Register(c); err != nil {
		panic(err)
	}
}

// Lookup returns the codec for tag, or ErrUnknownCodec.
func (r *Registry) Lookup(tag uint64) (Codec, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.codecs[tag]
	if !ok {
		return nil, fmt.Errorf("%w: 0x%x", ErrUnknownCodec, tag)
	}
	return c, nil
}

// Tags returns the registered tags, sorted.
func (r *Registry) Tags() []uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]uint64, 0, len(r.codecs))
	for tag := range r.codecs {
		out = append(out, tag)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

var defaultRegistry = &Registry{}

// Default returns the process-wide registry. Codec packages register
// themselves into it from init, so a blank import is enough to make a codec
// available to engines that pass a nil registry.
func Default() *Registry { return defaultRegistry }
