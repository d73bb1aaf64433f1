package codec

import (
	"errors"
	"testing"

	"xdao.co/inlinedag/ipld"
)

type fakeCodec struct{ tag uint64 }

func (f fakeCodec) Tag() uint64                     { return f.tag }
func (fakeCodec) Encode(*ipld.Node) ([]byte, error) { return nil, nil }
func (fakeCodec) Decode([]byte) (*ipld.Node, error) { return ipld.Null(), nil }

func TestRegistryLookup(t *testing.T) {
	r, err := NewRegistry(fakeCodec{tag: 0x71}, fakeCodec{tag: 0x55})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	c, err := r.Lookup(0x71)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if c.Tag() != 0x71 {
		t.Fatalf("Lookup returned tag %#x", c.Tag())
	}
	if _, err := r.Lookup(0x99); !errors.Is(err, ErrUnknownCodec) {
		t.Fatalf("Lookup unknown: err = %v, want ErrUnknownCodec", err)
	}
}

func TestRegistryRejectsDuplicateTag(t *testing.T) {
	var r Registry
	if err := r.Register(fakeCodec{tag: 0x71}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := r.Register(fakeCodec{tag: 0x71}); err == nil {
		t.Fatalf("duplicate tag accepted")
	}
}

func TestRegistryTagsSorted(t *testing.T) {
	r, err := NewRegistry(fakeCodec{tag: 3}, fakeCodec{tag: 1}, fakeCodec{tag: 2})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	tags := r.Tags()
	if len(tags) != 3 || tags[0] != 1 || tags[1] != 2 || tags[2] != 3 {
		t.Fatalf("Tags = %v", tags)
	}
}
