package storage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"xdao.co/inlinedag/cidutil"
	"xdao.co/inlinedag/storage"
	"xdao.co/inlinedag/storage/memstore"
)

// flakyCAS fails every operation transiently.
type flakyCAS struct{}

func (flakyCAS) Put(context.Context, cid.Cid, []byte) error {
	return storage.ErrTransient
}
func (flakyCAS) Resolve(context.Context, cid.Cid) ([]byte, error) {
	return nil, storage.ErrTransient
}
func (flakyCAS) Has(context.Context, cid.Cid) bool { return false }

func mustPut(t *testing.T, cas storage.CAS, data []byte) cid.Cid {
	t.Helper()
	id, err := cidutil.CIDv1RawSHA256(data)
	if err != nil {
		t.Fatalf("CIDv1RawSHA256: %v", err)
	}
	if err := cas.Put(context.Background(), id, data); err != nil {
		t.Fatalf("Put: %v", err)
	}
	return id
}

func TestMultiCASResolveFallback(t *testing.T) {
	ctx := context.Background()
	first := memstore.New()
	second := memstore.New()
	id := mustPut(t, second, []byte("only in second"))

	m := storage.MultiCAS{Adapters: []storage.CAS{first, second}}
	got, err := m.Resolve(ctx, id)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if string(got) != "only in second" {
		t.Fatalf("Resolve = %q", got)
	}
	if !m.Has(ctx, id) {
		t.Fatalf("Has = false across adapters")
	}
}

func TestMultiCASTransientAbortsChain(t *testing.T) {
	ctx := context.Background()
	backing := memstore.New()
	id := mustPut(t, backing, []byte("behind the flaky adapter"))

	m := storage.MultiCAS{Adapters: []storage.CAS{flakyCAS{}, backing}}
	_, err := m.Resolve(ctx, id)
	if !storage.IsTransient(err) {
		t.Fatalf("err = %v, want transient: fallback must not skip an unreachable adapter", err)
	}
}

func TestMultiCASMissingEverywhere(t *testing.T) {
	id, err := cidutil.CIDv1RawSHA256([]byte("nowhere"))
	if err != nil {
		t.Fatalf("CIDv1RawSHA256: %v", err)
	}
	m := storage.MultiCAS{Adapters: []storage.CAS{memstore.New(), memstore.New()}}
	if _, err := m.Resolve(context.Background(), id); !storage.IsNotFound(err) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMultiCASPutTargets(t *testing.T) {
	ctx := context.Background()
	first := memstore.New()
	second := memstore.New()
	m := storage.MultiCAS{Adapters: []storage.CAS{first, second}}

	data := []byte("primary only")
	id, err := cidutil.CIDv1RawSHA256(data)
	if err != nil {
		t.Fatalf("CIDv1RawSHA256: %v", err)
	}
	if err := m.Put(ctx, id, data); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !first.Has(ctx, id) || second.Has(ctx, id) {
		t.Fatalf("Put wrote to the wrong adapters: first=%t second=%t",
			first.Has(ctx, id), second.Has(ctx, id))
	}

	data2 := []byte("replicated")
	id2, err := cidutil.CIDv1RawSHA256(data2)
	if err != nil {
		t.Fatalf("CIDv1RawSHA256: %v", err)
	}
	if err := m.PutAll(ctx, id2, data2); err != nil {
		t.Fatalf("PutAll: %v", err)
	}
	if !first.Has(ctx, id2) || !second.Has(ctx, id2) {
		t.Fatalf("PutAll did not reach every adapter")
	}
}

func TestMultiCASNoAdapters(t *testing.T) {
	var m storage.MultiCAS
	id, err := cidutil.CIDv1RawSHA256([]byte("x"))
	if err != nil {
		t.Fatalf("CIDv1RawSHA256: %v", err)
	}
	if err := m.Put(context.Background(), id, []byte("x")); err == nil {
		t.Fatalf("Put succeeded with no adapters")
	}
	if _, err := m.Resolve(context.Background(), id); !storage.IsNotFound(err) {
		t.Fatalf("Resolve with no adapters: err = %v", err)
	}
}

func TestVerifyPreservesCIDVersion(t *testing.T) {
	ctx := context.Background()
	data := []byte("version zero block")
	sum, err := multihash.Sum(data, multihash.SHA2_256, -1)
	if err != nil {
		t.Fatalf("multihash.Sum: %v", err)
	}
	id := cid.NewCidV0(sum)

	if err := storage.Verify(id, data); err != nil {
		t.Fatalf("Verify rejected correct bytes under a CIDv0 key: %v", err)
	}
	if err := storage.Verify(id, []byte("other")); !errors.Is(err, storage.ErrCIDMismatch) {
		t.Fatalf("Verify wrong bytes under CIDv0: err = %v, want ErrCIDMismatch", err)
	}

	cas := memstore.New()
	if err := cas.Put(ctx, id, data); err != nil {
		t.Fatalf("Put under CIDv0 key: %v", err)
	}
	got, err := cas.Resolve(ctx, id)
	if err != nil {
		t.Fatalf("Resolve under CIDv0 key: %v", err)
	}
	if string(got) != string(data) {
		t.Fatalf("Resolve bytes mismatch")
	}
}

func TestVerify(t *testing.T) {
	data := []byte("verified")
	id, err := cidutil.CIDv1RawSHA256(data)
	if err != nil {
		t.Fatalf("CIDv1RawSHA256: %v", err)
	}
	if err := storage.Verify(id, data); err != nil {
		t.Fatalf("Verify honest bytes: %v", err)
	}
	if err := storage.Verify(id, []byte("other")); !errors.Is(err, storage.ErrCIDMismatch) {
		t.Fatalf("Verify wrong bytes: err = %v, want ErrCIDMismatch", err)
	}
	var undef cid.Cid
	if err := storage.Verify(undef, data); !errors.Is(err, storage.ErrInvalidCID) {
		t.Fatalf("Verify undef: err = %v, want ErrInvalidCID", err)
	}
}
