// Package testkit provides a reusable conformance suite for storage.CAS
// implementations.
package testkit

import (
	"bytes"
	"context"
	"testing"

	"github.com/ipfs/go-cid"

	"xdao.co/inlinedag/cidutil"
	"xdao.co/inlinedag/storage"
)

// NewCAS constructs a fresh, empty CAS instance for a test.
// The returned CAS MUST be isolated from other tests.
type NewCAS func(t *testing.T) storage.CAS

// RunCASConformance exercises the CAS contract: keyed idempotent puts,
// verification of bytes against the requested CID, and the error taxonomy.
func RunCASConformance(t *testing.T, newCAS NewCAS) {
	t.Helper()
	ctx := context.Background()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		cas := newCAS(t)
		want := []byte("hello, inlinedag storage")
		id := mustCID(t, want)

		if err := cas.Put(ctx, id, want); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		got, err := cas.Resolve(ctx, id)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Resolve bytes mismatch")
		}
	})

	t.Run("PutIdempotent", func(t *testing.T) {
		cas := newCAS(t)
		b := []byte("same bytes")
		id := mustCID(t, b)

		if err := cas.Put(ctx, id, b); err != nil {
			t.Fatalf("Put(1) failed: %v", err)
		}
		if err := cas.Put(ctx, id, b); err != nil {
			t.Fatalf("Put(2) not idempotent: %v", err)
		}
		got, err := cas.Resolve(ctx, id)
		if err != nil {
			t.Fatalf("Resolve failed: %v", err)
		}
		if !bytes.Equal(got, b) {
			t.Fatalf("bytes changed after repeated Put")
		}
	})

	t.Run("PutRejectsMismatchedBytes", func(t *testing.T) {
		cas := newCAS(t)
		id := mustCID(t, []byte("original"))

		err := cas.Put(ctx, id, []byte("different"))
		if err == nil {
			t.Fatalf("Put accepted bytes that do not hash to the CID")
		}
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		cas := newCAS(t)
		b := []byte("missing")
		id := mustCID(t, b)

		if cas.Has(ctx, id) {
			t.Fatalf("Has returned true for missing CID")
		}
		if _, err := cas.Resolve(ctx, id); !storage.IsNotFound(err) {
			t.Fatalf("Resolve missing: got err=%v want ErrNotFound", err)
		}

		if err := cas.Put(ctx, id, b); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if !cas.Has(ctx, id) {
			t.Fatalf("Has returned false after Put")
		}
	})

	t.Run("RejectUndefCID", func(t *testing.T) {
		cas := newCAS(t)
		var undef cid.Cid
		if cas.Has(ctx, undef) {
			t.Fatalf("Has should be false for undefined CID")
		}
		if _, err := cas.Resolve(ctx, undef); err == nil {
			t.Fatalf("Resolve should fail for undefined CID")
		}
		if err := cas.Put(ctx, undef, []byte("x")); err == nil {
			t.Fatalf("Put should fail for undefined CID")
		}
	})
}

func mustCID(t *testing.T, data []byte) cid.Cid {
	t.Helper()
	id, err := cidutil.CIDv1RawSHA256(data)
	if err != nil {
		t.Fatalf("CIDv1RawSHA256 failed: %v", err)
	}
	return id
}
