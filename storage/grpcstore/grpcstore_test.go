package grpcstore

import (
	"bytes"
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"xdao.co/inlinedag/cidutil"
	"xdao.co/inlinedag/storage"
	"xdao.co/inlinedag/storage/memstore"
	"xdao.co/inlinedag/storage/testkit"
)

func newBufClient(t *testing.T, backend storage.CAS) *Client {
	t.Helper()

	lis := bufconn.Listen(1024 * 1024)
	srv := grpc.NewServer()
	RegisterCASServer(srv, &Server{CAS: backend})
	go func() {
		_ = srv.Serve(lis)
	}()
	t.Cleanup(srv.Stop)

	dialer := func(ctx context.Context, s string) (net.Conn, error) { return lis.Dial() }
	cc, err := grpc.DialContext(
		context.Background(),
		"bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		t.Fatalf("DialContext: %v", err)
	}
	t.Cleanup(func() { _ = cc.Close() })

	return &Client{cc: cc, client: NewCASClient(cc), Timeout: 2 * time.Second}
}

func TestConformanceOverBufconn(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		return newBufClient(t, memstore.New())
	})
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	client := newBufClient(t, memstore.New())

	payload := []byte("hello grpcstore")
	id, err := cidutil.CIDv1RawSHA256(payload)
	if err != nil {
		t.Fatalf("CIDv1RawSHA256: %v", err)
	}
	if err := client.Put(ctx, id, payload); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if !client.Has(ctx, id) {
		t.Fatalf("Has: expected true")
	}
	got, err := client.Resolve(ctx, id)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch")
	}
}

func TestErrorMapping(t *testing.T) {
	ctx := context.Background()
	client := newBufClient(t, memstore.New())

	missing, err := cidutil.CIDv1RawSHA256([]byte("never stored"))
	if err != nil {
		t.Fatalf("CIDv1RawSHA256: %v", err)
	}
	if _, err := client.Resolve(ctx, missing); !storage.IsNotFound(err) {
		t.Fatalf("Resolve missing: err = %v, want ErrNotFound", err)
	}

	// Mismatched bytes are rejected client-side, before any RPC.
	if err := client.Put(ctx, missing, []byte("wrong bytes")); !errors.Is(err, storage.ErrCIDMismatch) {
		t.Fatalf("Put mismatched: err = %v, want ErrCIDMismatch", err)
	}
}

func TestFrameRoundTrip(t *testing.T) {
	data := []byte("framed block")
	id, err := cidutil.CIDv1RawSHA256(data)
	if err != nil {
		t.Fatalf("CIDv1RawSHA256: %v", err)
	}
	gotID, gotData, err := decodeFrame(encodeFrame(id, data))
	if err != nil {
		t.Fatalf("decodeFrame: %v", err)
	}
	if !gotID.Equals(id) {
		t.Fatalf("frame CID = %s, want %s", gotID, id)
	}
	if !bytes.Equal(gotData, data) {
		t.Fatalf("frame payload mismatch")
	}

	if _, _, err := decodeFrame([]byte{0xff}); err == nil {
		t.Fatalf("decodeFrame accepted garbage")
	}
}
