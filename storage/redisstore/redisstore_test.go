package redisstore

import (
	"strings"
	"testing"

	"github.com/redis/go-redis/v9"

	"xdao.co/inlinedag/cidutil"
)

func TestNewRejectsBadURL(t *testing.T) {
	if _, err := New(Options{URL: "not a url"}); err == nil {
		t.Fatalf("New accepted a malformed URL")
	}
}

func TestKeyNamespacing(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:0"})
	t.Cleanup(func() { _ = client.Close() })

	id, err := cidutil.CIDv1RawSHA256([]byte("key test"))
	if err != nil {
		t.Fatalf("CIDv1RawSHA256: %v", err)
	}

	cas := NewWithClient(client, "")
	if got := cas.key(id); !strings.HasPrefix(got, DefaultKeyPrefix) {
		t.Fatalf("key = %q, want prefix %q", got, DefaultKeyPrefix)
	}

	cas = NewWithClient(client, "custom:")
	if got := cas.key(id); got != "custom:"+id.String() {
		t.Fatalf("key = %q", got)
	}
}
