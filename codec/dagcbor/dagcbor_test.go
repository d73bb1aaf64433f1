package dagcbor

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/multiformats/go-multihash"

	"xdao.co/inlinedag/cidutil"
	"xdao.co/inlinedag/ipld"
)

func TestEncodeKnownVector(t *testing.T) {
	b, err := Codec{}.Encode(ipld.List(ipld.Integer(1), ipld.Integer(2), ipld.Integer(3)))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.Equal(b, []byte{0x83, 0x01, 0x02, 0x03}) {
		t.Fatalf("Encode([1,2,3]) = %x", b)
	}

	id, err := cidutil.NewCID(Tag, uint64(multihash.SHA2_256), b)
	if err != nil {
		t.Fatalf("NewCID: %v", err)
	}
	const want = "bafyreickxqyrg7hhhdm2z24kduovd4k4vvbmfmenzn7nc6pxg6qzjm2v44"
	if id.String() != want {
		t.Fatalf("CID = %s, want %s", id, want)
	}
}

func TestEncodeCanonicalKeyOrder(t *testing.T) {
	// Length-first ordering: "b" and "c" sort before "aa".
	n := ipld.Map(map[string]*ipld.Node{
		"aa": ipld.Integer(1),
		"b":  ipld.Integer(2),
		"c":  ipld.Integer(3),
	})
	b, err := Codec{}.Encode(n)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := []byte{0xa3, 0x61, 0x62, 0x02, 0x61, 0x63, 0x03, 0x62, 0x61, 0x61, 0x01}
	if !bytes.Equal(b, want) {
		t.Fatalf("Encode = %x, want %x", b, want)
	}

	// Same value, same bytes, every time.
	b2, err := Codec{}.Encode(n)
	if err != nil {
		t.Fatalf("Encode(2): %v", err)
	}
	if !bytes.Equal(b, b2) {
		t.Fatalf("encoding is not deterministic: %x vs %x", b, b2)
	}
}

func TestRoundTripNested(t *testing.T) {
	target, err := cidutil.CIDv1RawSHA256([]byte("target block"))
	if err != nil {
		t.Fatalf("CIDv1RawSHA256: %v", err)
	}
	n := ipld.Map(map[string]*ipld.Node{
		"null":  ipld.Null(),
		"bool":  ipld.Bool(true),
		"int":   ipld.Integer(-7),
		"float": ipld.Float(1.5),
		"str":   ipld.String("héllo"),
		"bytes": ipld.Bytes([]byte{0, 1, 255}),
		"list":  ipld.List(ipld.Integer(1), ipld.Link(target)),
	})

	b, err := Codec{}.Encode(n)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Codec{}.Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if !ipld.Equal(n, got) {
		t.Fatalf("round trip changed value:\n in: %s\nout: %s", n, got)
	}
}

func TestLinkWireFormat(t *testing.T) {
	target, err := cidutil.CIDv1RawSHA256([]byte("linked"))
	if err != nil {
		t.Fatalf("CIDv1RawSHA256: %v", err)
	}
	b, err := Codec{}.Encode(ipld.Link(target))
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// Tag 42 over a byte string starting with the identity prefix.
	if b[0] != 0xd8 || b[1] != 0x2a {
		t.Fatalf("link not encoded as tag 42: %x", b)
	}
	got, err := Codec{}.Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Kind() != ipld.KindLink || !got.AsLink().Equals(target) {
		t.Fatalf("decoded %s, want link(%s)", got, target)
	}
}

func TestInlineDelimiterWithLink(t *testing.T) {
	orig, err := cidutil.NewCID(Tag, uint64(multihash.SHA2_256), []byte{0x01})
	if err != nil {
		t.Fatalf("NewCID: %v", err)
	}
	n := ipld.InlinedFromLink(orig, ipld.Map(map[string]*ipld.Node{
		"v": ipld.Integer(42),
	}))

	b, err := Codec{}.Encode(n)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Codec{}.Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Kind() != ipld.KindInlined {
		t.Fatalf("decoded kind = %s, want inlined", got.Kind())
	}
	if !got.OriginalCID().Equals(orig) {
		t.Fatalf("OriginalCID = %s, want %s", got.OriginalCID(), orig)
	}
	if !ipld.Equal(n, got) {
		t.Fatalf("round trip changed value")
	}
}

func TestInlineDelimiterWithoutLink(t *testing.T) {
	n := ipld.Inlined(Tag, inheritedHash, ipld.String("hand-authored"))

	b, err := Codec{}.Encode(n)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Codec{}.Decode(b)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if got.Kind() != ipld.KindInlined {
		t.Fatalf("decoded kind = %s, want inlined", got.Kind())
	}
	if got.OriginalCID().Defined() {
		t.Fatalf("linkless inline node gained an original CID: %s", got.OriginalCID())
	}
	if got.InlineCodec() != Tag || got.InlineHash() != inheritedHash {
		t.Fatalf("inline tags = %#x/%#x", got.InlineCodec(), got.InlineHash())
	}
	if !ipld.Equal(n, got) {
		t.Fatalf("round trip changed value")
	}
}

func TestDelimiterShapeIsExact(t *testing.T) {
	// {"/": "x"} and {"/": {...}, "extra": ...} are plain maps, not inline
	// nodes.
	cases := []*ipld.Node{
		ipld.Map(map[string]*ipld.Node{"/": ipld.String("x")}),
		ipld.Map(map[string]*ipld.Node{
			"/":     ipld.Map(map[string]*ipld.Node{"data": ipld.Integer(1)}),
			"extra": ipld.Integer(2),
		}),
	}
	for _, n := range cases {
		b, err := Codec{}.Encode(n)
		if err != nil {
			t.Fatalf("Encode: %v", err)
		}
		got, err := Codec{}.Decode(b)
		if err != nil {
			t.Fatalf("Decode: %v", err)
		}
		if got.Kind() != ipld.KindMap {
			t.Fatalf("decoded kind = %s, want map for %s", got.Kind(), n)
		}
	}
}

func TestEncodeRejectsNonFiniteFloats(t *testing.T) {
	for _, f := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := (Codec{}).Encode(ipld.Float(f)); err == nil {
			t.Fatalf("Encode accepted %v", f)
		}
	}
}

func TestDecodeRejectsUnknownTag(t *testing.T) {
	// Tag 99 over the integer 1.
	if _, err := (Codec{}).Decode([]byte{0xd8, 0x63, 0x01}); err == nil {
		t.Fatalf("Decode accepted an unknown CBOR tag")
	}
}

func TestDecodeRejectsOversizedInteger(t *testing.T) {
	// 2^64-1 does not fit the int64 integer domain.
	if _, err := (Codec{}).Decode([]byte{0x1b, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}); err == nil {
		t.Fatalf("Decode accepted an integer above MaxInt64")
	}
}

func TestDiagnose(t *testing.T) {
	diag, err := Diagnose([]byte{0x83, 0x01, 0x02, 0x03})
	if err != nil {
		t.Fatalf("Diagnose: %v", err)
	}
	if !strings.Contains(diag, "1") || !strings.Contains(diag, "3") {
		t.Fatalf("Diagnose = %q", diag)
	}
}
