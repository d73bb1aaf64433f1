package ipld

import (
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

func testCID(t *testing.T, data string) cid.Cid {
	t.Helper()
	sum, err := multihash.Sum([]byte(data), multihash.SHA2_256, -1)
	if err != nil {
		t.Fatalf("multihash.Sum: %v", err)
	}
	return cid.NewCidV1(cid.Raw, sum)
}

func TestScalarConstructors(t *testing.T) {
	cases := []struct {
		node *Node
		kind Kind
	}{
		{Null(), KindNull},
		{Bool(true), KindBool},
		{Integer(-42), KindInteger},
		{Float(2.5), KindFloat},
		{String("x"), KindString},
		{Bytes([]byte{1, 2}), KindBytes},
	}
	for _, c := range cases {
		if got := c.node.Kind(); got != c.kind {
			t.Errorf("Kind() = %v, want %v", got, c.kind)
		}
	}
	if !Bool(true).AsBool() {
		t.Errorf("AsBool lost value")
	}
	if Integer(-42).AsInteger() != -42 {
		t.Errorf("AsInteger lost value")
	}
	if Float(2.5).AsFloat() != 2.5 {
		t.Errorf("AsFloat lost value")
	}
	if String("x").AsString() != "x" {
		t.Errorf("AsString lost value")
	}
}

func TestBytesCopied(t *testing.T) {
	src := []byte{1, 2, 3}
	n := Bytes(src)
	src[0] = 9
	if got := n.AsBytes(); got[0] != 1 {
		t.Fatalf("Bytes aliased caller slice: %v", got)
	}
	out := n.AsBytes()
	out[1] = 9
	if n.AsBytes()[1] != 2 {
		t.Fatalf("AsBytes exposed internal slice")
	}
}

func TestMapSortedAndGet(t *testing.T) {
	m := Map(map[string]*Node{
		"zebra": Integer(1),
		"apple": Integer(2),
		"mango": Integer(3),
	})
	entries := m.Entries()
	if len(entries) != 3 {
		t.Fatalf("Len = %d, want 3", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Key >= entries[i].Key {
			t.Fatalf("entries not sorted: %q before %q", entries[i-1].Key, entries[i].Key)
		}
	}
	v, ok := m.Get("mango")
	if !ok || v.AsInteger() != 3 {
		t.Fatalf("Get(mango) = %v, %v", v, ok)
	}
	if _, ok := m.Get("missing"); ok {
		t.Fatalf("Get(missing) found an entry")
	}
}

func TestMapFromEntriesRejectsDuplicates(t *testing.T) {
	_, err := MapFromEntries([]MapEntry{
		{Key: "a", Value: Integer(1)},
		{Key: "a", Value: Integer(2)},
	})
	if err == nil {
		t.Fatalf("duplicate keys accepted")
	}
}

func TestInlinedTagPropagation(t *testing.T) {
	orig := testCID(t, "block one")

	hand := Inlined(0x71, uint64(multihash.SHA2_256), String("payload"))
	if hand.OriginalCID().Defined() {
		t.Fatalf("hand-authored inline node carries an original CID")
	}
	if hand.InlineCodec() != 0x71 {
		t.Fatalf("InlineCodec = %#x", hand.InlineCodec())
	}

	resolved := InlinedFromLink(orig, String("payload"))
	if !resolved.OriginalCID().Equals(orig) {
		t.Fatalf("OriginalCID = %s, want %s", resolved.OriginalCID(), orig)
	}
	p := orig.Prefix()
	if resolved.InlineCodec() != p.Codec || resolved.InlineHash() != p.MhType {
		t.Fatalf("inline tags %#x/%#x do not match prefix %#x/%#x",
			resolved.InlineCodec(), resolved.InlineHash(), p.Codec, p.MhType)
	}
}

func TestEqual(t *testing.T) {
	c1 := testCID(t, "one")
	c2 := testCID(t, "two")

	same := func() *Node {
		return Map(map[string]*Node{
			"list": List(Integer(1), String("s"), Link(c1)),
			"nil":  Null(),
			"in":   InlinedFromLink(c2, Bool(true)),
		})
	}
	if !Equal(same(), same()) {
		t.Fatalf("structurally identical values compare unequal")
	}

	a := same()
	b := Map(map[string]*Node{
		"list": List(Integer(1), String("s"), Link(c2)),
		"nil":  Null(),
		"in":   InlinedFromLink(c2, Bool(true)),
	})
	if Equal(a, b) {
		t.Fatalf("values with different links compare equal")
	}
	if Equal(Integer(1), Float(1)) {
		t.Fatalf("integer and float compare equal")
	}
	if Equal(InlinedFromLink(c1, Null()), Inlined(cid.Raw, uint64(multihash.SHA2_256), Null())) {
		t.Fatalf("resolved and hand-authored inline nodes compare equal")
	}
}

func TestPostOrderIter(t *testing.T) {
	// map{a: [1, 2], b: inlined("x")} visited children-first.
	root := Map(map[string]*Node{
		"a": List(Integer(1), Integer(2)),
		"b": Inlined(0x71, uint64(multihash.SHA2_256), String("x")),
	})

	var kinds []Kind
	it := NewPostOrderIter(root)
	for n, ok := it.Next(); ok; n, ok = it.Next() {
		kinds = append(kinds, n.Kind())
	}
	want := []Kind{KindInteger, KindInteger, KindList, KindString, KindInlined, KindMap}
	if len(kinds) != len(want) {
		t.Fatalf("visited %d nodes, want %d: %v", len(kinds), len(want), kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("visit order %v, want %v", kinds, want)
		}
	}

	if got := Count(root); got != len(want) {
		t.Fatalf("Count = %d, want %d", got, len(want))
	}
}
