package ipld

import (
	"fmt"
	"sort"

	"github.com/ipfs/go-cid"
)

// Kind identifies which variant of the union a Node holds.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindNull
	KindBool
	KindInteger
	KindFloat
	KindString
	KindBytes
	KindList
	KindMap
	KindLink
	KindInlined
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindLink:
		return "link"
	case KindInlined:
		return "inlined"
	default:
		return "invalid"
	}
}

// MapEntry is one key/value pair of a Map node.
type MapEntry struct {
	Key   string
	Value *Node
}

// Node is one node of a data graph.
//
// The zero value is invalid; use the constructors. Accessor methods are only
// meaningful for the matching Kind and return the field's zero value
// otherwise.
type Node struct {
	kind Kind

	b     bool
	i     int64
	f     float64
	s     string
	bytes []byte
	list  []*Node
	// entries are kept sorted by key; keys are unique.
	entries []MapEntry
	link    cid.Cid

	// Inlined fields. originalCID is cid.Undef for hand-authored inline
	// nodes that were never resolved from a block.
	inlineCodec uint64
	inlineHash  uint64
	originalCID cid.Cid
	inlineData  *Node
}

var nullNode = &Node{kind: KindNull}

// Null returns the null node.
func Null() *Node { return nullNode }

// Bool returns a bool node.
func Bool(b bool) *Node { return &Node{kind: KindBool, b: b} }

// Integer returns an integer node.
func Integer(i int64) *Node { return &Node{kind: KindInteger, i: i} }

// Float returns a float node.
func Float(f float64) *Node { return &Node{kind: KindFloat, f: f} }

// String returns a string node.
func String(s string) *Node { return &Node{kind: KindString, s: s} }

// Bytes returns a bytes node. The input is copied.
func Bytes(b []byte) *Node {
	return &Node{kind: KindBytes, bytes: append([]byte(nil), b...)}
}

// List returns a list node over elems. The slice is copied; elements must be
// non-nil.
func List(elems ...*Node) *Node {
	out := make([]*Node, len(elems))
	for i, e := range elems {
		if e == nil {
			panic("ipld: nil element in List")
		}
		out[i] = e
	}
	return &Node{kind: KindList, list: out}
}

// Map returns a map node. Keys are stored sorted; uniqueness is guaranteed
// by the input map type.
func Map(m map[string]*Node) *Node {
	entries := make([]MapEntry, 0, len(m))
	for k, v := range m {
		if v == nil {
			panic(fmt.Sprintf("ipld: nil value for map key %q", k))
		}
		entries = append(entries, MapEntry{Key: k, Value: v})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return &Node{kind: KindMap, entries: entries}
}

// MapFromEntries returns a map node built from explicit entries, rejecting
// duplicate keys. Entries are stored sorted regardless of input order.
func MapFromEntries(entries []MapEntry) (*Node, error) {
	out := append([]MapEntry(nil), entries...)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	for i := range out {
		if out[i].Value == nil {
			return nil, fmt.Errorf("ipld: nil value for map key %q", out[i].Key)
		}
		if i > 0 && out[i].Key == out[i-1].Key {
			return nil, fmt.Errorf("ipld: duplicate map key %q", out[i].Key)
		}
	}
	return &Node{kind: KindMap, entries: out}, nil
}

// Link returns a link node referencing c. c must be defined.
func Link(c cid.Cid) *Node {
	if !c.Defined() {
		panic("ipld: undefined CID in Link")
	}
	return &Node{kind: KindLink, link: c}
}

// Inlined returns a hand-authored inlined node carrying an embedded subtree
// and the codec/multihash tags under which extraction will re-encode it.
// No original CID is recorded.
func Inlined(codecTag, hashTag uint64, data *Node) *Node {
	if data == nil {
		panic("ipld: nil data in Inlined")
	}
	return &Node{kind: KindInlined, inlineCodec: codecTag, inlineHash: hashTag, inlineData: data}
}

// InlinedFromLink returns an inlined node produced by resolving orig. The
// declared codec and multihash tags are taken from the CID's prefix.
func InlinedFromLink(orig cid.Cid, data *Node) *Node {
	if !orig.Defined() {
		panic("ipld: undefined CID in InlinedFromLink")
	}
	if data == nil {
		panic("ipld: nil data in InlinedFromLink")
	}
	p := orig.Prefix()
	return &Node{
		kind:        KindInlined,
		inlineCodec: p.Codec,
		inlineHash:  p.MhType,
		originalCID: orig,
		inlineData:  data,
	}
}

// Kind reports the variant held by n.
func (n *Node) Kind() Kind {
	if n == nil {
		return KindInvalid
	}
	return n.kind
}

func (n *Node) AsBool() bool     { return n.b }
func (n *Node) AsInteger() int64 { return n.i }
func (n *Node) AsFloat() float64 { return n.f }
func (n *Node) AsString() string { return n.s }
func (n *Node) AsLink() cid.Cid  { return n.link }

// AsBytes returns a copy of the byte payload.
func (n *Node) AsBytes() []byte { return append([]byte(nil), n.bytes...) }

// Len returns the element count of a list or entry count of a map.
func (n *Node) Len() int {
	switch n.kind {
	case KindList:
		return len(n.list)
	case KindMap:
		return len(n.entries)
	default:
		return 0
	}
}

// At returns the i-th list element.
func (n *Node) At(i int) *Node { return n.list[i] }

// Entries returns the map entries in sorted key order. The slice must not be
// modified.
func (n *Node) Entries() []MapEntry { return n.entries }

// Get returns the value for key in a map node.
func (n *Node) Get(key string) (*Node, bool) {
	i := sort.Search(len(n.entries), func(i int) bool { return n.entries[i].Key >= key })
	if i < len(n.entries) && n.entries[i].Key == key {
		return n.entries[i].Value, true
	}
	return nil, false
}

// InlineCodec returns the declared codec tag of an inlined node.
func (n *Node) InlineCodec() uint64 { return n.inlineCodec }

// InlineHash returns the declared multihash tag of an inlined node.
func (n *Node) InlineHash() uint64 { return n.inlineHash }

// OriginalCID returns the CID an inlined node was resolved from, or
// cid.Undef for hand-authored inline content.
func (n *Node) OriginalCID() cid.Cid { return n.originalCID }

// InlineData returns the embedded subtree of an inlined node.
func (n *Node) InlineData() *Node { return n.inlineData }

// Equal reports deep structural equality. Inlined nodes compare by declared
// tags, original CID, and embedded subtree.
func Equal(a, b *Node) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil || a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindInteger:
		return a.i == b.i
	case KindFloat:
		return a.f == b.f
	case KindString:
		return a.s == b.s
	case KindBytes:
		return string(a.bytes) == string(b.bytes)
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !Equal(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.entries) != len(b.entries) {
			return false
		}
		for i := range a.entries {
			if a.entries[i].Key != b.entries[i].Key || !Equal(a.entries[i].Value, b.entries[i].Value) {
				return false
			}
		}
		return true
	case KindLink:
		return a.link.Equals(b.link)
	case KindInlined:
		return a.inlineCodec == b.inlineCodec &&
			a.inlineHash == b.inlineHash &&
			a.originalCID.Equals(b.originalCID) &&
			Equal(a.inlineData, b.inlineData)
	default:
		return false
	}
}

// String returns a short human-readable description, not a serialization.
func (n *Node) String() string {
	switch n.Kind() {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("bool(%t)", n.b)
	case KindInteger:
		return fmt.Sprintf("integer(%d)", n.i)
	case KindFloat:
		return fmt.Sprintf("float(%g)", n.f)
	case KindString:
		return fmt.Sprintf("string(%q)", n.s)
	case KindBytes:
		return fmt.Sprintf("bytes(%d)", len(n.bytes))
	case KindList:
		return fmt.Sprintf("list(%d)", len(n.list))
	case KindMap:
		return fmt.Sprintf("map(%d)", len(n.entries))
	case KindLink:
		return fmt.Sprintf("link(%s)", n.link)
	case KindInlined:
		if n.originalCID.Defined() {
			return fmt.Sprintf("inlined(%s)", n.originalCID)
		}
		return "inlined"
	default:
		return "invalid"
	}
}
