// Package dagcbor implements the DAG-CBOR codec (multicodec 0x71).
//
// Encoding is deterministic: canonical map key order, definite lengths,
// 64-bit floats, links as CBOR tag 42 over the identity-prefixed CID bytes.
// Decoding accepts standard CBOR within the DAG-CBOR data model; unknown
// tags and non-string map keys are rejected.
//
// Inlined nodes are serialized in the inline-link wire form
//
//	{"/": {"data": <subtree>, "link": <cid>}}
//
// with the "link" field omitted when no original CID is recorded. A map of
// exactly that shape decodes back to an inlined node; any other map decodes
// as a plain map.
package dagcbor

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"reflect"

	"github.com/fxamacker/cbor/v2"
	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"xdao.co/inlinedag/codec"
	"xdao.co/inlinedag/ipld"
)

// Tag is the DAG-CBOR multicodec code.
const Tag = uint64(cid.DagCBOR)

// linkTag is the CBOR tag number for CID links.
const linkTag = 42

// inheritedHash is the multihash tag assumed for inline nodes decoded from
// the wire form without a "link" field. See the package doc of extractor
// for how declared tags are used.
const inheritedHash = uint64(multihash.SHA2_256)

// encMode is configured for DAG-CBOR determinism: length-first canonical
// key sort, definite lengths only, floats always 64-bit.
var encMode cbor.EncMode

// decMode accepts standard CBOR; any-typed targets decode maps as
// map[string]any so non-string keys fail loudly.
var decMode cbor.DecMode

func init() {
	encOptions := cbor.CoreDetEncOptions()
	encOptions.Sort = cbor.SortLengthFirst
	encOptions.ShortestFloat = cbor.ShortestFloatNone
	encOptions.TagsMd = cbor.TagsAllowed
	em, err := encOptions.EncMode()
	if err != nil {
		panic("dagcbor: encoder initialization failed: " + err.Error())
	}
	encMode = em

	dm, err := cbor.DecOptions{
		DefaultMapType:  reflect.TypeOf(map[string]any(nil)),
		TagsMd:          cbor.TagsAllowed,
		MaxNestedLevels: 65535,
	}.DecMode()
	if err != nil {
		panic("dagcbor: decoder initialization failed: " + err.Error())
	}
	decMode = dm

	codec.Default().MustRegister(Codec{})
}

// Codec is the DAG-CBOR codec. The zero value is ready to use.
type Codec struct{}

var _ codec.Codec = Codec{}

func (Codec) Tag() uint64 { return Tag }

func (Codec) Encode(n *ipld.Node) ([]byte, error) {
	v, err := toAny(n)
	if err != nil {
		return nil, err
	}
	b, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("dagcbor: encode: %w", err)
	}
	return b, nil
}

func (Codec) Decode(data []byte) (*ipld.Node, error) {
	var v any
	if err := decMode.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("dagcbor: decode: %w", err)
	}
	return fromAny(v)
}

// Diagnose returns RFC 8949 diagnostic notation for data.
func Diagnose(data []byte) (string, error) {
	return cbor.Diagnose(data)
}

func toAny(n *ipld.Node) (any, error) {
	switch n.Kind() {
	case ipld.KindNull:
		return nil, nil
	case ipld.KindBool:
		return n.AsBool(), nil
	case ipld.KindInteger:
		return n.AsInteger(), nil
	case ipld.KindFloat:
		f := n.AsFloat()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, errors.New("dagcbor: NaN and Inf floats are not encodable")
		}
		return f, nil
	case ipld.KindString:
		return n.AsString(), nil
	case ipld.KindBytes:
		return n.AsBytes(), nil
	case ipld.KindList:
		out := make([]any, n.Len())
		for i := 0; i < n.Len(); i++ {
			v, err := toAny(n.At(i))
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case ipld.KindMap:
		out := make(map[string]any, n.Len())
		for _, e := range n.Entries() {
			v, err := toAny(e.Value)
			if err != nil {
				return nil, err
			}
			out[e.Key] = v
		}
		return out, nil
	case ipld.KindLink:
		return linkToTag(n.AsLink()), nil
	case ipld.KindInlined:
		data, err := toAny(n.InlineData())
		if err != nil {
			return nil, err
		}
		inner := map[string]any{"data": data}
		if orig := n.OriginalCID(); orig.Defined() {
			inner["link"] = linkToTag(orig)
		}
		return map[string]any{"/": inner}, nil
	default:
		return nil, fmt.Errorf("dagcbor: cannot encode %s node", n.Kind())
	}
}

func linkToTag(c cid.Cid) cbor.Tag {
	// DAG-CBOR links are tag 42 over the CID bytes with a leading 0x00
	// multibase identity prefix.
	raw := c.Bytes()
	content := make([]byte, 0, len(raw)+1)
	content = append(content, 0x00)
	content = append(content, raw...)
	return cbor.Tag{Number: linkTag, Content: content}
}

func fromAny(v any) (*ipld.Node, error) {
	switch x := v.(type) {
	case nil:
		return ipld.Null(), nil
	case bool:
		return ipld.Bool(x), nil
	case int64:
		return ipld.Integer(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, fmt.Errorf("dagcbor: integer %d out of int64 range", x)
		}
		return ipld.Integer(int64(x)), nil
	case big.Int:
		return nil, errors.New("dagcbor: integer out of int64 range")
	case *big.Int:
		return nil, errors.New("dagcbor: integer out of int64 range")
	case float32:
		return ipld.Float(float64(x)), nil
	case float64:
		return ipld.Float(x), nil
	case string:
		return ipld.String(x), nil
	case []byte:
		return ipld.Bytes(x), nil
	case []any:
		elems := make([]*ipld.Node, len(x))
		for i, e := range x {
			n, err := fromAny(e)
			if err != nil {
				return nil, err
			}
			elems[i] = n
		}
		return ipld.List(elems...), nil
	case map[string]any:
		return mapFromAny(x)
	case cbor.Tag:
		if x.Number != linkTag {
			return nil, fmt.Errorf("dagcbor: unexpected CBOR tag %d", x.Number)
		}
		return tagToLink(x)
	default:
		return nil, fmt.Errorf("dagcbor: unsupported decoded type %T", v)
	}
}

func tagToLink(t cbor.Tag) (*ipld.Node, error) {
	content, ok := t.Content.([]byte)
	if !ok {
		return nil, errors.New("dagcbor: tag 42 content is not a byte string")
	}
	if len(content) == 0 || content[0] != 0x00 {
		return nil, errors.New("dagcbor: tag 42 content missing identity prefix")
	}
	c, err := cid.Cast(content[1:])
	if err != nil {
		return nil, fmt.Errorf("dagcbor: tag 42 content is not a CID: %w", err)
	}
	return ipld.Link(c), nil
}

// mapFromAny decodes a map, recognizing the inline-link delimiter shape.
func mapFromAny(m map[string]any) (*ipld.Node, error) {
	if inner, ok := delimiterShape(m); ok {
		data, err := fromAny(inner["data"])
		if err != nil {
			return nil, err
		}
		if rawLink, ok := inner["link"]; ok {
			t, ok := rawLink.(cbor.Tag)
			if !ok || t.Number != linkTag {
				return nil, errors.New("dagcbor: inline delimiter link is not a CID")
			}
			linkNode, err := tagToLink(t)
			if err != nil {
				return nil, err
			}
			return ipld.InlinedFromLink(linkNode.AsLink(), data), nil
		}
		// No link: the inline node inherits this codec's tag and the
		// conventional hash.
		return ipld.Inlined(Tag, inheritedHash, data), nil
	}

	entries := make([]ipld.MapEntry, 0, len(m))
	for k, v := range m {
		n, err := fromAny(v)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ipld.MapEntry{Key: k, Value: n})
	}
	return ipld.MapFromEntries(entries)
}

// delimiterShape reports whether m is exactly {"/": {"data": ...}} or
// {"/": {"data": ..., "link": ...}} and returns the inner map.
func delimiterShape(m map[string]any) (map[string]any, bool) {
	if len(m) != 1 {
		return nil, false
	}
	inner, ok := m["/"].(map[string]any)
	if !ok {
		return nil, false
	}
	if _, ok := inner["data"]; !ok {
		return nil, false
	}
	switch len(inner) {
	case 1:
		return inner, true
	case 2:
		_, hasLink := inner["link"]
		return inner, hasLink
	default:
		return nil, false
	}
}
