// Package ipld defines the node model for content-addressed data graphs.
//
// A Node is a closed tagged union over the ten kinds of the data model:
// Null, Bool, Integer, Float, String, Bytes, List, Map, Link, and Inlined.
// Link carries a CID reference to a block stored elsewhere; Inlined carries
// an embedded subtree together with the codec and multihash tags needed to
// re-encode it into a block, and optionally the CID the subtree was
// originally resolved from.
//
// Nodes are immutable after construction. Constructors copy caller-owned
// slices and maps, and transforms over nodes build new nodes rather than
// mutating in place. Map entries are held in sorted key order regardless of
// construction order, so iteration is deterministic.
package ipld
