// Package extractor splits an inlined value back into hashed blocks: the
// inverse of package inliner.
//
// The traversal is bottom-up. Each Inlined node's embedded subtree is
// extracted first (so nested inline content becomes Links), then the
// subtree is canonically encoded under the node's declared codec tag,
// hashed under its declared multihash tag, written to the sink keyed by
// the computed CID, and replaced by a plain Link. When the node records
// the CID it was originally resolved from, the computed CID is compared
// against it per the configured Policy.
//
// Extraction never mutates the input. Within one traversal, blocks that
// were already emitted are not re-put; the sink must be idempotent
// regardless, since deduplication is an optimization, not a contract.
package extractor

import (
	"context"
	"fmt"

	"github.com/ipfs/go-cid"

	"xdao.co/inlinedag/cidutil"
	"xdao.co/inlinedag/codec"
	"xdao.co/inlinedag/ipld"
	"xdao.co/inlinedag/storage"
)

// Options configures Extract.
type Options struct {
	// Codecs resolves declared codec tags of Inlined nodes. Nil means
	// codec.Default().
	Codecs *codec.Registry

	// Hasher computes digests for declared multihash tags. Nil means the
	// go-multihash registry.
	Hasher cidutil.Hasher

	// Policy selects integrity handling; the zero value is Verify.
	Policy Policy
}

// Extract returns a copy of root in which every Inlined subtree has been
// encoded, hashed, written to sink, and replaced by a Link.
//
// Under the Verify policy a complete value may be returned together with a
// non-nil *IntegrityError; every other error means no value.
func Extract(ctx context.Context, root *ipld.Node, sink storage.Sink, opts Options) (*ipld.Node, error) {
	if root == nil {
		return nil, newError(KindConfig, cid.Undef, "nil root", nil)
	}
	if sink == nil {
		return nil, newError(KindConfig, cid.Undef, "nil sink", nil)
	}
	codecs := opts.Codecs
	if codecs == nil {
		codecs = codec.Default()
	}
	hasher := opts.Hasher
	if hasher == nil {
		hasher = cidutil.MultihashSum{}
	}

	s := &splitter{
		ctx:    ctx,
		sink:   sink,
		codecs: codecs,
		hasher: hasher,
		policy: opts.Policy,
		seen:   make(map[cid.Cid]struct{}),
	}
	return s.run(root)
}

type taskKind uint8

const (
	taskEnter taskKind = iota
	taskExitList
	taskExitMap
	taskExitInlined
)

type task struct {
	kind  taskKind
	node  *ipld.Node // enter: node to visit; exitMap/exitInlined: original
	count int        // exitList
}

// splitter is the explicit-stack traversal state for one Extract call.
type splitter struct {
	ctx    context.Context
	sink   storage.Sink
	codecs *codec.Registry
	hasher cidutil.Hasher
	policy Policy

	tasks []task
	out   []*ipld.Node

	// seen holds CIDs already written this traversal; shared substructure
	// encodes to identical bytes and needs only one put.
	seen       map[cid.Cid]struct{}
	mismatches []Mismatch
}

func (s *splitter) run(root *ipld.Node) (*ipld.Node, error) {
	s.tasks = append(s.tasks, task{kind: taskEnter, node: root})

	for len(s.tasks) > 0 {
		t := s.tasks[len(s.tasks)-1]
		s.tasks = s.tasks[:len(s.tasks)-1]

		var err error
		switch t.kind {
		case taskEnter:
			err = s.enter(t.node)
		case taskExitList:
			elems := s.popN(t.count)
			s.out = append(s.out, ipld.List(elems...))
		case taskExitMap:
			err = s.exitMap(t.node)
		case taskExitInlined:
			err = s.exitInlined(t.node)
		}
		if err != nil {
			return nil, err
		}
	}

	if len(s.out) != 1 {
		return nil, newError(KindConfig, cid.Undef,
			fmt.Sprintf("traversal ended with %d values on the stack", len(s.out)), nil)
	}
	if len(s.mismatches) > 0 {
		return s.out[0], &IntegrityError{Mismatches: s.mismatches}
	}
	return s.out[0], nil
}

func (s *splitter) enter(n *ipld.Node) error {
	if err := s.ctx.Err(); err != nil {
		return err
	}
	switch n.Kind() {
	case ipld.KindList:
		s.tasks = append(s.tasks, task{kind: taskExitList, count: n.Len()})
		for i := n.Len() - 1; i >= 0; i-- {
			s.tasks = append(s.tasks, task{kind: taskEnter, node: n.At(i)})
		}
	case ipld.KindMap:
		s.tasks = append(s.tasks, task{kind: taskExitMap, node: n})
		entries := n.Entries()
		for i := len(entries) - 1; i >= 0; i-- {
			s.tasks = append(s.tasks, task{kind: taskEnter, node: entries[i].Value})
		}
	case ipld.KindInlined:
		s.tasks = append(s.tasks, task{kind: taskExitInlined, node: n})
		s.tasks = append(s.tasks, task{kind: taskEnter, node: n.InlineData()})
	default:
		// Scalars and Links pass through; extraction only rewrites
		// Inlined nodes and their ancestors.
		s.out = append(s.out, n)
	}
	return nil
}

func (s *splitter) exitMap(original *ipld.Node) error {
	entries := original.Entries()
	vals := s.popN(len(entries))
	rebuilt := make([]ipld.MapEntry, len(entries))
	for i := range entries {
		rebuilt[i] = ipld.MapEntry{Key: entries[i].Key, Value: vals[i]}
	}
	m, err := ipld.MapFromEntries(rebuilt)
	if err != nil {
		return newError(KindConfig, cid.Undef, "map reassembly failed", err)
	}
	s.out = append(s.out, m)
	return nil
}

func (s *splitter) exitInlined(original *ipld.Node) error {
	data := s.out[len(s.out)-1]
	s.out = s.out[:len(s.out)-1]

	codecTag := original.InlineCodec()
	c, err := s.codecs.Lookup(codecTag)
	if err != nil {
		return newError(KindEncode, original.OriginalCID(), "no codec for declared tag", err)
	}
	encoded, err := c.Encode(data)
	if err != nil {
		return newError(KindEncode, original.OriginalCID(), "encode failed", err)
	}
	computed, err := cidutil.NewCIDWith(s.hasher, codecTag, original.InlineHash(), encoded)
	if err != nil {
		return newError(KindEncode, original.OriginalCID(), "hash failed", err)
	}

	if orig := original.OriginalCID(); orig.Defined() && s.policy != Recompute && !computed.Equals(orig) {
		if s.policy == Strict {
			return newError(KindIntegrity, orig,
				fmt.Sprintf("embedded content re-encodes to %s", computed), nil)
		}
		s.mismatches = append(s.mismatches, Mismatch{Original: orig, Computed: computed})
	}

	if _, done := s.seen[computed]; !done {
		if err := s.sink.Put(s.ctx, computed, encoded); err != nil {
			return newError(KindSink, computed, "sink put failed", err)
		}
		s.seen[computed] = struct{}{}
	}

	s.out = append(s.out, ipld.Link(computed))
	return nil
}

func (s *splitter) popN(n int) []*ipld.Node {
	vals := make([]*ipld.Node, n)
	copy(vals, s.out[len(s.out)-n:])
	s.out = s.out[:len(s.out)-n]
	return vals
}
