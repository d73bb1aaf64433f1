// Package inliner resolves the links of a data graph and embeds the
// resolved subtrees in place, turning a split multi-block graph into one
// self-contained value.
//
// Every Link node is resolved through the injected storage.Resolver,
// decoded under the codec named by the CID's prefix, recursively inlined,
// and replaced by an Inlined node that retains the original CID and its
// codec/multihash tags, so extraction can reproduce the exact original
// blocks.
//
// Inlining is a pure transform: the input value is never mutated, and the
// only side effects are resolver calls. A call either returns a fully
// inlined value or an error; there are no partial results.
package inliner

import (
	"context"
	"fmt"

	"github.com/ipfs/go-cid"

	"xdao.co/inlinedag/codec"
	"xdao.co/inlinedag/ipld"
	"xdao.co/inlinedag/storage"
)

// Limits bounds a single traversal. Both fields are mandatory: an
// untrusted resolver can present arbitrarily deep or wide graphs, and the
// engine refuses to run unbounded.
type Limits struct {
	// MaxDepth bounds link-resolution nesting: the number of links on the
	// active resolution path. Container nesting inside a single block does
	// not count toward MaxDepth; it is bounded by MaxNodes.
	MaxDepth int

	// MaxNodes bounds the total number of nodes visited across the whole
	// traversal, including nodes of resolved subtrees.
	MaxNodes int
}

// Options configures Inline.
type Options struct {
	// Codecs resolves codec tags found in CID prefixes. Nil means
	// codec.Default().
	Codecs *codec.Registry

	// Limits is mandatory; both fields must be at least 1.
	Limits Limits
}

// Inline returns a copy of root in which every reachable Link has been
// resolved and embedded. See the package documentation for the contract.
func Inline(ctx context.Context, root *ipld.Node, resolver storage.Resolver, opts Options) (*ipld.Node, error) {
	if root == nil {
		return nil, newError(KindConfig, cid.Undef, "nil root", nil)
	}
	if resolver == nil {
		return nil, newError(KindConfig, cid.Undef, "nil resolver", nil)
	}
	if opts.Limits.MaxDepth < 1 || opts.Limits.MaxNodes < 1 {
		return nil, newError(KindConfig, cid.Undef,
			fmt.Sprintf("limits are mandatory: MaxDepth=%d MaxNodes=%d", opts.Limits.MaxDepth, opts.Limits.MaxNodes), nil)
	}
	codecs := opts.Codecs
	if codecs == nil {
		codecs = codec.Default()
	}

	w := &walker{
		ctx:      ctx,
		resolver: resolver,
		codecs:   codecs,
		limits:   opts.Limits,
		active:   make(map[cid.Cid]struct{}),
	}
	return w.run(root)
}

type taskKind uint8

const (
	taskEnter taskKind = iota
	taskExitList
	taskExitMap
	taskExitInlined
	taskExitLink
)

type task struct {
	kind  taskKind
	node  *ipld.Node // enter: node to visit; exitInlined: the original node
	count int        // exitList/exitMap: children to reassemble
	link  cid.Cid    // exitLink: CID to leave the active path
	depth int        // enter: links on the active resolution path
}

// walker is the explicit-stack traversal state for one Inline call.
// Explicit stacks substitute for native recursion so adversarially deep
// graphs cannot overflow the goroutine stack.
type walker struct {
	ctx      context.Context
	resolver storage.Resolver
	codecs   *codec.Registry
	limits   Limits

	tasks []task
	out   []*ipld.Node

	// active holds the CIDs currently being resolved on the path from the
	// root to the node in progress. A repeat is a cycle, which honest
	// content addressing cannot produce but a corrupt or adversarial
	// store can present.
	active map[cid.Cid]struct{}
	nodes  int
}

func (w *walker) run(root *ipld.Node) (*ipld.Node, error) {
	w.push(task{kind: taskEnter, node: root})

	for len(w.tasks) > 0 {
		t := w.tasks[len(w.tasks)-1]
		w.tasks = w.tasks[:len(w.tasks)-1]

		var err error
		switch t.kind {
		case taskEnter:
			err = w.enter(t.node, t.depth)
		case taskExitList:
			err = w.exitList(t.count)
		case taskExitMap:
			err = w.exitMap(t.node)
		case taskExitInlined:
			err = w.exitInlined(t.node)
		case taskExitLink:
			delete(w.active, t.link)
			w.replaceTop(func(data *ipld.Node) *ipld.Node {
				return ipld.InlinedFromLink(t.link, data)
			})
		}
		if err != nil {
			return nil, err
		}
	}

	if len(w.out) != 1 {
		return nil, newError(KindConfig, cid.Undef,
			fmt.Sprintf("traversal ended with %d values on the stack", len(w.out)), nil)
	}
	return w.out[0], nil
}

func (w *walker) enter(n *ipld.Node, depth int) error {
	if err := w.ctx.Err(); err != nil {
		return err
	}
	w.nodes++
	if w.nodes > w.limits.MaxNodes {
		return newError(KindNodeCountExceeded, cid.Undef,
			fmt.Sprintf("node count exceeds limit %d", w.limits.MaxNodes), nil)
	}

	switch n.Kind() {
	case ipld.KindList:
		w.push(task{kind: taskExitList, count: n.Len()})
		for i := n.Len() - 1; i >= 0; i-- {
			w.push(task{kind: taskEnter, node: n.At(i), depth: depth})
		}
	case ipld.KindMap:
		w.push(task{kind: taskExitMap, node: n, count: n.Len()})
		entries := n.Entries()
		for i := len(entries) - 1; i >= 0; i-- {
			w.push(task{kind: taskEnter, node: entries[i].Value, depth: depth})
		}
	case ipld.KindInlined:
		// Hand-authored or previously inlined content: recurse into the
		// embedded subtree, keep the declared tags and original CID.
		w.push(task{kind: taskExitInlined, node: n})
		w.push(task{kind: taskEnter, node: n.InlineData(), depth: depth})
	case ipld.KindLink:
		return w.enterLink(n.AsLink(), depth)
	default:
		// Scalars pass through unchanged; nodes are immutable so reuse is
		// safe.
		w.out = append(w.out, n)
	}
	return nil
}

func (w *walker) enterLink(id cid.Cid, depth int) error {
	if _, onPath := w.active[id]; onPath {
		return newError(KindCycle, id, "cid already on the active resolution path", nil)
	}
	if depth+1 > w.limits.MaxDepth {
		return newError(KindDepthExceeded, id,
			fmt.Sprintf("link nesting exceeds limit %d", w.limits.MaxDepth), nil)
	}

	data, err := w.resolver.Resolve(w.ctx, id)
	if err != nil {
		return newError(KindResolution, id, "resolve failed", err)
	}
	c, err := w.codecs.Lookup(id.Prefix().Codec)
	if err != nil {
		return newError(KindDecode, id, "no codec for cid", err)
	}
	child, err := c.Decode(data)
	if err != nil {
		return newError(KindDecode, id, "decode failed", err)
	}

	w.active[id] = struct{}{}
	w.push(task{kind: taskExitLink, link: id})
	w.push(task{kind: taskEnter, node: child, depth: depth + 1})
	return nil
}

func (w *walker) exitList(count int) error {
	elems := w.popN(count)
	w.out = append(w.out, ipld.List(elems...))
	return nil
}

func (w *walker) exitMap(original *ipld.Node) error {
	entries := original.Entries()
	vals := w.popN(len(entries))
	rebuilt := make([]ipld.MapEntry, len(entries))
	for i := range entries {
		rebuilt[i] = ipld.MapEntry{Key: entries[i].Key, Value: vals[i]}
	}
	m, err := ipld.MapFromEntries(rebuilt)
	if err != nil {
		// Keys come from an existing map node, so duplicates are
		// impossible.
		return newError(KindConfig, cid.Undef, "map reassembly failed", err)
	}
	w.out = append(w.out, m)
	return nil
}

func (w *walker) exitInlined(original *ipld.Node) error {
	w.replaceTop(func(data *ipld.Node) *ipld.Node {
		if orig := original.OriginalCID(); orig.Defined() {
			return ipld.InlinedFromLink(orig, data)
		}
		return ipld.Inlined(original.InlineCodec(), original.InlineHash(), data)
	})
	return nil
}

func (w *walker) push(t task) { w.tasks = append(w.tasks, t) }

func (w *walker) popN(n int) []*ipld.Node {
	vals := make([]*ipld.Node, n)
	copy(vals, w.out[len(w.out)-n:])
	w.out = w.out[:len(w.out)-n]
	return vals
}

func (w *walker) replaceTop(f func(*ipld.Node) *ipld.Node) {
	top := w.out[len(w.out)-1]
	w.out[len(w.out)-1] = f(top)
}
