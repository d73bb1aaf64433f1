package ipld

// PostOrderIter walks a node tree bottom-up (children before parents) using
// explicit stacks, so arbitrarily deep inputs cannot overflow the call
// stack. The embedded subtree of an Inlined node is visited before the
// Inlined node itself.
type PostOrderIter struct {
	inbound  []*Node
	outbound []*Node
}

// NewPostOrderIter returns an iterator over root.
func NewPostOrderIter(root *Node) *PostOrderIter {
	if root == nil {
		return &PostOrderIter{}
	}
	return &PostOrderIter{inbound: []*Node{root}}
}

// Next returns the next node in post order, or false when exhausted.
func (it *PostOrderIter) Next() (*Node, bool) {
	for len(it.inbound) > 0 {
		n := it.inbound[len(it.inbound)-1]
		it.inbound = it.inbound[:len(it.inbound)-1]
		it.outbound = append(it.outbound, n)

		switch n.Kind() {
		case KindList:
			for i := 0; i < n.Len(); i++ {
				it.inbound = append(it.inbound, n.At(i))
			}
		case KindMap:
			for _, e := range n.Entries() {
				it.inbound = append(it.inbound, e.Value)
			}
		case KindInlined:
			it.inbound = append(it.inbound, n.InlineData())
		}
	}
	if len(it.outbound) == 0 {
		return nil, false
	}
	n := it.outbound[len(it.outbound)-1]
	it.outbound = it.outbound[:len(it.outbound)-1]
	return n, true
}

// Count returns the total node count of the tree rooted at root, counting
// every kind including container nodes themselves.
func Count(root *Node) int {
	n := 0
	it := NewPostOrderIter(root)
	for _, ok := it.Next(); ok; _, ok = it.Next() {
		n++
	}
	return n
}
