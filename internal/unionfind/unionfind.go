// Package unionfind implements a cost-aggregating union-find (disjoint-set)
// structure used to merge evicted contexts into cost-aggregated groups.
//
// Nodes are merged by creation order rather than pointer identity (Go gives
// no meaningful address ordering across garbage collections): the node
// created later always becomes the child of the node created earlier, a rule
// that stays consistent for the lifetime of the forest.
//
// © 2025 zombie-cache authors. MIT License.
package unionfind

// Node is one element of the forest. K identifies it for callers (e.g. a
// Tock); C is the cost type aggregated at each root (big.Rat in the
// eviction heap, or a plain numeric type in tests).
type Node[K comparable, C any] struct {
	key    K
	parent *Node[K, C]
	seq    uint64
	cost   C // only meaningful while parent == nil
}

// Key returns the key this node was created with.
func (n *Node[K, C]) Key() K {
	return n.key
}

// Adder is supplied once to a Forest and used to combine costs on merge.
type Adder[C any] func(a, b C) C

// Forest owns a monotonic sequence counter used to break merge ties by
// creation order, and the add function used to combine root costs.
type Forest[K comparable, C any] struct {
	nextSeq uint64
	add     Adder[C]
}

// New constructs an empty forest. add combines two root costs into one,
// e.g. `func(a, b *big.Rat) *big.Rat { return new(big.Rat).Add(a, b) }`.
func New[K comparable, C any](add Adder[C]) *Forest[K, C] {
	return &Forest[K, C]{add: add}
}

// NewNode creates a fresh singleton set containing key with the given
// initial cost.
func (f *Forest[K, C]) NewNode(key K, cost C) *Node[K, C] {
	f.nextSeq++
	return &Node[K, C]{key: key, seq: f.nextSeq, cost: cost}
}

// Root returns the representative of n's set, compressing the path along
// the way.
func Root[K comparable, C any](n *Node[K, C]) *Node[K, C] {
	if n.parent == nil {
		return n
	}
	n.parent = Root(n.parent)
	return n.parent
}

// Value returns the cost aggregated at n's set root.
func Value[K comparable, C any](n *Node[K, C]) C {
	return Root(n).cost
}

// Update replaces the root's cost with f applied to the current cost.
func Update[K comparable, C any](n *Node[K, C], f func(C) C) {
	root := Root(n)
	root.cost = f(root.cost)
}

// Merge unions the sets containing a and b. The node created later becomes
// the child of the node created earlier; the earlier node's cost absorbs
// the later node's cost via the forest's Adder. A no-op if a and b are
// already in the same set. Returns the resulting root.
func (f *Forest[K, C]) Merge(a, b *Node[K, C]) *Node[K, C] {
	ra, rb := Root(a), Root(b)
	if ra == rb {
		return ra
	}
	if ra.seq > rb.seq {
		ra, rb = rb, ra
	}
	rb.parent = ra
	ra.cost = f.add(ra.cost, rb.cost)
	return ra
}

// Same reports whether a and b currently belong to the same set.
func Same[K comparable, C any](a, b *Node[K, C]) bool {
	return Root(a) == Root(b)
}
