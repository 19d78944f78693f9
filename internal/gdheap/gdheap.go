// Package gdheap implements the GreedyDual eviction priority queue: a binary
// min-heap ordered by cost + L, where L is a monotonically increasing
// "inflation" term bumped on every pop so that previously-cheap, recently
// untouched entries rise in relative priority over time (the GreedyDual
// family's classic aging trick).
//
// © 2025 zombie-cache authors. MIT License.
package gdheap

import (
	"math/big"
)

// ApproxFactor is the (numerator, denominator) tolerance used by AdjustPop:
// a recomputed cost within this factor of the heap-recorded cost is treated
// as unchanged, so a cheap but noisy cost function need not cause endless
// reinsertion churn. Comparisons are exact (cross-multiplied), never
// floating point, per the cost model's rational-arithmetic requirement.
type ApproxFactor struct {
	Num *big.Int
	Den *big.Int
}

// DefaultApproxFactor is the identity factor (1/1): only exact cost matches
// are accepted without reinsertion.
func DefaultApproxFactor() ApproxFactor {
	return ApproxFactor{Num: big.NewInt(1), Den: big.NewInt(1)}
}

// within reports whether old and fresh are within the configured tolerance
// of one another: old/Num <= fresh/Den && fresh/Num <= old/Den, evaluated in
// exact big.Rat arithmetic so no floating-point rounding occurs.
func (f ApproxFactor) within(old, fresh *big.Rat) bool {
	oldOverNum := new(big.Rat).Quo(old, new(big.Rat).SetInt(f.Num))
	freshOverDen := new(big.Rat).Quo(fresh, new(big.Rat).SetInt(f.Den))
	if oldOverNum.Cmp(freshOverDen) > 0 {
		return false
	}
	freshOverNum := new(big.Rat).Quo(fresh, new(big.Rat).SetInt(f.Num))
	oldOverDen := new(big.Rat).Quo(old, new(big.Rat).SetInt(f.Den))
	return freshOverNum.Cmp(oldOverDen) <= 0
}

// NotifyIndexChanged is called whenever an element's position in the
// backing array changes, so a caller can keep an external index (e.g. a
// Tock -> heap-slot map) in sync.
type NotifyIndexChanged[T any] func(t T, idx int)

// NotifyRemoved is called once when an element permanently leaves the heap.
type NotifyRemoved[T any] func(t T)

type node[T any] struct {
	t    T
	cost *big.Rat
	l    *big.Rat // L at the time this node was pushed or last touched
}

func (n *node[T]) key() *big.Rat {
	return new(big.Rat).Add(n.cost, n.l)
}

// Heap is the GreedyDual eviction priority queue.
type Heap[T any] struct {
	arr     []node[T]
	l       *big.Rat
	onIndex NotifyIndexChanged[T]
	onDel   NotifyRemoved[T]
}

// New constructs an empty heap. Either callback may be nil.
func New[T any](onIndex NotifyIndexChanged[T], onDel NotifyRemoved[T]) *Heap[T] {
	return &Heap[T]{l: new(big.Rat), onIndex: onIndex, onDel: onDel}
}

func (h *Heap[T]) notifyChanged(i int) {
	if h.onIndex != nil {
		h.onIndex(h.arr[i].t, i)
	}
}

func (h *Heap[T]) notifyRemoved(t T) {
	if h.onDel != nil {
		h.onDel(t)
	}
}

func parent(i int) int { return (i+1)/2 - 1 }
func left(i int) int   { return (i+1)*2 - 1 }
func right(i int) int  { return left(i) + 1 }

func (h *Heap[T]) has(i int) bool { return i >= 0 && i < len(h.arr) }

func (h *Heap[T]) less(i, j int) bool {
	return h.arr[i].key().Cmp(h.arr[j].key()) < 0
}

func (h *Heap[T]) swap(i, j int) {
	h.arr[i], h.arr[j] = h.arr[j], h.arr[i]
}

func (h *Heap[T]) flow(idx int, idxNotified bool) {
	if idx == 0 {
		return
	}
	p := parent(idx)
	if h.less(idx, p) {
		h.swap(idx, p)
		if !idxNotified {
			h.notifyChanged(idx)
		}
		h.flow(p, true)
		h.notifyChanged(p)
	}
}

func (h *Heap[T]) sink(idx int, idxNotified bool) {
	l, r := left(idx), right(idx)
	if !h.has(l) && !h.has(r) {
		return
	}
	smaller := l
	switch {
	case !h.has(l):
		smaller = r
	case !h.has(r):
		smaller = l
	default:
		if !h.less(l, r) {
			smaller = r
		}
	}
	if h.less(smaller, idx) {
		h.swap(idx, smaller)
		if !idxNotified {
			h.notifyChanged(idx)
		}
		h.sink(smaller, true)
		h.notifyChanged(smaller)
	}
}

func (h *Heap[T]) rebalance(idx int, idxNotified bool) {
	h.flow(idx, idxNotified)
	h.sink(idx, idxNotified)
}

// Empty reports whether the heap holds no elements.
func (h *Heap[T]) Empty() bool { return len(h.arr) == 0 }

// Len reports the element count.
func (h *Heap[T]) Len() int { return len(h.arr) }

// Push inserts t with the given absolute cost. cost is copied.
func (h *Heap[T]) Push(t T, cost *big.Rat) {
	h.arr = append(h.arr, node[T]{t: t, cost: new(big.Rat).Set(cost), l: new(big.Rat).Set(h.l)})
	idx := len(h.arr) - 1
	h.flow(idx, true)
	h.notifyChanged(idx)
}

func (h *Heap[T]) removeNoRebalance(idx int) node[T] {
	ret := h.arr[idx]
	last := len(h.arr) - 1
	h.swap(idx, last)
	h.arr = h.arr[:last]
	return ret
}

// Touch refreshes the L term recorded for the element at idx to the heap's
// current L and rebalances it, used when an element is accessed without
// being evicted (the GreedyDual "touch" operation).
func (h *Heap[T]) Touch(idx int) {
	h.arr[idx].l = new(big.Rat).Set(h.l)
	h.rebalance(idx, true)
	h.notifyChanged(idx)
}

// AdjustPop pops the minimum-key element, recomputes its cost with costFn,
// and if the fresh cost is within the configured ApproxFactor of the
// recorded cost, commits to evicting it (bumping L to cost+L of the evicted
// entry and returning it). Otherwise the node is reinserted with its fresh
// cost and the loop repeats. Panics if the heap is empty.
func (h *Heap[T]) AdjustPop(approx ApproxFactor, costFn func(T) *big.Rat) T {
	for {
		if h.Empty() {
			panic("gdheap: AdjustPop on empty heap")
		}
		n := h.removeNoRebalance(0)
		if len(h.arr) > 0 {
			h.rebalance(0, true)
			h.notifyChanged(0)
		}
		fresh := costFn(n.t)
		if approx.within(n.cost, fresh) {
			h.l = new(big.Rat).Add(n.cost, n.l)
			h.notifyRemoved(n.t)
			return n.t
		}
		n.cost = fresh
		h.arr = append(h.arr, n)
		idx := len(h.arr) - 1
		h.flow(idx, true)
		h.notifyChanged(idx)
	}
}

// RemoveAt removes and returns the element currently at slot idx, rebalancing
// the heap around the gap. Used for an explicit out-of-band eviction of one
// known entry, bypassing the priority order AdjustPop would otherwise impose.
func (h *Heap[T]) RemoveAt(idx int) T {
	ret := h.removeNoRebalance(idx)
	h.notifyRemoved(ret.t)
	if idx < len(h.arr) {
		h.rebalance(idx, true)
		h.notifyChanged(idx)
	}
	return ret.t
}

// Values returns a snapshot copy of the elements currently stored, in
// heap (not sorted) order.
func (h *Heap[T]) Values() []T {
	out := make([]T, len(h.arr))
	for i, n := range h.arr {
		out[i] = n.t
	}
	return out
}
