package kinetic

// NotifyIndexChanged is invoked whenever an element's heap-slot index moves,
// so callers can keep an external Tock -> slot map in sync.
type NotifyIndexChanged[T any] func(t T, idx int)

type node[T any] struct {
	t       T
	aff     AffFunction
	certIdx int // -1 if this node has no pending certificate
}

type certificate struct {
	breakTime int64
	heapIdx   int
}

// Heap is the kinetic min-heap: elements are ordered by their affine
// function evaluated at the heap's current virtual time, and certificates
// record when the nearest ordering violation between a node and its parent
// will occur so AdvanceTo only has to fix what actually breaks.
type Heap[T any] struct {
	time          int64
	totalRecert   int
	nodes         *binHeap[node[T]]
	certs         *binHeap[certificate]
	pendingRecert map[int]struct{}
	notify        NotifyIndexChanged[T]
}

// New constructs an empty kinetic heap with its virtual clock starting at
// startTime.
func New[T any](startTime int64, notify NotifyIndexChanged[T]) *Heap[T] {
	h := &Heap[T]{time: startTime, notify: notify, pendingRecert: make(map[int]struct{})}
	h.nodes = newBinHeap(
		func(a, b node[T]) bool { return a.aff.Eval(h.time).Cmp(b.aff.Eval(h.time)) < 0 },
		func(n node[T], idx int) {
			if n.certIdx != -1 {
				h.certs.arr[n.certIdx].heapIdx = idx
			}
			h.willRecert(idx)
			if h.notify != nil {
				h.notify(n.t, idx)
			}
		},
		func(n node[T]) {
			if n.certIdx != -1 {
				h.certs.removeAt(n.certIdx)
			}
		},
	)
	h.certs = newBinHeap(
		func(a, b certificate) bool { return a.breakTime < b.breakTime },
		func(c certificate, idx int) {
			h.nodes.arr[c.heapIdx].certIdx = idx
		},
		func(c certificate) {
			if c.heapIdx != -1 && c.heapIdx < len(h.nodes.arr) {
				h.nodes.arr[c.heapIdx].certIdx = -1
			}
		},
	)
	return h
}

func (h *Heap[T]) willRecert(idx int) {
	h.pendingRecert[idx] = struct{}{}
	h.pendingRecert[bhLeft(idx)] = struct{}{}
	h.pendingRecert[bhRight(idx)] = struct{}{}
}

func (h *Heap[T]) fix(idx int) {
	h.nodes.flow(idx, false)
}

func (h *Heap[T]) recertOne(idx int) {
	if !h.nodes.has(idx) {
		return
	}
	n := h.nodes.arr[idx]
	if idx == 0 {
		if n.certIdx != -1 {
			h.certs.removeAt(n.certIdx)
		}
		return
	}
	p := h.nodes.arr[bhParent(idx)]
	breakTime, ok := n.aff.GeUntil(p.aff)
	switch {
	case ok && breakTime <= h.time:
		h.fix(idx)
	case n.certIdx != -1 && ok:
		if h.certs.arr[n.certIdx].breakTime != breakTime {
			h.certs.arr[n.certIdx].breakTime = breakTime
			h.certs.rebalance(n.certIdx, false)
		}
	case n.certIdx == -1 && ok:
		h.certs.push(certificate{breakTime: breakTime, heapIdx: idx})
	case n.certIdx != -1 && !ok:
		h.certs.removeAt(n.certIdx)
	}
}

// recert drains the pending-recertification set. It is a batch operation
// rather than a fix-one-at-a-time loop because a single time advance can
// invalidate several certificates' parent/child pairs at once, and
// reconsidering only the indices whose parent actually changed is cheaper
// than rebuilding every certificate from scratch.
func (h *Heap[T]) recert() {
	for len(h.pendingRecert) > 0 {
		batch := h.pendingRecert
		h.pendingRecert = make(map[int]struct{})
		for idx := range batch {
			h.recertOne(idx)
		}
	}
}

// Push inserts t with affine priority f.
func (h *Heap[T]) Push(t T, f AffFunction) {
	h.nodes.push(node[T]{t: t, aff: f, certIdx: -1})
	h.recert()
}

// Peek returns the current minimum element without removing it. Panics if
// the heap is empty.
func (h *Heap[T]) Peek() T {
	return h.nodes.peek().t
}

// Pop removes and returns the current minimum element.
func (h *Heap[T]) Pop() T {
	ret := h.nodes.pop().t
	h.recert()
	return ret
}

// Remove removes and returns the element at slot idx.
func (h *Heap[T]) Remove(idx int) T {
	ret := h.nodes.removeAt(idx).t
	h.recert()
	return ret
}

// At returns the element currently stored at slot idx.
func (h *Heap[T]) At(idx int) T {
	return h.nodes.arr[idx].t
}

// GetAff returns the affine function currently associated with slot idx.
func (h *Heap[T]) GetAff(idx int) AffFunction {
	return h.nodes.arr[idx].aff
}

// SetAff replaces the affine function at slot idx and restores heap order.
func (h *Heap[T]) SetAff(idx int, f AffFunction) {
	h.nodes.arr[idx].aff = f
	h.nodes.rebalance(idx, false)
}

// UpdateAff applies f to the affine function currently at slot idx.
func (h *Heap[T]) UpdateAff(idx int, f func(AffFunction) AffFunction) {
	h.SetAff(idx, f(h.GetAff(idx)))
}

// Time returns the heap's current virtual clock value.
func (h *Heap[T]) Time() int64 { return h.time }

// TotalRecertifications reports how many certificates have expired and
// triggered a fix, exposed for metrics/tests.
func (h *Heap[T]) TotalRecertifications() int { return h.totalRecert }

// Len reports how many elements the heap holds.
func (h *Heap[T]) Len() int { return h.nodes.len() }

// Empty reports whether the heap holds no elements.
func (h *Heap[T]) Empty() bool { return h.nodes.empty() }

// AdvanceTo moves the virtual clock forward to newTime, processing every
// certificate that expires at or before it. newTime must not precede the
// current time.
func (h *Heap[T]) AdvanceTo(newTime int64) {
	if newTime < h.time {
		panic("kinetic: AdvanceTo cannot move time backwards")
	}
	h.time = newTime
	for !h.certs.empty() && h.certs.peek().breakTime <= h.time {
		c := h.certs.pop()
		h.fix(c.heapIdx)
		h.totalRecert++
	}
	h.recert()
}

// Values returns a snapshot of the stored elements in heap (not sorted)
// order.
func (h *Heap[T]) Values() []T {
	ns := h.nodes.values()
	out := make([]T, len(ns))
	for i, n := range ns {
		out[i] = n.t
	}
	return out
}
