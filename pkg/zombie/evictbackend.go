package zombie

// evictbackend.go adapts internal/gdheap and internal/kinetic to a single
// evictionBackend interface the engine drives uniformly, so Config's choice
// of EvictionBackend only has to be resolved once, at construction.
//
// © 2025 zombie-cache authors. MIT License.

import (
	"math/big"

	"github.com/Voskan/zombie-cache/internal/gdheap"
	"github.com/Voskan/zombie-cache/internal/kinetic"
	"github.com/Voskan/zombie-cache/internal/tock"
)

type evictionBackend interface {
	push(ctx *Context)
	touch(ctx *Context)
	remove(ctx *Context)
	popMin() *Context
	len() int
}

// gdBackend drives internal/gdheap keyed by costFn(ctx), re-validated on pop
// via the approx factor.
type gdBackend struct {
	heap   *gdheap.Heap[tock.Tock]
	byTock map[tock.Tock]*Context
	approx gdheap.ApproxFactor
	costFn func(*Context) *big.Rat
}

func newGDBackend(approx gdheap.ApproxFactor, costFn func(*Context) *big.Rat) *gdBackend {
	b := &gdBackend{byTock: make(map[tock.Tock]*Context), approx: approx, costFn: costFn}
	b.heap = gdheap.New[tock.Tock](
		func(t tock.Tock, idx int) {
			if ctx, ok := b.byTock[t]; ok {
				ctx.poolIndex = idx
			}
		},
		nil, // remove and popMin drop byTock entries themselves
	)
	return b
}

func (b *gdBackend) push(ctx *Context) {
	b.byTock[ctx.start] = ctx
	b.heap.Push(ctx.start, b.costFn(ctx))
}

func (b *gdBackend) touch(ctx *Context) {
	if ctx.poolIndex >= 0 {
		b.heap.Touch(ctx.poolIndex)
	}
}

func (b *gdBackend) remove(ctx *Context) {
	if ctx.poolIndex >= 0 {
		b.heap.RemoveAt(ctx.poolIndex)
	}
	delete(b.byTock, ctx.start)
	ctx.poolIndex = -1
}

func (b *gdBackend) popMin() *Context {
	if b.heap.Empty() {
		return nil
	}
	t := b.heap.AdjustPop(b.approx, func(t tock.Tock) *big.Rat {
		return b.costFn(b.byTock[t])
	})
	ctx := b.byTock[t]
	delete(b.byTock, t)
	if ctx != nil {
		ctx.poolIndex = -1
	}
	return ctx
}

func (b *gdBackend) len() int { return b.heap.Len() }

// kineticBackend drives internal/kinetic: each context's priority is the
// affine function f(x) = cost + t0 - x, where t0 is the backend's virtual
// clock when the context was pushed or last touched, so an untouched context's eviction priority decays linearly the
// longer it goes without being pushed or touched again. This is the kinetic
// analogue of GreedyDual's additive aging term L, expressed natively as a
// line's slope instead of a value recomputed on every pop.
type kineticBackend struct {
	heap        *kinetic.Heap[tock.Tock]
	byTock      map[tock.Tock]*Context
	costFn      func(*Context) *big.Rat
	sink        metricsSink
	lastRecerts int
}

func newKineticBackend(costFn func(*Context) *big.Rat, sink metricsSink) *kineticBackend {
	b := &kineticBackend{byTock: make(map[tock.Tock]*Context), costFn: costFn, sink: sink}
	b.heap = kinetic.New[tock.Tock](0, func(t tock.Tock, idx int) {
		if ctx, ok := b.byTock[t]; ok {
			ctx.poolIndex = idx
		}
	})
	return b
}

// costFixedPoint converts an exact rational cost (nanoseconds per unit of
// space) to a fixed-point int64 scaled by 10^6, via float64: kinetic's affine functions are evaluated over
// big.Int, not big.Rat, since a certificate's break-time search depends on
// being able to divide exactly, so the cost enters as an integer from the
// start rather than being rounded mid-computation.
func costFixedPoint(cost *big.Rat) int64 {
	scaled := new(big.Rat).Mul(cost, big.NewRat(1_000_000, 1))
	f, _ := scaled.Float64()
	return int64(f)
}

func (b *kineticBackend) affFor(ctx *Context) kinetic.AffFunction {
	cost := costFixedPoint(b.costFn(ctx))
	now := b.heap.Time()
	return kinetic.AffFunction{Slope: big.NewInt(-1), XShift: -(cost + now)}
}

func (b *kineticBackend) push(ctx *Context) {
	b.byTock[ctx.start] = ctx
	b.heap.Push(ctx.start, b.affFor(ctx))
}

func (b *kineticBackend) touch(ctx *Context) {
	if ctx.poolIndex >= 0 {
		b.heap.SetAff(ctx.poolIndex, b.affFor(ctx))
	}
}

func (b *kineticBackend) remove(ctx *Context) {
	if ctx.poolIndex >= 0 {
		b.heap.Remove(ctx.poolIndex)
	}
	delete(b.byTock, ctx.start)
	ctx.poolIndex = -1
}

func (b *kineticBackend) popMin() *Context {
	if b.heap.Empty() {
		return nil
	}
	b.heap.AdvanceTo(b.heap.Time() + 1)
	if total := b.heap.TotalRecertifications(); total > b.lastRecerts {
		b.sink.incKineticRecert(total - b.lastRecerts)
		b.lastRecerts = total
	}
	t := b.heap.Pop()
	ctx := b.byTock[t]
	delete(b.byTock, t)
	if ctx != nil {
		ctx.poolIndex = -1
	}
	return ctx
}

func (b *kineticBackend) len() int { return b.heap.Len() }
