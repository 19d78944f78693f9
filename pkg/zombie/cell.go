package zombie

// cell.go implements Zombie[T], the thin user-facing cell handle: a Tock
// identifying a value plus a cached weak reference to the node currently
// holding it. Resolving a cell never allocates a strong reference that would
// keep an evicted value alive; GetValue always goes through the engine: a
// read of a live value is reported to the eviction backend as an access, and
// a cache miss is replayed.
//
// © 2025 zombie-cache authors. MIT License.

import (
	"weak"

	"github.com/Voskan/zombie-cache/internal/tock"
)

// Cell is implemented by every Zombie[T], letting dynamic-arity binds
// (BindZombieUntyped) accept a heterogeneous slice of dependencies.
type Cell interface {
	tockOf() tock.Tock
}

// Zombie is a handle to one recomputation-based cell of type T. The zero
// value is not usable; construct one with New or a BindZombie* call.
type Zombie[T any] struct {
	eng   *Engine
	t     tock.Tock
	cache weak.Pointer[valueNode]
}

// New, called outside any bind body, creates a permanent Root cell holding
// value: a leaf of the lineage log, never evicted, never replayed. Called
// inside a bind body, it records value as an output of that bind, which is
// evicted and replayed together with the bind.
func New[T any](eng *Engine, value T) *Zombie[T] {
	size := eng.cfg.defaultSizeOf(value)
	node := eng.newValue(value, size)
	return &Zombie[T]{eng: eng, t: node.createdTime, cache: weak.Make(node)}
}

func zombieFromTock[R any](eng *Engine, t tock.Tock) *Zombie[R] {
	z := &Zombie[R]{eng: eng, t: t}
	if node, ok := eng.liveNodeAt(t); ok {
		z.cache = weak.Make(node)
	}
	return z
}

func (z *Zombie[T]) tockOf() tock.Tock { return z.t }

// Tock returns the logical timestamp identifying this cell's value.
func (z *Zombie[T]) Tock() tock.Tock { return z.t }

// resolve returns the live value node backing z, upgrading the cached weak
// pointer when possible and falling back to the engine, which replays on a
// miss, otherwise.
func (z *Zombie[T]) resolve() *valueNode {
	if node := z.cache.Value(); node != nil && node.live {
		if owner := node.owner; owner != nil && owner.kind == kindFull && owner.poolIndex >= 0 {
			z.eng.backend.touch(owner)
		}
		return node
	}
	z.eng.materialize(z.t)
	node, ok := z.eng.liveNodeAt(z.t)
	if !ok {
		invariantf("Zombie.GetValue", "tock %d did not become live after materialize", z.t)
	}
	z.cache = weak.Make(node)
	return node
}

// GetValue returns z's value, recomputing it (and anything it transitively
// depends on that has also been evicted) if necessary.
func (z *Zombie[T]) GetValue() T {
	return z.resolve().value.(T)
}

func (z *Zombie[T]) owner() *Context {
	entry := z.eng.index.GetContaining(z.t)
	return entry.Value
}

// Evictable reports whether z's owning Context may currently be evicted:
// only a completed, live, non-Root bind.
func (z *Zombie[T]) Evictable() bool {
	ctx := z.owner()
	return ctx != nil && ctx.Evictable()
}

// Evict forces z's owning Context to be evicted immediately, regardless of
// the eviction backend's priority order. A no-op if z is not Evictable.
func (z *Zombie[T]) Evict() {
	if ctx := z.owner(); ctx != nil {
		z.eng.evict(ctx)
	}
}

// Unique reports whether z's owning Context produced exactly one value,
// used by callers deciding whether evicting z would also drop sibling
// values they still hold.
func (z *Zombie[T]) Unique() bool {
	ctx := z.owner()
	return ctx != nil && len(ctx.produced) == 1
}
