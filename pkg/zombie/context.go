package zombie

// context.go implements the lineage log entry: the Root variant for
// user-supplied leaves (never evicted) and the Full variant for recorded
// binds (evictable, carrying the metadata needed to recompute them). A
// Context exclusively owns the value nodes it produces; cells only ever hold
// weak references to them (see cell.go).
//
// © 2025 zombie-cache authors. MIT License.

import (
	"math/big"
	"time"

	"github.com/Voskan/zombie-cache/internal/tock"
	"github.com/Voskan/zombie-cache/internal/unionfind"
)

type contextKind uint8

const (
	kindRoot contextKind = iota
	kindFull
)

// mwState is a Full context's replay lifecycle state: Complete, TailCall, or
// Partial. A run that finishes records Complete; replaying an evicted
// Complete entry re-runs it and leaves it Partial if that replay stops early
// at its target. TailCall and Partial mark entries whose output Tock is
// still the Max sentinel. Only Full contexts carry a meaningful
// state; a Root context is always (trivially) Complete.
type mwState uint8

const (
	stateComplete mwState = iota
	stateTailCall
	statePartial
)

// valueNode is the type-erased holder for one computed value, plus a
// back-pointer to the Context that owns it. The owner pointer is a plain
// strong pointer: it only ever points "up" towards an Akasha-rooted Context
// and never forms a cycle an eviction needs to break. `live` is the
// authoritative eviction flag: weak.Pointer[valueNode] (cell.go) only
// becomes nil once the Go garbage collector actually reclaims the node,
// which happens on its own schedule, not the instant a Context drops its
// strong reference, so eviction correctness is tracked by this explicit
// flag and the weak pointer is purely a fast-path cache.
type valueNode struct {
	createdTime tock.Tock
	value       any
	owner       *Context
	live        bool
	size        int
	poolIndex   int // always -1: eviction backends track the owning Context's slot
}

// Context is one entry in the lineage log: either a Root (user-supplied,
// permanent) or a Full (recorded bind, evictable and replayable).
type Context struct {
	kind     contextKind
	start    tock.Tock
	end      tock.Tock
	produced []*valueNode
	space    int

	// Full-only fields.
	state mwState
	thunk Thunk

	// entryInputs is the dependency list of the ORIGINAL bind call that
	// created this Context, fixed at creation and never touched again: a
	// tail call may run under entirely different inputs, but replay must
	// always restart from the entry point, not from wherever the last
	// tail-call segment left off.
	entryInputs []tock.Tock

	// dependencies is the union of every input Tock observed across this
	// Context's entire tail-call chain, used for UF/used_by bookkeeping:
	// the cost model charges a context's recompute cost against everything
	// any segment read, not just what the final segment happened to read.
	dependencies []tock.Tock
	usedBy       []tock.Tock
	output       tock.Tock
	timeTaken    time.Duration
	lastAccessed time.Duration
	evicted      bool
	poolIndex    int // heap slot; -1 when absent from the eviction backend
	ufNode       *unionfind.Node[tock.Tock, *big.Rat]

	// costAtEviction remembers the exact rational cost merged into ufNode's
	// root the moment this context was last evicted, so a later replay can
	// subtract precisely that amount back out even though timeTaken will
	// have since been overwritten by a fresh measurement.
	costAtEviction *big.Rat

	// pendingThunk/pendingInputs/resumeAt capture a partially-replayed
	// context's next unrun tail-call segment, letting CPS mode (WithCPS)
	// resume a chain exactly where an earlier partial replay left off instead
	// of restarting from entryInputs (ANF mode's strategy). nil/tock.Max when
	// no continuation is pending.
	pendingThunk  Thunk
	pendingInputs []tock.Tock
	resumeAt      tock.Tock
}

func newRootContext(t tock.Tock, node *valueNode) *Context {
	ctx := &Context{kind: kindRoot, start: t, end: t + 1, poolIndex: -1}
	ctx.produced = append(ctx.produced, node)
	ctx.space += node.size
	node.owner = ctx
	node.live = true
	return ctx
}

func newFullContext(start tock.Tock, deps []tock.Tock) *Context {
	return &Context{
		kind:         kindFull,
		start:        start,
		end:          tock.Max,
		entryInputs:  append([]tock.Tock(nil), deps...),
		dependencies: append([]tock.Tock(nil), deps...),
		output:       tock.Max,
		state:        stateTailCall,
		poolIndex:    -1,
	}
}

// mergeDependencies records a tail-call segment's inputs into the running
// union used for cost/used_by bookkeeping, skipping Tocks already present.
func (c *Context) mergeDependencies(inputs []tock.Tock) {
	for _, t := range inputs {
		found := false
		for _, existing := range c.dependencies {
			if existing == t {
				found = true
				break
			}
		}
		if !found {
			c.dependencies = append(c.dependencies, t)
		}
	}
}

// Evictable reports whether this context may be placed in an eviction
// backend: only completed Full contexts with a live, materialized output.
func (c *Context) Evictable() bool {
	return c.kind == kindFull && c.state == stateComplete && !c.evicted && c.hasLiveOutput()
}

func (c *Context) hasLiveOutput() bool {
	for _, n := range c.produced {
		if n.live {
			return true
		}
	}
	return false
}

func (c *Context) outputNode() *valueNode {
	for _, n := range c.produced {
		if n.createdTime == c.output {
			return n
		}
	}
	return nil
}

// registerUsedBy records that dependent depends on c: the reverse edge
// eviction needs so a context's union-find class can absorb evicted
// dependents as well as evicted dependencies.
func (c *Context) registerUsedBy(dependent tock.Tock) {
	for _, t := range c.usedBy {
		if t == dependent {
			return
		}
	}
	c.usedBy = append(c.usedBy, dependent)
}
