package zombie

// engine.go is the heart of the library: it owns the lineage index, the
// logical clock, the exclusive-time meter, the replay controller (tardis),
// the union-find cost forest, and the chosen eviction backend, and drives
// every bind and replay through them. pkg/zombie's other files define the
// types Engine operates on (Context, Zombie[T], Trampoline, tardis); this
// file is the orchestration.
//
// © 2025 zombie-cache authors. MIT License.

import (
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/Voskan/zombie-cache/internal/akasha"
	"github.com/Voskan/zombie-cache/internal/gdheap"
	"github.com/Voskan/zombie-cache/internal/meter"
	"github.com/Voskan/zombie-cache/internal/tock"
	"github.com/Voskan/zombie-cache/internal/unionfind"
)

// Engine is the single-threaded recomputation-based memory manager. It is
// not safe for concurrent use from multiple goroutines: one engine, one
// logical clock, no sharding.
type Engine struct {
	cfg     *Config
	clock   *tock.Clock
	index   *akasha.Akasha[*Context]
	meterM  *meter.Meter
	tardis  *tardis
	uf      *unionfind.Forest[tock.Tock, *big.Rat]
	backend evictionBackend
	metrics metricsSink
	log     *zap.Logger

	records []*Context // currently-recording Contexts, outermost first

	// evictedSet tracks every currently-evicted Full context so Stats can
	// count distinct union-find roots without a separate registry.
	evictedSet map[*Context]struct{}
}

func addRat(a, b *big.Rat) *big.Rat { return new(big.Rat).Add(a, b) }

func ratFromDuration(d time.Duration) *big.Rat { return big.NewRat(int64(d), 1) }

func durationFromRat(r *big.Rat) time.Duration {
	f, _ := r.Float64()
	return time.Duration(f)
}

// NewEngine constructs an Engine. Every Option is applied in order and then
// validated; a misconfiguration is returned as a plain error, as opposed to
// the panic-based InvariantError class used for programmer errors during
// operation.
func NewEngine(opts ...Option) (*Engine, error) {
	cfg := defaultConfig()
	if err := applyOptions(cfg, opts); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:        cfg,
		clock:      tock.NewClock(),
		index:      akasha.New[*Context](cfg.akashaBackend),
		meterM:     meter.New(cfg.clock),
		tardis:     newTardis(),
		uf:         unionfind.New[tock.Tock, *big.Rat](addRat),
		metrics:    newMetricsSink(cfg.registry),
		log:        cfg.logger,
		evictedSet: make(map[*Context]struct{}),
	}
	approxNum, approxDen := cfg.approxFactor()
	switch cfg.evictionBackend {
	case BackendKinetic:
		e.backend = newKineticBackend(e.costOf, e.metrics)
		e.log.Debug("engine constructed", zap.String("eviction_backend", "kinetic"))
	default:
		e.backend = newGDBackend(gdheap.ApproxFactor{Num: approxNum, Den: approxDen}, e.costOf)
		e.log.Debug("engine constructed", zap.String("eviction_backend", "greedydual"))
	}
	return e, nil
}

// --- recording stack ---------------------------------------------------

func (e *Engine) topRecord() *Context {
	if len(e.records) == 0 {
		return nil
	}
	return e.records[len(e.records)-1]
}

func (e *Engine) pushRecord(c *Context) { e.records = append(e.records, c) }

func (e *Engine) popRecord() { e.records = e.records[:len(e.records)-1] }

// widenAncestors extends the Akasha range of every currently-recording
// Context so it already covers upTo before a new nested entry starting at
// upTo is inserted under it: Akasha.Put requires the containing entry to
// dominate the new range at the instant of insertion, but a Context's true
// extent is only known once it finishes, so every enclosing Context must be
// pre-widened each time a new descendant is about to be recorded.
func (e *Engine) widenAncestors(upTo tock.Tock) {
	for _, ancestor := range e.records {
		if ancestor.end <= upTo {
			ancestor.end = upTo + 1
			e.index.SetEnd(ancestor.start, ancestor.end)
		}
	}
}

// --- value node creation -------------------------------------------------

// newValue mints a fresh Tock for value and attaches it either to the
// currently-recording Context (so a bind's outputs remain evictable along
// with the bind itself) or, outside any recording, to a brand new Root
// Context (permanent, never evicted).
func (e *Engine) newValue(value any, size int) *valueNode {
	if size <= 0 {
		size = e.cfg.defaultSizeOf(value)
	}
	t := e.clock.Next()
	node := &valueNode{createdTime: t, value: value, live: true, size: size, poolIndex: -1}
	if top := e.topRecord(); top != nil {
		node.owner = top
		top.produced = append(top.produced, node)
		top.space += size
	} else {
		ctx := newRootContext(t, node)
		e.index.Put(tock.Range{Beg: t, End: t + 1}, ctx)
	}
	e.tardis.observe(node)
	return node
}

// lookupContext returns the Context whose precise entry starts at t, if any.
func (e *Engine) lookupContext(t tock.Tock) (*Context, bool) {
	if !e.index.HasPrecise(t) {
		return nil, false
	}
	return e.index.GetPrecise(t).Value, true
}

// owningContext resolves any Tock, a context's own start or one of the value
// Tocks minted inside it, to the innermost Full context covering it. Returns
// nil for Tocks owned by a Root entry (roots have no cost and never evict).
func (e *Engine) owningContext(t tock.Tock) *Context {
	entry := e.index.GetContaining(t)
	if entry.Value == nil || entry.Value.kind != kindFull {
		return nil
	}
	return entry.Value
}

// liveNodeAt returns the live value node produced at exactly Tock t, found
// by locating whichever Context's range currently contains t (its owner)
// and scanning its produced list.
func (e *Engine) liveNodeAt(t tock.Tock) (*valueNode, bool) {
	entry := e.index.GetContaining(t)
	if entry.Value == nil {
		return nil, false
	}
	for _, n := range entry.Value.produced {
		if n.createdTime == t {
			if n.live {
				return n, true
			}
			return nil, false
		}
	}
	return nil, false
}

// registerUsedBy records that dependent reads the value produced at dep,
// supplementing the dependency edge (used for replay's input list) with a
// reverse edge on the producing Context (used for union-find neighbor cost
// aggregation).
func (e *Engine) registerUsedBy(dep tock.Tock, dependent tock.Tock) {
	entry := e.index.GetContaining(dep)
	if entry.Value != nil {
		entry.Value.registerUsedBy(dependent)
	}
}

// --- materialization ------------------------------------------------------

// materialize returns the live value at Tock t, replaying its owning
// Context first if the value has been evicted.
func (e *Engine) materialize(t tock.Tock) any {
	if t == tock.Max {
		invariantf("materialize", "partial cell has no value")
	}
	if node, ok := e.liveNodeAt(t); ok {
		if owner := node.owner; owner != nil && owner.kind == kindFull && owner.poolIndex >= 0 {
			e.backend.touch(owner)
		}
		return node.value
	}
	e.replay(t)
	node, ok := e.liveNodeAt(t)
	if !ok {
		invariantf("materialize", "tock %d did not become live after replay", t)
	}
	return node.value
}

func (e *Engine) materializeAll(tocks []tock.Tock) []any {
	out := make([]any, len(tocks))
	for i, t := range tocks {
		out[i] = e.materialize(t)
	}
	return out
}

// --- binding --------------------------------------------------------------

// runBind records a fresh Full Context for one bind invocation, drives its
// trampoline to completion (or to a partial early exit, if a replay chasing
// an inner dependency is already in flight), and returns the Tock of its
// final output.
func (e *Engine) runBind(deps []tock.Tock, thunk Thunk) tock.Tock {
	if e.tardis.skippable(e.clock.Current()) {
		// A bind starting after the replay target cannot produce it. Record
		// nothing and hand back a partial cell, but still advance the clock by
		// one so the enclosing entry's end keeps growing monotonically.
		e.clock.Advance()
		return tock.Max
	}

	start := e.clock.Current()
	if existing, ok := e.lookupContext(start); ok && existing.kind == kindFull {
		// Replay hit: the clock has returned to a Tock the log already has a
		// precise entry for, so this is a recorded bind being re-executed
		// inside an enclosing replay.
		return e.rebind(existing, thunk)
	}

	e.clock.Next()
	e.widenAncestors(start)

	ctx := newFullContext(start, deps)
	ctx.thunk = thunk
	e.index.Put(tock.Range{Beg: start, End: start + 1}, ctx)
	e.metrics.incBind()

	e.pushRecord(ctx)
	e.driveTrampoline(ctx, thunk, deps)
	e.popRecord()

	ctx.end = e.clock.Current()
	e.index.SetEnd(start, ctx.end)

	if ctx.Evictable() {
		e.registerEvictable(ctx)
	}
	return ctx.output
}

// rebind resolves a bind whose start Tock already has a precise log entry,
// per state: Complete entries are skipped outright (the clock jumps to the
// stored end and the recorded output is reused call-by-need; the output
// value itself is only materialized when something reads it); TailCall and
// Partial entries are redone in place, reusing the existing Context rather
// than inserting a duplicate, with the entry's previous end as a lower bound
// so its range never shrinks.
func (e *Engine) rebind(ctx *Context, thunk Thunk) tock.Tock {
	if ctx.state == stateComplete {
		e.clock.AdvancePast(ctx.end)
		return ctx.output
	}

	if ctx.evicted {
		e.markReplayed(ctx)
	}
	lowerBound := ctx.end
	e.clock.Next()
	ctx.produced = nil
	ctx.space = 0
	ctx.timeTaken = 0
	ctx.pendingThunk, ctx.pendingInputs = nil, nil

	e.pushRecord(ctx)
	e.driveTrampoline(ctx, thunk, ctx.entryInputs)
	e.popRecord()

	e.clock.AdvancePast(lowerBound)
	ctx.end = e.clock.Current()
	e.index.SetEnd(ctx.start, ctx.end)

	if ctx.Evictable() {
		e.registerEvictable(ctx)
	}
	return ctx.output
}

// driveTrampoline runs thunk, following TailCallOf trampolines in a loop
// rather than recursing so arbitrarily long tail chains consume bounded
// stack. Every segment's inputs fold into ctx's own dependency and used_by
// bookkeeping: the whole chain is one log entry, not a Context per segment
// (see DESIGN.md).
func (e *Engine) driveTrampoline(ctx *Context, thunk Thunk, inputs []tock.Tock) {
	for {
		args := e.materializeAll(inputs)

		var tr Trampoline
		exclusive := meter.Block(e.meterM, func() time.Duration {
			tr = thunk(args)
			return e.meterM.Time()
		})
		ctx.timeTaken += exclusive
		ctx.lastAccessed = e.cfg.clock.Now()
		ctx.mergeDependencies(inputs)
		for _, dep := range inputs {
			e.registerUsedBy(dep, ctx.start)
		}

		if !tr.IsTailCall() {
			// A segment that ran to completion is Complete even when a Tardis
			// target was reached along the way: the Go closure has already
			// produced the real output node, so recording Partial here would
			// only discard a finished result.
			ctx.output = tr.Output()
			ctx.state = stateComplete
			return
		}

		if e.tardis.active() && e.tardis.reached() {
			ctx.state = statePartial
			ctx.output = tock.Max
			ctx.pendingThunk, ctx.pendingInputs = nil, nil
			if e.cfg.useCPS {
				ctx.pendingThunk, ctx.pendingInputs = tr.next, tr.inputs
				ctx.resumeAt = e.clock.Current()
			}
			return
		}

		ctx.state = stateTailCall
		thunk, inputs = tr.next, tr.inputs
	}
}

// --- replay -----------------------------------------------------------

// replay rebuilds whatever Context owns Tock t until it (and, transitively,
// anything it depends on) is live again. t need not be a Context's own
// output: replaying a mid-chain value just means the engine arms the tardis
// for that exact Tock and lets driveTrampoline stop as soon as it is
// produced (partial replay).
func (e *Engine) replay(t tock.Tock) {
	entry := e.index.GetContaining(t)
	ctx := entry.Value
	if ctx == nil || ctx.kind != kindFull {
		invariantf("replay", "tock %d has no replayable context", t)
	}
	if ctx.evicted {
		e.markReplayed(ctx)
	}

	prevTarget, prevResolved := e.tardis.arm(t)
	defer e.tardis.restore(prevTarget, prevResolved)

	savedClock := e.clock.Current()
	defer e.clock.SetCurrent(savedClock)

	e.metrics.incReplay(t != ctx.output)

	e.pushRecord(ctx)
	if e.cfg.useCPS && ctx.pendingThunk != nil {
		resumeThunk, resumeInputs := ctx.pendingThunk, ctx.pendingInputs
		ctx.pendingThunk, ctx.pendingInputs = nil, nil
		e.clock.SetCurrent(ctx.resumeAt)
		e.driveTrampoline(ctx, resumeThunk, resumeInputs)
	} else {
		ctx.produced = nil
		ctx.space = 0
		ctx.timeTaken = 0
		ctx.pendingThunk, ctx.pendingInputs = nil, nil
		e.clock.SetCurrent(ctx.start + 1)
		e.driveTrampoline(ctx, ctx.thunk, ctx.entryInputs)
	}
	e.popRecord()

	if ctx.Evictable() {
		e.registerEvictable(ctx)
	}
}

// --- eviction -----------------------------------------------------------

// neighborTime sums the union-find class cost of every distinct already-
// evicted neighbor (dependency or dependent) of ctx, deduplicated by root,
// for the 'uf' cost metric.
func (e *Engine) neighborTime(ctx *Context) time.Duration {
	seen := make(map[*unionfind.Node[tock.Tock, *big.Rat]]bool)
	var total time.Duration
	consider := func(t tock.Tock) {
		dep := e.owningContext(t)
		if dep == nil || !dep.evicted || dep.ufNode == nil {
			return
		}
		root := unionfind.Root(dep.ufNode)
		if seen[root] {
			return
		}
		seen[root] = true
		total += durationFromRat(unionfind.Value(dep.ufNode))
	}
	for _, t := range ctx.dependencies {
		consider(t)
	}
	for _, t := range ctx.usedBy {
		consider(t)
	}
	return total
}

// costOf computes the eviction backend's priority cost for ctx under the
// configured metric: local (time/space) or uf (neighbor_time/space).
func (e *Engine) costOf(ctx *Context) *big.Rat {
	space := ctx.space
	if space <= 0 {
		space = 1
	}
	var numerator time.Duration
	if e.cfg.metric == MetricUF {
		numerator = e.neighborTime(ctx)
	} else {
		numerator = ctx.timeTaken
	}
	return new(big.Rat).Quo(ratFromDuration(numerator), big.NewRat(int64(space), 1))
}

// CostOfSet returns the total recompute cost of the evicted neighborhood
// containing the Context at t: its own exclusive time plus, for a still-live
// ctx, the aggregated cost of its already-evicted neighbors, or, for an
// already-evicted ctx, its union-find root's aggregated cost directly.
func (e *Engine) CostOfSet(t tock.Tock) time.Duration {
	ctx := e.owningContext(t)
	if ctx == nil {
		return 0
	}
	if ctx.evicted && ctx.ufNode != nil {
		return durationFromRat(unionfind.Value(ctx.ufNode))
	}
	return ctx.timeTaken + e.neighborTime(ctx)
}

func (e *Engine) registerEvictable(ctx *Context) {
	if ctx.poolIndex >= 0 {
		e.backend.touch(ctx)
		return
	}
	e.backend.push(ctx)
	e.metrics.setEvictionHeapSize(e.backend.len())
}

// evict drops ctx's strong ownership over every value it produced, merges
// its exclusive cost into the union-find forest (joining any already-
// evicted dependency or dependent's class), and removes it from the
// eviction backend. A no-op if ctx is not currently evictable.
func (e *Engine) evict(ctx *Context) {
	if !ctx.Evictable() {
		return
	}
	for _, n := range ctx.produced {
		n.live = false
		n.value = nil
	}
	cost := ratFromDuration(ctx.timeTaken)
	node := e.uf.NewNode(ctx.start, cost)
	merge := func(t tock.Tock) {
		if dep := e.owningContext(t); dep != nil && dep.evicted && dep.ufNode != nil {
			e.uf.Merge(node, dep.ufNode)
		}
	}
	for _, t := range ctx.dependencies {
		merge(t)
	}
	for _, t := range ctx.usedBy {
		merge(t)
	}
	ctx.ufNode = node
	ctx.costAtEviction = cost
	ctx.evicted = true
	e.evictedSet[ctx] = struct{}{}
	e.backend.remove(ctx)
	e.metrics.incEviction()
	e.log.Debug("context evicted",
		zap.Int64("tock", int64(ctx.start)),
		zap.Int("space", ctx.space),
		zap.Duration("time_taken", ctx.timeTaken))
}

// markReplayed undoes the cost-accounting half of a prior eviction: it
// subtracts ctx's remembered contribution from its former union-find root
// (the rest of that class's cost, if any, stays put) and drops ctx's own
// reference to the node. The node itself is never mutated or detached: if it
// is still a root for other evicted members, their parent pointers keep it
// alive exactly as it was.
func (e *Engine) markReplayed(ctx *Context) {
	if !ctx.evicted {
		return
	}
	if ctx.ufNode != nil && ctx.costAtEviction != nil {
		unionfind.Update(ctx.ufNode, func(c *big.Rat) *big.Rat {
			return new(big.Rat).Sub(c, ctx.costAtEviction)
		})
	}
	ctx.ufNode = nil
	ctx.costAtEviction = nil
	ctx.evicted = false
	delete(e.evictedSet, ctx)
}

// Reap evicts Contexts, lowest priority first, until freed reports true or
// the eviction backend is empty. freed is called after each eviction with
// the running total of freed space.
func (e *Engine) Reap(freed func(totalFreed int) bool) int {
	total := 0
	for e.backend.len() > 0 {
		ctx := e.backend.popMin()
		if ctx == nil {
			break
		}
		space := ctx.space
		e.evict(ctx)
		total += space
		e.metrics.incReapStep()
		if freed != nil && freed(total) {
			break
		}
	}
	e.metrics.setEvictionHeapSize(e.backend.len())
	e.log.Debug("reap finished", zap.Int("freed", total))
	return total
}

// Murder performs exactly one reaper step: evict the single lowest-priority
// evictable context. Reports false when the backend is empty.
func (e *Engine) Murder() bool {
	if e.backend.len() == 0 {
		return false
	}
	ctx := e.backend.popMin()
	if ctx == nil {
		return false
	}
	e.evict(ctx)
	e.metrics.incReapStep()
	e.metrics.setEvictionHeapSize(e.backend.len())
	return true
}

// Stats is a point-in-time snapshot of engine telemetry, feeding both the
// Prometheus gauges and the debug snapshot endpoint.
type Stats struct {
	AkashaSize       int
	EvictionHeapSize int
	EvictedContexts  int
	UFRoots          int
}

// Stats returns the current engine telemetry snapshot.
func (e *Engine) Stats() Stats {
	s := Stats{
		AkashaSize:       e.index.Len(),
		EvictionHeapSize: e.backend.len(),
		EvictedContexts:  len(e.evictedSet),
	}
	roots := make(map[*unionfind.Node[tock.Tock, *big.Rat]]struct{}, len(e.evictedSet))
	for ctx := range e.evictedSet {
		if ctx.ufNode != nil {
			roots[unionfind.Root(ctx.ufNode)] = struct{}{}
		}
	}
	s.UFRoots = len(roots)
	e.metrics.setAkashaSize(s.AkashaSize)
	e.metrics.setEvictionHeapSize(s.EvictionHeapSize)
	e.metrics.setUFRoots(s.UFRoots)
	return s
}

// Now returns the engine's configured clock's current reading.
func (e *Engine) Now() time.Duration { return e.cfg.clock.Now() }

// FastForward advances the engine's configured clock, used by tests to
// simulate elapsed wall-clock time deterministically.
func (e *Engine) FastForward(d time.Duration) { e.cfg.clock.FastForward(d) }
