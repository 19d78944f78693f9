package zombie

// tardis.go implements the replay controller: while a replay is under way
// trying to resurrect one specific Tock, it lets the engine short-circuit as
// soon as that Tock's value has been produced, instead of running the
// enclosing bind to completion. Each Engine owns exactly one tardis, like
// every other piece of engine-wide state; there are no package-level
// singletons.
//
// © 2025 zombie-cache authors. MIT License.

import "github.com/Voskan/zombie-cache/internal/tock"

// tardis tracks the Tock a replay is trying to resurrect. forwardAt is
// tock.Max when no replay is in flight (the common case: no bind body ever
// observes a live forward target).
type tardis struct {
	forwardAt tock.Tock
	resolved  *valueNode // set once the target's value node has been produced
}

func newTardis() *tardis {
	return &tardis{forwardAt: tock.Max}
}

// active reports whether a replay is currently chasing a specific Tock.
func (t *tardis) active() bool {
	return t.forwardAt != tock.Max
}

// arm installs a new forward target, returning the previous one so the
// caller can restore it on exit (Tardis nests: a replay can itself trigger a
// nested replay for one of its own dependencies).
func (t *tardis) arm(target tock.Tock) (prevTarget tock.Tock, prevResolved *valueNode) {
	prevTarget, prevResolved = t.forwardAt, t.resolved
	t.forwardAt, t.resolved = target, nil
	return
}

// restore puts back a previously saved target/resolved pair.
func (t *tardis) restore(prevTarget tock.Tock, prevResolved *valueNode) {
	t.forwardAt, t.resolved = prevTarget, prevResolved
}

// observe is called every time a value node is about to be created during a
// replay. If its Tock matches the active forward target, the node is
// recorded out of band and reported as found.
func (t *tardis) observe(node *valueNode) {
	if t.active() && node.createdTime == t.forwardAt {
		t.resolved = node
	}
}

// reached reports whether the active forward target's value has already been
// produced during the current replay.
func (t *tardis) reached() bool {
	return t.resolved != nil
}

// skippable reports whether a bind about to start at current may be skipped
// outright: a replay is in flight and either its target has been produced or
// current already lies past it, so nothing this bind records can matter to
// the value being chased.
func (t *tardis) skippable(current tock.Tock) bool {
	return t.active() && (t.resolved != nil || current > t.forwardAt)
}
