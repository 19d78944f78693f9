package zombie

// trampoline.go models bind bodies as returning either a finished value or a
// tail call to run next, so a chain of tail calls is iterated rather than
// recursed, and so partial replay has a well-defined early-exit point: the
// loop that drives a Trampoline to completion is the same loop that checks
// the tardis after each step.
//
// © 2025 zombie-cache authors. MIT License.

import "github.com/Voskan/zombie-cache/internal/tock"

// Thunk is a replay thunk: given the materialized values of a Context's
// dependencies (in declaration order), it runs the bind body and returns a
// Trampoline describing what happened.
type Thunk func(inputs []any) Trampoline

// Trampoline is the sum type a Thunk returns: either Return (the bind
// produced its final output, identified by the output Tock) or TailCall (the
// bind body tail-called into another thunk; the engine runs it as the next
// segment of the same log entry and loops rather than recursing).
type Trampoline struct {
	tail   bool
	output tock.Tock
	next   Thunk
	inputs []tock.Tock
}

// Return builds a Trampoline carrying the Tock of the value this bind
// ultimately produced.
func Return(output tock.Tock) Trampoline {
	return Trampoline{output: output}
}

// TailCallOf builds a Trampoline that defers to next, called with the
// materialized values of inputs. The engine treats this exactly like a fresh
// bind body, except it is folded into the originating bind's log entry
// rather than recorded as a sibling.
func TailCallOf(next Thunk, inputs []tock.Tock) Trampoline {
	return Trampoline{tail: true, next: next, inputs: inputs}
}

// IsTailCall reports whether this Trampoline defers to another thunk.
func (t Trampoline) IsTailCall() bool { return t.tail }

// Output returns the produced Tock; only meaningful when !IsTailCall().
func (t Trampoline) Output() tock.Tock { return t.output }
