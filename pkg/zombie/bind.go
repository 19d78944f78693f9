package zombie

// bind.go is the public entry point for recording a computation, in three
// shapes. BindZombieN takes a plain function and always produces exactly one
// output (the common case). BindZombieTCN takes a function returning a
// Trampoline, for tail-recursive binds that need to loop without growing the
// Go call stack. BindZombieUntyped accepts a dynamic-arity dependency slice
// via the Cell interface, for call sites that don't know their arity at
// compile time.
//
// © 2025 zombie-cache authors. MIT License.

import "github.com/Voskan/zombie-cache/internal/tock"

func sizeOrDefault[T any](eng *Engine, v T) int {
	return eng.cfg.defaultSizeOf(v)
}

// Emit records a fresh value produced inside a bind body and returns a
// Trampoline that completes the bind with it. Call this from a BindZombieTC*
// body once the final result is known.
func Emit[T any](eng *Engine, value T) Trampoline {
	node := eng.newValue(value, sizeOrDefault(eng, value))
	return Return(node.createdTime)
}

// BindZombie1 records a one-argument bind whose body always returns its
// final value directly (no tail recursion).
func BindZombie1[A1, R any](eng *Engine, a1 *Zombie[A1], f func(A1) R) *Zombie[R] {
	deps := []tock.Tock{a1.tockOf()}
	thunk := func(inputs []any) Trampoline {
		return Emit(eng, f(inputs[0].(A1)))
	}
	return zombieFromTock[R](eng, eng.runBind(deps, thunk))
}

// BindZombie2 is BindZombie1 for two arguments.
func BindZombie2[A1, A2, R any](eng *Engine, a1 *Zombie[A1], a2 *Zombie[A2], f func(A1, A2) R) *Zombie[R] {
	deps := []tock.Tock{a1.tockOf(), a2.tockOf()}
	thunk := func(inputs []any) Trampoline {
		return Emit(eng, f(inputs[0].(A1), inputs[1].(A2)))
	}
	return zombieFromTock[R](eng, eng.runBind(deps, thunk))
}

// BindZombie3 is BindZombie1 for three arguments.
func BindZombie3[A1, A2, A3, R any](eng *Engine, a1 *Zombie[A1], a2 *Zombie[A2], a3 *Zombie[A3], f func(A1, A2, A3) R) *Zombie[R] {
	deps := []tock.Tock{a1.tockOf(), a2.tockOf(), a3.tockOf()}
	thunk := func(inputs []any) Trampoline {
		return Emit(eng, f(inputs[0].(A1), inputs[1].(A2), inputs[2].(A3)))
	}
	return zombieFromTock[R](eng, eng.runBind(deps, thunk))
}

// BindZombieUntyped records a bind over a dynamic-arity dependency slice,
// for call sites built around a variable or runtime-determined argument
// count instead of one of the fixed BindZombieN arities.
func BindZombieUntyped[R any](eng *Engine, args []Cell, f func([]any) R) *Zombie[R] {
	deps := make([]tock.Tock, len(args))
	for i, a := range args {
		deps[i] = a.tockOf()
	}
	thunk := func(inputs []any) Trampoline {
		return Emit(eng, f(inputs))
	}
	return zombieFromTock[R](eng, eng.runBind(deps, thunk))
}

// BindZombieTC1 records a one-argument bind whose body may tail-call into
// further segments (via TailCall1) before finally completing with Emit,
// running the whole chain as a loop rather than recursing.
func BindZombieTC1[A1, R any](eng *Engine, a1 *Zombie[A1], f func(A1) Trampoline) *Zombie[R] {
	deps := []tock.Tock{a1.tockOf()}
	thunk := func(inputs []any) Trampoline {
		return f(inputs[0].(A1))
	}
	return zombieFromTock[R](eng, eng.runBind(deps, thunk))
}

// BindZombieTC2 is BindZombieTC1 for two arguments.
func BindZombieTC2[A1, A2, R any](eng *Engine, a1 *Zombie[A1], a2 *Zombie[A2], f func(A1, A2) Trampoline) *Zombie[R] {
	deps := []tock.Tock{a1.tockOf(), a2.tockOf()}
	thunk := func(inputs []any) Trampoline {
		return f(inputs[0].(A1), inputs[1].(A2))
	}
	return zombieFromTock[R](eng, eng.runBind(deps, thunk))
}

// TailCall1 builds a Trampoline that defers to g, called with a1's
// materialized value, for use inside a BindZombieTC1/TC2 body implementing
// tail recursion over a single argument.
func TailCall1[A1 any](a1 *Zombie[A1], g func(A1) Trampoline) Trampoline {
	return TailCallOf(func(inputs []any) Trampoline {
		return g(inputs[0].(A1))
	}, []tock.Tock{a1.tockOf()})
}

// TailCall2 is TailCall1 for a two-argument continuation.
func TailCall2[A1, A2 any](a1 *Zombie[A1], a2 *Zombie[A2], g func(A1, A2) Trampoline) Trampoline {
	return TailCallOf(func(inputs []any) Trampoline {
		return g(inputs[0].(A1), inputs[1].(A2))
	}, []tock.Tock{a1.tockOf(), a2.tockOf()})
}
