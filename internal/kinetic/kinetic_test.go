package kinetic

import (
	"math/big"
	"testing"
)

func TestPushPeekOrdersByCurrentValue(t *testing.T) {
	h := New[string](0, nil)
	h.Push("mid", NewAff(1, 5))    // f(0) = 5
	h.Push("high", NewAff(1, 100)) // f(0) = 100
	h.Push("low", NewAff(1, -5))   // f(0) = -5

	if got := h.Peek(); got != "low" {
		t.Fatalf("expected 'low' (value -5) to be the minimum at time 0, got %q", got)
	}
}

func TestAdvanceToReordersOnCrossing(t *testing.T) {
	h := New[string](0, nil)
	// rising(0) = -20, falling(0) = 0: rising starts as the minimum, but the
	// two cross at t=10 (both equal -10) and falling overtakes afterwards.
	h.Push("rising", AffFunction{Slope: big.NewInt(1), XShift: -20})
	h.Push("falling", AffFunction{Slope: big.NewInt(-1), XShift: 0})

	if got := h.Peek(); got != "rising" {
		t.Fatalf("expected 'rising' to start as the minimum, got %q", got)
	}

	h.AdvanceTo(20)
	if got := h.Peek(); got != "falling" {
		t.Fatalf("expected 'falling' to become the minimum after crossing, got %q", got)
	}
}

func TestPopRemovesMinimum(t *testing.T) {
	h := New[int](0, nil)
	h.Push(3, NewAff(1, 3))
	h.Push(1, NewAff(1, 1))
	h.Push(2, NewAff(1, 2))

	first := h.Pop()
	if first != 1 {
		t.Fatalf("expected smallest value 1 first, got %d", first)
	}
	second := h.Pop()
	if second != 2 {
		t.Fatalf("expected 2 next, got %d", second)
	}
}

func TestNotifyIndexChangedTracksSlots(t *testing.T) {
	slots := make(map[string]int)
	h := New[string](0, func(t string, idx int) { slots[t] = idx })
	h.Push("a", NewAff(0, 1))
	h.Push("b", NewAff(0, 0))
	h.Push("c", NewAff(0, -1))

	for name, idx := range slots {
		if h.At(idx) != name {
			t.Fatalf("slot tracking out of sync: slots[%q]=%d but At(%d)=%q", name, idx, idx, h.At(idx))
		}
	}
}

func TestAdvanceThenDrainMatchesBruteForce(t *testing.T) {
	specs := []struct{ slope, shift int64 }{
		{5, 20}, {1, 7}, {2, 19}, {11, 12}, {10, 16},
	}
	h := New[int](0, nil)
	for i, s := range specs {
		h.Push(i, NewAff(s.slope, s.shift))
	}
	h.AdvanceTo(5)

	// brute force: repeatedly take the function minimising f(5) among the
	// remaining ones (the chosen inputs produce no ties at t=5).
	remaining := make(map[int]AffFunction, len(specs))
	for i, s := range specs {
		remaining[i] = NewAff(s.slope, s.shift)
	}
	for len(remaining) > 0 {
		best := -1
		for i := range specs {
			f, ok := remaining[i]
			if !ok {
				continue
			}
			if best == -1 || f.Eval(5).Cmp(remaining[best].Eval(5)) < 0 {
				best = i
			}
		}
		if got := h.Pop(); got != best {
			t.Fatalf("expected pop order to match brute force: got %d, want %d", got, best)
		}
		delete(remaining, best)
	}
	if !h.Empty() {
		t.Fatalf("expected the heap drained")
	}
}

func TestAdvanceToRejectsGoingBackwards(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic when advancing time backwards")
		}
	}()
	h := New[int](10, nil)
	h.AdvanceTo(5)
}

func TestEmptyAfterDraining(t *testing.T) {
	h := New[int](0, nil)
	h.Push(1, NewAff(0, 0))
	if h.Empty() {
		t.Fatalf("heap should not be empty after push")
	}
	h.Pop()
	if !h.Empty() {
		t.Fatalf("heap should be empty after draining its only element")
	}
}

