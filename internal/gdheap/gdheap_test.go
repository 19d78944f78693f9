package gdheap

import (
	"math/big"
	"testing"
)

func rat(n int64) *big.Rat { return big.NewRat(n, 1) }

func TestPushAdjustPopOrdersByCost(t *testing.T) {
	h := New[string](nil, nil)
	h.Push("cheap", rat(1))
	h.Push("expensive", rat(100))
	h.Push("mid", rat(10))

	costs := map[string]*big.Rat{"cheap": rat(1), "expensive": rat(100), "mid": rat(10)}
	got := h.AdjustPop(DefaultApproxFactor(), func(s string) *big.Rat { return costs[s] })
	if got != "cheap" {
		t.Fatalf("expected cheapest element first, got %q", got)
	}
}

func TestAdjustPopReinsertsOnCostChange(t *testing.T) {
	h := New[string](nil, nil)
	h.Push("a", rat(1))
	h.Push("b", rat(2))

	calls := 0
	costs := map[string]*big.Rat{"a": rat(1), "b": rat(2)}
	got := h.AdjustPop(DefaultApproxFactor(), func(s string) *big.Rat {
		calls++
		if s == "a" && calls == 1 {
			// cost jumped, should be reinserted rather than evicted immediately.
			return rat(50)
		}
		return costs[s]
	})
	if got != "b" {
		t.Fatalf("expected b to be evicted after a's cost increased past b, got %q", got)
	}
}

func TestApproxFactorToleratesSmallDrift(t *testing.T) {
	approx := ApproxFactor{Num: big.NewInt(2), Den: big.NewInt(1)} // tolerate up to 2x drift
	h := New[string](nil, nil)
	h.Push("a", rat(10))

	got := h.AdjustPop(approx, func(s string) *big.Rat { return rat(15) })
	if got != "a" {
		t.Fatalf("expected a to be evicted despite cost drift within tolerance, got %q", got)
	}
}

func TestTouchDelaysEviction(t *testing.T) {
	h := New[string](nil, nil)
	h.Push("old", rat(5))
	h.Push("new", rat(5))

	// age the heap by evicting and reinserting something else, bumping L.
	h.Push("filler", rat(1))
	costs := map[string]*big.Rat{"filler": rat(1)}
	evicted := h.AdjustPop(DefaultApproxFactor(), func(s string) *big.Rat { return costs[s] })
	if evicted != "filler" {
		t.Fatalf("expected filler evicted first, got %q", evicted)
	}

	// touch "old" so its L term is refreshed past "new"'s stale L.
	for i, v := range h.Values() {
		if v == "old" {
			h.Touch(i)
			break
		}
	}

	remaining := map[string]*big.Rat{"old": rat(5), "new": rat(5)}
	got := h.AdjustPop(DefaultApproxFactor(), func(s string) *big.Rat { return remaining[s] })
	if got != "new" {
		t.Fatalf("expected untouched 'new' to be evicted before touched 'old', got %q", got)
	}
}

func TestEmptyAdjustPopPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on empty heap")
		}
	}()
	h := New[string](nil, nil)
	h.AdjustPop(DefaultApproxFactor(), func(s string) *big.Rat { return rat(0) })
}

func TestNotifyCallbacks(t *testing.T) {
	var indexed []int
	var removed []string
	h := New[string](
		func(t string, idx int) { indexed = append(indexed, idx) },
		func(t string) { removed = append(removed, t) },
	)
	h.Push("a", rat(1))
	h.Push("b", rat(2))
	if len(indexed) == 0 {
		t.Fatalf("expected index-changed notifications on push")
	}
	costs := map[string]*big.Rat{"a": rat(1), "b": rat(2)}
	h.AdjustPop(DefaultApproxFactor(), func(s string) *big.Rat { return costs[s] })
	if len(removed) != 1 || removed[0] != "a" {
		t.Fatalf("expected removal notification for 'a', got %v", removed)
	}
}
