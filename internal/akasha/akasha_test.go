package akasha

import (
	"testing"

	"github.com/Voskan/zombie-cache/internal/tock"
)

func TestPutAndGetContaining(t *testing.T) {
	for _, backend := range []Backend{BackendTree, BackendSplay} {
		a := New[string](backend)
		a.Put(tock.Range{Beg: 1, End: 10}, "outer")
		a.Put(tock.Range{Beg: 3, End: 5}, "inner")

		e := a.GetContaining(4)
		if e.Value != "inner" {
			t.Fatalf("backend=%v: expected inner at t=4, got %q", backend, e.Value)
		}
		e = a.GetContaining(7)
		if e.Value != "outer" {
			t.Fatalf("backend=%v: expected outer at t=7, got %q", backend, e.Value)
		}
		e = a.GetContaining(100)
		if e.Range.Beg != tock.Min {
			t.Fatalf("backend=%v: expected synthetic root outside span, got %v", backend, e.Range)
		}
	}
}

func TestPutReparentsDominatedChildren(t *testing.T) {
	a := New[string](BackendTree)
	a.Put(tock.Range{Beg: 1, End: 3}, "a")
	a.Put(tock.Range{Beg: 5, End: 7}, "b")
	// a wider range covering both a and b should adopt them as children.
	a.Put(tock.Range{Beg: 0, End: 10}, "wide")

	parentA, ok := a.GetParent(1)
	if !ok || parentA.Value != "wide" {
		t.Fatalf("expected a's parent to become wide, got %v ok=%v", parentA, ok)
	}
	parentB, ok := a.GetParent(5)
	if !ok || parentB.Value != "wide" {
		t.Fatalf("expected b's parent to become wide, got %v ok=%v", parentB, ok)
	}
}

func TestHasPreciseAndGetPrecise(t *testing.T) {
	a := New[int](BackendTree)
	if a.HasPrecise(42) {
		t.Fatalf("expected no precise entry yet")
	}
	a.Put(tock.Range{Beg: 42, End: 50}, 99)
	if !a.HasPrecise(42) {
		t.Fatalf("expected precise entry at 42")
	}
	if v := a.GetPrecise(42).Value; v != 99 {
		t.Fatalf("expected 99, got %d", v)
	}
}

func TestGetPrecisePanicsWhenMissing(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic for missing precise entry")
		}
	}()
	a := New[int](BackendTree)
	a.GetPrecise(7)
}

func TestRemovePrecisePromotesChildren(t *testing.T) {
	a := New[string](BackendTree)
	a.Put(tock.Range{Beg: 0, End: 10}, "wide")
	a.Put(tock.Range{Beg: 2, End: 4}, "child")

	a.RemovePrecise(0)
	if a.HasPrecise(0) {
		t.Fatalf("expected 0 to be removed")
	}
	// child should now be directly under the synthetic root.
	parent, ok := a.GetParent(2)
	if !ok || parent.Range.Beg != tock.Min {
		t.Fatalf("expected child promoted to root's direct child, got %v ok=%v", parent, ok)
	}
}

func TestFilterChildren(t *testing.T) {
	a := New[int](BackendTree)
	a.Put(tock.Range{Beg: 0, End: 100}, 0)
	a.Put(tock.Range{Beg: 1, End: 2}, 1)
	a.Put(tock.Range{Beg: 3, End: 4}, 2)
	a.Put(tock.Range{Beg: 5, End: 6}, 3)

	a.FilterChildren(0, func(e Entry[int]) bool { return e.Value%2 == 0 })

	if a.HasPrecise(3) {
		t.Fatalf("expected entry with even value removed")
	}
	if !a.HasPrecise(1) || !a.HasPrecise(5) {
		t.Fatalf("expected odd-valued entries to survive")
	}
}

func TestSetEndAndSetValue(t *testing.T) {
	a := New[string](BackendTree)
	a.Put(tock.Range{Beg: 1, End: tock.Max}, "tail-pending")
	a.SetEnd(1, 20)
	a.SetValue(1, "done")

	e := a.GetPrecise(1)
	if e.Range.End != 20 || e.Value != "done" {
		t.Fatalf("expected updated range/value, got %v", e)
	}
}

func TestLen(t *testing.T) {
	a := New[int](BackendTree)
	if a.Len() != 0 {
		t.Fatalf("expected empty index, got %d", a.Len())
	}
	a.Put(tock.Range{Beg: 1, End: 2}, 0)
	a.Put(tock.Range{Beg: 3, End: 4}, 0)
	if a.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", a.Len())
	}
}
