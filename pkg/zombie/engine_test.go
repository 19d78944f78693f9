package zombie

import (
	"testing"
	"time"

	"github.com/Voskan/zombie-cache/internal/meter"
)

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *meter.VirtualClock) {
	t.Helper()
	clock := meter.NewVirtualClock()
	all := append([]Option{WithClock(clock)}, opts...)
	eng, err := NewEngine(all...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return eng, clock
}

func TestBindProducesValue(t *testing.T) {
	eng, _ := newTestEngine(t)
	x := New(eng, 21)
	y := BindZombie1(eng, x, func(a int) int { return a * 2 })
	if got := y.GetValue(); got != 42 {
		t.Fatalf("expected 42, got %d", got)
	}
}

func TestBindBodyRunsOnceUntilEvicted(t *testing.T) {
	eng, _ := newTestEngine(t)
	calls := 0
	x := New(eng, 10)
	y := BindZombie1(eng, x, func(a int) int {
		calls++
		return a + 1
	})
	for i := 0; i < 5; i++ {
		if got := y.GetValue(); got != 11 {
			t.Fatalf("expected 11, got %d", got)
		}
	}
	if calls != 1 {
		t.Fatalf("expected bind body to run exactly once, ran %d times", calls)
	}
}

func TestDiamondDependencyComputesSharedBodyOnce(t *testing.T) {
	eng, _ := newTestEngine(t)
	sharedCalls := 0
	x := New(eng, 3)
	shared := BindZombie1(eng, x, func(a int) int {
		sharedCalls++
		return a * a
	})
	left := BindZombie1(eng, shared, func(a int) int { return a + 1 })
	right := BindZombie1(eng, shared, func(a int) int { return a + 2 })
	sum := BindZombie2(eng, left, right, func(a, b int) int { return a + b })

	if got := sum.GetValue(); got != 21 { // (9+1) + (9+2)
		t.Fatalf("expected 21, got %d", got)
	}
	if sharedCalls != 1 {
		t.Fatalf("expected shared dependency body to run once, ran %d times", sharedCalls)
	}
}

func TestReplayRecomputesAfterEviction(t *testing.T) {
	eng, _ := newTestEngine(t)
	calls := 0
	x := New(eng, 4)
	y := BindZombie1(eng, x, func(a int) int {
		calls++
		return a * 10
	})
	if got := y.GetValue(); got != 40 {
		t.Fatalf("expected 40, got %d", got)
	}
	if !y.Evictable() {
		t.Fatalf("expected y to be evictable after completion")
	}
	y.Evict()
	if got := y.GetValue(); got != 40 {
		t.Fatalf("expected 40 after replay, got %d", got)
	}
	if calls != 2 {
		t.Fatalf("expected bind body to rerun exactly once after eviction, ran %d times", calls)
	}
}

func TestRecursiveChainRecomputesAfterDeepEviction(t *testing.T) {
	eng, _ := newTestEngine(t)
	x := New(eng, 1)
	cells := make([]*Zombie[int], 0, 6)
	cells = append(cells, x)
	for i := 0; i < 5; i++ {
		prev := cells[len(cells)-1]
		cells = append(cells, BindZombie1(eng, prev, func(a int) int { return a + 1 }))
	}
	last := cells[len(cells)-1]
	if got := last.GetValue(); got != 6 {
		t.Fatalf("expected 6, got %d", got)
	}
	// evict every intermediate link; replaying the tail must rebuild the
	// whole chain transitively.
	for _, c := range cells[1 : len(cells)-1] {
		c.Evict()
	}
	last.Evict()
	if got := last.GetValue(); got != 6 {
		t.Fatalf("expected 6 after full chain replay, got %d", got)
	}
}

func TestUnionFindAggregatesCostOfEvictedNeighbors(t *testing.T) {
	eng, clock := newTestEngine(t)
	x := New(eng, 1)

	mk := func(prev *Zombie[int], cost time.Duration) *Zombie[int] {
		return BindZombie1(eng, prev, func(a int) int {
			clock.FastForward(cost)
			return a + 1
		})
	}

	a := mk(x, 10*time.Second)
	b := mk(a, 11*time.Second)
	c := mk(b, 12*time.Second)
	d := mk(c, 14*time.Second)

	for _, z := range []*Zombie[int]{a, b, c, d} {
		z.GetValue()
	}
	for _, z := range []*Zombie[int]{a, b, c, d} {
		z.Evict()
	}

	want := 10*time.Second + 11*time.Second + 12*time.Second + 14*time.Second
	if got := eng.CostOfSet(a.Tock()); got != want {
		t.Fatalf("expected aggregated cost %v, got %v", want, got)
	}
	if got := eng.CostOfSet(d.Tock()); got != want {
		t.Fatalf("expected same aggregated cost from any member, got %v", got)
	}
}

func TestEvictNonEvictableIsNoop(t *testing.T) {
	eng, _ := newTestEngine(t)
	x := New(eng, 1)
	x.Evict() // Root cells are never evictable
	if got := x.GetValue(); got != 1 {
		t.Fatalf("expected root value to survive Evict(), got %d", got)
	}
}

func TestTailCallTrampolineAvoidsUnboundedRecursion(t *testing.T) {
	eng, _ := newTestEngine(t)
	x := New(eng, 0)
	var countdown func(n int) Trampoline
	const start = 200
	countdown = func(n int) Trampoline {
		if n <= 0 {
			return Emit(eng, start)
		}
		return TailCall1(x, func(int) Trampoline { return countdown(n - 1) })
	}
	y := BindZombieTC1[int, int](eng, x, func(int) Trampoline { return countdown(start) })
	if got := y.GetValue(); got != start {
		t.Fatalf("expected %d, got %d", start, got)
	}
}

func TestReapEvictsUntilBackendEmpty(t *testing.T) {
	eng, _ := newTestEngine(t)
	x := New(eng, 1)
	var last *Zombie[int]
	prev := x
	for i := 0; i < 4; i++ {
		next := BindZombie1(eng, prev, func(a int) int { return a + 1 })
		next.GetValue()
		prev = next
		last = next
	}
	_ = last
	freed := eng.Reap(func(int) bool { return false })
	if freed <= 0 {
		t.Fatalf("expected Reap to free some space, freed %d", freed)
	}
	if eng.Stats().EvictionHeapSize != 0 {
		t.Fatalf("expected eviction backend drained, got size %d", eng.Stats().EvictionHeapSize)
	}
}
