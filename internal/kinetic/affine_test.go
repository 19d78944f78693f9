package kinetic

import (
	"math/big"
	"testing"
)

func TestEval(t *testing.T) {
	f := NewAff(3, 2) // 3*(x+2)
	got := f.Eval(5).Int64()
	if got != 21 {
		t.Fatalf("expected 3*(5+2)=21, got %d", got)
	}
}

func TestLtUntilCrossesWhenSlopeOvertakes(t *testing.T) {
	// f(x) = x rises while g(x) = -(x-100) falls, so f < g holds until the
	// crossing and fails afterwards.
	f := NewAff(1, 0)
	g := AffFunction{Slope: big.NewInt(-1), XShift: -100}
	x, ok := f.LtUntil(g)
	if !ok {
		t.Fatalf("expected f to eventually stop being less than g")
	}
	before := f.Eval(x - 1)
	at := f.Eval(x)
	gBefore := g.Eval(x - 1)
	gAt := g.Eval(x)
	if before.Cmp(gBefore) >= 0 {
		t.Fatalf("postcondition violated: f(x-1) should be < g(x-1)")
	}
	if at.Cmp(gAt) < 0 {
		t.Fatalf("postcondition violated: f(x) should not be < g(x)")
	}
}

func TestLtUntilNoneWhenNeverCatchesUp(t *testing.T) {
	f := NewAff(-1, 0)
	g := NewAff(1, 0)
	if _, ok := f.LtUntil(g); ok {
		t.Fatalf("f's slope never exceeds g's, expected no crossing")
	}
}

func TestGtUntilIsSwappedLtUntil(t *testing.T) {
	f := NewAff(1, 0)
	g := AffFunction{Slope: big.NewInt(-1), XShift: -100}
	x1, ok1 := g.LtUntil(f)
	x2, ok2 := f.GtUntil(g)
	if ok1 != ok2 || x1 != x2 {
		t.Fatalf("GtUntil should equal the swapped LtUntil, got (%d,%v) vs (%d,%v)", x1, ok1, x2, ok2)
	}
}
