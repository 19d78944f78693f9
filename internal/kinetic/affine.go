// Package kinetic implements the kinetic priority queue: a min-heap ordered
// by affine functions of a single shared virtual clock, kept consistent as
// the clock advances by means of certificates bounding how long the current
// ordering stays valid.
//
// The "train" far-future batching optimization (a cascade of secondary heaps
// that defer promoting elements with very negative slopes into the main
// heap) is intentionally not implemented.
// It is a pure performance optimization: every element lives in the main
// heap from the moment it is pushed, which is slower when a great many
// elements have steeply negative slopes and are not due to matter for a
// long time, but produces identical pop/peek/advance results.
//
// © 2025 zombie-cache authors. MIT License.
package kinetic

import "math/big"

// AffFunction is an affine function of the clock: f(x) = Slope * (x + XShift).
// Slope needs more range than a plain int64 affords once certificates
// multiply slopes against deltas, so it is held as a big.Int, Go's stand-in
// for a 128-bit integer.
type AffFunction struct {
	Slope  *big.Int
	XShift int64
}

// NewAff builds an affine function from a plain int64 slope.
func NewAff(slope int64, xShift int64) AffFunction {
	return AffFunction{Slope: big.NewInt(slope), XShift: xShift}
}

// Eval returns f(x).
func (f AffFunction) Eval(x int64) *big.Int {
	return new(big.Int).Mul(f.Slope, big.NewInt(x+f.XShift))
}

// divCeiling divides x by y, rounding towards positive infinity. Signs are
// normalized first so only the positive-numerator case needs the round-up
// adjustment on top of Quo's truncation.
func divCeiling(x, y *big.Int) *big.Int {
	xx, yy := new(big.Int).Set(x), new(big.Int).Set(y)
	if yy.Sign() < 0 {
		xx.Neg(xx)
		yy.Neg(yy)
	}
	if xx.Sign() > 0 {
		t := new(big.Int).Sub(xx, big.NewInt(1))
		t.Quo(t, yy)
		return t.Add(t, big.NewInt(1))
	}
	return new(big.Int).Quo(xx, yy)
}

// LtUntil returns the smallest x such that f(x) is no longer strictly less
// than rhs(x), given that it was for all smaller x. ok is false if f never
// stops being smaller (f's slope does not eventually overtake rhs's).
func (f AffFunction) LtUntil(rhs AffFunction) (x int64, ok bool) {
	xDelta := rhs.XShift - f.XShift
	yDelta := new(big.Int).Mul(rhs.Slope, big.NewInt(xDelta))
	slopeDelta := new(big.Int).Sub(f.Slope, rhs.Slope)
	if slopeDelta.Sign() <= 0 {
		return 0, false
	}
	q := divCeiling(yDelta, slopeDelta)
	return new(big.Int).Add(q, big.NewInt(-f.XShift)).Int64(), true
}

// LeUntil is LtUntil's non-strict counterpart: the smallest x such that
// f(x) is no longer <= rhs(x).
func (f AffFunction) LeUntil(rhs AffFunction) (x int64, ok bool) {
	xDelta := rhs.XShift - f.XShift
	yDelta := new(big.Int).Mul(rhs.Slope, big.NewInt(xDelta))
	yDelta.Add(yDelta, big.NewInt(1))
	slopeDelta := new(big.Int).Sub(f.Slope, rhs.Slope)
	if slopeDelta.Sign() <= 0 {
		return 0, false
	}
	q := divCeiling(yDelta, slopeDelta)
	return new(big.Int).Add(q, big.NewInt(-f.XShift)).Int64(), true
}

// GtUntil is LtUntil with the operands swapped.
func (f AffFunction) GtUntil(rhs AffFunction) (int64, bool) {
	return rhs.LtUntil(f)
}

// GeUntil is LeUntil with the operands swapped.
func (f AffFunction) GeUntil(rhs AffFunction) (int64, bool) {
	return rhs.LeUntil(f)
}
