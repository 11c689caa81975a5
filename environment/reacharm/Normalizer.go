package reacharm

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// goalBound is the half-width of the fixed box used to normalize
// achieved and desired goals, in meters per axis
const goalBound = 3.0

// Normalizer maps raw physical quantities into a fixed range using
// static limit vectors. A raw vector x maps to (x - mid) / range where
// mid = (lower + upper) / 2 and range = upper - lower, applied
// per dimension.
//
// Normalizers are immutable after construction and safe to share.
type Normalizer struct {
	mid  *mat.VecDense
	span *mat.VecDense
}

// NewNormalizer constructs a Normalizer from a pair of limit vectors.
// Limits are validated here, once: any dimension with zero range is a
// construction error, never a per-call one.
func NewNormalizer(lower, upper mat.Vector) (*Normalizer, error) {
	if lower.Len() != upper.Len() {
		return nil, fmt.Errorf("newNormalizer: lower limits have length "+
			"%v but upper limits have length %v", lower.Len(), upper.Len())
	}

	n := lower.Len()
	mid := mat.NewVecDense(n, nil)
	span := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		r := upper.AtVec(i) - lower.AtVec(i)
		if r == 0 {
			return nil, fmt.Errorf("newNormalizer: zero-range limits on "+
				"dimension %v", i)
		}
		mid.SetVec(i, (upper.AtVec(i)+lower.AtVec(i))/2)
		span.SetVec(i, r)
	}

	return &Normalizer{mid: mid, span: span}, nil
}

// newGoalNormalizer returns the Normalizer for achieved and desired
// goals, which uses a fixed box of ±goalBound meters per axis.
func newGoalNormalizer() *Normalizer {
	lower := mat.NewVecDense(3, []float64{-goalBound, -goalBound, -goalBound})
	upper := mat.NewVecDense(3, []float64{goalBound, goalBound, goalBound})

	// The fixed box has nonzero range, so this cannot fail
	n, err := NewNormalizer(lower, upper)
	if err != nil {
		panic(fmt.Sprintf("newGoalNormalizer: %v", err))
	}
	return n
}

// Len returns the number of dimensions the Normalizer operates on
func (n *Normalizer) Len() int {
	return n.mid.Len()
}

// Normalize maps a raw vector into the normalized range, returning a
// new vector. Normalize panics if x has the wrong dimension.
func (n *Normalizer) Normalize(x mat.Vector) *mat.VecDense {
	if x.Len() != n.Len() {
		panic(fmt.Sprintf("normalize: vector has length %v, expected %v",
			x.Len(), n.Len()))
	}

	out := mat.NewVecDense(n.Len(), nil)
	for i := 0; i < n.Len(); i++ {
		out.SetVec(i, (x.AtVec(i)-n.mid.AtVec(i))/n.span.AtVec(i))
	}
	return out
}

// Denormalize maps a normalized vector back into raw units, returning
// a new vector. It is the exact inverse of Normalize.
func (n *Normalizer) Denormalize(x mat.Vector) *mat.VecDense {
	if x.Len() != n.Len() {
		panic(fmt.Sprintf("denormalize: vector has length %v, expected %v",
			x.Len(), n.Len()))
	}

	out := mat.NewVecDense(n.Len(), nil)
	for i := 0; i < n.Len(); i++ {
		out.SetVec(i, x.AtVec(i)*n.span.AtVec(i)+n.mid.AtVec(i))
	}
	return out
}
