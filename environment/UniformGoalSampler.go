package environment

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"
)

// UniformGoalSampler samples 3-dimensional goal positions uniformly
// from an axis-aligned box. UniformGoalSampler implements the
// GoalSampler interface.
type UniformGoalSampler struct {
	dims int
	rand *distmv.Uniform
}

// NewUniformGoalSampler returns a new UniformGoalSampler drawing goals
// from the box described by bounds
func NewUniformGoalSampler(bounds []r1.Interval,
	seed uint64) *UniformGoalSampler {
	source := rand.NewSource(seed)

	return &UniformGoalSampler{
		dims: len(bounds),
		rand: distmv.NewUniform(bounds, source),
	}
}

// Sample draws and returns a new goal position
func (u *UniformGoalSampler) Sample() *mat.VecDense {
	return mat.NewVecDense(u.dims, u.rand.Rand(nil))
}
