package experiment

import (
	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"

	"github.com/samuelfneumann/goreach/environment"
)

// Policy selects actions from goal-conditioned observations
type Policy interface {
	SelectAction(obs environment.GoalObservation) *mat.VecDense
}

// UniformRandom is a Policy selecting actions uniformly at random from
// the environment's action bounds. It is used for data collection and
// for exercising environments; learning policies live outside this
// module.
type UniformRandom struct {
	dims int
	rng  *distmv.Uniform
}

// NewUniformRandom returns a new UniformRandom policy sampling within
// the bounds of the given action specification
func NewUniformRandom(spec environment.Spec, seed uint64) *UniformRandom {
	bounds := make([]r1.Interval, spec.Shape.Len())
	for i := range bounds {
		bounds[i] = r1.Interval{
			Min: spec.LowerBound.AtVec(i),
			Max: spec.UpperBound.AtVec(i),
		}
	}

	return &UniformRandom{
		dims: len(bounds),
		rng:  distmv.NewUniform(bounds, rand.NewSource(seed)),
	}
}

// SelectAction samples and returns a random action
func (u *UniformRandom) SelectAction(_ environment.GoalObservation) *mat.VecDense {
	return mat.NewVecDense(u.dims, u.rng.Rand(nil))
}
