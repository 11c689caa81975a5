// Package environment outlines the interfaces and structs needed to
// implement concrete environments
package environment

import (
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/goreach/timestep"
)

// Starter implements a distribution of starting states and samples
// starting states for environments
type Starter interface {
	Start() mat.Vector
}

// Ender determines whether a timestep should be the last in an
// episode. If so, End modifies the timestep so that its StepType is
// timestep.Last and its EndType records the reason the episode ended.
type Ender interface {
	End(*timestep.TimeStep) bool
}

// GoalSampler produces goal positions for episodes of a
// goal-conditioned environment
type GoalSampler interface {
	Sample() *mat.VecDense
}

// GoalObservation is the observation emitted by goal-conditioned
// environments. It carries the state observation alongside the goal
// the environment actually achieved on this step and the goal it was
// asked to achieve, so that past transitions can be relabelled with
// substituted goals (hindsight experience replay).
//
// All three vectors share a single normalization policy: either all
// of them are normalized or none of them are.
type GoalObservation struct {
	Observation  *mat.VecDense
	AchievedGoal *mat.VecDense
	DesiredGoal  *mat.VecDense
}

// Info carries the per-step side-channel of a goal-conditioned
// environment. GoalDistance, TorqueNorm and RestPoseCost are valid on
// every step. Success is only meaningful on steps where the episode
// terminated or was truncated.
type Info struct {
	GoalDistance float64
	TorqueNorm   float64
	RestPoseCost float64
	OnTarget     bool
	Success      bool
}

// ResetOptions modifies how an episode is started. A non-nil Target
// overrides goal sampling for the episode, which is useful for
// deterministic evaluation against a fixed goal set.
type ResetOptions struct {
	Target *mat.VecDense
}

// GoalEnvironment is a goal-conditioned environment with separate
// termination (normal episode end) and truncation (safety failure)
// signals.
//
// Implementations are not safe for concurrent use: all calls on a
// single environment must be serialized by the caller. Separate
// instances may run concurrently for parallel data collection.
type GoalEnvironment interface {
	Reset(opts *ResetOptions) (GoalObservation, Info, error)
	Step(action *mat.VecDense) (GoalObservation, float64, bool, bool,
		Info, error)
	ActionSpec() Spec
	ObservationSpec() Spec
	Close() error
}
