// Package reacharm implements a goal-conditioned environment in which
// a torque-controlled robot arm must bring its tool to a 3-D target
// position while staying balanced and within joint limits.
//
// The environment drives an external rigid-body simulator and an
// external kinematics model through the robot package interfaces. One
// control tick spans a configured number of simulation sub-ticks, all
// applying the same torque command. Observations carry the achieved
// and desired goal alongside the state so that past transitions can be
// relabelled for hindsight experience replay.
//
// Episodes end two ways. They are truncated, with no success credit,
// when the center of mass leaves the balance box or a joint exceeds
// its scaled position or velocity limits. They terminate normally when
// the step budget runs out or the arm has held the goal long enough.
// Both conditions are evaluated on every step.
package reacharm

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	env "github.com/samuelfneumann/goreach/environment"
	"github.com/samuelfneumann/goreach/robot"
	ts "github.com/samuelfneumann/goreach/timestep"
)

// holdSteps is the number of on-target steps after which the episode
// terminates with success. Success requires onTarget > holdSteps.
const holdSteps = 30

// observationBound bounds unnormalized observation spec entries; with
// normalization on, observations live in [-1, 1] instead
const observationBound = 10.0

// episodeState tracks the environment's episode state machine
type episodeState int

const (
	uninitialized episodeState = iota
	ready
	running
	terminated
	truncated
	closed
)

// ReachArm is the episode controller. It owns all episode-scoped
// state: the step timer, the on-target counter, and the target
// position, all reset by Reset.
//
// ReachArm performs no internal locking and is not reentrant: all
// calls on one instance must be serialized by the caller. Run separate
// instances for parallel data collection.
//
// ReachArm implements the environment.GoalEnvironment interface.
type ReachArm struct {
	config Config
	sim    robot.Simulator
	model  robot.Model
	goals  env.GoalSampler
	reward RewardPolicy

	// static, derived at construction
	numJoints   int
	maxStep     int
	torqueScale *mat.VecDense
	restPose    *mat.VecDense
	restWeights *mat.DiagDense
	obsNorm     *Normalizer // nil unless NormalizeObs
	goalNorm    *Normalizer // nil unless NormalizeObs

	// episode ending
	stepLimit    env.Ender
	holdEnder    env.Ender
	safetyEnders []env.Ender

	// episode-scoped state
	state       episodeState
	timer       int
	onTarget    int
	target      *mat.VecDense
	com         *mat.VecDense
	currentStep ts.TimeStep
}

// New constructs a ReachArm environment from its configuration and
// collaborators. The configuration is validated eagerly: a
// misconfigured environment never constructs.
func New(config Config, sim robot.Simulator, model robot.Model,
	goals env.GoalSampler) (*ReachArm, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}
	if sim == nil || model == nil || goals == nil {
		return nil, fmt.Errorf("new: simulator, model, and goal sampler " +
			"are all required")
	}

	n := model.NumJoints()
	if err := checkModelLimits(model, n); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	r := &ReachArm{
		config:    config,
		sim:       sim,
		model:     model,
		goals:     goals,
		numJoints: n,
		maxStep:   config.MaxStep(),
		restPose:  model.HomeConfiguration(),
		state:     uninitialized,
	}

	var err error
	if r.reward, err = NewRewardPolicy(config); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	// Per-joint torque scale from the model's effort limits
	r.torqueScale = mat.NewVecDense(n, nil)
	r.torqueScale.ScaleVec(config.TorqueScaleCoeff, model.EffortLimit())

	if r.restWeights, err = restWeightMatrix(config.RestPoseWeights,
		model.JointNames()); err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	if config.NormalizeObs {
		lower, upper := stateLimits(model, n)
		if r.obsNorm, err = NewNormalizer(lower, upper); err != nil {
			return nil, fmt.Errorf("new: %v", err)
		}
		r.goalNorm = newGoalNormalizer()
	}

	r.stepLimit = env.NewStepLimit(r.maxStep)
	r.holdEnder = env.NewFunctionEnder(func(mat.Vector) bool {
		return r.onTarget > holdSteps
	}, ts.TerminalStateReached)
	r.safetyEnders = safetyEnders(r, config, model, n)

	return r, nil
}

// checkModelLimits verifies that the kinematics model reports limit
// vectors consistent with its joint count.
func checkModelLimits(model robot.Model, n int) error {
	if n < 1 {
		return fmt.Errorf("model has no controlled joints")
	}
	for name, v := range map[string]*mat.VecDense{
		"lower position limit": model.LowerPositionLimit(),
		"upper position limit": model.UpperPositionLimit(),
		"velocity limit":       model.VelocityLimit(),
		"effort limit":         model.EffortLimit(),
		"home configuration":   model.HomeConfiguration(),
	} {
		if v.Len() != n {
			return fmt.Errorf("model %v has length %v for %v joints",
				name, v.Len(), n)
		}
	}
	if len(model.JointNames()) != n {
		return fmt.Errorf("model names %v joints but has %v",
			len(model.JointNames()), n)
	}
	return nil
}

// stateLimits builds the lower and upper limit vectors of the full raw
// state [q; v] from the model's static limits.
func stateLimits(model robot.Model, n int) (*mat.VecDense, *mat.VecDense) {
	lower := mat.NewVecDense(2*n, nil)
	upper := mat.NewVecDense(2*n, nil)
	for i := 0; i < n; i++ {
		lower.SetVec(i, model.LowerPositionLimit().AtVec(i))
		upper.SetVec(i, model.UpperPositionLimit().AtVec(i))
		lower.SetVec(n+i, -model.VelocityLimit().AtVec(i))
		upper.SetVec(n+i, model.VelocityLimit().AtVec(i))
	}
	return lower, upper
}

// restWeightMatrix builds the diagonal weight matrix of the rest-pose
// penalty from the configured per-joint weights.
func restWeightMatrix(weights map[string]float64,
	names []string) (*mat.DiagDense, error) {
	diag := mat.NewDiagDense(len(names), nil)
	for name, w := range weights {
		index := -1
		for i, n := range names {
			if n == name {
				index = i
				break
			}
		}
		if index < 0 {
			return nil, fmt.Errorf("no controlled joint named %q for "+
				"rest-pose weight", name)
		}
		diag.SetDiag(index, w)
	}
	return diag, nil
}

// safetyEnders builds the truncation evaluators: the balance box on
// the center of mass, scaled joint position limits, and scaled joint
// velocity limits, all over the raw state.
func safetyEnders(r *ReachArm, config Config, model robot.Model,
	n int) []env.Ender {
	lower := make([]float64, 2*n)
	upper := make([]float64, 2*n)
	for i := 0; i < n; i++ {
		lower[i] = config.LimitPosScale * model.LowerPositionLimit().AtVec(i)
		upper[i] = config.LimitPosScale * model.UpperPositionLimit().AtVec(i)

		bound := config.LimitVelScale * model.VelocityLimit().AtVec(i)
		lower[n+i] = -bound
		upper[n+i] = bound
	}
	limitEnder := env.NewBoxLimit(lower, upper, 0, ts.LimitsExceeded)

	balanceEnder := env.NewFunctionEnder(func(mat.Vector) bool {
		for i := 0; i < 3; i++ {
			if r.com.AtVec(i) < config.LowerLimitCoM[i] ||
				r.com.AtVec(i) > config.UpperLimitCoM[i] {
				return true
			}
		}
		return false
	}, ts.LimitsExceeded)

	return []env.Ender{limitEnder, balanceEnder}
}

// Reset starts a new episode, bringing the robot back to its canonical
// pose. A non-nil opts.Target overrides goal sampling for the episode.
// Reset is the only way out of a finished episode.
func (r *ReachArm) Reset(opts *env.ResetOptions) (env.GoalObservation,
	env.Info, error) {
	if r.state == closed {
		return env.GoalObservation{}, env.Info{},
			fmt.Errorf("reset: %w: environment is closed", ErrInvalidState)
	}

	var target *mat.VecDense
	if opts != nil && opts.Target != nil {
		if opts.Target.Len() != 3 {
			return env.GoalObservation{}, env.Info{},
				fmt.Errorf("reset: %w: target has length %v, expected 3",
					ErrInvalidArgument, opts.Target.Len())
		}
		target = mat.VecDenseCopyOf(opts.Target)
	} else {
		target = r.goals.Sample()
	}

	r.timer = 0
	r.onTarget = 0
	r.target = target

	if err := r.sim.Reset(target); err != nil {
		return env.GoalObservation{}, env.Info{},
			fmt.Errorf("reset: %v", err)
	}

	raw := r.sim.RobotState()
	r.model.Update(raw, r.sim.BasePose())
	r.com = r.model.CenterOfMass()

	obs := r.observation(raw)
	info := env.Info{GoalDistance: r.goalDistance()}

	r.state = ready
	r.currentStep = ts.New(ts.First, 0, 1, raw, 0)

	return obs, info, nil
}

// Step executes one control tick of the environment: it scales the
// normalized action into torques, applies them for the configured
// number of simulation sub-ticks, and evaluates reward, truncation,
// and termination on the resulting state.
//
// The action must lie in [-1, 1] per dimension and have one entry per
// controlled joint. Step returns the new observation, the reward, the
// terminated and truncated flags, and the info side-channel.
func (r *ReachArm) Step(action *mat.VecDense) (env.GoalObservation,
	float64, bool, bool, env.Info, error) {
	if r.state != ready && r.state != running {
		return env.GoalObservation{}, 0, false, false, env.Info{},
			fmt.Errorf("step: %w: step requires a reset environment",
				ErrInvalidState)
	}
	if action.Len() != r.numJoints {
		return env.GoalObservation{}, 0, false, false, env.Info{},
			fmt.Errorf("step: %w: action has length %v, expected %v",
				ErrInvalidArgument, action.Len(), r.numJoints)
	}

	r.timer++
	torques := r.scaleAction(action)

	// One control tick is NumSimulationSteps simulator steps with the
	// same command
	for i := 0; i < r.config.NumSimulationSteps; i++ {
		r.sim.Step(torques)
	}

	raw := r.sim.RobotState()
	r.model.Update(raw, r.sim.BasePose())
	r.com = r.model.CenterOfMass()

	obs := r.observation(raw)

	// Truncation must be known before the reward: the alive flag is
	// one of its features
	step := ts.New(ts.Mid, 0, 1, raw, r.timer)
	isTruncated := false
	for _, ender := range r.safetyEnders {
		if ender.End(&step) {
			isTruncated = true
		}
	}

	torqueNorm := mat.Norm(torques, 2)
	restCost := r.restPoseCost(raw)
	distance := r.goalDistance()
	features := NewFeatureRow(torqueNorm, restCost, !isTruncated, distance)
	reward := r.reward.Reward(features)

	// The on-target counter accumulates: it is incremented when this
	// step is within the success threshold and left unchanged
	// otherwise, never reset within an episode. It counts on-target
	// steps, not a consecutive streak.
	onTarget := distance < r.config.ThresholdSuccess
	if onTarget {
		r.onTarget++
	}

	isTerminated := r.stepLimit.End(&step)
	if r.holdEnder.End(&step) {
		isTerminated = true
	}

	info := env.Info{
		GoalDistance: distance,
		TorqueNorm:   torqueNorm,
		RestPoseCost: restCost,
		OnTarget:     onTarget,
	}

	switch {
	case isTruncated:
		r.state = truncated
	case isTerminated:
		r.state = terminated
	default:
		r.state = running
	}
	if isTerminated || isTruncated {
		info.Success = r.onTarget > holdSteps
	}

	step.Reward = reward
	r.currentStep = step

	return obs, reward, isTerminated, isTruncated, info, nil
}

// Close properly shuts down the environment, tearing down the
// simulator. A closed environment cannot be reset again.
func (r *ReachArm) Close() error {
	r.sim.End()
	r.state = closed
	return nil
}

// scaleAction linearly maps a normalized action in [-1, 1] per
// dimension into torque units using the per-joint torque scale.
func (r *ReachArm) scaleAction(action *mat.VecDense) *mat.VecDense {
	torques := mat.NewVecDense(r.numJoints, nil)
	torques.MulElemVec(r.torqueScale, action)
	return torques
}

// goalDistance returns the distance between the end effector and the
// episode target, in raw (unnormalized) units. Reward, success
// threshold, and info all use this frame regardless of observation
// normalization.
func (r *ReachArm) goalDistance() float64 {
	diff := mat.NewVecDense(3, nil)
	diff.SubVec(r.model.EndEffectorPosition(), r.target)
	return mat.Norm(diff, 2)
}

// restPoseCost returns the quadratic form (q0 - q)ᵀ W (q0 - q) over
// the controlled joint positions, where W is the diagonal rest-pose
// weight matrix.
func (r *ReachArm) restPoseCost(raw *mat.VecDense) float64 {
	diff := mat.NewVecDense(r.numJoints, nil)
	diff.SubVec(r.restPose, raw.SliceVec(0, r.numJoints))

	weighted := mat.NewVecDense(r.numJoints, nil)
	weighted.MulVec(r.restWeights, diff)
	return mat.Dot(diff, weighted)
}

// observation builds the goal-conditioned observation from the raw
// state, normalizing all three vectors if configured. The three
// vectors always share one normalization policy.
func (r *ReachArm) observation(raw *mat.VecDense) env.GoalObservation {
	achieved := r.model.EndEffectorPosition()
	desired := mat.VecDenseCopyOf(r.target)
	observation := mat.VecDenseCopyOf(raw)

	if r.obsNorm != nil {
		observation = r.obsNorm.Normalize(observation)
		achieved = r.goalNorm.Normalize(achieved)
		desired = r.goalNorm.Normalize(desired)
	}

	return env.GoalObservation{
		Observation:  observation,
		AchievedGoal: achieved,
		DesiredGoal:  desired,
	}
}

// ActionSpec returns the action specification of the environment
func (r *ReachArm) ActionSpec() env.Spec {
	shape := mat.NewVecDense(r.numJoints, nil)
	lower := mat.NewVecDense(r.numJoints, repeat(-1, r.numJoints))
	upper := mat.NewVecDense(r.numJoints, repeat(1, r.numJoints))

	return env.NewSpec(shape, env.Action, lower, upper, env.Continuous)
}

// ObservationSpec returns the observation specification of the
// environment. Bounds depend on whether observations are normalized.
func (r *ReachArm) ObservationSpec() env.Spec {
	bound := observationBound
	if r.config.NormalizeObs {
		bound = 1
	}

	dims := 2 * r.numJoints
	shape := mat.NewVecDense(dims, nil)
	lower := mat.NewVecDense(dims, repeat(-bound, dims))
	upper := mat.NewVecDense(dims, repeat(bound, dims))

	return env.NewSpec(shape, env.Observation, lower, upper, env.Continuous)
}

// CurrentTimeStep returns the raw-state timestep of the last Reset or
// Step call
func (r *ReachArm) CurrentTimeStep() ts.TimeStep {
	return r.currentStep
}

// Target returns the current episode's target position
func (r *ReachArm) Target() *mat.VecDense {
	return mat.VecDenseCopyOf(r.target)
}

// MaxStep returns the episode step budget
func (r *ReachArm) MaxStep() int {
	return r.maxStep
}

// RewardPolicy returns the reward policy the environment scores steps
// with. The policy is pure; it may be shared with offline relabelling.
func (r *ReachArm) RewardPolicy() RewardPolicy {
	return r.reward
}

func repeat(value float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = value
	}
	return out
}

var _ env.GoalEnvironment = (*ReachArm)(nil)
