package reacharm

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	env "github.com/samuelfneumann/goreach/environment"
	"github.com/samuelfneumann/goreach/robot"
)

// stubSimulator is a robot.Simulator whose state is set directly by
// tests. It records the torque commands it receives.
type stubSimulator struct {
	state       *mat.VecDense
	lastTorques *mat.VecDense
	stepCalls   int
	resets      int
	closed      bool
}

func (s *stubSimulator) Reset(target *mat.VecDense) error {
	if s.closed {
		return errors.New("reset: simulator already shut down")
	}
	s.resets++
	return nil
}

func (s *stubSimulator) Step(torques *mat.VecDense) {
	s.lastTorques = mat.VecDenseCopyOf(torques)
	s.stepCalls++
}

func (s *stubSimulator) RobotState() *mat.VecDense {
	return mat.VecDenseCopyOf(s.state)
}

func (s *stubSimulator) BasePose() robot.Pose { return robot.IdentityPose() }

func (s *stubSimulator) End() { s.closed = true }

// stubModel is a robot.Model reporting whatever end-effector and
// center-of-mass positions tests assign to it.
type stubModel struct {
	n   int
	ee  *mat.VecDense
	com *mat.VecDense
}

func newStubModel(n int) *stubModel {
	return &stubModel{
		n:   n,
		ee:  mat.NewVecDense(3, nil),
		com: mat.NewVecDense(3, []float64{0, 0, 1.2}),
	}
}

func (m *stubModel) Update(*mat.VecDense, robot.Pose) {}

func (m *stubModel) EndEffectorPosition() *mat.VecDense {
	return mat.VecDenseCopyOf(m.ee)
}

func (m *stubModel) CenterOfMass() *mat.VecDense {
	return mat.VecDenseCopyOf(m.com)
}

func (m *stubModel) NumJoints() int { return m.n }

func (m *stubModel) JointNames() []string {
	names := make([]string, m.n)
	for i := range names {
		names[i] = fmt.Sprintf("joint_%d", i+1)
	}
	return names
}

func (m *stubModel) HomeConfiguration() *mat.VecDense {
	return mat.NewVecDense(m.n, nil)
}

func (m *stubModel) LowerPositionLimit() *mat.VecDense {
	return mat.NewVecDense(m.n, repeat(-math.Pi, m.n))
}

func (m *stubModel) UpperPositionLimit() *mat.VecDense {
	return mat.NewVecDense(m.n, repeat(math.Pi, m.n))
}

func (m *stubModel) VelocityLimit() *mat.VecDense {
	return mat.NewVecDense(m.n, repeat(4, m.n))
}

func (m *stubModel) EffortLimit() *mat.VecDense {
	return mat.NewVecDense(m.n, repeat(80, m.n))
}

// fixedGoals samples the same goal every episode
type fixedGoals struct{ goal *mat.VecDense }

func (f fixedGoals) Sample() *mat.VecDense {
	return mat.VecDenseCopyOf(f.goal)
}

// newTestEnvironment builds a ReachArm over stub collaborators with a
// 3-joint model
func newTestEnvironment(t *testing.T, config Config) (*ReachArm,
	*stubSimulator, *stubModel) {
	t.Helper()

	sim := &stubSimulator{state: mat.NewVecDense(6, nil)}
	model := newStubModel(3)
	goals := fixedGoals{mat.NewVecDense(3, []float64{0.5, 0, 1.2})}

	environment, err := New(config, sim, model, goals)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return environment, sim, model
}

func TestStepBeforeReset(t *testing.T) {
	environment, _, _ := newTestEnvironment(t, validTestConfig())

	_, _, _, _, _, err := environment.Step(mat.NewVecDense(3, nil))
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("got error %v, expected ErrInvalidState", err)
	}
}

func TestResetTargetDimension(t *testing.T) {
	environment, _, _ := newTestEnvironment(t, validTestConfig())

	bad := mat.NewVecDense(2, []float64{0.5, 1.2})
	_, _, err := environment.Reset(&env.ResetOptions{Target: bad})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("got error %v, expected ErrInvalidArgument", err)
	}
}

func TestStepActionDimension(t *testing.T) {
	environment, _, _ := newTestEnvironment(t, validTestConfig())
	if _, _, err := environment.Reset(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, _, _, _, _, err := environment.Step(mat.NewVecDense(2, nil))
	if !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("got error %v, expected ErrInvalidArgument", err)
	}
}

// TestStepLimitTermination checks that with the target out of reach and
// all limits respected, the episode terminates on exactly the 100th
// step and never earlier.
func TestStepLimitTermination(t *testing.T) {
	environment, _, model := newTestEnvironment(t, validTestConfig())
	model.ee = mat.NewVecDense(3, []float64{0.5, 0, 1.2})

	if environment.MaxStep() != 100 {
		t.Fatalf("got step budget %v, expected 100", environment.MaxStep())
	}

	far := mat.NewVecDense(3, []float64{2.9, 0, -2})
	if _, _, err := environment.Reset(&env.ResetOptions{Target: far}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	action := mat.NewVecDense(3, nil)
	for i := 1; i <= 100; i++ {
		_, _, terminated, truncated, info, err := environment.Step(action)
		if err != nil {
			t.Fatalf("step %v: unexpected error: %v", i, err)
		}
		if truncated {
			t.Fatalf("step %v: episode truncated within limits", i)
		}
		if terminated != (i == 100) {
			t.Fatalf("step %v: terminated = %v", i, terminated)
		}
		if i == 100 && info.Success {
			t.Error("timed-out episode reported success")
		}
	}
}

// TestHoldTermination checks that holding the end effector on the
// target terminates the episode with success once the counter passes
// the hold requirement.
func TestHoldTermination(t *testing.T) {
	environment, _, model := newTestEnvironment(t, validTestConfig())
	target := mat.NewVecDense(3, []float64{0.5, 0, 1.2})
	model.ee = mat.VecDenseCopyOf(target)

	if _, _, err := environment.Reset(&env.ResetOptions{Target: target}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	action := mat.NewVecDense(3, nil)
	for i := 1; i <= 30; i++ {
		_, _, terminated, truncated, info, err := environment.Step(action)
		if err != nil {
			t.Fatalf("step %v: unexpected error: %v", i, err)
		}
		if terminated || truncated {
			t.Fatalf("step %v: episode ended before the hold requirement", i)
		}
		if !info.OnTarget {
			t.Fatalf("step %v: on-target step not flagged", i)
		}
	}

	_, _, terminated, truncated, info, err := environment.Step(action)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !terminated || truncated {
		t.Fatalf("terminated = %v, truncated = %v after holding the goal",
			terminated, truncated)
	}
	if !info.Success {
		t.Error("held episode did not report success")
	}
}

// TestOnTargetAccumulates checks that the on-target counter counts
// on-target steps without resetting when the end effector drifts off
// the goal.
func TestOnTargetAccumulates(t *testing.T) {
	environment, _, model := newTestEnvironment(t, validTestConfig())
	target := mat.NewVecDense(3, []float64{0.5, 0, 1.2})
	off := mat.NewVecDense(3, []float64{0.5, 0, 2.2})

	model.ee = mat.VecDenseCopyOf(target)
	if _, _, err := environment.Reset(&env.ResetOptions{Target: target}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	action := mat.NewVecDense(3, nil)
	step := func(n int) {
		t.Helper()
		for i := 0; i < n; i++ {
			if _, _, _, _, _, err := environment.Step(action); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
	}

	step(3)
	if environment.onTarget != 3 {
		t.Fatalf("got counter %v after 3 on-target steps, expected 3",
			environment.onTarget)
	}

	model.ee = off
	step(2)
	if environment.onTarget != 3 {
		t.Fatalf("counter moved to %v on off-target steps, expected 3",
			environment.onTarget)
	}

	model.ee = target
	step(2)
	if environment.onTarget != 5 {
		t.Fatalf("got counter %v after returning to the target, expected 5",
			environment.onTarget)
	}
}

func TestBalanceTruncation(t *testing.T) {
	config := validTestConfig()
	config.WeightTruncation = 1
	environment, _, model := newTestEnvironment(t, config)
	model.ee = mat.NewVecDense(3, []float64{0.5, 0, 1.2})
	model.com = mat.NewVecDense(3, []float64{0, 0, 2.0})

	if _, _, err := environment.Reset(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, reward, terminated, truncated, info, err :=
		environment.Step(mat.NewVecDense(3, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !truncated || terminated {
		t.Fatalf("terminated = %v, truncated = %v with the center of mass "+
			"outside the balance box", terminated, truncated)
	}
	if info.Success {
		t.Error("truncated episode reported success")
	}

	// Truncation zeroes the alive flag: with zero torque and no
	// rest-pose penalty the reward is just the distance term
	expected := -config.WeightTarget * info.GoalDistance
	if math.Abs(reward-expected) > tolerance {
		t.Errorf("got reward %v on truncated step, expected %v", reward,
			expected)
	}

	// A finished episode only admits Reset
	_, _, _, _, _, err = environment.Step(mat.NewVecDense(3, nil))
	if !errors.Is(err, ErrInvalidState) {
		t.Errorf("got error %v after truncation, expected ErrInvalidState",
			err)
	}
	if _, _, err := environment.Reset(nil); err != nil {
		t.Errorf("reset after truncation failed: %v", err)
	}
}

func TestVelocityLimitTruncation(t *testing.T) {
	environment, sim, model := newTestEnvironment(t, validTestConfig())
	model.ee = mat.NewVecDense(3, []float64{0.5, 0, 1.2})

	if _, _, err := environment.Reset(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Velocity bound is LimitVelScale * 4 = 120
	sim.state.SetVec(3, 130)
	_, _, terminated, truncated, _, err :=
		environment.Step(mat.NewVecDense(3, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !truncated || terminated {
		t.Errorf("terminated = %v, truncated = %v with a joint velocity "+
			"beyond its scaled limit", terminated, truncated)
	}
}

func TestPositionLimitTruncation(t *testing.T) {
	environment, sim, model := newTestEnvironment(t, validTestConfig())
	model.ee = mat.NewVecDense(3, []float64{0.5, 0, 1.2})

	if _, _, err := environment.Reset(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Position bound is LimitPosScale * pi
	sim.state.SetVec(0, 10*math.Pi+1)
	_, _, terminated, truncated, _, err :=
		environment.Step(mat.NewVecDense(3, nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !truncated || terminated {
		t.Errorf("terminated = %v, truncated = %v with a joint position "+
			"beyond its scaled limit", terminated, truncated)
	}
}

func TestTorqueScaling(t *testing.T) {
	config := validTestConfig()
	config.TorqueScaleCoeff = 0.5
	environment, sim, _ := newTestEnvironment(t, config)

	if _, _, err := environment.Reset(nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	action := mat.NewVecDense(3, []float64{1, -1, 0.5})
	if _, _, _, _, _, err := environment.Step(action); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Effort limit 80 scaled by 0.5
	expected := []float64{40, -40, 20}
	for i, want := range expected {
		if got := sim.lastTorques.AtVec(i); math.Abs(got-want) > tolerance {
			t.Errorf("joint %v received torque %v, expected %v", i, got,
				want)
		}
	}

	// One control tick spans NumSimulationSteps simulator steps
	if sim.stepCalls != config.NumSimulationSteps {
		t.Errorf("simulator stepped %v times per control tick, expected %v",
			sim.stepCalls, config.NumSimulationSteps)
	}
}

func TestRestPoseCost(t *testing.T) {
	config := validTestConfig()
	config.RestPoseWeights = map[string]float64{"joint_1": 2}
	environment, _, _ := newTestEnvironment(t, config)

	raw := mat.NewVecDense(6, nil)
	raw.SetVec(0, 0.5)

	cost := environment.restPoseCost(raw)
	if math.Abs(cost-0.5) > tolerance {
		t.Errorf("got rest-pose cost %v, expected 0.5", cost)
	}

	// Joints without a configured weight contribute nothing
	raw.SetVec(1, 3)
	if got := environment.restPoseCost(raw); math.Abs(got-0.5) > tolerance {
		t.Errorf("got rest-pose cost %v with an unweighted joint moved, "+
			"expected 0.5", got)
	}
}

func TestRestPoseWeightUnknownJoint(t *testing.T) {
	config := validTestConfig()
	config.RestPoseWeights = map[string]float64{"elbow": 1}

	sim := &stubSimulator{state: mat.NewVecDense(6, nil)}
	goals := fixedGoals{mat.NewVecDense(3, []float64{0.5, 0, 1.2})}
	if _, err := New(config, sim, newStubModel(3), goals); err == nil {
		t.Error("expected an error for a rest-pose weight on an unknown " +
			"joint")
	}
}

func TestNormalizedObservation(t *testing.T) {
	config := validTestConfig()
	config.NormalizeObs = true
	environment, _, model := newTestEnvironment(t, config)
	model.ee = mat.NewVecDense(3, []float64{1.5, 0, 0})

	target := mat.NewVecDense(3, []float64{0.6, 0, 1.2})
	obs, _, err := environment.Reset(&env.ResetOptions{Target: target})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The stub state sits at the midpoint of every limit
	for i := 0; i < obs.Observation.Len(); i++ {
		if obs.Observation.AtVec(i) != 0 {
			t.Errorf("observation dimension %v normalized to %v, expected 0",
				i, obs.Observation.AtVec(i))
		}
	}

	// Goals normalize over a fixed box of ±3 m per axis
	if got := obs.AchievedGoal.AtVec(0); math.Abs(got-0.25) > tolerance {
		t.Errorf("achieved goal x normalized to %v, expected 0.25", got)
	}
	if got := obs.DesiredGoal.AtVec(0); math.Abs(got-0.1) > tolerance {
		t.Errorf("desired goal x normalized to %v, expected 0.1", got)
	}
	if got := obs.DesiredGoal.AtVec(2); math.Abs(got-0.2) > tolerance {
		t.Errorf("desired goal z normalized to %v, expected 0.2", got)
	}
}

func TestCloseThenReset(t *testing.T) {
	environment, sim, _ := newTestEnvironment(t, validTestConfig())

	if err := environment.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !sim.closed {
		t.Error("closing the environment did not shut down the simulator")
	}

	if _, _, err := environment.Reset(nil); !errors.Is(err, ErrInvalidState) {
		t.Errorf("got error %v on a closed environment, expected "+
			"ErrInvalidState", err)
	}
}

func TestResetInfo(t *testing.T) {
	environment, _, model := newTestEnvironment(t, validTestConfig())
	model.ee = mat.NewVecDense(3, []float64{0.5, 0, 1.0})

	target := mat.NewVecDense(3, []float64{0.5, 0, 1.2})
	_, info, err := environment.Reset(&env.ResetOptions{Target: target})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(info.GoalDistance-0.2) > tolerance {
		t.Errorf("got goal distance %v on reset, expected 0.2",
			info.GoalDistance)
	}

	if got := environment.Target(); !mat.Equal(got, target) {
		t.Errorf("got target %v, expected %v", got, target)
	}
}
