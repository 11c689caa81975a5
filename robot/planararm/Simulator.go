package planararm

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"

	"github.com/samuelfneumann/goreach/environment"
	"github.com/samuelfneumann/goreach/robot"
)

// startNoise bounds the uniform perturbation applied to each joint
// angle when random initialization is enabled
const startNoise = 0.1

// Simulator integrates the dynamics of a planar arm. Each joint is
// treated as a damped rotational inertia loaded by the weight of the
// links distal to it; states are advanced with semi-implicit Euler at
// a fixed timestep.
//
// Simulator implements the robot.Simulator interface.
type Simulator struct {
	cfg Config
	arm *Arm
	dt  float64

	q *mat.VecDense
	v *mat.VecDense

	// inertia[i] is the constant rotational inertia about joint i of
	// all distal links at full extension
	inertia []float64

	randomInit bool
	starter    environment.UniformStarter
	base       robot.Pose
	closed     bool
}

// NewSimulator returns a new planar arm simulator advancing dt seconds
// of simulated time per Step call. If randomInit is true, every
// episode starts from a perturbed home configuration sampled with the
// given seed.
func NewSimulator(cfg Config, dt float64, randomInit bool,
	seed uint64) (*Simulator, error) {
	if dt <= 0 {
		return nil, fmt.Errorf("newSimulator: timestep must be positive, "+
			"got %v", dt)
	}
	arm, err := NewArm(cfg)
	if err != nil {
		return nil, fmt.Errorf("newSimulator: %v", err)
	}

	n := cfg.NumLinks
	inertia := make([]float64, n)
	for i := 0; i < n; i++ {
		var reach float64
		for j := i; j < n; j++ {
			reach += cfg.LinkLengths[j]
			inertia[i] += cfg.LinkMasses[j] * reach * reach
		}
	}

	bounds := make([]r1.Interval, n)
	for i := range bounds {
		bounds[i] = r1.Interval{Min: -startNoise, Max: startNoise}
	}

	base := robot.IdentityPose()
	base.Translation.SetVec(2, cfg.BaseHeight)

	sim := &Simulator{
		cfg:        cfg,
		arm:        arm,
		dt:         dt,
		q:          mat.NewVecDense(n, nil),
		v:          mat.NewVecDense(n, nil),
		inertia:    inertia,
		randomInit: randomInit,
		starter:    environment.NewUniformStarter(bounds, seed),
		base:       base,
	}
	if err := sim.Reset(mat.NewVecDense(3, nil)); err != nil {
		return nil, fmt.Errorf("newSimulator: %v", err)
	}
	return sim, nil
}

// Reset brings the arm back to its home configuration at rest. The
// target is accepted to satisfy the robot.Simulator interface; a
// planar arm has no scene to seed with it.
func (s *Simulator) Reset(target *mat.VecDense) error {
	if s.closed {
		return fmt.Errorf("reset: simulator already shut down")
	}
	if target.Len() != 3 {
		return fmt.Errorf("reset: target has length %v, expected 3",
			target.Len())
	}

	s.q.CopyVec(s.arm.HomeConfiguration())
	if s.randomInit {
		s.q.AddVec(s.q, s.starter.Start())
	}
	s.v.Zero()
	return nil
}

// Step applies a torque command to the joints and advances the
// simulation by one timestep. Step panics if the torque vector has the
// wrong dimension.
func (s *Simulator) Step(torques *mat.VecDense) {
	n := s.cfg.NumLinks
	if torques.Len() != n {
		panic(fmt.Sprintf("step: torque vector has length %v, expected %v",
			torques.Len(), n))
	}

	gravity := s.gravityTorques()
	for i := 0; i < n; i++ {
		accel := (torques.AtVec(i) + gravity[i] -
			s.cfg.Damping*s.v.AtVec(i)) / s.inertia[i]

		// Semi-implicit Euler: update velocity first, then position
		s.v.SetVec(i, s.v.AtVec(i)+accel*s.dt)
		s.q.SetVec(i, s.q.AtVec(i)+s.v.AtVec(i)*s.dt)
	}
}

// gravityTorques returns the torque exerted by gravity about each
// joint in the current configuration. Torques are about the y-axis, so
// a mass hanging in +x of its joint produces a negative torque.
func (s *Simulator) gravityTorques() []float64 {
	n := s.cfg.NumLinks
	joints, midpoints := s.arm.forwardKinematics(s.RobotState())

	torques := make([]float64, n)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			lever := midpoints[j][0] - joints[i][0]
			torques[i] -= s.cfg.Gravity * s.cfg.LinkMasses[j] * lever
		}
	}
	return torques
}

// RobotState returns the raw state vector [q; v]
func (s *Simulator) RobotState() *mat.VecDense {
	n := s.cfg.NumLinks
	state := mat.NewVecDense(2*n, nil)
	for i := 0; i < n; i++ {
		state.SetVec(i, s.q.AtVec(i))
		state.SetVec(n+i, s.v.AtVec(i))
	}
	return state
}

// BasePose returns the fixed pose of the arm's base in the world frame
func (s *Simulator) BasePose() robot.Pose {
	return s.base
}

// End shuts the simulator down. Further Reset calls will fail.
func (s *Simulator) End() {
	s.closed = true
}

// Dt returns the simulation timestep
func (s *Simulator) Dt() float64 { return s.dt }

// Reach returns the arm's maximum reach from its base
func (s *Simulator) Reach() float64 {
	var reach float64
	for _, l := range s.cfg.LinkLengths {
		reach += l
	}
	return reach
}

var _ robot.Simulator = (*Simulator)(nil)
var _ robot.Model = (*Arm)(nil)
