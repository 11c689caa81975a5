// Package robot defines the interfaces through which environments talk
// to a rigid-body simulator and to a kinematics model of the simulated
// robot. Concrete backends live in subpackages.
package robot

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

// Pose is the SE(3) pose of the robot base in the simulator's world
// frame: a translation plus a unit quaternion orientation.
type Pose struct {
	Translation *mat.VecDense
	Rotation    quat.Number
}

// IdentityPose returns the pose of a robot whose base frame coincides
// with the world frame.
func IdentityPose() Pose {
	return Pose{
		Translation: mat.NewVecDense(3, nil),
		Rotation:    quat.Number{Real: 1},
	}
}

// Simulator advances rigid-body state given torque commands. One call
// to Step advances the simulation by exactly one simulation timestep;
// environments running a coarser control tick call Step repeatedly
// with the same torque command.
//
// Simulators are stateful and not safe for concurrent use.
type Simulator interface {
	// Reset brings the robot back to its canonical pose to begin a
	// new episode. The episode's target position is supplied so that
	// backends may use it to seed scene setup.
	Reset(target *mat.VecDense) error

	// Step applies the torque command to the controlled joints and
	// advances the simulation by one simulation timestep.
	Step(torques *mat.VecDense)

	// RobotState returns the raw state vector: the controlled joint
	// positions concatenated with the controlled joint velocities.
	RobotState() *mat.VecDense

	// BasePose returns the pose of the robot base in the world frame.
	BasePose() Pose

	// End shuts the simulator down, releasing any backend resources.
	End()
}

// Model converts raw robot state into derived kinematic quantities
// through a precomputed reduced model of the controlled joints. Limit
// accessors are static: they describe the model and do not change with
// state.
//
// Update must be called with fresh simulator output before reading
// EndEffectorPosition or CenterOfMass.
type Model interface {
	// Update recomputes forward kinematics from a raw state vector
	// and the current base pose.
	Update(rawState *mat.VecDense, base Pose)

	// EndEffectorPosition returns the world-frame position of the
	// tool-bearing point of the robot.
	EndEffectorPosition() *mat.VecDense

	// CenterOfMass returns the world-frame position of the robot's
	// center of mass.
	CenterOfMass() *mat.VecDense

	// NumJoints returns the number of controlled joints.
	NumJoints() int

	// JointNames returns the names of the controlled joints, in
	// state-vector order.
	JointNames() []string

	// HomeConfiguration returns the canonical rest configuration of
	// the controlled joints.
	HomeConfiguration() *mat.VecDense

	LowerPositionLimit() *mat.VecDense
	UpperPositionLimit() *mat.VecDense
	VelocityLimit() *mat.VecDense
	EffortLimit() *mat.VecDense
}
