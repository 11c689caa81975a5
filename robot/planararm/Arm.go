// Package planararm implements a torque-controlled N-link arm moving
// in the vertical XZ plane. The package provides both halves of the
// robot abstraction: a kinematics Model computing end-effector and
// center-of-mass positions, and a Simulator integrating the joint
// dynamics under gravity and viscous friction. It is the reference
// backend used by tests and the command-line runner.
package planararm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"github.com/samuelfneumann/goreach/robot"
)

// Arm is a kinematics model of a planar arm. Joint angles are measured
// from the +x axis; joint i+1 sits at the far end of link i. The arm
// is mounted on a fixed base whose pose is reported by the simulator.
//
// Arm implements the robot.Model interface.
type Arm struct {
	cfg       Config
	names     []string
	lower     *mat.VecDense
	upper     *mat.VecDense
	velocity  *mat.VecDense
	effort    *mat.VecDense
	home      *mat.VecDense
	totalMass float64

	// updated by Update
	ee  *mat.VecDense
	com *mat.VecDense
}

// NewArm returns a new planar arm kinematics model
func NewArm(cfg Config) (*Arm, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("newArm: %v", err)
	}

	n := cfg.NumLinks
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("joint_%d", i+1)
	}

	lower := mat.NewVecDense(n, repeat(-cfg.PositionLimit, n))
	upper := mat.NewVecDense(n, repeat(cfg.PositionLimit, n))
	velocity := mat.NewVecDense(n, repeat(cfg.VelocityLimit, n))
	effort := mat.NewVecDense(n, repeat(cfg.EffortLimit, n))

	totalMass := cfg.BaseMass
	for _, m := range cfg.LinkMasses {
		totalMass += m
	}

	return &Arm{
		cfg:       cfg,
		names:     names,
		lower:     lower,
		upper:     upper,
		velocity:  velocity,
		effort:    effort,
		home:      mat.NewVecDense(n, nil),
		totalMass: totalMass,
		ee:        mat.NewVecDense(3, nil),
		com:       mat.NewVecDense(3, nil),
	}, nil
}

// Update recomputes forward kinematics from the raw state vector
// [q; v] and the base pose. Update panics if the raw state has the
// wrong dimension, since that indicates a mis-wired simulator.
func (a *Arm) Update(rawState *mat.VecDense, base robot.Pose) {
	n := a.cfg.NumLinks
	if rawState.Len() != 2*n {
		panic(fmt.Sprintf("update: raw state has length %v, expected %v",
			rawState.Len(), 2*n))
	}

	joints, midpoints := a.forwardKinematics(rawState)

	// End effector is the tip of the final link
	tip := joints[n]
	a.ee = worldPoint(base, tip)

	// Mass-weighted average of the base and link midpoints
	var cx, cz float64
	for i := 0; i < n; i++ {
		cx += a.cfg.LinkMasses[i] * midpoints[i][0]
		cz += a.cfg.LinkMasses[i] * midpoints[i][1]
	}
	cx /= a.totalMass
	cz /= a.totalMass
	a.com = worldPoint(base, [2]float64{cx, cz})
}

// forwardKinematics returns the base-frame XZ positions of every joint
// (n+1 points, the last being the tip) and of every link midpoint.
func (a *Arm) forwardKinematics(rawState *mat.VecDense) ([][2]float64,
	[][2]float64) {
	n := a.cfg.NumLinks
	joints := make([][2]float64, n+1)
	midpoints := make([][2]float64, n)

	var phi float64
	for i := 0; i < n; i++ {
		phi += rawState.AtVec(i)
		dx := a.cfg.LinkLengths[i] * math.Cos(phi)
		dz := a.cfg.LinkLengths[i] * math.Sin(phi)
		midpoints[i] = [2]float64{
			joints[i][0] + dx/2,
			joints[i][1] + dz/2,
		}
		joints[i+1] = [2]float64{
			joints[i][0] + dx,
			joints[i][1] + dz,
		}
	}
	return joints, midpoints
}

// EndEffectorPosition returns the world-frame tool position computed
// by the last call to Update
func (a *Arm) EndEffectorPosition() *mat.VecDense {
	return mat.VecDenseCopyOf(a.ee)
}

// CenterOfMass returns the world-frame center of mass computed by the
// last call to Update
func (a *Arm) CenterOfMass() *mat.VecDense {
	return mat.VecDenseCopyOf(a.com)
}

// NumJoints returns the number of controlled joints
func (a *Arm) NumJoints() int { return a.cfg.NumLinks }

// JointNames returns the names of the controlled joints
func (a *Arm) JointNames() []string { return a.names }

// HomeConfiguration returns the canonical rest configuration
func (a *Arm) HomeConfiguration() *mat.VecDense {
	return mat.VecDenseCopyOf(a.home)
}

// LowerPositionLimit returns the lower joint position limits
func (a *Arm) LowerPositionLimit() *mat.VecDense {
	return mat.VecDenseCopyOf(a.lower)
}

// UpperPositionLimit returns the upper joint position limits
func (a *Arm) UpperPositionLimit() *mat.VecDense {
	return mat.VecDenseCopyOf(a.upper)
}

// VelocityLimit returns the joint velocity limit magnitudes
func (a *Arm) VelocityLimit() *mat.VecDense {
	return mat.VecDenseCopyOf(a.velocity)
}

// EffortLimit returns the per-joint actuator torque limits
func (a *Arm) EffortLimit() *mat.VecDense {
	return mat.VecDenseCopyOf(a.effort)
}

// worldPoint maps an XZ point in the base frame to a 3-vector in the
// world frame using the base pose.
func worldPoint(base robot.Pose, p [2]float64) *mat.VecDense {
	local := quat.Number{Imag: p[0], Kmag: p[1]}

	// Rotate by the unit quaternion: q p q*
	r := base.Rotation
	rotated := quat.Mul(quat.Mul(r, local), quat.Conj(r))

	return mat.NewVecDense(3, []float64{
		rotated.Imag + base.Translation.AtVec(0),
		rotated.Jmag + base.Translation.AtVec(1),
		rotated.Kmag + base.Translation.AtVec(2),
	})
}
