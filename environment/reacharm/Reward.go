package reacharm

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// Column indices of a reward feature row
const (
	FeatureTorqueNorm = iota
	FeatureRestPoseCost
	FeatureAlive
	FeatureGoalDistance

	NumFeatures
)

// sparseStepCost is the flat per-step cost of the sparse reward. It is
// applied on every step regardless of outcome, to discourage dawdling.
const sparseStepCost = 0.002

// NewFeatureRow packages the per-step reward features into a vector
// laid out according to the Feature* column indices. The alive flag is
// 1 when the step was not truncated.
func NewFeatureRow(torqueNorm, restPoseCost float64, alive bool,
	goalDistance float64) *mat.VecDense {
	aliveFlag := 0.0
	if alive {
		aliveFlag = 1.0
	}
	return mat.NewVecDense(NumFeatures, []float64{
		torqueNorm,
		restPoseCost,
		aliveFlag,
		goalDistance,
	})
}

// RewardPolicy scores reward feature rows. Policies are pure and
// side-effect free so that they can score both the live single-row
// case and replayed batches of past transitions with substituted goals
// (hindsight experience replay).
type RewardPolicy interface {
	// Reward scores a single feature row
	Reward(features mat.Vector) float64

	// RewardBatch scores a batch of feature rows, one row per
	// transition, returning one reward per row
	RewardBatch(features mat.Matrix) *mat.VecDense
}

// NewRewardPolicy returns the RewardPolicy selected by the
// configuration
func NewRewardPolicy(c Config) (RewardPolicy, error) {
	switch c.RewardType {
	case DenseReward:
		return NewDense(c.WeightControl, c.WeightTruncation,
			c.WeightTarget), nil
	case SparseReward:
		return NewSparse(c.WeightControl, c.WeightTargetReached,
			c.ThresholdSuccess), nil
	}
	return nil, fmt.Errorf("newRewardPolicy: unknown reward type %q",
		c.RewardType)
}

// dense computes the shaped reward
//
//	-wControl·torqueNorm - restPoseCost + wTruncation·alive - wTarget·dst
//
// as a dot product of the feature row with a fixed weight column. The
// alive flag is 1 when the step was NOT truncated, so wTruncation acts
// as a per-step bonus for staying within safety bounds, not a penalty.
type dense struct {
	weights *mat.VecDense
}

// NewDense returns the dense reward policy with the given weights
func NewDense(wControl, wTruncation, wTarget float64) RewardPolicy {
	return &dense{
		weights: mat.NewVecDense(NumFeatures, []float64{
			-wControl,
			-1,
			wTruncation,
			-wTarget,
		}),
	}
}

// Reward scores a single feature row
func (d *dense) Reward(features mat.Vector) float64 {
	if features.Len() != NumFeatures {
		panic(fmt.Sprintf("reward: feature row has length %v, expected %v",
			features.Len(), NumFeatures))
	}
	return mat.Dot(features, d.weights)
}

// RewardBatch scores a batch of feature rows with a single
// matrix-vector product
func (d *dense) RewardBatch(features mat.Matrix) *mat.VecDense {
	rows, cols := features.Dims()
	if cols != NumFeatures {
		panic(fmt.Sprintf("rewardBatch: feature matrix has %v columns, "+
			"expected %v", cols, NumFeatures))
	}

	out := mat.NewVecDense(rows, nil)
	out.MulVec(features, d.weights)
	return out
}

// sparse pays wReached when the goal distance is under the success
// threshold, minus the torque penalty and a constant per-step cost:
//
//	-wControl·torqueNorm + wReached·1{dst < threshold} - 0.002
//
// The -0.002 is independent of success and applied unconditionally.
type sparse struct {
	wControl  float64
	wReached  float64
	threshold float64
}

// NewSparse returns the sparse reward policy with the given weights
// and success threshold
func NewSparse(wControl, wReached, threshold float64) RewardPolicy {
	return &sparse{wControl: wControl, wReached: wReached,
		threshold: threshold}
}

// Reward scores a single feature row
func (s *sparse) Reward(features mat.Vector) float64 {
	if features.Len() != NumFeatures {
		panic(fmt.Sprintf("reward: feature row has length %v, expected %v",
			features.Len(), NumFeatures))
	}

	reward := -s.wControl*features.AtVec(FeatureTorqueNorm) - sparseStepCost
	if features.AtVec(FeatureGoalDistance) < s.threshold {
		reward += s.wReached
	}
	return reward
}

// RewardBatch scores a batch of feature rows
func (s *sparse) RewardBatch(features mat.Matrix) *mat.VecDense {
	rows, cols := features.Dims()
	if cols != NumFeatures {
		panic(fmt.Sprintf("rewardBatch: feature matrix has %v columns, "+
			"expected %v", cols, NumFeatures))
	}

	out := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		reward := -s.wControl*features.At(i, FeatureTorqueNorm) -
			sparseStepCost
		if features.At(i, FeatureGoalDistance) < s.threshold {
			reward += s.wReached
		}
		out.SetVec(i, reward)
	}
	return out
}
