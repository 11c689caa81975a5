package reacharm

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// RewardType selects which reward policy an environment uses
type RewardType string

const (
	// DenseReward shapes the reward with the distance to the goal, the
	// distance from the rest pose, and a bonus for staying within
	// safety limits
	DenseReward RewardType = "dense"

	// SparseReward only pays out when the end effector is within the
	// success threshold of the goal
	SparseReward RewardType = "sparse"
)

// Config holds the full configuration of a ReachArm environment.
// Fields without a listed default are required. Config is read-only
// after construction of the environment.
type Config struct {
	// TimeStepSimulation is the simulator integration timestep in
	// seconds. Required.
	TimeStepSimulation float64 `yaml:"timeStepSimulation"`

	// NumSimulationSteps is the number of simulation timesteps per
	// control tick. All sub-ticks of one control tick apply the same
	// torque command. Required.
	NumSimulationSteps int `yaml:"numSimulationSteps"`

	// MaxTime is the episode wall-time budget in simulated seconds.
	// The step budget is MaxTime / (TimeStepSimulation *
	// NumSimulationSteps), computed once at construction. Required.
	MaxTime float64 `yaml:"maxTime"`

	// NormalizeObs selects whether the observation, achieved goal, and
	// desired goal are normalized into a fixed range. Default false.
	NormalizeObs bool `yaml:"normalizeObs"`

	// WeightTarget scales the distance-to-goal penalty of the dense
	// reward. Required for dense rewards.
	WeightTarget float64 `yaml:"wTargetPos"`

	// WeightControl scales the torque-norm penalty. Required.
	WeightControl float64 `yaml:"wControlReg"`

	// WeightTruncation scales the per-step bonus for not having
	// violated safety limits. The weight multiplies an alive flag
	// which is 1 on non-truncated steps, so it rewards staying within
	// bounds rather than penalizing leaving them. Required for dense
	// rewards.
	WeightTruncation float64 `yaml:"wPenalizationTruncation"`

	// WeightTargetReached is the sparse-reward payout for being within
	// the success threshold of the goal. Default 5.
	WeightTargetReached float64 `yaml:"wTargetReached"`

	// RestPoseWeights maps controlled joint names to the diagonal
	// weights of the rest-pose quadratic penalty. Joints not listed
	// have zero weight. Default nil (no rest-pose penalty).
	RestPoseWeights map[string]float64 `yaml:"wJointsToInit"`

	// RewardType selects the reward policy. Default DenseReward.
	RewardType RewardType `yaml:"rewardType"`

	// ThresholdSuccess is the goal distance in meters under which a
	// step counts as on-target. Default 0.05.
	ThresholdSuccess float64 `yaml:"thresholdSuccess"`

	// LimitPosScale scales the model's joint position limits before
	// they are used as safety-truncation bounds. Default 10.
	LimitPosScale float64 `yaml:"limitPosScale"`

	// LimitVelScale scales the model's joint velocity limits before
	// they are used as safety-truncation bounds. Default 30.
	LimitVelScale float64 `yaml:"limitVelScale"`

	// TorqueScaleCoeff scales the model's effort limits to produce the
	// per-joint torque scale applied to normalized actions. Default 1.
	TorqueScaleCoeff float64 `yaml:"torqueScaleCoeff"`

	// LowerLimitCoM and UpperLimitCoM bound the balance box: the
	// episode is truncated when the center of mass leaves
	// [LowerLimitCoM, UpperLimitCoM] on any axis. Defaults
	// [-0.5, -0.5, 0.9] and [0.5, 0.5, 1.5].
	LowerLimitCoM []float64 `yaml:"lowerLimitPos"`
	UpperLimitCoM []float64 `yaml:"upperLimitPos"`
}

// DefaultConfig returns a Config with every defaulted field filled in.
// Required fields are left zero and must be set before use.
func DefaultConfig() Config {
	return Config{
		WeightTargetReached: 5,
		RewardType:          DenseReward,
		ThresholdSuccess:    0.05,
		LimitPosScale:       10,
		LimitVelScale:       30,
		TorqueScaleCoeff:    1,
		LowerLimitCoM:       []float64{-0.5, -0.5, 0.9},
		UpperLimitCoM:       []float64{0.5, 0.5, 1.5},
	}
}

// LoadConfig reads a YAML Config from path. Absent keys keep their
// defaults; the result is validated eagerly.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("loadConfig: %v", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Config{}, fmt.Errorf("loadConfig: %v", err)
	}
	if err := config.Validate(); err != nil {
		return Config{}, fmt.Errorf("loadConfig: %v", err)
	}
	return config, nil
}

// Validate eagerly checks the configuration. Environments refuse to
// construct from an invalid Config.
func (c *Config) Validate() error {
	if c.TimeStepSimulation <= 0 {
		return fmt.Errorf("config: timeStepSimulation must be positive, "+
			"got %v", c.TimeStepSimulation)
	}
	if c.NumSimulationSteps < 1 {
		return fmt.Errorf("config: numSimulationSteps must be at least 1, "+
			"got %v", c.NumSimulationSteps)
	}
	if c.MaxTime <= 0 {
		return fmt.Errorf("config: maxTime must be positive, got %v",
			c.MaxTime)
	}
	if c.MaxStep() < 1 {
		return fmt.Errorf("config: maxTime %v allows no control ticks at "+
			"timestep %v with %v sub-ticks", c.MaxTime, c.TimeStepSimulation,
			c.NumSimulationSteps)
	}
	if c.RewardType != DenseReward && c.RewardType != SparseReward {
		return fmt.Errorf("config: unknown reward type %q", c.RewardType)
	}
	if c.ThresholdSuccess <= 0 {
		return fmt.Errorf("config: thresholdSuccess must be positive, "+
			"got %v", c.ThresholdSuccess)
	}
	if c.LimitPosScale <= 0 || c.LimitVelScale <= 0 {
		return fmt.Errorf("config: limit scale factors must be positive")
	}
	if c.TorqueScaleCoeff <= 0 {
		return fmt.Errorf("config: torqueScaleCoeff must be positive, "+
			"got %v", c.TorqueScaleCoeff)
	}
	if len(c.LowerLimitCoM) != 3 || len(c.UpperLimitCoM) != 3 {
		return fmt.Errorf("config: balance box limits must have 3 axes, "+
			"got %v and %v", len(c.LowerLimitCoM), len(c.UpperLimitCoM))
	}
	for i := 0; i < 3; i++ {
		if c.LowerLimitCoM[i] >= c.UpperLimitCoM[i] {
			return fmt.Errorf("config: balance box is empty on axis %v", i)
		}
	}
	for name, w := range c.RestPoseWeights {
		if w < 0 {
			return fmt.Errorf("config: rest-pose weight for joint %q is "+
				"negative", name)
		}
	}
	return nil
}

// MaxStep returns the episode step budget implied by the configured
// wall time, timestep, and sub-ticks per control tick.
func (c *Config) MaxStep() int {
	return int(math.Round(
		c.MaxTime / (c.TimeStepSimulation * float64(c.NumSimulationSteps))))
}
