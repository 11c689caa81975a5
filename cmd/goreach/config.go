package main

import (
	"fmt"
	"os"

	"gonum.org/v1/gonum/spatial/r1"
	"gopkg.in/yaml.v3"

	"github.com/samuelfneumann/goreach/environment"
	"github.com/samuelfneumann/goreach/environment/reacharm"
	"github.com/samuelfneumann/goreach/robot/planararm"
)

// fileConfig is the on-disk configuration of a full run: the
// environment, the arm backing it, and the goal-sampling box.
type fileConfig struct {
	Environment reacharm.Config  `yaml:"environment"`
	Arm         planararm.Config `yaml:"arm"`

	// RandomInit perturbs the arm's starting configuration each episode
	RandomInit bool `yaml:"randomInit"`

	// Seed seeds goal sampling, start perturbation, and the policy
	Seed uint64 `yaml:"seed"`

	// GoalLowerBound and GoalUpperBound describe the box targets are
	// sampled from
	GoalLowerBound []float64 `yaml:"goalLowerBound"`
	GoalUpperBound []float64 `yaml:"goalUpperBound"`
}

// loadFileConfig reads a fileConfig from a YAML file at path. Absent
// keys keep their defaults.
func loadFileConfig(path string) (fileConfig, error) {
	cfg := fileConfig{
		Environment:    reacharm.DefaultConfig(),
		Arm:            planararm.DefaultConfig(3),
		Seed:           1,
		GoalLowerBound: []float64{0.2, 0.0, 0.9},
		GoalUpperBound: []float64{0.8, 0.0, 1.8},
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, fmt.Errorf("loadFileConfig: %v", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fileConfig{}, fmt.Errorf("loadFileConfig: %v", err)
	}

	if len(cfg.GoalLowerBound) != 3 || len(cfg.GoalUpperBound) != 3 {
		return fileConfig{}, fmt.Errorf("loadFileConfig: goal bounds must "+
			"have 3 axes, got %v and %v", len(cfg.GoalLowerBound),
			len(cfg.GoalUpperBound))
	}
	for i := 0; i < 3; i++ {
		if cfg.GoalLowerBound[i] > cfg.GoalUpperBound[i] {
			return fileConfig{}, fmt.Errorf("loadFileConfig: goal box is "+
				"empty on axis %v", i)
		}
	}
	return cfg, nil
}

// buildEnvironment constructs the environment and its planar arm
// backend from a fileConfig. The returned model is the same instance
// the environment updates, so callers can read end-effector positions
// from it between steps.
func buildEnvironment(cfg fileConfig) (*reacharm.ReachArm, *planararm.Arm,
	error) {
	sim, err := planararm.NewSimulator(cfg.Arm,
		cfg.Environment.TimeStepSimulation, cfg.RandomInit, cfg.Seed)
	if err != nil {
		return nil, nil, fmt.Errorf("buildEnvironment: %v", err)
	}

	model, err := planararm.NewArm(cfg.Arm)
	if err != nil {
		return nil, nil, fmt.Errorf("buildEnvironment: %v", err)
	}

	bounds := make([]r1.Interval, 3)
	for i := range bounds {
		bounds[i] = r1.Interval{
			Min: cfg.GoalLowerBound[i],
			Max: cfg.GoalUpperBound[i],
		}
	}
	goals := environment.NewUniformGoalSampler(bounds, cfg.Seed+1)

	env, err := reacharm.New(cfg.Environment, sim, model, goals)
	if err != nil {
		return nil, nil, fmt.Errorf("buildEnvironment: %v", err)
	}
	return env, model, nil
}
