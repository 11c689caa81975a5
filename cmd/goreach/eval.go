package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/mat"

	env "github.com/samuelfneumann/goreach/environment"
	"github.com/samuelfneumann/goreach/environment/reacharm"
	"github.com/samuelfneumann/goreach/experiment"
)

func newEvalCommand() *cobra.Command {
	var configPath string
	var episodes int
	var targetArgs []string

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Score the random policy on fixed target positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			targets := make([]*mat.VecDense, len(targetArgs))
			for i, arg := range targetArgs {
				target, err := parseTarget(arg)
				if err != nil {
					return err
				}
				targets[i] = target
			}

			cfg, err := loadFileConfig(configPath)
			if err != nil {
				return err
			}
			environment, _, err := buildEnvironment(cfg)
			if err != nil {
				return err
			}
			defer environment.Close()

			policy := experiment.NewUniformRandom(environment.ActionSpec(),
				cfg.Seed+2)

			for _, target := range targets {
				var sum float64
				count := 0
				for i := 0; i < episodes; i++ {
					ret, success, err := evalEpisode(environment, policy,
						target)
					if err != nil {
						return err
					}
					sum += ret
					if success {
						count++
					}
				}
				fmt.Printf("target (%.2f, %.2f, %.2f): mean return %.3f, "+
					"success %v/%v\n", target.AtVec(0), target.AtVec(1),
					target.AtVec(2), sum/float64(episodes), count, episodes)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "",
		"path to the YAML configuration file")
	cmd.MarkFlagRequired("config")
	cmd.Flags().IntVarP(&episodes, "episodes", "e", 10,
		"number of episodes per target")
	cmd.Flags().StringArrayVarP(&targetArgs, "target", "t", nil,
		"target position as x,y,z (repeatable)")
	cmd.MarkFlagRequired("target")
	return cmd
}

// evalEpisode runs a single episode against a fixed target, returning
// the episodic return and whether the episode ended successfully
func evalEpisode(environment *reacharm.ReachArm, policy experiment.Policy,
	target *mat.VecDense) (float64, bool, error) {
	obs, _, err := environment.Reset(&env.ResetOptions{Target: target})
	if err != nil {
		return 0, false, err
	}

	var episodeReturn float64
	for {
		action := policy.SelectAction(obs)
		next, reward, terminated, truncated, info, err :=
			environment.Step(action)
		if err != nil {
			return 0, false, err
		}
		episodeReturn += reward

		if terminated || truncated {
			return episodeReturn, info.Success, nil
		}
		obs = next
	}
}

// parseTarget parses a comma-separated x,y,z triple
func parseTarget(s string) (*mat.VecDense, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return nil, fmt.Errorf("parseTarget: %q is not an x,y,z triple", s)
	}

	values := make([]float64, 3)
	for i, part := range parts {
		value, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, fmt.Errorf("parseTarget: %v", err)
		}
		values[i] = value
	}
	return mat.NewVecDense(3, values), nil
}
