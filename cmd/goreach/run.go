package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/samuelfneumann/goreach/environment/reacharm"
	"github.com/samuelfneumann/goreach/experiment"
	"github.com/samuelfneumann/goreach/experiment/trackers"
	"github.com/samuelfneumann/goreach/render"
	"github.com/samuelfneumann/goreach/robot/planararm"
)

// successWindow is the number of recent episodes the reported success
// rate averages over
const successWindow = 100

func newRunCommand() *cobra.Command {
	var configPath string
	var episodes int
	var saveDir string
	var renderPath string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Collect episodes with a uniform random policy",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadFileConfig(configPath)
			if err != nil {
				return err
			}

			env, model, err := buildEnvironment(cfg)
			if err != nil {
				return err
			}
			defer env.Close()

			policy := experiment.NewUniformRandom(env.ActionSpec(),
				cfg.Seed+2)

			returns := trackers.NewReturn(
				filepath.Join(saveDir, "returns.bin"))
			successes := trackers.NewSuccessRate(
				filepath.Join(saveDir, "successes.bin"), successWindow)

			exp := experiment.NewOnline(env, policy, episodes, returns,
				successes)
			exp.ShowProgress()
			if err := exp.Run(); err != nil {
				return err
			}

			if saveDir != "" {
				if err := os.MkdirAll(saveDir, 0755); err != nil {
					return fmt.Errorf("run: %v", err)
				}
				if err := exp.Save(); err != nil {
					return err
				}
			}

			if data := returns.Returns(); len(data) > 1 {
				fmt.Println(asciigraph.Plot(data,
					asciigraph.Height(12),
					asciigraph.Caption("episodic return")))
			}
			fmt.Printf("episodes: %v\tsuccess rate (last %v): %.3f\n",
				successes.Episodes(), successWindow, successes.Rate())

			if renderPath != "" {
				if err := renderEpisode(env, model, policy,
					renderPath); err != nil {
					return fmt.Errorf("run: %v", err)
				}
				fmt.Printf("rendered one episode to %v\n", renderPath)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "",
		"path to the YAML configuration file")
	cmd.MarkFlagRequired("config")
	cmd.Flags().IntVarP(&episodes, "episodes", "e", 100,
		"number of episodes to run")
	cmd.Flags().StringVar(&saveDir, "save-dir", "",
		"directory to save tracked data to")
	cmd.Flags().StringVar(&renderPath, "render", "",
		"render one extra episode's trajectory to this PNG file")
	return cmd
}

// renderEpisode runs one extra episode and renders the end-effector
// trajectory around the sampled target to a PNG file.
func renderEpisode(env *reacharm.ReachArm, model *planararm.Arm,
	policy experiment.Policy, path string) error {
	obs, _, err := env.Reset(nil)
	if err != nil {
		return err
	}

	traj, err := render.NewTrajectory(env.Target())
	if err != nil {
		return err
	}
	if err := traj.Add(model.EndEffectorPosition()); err != nil {
		return err
	}

	for {
		action := policy.SelectAction(obs)
		next, _, terminated, truncated, _, err := env.Step(action)
		if err != nil {
			return err
		}
		if err := traj.Add(model.EndEffectorPosition()); err != nil {
			return err
		}
		if terminated || truncated {
			break
		}
		obs = next
	}
	return traj.SavePNG(path, 400)
}
