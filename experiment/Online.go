// Package experiment implements functionality for running episodes of
// an environment and tracking the data they generate
package experiment

import (
	"fmt"

	"github.com/samuelfneumann/goreach/environment"
	"github.com/samuelfneumann/goreach/experiment/trackers"
	ts "github.com/samuelfneumann/goreach/timestep"
	"github.com/samuelfneumann/goreach/utils/progressbar"
)

// Online runs a policy in an environment for a fixed number of
// episodes, sending every timestep to its registered Trackers.
type Online struct {
	env      environment.GoalEnvironment
	policy   Policy
	episodes int
	trackers []trackers.Tracker
	progress bool
}

// NewOnline creates and returns a new online experiment on a given
// environment with a given policy, running for episodes episodes. The
// t parameter lists the Trackers which determine what data is saved.
func NewOnline(env environment.GoalEnvironment, policy Policy,
	episodes int, t ...trackers.Tracker) *Online {
	return &Online{
		env:      env,
		policy:   policy,
		episodes: episodes,
		trackers: t,
	}
}

// Register registers a Tracker with the (possibly already running)
// experiment
func (o *Online) Register(t trackers.Tracker) {
	o.trackers = append(o.trackers, t)
}

// ShowProgress makes Run display a progress bar
func (o *Online) ShowProgress() {
	o.progress = true
}

// RunEpisode runs a single episode, returning the episodic return and
// whether the episode ended in success.
func (o *Online) RunEpisode() (float64, bool, error) {
	obs, info, err := o.env.Reset(nil)
	if err != nil {
		return 0, false, fmt.Errorf("runEpisode: %v", err)
	}
	o.track(ts.New(ts.First, 0, 1, obs.Observation, 0), info)

	var episodeReturn float64
	number := 0
	for {
		number++

		action := o.policy.SelectAction(obs)
		next, reward, terminated, truncated, info, err := o.env.Step(action)
		if err != nil {
			return 0, false, fmt.Errorf("runEpisode: %v", err)
		}
		episodeReturn += reward

		step := ts.New(ts.Mid, reward, 1, next.Observation, number)
		switch {
		case truncated:
			step.StepType = ts.Last
			step.SetEnd(ts.LimitsExceeded)
		case terminated:
			step.StepType = ts.Last
			step.SetEnd(ts.TerminalStateReached)
		}
		o.track(step, info)

		if terminated || truncated {
			return episodeReturn, info.Success, nil
		}
		obs = next
	}
}

// Run runs the entire experiment for all episodes
func (o *Online) Run() error {
	var bar *progressbar.ProgressBar
	if o.progress {
		bar = progressbar.New(50, o.episodes)
		bar.Display()
	}

	for i := 0; i < o.episodes; i++ {
		if _, _, err := o.RunEpisode(); err != nil {
			return fmt.Errorf("run: episode %v: %v", i, err)
		}
		if bar != nil {
			bar.Increment()
			bar.Display()
		}
	}
	return nil
}

// Save saves all the data cached by the Trackers to disk
func (o *Online) Save() error {
	for _, t := range o.trackers {
		if err := t.Save(); err != nil {
			return fmt.Errorf("save: %v", err)
		}
	}
	return nil
}

// track sends the current timestep to each Tracker
func (o *Online) track(step ts.TimeStep, info environment.Info) {
	for _, t := range o.trackers {
		t.Track(step, info)
	}
}
