package trackers

import (
	"encoding/gob"
	"fmt"
	"os"

	"github.com/samuelfneumann/goreach/environment"
	ts "github.com/samuelfneumann/goreach/timestep"
)

// SuccessRate tracks whether episodes ended successfully and reports
// the success rate over a sliding window of recent episodes. The
// success flag is read from the environment's info side-channel on
// terminal steps, where it is defined.
type SuccessRate struct {
	window    int
	successes []bool
	filename  string
}

// NewSuccessRate creates and returns a new *SuccessRate Tracker. The
// window argument determines how many recent episodes Rate averages
// over.
func NewSuccessRate(filename string, window int) *SuccessRate {
	if window < 1 {
		window = 100
	}
	return &SuccessRate{window: window, filename: filename}
}

// Track records the success flag of terminal timesteps
func (s *SuccessRate) Track(step ts.TimeStep, info environment.Info) {
	if !step.Last() {
		return
	}
	s.successes = append(s.successes, info.Success)
}

// Episodes returns the number of finished episodes tracked so far
func (s *SuccessRate) Episodes() int {
	return len(s.successes)
}

// Rate returns the fraction of successful episodes over the most
// recent window of finished episodes
func (s *SuccessRate) Rate() float64 {
	if len(s.successes) == 0 {
		return 0
	}

	start := 0
	if len(s.successes) > s.window {
		start = len(s.successes) - s.window
	}

	count := 0
	for _, success := range s.successes[start:] {
		if success {
			count++
		}
	}
	return float64(count) / float64(len(s.successes)-start)
}

// Save saves the per-episode success flags to disk
func (s *SuccessRate) Save() error {
	file, err := os.Create(s.filename)
	if err != nil {
		return fmt.Errorf("save: could not open save file: %v", err)
	}
	defer file.Close()

	en := gob.NewEncoder(file)
	if err := en.Encode(s.successes); err != nil {
		return fmt.Errorf("save: could not encode success data: %v", err)
	}
	return nil
}
