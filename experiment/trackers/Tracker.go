// Package trackers implements tracking and saving of data generated
// while running episodes in an environment
package trackers

import (
	"github.com/samuelfneumann/goreach/environment"
	ts "github.com/samuelfneumann/goreach/timestep"
)

// Tracker tracks data generated during an experiment, caching it in
// RAM to be later saved to disk with Save. Experiments send every
// timestep to each registered Tracker together with the environment's
// info side-channel; the Tracker decides what to cache.
type Tracker interface {
	Track(step ts.TimeStep, info environment.Info)
	Save() error
}
