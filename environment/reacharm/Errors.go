package reacharm

import "errors"

var (
	// ErrInvalidState is returned when the environment is asked to do
	// something its episode state machine does not allow, such as
	// stepping before the first reset or stepping a finished episode.
	ErrInvalidState = errors.New("environment is not in a valid state " +
		"for this call")

	// ErrInvalidArgument is returned when a caller-supplied vector has
	// the wrong dimensionality. The environment fails before any
	// simulator interaction.
	ErrInvalidArgument = errors.New("invalid argument")
)
