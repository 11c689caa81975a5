// Package timestep implements timesteps of the agent-environment
// interaction
package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// StepType denotes the type of step that a TimeStep can be, either the
// first environmental step, a middle step, or a last step
type StepType int

const (
	First StepType = iota
	Mid
	Last
)

func (s StepType) String() string {
	switch s {
	case First:
		return "First"
	case Last:
		return "Last"
	default:
		return "Mid"
	}
}

// EndType denotes the reason an episode ended. Episodes can end
// normally, because a terminal state was reached or because the
// episode's step budget ran out, or abnormally, because the underlying
// system left its safety limits. Steps in unfinished episodes have
// EndType Nil.
type EndType int

const (
	// Nil indicates that the episode has not yet ended
	Nil EndType = iota

	// TerminalStateReached indicates that the episode ended in a
	// terminal state of the environment
	TerminalStateReached

	// Timeout indicates that the episode ended because the step limit
	// was reached
	Timeout

	// LimitsExceeded indicates that the episode was cut short because
	// the underlying system violated a safety limit. Episodes ending
	// with LimitsExceeded are truncated, not terminated.
	LimitsExceeded
)

func (e EndType) String() string {
	switch e {
	case TerminalStateReached:
		return "TerminalStateReached"
	case Timeout:
		return "Timeout"
	case LimitsExceeded:
		return "LimitsExceeded"
	default:
		return "Nil"
	}
}

// TimeStep packages together a single timestep in an environment
type TimeStep struct {
	StepType    StepType
	Reward      float64
	Discount    float64
	Observation mat.Vector
	Number      int
	endType     EndType
}

func New(t StepType, r, d float64, o mat.Vector, n int) TimeStep {
	return TimeStep{t, r, d, o, n, Nil}
}

// First returns whether a TimeStep is the first in an environment
func (t *TimeStep) First() bool {
	return t.StepType == First
}

// Mid returns whether a TimeStep is a middle step in an environment
func (t *TimeStep) Mid() bool {
	return t.StepType == Mid
}

// Last returns whether a TimeStep is the last step in an environment
func (t *TimeStep) Last() bool {
	return t.StepType == Last
}

// SetEnd records the reason the episode ended on a last timestep
func (t *TimeStep) SetEnd(e EndType) {
	t.endType = e
}

// End returns the reason the episode ended, or Nil if the episode is
// still in progress
func (t *TimeStep) End() EndType {
	return t.endType
}

// Terminated returns whether the episode ended normally on this
// timestep, either by reaching a terminal state or by exhausting the
// episode's step budget.
func (t *TimeStep) Terminated() bool {
	return t.Last() &&
		(t.endType == TerminalStateReached || t.endType == Timeout)
}

// Truncated returns whether the episode was cut short on this timestep
// due to a safety-limit violation.
func (t *TimeStep) Truncated() bool {
	return t.Last() && t.endType == LimitsExceeded
}

func (t TimeStep) String() string {
	str := "TimeStep | Type: %v  |  Reward:  %.2f  |  Discount: %.2f  |  " +
		"Step Number:  %v"

	return fmt.Sprintf(str, t.StepType, t.Reward, t.Discount, t.Number)
}
