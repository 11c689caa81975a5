package timestep

import (
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestTerminatedTruncated(t *testing.T) {
	obs := mat.NewVecDense(1, nil)

	step := New(Mid, 0, 1, obs, 4)
	if step.Terminated() || step.Truncated() {
		t.Error("mid step counted as an episode end")
	}

	step.StepType = Last
	step.SetEnd(Timeout)
	if !step.Terminated() {
		t.Error("timeout not counted as termination")
	}
	if step.Truncated() {
		t.Error("timeout counted as truncation")
	}

	step.SetEnd(TerminalStateReached)
	if !step.Terminated() {
		t.Error("terminal state not counted as termination")
	}

	step.SetEnd(LimitsExceeded)
	if step.Terminated() {
		t.Error("limit violation counted as termination")
	}
	if !step.Truncated() {
		t.Error("limit violation not counted as truncation")
	}

	// A Last end type on a non-last step means nothing
	step.StepType = Mid
	if step.Truncated() {
		t.Error("mid step counted as truncated")
	}
}
