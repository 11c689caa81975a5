package trackers

import (
	"encoding/gob"
	"math"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/goreach/environment"
	ts "github.com/samuelfneumann/goreach/timestep"
)

// trackEpisode feeds one synthetic episode with the given step rewards
// into a Tracker, marking the final step successful or not
func trackEpisode(tracker Tracker, rewards []float64, success bool) {
	obs := mat.NewVecDense(1, nil)
	tracker.Track(ts.New(ts.First, 0, 1, obs, 0), environment.Info{})

	for i, reward := range rewards {
		stepType := ts.Mid
		info := environment.Info{}
		if i == len(rewards)-1 {
			stepType = ts.Last
			info.Success = success
		}
		step := ts.New(stepType, reward, 1, obs, i+1)
		tracker.Track(step, info)
	}
}

func TestReturnTracker(t *testing.T) {
	filename := filepath.Join(t.TempDir(), "returns.bin")
	tracker := NewReturn(filename)

	trackEpisode(tracker, []float64{1, 2, 3}, false)
	trackEpisode(tracker, []float64{-0.5, -0.5}, false)

	returns := tracker.Returns()
	expected := []float64{6, -1}
	if len(returns) != len(expected) {
		t.Fatalf("got %v returns, expected %v", len(returns), len(expected))
	}
	for i, want := range expected {
		if math.Abs(returns[i]-want) > 1e-12 {
			t.Errorf("episode %v: got return %v, expected %v", i,
				returns[i], want)
		}
	}

	if err := tracker.Save(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	file, err := os.Open(filename)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer file.Close()

	var saved []float64
	if err := gob.NewDecoder(file).Decode(&saved); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(saved) != 2 || saved[0] != 6 || saved[1] != -1 {
		t.Errorf("got saved returns %v, expected [6 -1]", saved)
	}
}

func TestReturnTrackerNonSequential(t *testing.T) {
	tracker := NewReturn(filepath.Join(t.TempDir(), "returns.bin"))
	obs := mat.NewVecDense(1, nil)

	tracker.Track(ts.New(ts.First, 0, 1, obs, 0), environment.Info{})
	tracker.Track(ts.New(ts.Mid, 1, 1, obs, 1), environment.Info{})

	defer func() {
		if recover() == nil {
			t.Error("expected a panic for non-sequential timesteps")
		}
	}()
	tracker.Track(ts.New(ts.Mid, 1, 1, obs, 5), environment.Info{})
}

func TestSuccessRate(t *testing.T) {
	tracker := NewSuccessRate(filepath.Join(t.TempDir(), "successes.bin"), 4)

	if tracker.Rate() != 0 {
		t.Errorf("got rate %v with no episodes, expected 0", tracker.Rate())
	}

	// Six episodes; only the last four fall inside the window, of which
	// three succeeded
	outcomes := []bool{true, true, false, true, true, true}
	for _, success := range outcomes {
		trackEpisode(tracker, []float64{0, 0}, success)
	}

	if tracker.Episodes() != 6 {
		t.Errorf("got %v episodes, expected 6", tracker.Episodes())
	}
	if got := tracker.Rate(); math.Abs(got-0.75) > 1e-12 {
		t.Errorf("got rate %v over the window, expected 0.75", got)
	}
}
