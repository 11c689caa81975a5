// Package her implements a goal-relabelling experience replay buffer
// for goal-conditioned environments (hindsight experience replay).
//
// The buffer stores goal-conditioned transitions in flat caches.
// When a batch is sampled, a configurable fraction of the batch has
// its desired goal replaced by the goal its episode finally achieved,
// and its reward recomputed through the environment's pure reward
// policy. Failed episodes thereby still produce useful learning
// signal: the arm did reach somewhere, just not where it was asked to.
package her

import (
	"fmt"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/goreach/environment"
	"github.com/samuelfneumann/goreach/environment/reacharm"
)

// Transition is one goal-conditioned environment step. TorqueNorm,
// RestPoseCost, and Alive are carried along so that rewards can be
// recomputed exactly when the desired goal is substituted; relabelling
// changes only the goal-distance feature.
type Transition struct {
	Observation     environment.GoalObservation
	Action          *mat.VecDense
	Reward          float64
	NextObservation environment.GoalObservation
	TorqueNorm      float64
	RestPoseCost    float64
	Alive           bool
	Last            bool
}

// Batch is a sampled minibatch laid out as one row per transition
type Batch struct {
	Observations     *mat.Dense
	Actions          *mat.Dense
	DesiredGoals     *mat.Dense
	Rewards          *mat.VecDense
	NextObservations *mat.Dense
}

// Buffer is a fixed-capacity FIFO replay buffer with final-goal
// relabelling. Buffers are not safe for concurrent use.
type Buffer struct {
	capacity int
	obsSize  int
	goalSize int
	actSize  int

	// flat caches, one row of size *Size per transition
	obsCache     []float64
	actionCache  []float64
	achievedNext []float64
	desiredCache []float64
	nextObsCache []float64
	featCache    []float64 // reward feature rows (reacharm layout)
	rewardCache  []float64

	// finalGoal holds, per transition, the goal finally achieved by
	// the episode the transition belongs to
	finalGoal []float64

	insertAt int
	size     int

	policy      reacharm.RewardPolicy
	relabelFrac float64
	rng         *rand.Rand
}

// New returns a new HER Buffer. The relabelFrac is the fraction of
// each sampled batch whose desired goal is replaced by its episode's
// final achieved goal; rewards for relabelled rows are recomputed with
// the given policy.
func New(capacity, obsSize, goalSize, actSize int,
	policy reacharm.RewardPolicy, relabelFrac float64,
	seed uint64) (*Buffer, error) {
	if capacity < 1 {
		return nil, fmt.Errorf("newBuffer: capacity must be positive, "+
			"got %v", capacity)
	}
	if obsSize < 1 || goalSize < 1 || actSize < 1 {
		return nil, fmt.Errorf("newBuffer: observation, goal, and action " +
			"sizes must be positive")
	}
	if relabelFrac < 0 || relabelFrac > 1 {
		return nil, fmt.Errorf("newBuffer: relabel fraction must be in "+
			"[0, 1], got %v", relabelFrac)
	}
	if policy == nil {
		return nil, fmt.Errorf("newBuffer: reward policy is required")
	}

	return &Buffer{
		capacity:     capacity,
		obsSize:      obsSize,
		goalSize:     goalSize,
		actSize:      actSize,
		obsCache:     make([]float64, capacity*obsSize),
		actionCache:  make([]float64, capacity*actSize),
		achievedNext: make([]float64, capacity*goalSize),
		desiredCache: make([]float64, capacity*goalSize),
		nextObsCache: make([]float64, capacity*obsSize),
		featCache:    make([]float64, capacity*reacharm.NumFeatures),
		rewardCache:  make([]float64, capacity),
		finalGoal:    make([]float64, capacity*goalSize),
		policy:       policy,
		relabelFrac:  relabelFrac,
		rng:          rand.New(rand.NewSource(seed)),
	}, nil
}

// AddEpisode appends a full episode of transitions to the buffer and
// records the episode's final achieved goal against each of them.
// Episodes longer than the buffer's capacity are rejected.
func (b *Buffer) AddEpisode(episode []Transition) error {
	if len(episode) == 0 {
		return fmt.Errorf("addEpisode: empty episode")
	}
	if len(episode) > b.capacity {
		return fmt.Errorf("addEpisode: episode of %v transitions exceeds "+
			"buffer capacity %v", len(episode), b.capacity)
	}

	final := episode[len(episode)-1].NextObservation.AchievedGoal
	if final.Len() != b.goalSize {
		return fmt.Errorf("addEpisode: achieved goal has length %v, "+
			"expected %v", final.Len(), b.goalSize)
	}

	for i := range episode {
		if err := b.add(&episode[i], final); err != nil {
			return fmt.Errorf("addEpisode: transition %v: %v", i, err)
		}
	}
	return nil
}

// add stores one transition at the insertion point, overwriting the
// oldest transition when the buffer is full.
func (b *Buffer) add(t *Transition, final *mat.VecDense) error {
	if t.Observation.Observation.Len() != b.obsSize ||
		t.NextObservation.Observation.Len() != b.obsSize {
		return fmt.Errorf("observation has wrong length")
	}
	if t.Action.Len() != b.actSize {
		return fmt.Errorf("action has length %v, expected %v",
			t.Action.Len(), b.actSize)
	}
	if t.Observation.DesiredGoal.Len() != b.goalSize ||
		t.NextObservation.AchievedGoal.Len() != b.goalSize {
		return fmt.Errorf("goal has wrong length")
	}

	at := b.insertAt
	copy(b.obsCache[at*b.obsSize:], t.Observation.Observation.RawVector().Data)
	copy(b.nextObsCache[at*b.obsSize:],
		t.NextObservation.Observation.RawVector().Data)
	copy(b.actionCache[at*b.actSize:], t.Action.RawVector().Data)
	copy(b.desiredCache[at*b.goalSize:],
		t.Observation.DesiredGoal.RawVector().Data)
	copy(b.achievedNext[at*b.goalSize:],
		t.NextObservation.AchievedGoal.RawVector().Data)
	copy(b.finalGoal[at*b.goalSize:], final.RawVector().Data)

	features := reacharm.NewFeatureRow(t.TorqueNorm, t.RestPoseCost,
		t.Alive, goalDistance(t.NextObservation.AchievedGoal,
			t.Observation.DesiredGoal))
	copy(b.featCache[at*reacharm.NumFeatures:], features.RawVector().Data)
	b.rewardCache[at] = t.Reward

	b.insertAt = (b.insertAt + 1) % b.capacity
	if b.size < b.capacity {
		b.size++
	}
	return nil
}

// Size returns the number of transitions currently stored
func (b *Buffer) Size() int {
	return b.size
}

// Sample draws a minibatch uniformly at random. A relabelFrac fraction
// of the rows (rounded down) have their desired goal replaced by the
// final achieved goal of their episode and their reward recomputed
// through the reward policy; the rest keep their original goal and
// reward.
func (b *Buffer) Sample(batchSize int) (Batch, error) {
	if b.size == 0 {
		return Batch{}, fmt.Errorf("sample: buffer is empty")
	}
	if batchSize < 1 {
		return Batch{}, fmt.Errorf("sample: batch size must be positive, "+
			"got %v", batchSize)
	}

	observations := mat.NewDense(batchSize, b.obsSize, nil)
	actions := mat.NewDense(batchSize, b.actSize, nil)
	desired := mat.NewDense(batchSize, b.goalSize, nil)
	nextObs := mat.NewDense(batchSize, b.obsSize, nil)
	features := mat.NewDense(batchSize, reacharm.NumFeatures, nil)
	rewards := mat.NewVecDense(batchSize, nil)

	relabelled := int(float64(batchSize) * b.relabelFrac)

	for row := 0; row < batchSize; row++ {
		at := b.rng.Intn(b.size)

		observations.SetRow(row, b.obsCache[at*b.obsSize:(at+1)*b.obsSize])
		actions.SetRow(row, b.actionCache[at*b.actSize:(at+1)*b.actSize])
		nextObs.SetRow(row, b.nextObsCache[at*b.obsSize:(at+1)*b.obsSize])
		features.SetRow(row,
			b.featCache[at*reacharm.NumFeatures:(at+1)*reacharm.NumFeatures])

		if row < relabelled {
			// Substitute the episode's final achieved goal and redo
			// the goal-distance feature against it
			goal := b.finalGoal[at*b.goalSize : (at+1)*b.goalSize]
			desired.SetRow(row, goal)

			achieved := b.achievedNext[at*b.goalSize : (at+1)*b.goalSize]
			features.Set(row, reacharm.FeatureGoalDistance,
				goalDistance(mat.NewVecDense(b.goalSize, achieved),
					mat.NewVecDense(b.goalSize, goal)))
		} else {
			desired.SetRow(row,
				b.desiredCache[at*b.goalSize:(at+1)*b.goalSize])
			rewards.SetVec(row, b.rewardCache[at])
		}
	}

	if relabelled > 0 {
		// Recompute rewards for the relabelled rows in one batched call
		relabelFeatures := features.Slice(0, relabelled, 0,
			reacharm.NumFeatures)
		newRewards := b.policy.RewardBatch(relabelFeatures)
		for row := 0; row < relabelled; row++ {
			rewards.SetVec(row, newRewards.AtVec(row))
		}
	}

	return Batch{
		Observations:     observations,
		Actions:          actions,
		DesiredGoals:     desired,
		Rewards:          rewards,
		NextObservations: nextObs,
	}, nil
}

// goalDistance returns the Euclidean distance between an achieved and
// a desired goal
func goalDistance(achieved, desired mat.Vector) float64 {
	diff := mat.NewVecDense(achieved.Len(), nil)
	diff.SubVec(achieved, desired)
	return mat.Norm(diff, 2)
}
