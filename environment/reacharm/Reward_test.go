package reacharm

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

const tolerance = 1e-12

func TestDenseReward(t *testing.T) {
	// -wControl·torqueNorm - restPoseCost + wTruncation·alive -
	// wTarget·distance
	policy := NewDense(1, 0, 2)

	reward := policy.Reward(NewFeatureRow(0, 0, true, 0.1))
	if math.Abs(reward-(-0.2)) > tolerance {
		t.Errorf("got reward %v, expected -0.2", reward)
	}

	// Torque and rest-pose penalties
	reward = policy.Reward(NewFeatureRow(2, 0.5, true, 0.1))
	expected := -2.0 - 0.5 - 2*0.1
	if math.Abs(reward-expected) > tolerance {
		t.Errorf("got reward %v, expected %v", reward, expected)
	}

	// The truncation weight pays out on alive steps only
	policy = NewDense(0, 1, 0)
	if r := policy.Reward(NewFeatureRow(0, 0, true, 1)); r != 1 {
		t.Errorf("got reward %v on alive step, expected 1", r)
	}
	if r := policy.Reward(NewFeatureRow(0, 0, false, 1)); r != 0 {
		t.Errorf("got reward %v on truncated step, expected 0", r)
	}
}

func TestSparseReward(t *testing.T) {
	policy := NewSparse(1, 5, 0.05)

	// Within the threshold: payout minus the flat per-step cost
	reward := policy.Reward(NewFeatureRow(0, 0, true, 0.01))
	if math.Abs(reward-4.998) > tolerance {
		t.Errorf("got reward %v within threshold, expected 4.998", reward)
	}

	// Outside the threshold the per-step cost still applies
	reward = policy.Reward(NewFeatureRow(0, 0, true, 0.1))
	if math.Abs(reward-(-0.002)) > tolerance {
		t.Errorf("got reward %v outside threshold, expected -0.002", reward)
	}

	// The torque penalty is independent of success
	reward = policy.Reward(NewFeatureRow(3, 0, true, 0.1))
	if math.Abs(reward-(-3.002)) > tolerance {
		t.Errorf("got reward %v, expected -3.002", reward)
	}
}

func TestRewardBatchMatchesSingle(t *testing.T) {
	rows := []*mat.VecDense{
		NewFeatureRow(0, 0, true, 0.1),
		NewFeatureRow(2, 0.5, true, 0.01),
		NewFeatureRow(1, 0.25, false, 3),
		NewFeatureRow(0.5, 0, true, 0.049),
	}

	features := mat.NewDense(len(rows), NumFeatures, nil)
	for i, row := range rows {
		features.SetRow(i, row.RawVector().Data)
	}

	for name, policy := range map[string]RewardPolicy{
		"dense":  NewDense(1, 0.5, 2),
		"sparse": NewSparse(1, 5, 0.05),
	} {
		batch := policy.RewardBatch(features)
		if batch.Len() != len(rows) {
			t.Fatalf("%v: got %v batch rewards, expected %v", name,
				batch.Len(), len(rows))
		}
		for i, row := range rows {
			single := policy.Reward(row)
			if math.Abs(batch.AtVec(i)-single) > tolerance {
				t.Errorf("%v: batch row %v got %v, single call got %v",
					name, i, batch.AtVec(i), single)
			}
		}
	}
}

func TestNewRewardPolicy(t *testing.T) {
	config := validTestConfig()

	config.RewardType = DenseReward
	if _, err := NewRewardPolicy(config); err != nil {
		t.Errorf("dense: unexpected error: %v", err)
	}

	config.RewardType = SparseReward
	if _, err := NewRewardPolicy(config); err != nil {
		t.Errorf("sparse: unexpected error: %v", err)
	}

	config.RewardType = "shaped"
	if _, err := NewRewardPolicy(config); err == nil {
		t.Error("expected an error for an unknown reward type")
	}
}
