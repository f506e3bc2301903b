package predictor

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Booster is one gradient-boosted regression ensemble for a single
// position: a base score plus shrunken residual trees.
type Booster struct {
	BaseScore    float64 `json:"base_score"`
	LearningRate float64 `json:"learning_rate"`
	Trees        []*Node `json:"trees"`
}

// Eval sums the base score and every tree's contribution.
func (b *Booster) Eval(x []float64) float64 {
	out := b.BaseScore
	for _, t := range b.Trees {
		out += b.LearningRate * t.Eval(x)
	}
	return out
}

// Sample pairs a feature vector with the points the player went on to score.
type Sample struct {
	Vector []float64
	Actual float64
}

// TrainParams controls boosting. The zero value is not usable; start from
// DefaultTrainParams.
type TrainParams struct {
	MaxTrees           int
	MaxDepth           int
	MinSamplesLeaf     int
	LearningRate       float64
	ValidationFraction float64
	Patience           int
}

func DefaultTrainParams() TrainParams {
	return TrainParams{
		MaxTrees:           200,
		MaxDepth:           3,
		MinSamplesLeaf:     5,
		LearningRate:       0.1,
		ValidationFraction: 0.2,
		Patience:           15,
	}
}

// fitBooster trains on a chronological sample list, holding out the tail as
// a validation fold and stopping early when validation error stalls. It
// returns the booster truncated to its best round plus that round's RMSE.
func fitBooster(samples []Sample, p TrainParams) (*Booster, float64, error) {
	if len(samples) < 4*p.MinSamplesLeaf {
		return nil, 0, fmt.Errorf("need at least %d samples, got %d", 4*p.MinSamplesLeaf, len(samples))
	}

	holdout := int(float64(len(samples)) * p.ValidationFraction)
	if holdout < 1 {
		holdout = 1
	}
	train := samples[:len(samples)-holdout]
	val := samples[len(samples)-holdout:]

	xs := make([][]float64, len(train))
	ys := make([]float64, len(train))
	for i, s := range train {
		xs[i] = s.Vector
		ys[i] = s.Actual
	}

	b := &Booster{
		BaseScore:    stat.Mean(ys, nil),
		LearningRate: p.LearningRate,
	}

	preds := make([]float64, len(train))
	for i := range preds {
		preds[i] = b.BaseScore
	}
	residuals := make([]float64, len(train))

	bestRMSE := rmseOn(b, val)
	bestRound := 0
	sinceBest := 0

	tp := treeParams{maxDepth: p.MaxDepth, minSamplesLeaf: p.MinSamplesLeaf}
	for round := 0; round < p.MaxTrees; round++ {
		for i := range train {
			residuals[i] = ys[i] - preds[i]
		}
		tree := fitTree(xs, residuals, tp)
		b.Trees = append(b.Trees, tree)
		for i := range train {
			preds[i] += p.LearningRate * tree.Eval(xs[i])
		}

		valRMSE := rmseOn(b, val)
		if valRMSE < bestRMSE-1e-9 {
			bestRMSE = valRMSE
			bestRound = len(b.Trees)
			sinceBest = 0
		} else {
			sinceBest++
			if sinceBest >= p.Patience {
				break
			}
		}
	}

	b.Trees = b.Trees[:bestRound]
	return b, bestRMSE, nil
}

func rmseOn(b *Booster, samples []Sample) float64 {
	if len(samples) == 0 {
		return 0
	}
	sum := 0.0
	for _, s := range samples {
		d := b.Eval(s.Vector) - s.Actual
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(samples)))
}
