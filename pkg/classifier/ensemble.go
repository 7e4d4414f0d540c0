package classifier

import (
	"encoding/base64"
	"encoding/json"
	"math"
	"math/rand"
	"sort"
)

// ensembleParams are the fixed training hyperparameters. Shallow trees and a
// modest round count: the feature space is five ratios, anything deeper just
// memorizes the pseudo-labels.
type ensembleParams struct {
	Rounds    int
	MaxDepth  int
	Eta       float64
	Subsample float64
	Lambda    float64
}

func defaultEnsembleParams() ensembleParams {
	return ensembleParams{
		Rounds:    25,
		MaxDepth:  2,
		Eta:       0.3,
		Subsample: 0.8,
		Lambda:    1.0,
	}
}

// trainSeed fixes the subsampling PRNG so fitting the same batch twice yields
// the same model.
const trainSeed = 20240817

// treeNode is one node of a regression tree over the raw feature vector.
// Leaf values are already learning-rate scaled.
type treeNode struct {
	Leaf      bool      `json:"leaf,omitempty"`
	Value     float64   `json:"value,omitempty"`
	Feature   int       `json:"feature,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`
	Left      *treeNode `json:"left,omitempty"`
	Right     *treeNode `json:"right,omitempty"`
}

func (n *treeNode) score(x []float64) float64 {
	for !n.Leaf {
		if x[n.Feature] < n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

// ensemble is a gradient-boosted set of shallow trees with a logistic link.
type ensemble struct {
	BaseScore float64     `json:"base_score"`
	Trees     []*treeNode `json:"trees"`
}

// predict returns the drop probability for one raw feature vector.
func (e *ensemble) predict(x []float64) float64 {
	score := e.BaseScore
	for _, t := range e.Trees {
		score += t.score(x)
	}
	return sigmoid(score)
}

// encode serializes the ensemble to a text-safe payload.
func (e *ensemble) encode() (string, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// decodeEnsemble restores an encoded ensemble payload.
func decodeEnsemble(blob string) (*ensemble, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, err
	}
	var e ensemble
	if err := json.Unmarshal(raw, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// trainEnsemble fits boosted trees against binary labels using second-order
// gradients. Deterministic for a given matrix and label vector.
func trainEnsemble(matrix [][]float64, labels []int, p ensembleParams) *ensemble {
	n := len(matrix)
	e := &ensemble{BaseScore: 0}
	if n == 0 {
		return e
	}

	rng := rand.New(rand.NewSource(trainSeed))
	scores := make([]float64, n)

	grad := make([]float64, n)
	hess := make([]float64, n)

	for round := 0; round < p.Rounds; round++ {
		for i := 0; i < n; i++ {
			prob := sigmoid(scores[i])
			grad[i] = prob - float64(labels[i])
			hess[i] = prob * (1 - prob)
		}

		idx := subsampleIndices(n, p.Subsample, rng)
		tree := buildTree(matrix, grad, hess, idx, p.MaxDepth, p)
		e.Trees = append(e.Trees, tree)

		for i := 0; i < n; i++ {
			scores[i] += tree.score(matrix[i])
		}
	}
	return e
}

// subsampleIndices picks each row independently; falls back to the full set
// when the draw comes up empty.
func subsampleIndices(n int, rate float64, rng *rand.Rand) []int {
	idx := make([]int, 0, n)
	for i := 0; i < n; i++ {
		if rng.Float64() < rate {
			idx = append(idx, i)
		}
	}
	if len(idx) == 0 {
		for i := 0; i < n; i++ {
			idx = append(idx, i)
		}
	}
	return idx
}

func buildTree(matrix [][]float64, grad, hess []float64, idx []int, depth int, p ensembleParams) *treeNode {
	var gSum, hSum float64
	for _, i := range idx {
		gSum += grad[i]
		hSum += hess[i]
	}

	if depth == 0 || len(idx) < 2 {
		return leafNode(gSum, hSum, p)
	}

	feature, threshold, gain := bestSplit(matrix, grad, hess, idx, gSum, hSum, p)
	if gain <= 0 {
		return leafNode(gSum, hSum, p)
	}

	var left, right []int
	for _, i := range idx {
		if matrix[i][feature] < threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	return &treeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      buildTree(matrix, grad, hess, left, depth-1, p),
		Right:     buildTree(matrix, grad, hess, right, depth-1, p),
	}
}

func leafNode(gSum, hSum float64, p ensembleParams) *treeNode {
	return &treeNode{
		Leaf:  true,
		Value: p.Eta * (-gSum / (hSum + p.Lambda)),
	}
}

// bestSplit scans all features and candidate thresholds (midpoints of
// consecutive distinct values) for the split with the largest gain.
func bestSplit(matrix [][]float64, grad, hess []float64, idx []int, gSum, hSum float64, p ensembleParams) (int, float64, float64) {
	bestFeature := -1
	bestThreshold := 0.0
	bestGain := 0.0
	parent := gSum * gSum / (hSum + p.Lambda)

	nFeatures := len(matrix[idx[0]])
	vals := make([]float64, 0, len(idx))

	for f := 0; f < nFeatures; f++ {
		vals = vals[:0]
		for _, i := range idx {
			vals = append(vals, matrix[i][f])
		}
		sort.Float64s(vals)

		for k := 1; k < len(vals); k++ {
			if vals[k] == vals[k-1] {
				continue
			}
			threshold := (vals[k] + vals[k-1]) / 2

			var gl, hl float64
			for _, i := range idx {
				if matrix[i][f] < threshold {
					gl += grad[i]
					hl += hess[i]
				}
			}
			gr := gSum - gl
			hr := hSum - hl

			gain := 0.5 * (gl*gl/(hl+p.Lambda) + gr*gr/(hr+p.Lambda) - parent)
			if gain > bestGain {
				bestGain = gain
				bestFeature = f
				bestThreshold = threshold
			}
		}
	}
	return bestFeature, bestThreshold, bestGain
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}
