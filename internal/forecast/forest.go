// Package forecast trains and serves the ridership regression model.
// The model is a bootstrap-aggregated forest of variance-minimizing
// regression trees over the gold feature columns; training is deterministic
// for a fixed seed and input.
package forecast

import (
	"math"
	"math/rand"
	"sort"
)

// Feature vector layout. Order matters: training and prediction share it.
const (
	FeatStationID = iota
	FeatHour
	FeatDayOfWeek
	FeatLatitude
	FeatLongitude
	NumFeatures
)

// ForestParams configures forest fitting.
type ForestParams struct {
	// Trees is the number of bootstrap trees.
	Trees int `json:"trees"`
	// Seed makes bootstrap sampling reproducible.
	Seed int64 `json:"seed"`
	// MaxDepth bounds tree depth.
	MaxDepth int `json:"max_depth"`
	// MinLeaf is the minimum number of samples per leaf.
	MinLeaf int `json:"min_leaf"`
}

// DefaultForestParams mirror the original model configuration: 50 trees,
// seed 42.
func DefaultForestParams() ForestParams {
	return ForestParams{Trees: 50, Seed: 42, MaxDepth: 24, MinLeaf: 1}
}

// treeNode is one node of a regression tree. Leaves carry the mean target
// of their samples; internal nodes split on feature <= threshold.
type treeNode struct {
	Leaf      bool      `json:"leaf"`
	Feature   int       `json:"feature,omitempty"`
	Threshold float64   `json:"threshold,omitempty"`
	Value     float64   `json:"value,omitempty"`
	Left      *treeNode `json:"left,omitempty"`
	Right     *treeNode `json:"right,omitempty"`
}

// RegressionForest is a fitted model. It is JSON-serializable so the whole
// model can be persisted as an artifact.
type RegressionForest struct {
	Params ForestParams `json:"params"`
	Roots  []*treeNode  `json:"roots"`
}

// FitForest fits a forest on X (rows of NumFeatures) and targets y.
// Each tree trains on a bootstrap sample drawn from a per-tree seeded RNG,
// so a fixed (X, y, params) always produces the same model.
func FitForest(X [][]float64, y []float64, params ForestParams) *RegressionForest {
	forest := &RegressionForest{Params: params}
	n := len(X)
	for t := 0; t < params.Trees; t++ {
		rng := rand.New(rand.NewSource(params.Seed + int64(t)))
		idx := make([]int, n)
		for i := range idx {
			idx[i] = rng.Intn(n)
		}
		forest.Roots = append(forest.Roots, buildTree(X, y, idx, 0, params))
	}
	return forest
}

// buildTree grows one regression tree over the sample indices idx.
func buildTree(X [][]float64, y []float64, idx []int, depth int, params ForestParams) *treeNode {
	mean, sse := meanAndSSE(y, idx)
	if depth >= params.MaxDepth || len(idx) < 2*params.MinLeaf || sse == 0 {
		return &treeNode{Leaf: true, Value: mean}
	}

	feature, threshold, ok := bestSplit(X, y, idx, params.MinLeaf)
	if !ok {
		return &treeNode{Leaf: true, Value: mean}
	}

	var left, right []int
	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) < params.MinLeaf || len(right) < params.MinLeaf {
		return &treeNode{Leaf: true, Value: mean}
	}

	return &treeNode{
		Feature:   feature,
		Threshold: threshold,
		Left:      buildTree(X, y, left, depth+1, params),
		Right:     buildTree(X, y, right, depth+1, params),
	}
}

// bestSplit scans every feature for the split minimizing the summed
// within-node squared error, using prefix sums over the sorted sample.
func bestSplit(X [][]float64, y []float64, idx []int, minLeaf int) (int, float64, bool) {
	n := len(idx)
	bestScore := math.Inf(1)
	bestFeature, bestThreshold := -1, 0.0

	order := make([]int, n)
	for f := 0; f < NumFeatures; f++ {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool { return X[order[a]][f] < X[order[b]][f] })

		sum, sumSq := 0.0, 0.0
		total, totalSq := 0.0, 0.0
		for _, i := range order {
			total += y[i]
			totalSq += y[i] * y[i]
		}

		for k := 0; k < n-1; k++ {
			yi := y[order[k]]
			sum += yi
			sumSq += yi * yi

			left := k + 1
			right := n - left
			if left < minLeaf || right < minLeaf {
				continue
			}
			// No split between equal feature values.
			if X[order[k]][f] == X[order[k+1]][f] {
				continue
			}

			leftSSE := sumSq - sum*sum/float64(left)
			rSum := total - sum
			rightSSE := (totalSq - sumSq) - rSum*rSum/float64(right)
			score := leftSSE + rightSSE
			if score < bestScore {
				bestScore = score
				bestFeature = f
				bestThreshold = (X[order[k]][f] + X[order[k+1]][f]) / 2
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, false
	}
	return bestFeature, bestThreshold, true
}

// meanAndSSE computes the mean target and the sum of squared errors around
// it for the sample indices.
func meanAndSSE(y []float64, idx []int) (float64, float64) {
	if len(idx) == 0 {
		return 0, 0
	}
	sum := 0.0
	for _, i := range idx {
		sum += y[i]
	}
	mean := sum / float64(len(idx))
	sse := 0.0
	for _, i := range idx {
		d := y[i] - mean
		sse += d * d
	}
	return mean, sse
}

// Predict returns the forest prediction for one feature vector, clamped at
// zero: ridership is a non-negative quantity.
func (f *RegressionForest) Predict(x []float64) float64 {
	sum := 0.0
	for _, root := range f.Roots {
		node := root
		for !node.Leaf {
			if x[node.Feature] <= node.Threshold {
				node = node.Left
			} else {
				node = node.Right
			}
		}
		sum += node.Value
	}
	pred := sum / float64(len(f.Roots))
	if pred < 0 {
		return 0
	}
	return pred
}

// PredictBatch predicts one value per input row, order-preserving: the i-th
// output corresponds to the i-th input row.
func (f *RegressionForest) PredictBatch(rows [][]float64) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = f.Predict(row)
	}
	return out
}
