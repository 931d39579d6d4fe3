package scheduling

import (
	"math"
	"math/rand/v2"
	"sort"
)

// forestParams controls regression forest fitting.
type forestParams struct {
	Trees    int
	MaxDepth int
	MinSplit int
	Seed     uint64
}

func defaultForestParams() forestParams {
	return forestParams{Trees: 50, MaxDepth: 5, MinSplit: 2, Seed: 42}
}

// scaler standardizes each column to zero mean and unit variance. Constant
// columns keep a scale of 1 so they pass through centered.
type scaler struct {
	mean  []float64
	scale []float64
}

func fitScaler(x [][]float64) scaler {
	if len(x) == 0 {
		return scaler{}
	}
	cols := len(x[0])
	s := scaler{mean: make([]float64, cols), scale: make([]float64, cols)}
	n := float64(len(x))

	for _, row := range x {
		for j, v := range row {
			s.mean[j] += v
		}
	}
	for j := range s.mean {
		s.mean[j] /= n
	}
	for _, row := range x {
		for j, v := range row {
			d := v - s.mean[j]
			s.scale[j] += d * d
		}
	}
	for j := range s.scale {
		s.scale[j] = math.Sqrt(s.scale[j] / n)
		if s.scale[j] == 0 {
			s.scale[j] = 1
		}
	}
	return s
}

func (s scaler) transform(row []float64) []float64 {
	out := make([]float64, len(row))
	for j, v := range row {
		if j >= len(s.mean) {
			out[j] = v
			continue
		}
		out[j] = (v - s.mean[j]) / s.scale[j]
	}
	return out
}

type treeNode struct {
	leaf      bool
	value     float64
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
}

func (n *treeNode) predict(row []float64) float64 {
	for !n.leaf {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

// regressionForest is a bagged ensemble of variance-reduction trees. Fitting
// is fully deterministic for a given seed and training set.
type regressionForest struct {
	trees []*treeNode
}

func fitForest(x [][]float64, y []float64, p forestParams) *regressionForest {
	rng := rand.New(rand.NewPCG(p.Seed, p.Seed))
	f := &regressionForest{trees: make([]*treeNode, 0, p.Trees)}
	n := len(x)

	for t := 0; t < p.Trees; t++ {
		sample := make([]int, n)
		for i := range sample {
			sample[i] = rng.IntN(n)
		}
		b := treeBuilder{x: x, y: y, maxDepth: p.MaxDepth, minSplit: p.MinSplit}
		f.trees = append(f.trees, b.build(sample, 0))
	}
	return f
}

func (f *regressionForest) predict(row []float64) float64 {
	if f == nil || len(f.trees) == 0 {
		return 0
	}
	var sum float64
	for _, t := range f.trees {
		sum += t.predict(row)
	}
	return sum / float64(len(f.trees))
}

type treeBuilder struct {
	x        [][]float64
	y        []float64
	maxDepth int
	minSplit int
}

func (b treeBuilder) build(idx []int, depth int) *treeNode {
	mean, sse := b.stats(idx)
	if depth >= b.maxDepth || len(idx) < b.minSplit || sse <= 1e-12 {
		return &treeNode{leaf: true, value: mean}
	}

	feature, threshold, ok := b.bestSplit(idx, sse)
	if !ok {
		return &treeNode{leaf: true, value: mean}
	}

	var left, right []int
	for _, i := range idx {
		if b.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	return &treeNode{
		feature:   feature,
		threshold: threshold,
		left:      b.build(left, depth+1),
		right:     b.build(right, depth+1),
	}
}

func (b treeBuilder) stats(idx []int) (mean, sse float64) {
	if len(idx) == 0 {
		return 0, 0
	}
	var sum, sq float64
	for _, i := range idx {
		sum += b.y[i]
		sq += b.y[i] * b.y[i]
	}
	n := float64(len(idx))
	mean = sum / n
	return mean, sq - sum*sum/n
}

// bestSplit scans every feature for the threshold minimizing the summed
// squared error of both children. Ties keep the first candidate found.
func (b treeBuilder) bestSplit(idx []int, parentSSE float64) (int, float64, bool) {
	n := len(idx)
	bestSSE := parentSSE - 1e-12
	bestFeature, bestThreshold, found := 0, 0.0, false

	sorted := make([]int, n)
	for feature := range b.x[idx[0]] {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(i, j int) bool {
			return b.x[sorted[i]][feature] < b.x[sorted[j]][feature]
		})

		var totalSum, totalSq float64
		for _, i := range sorted {
			totalSum += b.y[i]
			totalSq += b.y[i] * b.y[i]
		}

		var leftSum, leftSq float64
		for k := 1; k < n; k++ {
			prev := sorted[k-1]
			leftSum += b.y[prev]
			leftSq += b.y[prev] * b.y[prev]

			lo, hi := b.x[prev][feature], b.x[sorted[k]][feature]
			if lo == hi {
				continue
			}
			nl, nr := float64(k), float64(n-k)
			rightSum, rightSq := totalSum-leftSum, totalSq-leftSq
			sse := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
			if sse < bestSSE {
				bestSSE = sse
				bestFeature = feature
				bestThreshold = lo + (hi-lo)/2
				found = true
			}
		}
	}
	return bestFeature, bestThreshold, found
}
