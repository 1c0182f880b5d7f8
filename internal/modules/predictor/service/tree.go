package service

import (
	"slices"

	"github.com/pkg/errors"
)

// TreeOptions: ограничения роста дерева.
type TreeOptions struct {
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
}

func (o TreeOptions) Validate() error {
	if o.MaxDepth < 1 {
		return errors.Errorf("tree max_depth must be >= 1, got %d", o.MaxDepth)
	}
	if o.MinSamplesSplit < 2 {
		return errors.Errorf("tree min_samples_split must be >= 2, got %d", o.MinSamplesSplit)
	}
	if o.MinSamplesLeaf < 1 {
		return errors.Errorf("tree min_samples_leaf must be >= 1, got %d", o.MinSamplesLeaf)
	}
	return nil
}

var ErrNotFitted = errors.New("classifier is not fitted")

type treeNode struct {
	leaf      bool
	feature   int
	threshold float64
	left      *treeNode
	right     *treeNode
	proba     [2]float64
}

// DecisionTree: бинарный CART по Джини. При равном качестве разбиения берётся
// первый признак и первый порог, так что обучение детерминировано.
type DecisionTree struct {
	opts TreeOptions
	dim  int
	root *treeNode
}

func NewDecisionTree(opts TreeOptions) *DecisionTree {
	return &DecisionTree{opts: opts}
}

func (t *DecisionTree) Fit(x [][]float64, y []int) error {
	if len(x) == 0 {
		return errors.New("tree: no samples")
	}
	if len(x) != len(y) {
		return errors.Errorf("tree: %d rows but %d labels", len(x), len(y))
	}
	dim := len(x[0])
	for i, row := range x {
		if len(row) != dim {
			return errors.Errorf("tree: row %d has %d columns, want %d", i, len(row), dim)
		}
		if y[i] != 0 && y[i] != 1 {
			return errors.Errorf("tree: label %d at row %d, want 0 or 1", y[i], i)
		}
	}

	idx := make([]int, len(x))
	for i := range idx {
		idx[i] = i
	}
	t.dim = dim
	t.root = t.build(x, y, idx, 0)
	return nil
}

func (t *DecisionTree) PredictProba(row []float64) ([2]float64, error) {
	if t.root == nil {
		return [2]float64{}, ErrNotFitted
	}
	if len(row) != t.dim {
		return [2]float64{}, errors.Errorf("tree: got %d features, want %d", len(row), t.dim)
	}
	n := t.root
	for !n.leaf {
		if row[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.proba, nil
}

// Depth: фактическая глубина обученного дерева (у одиночного листа 0).
func (t *DecisionTree) Depth() int { return depth(t.root) }

func depth(n *treeNode) int {
	if n == nil || n.leaf {
		return 0
	}
	return 1 + max(depth(n.left), depth(n.right))
}

func (t *DecisionTree) build(x [][]float64, y []int, idx []int, level int) *treeNode {
	var pos int
	for _, i := range idx {
		pos += y[i]
	}
	total := len(idx)
	node := &treeNode{leaf: true}
	node.proba[1] = float64(pos) / float64(total)
	node.proba[0] = 1 - node.proba[1]

	if level >= t.opts.MaxDepth || total < t.opts.MinSamplesSplit || pos == 0 || pos == total {
		return node
	}

	feature, threshold, ok := t.bestSplit(x, y, idx, gini(pos, total))
	if !ok {
		return node
	}

	var left, right []int
	for _, i := range idx {
		if x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	node.leaf = false
	node.feature = feature
	node.threshold = threshold
	node.left = t.build(x, y, left, level+1)
	node.right = t.build(x, y, right, level+1)
	return node
}

func (t *DecisionTree) bestSplit(x [][]float64, y []int, idx []int, parent float64) (int, float64, bool) {
	total := len(idx)
	minLeaf := t.opts.MinSamplesLeaf

	bestScore := parent
	bestFeature, bestThreshold := -1, 0.0

	sorted := make([]int, total)
	for f := 0; f < t.dim; f++ {
		copy(sorted, idx)
		slices.SortStableFunc(sorted, func(a, b int) int {
			switch {
			case x[a][f] < x[b][f]:
				return -1
			case x[a][f] > x[b][f]:
				return 1
			default:
				return 0
			}
		})

		var totalPos int
		for _, i := range sorted {
			totalPos += y[i]
		}

		leftPos := 0
		for k := 0; k < total-1; k++ {
			leftPos += y[sorted[k]]
			leftN := k + 1
			rightN := total - leftN

			cur, next := x[sorted[k]][f], x[sorted[k+1]][f]
			if cur == next {
				continue
			}
			if leftN < minLeaf || rightN < minLeaf {
				continue
			}

			score := (float64(leftN)*gini(leftPos, leftN) +
				float64(rightN)*gini(totalPos-leftPos, rightN)) / float64(total)
			if score < bestScore {
				bestScore = score
				bestFeature = f
				bestThreshold = cur + (next-cur)/2
				if bestThreshold >= next {
					bestThreshold = cur
				}
			}
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

func gini(pos, total int) float64 {
	if total == 0 {
		return 0
	}
	p := float64(pos) / float64(total)
	return 1 - p*p - (1-p)*(1-p)
}
