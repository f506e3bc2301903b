package predictor

import "sort"

// Node is one node of a regression tree. Leaves carry Value; internal nodes
// route on Feature <= Threshold. Exported fields keep the tree
// JSON-serialisable for model artefacts.
type Node struct {
	Feature   int     `json:"f,omitempty"`
	Threshold float64 `json:"t,omitempty"`
	Value     float64 `json:"v"`
	Left      *Node   `json:"l,omitempty"`
	Right     *Node   `json:"r,omitempty"`
}

// Eval routes a vector down to a leaf value.
func (n *Node) Eval(x []float64) float64 {
	for n.Left != nil {
		if x[n.Feature] <= n.Threshold {
			n = n.Left
		} else {
			n = n.Right
		}
	}
	return n.Value
}

type treeParams struct {
	maxDepth       int
	minSamplesLeaf int
}

// fitTree grows a regression tree on (xs, targets) by greedy variance
// reduction.
func fitTree(xs [][]float64, targets []float64, p treeParams) *Node {
	idx := make([]int, len(xs))
	for i := range idx {
		idx[i] = i
	}
	return growNode(xs, targets, idx, 0, p)
}

func growNode(xs [][]float64, targets []float64, idx []int, depth int, p treeParams) *Node {
	node := &Node{Value: meanAt(targets, idx)}
	if depth >= p.maxDepth || len(idx) < 2*p.minSamplesLeaf {
		return node
	}

	feature, threshold, ok := bestSplit(xs, targets, idx, p.minSamplesLeaf)
	if !ok {
		return node
	}

	var left, right []int
	for _, i := range idx {
		if xs[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	node.Feature = feature
	node.Threshold = threshold
	node.Left = growNode(xs, targets, left, depth+1, p)
	node.Right = growNode(xs, targets, right, depth+1, p)
	return node
}

// bestSplit scans every feature for the threshold that most reduces the
// summed squared error, honouring the minimum leaf size.
func bestSplit(xs [][]float64, targets []float64, idx []int, minLeaf int) (int, float64, bool) {
	bestGain := 0.0
	bestFeature := -1
	bestThreshold := 0.0

	total := 0.0
	totalSq := 0.0
	for _, i := range idx {
		total += targets[i]
		totalSq += targets[i] * targets[i]
	}
	n := float64(len(idx))
	parentSSE := totalSq - total*total/n

	order := make([]int, len(idx))
	for f := 0; f < len(xs[idx[0]]); f++ {
		copy(order, idx)
		sort.Slice(order, func(a, b int) bool {
			return xs[order[a]][f] < xs[order[b]][f]
		})

		leftSum, leftSq := 0.0, 0.0
		for k := 0; k < len(order)-1; k++ {
			i := order[k]
			leftSum += targets[i]
			leftSq += targets[i] * targets[i]

			// Splits only between distinct values.
			if xs[i][f] == xs[order[k+1]][f] {
				continue
			}
			nl := float64(k + 1)
			nr := n - nl
			if int(nl) < minLeaf || int(nr) < minLeaf {
				continue
			}

			rightSum := total - leftSum
			rightSq := totalSq - leftSq
			sse := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
			gain := parentSSE - sse
			if gain > bestGain+1e-12 {
				bestGain = gain
				bestFeature = f
				bestThreshold = (xs[i][f] + xs[order[k+1]][f]) / 2
			}
		}
	}

	if bestFeature < 0 {
		return 0, 0, false
	}
	return bestFeature, bestThreshold, true
}

func meanAt(targets []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	sum := 0.0
	for _, i := range idx {
		sum += targets[i]
	}
	return sum / float64(len(idx))
}
