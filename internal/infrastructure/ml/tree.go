package ml

import (
	"math"
	"math/rand"
	"sort"
)

const leafFeature = -1

// Node is one node of a fitted decision tree, stored in a flat slice.
// Leaves have Feature == -1 and carry class probabilities in Proba.
type Node struct {
	Feature   int       `json:"f"`
	Threshold float64   `json:"t,omitempty"`
	Left      int       `json:"l,omitempty"`
	Right     int       `json:"r,omitempty"`
	Proba     []float64 `json:"p,omitempty"`
}

// Tree is a CART classification tree over class indices 0..K-1.
type Tree struct {
	Nodes []Node `json:"nodes"`
}

type treeParams struct {
	maxDepth        int
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int
	nClasses        int
}

type treeBuilder struct {
	params      treeParams
	X           [][]float64
	y           []int
	rng         *rand.Rand
	tree        *Tree
	importances []float64
}

// fitTree grows a tree on the rows of X selected by idx. idx may contain
// duplicates (bootstrap draws). It returns the tree and its unnormalised
// impurity decrease per feature.
func fitTree(X [][]float64, y []int, idx []int, p treeParams, rng *rand.Rand) (*Tree, []float64) {
	b := &treeBuilder{
		params:      p,
		X:           X,
		y:           y,
		rng:         rng,
		tree:        &Tree{},
		importances: make([]float64, len(X[0])),
	}
	b.grow(idx, 0)
	return b.tree, b.importances
}

func (b *treeBuilder) counts(idx []int) []float64 {
	c := make([]float64, b.params.nClasses)
	for _, i := range idx {
		c[b.y[i]]++
	}
	return c
}

func gini(counts []float64, n float64) float64 {
	if n == 0 {
		return 0
	}
	sum := 0.0
	for _, c := range counts {
		p := c / n
		sum += p * p
	}
	return 1 - sum
}

func (b *treeBuilder) leaf(counts []float64, n float64) int {
	proba := make([]float64, len(counts))
	for k, c := range counts {
		proba[k] = c / n
	}
	b.tree.Nodes = append(b.tree.Nodes, Node{Feature: leafFeature, Proba: proba})
	return len(b.tree.Nodes) - 1
}

type split struct {
	feature   int
	threshold float64
	impurity  float64
	left      []int
	right     []int
}

func (b *treeBuilder) grow(idx []int, depth int) int {
	n := float64(len(idx))
	counts := b.counts(idx)
	impurity := gini(counts, n)

	if depth >= b.params.maxDepth || len(idx) < b.params.minSamplesSplit ||
		len(idx) < 2*b.params.minSamplesLeaf || impurity == 0 {
		return b.leaf(counts, n)
	}

	best, ok := b.bestSplit(idx)
	if !ok || best.impurity >= impurity {
		return b.leaf(counts, n)
	}

	nl, nr := float64(len(best.left)), float64(len(best.right))
	b.importances[best.feature] += n*impurity -
		nl*gini(b.counts(best.left), nl) -
		nr*gini(b.counts(best.right), nr)

	self := len(b.tree.Nodes)
	b.tree.Nodes = append(b.tree.Nodes, Node{Feature: best.feature, Threshold: best.threshold})
	left := b.grow(best.left, depth+1)
	right := b.grow(best.right, depth+1)
	b.tree.Nodes[self].Left = left
	b.tree.Nodes[self].Right = right
	return self
}

// bestSplit examines features in random order until maxFeatures non-constant
// features have been evaluated.
func (b *treeBuilder) bestSplit(idx []int) (split, bool) {
	nFeatures := len(b.X[0])
	order := b.rng.Perm(nFeatures)
	best := split{impurity: math.Inf(1)}
	found := false
	visited := 0

	sorted := make([]int, len(idx))
	for _, f := range order {
		if visited >= b.params.maxFeatures {
			break
		}
		copy(sorted, idx)
		sort.Slice(sorted, func(a, c int) bool { return b.X[sorted[a]][f] < b.X[sorted[c]][f] })
		if b.X[sorted[0]][f] == b.X[sorted[len(sorted)-1]][f] {
			continue
		}
		visited++

		threshold, imp, pos, ok := b.scanFeature(sorted, f)
		if ok && imp < best.impurity {
			best = split{
				feature:   f,
				threshold: threshold,
				impurity:  imp,
				left:      append([]int(nil), sorted[:pos]...),
				right:     append([]int(nil), sorted[pos:]...),
			}
			found = true
		}
	}
	return best, found
}

// scanFeature sweeps the sorted rows and returns the midpoint threshold with the
// lowest weighted child impurity, honouring minSamplesLeaf.
func (b *treeBuilder) scanFeature(sorted []int, f int) (float64, float64, int, bool) {
	n := len(sorted)
	minLeaf := b.params.minSamplesLeaf
	left := make([]float64, b.params.nClasses)
	right := b.counts(sorted)

	bestImp := math.Inf(1)
	bestPos := -1
	for pos := 1; pos < n; pos++ {
		cls := b.y[sorted[pos-1]]
		left[cls]++
		right[cls]--
		if pos < minLeaf || n-pos < minLeaf {
			continue
		}
		if b.X[sorted[pos-1]][f] == b.X[sorted[pos]][f] {
			continue
		}
		nl, nr := float64(pos), float64(n-pos)
		imp := (nl*gini(left, nl) + nr*gini(right, nr)) / float64(n)
		if imp < bestImp {
			bestImp = imp
			bestPos = pos
		}
	}
	if bestPos < 0 {
		return 0, 0, 0, false
	}
	threshold := (b.X[sorted[bestPos-1]][f] + b.X[sorted[bestPos]][f]) / 2
	return threshold, bestImp, bestPos, true
}

// predictProba walks the tree for a single row.
func (t *Tree) predictProba(x []float64) []float64 {
	i := 0
	for {
		node := &t.Nodes[i]
		if node.Feature == leafFeature {
			return node.Proba
		}
		if x[node.Feature] <= node.Threshold {
			i = node.Left
		} else {
			i = node.Right
		}
	}
}
