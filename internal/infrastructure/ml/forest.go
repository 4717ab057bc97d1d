package ml

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
)

// ForestParams are the hyper-parameters of a RandomForest.
type ForestParams struct {
	NEstimators     int   `json:"n_estimators"`
	MaxDepth        int   `json:"max_depth"`
	MinSamplesSplit int   `json:"min_samples_split"`
	MinSamplesLeaf  int   `json:"min_samples_leaf"`
	Bootstrap       bool  `json:"bootstrap"`
	Seed            int64 `json:"seed"`
}

// DefaultForestParams returns the production hyper-parameters.
func DefaultForestParams() ForestParams {
	return ForestParams{
		NEstimators:     200,
		MaxDepth:        15,
		MinSamplesSplit: 5,
		MinSamplesLeaf:  2,
		Bootstrap:       true,
		Seed:            42,
	}
}

func (p ForestParams) withDefaults() ForestParams {
	d := DefaultForestParams()
	if p.NEstimators <= 0 {
		p.NEstimators = d.NEstimators
	}
	if p.MaxDepth <= 0 {
		p.MaxDepth = d.MaxDepth
	}
	if p.MinSamplesSplit < 2 {
		p.MinSamplesSplit = 2
	}
	if p.MinSamplesLeaf < 1 {
		p.MinSamplesLeaf = 1
	}
	return p
}

// RandomForest is a bagged ensemble of CART classifiers with sqrt feature
// sampling. Class probabilities are the mean of the trees' leaf distributions.
type RandomForest struct {
	Params             ForestParams `json:"params"`
	NFeatures          int          `json:"n_features"`
	Classes            []int        `json:"classes"`
	FeatureImportances []float64    `json:"feature_importances"`
	Trees              []*Tree      `json:"trees"`
}

// NewRandomForest creates an unfitted forest.
func NewRandomForest(p ForestParams) *RandomForest {
	return &RandomForest{Params: p.withDefaults()}
}

// Fit trains the forest. Trees are grown in parallel; each tree draws from its
// own RNG seeded from Params.Seed, so the result does not depend on scheduling.
func (rf *RandomForest) Fit(ctx context.Context, X [][]float64, labels []int) error {
	if len(X) == 0 || len(X) != len(labels) {
		return fmt.Errorf("ml: need matching non-empty X and y, got %d and %d", len(X), len(labels))
	}
	p := rf.Params.withDefaults()
	nFeatures := len(X[0])

	classes, y := encodeLabels(labels)
	tp := treeParams{
		maxDepth:        p.MaxDepth,
		minSamplesSplit: p.MinSamplesSplit,
		minSamplesLeaf:  p.MinSamplesLeaf,
		maxFeatures:     int(math.Max(1, math.Floor(math.Sqrt(float64(nFeatures))))),
		nClasses:        len(classes),
	}

	master := rand.New(rand.NewSource(p.Seed))
	seeds := make([]int64, p.NEstimators)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	trees := make([]*Tree, p.NEstimators)
	importances := make([][]float64, p.NEstimators)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := 0; i < p.NEstimators; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(seeds[i]))
			idx := make([]int, len(X))
			if p.Bootstrap {
				for k := range idx {
					idx[k] = rng.Intn(len(X))
				}
			} else {
				for k := range idx {
					idx[k] = k
				}
			}
			trees[i], importances[i] = fitTree(X, y, idx, tp, rng)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	rf.Params = p
	rf.NFeatures = nFeatures
	rf.Classes = classes
	rf.Trees = trees
	rf.FeatureImportances = meanImportances(importances, nFeatures)
	return nil
}

// PredictProba returns the probability of each entry of Classes for x.
func (rf *RandomForest) PredictProba(x []float64) ([]float64, error) {
	if len(rf.Trees) == 0 {
		return nil, ErrNotFitted
	}
	if len(x) != rf.NFeatures {
		return nil, fmt.Errorf("ml: model expects %d features, got %d", rf.NFeatures, len(x))
	}
	out := make([]float64, len(rf.Classes))
	for _, t := range rf.Trees {
		for k, p := range t.predictProba(x) {
			out[k] += p
		}
	}
	for k := range out {
		out[k] /= float64(len(rf.Trees))
	}
	return out, nil
}

// Predict returns the most probable class label and the full distribution.
// Ties go to the smaller label.
func (rf *RandomForest) Predict(x []float64) (int, []float64, error) {
	proba, err := rf.PredictProba(x)
	if err != nil {
		return 0, nil, err
	}
	best := 0
	for k := range proba {
		if proba[k] > proba[best] {
			best = k
		}
	}
	return rf.Classes[best], proba, nil
}

// Validate checks the structural consistency of a loaded forest.
func (rf *RandomForest) Validate() error {
	if len(rf.Trees) == 0 || len(rf.Classes) == 0 {
		return ErrNotFitted
	}
	if len(rf.FeatureImportances) != rf.NFeatures {
		return errors.New("ml: feature importances do not match feature count")
	}
	for ti, t := range rf.Trees {
		if t == nil || len(t.Nodes) == 0 {
			return fmt.Errorf("ml: tree %d is empty", ti)
		}
		for ni, n := range t.Nodes {
			if n.Feature == leafFeature {
				if len(n.Proba) != len(rf.Classes) {
					return fmt.Errorf("ml: tree %d leaf %d has %d classes, want %d", ti, ni, len(n.Proba), len(rf.Classes))
				}
				continue
			}
			if n.Feature < 0 || n.Feature >= rf.NFeatures || n.Left <= ni || n.Right <= ni ||
				n.Left >= len(t.Nodes) || n.Right >= len(t.Nodes) {
				return fmt.Errorf("ml: tree %d node %d is malformed", ti, ni)
			}
		}
	}
	return nil
}

func encodeLabels(labels []int) ([]int, []int) {
	seen := map[int]struct{}{}
	for _, l := range labels {
		seen[l] = struct{}{}
	}
	classes := make([]int, 0, len(seen))
	for l := range seen {
		classes = append(classes, l)
	}
	sort.Ints(classes)

	index := make(map[int]int, len(classes))
	for i, c := range classes {
		index[c] = i
	}
	y := make([]int, len(labels))
	for i, l := range labels {
		y[i] = index[l]
	}
	return classes, y
}

// meanImportances normalises each tree's impurity decrease, averages across
// trees and renormalises so the result sums to 1 (or is all zeros).
func meanImportances(perTree [][]float64, nFeatures int) []float64 {
	out := make([]float64, nFeatures)
	for _, imp := range perTree {
		total := 0.0
		for _, v := range imp {
			total += v
		}
		if total == 0 {
			continue
		}
		for j, v := range imp {
			out[j] += v / total
		}
	}
	total := 0.0
	for _, v := range out {
		total += v
	}
	if total > 0 {
		for j := range out {
			out[j] /= total
		}
	}
	return out
}
