package ml

import (
	"math"
	"math/rand"
	"sort"
)

// StratifiedSplit partitions sample indices into train and test sets so each
// label keeps roughly the same share in both. A label with a single sample stays
// in the training set. Both index lists are sorted.
func StratifiedSplit(labels []int, testFraction float64, seed int64) (train, test []int) {
	byLabel := map[int][]int{}
	for i, l := range labels {
		byLabel[l] = append(byLabel[l], i)
	}
	keys := make([]int, 0, len(byLabel))
	for l := range byLabel {
		keys = append(keys, l)
	}
	sort.Ints(keys)

	rng := rand.New(rand.NewSource(seed))
	for _, l := range keys {
		idx := byLabel[l]
		rng.Shuffle(len(idx), func(a, b int) { idx[a], idx[b] = idx[b], idx[a] })

		nTest := 0
		if len(idx) > 1 {
			nTest = int(math.Round(float64(len(idx)) * testFraction))
			if nTest < 1 {
				nTest = 1
			}
			if nTest >= len(idx) {
				nTest = len(idx) - 1
			}
		}
		test = append(test, idx[:nTest]...)
		train = append(train, idx[nTest:]...)
	}
	sort.Ints(train)
	sort.Ints(test)
	return train, test
}

// Accuracy is the share of predictions equal to the expected labels.
func Accuracy(expected, predicted []int) float64 {
	if len(expected) == 0 || len(expected) != len(predicted) {
		return 0
	}
	hits := 0
	for i := range expected {
		if expected[i] == predicted[i] {
			hits++
		}
	}
	return float64(hits) / float64(len(expected))
}

// Rows selects rows of X by index.
func Rows[T any](X []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = X[j]
	}
	return out
}
