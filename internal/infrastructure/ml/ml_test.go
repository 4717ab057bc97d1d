package ml_test

import (
	"context"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/turtacn/touristsafety/internal/infrastructure/ml"
)

func TestStandardScaler(t *testing.T) {
	X := [][]float64{{1, 10, 7}, {3, 10, 7}, {5, 10, 7}}

	var s ml.StandardScaler
	require.NoError(t, s.Fit(X))

	assert.Equal(t, 3, s.NFeatures)
	assert.InDelta(t, 3.0, s.Mean[0], 1e-9)
	assert.InDelta(t, math.Sqrt(8.0/3.0), s.Scale[0], 1e-9)
	assert.Equal(t, 1.0, s.Scale[1], "constant column keeps unit scale")

	out, err := s.Transform([]float64{3, 12, 7})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, out[0], 1e-9)
	assert.InDelta(t, 2.0, out[1], 1e-9)
	assert.InDelta(t, 0.0, out[2], 1e-9)

	_, err = s.Transform([]float64{1, 2})
	assert.Error(t, err)

	var empty ml.StandardScaler
	_, err = empty.Transform([]float64{1})
	assert.ErrorIs(t, err, ml.ErrNotFitted)
}

// separable returns two noisy clusters where only feature 0 matters.
func separable(n int, seed int64) ([][]float64, []int) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]int, n)
	for i := range X {
		label := 2
		base := 0.0
		if i%2 == 1 {
			label, base = 8, 10.0
		}
		X[i] = []float64{base + rng.Float64(), rng.Float64() * 100, rng.Float64()}
		y[i] = label
	}
	return X, y
}

func TestRandomForest_FitPredict(t *testing.T) {
	X, y := separable(200, 1)
	rf := ml.NewRandomForest(ml.ForestParams{NEstimators: 25, Seed: 42})
	require.NoError(t, rf.Fit(context.Background(), X, y))

	assert.Equal(t, []int{2, 8}, rf.Classes)
	assert.Len(t, rf.Trees, 25)
	require.NoError(t, rf.Validate())

	label, proba, err := rf.Predict([]float64{10.5, 50, 0.5})
	require.NoError(t, err)
	assert.Equal(t, 8, label)
	assert.Len(t, proba, 2)
	assert.InDelta(t, 1.0, proba[0]+proba[1], 1e-9)

	label, _, err = rf.Predict([]float64{0.5, 50, 0.5})
	require.NoError(t, err)
	assert.Equal(t, 2, label)

	sum := 0.0
	for _, v := range rf.FeatureImportances {
		sum += v
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
	assert.Greater(t, rf.FeatureImportances[0], rf.FeatureImportances[1])

	_, _, err = rf.Predict([]float64{1})
	assert.Error(t, err)
}

func TestRandomForest_Deterministic(t *testing.T) {
	X, y := separable(120, 3)
	a := ml.NewRandomForest(ml.ForestParams{NEstimators: 10, Seed: 7})
	b := ml.NewRandomForest(ml.ForestParams{NEstimators: 10, Seed: 7})
	require.NoError(t, a.Fit(context.Background(), X, y))
	require.NoError(t, b.Fit(context.Background(), X, y))

	assert.Equal(t, a.Trees, b.Trees)
	assert.Equal(t, a.FeatureImportances, b.FeatureImportances)
}

func TestRandomForest_Unfitted(t *testing.T) {
	rf := ml.NewRandomForest(ml.DefaultForestParams())
	_, err := rf.PredictProba([]float64{1, 2})
	assert.ErrorIs(t, err, ml.ErrNotFitted)
	assert.Error(t, rf.Fit(context.Background(), nil, nil))
}

func TestStratifiedSplit(t *testing.T) {
	labels := make([]int, 0, 101)
	for i := 0; i < 50; i++ {
		labels = append(labels, 3)
	}
	for i := 0; i < 50; i++ {
		labels = append(labels, 7)
	}
	labels = append(labels, 10)

	train, test := ml.StratifiedSplit(labels, 0.2, 42)
	assert.Len(t, test, 20)
	assert.Len(t, train, 81)

	perClass := map[int]int{}
	for _, i := range test {
		perClass[labels[i]]++
	}
	assert.Equal(t, 10, perClass[3])
	assert.Equal(t, 10, perClass[7])
	assert.Zero(t, perClass[10], "singleton class stays in training")

	again, _ := ml.StratifiedSplit(labels, 0.2, 42)
	assert.Equal(t, train, again)
}

func TestAccuracy(t *testing.T) {
	assert.Equal(t, 0.75, ml.Accuracy([]int{1, 2, 3, 4}, []int{1, 2, 3, 5}))
	assert.Equal(t, 0.0, ml.Accuracy(nil, nil))
}

func TestArtifactStore_RoundTrip(t *testing.T) {
	X, y := separable(80, 5)
	var scaler ml.StandardScaler
	require.NoError(t, scaler.Fit(X))
	scaled, err := scaler.TransformAll(X)
	require.NoError(t, err)

	rf := ml.NewRandomForest(ml.ForestParams{NEstimators: 5, Seed: 1})
	require.NoError(t, rf.Fit(context.Background(), scaled, y))

	dir := t.TempDir()
	store := ml.NewArtifactStore(filepath.Join(dir, "models", "m.json"), filepath.Join(dir, "models", "s.json"))
	assert.False(t, store.Exists())

	_, _, err = store.Load(3)
	assert.ErrorIs(t, err, ml.ErrArtifactNotFound)

	require.NoError(t, store.Save(&ml.ModelArtifact{ModelType: "rf", Forest: rf}, &scaler))
	assert.True(t, store.Exists())

	model, loadedScaler, err := store.Load(3)
	require.NoError(t, err)
	assert.Equal(t, scaler, *loadedScaler)

	row, err := loadedScaler.Transform(X[0])
	require.NoError(t, err)
	want, _, err := rf.Predict(row)
	require.NoError(t, err)
	got, _, err := model.Forest.Predict(row)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, _, err = store.Load(22)
	assert.Error(t, err, "feature count mismatch")
}

func TestArtifactStore_RejectsMismatchedScaler(t *testing.T) {
	X, y := separable(40, 9)
	rf := ml.NewRandomForest(ml.ForestParams{NEstimators: 3})
	require.NoError(t, rf.Fit(context.Background(), X, y))

	dir := t.TempDir()
	store := ml.NewArtifactStore(filepath.Join(dir, "m.json"), filepath.Join(dir, "s.json"))
	require.NoError(t, store.Save(&ml.ModelArtifact{Forest: rf}, &ml.StandardScaler{NFeatures: 3, Mean: []float64{0, 0, 0}, Scale: []float64{1, 1, 1}}))

	require.NoError(t, os.WriteFile(store.ScalerPath, []byte(`{"n_features":2,"mean":[0,0],"scale":[1,1]}`), 0o600))
	_, _, err := store.Load(0)
	assert.Error(t, err)
}
