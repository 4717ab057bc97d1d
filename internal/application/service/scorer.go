package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/turtacn/touristsafety/internal/domain/models"
	"github.com/turtacn/touristsafety/internal/infrastructure/ml"
	"github.com/turtacn/touristsafety/pkg/constants"
	apperrors "github.com/turtacn/touristsafety/pkg/errors"
	"github.com/turtacn/touristsafety/pkg/logger"
	"github.com/turtacn/touristsafety/pkg/utils"
)

// Prediction is the classifier's answer for one feature vector.
type Prediction struct {
	Score         int
	Confidence    float64
	Contributions []models.FeatureContribution
}

// TrainingResult summarises a fit.
type TrainingResult struct {
	Accuracy           float64
	FeatureImportances map[string]float64
	TrainingSamples    int
	TestSamples        int
}

// Scorer wraps the persisted classifier.
type Scorer interface {
	// Predict scores a feature vector, loading the artifacts on first use.
	Predict(ctx context.Context, vector models.FeatureVector) (*Prediction, error)
	// Train fits a new model on labelled vectors, persists it and makes it resident.
	Train(ctx context.Context, vectors []models.FeatureVector, labels []int) (*TrainingResult, error)
	// Loaded reports whether a model is resident.
	Loaded() bool
	// Available reports whether a model is resident or can be loaded from disk.
	Available() bool
	// FeatureImportances returns the resident model's importances by feature name, or nil.
	FeatureImportances() map[string]float64
}

type residentModel struct {
	forest *ml.RandomForest
	scaler *ml.StandardScaler
}

type forestScorer struct {
	store        *ml.ArtifactStore
	params       ml.ForestParams
	testFraction float64
	log          logger.Logger

	mu    sync.RWMutex
	model *residentModel
}

// NewScorer creates a scorer backed by store. Artifacts are loaded lazily; a
// failed load is retried on the next call.
func NewScorer(store *ml.ArtifactStore, params ml.ForestParams, testFraction float64, log logger.Logger) Scorer {
	if testFraction <= 0 || testFraction >= 1 {
		testFraction = 0.2
	}
	if log == nil {
		log = logger.NewNoopLogger()
	}
	return &forestScorer{
		store:        store,
		params:       params,
		testFraction: testFraction,
		log:          log.WithComponent("scorer"),
	}
}

func (s *forestScorer) resident() (*residentModel, error) {
	s.mu.RLock()
	m := s.model
	s.mu.RUnlock()
	if m != nil {
		return m, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.model != nil {
		return s.model, nil
	}
	artifact, scaler, err := s.store.Load(models.FeatureCount)
	if err != nil {
		return nil, apperrors.ErrModelUnavailable(err)
	}
	s.model = &residentModel{forest: artifact.Forest, scaler: scaler}
	s.log.Info(context.Background(), "model loaded", logger.Fields{
		"model_path": s.store.ModelPath,
		"trees":      len(artifact.Forest.Trees),
		"trained_at": artifact.TrainedAt,
	})
	return s.model, nil
}

func (s *forestScorer) Predict(ctx context.Context, vector models.FeatureVector) (*Prediction, error) {
	if len(vector) != models.FeatureCount {
		return nil, apperrors.ErrInvalidRequest(fmt.Sprintf("feature vector has %d values, want %d", len(vector), models.FeatureCount))
	}
	m, err := s.resident()
	if err != nil {
		return nil, err
	}

	scaled, err := m.scaler.Transform(vector)
	if err != nil {
		return nil, apperrors.ErrModelUnavailable(err)
	}
	label, proba, err := m.forest.Predict(scaled)
	if err != nil {
		return nil, apperrors.ErrModelUnavailable(err)
	}

	maxProba := 0.0
	for _, p := range proba {
		maxProba = math.Max(maxProba, p)
	}

	contributions := make([]models.FeatureContribution, models.FeatureCount)
	for i, name := range models.FeatureNames {
		contributions[i] = models.FeatureContribution{
			Feature:    name,
			Value:      utils.RoundTo(vector[i], 2),
			Importance: utils.RoundTo(m.forest.FeatureImportances[i], 4),
		}
	}

	return &Prediction{
		Score:         utils.ClampInt(label, constants.MinRiskScore, constants.MaxRiskScore),
		Confidence:    utils.RoundTo(maxProba*100, 2),
		Contributions: contributions,
	}, nil
}

func (s *forestScorer) Train(ctx context.Context, vectors []models.FeatureVector, labels []int) (*TrainingResult, error) {
	if len(vectors) == 0 || len(vectors) != len(labels) {
		return nil, apperrors.ErrInvalidRequest("training needs a label for every sample")
	}
	X := make([][]float64, len(vectors))
	for i, v := range vectors {
		if len(v) != models.FeatureCount {
			return nil, apperrors.ErrInvalidRequest(fmt.Sprintf("sample %d has %d features, want %d", i, len(v), models.FeatureCount))
		}
		X[i] = v
	}

	trainIdx, testIdx := ml.StratifiedSplit(labels, s.testFraction, s.params.Seed)
	trainX, trainY := ml.Rows(X, trainIdx), ml.Rows(labels, trainIdx)

	scaler := &ml.StandardScaler{}
	if err := scaler.Fit(trainX); err != nil {
		return nil, apperrors.ErrInternal("fit scaler", err)
	}
	scaledTrain, err := scaler.TransformAll(trainX)
	if err != nil {
		return nil, apperrors.ErrInternal("scale training data", err)
	}

	forest := ml.NewRandomForest(s.params)
	if err := forest.Fit(ctx, scaledTrain, trainY); err != nil {
		return nil, apperrors.ErrInternal("fit forest", err)
	}

	// With only singleton classes nothing is held out; score on the training rows instead.
	evalIdx := testIdx
	if len(evalIdx) == 0 {
		evalIdx = trainIdx
	}
	predicted := make([]int, len(evalIdx))
	expected := make([]int, len(evalIdx))
	for i, idx := range evalIdx {
		row, err := scaler.Transform(X[idx])
		if err != nil {
			return nil, apperrors.ErrInternal("scale evaluation data", err)
		}
		if predicted[i], _, err = forest.Predict(row); err != nil {
			return nil, apperrors.ErrInternal("evaluate forest", err)
		}
		expected[i] = labels[idx]
	}

	artifact := &ml.ModelArtifact{
		ModelType:    constants.ModelType,
		ModelVersion: constants.ModelVersion,
		FeatureNames: models.FeatureNames[:],
		TrainedAt:    time.Now().UTC(),
		Forest:       forest,
	}
	if err := s.store.Save(artifact, scaler); err != nil {
		return nil, apperrors.ErrInternal("persist model artifacts", err)
	}

	s.mu.Lock()
	s.model = &residentModel{forest: forest, scaler: scaler}
	s.mu.Unlock()

	return &TrainingResult{
		Accuracy:           ml.Accuracy(expected, predicted),
		FeatureImportances: importanceMap(forest.FeatureImportances),
		TrainingSamples:    len(trainIdx),
		TestSamples:        len(testIdx),
	}, nil
}

func (s *forestScorer) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.model != nil
}

func (s *forestScorer) Available() bool {
	return s.Loaded() || s.store.Exists()
}

func (s *forestScorer) FeatureImportances() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.model == nil {
		return nil
	}
	return importanceMap(s.model.forest.FeatureImportances)
}

func importanceMap(values []float64) map[string]float64 {
	out := make(map[string]float64, len(values))
	for i, v := range values {
		if i < len(models.FeatureNames) {
			out[models.FeatureNames[i]] = v
		}
	}
	return out
}

// IsModelUnavailable reports whether err means no usable model is resident.
func IsModelUnavailable(err error) bool {
	var appErr *apperrors.AppError
	return errors.As(err, &appErr) && appErr.Code == apperrors.CodeModelUnavailable
}
